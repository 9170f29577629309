package model

import "time"

// DocumentType classifies an uploaded file. dl-front and dl-back are
// single-slot types: a contract holds at most one of each, and a new
// upload replaces the old one. Every other type accumulates in the
// contract's general document set.
type DocumentType string

const (
	DocDLFront  DocumentType = "dl-front"
	DocDLBack   DocumentType = "dl-back"
	DocContract DocumentType = "contract"
	DocProposal DocumentType = "proposal"
	DocInvoice  DocumentType = "invoice"
	DocOther    DocumentType = "other"
)

// Valid reports whether t is a known document type.
func (t DocumentType) Valid() bool {
	switch t {
	case DocDLFront, DocDLBack, DocContract, DocProposal, DocInvoice, DocOther:
		return true
	}
	return false
}

// SingleSlot reports whether t occupies a dedicated slot on the contract
// rather than the append-only set.
func (t DocumentType) SingleSlot() bool {
	return t == DocDLFront || t == DocDLBack
}

// ImageMetadata holds optional dimensions for image uploads.
type ImageMetadata struct {
	Width       int    `json:"width,omitempty"`
	Height      int    `json:"height,omitempty"`
	Orientation string `json:"orientation,omitempty"`
}

// Document represents one uploaded file. Path is the storage location and
// is never serialized to clients.
type Document struct {
	ID                string         `gorm:"primaryKey" json:"id"`
	Filename          string         `json:"filename"`
	OriginalName      string         `json:"originalName"`
	Path              string         `json:"-"`
	Size              int64          `json:"size"`
	MimeType          string         `json:"mimeType"`
	UploadedByID      string         `gorm:"index" json:"uploadedBy"`
	ContractID        string         `gorm:"index" json:"contract"`
	DocumentType      DocumentType   `json:"documentType"`
	IsVerified        bool           `json:"isVerified"`
	VerificationNotes string         `json:"verificationNotes"`
	Metadata          *ImageMetadata `gorm:"serializer:json" json:"metadata,omitempty"`
	CreatedAt         time.Time      `json:"createdAt"`
	UpdatedAt         time.Time      `json:"updatedAt"`
}

// PublicMetadata is the upload response shape: everything a client may
// learn about a freshly stored document, excluding the storage path.
type PublicMetadata struct {
	ID           string       `json:"id"`
	Filename     string       `json:"filename"`
	OriginalName string       `json:"originalName"`
	Size         int64        `json:"size"`
	MimeType     string       `json:"mimeType"`
	DocumentType DocumentType `json:"documentType"`
	UploadedAt   time.Time    `json:"uploadedAt"`
}

// Public returns the upload response projection of d.
func (d *Document) Public() PublicMetadata {
	return PublicMetadata{
		ID:           d.ID,
		Filename:     d.Filename,
		OriginalName: d.OriginalName,
		Size:         d.Size,
		MimeType:     d.MimeType,
		DocumentType: d.DocumentType,
		UploadedAt:   d.CreatedAt,
	}
}
