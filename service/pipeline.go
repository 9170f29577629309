package service

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/glowsenior/HIPAA-Contract-Site/model"
	"github.com/glowsenior/HIPAA-Contract-Site/pkg/apperr"
	"github.com/glowsenior/HIPAA-Contract-Site/store"
)

// allowedExtensions is the upload allow-list: images and office documents.
var allowedExtensions = map[string]bool{
	".jpeg": true,
	".jpg":  true,
	".png":  true,
	".gif":  true,
	".pdf":  true,
	".doc":  true,
	".docx": true,
}

// allowedMimeType checks the declared content type against the same
// allow-list the extensions use.
func allowedMimeType(mimeType string) bool {
	mimeType = strings.ToLower(mimeType)
	for _, token := range []string{"jpeg", "jpg", "png", "gif", "pdf", "msword", "wordprocessingml"} {
		if strings.Contains(mimeType, token) {
			return true
		}
	}
	return false
}

// UploadInput carries one upload through the pipeline, independent of the
// HTTP framing.
type UploadInput struct {
	RequesterID  string
	ContractID   string
	DocumentType model.DocumentType
	OriginalName string
	ContentType  string
	Size         int64
	Reader       io.Reader
}

// DocumentPipeline validates, persists and links uploaded files to their
// contract, and owns the cascade/cleanup rules that keep metadata records
// and blobs in sync.
type DocumentPipeline struct {
	contracts   *store.ContractStore
	documents   *store.DocumentStore
	storage     BlobStorage
	maxFileSize int64
}

func NewDocumentPipeline(contracts *store.ContractStore, documents *store.DocumentStore, storage BlobStorage, maxFileSize int64) *DocumentPipeline {
	return &DocumentPipeline{
		contracts:   contracts,
		documents:   documents,
		storage:     storage,
		maxFileSize: maxFileSize,
	}
}

// Upload runs the full pipeline: validate input, resolve and authorize
// the contract, check the allow-list and size cap, persist the blob under
// a generated name, create the metadata record and link it into the
// contract. All checks happen before the blob is written; any failure
// after the write removes it again.
func (p *DocumentPipeline) Upload(ctx context.Context, in UploadInput) (*model.Document, error) {
	var fields []apperr.FieldError
	if in.ContractID == "" {
		fields = append(fields, apperr.FieldError{Field: "contractId", Message: "Contract ID is required"})
	}
	if in.DocumentType == "" {
		fields = append(fields, apperr.FieldError{Field: "documentType", Message: "Document type is required"})
	} else if !in.DocumentType.Valid() {
		fields = append(fields, apperr.FieldError{Field: "documentType", Message: "Invalid document type"})
	}
	if len(fields) > 0 {
		return nil, apperr.Validation(fields...)
	}

	contract, err := p.contracts.Get(ctx, in.ContractID)
	if err != nil {
		return nil, err
	}
	if !contract.IsParticipant(in.RequesterID) {
		return nil, apperr.Forbidden("Not authorized to upload to this contract")
	}

	ext := strings.ToLower(filepath.Ext(in.OriginalName))
	if !allowedExtensions[ext] || !allowedMimeType(in.ContentType) {
		return nil, apperr.Validationf("document", "Only images and PDFs are allowed")
	}
	if p.maxFileSize > 0 && in.Size > p.maxFileSize {
		return nil, apperr.Validationf("document", "File exceeds the maximum size of %d bytes", p.maxFileSize)
	}

	// Collision-resistant storage name, distinct from the user's name.
	filename := uuid.New().String() + ext
	if err := p.storage.Save(ctx, filename, in.Reader, in.Size, in.ContentType); err != nil {
		return nil, err
	}

	doc := &model.Document{
		Filename:     filename,
		OriginalName: in.OriginalName,
		Path:         filename,
		Size:         in.Size,
		MimeType:     in.ContentType,
		UploadedByID: in.RequesterID,
		ContractID:   in.ContractID,
		DocumentType: in.DocumentType,
	}
	if err := p.documents.Create(ctx, doc); err != nil {
		p.removeBlob(ctx, filename)
		return nil, err
	}

	replaced, err := p.link(ctx, contract, doc)
	if err != nil {
		p.removeBlob(ctx, filename)
		if derr := p.documents.Delete(ctx, doc.ID); derr != nil {
			slog.Error("failed to clean up document record", "document_id", doc.ID, "error", derr)
		}
		return nil, err
	}

	// The old slot occupant is unreachable now; drop its record and blob
	// so replacement does not leak storage.
	if replaced != nil {
		p.removeBlob(ctx, replaced.Path)
		if derr := p.documents.Delete(ctx, replaced.ID); derr != nil {
			slog.Error("failed to delete replaced document", "document_id", replaced.ID, "error", derr)
		}
	}

	return doc, nil
}

// link attaches doc to its contract: single-slot types overwrite the
// dl-front/dl-back slot, everything else appends to the document set.
// Returns the previous slot occupant when one was displaced.
func (p *DocumentPipeline) link(ctx context.Context, contract *model.Contract, doc *model.Document) (*model.Document, error) {
	var replacedID *string
	switch doc.DocumentType {
	case model.DocDLFront:
		replacedID = contract.DLFrontID
		contract.DLFrontID = &doc.ID
	case model.DocDLBack:
		replacedID = contract.DLBackID
		contract.DLBackID = &doc.ID
	default:
		contract.DocumentIDs = append(contract.DocumentIDs, doc.ID)
	}

	if err := p.contracts.Update(ctx, contract); err != nil {
		return nil, err
	}

	if replacedID == nil {
		return nil, nil
	}
	replaced, err := p.documents.Get(ctx, *replacedID)
	if err != nil {
		// The slot pointed at a record that no longer exists; nothing to
		// clean up.
		return nil, nil
	}
	return replaced, nil
}

// ResolveAuthorized loads a document and verifies the requester is a
// participant of its contract.
func (p *DocumentPipeline) ResolveAuthorized(ctx context.Context, requesterID, docID string) (*model.Document, error) {
	doc, err := p.documents.Get(ctx, docID)
	if err != nil {
		return nil, err
	}

	contract, err := p.contracts.Get(ctx, doc.ContractID)
	if err != nil {
		return nil, err
	}
	if !contract.IsParticipant(requesterID) {
		return nil, apperr.Forbidden("Not authorized to access this document")
	}
	return doc, nil
}

// Resolve loads a document without any authorization check. Used only by
// the public preview route, which relies on document IDs being
// unguessable v4 UUIDs.
func (p *DocumentPipeline) Resolve(ctx context.Context, docID string) (*model.Document, error) {
	return p.documents.Get(ctx, docID)
}

// OpenBlob streams a document's stored bytes.
func (p *DocumentPipeline) OpenBlob(ctx context.Context, doc *model.Document) (io.ReadCloser, int64, error) {
	return p.storage.Open(ctx, doc.Path)
}

// Verify sets the verification flag and notes.
func (p *DocumentPipeline) Verify(ctx context.Context, requesterID, docID string, isVerified bool, notes string) (*model.Document, error) {
	doc, err := p.ResolveAuthorized(ctx, requesterID, docID)
	if err != nil {
		return nil, err
	}

	doc.IsVerified = isVerified
	doc.VerificationNotes = notes
	if err := p.documents.Update(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Delete removes a document's blob (idempotently), its metadata record,
// and its reference on the contract.
func (p *DocumentPipeline) Delete(ctx context.Context, requesterID, docID string) error {
	doc, err := p.documents.Get(ctx, docID)
	if err != nil {
		return err
	}

	contract, err := p.contracts.Get(ctx, doc.ContractID)
	if err != nil {
		return err
	}
	if !contract.IsParticipant(requesterID) {
		return apperr.Forbidden("Not authorized to delete this document")
	}

	switch doc.DocumentType {
	case model.DocDLFront:
		if contract.DLFrontID != nil && *contract.DLFrontID == doc.ID {
			contract.DLFrontID = nil
		}
	case model.DocDLBack:
		if contract.DLBackID != nil && *contract.DLBackID == doc.ID {
			contract.DLBackID = nil
		}
	default:
		kept := contract.DocumentIDs[:0]
		for _, id := range contract.DocumentIDs {
			if id != doc.ID {
				kept = append(kept, id)
			}
		}
		contract.DocumentIDs = kept
	}

	if err := p.contracts.Update(ctx, contract); err != nil {
		return err
	}

	p.removeBlob(ctx, doc.Path)
	return p.documents.Delete(ctx, doc.ID)
}

// DeleteContract deletes a contract and cascades to every document
// referencing it, files included. Only the client may do this.
func (p *DocumentPipeline) DeleteContract(ctx context.Context, requesterID, contractID string) error {
	contract, err := p.contracts.Get(ctx, contractID)
	if err != nil {
		return err
	}
	if contract.ClientID != requesterID {
		return apperr.Forbidden("Not authorized to delete this contract")
	}

	docs, err := p.documents.ListByContract(ctx, contractID)
	if err != nil {
		return err
	}
	for i := range docs {
		p.removeBlob(ctx, docs[i].Path)
		if derr := p.documents.Delete(ctx, docs[i].ID); derr != nil {
			slog.Error("failed to delete document during cascade",
				"document_id", docs[i].ID,
				"contract_id", contractID,
				"error", derr,
			)
		}
	}

	return p.contracts.Delete(ctx, contractID)
}

func (p *DocumentPipeline) removeBlob(ctx context.Context, name string) {
	if err := p.storage.Remove(ctx, name); err != nil {
		slog.Error("failed to remove stored file", "filename", name, "error", err)
	}
}
