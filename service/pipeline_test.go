package service

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/glowsenior/HIPAA-Contract-Site/config"
	"github.com/glowsenior/HIPAA-Contract-Site/model"
	"github.com/glowsenior/HIPAA-Contract-Site/pkg/apperr"
	"github.com/glowsenior/HIPAA-Contract-Site/store"
)

type pipelineFixture struct {
	db        *gorm.DB
	contracts *store.ContractStore
	documents *store.DocumentStore
	users     *store.UserStore
	pipeline  *DocumentPipeline
	uploadDir string
}

func newPipelineFixture(t *testing.T) *pipelineFixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	db, err := store.Open(&config.DatabaseConfig{Driver: "sqlite", DSN: dsn})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	uploadDir := t.TempDir()
	contracts := store.NewContractStore(db)
	documents := store.NewDocumentStore(db)
	users := store.NewUserStore(db)

	return &pipelineFixture{
		db:        db,
		contracts: contracts,
		documents: documents,
		users:     users,
		pipeline:  NewDocumentPipeline(contracts, documents, NewDiskStorage(uploadDir), 1024),
		uploadDir: uploadDir,
	}
}

func (f *pipelineFixture) seedContract(t *testing.T) *model.Contract {
	t.Helper()
	ctx := context.Background()

	for _, u := range []struct{ id, role string }{
		{"client-1", model.RoleClient},
		{"contractor-1", model.RoleContractor},
	} {
		err := f.users.Create(ctx, &model.User{
			ID:        u.id,
			Email:     u.id + "@example.com",
			Password:  "hash",
			FirstName: "Test",
			LastName:  "User",
			Role:      u.role,
		})
		if err != nil {
			t.Fatalf("Failed to seed user: %v", err)
		}
	}

	contract := &model.Contract{
		Title:        "Clinic website",
		Description:  "Build a clinic site",
		ClientID:     "client-1",
		ContractorID: "contractor-1",
		ProjectType:  model.ProjectMedicalWebsite,
		Budget:       5000,
		Status:       model.StatusDraft,
		Timeline: model.Timeline{
			StartDate: time.Now(),
			EndDate:   time.Now().AddDate(0, 1, 0),
		},
	}
	if err := f.contracts.Create(ctx, contract); err != nil {
		t.Fatalf("Failed to seed contract: %v", err)
	}
	return contract
}

func (f *pipelineFixture) upload(contractID string, docType model.DocumentType, name, mime string, content []byte) (*model.Document, error) {
	return f.pipeline.Upload(context.Background(), UploadInput{
		RequesterID:  "client-1",
		ContractID:   contractID,
		DocumentType: docType,
		OriginalName: name,
		ContentType:  mime,
		Size:         int64(len(content)),
		Reader:       bytes.NewReader(content),
	})
}

func (f *pipelineFixture) uploadDirCount(t *testing.T) int {
	t.Helper()
	entries, err := os.ReadDir(f.uploadDir)
	if err != nil {
		t.Fatalf("Failed to read upload dir: %v", err)
	}
	return len(entries)
}

func TestPipelineUpload(t *testing.T) {
	f := newPipelineFixture(t)
	contract := f.seedContract(t)
	ctx := context.Background()

	doc, err := f.upload(contract.ID, model.DocOther, "notes.pdf", "application/pdf", []byte("pdf content"))
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	if doc.Filename == "notes.pdf" {
		t.Error("Expected generated storage filename distinct from the original name")
	}
	if doc.OriginalName != "notes.pdf" {
		t.Errorf("Expected original name preserved, got %q", doc.OriginalName)
	}
	if f.uploadDirCount(t) != 1 {
		t.Errorf("Expected 1 stored file, got %d", f.uploadDirCount(t))
	}

	got, err := f.contracts.Get(ctx, contract.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(got.DocumentIDs) != 1 || got.DocumentIDs[0] != doc.ID {
		t.Errorf("Expected document linked into general set, got %v", got.DocumentIDs)
	}
}

func TestPipelineUploadMissingFields(t *testing.T) {
	f := newPipelineFixture(t)
	f.seedContract(t)

	tests := []struct {
		name       string
		contractID string
		docType    model.DocumentType
	}{
		{"missing contract id", "", model.DocOther},
		{"missing document type", "some-id", ""},
		{"unknown document type", "some-id", "passport"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.upload(tt.contractID, tt.docType, "a.pdf", "application/pdf", []byte("x"))
			if apperr.KindOf(err) != apperr.KindValidation {
				t.Errorf("Expected validation error, got %v", err)
			}
		})
	}

	if f.uploadDirCount(t) != 0 {
		t.Errorf("Expected no orphaned files, got %d", f.uploadDirCount(t))
	}
}

func TestPipelineUploadContractNotFound(t *testing.T) {
	f := newPipelineFixture(t)
	f.seedContract(t)

	_, err := f.upload("missing-contract", model.DocOther, "a.pdf", "application/pdf", []byte("x"))
	if apperr.KindOf(err) != apperr.KindNotFound {
		t.Errorf("Expected NotFound, got %v", err)
	}
	if f.uploadDirCount(t) != 0 {
		t.Error("Expected no orphaned files after failed upload")
	}
}

func TestPipelineUploadForbidden(t *testing.T) {
	f := newPipelineFixture(t)
	contract := f.seedContract(t)

	_, err := f.pipeline.Upload(context.Background(), UploadInput{
		RequesterID:  "stranger",
		ContractID:   contract.ID,
		DocumentType: model.DocOther,
		OriginalName: "a.pdf",
		ContentType:  "application/pdf",
		Size:         1,
		Reader:       bytes.NewReader([]byte("x")),
	})
	if apperr.KindOf(err) != apperr.KindForbidden {
		t.Errorf("Expected Forbidden, got %v", err)
	}
	if f.uploadDirCount(t) != 0 {
		t.Error("Expected no orphaned files after forbidden upload")
	}
}

func TestPipelineUploadDisallowedType(t *testing.T) {
	f := newPipelineFixture(t)
	contract := f.seedContract(t)

	tests := []struct {
		name     string
		filename string
		mime     string
	}{
		{"executable", "malware.exe", "application/octet-stream"},
		{"allowed extension wrong mime", "fake.png", "application/octet-stream"},
		{"allowed mime wrong extension", "fake.sh", "image/png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.upload(contract.ID, model.DocOther, tt.filename, tt.mime, []byte("x"))
			if apperr.KindOf(err) != apperr.KindValidation {
				t.Errorf("Expected validation error, got %v", err)
			}
		})
	}

	if f.uploadDirCount(t) != 0 {
		t.Errorf("Expected no file written for rejected uploads, got %d", f.uploadDirCount(t))
	}

	docs, err := f.documents.ListByContract(context.Background(), contract.ID)
	if err != nil {
		t.Fatalf("ListByContract failed: %v", err)
	}
	if len(docs) != 0 {
		t.Errorf("Expected no records for rejected uploads, got %d", len(docs))
	}
}

func TestPipelineUploadOversized(t *testing.T) {
	f := newPipelineFixture(t)
	contract := f.seedContract(t)

	big := bytes.Repeat([]byte("a"), 2048) // fixture cap is 1024
	_, err := f.upload(contract.ID, model.DocOther, "big.pdf", "application/pdf", big)
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("Expected validation error for oversized upload, got %v", err)
	}
	if f.uploadDirCount(t) != 0 {
		t.Error("Expected oversized upload rejected before storage")
	}
}

func TestPipelineSlotReplacement(t *testing.T) {
	f := newPipelineFixture(t)
	contract := f.seedContract(t)
	ctx := context.Background()

	first, err := f.upload(contract.ID, model.DocDLFront, "front1.png", "image/png", []byte("first image"))
	if err != nil {
		t.Fatalf("First upload failed: %v", err)
	}

	second, err := f.upload(contract.ID, model.DocDLFront, "front2.png", "image/png", []byte("second image"))
	if err != nil {
		t.Fatalf("Second upload failed: %v", err)
	}

	got, err := f.contracts.Get(ctx, contract.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.DLFrontID == nil || *got.DLFrontID != second.ID {
		t.Error("Expected dl-front slot to hold the second upload")
	}
	if len(got.DocumentIDs) != 0 {
		t.Error("Expected single-slot upload not to touch the general set")
	}

	// The replaced document's record and blob are both gone
	if _, err := f.documents.Get(ctx, first.ID); apperr.KindOf(err) != apperr.KindNotFound {
		t.Errorf("Expected replaced record deleted, got %v", err)
	}
	if f.uploadDirCount(t) != 1 {
		t.Errorf("Expected replaced blob deleted, found %d files", f.uploadDirCount(t))
	}
}

func TestPipelineAppendSetAccumulates(t *testing.T) {
	f := newPipelineFixture(t)
	contract := f.seedContract(t)

	for i := 0; i < 2; i++ {
		if _, err := f.upload(contract.ID, model.DocOther, fmt.Sprintf("doc%d.pdf", i), "application/pdf", []byte("x")); err != nil {
			t.Fatalf("Upload %d failed: %v", i, err)
		}
	}

	got, err := f.contracts.Get(context.Background(), contract.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(got.DocumentIDs) != 2 {
		t.Errorf("Expected 2 entries in general set, got %d", len(got.DocumentIDs))
	}
}

func TestPipelineResolveAuthorized(t *testing.T) {
	f := newPipelineFixture(t)
	contract := f.seedContract(t)
	ctx := context.Background()

	doc, err := f.upload(contract.ID, model.DocOther, "a.pdf", "application/pdf", []byte("x"))
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	if _, err := f.pipeline.ResolveAuthorized(ctx, "contractor-1", doc.ID); err != nil {
		t.Errorf("Expected contractor access, got %v", err)
	}
	if _, err := f.pipeline.ResolveAuthorized(ctx, "stranger", doc.ID); apperr.KindOf(err) != apperr.KindForbidden {
		t.Errorf("Expected Forbidden for stranger, got %v", err)
	}
	if _, err := f.pipeline.ResolveAuthorized(ctx, "client-1", "missing"); apperr.KindOf(err) != apperr.KindNotFound {
		t.Errorf("Expected NotFound, got %v", err)
	}
}

func TestPipelineVerify(t *testing.T) {
	f := newPipelineFixture(t)
	contract := f.seedContract(t)
	ctx := context.Background()

	doc, err := f.upload(contract.ID, model.DocDLFront, "front.png", "image/png", []byte("img"))
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	verified, err := f.pipeline.Verify(ctx, "contractor-1", doc.ID, true, "looks legitimate")
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if !verified.IsVerified || verified.VerificationNotes != "looks legitimate" {
		t.Errorf("Expected verification persisted, got %+v", verified)
	}

	got, err := f.documents.Get(ctx, doc.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !got.IsVerified {
		t.Error("Expected verification flag stored")
	}
}

func TestPipelineDeleteDocument(t *testing.T) {
	f := newPipelineFixture(t)
	contract := f.seedContract(t)
	ctx := context.Background()

	front, err := f.upload(contract.ID, model.DocDLFront, "front.png", "image/png", []byte("img"))
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	other, err := f.upload(contract.ID, model.DocOther, "a.pdf", "application/pdf", []byte("pdf"))
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	if err := f.pipeline.Delete(ctx, "stranger", front.ID); apperr.KindOf(err) != apperr.KindForbidden {
		t.Errorf("Expected Forbidden for stranger delete, got %v", err)
	}

	if err := f.pipeline.Delete(ctx, "client-1", front.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := f.pipeline.Delete(ctx, "client-1", other.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	got, err := f.contracts.Get(ctx, contract.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.DLFrontID != nil {
		t.Error("Expected dl-front slot cleared")
	}
	if len(got.DocumentIDs) != 0 {
		t.Errorf("Expected general set emptied, got %v", got.DocumentIDs)
	}
	if f.uploadDirCount(t) != 0 {
		t.Errorf("Expected all blobs removed, found %d", f.uploadDirCount(t))
	}
}

func TestPipelineDeleteContractCascades(t *testing.T) {
	f := newPipelineFixture(t)
	contract := f.seedContract(t)
	ctx := context.Background()

	front, err := f.upload(contract.ID, model.DocDLFront, "front.png", "image/png", []byte("img"))
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	invoice, err := f.upload(contract.ID, model.DocInvoice, "inv.pdf", "application/pdf", []byte("pdf"))
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	// Only the client may delete
	if err := f.pipeline.DeleteContract(ctx, "contractor-1", contract.ID); apperr.KindOf(err) != apperr.KindForbidden {
		t.Errorf("Expected Forbidden for contractor delete, got %v", err)
	}

	if err := f.pipeline.DeleteContract(ctx, "client-1", contract.ID); err != nil {
		t.Fatalf("DeleteContract failed: %v", err)
	}

	if _, err := f.contracts.Get(ctx, contract.ID); apperr.KindOf(err) != apperr.KindNotFound {
		t.Errorf("Expected contract gone, got %v", err)
	}
	for _, id := range []string{front.ID, invoice.ID} {
		if _, err := f.documents.Get(ctx, id); apperr.KindOf(err) != apperr.KindNotFound {
			t.Errorf("Expected document %s gone, got %v", id, err)
		}
	}
	if f.uploadDirCount(t) != 0 {
		t.Errorf("Expected all blobs removed by cascade, found %d", f.uploadDirCount(t))
	}
}

func TestAllowedMimeType(t *testing.T) {
	allowed := []string{"image/jpeg", "image/png", "image/gif", "application/pdf", "application/msword", "application/vnd.openxmlformats-officedocument.wordprocessingml.document"}
	for _, m := range allowed {
		if !allowedMimeType(m) {
			t.Errorf("Expected mime type %q to be allowed", m)
		}
	}

	denied := []string{"application/octet-stream", "text/html", "application/x-sh", ""}
	for _, m := range denied {
		if allowedMimeType(m) {
			t.Errorf("Expected mime type %q to be denied", m)
		}
	}
}
