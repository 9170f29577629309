package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/glowsenior/HIPAA-Contract-Site/model"
	"github.com/glowsenior/HIPAA-Contract-Site/pkg/apperr"
)

// DocumentStore owns document metadata persistence.
type DocumentStore struct {
	db *gorm.DB
}

func NewDocumentStore(db *gorm.DB) *DocumentStore {
	return &DocumentStore{db: db}
}

func (s *DocumentStore) Create(ctx context.Context, doc *model.Document) error {
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	return s.db.WithContext(ctx).Create(doc).Error
}

func (s *DocumentStore) Get(ctx context.Context, id string) (*model.Document, error) {
	var doc model.Document
	err := s.db.WithContext(ctx).First(&doc, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Document not found")
		}
		return nil, err
	}
	return &doc, nil
}

// ListByContract returns every document referencing contractID, oldest
// first.
func (s *DocumentStore) ListByContract(ctx context.Context, contractID string) ([]model.Document, error) {
	var docs []model.Document
	err := s.db.WithContext(ctx).
		Where("contract_id = ?", contractID).
		Order("created_at ASC").
		Find(&docs).Error
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// Update persists verification state changes.
func (s *DocumentStore) Update(ctx context.Context, doc *model.Document) error {
	return s.db.WithContext(ctx).Save(doc).Error
}

func (s *DocumentStore) Delete(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Delete(&model.Document{}, "id = ?", id).Error
}
