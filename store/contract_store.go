package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/glowsenior/HIPAA-Contract-Site/model"
	"github.com/glowsenior/HIPAA-Contract-Site/pkg/apperr"
)

// ContractStore owns contract persistence. Updates are guarded by an
// optimistic version counter so concurrent writers fail fast instead of
// silently losing data.
type ContractStore struct {
	db *gorm.DB
}

func NewContractStore(db *gorm.DB) *ContractStore {
	return &ContractStore{db: db}
}

// Create persists a new contract. ID, version and timestamps are assigned
// here; validation is the caller's job.
func (s *ContractStore) Create(ctx context.Context, contract *model.Contract) error {
	if contract.ID == "" {
		contract.ID = uuid.New().String()
	}
	contract.Version = 1
	if err := s.db.WithContext(ctx).Omit("Client", "Contractor").Create(contract).Error; err != nil {
		return err
	}
	return nil
}

// Get loads one contract with its client and contractor resolved.
func (s *ContractStore) Get(ctx context.Context, id string) (*model.Contract, error) {
	var contract model.Contract
	err := s.db.WithContext(ctx).
		Preload("Client").
		Preload("Contractor").
		First(&contract, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Contract not found")
		}
		return nil, err
	}
	return &contract, nil
}

// GetResolved loads one contract with client, contractor and every
// document reference resolved, including the dl-front/dl-back slots.
func (s *ContractStore) GetResolved(ctx context.Context, id string) (*model.Contract, error) {
	contract, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	var docs []model.Document
	if err := s.db.WithContext(ctx).
		Where("contract_id = ?", id).
		Order("created_at ASC").
		Find(&docs).Error; err != nil {
		return nil, err
	}

	for i := range docs {
		doc := docs[i]
		switch {
		case contract.DLFrontID != nil && *contract.DLFrontID == doc.ID:
			contract.DLFront = &docs[i]
		case contract.DLBackID != nil && *contract.DLBackID == doc.ID:
			contract.DLBack = &docs[i]
		default:
			contract.Documents = append(contract.Documents, doc)
		}
	}
	return contract, nil
}

// ListByParticipant returns the page of contracts where userID is client
// or contractor, newest first, optionally filtered by status, along with
// the total match count.
func (s *ContractStore) ListByParticipant(ctx context.Context, userID string, status string, page, limit int) ([]model.Contract, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	base := s.db.WithContext(ctx).Model(&model.Contract{}).
		Where("client_id = ? OR contractor_id = ?", userID, userID)
	if status != "" {
		base = base.Where("status = ?", status)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var contracts []model.Contract
	err := base.Session(&gorm.Session{}).
		Preload("Client").
		Preload("Contractor").
		Order("created_at DESC").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&contracts).Error
	if err != nil {
		return nil, 0, err
	}
	return contracts, total, nil
}

// Update writes the full contract row if its version still matches the
// value it was read at, then bumps the version. A stale write returns
// Conflict; a vanished row returns NotFound.
func (s *ContractStore) Update(ctx context.Context, contract *model.Contract) error {
	contract.Client = nil
	contract.Contractor = nil

	readVersion := contract.Version
	contract.Version = readVersion + 1
	contract.UpdatedAt = time.Now()

	res := s.db.WithContext(ctx).
		Model(&model.Contract{}).
		Where("id = ? AND version = ?", contract.ID, readVersion).
		Select("*").
		Omit("created_at").
		Updates(contract)
	if res.Error != nil {
		contract.Version = readVersion
		return res.Error
	}
	if res.RowsAffected == 0 {
		contract.Version = readVersion
		var count int64
		if err := s.db.WithContext(ctx).Model(&model.Contract{}).
			Where("id = ?", contract.ID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return apperr.NotFound("Contract not found")
		}
		return apperr.Conflict("Contract was modified by another request")
	}
	return nil
}

// Delete removes the contract row. Cascading document cleanup is the
// pipeline's responsibility.
func (s *ContractStore) Delete(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&model.Contract{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("Contract not found")
	}
	return nil
}
