package mysql

import (
	"context"
	"errors"
	"fmt"

	"revshare/pkg/store/mysql/model"

	"gorm.io/gorm"
)

// ErrNotFound signals a missing row to callers that need to distinguish
// absence from a store failure.
var ErrNotFound = gorm.ErrRecordNotFound

// FormulaRepository handles formula definitions in MySQL
type FormulaRepository struct {
	ds *Datastore
}

// NewFormulaRepository creates a new formula repository
func NewFormulaRepository(ds *Datastore) *FormulaRepository {
	return &FormulaRepository{ds: ds}
}

// Create inserts a new formula; name must be globally unique
func (r *FormulaRepository) Create(ctx context.Context, formula *model.Formula) error {
	if err := r.ds.DB(ctx).Create(formula).Error; err != nil {
		return fmt.Errorf("failed to create formula %q: %w", formula.Name, err)
	}
	return nil
}

// GetByID returns one formula or ErrNotFound
func (r *FormulaRepository) GetByID(ctx context.Context, id int64) (*model.Formula, error) {
	var formula model.Formula
	err := r.ds.DB(ctx).First(&formula, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get formula %d: %w", id, err)
	}
	return &formula, nil
}

// GetByName returns one formula by its unique name or ErrNotFound
func (r *FormulaRepository) GetByName(ctx context.Context, name string) (*model.Formula, error) {
	var formula model.Formula
	err := r.ds.DB(ctx).Where("name = ?", name).First(&formula).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get formula %q: %w", name, err)
	}
	return &formula, nil
}

// List returns formulas, optionally filtered by active flag
func (r *FormulaRepository) List(ctx context.Context, isActive *bool) ([]*model.Formula, error) {
	query := r.ds.DB(ctx).Model(&model.Formula{})
	if isActive != nil {
		query = query.Where("is_active = ?", *isActive)
	}

	var formulas []*model.Formula
	if err := query.Order("id").Find(&formulas).Error; err != nil {
		return nil, fmt.Errorf("failed to list formulas: %w", err)
	}
	return formulas, nil
}

// ListActive returns all active formulas
func (r *FormulaRepository) ListActive(ctx context.Context) ([]*model.Formula, error) {
	active := true
	return r.List(ctx, &active)
}

// Update persists edits to an existing formula
func (r *FormulaRepository) Update(ctx context.Context, formula *model.Formula) error {
	if err := r.ds.DB(ctx).Save(formula).Error; err != nil {
		return fmt.Errorf("failed to update formula %d: %w", formula.ID, err)
	}
	return nil
}

// Deactivate soft-deletes a formula; rows are never hard-deleted
func (r *FormulaRepository) Deactivate(ctx context.Context, id int64) error {
	result := r.ds.DB(ctx).Model(&model.Formula{}).
		Where("id = ?", id).
		Update("is_active", false)
	if result.Error != nil {
		return fmt.Errorf("failed to deactivate formula %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
