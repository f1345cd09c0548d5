package mysql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"revshare/pkg/store/mysql/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RevenueShareRepository handles the share configuration table in MySQL
type RevenueShareRepository struct {
	ds *Datastore
}

// NewRevenueShareRepository creates a new revenue share repository
func NewRevenueShareRepository(ds *Datastore) *RevenueShareRepository {
	return &RevenueShareRepository{ds: ds}
}

// Lookup returns the share percentage configured for (slot, date).
// The most recently effective covering row wins. ok is false when no row
// covers the date; callers apply the 50.00 default.
func (r *RevenueShareRepository) Lookup(ctx context.Context, slot string, date time.Time) (decimal.Decimal, bool, error) {
	var share model.RevenueShare
	d := date.Format(dateLayout)
	err := r.ds.DB(ctx).
		Where("slot = ? AND effective_from <= ? AND (effective_to IS NULL OR effective_to >= ?)", slot, d, d).
		Order("effective_from DESC").
		First(&share).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("failed to look up share for slot %q: %w", slot, err)
	}
	return share.SharePct, true, nil
}

// Create inserts a new share configuration row
func (r *RevenueShareRepository) Create(ctx context.Context, share *model.RevenueShare) error {
	if err := r.ds.DB(ctx).Create(share).Error; err != nil {
		return fmt.Errorf("failed to create revenue share for slot %q: %w", share.Slot, err)
	}
	return nil
}

// List returns share configuration rows, optionally for one slot
func (r *RevenueShareRepository) List(ctx context.Context, slot string) ([]*model.RevenueShare, error) {
	query := r.ds.DB(ctx).Model(&model.RevenueShare{})
	if slot != "" {
		query = query.Where("slot = ?", slot)
	}

	var shares []*model.RevenueShare
	if err := query.Order("slot, effective_from DESC").Find(&shares).Error; err != nil {
		return nil, fmt.Errorf("failed to list revenue shares: %w", err)
	}
	return shares, nil
}
