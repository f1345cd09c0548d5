package service

import (
	"context"
	"fmt"
	"time"

	"revshare/pkg/store/mysql"
	dbmodel "revshare/pkg/store/mysql/model"

	"github.com/shopspring/decimal"
)

// ShareService manages the per-slot revenue share configuration.
type ShareService struct {
	shares *mysql.RevenueShareRepository
}

// NewShareService creates a share service
func NewShareService(shares *mysql.RevenueShareRepository) *ShareService {
	return &ShareService{shares: shares}
}

// CreateShareInput carries a new share configuration row.
type CreateShareInput struct {
	Slot          string  `json:"slot" binding:"required"`
	SharePct      string  `json:"share_pct" binding:"required"`
	EffectiveFrom string  `json:"effective_from" binding:"required"`
	EffectiveTo   *string `json:"effective_to"`
}

// Create validates and stores a share configuration row.
func (s *ShareService) Create(ctx context.Context, in CreateShareInput) (*dbmodel.RevenueShare, error) {
	pct, err := decimal.NewFromString(in.SharePct)
	if err != nil {
		return nil, fmt.Errorf("invalid share_pct %q: %w", in.SharePct, err)
	}
	if pct.IsNegative() || pct.GreaterThan(decimal.NewFromInt(100)) {
		return nil, fmt.Errorf("share_pct must be between 0 and 100, got %s", pct)
	}

	from, err := time.Parse("2006-01-02", in.EffectiveFrom)
	if err != nil {
		return nil, fmt.Errorf("invalid effective_from %q: %w", in.EffectiveFrom, err)
	}

	share := &dbmodel.RevenueShare{
		Slot:          in.Slot,
		SharePct:      pct,
		EffectiveFrom: from,
	}
	if in.EffectiveTo != nil && *in.EffectiveTo != "" {
		to, err := time.Parse("2006-01-02", *in.EffectiveTo)
		if err != nil {
			return nil, fmt.Errorf("invalid effective_to %q: %w", *in.EffectiveTo, err)
		}
		if to.Before(from) {
			return nil, fmt.Errorf("effective_to precedes effective_from")
		}
		share.EffectiveTo = &to
	}

	if err := s.shares.Create(ctx, share); err != nil {
		return nil, err
	}
	return share, nil
}

// List returns share configuration rows, optionally for one slot.
func (s *ShareService) List(ctx context.Context, slot string) ([]*dbmodel.RevenueShare, error) {
	return s.shares.List(ctx, slot)
}

// Resolve returns the share effective for a slot and date, falling back
// to the default when no configuration covers it.
func (s *ShareService) Resolve(ctx context.Context, slot string, date time.Time) (decimal.Decimal, error) {
	pct, ok, err := s.shares.Lookup(ctx, slot, date)
	if err != nil {
		return decimal.Zero, err
	}
	if !ok {
		return decimal.RequireFromString("50.00"), nil
	}
	return pct, nil
}
