package mysql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"revshare/pkg/store/mysql/model"

	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

// RawRevenueRepository handles raw scraped rows in MySQL
type RawRevenueRepository struct {
	ds *Datastore
}

// NewRawRevenueRepository creates a new raw revenue repository
func NewRawRevenueRepository(ds *Datastore) *RawRevenueRepository {
	return &RawRevenueRepository{ds: ds}
}

// RawRevenueFilter narrows raw data queries
type RawRevenueFilter struct {
	FetchDate *time.Time
	FromDate  *time.Time
	ToDate    *time.Time
	Channel   string
	TimeUnit  string
	Limit     int
	Offset    int
}

// RawGroup is one distinct (channel, time_unit, fetch_date) triple
type RawGroup struct {
	Channel   string
	TimeUnit  string
	FetchDate time.Time
}

// Upsert writes one row keyed by (channel, slot, time_unit, fetch_date).
// Re-fetching the same key overwrites the numeric fields (last-write-wins).
// Returns true when a new row was created.
func (r *RawRevenueRepository) Upsert(ctx context.Context, row *model.RawRevenue) (bool, error) {
	var existing model.RawRevenue
	err := r.ds.DB(ctx).
		Where("channel = ? AND slot = ? AND time_unit = ? AND fetch_date = ?",
			row.Channel, row.Slot, row.TimeUnit, row.FetchDate.Format(dateLayout)).
		First(&existing).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		if err := r.ds.DB(ctx).Create(row).Error; err != nil {
			return false, fmt.Errorf("failed to create raw revenue row: %w", err)
		}
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up raw revenue row: %w", err)
	}

	updates := map[string]interface{}{
		"total_player_impr": row.TotalPlayerImpr,
		"total_ad_impr":     row.TotalAdImpr,
		"rpm":               row.RPM,
		"gross_revenue_usd": row.GrossRevenueUSD,
		"net_revenue_usd":   row.NetRevenueUSD,
		"fetched_at":        row.FetchedAt,
	}
	if err := r.ds.DB(ctx).Model(&model.RawRevenue{}).
		Where("id = ?", existing.ID).
		Updates(updates).Error; err != nil {
		return false, fmt.Errorf("failed to update raw revenue row: %w", err)
	}
	row.ID = existing.ID
	return false, nil
}

// List returns raw rows matching the filter, newest fetch_date first
func (r *RawRevenueRepository) List(ctx context.Context, filter RawRevenueFilter) ([]*model.RawRevenue, error) {
	query := r.ds.DB(ctx).Model(&model.RawRevenue{})

	if filter.FetchDate != nil {
		query = query.Where("fetch_date = ?", filter.FetchDate.Format(dateLayout))
	} else {
		if filter.FromDate != nil {
			query = query.Where("fetch_date >= ?", filter.FromDate.Format(dateLayout))
		}
		if filter.ToDate != nil {
			query = query.Where("fetch_date <= ?", filter.ToDate.Format(dateLayout))
		}
	}
	if filter.Channel != "" {
		query = query.Where("channel = ?", filter.Channel)
	}
	if filter.TimeUnit != "" {
		query = query.Where("time_unit = ?", filter.TimeUnit)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var rows []*model.RawRevenue
	if err := query.Order("fetch_date DESC, id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list raw revenue rows: %w", err)
	}
	return rows, nil
}

// ListByDate returns all raw rows for one fetch date
func (r *RawRevenueRepository) ListByDate(ctx context.Context, fetchDate time.Time) ([]*model.RawRevenue, error) {
	var rows []*model.RawRevenue
	err := r.ds.DB(ctx).
		Where("fetch_date = ?", fetchDate.Format(dateLayout)).
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list raw revenue rows for %s: %w", fetchDate.Format(dateLayout), err)
	}
	return rows, nil
}

// DistinctGroups returns the distinct (channel, time_unit, fetch_date)
// triples present in the raw store, optionally restricted to one date.
func (r *RawRevenueRepository) DistinctGroups(ctx context.Context, fetchDate *time.Time) ([]RawGroup, error) {
	query := r.ds.DB(ctx).Model(&model.RawRevenue{}).
		Select("DISTINCT channel, time_unit, fetch_date")
	if fetchDate != nil {
		query = query.Where("fetch_date = ?", fetchDate.Format(dateLayout))
	}

	var groups []RawGroup
	if err := query.Scan(&groups).Error; err != nil {
		return nil, fmt.Errorf("failed to list raw groups: %w", err)
	}
	return groups, nil
}
