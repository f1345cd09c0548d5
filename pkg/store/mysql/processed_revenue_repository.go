package mysql

import (
	"context"
	"fmt"
	"time"

	"revshare/pkg/store/mysql/model"

	"gorm.io/gorm/clause"
)

// ProcessedRevenueRepository handles per-slot daily summaries in MySQL
type ProcessedRevenueRepository struct {
	ds *Datastore
}

// NewProcessedRevenueRepository creates a new processed revenue repository
func NewProcessedRevenueRepository(ds *Datastore) *ProcessedRevenueRepository {
	return &ProcessedRevenueRepository{ds: ds}
}

// Upsert writes one summary keyed by (slot, time_unit, fetch_date);
// reprocessing updates all numeric fields in place.
func (r *ProcessedRevenueRepository) Upsert(ctx context.Context, row *model.ProcessedRevenue) error {
	err := r.ds.DB(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "slot"}, {Name: "time_unit"}, {Name: "fetch_date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"total_player_impr", "revenue", "rpm", "share",
			"total_player_impr_2", "revenue_2", "rpm_2", "processed_at",
		}),
	}).Create(row).Error
	if err != nil {
		return fmt.Errorf("failed to upsert processed revenue for slot %q: %w", row.Slot, err)
	}
	return nil
}

// ProcessedRevenueFilter narrows summary queries
type ProcessedRevenueFilter struct {
	FetchDate *time.Time
	FromDate  *time.Time
	ToDate    *time.Time
	Slot      string
	Limit     int
	Offset    int
}

// List returns summaries matching the filter, newest date first then slot
func (r *ProcessedRevenueRepository) List(ctx context.Context, filter ProcessedRevenueFilter) ([]*model.ProcessedRevenue, error) {
	query := r.ds.DB(ctx).Model(&model.ProcessedRevenue{})

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
	if filter.Slot != "" {
		query = query.Where("slot = ?", filter.Slot)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var rows []*model.ProcessedRevenue
	if err := query.Order("fetch_date DESC, slot").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list processed revenue: %w", err)
	}
	return rows, nil
}
