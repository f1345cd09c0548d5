package mysql

import (
	"context"
	"fmt"
	"time"

	"revshare/pkg/store/mysql/model"
)

// FetchLogRepository handles fetch cycle history in MySQL
type FetchLogRepository struct {
	ds *Datastore
}

// NewFetchLogRepository creates a new fetch log repository
func NewFetchLogRepository(ds *Datastore) *FetchLogRepository {
	return &FetchLogRepository{ds: ds}
}

// Create inserts a new fetch log row
func (r *FetchLogRepository) Create(ctx context.Context, log *model.FetchLog) error {
	if err := r.ds.DB(ctx).Create(log).Error; err != nil {
		return fmt.Errorf("failed to create fetch log: %w", err)
	}
	return nil
}

// Update persists changes to an existing fetch log row
func (r *FetchLogRepository) Update(ctx context.Context, log *model.FetchLog) error {
	if err := r.ds.DB(ctx).Save(log).Error; err != nil {
		return fmt.Errorf("failed to update fetch log %d: %w", log.ID, err)
	}
	return nil
}

// FetchLogFilter narrows fetch log queries
type FetchLogFilter struct {
	FetchDate *time.Time
	Status    model.FetchLogStatus
	Limit     int
}

// List returns fetch logs matching the filter, most recent first
func (r *FetchLogRepository) List(ctx context.Context, filter FetchLogFilter) ([]*model.FetchLog, error) {
	query := r.ds.DB(ctx).Model(&model.FetchLog{})
	if filter.FetchDate != nil {
		query = query.Where("fetch_date = ?", filter.FetchDate.Format(dateLayout))
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	var logs []*model.FetchLog
	if err := query.Order("started_at DESC").Limit(limit).Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("failed to list fetch logs: %w", err)
	}
	return logs, nil
}
