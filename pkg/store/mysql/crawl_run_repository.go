package mysql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"revshare/pkg/store/mysql/model"

	"gorm.io/gorm"
)

// CrawlRunRepository handles the per-date run lock table in MySQL.
// Lock semantics (liveness probe, stale reclaim) live in the coordinator;
// this layer only reads and writes rows.
type CrawlRunRepository struct {
	ds *Datastore
}

// NewCrawlRunRepository creates a new crawl run repository
func NewCrawlRunRepository(ds *Datastore) *CrawlRunRepository {
	return &CrawlRunRepository{ds: ds}
}

// GetByDate returns the lock row for a fetch date, or nil when absent
func (r *CrawlRunRepository) GetByDate(ctx context.Context, fetchDate time.Time) (*model.CrawlRun, error) {
	var run model.CrawlRun
	err := r.ds.DB(ctx).
		Where("fetch_date = ?", fetchDate.Format(dateLayout)).
		First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get crawl run for %s: %w", fetchDate.Format(dateLayout), err)
	}
	return &run, nil
}

// Create inserts a new lock row
func (r *CrawlRunRepository) Create(ctx context.Context, run *model.CrawlRun) error {
	if err := r.ds.DB(ctx).Create(run).Error; err != nil {
		return fmt.Errorf("failed to create crawl run: %w", err)
	}
	return nil
}

// Update persists changes to an existing lock row
func (r *CrawlRunRepository) Update(ctx context.Context, run *model.CrawlRun) error {
	if err := r.ds.DB(ctx).Save(run).Error; err != nil {
		return fmt.Errorf("failed to update crawl run %d: %w", run.ID, err)
	}
	return nil
}

// GetRunning returns the running lock row for a date, or nil when none
func (r *CrawlRunRepository) GetRunning(ctx context.Context, fetchDate time.Time) (*model.CrawlRun, error) {
	var run model.CrawlRun
	err := r.ds.DB(ctx).
		Where("fetch_date = ? AND status = ?", fetchDate.Format(dateLayout), model.RunStatusRunning).
		First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get running crawl run for %s: %w", fetchDate.Format(dateLayout), err)
	}
	return &run, nil
}
