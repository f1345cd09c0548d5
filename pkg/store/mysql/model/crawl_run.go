package model

import "time"

// CrawlRunStatus run lock status
type CrawlRunStatus string

const (
	RunStatusRunning   CrawlRunStatus = "running"
	RunStatusCompleted CrawlRunStatus = "completed"
	RunStatusFailed    CrawlRunStatus = "failed"
)

// CrawlRun is the per-date run lock row. At most one row exists per
// fetch_date; completed/failed rows are reused by later runs.
type CrawlRun struct {
	ID          int64          `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	FetchDate   time.Time      `gorm:"column:fetch_date;type:date;not null;uniqueIndex:uk_crawl_run_date" json:"fetch_date"`
	Status      CrawlRunStatus `gorm:"column:status;type:varchar(50);not null" json:"status"`
	PID         int            `gorm:"column:pid" json:"pid"`
	StartedAt   time.Time      `gorm:"column:started_at;not null" json:"started_at"`
	CompletedAt *time.Time     `gorm:"column:completed_at" json:"completed_at,omitempty"`
}

// TableName returns the table name for CrawlRun
func (CrawlRun) TableName() string {
	return "crawl_runs"
}
