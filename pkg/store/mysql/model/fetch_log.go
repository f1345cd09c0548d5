package model

import "time"

// FetchLogStatus fetch cycle status
type FetchLogStatus string

const (
	FetchStatusStarted FetchLogStatus = "started"
	FetchStatusSuccess FetchLogStatus = "success"
	FetchStatusFailed  FetchLogStatus = "failed"
)

// FetchLog is one row per fetch cycle.
// PagesFetched is a known-approximate records/100 estimate when the full
// pagination path runs.
type FetchLog struct {
	ID              int64          `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	FetchDate       time.Time      `gorm:"column:fetch_date;type:date;not null;index:idx_fetch_log_date" json:"fetch_date"`
	Status          FetchLogStatus `gorm:"column:status;type:varchar(50);not null" json:"status"`
	RecordsFetched  int            `gorm:"column:records_fetched;not null;default:0" json:"records_fetched"`
	RecordsCreated  int            `gorm:"column:records_created;not null;default:0" json:"records_created"`
	RecordsUpdated  int            `gorm:"column:records_updated;not null;default:0" json:"records_updated"`
	PagesFetched    int            `gorm:"column:pages_fetched;not null;default:0" json:"pages_fetched"`
	ErrorMessage    string         `gorm:"column:error_message;type:text" json:"error_message,omitempty"`
	StartedAt       time.Time      `gorm:"column:started_at;not null" json:"started_at"`
	CompletedAt     *time.Time     `gorm:"column:completed_at" json:"completed_at,omitempty"`
	DurationSeconds int            `gorm:"column:duration_seconds;not null;default:0" json:"duration_seconds"`
}

// TableName returns the table name for FetchLog
func (FetchLog) TableName() string {
	return "fetch_logs"
}
