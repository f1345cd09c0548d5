package model

// Fetch cycle outcome statuses.
const (
	CycleStatusSuccess = "success"
	CycleStatusSkipped = "skipped"
	CycleStatusFailed  = "failed"
)

// CycleResult is the outcome of one fetch-and-store cycle.
type CycleResult struct {
	Status         string `json:"status"`
	Reason         string `json:"reason,omitempty"`
	Error          string `json:"error,omitempty"`
	FetchDate      string `json:"fetch_date,omitempty"`
	RecordsCreated int    `json:"records_created,omitempty"`
	RecordsUpdated int    `json:"records_updated,omitempty"`
	TotalRecords   int    `json:"total_records,omitempty"`
}
