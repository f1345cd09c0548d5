package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ComputedMetric is one formula result for one raw record.
// Unique per (raw_data_id, formula_id, metric_name); recomputation updates in place.
type ComputedMetric struct {
	ID          int64           `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	RawDataID   int64           `gorm:"column:raw_data_id;not null;uniqueIndex:uk_computed_key" json:"raw_data_id"`
	FormulaID   int64           `gorm:"column:formula_id;not null;uniqueIndex:uk_computed_key" json:"formula_id"`
	MetricName  string          `gorm:"column:metric_name;type:varchar(255);not null;uniqueIndex:uk_computed_key" json:"metric_name"`
	MetricValue decimal.Decimal `gorm:"column:metric_value;type:decimal(20,6)" json:"metric_value"`
	ComputedAt  time.Time       `gorm:"column:computed_at;not null" json:"computed_at"`
}

// TableName returns the table name for ComputedMetric
func (ComputedMetric) TableName() string {
	return "computed_metrics"
}

// AggregatedMetric is one formula result for a (channel, time_unit, fetch_date) group.
// A nil channel means "all channels".
type AggregatedMetric struct {
	ID          int64           `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Channel     *string         `gorm:"column:channel;type:varchar(255);uniqueIndex:uk_aggregated_key" json:"channel"`
	TimeUnit    string          `gorm:"column:time_unit;type:varchar(50);uniqueIndex:uk_aggregated_key" json:"time_unit"`
	FetchDate   time.Time       `gorm:"column:fetch_date;type:date;not null;uniqueIndex:uk_aggregated_key" json:"fetch_date"`
	MetricName  string          `gorm:"column:metric_name;type:varchar(255);not null;uniqueIndex:uk_aggregated_key" json:"metric_name"`
	MetricValue decimal.Decimal `gorm:"column:metric_value;type:decimal(20,6)" json:"metric_value"`
	FormulaID   int64           `gorm:"column:formula_id;uniqueIndex:uk_aggregated_key" json:"formula_id"`
	ComputedAt  time.Time       `gorm:"column:computed_at;not null" json:"computed_at"`
}

// TableName returns the table name for AggregatedMetric
func (AggregatedMetric) TableName() string {
	return "aggregated_metrics"
}
