package mysql

import (
	"context"
	"fmt"
	"time"

	"revshare/pkg/store/mysql/model"

	"gorm.io/gorm/clause"
)

// MetricRepository handles computed and aggregated metrics in MySQL
type MetricRepository struct {
	ds *Datastore
}

// NewMetricRepository creates a new metric repository
func NewMetricRepository(ds *Datastore) *MetricRepository {
	return &MetricRepository{ds: ds}
}

// UpsertComputed writes one row-level metric keyed by
// (raw_data_id, formula_id, metric_name); recomputation updates in place.
func (r *MetricRepository) UpsertComputed(ctx context.Context, metric *model.ComputedMetric) error {
	err := r.ds.DB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "raw_data_id"}, {Name: "formula_id"}, {Name: "metric_name"}},
		DoUpdates: clause.AssignmentColumns([]string{"metric_value", "computed_at"}),
	}).Create(metric).Error
	if err != nil {
		return fmt.Errorf("failed to upsert computed metric %q: %w", metric.MetricName, err)
	}
	return nil
}

// UpsertAggregated writes one group-level metric keyed by
// (channel, time_unit, fetch_date, metric_name, formula_id).
func (r *MetricRepository) UpsertAggregated(ctx context.Context, metric *model.AggregatedMetric) error {
	err := r.ds.DB(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "channel"}, {Name: "time_unit"}, {Name: "fetch_date"},
			{Name: "metric_name"}, {Name: "formula_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"metric_value", "computed_at"}),
	}).Create(metric).Error
	if err != nil {
		return fmt.Errorf("failed to upsert aggregated metric %q: %w", metric.MetricName, err)
	}
	return nil
}

// ComputedMetricFilter narrows row-level metric queries
type ComputedMetricFilter struct {
	RawDataID  int64
	FormulaID  int64
	MetricName string
	Limit      int
	Offset     int
}

// ListComputed returns row-level metrics matching the filter
func (r *MetricRepository) ListComputed(ctx context.Context, filter ComputedMetricFilter) ([]*model.ComputedMetric, error) {
	query := r.ds.DB(ctx).Model(&model.ComputedMetric{})
	if filter.RawDataID > 0 {
		query = query.Where("raw_data_id = ?", filter.RawDataID)
	}
	if filter.FormulaID > 0 {
		query = query.Where("formula_id = ?", filter.FormulaID)
	}
	if filter.MetricName != "" {
		query = query.Where("metric_name = ?", filter.MetricName)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var metrics []*model.ComputedMetric
	if err := query.Order("id").Find(&metrics).Error; err != nil {
		return nil, fmt.Errorf("failed to list computed metrics: %w", err)
	}
	return metrics, nil
}

// AggregatedMetricFilter narrows group-level metric queries
type AggregatedMetricFilter struct {
	Channel    string
	TimeUnit   string
	FetchDate  *time.Time
	MetricName string
	Limit      int
	Offset     int
}

// ListAggregated returns group-level metrics matching the filter, newest first
func (r *MetricRepository) ListAggregated(ctx context.Context, filter AggregatedMetricFilter) ([]*model.AggregatedMetric, error) {
	query := r.ds.DB(ctx).Model(&model.AggregatedMetric{})
	if filter.Channel != "" {
		query = query.Where("channel = ?", filter.Channel)
	}
	if filter.TimeUnit != "" {
		query = query.Where("time_unit = ?", filter.TimeUnit)
	}
	if filter.FetchDate != nil {
		query = query.Where("fetch_date = ?", filter.FetchDate.Format(dateLayout))
	}
	if filter.MetricName != "" {
		query = query.Where("metric_name = ?", filter.MetricName)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var metrics []*model.AggregatedMetric
	if err := query.Order("fetch_date DESC, id").Find(&metrics).Error; err != nil {
		return nil, fmt.Errorf("failed to list aggregated metrics: %w", err)
	}
	return metrics, nil
}
