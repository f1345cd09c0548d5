package service

import (
	"context"

	"revshare/pkg/store/mysql"
	dbmodel "revshare/pkg/store/mysql/model"

	"github.com/shopspring/decimal"
)

// ProcessedView is one processed summary row shaped for the read API.
// Admins see the raw and post-share columns side by side; non-admin
// callers get the post-share values promoted into the primary fields,
// the fetch date standing in for time_unit, and no "_2" columns at all.
type ProcessedView struct {
	ID               int64            `json:"id"`
	Slot             string           `json:"slot"`
	TimeUnit         string           `json:"time_unit"`
	TotalPlayerImpr  decimal.Decimal  `json:"total_player_impr"`
	Revenue          decimal.Decimal  `json:"revenue"`
	RPM              decimal.Decimal  `json:"rpm"`
	TotalPlayerImpr2 *decimal.Decimal `json:"total_player_impr_2,omitempty"`
	Revenue2         *decimal.Decimal `json:"revenue_2,omitempty"`
	RPM2             *decimal.Decimal `json:"rpm_2,omitempty"`
	FetchDate        string           `json:"fetch_date,omitempty"`
}

// DataService serves the read API over the stored pipeline outputs.
type DataService struct {
	repo *mysql.Repository
}

// NewDataService creates a data service
func NewDataService(repo *mysql.Repository) *DataService {
	return &DataService{repo: repo}
}

// ListProcessed returns processed summaries shaped per the caller's role.
func (s *DataService) ListProcessed(ctx context.Context, filter mysql.ProcessedRevenueFilter, isAdmin bool) ([]ProcessedView, error) {
	rows, err := s.repo.ProcessedRevenue.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	out := make([]ProcessedView, 0, len(rows))
	for _, r := range rows {
		if isAdmin {
			impr2, rev2, rpm2 := r.TotalPlayerImpr2, r.Revenue2, r.RPM2
			out = append(out, ProcessedView{
				ID:               r.ID,
				Slot:             r.Slot,
				TimeUnit:         r.TimeUnit,
				TotalPlayerImpr:  r.TotalPlayerImpr,
				Revenue:          r.Revenue,
				RPM:              r.RPM,
				TotalPlayerImpr2: &impr2,
				Revenue2:         &rev2,
				RPM2:             &rpm2,
				FetchDate:        r.FetchDate.Format("2006-01-02"),
			})
			continue
		}
		out = append(out, ProcessedView{
			ID:              r.ID,
			Slot:            r.Slot,
			TimeUnit:        r.FetchDate.Format("2006-01-02"),
			TotalPlayerImpr: r.TotalPlayerImpr2,
			Revenue:         r.Revenue2,
			RPM:             r.RPM2,
		})
	}
	return out, nil
}

// ListRaw returns raw scraped rows. Admin-only; enforced at the router.
func (s *DataService) ListRaw(ctx context.Context, filter mysql.RawRevenueFilter) ([]*dbmodel.RawRevenue, error) {
	return s.repo.RawRevenue.List(ctx, filter)
}

// ListComputed returns row-level metric values.
func (s *DataService) ListComputed(ctx context.Context, filter mysql.ComputedMetricFilter) ([]*dbmodel.ComputedMetric, error) {
	return s.repo.Metric.ListComputed(ctx, filter)
}

// ListAggregated returns aggregated metric values.
func (s *DataService) ListAggregated(ctx context.Context, filter mysql.AggregatedMetricFilter) ([]*dbmodel.AggregatedMetric, error) {
	return s.repo.Metric.ListAggregated(ctx, filter)
}

// ListFetchLogs returns fetch cycle history.
func (s *DataService) ListFetchLogs(ctx context.Context, filter mysql.FetchLogFilter) ([]*dbmodel.FetchLog, error) {
	return s.repo.FetchLog.List(ctx, filter)
}
