package service

import (
	"context"
	"time"

	"revshare/internal/collector"
	"revshare/internal/formula"
	"revshare/internal/model"
	"revshare/internal/normalize"
	"revshare/internal/processor"
	"revshare/pkg/logger"
	dbmodel "revshare/pkg/store/mysql/model"
)

// RunCoordinator guards the per-date lock around a cycle.
type RunCoordinator interface {
	Acquire(ctx context.Context, fetchDate time.Time) bool
	Release(ctx context.Context, fetchDate time.Time)
}

// RawWriter persists normalized raw rows.
type RawWriter interface {
	Upsert(ctx context.Context, row *dbmodel.RawRevenue) (bool, error)
}

// FetchLogWriter persists fetch cycle history.
type FetchLogWriter interface {
	Create(ctx context.Context, log *dbmodel.FetchLog) error
	Update(ctx context.Context, log *dbmodel.FetchLog) error
}

// FormulaComputer recomputes all active formulas.
type FormulaComputer interface {
	ComputeAllFormulas(ctx context.Context, computeForDate *time.Time) ([]formula.Result, error)
}

// SlotProcessor reduces raw rows into per-slot summaries.
type SlotProcessor interface {
	ProcessRevenueData(ctx context.Context, targetDate time.Time) (*processor.Summary, error)
}

// CollectorFactory builds a fresh authenticated session per cycle.
type CollectorFactory func() (collector.Collector, error)

// FetchService runs the full fetch-and-store cycle: lock, scrape, store
// raw rows, compute formulas, reduce slots, log the outcome.
type FetchService struct {
	coord        RunCoordinator
	raws         RawWriter
	fetchLogs    FetchLogWriter
	engine       FormulaComputer
	processor    SlotProcessor
	newCollector CollectorFactory
	now          func() time.Time
}

// NewFetchService creates a fetch service
func NewFetchService(coord RunCoordinator, raws RawWriter, fetchLogs FetchLogWriter,
	engine FormulaComputer, slots SlotProcessor, newCollector CollectorFactory) *FetchService {
	return &FetchService{
		coord:        coord,
		raws:         raws,
		fetchLogs:    fetchLogs,
		engine:       engine,
		processor:    slots,
		newCollector: newCollector,
		now:          time.Now,
	}
}

// DefaultFetchDate is yesterday in UTC, the dashboard's freshest full day.
func (s *FetchService) DefaultFetchDate() time.Time {
	y := s.now().UTC().AddDate(0, 0, -1)
	return time.Date(y.Year(), y.Month(), y.Day(), 0, 0, 0, 0, time.UTC)
}

// Run executes one cycle for targetDate. Every exit path releases the
// per-date lock and leaves a fetch log row behind.
func (s *FetchService) Run(ctx context.Context, targetDate time.Time, firstPageOnly bool) *model.CycleResult {
	dateText := targetDate.Format("2006-01-02")

	if !s.coord.Acquire(ctx, targetDate) {
		logger.Warnf("fetch cycle: %s already running elsewhere, skipping", dateText)
		return &model.CycleResult{
			Status:    model.CycleStatusSkipped,
			Reason:    "another run holds the date lock",
			FetchDate: dateText,
		}
	}
	defer s.coord.Release(ctx, targetDate)

	fetchLog := &dbmodel.FetchLog{
		FetchDate: targetDate,
		Status:    dbmodel.FetchStatusStarted,
		StartedAt: s.now(),
	}
	if err := s.fetchLogs.Create(ctx, fetchLog); err != nil {
		logger.Errorf("fetch cycle: failed to create fetch log: %v", err)
		return &model.CycleResult{Status: model.CycleStatusFailed, Error: err.Error(), FetchDate: dateText}
	}

	logger.Infof("fetch cycle: starting for %s", dateText)

	col, err := s.newCollector()
	if err != nil {
		return s.fail(ctx, fetchLog, dateText, "collector setup failed: "+err.Error())
	}
	if err := col.Login(ctx); err != nil {
		return s.fail(ctx, fetchLog, dateText, "login failed: "+err.Error())
	}

	rows, err := col.Collect(ctx, targetDate, firstPageOnly)
	if err != nil {
		return s.fail(ctx, fetchLog, dateText, "fetch failed: "+err.Error())
	}
	if len(rows) == 0 {
		return s.fail(ctx, fetchLog, dateText, "no data fetched")
	}
	logger.Infof("fetch cycle: fetched %d rows for %s", len(rows), dateText)

	created, updated := 0, 0
	for _, row := range rows {
		rec := normalize.FromRow(row)
		raw := &dbmodel.RawRevenue{
			Channel:         rec.Channel,
			Slot:            rec.Slot,
			TimeUnit:        rec.TimeUnit,
			TotalPlayerImpr: rec.TotalPlayerImpr,
			TotalAdImpr:     rec.TotalAdImpr,
			RPM:             rec.RPM,
			GrossRevenueUSD: rec.GrossRevenueUSD,
			NetRevenueUSD:   rec.NetRevenueUSD,
			FetchDate:       targetDate,
			FetchedAt:       s.now(),
		}
		wasCreated, err := s.raws.Upsert(ctx, raw)
		if err != nil {
			return s.fail(ctx, fetchLog, dateText, "store failed: "+err.Error())
		}
		if wasCreated {
			created++
		} else {
			updated++
		}
	}
	logger.Infof("fetch cycle: stored %d created, %d updated", created, updated)

	if _, err := s.engine.ComputeAllFormulas(ctx, &targetDate); err != nil {
		return s.fail(ctx, fetchLog, dateText, "formula computation failed: "+err.Error())
	}

	// Slot reduction failure degrades the dashboard but not the cycle.
	if _, err := s.processor.ProcessRevenueData(ctx, targetDate); err != nil {
		logger.Warnf("fetch cycle: slot reduction failed, dashboard may lag: %v", err)
	}

	now := s.now()
	fetchLog.Status = dbmodel.FetchStatusSuccess
	fetchLog.RecordsFetched = created + updated
	fetchLog.RecordsCreated = created
	fetchLog.RecordsUpdated = updated
	fetchLog.PagesFetched = pagesEstimate(len(rows), firstPageOnly)
	fetchLog.CompletedAt = &now
	fetchLog.DurationSeconds = int(now.Sub(fetchLog.StartedAt).Seconds())
	if err := s.fetchLogs.Update(ctx, fetchLog); err != nil {
		logger.Errorf("fetch cycle: failed to finalize fetch log: %v", err)
	}

	logger.Infof("fetch cycle: %s completed in %ds", dateText, fetchLog.DurationSeconds)
	return &model.CycleResult{
		Status:         model.CycleStatusSuccess,
		FetchDate:      dateText,
		RecordsCreated: created,
		RecordsUpdated: updated,
		TotalRecords:   created + updated,
	}
}

// pagesEstimate approximates page count from the 100-row page size; the
// paginated scrape path does not report the real number.
func pagesEstimate(records int, firstPageOnly bool) int {
	if firstPageOnly {
		return 1
	}
	return records / 100
}

func (s *FetchService) fail(ctx context.Context, fetchLog *dbmodel.FetchLog, dateText, message string) *model.CycleResult {
	logger.Errorf("fetch cycle: %s failed: %s", dateText, message)

	now := s.now()
	fetchLog.Status = dbmodel.FetchStatusFailed
	fetchLog.ErrorMessage = message
	fetchLog.CompletedAt = &now
	fetchLog.DurationSeconds = int(now.Sub(fetchLog.StartedAt).Seconds())
	if err := s.fetchLogs.Update(ctx, fetchLog); err != nil {
		logger.Errorf("fetch cycle: failed to record failure: %v", err)
	}

	return &model.CycleResult{
		Status:    model.CycleStatusFailed,
		Error:     message,
		FetchDate: dateText,
	}
}
