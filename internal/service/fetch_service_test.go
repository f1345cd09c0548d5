package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"revshare/internal/collector"
	"revshare/internal/formula"
	"revshare/internal/model"
	"revshare/internal/processor"
	dbmodel "revshare/pkg/store/mysql/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCoordinator struct {
	acquireResult bool
	acquired      int
	released      int
}

func (f *fakeCoordinator) Acquire(ctx context.Context, fetchDate time.Time) bool {
	f.acquired++
	return f.acquireResult
}

func (f *fakeCoordinator) Release(ctx context.Context, fetchDate time.Time) {
	f.released++
}

type fakeRawWriter struct {
	rows      []*dbmodel.RawRevenue
	created   map[string]bool
	upsertErr error
}

func (f *fakeRawWriter) Upsert(ctx context.Context, row *dbmodel.RawRevenue) (bool, error) {
	if f.upsertErr != nil {
		return false, f.upsertErr
	}
	f.rows = append(f.rows, row)
	if f.created == nil {
		return true, nil
	}
	return f.created[row.Slot], nil
}

type fakeFetchLogWriter struct {
	logs      []*dbmodel.FetchLog
	createErr error
}

func (f *fakeFetchLogWriter) Create(ctx context.Context, log *dbmodel.FetchLog) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.logs = append(f.logs, log)
	return nil
}

func (f *fakeFetchLogWriter) Update(ctx context.Context, log *dbmodel.FetchLog) error {
	return nil
}

type fakeFormulaComputer struct {
	calls int
	err   error
}

func (f *fakeFormulaComputer) ComputeAllFormulas(ctx context.Context, computeForDate *time.Time) ([]formula.Result, error) {
	f.calls++
	return nil, f.err
}

type fakeSlotProcessor struct {
	calls int
	err   error
}

func (f *fakeSlotProcessor) ProcessRevenueData(ctx context.Context, targetDate time.Time) (*processor.Summary, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &processor.Summary{Status: processor.StatusSuccess}, nil
}

type fakeCollector struct {
	loginErr   error
	rows       []map[string]string
	collectErr error
}

func (f *fakeCollector) Login(ctx context.Context) error { return f.loginErr }

func (f *fakeCollector) Collect(ctx context.Context, date time.Time, firstPageOnly bool) ([]map[string]string, error) {
	if f.collectErr != nil {
		return nil, f.collectErr
	}
	return f.rows, nil
}

type fetchFixture struct {
	coord     *fakeCoordinator
	raws      *fakeRawWriter
	fetchLogs *fakeFetchLogWriter
	engine    *fakeFormulaComputer
	slots     *fakeSlotProcessor
	collector *fakeCollector
	svc       *FetchService
}

func newFetchFixture() *fetchFixture {
	fx := &fetchFixture{
		coord:     &fakeCoordinator{acquireResult: true},
		raws:      &fakeRawWriter{},
		fetchLogs: &fakeFetchLogWriter{},
		engine:    &fakeFormulaComputer{},
		slots:     &fakeSlotProcessor{},
		collector: &fakeCollector{},
	}
	fx.svc = NewFetchService(fx.coord, fx.raws, fx.fetchLogs, fx.engine, fx.slots,
		func() (collector.Collector, error) { return fx.collector, nil })
	fx.svc.now = func() time.Time { return time.Date(2025, 1, 3, 2, 0, 0, 0, time.UTC) }
	return fx
}

func scrapedRow(slot string) map[string]string {
	return map[string]string{
		"Channel":             "ch1",
		"Slot":                slot,
		"Time Unit":           "2025-01-01",
		"Total Player Impr":   "1,000",
		"Net Revenue (USD)":   "10.00",
		"Gross Revenue (USD)": "12.00",
	}
}

func cycleDate(t *testing.T) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", "2025-01-02")
	require.NoError(t, err)
	return d
}

func TestRunSkippedWhenLockHeld(t *testing.T) {
	fx := newFetchFixture()
	fx.coord.acquireResult = false

	result := fx.svc.Run(context.Background(), cycleDate(t), false)

	assert.Equal(t, model.CycleStatusSkipped, result.Status)
	assert.Equal(t, "another run holds the date lock", result.Reason)
	assert.Equal(t, 0, fx.coord.released, "a refused acquire must not be released")
	assert.Empty(t, fx.fetchLogs.logs)
}

func TestRunLoginFailure(t *testing.T) {
	fx := newFetchFixture()
	fx.collector.loginErr = errors.New("bad credentials")

	result := fx.svc.Run(context.Background(), cycleDate(t), false)

	assert.Equal(t, model.CycleStatusFailed, result.Status)
	assert.Contains(t, result.Error, "login failed")
	assert.Equal(t, 1, fx.coord.released)

	require.Len(t, fx.fetchLogs.logs, 1)
	log := fx.fetchLogs.logs[0]
	assert.Equal(t, dbmodel.FetchStatusFailed, log.Status)
	assert.Contains(t, log.ErrorMessage, "bad credentials")
	require.NotNil(t, log.CompletedAt)
}

func TestRunEmptyScrapeFails(t *testing.T) {
	fx := newFetchFixture()

	result := fx.svc.Run(context.Background(), cycleDate(t), false)

	assert.Equal(t, model.CycleStatusFailed, result.Status)
	assert.Equal(t, "no data fetched", result.Error)
	assert.Equal(t, 1, fx.coord.released)
	assert.Zero(t, fx.engine.calls)
}

func TestRunSuccess(t *testing.T) {
	fx := newFetchFixture()
	fx.collector.rows = []map[string]string{
		scrapedRow("a_desktop"),
		scrapedRow("a_mobile"),
		scrapedRow("b_desktop"),
	}
	fx.raws.created = map[string]bool{"a_desktop": true, "a_mobile": true}

	result := fx.svc.Run(context.Background(), cycleDate(t), false)

	assert.Equal(t, model.CycleStatusSuccess, result.Status)
	assert.Equal(t, "2025-01-02", result.FetchDate)
	assert.Equal(t, 2, result.RecordsCreated)
	assert.Equal(t, 1, result.RecordsUpdated)
	assert.Equal(t, 3, result.TotalRecords)
	assert.Equal(t, 1, fx.engine.calls)
	assert.Equal(t, 1, fx.slots.calls)
	assert.Equal(t, 1, fx.coord.released)

	require.Len(t, fx.raws.rows, 3)
	stored := fx.raws.rows[0]
	assert.Equal(t, "ch1", stored.Channel)
	assert.Equal(t, "a_desktop", stored.Slot)
	assert.Equal(t, "1,000", stored.TotalPlayerImpr)
	assert.Equal(t, cycleDate(t), stored.FetchDate)

	require.Len(t, fx.fetchLogs.logs, 1)
	log := fx.fetchLogs.logs[0]
	assert.Equal(t, dbmodel.FetchStatusSuccess, log.Status)
	assert.Equal(t, 3, log.RecordsFetched)
}

func TestRunSlotReductionFailureDoesNotFailCycle(t *testing.T) {
	fx := newFetchFixture()
	fx.collector.rows = []map[string]string{scrapedRow("a_desktop")}
	fx.slots.err = errors.New("summary table locked")

	result := fx.svc.Run(context.Background(), cycleDate(t), false)
	assert.Equal(t, model.CycleStatusSuccess, result.Status)
}

func TestRunFormulaFailureFailsCycle(t *testing.T) {
	fx := newFetchFixture()
	fx.collector.rows = []map[string]string{scrapedRow("a_desktop")}
	fx.engine.err = errors.New("formula listing failed")

	result := fx.svc.Run(context.Background(), cycleDate(t), false)
	assert.Equal(t, model.CycleStatusFailed, result.Status)
	assert.Contains(t, result.Error, "formula computation failed")
	assert.Zero(t, fx.slots.calls)
}

func TestPagesEstimate(t *testing.T) {
	assert.Equal(t, 1, pagesEstimate(250, true))
	assert.Equal(t, 2, pagesEstimate(250, false))
	assert.Equal(t, 0, pagesEstimate(50, false))
	assert.Equal(t, 10, pagesEstimate(1000, false))
}

func TestDefaultFetchDate(t *testing.T) {
	svc := &FetchService{now: func() time.Time {
		return time.Date(2025, 3, 1, 10, 30, 0, 0, time.UTC)
	}}
	assert.Equal(t, time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC), svc.DefaultFetchDate())
}
