package formula

import (
	"context"
	"errors"
	"testing"
	"time"

	"revshare/pkg/store/mysql"
	"revshare/pkg/store/mysql/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRawStore struct {
	rows     []*model.RawRevenue
	groups   []mysql.RawGroup
	listErr  error
	groupErr error
}

func (f *fakeRawStore) List(ctx context.Context, filter mysql.RawRevenueFilter) ([]*model.RawRevenue, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []*model.RawRevenue
	for _, row := range f.rows {
		if filter.Channel != "" && row.Channel != filter.Channel {
			continue
		}
		if filter.TimeUnit != "" && row.TimeUnit != filter.TimeUnit {
			continue
		}
		if filter.FetchDate != nil && !row.FetchDate.Equal(*filter.FetchDate) {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

func (f *fakeRawStore) DistinctGroups(ctx context.Context, fetchDate *time.Time) ([]mysql.RawGroup, error) {
	if f.groupErr != nil {
		return nil, f.groupErr
	}
	return f.groups, nil
}

type fakeFormulaStore struct {
	formulas map[int64]*model.Formula
}

func (f *fakeFormulaStore) GetByID(ctx context.Context, id int64) (*model.Formula, error) {
	formula, ok := f.formulas[id]
	if !ok {
		return nil, mysql.ErrNotFound
	}
	return formula, nil
}

func (f *fakeFormulaStore) ListActive(ctx context.Context) ([]*model.Formula, error) {
	var out []*model.Formula
	for _, formula := range f.formulas {
		if formula.IsActive {
			out = append(out, formula)
		}
	}
	return out, nil
}

type fakeMetricStore struct {
	computed   []*model.ComputedMetric
	aggregated []*model.AggregatedMetric
	upsertErr  error
}

func (f *fakeMetricStore) UpsertComputed(ctx context.Context, m *model.ComputedMetric) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.computed = append(f.computed, m)
	return nil
}

func (f *fakeMetricStore) UpsertAggregated(ctx context.Context, m *model.AggregatedMetric) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.aggregated = append(f.aggregated, m)
	return nil
}

func date(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func rawRow(id int64, channel, slot, impr, netRev string) *model.RawRevenue {
	return &model.RawRevenue{
		ID:              id,
		Channel:         channel,
		Slot:            slot,
		TimeUnit:        "2025-01-01",
		TotalPlayerImpr: impr,
		NetRevenueUSD:   netRev,
		FetchDate:       date("2025-01-02"),
	}
}

func newTestEngine(raws *fakeRawStore, formulas *fakeFormulaStore, metrics *fakeMetricStore) *Engine {
	e := NewEngine(raws, formulas, metrics)
	e.now = func() time.Time { return date("2025-01-03") }
	return e
}

func TestComputeRowMetricRPMPer1000Players(t *testing.T) {
	e := newTestEngine(&fakeRawStore{}, &fakeFormulaStore{}, &fakeMetricStore{})
	f := &model.Formula{Name: FormulaRPMPer1000Players}

	got := e.ComputeRowMetric(rawRow(1, "ch", "s", "2000", "10"), f)
	require.NotNil(t, got)
	assert.True(t, got.Equal(decimal.NewFromInt(5)), "got %s", got)

	// Missing revenue or zero impressions leave the metric undetermined.
	assert.Nil(t, e.ComputeRowMetric(rawRow(1, "ch", "s", "2000", "-"), f))
	assert.Nil(t, e.ComputeRowMetric(rawRow(1, "ch", "s", "0", "10"), f))
	assert.Nil(t, e.ComputeRowMetric(rawRow(1, "ch", "s", "", "10"), f))
}

func TestComputeRowMetricGenericExpression(t *testing.T) {
	e := newTestEngine(&fakeRawStore{}, &fakeFormulaStore{}, &fakeMetricStore{})
	f := &model.Formula{
		Name:       "net_margin",
		Expression: "net_revenue_usd / total_player_impr * 1000",
	}

	got := e.ComputeRowMetric(rawRow(1, "ch", "s", "1,000", "25"), f)
	require.NotNil(t, got)
	assert.True(t, got.Equal(decimal.NewFromInt(25)), "got %s", got)

	// A single missing operand makes the whole row undetermined.
	assert.Nil(t, e.ComputeRowMetric(rawRow(1, "ch", "s", "-", "25"), f))
}

func TestComputeRowMetricBadExpression(t *testing.T) {
	e := newTestEngine(&fakeRawStore{}, &fakeFormulaStore{}, &fakeMetricStore{})
	f := &model.Formula{Name: "broken", Expression: "net_revenue_usd +"}
	assert.Nil(t, e.ComputeRowMetric(rawRow(1, "ch", "s", "100", "10"), f))
}

func TestComputeAggregatedTotalNetRevenue(t *testing.T) {
	raws := &fakeRawStore{rows: []*model.RawRevenue{
		rawRow(1, "ch", "a", "1000", "10.50"),
		rawRow(2, "ch", "b", "2000", "20.25"),
		rawRow(3, "ch", "c", "500", "-"), // unparseable revenue contributes nothing
	}}
	e := newTestEngine(raws, &fakeFormulaStore{}, &fakeMetricStore{})

	got, err := e.ComputeAggregatedMetric(context.Background(), &model.Formula{Name: FormulaTotalNetRevenue}, "ch", "", nil)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Equal(decimal.RequireFromString("30.75")), "got %s", got)
}

func TestComputeAggregatedRPMCombined(t *testing.T) {
	raws := &fakeRawStore{rows: []*model.RawRevenue{
		rawRow(1, "ch", "a", "1000", "10"),
		rawRow(2, "ch", "b", "2000", "20"),
	}}
	e := newTestEngine(raws, &fakeFormulaStore{}, &fakeMetricStore{})

	// 30 / 3000 * 1000 = 10
	got, err := e.ComputeAggregatedMetric(context.Background(), &model.Formula{Name: FormulaRPMCombined}, "ch", "", nil)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Equal(decimal.NewFromInt(10)), "got %s", got)
}

func TestComputeAggregatedNoRows(t *testing.T) {
	e := newTestEngine(&fakeRawStore{}, &fakeFormulaStore{}, &fakeMetricStore{})
	got, err := e.ComputeAggregatedMetric(context.Background(), &model.Formula{Name: FormulaTotalNetRevenue}, "ch", "", nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestComputeFormulaRowLevel(t *testing.T) {
	raws := &fakeRawStore{rows: []*model.RawRevenue{
		rawRow(1, "ch", "a", "2000", "10"),
		rawRow(2, "ch", "b", "-", "10"), // undetermined, skipped
	}}
	formulas := &fakeFormulaStore{formulas: map[int64]*model.Formula{
		7: {ID: 7, Name: FormulaRPMPer1000Players, Scope: model.ScopeRowLevel, IsActive: true},
	}}
	metrics := &fakeMetricStore{}
	e := newTestEngine(raws, formulas, metrics)

	result := e.ComputeFormula(context.Background(), 7, nil)
	assert.Equal(t, StatusOK, result.Status)
	assert.Equal(t, 1, result.ComputedMetrics)
	require.Len(t, metrics.computed, 1)
	assert.Equal(t, int64(1), metrics.computed[0].RawDataID)
	assert.Equal(t, FormulaRPMPer1000Players, metrics.computed[0].MetricName)
	assert.True(t, metrics.computed[0].MetricValue.Equal(decimal.NewFromInt(5)))
}

func TestComputeFormulaAggregated(t *testing.T) {
	d := date("2025-01-02")
	raws := &fakeRawStore{
		rows: []*model.RawRevenue{
			rawRow(1, "ch1", "a", "1000", "10"),
			rawRow(2, "ch1", "b", "2000", "20"),
		},
		groups: []mysql.RawGroup{
			{Channel: "ch1", TimeUnit: "2025-01-01", FetchDate: d},
			{Channel: "ch2", TimeUnit: "2025-01-01", FetchDate: d}, // no rows, no metric
		},
	}
	formulas := &fakeFormulaStore{formulas: map[int64]*model.Formula{
		3: {ID: 3, Name: FormulaTotalNetRevenue, Scope: model.ScopeAggregated, IsActive: true},
	}}
	metrics := &fakeMetricStore{}
	e := newTestEngine(raws, formulas, metrics)

	result := e.ComputeFormula(context.Background(), 3, &d)
	assert.Equal(t, StatusOK, result.Status)
	assert.Equal(t, 1, result.AggregatedMetrics)
	require.Len(t, metrics.aggregated, 1)
	assert.Equal(t, "ch1", *metrics.aggregated[0].Channel)
	assert.True(t, metrics.aggregated[0].MetricValue.Equal(decimal.NewFromInt(30)))
}

func TestComputeFormulaNotFoundAndInactive(t *testing.T) {
	formulas := &fakeFormulaStore{formulas: map[int64]*model.Formula{
		5: {ID: 5, Name: "dormant", Scope: model.ScopeRowLevel, IsActive: false},
	}}
	e := newTestEngine(&fakeRawStore{}, formulas, &fakeMetricStore{})

	assert.Equal(t, StatusNotFound, e.ComputeFormula(context.Background(), 99, nil).Status)
	assert.Equal(t, StatusInactive, e.ComputeFormula(context.Background(), 5, nil).Status)
}

func TestComputeFormulaStoreFailure(t *testing.T) {
	formulas := &fakeFormulaStore{formulas: map[int64]*model.Formula{
		1: {ID: 1, Name: "m", Expression: "rpm", Scope: model.ScopeRowLevel, IsActive: true},
	}}
	raws := &fakeRawStore{listErr: errors.New("connection lost")}
	e := newTestEngine(raws, formulas, &fakeMetricStore{})

	result := e.ComputeFormula(context.Background(), 1, nil)
	assert.Equal(t, StatusFailed, result.Status)
	assert.Contains(t, result.Error, "connection lost")
}

func TestComputeAllFormulasIsolatesFailures(t *testing.T) {
	raws := &fakeRawStore{rows: []*model.RawRevenue{rawRow(1, "ch", "a", "2000", "10")}}
	formulas := &fakeFormulaStore{formulas: map[int64]*model.Formula{
		1: {ID: 1, Name: FormulaRPMPer1000Players, Scope: model.ScopeRowLevel, IsActive: true},
		2: {ID: 2, Name: "agg", Scope: model.ScopeAggregated, IsActive: true},
	}}
	// Aggregated path fails on the group listing, row-level path still runs.
	raws.groupErr = errors.New("boom")
	metrics := &fakeMetricStore{}
	e := newTestEngine(raws, formulas, metrics)

	results, err := e.ComputeAllFormulas(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, results, 2)

	byID := map[int64]Result{}
	for _, r := range results {
		byID[r.FormulaID] = r
	}
	assert.Equal(t, StatusOK, byID[1].Status)
	assert.Equal(t, StatusFailed, byID[2].Status)
}

func TestClassifyScope(t *testing.T) {
	assert.Equal(t, model.ScopeAggregated, ClassifyScope(FormulaTotalNetRevenue, model.FormulaTypeCustom, "x"))
	assert.Equal(t, model.ScopeAggregated, ClassifyScope(FormulaRPMCombined, model.FormulaTypeCustom, "x"))
	assert.Equal(t, model.ScopeAggregated, ClassifyScope("my_sum", model.FormulaTypeRPM, "sum(net_revenue_usd)"))
	assert.Equal(t, model.ScopeAggregated, ClassifyScope("rev_total", model.FormulaTypeRevenue, "SUM(net_revenue_usd)"))
	assert.Equal(t, model.ScopeRowLevel, ClassifyScope("my_sum", model.FormulaTypeCustom, "sum(net_revenue_usd)"))
	assert.Equal(t, model.ScopeRowLevel, ClassifyScope("plain", model.FormulaTypeRPM, "net_revenue_usd / 2"))
	assert.Equal(t, model.ScopeRowLevel, ClassifyScope(FormulaRPMPer1000Players, model.FormulaTypeRPM, "x"))
}
