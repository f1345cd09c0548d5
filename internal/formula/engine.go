package formula

import (
	"context"
	"strings"
	"time"

	"revshare/internal/normalize"
	"revshare/pkg/logger"
	"revshare/pkg/store/mysql"
	"revshare/pkg/store/mysql/model"

	"github.com/shopspring/decimal"
)

// Named formulas with closed-form semantics.
const (
	FormulaRPMPer1000Players = "rpm_per_1000_players"
	FormulaRPMTotalNetRev    = "rpm_total_net_revenue"
	FormulaRPMCombined       = "rpm_combined"
	FormulaTotalNetRevenue   = "total_net_revenue"
)

// Compute result statuses.
const (
	StatusOK       = "ok"
	StatusNotFound = "not_found"
	StatusInactive = "inactive"
	StatusFailed   = "failed"
)

var thousand = decimal.NewFromInt(1000)

// RawStore is the raw-record read surface the engine needs.
type RawStore interface {
	List(ctx context.Context, filter mysql.RawRevenueFilter) ([]*model.RawRevenue, error)
	DistinctGroups(ctx context.Context, fetchDate *time.Time) ([]mysql.RawGroup, error)
}

// FormulaStore is the formula read surface the engine needs.
type FormulaStore interface {
	GetByID(ctx context.Context, id int64) (*model.Formula, error)
	ListActive(ctx context.Context) ([]*model.Formula, error)
}

// MetricStore is the metric write surface the engine needs.
type MetricStore interface {
	UpsertComputed(ctx context.Context, metric *model.ComputedMetric) error
	UpsertAggregated(ctx context.Context, metric *model.AggregatedMetric) error
}

// Engine computes formula metrics over the raw store.
type Engine struct {
	raws     RawStore
	formulas FormulaStore
	metrics  MetricStore
	now      func() time.Time
}

// NewEngine creates a formula engine
func NewEngine(raws RawStore, formulas FormulaStore, metrics MetricStore) *Engine {
	return &Engine{
		raws:     raws,
		formulas: formulas,
		metrics:  metrics,
		now:      time.Now,
	}
}

// Result summarizes one ComputeFormula run. Business failures (missing or
// inactive formula, store errors) surface here, never as panics.
type Result struct {
	FormulaID         int64  `json:"formula_id"`
	FormulaName       string `json:"formula_name,omitempty"`
	Status            string `json:"status"`
	Error             string `json:"error,omitempty"`
	ComputedMetrics   int    `json:"computed_metrics"`
	AggregatedMetrics int    `json:"aggregated_metrics"`
}

// ClassifyScope derives the default scope for a formula created without an
// explicit one. This rule runs once at creation time; compute paths read
// only the stored scope column.
func ClassifyScope(name string, formulaType model.FormulaType, expression string) model.FormulaScope {
	switch name {
	case FormulaRPMTotalNetRev, FormulaRPMCombined, FormulaTotalNetRevenue:
		return model.ScopeAggregated
	}
	if (formulaType == model.FormulaTypeRPM || formulaType == model.FormulaTypeRevenue) &&
		strings.Contains(strings.ToLower(expression), "sum") {
		return model.ScopeAggregated
	}
	return model.ScopeRowLevel
}

// recordContext parses the five canonical numeric fields of a raw row.
// Absent or unparseable values stay nil: undetermined, not zero.
func recordContext(row *model.RawRevenue) map[string]*decimal.Decimal {
	rec := normalize.Record{
		TotalPlayerImpr: row.TotalPlayerImpr,
		TotalAdImpr:     row.TotalAdImpr,
		RPM:             row.RPM,
		GrossRevenueUSD: row.GrossRevenueUSD,
		NetRevenueUSD:   row.NetRevenueUSD,
	}
	ctx := make(map[string]*decimal.Decimal, len(normalize.NumericFields))
	for _, field := range normalize.NumericFields {
		ctx[field] = normalize.ParseDecimal(rec.Field(field))
	}
	return ctx
}

// ComputeRowMetric computes one formula value for one raw record.
// A nil result means the metric is undetermined for this row; evaluation
// errors are logged and contribute nil, never an error to the caller.
func (e *Engine) ComputeRowMetric(row *model.RawRevenue, f *model.Formula) *decimal.Decimal {
	fields := recordContext(row)

	if f.Name == FormulaRPMPer1000Players {
		netRev := fields[normalize.FieldNetRevenueUSD]
		playerImpr := fields[normalize.FieldTotalPlayerImpr]
		if netRev == nil || playerImpr == nil || !playerImpr.IsPositive() {
			return nil
		}
		v := netRev.DivRound(*playerImpr, 16).Mul(thousand)
		return &v
	}

	expr, err := Parse(f.Expression, normalize.NumericFields)
	if err != nil {
		logger.Warnf("formula %q: invalid expression: %v", f.Name, err)
		return nil
	}

	// A single nil operand makes the whole expression undetermined;
	// evaluation is skipped entirely rather than failing midway.
	vars := make(map[string]decimal.Decimal, len(expr.Identifiers()))
	for _, name := range expr.Identifiers() {
		value := fields[name]
		if value == nil {
			return nil
		}
		vars[name] = *value
	}

	v, err := expr.Eval(vars)
	if err != nil {
		logger.Warnf("formula %q: evaluation failed: %v", f.Name, err)
		return nil
	}
	return &v
}

// ComputeAggregatedMetric computes one formula value over the raw records
// matching the optional channel/time-unit/date filters.
func (e *Engine) ComputeAggregatedMetric(ctx context.Context, f *model.Formula, channel, timeUnit string, fetchDate *time.Time) (*decimal.Decimal, error) {
	rows, err := e.raws.List(ctx, mysql.RawRevenueFilter{
		Channel:   channel,
		TimeUnit:  timeUnit,
		FetchDate: fetchDate,
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	switch f.Name {
	case FormulaRPMTotalNetRev, FormulaTotalNetRevenue:
		// Sum of net revenue; impressions play no part.
		total := decimal.Zero
		for _, row := range rows {
			if netRev := normalize.ParseDecimal(row.NetRevenueUSD); netRev != nil {
				total = total.Add(*netRev)
			}
		}
		return &total, nil

	case FormulaRPMCombined:
		totalNetRev := decimal.Zero
		totalImpr := decimal.Zero
		for _, row := range rows {
			if netRev := normalize.ParseDecimal(row.NetRevenueUSD); netRev != nil {
				totalNetRev = totalNetRev.Add(*netRev)
			}
			if impr := normalize.ParseDecimal(row.TotalPlayerImpr); impr != nil {
				totalImpr = totalImpr.Add(*impr)
			}
		}
		if !totalImpr.IsPositive() {
			return nil, nil
		}
		v := totalNetRev.DivRound(totalImpr, 16).Mul(thousand)
		return &v, nil
	}

	// Generic aggregation: sum of row-level values over rows that produce one.
	total := decimal.Zero
	count := 0
	for _, row := range rows {
		if value := e.ComputeRowMetric(row, f); value != nil {
			total = total.Add(*value)
			count++
		}
	}
	if count == 0 {
		return nil, nil
	}
	return &total, nil
}

// ComputeFormula computes one formula across the raw store, optionally
// restricted to a single fetch date, and upserts the results.
func (e *Engine) ComputeFormula(ctx context.Context, formulaID int64, computeForDate *time.Time) Result {
	f, err := e.formulas.GetByID(ctx, formulaID)
	if err != nil {
		if err == mysql.ErrNotFound {
			return Result{FormulaID: formulaID, Status: StatusNotFound, Error: "formula not found"}
		}
		return Result{FormulaID: formulaID, Status: StatusFailed, Error: err.Error()}
	}
	if !f.IsActive {
		return Result{FormulaID: formulaID, FormulaName: f.Name, Status: StatusInactive, Error: "formula is not active"}
	}

	scope := f.Scope
	if scope == "" {
		// Rows predating the scope column fall back to the creation-time rule.
		scope = ClassifyScope(f.Name, f.Type, f.Expression)
	}

	result := Result{FormulaID: formulaID, FormulaName: f.Name, Status: StatusOK}

	if scope == model.ScopeAggregated {
		groups, err := e.raws.DistinctGroups(ctx, computeForDate)
		if err != nil {
			return Result{FormulaID: formulaID, FormulaName: f.Name, Status: StatusFailed, Error: err.Error()}
		}
		for _, g := range groups {
			date := g.FetchDate
			value, err := e.ComputeAggregatedMetric(ctx, f, g.Channel, g.TimeUnit, &date)
			if err != nil {
				return Result{FormulaID: formulaID, FormulaName: f.Name, Status: StatusFailed, Error: err.Error()}
			}
			if value == nil {
				continue
			}
			channel := g.Channel
			metric := &model.AggregatedMetric{
				Channel:     &channel,
				TimeUnit:    g.TimeUnit,
				FetchDate:   g.FetchDate,
				MetricName:  f.Name,
				MetricValue: *value,
				FormulaID:   f.ID,
				ComputedAt:  e.now(),
			}
			if err := e.metrics.UpsertAggregated(ctx, metric); err != nil {
				return Result{FormulaID: formulaID, FormulaName: f.Name, Status: StatusFailed, Error: err.Error()}
			}
			result.AggregatedMetrics++
		}
		return result
	}

	rows, err := e.raws.List(ctx, mysql.RawRevenueFilter{FetchDate: computeForDate})
	if err != nil {
		return Result{FormulaID: formulaID, FormulaName: f.Name, Status: StatusFailed, Error: err.Error()}
	}
	for _, row := range rows {
		value := e.ComputeRowMetric(row, f)
		if value == nil {
			continue
		}
		metric := &model.ComputedMetric{
			RawDataID:   row.ID,
			FormulaID:   f.ID,
			MetricName:  f.Name,
			MetricValue: *value,
			ComputedAt:  e.now(),
		}
		if err := e.metrics.UpsertComputed(ctx, metric); err != nil {
			return Result{FormulaID: formulaID, FormulaName: f.Name, Status: StatusFailed, Error: err.Error()}
		}
		result.ComputedMetrics++
	}
	return result
}

// ComputeAllFormulas runs ComputeFormula for every active formula. A
// failing formula never aborts the batch; each gets its own result.
func (e *Engine) ComputeAllFormulas(ctx context.Context, computeForDate *time.Time) ([]Result, error) {
	formulas, err := e.formulas.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(formulas))
	for _, f := range formulas {
		result := e.ComputeFormula(ctx, f.ID, computeForDate)
		if result.Status != StatusOK {
			logger.Warnf("formula %q (%d) compute finished with status %s: %s",
				f.Name, f.ID, result.Status, result.Error)
		}
		results = append(results, result)
	}
	return results, nil
}
