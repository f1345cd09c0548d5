package service

import (
	"context"
	"fmt"
	"time"

	"revshare/internal/formula"
	"revshare/internal/normalize"
	"revshare/pkg/store/mysql"
	dbmodel "revshare/pkg/store/mysql/model"
)

// FormulaService owns formula lifecycle and compute triggers.
type FormulaService struct {
	formulas *mysql.FormulaRepository
	engine   *formula.Engine
}

// NewFormulaService creates a formula service
func NewFormulaService(formulas *mysql.FormulaRepository, engine *formula.Engine) *FormulaService {
	return &FormulaService{formulas: formulas, engine: engine}
}

// CreateFormulaInput carries a new formula definition.
type CreateFormulaInput struct {
	Name        string               `json:"name" binding:"required"`
	Description string               `json:"description"`
	Expression  string               `json:"expression" binding:"required"`
	Type        dbmodel.FormulaType  `json:"formula_type" binding:"required"`
	Scope       dbmodel.FormulaScope `json:"scope"`
	Metadata    map[string]string    `json:"metadata"`
	CreatedBy   string               `json:"-"`
}

// UpdateFormulaInput carries a partial formula update.
type UpdateFormulaInput struct {
	Description *string               `json:"description"`
	Expression  *string               `json:"expression"`
	Type        *dbmodel.FormulaType  `json:"formula_type"`
	Scope       *dbmodel.FormulaScope `json:"scope"`
	IsActive    *bool                 `json:"is_active"`
	Metadata    map[string]string     `json:"metadata"`
}

// namedFormula reports whether a formula name carries closed-form
// semantics; their stored expression is documentation, not evaluated.
func namedFormula(name string) bool {
	switch name {
	case formula.FormulaRPMPer1000Players,
		formula.FormulaRPMTotalNetRev,
		formula.FormulaRPMCombined,
		formula.FormulaTotalNetRevenue:
		return true
	}
	return false
}

func validScope(scope dbmodel.FormulaScope) bool {
	return scope == dbmodel.ScopeRowLevel || scope == dbmodel.ScopeAggregated
}

func validType(t dbmodel.FormulaType) bool {
	switch t {
	case dbmodel.FormulaTypeRPM, dbmodel.FormulaTypeRevenue,
		dbmodel.FormulaTypeCustom, dbmodel.FormulaTypeIRPM:
		return true
	}
	return false
}

// Create validates and stores a new formula. The scope is fixed here,
// once: an explicit scope wins, otherwise the classification rule applies.
func (s *FormulaService) Create(ctx context.Context, in CreateFormulaInput) (*dbmodel.Formula, error) {
	if !validType(in.Type) {
		return nil, fmt.Errorf("invalid formula type %q", in.Type)
	}
	if in.Scope != "" && !validScope(in.Scope) {
		return nil, fmt.Errorf("invalid formula scope %q", in.Scope)
	}
	if !namedFormula(in.Name) {
		if _, err := formula.Parse(in.Expression, normalize.NumericFields); err != nil {
			return nil, fmt.Errorf("invalid expression: %w", err)
		}
	}

	scope := in.Scope
	if scope == "" {
		scope = formula.ClassifyScope(in.Name, in.Type, in.Expression)
	}

	f := &dbmodel.Formula{
		Name:        in.Name,
		Description: in.Description,
		Expression:  in.Expression,
		Type:        in.Type,
		Scope:       scope,
		IsActive:    true,
		Metadata:    in.Metadata,
		CreatedBy:   in.CreatedBy,
	}
	if err := s.formulas.Create(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

// Get returns one formula by id.
func (s *FormulaService) Get(ctx context.Context, id int64) (*dbmodel.Formula, error) {
	return s.formulas.GetByID(ctx, id)
}

// List returns formulas, optionally filtered by active state.
func (s *FormulaService) List(ctx context.Context, isActive *bool) ([]*dbmodel.Formula, error) {
	return s.formulas.List(ctx, isActive)
}

// Update applies a partial update. A changed expression is re-validated
// but the scope never re-derives implicitly; it only moves when set.
func (s *FormulaService) Update(ctx context.Context, id int64, in UpdateFormulaInput) (*dbmodel.Formula, error) {
	f, err := s.formulas.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Expression != nil {
		if !namedFormula(f.Name) {
			if _, err := formula.Parse(*in.Expression, normalize.NumericFields); err != nil {
				return nil, fmt.Errorf("invalid expression: %w", err)
			}
		}
		f.Expression = *in.Expression
	}
	if in.Description != nil {
		f.Description = *in.Description
	}
	if in.Type != nil {
		if !validType(*in.Type) {
			return nil, fmt.Errorf("invalid formula type %q", *in.Type)
		}
		f.Type = *in.Type
	}
	if in.Scope != nil {
		if !validScope(*in.Scope) {
			return nil, fmt.Errorf("invalid formula scope %q", *in.Scope)
		}
		f.Scope = *in.Scope
	}
	if in.IsActive != nil {
		f.IsActive = *in.IsActive
	}
	if in.Metadata != nil {
		f.Metadata = in.Metadata
	}

	if err := s.formulas.Update(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

// Deactivate soft-deletes a formula.
func (s *FormulaService) Deactivate(ctx context.Context, id int64) error {
	return s.formulas.Deactivate(ctx, id)
}

// Compute runs one formula, optionally restricted to a date.
func (s *FormulaService) Compute(ctx context.Context, id int64, computeForDate *time.Time) formula.Result {
	return s.engine.ComputeFormula(ctx, id, computeForDate)
}

// ComputeAll runs every active formula.
func (s *FormulaService) ComputeAll(ctx context.Context, computeForDate *time.Time) ([]formula.Result, error) {
	return s.engine.ComputeAllFormulas(ctx, computeForDate)
}
