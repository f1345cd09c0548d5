package model

import "time"

// FormulaScope classifies how a formula is computed
type FormulaScope string

const (
	ScopeRowLevel   FormulaScope = "row_level"  // one value per raw record
	ScopeAggregated FormulaScope = "aggregated" // one value per (channel, time_unit, fetch_date) group
)

// FormulaType formula category
type FormulaType string

const (
	FormulaTypeRPM     FormulaType = "rpm"
	FormulaTypeRevenue FormulaType = "revenue"
	FormulaTypeCustom  FormulaType = "custom"
	FormulaTypeIRPM    FormulaType = "irpm"
)

// Formula is a named, administrator-authored metric definition.
// Scope is fixed at creation time; compute paths never re-classify.
type Formula struct {
	ID          int64             `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Name        string            `gorm:"column:name;type:varchar(255);not null;uniqueIndex:uk_formula_name" json:"name"`
	Description string            `gorm:"column:description;type:text" json:"description"`
	Expression  string            `gorm:"column:formula_expression;type:text;not null" json:"formula_expression"`
	Type        FormulaType       `gorm:"column:formula_type;type:varchar(50);not null" json:"formula_type"`
	Scope       FormulaScope      `gorm:"column:scope;type:varchar(20);not null" json:"scope"`
	IsActive    bool              `gorm:"column:is_active;not null;default:true" json:"is_active"`
	Metadata    map[string]string `gorm:"column:formula_metadata;type:json;serializer:json" json:"metadata,omitempty"`
	CreatedBy   string            `gorm:"column:created_by;type:varchar(255)" json:"created_by,omitempty"`
	CreatedAt   time.Time         `gorm:"column:created_at;not null;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time         `gorm:"column:updated_at;not null;autoUpdateTime" json:"updated_at"`
}

// TableName returns the table name for Formula
func (Formula) TableName() string {
	return "formulas"
}
