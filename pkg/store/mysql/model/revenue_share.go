package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// RevenueShare configures the partner share percentage for a slot over a
// date range. A nil EffectiveTo means open-ended. Slots without a covering
// row fall back to the 50.00 default in the reducer.
type RevenueShare struct {
	ID            int64           `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Slot          string          `gorm:"column:slot;type:varchar(255);not null;index:idx_share_slot" json:"slot"`
	SharePct      decimal.Decimal `gorm:"column:share_pct;type:decimal(5,2);not null" json:"share_pct"`
	EffectiveFrom time.Time       `gorm:"column:effective_from;type:date;not null" json:"effective_from"`
	EffectiveTo   *time.Time      `gorm:"column:effective_to;type:date" json:"effective_to,omitempty"`
	CreatedAt     time.Time       `gorm:"column:created_at;not null;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;not null;autoUpdateTime" json:"updated_at"`
}

// TableName returns the table name for RevenueShare
func (RevenueShare) TableName() string {
	return "revenue_shares"
}
