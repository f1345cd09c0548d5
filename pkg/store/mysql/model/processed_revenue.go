package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProcessedRevenue is the per-slot daily reporting row produced by the slot
// reducer (desktop + mobile pair merged, share applied).
//
// TotalPlayerImpr2 intentionally equals TotalPlayerImpr: only revenue is
// share-adjusted in the post-share view.
type ProcessedRevenue struct {
	ID               int64           `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Slot             string          `gorm:"column:slot;type:varchar(255);not null;uniqueIndex:uk_processed_key" json:"slot"`
	TimeUnit         string          `gorm:"column:time_unit;type:varchar(50);not null;uniqueIndex:uk_processed_key" json:"time_unit"`
	TotalPlayerImpr  decimal.Decimal `gorm:"column:total_player_impr;type:decimal(20,2)" json:"total_player_impr"`
	Revenue          decimal.Decimal `gorm:"column:revenue;type:decimal(20,2)" json:"revenue"`
	RPM              decimal.Decimal `gorm:"column:rpm;type:decimal(10,2)" json:"rpm"`
	Share            decimal.Decimal `gorm:"column:share;type:decimal(5,2);default:50.00" json:"share"`
	TotalPlayerImpr2 decimal.Decimal `gorm:"column:total_player_impr_2;type:decimal(20,2)" json:"total_player_impr_2"`
	Revenue2         decimal.Decimal `gorm:"column:revenue_2;type:decimal(20,2)" json:"revenue_2"`
	RPM2             decimal.Decimal `gorm:"column:rpm_2;type:decimal(10,2)" json:"rpm_2"`
	FetchDate        time.Time       `gorm:"column:fetch_date;type:date;not null;uniqueIndex:uk_processed_key" json:"fetch_date"`
	ProcessedAt      time.Time       `gorm:"column:processed_at;not null" json:"processed_at"`
}

// TableName returns the table name for ProcessedRevenue
func (ProcessedRevenue) TableName() string {
	return "processed_revenue_data"
}
