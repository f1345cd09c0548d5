package model

import "time"

// RawRevenue is one scraped (channel, slot, time_unit, fetch_date) observation.
// Numeric fields keep the dashboard's original string formatting ("1,234", "-");
// parsing happens downstream in the normalizer.
type RawRevenue struct {
	ID              int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Channel         string    `gorm:"column:channel;type:varchar(255);not null;uniqueIndex:uk_raw_key" json:"channel"`
	Slot            string    `gorm:"column:slot;type:varchar(255);not null;uniqueIndex:uk_raw_key" json:"slot"`
	TimeUnit        string    `gorm:"column:time_unit;type:varchar(50);not null;uniqueIndex:uk_raw_key" json:"time_unit"`
	TotalPlayerImpr string    `gorm:"column:total_player_impr;type:varchar(50)" json:"total_player_impr"`
	TotalAdImpr     string    `gorm:"column:total_ad_impr;type:varchar(50)" json:"total_ad_impr"`
	RPM             string    `gorm:"column:rpm;type:varchar(50)" json:"rpm"`
	GrossRevenueUSD string    `gorm:"column:gross_revenue_usd;type:varchar(50)" json:"gross_revenue_usd"`
	NetRevenueUSD   string    `gorm:"column:net_revenue_usd;type:varchar(50)" json:"net_revenue_usd"`
	FetchDate       time.Time `gorm:"column:fetch_date;type:date;not null;uniqueIndex:uk_raw_key" json:"fetch_date"`
	FetchedAt       time.Time `gorm:"column:fetched_at;not null" json:"fetched_at"`
	CreatedAt       time.Time `gorm:"column:created_at;not null;autoCreateTime" json:"created_at"`
}

// TableName returns the table name for RawRevenue
func (RawRevenue) TableName() string {
	return "raw_revenue_data"
}
