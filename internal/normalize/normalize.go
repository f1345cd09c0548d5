package normalize

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Canonical field names. Every downstream component works against these;
// header-variant folding happens exactly once, at ingestion.
const (
	FieldChannel         = "channel"
	FieldSlot            = "slot"
	FieldTimeUnit        = "time_unit"
	FieldTotalPlayerImpr = "total_player_impr"
	FieldTotalAdImpr     = "total_ad_impr"
	FieldRPM             = "rpm"
	FieldGrossRevenueUSD = "gross_revenue_usd"
	FieldNetRevenueUSD   = "net_revenue_usd"
)

// NumericFields lists the canonical numeric columns in dashboard order.
var NumericFields = []string{
	FieldTotalPlayerImpr,
	FieldTotalAdImpr,
	FieldRPM,
	FieldGrossRevenueUSD,
	FieldNetRevenueUSD,
}

// Record is the fixed-shape normalized raw row. Numeric values stay as the
// dashboard's strings; parsing is deferred to the consuming context because
// the two call sites disagree on the missing-value fallback.
type Record struct {
	Channel         string
	Slot            string
	TimeUnit        string
	TotalPlayerImpr string
	TotalAdImpr     string
	RPM             string
	GrossRevenueUSD string
	NetRevenueUSD   string
}

// CanonicalKey folds a dashboard column header into its canonical
// snake_case name: "Net Revenue (USD)", "net_revenue_usd" and
// "NET REVENUE (USD)" all map to "net_revenue_usd".
func CanonicalKey(key string) string {
	var b strings.Builder
	prevUnderscore := false
	for _, r := range strings.ToLower(key) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prevUnderscore = false
		case r == ' ', r == '_', r == '-', r == '\t':
			if !prevUnderscore && b.Len() > 0 {
				b.WriteByte('_')
				prevUnderscore = true
			}
		default:
			// parentheses and other punctuation vanish
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}

// FromRow builds a fixed-shape Record from a scraped key/value row with
// unpredictable header casing and spacing. Missing fields resolve to "".
func FromRow(row map[string]string) Record {
	canon := make(map[string]string, len(row))
	for k, v := range row {
		canon[CanonicalKey(k)] = v
	}
	return Record{
		Channel:         canon[FieldChannel],
		Slot:            canon[FieldSlot],
		TimeUnit:        canon[FieldTimeUnit],
		TotalPlayerImpr: canon[FieldTotalPlayerImpr],
		TotalAdImpr:     canon[FieldTotalAdImpr],
		RPM:             canon[FieldRPM],
		GrossRevenueUSD: canon[FieldGrossRevenueUSD],
		NetRevenueUSD:   canon[FieldNetRevenueUSD],
	}
}

// Field returns the named canonical numeric field's raw string value.
func (r Record) Field(name string) string {
	switch name {
	case FieldTotalPlayerImpr:
		return r.TotalPlayerImpr
	case FieldTotalAdImpr:
		return r.TotalAdImpr
	case FieldRPM:
		return r.RPM
	case FieldGrossRevenueUSD:
		return r.GrossRevenueUSD
	case FieldNetRevenueUSD:
		return r.NetRevenueUSD
	}
	return ""
}

// ParseDecimal parses a locale-formatted numeric string to an exact
// decimal. Empty string, "-" and malformed input yield nil. This is the
// formula-evaluation context: missing means undetermined, not zero.
func ParseDecimal(value string) *decimal.Decimal {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" || trimmed == "-" {
		return nil
	}
	cleaned := strings.ReplaceAll(trimmed, ",", "")
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return nil
	}
	return &d
}

// ParseAmount parses like ParseDecimal but falls back to zero. This is the
// slot-reduction context: a missing side of a device pair contributes 0.
func ParseAmount(value string) decimal.Decimal {
	if d := ParseDecimal(value); d != nil {
		return *d
	}
	return decimal.Zero
}
