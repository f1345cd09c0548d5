package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalKey(t *testing.T) {
	cases := map[string]string{
		"channel":           "channel",
		"Channel":           "channel",
		"Time Unit":         "time_unit",
		"TIME UNIT":         "time_unit",
		"time_unit":         "time_unit",
		"Total Player Impr": "total_player_impr",
		"Net Revenue (USD)": "net_revenue_usd",
		"NET REVENUE (USD)": "net_revenue_usd",
		"gross-revenue-usd": "gross_revenue_usd",
		"RPM":               "rpm",
		"  slot  ":          "slot",
		"a  b":              "a_b",
	}
	for input, want := range cases {
		assert.Equal(t, want, CanonicalKey(input), "input %q", input)
	}
}

func TestFromRow(t *testing.T) {
	rec := FromRow(map[string]string{
		"Channel":           "ch1",
		"Slot":              "news_desktop",
		"Time Unit":         "2025-01-01",
		"Total Player Impr": "1,234",
		"Total Ad Impr":     "567",
		"RPM":               "1.23",
		"Gross Revenue (USD)": "12.34",
		"Net Revenue (USD)":   "10.00",
	})

	assert.Equal(t, "ch1", rec.Channel)
	assert.Equal(t, "news_desktop", rec.Slot)
	assert.Equal(t, "2025-01-01", rec.TimeUnit)
	assert.Equal(t, "1,234", rec.TotalPlayerImpr)
	assert.Equal(t, "567", rec.TotalAdImpr)
	assert.Equal(t, "1.23", rec.RPM)
	assert.Equal(t, "12.34", rec.GrossRevenueUSD)
	assert.Equal(t, "10.00", rec.NetRevenueUSD)
}

func TestFromRowMissingFields(t *testing.T) {
	rec := FromRow(map[string]string{"Channel": "ch1"})
	assert.Equal(t, "ch1", rec.Channel)
	assert.Equal(t, "", rec.Slot)
	assert.Equal(t, "", rec.NetRevenueUSD)
}

func TestRecordField(t *testing.T) {
	rec := Record{TotalPlayerImpr: "100", NetRevenueUSD: "5.50"}
	assert.Equal(t, "100", rec.Field(FieldTotalPlayerImpr))
	assert.Equal(t, "5.50", rec.Field(FieldNetRevenueUSD))
	assert.Equal(t, "", rec.Field("unknown"))
}

func TestParseDecimal(t *testing.T) {
	d := ParseDecimal("1,234.56")
	require.NotNil(t, d)
	assert.Equal(t, "1234.56", d.String())

	d = ParseDecimal("  42 ")
	require.NotNil(t, d)
	assert.Equal(t, "42", d.String())

	assert.Nil(t, ParseDecimal(""))
	assert.Nil(t, ParseDecimal("-"))
	assert.Nil(t, ParseDecimal("n/a"))
}

func TestParseAmount(t *testing.T) {
	assert.Equal(t, "1000", ParseAmount("1,000").String())
	assert.True(t, ParseAmount("").IsZero())
	assert.True(t, ParseAmount("-").IsZero())
	assert.True(t, ParseAmount("garbage").IsZero())
}
