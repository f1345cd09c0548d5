package formula

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var exprIdents = []string{
	"total_player_impr", "total_ad_impr", "rpm", "gross_revenue_usd", "net_revenue_usd",
}

func evalExpr(t *testing.T, src string, vars map[string]string) decimal.Decimal {
	t.Helper()
	expr, err := Parse(src, exprIdents)
	require.NoError(t, err)

	values := make(map[string]decimal.Decimal, len(vars))
	for name, raw := range vars {
		values[name] = decimal.RequireFromString(raw)
	}
	got, err := expr.Eval(values)
	require.NoError(t, err)
	return got
}

func TestParseEvalArithmetic(t *testing.T) {
	cases := []struct {
		src  string
		vars map[string]string
		want string
	}{
		{"1 + 2 * 3", nil, "7"},
		{"(1 + 2) * 3", nil, "9"},
		{"10 / 4", nil, "2.5"},
		{"-5 + 2", nil, "-3"},
		{"2 - -3", nil, "5"},
		{"net_revenue_usd / total_player_impr * 1000",
			map[string]string{"net_revenue_usd": "10", "total_player_impr": "2000"}, "5"},
		{"gross_revenue_usd - net_revenue_usd",
			map[string]string{"gross_revenue_usd": "12.5", "net_revenue_usd": "10"}, "2.5"},
	}
	for _, tc := range cases {
		got := evalExpr(t, tc.src, tc.vars)
		assert.True(t, got.Equal(decimal.RequireFromString(tc.want)),
			"%s: got %s, want %s", tc.src, got, tc.want)
	}
}

func TestParseEvalFunctions(t *testing.T) {
	cases := []struct {
		src  string
		want string
	}{
		{"abs(-4.2)", "4.2"},
		{"round(3.456)", "3"},
		{"round(3.456, 2)", "3.46"},
		{"round(3.335, 2)", "3.34"}, // half-up
		{"min(3, 1, 2)", "1"},
		{"max(3, 1, 2)", "3"},
		{"sum(1, 2, 3.5)", "6.5"},
		{"ROUND(10 / 3, 2)", "3.33"}, // function names fold to lower case
	}
	for _, tc := range cases {
		got := evalExpr(t, tc.src, nil)
		assert.True(t, got.Equal(decimal.RequireFromString(tc.want)),
			"%s: got %s, want %s", tc.src, got, tc.want)
	}
}

func TestParseRejectsUnknownIdentifier(t *testing.T) {
	_, err := Parse("net_revenue_usd + bogus_field", exprIdents)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bogus_field")
}

func TestParseRejectsUnknownFunction(t *testing.T) {
	_, err := Parse("sqrt(4)", exprIdents)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sqrt")
}

func TestParseRejectsMalformedInput(t *testing.T) {
	for _, src := range []string{
		"1 +",
		"(1 + 2",
		"1..2",
		"rpm @ 2",
		"round(1,",
		"1 2",
	} {
		_, err := Parse(src, exprIdents)
		assert.Error(t, err, "input %q", src)
	}
}

func TestEvalDivisionByZero(t *testing.T) {
	expr, err := Parse("net_revenue_usd / total_player_impr", exprIdents)
	require.NoError(t, err)

	_, err = expr.Eval(map[string]decimal.Decimal{
		"net_revenue_usd":   decimal.NewFromInt(10),
		"total_player_impr": decimal.Zero,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "division by zero")
}

func TestEvalMissingIdentifierValue(t *testing.T) {
	expr, err := Parse("net_revenue_usd + rpm", exprIdents)
	require.NoError(t, err)

	_, err = expr.Eval(map[string]decimal.Decimal{"net_revenue_usd": decimal.NewFromInt(1)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rpm")
}

func TestIdentifiersSortedAndDeduplicated(t *testing.T) {
	expr, err := Parse("rpm + net_revenue_usd * rpm - total_ad_impr", exprIdents)
	require.NoError(t, err)
	assert.Equal(t, []string{"net_revenue_usd", "rpm", "total_ad_impr"}, expr.Identifiers())
}

func TestRoundRejectsFractionalPlaces(t *testing.T) {
	expr, err := Parse("round(1.234, 1.5)", exprIdents)
	require.NoError(t, err)
	_, err = expr.Eval(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "integer")
}
