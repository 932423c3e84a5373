package calendar

import (
	"strings"

	"github.com/shopspring/decimal"
)

var valueMultipliers = map[string]decimal.Decimal{
	"K": decimal.NewFromInt(1_000),
	"M": decimal.NewFromInt(1_000_000),
	"B": decimal.NewFromInt(1_000_000_000),
	"T": decimal.NewFromInt(1_000_000_000_000),
}

// ParseValue parses numeric-as-text provider values such as "3.2%", "199K", "-0.4", "$1.2B".
// ok is false when the text carries no number.
func ParseValue(raw string) (decimal.Decimal, bool) {
	v := strings.TrimSpace(raw)
	v = strings.TrimPrefix(v, "$")
	v = strings.TrimSuffix(v, "%")
	v = strings.ReplaceAll(v, ",", "")
	if v == "" || v == "." {
		return decimal.Zero, false
	}

	multiplier := decimal.NewFromInt(1)
	if suffix := strings.ToUpper(v[len(v)-1:]); valueMultipliers[suffix].IsPositive() {
		multiplier = valueMultipliers[suffix]
		v = strings.TrimSpace(v[:len(v)-1])
	}

	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, false
	}
	return d.Mul(multiplier), true
}

// Surprise returns (actual - forecast) / |forecast|.
// ok is false when either side is missing, unparsable, or the forecast is zero.
func (e CalendarEvent) Surprise() (decimal.Decimal, bool) {
	if e.Actual == nil || e.Forecast == nil {
		return decimal.Zero, false
	}

	actual, ok := ParseValue(*e.Actual)
	if !ok {
		return decimal.Zero, false
	}
	forecast, ok := ParseValue(*e.Forecast)
	if !ok || forecast.IsZero() {
		return decimal.Zero, false
	}

	return actual.Sub(forecast).Div(forecast.Abs()).Round(4), true
}
