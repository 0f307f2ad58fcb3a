// Package numfmt holds the rounding and number formatting rules shared by the
// scorer, the change analyzer and the report writers.
package numfmt

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// Round rounds v to the given number of decimal places, half away from zero.
// NaN and infinities are returned unchanged.
func Round(v float64, decimals int32) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	f, _ := decimal.NewFromFloat(v).Round(decimals).Float64()
	return f
}

// Thousands formats an integer with comma thousands separators, e.g. 1234567 => "1,234,567".
func Thousands(v int) string {
	return humanize.Comma(int64(v))
}

// Percent renders a signed percentage with one decimal, e.g. "+29.4%".
func Percent(v float64) string {
	return fmt.Sprintf("%+.1f%%", v)
}
