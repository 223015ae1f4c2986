package rules

import "github.com/shopspring/decimal"

// FormatValue renders a metric value as a fixed literal (at most four
// decimals, trailing zeros dropped) so evidence text is stable across runs.
func FormatValue(v float64) string {
	return decimal.NewFromFloat(v).Round(4).String()
}
