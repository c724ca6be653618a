package money

import "fmt"

// FormatUSD renders a cents amount as two-decimal currency.
func FormatUSD(usdCents int64) string {
	return fmt.Sprintf("$%.2f", float64(usdCents)/CentsPerDollar)
}

// FormatNative renders a native-token amount with magnitude-adaptive
// precision: 0 decimals above 1000, 1 decimal above 100, 2 decimals
// otherwise.
func FormatNative(native float64) string {
	switch {
	case native > 1000:
		return fmt.Sprintf("%.0f", native)
	case native > 100:
		return fmt.Sprintf("%.1f", native)
	default:
		return fmt.Sprintf("%.2f", native)
	}
}
