package utils

import (
	"strings"

	"github.com/shopspring/decimal"
)

// CurrencySymbol is appended by FormatCurrency.
var CurrencySymbol = "FCFA"

// FormatCurrency formats an amount with space-grouped thousands and a comma
// decimal separator. Cents are printed only when non-zero.
// Example: 15000.50 -> "15 000,50 FCFA"
func FormatCurrency(amount decimal.Decimal) string {
	amount = amount.Round(2)
	negative := amount.IsNegative()
	amount = amount.Abs()

	formatted := amount.StringFixed(2)
	parts := strings.SplitN(formatted, ".", 2)
	integerPart, decimalPart := parts[0], parts[1]

	// Tambahkan pemisah ribuan
	var groups []string
	for i := len(integerPart); i > 0; i -= 3 {
		start := i - 3
		if start < 0 {
			start = 0
		}
		groups = append([]string{integerPart[start:i]}, groups...)
	}

	result := strings.Join(groups, " ")
	if decimalPart != "00" {
		result += "," + decimalPart
	}
	if negative {
		result = "-" + result
	}
	if CurrencySymbol != "" {
		result += " " + CurrencySymbol
	}
	return result
}
