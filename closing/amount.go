package closing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount reads a loosely typed money value. Currency symbols and spaces are
// dropped, a dot followed by exactly three digits is a thousands separator and the
// first comma is the decimal separator: "R$ 1.234,56", "1234.56" and "10,5" all
// parse. Blank or unparseable input yields zero.
func ParseAmount(s string) decimal.Decimal {
	var clean strings.Builder
	for _, r := range strings.TrimSpace(s) {
		if (r >= '0' && r <= '9') || r == ',' || r == '.' || r == '-' {
			clean.WriteRune(r)
		}
	}
	raw := clean.String()
	if raw == "" {
		return decimal.Zero
	}

	var normalized strings.Builder
	for i := 0; i < len(raw); i++ {
		if raw[i] == '.' && thousandsGroupAt(raw, i+1) {
			continue
		}
		normalized.WriteByte(raw[i])
	}
	value := strings.Replace(normalized.String(), ",", ".", 1)

	amount, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero
	}

	return amount
}

// thousandsGroupAt reports whether s has exactly three digits starting at i.
func thousandsGroupAt(s string, i int) bool {
	if i+3 > len(s) {
		return false
	}
	for j := i; j < i+3; j++ {
		if s[j] < '0' || s[j] > '9' {
			return false
		}
	}

	return i+3 == len(s) || s[i+3] < '0' || s[i+3] > '9'
}

// FormatAmount renders d with two decimals and a comma separator, e.g. "1234,56".
func FormatAmount(d decimal.Decimal) string {
	return strings.Replace(d.StringFixed(2), ".", ",", 1)
}
