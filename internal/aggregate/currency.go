package aggregate

import (
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultCurrencySymbol is the functional currency of the reports.
const DefaultCurrencySymbol = "GH¢"

// Formatter renders amounts for display: a symbol prefix, thousands grouping and two decimals.
// It never changes the stored amount.
type Formatter struct {
	Symbol string
}

// NewFormatter returns a formatter using symbol, or the default symbol when empty.
func NewFormatter(symbol string) Formatter {
	if symbol == "" {
		symbol = DefaultCurrencySymbol
	}
	return Formatter{Symbol: symbol}
}

// Format renders amount as e.g. "GH¢1,234.50" or "GH¢-45.99".
func (f Formatter) Format(amount decimal.Decimal) string {
	return f.Symbol + GroupThousands(amount.StringFixed(2))
}

// GroupThousands inserts comma separators into the integer part of a fixed-point number string.
func GroupThousands(fixed string) string {
	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign, fixed = "-", fixed[1:]
	}
	intPart, fracPart := fixed, ""
	if i := strings.IndexByte(fixed, '.'); i >= 0 {
		intPart, fracPart = fixed[:i], fixed[i:]
	}

	var b strings.Builder
	lead := len(intPart) % 3
	if lead > 0 {
		b.WriteString(intPart[:lead])
	}
	for i := lead; i < len(intPart); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(intPart[i : i+3])
	}
	return sign + b.String() + fracPart
}
