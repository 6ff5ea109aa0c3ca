package pricing

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var hundred = decimal.NewFromInt(100)

// FormatEUR renders an amount as euros with grouping and two decimals, e.g. €1,234.50.
// Digits are taken from the exact decimal value.
func FormatEUR(amount decimal.Decimal) string {
	rounded := amount.Round(2)
	sign := ""
	if rounded.IsNegative() {
		sign = "-"
		rounded = rounded.Neg()
	}

	whole, cents, _ := strings.Cut(rounded.StringFixed(2), ".")
	return sign + "€" + groupThousands(whole) + "." + cents
}

// groupThousands inserts thousands separators into a string of digits.
func groupThousands(digits string) string {
	if n, err := strconv.ParseInt(digits, 10, 64); err == nil {
		return message.NewPrinter(language.English).Sprintf("%v", number.Decimal(n))
	}

	var b strings.Builder
	lead := len(digits) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(digits[:lead])
	for i := lead; i < len(digits); i += 3 {
		b.WriteByte(',')
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// FormatRate renders a fractional rate as a percentage with one decimal, e.g. 0.115 => 11.5%.
func FormatRate(rate decimal.Decimal) string {
	return rate.Mul(hundred).StringFixed(1) + "%"
}
