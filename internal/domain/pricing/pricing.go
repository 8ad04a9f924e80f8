// Package pricing holds the pure price arithmetic shared by the cart and
// checkout flows. All amounts are decimals; callers convert to floats or
// display strings only at the boundary.
package pricing

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var hundred = decimal.NewFromInt(100)

// EffectivePrice returns the unit price after applying a percentage discount.
// The percentage is clamped to [0, 100], so a malformed discount can neither
// raise the price nor drive it negative.
func EffectivePrice(unitPrice, discountPercentage decimal.Decimal) decimal.Decimal {
	if discountPercentage.LessThanOrEqual(decimal.Zero) {
		return unitPrice
	}
	if discountPercentage.GreaterThan(hundred) {
		discountPercentage = hundred
	}
	factor := hundred.Sub(discountPercentage).Div(hundred)
	return unitPrice.Mul(factor)
}

// LineTotal returns the effective price multiplied by the quantity.
func LineTotal(unitPrice, discountPercentage decimal.Decimal, quantity int) decimal.Decimal {
	return EffectivePrice(unitPrice, discountPercentage).Mul(decimal.NewFromInt(int64(quantity)))
}

// Formatter renders monetary amounts for display. It is side-effect free and
// safe for concurrent use.
type Formatter struct {
	printer *message.Printer
	symbol  string
}

// NewFormatter creates a Formatter for the given BCP 47 locale and currency
// symbol. Unknown locales fall back to English.
func NewFormatter(locale, symbol string) *Formatter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	return &Formatter{
		printer: message.NewPrinter(tag),
		symbol:  symbol,
	}
}

// FormatCurrency renders the amount with locale-aware digit grouping and
// exactly two fraction digits, e.g. "$1,234.50".
func (f *Formatter) FormatCurrency(amount decimal.Decimal) string {
	v, _ := amount.Round(2).Float64()
	return f.printer.Sprintf("%s%v", f.symbol, number.Decimal(v, number.Scale(2)))
}

// USD is the default formatter used by the storefront.
var USD = NewFormatter("en-US", "$")
