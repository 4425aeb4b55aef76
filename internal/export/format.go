package export

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

const currencyCode = money.CNY

var (
	cny            = money.GetCurrency(currencyCode)
	yuanFormatter  = money.NewFormatter(cny.Fraction, cny.Decimal, cny.Thousand, "¥", "$ 1")
	plainFormatter = money.NewFormatter(cny.Fraction, cny.Decimal, cny.Thousand, "", "1")
)

// toMoney rounds v half away from zero to the currency's minor unit.
func toMoney(v float64) *money.Money {
	minor := decimal.NewFromFloat(v).Shift(int32(cny.Fraction)).Round(0)
	return money.New(minor.IntPart(), currencyCode)
}

// FormatAmount renders v as "¥ 1,234.50".
func FormatAmount(v float64) string {
	return yuanFormatter.Format(toMoney(v).Amount())
}

// FormatPlain renders v as "1,234.50" for table cells.
func FormatPlain(v float64) string {
	return plainFormatter.Format(toMoney(v).Amount())
}
