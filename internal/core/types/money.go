// Package types provides common value types.
package types

import (
	"github.com/shopspring/decimal"
)

// Money is a monetary amount with full precision, stored as NUMERIC(14,2).
type Money = decimal.Decimal

// MoneyScale is the number of fractional digits kept for stored amounts.
const MoneyScale = 2

// MustMoney parses s, panics on error. Use only for constants and tests.
func MustMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// LineTotal returns qty × price rounded to MoneyScale.
func LineTotal(qty int64, price Money) Money {
	return price.Mul(decimal.NewFromInt(qty)).Round(MoneyScale)
}

// Sum adds amounts.
func Sum(amounts ...Money) Money {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}
