package shared

import "github.com/shopspring/decimal"

// MoneyScale is the number of decimal places kept for stored amounts
const MoneyScale int32 = 2

// Round2 rounds an amount half-up (away from zero) to two decimal places
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyScale)
}

// SumDecimals adds the given amounts
func SumDecimals(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}
