package domain

import "strings"

// Currency is an ISO-like currency code (KES, USD, USDT, ...).
type Currency string

const (
	CurrencyKES  Currency = "KES"
	CurrencyUSD  Currency = "USD"
	CurrencyUSDT Currency = "USDT"
)

// DefaultCurrencies is the minimum set every wallet starts with.
// Deployments may extend the set through configuration.
var DefaultCurrencies = []Currency{CurrencyKES, CurrencyUSD, CurrencyUSDT}

// ParseCurrency normalizes a raw code to upper case.
func ParseCurrency(raw string) Currency {
	return Currency(strings.ToUpper(strings.TrimSpace(raw)))
}

func (c Currency) String() string {
	return string(c)
}
