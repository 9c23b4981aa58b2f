package enums

import "fmt"

// Currency is the shop's settlement currency. The storefront is single
// currency; the enum exists so persisted orders stay explicit.
type Currency string

const (
	CurrencyUAH Currency = "UAH"
)

var validCurrencies = []Currency{CurrencyUAH}

// String implements fmt.Stringer.
func (c Currency) String() string {
	return string(c)
}

// IsValid reports whether the value is a known Currency.
func (c Currency) IsValid() bool {
	for _, candidate := range validCurrencies {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCurrency converts raw input into a Currency.
func ParseCurrency(value string) (Currency, error) {
	for _, candidate := range validCurrencies {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid currency %q", value)
}
