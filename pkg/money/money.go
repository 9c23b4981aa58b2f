package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Amount is a monetary value in the shop's single configured currency,
// rounded to two decimal places on every operation.
type Amount struct {
	value decimal.Decimal
}

// Zero is the additive identity.
var Zero = Amount{}

// New builds an Amount from major and minor units (e.g. 199, 50 -> 199.50).
func New(units int64, cents int64) Amount {
	v := decimal.NewFromInt(units).Add(decimal.NewFromInt(cents).Shift(-2))
	return Amount{value: v.Round(2)}
}

// FromDecimal wraps a raw decimal, rounding to two places.
func FromDecimal(d decimal.Decimal) Amount {
	return Amount{value: d.Round(2)}
}

// FromString parses a decimal string such as "499.90".
func FromString(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Zero, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return FromDecimal(d), nil
}

// MustFromString is FromString for trusted literals; panics on parse failure.
func MustFromString(s string) Amount {
	a, err := FromString(s)
	if err != nil {
		panic(err)
	}
	return a
}

// Decimal returns the underlying decimal value.
func (a Amount) Decimal() decimal.Decimal {
	return a.value
}

func (a Amount) Add(b Amount) Amount {
	return Amount{value: a.value.Add(b.value).Round(2)}
}

func (a Amount) Sub(b Amount) Amount {
	return Amount{value: a.value.Sub(b.value).Round(2)}
}

// MulInt scales the amount by a line quantity.
func (a Amount) MulInt(n int) Amount {
	return Amount{value: a.value.Mul(decimal.NewFromInt(int64(n))).Round(2)}
}

// Percent returns p percent of the amount.
func (a Amount) Percent(p decimal.Decimal) Amount {
	return Amount{value: a.value.Mul(p).Div(decimal.NewFromInt(100)).Round(2)}
}

func (a Amount) IsZero() bool {
	return a.value.IsZero()
}

func (a Amount) IsNegative() bool {
	return a.value.IsNegative()
}

func (a Amount) Equal(b Amount) bool {
	return a.value.Equal(b.value)
}

func (a Amount) LessThan(b Amount) bool {
	return a.value.LessThan(b.value)
}

func (a Amount) GreaterThan(b Amount) bool {
	return a.value.GreaterThan(b.value)
}

// Min returns the smaller of the two amounts.
func Min(a, b Amount) Amount {
	if a.value.LessThan(b.value) {
		return a
	}
	return b
}

// ClampNonNegative floors the amount at zero.
func (a Amount) ClampNonNegative() Amount {
	if a.value.IsNegative() {
		return Zero
	}
	return a
}

func (a Amount) String() string {
	return a.value.StringFixed(2)
}

// MarshalJSON renders the amount as a fixed two-decimal JSON string.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.String() + `"`), nil
}

// UnmarshalJSON accepts either a JSON number or a quoted decimal string.
func (a *Amount) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return err
	}
	*a = FromDecimal(d)
	return nil
}
