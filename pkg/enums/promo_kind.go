package enums

import "fmt"

// PromoKind distinguishes how a promo code rewards the buyer.
type PromoKind string

const (
	PromoKindFixed        PromoKind = "fixed"
	PromoKindPercentage   PromoKind = "percentage"
	PromoKindGift         PromoKind = "gift"
	PromoKindFreeShipping PromoKind = "free_shipping"
)

var validPromoKinds = []PromoKind{
	PromoKindFixed,
	PromoKindPercentage,
	PromoKindGift,
	PromoKindFreeShipping,
}

// String implements fmt.Stringer.
func (k PromoKind) String() string {
	return string(k)
}

// IsValid reports whether the value is a known PromoKind.
func (k PromoKind) IsValid() bool {
	for _, candidate := range validPromoKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParsePromoKind converts raw input into a PromoKind.
func ParsePromoKind(value string) (PromoKind, error) {
	for _, candidate := range validPromoKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid promo kind %q", value)
}
