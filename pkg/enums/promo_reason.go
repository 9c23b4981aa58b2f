package enums

import "fmt"

// PromoRejectReason enumerates why a promo validation attempt was refused.
type PromoRejectReason string

const (
	PromoRejectRateLimited        PromoRejectReason = "rate_limited"
	PromoRejectNotFound           PromoRejectReason = "not_found"
	PromoRejectInactive           PromoRejectReason = "inactive"
	PromoRejectNotYetValid        PromoRejectReason = "not_yet_valid"
	PromoRejectExpired            PromoRejectReason = "expired"
	PromoRejectExhaustedTotal     PromoRejectReason = "exhausted_total"
	PromoRejectExhaustedPerCaller PromoRejectReason = "exhausted_per_caller"
	PromoRejectBelowMinimum       PromoRejectReason = "below_minimum"
	PromoRejectCategoryMismatch   PromoRejectReason = "category_mismatch"
)

var validPromoRejectReasons = []PromoRejectReason{
	PromoRejectRateLimited,
	PromoRejectNotFound,
	PromoRejectInactive,
	PromoRejectNotYetValid,
	PromoRejectExpired,
	PromoRejectExhaustedTotal,
	PromoRejectExhaustedPerCaller,
	PromoRejectBelowMinimum,
	PromoRejectCategoryMismatch,
}

// String implements fmt.Stringer.
func (r PromoRejectReason) String() string {
	return string(r)
}

// IsValid reports whether the value is a known PromoRejectReason.
func (r PromoRejectReason) IsValid() bool {
	for _, candidate := range validPromoRejectReasons {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParsePromoRejectReason converts raw input into a PromoRejectReason.
func ParsePromoRejectReason(value string) (PromoRejectReason, error) {
	for _, candidate := range validPromoRejectReasons {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid promo reject reason %q", value)
}
