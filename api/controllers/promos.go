package controllers

import (
	"net/http"

	"github.com/olekdev/tackleshop-backend/api/middleware"
	"github.com/olekdev/tackleshop-backend/api/responses"
	"github.com/olekdev/tackleshop-backend/api/validators"
	cartsvc "github.com/olekdev/tackleshop-backend/internal/cart"
	"github.com/olekdev/tackleshop-backend/internal/promos"
	"github.com/olekdev/tackleshop-backend/pkg/logger"
	"github.com/olekdev/tackleshop-backend/pkg/money"
)

type validatePromoRequest struct {
	Code string `json:"code" validate:"required,min=2,max=64"`
}

type validatePromoResponse struct {
	Valid          bool          `json:"valid"`
	Code           string        `json:"code,omitempty"`
	Kind           string        `json:"kind,omitempty"`
	DiscountAmount *money.Amount `json:"discount_amount,omitempty"`
	GiftProductID  *string       `json:"gift_product_id,omitempty"`
	Reason         string        `json:"reason,omitempty"`
}

// PromoValidate runs the validation pipeline against the caller's current
// cart. Rejections are a typed 200 payload, not an error response.
func PromoValidate(validator promos.Validator, carts cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, err := sessionFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload validatePromoRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		snapshot, err := carts.Get(r.Context(), sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := validator.Validate(r.Context(), promos.ValidateInput{
			Code:       payload.Code,
			Lines:      snapshot.Lines,
			CallerID:   sessionID,
			CallerAddr: middleware.ClientAddrFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newValidatePromoResponse(result))
	}
}

func newValidatePromoResponse(result promos.ValidationResult) validatePromoResponse {
	if !result.Valid {
		return validatePromoResponse{Valid: false, Reason: result.Reason.String()}
	}

	resp := validatePromoResponse{
		Valid: true,
		Code:  result.Promo.Code,
		Kind:  result.Promo.Kind.String(),
	}
	discount := result.DiscountAmount
	resp.DiscountAmount = &discount
	if result.GiftProductID != nil {
		gift := result.GiftProductID.String()
		resp.GiftProductID = &gift
	}
	return resp
}
