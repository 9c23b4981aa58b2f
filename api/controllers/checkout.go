package controllers

import (
	"net/http"
	"time"

	"github.com/olekdev/tackleshop-backend/api/middleware"
	"github.com/olekdev/tackleshop-backend/api/responses"
	"github.com/olekdev/tackleshop-backend/api/validators"
	cartsvc "github.com/olekdev/tackleshop-backend/internal/cart"
	"github.com/olekdev/tackleshop-backend/internal/checkout"
	"github.com/olekdev/tackleshop-backend/internal/promos"
	pkgerrors "github.com/olekdev/tackleshop-backend/pkg/errors"
	"github.com/olekdev/tackleshop-backend/pkg/logger"
	"github.com/olekdev/tackleshop-backend/pkg/money"
)

type checkoutRequest struct {
	CustomerName   string   `json:"customer_name" validate:"required,min=2,max=120"`
	CustomerPhone  string   `json:"customer_phone" validate:"required,e164"`
	CustomerEmail  *string  `json:"customer_email,omitempty" validate:"omitempty,email"`
	ShippingCity   string   `json:"shipping_city" validate:"required,min=2,max=120"`
	ShippingOffice string   `json:"shipping_office" validate:"required,min=1,max=32"`
	Comment        *string  `json:"comment,omitempty" validate:"omitempty,max=500"`
	PromoCodes     []string `json:"promo_codes" validate:"max=5,dive,min=2,max=64"`
	ShippingCost   string   `json:"shipping_cost" validate:"omitempty"`
}

type checkoutResponse struct {
	OrderID        string `json:"order_id"`
	Status         string `json:"status"`
	Subtotal       string `json:"subtotal"`
	DiscountAmount string `json:"discount_amount"`
	ShippingCost   string `json:"shipping_cost"`
	Total          string `json:"total"`
	CreatedAt      string `json:"created_at"`
}

// Checkout re-validates the submitted promo codes against the live cart,
// assembles the order and clears the cart on success.
func Checkout(assembler checkout.Assembler, validator promos.Validator, carts cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, err := sessionFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		shippingCost := money.Zero
		if payload.ShippingCost != "" {
			parsed, err := money.FromString(payload.ShippingCost)
			if err != nil || parsed.IsNegative() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid shipping cost"))
				return
			}
			shippingCost = parsed
		}

		snapshot, err := carts.Get(r.Context(), sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		applied := make([]checkout.AppliedPromo, 0, len(payload.PromoCodes))
		for _, code := range payload.PromoCodes {
			result, err := validator.Validate(r.Context(), promos.ValidateInput{
				Code:       code,
				Lines:      snapshot.Lines,
				CallerID:   sessionID,
				CallerAddr: middleware.ClientAddrFromContext(r.Context()),
			})
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			if !result.Valid {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeValidation, "promo code rejected").
						WithDetails(map[string]any{"code": code, "reason": result.Reason.String()}))
				return
			}
			applied = append(applied, checkout.AppliedPromo{
				Promo:          result.Promo,
				DiscountAmount: result.DiscountAmount,
				GiftProductID:  result.GiftProductID,
			})
		}

		order, err := assembler.Assemble(r.Context(), checkout.AssembleInput{
			SessionID: sessionID,
			CallerID:  sessionID,
			Lines:     snapshot.Lines,
			Applied:   applied,
			Customer: checkout.CustomerInput{
				Name:           payload.CustomerName,
				Phone:          payload.CustomerPhone,
				Email:          payload.CustomerEmail,
				ShippingCity:   payload.ShippingCity,
				ShippingOffice: payload.ShippingOffice,
				Comment:        payload.Comment,
			},
			ShippingCost: shippingCost,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		// checkout owns the cart now; a failed clear only logs
		if err := carts.Clear(r.Context(), sessionID); err != nil && logg != nil {
			logg.Error(logg.WithOrderID(r.Context(), order.ID.String()), "checkout.cart_clear.failed", err)
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, checkoutResponse{
			OrderID:        order.ID.String(),
			Status:         order.Status.String(),
			Subtotal:       order.Subtotal.StringFixed(2),
			DiscountAmount: order.DiscountAmount.StringFixed(2),
			ShippingCost:   order.ShippingCost.StringFixed(2),
			Total:          order.Total.StringFixed(2),
			CreatedAt:      order.CreatedAt.Format(time.RFC3339),
		})
	}
}
