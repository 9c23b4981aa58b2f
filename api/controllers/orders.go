package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/olekdev/tackleshop-backend/api/responses"
	"github.com/olekdev/tackleshop-backend/api/validators"
	"github.com/olekdev/tackleshop-backend/pkg/db/models"
	"github.com/olekdev/tackleshop-backend/pkg/enums"
	pkgerrors "github.com/olekdev/tackleshop-backend/pkg/errors"
	"github.com/olekdev/tackleshop-backend/pkg/logger"
)

type updateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// OrderStore is the slice of the orders repository the handlers need.
type OrderStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, next enums.OrderStatus) (*models.Order, error)
}

// OrderFetch loads one order with its items.
func OrderFetch(repo OrderStore, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := orderIDFromURL(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := repo.GetByID(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// OrderUpdateStatus applies one status transition.
func OrderUpdateStatus(repo OrderStore, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := orderIDFromURL(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateStatusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParseOrderStatus(payload.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}

		order, err := repo.UpdateStatus(r.Context(), orderID, status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func orderIDFromURL(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "orderID")
	orderID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id")
	}
	return orderID, nil
}
