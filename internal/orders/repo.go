package orders

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/olekdev/tackleshop-backend/internal/repo"
	"github.com/olekdev/tackleshop-backend/pkg/db/models"
	"github.com/olekdev/tackleshop-backend/pkg/enums"
	pkgerrors "github.com/olekdev/tackleshop-backend/pkg/errors"
)

// Repository persists orders and enforces the status machine.
type Repository struct {
	repo.Base
}

// NewRepository builds an order repository over the shared connection.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// Create inserts the order together with its items. Callers run it inside a
// transaction when other writes must commit atomically with the order.
func (r *Repository) Create(ctx context.Context, order *models.Order) error {
	if err := r.DB(ctx).Create(order).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert order")
	}
	return nil
}

// GetByID loads the order with its items.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.DB(ctx).Preload("Items").Where("id = ?", id).First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return &order, nil
}

// UpdateStatus applies a status transition, refusing moves the machine
// disallows. The guard is a conditional update so two concurrent transitions
// cannot both win.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, next enums.OrderStatus) (*models.Order, error) {
	order, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !order.Status.CanTransitionTo(next) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "status transition disallowed").
			WithDetails(map[string]any{
				"current":   order.Status.String(),
				"requested": next.String(),
			})
	}

	result := r.DB(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", id, order.Status).
		Update("status", next)
	if result.Error != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, result.Error, "update order status")
	}
	if result.RowsAffected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order status changed concurrently")
	}

	order.Status = next
	return order, nil
}
