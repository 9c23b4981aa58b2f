package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/olekdev/tackleshop-backend/internal/repo"
	"github.com/olekdev/tackleshop-backend/pkg/db/models"
	pkgerrors "github.com/olekdev/tackleshop-backend/pkg/errors"
)

// ProductStock is the catalog snapshot consulted when a cart line is created.
type ProductStock struct {
	ProductID     uuid.UUID
	Name          string
	SKU           string
	Price         decimal.Decimal
	DiscountPrice *decimal.Decimal
	StockQuantity int
	CategoryID    uuid.UUID
	ImageURL      *string
}

// Loader resolves product stock data. Cart and promo code paths depend on
// this interface rather than the gorm repository directly.
type Loader interface {
	GetProductStock(ctx context.Context, productID uuid.UUID) (*ProductStock, error)
}

// Repository is the gorm-backed Loader.
type Repository struct {
	repo.Base
}

// NewRepository builds a catalog repository over the shared connection.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// GetProductStock loads the active product row for cart validation.
func (r *Repository) GetProductStock(ctx context.Context, productID uuid.UUID) (*ProductStock, error) {
	var product models.Product
	err := r.DB(ctx).Where("id = ?", productID).First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product is not available")
	}
	return &ProductStock{
		ProductID:     product.ID,
		Name:          product.Name,
		SKU:           product.SKU,
		Price:         product.Price,
		DiscountPrice: product.DiscountPrice,
		StockQuantity: product.StockQuantity,
		CategoryID:    product.CategoryID,
		ImageURL:      product.ImageURL,
	}, nil
}
