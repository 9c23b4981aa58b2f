package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is the catalog row consulted when cart lines are created.
type Product struct {
	ID            uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name          string           `gorm:"column:name;not null"`
	SKU           string           `gorm:"column:sku;not null;uniqueIndex"`
	Price         decimal.Decimal  `gorm:"column:price;type:numeric(12,2);not null"`
	DiscountPrice *decimal.Decimal `gorm:"column:discount_price;type:numeric(12,2)"`
	StockQuantity int              `gorm:"column:stock_quantity;not null"`
	CategoryID    uuid.UUID        `gorm:"column:category_id;type:uuid;not null"`
	ImageURL      *string          `gorm:"column:image_url"`
	IsActive      bool             `gorm:"column:is_active;not null;default:true"`
	CreatedAt     time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
