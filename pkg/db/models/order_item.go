package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderItem snapshots a cart line at the moment of assembly. Subtotal is
// (discount unit price, else unit price) times quantity.
type OrderItem struct {
	ID                uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID           uuid.UUID        `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID         uuid.UUID        `gorm:"column:product_id;type:uuid;not null"`
	Name              string           `gorm:"column:name;not null"`
	SKU               string           `gorm:"column:sku;not null"`
	UnitPrice         decimal.Decimal  `gorm:"column:unit_price;type:numeric(12,2);not null"`
	DiscountUnitPrice *decimal.Decimal `gorm:"column:discount_unit_price;type:numeric(12,2)"`
	Quantity          int              `gorm:"column:quantity;not null"`
	Subtotal          decimal.Decimal  `gorm:"column:subtotal;type:numeric(12,2);not null"`
	IsGift            bool             `gorm:"column:is_gift;not null;default:false"`
	CreatedAt         time.Time        `gorm:"column:created_at;autoCreateTime"`
}
