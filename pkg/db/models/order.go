package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/olekdev/tackleshop-backend/pkg/enums"
)

// Order is immutable after creation except for Status.
type Order struct {
	ID             uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SessionID      string            `gorm:"column:session_id;not null;index"`
	Status         enums.OrderStatus `gorm:"column:status;type:text;not null;default:'new'"`
	Currency       enums.Currency    `gorm:"column:currency;type:text;not null;default:'UAH'"`
	CustomerName   string            `gorm:"column:customer_name;not null"`
	CustomerPhone  string            `gorm:"column:customer_phone;not null"`
	CustomerEmail  *string           `gorm:"column:customer_email"`
	ShippingCity   string            `gorm:"column:shipping_city;not null"`
	ShippingOffice string            `gorm:"column:shipping_office;not null"`
	Comment        *string           `gorm:"column:comment"`
	Subtotal       decimal.Decimal   `gorm:"column:subtotal;type:numeric(12,2);not null"`
	DiscountAmount decimal.Decimal   `gorm:"column:discount_amount;type:numeric(12,2);not null;default:0"`
	ShippingCost   decimal.Decimal   `gorm:"column:shipping_cost;type:numeric(12,2);not null;default:0"`
	Total          decimal.Decimal   `gorm:"column:total;type:numeric(12,2);not null"`
	PromoCodes     []string          `gorm:"column:promo_codes;type:jsonb;serializer:json"`
	Items          []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
