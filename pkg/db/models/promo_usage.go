package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PromoUsage is the append-only source of truth for per-caller and total
// usage counts. Successful rows are written inside the order transaction.
type PromoUsage struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PromoCodeID    uuid.UUID       `gorm:"column:promo_code_id;type:uuid;not null;index:idx_promo_usages_code_caller"`
	CallerID       string          `gorm:"column:caller_id;not null;index:idx_promo_usages_code_caller"`
	OrderID        *uuid.UUID      `gorm:"column:order_id;type:uuid"`
	DiscountAmount decimal.Decimal `gorm:"column:discount_amount;type:numeric(12,2);not null"`
	Success        bool            `gorm:"column:success;not null"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
}
