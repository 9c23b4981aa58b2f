package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	dbtypes "github.com/olekdev/tackleshop-backend/pkg/db/types"
	"github.com/olekdev/tackleshop-backend/pkg/enums"
)

// PromoCode is the admin-managed definition of a discount code. Codes are
// stored upper-cased; lookups must normalize the same way.
type PromoCode struct {
	ID                 uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code               string             `gorm:"column:code;not null;uniqueIndex"`
	Kind               enums.PromoKind    `gorm:"column:kind;type:text;not null"`
	DiscountValue      decimal.Decimal    `gorm:"column:discount_value;type:numeric(12,2);not null"`
	GiftProductID      *uuid.UUID         `gorm:"column:gift_product_id;type:uuid"`
	MinOrderAmount     decimal.Decimal    `gorm:"column:min_order_amount;type:numeric(12,2);not null;default:0"`
	MaxUsesTotal       *int               `gorm:"column:max_uses_total"`
	MaxUsesPerCaller   int                `gorm:"column:max_uses_per_caller;not null;default:1"`
	UsedCount          int                `gorm:"column:used_count;not null;default:0"`
	ValidFrom          time.Time          `gorm:"column:valid_from;not null"`
	ValidUntil         *time.Time         `gorm:"column:valid_until"`
	Active             bool               `gorm:"column:active;not null;default:true"`
	AllowedCategoryIDs dbtypes.UUIDArray  `gorm:"column:allowed_category_ids;type:uuid[]"`
	AllowMultiple      bool               `gorm:"column:allow_multiple;not null;default:false"`
	CreatedAt          time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
