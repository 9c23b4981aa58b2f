package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/olekdev/tackleshop-backend/pkg/enums"
)

// PromoAttempt is the append-only audit row written for every validation
// attempt, success or failure. Rate limiting counts these per caller.
type PromoAttempt struct {
	ID            uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code          string                   `gorm:"column:code;not null;index"`
	CallerID      string                   `gorm:"column:caller_id;not null;index:idx_promo_attempts_caller_created"`
	CallerAddr    *string                  `gorm:"column:caller_addr"`
	Success       bool                     `gorm:"column:success;not null"`
	FailureReason *enums.PromoRejectReason `gorm:"column:failure_reason;type:text"`
	CreatedAt     time.Time                `gorm:"column:created_at;autoCreateTime;index:idx_promo_attempts_caller_created"`
}
