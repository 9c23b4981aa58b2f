package promos

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/olekdev/tackleshop-backend/internal/cart"
	"github.com/olekdev/tackleshop-backend/pkg/config"
	"github.com/olekdev/tackleshop-backend/pkg/db/models"
	"github.com/olekdev/tackleshop-backend/pkg/enums"
	pkgerrors "github.com/olekdev/tackleshop-backend/pkg/errors"
	"github.com/olekdev/tackleshop-backend/pkg/logger"
	"github.com/olekdev/tackleshop-backend/pkg/metrics"
	"github.com/olekdev/tackleshop-backend/pkg/money"
)

// ValidateInput carries everything one validation decision needs.
type ValidateInput struct {
	Code       string
	Lines      []cart.Line
	CallerID   string
	CallerAddr string
}

// ValidationResult is a typed outcome, not an error: rejections travel as
// Valid=false with a Reason.
type ValidationResult struct {
	Valid          bool
	Promo          *models.PromoCode
	DiscountAmount money.Amount
	GiftProductID  *uuid.UUID
	Reason         enums.PromoRejectReason
}

// Validator runs the ordered promo validation pipeline.
type Validator interface {
	Validate(ctx context.Context, input ValidateInput) (ValidationResult, error)
}

// RateLimiter pre-filters attempt floods with a cheap fixed-window counter
// before the attempt-count query runs. *redis.Client satisfies it.
type RateLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

type validator struct {
	store      Store
	limiter    RateLimiter
	logg       *logger.Logger
	checkoutMx *metrics.CheckoutMetrics
	cfg        config.PromoConfig

	maxPercentCeiling money.Amount
	now               func() time.Time
}

// NewValidator wires the validation pipeline. A nil limiter skips the redis
// pre-filter; a zero MaxPercentDiscount in cfg disables the percentage
// ceiling.
func NewValidator(store Store, limiter RateLimiter, logg *logger.Logger, checkoutMx *metrics.CheckoutMetrics, cfg config.PromoConfig) (Validator, error) {
	if store == nil {
		return nil, fmt.Errorf("promo store required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}

	ceiling := money.Zero
	if cfg.MaxPercentDiscount != "" && cfg.MaxPercentDiscount != "0" {
		parsed, err := money.FromString(cfg.MaxPercentDiscount)
		if err != nil {
			return nil, fmt.Errorf("parsing max percent discount: %w", err)
		}
		ceiling = parsed
	}

	return &validator{
		store:             store,
		limiter:           limiter,
		logg:              logg,
		checkoutMx:        checkoutMx,
		cfg:               cfg,
		maxPercentCeiling: ceiling,
		now:               time.Now,
	}, nil
}

// Validate executes the checks in strict order, short-circuiting on the
// first failure. Every return, success or failure, leaves a PromoAttempt
// row and bumps the attempt counter.
func (v *validator) Validate(ctx context.Context, input ValidateInput) (ValidationResult, error) {
	code := strings.ToUpper(strings.TrimSpace(input.Code))
	ctx = v.logg.WithPromoCode(ctx, code)
	now := v.now()

	// 1. rate limit on attempts, success or failure alike. The redis window
	// catches floods without a query; the attempt-count check below stays
	// authoritative, so a redis failure only drops the shortcut.
	if v.limiter != nil {
		allowed, _, limErr := v.limiter.FixedWindowAllow(ctx, input.CallerID, int64(v.cfg.RateLimitAttempts), v.cfg.RateLimitWindow)
		if limErr != nil {
			v.logg.Warn(ctx, "promo.ratelimit.prefilter_unavailable")
		} else if !allowed {
			return v.reject(ctx, code, input, enums.PromoRejectRateLimited), nil
		}
	}
	attempts, err := v.store.CountAttemptsSince(ctx, input.CallerID, now.Add(-v.cfg.RateLimitWindow))
	if err != nil {
		return ValidationResult{}, err
	}
	if attempts >= int64(v.cfg.RateLimitAttempts) {
		return v.reject(ctx, code, input, enums.PromoRejectRateLimited), nil
	}

	// 2. existence
	promo, err := v.store.FindByCode(ctx, code)
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeNotFound {
			return v.reject(ctx, code, input, enums.PromoRejectNotFound), nil
		}
		return ValidationResult{}, err
	}

	// 3. active flag
	if !promo.Active {
		return v.reject(ctx, code, input, enums.PromoRejectInactive), nil
	}

	// 4. time window
	if now.Before(promo.ValidFrom) {
		return v.reject(ctx, code, input, enums.PromoRejectNotYetValid), nil
	}
	if promo.ValidUntil != nil && now.After(*promo.ValidUntil) {
		return v.reject(ctx, code, input, enums.PromoRejectExpired), nil
	}

	// 5. total usage cap
	if promo.MaxUsesTotal != nil {
		used, err := v.store.CountSuccessfulUsage(ctx, promo.ID)
		if err != nil {
			return ValidationResult{}, err
		}
		if used >= int64(*promo.MaxUsesTotal) {
			return v.reject(ctx, code, input, enums.PromoRejectExhaustedTotal), nil
		}
	}

	// 6. per-caller cap
	usedByCaller, err := v.store.CountSuccessfulUsageByCaller(ctx, promo.ID, input.CallerID)
	if err != nil {
		return ValidationResult{}, err
	}
	if usedByCaller >= int64(promo.MaxUsesPerCaller) {
		return v.reject(ctx, code, input, enums.PromoRejectExhaustedPerCaller), nil
	}

	// 7. minimum order amount
	subtotal := cart.SubtotalOf(input.Lines)
	if subtotal.LessThan(money.FromDecimal(promo.MinOrderAmount)) {
		return v.reject(ctx, code, input, enums.PromoRejectBelowMinimum), nil
	}

	// 8. category eligibility
	if len(promo.AllowedCategoryIDs) > 0 && !anyLineInCategories(input.Lines, promo) {
		return v.reject(ctx, code, input, enums.PromoRejectCategoryMismatch), nil
	}

	// 9. discount by kind, always within [0, subtotal]
	discount := v.computeDiscount(promo, subtotal)

	result := ValidationResult{
		Valid:          true,
		Promo:          promo,
		DiscountAmount: discount,
	}
	if promo.Kind == enums.PromoKindGift && promo.GiftProductID != nil {
		gift := *promo.GiftProductID
		result.GiftProductID = &gift
	}

	// 10. audit the success
	v.logAttempt(ctx, code, input, true, nil)
	if v.checkoutMx != nil {
		v.checkoutMx.IncPromoAttempt("success")
	}
	v.logg.Info(ctx, "promo.validate.accepted")
	return result, nil
}

func (v *validator) computeDiscount(promo *models.PromoCode, subtotal money.Amount) money.Amount {
	switch promo.Kind {
	case enums.PromoKindFixed:
		return money.Min(money.FromDecimal(promo.DiscountValue), subtotal).ClampNonNegative()
	case enums.PromoKindPercentage:
		discount := subtotal.Percent(promo.DiscountValue)
		if !v.maxPercentCeiling.IsZero() {
			discount = money.Min(discount, v.maxPercentCeiling)
		}
		return money.Min(discount, subtotal).ClampNonNegative()
	default:
		// gift and free shipping carry no monetary discount
		return money.Zero
	}
}

func (v *validator) reject(ctx context.Context, code string, input ValidateInput, reason enums.PromoRejectReason) ValidationResult {
	v.logAttempt(ctx, code, input, false, &reason)
	if v.checkoutMx != nil {
		v.checkoutMx.IncPromoAttempt(reason.String())
	}
	v.logg.Info(v.logg.WithField(ctx, "reason", reason.String()), "promo.validate.rejected")
	return ValidationResult{Valid: false, Reason: reason}
}

// logAttempt appends the audit row. The audit trail is best-effort: a
// failed insert is logged but never changes the decision.
func (v *validator) logAttempt(ctx context.Context, code string, input ValidateInput, success bool, reason *enums.PromoRejectReason) {
	attempt := &models.PromoAttempt{
		Code:     code,
		CallerID: input.CallerID,
		Success:  success,
	}
	if input.CallerAddr != "" {
		addr := input.CallerAddr
		attempt.CallerAddr = &addr
	}
	if reason != nil {
		r := *reason
		attempt.FailureReason = &r
	}
	if err := v.store.InsertAttempt(ctx, attempt); err != nil {
		v.logg.Error(ctx, "promo.attempt.audit_failed", err)
	}
}

func anyLineInCategories(lines []cart.Line, promo *models.PromoCode) bool {
	for _, line := range lines {
		if promo.AllowedCategoryIDs.Contains(line.CategoryID) {
			return true
		}
	}
	return false
}
