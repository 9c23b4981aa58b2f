package promos

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/olekdev/tackleshop-backend/internal/repo"
	"github.com/olekdev/tackleshop-backend/pkg/db/models"
	pkgerrors "github.com/olekdev/tackleshop-backend/pkg/errors"
)

// Store is the persistence surface the validator needs. Codes are stored
// upper-cased; lookups normalize before comparing.
type Store interface {
	FindByCode(ctx context.Context, code string) (*models.PromoCode, error)
	CountAttemptsSince(ctx context.Context, callerID string, since time.Time) (int64, error)
	CountSuccessfulUsage(ctx context.Context, promoCodeID uuid.UUID) (int64, error)
	CountSuccessfulUsageByCaller(ctx context.Context, promoCodeID uuid.UUID, callerID string) (int64, error)
	InsertAttempt(ctx context.Context, attempt *models.PromoAttempt) error
}

// Repository is the gorm-backed Store.
type Repository struct {
	repo.Base
}

// NewRepository builds a promo repository over the shared connection.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// FindByCode looks the code up after upper-casing it.
func (r *Repository) FindByCode(ctx context.Context, code string) (*models.PromoCode, error) {
	var promo models.PromoCode
	err := r.DB(ctx).Where("code = ?", strings.ToUpper(strings.TrimSpace(code))).First(&promo).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "promo code not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load promo code")
	}
	return &promo, nil
}

// CountAttemptsSince counts every attempt row (success or failure) for the
// caller in the trailing window.
func (r *Repository) CountAttemptsSince(ctx context.Context, callerID string, since time.Time) (int64, error) {
	var count int64
	err := r.DB(ctx).Model(&models.PromoAttempt{}).
		Where("caller_id = ? AND created_at >= ?", callerID, since).
		Count(&count).Error
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count promo attempts")
	}
	return count, nil
}

// CountSuccessfulUsage counts committed redemptions of the code.
func (r *Repository) CountSuccessfulUsage(ctx context.Context, promoCodeID uuid.UUID) (int64, error) {
	var count int64
	err := r.DB(ctx).Model(&models.PromoUsage{}).
		Where("promo_code_id = ? AND success = ?", promoCodeID, true).
		Count(&count).Error
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count promo usage")
	}
	return count, nil
}

// CountSuccessfulUsageByCaller counts committed redemptions of the code by
// one caller.
func (r *Repository) CountSuccessfulUsageByCaller(ctx context.Context, promoCodeID uuid.UUID, callerID string) (int64, error) {
	var count int64
	err := r.DB(ctx).Model(&models.PromoUsage{}).
		Where("promo_code_id = ? AND caller_id = ? AND success = ?", promoCodeID, callerID, true).
		Count(&count).Error
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count promo usage by caller")
	}
	return count, nil
}

// InsertAttempt appends one audit row.
func (r *Repository) InsertAttempt(ctx context.Context, attempt *models.PromoAttempt) error {
	if err := r.DB(ctx).Create(attempt).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert promo attempt")
	}
	return nil
}
