package promos

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/olekdev/tackleshop-backend/internal/cart"
	"github.com/olekdev/tackleshop-backend/pkg/config"
	"github.com/olekdev/tackleshop-backend/pkg/db/models"
	dbtypes "github.com/olekdev/tackleshop-backend/pkg/db/types"
	"github.com/olekdev/tackleshop-backend/pkg/enums"
	pkgerrors "github.com/olekdev/tackleshop-backend/pkg/errors"
	"github.com/olekdev/tackleshop-backend/pkg/logger"
	"github.com/olekdev/tackleshop-backend/pkg/money"
)

type stubStore struct {
	promos       map[string]*models.PromoCode
	attemptCount int64
	totalUsage   int64
	callerUsage  int64
	attempts     []*models.PromoAttempt
}

func (s *stubStore) FindByCode(_ context.Context, code string) (*models.PromoCode, error) {
	promo, ok := s.promos[code]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "promo code not found")
	}
	return promo, nil
}

func (s *stubStore) CountAttemptsSince(_ context.Context, _ string, _ time.Time) (int64, error) {
	return s.attemptCount, nil
}

func (s *stubStore) CountSuccessfulUsage(_ context.Context, _ uuid.UUID) (int64, error) {
	return s.totalUsage, nil
}

func (s *stubStore) CountSuccessfulUsageByCaller(_ context.Context, _ uuid.UUID, _ string) (int64, error) {
	return s.callerUsage, nil
}

func (s *stubStore) InsertAttempt(_ context.Context, attempt *models.PromoAttempt) error {
	s.attempts = append(s.attempts, attempt)
	return nil
}

func testLines(unitPrice string, quantity int) []cart.Line {
	return []cart.Line{{
		ProductID:  uuid.New(),
		Name:       "Braided Line",
		SKU:        "LINE-001",
		UnitPrice:  money.MustFromString(unitPrice),
		Quantity:   quantity,
		StockLimit: 99,
		CategoryID: uuid.New(),
	}}
}

func testPromo(kind enums.PromoKind, value string) *models.PromoCode {
	return &models.PromoCode{
		ID:               uuid.New(),
		Code:             "SEASTART",
		Kind:             kind,
		DiscountValue:    decimal.RequireFromString(value),
		MaxUsesPerCaller: 1,
		ValidFrom:        time.Now().Add(-time.Hour),
		Active:           true,
	}
}

func newTestValidator(t *testing.T, store *stubStore) Validator {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "promos-test"})
	v, err := NewValidator(store, nil, logg, nil, config.PromoConfig{
		RateLimitWindow:   5 * time.Minute,
		RateLimitAttempts: 10,
	})
	if err != nil {
		t.Fatalf("NewValidator: %v", err)
	}
	return v
}

func validate(t *testing.T, v Validator, store *stubStore, code string, lines []cart.Line) ValidationResult {
	t.Helper()
	result, err := v.Validate(context.Background(), ValidateInput{
		Code:     code,
		Lines:    lines,
		CallerID: "caller-1",
	})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	return result
}

func TestValidatePercentageDiscount(t *testing.T) {
	t.Parallel()

	store := &stubStore{promos: map[string]*models.PromoCode{
		"SEASTART": testPromo(enums.PromoKindPercentage, "10"),
	}}
	v := newTestValidator(t, store)

	result := validate(t, v, store, "seastart", testLines("500.00", 2))
	if !result.Valid {
		t.Fatalf("expected valid result, got reason %s", result.Reason)
	}
	if want := money.MustFromString("100.00"); !result.DiscountAmount.Equal(want) {
		t.Fatalf("expected discount %s, got %s", want, result.DiscountAmount)
	}

	// the lowercase lookup still leaves an upper-cased audit row
	if len(store.attempts) != 1 || store.attempts[0].Code != "SEASTART" {
		t.Fatalf("expected one upper-cased attempt row, got %+v", store.attempts)
	}
	if !store.attempts[0].Success {
		t.Fatal("success attempt must be recorded as success")
	}
}

func TestValidateFixedDiscountCappedBySubtotal(t *testing.T) {
	t.Parallel()

	store := &stubStore{promos: map[string]*models.PromoCode{
		"SEASTART": testPromo(enums.PromoKindFixed, "500.00"),
	}}
	v := newTestValidator(t, store)

	result := validate(t, v, store, "SEASTART", testLines("80.00", 2))
	if !result.Valid {
		t.Fatalf("expected valid result, got reason %s", result.Reason)
	}
	if want := money.MustFromString("160.00"); !result.DiscountAmount.Equal(want) {
		t.Fatalf("discount must never exceed subtotal, got %s", result.DiscountAmount)
	}
}

func TestValidatePercentageCeiling(t *testing.T) {
	t.Parallel()

	store := &stubStore{promos: map[string]*models.PromoCode{
		"SEASTART": testPromo(enums.PromoKindPercentage, "50"),
	}}
	logg := logger.New(logger.Options{ServiceName: "promos-test"})
	v, err := NewValidator(store, nil, logg, nil, config.PromoConfig{
		RateLimitWindow:    5 * time.Minute,
		RateLimitAttempts:  10,
		MaxPercentDiscount: "200.00",
	})
	if err != nil {
		t.Fatalf("NewValidator: %v", err)
	}

	result := validate(t, v, store, "SEASTART", testLines("1000.00", 1))
	if want := money.MustFromString("200.00"); !result.DiscountAmount.Equal(want) {
		t.Fatalf("expected ceiling applied, got %s", result.DiscountAmount)
	}
}

func TestValidateRateLimited(t *testing.T) {
	t.Parallel()

	store := &stubStore{
		promos:       map[string]*models.PromoCode{"SEASTART": testPromo(enums.PromoKindFixed, "10")},
		attemptCount: 10,
	}
	v := newTestValidator(t, store)

	result := validate(t, v, store, "SEASTART", testLines("100.00", 1))
	if result.Valid || result.Reason != enums.PromoRejectRateLimited {
		t.Fatalf("expected rate limited, got %+v", result)
	}
	// the refused attempt is itself audited
	if len(store.attempts) != 1 || store.attempts[0].Success {
		t.Fatalf("expected one failure attempt row, got %+v", store.attempts)
	}
}

type stubLimiter struct {
	allowed bool
	err     error
	calls   int
}

func (s *stubLimiter) FixedWindowAllow(_ context.Context, _ string, _ int64, _ time.Duration) (bool, int64, error) {
	s.calls++
	return s.allowed, 0, s.err
}

func TestValidateRateLimitPrefilter(t *testing.T) {
	t.Parallel()

	store := &stubStore{
		promos: map[string]*models.PromoCode{"SEASTART": testPromo(enums.PromoKindFixed, "10")},
	}
	limiter := &stubLimiter{allowed: false}
	logg := logger.New(logger.Options{ServiceName: "promos-test"})
	v, err := NewValidator(store, limiter, logg, nil, config.PromoConfig{
		RateLimitWindow:   5 * time.Minute,
		RateLimitAttempts: 10,
	})
	if err != nil {
		t.Fatalf("NewValidator: %v", err)
	}

	result := validate(t, v, store, "SEASTART", testLines("100.00", 1))
	if result.Valid || result.Reason != enums.PromoRejectRateLimited {
		t.Fatalf("expected rate limited, got %+v", result)
	}
	if limiter.calls != 1 {
		t.Fatalf("expected one limiter call, got %d", limiter.calls)
	}
	if len(store.attempts) != 1 || store.attempts[0].Success {
		t.Fatalf("expected one failure attempt row, got %+v", store.attempts)
	}
}

func TestValidateRateLimitPrefilterFailureFallsThrough(t *testing.T) {
	t.Parallel()

	store := &stubStore{
		promos: map[string]*models.PromoCode{"SEASTART": testPromo(enums.PromoKindFixed, "10")},
	}
	limiter := &stubLimiter{err: errors.New("redis down")}
	logg := logger.New(logger.Options{ServiceName: "promos-test"})
	v, err := NewValidator(store, limiter, logg, nil, config.PromoConfig{
		RateLimitWindow:   5 * time.Minute,
		RateLimitAttempts: 10,
	})
	if err != nil {
		t.Fatalf("NewValidator: %v", err)
	}

	// attempt count stays the deciding check when redis is unreachable
	result := validate(t, v, store, "SEASTART", testLines("100.00", 1))
	if !result.Valid {
		t.Fatalf("expected valid result, got reason %s", result.Reason)
	}
}

func TestValidateRejectionOrder(t *testing.T) {
	t.Parallel()

	future := time.Now().Add(time.Hour)
	past := time.Now().Add(-time.Hour)
	maxTotal := 5

	inactive := testPromo(enums.PromoKindFixed, "10")
	inactive.Active = false

	notYet := testPromo(enums.PromoKindFixed, "10")
	notYet.ValidFrom = future

	expired := testPromo(enums.PromoKindFixed, "10")
	expired.ValidUntil = &past

	exhausted := testPromo(enums.PromoKindFixed, "10")
	exhausted.MaxUsesTotal = &maxTotal

	minimum := testPromo(enums.PromoKindFixed, "10")
	minimum.MinOrderAmount = decimal.RequireFromString("1000.00")

	mismatch := testPromo(enums.PromoKindFixed, "10")
	mismatch.AllowedCategoryIDs = dbtypes.UUIDArray{uuid.New()}

	cases := []struct {
		name   string
		promo  *models.PromoCode
		store  *stubStore
		reason enums.PromoRejectReason
	}{
		{"unknown code", nil, &stubStore{promos: map[string]*models.PromoCode{}}, enums.PromoRejectNotFound},
		{"inactive", inactive, nil, enums.PromoRejectInactive},
		{"not yet valid", notYet, nil, enums.PromoRejectNotYetValid},
		{"expired", expired, nil, enums.PromoRejectExpired},
		{"exhausted total", exhausted, &stubStore{totalUsage: 5}, enums.PromoRejectExhaustedTotal},
		{"exhausted per caller", testPromo(enums.PromoKindFixed, "10"), &stubStore{callerUsage: 1}, enums.PromoRejectExhaustedPerCaller},
		{"below minimum", minimum, nil, enums.PromoRejectBelowMinimum},
		{"category mismatch", mismatch, nil, enums.PromoRejectCategoryMismatch},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			store := tc.store
			if store == nil {
				store = &stubStore{}
			}
			if store.promos == nil {
				store.promos = map[string]*models.PromoCode{}
			}
			if tc.promo != nil {
				store.promos["SEASTART"] = tc.promo
			}
			v := newTestValidator(t, store)

			result := validate(t, v, store, "SEASTART", testLines("100.00", 1))
			if result.Valid {
				t.Fatal("expected rejection")
			}
			if result.Reason != tc.reason {
				t.Fatalf("expected reason %s, got %s", tc.reason, result.Reason)
			}
			if len(store.attempts) != 1 {
				t.Fatalf("every rejection must leave exactly one attempt row, got %d", len(store.attempts))
			}
			if store.attempts[0].FailureReason == nil || *store.attempts[0].FailureReason != tc.reason {
				t.Fatalf("attempt row must carry the reason, got %+v", store.attempts[0])
			}
		})
	}
}

func TestValidateGiftPromo(t *testing.T) {
	t.Parallel()

	giftID := uuid.New()
	promo := testPromo(enums.PromoKindGift, "0")
	promo.GiftProductID = &giftID

	store := &stubStore{promos: map[string]*models.PromoCode{"SEASTART": promo}}
	v := newTestValidator(t, store)

	result := validate(t, v, store, "SEASTART", testLines("250.00", 1))
	if !result.Valid {
		t.Fatalf("expected valid result, got reason %s", result.Reason)
	}
	if !result.DiscountAmount.IsZero() {
		t.Fatalf("gift promos carry no monetary discount, got %s", result.DiscountAmount)
	}
	if result.GiftProductID == nil || *result.GiftProductID != giftID {
		t.Fatalf("expected gift product %s, got %v", giftID, result.GiftProductID)
	}
}

func TestValidateCategoryMatchOnAnyLine(t *testing.T) {
	t.Parallel()

	matching := uuid.New()
	promo := testPromo(enums.PromoKindPercentage, "20")
	promo.AllowedCategoryIDs = dbtypes.UUIDArray{matching}

	lines := testLines("100.00", 1)
	lines = append(lines, cart.Line{
		ProductID:  uuid.New(),
		Name:       "Landing Net",
		SKU:        "NET-001",
		UnitPrice:  money.MustFromString("300.00"),
		Quantity:   1,
		StockLimit: 5,
		CategoryID: matching,
	})

	store := &stubStore{promos: map[string]*models.PromoCode{"SEASTART": promo}}
	v := newTestValidator(t, store)

	result := validate(t, v, store, "SEASTART", lines)
	if !result.Valid {
		t.Fatalf("one matching line suffices, got reason %s", result.Reason)
	}
	// the percentage applies to the whole subtotal, not only matching lines
	if want := money.MustFromString("80.00"); !result.DiscountAmount.Equal(want) {
		t.Fatalf("expected discount %s, got %s", want, result.DiscountAmount)
	}
}
