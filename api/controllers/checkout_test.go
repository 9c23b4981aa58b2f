package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/olekdev/tackleshop-backend/internal/checkout"
	"github.com/olekdev/tackleshop-backend/internal/promos"
	"github.com/olekdev/tackleshop-backend/pkg/db/models"
	"github.com/olekdev/tackleshop-backend/pkg/enums"
	"github.com/olekdev/tackleshop-backend/pkg/money"
)

type stubAssembler struct {
	order     *models.Order
	err       error
	lastInput checkout.AssembleInput
}

func (s *stubAssembler) Assemble(_ context.Context, input checkout.AssembleInput) (*models.Order, error) {
	s.lastInput = input
	return s.order, s.err
}

func sampleOrder() *models.Order {
	return &models.Order{
		ID:             uuid.New(),
		SessionID:      "sess-ctrl",
		Status:         enums.OrderStatusNew,
		Currency:       enums.CurrencyUAH,
		Subtotal:       decimal.RequireFromString("1000.00"),
		DiscountAmount: decimal.RequireFromString("100.00"),
		ShippingCost:   decimal.RequireFromString("80.00"),
		Total:          decimal.RequireFromString("980.00"),
	}
}

const checkoutBody = `{
  "customer_name": "Taras Melnyk",
  "customer_phone": "+380931234567",
  "shipping_city": "Odesa",
  "shipping_office": "3",
  "promo_codes": ["SEASTART"],
  "shipping_cost": "80.00"
}`

func TestCheckoutSuccess(t *testing.T) {
	assembler := &stubAssembler{order: sampleOrder()}
	validator := &stubValidator{result: promos.ValidationResult{
		Valid:          true,
		Promo:          &models.PromoCode{ID: uuid.New(), Code: "SEASTART", Kind: enums.PromoKindFixed},
		DiscountAmount: money.MustFromString("100.00"),
	}}
	carts := &stubCartService{snapshot: sampleSnapshot()}
	handler := Checkout(assembler, validator, carts, nil)

	req := withSession(httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(checkoutBody)))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if len(assembler.lastInput.Applied) != 1 || assembler.lastInput.Applied[0].Promo.Code != "SEASTART" {
		t.Fatalf("expected the validated promo to be applied, got %+v", assembler.lastInput.Applied)
	}
	if !assembler.lastInput.ShippingCost.Equal(money.MustFromString("80.00")) {
		t.Fatalf("unexpected shipping cost %s", assembler.lastInput.ShippingCost)
	}
	if !carts.cleared {
		t.Fatal("cart must be cleared after a successful checkout")
	}

	var envelope struct {
		Data checkoutResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Total != "980.00" || envelope.Data.Status != "new" {
		t.Fatalf("unexpected payload: %+v", envelope.Data)
	}
}

func TestCheckoutRejectedPromoStopsCheckout(t *testing.T) {
	assembler := &stubAssembler{order: sampleOrder()}
	validator := &stubValidator{result: promos.ValidationResult{
		Valid:  false,
		Reason: enums.PromoRejectExhaustedTotal,
	}}
	carts := &stubCartService{snapshot: sampleSnapshot()}
	handler := Checkout(assembler, validator, carts, nil)

	req := withSession(httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(checkoutBody)))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if carts.cleared {
		t.Fatal("cart must survive a rejected checkout")
	}
}

func TestCheckoutValidatesCustomer(t *testing.T) {
	handler := Checkout(&stubAssembler{}, &stubValidator{}, &stubCartService{}, nil)

	body := `{"customer_name":"T","customer_phone":"nope","shipping_city":"","shipping_office":""}`
	req := withSession(httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(body)))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCheckoutNegativeShippingCost(t *testing.T) {
	handler := Checkout(&stubAssembler{}, &stubValidator{}, &stubCartService{}, nil)

	body := strings.Replace(checkoutBody, `"80.00"`, `"-5.00"`, 1)
	req := withSession(httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(body)))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
