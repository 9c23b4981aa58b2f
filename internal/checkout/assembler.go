package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/olekdev/tackleshop-backend/internal/cart"
	"github.com/olekdev/tackleshop-backend/internal/catalog"
	"github.com/olekdev/tackleshop-backend/internal/notifications"
	"github.com/olekdev/tackleshop-backend/internal/orders"
	"github.com/olekdev/tackleshop-backend/pkg/db/models"
	"github.com/olekdev/tackleshop-backend/pkg/enums"
	pkgerrors "github.com/olekdev/tackleshop-backend/pkg/errors"
	"github.com/olekdev/tackleshop-backend/pkg/logger"
	"github.com/olekdev/tackleshop-backend/pkg/metrics"
	"github.com/olekdev/tackleshop-backend/pkg/money"
)

// notifyTimeout bounds the post-commit notification attempt; checkout has
// already answered by then.
const notifyTimeout = 15 * time.Second

// txRunner abstracts the database client's transaction helper.
type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// AppliedPromo is a validated promo with its precomputed discount, produced
// by the promos validator before checkout begins.
type AppliedPromo struct {
	Promo          *models.PromoCode
	DiscountAmount money.Amount
	GiftProductID  *uuid.UUID
}

// CustomerInput is the buyer-supplied part of an order.
type CustomerInput struct {
	Name           string
	Phone          string
	Email          *string
	ShippingCity   string
	ShippingOffice string
	Comment        *string
}

// AssembleInput is a finalized cart snapshot plus everything needed to
// persist an order.
type AssembleInput struct {
	SessionID    string
	CallerID     string
	Lines        []cart.Line
	Applied      []AppliedPromo
	Customer     CustomerInput
	ShippingCost money.Amount
}

// Assembler turns a cart snapshot into a persisted order.
type Assembler interface {
	Assemble(ctx context.Context, input AssembleInput) (*models.Order, error)
}

type assembler struct {
	tx         txRunner
	catalog    catalog.Loader
	sender     notifications.Sender
	logg       *logger.Logger
	checkoutMx *metrics.CheckoutMetrics
	currency   enums.Currency
}

// AssemblerParams collects the assembler dependencies.
type AssemblerParams struct {
	Tx       txRunner
	Catalog  catalog.Loader
	Sender   notifications.Sender
	Logger   *logger.Logger
	Metrics  *metrics.CheckoutMetrics
	Currency enums.Currency
}

// NewAssembler wires the order assembly pipeline.
func NewAssembler(params AssemblerParams) (Assembler, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog loader required")
	}
	if params.Sender == nil {
		return nil, fmt.Errorf("notification sender required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Currency == "" {
		params.Currency = enums.CurrencyUAH
	}
	return &assembler{
		tx:         params.Tx,
		catalog:    params.Catalog,
		sender:     params.Sender,
		logg:       params.Logger,
		checkoutMx: params.Metrics,
		currency:   params.Currency,
	}, nil
}

// Assemble validates the snapshot, persists order, items and promo usage in
// one transaction, then fires exactly one notification attempt.
func (a *assembler) Assemble(ctx context.Context, input AssembleInput) (*models.Order, error) {
	if len(input.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	if err := checkStacking(input.Applied); err != nil {
		return nil, err
	}

	order, err := a.buildOrder(ctx, input)
	if err != nil {
		return nil, err
	}

	err = a.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := orders.NewRepository(tx).Create(ctx, order); err != nil {
			return err
		}
		for _, applied := range input.Applied {
			if err := bumpUsedCount(tx, applied.Promo); err != nil {
				return err
			}
			usage := &models.PromoUsage{
				ID:             uuid.New(),
				PromoCodeID:    applied.Promo.ID,
				CallerID:       input.CallerID,
				OrderID:        &order.ID,
				DiscountAmount: applied.DiscountAmount.Decimal(),
				Success:        true,
			}
			if err := tx.Create(usage).Error; err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert promo usage")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if a.checkoutMx != nil {
		a.checkoutMx.IncOrderCreated()
	}
	a.logg.Info(a.logg.WithOrderID(ctx, order.ID.String()), "checkout.order.created")

	go a.notify(order)

	return order, nil
}

// checkStacking enforces the precondition that several promos may only be
// combined when every one of them allows it.
func checkStacking(applied []AppliedPromo) error {
	if len(applied) <= 1 {
		return nil
	}
	for _, p := range applied {
		if !p.Promo.AllowMultiple {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "promo code cannot be combined with others").
				WithDetails(map[string]any{"code": p.Promo.Code})
		}
	}
	return nil
}

func (a *assembler) buildOrder(ctx context.Context, input AssembleInput) (*models.Order, error) {
	items := make([]models.OrderItem, 0, len(input.Lines)+1)
	for _, line := range input.Lines {
		item := models.OrderItem{
			ID:        uuid.New(),
			ProductID: line.ProductID,
			Name:      line.Name,
			SKU:       line.SKU,
			UnitPrice: line.UnitPrice.Decimal(),
			Quantity:  line.Quantity,
			Subtotal:  line.Subtotal().Decimal(),
		}
		if line.DiscountUnitPrice != nil {
			d := line.DiscountUnitPrice.Decimal()
			item.DiscountUnitPrice = &d
		}
		items = append(items, item)
	}

	subtotal := cart.SubtotalOf(input.Lines)
	discount := money.Zero
	shipping := input.ShippingCost
	codes := make([]string, 0, len(input.Applied))

	for _, applied := range input.Applied {
		codes = append(codes, applied.Promo.Code)
		discount = discount.Add(applied.DiscountAmount)

		switch applied.Promo.Kind {
		case enums.PromoKindFreeShipping:
			shipping = money.Zero
		case enums.PromoKindGift:
			gift, err := a.giftItem(ctx, applied)
			if err != nil {
				return nil, err
			}
			items = append(items, *gift)
		}
	}

	total := subtotal.Sub(discount).ClampNonNegative().Add(shipping)

	return &models.Order{
		ID:             uuid.New(),
		SessionID:      input.SessionID,
		Status:         enums.OrderStatusNew,
		Currency:       a.currency,
		CustomerName:   input.Customer.Name,
		CustomerPhone:  input.Customer.Phone,
		CustomerEmail:  input.Customer.Email,
		ShippingCity:   input.Customer.ShippingCity,
		ShippingOffice: input.Customer.ShippingOffice,
		Comment:        input.Customer.Comment,
		Subtotal:       subtotal.Decimal(),
		DiscountAmount: discount.Decimal(),
		ShippingCost:   shipping.Decimal(),
		Total:          total.Decimal(),
		PromoCodes:     codes,
		Items:          items,
	}, nil
}

// giftItem snapshots the gift product as a zero-priced order line.
func (a *assembler) giftItem(ctx context.Context, applied AppliedPromo) (*models.OrderItem, error) {
	giftID := applied.GiftProductID
	if giftID == nil {
		giftID = applied.Promo.GiftProductID
	}
	if giftID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gift promo has no gift product")
	}
	product, err := a.catalog.GetProductStock(ctx, *giftID)
	if err != nil {
		return nil, err
	}
	zero := money.Zero.Decimal()
	return &models.OrderItem{
		ID:                uuid.New(),
		ProductID:         product.ProductID,
		Name:              product.Name,
		SKU:               product.SKU,
		UnitPrice:         product.Price,
		DiscountUnitPrice: &zero,
		Quantity:          1,
		Subtotal:          money.Zero.Decimal(),
		IsGift:            true,
	}, nil
}

// bumpUsedCount increments the promo's counter only while the total cap
// still holds. Zero rows affected means another checkout took the last use;
// the transaction rolls back.
func bumpUsedCount(tx *gorm.DB, promo *models.PromoCode) error {
	result := tx.Model(&models.PromoCode{}).
		Where("id = ? AND (max_uses_total IS NULL OR used_count < max_uses_total)", promo.ID).
		Update("used_count", gorm.Expr("used_count + 1"))
	if result.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, result.Error, "increment promo usage")
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "promo code is exhausted").
			WithDetails(map[string]any{"code": promo.Code})
	}
	return nil
}

func (a *assembler) notify(order *models.Order) {
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()

	summary := summarize(order)
	if err := a.sender.Notify(ctx, summary); err != nil {
		if a.checkoutMx != nil {
			a.checkoutMx.IncNotificationFailure()
		}
		a.logg.Error(a.logg.WithOrderID(ctx, order.ID.String()), "checkout.notify.failed", err)
	}
}

func summarize(order *models.Order) notifications.OrderSummary {
	summary := notifications.OrderSummary{
		OrderID:        order.ID.String(),
		CustomerName:   order.CustomerName,
		CustomerPhone:  order.CustomerPhone,
		ShippingCity:   order.ShippingCity,
		ShippingOffice: order.ShippingOffice,
		PromoCodes:     order.PromoCodes,
		Subtotal:       money.FromDecimal(order.Subtotal),
		DiscountAmount: money.FromDecimal(order.DiscountAmount),
		ShippingCost:   money.FromDecimal(order.ShippingCost),
		Total:          money.FromDecimal(order.Total),
		CreatedAt:      order.CreatedAt,
	}
	if order.Comment != nil {
		summary.Comment = *order.Comment
	}
	for _, item := range order.Items {
		summary.Items = append(summary.Items, notifications.ItemSummary{
			Name:      item.Name,
			SKU:       item.SKU,
			Quantity:  item.Quantity,
			UnitPrice: money.FromDecimal(item.UnitPrice),
			Subtotal:  money.FromDecimal(item.Subtotal),
			IsGift:    item.IsGift,
		})
	}
	return summary
}
