package cart

import (
	"github.com/google/uuid"

	"github.com/olekdev/tackleshop-backend/pkg/money"
)

// Line is one cart position. Lines are owned exclusively by the Store:
// created on add, mutated on quantity change, removed on delete-to-zero.
type Line struct {
	ProductID         uuid.UUID     `json:"product_id"`
	Name              string        `json:"name"`
	SKU               string        `json:"sku"`
	UnitPrice         money.Amount  `json:"unit_price"`
	DiscountUnitPrice *money.Amount `json:"discount_unit_price,omitempty"`
	Quantity          int           `json:"quantity"`
	StockLimit        int           `json:"stock_limit"`
	ImageRef          *string       `json:"image_ref,omitempty"`
	CategoryID        uuid.UUID     `json:"category_id"`
}

// EffectiveUnitPrice returns the discount price when set, the list price
// otherwise.
func (l Line) EffectiveUnitPrice() money.Amount {
	if l.DiscountUnitPrice != nil {
		return *l.DiscountUnitPrice
	}
	return l.UnitPrice
}

// Subtotal is the effective unit price times quantity.
func (l Line) Subtotal() money.Amount {
	return l.EffectiveUnitPrice().MulInt(l.Quantity)
}

// SubtotalOf sums line subtotals across the snapshot.
func SubtotalOf(lines []Line) money.Amount {
	total := money.Zero
	for _, line := range lines {
		total = total.Add(line.Subtotal())
	}
	return total
}
