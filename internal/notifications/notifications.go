package notifications

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/olekdev/tackleshop-backend/pkg/money"
)

// OrderSummary is the flattened view of a freshly created order sent to the
// back office.
type OrderSummary struct {
	OrderID        string
	CustomerName   string
	CustomerPhone  string
	ShippingCity   string
	ShippingOffice string
	Comment        string
	Items          []ItemSummary
	PromoCodes     []string
	Subtotal       money.Amount
	DiscountAmount money.Amount
	ShippingCost   money.Amount
	Total          money.Amount
	CreatedAt      time.Time
}

// ItemSummary is one order line in the summary.
type ItemSummary struct {
	Name      string
	SKU       string
	Quantity  int
	UnitPrice money.Amount
	Subtotal  money.Amount
	IsGift    bool
}

// Sender delivers one order summary. Implementations must be safe to call
// from the checkout path's fire-and-forget goroutine.
type Sender interface {
	Notify(ctx context.Context, summary OrderSummary) error
}

// FormatText renders the summary as the plain-text message the webhook
// delivers.
func FormatText(summary OrderSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Order %s\n", summary.OrderID)
	fmt.Fprintf(&b, "%s, %s\n", summary.CustomerName, summary.CustomerPhone)
	fmt.Fprintf(&b, "Delivery: %s, office %s\n", summary.ShippingCity, summary.ShippingOffice)
	if summary.Comment != "" {
		fmt.Fprintf(&b, "Comment: %s\n", summary.Comment)
	}
	b.WriteString("\n")
	for _, item := range summary.Items {
		if item.IsGift {
			fmt.Fprintf(&b, "- %s (%s) x%d - gift\n", item.Name, item.SKU, item.Quantity)
			continue
		}
		fmt.Fprintf(&b, "- %s (%s) x%d @ %s = %s\n", item.Name, item.SKU, item.Quantity, item.UnitPrice, item.Subtotal)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "Subtotal: %s\n", summary.Subtotal)
	if len(summary.PromoCodes) > 0 {
		fmt.Fprintf(&b, "Promo codes: %s (-%s)\n", strings.Join(summary.PromoCodes, ", "), summary.DiscountAmount)
	}
	fmt.Fprintf(&b, "Shipping: %s\n", summary.ShippingCost)
	fmt.Fprintf(&b, "Total: %s\n", summary.Total)
	return b.String()
}
