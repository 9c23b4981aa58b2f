package enums

import "testing"

func TestOrderStatusTransitions(t *testing.T) {
	t.Parallel()

	allowed := []struct{ from, to OrderStatus }{
		{OrderStatusNew, OrderStatusProcessing},
		{OrderStatusProcessing, OrderStatusShipped},
		{OrderStatusShipped, OrderStatusDelivered},
		{OrderStatusNew, OrderStatusCancelled},
		{OrderStatusProcessing, OrderStatusCancelled},
		{OrderStatusShipped, OrderStatusCancelled},
	}
	for _, tt := range allowed {
		if !tt.from.CanTransitionTo(tt.to) {
			t.Fatalf("expected %s -> %s to be allowed", tt.from, tt.to)
		}
	}

	denied := []struct{ from, to OrderStatus }{
		{OrderStatusNew, OrderStatusShipped},
		{OrderStatusNew, OrderStatusDelivered},
		{OrderStatusProcessing, OrderStatusNew},
		{OrderStatusDelivered, OrderStatusCancelled},
		{OrderStatusCancelled, OrderStatusNew},
		{OrderStatusCancelled, OrderStatusProcessing},
	}
	for _, tt := range denied {
		if tt.from.CanTransitionTo(tt.to) {
			t.Fatalf("expected %s -> %s to be denied", tt.from, tt.to)
		}
	}
}

func TestParseOrderStatus(t *testing.T) {
	t.Parallel()

	if got, err := ParseOrderStatus("processing"); err != nil || got != OrderStatusProcessing {
		t.Fatalf("unexpected parse result %v %v", got, err)
	}
	if _, err := ParseOrderStatus("archived"); err == nil {
		t.Fatal("expected error for unknown status")
	}
}
