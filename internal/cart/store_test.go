package cart

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/olekdev/tackleshop-backend/internal/catalog"
	pkgerrors "github.com/olekdev/tackleshop-backend/pkg/errors"
	"github.com/olekdev/tackleshop-backend/pkg/money"
)

type stubCatalog struct {
	products map[uuid.UUID]catalog.ProductStock
}

func (s *stubCatalog) GetProductStock(_ context.Context, id uuid.UUID) (*catalog.ProductStock, error) {
	product, ok := s.products[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return &product, nil
}

type stubLineStore struct {
	saved    [][]Line
	saveErr  error
	dropped  int
	loadInit []Line
}

func (s *stubLineStore) Save(_ context.Context, _ string, lines []Line) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	snapshot := make([]Line, len(lines))
	copy(snapshot, lines)
	s.saved = append(s.saved, snapshot)
	return nil
}

func (s *stubLineStore) Load(_ context.Context, _ string) ([]Line, error) {
	return s.loadInit, nil
}

func (s *stubLineStore) Drop(_ context.Context, _ string) error {
	s.dropped++
	return nil
}

func newTestStore(t *testing.T, products ...catalog.ProductStock) (*Store, *stubLineStore) {
	t.Helper()

	byID := make(map[uuid.UUID]catalog.ProductStock, len(products))
	for _, p := range products {
		byID[p.ProductID] = p
	}
	lineStore := &stubLineStore{}

	store, err := NewStore(context.Background(), StoreParams{
		SessionID: "sess-test",
		Persist:   lineStore,
		Catalog:   &stubCatalog{products: byID},
		UndoTTL:   50 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(store.Close)
	return store, lineStore
}

func testProduct(price string, stock int) catalog.ProductStock {
	return catalog.ProductStock{
		ProductID:     uuid.New(),
		Name:          "Spinning Rod",
		SKU:           "ROD-001",
		Price:         decimal.RequireFromString(price),
		StockQuantity: stock,
		CategoryID:    uuid.New(),
	}
}

func TestAddItemMergesAndEnforcesStock(t *testing.T) {
	t.Parallel()

	product := testProduct("500.00", 3)
	store, _ := newTestStore(t, product)
	ctx := context.Background()

	if err := store.AddItem(ctx, AddItemInput{ProductID: product.ProductID, Quantity: 2}); err != nil {
		t.Fatalf("first add: %v", err)
	}
	if err := store.AddItem(ctx, AddItemInput{ProductID: product.ProductID, Quantity: 1}); err != nil {
		t.Fatalf("second add: %v", err)
	}

	lines := store.Lines()
	if len(lines) != 1 {
		t.Fatalf("expected merged line, got %d lines", len(lines))
	}
	if lines[0].Quantity != 3 {
		t.Fatalf("expected quantity 3, got %d", lines[0].Quantity)
	}

	err := store.AddItem(ctx, AddItemInput{ProductID: product.ProductID, Quantity: 1})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStockExceeded {
		t.Fatalf("expected stock exceeded, got %v", err)
	}
	if store.TotalItemCount() != 3 {
		t.Fatalf("rejected add must not mutate, count=%d", store.TotalItemCount())
	}
}

func TestAddItemUnknownProduct(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	err := store.AddItem(context.Background(), AddItemInput{ProductID: uuid.New(), Quantity: 1})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpdateQuantityBounds(t *testing.T) {
	t.Parallel()

	product := testProduct("120.50", 5)
	store, _ := newTestStore(t, product)
	ctx := context.Background()

	if err := store.AddItem(ctx, AddItemInput{ProductID: product.ProductID, Quantity: 2}); err != nil {
		t.Fatalf("add: %v", err)
	}

	err := store.UpdateQuantity(ctx, product.ProductID, 6)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStockExceeded {
		t.Fatalf("expected stock exceeded, got %v", err)
	}
	if got := store.Lines()[0].Quantity; got != 2 {
		t.Fatalf("rejected update must not mutate, quantity=%d", got)
	}

	if err := store.UpdateQuantity(ctx, product.ProductID, 5); err != nil {
		t.Fatalf("update to limit: %v", err)
	}
	if got := store.Lines()[0].Quantity; got != 5 {
		t.Fatalf("expected quantity 5, got %d", got)
	}
}

func TestUpdateQuantityZeroRemoves(t *testing.T) {
	t.Parallel()

	product := testProduct("75.00", 10)
	store, _ := newTestStore(t, product)
	ctx := context.Background()

	if err := store.AddItem(ctx, AddItemInput{ProductID: product.ProductID, Quantity: 4}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := store.UpdateQuantity(ctx, product.ProductID, 0); err != nil {
		t.Fatalf("update to zero: %v", err)
	}
	if len(store.Lines()) != 0 {
		t.Fatalf("expected empty cart")
	}

	// zero-update behaves exactly like remove: the line is replayable
	if err := store.Undo(ctx); err != nil {
		t.Fatalf("undo: %v", err)
	}
	lines := store.Lines()
	if len(lines) != 1 || lines[0].Quantity != 4 {
		t.Fatalf("undo must restore the removed line, got %+v", lines)
	}
}

func TestRemoveThenUndoRestoresLine(t *testing.T) {
	t.Parallel()

	product := testProduct("310.00", 8)
	store, _ := newTestStore(t, product)
	ctx := context.Background()

	if err := store.AddItem(ctx, AddItemInput{ProductID: product.ProductID, Quantity: 3}); err != nil {
		t.Fatalf("add: %v", err)
	}
	before := store.Lines()[0]

	if err := store.RemoveItem(ctx, product.ProductID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if !store.HasPendingUndo() {
		t.Fatal("expected pending undo after remove")
	}
	if err := store.Undo(ctx); err != nil {
		t.Fatalf("undo: %v", err)
	}

	after := store.Lines()
	if len(after) != 1 {
		t.Fatalf("expected restored line, got %d lines", len(after))
	}
	if after[0] != before {
		t.Fatalf("restored line differs: %+v vs %+v", after[0], before)
	}
}

func TestUndoRestoresRemovedLinePosition(t *testing.T) {
	t.Parallel()

	rod := testProduct("500.00", 5)
	reel := testProduct("320.00", 5)
	lure := testProduct("45.00", 5)
	store, _ := newTestStore(t, rod, reel, lure)
	ctx := context.Background()

	for _, p := range []catalog.ProductStock{rod, reel, lure} {
		if err := store.AddItem(ctx, AddItemInput{ProductID: p.ProductID, Quantity: 1}); err != nil {
			t.Fatalf("add %s: %v", p.SKU, err)
		}
	}
	before := store.Lines()

	if err := store.RemoveItem(ctx, reel.ProductID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := store.Undo(ctx); err != nil {
		t.Fatalf("undo: %v", err)
	}

	after := store.Lines()
	if len(after) != len(before) {
		t.Fatalf("expected %d lines, got %d", len(before), len(after))
	}
	for i := range before {
		if after[i] != before[i] {
			t.Fatalf("line %d differs after undo: got %s, want %s",
				i, after[i].ProductID, before[i].ProductID)
		}
	}
}

func TestUndoIsSingleShot(t *testing.T) {
	t.Parallel()

	product := testProduct("60.00", 9)
	store, _ := newTestStore(t, product)
	ctx := context.Background()

	if err := store.AddItem(ctx, AddItemInput{ProductID: product.ProductID, Quantity: 2}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := store.UpdateQuantity(ctx, product.ProductID, 5); err != nil {
		t.Fatalf("update: %v", err)
	}

	if err := store.Undo(ctx); err != nil {
		t.Fatalf("undo: %v", err)
	}
	if got := store.Lines()[0].Quantity; got != 2 {
		t.Fatalf("expected quantity restored to 2, got %d", got)
	}

	// second undo replays nothing
	if err := store.Undo(ctx); err != nil {
		t.Fatalf("second undo: %v", err)
	}
	if got := store.Lines()[0].Quantity; got != 2 {
		t.Fatalf("second undo must be a no-op, quantity=%d", got)
	}
}

func TestUndoExpires(t *testing.T) {
	t.Parallel()

	product := testProduct("42.00", 6)
	store, _ := newTestStore(t, product)
	ctx := context.Background()

	if err := store.AddItem(ctx, AddItemInput{ProductID: product.ProductID, Quantity: 2}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := store.RemoveItem(ctx, product.ProductID); err != nil {
		t.Fatalf("remove: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for store.HasPendingUndo() {
		if time.Now().After(deadline) {
			t.Fatal("undo record never expired")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if err := store.Undo(ctx); err != nil {
		t.Fatalf("undo after expiry: %v", err)
	}
	if len(store.Lines()) != 0 {
		t.Fatal("expired undo must not restore the line")
	}
}

func TestNewMutationReplacesUndo(t *testing.T) {
	t.Parallel()

	rod := testProduct("500.00", 5)
	reel := testProduct("900.00", 5)
	reel.SKU = "REEL-001"
	store, _ := newTestStore(t, rod, reel)
	ctx := context.Background()

	for _, p := range []uuid.UUID{rod.ProductID, reel.ProductID} {
		if err := store.AddItem(ctx, AddItemInput{ProductID: p, Quantity: 2}); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	if err := store.RemoveItem(ctx, rod.ProductID); err != nil {
		t.Fatalf("remove rod: %v", err)
	}
	if err := store.UpdateQuantity(ctx, reel.ProductID, 4); err != nil {
		t.Fatalf("update reel: %v", err)
	}

	// only the most recent mutation is replayable; the rod stays gone
	if err := store.Undo(ctx); err != nil {
		t.Fatalf("undo: %v", err)
	}
	lines := store.Lines()
	if len(lines) != 1 {
		t.Fatalf("expected single line, got %d", len(lines))
	}
	if lines[0].ProductID != reel.ProductID || lines[0].Quantity != 2 {
		t.Fatalf("expected reel restored to 2, got %+v", lines[0])
	}
}

func TestTotalPriceUsesDiscountPrice(t *testing.T) {
	t.Parallel()

	full := testProduct("500.00", 10)
	discounted := testProduct("200.00", 10)
	discounted.SKU = "LURE-001"
	cut := decimal.RequireFromString("150.00")
	discounted.DiscountPrice = &cut

	store, _ := newTestStore(t, full, discounted)
	ctx := context.Background()

	if err := store.AddItem(ctx, AddItemInput{ProductID: full.ProductID, Quantity: 2}); err != nil {
		t.Fatalf("add full: %v", err)
	}
	if err := store.AddItem(ctx, AddItemInput{ProductID: discounted.ProductID, Quantity: 3}); err != nil {
		t.Fatalf("add discounted: %v", err)
	}

	want := money.MustFromString("1450.00")
	if got := store.TotalPrice(); !got.Equal(want) {
		t.Fatalf("expected total %s, got %s", want, got)
	}
	if store.TotalItemCount() != 5 {
		t.Fatalf("expected 5 items, got %d", store.TotalItemCount())
	}
}

func TestPersistFailureKeepsMutation(t *testing.T) {
	t.Parallel()

	product := testProduct("80.00", 4)
	store, lineStore := newTestStore(t, product)
	ctx := context.Background()

	lineStore.saveErr = errors.New("redis down")
	if err := store.AddItem(ctx, AddItemInput{ProductID: product.ProductID, Quantity: 2}); err != nil {
		t.Fatalf("add with failing store: %v", err)
	}
	if store.TotalItemCount() != 2 {
		t.Fatal("mutation must survive a persistence failure")
	}
	if !store.Dirty() {
		t.Fatal("store must be marked dirty")
	}

	lineStore.saveErr = nil
	if err := store.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if store.Dirty() {
		t.Fatal("flush must clear the dirty flag")
	}
	if len(lineStore.saved) == 0 {
		t.Fatal("expected a saved snapshot after flush")
	}
}

func TestClearDropsEverything(t *testing.T) {
	t.Parallel()

	product := testProduct("99.99", 7)
	store, lineStore := newTestStore(t, product)
	ctx := context.Background()

	if err := store.AddItem(ctx, AddItemInput{ProductID: product.ProductID, Quantity: 1}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := store.RemoveItem(ctx, product.ProductID); err != nil {
		t.Fatalf("remove: %v", err)
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if store.HasPendingUndo() {
		t.Fatal("clear must discard the undo record")
	}
	if lineStore.dropped != 1 {
		t.Fatalf("expected one drop call, got %d", lineStore.dropped)
	}
}

func TestNewStoreReplaysPersistedLines(t *testing.T) {
	t.Parallel()

	product := testProduct("10.00", 5)
	lineStore := &stubLineStore{loadInit: []Line{{
		ProductID:  product.ProductID,
		Name:       product.Name,
		SKU:        product.SKU,
		UnitPrice:  money.MustFromString("10.00"),
		Quantity:   2,
		StockLimit: 5,
		CategoryID: product.CategoryID,
	}}}

	store, err := NewStore(context.Background(), StoreParams{
		SessionID: "sess-replay",
		Persist:   lineStore,
		Catalog:   &stubCatalog{},
	})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(store.Close)

	if store.TotalItemCount() != 2 {
		t.Fatalf("expected replayed quantity 2, got %d", store.TotalItemCount())
	}
}
