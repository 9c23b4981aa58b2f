package cart

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/olekdev/tackleshop-backend/internal/catalog"
	pkgerrors "github.com/olekdev/tackleshop-backend/pkg/errors"
	"github.com/olekdev/tackleshop-backend/pkg/logger"
	"github.com/olekdev/tackleshop-backend/pkg/money"
)

// DefaultUndoTTL is how long an undo record stays replayable.
const DefaultUndoTTL = 5 * time.Second

// Store is the authoritative set of cart lines for one browsing session.
// One instance exists per session; callers are expected to issue mutations
// sequentially. The mutex exists because the undo-expiry timer fires on its
// own goroutine, not to support concurrent callers.
type Store struct {
	mu sync.Mutex

	sessionID string
	lines     []Line

	undo           *UndoRecord
	undoTimer      *time.Timer
	undoGeneration uint64
	undoTTL        time.Duration

	persist LineStore
	catalog catalog.Loader
	logg    *logger.Logger

	// set when the last persistence attempt failed; healed by the next
	// successful save
	dirty bool
}

// StoreParams collects the Store dependencies.
type StoreParams struct {
	SessionID string
	Persist   LineStore
	Catalog   catalog.Loader
	Logger    *logger.Logger
	UndoTTL   time.Duration
}

// NewStore builds a Store and replays the last persisted line list.
// A missing or unreadable snapshot loads as an empty cart.
func NewStore(ctx context.Context, params StoreParams) (*Store, error) {
	if params.SessionID == "" {
		return nil, fmt.Errorf("session id required")
	}
	if params.Persist == nil {
		return nil, fmt.Errorf("line store required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog loader required")
	}
	if params.UndoTTL <= 0 {
		params.UndoTTL = DefaultUndoTTL
	}

	lines, err := params.Persist.Load(ctx, params.SessionID)
	if err != nil {
		if params.Logger != nil {
			params.Logger.Error(ctx, "cart.load.failed", err)
		}
		lines = nil
	}

	return &Store{
		sessionID: params.SessionID,
		lines:     lines,
		undoTTL:   params.UndoTTL,
		persist:   params.Persist,
		catalog:   params.Catalog,
		logg:      params.Logger,
	}, nil
}

// AddItemInput identifies the product and quantity being added.
type AddItemInput struct {
	ProductID uuid.UUID
	Quantity  int
}

// AddItem merges the product into the cart, increasing quantity when a line
// already exists. The catalog is consulted for price and stock bounds at
// add time. Exceeding the stock limit rejects without mutating.
func (s *Store) AddItem(ctx context.Context, input AddItemInput) error {
	if input.ProductID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if input.Quantity <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	stock, err := s.catalog.GetProductStock(ctx, input.ProductID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if idx := s.indexOf(input.ProductID); idx >= 0 {
		next := s.lines[idx].Quantity + input.Quantity
		if next > s.lines[idx].StockLimit {
			return stockExceeded(s.lines[idx].StockLimit)
		}
		s.lines[idx].Quantity = next
	} else {
		if input.Quantity > stock.StockQuantity {
			return stockExceeded(stock.StockQuantity)
		}
		line := Line{
			ProductID:  stock.ProductID,
			Name:       stock.Name,
			SKU:        stock.SKU,
			UnitPrice:  money.FromDecimal(stock.Price),
			Quantity:   input.Quantity,
			StockLimit: stock.StockQuantity,
			ImageRef:   stock.ImageURL,
			CategoryID: stock.CategoryID,
		}
		if stock.DiscountPrice != nil {
			discounted := money.FromDecimal(*stock.DiscountPrice)
			line.DiscountUnitPrice = &discounted
		}
		s.lines = append(s.lines, line)
	}

	s.persistLocked(ctx)
	return nil
}

// UpdateQuantity sets the line quantity. Zero or negative removes the line;
// exceeding the stock limit rejects without mutating. Valid updates record
// an undo entry holding the prior quantity.
func (s *Store) UpdateQuantity(ctx context.Context, productID uuid.UUID, quantity int) error {
	if quantity <= 0 {
		return s.RemoveItem(ctx, productID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(productID)
	if idx < 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
	}
	if quantity > s.lines[idx].StockLimit {
		return stockExceeded(s.lines[idx].StockLimit)
	}

	s.setUndoLocked(&UndoRecord{
		Kind:             UndoKindUpdate,
		Line:             s.lines[idx],
		PreviousQuantity: s.lines[idx].Quantity,
	})
	s.lines[idx].Quantity = quantity

	s.persistLocked(ctx)
	return nil
}

// RemoveItem deletes the line and records an undo entry holding the full
// removed line. Removing an absent line is a no-op.
func (s *Store) RemoveItem(ctx context.Context, productID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(productID)
	if idx < 0 {
		return nil
	}

	s.setUndoLocked(&UndoRecord{
		Kind:  UndoKindRemove,
		Line:  s.lines[idx],
		Index: idx,
	})
	s.lines = append(s.lines[:idx], s.lines[idx+1:]...)

	s.persistLocked(ctx)
	return nil
}

// Undo replays the pending record, restoring the removed line or the prior
// quantity, then clears the slot. Calling with an empty slot is a no-op.
func (s *Store) Undo(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.undo == nil {
		return nil
	}
	record := *s.undo
	s.clearUndoLocked()

	switch record.Kind {
	case UndoKindRemove:
		idx := record.Index
		if idx > len(s.lines) {
			idx = len(s.lines)
		}
		s.lines = append(s.lines[:idx], append([]Line{record.Line}, s.lines[idx:]...)...)
	case UndoKindUpdate:
		if idx := s.indexOf(record.Line.ProductID); idx >= 0 {
			s.lines[idx].Quantity = record.PreviousQuantity
		} else {
			restored := record.Line
			restored.Quantity = record.PreviousQuantity
			s.lines = append(s.lines, restored)
		}
	}

	s.persistLocked(ctx)
	return nil
}

// ClearUndo discards the pending record without replaying it.
func (s *Store) ClearUndo() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearUndoLocked()
}

// Clear empties the cart and any pending undo.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lines = nil
	s.clearUndoLocked()

	if err := s.persist.Drop(ctx, s.sessionID); err != nil {
		s.dirty = true
		if s.logg != nil {
			s.logg.Error(ctx, "cart.persist.failed", err)
		}
		return nil
	}
	s.dirty = false
	return nil
}

// Lines returns a copy of the current line list.
func (s *Store) Lines() []Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Line, len(s.lines))
	copy(out, s.lines)
	return out
}

// HasPendingUndo reports whether an undo record is replayable right now.
func (s *Store) HasPendingUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.undo != nil
}

// TotalItemCount sums line quantities.
func (s *Store) TotalItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, line := range s.lines {
		count += line.Quantity
	}
	return count
}

// TotalPrice sums effective line subtotals.
func (s *Store) TotalPrice() money.Amount {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SubtotalOf(s.lines)
}

// Dirty reports whether the in-memory state is ahead of durable storage.
func (s *Store) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// Flush retries persistence for a dirty store.
func (s *Store) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dirty {
		return nil
	}
	if err := s.persist.Save(ctx, s.sessionID, s.lines); err != nil {
		return err
	}
	s.dirty = false
	return nil
}

// Close cancels the undo expiry timer. The store must not be used after.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearUndoLocked()
}

func (s *Store) indexOf(productID uuid.UUID) int {
	for i := range s.lines {
		if s.lines[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// setUndoLocked replaces any pending record and re-arms the expiry timer.
func (s *Store) setUndoLocked(record *UndoRecord) {
	if s.undoTimer != nil {
		s.undoTimer.Stop()
		s.undoTimer = nil
	}
	s.undoGeneration++
	s.undo = record

	generation := s.undoGeneration
	s.undoTimer = time.AfterFunc(s.undoTTL, func() {
		s.expireUndo(generation)
	})
}

func (s *Store) clearUndoLocked() {
	if s.undoTimer != nil {
		s.undoTimer.Stop()
		s.undoTimer = nil
	}
	s.undoGeneration++
	s.undo = nil
}

// expireUndo drops the record only if the slot has not transitioned since
// the timer was armed.
func (s *Store) expireUndo(generation uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.undoGeneration != generation {
		return
	}
	s.undo = nil
	s.undoTimer = nil
	s.undoGeneration++
}

// persistLocked saves the full line list, tolerating storage failures: the
// in-memory mutation stands, the store is marked dirty, and the next save
// heals it.
func (s *Store) persistLocked(ctx context.Context) {
	if err := s.persist.Save(ctx, s.sessionID, s.lines); err != nil {
		s.dirty = true
		if s.logg != nil {
			s.logg.Error(ctx, "cart.persist.failed", err)
		}
		return
	}
	s.dirty = false
}

func stockExceeded(limit int) error {
	return pkgerrors.New(pkgerrors.CodeStockExceeded, "requested quantity exceeds available stock").
		WithDetails(map[string]any{"stock_limit": limit})
}
