package cart

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/olekdev/tackleshop-backend/internal/catalog"
	"github.com/olekdev/tackleshop-backend/pkg/config"
	"github.com/olekdev/tackleshop-backend/pkg/logger"
	"github.com/olekdev/tackleshop-backend/pkg/money"
)

// storeIdleTTL bounds how long an untouched store (and its undo slot) is
// kept in memory. Lines survive eviction through redis.
const storeIdleTTL = 30 * time.Minute

// Service exposes cart operations keyed by session ID.
type Service interface {
	AddItem(ctx context.Context, sessionID string, input AddItemInput) (Snapshot, error)
	UpdateQuantity(ctx context.Context, sessionID string, productID uuid.UUID, quantity int) (Snapshot, error)
	RemoveItem(ctx context.Context, sessionID string, productID uuid.UUID) (Snapshot, error)
	Undo(ctx context.Context, sessionID string) (Snapshot, error)
	Clear(ctx context.Context, sessionID string) error
	Get(ctx context.Context, sessionID string) (Snapshot, error)
	Close()
}

// Snapshot is the read view handed to the HTTP layer and the checkout
// assembler.
type Snapshot struct {
	Lines      []Line       `json:"lines"`
	ItemCount  int          `json:"item_count"`
	TotalPrice money.Amount `json:"total_price"`
	CanUndo    bool         `json:"can_undo"`
}

type service struct {
	mu     sync.Mutex
	stores map[string]*storeEntry

	persist LineStore
	catalog catalog.Loader
	logg    *logger.Logger
	cfg     config.CartConfig

	done chan struct{}
	once sync.Once
}

type storeEntry struct {
	store    *Store
	lastSeen time.Time
}

// NewService builds the session-keyed cart service and starts its idle
// sweeper.
func NewService(persist LineStore, loader catalog.Loader, logg *logger.Logger, cfg config.CartConfig) (Service, error) {
	if persist == nil {
		return nil, fmt.Errorf("line store required")
	}
	if loader == nil {
		return nil, fmt.Errorf("catalog loader required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}

	s := &service{
		stores:  make(map[string]*storeEntry),
		persist: persist,
		catalog: loader,
		logg:    logg,
		cfg:     cfg,
		done:    make(chan struct{}),
	}
	go s.sweepIdle()
	return s, nil
}

func (s *service) AddItem(ctx context.Context, sessionID string, input AddItemInput) (Snapshot, error) {
	store, err := s.storeFor(ctx, sessionID)
	if err != nil {
		return Snapshot{}, err
	}
	if err := store.AddItem(ctx, input); err != nil {
		return Snapshot{}, err
	}
	return snapshotOf(store), nil
}

func (s *service) UpdateQuantity(ctx context.Context, sessionID string, productID uuid.UUID, quantity int) (Snapshot, error) {
	store, err := s.storeFor(ctx, sessionID)
	if err != nil {
		return Snapshot{}, err
	}
	if err := store.UpdateQuantity(ctx, productID, quantity); err != nil {
		return Snapshot{}, err
	}
	return snapshotOf(store), nil
}

func (s *service) RemoveItem(ctx context.Context, sessionID string, productID uuid.UUID) (Snapshot, error) {
	store, err := s.storeFor(ctx, sessionID)
	if err != nil {
		return Snapshot{}, err
	}
	if err := store.RemoveItem(ctx, productID); err != nil {
		return Snapshot{}, err
	}
	return snapshotOf(store), nil
}

func (s *service) Undo(ctx context.Context, sessionID string) (Snapshot, error) {
	store, err := s.storeFor(ctx, sessionID)
	if err != nil {
		return Snapshot{}, err
	}
	if err := store.Undo(ctx); err != nil {
		return Snapshot{}, err
	}
	return snapshotOf(store), nil
}

func (s *service) Clear(ctx context.Context, sessionID string) error {
	store, err := s.storeFor(ctx, sessionID)
	if err != nil {
		return err
	}
	return store.Clear(ctx)
}

func (s *service) Get(ctx context.Context, sessionID string) (Snapshot, error) {
	store, err := s.storeFor(ctx, sessionID)
	if err != nil {
		return Snapshot{}, err
	}
	return snapshotOf(store), nil
}

// Close stops the sweeper and releases every store's timer.
func (s *service) Close() {
	s.once.Do(func() { close(s.done) })

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, entry := range s.stores {
		entry.store.Close()
		delete(s.stores, id)
	}
}

// storeFor returns the live store for the session, rebuilding it from the
// persisted line list when the session has no in-memory store yet.
func (s *service) storeFor(ctx context.Context, sessionID string) (*Store, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.stores[sessionID]; ok {
		entry.lastSeen = time.Now()
		return entry.store, nil
	}

	store, err := NewStore(ctx, StoreParams{
		SessionID: sessionID,
		Persist:   s.persist,
		Catalog:   s.catalog,
		Logger:    s.logg,
		UndoTTL:   s.cfg.UndoTTL,
	})
	if err != nil {
		return nil, err
	}
	s.stores[sessionID] = &storeEntry{store: store, lastSeen: time.Now()}
	return store, nil
}

func (s *service) sweepIdle() {
	ticker := time.NewTicker(storeIdleTTL / 2)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-storeIdleTTL)
			s.mu.Lock()
			for id, entry := range s.stores {
				if entry.lastSeen.Before(cutoff) {
					entry.store.Close()
					delete(s.stores, id)
				}
			}
			s.mu.Unlock()
		}
	}
}

func snapshotOf(store *Store) Snapshot {
	return Snapshot{
		Lines:      store.Lines(),
		ItemCount:  store.TotalItemCount(),
		TotalPrice: store.TotalPrice(),
		CanUndo:    store.HasPendingUndo(),
	}
}
