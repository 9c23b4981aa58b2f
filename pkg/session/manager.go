package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"

	"github.com/olekdev/tackleshop-backend/pkg/config"
	redisclient "github.com/olekdev/tackleshop-backend/pkg/redis"
)

// ErrUnknownSession marks lookups for IDs that were never issued or expired.
var ErrUnknownSession = errors.New("unknown session")

type sessionStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

type sessionKeyer interface {
	SessionKey(sessionID string) string
}

// Manager mints and validates anonymous browsing-session identifiers.
// Sessions carry no account; they exist so carts, rate limits, and usage
// caps have a stable caller identity.
type Manager struct {
	store sessionStore
	keyer sessionKeyer
	ttl   time.Duration
}

// Checker exposes the read-only surface needed by middleware.
type Checker interface {
	Exists(ctx context.Context, sessionID string) (bool, error)
	Issue(ctx context.Context) (string, error)
	Touch(ctx context.Context, sessionID string) error
}

// NewManager constructs a session manager backed by Redis.
func NewManager(client *redisclient.Client, cfg config.SessionConfig) (*Manager, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if cfg.TTL <= 0 {
		return nil, fmt.Errorf("session ttl must be positive")
	}
	return &Manager{
		store: client,
		keyer: client,
		ttl:   cfg.TTL,
	}, nil
}

// Issue creates a fresh session ID and registers it with the configured TTL.
func (m *Manager) Issue(ctx context.Context) (string, error) {
	sessionID := uuid.NewString()
	if err := m.store.Set(ctx, m.keyer.SessionKey(sessionID), time.Now().UTC().Format(time.RFC3339), m.ttl); err != nil {
		return "", err
	}
	return sessionID, nil
}

// Exists reports whether the session ID was issued and has not expired.
func (m *Manager) Exists(ctx context.Context, sessionID string) (bool, error) {
	if strings.TrimSpace(sessionID) == "" {
		return false, fmt.Errorf("session id is required")
	}
	if _, err := m.store.Get(ctx, m.keyer.SessionKey(sessionID)); err != nil {
		if errors.Is(err, redislib.Nil) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Touch extends the session's TTL, refreshing the last-seen marker.
func (m *Manager) Touch(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return fmt.Errorf("session id is required")
	}
	ok, err := m.Exists(ctx, sessionID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUnknownSession
	}
	return m.store.Set(ctx, m.keyer.SessionKey(sessionID), time.Now().UTC().Format(time.RFC3339), m.ttl)
}

// Revoke removes the session record.
func (m *Manager) Revoke(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return fmt.Errorf("session id is required")
	}
	return m.store.Del(ctx, m.keyer.SessionKey(sessionID))
}
