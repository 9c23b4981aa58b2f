package cart

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	pkgerrors "github.com/olekdev/tackleshop-backend/pkg/errors"
	"github.com/olekdev/tackleshop-backend/pkg/logger"
	redisclient "github.com/olekdev/tackleshop-backend/pkg/redis"
)

// LineStore persists the full line list for a session. Absence and corrupt
// payloads both load as an empty cart.
type LineStore interface {
	Save(ctx context.Context, sessionID string, lines []Line) error
	Load(ctx context.Context, sessionID string) ([]Line, error)
	Drop(ctx context.Context, sessionID string) error
}

type redisLineStore struct {
	client *redisclient.Client
	logg   *logger.Logger
	ttl    time.Duration
}

// NewRedisLineStore builds the redis-backed LineStore used in production.
func NewRedisLineStore(client *redisclient.Client, logg *logger.Logger, ttl time.Duration) LineStore {
	return &redisLineStore{client: client, logg: logg, ttl: ttl}
}

func (s *redisLineStore) Save(ctx context.Context, sessionID string, lines []Line) error {
	payload, err := json.Marshal(lines)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode cart lines")
	}
	if err := s.client.Set(ctx, s.client.CartKey(sessionID), payload, s.ttl); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist cart lines")
	}
	return nil
}

func (s *redisLineStore) Load(ctx context.Context, sessionID string) ([]Line, error) {
	raw, err := s.client.Get(ctx, s.client.CartKey(sessionID))
	if err != nil {
		if errors.Is(err, redisclient.Nil) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart lines")
	}

	var lines []Line
	if err := json.Unmarshal([]byte(raw), &lines); err != nil {
		// a corrupt payload is not worth failing a session over
		if s.logg != nil {
			s.logg.Error(ctx, "cart.load.corrupt_payload", err)
		}
		return nil, nil
	}
	return lines, nil
}

func (s *redisLineStore) Drop(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.client.CartKey(sessionID)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "drop cart lines")
	}
	return nil
}
