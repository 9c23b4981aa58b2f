package session

import (
	"context"
	"testing"
	"time"

	redislib "github.com/redis/go-redis/v9"
)

type fakeStore struct {
	data map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: map[string]string{}}
}

func (f *fakeStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	f.data[key] = "1"
	return nil
}

func (f *fakeStore) Get(ctx context.Context, key string) (string, error) {
	v, ok := f.data[key]
	if !ok {
		return "", redislib.Nil
	}
	return v, nil
}

func (f *fakeStore) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}

type fakeKeyer struct{}

func (fakeKeyer) SessionKey(sessionID string) string { return "ts:session:" + sessionID }

func newTestManager() (*Manager, *fakeStore) {
	store := newFakeStore()
	return &Manager{store: store, keyer: fakeKeyer{}, ttl: time.Hour}, store
}

func TestIssueAndExists(t *testing.T) {
	t.Parallel()

	mgr, _ := newTestManager()
	ctx := context.Background()

	id, err := mgr.Issue(ctx)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if id == "" {
		t.Fatal("expected non-empty session id")
	}

	ok, err := mgr.Exists(ctx, id)
	if err != nil || !ok {
		t.Fatalf("expected issued session to exist, ok=%v err=%v", ok, err)
	}

	ok, err = mgr.Exists(ctx, "never-issued")
	if err != nil || ok {
		t.Fatalf("expected unknown session to be absent, ok=%v err=%v", ok, err)
	}
}

func TestTouchUnknownSession(t *testing.T) {
	t.Parallel()

	mgr, _ := newTestManager()
	if err := mgr.Touch(context.Background(), "missing"); err != ErrUnknownSession {
		t.Fatalf("expected ErrUnknownSession, got %v", err)
	}
}

func TestRevoke(t *testing.T) {
	t.Parallel()

	mgr, _ := newTestManager()
	ctx := context.Background()

	id, err := mgr.Issue(ctx)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if err := mgr.Revoke(ctx, id); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	if ok, _ := mgr.Exists(ctx, id); ok {
		t.Fatal("expected session to be gone after revoke")
	}
}
