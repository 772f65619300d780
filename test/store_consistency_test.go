//go:build integration
// +build integration

package test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestStoreConsistencyDeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store, _, cleanup := newIntegrationStore(t)
	defer cleanup()

	sess := makeSession("u1", hashHex(1), time.Now())
	if _, err := store.Create(ctx, sess, 0); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := store.Delete(ctx, hashHex(1)); err != nil {
		t.Fatalf("first Delete failed: %v", err)
	}
	if err := store.Delete(ctx, hashHex(1)); err != nil {
		t.Fatalf("second Delete failed: %v", err)
	}

	count, err := store.Count(ctx, "u1")
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected session count 0, got %d", count)
	}
}

func TestStoreConsistencyRekeyMissingSession(t *testing.T) {
	ctx := context.Background()
	store, _, cleanup := newIntegrationStore(t)
	defer cleanup()

	_, err := store.Rekey(ctx, hashHex(7), hashHex(8), hashHex(9), time.Now().Add(15*time.Minute), time.Now().Add(time.Hour))
	if !errors.Is(err, redis.Nil) {
		t.Fatalf("expected redis.Nil for missing session, got %v", err)
	}
}

func TestStoreConsistencyIndexSurvivesRekey(t *testing.T) {
	ctx := context.Background()
	store, _, cleanup := newIntegrationStore(t)
	defer cleanup()

	sess := makeSession("u2", hashHex(2), time.Now())
	if _, err := store.Create(ctx, sess, 0); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if _, err := store.Rekey(ctx, hashHex(2), hashHex(3), hashHex(4), time.Now().Add(15*time.Minute), time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("Rekey failed: %v", err)
	}

	// Old key must be gone, new key live, and the index must hold exactly one entry.
	if _, err := store.Get(ctx, hashHex(2)); !errors.Is(err, redis.Nil) {
		t.Fatalf("expected old hash gone, got %v", err)
	}
	moved, err := store.Get(ctx, hashHex(3))
	if err != nil {
		t.Fatalf("Get new hash failed: %v", err)
	}
	if moved.AccessHash != hashHex(4) {
		t.Fatalf("expected access hash carried through rekey, got %q", moved.AccessHash)
	}

	count, err := store.Count(ctx, "u2")
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly one indexed session, got %d", count)
	}
}
