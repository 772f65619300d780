package rate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr, client
}

func TestTokenBucketExhaustion(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	limiter := New(rdb, Config{Capacity: 3, RefillRate: 0.001})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		decision, err := limiter.Allow(ctx, "k:client")
		if err != nil {
			t.Fatalf("Allow %d failed: %v", i, err)
		}
		if !decision.Allowed {
			t.Fatalf("request %d within capacity denied", i)
		}
	}

	decision, err := limiter.Allow(ctx, "k:client")
	if err != nil {
		t.Fatalf("Allow failed: %v", err)
	}
	if decision.Allowed {
		t.Fatal("request past capacity admitted")
	}
	if decision.RetryAfter <= 0 {
		t.Fatalf("denial must carry retry-after, got %v", decision.RetryAfter)
	}
}

func TestTokenBucketKeysIndependent(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	limiter := New(rdb, Config{Capacity: 1, RefillRate: 0.001})
	ctx := context.Background()

	if d, err := limiter.Allow(ctx, "ip:198.51.100.1"); err != nil || !d.Allowed {
		t.Fatalf("first key denied: %v %v", d, err)
	}
	if d, err := limiter.Allow(ctx, "ip:198.51.100.1"); err != nil || d.Allowed {
		t.Fatalf("exhausted key admitted: %v %v", d, err)
	}
	if d, err := limiter.Allow(ctx, "ip:198.51.100.2"); err != nil || !d.Allowed {
		t.Fatalf("unrelated key denied: %v %v", d, err)
	}
}

func TestBurstBucketCatchesSpike(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	// Generous steady bucket; tight burst window.
	limiter := New(rdb, Config{
		Capacity:    1000,
		RefillRate:  100,
		BurstLimit:  5,
		BurstWindow: time.Minute,
	})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		decision, err := limiter.Allow(ctx, "k:spiky")
		if err != nil {
			t.Fatalf("Allow %d failed: %v", i, err)
		}
		if !decision.Allowed {
			t.Fatalf("request %d within burst limit denied", i)
		}
	}

	decision, err := limiter.Allow(ctx, "k:spiky")
	if err != nil {
		t.Fatalf("Allow failed: %v", err)
	}
	if decision.Allowed {
		t.Fatal("spike past burst limit admitted")
	}
	if decision.RetryAfter <= 0 || decision.RetryAfter > time.Minute {
		t.Fatalf("unexpected retry-after: %v", decision.RetryAfter)
	}

	mr.FastForward(time.Minute + time.Second)

	decision, err = limiter.Allow(ctx, "k:spiky")
	if err != nil {
		t.Fatalf("Allow failed: %v", err)
	}
	if !decision.Allowed {
		t.Fatal("burst window should reset after expiry")
	}
}

func TestKeyPrefersAPIKey(t *testing.T) {
	if got := Key("secret", "198.51.100.1"); got != "k:secret" {
		t.Fatalf("expected API key preferred, got %q", got)
	}
	if got := Key("", "198.51.100.1"); got != "ip:198.51.100.1" {
		t.Fatalf("expected IP fallback, got %q", got)
	}
	if got := Key("", ""); got != "anon" {
		t.Fatalf("expected anon fallback, got %q", got)
	}
}

func TestBypassPaths(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	limiter := New(rdb, Config{
		Capacity:    1,
		RefillRate:  0.001,
		BypassPaths: []string{"/health", "/public/"},
	})

	if !limiter.Bypass("/health") || !limiter.Bypass("/health/live") {
		t.Fatal("health paths must bypass")
	}
	if !limiter.Bypass("/public/pricing") {
		t.Fatal("public prefix must bypass")
	}
	if limiter.Bypass("/api/bookings") {
		t.Fatal("API path must not bypass")
	}
}

func TestLoginThrottle(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	limiter := New(rdb, Config{
		MaxLoginAttempts:      3,
		LoginCooldownDuration: time.Minute,
	})
	ctx := context.Background()

	if err := limiter.CheckLogin(ctx, "alice", ""); err != nil {
		t.Fatalf("fresh identifier throttled: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := limiter.IncrementLogin(ctx, "alice", ""); err != nil {
			t.Fatalf("IncrementLogin %d failed: %v", i, err)
		}
	}
	if err := limiter.IncrementLogin(ctx, "alice", ""); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if err := limiter.CheckLogin(ctx, "alice", ""); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}

	if err := limiter.ResetLogin(ctx, "alice", ""); err != nil {
		t.Fatalf("ResetLogin failed: %v", err)
	}
	if err := limiter.CheckLogin(ctx, "alice", ""); err != nil {
		t.Fatalf("identifier still throttled after reset: %v", err)
	}
}

func TestLoginCounterExpires(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	limiter := New(rdb, Config{
		MaxLoginAttempts:      1,
		LoginCooldownDuration: 30 * time.Second,
	})
	ctx := context.Background()

	if err := limiter.IncrementLogin(ctx, "bob", ""); err != nil {
		t.Fatalf("IncrementLogin failed: %v", err)
	}
	if err := limiter.IncrementLogin(ctx, "bob", ""); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}

	mr.FastForward(31 * time.Second)

	attempts, err := limiter.GetLoginAttempts(ctx, "bob")
	if err != nil {
		t.Fatalf("GetLoginAttempts failed: %v", err)
	}
	if attempts != 0 {
		t.Fatalf("counter should expire with cooldown, got %d", attempts)
	}
}
