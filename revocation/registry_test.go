package revocation

import (
	"context"
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

func TestBlacklistFirstWriterWins(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	reg := NewRegistry(rdb, "bl")
	ctx := context.Background()

	won, err := reg.Blacklist(ctx, "hash-a", ReasonLogout, time.Hour)
	if err != nil {
		t.Fatalf("Blacklist failed: %v", err)
	}
	if !won {
		t.Fatal("first Blacklist should win")
	}

	won, err = reg.Blacklist(ctx, "hash-a", ReasonRotated, time.Hour)
	if err != nil {
		t.Fatalf("Blacklist failed: %v", err)
	}
	if won {
		t.Fatal("second Blacklist of same hash should not win")
	}

	reason, found, err := reg.RevocationReason(ctx, "hash-a")
	if err != nil {
		t.Fatalf("RevocationReason failed: %v", err)
	}
	if !found || reason != ReasonLogout {
		t.Fatalf("expected original reason preserved, got %q found=%v", reason, found)
	}
}

func TestIsBlacklisted(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	reg := NewRegistry(rdb, "bl")
	ctx := context.Background()

	blacklisted, err := reg.IsBlacklisted(ctx, "unknown")
	if err != nil {
		t.Fatalf("IsBlacklisted failed: %v", err)
	}
	if blacklisted {
		t.Fatal("unknown hash reported blacklisted")
	}

	if _, err := reg.Blacklist(ctx, "hash-b", ReasonSecurity, time.Hour); err != nil {
		t.Fatalf("Blacklist failed: %v", err)
	}

	blacklisted, err = reg.IsBlacklisted(ctx, "hash-b")
	if err != nil {
		t.Fatalf("IsBlacklisted failed: %v", err)
	}
	if !blacklisted {
		t.Fatal("revoked hash not reported blacklisted")
	}
}

func TestBlacklistEntryExpires(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	reg := NewRegistry(rdb, "bl")
	ctx := context.Background()

	if _, err := reg.Blacklist(ctx, "hash-c", ReasonLogout, 30*time.Second); err != nil {
		t.Fatalf("Blacklist failed: %v", err)
	}

	mr.FastForward(31 * time.Second)

	blacklisted, err := reg.IsBlacklisted(ctx, "hash-c")
	if err != nil {
		t.Fatalf("IsBlacklisted failed: %v", err)
	}
	if blacklisted {
		t.Fatal("entry should expire with the token it guards")
	}
}

func TestBlacklistMany(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	reg := NewRegistry(rdb, "bl")
	ctx := context.Background()

	if _, err := reg.Blacklist(ctx, "hash-1", ReasonLogout, time.Hour); err != nil {
		t.Fatalf("Blacklist failed: %v", err)
	}

	set, err := reg.BlacklistMany(ctx, []string{"hash-1", "hash-2", "hash-3"}, ReasonRevoked, time.Hour)
	if err != nil {
		t.Fatalf("BlacklistMany failed: %v", err)
	}
	if set != 2 {
		t.Fatalf("expected 2 newly set entries, got %d", set)
	}

	for _, hash := range []string{"hash-1", "hash-2", "hash-3"} {
		blacklisted, err := reg.IsBlacklisted(ctx, hash)
		if err != nil {
			t.Fatalf("IsBlacklisted failed: %v", err)
		}
		if !blacklisted {
			t.Fatalf("%s not blacklisted after BlacklistMany", hash)
		}
	}
}

func TestRevokeAllUserTokens(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	reg := NewRegistry(rdb, "bl")
	ctx := context.Background()
	now := time.Now()

	if err := reg.Track(ctx, "u1", "access-1", now.Add(15*time.Minute)); err != nil {
		t.Fatalf("Track failed: %v", err)
	}
	if err := reg.Track(ctx, "u1", "refresh-1", now.Add(7*24*time.Hour)); err != nil {
		t.Fatalf("Track failed: %v", err)
	}
	if err := reg.Track(ctx, "u2", "access-other", now.Add(15*time.Minute)); err != nil {
		t.Fatalf("Track failed: %v", err)
	}

	count, err := reg.RevokeAllUserTokens(ctx, "u1", ReasonSecurity)
	if err != nil {
		t.Fatalf("RevokeAllUserTokens failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 revoked tokens, got %d", count)
	}

	for _, hash := range []string{"access-1", "refresh-1"} {
		blacklisted, err := reg.IsBlacklisted(ctx, hash)
		if err != nil {
			t.Fatalf("IsBlacklisted failed: %v", err)
		}
		if !blacklisted {
			t.Fatalf("%s not blacklisted after revoke-all", hash)
		}
	}

	blacklisted, err := reg.IsBlacklisted(ctx, "access-other")
	if err != nil {
		t.Fatalf("IsBlacklisted failed: %v", err)
	}
	if blacklisted {
		t.Fatal("other user's token must not be revoked")
	}
}

func TestRevokeAllUserTokensSkipsExpired(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	reg := NewRegistry(rdb, "bl")
	ctx := context.Background()
	now := time.Now()

	if err := reg.Track(ctx, "u1", "stale", now.Add(-time.Minute)); err != nil {
		t.Fatalf("Track failed: %v", err)
	}
	if err := reg.Track(ctx, "u1", "live", now.Add(time.Hour)); err != nil {
		t.Fatalf("Track failed: %v", err)
	}

	count, err := reg.RevokeAllUserTokens(ctx, "u1", ReasonRevoked)
	if err != nil {
		t.Fatalf("RevokeAllUserTokens failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 revoked token, got %d", count)
	}
}

func TestRevokeAllUserTokensNoTracked(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	reg := NewRegistry(rdb, "bl")

	count, err := reg.RevokeAllUserTokens(context.Background(), "nobody", ReasonLogout)
	if err != nil {
		t.Fatalf("RevokeAllUserTokens failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0, got %d", count)
	}
}

func TestBlacklistManyEmpty(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	reg := NewRegistry(rdb, "bl")

	set, err := reg.BlacklistMany(context.Background(), nil, ReasonLogout, time.Hour)
	if err != nil {
		t.Fatalf("BlacklistMany failed: %v", err)
	}
	if set != 0 {
		t.Fatalf("expected 0 for empty batch, got %d", set)
	}
}
