//go:build integration
// +build integration

package test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	authgate "github.com/movaro/authgate"
	"github.com/movaro/authgate/password"
	"github.com/movaro/authgate/permission"
	"github.com/movaro/authgate/session"
)

func newIntegrationRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return rdb, func() {
		_ = rdb.Close()
		mr.Close()
	}
}

func newIntegrationStore(t *testing.T) (*session.Store, *redis.Client, func()) {
	t.Helper()

	rdb, cleanup := newIntegrationRedis(t)
	store := session.NewStore(rdb, "as", nil)
	return store, rdb, cleanup
}

func integrationConfig(t *testing.T) authgate.Config {
	t.Helper()

	cfg := integrationConfigValues(t)
	cfg.Account.DefaultRole = "customer"
	return cfg
}

func integrationRoles() []permission.RoleDef {
	return []permission.RoleDef{
		{Name: "admin", Rank: 50, Admin: true},
		{Name: "manager", Rank: 40, Permissions: []string{"orders.read", "orders.write"}},
		{Name: "customer", Rank: 10, Permissions: []string{"orders.read.own"}},
	}
}

// newIntegrationEngine builds a fully wired engine over miniredis with one
// seeded user: alice@example.com / integration-password-1!A, role customer.
func newIntegrationEngine(t *testing.T) (*authgate.Engine, *memProvider, func()) {
	t.Helper()

	rdb, cleanupRedis := newIntegrationRedis(t)
	cfg := integrationConfig(t)

	provider := newMemProvider(t)
	provider.seed(t, "user-1", "alice@example.com", "integration-password-1!A", "customer")

	engine, err := authgate.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithRoles(integrationRoles()).
		WithUserProvider(provider).
		Build()
	if err != nil {
		cleanupRedis()
		t.Fatalf("Build failed: %v", err)
	}

	return engine, provider, func() {
		engine.Close()
		cleanupRedis()
	}
}

type memProvider struct {
	mu      sync.RWMutex
	hasher  *password.Argon2
	byID    map[string]authgate.UserRecord
	byIdent map[string]string
	nextID  int
}

func newMemProvider(t *testing.T) *memProvider {
	t.Helper()

	// Light work factor so the suite stays fast.
	hasher, err := password.NewArgon2(password.Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	})
	if err != nil {
		t.Fatalf("NewArgon2 failed: %v", err)
	}
	return &memProvider{
		hasher:  hasher,
		byID:    make(map[string]authgate.UserRecord),
		byIdent: make(map[string]string),
	}
}

func (p *memProvider) seed(t *testing.T, userID, identifier, plaintext, role string) {
	t.Helper()

	hash, err := p.hasher.Hash(plaintext)
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.byID[userID] = authgate.UserRecord{
		UserID:       userID,
		Identifier:   identifier,
		Email:        identifier,
		PasswordHash: hash,
		Role:         role,
		Status:       authgate.AccountActive,
	}
	p.byIdent[identifier] = userID
}

func (p *memProvider) setStatus(userID string, status authgate.AccountStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()
	u := p.byID[userID]
	u.Status = status
	p.byID[userID] = u
}

func (p *memProvider) GetUserByIdentifier(identifier string) (authgate.UserRecord, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	id, ok := p.byIdent[identifier]
	if !ok {
		return authgate.UserRecord{}, fmt.Errorf("no such user")
	}
	return p.byID[id], nil
}

func (p *memProvider) GetUserByID(userID string) (authgate.UserRecord, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	u, ok := p.byID[userID]
	if !ok {
		return authgate.UserRecord{}, fmt.Errorf("no such user")
	}
	return u, nil
}

func (p *memProvider) CreateUser(_ context.Context, input authgate.CreateUserInput) (authgate.UserRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.byIdent[input.Identifier]; exists {
		return authgate.UserRecord{}, authgate.ErrProviderDuplicateIdentifier
	}

	p.nextID++
	u := authgate.UserRecord{
		UserID:       fmt.Sprintf("mem-%d", p.nextID),
		Identifier:   input.Identifier,
		Email:        input.Email,
		PasswordHash: input.PasswordHash,
		Role:         input.Role,
		Status:       input.Status,
	}
	p.byID[u.UserID] = u
	p.byIdent[u.Identifier] = u.UserID
	return u, nil
}

func (p *memProvider) UpdateCredential(_ context.Context, userID, newHash string, history []string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	u, ok := p.byID[userID]
	if !ok {
		return fmt.Errorf("no such user")
	}
	u.PasswordHash = newHash
	u.PasswordHistory = history
	u.PasswordChanged = time.Now()
	p.byID[userID] = u
	return nil
}

func (p *memProvider) UpdateAccountStatus(_ context.Context, userID string, status authgate.AccountStatus) (authgate.UserRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	u, ok := p.byID[userID]
	if !ok {
		return authgate.UserRecord{}, fmt.Errorf("no such user")
	}
	u.Status = status
	p.byID[userID] = u
	return u, nil
}

func makeSession(userID, tokenHash string, activity time.Time) *session.Session {
	return &session.Session{
		TokenHash:    tokenHash,
		UserID:       userID,
		Role:         "customer",
		Fingerprint:  "fph-test",
		CreatedAt:    activity.UnixMilli(),
		LastActivity: activity.UnixMilli(),
		ExpiresAt:    activity.Add(time.Hour).Unix(),
	}
}

func hashHex(b byte) string {
	out := make([]byte, 64)
	const digits = "0123456789abcdef"
	for i := range out {
		out[i] = digits[int(b)%16]
	}
	return string(out)
}
