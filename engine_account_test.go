package authgate

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestCreateAccountSuccess(t *testing.T) {
	ctx := context.Background()
	f := newTestEngine(t, nil)

	result, err := f.engine.CreateAccount(ctx, CreateAccountRequest{
		Identifier: "bob@example.com",
		Email:      "bob@example.com",
		Password:   "brand-new-password-2!B",
	})
	if err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}
	if result.UserID == "" {
		t.Fatal("expected user id assigned")
	}
	if result.Role != "customer" {
		t.Fatalf("expected default role applied, got %q", result.Role)
	}
	if result.Tokens != nil {
		t.Fatal("expected no tokens without auto-login")
	}

	if _, err := f.engine.Login(ctx, "bob@example.com", "brand-new-password-2!B"); err != nil {
		t.Fatalf("Login with new account failed: %v", err)
	}
}

func TestCreateAccountAutoLogin(t *testing.T) {
	ctx := context.Background()
	f := newTestEngine(t, func(cfg *Config) {
		cfg.Account.AutoLogin = true
	})

	result, err := f.engine.CreateAccount(ctx, CreateAccountRequest{
		Identifier: "carol@example.com",
		Password:   "brand-new-password-3!C",
	})
	if err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}
	if result.Tokens == nil {
		t.Fatal("expected auto-login tokens")
	}
	if _, err := f.engine.Authenticate(ctx, result.Tokens.AccessToken); err != nil {
		t.Fatalf("Authenticate with auto-login token failed: %v", err)
	}
}

func TestCreateAccountDuplicate(t *testing.T) {
	ctx := context.Background()
	f := newTestEngine(t, nil)

	if _, err := f.engine.CreateAccount(ctx, CreateAccountRequest{
		Identifier: testIdentifier,
		Password:   "brand-new-password-4!D",
	}); !errors.Is(err, ErrAccountExists) {
		t.Fatalf("expected ErrAccountExists, got %v", err)
	}
	if got := f.counter(t, MetricAccountCreationDuplicate); got != 1 {
		t.Fatalf("expected 1 duplicate metric, got %d", got)
	}
}

func TestCreateAccountValidation(t *testing.T) {
	ctx := context.Background()
	f := newTestEngine(t, nil)

	cases := []struct {
		name string
		req  CreateAccountRequest
		want error
	}{
		{"empty identifier", CreateAccountRequest{Password: "brand-new-password-5!E"}, ErrValidation},
		{"invalid email", CreateAccountRequest{Identifier: "dave", Email: "not-an-email", Password: "brand-new-password-5!E"}, ErrValidation},
		{"unknown role", CreateAccountRequest{Identifier: "dave@example.com", Password: "brand-new-password-5!E", Role: "ghost"}, ErrAccountRoleInvalid},
		{"short password", CreateAccountRequest{Identifier: "dave@example.com", Password: "Ab1!"}, ErrPasswordPolicy},
		{"single class password", CreateAccountRequest{Identifier: "dave@example.com", Password: "aaaaaaaaaaaaaaaa"}, ErrPasswordPolicy},
		{"common password", CreateAccountRequest{Identifier: "dave@example.com", Password: "password123"}, ErrPasswordPolicy},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := f.engine.CreateAccount(ctx, tc.req); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestCreateAccountDisabled(t *testing.T) {
	ctx := context.Background()
	f := newTestEngine(t, func(cfg *Config) {
		cfg.Account.Enabled = false
	})

	if _, err := f.engine.CreateAccount(ctx, CreateAccountRequest{
		Identifier: "erin@example.com",
		Password:   "brand-new-password-6!F",
	}); !errors.Is(err, ErrAccountCreationDisabled) {
		t.Fatalf("expected ErrAccountCreationDisabled, got %v", err)
	}
}

func TestChangePasswordFlow(t *testing.T) {
	ctx := context.Background()
	f := newTestEngine(t, nil)

	pair, err := f.engine.Login(ctx, testIdentifier, testPassword)
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	const newPassword = "rotated-new-password-7!G"
	if err := f.engine.ChangePassword(ctx, testUserID, testPassword, newPassword); err != nil {
		t.Fatalf("ChangePassword failed: %v", err)
	}

	// Every pre-change session is revoked.
	if _, err := f.engine.Authenticate(ctx, pair.AccessToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected old access token dead, got %v", err)
	}
	if _, err := f.engine.Login(ctx, testIdentifier, testPassword); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected old password rejected, got %v", err)
	}
	if _, err := f.engine.Login(ctx, testIdentifier, newPassword); err != nil {
		t.Fatalf("Login with new password failed: %v", err)
	}
}

func TestChangePasswordWrongOld(t *testing.T) {
	ctx := context.Background()
	f := newTestEngine(t, nil)

	err := f.engine.ChangePassword(ctx, testUserID, "wrong-old-password-8!H", "rotated-new-password-8!H")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if got := f.counter(t, MetricPasswordChangeInvalidOld); got != 1 {
		t.Fatalf("expected 1 invalid-old metric, got %d", got)
	}
}

func TestChangePasswordReuseRejected(t *testing.T) {
	ctx := context.Background()
	f := newTestEngine(t, nil)

	// Same as current password.
	if err := f.engine.ChangePassword(ctx, testUserID, testPassword, testPassword); !errors.Is(err, ErrPasswordReuse) {
		t.Fatalf("expected ErrPasswordReuse for unchanged password, got %v", err)
	}

	// A previous password from history.
	const second = "rotated-new-password-9!I"
	if err := f.engine.ChangePassword(ctx, testUserID, testPassword, second); err != nil {
		t.Fatalf("ChangePassword failed: %v", err)
	}
	if err := f.engine.ChangePassword(ctx, testUserID, second, testPassword); !errors.Is(err, ErrPasswordReuse) {
		t.Fatalf("expected ErrPasswordReuse for historical password, got %v", err)
	}
}

func TestChangePasswordPolicyEnforced(t *testing.T) {
	ctx := context.Background()
	f := newTestEngine(t, nil)

	err := f.engine.ChangePassword(ctx, testUserID, testPassword, "weak")
	if !errors.Is(err, ErrPasswordPolicy) {
		t.Fatalf("expected ErrPasswordPolicy, got %v", err)
	}
	if !strings.Contains(err.Error(), "policy") {
		t.Fatalf("expected policy detail in error, got %q", err.Error())
	}
}

func TestSetAccountStatusTearsDownSessions(t *testing.T) {
	ctx := context.Background()
	f := newTestEngine(t, nil)

	pair, err := f.engine.Login(ctx, testIdentifier, testPassword)
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if err := f.engine.SetAccountStatus(ctx, testUserID, AccountDisabled); err != nil {
		t.Fatalf("SetAccountStatus failed: %v", err)
	}

	if _, err := f.engine.Authenticate(ctx, pair.AccessToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected access token dead after disable, got %v", err)
	}
	if _, err := f.engine.Login(ctx, testIdentifier, testPassword); !errors.Is(err, ErrAccountDisabled) {
		t.Fatalf("expected ErrAccountDisabled on login, got %v", err)
	}
	count, err := f.engine.CountActiveSessions(ctx, testUserID)
	if err != nil {
		t.Fatalf("CountActiveSessions failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected sessions destroyed, got %d", count)
	}
	if got := f.counter(t, MetricAccountDisabled); got != 1 {
		t.Fatalf("expected 1 account-disabled metric, got %d", got)
	}

	// Reactivation restores login without resurrecting old tokens.
	if err := f.engine.SetAccountStatus(ctx, testUserID, AccountActive); err != nil {
		t.Fatalf("reactivate failed: %v", err)
	}
	if _, err := f.engine.Login(ctx, testIdentifier, testPassword); err != nil {
		t.Fatalf("Login after reactivation failed: %v", err)
	}
	if _, err := f.engine.Authenticate(ctx, pair.AccessToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected pre-disable token to stay dead, got %v", err)
	}
}
