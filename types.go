package authgate

import (
	"context"
	"time"
)

// AccountStatus represents the lifecycle state of a user account.
type AccountStatus uint8

const (
	// AccountActive is an exported constant or variable used by the authentication engine.
	AccountActive AccountStatus = iota
	// AccountPendingVerification is an exported constant or variable used by the authentication engine.
	AccountPendingVerification
	// AccountDisabled is an exported constant or variable used by the authentication engine.
	AccountDisabled
	// AccountLocked is an exported constant or variable used by the authentication engine.
	AccountLocked
	// AccountDeleted is an exported constant or variable used by the authentication engine.
	AccountDeleted
)

// String returns a stable lowercase label for the status, used in audit
// trails and logs.
func (s AccountStatus) String() string {
	switch s {
	case AccountActive:
		return "active"
	case AccountPendingVerification:
		return "pending_verification"
	case AccountDisabled:
		return "disabled"
	case AccountLocked:
		return "locked"
	case AccountDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// Identity is the authenticated principal attached to a request after
// [Engine.Authenticate]. The zero value is the anonymous identity.
type Identity struct {
	UserID    string
	Role      string
	Email     string
	SessionID string
}

// Anonymous reports whether the identity carries no authenticated user.
func (i Identity) Anonymous() bool {
	return i.UserID == ""
}

// TokenPair is returned by [Engine.Login] and [Engine.Refresh]. The
// fingerprint is embedded as a claim in both tokens and is echoed here
// for callers that persist device metadata.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	Fingerprint  string
}

// SessionInfo is a read-only view of one active device session, returned
// by [Engine.ActiveSessions].
type SessionInfo struct {
	TokenHash    string
	IPAddress    string
	UserAgent    string
	CreatedAt    time.Time
	LastActivity time.Time
	ExpiresAt    time.Time
}

// UserRecord is the full account record returned by [UserProvider]. It
// carries the credential hash, bounded password history, status, and role.
type UserRecord struct {
	UserID          string
	Identifier      string
	Email           string
	PasswordHash    string
	PasswordHistory []string
	PasswordChanged time.Time
	Status          AccountStatus
	Role            string
}

// UserProvider is the primary interface that callers must implement to
// integrate authgate with their user database. It covers credential
// lookup, account creation, credential rotation, and status changes.
type UserProvider interface {
	GetUserByIdentifier(identifier string) (UserRecord, error)
	GetUserByID(userID string) (UserRecord, error)
	CreateUser(ctx context.Context, input CreateUserInput) (UserRecord, error)
	UpdateCredential(ctx context.Context, userID, newHash string, history []string) error
	UpdateAccountStatus(ctx context.Context, userID string, status AccountStatus) (UserRecord, error)
}

// CreateUserInput is the input for [UserProvider.CreateUser].
type CreateUserInput struct {
	Identifier   string
	Email        string
	PasswordHash string
	Role         string
	Status       AccountStatus
}

// CreateAccountRequest is the input for [Engine.CreateAccount].
// Identifier and Password are required; Role defaults to
// [AccountConfig.DefaultRole] when empty.
type CreateAccountRequest struct {
	Identifier string
	Email      string
	Password   string
	Role       string
}

// CreateAccountResult is returned by [Engine.CreateAccount]. It includes
// the new UserID and, when AutoLogin is enabled, a token pair.
type CreateAccountResult struct {
	UserID string
	Role   string
	Tokens *TokenPair
}
