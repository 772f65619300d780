package authgate

import (
	"errors"
	"time"
)

// Config defines a public type used by authgate APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	JWT       JWTConfig
	Session   SessionConfig
	Password  PasswordConfig
	CSRF      CSRFConfig
	RateLimit RateLimitConfig
	Account   AccountConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
	Security  SecurityConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig defines a public type used by authgate APIs.
//
// JWTConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type JWTConfig struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	SigningMethod string // "ed25519" (default), "hs256" optional
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Leeway        time.Duration
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig defines a public type used by authgate APIs.
//
// SessionConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SessionConfig struct {
	RedisPrefix string

	// MaxSessionsPerUser caps concurrent device sessions; the session
	// with the oldest activity is evicted when a login exceeds it.
	// Zero disables the cap.
	MaxSessionsPerUser int
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig defines a public type used by authgate APIs.
//
// PasswordConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type PasswordConfig struct {
	Memory         uint32 // in KB
	Time           uint32
	Parallelism    uint8
	SaltLength     uint32
	KeyLength      uint32
	UpgradeOnLogin bool

	// Policy settings consumed by registration and password change.
	MinLength       int
	MinClasses      int
	CommonPasswords []string
}

// CSRFConfig defines a public type used by authgate APIs.
//
// CSRFConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CSRFConfig struct {
	Enabled        bool
	Secret         []byte
	Window         time.Duration
	AllowedOrigins []string
}

// RateLimitConfig defines a public type used by authgate APIs.
//
// RateLimitConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type RateLimitConfig struct {
	Enabled     bool
	Capacity    float64
	RefillRate  float64 // tokens per second
	BurstLimit  int
	BurstWindow time.Duration
	BypassPaths []string

	EnableIPThrottle      bool
	MaxLoginAttempts      int
	LoginCooldownDuration time.Duration

	EnableRefreshThrottle   bool
	MaxRefreshAttempts      int
	RefreshCooldownDuration time.Duration
}

// AccountConfig defines a public type used by authgate APIs.
//
// AccountConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AccountConfig struct {
	Enabled     bool
	AutoLogin   bool
	DefaultRole string

	// RevokeSessionsOnPasswordChange tears down every session of the
	// user after a successful password change.
	RevokeSessionsOnPasswordChange bool
}

// AuditConfig defines a public type used by authgate APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig defines a public type used by authgate APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// SecurityConfig defines a public type used by authgate APIs.
//
// SecurityConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SecurityConfig struct {
	// FingerprintSecret keys the HMAC over (userAgent, ip) that binds
	// tokens to the issuing device. Required.
	FingerprintSecret []byte

	// EnforceFingerprint rejects tokens whose fingerprint claim does
	// not match the presenting request context.
	EnforceFingerprint bool

	// OperationTimeout bounds the store I/O chain of a single engine
	// operation. Late-completing writes after the deadline are not
	// rolled back.
	OperationTimeout time.Duration

	ProductionMode bool
}

// DefaultConfig describes the defaultconfig operation and its observable behavior.
//
// DefaultConfig may return an error when input validation, dependency calls, or security checks fail.
// DefaultConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:     15 * time.Minute,
			RefreshTTL:    7 * 24 * time.Hour,
			SigningMethod: "ed25519",
		},
		Session: SessionConfig{
			RedisPrefix:        "sn",
			MaxSessionsPerUser: 3,
		},
		Password: PasswordConfig{
			Memory:         65536,
			Time:           3,
			Parallelism:    2,
			SaltLength:     16,
			KeyLength:      32,
			UpgradeOnLogin: true,
			MinLength:      10,
			MinClasses:     3,
		},
		CSRF: CSRFConfig{
			Enabled: true,
			Window:  24 * time.Hour,
		},
		RateLimit: RateLimitConfig{
			Enabled:                 true,
			Capacity:                60,
			RefillRate:              1,
			BurstLimit:              100,
			BurstWindow:             time.Minute,
			EnableIPThrottle:        true,
			MaxLoginAttempts:        5,
			LoginCooldownDuration:   15 * time.Minute,
			EnableRefreshThrottle:   true,
			MaxRefreshAttempts:      20,
			RefreshCooldownDuration: time.Minute,
		},
		Account: AccountConfig{
			Enabled:                        true,
			AutoLogin:                      false,
			DefaultRole:                    "",
			RevokeSessionsOnPasswordChange: true,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
		Security: SecurityConfig{
			EnforceFingerprint: true,
			OperationTimeout:   30 * time.Second,
			ProductionMode:     false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	out.CSRF.Secret = cloneBytes(cfg.CSRF.Secret)
	out.Security.FingerprintSecret = cloneBytes(cfg.Security.FingerprintSecret)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Config) Validate() error {
	// JWT
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= c.JWT.AccessTTL {
		return errors.New("JWT RefreshTTL must exceed AccessTTL")
	}
	if c.JWT.SigningMethod != "ed25519" && c.JWT.SigningMethod != "hs256" {
		return errors.New("unsupported JWT signing method")
	}
	if c.JWT.SigningMethod == "ed25519" && len(c.JWT.PrivateKey) == 0 {
		return errors.New("ed25519 requires PrivateKey")
	}
	if c.JWT.SigningMethod == "ed25519" && len(c.JWT.PublicKey) == 0 {
		return errors.New("ed25519 requires PublicKey")
	}
	if c.JWT.SigningMethod == "hs256" && len(c.JWT.PrivateKey) == 0 {
		return errors.New("hs256 requires PrivateKey")
	}

	// Session
	if c.Session.MaxSessionsPerUser < 0 {
		return errors.New("Session MaxSessionsPerUser must be >= 0")
	}

	// Fingerprint binding
	if len(c.Security.FingerprintSecret) < 16 {
		return errors.New("Security FingerprintSecret must be at least 16 bytes")
	}
	if c.Security.OperationTimeout < 0 {
		return errors.New("Security OperationTimeout must be >= 0")
	}

	// CSRF
	if c.CSRF.Enabled {
		if len(c.CSRF.Secret) < 16 {
			return errors.New("CSRF Secret must be at least 16 bytes")
		}
		if c.CSRF.Window <= 0 {
			return errors.New("CSRF Window must be > 0")
		}
	}

	// Rate limiting
	if c.RateLimit.Enabled {
		if c.RateLimit.Capacity <= 0 {
			return errors.New("RateLimit Capacity must be > 0")
		}
		if c.RateLimit.RefillRate <= 0 {
			return errors.New("RateLimit RefillRate must be > 0")
		}
		if c.RateLimit.BurstLimit < 0 {
			return errors.New("RateLimit BurstLimit must be >= 0")
		}
	}
	if c.RateLimit.MaxLoginAttempts < 0 {
		return errors.New("RateLimit MaxLoginAttempts must be >= 0")
	}

	// Password policy
	if c.Password.MinLength < 8 {
		return errors.New("Password MinLength must be >= 8")
	}
	if c.Password.MinClasses < 1 || c.Password.MinClasses > 4 {
		return errors.New("Password MinClasses must be between 1 and 4")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when enabled")
	}

	return nil
}
