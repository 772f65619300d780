package authgate

import (
	"errors"

	"github.com/movaro/authgate/csrf"
	"github.com/movaro/authgate/internal"
	"github.com/movaro/authgate/jwt"
	"github.com/movaro/authgate/password"
	"github.com/movaro/authgate/permission"
	"github.com/movaro/authgate/rate"
	"github.com/movaro/authgate/revocation"
	"github.com/movaro/authgate/session"
	"github.com/redis/go-redis/v9"
)

// Builder defines a public type used by authgate APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config
	redis  *redis.Client

	roles []permission.RoleDef

	userProvider UserProvider
	auditSink    AuditSink

	built bool
}

// New describes the new operation and its observable behavior.
//
// New may return an error when input validation, dependency calls, or security checks fail.
// New does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig describes the withconfig operation and its observable behavior.
//
// WithConfig may return an error when input validation, dependency calls, or security checks fail.
// WithConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis describes the withredis operation and its observable behavior.
//
// WithRedis may return an error when input validation, dependency calls, or security checks fail.
// WithRedis does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithRedis(client *redis.Client) *Builder {
	b.redis = client
	return b
}

// WithRoles describes the withroles operation and its observable behavior.
//
// WithRoles may return an error when input validation, dependency calls, or security checks fail.
// WithRoles does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithRoles(defs []permission.RoleDef) *Builder {
	b.roles = defs
	return b
}

// WithUserProvider describes the withuserprovider operation and its observable behavior.
//
// WithUserProvider may return an error when input validation, dependency calls, or security checks fail.
// WithUserProvider does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithUserProvider(up UserProvider) *Builder {
	b.userProvider = up
	return b
}

// WithAuditSink describes the withauditsink operation and its observable behavior.
//
// WithAuditSink may return an error when input validation, dependency calls, or security checks fail.
// WithAuditSink does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled describes the withmetricsenabled operation and its observable behavior.
//
// WithMetricsEnabled may return an error when input validation, dependency calls, or security checks fail.
// WithMetricsEnabled does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms describes the withlatencyhistograms operation and its observable behavior.
//
// WithLatencyHistograms may return an error when input validation, dependency calls, or security checks fail.
// WithLatencyHistograms does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build may return an error when input validation, dependency calls, or security checks fail.
// Build does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if len(b.roles) == 0 {
		return nil, errors.New("roles must be provided")
	}

	if b.userProvider == nil {
		return nil, errors.New("user provider required")
	}

	// -------- ROLE TABLE --------
	table, err := permission.NewTable(b.roles)
	if err != nil {
		return nil, err
	}

	if cfg.Account.Enabled {
		if !table.Known(cfg.Account.DefaultRole) {
			return nil, errors.New("Account DefaultRole does not exist in role table")
		}
		if cfg.Account.AutoLogin && cfg.JWT.RefreshTTL <= 0 {
			return nil, errors.New("Account AutoLogin requires refresh system to be enabled")
		}
	}

	// -------- REVOCATION + SESSIONS --------
	registry := revocation.NewRegistry(b.redis, "bl")
	store := session.NewStore(b.redis, cfg.Session.RedisPrefix, registry)

	engine := &Engine{
		config:       cloneConfig(cfg),
		roles:        table,
		sessionStore: store,
		revocations:  registry,
	}

	engine.userProvider = b.userProvider
	engine.rateLimiter = rate.New(b.redis, rate.Config{
		Capacity:                cfg.RateLimit.Capacity,
		RefillRate:              cfg.RateLimit.RefillRate,
		BurstLimit:              cfg.RateLimit.BurstLimit,
		BurstWindow:             cfg.RateLimit.BurstWindow,
		BypassPaths:             cfg.RateLimit.BypassPaths,
		EnableIPThrottle:        cfg.RateLimit.EnableIPThrottle,
		MaxLoginAttempts:        cfg.RateLimit.MaxLoginAttempts,
		LoginCooldownDuration:   cfg.RateLimit.LoginCooldownDuration,
		EnableRefreshThrottle:   cfg.RateLimit.EnableRefreshThrottle,
		MaxRefreshAttempts:      cfg.RateLimit.MaxRefreshAttempts,
		RefreshCooldownDuration: cfg.RateLimit.RefreshCooldownDuration,
	})
	engine.metrics = NewMetrics(cfg.Metrics)
	engine.audit = newAuditDispatcher(cfg.Audit, b.auditSink, func() {
		engine.metricInc(MetricAuditDropped)
	})

	if cfg.CSRF.Enabled {
		guard, err := csrf.New(
			cloneBytes(cfg.CSRF.Secret),
			cfg.CSRF.Window,
			cfg.CSRF.AllowedOrigins,
		)
		if err != nil {
			return nil, err
		}
		engine.csrfGuard = guard
	}

	ph, err := password.NewArgon2(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}
	engine.passwordHash = ph
	engine.passwordPolicy = password.NewPolicy(
		cfg.Password.MinLength,
		cfg.Password.MinClasses,
		cfg.Password.CommonPasswords,
	)

	jm, err := jwt.NewManager(jwt.Config{
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshTTL:    cfg.JWT.RefreshTTL,
		SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
		PrivateKey:    cloneBytes(cfg.JWT.PrivateKey),
		PublicKey:     cloneBytes(cfg.JWT.PublicKey),
		Issuer:        cfg.JWT.Issuer,
		Leeway:        cfg.JWT.Leeway,
	})
	if err != nil {
		return nil, err
	}
	engine.jwtManager = jm
	engine.fingerprint = func(userAgent, ip string) string {
		return internal.Fingerprint(userAgent, ip, cfg.Security.FingerprintSecret)
	}

	b.built = true

	return engine, nil
}
