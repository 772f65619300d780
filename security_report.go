package authgate

import "time"

type SecurityReport struct {
	ProductionMode              bool
	SigningAlgorithm            string
	AccessTTL                   time.Duration
	RefreshTTL                  time.Duration
	Argon2                      PasswordConfigReport
	FingerprintBindingEnforced  bool
	RefreshRotationEnabled      bool
	RefreshReuseDetectionActive bool
	SessionCapActive            bool
	CSRFProtectionActive        bool
	RateLimitingActive          bool
	AuditTrailActive            bool
}

type PasswordConfigReport struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	rateLimiting := e.config.RateLimit.Enabled ||
		(e.config.RateLimit.MaxLoginAttempts > 0 && e.config.RateLimit.LoginCooldownDuration > 0)

	return SecurityReport{
		ProductionMode:   e.config.Security.ProductionMode,
		SigningAlgorithm: e.config.JWT.SigningMethod,
		AccessTTL:        e.config.JWT.AccessTTL,
		RefreshTTL:       e.config.JWT.RefreshTTL,
		Argon2: PasswordConfigReport{
			Memory:      e.config.Password.Memory,
			Time:        e.config.Password.Time,
			Parallelism: e.config.Password.Parallelism,
			SaltLength:  e.config.Password.SaltLength,
			KeyLength:   e.config.Password.KeyLength,
		},
		FingerprintBindingEnforced:  e.config.Security.EnforceFingerprint,
		RefreshRotationEnabled:      true,
		RefreshReuseDetectionActive: true,
		SessionCapActive:            e.config.Session.MaxSessionsPerUser > 0,
		CSRFProtectionActive:        e.config.CSRF.Enabled,
		RateLimitingActive:          rateLimiting,
		AuditTrailActive:            e.config.Audit.Enabled,
	}
}
