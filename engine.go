package authgate

import (
	"context"
	"errors"
	"log"
	"strconv"
	"time"

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

// Engine defines a public type used by authgate APIs.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Engine struct {
	config         Config
	roles          *permission.Table
	sessionStore   *session.Store
	revocations    *revocation.Registry
	rateLimiter    *rate.Limiter
	audit          *auditDispatcher
	metrics        *Metrics
	passwordHash   *password.Argon2
	passwordPolicy *password.Policy
	csrfGuard      *csrf.Guard
	jwtManager     *jwt.Manager
	userProvider   UserProvider
	fingerprint    func(userAgent, ip string) string
}

// Close describes the close operation and its observable behavior.
//
// Close may return an error when input validation, dependency calls, or security checks fail.
// Close does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped describes the auditdropped operation and its observable behavior.
//
// AuditDropped may return an error when input validation, dependency calls, or security checks fail.
// AuditDropped does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot may return an error when input validation, dependency calls, or security checks fail.
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// opContext bounds the store I/O of one engine operation. Writes that
// complete after the deadline are not rolled back.
func (e *Engine) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.config.Security.OperationTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, e.config.Security.OperationTimeout)
}

func mapTimeout(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrOperationTimeout
	}
	return err
}

// Login describes the login operation and its observable behavior.
//
// Login may return an error when input validation, dependency calls, or security checks fail.
// Login does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Login(ctx context.Context, identifier, plaintext string) (*TokenPair, error) {
	if e == nil || e.passwordHash == nil || e.userProvider == nil {
		return nil, ErrEngineNotReady
	}
	ctx, cancel := e.opContext(ctx)
	defer cancel()

	ip := clientIPFromContext(ctx)

	if e.rateLimiter != nil {
		if err := e.rateLimiter.CheckLogin(ctx, identifier, ip); err != nil {
			e.metricInc(MetricLoginRateLimited)
			e.emitAudit(ctx, auditEventLoginRateLimited, false, "", "", "", ErrLoginRateLimited, func() map[string]string {
				return map[string]string{
					"identifier": identifier,
				}
			})
			e.emitRateLimit(ctx, "login", func() map[string]string {
				return map[string]string{
					"identifier": identifier,
				}
			})
			return nil, ErrLoginRateLimited
		}
	}
	if plaintext == "" {
		return nil, e.failLogin(ctx, identifier, ip, "", "empty_password")
	}

	user, err := e.userProvider.GetUserByIdentifier(identifier)
	if err != nil {
		return nil, e.failLogin(ctx, identifier, ip, "", "user_not_found")
	}

	ok, err := e.passwordHash.Verify(plaintext, user.PasswordHash)
	if err != nil || !ok {
		return nil, e.failLogin(ctx, identifier, ip, user.UserID, "password_mismatch")
	}
	if statusErr := accountStatusToError(user.Status); statusErr != nil {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, user.UserID, user.Role, "", statusErr, func() map[string]string {
			return map[string]string{
				"identifier": identifier,
				"reason":     "account_status",
			}
		})
		return nil, statusErr
	}
	if !e.roles.Known(user.Role) {
		return nil, e.failLogin(ctx, identifier, ip, user.UserID, "role_unknown")
	}

	if e.config.Password.UpgradeOnLogin {
		if needsUpgrade, err := e.passwordHash.NeedsUpgrade(user.PasswordHash); err == nil && needsUpgrade {
			if upgradedHash, err := e.passwordHash.Hash(plaintext); err == nil {
				// Rehash update is best-effort and must not block successful login.
				if err := e.userProvider.UpdateCredential(ctx, user.UserID, upgradedHash, user.PasswordHistory); err != nil {
					log.Print("authgate: password hash upgrade update failed")
				}
			} else {
				log.Print("authgate: password hash upgrade generation failed")
			}
		}
	}
	plaintext = ""

	pair, sid, evicted, err := e.issuePair(ctx, user)
	if err != nil {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, user.UserID, user.Role, "", err, func() map[string]string {
			return map[string]string{
				"identifier": identifier,
				"reason":     "issue_pair_failed",
			}
		})
		return nil, mapTimeout(err)
	}
	for _, evictedHash := range evicted {
		e.metricInc(MetricSessionEvicted)
		hash := evictedHash
		e.emitAuditResource(ctx, auditEventSessionEvicted, true, user.UserID, user.Role, hash, auditResource{
			Type:    "session",
			ID:      hash,
			Changes: []string{"state: active -> evicted"},
		}, nil, func() map[string]string {
			return map[string]string{
				"reason": "session_cap",
			}
		})
	}

	if e.rateLimiter != nil {
		// Limiter reset is best-effort and must not block successful login.
		if err := e.rateLimiter.ResetLogin(ctx, identifier, ip); err != nil {
			log.Print("authgate: login limiter reset failed")
		}
	}

	e.metricInc(MetricSessionCreated)
	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, user.UserID, user.Role, sid, nil, func() map[string]string {
		return map[string]string{
			"identifier": identifier,
		}
	})

	return pair, nil
}

// failLogin records a failed attempt against the limiter and collapses
// the caller-visible cause to undifferentiated invalid credentials.
func (e *Engine) failLogin(ctx context.Context, identifier, ip, userID, reason string) error {
	if e.rateLimiter != nil {
		if err := e.rateLimiter.IncrementLogin(ctx, identifier, ip); err != nil {
			e.metricInc(MetricLoginRateLimited)
			e.emitAudit(ctx, auditEventLoginRateLimited, false, userID, "", "", ErrLoginRateLimited, func() map[string]string {
				return map[string]string{
					"identifier": identifier,
				}
			})
			e.emitRateLimit(ctx, "login", func() map[string]string {
				return map[string]string{
					"identifier": identifier,
				}
			})
			return ErrLoginRateLimited
		}
	}
	e.metricInc(MetricLoginFailure)
	e.emitAudit(ctx, auditEventLoginFailure, false, userID, "", "", ErrInvalidCredentials, func() map[string]string {
		return map[string]string{
			"identifier": identifier,
			"reason":     reason,
		}
	})
	return ErrInvalidCredentials
}

// issuePair mints a fingerprint-bound refresh+access pair, registers both
// hashes with the revocation tracker, and admits the device session. The
// refresh-token hash doubles as the session identifier carried in the
// access token's sid claim.
func (e *Engine) issuePair(ctx context.Context, user UserRecord) (*TokenPair, string, []string, error) {
	ip := clientIPFromContext(ctx)
	userAgent := userAgentFromContext(ctx)
	fingerprint := e.fingerprint(userAgent, ip)

	refresh, refreshExpiry, err := e.jwtManager.CreateRefresh(user.UserID, fingerprint)
	if err != nil {
		return nil, "", nil, err
	}
	sid := internal.HashTokenHex(refresh)

	access, err := e.jwtManager.CreateAccess(user.UserID, user.Role, user.Email, sid, fingerprint)
	if err != nil {
		return nil, "", nil, err
	}
	accessHash := internal.HashTokenHex(access)

	now := time.Now()
	accessExpiry := now.Add(e.jwtManager.AccessTTL())
	if err := e.revocations.Track(ctx, user.UserID, sid, refreshExpiry); err != nil {
		return nil, "", nil, err
	}
	if err := e.revocations.Track(ctx, user.UserID, accessHash, accessExpiry); err != nil {
		return nil, "", nil, err
	}

	sess := &session.Session{
		TokenHash:       sid,
		UserID:          user.UserID,
		Role:            user.Role,
		Email:           user.Email,
		Fingerprint:     fingerprint,
		IPAddress:       ip,
		UserAgent:       userAgent,
		AccessHash:      accessHash,
		AccessExpiresAt: accessExpiry.Unix(),
		CreatedAt:       now.UnixMilli(),
		LastActivity:    now.UnixMilli(),
		ExpiresAt:       refreshExpiry.Unix(),
	}

	evicted, err := e.sessionStore.Create(ctx, sess, e.config.Session.MaxSessionsPerUser)
	if err != nil {
		return nil, "", nil, err
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		Fingerprint:  fingerprint,
	}, sid, evicted, nil
}

// Authenticate describes the authenticate operation and its observable behavior.
//
// Authenticate may return an error when input validation, dependency calls, or security checks fail.
// Authenticate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
//	Performance: 1 signature verification + 1 Redis EXISTS on the hot path.
func (e *Engine) Authenticate(ctx context.Context, accessToken string) (Identity, error) {
	if e == nil || e.jwtManager == nil {
		return Identity{}, ErrEngineNotReady
	}
	if e.metrics != nil && e.metrics.LatencyEnabled() {
		start := time.Now()
		defer e.metrics.Observe(MetricAuthenticateLatency, time.Since(start))
	}
	ctx, cancel := e.opContext(ctx)
	defer cancel()

	claims, err := e.jwtManager.ParseAccess(accessToken)
	if err != nil {
		e.metricInc(MetricAuthFailure)
		return Identity{}, ErrUnauthorized
	}

	// Revocation check keys on the presented token's own hash, never the
	// session id, so a blacklisted access token stays dead even while its
	// session record lives on.
	tokenHash := internal.HashTokenHex(accessToken)
	blacklisted, err := e.revocations.IsBlacklisted(ctx, tokenHash)
	if err != nil {
		// Revocation backend down: fail closed.
		e.metricInc(MetricAuthFailure)
		return Identity{}, ErrUnauthorized
	}
	if blacklisted {
		e.metricInc(MetricAuthBlacklisted)
		e.emitAudit(ctx, auditEventAuthBlacklisted, false, claims.UID, claims.Role, claims.SID, ErrUnauthorized, nil)
		return Identity{}, ErrUnauthorized
	}

	if e.config.Security.EnforceFingerprint {
		expected := e.fingerprint(userAgentFromContext(ctx), clientIPFromContext(ctx))
		if !internal.FingerprintEqual(claims.FPH, expected) {
			e.metricInc(MetricFingerprintMismatch)
			e.metricInc(MetricAuthFailure)
			e.emitAudit(ctx, auditEventFingerprintMismatch, false, claims.UID, claims.Role, claims.SID, ErrUnauthorized, nil)
			return Identity{}, ErrUnauthorized
		}
	}

	// Activity update is best-effort; a missing session record does not
	// invalidate an otherwise live access token.
	if err := e.sessionStore.Touch(ctx, claims.SID, time.Now()); err != nil && !errors.Is(err, redis.Nil) {
		log.Print("authgate: session activity touch failed")
	}

	e.metricInc(MetricAuthSuccess)
	return Identity{
		UserID:    claims.UID,
		Role:      claims.Role,
		Email:     claims.Email,
		SessionID: claims.SID,
	}, nil
}

// Refresh describes the refresh operation and its observable behavior.
//
// Refresh may return an error when input validation, dependency calls, or security checks fail.
// Refresh does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if e == nil || e.jwtManager == nil || e.userProvider == nil {
		return nil, ErrEngineNotReady
	}
	ctx, cancel := e.opContext(ctx)
	defer cancel()

	claims, err := e.jwtManager.ParseRefresh(refreshToken)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, "", "", "", ErrRefreshInvalid, func() map[string]string {
			return map[string]string{
				"reason": "parse_failed",
			}
		})
		return nil, ErrRefreshInvalid
	}
	oldHash := internal.HashTokenHex(refreshToken)

	if e.rateLimiter != nil {
		if err := e.rateLimiter.CheckRefresh(ctx, oldHash); err != nil {
			e.metricInc(MetricRefreshRateLimited)
			e.emitAudit(ctx, auditEventRefreshRateLimited, false, claims.UID, "", oldHash, ErrRefreshRateLimited, nil)
			e.emitRateLimit(ctx, "refresh", nil)
			return nil, ErrRefreshRateLimited
		}
	}

	reason, blacklisted, err := e.revocations.RevocationReason(ctx, oldHash)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		return nil, mapTimeout(err)
	}
	if blacklisted {
		if reason == revocation.ReasonRotated {
			return nil, e.teardownOnReuse(ctx, claims.UID, oldHash)
		}
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, claims.UID, "", oldHash, ErrRefreshInvalid, func() map[string]string {
			return map[string]string{
				"reason": "blacklisted",
			}
		})
		return nil, ErrRefreshInvalid
	}

	if e.config.Security.EnforceFingerprint {
		expected := e.fingerprint(userAgentFromContext(ctx), clientIPFromContext(ctx))
		if !internal.FingerprintEqual(claims.FPH, expected) {
			e.metricInc(MetricFingerprintMismatch)
			e.metricInc(MetricRefreshFailure)
			e.emitAudit(ctx, auditEventFingerprintMismatch, false, claims.UID, "", oldHash, ErrRefreshInvalid, nil)
			return nil, ErrRefreshInvalid
		}
	}

	user, err := e.userProvider.GetUserByID(claims.UID)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, claims.UID, "", oldHash, ErrRefreshInvalid, func() map[string]string {
			return map[string]string{
				"reason": "user_not_found",
			}
		})
		return nil, ErrRefreshInvalid
	}
	if statusErr := accountStatusToError(user.Status); statusErr != nil {
		_ = e.sessionStore.Delete(ctx, oldHash)
		e.metricInc(MetricSessionInvalidated)
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, user.UserID, user.Role, oldHash, statusErr, func() map[string]string {
			return map[string]string{
				"reason": "account_status",
			}
		})
		return nil, statusErr
	}

	// Rotation commit point. SETNX on the old hash makes first-writer-wins
	// explicit: exactly one concurrent refresh proceeds, every other caller
	// observes the rotated marker and is treated as reuse.
	remaining := time.Until(claims.ExpiresAt.Time)
	won, err := e.revocations.Blacklist(ctx, oldHash, revocation.ReasonRotated, remaining)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		return nil, mapTimeout(err)
	}
	if !won {
		return nil, e.teardownOnReuse(ctx, claims.UID, oldHash)
	}

	fingerprint := claims.FPH
	refresh, refreshExpiry, err := e.jwtManager.CreateRefresh(user.UserID, fingerprint)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		return nil, err
	}
	newHash := internal.HashTokenHex(refresh)

	access, err := e.jwtManager.CreateAccess(user.UserID, user.Role, user.Email, newHash, fingerprint)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		return nil, err
	}
	accessHash := internal.HashTokenHex(access)

	accessExpiry := time.Now().Add(e.jwtManager.AccessTTL())
	if err := e.revocations.Track(ctx, user.UserID, newHash, refreshExpiry); err != nil {
		e.metricInc(MetricRefreshFailure)
		return nil, mapTimeout(err)
	}
	if err := e.revocations.Track(ctx, user.UserID, accessHash, accessExpiry); err != nil {
		e.metricInc(MetricRefreshFailure)
		return nil, mapTimeout(err)
	}

	if _, err := e.sessionStore.Rekey(ctx, oldHash, newHash, accessHash, accessExpiry, refreshExpiry); err != nil {
		if errors.Is(err, redis.Nil) {
			e.metricInc(MetricRefreshFailure)
			e.emitAudit(ctx, auditEventRefreshInvalid, false, user.UserID, user.Role, oldHash, ErrSessionNotFound, func() map[string]string {
				return map[string]string{
					"reason": "session_not_found",
				}
			})
			return nil, ErrSessionNotFound
		}
		e.metricInc(MetricRefreshFailure)
		return nil, mapTimeout(err)
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, auditEventRefreshSuccess, true, user.UserID, user.Role, newHash, nil, nil)

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		Fingerprint:  fingerprint,
	}, nil
}

// teardownOnReuse handles a replayed refresh token: the user's tracked
// tokens are blacklisted and every device session is destroyed before the
// reuse error is surfaced.
func (e *Engine) teardownOnReuse(ctx context.Context, userID, oldHash string) error {
	e.metricInc(MetricRefreshReuseDetected)
	e.metricInc(MetricSessionInvalidated)

	if _, err := e.revocations.RevokeAllUserTokens(ctx, userID, revocation.ReasonSecurity); err != nil {
		log.Print("authgate: token revocation failed during reuse teardown")
	}
	if _, err := e.sessionStore.DeleteAllForUser(ctx, userID); err != nil {
		log.Print("authgate: session teardown failed during reuse teardown")
	}

	e.emitAudit(ctx, auditEventRefreshReuseDetected, false, userID, "", oldHash, ErrRefreshReuse, nil)
	return ErrRefreshReuse
}

// Logout describes the logout operation and its observable behavior.
//
// Logout may return an error when input validation, dependency calls, or security checks fail.
// Logout does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Logout(ctx context.Context, accessToken string) error {
	if e == nil || e.jwtManager == nil {
		return ErrEngineNotReady
	}
	ctx, cancel := e.opContext(ctx)
	defer cancel()

	claims, err := e.jwtManager.ParseAccess(accessToken)
	if err != nil {
		e.emitAudit(ctx, auditEventLogoutSession, false, "", "", "", ErrTokenInvalid, func() map[string]string {
			return map[string]string{
				"reason": "invalid_access_token",
			}
		})
		return ErrTokenInvalid
	}

	accessHash := internal.HashTokenHex(accessToken)
	if _, err := e.revocations.Blacklist(ctx, accessHash, revocation.ReasonLogout, time.Until(claims.ExpiresAt.Time)); err != nil {
		e.emitAudit(ctx, auditEventLogoutSession, false, claims.UID, claims.Role, claims.SID, err, nil)
		return mapTimeout(err)
	}

	// The sid claim is the refresh-token hash; blacklisting it kills the
	// paired refresh token for the rest of its lifetime. The session record
	// carries the refresh expiry, so the blacklist entry is scoped to what
	// the token had left rather than a full refresh window.
	refreshRemaining := e.jwtManager.RefreshTTL()
	if sess, err := e.sessionStore.Get(ctx, claims.SID); err == nil {
		refreshRemaining = time.Until(time.Unix(sess.ExpiresAt, 0))
	}
	if _, err := e.revocations.Blacklist(ctx, claims.SID, revocation.ReasonLogout, refreshRemaining); err != nil {
		e.emitAudit(ctx, auditEventLogoutSession, false, claims.UID, claims.Role, claims.SID, err, nil)
		return mapTimeout(err)
	}

	if err := e.sessionStore.Delete(ctx, claims.SID); err != nil {
		e.emitAudit(ctx, auditEventLogoutSession, false, claims.UID, claims.Role, claims.SID, err, nil)
		return mapTimeout(err)
	}

	e.metricInc(MetricLogout)
	e.metricInc(MetricSessionInvalidated)
	e.emitAuditResource(ctx, auditEventLogoutSession, true, claims.UID, claims.Role, claims.SID, auditResource{
		Type:    "session",
		ID:      claims.SID,
		Changes: []string{"state: active -> revoked"},
	}, nil, nil)
	return nil
}

// RevokeSession describes the revokesession operation and its observable behavior.
//
// RevokeSession may return an error when input validation, dependency calls, or security checks fail.
// RevokeSession does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) RevokeSession(ctx context.Context, tokenHash string) error {
	if e == nil || e.sessionStore == nil {
		return ErrEngineNotReady
	}
	ctx, cancel := e.opContext(ctx)
	defer cancel()

	sess, err := e.sessionStore.Get(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrSessionNotFound
		}
		return mapTimeout(err)
	}

	ttl := time.Until(time.Unix(sess.ExpiresAt, 0))
	if _, err := e.revocations.Blacklist(ctx, sess.TokenHash, revocation.ReasonRevoked, ttl); err != nil {
		return mapTimeout(err)
	}
	if sess.AccessHash != "" {
		accessTTL := e.jwtManager.AccessTTL()
		if sess.AccessExpiresAt > 0 {
			accessTTL = time.Until(time.Unix(sess.AccessExpiresAt, 0))
		}
		if _, err := e.revocations.Blacklist(ctx, sess.AccessHash, revocation.ReasonRevoked, accessTTL); err != nil {
			return mapTimeout(err)
		}
	}
	if err := e.sessionStore.Delete(ctx, tokenHash); err != nil {
		return mapTimeout(err)
	}

	e.metricInc(MetricSessionInvalidated)
	e.emitAuditResource(ctx, auditEventSessionRevoked, true, sess.UserID, sess.Role, tokenHash, auditResource{
		Type:    "session",
		ID:      tokenHash,
		Changes: []string{"state: active -> revoked"},
	}, nil, nil)
	return nil
}

// RevokeAllUserSessions describes the revokeallusersessions operation and its observable behavior.
//
// RevokeAllUserSessions may return an error when input validation, dependency calls, or security checks fail.
// RevokeAllUserSessions does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) RevokeAllUserSessions(ctx context.Context, userID string) (int, error) {
	if e == nil || e.sessionStore == nil {
		return 0, ErrEngineNotReady
	}
	ctx, cancel := e.opContext(ctx)
	defer cancel()

	revoked, err := e.revocations.RevokeAllUserTokens(ctx, userID, revocation.ReasonRevoked)
	if err != nil {
		e.emitAudit(ctx, auditEventLogoutAll, false, userID, "", "", err, nil)
		return 0, mapTimeout(err)
	}

	sessions, err := e.sessionStore.DeleteAllForUser(ctx, userID)
	if err != nil {
		e.emitAudit(ctx, auditEventLogoutAll, false, userID, "", "", err, nil)
		return revoked, mapTimeout(err)
	}

	e.metricInc(MetricLogoutAll)
	e.metricInc(MetricSessionInvalidated)
	e.emitAuditResource(ctx, auditEventLogoutAll, true, userID, "", "", auditResource{
		Type:    "session",
		ID:      userID,
		Changes: []string{"state: active -> revoked"},
	}, nil, func() map[string]string {
		return map[string]string{
			"revoked_tokens":   strconv.Itoa(revoked),
			"deleted_sessions": strconv.Itoa(len(sessions)),
		}
	})
	return revoked, nil
}

func accountStatusToError(status AccountStatus) error {
	switch status {
	case AccountActive:
		return nil
	case AccountPendingVerification:
		return ErrAccountUnverified
	case AccountDisabled:
		return ErrAccountDisabled
	case AccountLocked:
		return ErrAccountLocked
	case AccountDeleted:
		return ErrAccountDeleted
	default:
		return ErrAccountDisabled
	}
}
