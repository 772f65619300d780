package authgate

import (
	"context"
	"log"
	"strconv"

	"github.com/movaro/authgate/csrf"
	"github.com/movaro/authgate/permission"
	"github.com/movaro/authgate/rate"
	"github.com/movaro/authgate/sanitize"
)

// Authorize describes the authorize operation and its observable behavior.
//
// Authorize may return an error when input validation, dependency calls, or security checks fail.
// Authorize does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Authorize(ctx context.Context, identity Identity, perm string) error {
	if e == nil || e.roles == nil {
		return ErrEngineNotReady
	}
	if identity.Anonymous() {
		return ErrUnauthorized
	}
	if !e.roles.HasPermission(identity.Role, perm) {
		e.metricInc(MetricPermissionDenied)
		e.emitAudit(ctx, auditEventPermissionDenied, false, identity.UserID, identity.Role, identity.SessionID, ErrPermissionDenied, func() map[string]string {
			return map[string]string{
				"permission": perm,
			}
		})
		return ErrPermissionDenied
	}
	return nil
}

// AuthorizeResource describes the authorizeresource operation and its observable behavior.
//
// AuthorizeResource may return an error when input validation, dependency calls, or security checks fail.
// AuthorizeResource does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) AuthorizeResource(ctx context.Context, identity Identity, perm, ownerID string) error {
	if e == nil || e.roles == nil {
		return ErrEngineNotReady
	}
	if identity.Anonymous() {
		return ErrUnauthorized
	}
	if !e.roles.CanAccessResource(identity.Role, perm, identity.UserID, ownerID) {
		e.metricInc(MetricPermissionDenied)
		e.emitAudit(ctx, auditEventPermissionDenied, false, identity.UserID, identity.Role, identity.SessionID, ErrPermissionDenied, func() map[string]string {
			return map[string]string{
				"permission": perm,
				"owner_id":   ownerID,
			}
		})
		return ErrPermissionDenied
	}
	return nil
}

// IsAdmin describes the isadmin operation and its observable behavior.
//
// IsAdmin may return an error when input validation, dependency calls, or security checks fail.
// IsAdmin does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) IsAdmin(identity Identity) bool {
	if e == nil || e.roles == nil {
		return false
	}
	return e.roles.IsAdmin(identity.Role)
}

// IssueCSRFToken describes the issuecsrftoken operation and its observable behavior.
//
// IssueCSRFToken may return an error when input validation, dependency calls, or security checks fail.
// IssueCSRFToken does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) IssueCSRFToken() (string, error) {
	if e == nil || e.csrfGuard == nil {
		return "", ErrEngineNotReady
	}
	token, err := e.csrfGuard.GenerateToken()
	if err != nil {
		return "", err
	}
	return e.csrfGuard.Encode(token), nil
}

// CheckCSRF describes the checkcsrf operation and its observable behavior.
//
// CheckCSRF may return an error when input validation, dependency calls, or security checks fail.
// CheckCSRF does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) CheckCSRF(ctx context.Context, method, headerValue, cookieValue, origin string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if e.csrfGuard == nil || csrf.ExemptMethod(method) {
		return nil
	}
	if origin != "" && !e.csrfGuard.CheckOrigin(origin) {
		e.metricInc(MetricCSRFRejected)
		e.emitAudit(ctx, auditEventCSRFRejected, false, "", "", "", ErrCSRFRejected, func() map[string]string {
			return map[string]string{
				"reason": "origin_rejected",
			}
		})
		return ErrCSRFRejected
	}
	if !e.csrfGuard.VerifyDoubleSubmit(headerValue, cookieValue) {
		e.metricInc(MetricCSRFRejected)
		e.emitAudit(ctx, auditEventCSRFRejected, false, "", "", "", ErrCSRFRejected, func() map[string]string {
			return map[string]string{
				"reason": "double_submit_mismatch",
			}
		})
		return ErrCSRFRejected
	}
	return nil
}

// CheckRate describes the checkrate operation and its observable behavior.
//
// CheckRate may return an error when input validation, dependency calls, or security checks fail.
// CheckRate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) CheckRate(ctx context.Context, path string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if !e.config.RateLimit.Enabled || e.rateLimiter == nil {
		return nil
	}
	if e.rateLimiter.Bypass(path) {
		return nil
	}

	key := rate.Key(apiKeyFromContext(ctx), clientIPFromContext(ctx))
	decision, err := e.rateLimiter.Allow(ctx, key)
	if err != nil {
		// Fail open: a limiter backend outage does not reject traffic.
		log.Print("authgate: rate limiter unavailable")
		return nil
	}
	if !decision.Allowed {
		e.emitRateLimit(ctx, "request", func() map[string]string {
			return map[string]string{
				"path": path,
			}
		})
		return &RateLimitError{RetryAfter: decision.RetryAfter}
	}
	return nil
}

// SanitizeObject describes the sanitizeobject operation and its observable behavior.
//
// SanitizeObject may return an error when input validation, dependency calls, or security checks fail.
// SanitizeObject does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) SanitizeObject(ctx context.Context, in map[string]any) map[string]any {
	out, dropped := sanitize.SanitizeObjectReport(in)
	if dropped > 0 {
		e.metricInc(MetricSanitizeRejected)
		e.emitAudit(ctx, auditEventSanitizeRejected, false, "", "", "", nil, func() map[string]string {
			return map[string]string{
				"dropped_keys": strconv.Itoa(dropped),
			}
		})
	}
	return out
}

// FilterOwned narrows items to those the identity may see under perm:
// admins see every item; any other role sees only the items it owns, and
// only while holding the permission.
func FilterOwned[T permission.Owned](e *Engine, identity Identity, items []T, perm string) []T {
	if e == nil || e.roles == nil {
		return nil
	}
	return permission.FilterByPermission(e.roles, items, identity.Role, identity.UserID, perm)
}
