package authgate

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventLoginSuccess           = "login_success"
	auditEventLoginFailure           = "login_failure"
	auditEventLoginRateLimited       = "login_rate_limited"
	auditEventAuthBlacklisted        = "auth_blacklisted"
	auditEventFingerprintMismatch    = "fingerprint_mismatch"
	auditEventRefreshSuccess         = "refresh_success"
	auditEventRefreshInvalid         = "refresh_invalid"
	auditEventRefreshRateLimited     = "refresh_rate_limited"
	auditEventRefreshReuseDetected   = "refresh_reuse_detected"
	auditEventSessionEvicted         = "session_evicted"
	auditEventSessionRevoked         = "session_revoked"
	auditEventLogoutSession          = "logout_session"
	auditEventLogoutAll              = "logout_all"
	auditEventCSRFRejected           = "csrf_rejected"
	auditEventRateLimitTriggered     = "rate_limit_triggered"
	auditEventPermissionDenied       = "permission_denied"
	auditEventSanitizeRejected       = "sanitize_rejected"
	auditEventAccountCreationSuccess = "account_creation_success"
	auditEventAccountCreationFailure = "account_creation_failure"
	auditEventAccountCreationDup     = "account_creation_duplicate"
	auditEventAccountStatusChange    = "account_status_change"
	auditEventPasswordChangeSuccess  = "password_change_success"
	auditEventPasswordChangeFailed   = "password_change_failure"
	auditEventPasswordChangeOldWrong = "password_change_invalid_old"
	auditEventPasswordChangeReuse    = "password_change_reuse_attempt"
)

// AuditErrorCode defines a public type used by authgate APIs.
//
// AuditErrorCode instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditErrorCode string

const (
	auditErrUnauthorized       AuditErrorCode = "unauthorized"
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrRateLimited        AuditErrorCode = "rate_limited"
	auditErrRefreshReuse       AuditErrorCode = "refresh_reuse"
	auditErrInvalidToken       AuditErrorCode = "invalid_token"
	auditErrSessionNotFound    AuditErrorCode = "session_not_found"
	auditErrUserNotFound       AuditErrorCode = "user_not_found"
	auditErrAccountDisabled    AuditErrorCode = "account_disabled"
	auditErrAccountLocked      AuditErrorCode = "account_locked"
	auditErrAccountDeleted     AuditErrorCode = "account_deleted"
	auditErrAccountUnverified  AuditErrorCode = "account_unverified"
	auditErrPasswordPolicy     AuditErrorCode = "password_policy"
	auditErrPasswordReuse      AuditErrorCode = "password_reuse"
	auditErrCSRFRejected       AuditErrorCode = "csrf_rejected"
	auditErrPermissionDenied   AuditErrorCode = "permission_denied"
	auditErrValidation         AuditErrorCode = "validation_failed"
	auditErrConflict           AuditErrorCode = "conflict"
	auditErrDuplicate          AuditErrorCode = "duplicate"
	auditErrTimeout            AuditErrorCode = "operation_timeout"
	auditErrInternal           AuditErrorCode = "internal_error"
)

// auditResource names the entity a mutation acted on. Changes lists
// field transitions in "field: old -> new" form.
type auditResource struct {
	Type    string
	ID      string
	Changes []string
}

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	actorID string,
	role string,
	sessionID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	e.emitAuditResource(ctx, eventType, success, actorID, role, sessionID, auditResource{}, err, metadataBuilder)
}

func (e *Engine) emitAuditResource(
	ctx context.Context,
	eventType string,
	success bool,
	actorID string,
	role string,
	sessionID string,
	res auditResource,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp:     time.Now().UTC(),
		EventType:     eventType,
		ActorID:       actorID,
		Role:          role,
		SessionID:     sessionID,
		IP:            clientIPFromContext(ctx),
		ResourceType:  res.Type,
		ResourceID:    res.ID,
		Changes:       res.Changes,
		Success:       success,
		CorrelationID: CorrelationIDFromContext(ctx),
		Metadata:      metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func (e *Engine) emitRateLimit(
	ctx context.Context,
	scope string,
	metadataBuilder func() map[string]string,
) {
	e.metricInc(MetricRateLimitHit)
	e.emitAudit(ctx, auditEventRateLimitTriggered, false, "", "", "", nil, func() map[string]string {
		base := map[string]string{
			"scope": scope,
		}
		if metadataBuilder == nil {
			return base
		}
		for k, v := range metadataBuilder() {
			base[k] = v
		}
		return base
	})
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrUnauthorized):
		return auditErrUnauthorized
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrLoginRateLimited),
		errors.Is(err, ErrRefreshRateLimited),
		errors.Is(err, ErrRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrRefreshReuse):
		return auditErrRefreshReuse
	case errors.Is(err, ErrRefreshInvalid),
		errors.Is(err, ErrTokenInvalid):
		return auditErrInvalidToken
	case errors.Is(err, ErrSessionNotFound):
		return auditErrSessionNotFound
	case errors.Is(err, ErrUserNotFound):
		return auditErrUserNotFound
	case errors.Is(err, ErrAccountDisabled):
		return auditErrAccountDisabled
	case errors.Is(err, ErrAccountLocked):
		return auditErrAccountLocked
	case errors.Is(err, ErrAccountDeleted):
		return auditErrAccountDeleted
	case errors.Is(err, ErrAccountUnverified):
		return auditErrAccountUnverified
	case errors.Is(err, ErrPasswordPolicy):
		return auditErrPasswordPolicy
	case errors.Is(err, ErrPasswordReuse):
		return auditErrPasswordReuse
	case errors.Is(err, ErrCSRFRejected):
		return auditErrCSRFRejected
	case errors.Is(err, ErrPermissionDenied):
		return auditErrPermissionDenied
	case errors.Is(err, ErrValidation):
		return auditErrValidation
	case errors.Is(err, ErrConflict):
		return auditErrConflict
	case errors.Is(err, ErrAccountExists),
		errors.Is(err, ErrProviderDuplicateIdentifier):
		return auditErrDuplicate
	case errors.Is(err, ErrOperationTimeout):
		return auditErrTimeout
	default:
		return auditErrInternal
	}
}
