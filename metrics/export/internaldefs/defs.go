package internaldefs

import (
	authgate "github.com/movaro/authgate"
)

// CounterDef defines a public type used by authgate APIs.
//
// CounterDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CounterDef struct {
	ID   authgate.MetricID
	Name string
	Help string
}

// HistogramDef defines a public type used by authgate APIs.
//
// HistogramDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type HistogramDef struct {
	ID   authgate.MetricID
	Name string
	Help string
}

// CounterDefs is an exported constant or variable used by the authentication engine.
var CounterDefs = []CounterDef{
	{ID: authgate.MetricLoginSuccess, Name: "authgate_login_success_total", Help: "Successful login attempts."},
	{ID: authgate.MetricLoginFailure, Name: "authgate_login_failure_total", Help: "Failed login attempts."},
	{ID: authgate.MetricLoginRateLimited, Name: "authgate_login_rate_limited_total", Help: "Rate-limited login attempts."},
	{ID: authgate.MetricAuthSuccess, Name: "authgate_auth_success_total", Help: "Successful access-token verifications."},
	{ID: authgate.MetricAuthFailure, Name: "authgate_auth_failure_total", Help: "Failed access-token verifications."},
	{ID: authgate.MetricAuthBlacklisted, Name: "authgate_auth_blacklisted_total", Help: "Verifications rejected on the revocation blacklist."},
	{ID: authgate.MetricFingerprintMismatch, Name: "authgate_fingerprint_mismatch_total", Help: "Tokens presented from a different device context."},
	{ID: authgate.MetricRefreshSuccess, Name: "authgate_refresh_success_total", Help: "Successful refresh rotations."},
	{ID: authgate.MetricRefreshFailure, Name: "authgate_refresh_failure_total", Help: "Failed refresh operations."},
	{ID: authgate.MetricRefreshReuseDetected, Name: "authgate_refresh_reuse_detected_total", Help: "Detected refresh token reuses."},
	{ID: authgate.MetricRefreshRateLimited, Name: "authgate_refresh_rate_limited_total", Help: "Rate-limited refresh attempts."},
	{ID: authgate.MetricSessionCreated, Name: "authgate_session_created_total", Help: "Created device sessions."},
	{ID: authgate.MetricSessionEvicted, Name: "authgate_session_evicted_total", Help: "Sessions evicted by the concurrent-session cap."},
	{ID: authgate.MetricSessionInvalidated, Name: "authgate_session_invalidated_total", Help: "Invalidated sessions."},
	{ID: authgate.MetricLogout, Name: "authgate_logout_total", Help: "Single-session logout operations."},
	{ID: authgate.MetricLogoutAll, Name: "authgate_logout_all_total", Help: "Logout-all operations."},
	{ID: authgate.MetricCSRFRejected, Name: "authgate_csrf_rejected_total", Help: "Requests rejected by CSRF verification."},
	{ID: authgate.MetricRateLimitHit, Name: "authgate_rate_limit_hit_total", Help: "Rate-limit checks that denied requests."},
	{ID: authgate.MetricSanitizeRejected, Name: "authgate_sanitize_rejected_total", Help: "Inputs with fields dropped by the sanitization boundary."},
	{ID: authgate.MetricPermissionDenied, Name: "authgate_permission_denied_total", Help: "Authorization checks that denied access."},
	{ID: authgate.MetricAccountCreationSuccess, Name: "authgate_account_creation_success_total", Help: "Successful account creations."},
	{ID: authgate.MetricAccountCreationDuplicate, Name: "authgate_account_creation_duplicate_total", Help: "Account creation attempts rejected as duplicate."},
	{ID: authgate.MetricPasswordChangeSuccess, Name: "authgate_password_change_success_total", Help: "Successful password changes."},
	{ID: authgate.MetricPasswordChangeInvalidOld, Name: "authgate_password_change_invalid_old_total", Help: "Password change attempts with invalid old password."},
	{ID: authgate.MetricPasswordChangeReuseRejected, Name: "authgate_password_change_reuse_rejected_total", Help: "Password change attempts rejected for reuse."},
	{ID: authgate.MetricAccountDisabled, Name: "authgate_account_disabled_total", Help: "Account disable operations."},
	{ID: authgate.MetricAccountLocked, Name: "authgate_account_locked_total", Help: "Account lock operations."},
	{ID: authgate.MetricAccountDeleted, Name: "authgate_account_deleted_total", Help: "Account delete operations."},
}

// HistogramDefs is an exported constant or variable used by the authentication engine.
var HistogramDefs = []HistogramDef{
	{ID: authgate.MetricAuthenticateLatency, Name: "authgate_authenticate_latency_seconds", Help: "Authenticate latency histogram."},
}

// HistogramBounds is an exported constant or variable used by the authentication engine.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix is an exported constant or variable used by the authentication engine.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets describes the normalizebuckets operation and its observable behavior.
//
// NormalizeBuckets may return an error when input validation, dependency calls, or security checks fail.
// NormalizeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets describes the cumulativebuckets operation and its observable behavior.
//
// CumulativeBuckets may return an error when input validation, dependency calls, or security checks fail.
// CumulativeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
