package authgate

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/movaro/authgate/password"
	"github.com/movaro/authgate/revocation"
	"github.com/movaro/authgate/sanitize"
)

// CreateAccount describes the createaccount operation and its observable behavior.
//
// CreateAccount may return an error when input validation, dependency calls, or security checks fail.
// CreateAccount does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) CreateAccount(ctx context.Context, req CreateAccountRequest) (*CreateAccountResult, error) {
	if e == nil || e.passwordHash == nil || e.userProvider == nil {
		return nil, ErrEngineNotReady
	}
	if !e.config.Account.Enabled {
		return nil, ErrAccountCreationDisabled
	}
	ctx, cancel := e.opContext(ctx)
	defer cancel()

	identifier := sanitize.SanitizeString(req.Identifier)
	email := sanitize.SanitizeString(req.Email)
	if identifier == "" {
		e.emitAudit(ctx, auditEventAccountCreationFailure, false, "", "", "", ErrValidation, func() map[string]string {
			return map[string]string{
				"reason": "empty_identifier",
			}
		})
		return nil, fmt.Errorf("%w: identifier required", ErrValidation)
	}
	if email != "" && !sanitize.IsValidEmail(email) {
		e.emitAudit(ctx, auditEventAccountCreationFailure, false, "", "", "", ErrValidation, func() map[string]string {
			return map[string]string{
				"reason": "invalid_email",
			}
		})
		return nil, fmt.Errorf("%w: invalid email", ErrValidation)
	}

	role := req.Role
	if role == "" {
		role = e.config.Account.DefaultRole
	}
	if !e.roles.Known(role) {
		e.emitAudit(ctx, auditEventAccountCreationFailure, false, "", role, "", ErrAccountRoleInvalid, nil)
		return nil, ErrAccountRoleInvalid
	}

	if result := e.passwordPolicy.Validate(req.Password); !result.IsValid {
		e.emitAudit(ctx, auditEventAccountCreationFailure, false, "", role, "", ErrPasswordPolicy, func() map[string]string {
			return map[string]string{
				"reason": "password_policy",
			}
		})
		return nil, fmt.Errorf("%w: %s", ErrPasswordPolicy, strings.Join(result.Errors, "; "))
	}

	hash, err := e.passwordHash.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	user, err := e.userProvider.CreateUser(ctx, CreateUserInput{
		Identifier:   identifier,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Status:       AccountActive,
	})
	if err != nil {
		if errors.Is(err, ErrProviderDuplicateIdentifier) {
			e.metricInc(MetricAccountCreationDuplicate)
			e.emitAudit(ctx, auditEventAccountCreationDup, false, "", role, "", ErrAccountExists, func() map[string]string {
				return map[string]string{
					"identifier": identifier,
				}
			})
			return nil, ErrAccountExists
		}
		e.emitAudit(ctx, auditEventAccountCreationFailure, false, "", role, "", err, nil)
		return nil, mapTimeout(err)
	}

	e.metricInc(MetricAccountCreationSuccess)
	e.emitAuditResource(ctx, auditEventAccountCreationSuccess, true, user.UserID, user.Role, "", auditResource{
		Type:    "account",
		ID:      user.UserID,
		Changes: []string{fmt.Sprintf("status: -> %s", AccountActive)},
	}, nil, func() map[string]string {
		return map[string]string{
			"identifier": identifier,
		}
	})

	result := &CreateAccountResult{
		UserID: user.UserID,
		Role:   user.Role,
	}

	if e.config.Account.AutoLogin {
		pair, sid, _, err := e.issuePair(ctx, user)
		if err != nil {
			e.emitAudit(ctx, auditEventLoginFailure, false, user.UserID, user.Role, "", err, func() map[string]string {
				return map[string]string{
					"reason": "auto_login_failed",
				}
			})
			return nil, mapTimeout(err)
		}
		e.metricInc(MetricSessionCreated)
		e.metricInc(MetricLoginSuccess)
		e.emitAudit(ctx, auditEventLoginSuccess, true, user.UserID, user.Role, sid, nil, func() map[string]string {
			return map[string]string{
				"identifier": identifier,
				"auto_login": "true",
			}
		})
		result.Tokens = pair
	}

	return result, nil
}

// ChangePassword describes the changepassword operation and its observable behavior.
//
// ChangePassword may return an error when input validation, dependency calls, or security checks fail.
// ChangePassword does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if e == nil || e.passwordHash == nil || e.userProvider == nil {
		return ErrEngineNotReady
	}
	ctx, cancel := e.opContext(ctx)
	defer cancel()

	if userID == "" || oldPassword == "" || newPassword == "" {
		e.emitAudit(ctx, auditEventPasswordChangeFailed, false, userID, "", "", ErrPasswordPolicy, func() map[string]string {
			return map[string]string{
				"reason": "invalid_input",
			}
		})
		return ErrPasswordPolicy
	}

	user, err := e.userProvider.GetUserByID(userID)
	if err != nil {
		e.emitAudit(ctx, auditEventPasswordChangeFailed, false, userID, "", "", ErrUserNotFound, func() map[string]string {
			return map[string]string{
				"reason": "user_not_found",
			}
		})
		return ErrUserNotFound
	}
	if statusErr := accountStatusToError(user.Status); statusErr != nil {
		e.emitAudit(ctx, auditEventPasswordChangeFailed, false, userID, user.Role, "", statusErr, func() map[string]string {
			return map[string]string{
				"reason": "account_status",
			}
		})
		return statusErr
	}

	oldOK, err := e.passwordHash.Verify(oldPassword, user.PasswordHash)
	if err != nil || !oldOK {
		e.metricInc(MetricPasswordChangeInvalidOld)
		e.emitAudit(ctx, auditEventPasswordChangeOldWrong, false, userID, user.Role, "", ErrInvalidCredentials, nil)
		return ErrInvalidCredentials
	}

	if result := e.passwordPolicy.Validate(newPassword); !result.IsValid {
		e.emitAudit(ctx, auditEventPasswordChangeFailed, false, userID, user.Role, "", ErrPasswordPolicy, func() map[string]string {
			return map[string]string{
				"reason": "password_policy",
			}
		})
		return fmt.Errorf("%w: %s", ErrPasswordPolicy, strings.Join(result.Errors, "; "))
	}

	samePassword, err := e.passwordHash.Verify(newPassword, user.PasswordHash)
	if err == nil && samePassword {
		e.metricInc(MetricPasswordChangeReuseRejected)
		e.emitAudit(ctx, auditEventPasswordChangeReuse, false, userID, user.Role, "", ErrPasswordReuse, nil)
		return ErrPasswordReuse
	}
	if password.CheckHistory(newPassword, user.PasswordHistory, e.passwordHash) {
		e.metricInc(MetricPasswordChangeReuseRejected)
		e.emitAudit(ctx, auditEventPasswordChangeReuse, false, userID, user.Role, "", ErrPasswordReuse, nil)
		return ErrPasswordReuse
	}

	newHash, err := e.passwordHash.Hash(newPassword)
	if err != nil {
		return err
	}

	history := password.PushHistory(user.PasswordHistory, user.PasswordHash)
	if err := e.userProvider.UpdateCredential(ctx, userID, newHash, history); err != nil {
		e.emitAudit(ctx, auditEventPasswordChangeFailed, false, userID, user.Role, "", err, func() map[string]string {
			return map[string]string{
				"reason": "update_credential_failed",
			}
		})
		return mapTimeout(err)
	}

	if e.config.Account.RevokeSessionsOnPasswordChange {
		if _, err := e.revocations.RevokeAllUserTokens(ctx, userID, revocation.ReasonPasswordChange); err != nil {
			log.Print("authgate: token revocation failed after password change")
		}
		if _, err := e.sessionStore.DeleteAllForUser(ctx, userID); err != nil {
			log.Print("authgate: session teardown failed after password change")
		}
		e.metricInc(MetricSessionInvalidated)
	}

	if e.rateLimiter != nil {
		identifier := user.Identifier
		if identifier == "" {
			identifier = userID
		}
		// Limiter reset is best-effort and must not block successful password change.
		if err := e.rateLimiter.ResetLogin(ctx, identifier, clientIPFromContext(ctx)); err != nil {
			log.Print("authgate: login limiter reset failed after password change")
		}
	}

	oldPassword = ""
	newPassword = ""
	e.metricInc(MetricPasswordChangeSuccess)
	e.emitAuditResource(ctx, auditEventPasswordChangeSuccess, true, userID, user.Role, "", auditResource{
		Type:    "account",
		ID:      userID,
		Changes: []string{"password_hash: rotated"},
	}, nil, nil)

	return nil
}

// SetAccountStatus describes the setaccountstatus operation and its observable behavior.
//
// SetAccountStatus may return an error when input validation, dependency calls, or security checks fail.
// SetAccountStatus does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) SetAccountStatus(ctx context.Context, userID string, status AccountStatus) error {
	if e == nil || e.userProvider == nil {
		return ErrEngineNotReady
	}
	ctx, cancel := e.opContext(ctx)
	defer cancel()

	// The prior status is only needed for the audit diff, so a lookup
	// failure here must not block the mutation itself.
	statusDiff := fmt.Sprintf("status: -> %s", status)
	if prior, err := e.userProvider.GetUserByID(userID); err == nil {
		statusDiff = fmt.Sprintf("status: %s -> %s", prior.Status, status)
	}

	user, err := e.userProvider.UpdateAccountStatus(ctx, userID, status)
	if err != nil {
		e.emitAudit(ctx, auditEventAccountStatusChange, false, userID, "", "", err, nil)
		return mapTimeout(err)
	}

	// Any non-active status pulls every live token and session for the user.
	if status != AccountActive {
		if _, err := e.revocations.RevokeAllUserTokens(ctx, userID, revocation.ReasonSecurity); err != nil {
			log.Print("authgate: token revocation failed after status change")
		}
		if _, err := e.sessionStore.DeleteAllForUser(ctx, userID); err != nil {
			log.Print("authgate: session teardown failed after status change")
		}
		e.metricInc(MetricSessionInvalidated)
	}

	switch status {
	case AccountDisabled:
		e.metricInc(MetricAccountDisabled)
	case AccountLocked:
		e.metricInc(MetricAccountLocked)
	case AccountDeleted:
		e.metricInc(MetricAccountDeleted)
	}

	e.emitAuditResource(ctx, auditEventAccountStatusChange, true, user.UserID, user.Role, "", auditResource{
		Type:    "account",
		ID:      user.UserID,
		Changes: []string{statusDiff},
	}, nil, func() map[string]string {
		return map[string]string{
			"status": strconv.Itoa(int(status)),
		}
	})

	return nil
}
