package credlock

import (
	"context"
	"errors"

	internalaudit "github.com/credlock/credlock/internal/audit"
)

const (
	auditEventRegisterSuccess       = internalaudit.KindRegisterSuccess
	auditEventRegisterFailure       = internalaudit.KindRegisterFailure
	auditEventRegisterDuplicate     = internalaudit.KindRegisterDuplicate
	auditEventLoginSuccess          = internalaudit.KindLoginSuccess
	auditEventLoginFailure          = internalaudit.KindLoginFailure
	auditEventAccountLocked         = internalaudit.KindAccountLocked
	auditEventMFARequired           = internalaudit.KindMFARequired
	auditEventMFASuccess            = internalaudit.KindMFASuccess
	auditEventMFAFailure            = internalaudit.KindMFAFailure
	auditEventVerificationIssued    = internalaudit.KindVerificationIssued
	auditEventVerificationConfirm   = internalaudit.KindVerificationConfirm
	auditEventVerificationFailure   = internalaudit.KindVerificationFailure
	auditEventPasswordResetRequest  = internalaudit.KindPasswordResetRequest
	auditEventPasswordResetConfirm  = internalaudit.KindPasswordResetConfirm
	auditEventPasswordResetFailure  = internalaudit.KindPasswordResetFailure
	auditEventPasswordChangeSuccess = internalaudit.KindPasswordChangeSuccess
	auditEventPasswordChangeFailure = internalaudit.KindPasswordChangeFailure
	auditEventLogout                = internalaudit.KindLogout
	auditEventAuthenticateRejected  = internalaudit.KindAuthenticateRejected
	auditEventProfileUpsert         = internalaudit.KindProfileUpsert
	auditEventDispatchFailure       = internalaudit.KindDispatchFailure
)

// AuditErrorCode is the stable error label carried in audit events.
type AuditErrorCode string

const (
	auditErrUnauthorized       AuditErrorCode = "unauthorized"
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrUserNotFound       AuditErrorCode = "user_not_found"
	auditErrAccountLocked      AuditErrorCode = "account_locked"
	auditErrAccountUnverified  AuditErrorCode = "account_unverified"
	auditErrAlreadyVerified    AuditErrorCode = "already_verified"
	auditErrPasswordPolicy     AuditErrorCode = "password_policy"
	auditErrPasswordReuse      AuditErrorCode = "password_reuse"
	auditErrInvalidOldPassword AuditErrorCode = "invalid_old_password"
	auditErrInvalidToken       AuditErrorCode = "invalid_token"
	auditErrTokenExpired       AuditErrorCode = "token_expired"
	auditErrTokenRevoked       AuditErrorCode = "token_revoked"
	auditErrOTPInvalid         AuditErrorCode = "otp_invalid"
	auditErrMFAInvalid         AuditErrorCode = "mfa_invalid"
	auditErrDuplicate          AuditErrorCode = "duplicate"
	auditErrIdentifierRequired AuditErrorCode = "identifier_required"
	auditErrUnavailable        AuditErrorCode = "backend_unavailable"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	kind AuditKind,
	success bool,
	userID string,
	tokenID string,
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
		Kind:     kind,
		UserID:   userID,
		TokenID:  tokenID,
		IP:       clientIPFromContext(ctx),
		Success:  success,
		Metadata: metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
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
	case errors.Is(err, ErrUserNotFound), errors.Is(err, ErrNoSuchUser):
		return auditErrUserNotFound
	case errors.Is(err, ErrAccountLocked):
		return auditErrAccountLocked
	case errors.Is(err, ErrAccountUnverified):
		return auditErrAccountUnverified
	case errors.Is(err, ErrAlreadyVerified):
		return auditErrAlreadyVerified
	case errors.Is(err, ErrPasswordPolicy):
		return auditErrPasswordPolicy
	case errors.Is(err, ErrPasswordReuse):
		return auditErrPasswordReuse
	case errors.Is(err, ErrInvalidOldPassword):
		return auditErrInvalidOldPassword
	case errors.Is(err, ErrVerificationInvalid), errors.Is(err, ErrTokenMissing):
		return auditErrInvalidToken
	case errors.Is(err, ErrTokenExpired):
		return auditErrTokenExpired
	case errors.Is(err, ErrTokenRevoked):
		return auditErrTokenRevoked
	case errors.Is(err, ErrOTPInvalid):
		return auditErrOTPInvalid
	case errors.Is(err, ErrMFAInvalid):
		return auditErrMFAInvalid
	case errors.Is(err, ErrAccountExists), errors.Is(err, ErrDuplicateIdentifier):
		return auditErrDuplicate
	case errors.Is(err, ErrIdentifierRequired):
		return auditErrIdentifierRequired
	case errors.Is(err, ErrSecretStoreUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
