package credlock

import (
	"context"
	"errors"

	"github.com/credlock/credlock/password"
)

// ForgotPassword issues a reset passcode for the account matching the
// identifier and delivers it over that channel. The answer is uniformly
// success: an unknown identifier is audited but not surfaced, so the
// endpoint cannot be used to probe which accounts exist.
func (e *Engine) ForgotPassword(ctx context.Context, email, phone string) error {
	if e.users == nil || e.secrets == nil {
		return ErrEngineNotReady
	}
	if email == "" && phone == "" {
		return ErrIdentifierRequired
	}

	user, err := e.users.FindByEmailOrPhone(ctx, email, phone)
	if err != nil {
		if errors.Is(err, ErrNoSuchUser) {
			e.emitAudit(ctx, auditEventPasswordResetRequest, false, "", "", ErrUserNotFound, nil)
			return nil
		}
		return err
	}

	identifier := requestIdentifier(email, phone)
	code, err := e.secrets.IssueOTP(ctx, identifier)
	if err != nil {
		return err
	}

	body := "Your password reset code is " + code
	switch {
	case identifier == user.Email && e.mailer != nil:
		if err := e.mailer.Send(ctx, user.Email, "Password reset", body); err != nil {
			e.noteDispatchFailure(ctx, user.ID, "reset_email", err)
		}
	case identifier == user.Phone && e.sms != nil:
		if err := e.sms.Send(ctx, user.Phone, body); err != nil {
			e.noteDispatchFailure(ctx, user.ID, "reset_sms", err)
		}
	default:
		e.noteDispatchFailure(ctx, user.ID, "reset_channel", errors.New("no deliverable channel configured"))
	}

	e.metricInc(MetricPasswordResetRequest)
	e.emitAudit(ctx, auditEventPasswordResetRequest, true, user.ID, "", nil, nil)
	return nil
}

// ResetRequest is the input for [Engine.ResetPassword].
type ResetRequest struct {
	Email       string
	Phone       string
	OTP         string
	NewPassword string
}

// ResetPassword redeems a reset passcode for a new password. The passcode
// is consumed before the account is even looked up, so an unknown
// identifier answers the same [ErrOTPInvalid] as a wrong code and the
// endpoint leaks nothing about which accounts exist. The new password must
// pass the strength policy and differ from the recent hashes; on success
// the live hash is replaced and the history extended, so the account logs
// in with the new password immediately.
func (e *Engine) ResetPassword(ctx context.Context, req ResetRequest) error {
	if e.users == nil || e.secrets == nil || e.hasher == nil {
		return ErrEngineNotReady
	}
	if req.Email == "" && req.Phone == "" {
		return ErrIdentifierRequired
	}

	identifier := requestIdentifier(req.Email, req.Phone)
	ok, err := e.secrets.ConsumeOTP(ctx, identifier, req.OTP)
	if err != nil {
		return err
	}
	if !ok {
		e.metricInc(MetricPasswordResetFailure)
		e.emitAudit(ctx, auditEventPasswordResetFailure, false, "", "", ErrOTPInvalid, nil)
		return ErrOTPInvalid
	}

	user, err := e.users.FindByEmailOrPhone(ctx, req.Email, req.Phone)
	if err != nil {
		if errors.Is(err, ErrNoSuchUser) {
			e.metricInc(MetricPasswordResetFailure)
			e.emitAudit(ctx, auditEventPasswordResetFailure, false, "", "", ErrUserNotFound, nil)
			return ErrUserNotFound
		}
		return err
	}

	if err := e.applyNewPassword(ctx, user, req.NewPassword, auditEventPasswordResetFailure, MetricPasswordResetFailure); err != nil {
		return err
	}

	e.metricInc(MetricPasswordResetSuccess)
	e.emitAudit(ctx, auditEventPasswordResetConfirm, true, user.ID, "", nil, nil)
	return nil
}

// ChangePassword rotates a logged-in account's password after verifying
// the current one. Policy and reuse checks match [Engine.ResetPassword].
func (e *Engine) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if e.users == nil || e.hasher == nil {
		return ErrEngineNotReady
	}

	user, err := e.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNoSuchUser) {
			e.emitAudit(ctx, auditEventPasswordChangeFailure, false, userID, "", ErrUserNotFound, nil)
			return ErrUserNotFound
		}
		return err
	}

	ok, err := e.hasher.Verify(oldPassword, user.PasswordHash)
	if err != nil {
		return err
	}
	if !ok {
		e.metricInc(MetricPasswordChangeInvalidOld)
		e.emitAudit(ctx, auditEventPasswordChangeFailure, false, user.ID, "", ErrInvalidOldPassword, nil)
		return ErrInvalidOldPassword
	}

	if err := e.applyNewPassword(ctx, user, newPassword, auditEventPasswordChangeFailure, MetricPasswordChangeReuseRejected); err != nil {
		return err
	}

	e.metricInc(MetricPasswordChangeSuccess)
	e.emitAudit(ctx, auditEventPasswordChangeSuccess, true, user.ID, "", nil, nil)
	return nil
}

// applyNewPassword runs the shared tail of reset and change: policy gate,
// reuse check against the recent history, then hash, update, and append.
func (e *Engine) applyNewPassword(ctx context.Context, user *User, plaintext string, failureEvent AuditKind, reuseMetric MetricID) error {
	if err := validatePassword(plaintext); err != nil {
		e.emitAudit(ctx, failureEvent, false, user.ID, "", err, nil)
		return err
	}

	reused, err := e.passwordRecentlyUsed(ctx, user.ID, plaintext)
	if err != nil {
		return err
	}
	if reused {
		e.metricInc(reuseMetric)
		e.emitAudit(ctx, failureEvent, false, user.ID, "", ErrPasswordReuse, nil)
		return ErrPasswordReuse
	}

	hash, err := e.hasher.Hash(plaintext)
	if err != nil {
		return err
	}
	if err := e.users.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		return err
	}
	return e.users.AppendPasswordHistory(ctx, user.ID, hash)
}

// passwordRecentlyUsed checks plaintext against the newest HistoryDepth
// stored hashes. The live hash is included via the history, which always
// receives every hash the account has used.
func (e *Engine) passwordRecentlyUsed(ctx context.Context, userID, plaintext string) (bool, error) {
	depth := e.config.Password.HistoryDepth
	if depth <= 0 {
		return false, nil
	}

	recent, err := e.users.RecentPasswordHashes(ctx, userID, depth)
	if err != nil {
		return false, err
	}

	for _, hash := range recent {
		match, err := e.hasher.Verify(plaintext, hash)
		if err != nil {
			return false, err
		}
		if match {
			return true, nil
		}
	}
	return false, nil
}

// requestIdentifier is the OTP key for the forgot/reset pair: the channel
// named in the request, email preferred. Issue and consume must agree on
// it, independent of what the user row holds.
func requestIdentifier(email, phone string) string {
	if email != "" {
		return email
	}
	return phone
}

func validatePassword(pw string) error {
	if err := password.Validate(pw); err != nil {
		return ErrPasswordPolicy
	}
	return nil
}
