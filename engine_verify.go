package credlock

import (
	"context"
	"errors"
)

// VerifyToken marks the account named by a verification token as verified.
// Verifying an already-verified account succeeds as a no-op, so a user
// clicking the emailed link twice sees success both times.
func (e *Engine) VerifyToken(ctx context.Context, tokenStr string) error {
	if e.users == nil || e.tokens == nil {
		return ErrEngineNotReady
	}

	claims, err := e.tokens.ParseVerification(tokenStr)
	if err != nil {
		e.metricInc(MetricVerificationFailure)
		e.emitAudit(ctx, auditEventVerificationFailure, false, "", "", ErrVerificationInvalid, nil)
		return ErrVerificationInvalid
	}

	user, err := e.users.FindByID(ctx, claims.UID)
	if err != nil {
		if errors.Is(err, ErrNoSuchUser) {
			e.metricInc(MetricVerificationFailure)
			e.emitAudit(ctx, auditEventVerificationFailure, false, claims.UID, "", ErrUserNotFound, nil)
			return ErrUserNotFound
		}
		return err
	}

	if user.IsVerified {
		e.emitAudit(ctx, auditEventVerificationConfirm, true, user.ID, "", nil, func() map[string]string {
			return map[string]string{"noop": "already_verified"}
		})
		return nil
	}

	if err := e.users.MarkVerified(ctx, user.ID); err != nil {
		return err
	}

	e.metricInc(MetricVerificationSuccess)
	e.emitAudit(ctx, auditEventVerificationConfirm, true, user.ID, "", nil, nil)
	return nil
}

// VerifyOTP marks a phone-registered account as verified after its SMS
// passcode checks out. The passcode is checked before the account lookup,
// so an unknown phone reads as [ErrOTPInvalid] rather than confirming the
// number is unregistered. Like [Engine.VerifyToken], it is idempotent for
// an already-verified account.
func (e *Engine) VerifyOTP(ctx context.Context, phone, code string) error {
	if e.users == nil || e.secrets == nil {
		return ErrEngineNotReady
	}
	if phone == "" {
		return ErrIdentifierRequired
	}

	ok, err := e.secrets.ConsumeOTP(ctx, phone, code)
	if err != nil {
		return err
	}
	if !ok {
		e.metricInc(MetricVerificationFailure)
		e.emitAudit(ctx, auditEventVerificationFailure, false, "", "", ErrOTPInvalid, nil)
		return ErrOTPInvalid
	}

	user, err := e.users.FindByEmailOrPhone(ctx, "", phone)
	if err != nil {
		if errors.Is(err, ErrNoSuchUser) {
			e.metricInc(MetricVerificationFailure)
			e.emitAudit(ctx, auditEventVerificationFailure, false, "", "", ErrUserNotFound, nil)
			return ErrUserNotFound
		}
		return err
	}

	if user.IsVerified {
		e.emitAudit(ctx, auditEventVerificationConfirm, true, user.ID, "", nil, func() map[string]string {
			return map[string]string{"noop": "already_verified"}
		})
		return nil
	}

	if err := e.users.MarkVerified(ctx, user.ID); err != nil {
		return err
	}

	e.metricInc(MetricVerificationSuccess)
	e.emitAudit(ctx, auditEventVerificationConfirm, true, user.ID, "", nil, nil)
	return nil
}
