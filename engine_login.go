package credlock

import (
	"context"
	"errors"
	"log"
	"strconv"
	"time"
)

// LoginRequest is the input for [Engine.Login]. At least one of Email or
// Phone is required.
type LoginRequest struct {
	Email    string
	Phone    string
	Password string
}

// LoginResult is returned by [Engine.Login] and [Engine.ConfirmLoginOTP].
// When MFARequired is set, Token is empty and the caller must complete the
// passcode step.
type LoginResult struct {
	Token       string
	User        *PublicUser
	MFARequired bool
}

// Login authenticates a password against an account. Checks run in a fixed
// order: unknown account, unverified account, active lockout, then the
// password itself. A lockout rejects before the password is examined and
// does not advance the failure counter; only a wrong password does. The
// counter resets on the first successful login.
func (e *Engine) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	if e.users == nil || e.hasher == nil || e.tokens == nil {
		return nil, ErrEngineNotReady
	}
	if req.Email == "" && req.Phone == "" {
		return nil, ErrIdentifierRequired
	}

	user, err := e.users.FindByEmailOrPhone(ctx, req.Email, req.Phone)
	if err != nil {
		if errors.Is(err, ErrNoSuchUser) {
			e.metricInc(MetricLoginFailure)
			e.emitAudit(ctx, auditEventLoginFailure, false, "", "", ErrUserNotFound, nil)
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if !user.IsVerified {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, user.ID, "", ErrAccountUnverified, nil)
		return nil, ErrAccountUnverified
	}

	if time.Now().Before(user.LockUntil) {
		e.metricInc(MetricLoginLocked)
		e.emitAudit(ctx, auditEventLoginFailure, false, user.ID, "", ErrAccountLocked, func() map[string]string {
			return map[string]string{"lock_until": user.LockUntil.UTC().Format(time.RFC3339)}
		})
		return nil, ErrAccountLocked
	}

	ok, err := e.hasher.Verify(req.Password, user.PasswordHash)
	if err != nil {
		return nil, err
	}
	if !ok {
		attempts, lockUntil, err := e.users.RecordLoginFailure(ctx, user.ID, e.config.Lockout.Threshold, e.config.Lockout.Duration)
		if err != nil {
			return nil, err
		}

		e.metricInc(MetricLoginFailure)
		if !lockUntil.IsZero() {
			e.emitAudit(ctx, auditEventAccountLocked, false, user.ID, "", ErrAccountLocked, func() map[string]string {
				return map[string]string{"lock_until": lockUntil.UTC().Format(time.RFC3339)}
			})
		} else {
			e.emitAudit(ctx, auditEventLoginFailure, false, user.ID, "", ErrInvalidCredentials, func() map[string]string {
				return map[string]string{"attempts": strconv.Itoa(attempts)}
			})
		}
		return nil, ErrInvalidCredentials
	}

	if err := e.users.ResetLoginFailures(ctx, user.ID); err != nil {
		return nil, err
	}

	e.maybeRehash(ctx, user, req.Password)

	if e.config.MFA.Enabled {
		identifier := loginIdentifier(req.Email, req.Phone, user)
		if err := e.dispatchLoginOTP(ctx, user, identifier); err != nil {
			return nil, err
		}
		e.metricInc(MetricMFARequired)
		e.emitAudit(ctx, auditEventMFARequired, true, user.ID, "", nil, nil)
		return &LoginResult{
			User:        publicProjection(user),
			MFARequired: true,
		}, nil
	}

	tok, err := e.tokens.CreateSession(user.ID, user.Role)
	if err != nil {
		return nil, err
	}

	req.Password = ""
	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, user.ID, "", nil, nil)
	return &LoginResult{
		Token: tok,
		User:  publicProjection(user),
	}, nil
}

// ConfirmLoginOTP completes a login that [Engine.Login] answered with
// MFARequired. The passcode is single-use: success consumes it, a mismatch
// leaves it live for another attempt within its TTL.
func (e *Engine) ConfirmLoginOTP(ctx context.Context, email, phone, code string) (*LoginResult, error) {
	if e.users == nil || e.tokens == nil || e.secrets == nil {
		return nil, ErrEngineNotReady
	}
	if email == "" && phone == "" {
		return nil, ErrIdentifierRequired
	}

	user, err := e.users.FindByEmailOrPhone(ctx, email, phone)
	if err != nil {
		if errors.Is(err, ErrNoSuchUser) {
			e.metricInc(MetricMFAFailure)
			e.emitAudit(ctx, auditEventMFAFailure, false, "", "", ErrUserNotFound, nil)
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	identifier := loginIdentifier(email, phone, user)
	ok, err := e.secrets.ConsumeOTP(ctx, identifier, code)
	if err != nil {
		return nil, err
	}
	if !ok {
		e.metricInc(MetricMFAFailure)
		e.emitAudit(ctx, auditEventMFAFailure, false, user.ID, "", ErrMFAInvalid, nil)
		return nil, ErrMFAInvalid
	}

	tok, err := e.tokens.CreateSession(user.ID, user.Role)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricMFASuccess)
	e.emitAudit(ctx, auditEventMFASuccess, true, user.ID, "", nil, nil)
	return &LoginResult{
		Token: tok,
		User:  publicProjection(user),
	}, nil
}

func (e *Engine) dispatchLoginOTP(ctx context.Context, user *User, identifier string) error {
	code, err := e.secrets.IssueOTP(ctx, identifier)
	if err != nil {
		return err
	}

	body := "Your login code is " + code
	switch {
	case identifier == user.Email && e.mailer != nil:
		if err := e.mailer.Send(ctx, user.Email, "Login code", body); err != nil {
			e.noteDispatchFailure(ctx, user.ID, "mfa_email", err)
		}
	case identifier == user.Phone && e.sms != nil:
		if err := e.sms.Send(ctx, user.Phone, body); err != nil {
			e.noteDispatchFailure(ctx, user.ID, "mfa_sms", err)
		}
	default:
		e.noteDispatchFailure(ctx, user.ID, "mfa_channel", errors.New("no deliverable channel configured"))
	}
	return nil
}

// maybeRehash transparently upgrades a stored hash after a successful
// verification when the configured cost has grown past it.
func (e *Engine) maybeRehash(ctx context.Context, user *User, plaintext string) {
	upgrade, err := e.hasher.NeedsUpgrade(user.PasswordHash)
	if err != nil || !upgrade {
		return
	}
	fresh, err := e.hasher.Hash(plaintext)
	if err != nil {
		return
	}
	if err := e.users.UpdatePasswordHash(ctx, user.ID, fresh); err != nil {
		log.Print("credlock: rehash on login: ", err)
	}
}

// loginIdentifier picks the OTP key for a login: the channel the caller
// authenticated with, falling back to whichever the account has.
func loginIdentifier(email, phone string, user *User) string {
	if email != "" && email == user.Email {
		return user.Email
	}
	if phone != "" && phone == user.Phone {
		return user.Phone
	}
	if user.Email != "" {
		return user.Email
	}
	return user.Phone
}
