package credlock

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
)

// RegisterRequest is the input for [Engine.Register]. At least one of
// Email or Phone is required.
type RegisterRequest struct {
	Email    string
	Phone    string
	Password string
	Role     string
}

// Register creates an unverified account and dispatches its verification
// challenge: a signed link over email when the account has one, otherwise
// a passcode over SMS. Delivery is best-effort; a send failure is audited
// and logged but the account is still created.
func (e *Engine) Register(ctx context.Context, req RegisterRequest) (*PublicUser, error) {
	if e.users == nil || e.hasher == nil {
		return nil, ErrEngineNotReady
	}

	if req.Email == "" && req.Phone == "" {
		e.emitAudit(ctx, auditEventRegisterFailure, false, "", "", ErrIdentifierRequired, nil)
		return nil, ErrIdentifierRequired
	}

	// Conflict outranks policy: a taken identifier answers the same way
	// whatever password came with it.
	if _, err := e.users.FindByEmailOrPhone(ctx, req.Email, req.Phone); err == nil {
		e.metricInc(MetricRegisterDuplicate)
		e.emitAudit(ctx, auditEventRegisterDuplicate, false, "", "", ErrAccountExists, func() map[string]string {
			return map[string]string{"email": req.Email, "phone": req.Phone}
		})
		return nil, ErrAccountExists
	} else if !errors.Is(err, ErrNoSuchUser) {
		return nil, err
	}

	if err := validatePassword(req.Password); err != nil {
		e.emitAudit(ctx, auditEventRegisterFailure, false, "", "", err, func() map[string]string {
			return map[string]string{"reason": "password_policy"}
		})
		return nil, err
	}

	hash, err := e.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	created, err := e.users.CreateUser(ctx, CreateUserInput{
		Email:        req.Email,
		Phone:        req.Phone,
		Role:         req.Role,
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateIdentifier) {
			e.metricInc(MetricRegisterDuplicate)
			e.emitAudit(ctx, auditEventRegisterDuplicate, false, "", "", ErrAccountExists, func() map[string]string {
				return map[string]string{"email": req.Email, "phone": req.Phone}
			})
			return nil, ErrAccountExists
		}
		e.emitAudit(ctx, auditEventRegisterFailure, false, "", "", err, nil)
		return nil, err
	}

	// Seed the reuse history so the first password is already covered.
	if err := e.users.AppendPasswordHistory(ctx, created.ID, hash); err != nil {
		log.Print("credlock: append initial password history: ", err)
	}

	e.dispatchVerification(ctx, created)

	req.Password = ""
	e.metricInc(MetricRegisterSuccess)
	e.emitAudit(ctx, auditEventRegisterSuccess, true, created.ID, "", nil, func() map[string]string {
		return map[string]string{"role": created.Role}
	})
	return publicProjection(created), nil
}

// ResendVerification issues a fresh verification challenge for an
// unverified account. The new secret supersedes the old one.
func (e *Engine) ResendVerification(ctx context.Context, email, phone string) error {
	if e.users == nil {
		return ErrEngineNotReady
	}
	if email == "" && phone == "" {
		return ErrIdentifierRequired
	}

	user, err := e.users.FindByEmailOrPhone(ctx, email, phone)
	if err != nil {
		if errors.Is(err, ErrNoSuchUser) {
			e.emitAudit(ctx, auditEventVerificationIssued, false, "", "", ErrUserNotFound, nil)
			return ErrUserNotFound
		}
		return err
	}
	if user.IsVerified {
		e.emitAudit(ctx, auditEventVerificationIssued, false, user.ID, "", ErrAlreadyVerified, nil)
		return ErrAlreadyVerified
	}

	e.dispatchVerification(ctx, user)
	return nil
}

// dispatchVerification sends the account-verification challenge over the
// preferred channel: email when present, SMS otherwise. Failures never
// propagate; the caller's operation already succeeded.
func (e *Engine) dispatchVerification(ctx context.Context, user *User) {
	switch {
	case user.Email != "" && e.mailer != nil:
		tok, err := e.tokens.CreateVerification(user.ID)
		if err != nil {
			e.noteDispatchFailure(ctx, user.ID, "verification_token", err)
			return
		}
		link := verificationLink(e.config.Verification.LinkBaseURL, tok)
		body := "Verify your account: " + link
		if err := e.mailer.Send(ctx, user.Email, "Verify your account", body); err != nil {
			e.noteDispatchFailure(ctx, user.ID, "verification_email", err)
			return
		}

	case user.Phone != "" && e.sms != nil:
		code, err := e.secrets.IssueOTP(ctx, user.Phone)
		if err != nil {
			e.noteDispatchFailure(ctx, user.ID, "verification_otp", err)
			return
		}
		if err := e.sms.Send(ctx, user.Phone, "Your verification code is "+code); err != nil {
			e.noteDispatchFailure(ctx, user.ID, "verification_sms", err)
			return
		}

	default:
		e.noteDispatchFailure(ctx, user.ID, "verification_channel", errors.New("no deliverable channel configured"))
		return
	}

	e.metricInc(MetricVerificationIssued)
	e.emitAudit(ctx, auditEventVerificationIssued, true, user.ID, "", nil, nil)
}

func (e *Engine) noteDispatchFailure(ctx context.Context, userID, kind string, err error) {
	log.Print("credlock: dispatch ", kind, ": ", err)
	e.emitAudit(ctx, auditEventDispatchFailure, false, userID, "", err, func() map[string]string {
		return map[string]string{"kind": kind}
	})
}

func verificationLink(base, tok string) string {
	if base == "" {
		return tok
	}
	return fmt.Sprintf("%s?token=%s", base, url.QueryEscape(tok))
}
