package credlock

import "errors"

var (
	// ErrAccountExists reports a registration against an email or phone
	// that already belongs to another account.
	ErrAccountExists = errors.New("account already exists")
	// ErrIdentifierRequired reports a request with neither email nor phone.
	ErrIdentifierRequired = errors.New("email or phone required")
	// ErrPasswordPolicy reports a password that fails the strength policy.
	ErrPasswordPolicy = errors.New("password policy violation")
	// ErrPasswordReuse reports a new password matching one of the recent hashes.
	ErrPasswordReuse = errors.New("new password matches a recently used password")
	// ErrInvalidOldPassword reports a change-password request whose current
	// password did not verify.
	ErrInvalidOldPassword = errors.New("old password incorrect")
	// ErrUserNotFound reports an operation against an unknown account.
	ErrUserNotFound = errors.New("user not found")
	// ErrAccountUnverified reports a login before the account was verified.
	ErrAccountUnverified = errors.New("account unverified")
	// ErrAccountLocked reports a login while the lockout window is active.
	ErrAccountLocked = errors.New("account locked")
	// ErrInvalidCredentials reports a failed password check.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrVerificationInvalid reports an expired or malformed verification token.
	ErrVerificationInvalid = errors.New("verification token invalid")
	// ErrAlreadyVerified reports a resend request for a verified account.
	ErrAlreadyVerified = errors.New("account already verified")
	// ErrOTPInvalid reports a missing, expired, or mismatched one-time passcode.
	ErrOTPInvalid = errors.New("invalid one-time passcode")
	// ErrMFAInvalid reports a failed OTP step during login.
	ErrMFAInvalid = errors.New("mfa confirmation invalid")
	// ErrTokenMissing reports an empty bearer token.
	ErrTokenMissing = errors.New("token missing")
	// ErrTokenExpired reports a well-formed session token past its expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenRevoked reports a session token invalidated by logout.
	ErrTokenRevoked = errors.New("token revoked")
	// ErrUnauthorized reports a malformed or otherwise unverifiable token.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrProfileNotFound reports a profile read for an account without one.
	ErrProfileNotFound = errors.New("profile not found")
	// ErrSecretStoreUnavailable reports a secret store backend failure.
	ErrSecretStoreUnavailable = errors.New("secret store unavailable")
	// ErrEngineNotReady reports use of an Engine missing a required dependency.
	ErrEngineNotReady = errors.New("engine not initialized")

	// ErrNoSuchUser is the store-level signal for a missing user row.
	// UserStore implementations return it; the Engine maps it to
	// ErrUserNotFound or swallows it where enumeration safety requires.
	ErrNoSuchUser = errors.New("no such user")
	// ErrDuplicateIdentifier is the store-level signal for a unique-constraint
	// hit on email or phone. The Engine maps it to ErrAccountExists.
	ErrDuplicateIdentifier = errors.New("duplicate identifier")
)
