package credlock

import (
	"context"
	"time"
)

// SecretStore holds short-lived secrets: one-time passcodes keyed by
// identifier, and the revocation set for logged-out session tokens.
//
// OTP consumption is asymmetric on purpose: an expired record is deleted,
// a mismatched code leaves the record in place for further attempts within
// its TTL, and a matching code is deleted so it can never be replayed.
type SecretStore interface {
	// IssueOTP stores a fresh passcode for identifier, replacing any live
	// one, and returns the plaintext code for delivery.
	IssueOTP(ctx context.Context, identifier string) (string, error)
	// ConsumeOTP checks code against the live record for identifier.
	// It reports (false, nil) for a missing, expired, or mismatched code.
	ConsumeOTP(ctx context.Context, identifier, code string) (bool, error)
	// Revoke adds key to the revocation set for ttl. Idempotent.
	Revoke(ctx context.Context, key string, ttl time.Duration) error
	// IsRevoked reports revocation-set membership.
	IsRevoked(ctx context.Context, key string) (bool, error)
}
