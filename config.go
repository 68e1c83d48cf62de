package credlock

import (
	"errors"
	"time"
)

// TokenConfig configures the session and verification token manager.
type TokenConfig struct {
	// SessionTTL bounds session tokens. Default 1 hour.
	SessionTTL time.Duration
	// VerificationTTL bounds account-verification tokens. Default 24 hours.
	VerificationTTL time.Duration
	// SigningMethod is "hs256" or "ed25519".
	SigningMethod string
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Leeway        time.Duration
}

// PasswordConfig configures hashing and the reuse-history check.
type PasswordConfig struct {
	// Cost is the bcrypt work factor. Default 10.
	Cost int
	// HistoryDepth is how many recent hashes a new password is checked
	// against. Default 3.
	HistoryDepth int
}

// OTPConfig configures one-time passcodes.
type OTPConfig struct {
	// TTL is how long an issued passcode stays consumable. Default 5 minutes.
	TTL time.Duration
}

// LockoutConfig configures the failed-login lockout.
type LockoutConfig struct {
	// Threshold is the failed-attempt count that triggers a lock. Default 3.
	Threshold int
	// Duration is how long a triggered lock holds. Default 15 minutes.
	Duration time.Duration
}

// VerificationConfig configures outbound verification messages.
type VerificationConfig struct {
	// LinkBaseURL is the page the emailed verification link points at; the
	// token is appended as a `token` query parameter.
	LinkBaseURL string
}

// MFAConfig gates the OTP step after a successful password check.
type MFAConfig struct {
	Enabled bool
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	// DropIfFull drops events instead of blocking when the buffer is full.
	// Dropped events are counted, see Engine.AuditDropped.
	DropIfFull bool
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled bool
	// EnableLatencyHistograms additionally tracks Authenticate latency buckets.
	EnableLatencyHistograms bool
}

// Config is the root engine configuration. Zero values select defaults
// where a default exists; Validate reports the rest.
type Config struct {
	Token        TokenConfig
	Password     PasswordConfig
	OTP          OTPConfig
	Lockout      LockoutConfig
	Verification VerificationConfig
	MFA          MFAConfig
	Audit        AuditConfig
	Metrics      MetricsConfig
}

// DefaultConfig returns the baseline configuration: 1h sessions, 24h
// verification tokens, bcrypt cost 10, 5m OTPs, 3-strike 15m lockout,
// 3-deep password history. Signing keys must still be supplied.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Token: TokenConfig{
			SessionTTL:      time.Hour,
			VerificationTTL: 24 * time.Hour,
			SigningMethod:   "hs256",
		},
		Password: PasswordConfig{
			Cost:         10,
			HistoryDepth: 3,
		},
		OTP: OTPConfig{
			TTL: 5 * time.Minute,
		},
		Lockout: LockoutConfig{
			Threshold: 3,
			Duration:  15 * time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
	}
}

// Validate reports configuration that cannot produce a working engine.
func (c *Config) Validate() error {
	if c.Token.SessionTTL <= 0 {
		return errors.New("Token.SessionTTL must be positive")
	}
	if c.Token.VerificationTTL <= 0 {
		return errors.New("Token.VerificationTTL must be positive")
	}
	if len(c.Token.PrivateKey) == 0 {
		return errors.New("Token.PrivateKey required")
	}
	if c.Password.HistoryDepth < 0 {
		return errors.New("Password.HistoryDepth must not be negative")
	}
	if c.OTP.TTL <= 0 {
		return errors.New("OTP.TTL must be positive")
	}
	if c.Lockout.Threshold <= 0 {
		return errors.New("Lockout.Threshold must be positive")
	}
	if c.Lockout.Duration <= 0 {
		return errors.New("Lockout.Duration must be positive")
	}
	return nil
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Token.PrivateKey = cloneBytes(cfg.Token.PrivateKey)
	out.Token.PublicKey = cloneBytes(cfg.Token.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
