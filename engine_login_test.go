package credlock

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLoginSuccess(t *testing.T) {
	env := newTestEngine(t, nil)
	ctx := context.Background()

	user := env.registerVerified(t, "alice@example.com", "")

	result, err := env.engine.Login(ctx, LoginRequest{
		Email:    "alice@example.com",
		Password: testPassword,
	})
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}
	if result.Token == "" {
		t.Fatal("expected a session token")
	}
	if result.MFARequired {
		t.Fatal("MFA disabled, result must not demand a passcode")
	}
	if result.User.ID != user.ID {
		t.Fatalf("user ID = %q, want %q", result.User.ID, user.ID)
	}
}

func TestLoginRejectsUnknownAndUnverified(t *testing.T) {
	env := newTestEngine(t, nil)
	ctx := context.Background()

	_, err := env.engine.Login(ctx, LoginRequest{Email: "nobody@example.com", Password: testPassword})
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("unknown: error = %v, want ErrUserNotFound", err)
	}

	if _, err := env.engine.Register(ctx, RegisterRequest{
		Email:    "alice@example.com",
		Password: testPassword,
	}); err != nil {
		t.Fatalf("Register error: %v", err)
	}
	_, err = env.engine.Login(ctx, LoginRequest{Email: "alice@example.com", Password: testPassword})
	if !errors.Is(err, ErrAccountUnverified) {
		t.Fatalf("unverified: error = %v, want ErrAccountUnverified", err)
	}

	if _, err := env.engine.Login(ctx, LoginRequest{Password: testPassword}); !errors.Is(err, ErrIdentifierRequired) {
		t.Fatalf("no identifier: error = %v, want ErrIdentifierRequired", err)
	}
}

func TestLoginLockoutAfterThreshold(t *testing.T) {
	env := newTestEngine(t, nil)
	ctx := context.Background()

	user := env.registerVerified(t, "alice@example.com", "")
	bad := LoginRequest{Email: "alice@example.com", Password: "Wr0ng-Password!"}

	for i := 0; i < env.engine.config.Lockout.Threshold; i++ {
		if _, err := env.engine.Login(ctx, bad); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: error = %v, want ErrInvalidCredentials", i+1, err)
		}
	}

	stored := env.users.stored(t, user.ID)
	if stored.LockUntil.IsZero() {
		t.Fatal("expected lockout deadline after threshold failures")
	}

	// Locked accounts reject before the password runs, right or wrong.
	if _, err := env.engine.Login(ctx, bad); !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("locked wrong password: error = %v, want ErrAccountLocked", err)
	}
	good := LoginRequest{Email: "alice@example.com", Password: testPassword}
	if _, err := env.engine.Login(ctx, good); !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("locked right password: error = %v, want ErrAccountLocked", err)
	}

	// The fail-fast path must not advance the counter.
	if after := env.users.stored(t, user.ID); after.FailedLoginAttempts != stored.FailedLoginAttempts {
		t.Fatalf("counter moved while locked: %d -> %d", stored.FailedLoginAttempts, after.FailedLoginAttempts)
	}
}

func TestLoginLockExpiryAndCounterReset(t *testing.T) {
	env := newTestEngine(t, nil)
	ctx := context.Background()

	user := env.registerVerified(t, "alice@example.com", "")
	bad := LoginRequest{Email: "alice@example.com", Password: "Wr0ng-Password!"}
	for i := 0; i < env.engine.config.Lockout.Threshold; i++ {
		if _, err := env.engine.Login(ctx, bad); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: error = %v", i+1, err)
		}
	}

	env.users.mutate(t, user.ID, func(u *User) {
		u.LockUntil = time.Now().Add(-time.Second)
	})

	result, err := env.engine.Login(ctx, LoginRequest{Email: "alice@example.com", Password: testPassword})
	if err != nil {
		t.Fatalf("Login after lock expiry error: %v", err)
	}
	if result.Token == "" {
		t.Fatal("expected a session token")
	}

	stored := env.users.stored(t, user.ID)
	if stored.FailedLoginAttempts != 0 || !stored.LockUntil.IsZero() {
		t.Fatalf("expected counters cleared on success, got attempts=%d lockUntil=%v",
			stored.FailedLoginAttempts, stored.LockUntil)
	}
}

func TestLoginMFAFlow(t *testing.T) {
	env := newTestEngine(t, func(cfg *Config) {
		cfg.MFA.Enabled = true
	})
	ctx := context.Background()

	env.registerVerified(t, "alice@example.com", "")

	result, err := env.engine.Login(ctx, LoginRequest{
		Email:    "alice@example.com",
		Password: testPassword,
	})
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}
	if !result.MFARequired {
		t.Fatal("expected MFARequired with MFA enabled")
	}
	if result.Token != "" {
		t.Fatal("no session token before the passcode step")
	}

	if _, err := env.engine.ConfirmLoginOTP(ctx, "alice@example.com", "", "000000"); !errors.Is(err, ErrMFAInvalid) {
		t.Fatalf("wrong code: error = %v, want ErrMFAInvalid", err)
	}

	code := env.liveOTP(t, "alice@example.com")
	confirmed, err := env.engine.ConfirmLoginOTP(ctx, "alice@example.com", "", code)
	if err != nil {
		t.Fatalf("ConfirmLoginOTP error: %v", err)
	}
	if confirmed.Token == "" {
		t.Fatal("expected a session token after the passcode step")
	}

	// The passcode is single-use.
	if _, err := env.engine.ConfirmLoginOTP(ctx, "alice@example.com", "", code); !errors.Is(err, ErrMFAInvalid) {
		t.Fatalf("replayed code: error = %v, want ErrMFAInvalid", err)
	}
}
