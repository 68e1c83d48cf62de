package credlock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisStore(t *testing.T) (*RedisSecretStore, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisSecretStore(client, time.Minute), mr
}

func TestRedisOTPSingleUse(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()

	code, err := store.IssueOTP(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("IssueOTP error: %v", err)
	}

	ok, err := store.ConsumeOTP(ctx, "alice@example.com", code)
	if err != nil {
		t.Fatalf("ConsumeOTP error: %v", err)
	}
	if !ok {
		t.Fatal("expected first consume to match")
	}

	ok, err = store.ConsumeOTP(ctx, "alice@example.com", code)
	if err != nil {
		t.Fatalf("ConsumeOTP error: %v", err)
	}
	if ok {
		t.Fatal("expected second consume to miss")
	}
}

func TestRedisOTPMismatchKeepsRecord(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()

	code, err := store.IssueOTP(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("IssueOTP error: %v", err)
	}

	ok, err := store.ConsumeOTP(ctx, "alice@example.com", "000000")
	if err != nil {
		t.Fatalf("ConsumeOTP error: %v", err)
	}
	if ok {
		t.Fatal("expected mismatch to miss")
	}

	ok, err = store.ConsumeOTP(ctx, "alice@example.com", code)
	if err != nil {
		t.Fatalf("ConsumeOTP error: %v", err)
	}
	if !ok {
		t.Fatal("expected correct code to still match after mismatch")
	}
}

func TestRedisOTPExpires(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	code, err := store.IssueOTP(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("IssueOTP error: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	ok, err := store.ConsumeOTP(ctx, "alice@example.com", code)
	if err != nil {
		t.Fatalf("ConsumeOTP error: %v", err)
	}
	if ok {
		t.Fatal("expected expired code to miss")
	}
}

func TestRedisOTPReissueOverwrites(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()

	first, err := store.IssueOTP(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("IssueOTP error: %v", err)
	}
	second, err := store.IssueOTP(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("IssueOTP error: %v", err)
	}

	if first != second {
		if ok, _ := store.ConsumeOTP(ctx, "alice@example.com", first); ok {
			t.Fatal("expected superseded code to miss")
		}
	}
	if ok, _ := store.ConsumeOTP(ctx, "alice@example.com", second); !ok {
		t.Fatal("expected newest code to match")
	}
}

func TestRedisRevocationLifecycle(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	if err := store.Revoke(ctx, "jti-1", time.Minute); err != nil {
		t.Fatalf("Revoke error: %v", err)
	}
	if err := store.Revoke(ctx, "jti-1", 30*time.Second); err != nil {
		t.Fatalf("repeat Revoke error: %v", err)
	}

	revoked, err := store.IsRevoked(ctx, "jti-1")
	if err != nil {
		t.Fatalf("IsRevoked error: %v", err)
	}
	if !revoked {
		t.Fatal("expected revoked key to report revoked")
	}

	// The shorter repeat must not have trimmed the original deadline.
	mr.FastForward(45 * time.Second)
	revoked, err = store.IsRevoked(ctx, "jti-1")
	if err != nil {
		t.Fatalf("IsRevoked error: %v", err)
	}
	if !revoked {
		t.Fatal("expected key to stay revoked for the longer TTL")
	}

	mr.FastForward(time.Minute)
	revoked, err = store.IsRevoked(ctx, "jti-1")
	if err != nil {
		t.Fatalf("IsRevoked error: %v", err)
	}
	if revoked {
		t.Fatal("expected revocation to lapse with its TTL")
	}
}

func TestRedisUnavailableWrapsError(t *testing.T) {
	store, mr := newRedisStore(t)
	mr.Close()

	if _, err := store.IssueOTP(context.Background(), "alice@example.com"); err == nil {
		t.Fatal("expected error with redis down")
	} else if !errors.Is(err, ErrSecretStoreUnavailable) {
		t.Fatalf("error = %v, want ErrSecretStoreUnavailable", err)
	}
}
