package credlock

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/credlock/credlock/internal/randx"
)

const (
	otpKeyPrefix        = "clk:otp"
	revocationKeyPrefix = "clk:rvk"
)

// RedisSecretStore is a [SecretStore] over a shared Redis instance.
// Passcodes are stored as SHA-256 digests, never plaintext, with their
// expiry delegated to Redis TTLs. Consumption runs under WATCH so two
// concurrent attempts for one identifier cannot both succeed.
type RedisSecretStore struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewRedisSecretStore wraps client, issuing passcodes with the given TTL
// (default 5 minutes when ttl is zero).
func NewRedisSecretStore(client *redis.Client, ttl time.Duration) *RedisSecretStore {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisSecretStore{
		redis: client,
		ttl:   ttl,
	}
}

func otpKey(identifier string) string {
	return otpKeyPrefix + ":" + identifier
}

func revocationKey(key string) string {
	return revocationKeyPrefix + ":" + key
}

func hashCode(code string) []byte {
	sum := sha256.Sum256([]byte(code))
	return sum[:]
}

// IssueOTP overwrites any live passcode for identifier.
func (s *RedisSecretStore) IssueOTP(ctx context.Context, identifier string) (string, error) {
	code, err := randx.NewOTP()
	if err != nil {
		return "", err
	}

	if err := s.redis.Set(ctx, otpKey(identifier), hashCode(code), s.ttl).Err(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrSecretStoreUnavailable, err)
	}
	return code, nil
}

// ConsumeOTP deletes the record on a successful match and leaves it in
// place on a mismatch. Expiry is Redis's: an expired record reads as
// missing. The delete runs in a WATCH transaction keyed on the record, so
// a concurrent consume or reissue forces a retry instead of a double spend.
func (s *RedisSecretStore) ConsumeOTP(ctx context.Context, identifier, code string) (bool, error) {
	const maxRetries = 4
	key := otpKey(identifier)
	provided := hashCode(code)

	for i := 0; i < maxRetries; i++ {
		var matched bool

		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			stored, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}

			if subtle.ConstantTimeCompare(stored, provided) != 1 {
				return nil
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, key)
				return nil
			})
			if err != nil {
				return err
			}

			matched = true
			return nil
		}, key)

		if err == redis.TxFailedErr {
			continue
		}
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("%w: %v", ErrSecretStoreUnavailable, err)
		}

		return matched, nil
	}

	return false, nil
}

// Revoke marks key for ttl, extending the deadline only forward so a
// repeated revocation never shortens an existing entry.
func (s *RedisSecretStore) Revoke(ctx context.Context, key string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	rk := revocationKey(key)

	set, err := s.redis.SetNX(ctx, rk, "1", ttl).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSecretStoreUnavailable, err)
	}
	if !set {
		if err := s.redis.ExpireGT(ctx, rk, ttl).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrSecretStoreUnavailable, err)
		}
	}
	return nil
}

// IsRevoked reports revocation-set membership.
func (s *RedisSecretStore) IsRevoked(ctx context.Context, key string) (bool, error) {
	n, err := s.redis.Exists(ctx, revocationKey(key)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrSecretStoreUnavailable, err)
	}
	return n > 0, nil
}
