package credlock

import (
	"context"
	"crypto/subtle"
	"sync"
	"time"

	"github.com/credlock/credlock/internal/randx"
)

type memOTPRecord struct {
	code      string
	expiresAt time.Time
}

// MemorySecretStore is a single-process [SecretStore] backed by mutex-guarded
// maps. Suitable for tests, examples, and single-instance deployments; use
// [RedisSecretStore] when more than one process shares the secrets.
type MemorySecretStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	otps    map[string]memOTPRecord
	revoked map[string]time.Time
}

// NewMemorySecretStore returns an empty store issuing passcodes with the
// given TTL (default 5 minutes when ttl is zero).
func NewMemorySecretStore(ttl time.Duration) *MemorySecretStore {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &MemorySecretStore{
		ttl:     ttl,
		otps:    make(map[string]memOTPRecord),
		revoked: make(map[string]time.Time),
	}
}

// IssueOTP overwrites any live passcode for identifier; only the newest
// code is ever consumable.
func (s *MemorySecretStore) IssueOTP(_ context.Context, identifier string) (string, error) {
	code, err := randx.NewOTP()
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.otps[identifier] = memOTPRecord{
		code:      code,
		expiresAt: time.Now().Add(s.ttl),
	}
	s.mu.Unlock()

	return code, nil
}

// ConsumeOTP deletes the record on expiry and on a successful match, but
// keeps it on a mismatch so the holder can retry within the TTL.
func (s *MemorySecretStore) ConsumeOTP(_ context.Context, identifier, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.otps[identifier]
	if !ok {
		return false, nil
	}
	if time.Now().After(record.expiresAt) {
		delete(s.otps, identifier)
		return false, nil
	}
	if subtle.ConstantTimeCompare([]byte(record.code), []byte(code)) != 1 {
		return false, nil
	}

	delete(s.otps, identifier)
	return true, nil
}

// Revoke records key until now+ttl. Entries already present are extended
// only if the new deadline is later.
func (s *MemorySecretStore) Revoke(_ context.Context, key string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	deadline := time.Now().Add(ttl)

	s.mu.Lock()
	if existing, ok := s.revoked[key]; !ok || deadline.After(existing) {
		s.revoked[key] = deadline
	}
	s.pruneRevokedLocked()
	s.mu.Unlock()

	return nil
}

// IsRevoked reports membership, dropping the entry once its deadline passes.
func (s *MemorySecretStore) IsRevoked(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deadline, ok := s.revoked[key]
	if !ok {
		return false, nil
	}
	if time.Now().After(deadline) {
		delete(s.revoked, key)
		return false, nil
	}
	return true, nil
}

// pruneRevokedLocked drops expired revocations so the set stays bounded by
// live tokens rather than growing with every logout ever performed.
func (s *MemorySecretStore) pruneRevokedLocked() {
	now := time.Now()
	for key, deadline := range s.revoked {
		if now.After(deadline) {
			delete(s.revoked, key)
		}
	}
}
