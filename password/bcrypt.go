package password

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

const (
	minCost     = bcrypt.MinCost
	maxCost     = bcrypt.MaxCost
	defaultCost = 10
)

// Config defines the hashing parameters for a [Bcrypt] hasher.
//
// Config instances are intended to be configured during initialization and then treated as immutable.
type Config struct {
	// Cost is the bcrypt work factor. Zero selects the default (10).
	Cost int
}

// Bcrypt hashes and verifies credentials using the bcrypt adaptive hash.
//
// Bcrypt is stateless after construction and safe for concurrent use.
type Bcrypt struct {
	config Config
}

// NewBcrypt validates cfg and returns a ready hasher.
func NewBcrypt(cfg Config) (*Bcrypt, error) {
	if cfg.Cost == 0 {
		cfg.Cost = defaultCost
	}
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return &Bcrypt{config: cfg}, nil
}

// Hash derives a salted hash of the raw password bytes. No Unicode
// normalization is applied; bcrypt caps input at 72 bytes and longer
// passwords are rejected rather than silently truncated.
func (b *Bcrypt) Hash(password string) (string, error) {
	if password == "" {
		return "", errors.New("password must not be empty")
	}
	if len(password) > 72 {
		return "", errors.New("password exceeds 72 bytes")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), b.config.Cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Verify reports whether password matches encodedHash. A mismatch is
// reported as (false, nil); only malformed hashes produce an error.
func (b *Bcrypt) Verify(password string, encodedHash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(password))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, err
}

// NeedsUpgrade reports whether encodedHash was produced with a lower cost
// than the configured one, so callers can re-hash after a successful
// verification.
func (b *Bcrypt) NeedsUpgrade(encodedHash string) (bool, error) {
	cost, err := bcrypt.Cost([]byte(encodedHash))
	if err != nil {
		return false, err
	}
	return cost < b.config.Cost, nil
}

func validateConfig(cfg Config) error {
	if cfg.Cost < minCost {
		return errors.New("password cost must be >= bcrypt minimum")
	}
	if cfg.Cost > maxCost {
		return errors.New("password cost must be <= bcrypt maximum")
	}
	return nil
}
