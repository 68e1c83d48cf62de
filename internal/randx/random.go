package randx

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"math/big"
)

const (
	otpDigits = 6
	otpMin    = 100000
	otpSpan   = 900000
)

// NewOTP returns a uniformly random six-digit passcode in the range
// 100000–999999 inclusive. Drawing from the full range (rather than
// digit-by-digit) keeps the code free of leading zeros.
func NewOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(otpSpan))
	if err != nil {
		return "", err
	}

	code := otpMin + n.Int64()

	buf := make([]byte, otpDigits)
	for i := otpDigits - 1; i >= 0; i-- {
		buf[i] = byte('0' + code%10)
		code /= 10
	}
	return string(buf), nil
}

// Fingerprint derives a compact, non-reversible key for an opaque token
// string. Used as the revocation-set key for tokens whose claims cannot
// be parsed.
func Fingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
