// Package password implements credential hashing, verification, and the
// strength policy applied before hashing.
//
// # Hashing
//
// [Bcrypt] wraps golang.org/x/crypto/bcrypt with a validated cost factor
// (default 10). [Bcrypt.NeedsUpgrade] reports stored hashes produced with a
// lower cost so callers can transparently re-hash on the next successful
// verification.
//
// # Policy
//
// [Validate] is the single strength gate: minimum 8 characters, at least one
// uppercase letter, one digit, and one symbol. Reuse history is NOT checked
// here; that requires stored hashes and belongs to the Engine.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords — callers supply plaintext and receive hashes.
//   - Import any other credlock package.
//   - Log plaintext passwords at runtime.
package password
