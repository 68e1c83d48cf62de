// Package token issues and verifies the two JWT kinds used by credlock:
// short-lived session tokens (1h default, unique JTI, uid + role claims)
// and account-verification tokens (24h default, uid only).
//
// A scope claim keeps the kinds disjoint: a verification token presented
// where a session token is expected parses as malformed, never as a valid
// session.
//
// # Error contract
//
// Parse methods return exactly [ErrExpired] or [ErrMalformed]. Callers that
// need to distinguish a stale-but-genuine token from garbage (the engine's
// Authenticate boundary does) rely on this split.
//
// # Architecture boundaries
//
// Revocation is not this package's concern: the Manager is stateless and
// never consults a store. The engine checks issued JTIs against its
// revocation set after parsing.
package token
