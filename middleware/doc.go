// Package middleware exposes the HTTP adapter for credlock session
// enforcement.
//
// [Guard] reads the Authorization bearer token, calls Engine.Authenticate,
// and injects the resulting principal into the request context. Tokens that
// never were valid map to 401; expired or revoked ones to 403.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT
// parse tokens or consult the revocation set itself; all decisions come
// from Engine.Authenticate.
package middleware
