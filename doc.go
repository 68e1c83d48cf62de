// Package credlock is an embeddable identity and credential-verification
// engine: registration with email or phone verification, lockout-guarded
// login, JWT session tokens with logout revocation, OTP-based password
// recovery with reuse history, and an extended profile layer.
//
// The package is designed for concurrent server workloads: Engine methods
// are safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// credlock is the public surface. It exposes [Engine], [Builder], [Config],
// the [UserStore] and [ProfileStore] contracts callers implement, and the
// [SecretStore] backends ([MemorySecretStore], [RedisSecretStore]). Token
// signing lives in token/, hashing and the strength policy in password/,
// audit dispatch under internal/.
//
// # What this package must NOT do
//
//   - Persist users or profiles itself; durable storage is the caller's
//     UserStore and ProfileStore.
//   - Expose password hashes, history, or lockout counters through any
//     returned value ([PublicUser] is the outbound projection).
//   - Deliver mail or SMS beyond the caller-supplied [Mailer] and
//     [SMSSender] implementations.
package credlock
