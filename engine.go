package credlock

import (
	"context"
	"errors"
	"time"

	internalaudit "github.com/credlock/credlock/internal/audit"
	"github.com/credlock/credlock/internal/randx"
	"github.com/credlock/credlock/password"
	"github.com/credlock/credlock/token"
)

// Engine is the credential lifecycle engine. It owns registration, login,
// account verification, password recovery, and the session token boundary,
// delegating durable user storage to the caller's [UserStore] and
// short-lived secrets to a [SecretStore].
//
// An Engine is assembled through [Builder.Build] and is safe for concurrent
// use afterwards.
type Engine struct {
	config   Config
	users    UserStore
	profiles ProfileStore
	secrets  SecretStore
	hasher   *password.Bcrypt
	tokens   *token.Manager
	mailer   Mailer
	sms      SMSSender
	audit    *internalaudit.Dispatcher
	metrics  *Metrics
}

// Principal is the authenticated identity extracted from a session token.
type Principal struct {
	UserID    string
	Role      string
	TokenID   string
	ExpiresAt time.Time
}

// Close drains the audit dispatcher. The engine must not be used after.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.audit.Close()
}

// AuditDropped reports how many audit events were discarded because the
// dispatch buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	e.metrics.Inc(id)
}

// Authenticate is the request boundary: it verifies tokenStr as a live,
// unrevoked session token and returns its principal. Failures are
// distinguishable with errors.Is: [ErrTokenMissing] and [ErrUnauthorized]
// for tokens that never were valid, [ErrTokenExpired] and [ErrTokenRevoked]
// for tokens that once were.
func (e *Engine) Authenticate(ctx context.Context, tokenStr string) (*Principal, error) {
	if e.tokens == nil || e.secrets == nil {
		return nil, ErrEngineNotReady
	}

	start := time.Now()

	if tokenStr == "" {
		e.metricInc(MetricAuthenticateRejected)
		e.emitAudit(ctx, auditEventAuthenticateRejected, false, "", "", ErrTokenMissing, nil)
		return nil, ErrTokenMissing
	}

	claims, err := e.tokens.ParseSession(tokenStr)
	if err != nil {
		mapped := ErrUnauthorized
		if errors.Is(err, token.ErrExpired) {
			mapped = ErrTokenExpired
		}
		e.metricInc(MetricAuthenticateRejected)
		e.emitAudit(ctx, auditEventAuthenticateRejected, false, "", "", mapped, nil)
		return nil, mapped
	}

	revoked, err := e.secrets.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		e.metricInc(MetricAuthenticateRejected)
		e.emitAudit(ctx, auditEventAuthenticateRejected, false, claims.UID, claims.ID, ErrTokenRevoked, nil)
		return nil, ErrTokenRevoked
	}

	e.metricInc(MetricAuthenticateSuccess)
	e.metrics.Observe(MetricAuthenticateLatency, time.Since(start))

	principal := &Principal{
		UserID:  claims.UID,
		Role:    claims.Role,
		TokenID: claims.ID,
	}
	if claims.ExpiresAt != nil {
		principal.ExpiresAt = claims.ExpiresAt.Time
	}
	return principal, nil
}

// Logout revokes tokenStr so Authenticate rejects it from now on. An empty
// token is [ErrTokenMissing]; anything else succeeds, including tokens that
// are already expired or were never issued here. Revocation entries carry a
// TTL capped at the token's own expiry, so the set stays bounded.
func (e *Engine) Logout(ctx context.Context, tokenStr string) error {
	if e.tokens == nil || e.secrets == nil {
		return ErrEngineNotReady
	}
	if tokenStr == "" {
		e.emitAudit(ctx, auditEventLogout, false, "", "", ErrTokenMissing, nil)
		return ErrTokenMissing
	}

	claims, err := e.tokens.ParseSession(tokenStr)
	switch {
	case err == nil:
		ttl := e.config.Token.SessionTTL
		if claims.ExpiresAt != nil {
			ttl = time.Until(claims.ExpiresAt.Time)
		}
		if ttl > 0 {
			if err := e.secrets.Revoke(ctx, claims.ID, ttl); err != nil {
				return err
			}
		}
		e.metricInc(MetricLogout)
		e.emitAudit(ctx, auditEventLogout, true, claims.UID, claims.ID, nil, nil)
		return nil

	case errors.Is(err, token.ErrExpired):
		// Already past exp; Authenticate rejects it without our help.
		e.metricInc(MetricLogout)
		e.emitAudit(ctx, auditEventLogout, true, "", "", nil, func() map[string]string {
			return map[string]string{"note": "already_expired"}
		})
		return nil

	default:
		// Unparsable tokens have no JTI to key on; revoke a fingerprint of
		// the raw string for a full session lifetime instead.
		fp := randx.Fingerprint(tokenStr)
		if err := e.secrets.Revoke(ctx, fp, e.config.Token.SessionTTL); err != nil {
			return err
		}
		e.metricInc(MetricLogout)
		e.emitAudit(ctx, auditEventLogout, true, "", fp, nil, func() map[string]string {
			return map[string]string{"note": "unparsable_token"}
		})
		return nil
	}
}
