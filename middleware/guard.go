package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	credlock "github.com/credlock/credlock"
)

type principalContextKey struct{}

// PrincipalFromContext returns the authenticated principal injected by
// [Guard], when present.
func PrincipalFromContext(ctx context.Context) (*credlock.Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(*credlock.Principal)
	return p, ok
}

// Guard wraps a handler with session-token enforcement. A request without
// a usable bearer token is rejected 401; a token that once was valid but
// is now expired or revoked is rejected 403. On success the principal is
// available through [PrincipalFromContext].
func Guard(engine *credlock.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			principal, err := engine.Authenticate(r.Context(), token)
			if err != nil {
				switch {
				case errors.Is(err, credlock.ErrTokenExpired), errors.Is(err, credlock.ErrTokenRevoked):
					http.Error(w, "forbidden", http.StatusForbidden)
				default:
					http.Error(w, "unauthorized", http.StatusUnauthorized)
				}
				return
			}

			ctx := context.WithValue(r.Context(), principalContextKey{}, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}
