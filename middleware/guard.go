package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/google/uuid"
	authgate "github.com/movaro/authgate"
)

type identityContextKey struct{}

// IdentityFromContext returns the authenticated identity injected by
// [RequireAuth] or [Authenticate]. The second return is false for requests
// that never passed a guard.
func IdentityFromContext(ctx context.Context) (authgate.Identity, bool) {
	id, ok := ctx.Value(identityContextKey{}).(authgate.Identity)
	return id, ok
}

// WithRequestContext copies the request's client IP, User-Agent, API key,
// and correlation id into the context the engine sees. A missing
// correlation id is minted here so every audit event of the request chain
// shares one.
func WithRequestContext(r *http.Request) context.Context {
	ctx := r.Context()
	ctx = authgate.WithClientIP(ctx, clientIP(r))
	ctx = authgate.WithUserAgent(ctx, r.UserAgent())
	if apiKey := r.Header.Get("X-Api-Key"); apiKey != "" {
		ctx = authgate.WithAPIKey(ctx, apiKey)
	}
	correlationID := r.Header.Get("X-Correlation-Id")
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	return authgate.WithCorrelationID(ctx, correlationID)
}

// RequireAuth rejects requests without a valid, unrevoked, fingerprint-bound
// access token. All failure causes collapse to one 401 body.
func RequireAuth(engine *authgate.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := WithRequestContext(r)

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			identity, err := engine.Authenticate(ctx, token)
			if err != nil || identity.Anonymous() {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx = context.WithValue(ctx, identityContextKey{}, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Authenticate resolves the request identity when a bearer token is present
// but always calls the next handler; anonymous requests proceed with no
// identity in context. Handlers that require authentication should use
// [RequireAuth] instead.
func Authenticate(engine *authgate.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := WithRequestContext(r)

			if token, ok := bearerToken(r.Header.Get("Authorization")); ok {
				if identity, err := engine.Authenticate(ctx, token); err == nil && !identity.Anonymous() {
					ctx = context.WithValue(ctx, identityContextKey{}, identity)
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequirePermission layers a permission check over [RequireAuth]'s identity.
func RequirePermission(engine *authgate.Engine, perm string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFromContext(r.Context())
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			if err := engine.Authorize(r.Context(), identity, perm); err != nil {
				http.Error(w, "forbidden", authgate.HTTPStatus(err))
				return
			}
			next.ServeHTTP(w, r)
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

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if idx := strings.IndexByte(forwarded, ','); idx >= 0 {
			return strings.TrimSpace(forwarded[:idx])
		}
		return strings.TrimSpace(forwarded)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
