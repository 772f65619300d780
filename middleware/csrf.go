package middleware

import (
	"net/http"

	authgate "github.com/movaro/authgate"
)

// CSRFHeaderName is an exported constant or variable used by the authentication engine.
const CSRFHeaderName = "X-Csrf-Token"

// CSRFCookieName is an exported constant or variable used by the authentication engine.
const CSRFCookieName = "csrf_token"

// CSRF enforces double-submit CSRF verification on state-changing methods.
// Safe methods (GET, HEAD, OPTIONS) pass through untouched.
func CSRF(engine *authgate.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := WithRequestContext(r)

			var cookieValue string
			if cookie, err := r.Cookie(CSRFCookieName); err == nil {
				cookieValue = cookie.Value
			}

			err := engine.CheckCSRF(
				ctx,
				r.Method,
				r.Header.Get(CSRFHeaderName),
				cookieValue,
				r.Header.Get("Origin"),
			)
			if err != nil {
				http.Error(w, "forbidden", authgate.HTTPStatus(err))
				return
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
