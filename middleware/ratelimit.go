package middleware

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	authgate "github.com/movaro/authgate"
)

// RateLimit enforces the engine's token-bucket and burst limits per request.
// Denied requests receive 429 with a Retry-After header in whole seconds.
func RateLimit(engine *authgate.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := WithRequestContext(r)

			if err := engine.CheckRate(ctx, r.URL.Path); err != nil {
				var rle *authgate.RateLimitError
				if errors.As(err, &rle) && rle.RetryAfter > 0 {
					seconds := int(math.Ceil(rle.RetryAfter.Seconds()))
					w.Header().Set("Retry-After", strconv.Itoa(seconds))
				}
				http.Error(w, "too many requests", authgate.HTTPStatus(err))
				return
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
