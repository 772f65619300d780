package csrf

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	// TokenSize is the raw secret length in bytes.
	TokenSize = 32

	// DefaultWindow bounds how long an encoded token stays fresh.
	DefaultWindow = 24 * time.Hour
)

// Guard verifies double-submit CSRF tokens. Safe for concurrent use after
// construction.
type Guard struct {
	secret         []byte
	window         time.Duration
	allowedOrigins map[string]struct{}
}

// New creates a Guard. secret keys the HMAC and must stay stable across the
// fleet; window <= 0 falls back to [DefaultWindow]. allowedOrigins lists
// origins accepted by [Guard.CheckOrigin] (scheme://host[:port]).
func New(secret []byte, window time.Duration, allowedOrigins []string) (*Guard, error) {
	if len(secret) < 16 {
		return nil, errors.New("csrf secret must be at least 16 bytes")
	}
	if window <= 0 {
		window = DefaultWindow
	}

	origins := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[strings.TrimSuffix(o, "/")] = struct{}{}
	}

	return &Guard{
		secret:         append([]byte(nil), secret...),
		window:         window,
		allowedOrigins: origins,
	}, nil
}

// GenerateToken returns a fresh 32-byte random token.
func (g *Guard) GenerateToken() ([]byte, error) {
	token := make([]byte, TokenSize)
	if _, err := rand.Read(token); err != nil {
		return nil, err
	}
	return token, nil
}

// Encode stamps token with the current time and signs it:
// "base64url(token):timestamp:hmac".
func (g *Guard) Encode(token []byte) string {
	return g.encodeAt(token, time.Now())
}

func (g *Guard) encodeAt(token []byte, issued time.Time) string {
	ts := strconv.FormatInt(issued.Unix(), 10)
	body := base64.RawURLEncoding.EncodeToString(token)
	return body + ":" + ts + ":" + g.sign(body, ts)
}

func (g *Guard) sign(body, ts string) string {
	mac := hmac.New(sha256.New, g.secret)
	mac.Write([]byte(body))
	mac.Write([]byte(":"))
	mac.Write([]byte(ts))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify recomputes the HMAC over the encoded token, compares in constant
// time, and checks that the embedded timestamp falls inside the freshness
// window. Any structural defect fails closed.
func (g *Guard) Verify(encoded string) bool {
	body, ts, sig, ok := splitEncoded(encoded)
	if !ok {
		return false
	}

	expected := g.sign(body, ts)
	if !hmac.Equal([]byte(expected), []byte(sig)) {
		return false
	}

	issued, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return false
	}
	age := time.Since(time.Unix(issued, 0))
	if age < 0 {
		// Issued in the future: clock defect or forgery, reject.
		return false
	}
	return age <= g.window
}

// VerifyDoubleSubmit checks that the header and cookie carry the identical
// encoded token and that the token itself verifies.
func (g *Guard) VerifyDoubleSubmit(headerValue, cookieValue string) bool {
	if headerValue == "" || cookieValue == "" {
		return false
	}
	if !hmac.Equal([]byte(headerValue), []byte(cookieValue)) {
		return false
	}
	return g.Verify(headerValue)
}

// ExemptMethod reports whether the HTTP method skips CSRF checks entirely.
func ExemptMethod(method string) bool {
	switch strings.ToUpper(method) {
	case "GET", "HEAD", "OPTIONS":
		return true
	}
	return false
}

// CheckOrigin validates an Origin or Referer header value against the
// allow-list. It is advisory: an empty allow-list or an absent header
// passes, because proxies legitimately strip both headers. Never use this
// as the sole CSRF gate.
func (g *Guard) CheckOrigin(headerValue string) bool {
	if len(g.allowedOrigins) == 0 || headerValue == "" {
		return true
	}

	u, err := url.Parse(headerValue)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return false
	}
	_, ok := g.allowedOrigins[u.Scheme+"://"+u.Host]
	return ok
}

func splitEncoded(encoded string) (body, ts, sig string, ok bool) {
	first := strings.IndexByte(encoded, ':')
	if first < 0 {
		return "", "", "", false
	}
	second := strings.IndexByte(encoded[first+1:], ':')
	if second < 0 {
		return "", "", "", false
	}
	second += first + 1

	body = encoded[:first]
	ts = encoded[first+1 : second]
	sig = encoded[second+1:]
	if body == "" || ts == "" || sig == "" {
		return "", "", "", false
	}
	if _, err := base64.RawURLEncoding.DecodeString(body); err != nil {
		return "", "", "", false
	}
	return body, ts, sig, true
}
