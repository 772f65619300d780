package authgate

import "context"

type clientIPContextKey struct{}
type userAgentContextKey struct{}
type apiKeyContextKey struct{}
type correlationIDContextKey struct{}

// WithClientIP attaches the caller's IP address to ctx. The Engine uses
// it for device fingerprinting, per-IP rate limiting, and audit logging.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

// WithUserAgent attaches the HTTP User-Agent string to ctx. Together
// with the client IP it forms the device fingerprint bound into tokens.
func WithUserAgent(ctx context.Context, userAgent string) context.Context {
	return context.WithValue(ctx, userAgentContextKey{}, userAgent)
}

// WithAPIKey attaches an API-key credential to ctx. The rate limiter
// prefers it over the raw client IP when deriving the limit key.
func WithAPIKey(ctx context.Context, apiKey string) context.Context {
	return context.WithValue(ctx, apiKeyContextKey{}, apiKey)
}

// WithCorrelationID attaches a request correlation identifier to ctx.
// It is echoed in audit events and boundary error logs.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDContextKey{}, id)
}

// CorrelationIDFromContext returns the correlation identifier attached
// by [WithCorrelationID], or empty.
func CorrelationIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	id, _ := ctx.Value(correlationIDContextKey{}).(string)
	return id
}

func clientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}

func userAgentFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	userAgent, _ := ctx.Value(userAgentContextKey{}).(string)
	return userAgent
}

func apiKeyFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	apiKey, _ := ctx.Value(apiKeyContextKey{}).(string)
	return apiKey
}
