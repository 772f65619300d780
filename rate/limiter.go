package rate

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds rate limiter tuning parameters.
type Config struct {
	// Capacity is the token bucket size; RefillRate is tokens added per
	// second. A zero Capacity disables the steady-state bucket.
	Capacity   float64
	RefillRate float64

	// BurstLimit caps requests per BurstWindow regardless of bucket
	// state. A zero BurstLimit disables the burst check. Default window
	// is one minute.
	BurstLimit  int
	BurstWindow time.Duration

	// BypassPaths are request path prefixes exempt from both buckets
	// (health checks, public read-only content).
	BypassPaths []string

	EnableIPThrottle      bool
	MaxLoginAttempts      int
	LoginCooldownDuration time.Duration

	EnableRefreshThrottle   bool
	MaxRefreshAttempts      int
	RefreshCooldownDuration time.Duration
}

// Decision is the outcome of a single rate-limit evaluation.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

const tokenBucketScript = `
local key = KEYS[1]
local capacity = tonumber(ARGV[1])
local refill_rate = tonumber(ARGV[2])
local now_ms = tonumber(ARGV[3])
local ttl_ms = tonumber(ARGV[4])

local bucket = redis.call("HMGET", key, "tokens", "last_refill")
local tokens = tonumber(bucket[1])
local last = tonumber(bucket[2])
if not tokens or not last then
  tokens = capacity
  last = now_ms
end

local elapsed = (now_ms - last) / 1000
if elapsed > 0 then
  tokens = math.min(capacity, tokens + elapsed * refill_rate)
  last = now_ms
end

if tokens >= 1 then
  tokens = tokens - 1
  redis.call("HSET", key, "tokens", tostring(tokens), "last_refill", tostring(last))
  redis.call("PEXPIRE", key, ttl_ms)
  return {1, "0"}
end

redis.call("HSET", key, "tokens", tostring(tokens), "last_refill", tostring(last))
redis.call("PEXPIRE", key, ttl_ms)
local wait_ms = math.ceil(((1 - tokens) / refill_rate) * 1000)
return {0, tostring(wait_ms)}
`

var tokenBucketLua = redis.NewScript(tokenBucketScript)

// Limiter enforces per-key token-bucket and burst limits plus
// per-identifier login throttling using Redis.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a rate [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	if cfg.BurstWindow <= 0 {
		cfg.BurstWindow = time.Minute
	}
	return &Limiter{
		redis:  redisClient,
		config: cfg,
	}
}

// Key resolves the rate-limit key for a request, preferring an API-key
// credential over the raw client IP. Anonymous requests without either
// share a single fallback bucket.
func Key(apiKey, ip string) string {
	if apiKey != "" {
		return "k:" + apiKey
	}
	if ip != "" {
		return "ip:" + ip
	}
	return "anon"
}

// Bypass reports whether a request path is exempt from rate limiting.
func (l *Limiter) Bypass(path string) bool {
	for _, prefix := range l.config.BypassPaths {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// Allow evaluates both buckets for the key. A request passes only when
// the steady-state bucket has a token AND the burst window has room;
// denial carries the retry-after hint for the failing bucket.
//
//	Performance: 1 Lua EVALSHA + up to 2 Redis commands.
func (l *Limiter) Allow(ctx context.Context, key string) (Decision, error) {
	if l.config.Capacity > 0 {
		decision, err := l.takeToken(ctx, key)
		if err != nil || !decision.Allowed {
			return decision, err
		}
	}

	if l.config.BurstLimit > 0 {
		return l.takeBurst(ctx, key)
	}

	return Decision{Allowed: true}, nil
}

func (l *Limiter) takeToken(ctx context.Context, key string) (Decision, error) {
	// TTL covers a full refill from empty so idle buckets self-expire.
	ttl := time.Duration(l.config.Capacity/l.config.RefillRate*2) * time.Second
	if ttl < time.Minute {
		ttl = time.Minute
	}

	result, err := tokenBucketLua.Run(
		ctx,
		l.redis,
		[]string{bucketKey(key)},
		l.config.Capacity,
		l.config.RefillRate,
		time.Now().UnixMilli(),
		ttl.Milliseconds(),
	).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	parts, ok := result.([]interface{})
	if !ok || len(parts) != 2 {
		return Decision{}, fmt.Errorf("%w: invalid bucket script response", ErrRedisUnavailable)
	}
	allowed, ok := parts[0].(int64)
	if !ok {
		return Decision{}, fmt.Errorf("%w: invalid bucket script status", ErrRedisUnavailable)
	}
	if allowed == 1 {
		return Decision{Allowed: true}, nil
	}

	waitStr, ok := parts[1].(string)
	if !ok {
		return Decision{}, fmt.Errorf("%w: invalid bucket script wait", ErrRedisUnavailable)
	}
	waitMs, err := strconv.ParseInt(waitStr, 10, 64)
	if err != nil {
		return Decision{}, fmt.Errorf("%w: invalid bucket script wait", ErrRedisUnavailable)
	}

	return Decision{RetryAfter: time.Duration(waitMs) * time.Millisecond}, nil
}

func (l *Limiter) takeBurst(ctx context.Context, key string) (Decision, error) {
	count, err := l.incrementWithTTL(ctx, burstKey(key), l.config.BurstWindow)
	if err != nil {
		return Decision{}, err
	}
	if count <= int64(l.config.BurstLimit) {
		return Decision{Allowed: true}, nil
	}

	remaining, err := l.redis.PTTL(ctx, burstKey(key)).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if remaining < 0 {
		remaining = l.config.BurstWindow
	}
	return Decision{RetryAfter: remaining}, nil
}

// CheckLogin checks whether the identifier+IP pair is within the login
// attempt budget. Returns an error if rate-limited.
func (l *Limiter) CheckLogin(ctx context.Context, username, ip string) error {
	if err := l.checkCounter(ctx, loginUserKey(username), l.config.MaxLoginAttempts); err != nil {
		return err
	}

	if l.config.EnableIPThrottle && ip != "" {
		if err := l.checkCounter(ctx, loginIPKey(ip), l.config.MaxLoginAttempts); err != nil {
			return err
		}
	}

	return nil
}

// IncrementLogin records a failed login attempt for the identifier+IP pair.
func (l *Limiter) IncrementLogin(ctx context.Context, username, ip string) error {
	count, err := l.incrementWithTTL(ctx, loginUserKey(username), l.config.LoginCooldownDuration)
	if err != nil {
		return err
	}
	if count > int64(l.config.MaxLoginAttempts) {
		return ErrRateLimited
	}

	if l.config.EnableIPThrottle && ip != "" {
		count, err = l.incrementWithTTL(ctx, loginIPKey(ip), l.config.LoginCooldownDuration)
		if err != nil {
			return err
		}
		if count > int64(l.config.MaxLoginAttempts) {
			return ErrRateLimited
		}
	}

	return nil
}

// ResetLogin clears the failed-login counter for the identifier+IP pair.
// Called after successful login or password change.
func (l *Limiter) ResetLogin(ctx context.Context, username, ip string) error {
	keys := []string{loginUserKey(username)}
	if l.config.EnableIPThrottle && ip != "" {
		keys = append(keys, loginIPKey(ip))
	}

	if err := l.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

// GetLoginAttempts returns the current attempt counter for an identifier.
// Missing keys return zero and do not reveal account existence.
func (l *Limiter) GetLoginAttempts(ctx context.Context, username string) (int, error) {
	count, err := l.redis.Get(ctx, loginUserKey(username)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count < 0 {
		return 0, nil
	}
	return int(count), nil
}

// CheckRefresh checks whether the session is within the refresh attempt
// budget and records the attempt.
func (l *Limiter) CheckRefresh(ctx context.Context, sessionID string) error {
	if !l.config.EnableRefreshThrottle || sessionID == "" {
		return nil
	}

	count, err := l.incrementWithTTL(ctx, refreshKey(sessionID), l.config.RefreshCooldownDuration)
	if err != nil {
		return err
	}
	if count > int64(l.config.MaxRefreshAttempts) {
		return ErrRateLimited
	}

	return nil
}

func (l *Limiter) checkCounter(ctx context.Context, key string, maxAttempts int) error {
	count, err := l.redis.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	if count > int64(maxAttempts) {
		return ErrRateLimited
	}

	return nil
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed-window semantics: set TTL only for the first hit in the window.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return count, nil
}

func bucketKey(key string) string  { return "rb:" + key }
func burstKey(key string) string   { return "rbb:" + key }
func loginUserKey(u string) string { return "al:" + u }
func loginIPKey(ip string) string  { return "ali:" + ip }
func refreshKey(sid string) string { return "ar:" + sid }
