package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable is an exported constant or variable used by the authentication engine.
var ErrRedisUnavailable = errors.New("redis unavailable")

// ErrSessionCorrupt is returned when a stored session blob cannot be decoded.
var ErrSessionCorrupt = errors.New("session corrupt")

const minSessionTTL = time.Second

// Revoker marks token hashes as revoked during session teardown. The
// revocation registry satisfies this with its string-reason form.
type Revoker interface {
	RevokeToken(ctx context.Context, tokenHash, reason string, ttl time.Duration) error
}

// Store is the Redis-backed session registry. Sessions are keyed by
// refresh-token hash; a per-user sorted set scored by last activity
// backs the concurrent-session cap.
//
//	Docs: docs/session.md
type Store struct {
	redis   redis.UniversalClient
	prefix  string
	revoker Revoker
	seq     atomic.Uint64
}

// NewStore creates a session [Store] backed by the given Redis client.
// prefix sets the Redis key namespace. revoker is invoked for tokens of
// sessions evicted by the concurrency cap; it may be nil, in which case
// evicted sessions are deleted without blacklisting.
func NewStore(rdb redis.UniversalClient, prefix string, revoker Revoker) *Store {
	if prefix == "" {
		prefix = "sn"
	}
	return &Store{redis: rdb, prefix: prefix, revoker: revoker}
}

func (s *Store) key(tokenHash string) string {
	return s.prefix + ":" + tokenHash
}

func (s *Store) userKey(userID string) string {
	return s.prefix + "u:" + userID
}

// seqSteps bounds the sub-millisecond fraction the creation sequence
// occupies in the index score. Millisecond scores near 2^41 leave about
// 11 mantissa bits of fraction, so 2^10 distinct steps stay ordered.
const seqSteps = 1 << 10

// score composes the eviction-index score: the integer part is the
// last-activity stamp in milliseconds, the fraction carries the creation
// sequence so activity ties evict oldest-created first.
func score(sess *Session) float64 {
	return float64(sess.LastActivity) + float64(sess.CreatedSeq%seqSteps)/seqSteps
}

// Create persists a new session and enforces the per-user concurrency
// cap: when the user already holds maxSessions active sessions, the one
// with the oldest last activity is evicted (activity ties broken by
// creation order) and its tokens revoked before the new session is
// admitted. Returns the token hashes of evicted sessions.
//
// The cap check and the admit are not a single atomic step; two exactly
// simultaneous logins can leave the user one session over the cap until
// the next Create prunes it. The cap is a resource bound, not a security
// boundary, so the transient overshoot is accepted.
func (s *Store) Create(ctx context.Context, sess *Session, maxSessions int) ([]string, error) {
	if sess == nil || sess.TokenHash == "" {
		return nil, errors.New("session missing token hash")
	}

	ttl := time.Until(time.Unix(sess.ExpiresAt, 0))
	if ttl < minSessionTTL {
		ttl = minSessionTTL
	}

	var evicted []string
	if maxSessions > 0 {
		var err error
		evicted, err = s.evictForCap(ctx, sess.UserID, maxSessions)
		if err != nil {
			return nil, err
		}
	}

	if sess.CreatedSeq == 0 {
		sess.CreatedSeq = s.seq.Add(1)
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return evicted, err
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(sess.TokenHash), data, ttl)
		pipe.ZAdd(ctx, s.userKey(sess.UserID), redis.Z{
			Score:  score(sess),
			Member: sess.TokenHash,
		})
		pipe.ExpireGT(ctx, s.userKey(sess.UserID), ttl)
		pipe.ExpireNX(ctx, s.userKey(sess.UserID), ttl)
		return nil
	})
	if err != nil {
		return evicted, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return evicted, nil
}

// evictForCap removes oldest-activity sessions until the user is one
// below maxSessions, making room for the session about to be admitted.
func (s *Store) evictForCap(ctx context.Context, userID string, maxSessions int) ([]string, error) {
	if err := s.pruneUserIndex(ctx, userID); err != nil {
		return nil, err
	}

	count, err := s.redis.ZCard(ctx, s.userKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	excess := int(count) - maxSessions + 1
	if excess <= 0 {
		return nil, nil
	}

	oldest, err := s.redis.ZRange(ctx, s.userKey(userID), 0, int64(excess-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	evicted := make([]string, 0, len(oldest))
	for _, hash := range oldest {
		if err := s.evictOne(ctx, userID, hash); err != nil {
			return evicted, err
		}
		evicted = append(evicted, hash)
	}
	return evicted, nil
}

func (s *Store) evictOne(ctx context.Context, userID, tokenHash string) error {
	sess, err := s.Get(ctx, tokenHash)
	if err != nil && !errors.Is(err, redis.Nil) && !errors.Is(err, ErrSessionCorrupt) {
		return err
	}

	if s.revoker != nil && sess != nil {
		remaining := time.Until(time.Unix(sess.ExpiresAt, 0))
		if err := s.revoker.RevokeToken(ctx, tokenHash, "evicted", remaining); err != nil {
			return err
		}
		if sess.AccessHash != "" {
			// The access token dies on its own schedule; its blacklist
			// entry must not outlive it on the refresh token's clock.
			accessRemaining := remaining
			if sess.AccessExpiresAt > 0 {
				accessRemaining = time.Until(time.Unix(sess.AccessExpiresAt, 0))
			}
			if err := s.revoker.RevokeToken(ctx, sess.AccessHash, "evicted", accessRemaining); err != nil {
				return err
			}
		}
	}

	return s.remove(ctx, userID, tokenHash)
}

// Get retrieves a session by refresh-token hash. Returns redis.Nil when
// the session does not exist or has lapsed past its absolute expiry.
//
//	Performance: 1 Redis GET on the hot path.
func (s *Store) Get(ctx context.Context, tokenHash string) (*Session, error) {
	data, err := s.redis.Get(ctx, s.key(tokenHash)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionCorrupt, err)
	}
	sess.TokenHash = tokenHash

	if sess.Expired(time.Now()) {
		if err := s.remove(ctx, sess.UserID, tokenHash); err != nil {
			return nil, err
		}
		return nil, redis.Nil
	}

	return &sess, nil
}

// Touch updates a session's last-activity stamp, preserving its TTL and
// reordering it within the eviction index.
func (s *Store) Touch(ctx context.Context, tokenHash string, now time.Time) error {
	sess, err := s.Get(ctx, tokenHash)
	if err != nil {
		return err
	}

	sess.LastActivity = now.UnixMilli()
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SetArgs(ctx, s.key(tokenHash), data, redis.SetArgs{KeepTTL: true})
		pipe.ZAddXX(ctx, s.userKey(sess.UserID), redis.Z{
			Score:  score(sess),
			Member: tokenHash,
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Rekey moves a session from its old refresh-hash key to a new one
// during rotation, updating the current access hash, its expiry, the
// activity stamp, and the absolute expiry. Exactly-once rotation is
// guaranteed upstream by the revocation registry's first-writer-wins
// blacklist, so the move itself does not need to be atomic.
func (s *Store) Rekey(ctx context.Context, oldHash, newHash, newAccessHash string, accessExpiresAt, expiresAt time.Time) (*Session, error) {
	sess, err := s.Get(ctx, oldHash)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	sess.TokenHash = newHash
	sess.AccessHash = newAccessHash
	sess.AccessExpiresAt = accessExpiresAt.Unix()
	sess.LastActivity = now.UnixMilli()
	sess.ExpiresAt = expiresAt.Unix()

	data, err := json.Marshal(sess)
	if err != nil {
		return nil, err
	}

	ttl := time.Until(expiresAt)
	if ttl < minSessionTTL {
		ttl = minSessionTTL
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key(oldHash))
		pipe.Set(ctx, s.key(newHash), data, ttl)
		pipe.ZRem(ctx, s.userKey(sess.UserID), oldHash)
		pipe.ZAdd(ctx, s.userKey(sess.UserID), redis.Z{
			Score:  score(sess),
			Member: newHash,
		})
		pipe.ExpireGT(ctx, s.userKey(sess.UserID), ttl)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return sess, nil
}

// Delete removes a session and its index entry. Deleting a session that
// does not exist is a no-op.
func (s *Store) Delete(ctx context.Context, tokenHash string) error {
	sess, err := s.Get(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return err
	}
	return s.remove(ctx, sess.UserID, tokenHash)
}

// DeleteAllForUser removes every session for a user and returns the
// removed sessions so the caller can revoke their tokens.
func (s *Store) DeleteAllForUser(ctx context.Context, userID string) ([]*Session, error) {
	hashes, err := s.redis.ZRange(ctx, s.userKey(userID), 0, -1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	sessions := make([]*Session, 0, len(hashes))
	for _, hash := range hashes {
		sess, err := s.Get(ctx, hash)
		if err != nil {
			if errors.Is(err, redis.Nil) || errors.Is(err, ErrSessionCorrupt) {
				continue
			}
			return sessions, err
		}
		sessions = append(sessions, sess)
	}

	keys := make([]string, 0, len(hashes)+1)
	for _, hash := range hashes {
		keys = append(keys, s.key(hash))
	}
	keys = append(keys, s.userKey(userID))

	if err := s.redis.Del(ctx, keys...).Err(); err != nil {
		return sessions, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return sessions, nil
}

// ActiveSessions returns the user's live sessions ordered oldest
// activity first.
func (s *Store) ActiveSessions(ctx context.Context, userID string) ([]*Session, error) {
	if err := s.pruneUserIndex(ctx, userID); err != nil {
		return nil, err
	}

	hashes, err := s.redis.ZRange(ctx, s.userKey(userID), 0, -1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []*Session{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	sessions := make([]*Session, 0, len(hashes))
	for _, hash := range hashes {
		sess, err := s.Get(ctx, hash)
		if err != nil {
			if errors.Is(err, redis.Nil) || errors.Is(err, ErrSessionCorrupt) {
				continue
			}
			return sessions, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, nil
}

// Count returns the number of live sessions tracked for a user.
func (s *Store) Count(ctx context.Context, userID string) (int, error) {
	if err := s.pruneUserIndex(ctx, userID); err != nil {
		return 0, err
	}

	count, err := s.redis.ZCard(ctx, s.userKey(userID)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return int(count), nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}

// pruneUserIndex drops index members whose session keys no longer exist.
// Session values expire via Redis TTL; the index learns about it here.
func (s *Store) pruneUserIndex(ctx context.Context, userID string) error {
	hashes, err := s.redis.ZRange(ctx, s.userKey(userID), 0, -1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(hashes) == 0 {
		return nil
	}

	pipe := s.redis.Pipeline()
	existsCmds := make([]*redis.IntCmd, len(hashes))
	for i, hash := range hashes {
		existsCmds[i] = pipe.Exists(ctx, s.key(hash))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	var stale []interface{}
	for i, cmd := range existsCmds {
		n, cmdErr := cmd.Result()
		if cmdErr != nil {
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, cmdErr)
		}
		if n == 0 {
			stale = append(stale, hashes[i])
		}
	}
	if len(stale) == 0 {
		return nil
	}

	if err := s.redis.ZRem(ctx, s.userKey(userID), stale...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (s *Store) remove(ctx context.Context, userID, tokenHash string) error {
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key(tokenHash))
		pipe.ZRem(ctx, s.userKey(userID), tokenHash)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}
