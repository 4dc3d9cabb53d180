package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrNotFound is returned for unknown or expired tokens.
	ErrNotFound = errors.New("session not found")
	// ErrRedisUnavailable wraps Redis failures.
	ErrRedisUnavailable = errors.New("redis unavailable")
)

const minTTL = time.Millisecond

// KEYS[1]=session, KEYS[2]=identity index, ARGV[1]=session id.
var deleteSessionLua = redis.NewScript(`
local existed = redis.call("DEL", KEYS[1])
redis.call("SREM", KEYS[2], ARGV[1])
return existed
`)

// Store is a Redis-backed session store.
//
//	Keys: <prefix>:<sha256(token)> holds the sealed record,
//	      <prefix>u:<identity> indexes the identity's session ids.
type Store struct {
	redis  redis.UniversalClient
	prefix string
	key    []byte
}

// NewStore creates a session Store. sealKey must be cryptox.KeySize bytes.
func NewStore(redisClient redis.UniversalClient, prefix string, sealKey []byte) *Store {
	if prefix == "" {
		prefix = "as"
	}
	return &Store{
		redis:  redisClient,
		prefix: prefix,
		key:    sealKey,
	}
}

func (s *Store) sessionKey(id string) string {
	return s.prefix + ":" + id
}

func (s *Store) identityKey(identity string) string {
	return s.prefix + "u:" + identity
}

// Put stores sess under token with the given TTL and indexes it.
//
//	Performance: 1 MULTI/EXEC (SET + SADD).
func (s *Store) Put(ctx context.Context, token string, sess *Session, ttl time.Duration) error {
	data, err := Encode(sess, s.key)
	if err != nil {
		return err
	}

	id := ID(token)
	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.sessionKey(id), data, clampTTL(ttl))
		pipe.SAdd(ctx, s.identityKey(sess.Identity), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Get returns the session for token without changing its TTL.
func (s *Store) Get(ctx context.Context, token string) (*Session, error) {
	data, err := s.redis.Get(ctx, s.sessionKey(ID(token))).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return Decode(data, s.key)
}

// Touch rewrites sess under token with a fresh TTL, only if the session still
// exists. A session deleted concurrently is not recreated and ErrNotFound is
// returned.
//
//	Performance: 1 SET XX.
func (s *Store) Touch(ctx context.Context, token string, sess *Session, ttl time.Duration) error {
	data, err := Encode(sess, s.key)
	if err != nil {
		return err
	}

	err = s.redis.SetArgs(ctx, s.sessionKey(ID(token)), data, redis.SetArgs{
		Mode: "XX",
		TTL:  clampTTL(ttl),
	}).Err()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Delete removes the session for token. Deleting an unknown token is not an
// error; the return value reports whether a session existed.
func (s *Store) Delete(ctx context.Context, token string) (bool, error) {
	id := ID(token)
	key := s.sessionKey(id)

	identity := ""
	data, err := s.redis.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if sess, decErr := Decode(data, s.key); decErr == nil {
		identity = sess.Identity
	}

	existed, err := deleteSessionLua.Run(ctx, s.redis, []string{key, s.identityKey(identity)}, id).Int64()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return existed == 1, nil
}

// DeleteAllForIdentity removes every indexed session of identity except the
// one belonging to keepToken (which may be empty). It returns how many
// sessions were removed.
//
// A session created between the index read and the delete is not captured; it
// expires on its idle timeout.
func (s *Store) DeleteAllForIdentity(ctx context.Context, identity, keepToken string) (int, error) {
	indexKey := s.identityKey(identity)

	ids, err := s.redis.SMembers(ctx, indexKey).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	keep := ""
	if keepToken != "" {
		keep = ID(keepToken)
	}

	keys := make([]string, 0, len(ids))
	drop := make([]any, 0, len(ids))
	for _, id := range ids {
		if id == keep {
			continue
		}
		keys = append(keys, s.sessionKey(id))
		drop = append(drop, id)
	}
	if len(keys) == 0 {
		return 0, nil
	}

	var delCmd *redis.IntCmd
	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		delCmd = pipe.Del(ctx, keys...)
		pipe.SRem(ctx, indexKey, drop...)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return int(delCmd.Val()), nil
}

// ActiveSessionCount returns the number of live sessions for identity and
// prunes index entries whose records have expired.
func (s *Store) ActiveSessionCount(ctx context.Context, identity string) (int, error) {
	indexKey := s.identityKey(identity)

	ids, err := s.redis.SMembers(ctx, indexKey).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	pipe := s.redis.Pipeline()
	cmds := make([]*redis.IntCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.Exists(ctx, s.sessionKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	live := 0
	stale := make([]any, 0)
	for i, cmd := range cmds {
		if cmd.Val() == 1 {
			live++
			continue
		}
		stale = append(stale, ids[i])
	}
	if len(stale) > 0 {
		if err := s.redis.SRem(ctx, indexKey, stale...).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}
	return live, nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}

func clampTTL(ttl time.Duration) time.Duration {
	if ttl < minTTL {
		return minTTL
	}
	return ttl
}
