package stores

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	challengeRecordVersion1 = 1
	challengeMaxRetries     = 4
	challengeRetryStep      = 2 * time.Millisecond
)

var (
	ErrChallengeNotFound = errors.New("challenge not found")
	ErrChallengeExpired  = errors.New("challenge expired")
	ErrChallengeBackend  = errors.New("challenge backend unavailable")
	ErrChallengeCorrupt  = errors.New("challenge record corrupt")

	// ErrChallengeContended is returned when every optimistic retry lost to a
	// concurrent writer. It wraps ErrChallengeBackend.
	ErrChallengeContended = fmt.Errorf("%w: too much contention", ErrChallengeBackend)
)

// Challenge is the pending one-time code for an identity. Only the SHA-256 of
// the code is kept.
type Challenge struct {
	Identity  string
	CodeHash  [32]byte
	IssuedAt  time.Time
	ExpiresAt time.Time
	Attempts  uint16
	Used      bool
}

// VerifyOutcome is the result of a Verify call that reached a live challenge.
type VerifyOutcome int

const (
	VerifyMatched VerifyOutcome = iota + 1
	VerifyMismatch
	VerifyLocked
)

// ChallengeStore keeps at most one challenge per identity under
// "<prefix>:<identity>".
type ChallengeStore struct {
	redis  redis.UniversalClient
	prefix string
}

func NewChallengeStore(redisClient redis.UniversalClient, prefix string) *ChallengeStore {
	if prefix == "" {
		prefix = "amc"
	}
	return &ChallengeStore{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *ChallengeStore) key(identity string) string {
	return s.prefix + ":" + identity
}

// Save writes record, replacing any challenge already held for the identity.
func (s *ChallengeStore) Save(ctx context.Context, record *Challenge) error {
	ttl := record.ExpiresAt.Sub(record.IssuedAt)
	if ttl <= 0 {
		return fmt.Errorf("%w: non-positive ttl", ErrChallengeCorrupt)
	}

	encoded, err := encodeChallenge(record)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.key(record.Identity), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrChallengeBackend, err)
	}
	return nil
}

// Get returns the live challenge for identity. Used challenges report
// ErrChallengeNotFound.
func (s *ChallengeStore) Get(ctx context.Context, identity string, now time.Time) (*Challenge, error) {
	data, err := s.redis.Get(ctx, s.key(identity)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrChallengeNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrChallengeBackend, err)
	}

	record, err := decodeChallenge(data)
	if err != nil {
		return nil, err
	}
	if record.Used {
		return nil, ErrChallengeNotFound
	}
	if !now.Before(record.ExpiresAt) {
		_, _ = s.redis.Del(ctx, s.key(identity)).Result()
		return nil, ErrChallengeExpired
	}
	return record, nil
}

// Delete removes the challenge for identity, reporting whether one existed.
func (s *ChallengeStore) Delete(ctx context.Context, identity string) (bool, error) {
	n, err := s.redis.Del(ctx, s.key(identity)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrChallengeBackend, err)
	}
	return n > 0, nil
}

// Verify compares codeHash against the live challenge in one optimistic
// transaction. A match marks the challenge used and keeps it until expiry so a
// replay is rejected. A mismatch counts an attempt; the attempt that reaches
// maxAttempts deletes the challenge and reports VerifyLocked.
func (s *ChallengeStore) Verify(
	ctx context.Context,
	identity string,
	codeHash [32]byte,
	maxAttempts int,
	now time.Time,
) (VerifyOutcome, error) {
	key := s.key(identity)

	for i := 0; i < challengeMaxRetries; i++ {
		var outcome VerifyOutcome
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}

			record, err := decodeChallenge(data)
			if err != nil {
				return err
			}
			if record.Used {
				return ErrChallengeNotFound
			}

			ttl := record.ExpiresAt.Sub(now)
			if ttl <= 0 {
				if _, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					return nil
				}); err != nil {
					return err
				}
				return ErrChallengeExpired
			}

			if subtle.ConstantTimeCompare(record.CodeHash[:], codeHash[:]) == 1 {
				record.Used = true
				outcome = VerifyMatched
			} else {
				record.Attempts++
				outcome = VerifyMismatch
				if int(record.Attempts) >= maxAttempts {
					outcome = VerifyLocked
				}
			}

			if outcome == VerifyLocked {
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					return nil
				})
				return err
			}

			updated, err := encodeChallenge(record)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, updated, ttl)
				return nil
			})
			return err
		}, key)

		if errors.Is(err, redis.TxFailedErr) {
			if err := backoff(ctx, i); err != nil {
				return 0, fmt.Errorf("%w: %v", ErrChallengeBackend, err)
			}
			continue
		}
		if err != nil {
			switch {
			case errors.Is(err, redis.Nil), errors.Is(err, ErrChallengeNotFound):
				return 0, ErrChallengeNotFound
			case errors.Is(err, ErrChallengeExpired), errors.Is(err, ErrChallengeCorrupt):
				return 0, err
			}
			return 0, fmt.Errorf("%w: %v", ErrChallengeBackend, err)
		}
		return outcome, nil
	}

	// The challenge may still be live; the caller can resubmit the same code.
	return 0, ErrChallengeContended
}

// backoff waits a little longer after each lost race.
func backoff(ctx context.Context, attempt int) error {
	t := time.NewTimer(time.Duration(attempt+1) * challengeRetryStep)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func encodeChallenge(record *Challenge) ([]byte, error) {
	if len(record.Identity) > 65535 {
		return nil, fmt.Errorf("%w: identity length exceeded", ErrChallengeCorrupt)
	}

	var buf bytes.Buffer
	buf.Grow(1 + 2 + 1 + 8 + 8 + 32 + 2 + len(record.Identity))
	buf.WriteByte(challengeRecordVersion1)

	var used byte
	if record.Used {
		used = 1
	}

	fields := []any{
		record.Attempts,
		used,
		record.IssuedAt.UnixMilli(),
		record.ExpiresAt.UnixMilli(),
		record.CodeHash,
		uint16(len(record.Identity)),
	}
	for _, f := range fields {
		if err := binary.Write(&buf, binary.BigEndian, f); err != nil {
			return nil, err
		}
	}
	buf.WriteString(record.Identity)

	return buf.Bytes(), nil
}

func decodeChallenge(data []byte) (*Challenge, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil || version != challengeRecordVersion1 {
		return nil, ErrChallengeCorrupt
	}

	var (
		record    Challenge
		used      byte
		issuedAt  int64
		expiresAt int64
		idLen     uint16
	)
	for _, f := range []any{&record.Attempts, &used, &issuedAt, &expiresAt, &record.CodeHash, &idLen} {
		if err := binary.Read(reader, binary.BigEndian, f); err != nil {
			return nil, ErrChallengeCorrupt
		}
	}

	identity := make([]byte, idLen)
	if _, err := io.ReadFull(reader, identity); err != nil {
		return nil, ErrChallengeCorrupt
	}
	if reader.Len() != 0 {
		return nil, ErrChallengeCorrupt
	}

	record.Identity = string(identity)
	record.Used = used == 1
	record.IssuedAt = time.UnixMilli(issuedAt)
	record.ExpiresAt = time.UnixMilli(expiresAt)
	return &record, nil
}
