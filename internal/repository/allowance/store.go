package allowance

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/nexusacademy/creditguard/internal/db"
)

// store is the consumer interface for allowance counters (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	IncrBy(ctx context.Context, key string, val int64) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	Del(ctx context.Context, key string) error
}

// Store keeps the per-user, per-context daily free-allowance counters.
// Keys are date-scoped so a new calendar day starts a fresh counter with no
// explicit reset; old keys fall out via TTL.
type Store struct {
	store     store
	keyPrefix string
	ttl       time.Duration
}

// New creates an allowance store. ttl should comfortably exceed one day
// (recommended: 48h) so a counter never expires mid-day.
func New(s store, keyPrefix string, ttl time.Duration) *Store {
	return &Store{store: s, keyPrefix: keyPrefix, ttl: ttl}
}

func (s *Store) counterKey(userID, contextID string, t time.Time) string {
	if contextID == "" {
		contextID = "global"
	}
	return fmt.Sprintf("%sallowance:%s:%s:%s", s.keyPrefix, userID, contextID, t.Format("2006-01-02"))
}

func (s *Store) tokenKey(token string) string {
	return s.keyPrefix + "allowance:req:" + token
}

// Used returns the credits consumed today for (userID, contextID).
// A missing counter reads as 0.
func (s *Store) Used(ctx context.Context, userID, contextID string) (int64, error) {
	key := s.counterKey(userID, contextID, time.Now().UTC())
	data, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("allowance GET %s: %w", key, err)
	}

	val, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("allowance GET %s parse: %w", key, err)
	}
	return val, nil
}

// Spend increments today's counter by cost and returns the new total.
// token is the per-request idempotency key: a duplicate submit (retry, second
// tab) loses the SETNX race and the increment is discarded.
func (s *Store) Spend(ctx context.Context, userID, contextID string, cost int64, token string) (int64, error) {
	won, err := s.store.SetNX(ctx, s.tokenKey(token), []byte("1"), s.ttl)
	if err != nil {
		return 0, fmt.Errorf("allowance token %s: %w", token, err)
	}
	if !won {
		// Already counted for this request.
		return s.Used(ctx, userID, contextID)
	}

	key := s.counterKey(userID, contextID, time.Now().UTC())
	total, err := s.store.IncrBy(ctx, key, cost)
	if err != nil {
		return 0, fmt.Errorf("allowance INCRBY %s: %w", key, err)
	}

	// Set TTL only if the key has no expiry yet (NX — not reset on repeat).
	if err := s.store.Expire(ctx, key, s.ttl, true); err != nil {
		// The increment landed but the spend is being reported as failed:
		// roll both the counter and the token back so the user is not left
		// charged without a confirmed grant. Best effort — a failure here
		// leaves an over-count that expires with the key.
		_, _ = s.store.IncrBy(ctx, key, -cost)
		_ = s.store.Del(ctx, s.tokenKey(token))
		return 0, fmt.Errorf("allowance EXPIRE %s: %w", key, err)
	}

	return total, nil
}
