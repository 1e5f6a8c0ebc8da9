package accessday

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/nexusacademy/creditguard/internal/domain"
	"github.com/nexusacademy/creditguard/internal/locks"
)

// store is the consumer interface for access-day persistence (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
}

// Store tracks each user's prepaid bank of access days. The first
// authorization of a new calendar day consumes one day from the bank;
// repeats within the same day are free. An empty bank means the free tiers
// may not be consulted at all.
type Store struct {
	store     store
	keyPrefix string
	trialDays int64 // granted to users seen for the first time
	userLocks *locks.Keyed
	clock     func() time.Time
}

// New creates an access-day store.
func New(s store, keyPrefix string, trialDays int64) *Store {
	return &Store{
		store:     s,
		keyPrefix: keyPrefix,
		trialDays: trialDays,
		userLocks: locks.NewKeyed(),
		clock:     time.Now,
	}
}

// WithClock overrides the time source (tests).
func (s *Store) WithClock(clock func() time.Time) *Store {
	s.clock = clock
	return s
}

func (s *Store) key(userID string) string {
	return s.keyPrefix + "access:" + userID
}

// CheckDailyAccess reports whether today's flat access is authorized,
// consuming one banked day on the first call of a new calendar day.
func (s *Store) CheckDailyAccess(ctx context.Context, userID string) (domain.AccessStatus, error) {
	unlock := s.userLocks.Lock(userID)
	defer unlock()

	bank, lastDay, err := s.read(ctx, userID)
	if err != nil {
		return domain.AccessStatus{}, err
	}

	today := s.clock().UTC().Format("2006-01-02")

	if bank > 0 && lastDay == today {
		// Access already granted for today, no decrement.
		return domain.AccessStatus{Authorized: true, RemainingDays: bank, Message: "access valid"}, nil
	}

	if bank > 0 {
		bank--
		if err := s.write(ctx, userID, bank, today); err != nil {
			return domain.AccessStatus{}, err
		}
		return domain.AccessStatus{Authorized: true, RemainingDays: bank, Message: "access day consumed"}, nil
	}

	return domain.AccessStatus{Authorized: false, RemainingDays: 0, Message: "access plan expired"}, nil
}

// Remaining returns the banked days without consuming one.
func (s *Store) Remaining(ctx context.Context, userID string) (int64, error) {
	unlock := s.userLocks.Lock(userID)
	defer unlock()

	bank, _, err := s.read(ctx, userID)
	if err != nil {
		return 0, err
	}
	return bank, nil
}

// Grant adds days to the user's bank (plan purchase, admin top-up).
func (s *Store) Grant(ctx context.Context, userID string, days int64) (int64, error) {
	if days <= 0 {
		return 0, domain.ErrInvalidAmount
	}

	unlock := s.userLocks.Lock(userID)
	defer unlock()

	bank, lastDay, err := s.read(ctx, userID)
	if err != nil {
		return 0, err
	}
	bank += days
	if err := s.write(ctx, userID, bank, lastDay); err != nil {
		return 0, err
	}
	return bank, nil
}

// read loads the user record, seeding the trial bank on first sight.
func (s *Store) read(ctx context.Context, userID string) (bank int64, lastDay string, err error) {
	fields, err := s.store.HGetAll(ctx, s.key(userID))
	if err != nil {
		return 0, "", fmt.Errorf("access HGETALL %s: %w", userID, err)
	}

	if len(fields) == 0 {
		return s.trialDays, "", nil
	}

	if raw, ok := fields["bank"]; ok {
		if v, perr := strconv.ParseInt(raw, 10, 64); perr == nil {
			bank = v
		} else {
			return 0, "", fmt.Errorf("access bank %s parse: %w", userID, perr)
		}
	}
	return bank, fields["last_access_date"], nil
}

func (s *Store) write(ctx context.Context, userID string, bank int64, lastDay string) error {
	fields := map[string]string{
		"bank":             strconv.FormatInt(bank, 10),
		"last_access_date": lastDay,
	}
	if err := s.store.HSet(ctx, s.key(userID), fields); err != nil {
		return fmt.Errorf("access HSET %s: %w", userID, err)
	}
	return nil
}
