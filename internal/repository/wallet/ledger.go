package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/nexusacademy/creditguard/internal/db"
	"github.com/nexusacademy/creditguard/internal/domain"
	"github.com/nexusacademy/creditguard/internal/locks"
)

// store is the consumer interface for wallet persistence (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	IncrBy(ctx context.Context, key string, val int64) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
}

// Ledger owns the paid balance and the account-wide daily free-credit pool.
// Debit is the only mutation path for consumption; every spend is journaled
// with a balance snapshot.
//
// Each debit is an atomic read-compare-subtract-write under a per-user lock,
// so two concurrent invocations cannot both observe a sufficient balance and
// drive it negative. A successful charge is cached under the request token:
// a retry after a timeout replays the recorded outcome instead of charging
// twice. Blocked outcomes are recomputed, which lets the same token carry a
// request through the confirm-then-force round trip.
type Ledger struct {
	store      store
	keyPrefix  string
	freeDaily  int64 // account-wide free pool per day, 0 = none
	counterTTL time.Duration
	outcomeTTL time.Duration
	userLocks  *locks.Keyed
	clock      func() time.Time
}

// New creates a ledger over the given store.
func New(s store, keyPrefix string, freeDaily int64, counterTTL, outcomeTTL time.Duration) *Ledger {
	return &Ledger{
		store:      s,
		keyPrefix:  keyPrefix,
		freeDaily:  freeDaily,
		counterTTL: counterTTL,
		outcomeTTL: outcomeTTL,
		userLocks:  locks.NewKeyed(),
		clock:      time.Now,
	}
}

// WithClock overrides the time source (tests).
func (l *Ledger) WithClock(clock func() time.Time) *Ledger {
	l.clock = clock
	return l
}

func (l *Ledger) walletKey(userID string) string {
	return l.keyPrefix + "wallet:" + userID
}

func (l *Ledger) freePoolKey(userID string, t time.Time) string {
	return fmt.Sprintf("%swallet:free:%s:%s", l.keyPrefix, userID, t.Format("2006-01-02"))
}

func (l *Ledger) outcomeKey(token string) string {
	return l.keyPrefix + "wallet:tx:" + token
}

func (l *Ledger) journalKey(userID, entryID string) string {
	return fmt.Sprintf("%sjournal:%s:%s", l.keyPrefix, userID, entryID)
}

// Debit runs one charge attempt. See domain.DebitRequest for semantics of
// ForceWallet and Token.
func (l *Ledger) Debit(ctx context.Context, req domain.DebitRequest) (domain.DebitOutcome, error) {
	if req.Cost < 0 {
		return domain.DebitOutcome{}, domain.ErrInvalidAmount
	}

	if req.Token != "" {
		if cached, ok, err := l.cachedOutcome(ctx, req.Token); err != nil {
			return domain.DebitOutcome{}, err
		} else if ok {
			return cached, nil
		}
	}

	unlock := l.userLocks.Lock(req.UserID)
	defer unlock()

	outcome, err := l.debitLocked(ctx, req)
	if err != nil {
		return domain.DebitOutcome{}, err
	}

	// Only outcomes that charged are recorded. A blocked attempt mutates
	// nothing, and the same token may legitimately come back forced after
	// the user confirms; caching the refusal would shadow that debit.
	if req.Token != "" && outcome.Success {
		if err := l.rememberOutcome(ctx, req.Token, outcome); err != nil {
			return domain.DebitOutcome{}, err
		}
	}
	return outcome, nil
}

func (l *Ledger) debitLocked(ctx context.Context, req domain.DebitRequest) (domain.DebitOutcome, error) {
	balance, err := l.Balance(ctx, req.UserID)
	if err != nil {
		return domain.DebitOutcome{}, err
	}

	if !req.ForceWallet {
		granted, err := l.tryFreePool(ctx, req)
		if err != nil {
			return domain.DebitOutcome{}, err
		}
		if granted {
			if err := l.journal(ctx, req, domain.SourceFreeGlobal, balance); err != nil {
				return domain.DebitOutcome{}, err
			}
			return domain.DebitOutcome{
				Success:    true,
				Message:    "covered by daily free credits",
				Source:     domain.SourceFreeGlobal,
				NewBalance: balance,
			}, nil
		}

		// Free pool exhausted. Report whether a confirmed wallet spend could
		// still succeed, so the caller can skip a pointless confirmation.
		if balance >= req.Cost {
			return domain.DebitOutcome{
				Code:       domain.CodeDailyLimitExceeded,
				Message:    "daily free credits exhausted",
				NewBalance: balance,
			}, nil
		}
		return domain.DebitOutcome{
			Code:       domain.CodeInsufficientFunds,
			Message:    "daily free credits exhausted and wallet balance too low",
			NewBalance: balance,
		}, nil
	}

	if balance < req.Cost {
		return domain.DebitOutcome{
			Code:       domain.CodeInsufficientFunds,
			Message:    "insufficient wallet balance",
			NewBalance: balance,
		}, nil
	}

	newBalance := balance - req.Cost
	if err := l.writeBalance(ctx, req.UserID, newBalance); err != nil {
		return domain.DebitOutcome{}, err
	}
	if err := l.journal(ctx, req, domain.SourceWallet, newBalance); err != nil {
		return domain.DebitOutcome{}, err
	}

	return domain.DebitOutcome{
		Success:    true,
		Message:    "debited from wallet",
		Source:     domain.SourceWallet,
		NewBalance: newBalance,
	}, nil
}

// tryFreePool charges the daily free pool. Returns true when the pool
// covered the cost. Checked-then-incremented under the user lock.
func (l *Ledger) tryFreePool(ctx context.Context, req domain.DebitRequest) (bool, error) {
	if l.freeDaily <= 0 {
		return false, nil
	}

	key := l.freePoolKey(req.UserID, l.clock().UTC())
	used, err := l.readCounter(ctx, key)
	if err != nil {
		return false, err
	}
	if used+req.Cost > l.freeDaily {
		return false, nil
	}

	if _, err := l.store.IncrBy(ctx, key, req.Cost); err != nil {
		return false, fmt.Errorf("free pool INCRBY %s: %w", key, err)
	}
	if err := l.store.Expire(ctx, key, l.counterTTL, true); err != nil {
		return false, fmt.Errorf("free pool EXPIRE %s: %w", key, err)
	}
	return true, nil
}

// Credit adds amount to the paid balance (recharge, admin grant).
func (l *Ledger) Credit(ctx context.Context, userID string, amount int64, narrative string) (int64, error) {
	if amount <= 0 {
		return 0, domain.ErrInvalidAmount
	}

	unlock := l.userLocks.Lock(userID)
	defer unlock()

	balance, err := l.Balance(ctx, userID)
	if err != nil {
		return 0, err
	}
	newBalance := balance + amount
	if err := l.writeBalance(ctx, userID, newBalance); err != nil {
		return 0, err
	}

	entry := domain.JournalEntry{
		ID:        uuid.NewString(),
		UserID:    userID,
		Amount:    amount,
		Narrative: narrative,
		Balance:   newBalance,
		Timestamp: l.clock().UTC(),
	}
	if err := l.writeJournal(ctx, entry); err != nil {
		return 0, err
	}
	return newBalance, nil
}

// Balance returns the current paid balance. Unknown users read as 0.
func (l *Ledger) Balance(ctx context.Context, userID string) (int64, error) {
	fields, err := l.store.HGetAll(ctx, l.walletKey(userID))
	if err != nil {
		return 0, fmt.Errorf("wallet HGETALL %s: %w", userID, err)
	}
	raw, ok := fields["balance"]
	if !ok {
		return 0, nil
	}
	balance, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("wallet balance %s parse: %w", userID, err)
	}
	return balance, nil
}

// FreePoolUsed returns today's consumption from the account-wide free pool.
func (l *Ledger) FreePoolUsed(ctx context.Context, userID string) (int64, error) {
	return l.readCounter(ctx, l.freePoolKey(userID, l.clock().UTC()))
}

// FreePoolLimit returns the configured daily free-credit pool size.
func (l *Ledger) FreePoolLimit() int64 { return l.freeDaily }

func (l *Ledger) writeBalance(ctx context.Context, userID string, balance int64) error {
	fields := map[string]string{"balance": strconv.FormatInt(balance, 10)}
	if err := l.store.HSet(ctx, l.walletKey(userID), fields); err != nil {
		return fmt.Errorf("wallet HSET %s: %w", userID, err)
	}
	return nil
}

func (l *Ledger) readCounter(ctx context.Context, key string) (int64, error) {
	data, err := l.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("wallet GET %s: %w", key, err)
	}
	val, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("wallet GET %s parse: %w", key, err)
	}
	return val, nil
}

func (l *Ledger) cachedOutcome(ctx context.Context, token string) (domain.DebitOutcome, bool, error) {
	data, err := l.store.Get(ctx, l.outcomeKey(token))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domain.DebitOutcome{}, false, nil
		}
		return domain.DebitOutcome{}, false, fmt.Errorf("debit token %s: %w", token, err)
	}

	var outcome domain.DebitOutcome
	if err := json.Unmarshal(data, &outcome); err != nil {
		return domain.DebitOutcome{}, false, fmt.Errorf("debit token %s decode: %w", token, err)
	}
	return outcome, true, nil
}

func (l *Ledger) rememberOutcome(ctx context.Context, token string, outcome domain.DebitOutcome) error {
	data, err := json.Marshal(outcome)
	if err != nil {
		return fmt.Errorf("debit token %s encode: %w", token, err)
	}
	if err := l.store.SetWithTTL(ctx, l.outcomeKey(token), data, l.outcomeTTL); err != nil {
		return fmt.Errorf("debit token %s store: %w", token, err)
	}
	return nil
}

func (l *Ledger) journal(ctx context.Context, req domain.DebitRequest, source domain.Source, balance int64) error {
	entry := domain.JournalEntry{
		ID:        uuid.NewString(),
		UserID:    req.UserID,
		ToolID:    req.ToolID,
		Amount:    -req.Cost,
		Narrative: req.Narrative,
		Source:    source,
		Balance:   balance,
		Timestamp: l.clock().UTC(),
	}
	return l.writeJournal(ctx, entry)
}

func (l *Ledger) writeJournal(ctx context.Context, e domain.JournalEntry) error {
	fields := map[string]string{
		"user_id":   e.UserID,
		"tool_id":   e.ToolID,
		"amount":    strconv.FormatInt(e.Amount, 10),
		"narrative": e.Narrative,
		"source":    string(e.Source),
		"balance":   strconv.FormatInt(e.Balance, 10),
		"ts":        strconv.FormatInt(e.Timestamp.UnixMilli(), 10),
	}
	if err := l.store.HSet(ctx, l.journalKey(e.UserID, e.ID), fields); err != nil {
		return fmt.Errorf("journal HSET %s: %w", e.ID, err)
	}
	return nil
}
