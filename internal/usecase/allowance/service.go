package allowance

import (
	"context"

	"go.uber.org/zap"

	"github.com/nexusacademy/creditguard/internal/domain"
)

// Service is the Tier A tracker: a context-scoped daily free allowance,
// consulted only while the user's access day is valid.
//
// The counter is an optimistic hint, not an enforcement point: the check and
// the increment are separate store round-trips, so a pathological race can
// overshoot the limit by one request. The ledger's account-wide pool is the
// authoritative backstop.
type Service struct {
	access   AccessChecker
	counters CounterStore
	logger   *zap.Logger
}

// New creates a Tier A tracker.
func New(access AccessChecker, counters CounterStore, logger *zap.Logger) *Service {
	return &Service{access: access, counters: counters, logger: logger}
}

// TrySpend attempts to cover cost from the (userID, contextID) allowance.
// token is the per-request idempotency key forwarded to the counter store.
func (s *Service) TrySpend(
	ctx context.Context,
	userID, contextID string,
	cost, dailyLimit int64,
	token string,
) (domain.AllowanceOutcome, error) {
	status, err := s.access.CheckDailyAccess(ctx, userID)
	if err != nil {
		return domain.AllowanceOutcome{}, err
	}
	if !status.Authorized {
		// Access day invalid: the counter must not be read or written.
		s.logger.Info("free allowance gated off",
			zap.String("user_id", userID),
			zap.String("reason", status.Message),
		)
		return domain.AllowanceOutcome{AccessAuthorized: false, Notice: status.Message}, nil
	}

	used, err := s.counters.Used(ctx, userID, contextID)
	if err != nil {
		return domain.AllowanceOutcome{}, err
	}

	if used+cost > dailyLimit {
		return domain.AllowanceOutcome{
			AccessAuthorized: true,
			Used:             used,
			Notice:           "daily free allowance exhausted",
		}, nil
	}

	total, err := s.counters.Spend(ctx, userID, contextID, cost, token)
	if err != nil {
		return domain.AllowanceOutcome{}, err
	}

	return domain.AllowanceOutcome{
		Granted:          true,
		AccessAuthorized: true,
		Used:             total,
	}, nil
}
