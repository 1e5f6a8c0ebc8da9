package allowance

import (
	"context"

	"github.com/nexusacademy/creditguard/internal/domain"
)

// AccessChecker gates the free tiers on the user's access day.
type AccessChecker interface {
	CheckDailyAccess(ctx context.Context, userID string) (domain.AccessStatus, error)
}

// CounterStore persists the per-context daily counters.
type CounterStore interface {
	Used(ctx context.Context, userID, contextID string) (int64, error)
	Spend(ctx context.Context, userID, contextID string, cost int64, token string) (int64, error)
}
