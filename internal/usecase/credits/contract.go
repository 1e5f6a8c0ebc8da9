package credits

import (
	"context"

	"github.com/nexusacademy/creditguard/internal/domain"
)

// Ledger is the wallet operations the credits service needs.
type Ledger interface {
	Credit(ctx context.Context, userID string, amount int64, narrative string) (int64, error)
	Journal(ctx context.Context, userID string, limit int) ([]domain.JournalEntry, error)
}

// AccessGrantor extends a user's prepaid access-day bank.
type AccessGrantor interface {
	Grant(ctx context.Context, userID string, days int64) (int64, error)
}
