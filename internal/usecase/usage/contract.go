package usage

import "context"

// AllowanceReader reads today's context allowance consumption.
type AllowanceReader interface {
	Used(ctx context.Context, userID, contextID string) (int64, error)
}

// WalletReader reads balance and free-pool state from the ledger.
type WalletReader interface {
	Balance(ctx context.Context, userID string) (int64, error)
	FreePoolUsed(ctx context.Context, userID string) (int64, error)
	FreePoolLimit() int64
}

// AccessReader reads the remaining access-day bank without consuming a day.
type AccessReader interface {
	Remaining(ctx context.Context, userID string) (int64, error)
}
