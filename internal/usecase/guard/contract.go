package guard

import (
	"context"

	"github.com/nexusacademy/creditguard/internal/domain"
)

// CostResolver produces the effective pricing for an invocation.
type CostResolver interface {
	Resolve(ctx context.Context, toolID string, ov *domain.Override) (domain.Resolution, error)
}

// AllowanceTracker is the Tier A context-scoped daily allowance.
type AllowanceTracker interface {
	TrySpend(ctx context.Context, userID, contextID string, cost, dailyLimit int64, token string) (domain.AllowanceOutcome, error)
}

// Debitor is the external wallet ledger's debit operation. The guard never
// mutates the balance through any other path.
type Debitor interface {
	Debit(ctx context.Context, req domain.DebitRequest) (domain.DebitOutcome, error)
}

// Confirmer is the asynchronous confirmation port: it resolves the blocking
// "spend from wallet?" decision without a UI dialog in the loop.
type Confirmer interface {
	ConfirmWalletSpend(ctx context.Context, quote domain.SpendQuote) (bool, error)
}

// RechargeNotifier surfaces the recharge call-to-action after a failed
// forced debit when the request carries no OnInsufficientFunds callback.
type RechargeNotifier interface {
	PromptRecharge(ctx context.Context, userID string, missing int64)
}

// ProfileRefresher pulls the updated balance into the caller's cached view
// after a successful consumption.
type ProfileRefresher interface {
	RefreshUserProfile(ctx context.Context, userID string) error
}
