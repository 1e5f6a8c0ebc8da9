package guard

import (
	"context"

	"github.com/nexusacademy/creditguard/internal/domain"
)

// ApprovalConfirmer resolves the wallet-spend confirmation from a decision
// carried in the request context. When no decision is present it reports
// ErrConfirmationUnavailable, which the guard turns into a
// DAILY_LIMIT_EXCEEDED result asking the caller to resubmit with a decision
// — the two-phase confirmation used by the HTTP transport.
type ApprovalConfirmer struct{}

// ConfirmWalletSpend implements Confirmer.
func (ApprovalConfirmer) ConfirmWalletSpend(ctx context.Context, _ domain.SpendQuote) (bool, error) {
	approved, ok := domain.ApprovalFromContext(ctx)
	if !ok {
		return false, domain.ErrConfirmationUnavailable
	}
	return approved, nil
}

// ConfirmFunc adapts a function to the Confirmer port.
type ConfirmFunc func(ctx context.Context, quote domain.SpendQuote) (bool, error)

// ConfirmWalletSpend implements Confirmer.
func (f ConfirmFunc) ConfirmWalletSpend(ctx context.Context, quote domain.SpendQuote) (bool, error) {
	return f(ctx, quote)
}
