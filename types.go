package creditguard

import (
	"context"
	"time"

	"github.com/nexusacademy/creditguard/internal/domain"
)

// Source identifies which tier covered a consumption.
type Source string

const (
	// SourceFreeContext is the context-scoped daily allowance.
	SourceFreeContext Source = "free_context"
	// SourceFreeGlobal is the account-wide daily free pool.
	SourceFreeGlobal Source = "free_global"
	// SourceWallet is a paid wallet debit.
	SourceWallet Source = "wallet"
)

// Code classifies a blocked or failed consumption.
type Code string

const (
	CodeUserNotIdentified  Code = "USER_NOT_IDENTIFIED"
	CodeDailyLimitExceeded Code = "DAILY_LIMIT_EXCEEDED"
	CodeInsufficientFunds  Code = "INSUFFICIENT_FUNDS_WALLET"
	CodeUserDeclined       Code = "USER_DECLINED"
	CodeInternalError      Code = "INTERNAL_ERROR"
)

// Request describes one metered invocation.
type Request struct {
	UserID    string
	ToolID    string
	Narrative string

	// Cost overrides the catalog price when non-nil. An explicit price
	// skips the context allowance unless DailyLimit is also set.
	Cost       *int64
	DailyLimit int64
	ContextID  string

	// Token is an optional idempotency key. Resubmitting with the same
	// token (a retry after a timeout, a second tab) replays the recorded
	// charge instead of charging again.
	Token string

	// OnInsufficientFunds replaces the client-level recharge notifier for
	// this request.
	OnInsufficientFunds func(ctx context.Context)
}

// Result is the guard's decision for one invocation.
type Result struct {
	Success bool
	Message string
	Code    Code
	Source  Source
}

// Quote describes a pending wallet spend awaiting confirmation.
type Quote struct {
	UserID    string
	ToolID    string
	Cost      int64
	Narrative string
}

// ToolCost is one catalog row.
type ToolCost struct {
	ToolID      string
	CostPerTask int64
}

// UsageReport is a user's consumption snapshot for today.
type UsageReport struct {
	UserID         string
	Day            string
	ContextID      string
	ContextUsed    int64
	FreePoolUsed   int64
	FreePoolLimit  int64
	WalletBalance  int64
	AccessDaysLeft int64
}

// JournalEntry is one wallet movement, newest first in listings.
type JournalEntry struct {
	ID        string
	ToolID    string
	Amount    int64
	Narrative string
	Source    Source
	Balance   int64
	Timestamp time.Time
}

// Confirmer resolves the "spend from wallet?" question for invocations that
// exhausted their free tiers.
type Confirmer interface {
	ConfirmWalletSpend(ctx context.Context, quote Quote) (bool, error)
}

// RechargeNotifier is invoked after a consumption fails on an empty wallet.
type RechargeNotifier interface {
	PromptRecharge(ctx context.Context, userID string, missing int64)
}

// ProfileRefresher is invoked after a successful paid or pooled consumption
// so cached balance views can be updated.
type ProfileRefresher interface {
	RefreshUserProfile(ctx context.Context, userID string) error
}

// WithApproval attaches a wallet-spend decision to ctx. Clients that use the
// default confirmation flow resubmit a blocked consumption with the
// decision attached.
func WithApproval(ctx context.Context, approved bool) context.Context {
	return domain.ContextWithApproval(ctx, approved)
}

func requestToDomain(req Request) domain.ConsumptionRequest {
	out := domain.ConsumptionRequest{
		UserID:              req.UserID,
		ToolID:              req.ToolID,
		Narrative:           req.Narrative,
		Token:               req.Token,
		OnInsufficientFunds: req.OnInsufficientFunds,
	}
	if req.Cost != nil || req.DailyLimit > 0 || req.ContextID != "" {
		out.Override = &domain.Override{
			Cost:       req.Cost,
			DailyLimit: req.DailyLimit,
			ContextID:  req.ContextID,
		}
	}
	return out
}

func resultFromDomain(r domain.ConsumptionResult) Result {
	return Result{
		Success: r.Success,
		Message: r.Message,
		Code:    Code(r.Code),
		Source:  Source(r.Source),
	}
}

func journalFromDomain(entries []domain.JournalEntry) []JournalEntry {
	out := make([]JournalEntry, len(entries))
	for i, e := range entries {
		out[i] = JournalEntry{
			ID:        e.ID,
			ToolID:    e.ToolID,
			Amount:    e.Amount,
			Narrative: e.Narrative,
			Source:    Source(e.Source),
			Balance:   e.Balance,
			Timestamp: e.Timestamp,
		}
	}
	return out
}

// confirmerAdapter wraps a public Confirmer to satisfy the internal port.
type confirmerAdapter struct {
	inner Confirmer
}

func (a *confirmerAdapter) ConfirmWalletSpend(ctx context.Context, quote domain.SpendQuote) (bool, error) {
	return a.inner.ConfirmWalletSpend(ctx, Quote{
		UserID:    quote.UserID,
		ToolID:    quote.ToolID,
		Cost:      quote.Cost,
		Narrative: quote.Narrative,
	})
}
