package domain

import "context"

// Source identifies which pocket satisfied a successful consumption.
type Source string

const (
	// SourceFreeContext — the context-scoped daily allowance (Tier A),
	// also used for zero-cost tools that bypass metering entirely.
	SourceFreeContext Source = "free_context"
	// SourceFreeGlobal — the account-wide daily free-credit pool (Tier B).
	SourceFreeGlobal Source = "free_global"
	// SourceWallet — the paid balance (Tier C).
	SourceWallet Source = "wallet"
)

// Code classifies guard outcomes that callers can act on.
type Code string

const (
	CodeUserNotIdentified  Code = "USER_NOT_IDENTIFIED"
	CodeDailyLimitExceeded Code = "DAILY_LIMIT_EXCEEDED"
	CodeInsufficientFunds  Code = "INSUFFICIENT_FUNDS_WALLET"
	CodeUserDeclined       Code = "USER_DECLINED"
	CodeInternalError      Code = "INTERNAL_ERROR"
)

// Override replaces catalog-derived pricing for a single invocation.
// Every field is optional; unset fields keep their defaults. This replaces
// the old "bare number or object" parameter with one explicit shape.
type Override struct {
	Cost       *int64 // nil: look up the catalog
	DailyLimit int64  // 0: Tier A skipped
	ContextID  string // "": global scope
}

// Resolution is the effective pricing for one invocation.
type Resolution struct {
	Cost       int64
	DailyLimit int64
	ContextID  string
}

// ConsumptionRequest describes one metered feature invocation.
type ConsumptionRequest struct {
	UserID    string
	ToolID    string
	Narrative string
	Override  *Override

	// Token is the caller's idempotency key for this logical invocation.
	// Resubmitting with the same token replays the recorded charge instead
	// of charging again. Empty: the guard mints one, so retries of that
	// invocation are not deduplicated.
	Token string

	// OnInsufficientFunds, when set, is invoked instead of the guard's
	// recharge notifier after a forced debit fails on balance.
	OnInsufficientFunds func(ctx context.Context)
}

// ConsumptionResult is the single outcome every guard invocation yields.
type ConsumptionResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Code    Code   `json:"code,omitempty"`
	Source  Source `json:"source,omitempty"`
}

// AllowanceOutcome is the daily allowance tracker's answer for one request.
type AllowanceOutcome struct {
	// Granted reports that the context allowance covered the cost.
	Granted bool
	// AccessAuthorized is false when the user's access day is not valid;
	// the counter is never consulted in that case.
	AccessAuthorized bool
	// Used is today's accumulated spend for the context after this request.
	Used int64
	// Notice carries a human-readable explanation for a non-granted outcome.
	Notice string
}

// SpendQuote is presented to the user when free tiers are exhausted and
// proceeding would charge the wallet.
type SpendQuote struct {
	UserID    string
	ToolID    string
	Cost      int64
	Narrative string
}
