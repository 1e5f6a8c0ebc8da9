package domain

import "time"

// DebitRequest is one charge attempt against the ledger.
// Token is a caller-generated idempotency key: retrying a timed-out debit
// with the same token replays the recorded outcome instead of charging twice.
type DebitRequest struct {
	UserID      string
	ToolID      string
	Cost        int64
	Narrative   string
	ForceWallet bool
	Token       string
}

// DebitOutcome is the ledger's answer to a debit attempt.
type DebitOutcome struct {
	Success    bool   `json:"success"`
	Message    string `json:"message,omitempty"`
	Code       Code   `json:"code,omitempty"`
	Source     Source `json:"source,omitempty"`
	NewBalance int64  `json:"new_balance"`
}

// JournalEntry records one wallet movement. Balance is the snapshot after
// the movement, the same shape a double-entry ledger row carries.
type JournalEntry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ToolID    string    `json:"tool_id,omitempty"`
	Amount    int64     `json:"amount"` // negative for debits
	Narrative string    `json:"narrative,omitempty"`
	Source    Source    `json:"source,omitempty"`
	Balance   int64     `json:"balance"`
	Timestamp time.Time `json:"timestamp"`
}
