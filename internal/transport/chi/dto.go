package chi

// Error codes returned in errorResponse bodies, alongside the guard's own
// decision codes.
const (
	codeBadRequest    = "BAD_REQUEST"
	codeUnauthorized  = "UNAUTHORIZED"
	codeUserNotFound  = "USER_NOT_FOUND"
	codeInvalidAmount = "INVALID_AMOUNT"
	codeInternalError = "INTERNAL_ERROR"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type consumeRequest struct {
	UserID             string `json:"user_id"`
	ToolID             string `json:"tool_id"`
	Narrative          string `json:"narrative,omitempty"`
	Cost               *int64 `json:"cost,omitempty"`
	DailyLimit         int64  `json:"daily_limit,omitempty"`
	ContextID          string `json:"context_id,omitempty"`
	ApproveWalletSpend *bool  `json:"approve_wallet_spend,omitempty"`

	// IdempotencyToken deduplicates retries: a resubmit with the same token
	// replays the recorded charge instead of charging again.
	IdempotencyToken string `json:"idempotency_token,omitempty"`
}

type consumeResponse struct {
	Success              bool   `json:"success"`
	Message              string `json:"message,omitempty"`
	Code                 string `json:"code,omitempty"`
	Source               string `json:"source,omitempty"`
	RequiresConfirmation bool   `json:"requires_confirmation,omitempty"`
}

type toolCostItem struct {
	ToolID      string `json:"tool_id"`
	CostPerTask int64  `json:"cost_per_task"`
}

type costsResponse struct {
	Items []toolCostItem `json:"items"`
}

type usageResponse struct {
	UserID         string `json:"user_id"`
	Day            string `json:"day"`
	ContextID      string `json:"context_id,omitempty"`
	ContextUsed    int64  `json:"context_used"`
	FreePoolUsed   int64  `json:"free_pool_used"`
	FreePoolLimit  int64  `json:"free_pool_limit"`
	WalletBalance  int64  `json:"wallet_balance"`
	AccessDaysLeft int64  `json:"access_days_left"`
}

type grantRequest struct {
	Amount     int64  `json:"amount,omitempty"`
	AccessDays int64  `json:"access_days,omitempty"`
	Narrative  string `json:"narrative,omitempty"`
}

type grantResponse struct {
	Balance        int64 `json:"balance"`
	AccessDaysBank int64 `json:"access_days_bank,omitempty"`
}

type journalEntryItem struct {
	ID        string `json:"id"`
	ToolID    string `json:"tool_id,omitempty"`
	Amount    int64  `json:"amount"`
	Narrative string `json:"narrative,omitempty"`
	Source    string `json:"source"`
	Balance   int64  `json:"balance"`
	Timestamp int64  `json:"timestamp"`
}

type journalResponse struct {
	Entries []journalEntryItem `json:"entries"`
}

type upsertCostRequest struct {
	ToolID      string `json:"tool_id"`
	CostPerTask int64  `json:"cost_per_task"`
}
