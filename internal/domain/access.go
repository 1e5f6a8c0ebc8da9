package domain

// AccessStatus reports whether the user's flat access day is authorized.
// The first authorization of a new calendar day consumes one day from the
// user's prepaid bank; repeats within the same day are free.
type AccessStatus struct {
	Authorized    bool   `json:"authorized"`
	RemainingDays int64  `json:"remaining_days"`
	Message       string `json:"message,omitempty"`
}

// UsageReport summarizes a user's consumption state for dashboards.
type UsageReport struct {
	UserID         string `json:"user_id"`
	Day            string `json:"day"` // YYYY-MM-DD, UTC
	ContextID      string `json:"context_id,omitempty"`
	ContextUsed    int64  `json:"context_used"`
	FreePoolUsed   int64  `json:"free_pool_used"`
	FreePoolLimit  int64  `json:"free_pool_limit"`
	WalletBalance  int64  `json:"wallet_balance"`
	AccessDaysLeft int64  `json:"access_days_left"`
}
