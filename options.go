package creditguard

import (
	"time"

	"go.uber.org/zap"
)

// Option configures the Client.
type Option func(*clientConfig)

// ContextPolicy grants a tool a context-scoped daily free allowance.
type ContextPolicy struct {
	ContextID  string // "" scopes the allowance to the whole account
	DailyLimit int64
}

type clientConfig struct {
	driver   string // "valkey" or "redis"
	addrs    []string
	password string

	keyPrefix        string
	trialAccessDays  int64
	dailyFreeCredits int64
	counterTTL       time.Duration
	outcomeTTL       time.Duration
	policies         map[string]ContextPolicy
	seed             map[string]int64

	confirmer Confirmer
	recharge  RechargeNotifier
	profiles  ProfileRefresher
	logger    *zap.Logger
}

// WithValkey configures the client to connect to a Valkey instance.
func WithValkey(addr, password string) Option {
	return func(c *clientConfig) {
		c.driver = "valkey"
		c.addrs = []string{addr}
		c.password = password
	}
}

// WithRedis configures the client to connect to a Redis instance.
func WithRedis(addr, password string) Option {
	return func(c *clientConfig) {
		c.driver = "redis"
		c.addrs = []string{addr}
		c.password = password
	}
}

// WithKeyPrefix sets the key namespace for all stored state.
// Default: "creditguard:".
func WithKeyPrefix(prefix string) Option {
	return func(c *clientConfig) {
		c.keyPrefix = prefix
	}
}

// WithTrialAccessDays sets the access-day bank granted to first-seen users.
// Default: 30.
func WithTrialAccessDays(days int64) Option {
	return func(c *clientConfig) {
		c.trialAccessDays = days
	}
}

// WithDailyFreeCredits sets the account-wide daily free pool.
// Default: 0 (no pool; every priced call needs allowance or wallet).
func WithDailyFreeCredits(credits int64) Option {
	return func(c *clientConfig) {
		c.dailyFreeCredits = credits
	}
}

// WithContextPolicy grants toolID a daily free allowance before the wallet
// is consulted. May be repeated for multiple tools.
func WithContextPolicy(toolID string, policy ContextPolicy) Option {
	return func(c *clientConfig) {
		if c.policies == nil {
			c.policies = make(map[string]ContextPolicy)
		}
		c.policies[toolID] = policy
	}
}

// WithCatalogSeed writes the given tool costs on startup if the catalog is
// empty.
func WithCatalogSeed(seed map[string]int64) Option {
	return func(c *clientConfig) {
		c.seed = seed
	}
}

// WithTTLs overrides retention of daily counters and debit idempotency
// outcomes. Defaults: 48h and 24h.
func WithTTLs(counter, outcome time.Duration) Option {
	return func(c *clientConfig) {
		c.counterTTL = counter
		c.outcomeTTL = outcome
	}
}

// WithConfirmer sets the wallet-spend confirmation handler. Without one,
// blocked consumptions ask the caller to resubmit with WithApproval.
func WithConfirmer(conf Confirmer) Option {
	return func(c *clientConfig) {
		c.confirmer = conf
	}
}

// WithRechargeNotifier sets the handler invoked when a consumption fails on
// an empty wallet.
func WithRechargeNotifier(r RechargeNotifier) Option {
	return func(c *clientConfig) {
		c.recharge = r
	}
}

// WithProfileRefresher sets the handler invoked after successful paid
// consumptions.
func WithProfileRefresher(p ProfileRefresher) Option {
	return func(c *clientConfig) {
		c.profiles = p
	}
}

// WithLogger enables structured logging for client operations.
// Default: no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *clientConfig) {
		c.logger = l
	}
}
