package creditguard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/nexusacademy/creditguard/internal/db"
	dbRedis "github.com/nexusacademy/creditguard/internal/db/redis"
	"github.com/nexusacademy/creditguard/internal/domain"
	accessdayrepo "github.com/nexusacademy/creditguard/internal/repository/accessday"
	allowancerepo "github.com/nexusacademy/creditguard/internal/repository/allowance"
	catalogrepo "github.com/nexusacademy/creditguard/internal/repository/catalog"
	walletrepo "github.com/nexusacademy/creditguard/internal/repository/wallet"
	allowanceuc "github.com/nexusacademy/creditguard/internal/usecase/allowance"
	creditsuc "github.com/nexusacademy/creditguard/internal/usecase/credits"
	guarduc "github.com/nexusacademy/creditguard/internal/usecase/guard"
	pricinguc "github.com/nexusacademy/creditguard/internal/usecase/pricing"
	usageuc "github.com/nexusacademy/creditguard/internal/usecase/usage"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	defaultKeyPrefix        = "creditguard:"
	defaultTrialAccessDays  = 30
	defaultCounterTTL       = 48 * time.Hour
	defaultOutcomeTTL       = 24 * time.Hour
)

// Client is the creditguard SDK entry point: an in-process consumption
// guard backed by Redis or Valkey.
type Client struct {
	store      db.Store
	guardSvc   *guarduc.Service
	pricingSvc *pricinguc.Service
	usageSvc   *usageuc.Service
	creditsSvc *creditsuc.Service
}

// New creates a creditguard Client and connects to the database.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		keyPrefix:       defaultKeyPrefix,
		trialAccessDays: defaultTrialAccessDays,
		counterTTL:      defaultCounterTTL,
		outcomeTTL:      defaultOutcomeTTL,
	}
	for _, o := range opts {
		o(cfg)
	}

	if len(cfg.addrs) == 0 {
		return nil, errors.New("creditguard: database address required (use WithValkey or WithRedis)")
	}

	store, err := createStore(cfg)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("creditguard: database not ready: %w", err)
	}

	client := wireClient(store, cfg)

	if len(cfg.seed) > 0 {
		if err := client.seedCatalog(ctx, store, cfg); err != nil {
			store.Close()
			return nil, err
		}
	}
	return client, nil
}

func createStore(cfg *clientConfig) (db.Store, error) {
	switch cfg.driver {
	case "valkey", "redis":
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.addrs,
			Password: cfg.password,
		})
		if err != nil {
			return nil, fmt.Errorf("creditguard: create %s store: %w", cfg.driver, err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("creditguard: unknown driver %q", cfg.driver)
	}
}

func wireClient(store db.Store, cfg *clientConfig) *Client {
	logger := cfg.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	catalogRepo := catalogrepo.New(store, cfg.keyPrefix)
	allowanceRepo := allowancerepo.New(store, cfg.keyPrefix, cfg.counterTTL)
	ledger := walletrepo.New(store, cfg.keyPrefix, cfg.dailyFreeCredits, cfg.counterTTL, cfg.outcomeTTL)
	accessRepo := accessdayrepo.New(store, cfg.keyPrefix, cfg.trialAccessDays)

	policies := make(map[string]pricinguc.ContextPolicy, len(cfg.policies))
	for toolID, p := range cfg.policies {
		policies[toolID] = pricinguc.ContextPolicy{ContextID: p.ContextID, DailyLimit: p.DailyLimit}
	}

	var confirmer guarduc.Confirmer = guarduc.ApprovalConfirmer{}
	if cfg.confirmer != nil {
		confirmer = &confirmerAdapter{inner: cfg.confirmer}
	}

	pricingSvc := pricinguc.New(catalogRepo, policies)
	allowanceSvc := allowanceuc.New(accessRepo, allowanceRepo, logger)
	guardSvc := guarduc.New(pricingSvc, allowanceSvc, ledger, confirmer, logger)
	if cfg.recharge != nil {
		guardSvc = guardSvc.WithRechargeNotifier(cfg.recharge)
	}
	if cfg.profiles != nil {
		guardSvc = guardSvc.WithProfileRefresher(cfg.profiles)
	}

	return &Client{
		store:      store,
		guardSvc:   guardSvc,
		pricingSvc: pricingSvc,
		usageSvc:   usageuc.New(allowanceRepo, ledger, accessRepo),
		creditsSvc: creditsuc.New(ledger, accessRepo, logger),
	}
}

func (c *Client) seedCatalog(ctx context.Context, store db.Store, cfg *clientConfig) error {
	repo := catalogrepo.New(store, cfg.keyPrefix)
	if err := repo.Seed(ctx, cfg.seed); err != nil {
		return fmt.Errorf("creditguard: seed catalog: %w", err)
	}
	return nil
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// CheckAndConsume runs the consumption guard for one invocation. It always
// returns a typed result; infrastructure failures surface as
// CodeInternalError, never as panics or errors.
func (c *Client) CheckAndConsume(ctx context.Context, req Request) Result {
	return resultFromDomain(c.guardSvc.CheckAndConsume(ctx, requestToDomain(req)))
}

// ToolCosts lists the published per-task prices.
func (c *Client) ToolCosts(ctx context.Context) ([]ToolCost, error) {
	costs, err := c.pricingSvc.Costs(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]ToolCost, len(costs))
	for i, tc := range costs {
		out[i] = ToolCost{ToolID: tc.ToolID, CostPerTask: tc.CostPerTask}
	}
	return out, nil
}

// UpsertToolCost publishes a per-task price.
func (c *Client) UpsertToolCost(ctx context.Context, tc ToolCost) error {
	return c.pricingSvc.UpsertCost(ctx, domain.ToolCost{
		ToolID:      tc.ToolID,
		CostPerTask: tc.CostPerTask,
	})
}

// Usage returns userID's consumption snapshot for today. contextID may be
// empty for the account-wide scope.
func (c *Client) Usage(ctx context.Context, userID, contextID string) (UsageReport, error) {
	report, err := c.usageSvc.GetReport(ctx, userID, contextID)
	if err != nil {
		return UsageReport{}, err
	}
	return UsageReport{
		UserID:         report.UserID,
		Day:            report.Day,
		ContextID:      report.ContextID,
		ContextUsed:    report.ContextUsed,
		FreePoolUsed:   report.FreePoolUsed,
		FreePoolLimit:  report.FreePoolLimit,
		WalletBalance:  report.WalletBalance,
		AccessDaysLeft: report.AccessDaysLeft,
	}, nil
}

// GrantCredits adds credits to userID's wallet and returns the new balance.
func (c *Client) GrantCredits(ctx context.Context, userID string, amount int64, narrative string) (int64, error) {
	return c.creditsSvc.Grant(ctx, userID, amount, narrative)
}

// GrantAccessDays extends userID's prepaid access-day bank.
func (c *Client) GrantAccessDays(ctx context.Context, userID string, days int64) (int64, error) {
	return c.creditsSvc.GrantAccessDays(ctx, userID, days)
}

// Journal returns userID's most recent wallet transactions, newest first.
func (c *Client) Journal(ctx context.Context, userID string, limit int) ([]JournalEntry, error) {
	entries, err := c.creditsSvc.Journal(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	return journalFromDomain(entries), nil
}
