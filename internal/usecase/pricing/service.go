package pricing

import (
	"context"
	"sync"

	"github.com/nexusacademy/creditguard/internal/domain"
)

// ContextPolicy is the configured default allowance for a tool.
type ContextPolicy struct {
	ContextID  string
	DailyLimit int64
}

// Service resolves the effective cost, daily limit and context for one
// invocation. The catalog is fetched once per service lifetime and treated
// as immutable afterwards.
type Service struct {
	catalog  CatalogReader
	policies map[string]ContextPolicy

	mu    sync.Mutex
	costs map[string]int64 // nil until first successful load
}

// New creates a cost resolver. policies may be nil (no Tier A defaults).
func New(catalog CatalogReader, policies map[string]ContextPolicy) *Service {
	return &Service{catalog: catalog, policies: policies}
}

// Resolve produces the effective pricing for toolID.
//
// Precedence per field: override value, then configured policy, then zero.
// An override that sets only Cost deliberately leaves DailyLimit at 0 (Tier
// A skipped) — an explicit caller price opts out of the free allowance
// unless the caller also supplies a limit.
// Unknown tools resolve to cost 0: unlisted tools are free by policy.
func (s *Service) Resolve(ctx context.Context, toolID string, ov *domain.Override) (domain.Resolution, error) {
	policy := s.policies[toolID]

	res := domain.Resolution{
		DailyLimit: policy.DailyLimit,
		ContextID:  policy.ContextID,
	}

	if ov != nil && ov.Cost != nil {
		res.Cost = *ov.Cost
		res.DailyLimit = 0
	} else {
		cost, err := s.lookupCost(ctx, toolID)
		if err != nil {
			return domain.Resolution{}, err
		}
		res.Cost = cost
	}

	if ov != nil {
		if ov.DailyLimit > 0 {
			res.DailyLimit = ov.DailyLimit
		}
		if ov.ContextID != "" {
			res.ContextID = ov.ContextID
		}
	}

	if res.Cost < 0 {
		return domain.Resolution{}, domain.ErrInvalidAmount
	}
	return res, nil
}

// Costs lists the published per-task prices. Reads go straight to the
// catalog so admin upserts show up without a service restart.
func (s *Service) Costs(ctx context.Context) ([]domain.ToolCost, error) {
	return s.catalog.List(ctx)
}

// UpsertCost publishes a new per-task price and drops the cached cost map so
// the next Resolve sees it. Fails when the catalog is read-only.
func (s *Service) UpsertCost(ctx context.Context, tc domain.ToolCost) error {
	writer, ok := s.catalog.(CatalogWriter)
	if !ok {
		return domain.ErrCatalogReadOnly
	}
	if tc.CostPerTask < 0 {
		return domain.ErrInvalidAmount
	}
	if err := writer.Upsert(ctx, tc); err != nil {
		return err
	}

	s.mu.Lock()
	s.costs = nil
	s.mu.Unlock()
	return nil
}

func (s *Service) lookupCost(ctx context.Context, toolID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.costs == nil {
		list, err := s.catalog.List(ctx)
		if err != nil {
			return 0, err
		}
		costs := make(map[string]int64, len(list))
		for _, tc := range list {
			costs[tc.ToolID] = tc.CostPerTask
		}
		s.costs = costs
	}

	// Unknown tool id: cost 0, fail-open for unlisted/free tools.
	return s.costs[toolID], nil
}
