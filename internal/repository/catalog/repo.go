package catalog

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/nexusacademy/creditguard/internal/domain"
)

// store is the consumer interface for catalog persistence (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Exists(ctx context.Context, key string) (bool, error)
}

// Repo persists the tool-cost catalog as a single hash: tool id -> cost.
type Repo struct {
	store     store
	keyPrefix string
}

// New creates a catalog repository.
func New(s store, keyPrefix string) *Repo {
	return &Repo{store: s, keyPrefix: keyPrefix}
}

func (r *Repo) key() string {
	return r.keyPrefix + "catalog:tools"
}

// Seed writes the configured costs unless a catalog already exists.
// An operator-edited catalog survives restarts.
func (r *Repo) Seed(ctx context.Context, costs map[string]int64) error {
	if len(costs) == 0 {
		return nil
	}

	exists, err := r.store.Exists(ctx, r.key())
	if err != nil {
		return fmt.Errorf("catalog exists check: %w", err)
	}
	if exists {
		return nil
	}

	fields := make(map[string]string, len(costs))
	for toolID, cost := range costs {
		fields[toolID] = strconv.FormatInt(cost, 10)
	}
	if err := r.store.HSet(ctx, r.key(), fields); err != nil {
		return fmt.Errorf("catalog seed: %w", err)
	}
	return nil
}

// Upsert sets the cost for a single tool.
func (r *Repo) Upsert(ctx context.Context, tc domain.ToolCost) error {
	if tc.CostPerTask < 0 {
		return domain.ErrInvalidAmount
	}
	fields := map[string]string{tc.ToolID: strconv.FormatInt(tc.CostPerTask, 10)}
	if err := r.store.HSet(ctx, r.key(), fields); err != nil {
		return fmt.Errorf("catalog upsert %s: %w", tc.ToolID, err)
	}
	return nil
}

// List returns the catalog sorted by tool id.
func (r *Repo) List(ctx context.Context) ([]domain.ToolCost, error) {
	m, err := r.store.HGetAll(ctx, r.key())
	if err != nil {
		return nil, fmt.Errorf("catalog list: %w", err)
	}

	out := make([]domain.ToolCost, 0, len(m))
	for toolID, raw := range m {
		cost, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("catalog entry %s parse: %w", toolID, err)
		}
		out = append(out, domain.ToolCost{ToolID: toolID, CostPerTask: cost})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ToolID < out[j].ToolID })
	return out, nil
}
