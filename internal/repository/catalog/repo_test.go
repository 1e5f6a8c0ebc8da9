package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/nexusacademy/creditguard/internal/domain"
)

// mockStore implements the consumer interface over a single hash.
type mockStore struct {
	hashes  map[string]map[string]string
	hsetErr error
}

func newMockStore() *mockStore {
	return &mockStore{hashes: make(map[string]map[string]string)}
}

func (m *mockStore) HSet(_ context.Context, key string, fields map[string]string) error {
	if m.hsetErr != nil {
		return m.hsetErr
	}
	h, ok := m.hashes[key]
	if !ok {
		h = make(map[string]string)
		m.hashes[key] = h
	}
	for k, v := range fields {
		h[k] = v
	}
	return nil
}

func (m *mockStore) HGetAll(_ context.Context, key string) (map[string]string, error) {
	out := make(map[string]string, len(m.hashes[key]))
	for k, v := range m.hashes[key] {
		out[k] = v
	}
	return out, nil
}

func (m *mockStore) Exists(_ context.Context, key string) (bool, error) {
	_, ok := m.hashes[key]
	return ok, nil
}

func TestSeed_WritesWhenEmpty(t *testing.T) {
	ms := newMockStore()
	repo := New(ms, "test:")

	err := repo.Seed(context.Background(), map[string]int64{"chat": 5, "report": 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	list, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("list = %d entries, want 2", len(list))
	}
	// Sorted by tool id
	if list[0].ToolID != "chat" || list[0].CostPerTask != 5 {
		t.Errorf("first = %+v, want chat/5", list[0])
	}
	if list[1].ToolID != "report" || list[1].CostPerTask != 10 {
		t.Errorf("second = %+v, want report/10", list[1])
	}
}

func TestSeed_SkipsExistingCatalog(t *testing.T) {
	ms := newMockStore()
	repo := New(ms, "test:")

	if err := repo.Upsert(context.Background(), domain.ToolCost{ToolID: "chat", CostPerTask: 7}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := repo.Seed(context.Background(), map[string]int64{"chat": 5}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	list, _ := repo.List(context.Background())
	if len(list) != 1 || list[0].CostPerTask != 7 {
		t.Errorf("list = %+v, want operator value 7 preserved", list)
	}
}

func TestSeed_EmptyMap_NoWrite(t *testing.T) {
	ms := newMockStore()
	repo := New(ms, "test:")

	if err := repo.Seed(context.Background(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ms.hashes) != 0 {
		t.Error("empty seed must not create the catalog hash")
	}
}

func TestUpsert_NegativeCost(t *testing.T) {
	repo := New(newMockStore(), "test:")

	err := repo.Upsert(context.Background(), domain.ToolCost{ToolID: "chat", CostPerTask: -1})
	if !errors.Is(err, domain.ErrInvalidAmount) {
		t.Errorf("err = %v, want ErrInvalidAmount", err)
	}
}

func TestList_BadEntry(t *testing.T) {
	ms := newMockStore()
	ms.hashes["test:catalog:tools"] = map[string]string{"chat": "not-a-number"}
	repo := New(ms, "test:")

	if _, err := repo.List(context.Background()); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestUpsert_StoreError(t *testing.T) {
	ms := newMockStore()
	ms.hsetErr = errors.New("connection refused")
	repo := New(ms, "test:")

	if err := repo.Upsert(context.Background(), domain.ToolCost{ToolID: "chat", CostPerTask: 5}); err == nil {
		t.Fatal("expected error from failing store")
	}
}
