package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/nexusacademy/creditguard/internal/domain"
	creditsuc "github.com/nexusacademy/creditguard/internal/usecase/credits"
	guarduc "github.com/nexusacademy/creditguard/internal/usecase/guard"
	healthuc "github.com/nexusacademy/creditguard/internal/usecase/health"
	pricinguc "github.com/nexusacademy/creditguard/internal/usecase/pricing"
	usageuc "github.com/nexusacademy/creditguard/internal/usecase/usage"
)

// --- Mocks ---

type mockCatalog struct {
	costs     map[string]int64
	upsertErr error
}

func (m *mockCatalog) List(_ context.Context) ([]domain.ToolCost, error) {
	out := make([]domain.ToolCost, 0, len(m.costs))
	for id, c := range m.costs {
		out = append(out, domain.ToolCost{ToolID: id, CostPerTask: c})
	}
	return out, nil
}

func (m *mockCatalog) Upsert(_ context.Context, tc domain.ToolCost) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.costs[tc.ToolID] = tc.CostPerTask
	return nil
}

type mockTracker struct {
	outcome domain.AllowanceOutcome
}

func (m *mockTracker) TrySpend(_ context.Context, _, _ string, _, _ int64, _ string) (domain.AllowanceOutcome, error) {
	return m.outcome, nil
}

type mockDebitor struct {
	debitFn func(ctx context.Context, req domain.DebitRequest) (domain.DebitOutcome, error)
}

func (m *mockDebitor) Debit(ctx context.Context, req domain.DebitRequest) (domain.DebitOutcome, error) {
	if m.debitFn != nil {
		return m.debitFn(ctx, req)
	}
	return domain.DebitOutcome{Success: true, Source: domain.SourceFreeGlobal}, nil
}

type mockAllowanceReader struct{ used int64 }

func (m *mockAllowanceReader) Used(_ context.Context, _, _ string) (int64, error) {
	return m.used, nil
}

type mockWalletReader struct {
	balance, poolUsed, poolLimit int64
}

func (m *mockWalletReader) Balance(_ context.Context, _ string) (int64, error) {
	return m.balance, nil
}

func (m *mockWalletReader) FreePoolUsed(_ context.Context, _ string) (int64, error) {
	return m.poolUsed, nil
}

func (m *mockWalletReader) FreePoolLimit() int64 { return m.poolLimit }

type mockAccessReader struct{ days int64 }

func (m *mockAccessReader) Remaining(_ context.Context, _ string) (int64, error) {
	return m.days, nil
}

type mockCreditLedger struct {
	balance   int64
	creditErr error
	entries   []domain.JournalEntry
}

func (m *mockCreditLedger) Credit(_ context.Context, _ string, amount int64, _ string) (int64, error) {
	if m.creditErr != nil {
		return 0, m.creditErr
	}
	m.balance += amount
	return m.balance, nil
}

func (m *mockCreditLedger) Journal(_ context.Context, _ string, limit int) ([]domain.JournalEntry, error) {
	if limit > 0 && len(m.entries) > limit {
		return m.entries[:limit], nil
	}
	return m.entries, nil
}

type mockAccessGrantor struct{ bank int64 }

func (m *mockAccessGrantor) Grant(_ context.Context, _ string, days int64) (int64, error) {
	if days <= 0 {
		return 0, domain.ErrInvalidAmount
	}
	m.bank += days
	return m.bank, nil
}

type mockPinger struct{ err error }

func (m *mockPinger) Ping(_ context.Context) error { return m.err }

// --- Fixture ---

type fixture struct {
	catalog *mockCatalog
	tracker *mockTracker
	debitor *mockDebitor
	wallet  *mockWalletReader
	ledger  *mockCreditLedger
	pinger  *mockPinger
	router  chi.Router
}

func newTestServer(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		catalog: &mockCatalog{costs: map[string]int64{"chat": 5}},
		tracker: &mockTracker{},
		debitor: &mockDebitor{},
		wallet:  &mockWalletReader{balance: 42, poolUsed: 3, poolLimit: 10},
		ledger:  &mockCreditLedger{},
		pinger:  &mockPinger{},
	}

	logger := zap.NewNop()
	pricingSvc := pricinguc.New(f.catalog, nil)
	guardSvc := guarduc.New(pricingSvc, f.tracker, f.debitor, guarduc.ApprovalConfirmer{}, logger)
	usageSvc := usageuc.New(&mockAllowanceReader{used: 8}, f.wallet, &mockAccessReader{days: 12})
	creditsSvc := creditsuc.New(f.ledger, &mockAccessGrantor{bank: 30}, logger)
	healthSvc := healthuc.New(f.pinger)

	server := NewServer(guardSvc, pricingSvc, usageSvc, creditsSvc, healthSvc, logger)
	f.router = chi.NewRouter()
	server.RegisterRoutes(f.router)
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(rr.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}
