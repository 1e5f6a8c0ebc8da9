package guard

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/nexusacademy/creditguard/internal/domain"
)

// --- Mocks ---

type mockResolver struct {
	resolution domain.Resolution
	err        error
	calls      int
}

func (m *mockResolver) Resolve(_ context.Context, _ string, _ *domain.Override) (domain.Resolution, error) {
	m.calls++
	return m.resolution, m.err
}

type mockTracker struct {
	outcome domain.AllowanceOutcome
	err     error
	calls   int
	token   string
}

func (m *mockTracker) TrySpend(_ context.Context, _, _ string, _, _ int64, token string) (domain.AllowanceOutcome, error) {
	m.calls++
	m.token = token
	return m.outcome, m.err
}

type mockLedger struct {
	debitFn func(ctx context.Context, req domain.DebitRequest) (domain.DebitOutcome, error)
	reqs    []domain.DebitRequest
}

func (m *mockLedger) Debit(ctx context.Context, req domain.DebitRequest) (domain.DebitOutcome, error) {
	m.reqs = append(m.reqs, req)
	if m.debitFn != nil {
		return m.debitFn(ctx, req)
	}
	return domain.DebitOutcome{}, nil
}

func (m *mockLedger) forced() int {
	n := 0
	for _, r := range m.reqs {
		if r.ForceWallet {
			n++
		}
	}
	return n
}

type mockConfirmer struct {
	approved bool
	err      error
	calls    int
	quote    domain.SpendQuote
}

func (m *mockConfirmer) ConfirmWalletSpend(_ context.Context, quote domain.SpendQuote) (bool, error) {
	m.calls++
	m.quote = quote
	return m.approved, m.err
}

type mockRecharge struct {
	userID  string
	missing int64
	calls   int
}

func (m *mockRecharge) PromptRecharge(_ context.Context, userID string, missing int64) {
	m.calls++
	m.userID = userID
	m.missing = missing
}

type mockProfiles struct {
	err   error
	calls int
}

func (m *mockProfiles) RefreshUserProfile(_ context.Context, _ string) error {
	m.calls++
	return m.err
}

// --- Helpers ---

type fixture struct {
	resolver *mockResolver
	tracker  *mockTracker
	ledger   *mockLedger
	confirm  *mockConfirmer
	recharge *mockRecharge
	profiles *mockProfiles
	svc      *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		resolver: &mockResolver{},
		tracker:  &mockTracker{},
		ledger:   &mockLedger{},
		confirm:  &mockConfirmer{},
		recharge: &mockRecharge{},
		profiles: &mockProfiles{},
	}
	f.svc = New(f.resolver, f.tracker, f.ledger, f.confirm, zap.NewNop()).
		WithRechargeNotifier(f.recharge).
		WithProfileRefresher(f.profiles).
		WithTokenSource(func() string { return "test-token" })
	return f
}

func request() domain.ConsumptionRequest {
	return domain.ConsumptionRequest{UserID: "u1", ToolID: "chat", Narrative: "Chat message"}
}
