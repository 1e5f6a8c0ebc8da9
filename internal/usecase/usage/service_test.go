package usage

import (
	"context"
	"errors"
	"testing"
	"time"
)

// --- Mocks ---

type mockAllowance struct {
	used int64
	err  error
}

func (m *mockAllowance) Used(_ context.Context, _, _ string) (int64, error) {
	return m.used, m.err
}

type mockWallet struct {
	poolUsed  int64
	poolLimit int64
	balance   int64
	err       error
}

func (m *mockWallet) FreePoolUsed(_ context.Context, _ string) (int64, error) {
	return m.poolUsed, m.err
}

func (m *mockWallet) Balance(_ context.Context, _ string) (int64, error) {
	return m.balance, m.err
}

func (m *mockWallet) FreePoolLimit() int64 { return m.poolLimit }

type mockAccess struct {
	days int64
	err  error
}

func (m *mockAccess) Remaining(_ context.Context, _ string) (int64, error) {
	return m.days, m.err
}

// --- Tests ---

func TestGetReport(t *testing.T) {
	svc := New(
		&mockAllowance{used: 8},
		&mockWallet{poolUsed: 3, poolLimit: 10, balance: 42},
		&mockAccess{days: 12},
	)

	report, err := svc.GetReport(context.Background(), "u1", "chat-ctx")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.UserID != "u1" || report.ContextID != "chat-ctx" {
		t.Errorf("identity = %s/%s", report.UserID, report.ContextID)
	}
	if report.Day != time.Now().UTC().Format("2006-01-02") {
		t.Errorf("day = %q", report.Day)
	}
	if report.ContextUsed != 8 {
		t.Errorf("context used = %d, want 8", report.ContextUsed)
	}
	if report.FreePoolUsed != 3 || report.FreePoolLimit != 10 {
		t.Errorf("pool = %d/%d, want 3/10", report.FreePoolUsed, report.FreePoolLimit)
	}
	if report.WalletBalance != 42 {
		t.Errorf("balance = %d, want 42", report.WalletBalance)
	}
	if report.AccessDaysLeft != 12 {
		t.Errorf("days = %d, want 12", report.AccessDaysLeft)
	}
}

func TestGetReport_AllowanceError(t *testing.T) {
	svc := New(
		&mockAllowance{err: errors.New("connection refused")},
		&mockWallet{},
		&mockAccess{},
	)

	if _, err := svc.GetReport(context.Background(), "u1", ""); err == nil {
		t.Fatal("expected error to surface")
	}
}

func TestGetReport_WalletError(t *testing.T) {
	svc := New(
		&mockAllowance{},
		&mockWallet{err: errors.New("connection refused")},
		&mockAccess{},
	)

	if _, err := svc.GetReport(context.Background(), "u1", ""); err == nil {
		t.Fatal("expected error to surface")
	}
}
