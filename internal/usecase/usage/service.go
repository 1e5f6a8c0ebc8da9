package usage

import (
	"context"
	"time"

	"github.com/nexusacademy/creditguard/internal/domain"
)

// Service builds per-user consumption reports for dashboards.
type Service struct {
	allowance AllowanceReader
	wallet    WalletReader
	access    AccessReader
}

// New creates a usage service.
func New(allowance AllowanceReader, wallet WalletReader, access AccessReader) *Service {
	return &Service{allowance: allowance, wallet: wallet, access: access}
}

// GetReport assembles today's usage for userID. contextID may be empty for
// the global scope.
func (s *Service) GetReport(ctx context.Context, userID, contextID string) (domain.UsageReport, error) {
	report := domain.UsageReport{
		UserID:        userID,
		Day:           time.Now().UTC().Format("2006-01-02"),
		ContextID:     contextID,
		FreePoolLimit: s.wallet.FreePoolLimit(),
	}

	used, err := s.allowance.Used(ctx, userID, contextID)
	if err != nil {
		return domain.UsageReport{}, err
	}
	report.ContextUsed = used

	poolUsed, err := s.wallet.FreePoolUsed(ctx, userID)
	if err != nil {
		return domain.UsageReport{}, err
	}
	report.FreePoolUsed = poolUsed

	balance, err := s.wallet.Balance(ctx, userID)
	if err != nil {
		return domain.UsageReport{}, err
	}
	report.WalletBalance = balance

	days, err := s.access.Remaining(ctx, userID)
	if err != nil {
		return domain.UsageReport{}, err
	}
	report.AccessDaysLeft = days

	return report, nil
}
