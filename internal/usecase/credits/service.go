package credits

import (
	"context"

	"go.uber.org/zap"

	"github.com/nexusacademy/creditguard/internal/domain"
)

// Service handles wallet top-ups and transaction history. Debits never go
// through here; those belong to the consumption guard.
type Service struct {
	ledger Ledger
	access AccessGrantor
	logger *zap.Logger
}

// New creates a credits service.
func New(ledger Ledger, access AccessGrantor, logger *zap.Logger) *Service {
	return &Service{ledger: ledger, access: access, logger: logger}
}

// Grant adds amount credits to userID's wallet and returns the new balance.
func (s *Service) Grant(ctx context.Context, userID string, amount int64, narrative string) (int64, error) {
	balance, err := s.ledger.Credit(ctx, userID, amount, narrative)
	if err != nil {
		return 0, err
	}
	s.logger.Info("credits granted",
		zap.String("user_id", userID),
		zap.Int64("amount", amount),
		zap.Int64("balance", balance),
	)
	return balance, nil
}

// GrantAccessDays extends userID's prepaid access-day bank and returns the
// new bank size.
func (s *Service) GrantAccessDays(ctx context.Context, userID string, days int64) (int64, error) {
	bank, err := s.access.Grant(ctx, userID, days)
	if err != nil {
		return 0, err
	}
	s.logger.Info("access days granted",
		zap.String("user_id", userID),
		zap.Int64("days", days),
		zap.Int64("bank", bank),
	)
	return bank, nil
}

// Journal returns userID's most recent wallet transactions, newest first.
func (s *Service) Journal(ctx context.Context, userID string, limit int) ([]domain.JournalEntry, error) {
	return s.ledger.Journal(ctx, userID, limit)
}
