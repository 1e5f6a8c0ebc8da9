package guard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nexusacademy/creditguard/internal/domain"
	"github.com/nexusacademy/creditguard/internal/locks"
	"github.com/nexusacademy/creditguard/internal/metrics"
)

// state is one step of the consumption decision machine.
type state int

const (
	stateResolvingCost state = iota
	stateCheckingTierA
	stateCheckingLedger
	stateAwaitingConfirmation
	stateRetryingForcedDebit
)

// Service is the consumption guard: it decides, for one metered invocation,
// whether the caller proceeds for free, spends from the wallet, or is
// blocked. Invocations for the same user are serialized by a per-user mutex
// at this boundary, not by caller-side busy flags.
type Service struct {
	resolver  CostResolver
	tracker   AllowanceTracker
	ledger    Debitor
	confirmer Confirmer
	recharge  RechargeNotifier // optional
	profiles  ProfileRefresher // optional
	logger    *zap.Logger
	userLocks *locks.Keyed
	newToken  func() string
}

// New creates a consumption guard.
func New(
	resolver CostResolver,
	tracker AllowanceTracker,
	ledger Debitor,
	confirmer Confirmer,
	logger *zap.Logger,
) *Service {
	return &Service{
		resolver:  resolver,
		tracker:   tracker,
		ledger:    ledger,
		confirmer: confirmer,
		logger:    logger,
		userLocks: locks.NewKeyed(),
		newToken:  uuid.NewString,
	}
}

// WithRechargeNotifier attaches the recharge call-to-action port.
func (s *Service) WithRechargeNotifier(r RechargeNotifier) *Service {
	s.recharge = r
	return s
}

// WithProfileRefresher attaches the cached-profile refresh port.
func (s *Service) WithProfileRefresher(p ProfileRefresher) *Service {
	s.profiles = p
	return s
}

// WithTokenSource overrides idempotency token generation (tests).
func (s *Service) WithTokenSource(f func() string) *Service {
	s.newToken = f
	return s
}

// CheckAndConsume runs the guard for one invocation. It always returns a
// typed result; recoverable failures never surface as errors.
//
// Exactly one of {context allowance increment, free-pool charge, wallet
// debit} happens on success, identified by Result.Source.
func (s *Service) CheckAndConsume(ctx context.Context, req domain.ConsumptionRequest) domain.ConsumptionResult {
	if req.UserID == "" {
		metrics.ConsumptionsTotal.WithLabelValues(req.ToolID, string(domain.CodeUserNotIdentified)).Inc()
		return domain.ConsumptionResult{
			Code:    domain.CodeUserNotIdentified,
			Message: "user not identified",
		}
	}

	// One idempotency token per logical invocation: the caller's, so a
	// resubmit deduplicates, or a minted one when the caller sent none.
	if req.Token == "" {
		req.Token = s.newToken()
	}

	unlock := s.userLocks.Lock(req.UserID)
	defer unlock()

	result, refresh := s.run(ctx, req)

	outcome := string(result.Code)
	if result.Success {
		outcome = string(result.Source)
	}
	metrics.ConsumptionsTotal.WithLabelValues(req.ToolID, outcome).Inc()

	s.logger.Info("consumption decided",
		zap.String("user_id", req.UserID),
		zap.String("tool_id", req.ToolID),
		zap.Bool("success", result.Success),
		zap.String("source", string(result.Source)),
		zap.String("code", string(result.Code)),
	)

	if result.Success && refresh && s.profiles != nil {
		if err := s.profiles.RefreshUserProfile(ctx, req.UserID); err != nil {
			s.logger.Warn("profile refresh failed",
				zap.String("user_id", req.UserID), zap.Error(err))
		}
	}
	return result
}

// run walks the state machine. The second return value reports whether any
// side effect occurred (false only for the zero-cost short circuit).
func (s *Service) run(ctx context.Context, req domain.ConsumptionRequest) (domain.ConsumptionResult, bool) {
	var (
		resolution domain.Resolution
		notice     string
	)

	st := stateResolvingCost
	for {
		switch st {
		case stateResolvingCost:
			r, err := s.resolver.Resolve(ctx, req.ToolID, req.Override)
			if err != nil {
				return s.internalFailure(req, "cost resolution failed", err), false
			}
			if r.Cost == 0 {
				// Free tool: no counters, no ledger, no refresh.
				return domain.ConsumptionResult{
					Success: true,
					Message: "free tool",
					Source:  domain.SourceFreeContext,
				}, false
			}
			resolution = r
			if r.DailyLimit > 0 {
				st = stateCheckingTierA
			} else {
				st = stateCheckingLedger
			}

		case stateCheckingTierA:
			out, err := s.tracker.TrySpend(
				ctx, req.UserID, resolution.ContextID,
				resolution.Cost, resolution.DailyLimit, req.Token,
			)
			if err != nil {
				return s.internalFailure(req, "allowance check failed", err), false
			}
			if out.Granted {
				return domain.ConsumptionResult{
					Success: true,
					Message: fmt.Sprintf("daily allowance (%d/%d)", out.Used, resolution.DailyLimit),
					Source:  domain.SourceFreeContext,
				}, true
			}
			// Keep the tracker's explanation (expired access plan, exhausted
			// allowance) so the fall-through result still surfaces it.
			notice = out.Notice
			st = stateCheckingLedger

		case stateCheckingLedger:
			outcome, err := s.debit(ctx, req, resolution.Cost, false)
			if err != nil {
				return s.internalFailure(req, "ledger debit failed", err), false
			}
			switch {
			case outcome.Success:
				return domain.ConsumptionResult{
					Success: true,
					Message: withNotice(notice, outcome.Message),
					Source:  outcome.Source,
				}, true
			case outcome.Code == domain.CodeDailyLimitExceeded:
				st = stateAwaitingConfirmation
			case outcome.Code == domain.CodeInsufficientFunds:
				result := s.insufficientFunds(ctx, req, resolution.Cost, outcome)
				result.Message = withNotice(notice, result.Message)
				return result, true
			default:
				return domain.ConsumptionResult{Message: withNotice(notice, outcome.Message), Code: outcome.Code}, true
			}

		case stateAwaitingConfirmation:
			quote := domain.SpendQuote{
				UserID:    req.UserID,
				ToolID:    req.ToolID,
				Cost:      resolution.Cost,
				Narrative: req.Narrative,
			}
			if s.confirmer == nil {
				return confirmationRequired(resolution.Cost), false
			}
			approved, err := s.confirmer.ConfirmWalletSpend(ctx, quote)
			if errors.Is(err, domain.ErrConfirmationUnavailable) {
				return confirmationRequired(resolution.Cost), false
			}
			if err != nil {
				return s.internalFailure(req, "confirmation failed", err), false
			}
			if !approved {
				metrics.WalletSpendConfirmations.WithLabelValues("declined").Inc()
				return domain.ConsumptionResult{
					Code:    domain.CodeUserDeclined,
					Message: "wallet spend declined",
				}, false
			}
			metrics.WalletSpendConfirmations.WithLabelValues("approved").Inc()
			st = stateRetryingForcedDebit

		case stateRetryingForcedDebit:
			outcome, err := s.debit(ctx, req, resolution.Cost, true)
			if err != nil {
				return s.internalFailure(req, "forced debit failed", err), false
			}
			if outcome.Success {
				return domain.ConsumptionResult{
					Success: true,
					Message: outcome.Message,
					Source:  domain.SourceWallet,
				}, true
			}
			if outcome.Code == domain.CodeInsufficientFunds {
				return s.insufficientFunds(ctx, req, resolution.Cost, outcome), true
			}
			return domain.ConsumptionResult{Message: outcome.Message, Code: outcome.Code}, true
		}
	}
}

// debit wraps the ledger call with the request's idempotency token and metrics.
func (s *Service) debit(ctx context.Context, req domain.ConsumptionRequest, cost int64, forced bool) (domain.DebitOutcome, error) {
	start := time.Now()
	outcome, err := s.ledger.Debit(ctx, domain.DebitRequest{
		UserID:      req.UserID,
		ToolID:      req.ToolID,
		Cost:        cost,
		Narrative:   req.Narrative,
		ForceWallet: forced,
		Token:       req.Token,
	})

	status := "ok"
	if err != nil {
		status = "error"
	} else if !outcome.Success {
		status = string(outcome.Code)
	}
	metrics.DebitDuration.WithLabelValues(fmt.Sprintf("%t", forced), status).
		Observe(time.Since(start).Seconds())

	return outcome, err
}

// withNotice prepends a pending tracker notice to a result message.
func withNotice(notice, msg string) string {
	switch {
	case notice == "":
		return msg
	case msg == "":
		return notice
	default:
		return notice + "; " + msg
	}
}

// confirmationRequired is the terminal result when no confirmation decision
// can be obtained in this invocation. The caller resubmits with one.
func confirmationRequired(cost int64) domain.ConsumptionResult {
	return domain.ConsumptionResult{
		Code:    domain.CodeDailyLimitExceeded,
		Message: fmt.Sprintf("daily free allowance exhausted; confirm spending %d credits from wallet", cost),
	}
}

// insufficientFunds runs the recharge escalation and builds the terminal result.
func (s *Service) insufficientFunds(ctx context.Context, req domain.ConsumptionRequest, cost int64, outcome domain.DebitOutcome) domain.ConsumptionResult {
	missing := cost - outcome.NewBalance
	if req.OnInsufficientFunds != nil {
		req.OnInsufficientFunds(ctx)
	} else if s.recharge != nil {
		s.recharge.PromptRecharge(ctx, req.UserID, missing)
	}
	return domain.ConsumptionResult{
		Code:    domain.CodeInsufficientFunds,
		Message: outcome.Message,
	}
}

func (s *Service) internalFailure(req domain.ConsumptionRequest, msg string, err error) domain.ConsumptionResult {
	s.logger.Error(msg,
		zap.String("user_id", req.UserID),
		zap.String("tool_id", req.ToolID),
		zap.Error(err),
	)
	return domain.ConsumptionResult{
		Code:    domain.CodeInternalError,
		Message: "credit processing failed",
	}
}
