package finance

import (
	"context"
	"errors"

	"github.com/erp/settlement/internal/domain/finance"
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/erp/settlement/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BalanceService exposes party balances and reconciles the cached
// outstanding balance against the documents it is derived from
type BalanceService struct {
	runtime
	txScope   TransactionScope
	partyRepo finance.PartyAccountRepository
}

// NewBalanceService creates a new BalanceService
func NewBalanceService(txScope TransactionScope, partyRepo finance.PartyAccountRepository, opts ...Option) *BalanceService {
	return &BalanceService{
		runtime:   newRuntime(opts),
		txScope:   txScope,
		partyRepo: partyRepo,
	}
}

// GetAccount returns a party's account
func (s *BalanceService) GetAccount(ctx context.Context, tenantID uuid.UUID, partyType finance.PartyType, partyID string) (*PartyAccountResponse, error) {
	if !partyType.IsValid() {
		return nil, shared.NewValidationError("invalid party type %q", partyType)
	}
	account, err := s.partyRepo.FindByParty(ctx, tenantID, partyType, partyID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewNotFoundError(partyType.String()+" account", partyID)
		}
		return nil, err
	}
	return toPartyAccountResponse(account), nil
}

// ReconcileBalances recomputes Σ(total − amountPaid) over each party's
// non-cancelled documents and overwrites any drifted cached balance.
// Each party is checked in its own transaction; a failure is reported and
// does not stop the run. A nil partyType checks customers and vendors.
func (s *BalanceService) ReconcileBalances(ctx context.Context, tenantID uuid.UUID, partyType *finance.PartyType) (*BalanceReconciliationReport, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "party_balance", "reconcile")
	defer span.End()

	if partyType != nil && !partyType.IsValid() {
		return nil, shared.NewValidationError("invalid party type %q", *partyType)
	}

	accounts, err := s.partyRepo.FindAllForTenant(ctx, tenantID, partyType)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	report := &BalanceReconciliationReport{
		CheckedAt:   s.clock.Now(),
		Corrections: make([]BalanceCorrection, 0),
		Failures:    make([]BalanceFailure, 0),
	}
	for _, a := range accounts {
		correction, err := s.reconcileOne(ctx, tenantID, a.PartyType, a.PartyID)
		report.AccountsChecked++
		if err != nil {
			s.logger.Error("Balance reconciliation failed",
				zap.String("tenant_id", tenantID.String()),
				zap.String("party_type", string(a.PartyType)),
				zap.String("party_id", a.PartyID),
				zap.Error(err))
			report.Failures = append(report.Failures, BalanceFailure{
				PartyType: string(a.PartyType),
				PartyID:   a.PartyID,
				Error:     err.Error(),
			})
			continue
		}
		if correction != nil {
			report.Corrections = append(report.Corrections, *correction)
		}
	}

	telemetry.SetAttributes(span,
		"accounts_checked", report.AccountsChecked,
		"corrections", len(report.Corrections),
	)
	return report, nil
}

func (s *BalanceService) reconcileOne(ctx context.Context, tenantID uuid.UUID, partyType finance.PartyType, partyID string) (*BalanceCorrection, error) {
	now := s.clock.Now()
	var (
		account    *finance.PartyAccount
		correction *BalanceCorrection
	)
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		acc, err := repos.PartyRepo().FindByPartyForUpdate(ctx, tenantID, partyType, partyID)
		if err != nil {
			return err
		}
		recomputed, err := repos.DocumentRepo().SumOwedByParty(ctx, tenantID, partyType, partyID)
		if err != nil {
			return err
		}

		previous := acc.OutstandingBalance
		drift, changed := acc.CorrectBalance(recomputed, now)
		if !changed {
			return nil
		}
		if err := repos.PartyRepo().SaveWithLock(ctx, acc); err != nil {
			return err
		}
		account = acc
		correction = &BalanceCorrection{
			PartyType:  string(partyType),
			PartyID:    partyID,
			Previous:   previous,
			Recomputed: recomputed,
			Drift:      drift,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if correction == nil {
		return nil, nil
	}

	s.logger.Warn("Party balance drift corrected",
		zap.String("tenant_id", tenantID.String()),
		zap.String("party_type", correction.PartyType),
		zap.String("party_id", partyID),
		zap.String("previous", correction.Previous.StringFixed(2)),
		zap.String("recomputed", correction.Recomputed.StringFixed(2)),
		zap.String("drift", correction.Drift.StringFixed(2)))
	s.metrics.RecordBalanceDrift(ctx, tenantID, correction.PartyType, correction.Drift)
	s.publish(ctx, account)
	return correction, nil
}
