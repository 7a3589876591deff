package scheduler

import (
	"context"
	"fmt"
	"time"

	appfinance "github.com/erp/settlement/internal/application/finance"
	apprevenue "github.com/erp/settlement/internal/application/revenue"
	"github.com/erp/settlement/internal/domain/finance"
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PayoutGenerator is the part of the payout batch generator the jobs use
type PayoutGenerator interface {
	GeneratePayouts(ctx context.Context, tenantID uuid.UUID, req apprevenue.GeneratePayoutsRequest) (*apprevenue.PayoutBatchResult, error)
}

// BalanceReconciler is the part of the balance service the jobs use
type BalanceReconciler interface {
	ReconcileBalances(ctx context.Context, tenantID uuid.UUID, partyType *finance.PartyType) (*appfinance.BalanceReconciliationReport, error)
}

// DefaultPayoutRunTTL is how long a completed payout run is remembered
const DefaultPayoutRunTTL = 8 * 24 * time.Hour

// LedgerJobExecutor runs payout generation and balance reconciliation jobs.
// A completed payout run is recorded in the run store so other instances
// and later retries skip the same tenant and period.
type LedgerJobExecutor struct {
	payouts  PayoutGenerator
	balances BalanceReconciler
	runs     shared.IdempotencyStore
	runTTL   time.Duration
	logger   *zap.Logger
}

// NewLedgerJobExecutor creates the executor; runs may be nil
func NewLedgerJobExecutor(
	payouts PayoutGenerator,
	balances BalanceReconciler,
	runs shared.IdempotencyStore,
	logger *zap.Logger,
) *LedgerJobExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgerJobExecutor{
		payouts:  payouts,
		balances: balances,
		runs:     runs,
		runTTL:   DefaultPayoutRunTTL,
		logger:   logger,
	}
}

// Execute dispatches on the job kind
func (e *LedgerJobExecutor) Execute(ctx context.Context, job *Job) error {
	switch job.Kind {
	case JobKindPayoutGeneration:
		return e.generatePayouts(ctx, job)
	case JobKindBalanceReconcile:
		return e.reconcileBalances(ctx, job)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownJobKind, job.Kind)
	}
}

// PayoutRunKey is the run store key of a tenant's payout period
func PayoutRunKey(tenantID uuid.UUID, periodStart, periodEnd time.Time) string {
	return fmt.Sprintf("payout-run:%s:%s:%s", tenantID,
		periodStart.UTC().Format(time.RFC3339), periodEnd.UTC().Format(time.RFC3339))
}

func (e *LedgerJobExecutor) generatePayouts(ctx context.Context, job *Job) error {
	key := PayoutRunKey(job.TenantID, job.PeriodStart, job.PeriodEnd)
	if e.runs != nil {
		done, err := e.runs.IsProcessed(ctx, key)
		if err != nil {
			e.logger.Warn("payout run store unavailable, generating anyway", zap.String("key", key), zap.Error(err))
		} else if done {
			e.logger.Info("payout period already generated, skipping", zap.String("job", job.String()))
			return nil
		}
	}

	result, err := e.payouts.GeneratePayouts(ctx, job.TenantID, apprevenue.GeneratePayoutsRequest{
		PeriodStart: job.PeriodStart,
		PeriodEnd:   job.PeriodEnd,
	})
	if err != nil {
		return fmt.Errorf("generate payouts: %w", err)
	}

	e.logger.Info("scheduled payout generation finished",
		zap.String("job", job.String()),
		zap.Int("created", len(result.Created)),
		zap.Int("skipped", len(result.Skipped)),
		zap.Int("deferred", len(result.Deferred)),
		zap.Int("failed", len(result.Failed)),
	)
	for _, d := range result.Deferred {
		e.logger.Warn("late orders wait for their paid period to be reopened",
			zap.String("partner_id", d.PartnerID),
			zap.String("payout_id", d.PayoutID.String()),
			zap.Strings("order_ids", d.OrderIDs))
	}

	// partner failures leave the period open so the retry picks them up;
	// deferrals do not, since a retry cannot pay them
	if len(result.Failed) > 0 {
		return fmt.Errorf("payout generation failed for %d partner(s)", len(result.Failed))
	}

	if e.runs != nil {
		if _, err := e.runs.MarkProcessed(ctx, key, e.runTTL); err != nil {
			e.logger.Warn("failed to record payout run", zap.String("key", key), zap.Error(err))
		}
	}
	return nil
}

func (e *LedgerJobExecutor) reconcileBalances(ctx context.Context, job *Job) error {
	report, err := e.balances.ReconcileBalances(ctx, job.TenantID, nil)
	if err != nil {
		return fmt.Errorf("reconcile balances: %w", err)
	}

	fields := []zap.Field{
		zap.String("tenant_id", job.TenantID.String()),
		zap.Int("accounts_checked", report.AccountsChecked),
		zap.Int("corrections", len(report.Corrections)),
		zap.Int("failures", len(report.Failures)),
	}
	if len(report.Corrections) > 0 || len(report.Failures) > 0 {
		e.logger.Warn("scheduled balance reconciliation found drift", fields...)
	} else {
		e.logger.Info("scheduled balance reconciliation clean", fields...)
	}

	if len(report.Failures) > 0 {
		return fmt.Errorf("balance reconciliation failed for %d account(s)", len(report.Failures))
	}
	return nil
}

var _ JobExecutor = (*LedgerJobExecutor)(nil)
