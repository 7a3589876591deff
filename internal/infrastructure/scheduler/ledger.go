package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/erp/settlement/internal/domain/revenue"
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/erp/settlement/internal/infrastructure/config"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LedgerScheduler owns the job worker pool and the two ledger triggers:
// weekly payout generation for the previous week and periodic balance
// reconciliation
type LedgerScheduler struct {
	scheduler *Scheduler
	payouts   *Trigger
	balances  *Trigger
	logger    *zap.Logger
}

// PreviousWeek returns the Monday to Sunday period before the week
// containing at
func PreviousWeek(at time.Time) revenue.Period {
	return revenue.WeekOf(at.UTC().AddDate(0, 0, -7))
}

// NewLedgerScheduler wires the triggers from configuration
func NewLedgerScheduler(
	cfg config.SchedulerConfig,
	executor JobExecutor,
	tenants TenantProvider,
	clock shared.Clock,
	logger *zap.Logger,
) (*LedgerScheduler, error) {
	if clock == nil {
		clock = shared.SystemClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	poolCfg := DefaultConfig()
	if cfg.JobTimeout > 0 {
		poolCfg.JobTimeout = cfg.JobTimeout
	}
	s := NewScheduler(poolCfg, executor, clock, logger)

	payoutSchedule, err := NewRRuleSchedule(cfg.PayoutRRule, revenue.WeekOf(clock.Now()).Start)
	if err != nil {
		return nil, err
	}
	balanceSchedule, err := NewIntervalSchedule(cfg.BalanceReconcileInterval)
	if err != nil {
		return nil, err
	}

	payouts := NewTrigger("payout-generation", payoutSchedule, s, tenants,
		func(_ context.Context, tenantID uuid.UUID, firedAt time.Time) *Job {
			period := PreviousWeek(firedAt)
			return NewPayoutJob(tenantID, period.Start, period.End, poolCfg.RetryAttempts)
		}, clock, logger)

	balances := NewTrigger("balance-reconcile", balanceSchedule, s, tenants,
		func(_ context.Context, tenantID uuid.UUID, _ time.Time) *Job {
			return NewBalanceJob(tenantID, poolCfg.RetryAttempts)
		}, clock, logger)

	return &LedgerScheduler{scheduler: s, payouts: payouts, balances: balances, logger: logger}, nil
}

// Start starts the worker pool and both triggers
func (l *LedgerScheduler) Start(ctx context.Context) error {
	if err := l.scheduler.Start(ctx); err != nil {
		return err
	}
	if err := l.payouts.Start(ctx); err != nil {
		return err
	}
	return l.balances.Start(ctx)
}

// Stop stops the triggers first, then drains the worker pool
func (l *LedgerScheduler) Stop(ctx context.Context) error {
	return errors.Join(
		l.payouts.Stop(ctx),
		l.balances.Stop(ctx),
		l.scheduler.Stop(ctx),
	)
}

// PayoutTrigger exposes the payout trigger for manual runs
func (l *LedgerScheduler) PayoutTrigger() *Trigger {
	return l.payouts
}

// BalanceTrigger exposes the balance trigger for manual runs
func (l *LedgerScheduler) BalanceTrigger() *Trigger {
	return l.balances
}
