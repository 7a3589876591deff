package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// LedgerMetrics provides business metrics for the settlement ledger.
// It tracks issued documents, applied payments, payouts and reconciliation health.
// A nil *LedgerMetrics is valid and records nothing.
type LedgerMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	// Counter metrics (monotonically increasing)
	documentIssuedTotal      *Counter
	documentAmountTotal      *Counter
	paymentAppliedTotal      *Counter
	paymentAmountTotal       *Counter
	paymentReplayedTotal     *Counter
	balanceDriftTotal        *Counter
	payoutGeneratedTotal     *Counter
	payoutNetTotal           *Counter
	payoutFailureTotal       *Counter
	reconciliationMismatches *Counter

	// Distribution and gauge metrics
	payoutBatchDuration *Histogram
	outstandingBalance  *FloatGauge

	// Periodic collector
	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once

	// Data provider for periodic collection
	balanceProvider BalanceMetricsProvider
}

// BalanceMetricsProvider provides outstanding balances for periodic metrics collection.
// This interface allows the telemetry layer to query ledger state without
// depending on the finance domain directly.
type BalanceMetricsProvider interface {
	// GetOutstandingByPartyType returns the summed party balances per party type for a tenant
	GetOutstandingByPartyType(ctx context.Context, tenantID uuid.UUID) (map[string]decimal.Decimal, error)
}

// LedgerMetricsConfig holds configuration for ledger metrics.
type LedgerMetricsConfig struct {
	Meter           metric.Meter
	Logger          *zap.Logger
	BalanceProvider BalanceMetricsProvider
}

// NewLedgerMetrics creates a new LedgerMetrics instance.
func NewLedgerMetrics(cfg LedgerMetricsConfig) (*LedgerMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	lm := &LedgerMetrics{
		meter:           cfg.Meter,
		logger:          logger,
		stopChan:        make(chan struct{}),
		balanceProvider: cfg.BalanceProvider,
	}

	counters := []struct {
		target      **Counter
		name        string
		description string
		unit        string
	}{
		{&lm.documentIssuedTotal, "ledger_document_issued_total", "Total number of billing documents issued", "{documents}"},
		{&lm.documentAmountTotal, "ledger_document_amount_total", "Total billed amount in cents", "{cents}"},
		{&lm.paymentAppliedTotal, "ledger_payment_applied_total", "Total number of payments applied", "{payments}"},
		{&lm.paymentAmountTotal, "ledger_payment_amount_total", "Total applied payment amount in cents", "{cents}"},
		{&lm.paymentReplayedTotal, "ledger_payment_replayed_total", "Total number of idempotent payment replays", "{payments}"},
		{&lm.balanceDriftTotal, "ledger_balance_drift_total", "Total number of corrected party balance drifts", "{corrections}"},
		{&lm.payoutGeneratedTotal, "ledger_payout_generated_total", "Total number of partner payouts generated", "{payouts}"},
		{&lm.payoutNetTotal, "ledger_payout_net_amount_total", "Total net payout amount in cents", "{cents}"},
		{&lm.payoutFailureTotal, "ledger_payout_failure_total", "Total number of failed payouts", "{payouts}"},
		{&lm.reconciliationMismatches, "ledger_reconciliation_mismatch_total", "Total number of collections that did not reconcile", "{collections}"},
	}

	var err error
	for _, c := range counters {
		*c.target, err = NewCounter(cfg.Meter, c.name, c.description, c.unit)
		if err != nil {
			return nil, err
		}
	}

	lm.payoutBatchDuration, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "ledger_payout_batch_duration_seconds",
		Description: "Duration of payout batch runs",
		Unit:        "s",
		Boundaries:  BatchDurationBuckets,
	})
	if err != nil {
		return nil, err
	}

	lm.outstandingBalance, err = NewFloatGauge(
		cfg.Meter,
		"ledger_outstanding_balance",
		"Current summed party balances",
		"{currency}",
	)
	if err != nil {
		return nil, err
	}

	return lm, nil
}

// toCents converts a money amount to the smallest currency unit
func toCents(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// =============================================================================
// Document and Payment Metrics
// =============================================================================

// RecordDocumentIssued records an issued invoice or bill with its total.
func (lm *LedgerMetrics) RecordDocumentIssued(ctx context.Context, tenantID uuid.UUID, kind string, total decimal.Decimal) {
	if lm == nil {
		return
	}
	attrs := []attribute.KeyValue{
		AttrTenantID.String(tenantID.String()),
		AttrDocumentKind.String(kind),
	}
	lm.documentIssuedTotal.Inc(ctx, attrs...)
	lm.documentAmountTotal.Add(ctx, toCents(total), attrs...)
}

// RecordPaymentApplied records a payment allocated against a party's documents.
func (lm *LedgerMetrics) RecordPaymentApplied(ctx context.Context, tenantID uuid.UUID, partyType string, amount decimal.Decimal) {
	if lm == nil {
		return
	}
	attrs := []attribute.KeyValue{
		AttrTenantID.String(tenantID.String()),
		AttrPartyType.String(partyType),
	}
	lm.paymentAppliedTotal.Inc(ctx, attrs...)
	lm.paymentAmountTotal.Add(ctx, toCents(amount), attrs...)
}

// RecordPaymentReplayed records a payment request answered from its idempotency key.
func (lm *LedgerMetrics) RecordPaymentReplayed(ctx context.Context, tenantID uuid.UUID) {
	if lm == nil {
		return
	}
	lm.paymentReplayedTotal.Inc(ctx, AttrTenantID.String(tenantID.String()))
}

// RecordBalanceDrift records a corrected party balance.
func (lm *LedgerMetrics) RecordBalanceDrift(ctx context.Context, tenantID uuid.UUID, partyType string, drift decimal.Decimal) {
	if lm == nil {
		return
	}
	direction := "over"
	if drift.IsNegative() {
		direction = "under"
	}
	lm.balanceDriftTotal.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
		AttrPartyType.String(partyType),
		AttrDriftDirection.String(direction),
	)
}

// =============================================================================
// Payout and Reconciliation Metrics
// =============================================================================

// RecordPayoutGenerated records a payout created by a batch run.
func (lm *LedgerMetrics) RecordPayoutGenerated(ctx context.Context, tenantID uuid.UUID, net decimal.Decimal) {
	if lm == nil {
		return
	}
	attr := AttrTenantID.String(tenantID.String())
	lm.payoutGeneratedTotal.Inc(ctx, attr)
	lm.payoutNetTotal.Add(ctx, toCents(net), attr)
}

// RecordPayoutBatch records the duration of one payout batch run.
func (lm *LedgerMetrics) RecordPayoutBatch(ctx context.Context, tenantID uuid.UUID, d time.Duration) {
	if lm == nil {
		return
	}
	lm.payoutBatchDuration.RecordDuration(ctx, d, AttrTenantID.String(tenantID.String()))
}

// RecordPayoutFailure records a partner payout that could not be generated or disbursed.
func (lm *LedgerMetrics) RecordPayoutFailure(ctx context.Context, tenantID uuid.UUID) {
	if lm == nil {
		return
	}
	lm.payoutFailureTotal.Inc(ctx, AttrTenantID.String(tenantID.String()))
}

// RecordReconciliationMismatch records a collection whose total did not match its orders.
func (lm *LedgerMetrics) RecordReconciliationMismatch(ctx context.Context, tenantID uuid.UUID, method string) {
	if lm == nil {
		return
	}
	lm.reconciliationMismatches.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
		AttrCollectionMethod.String(method),
	)
}

// RecordOutstandingBalance records the summed balances of one party type.
// This is a gauge metric that should be updated periodically.
func (lm *LedgerMetrics) RecordOutstandingBalance(ctx context.Context, tenantID uuid.UUID, partyType string, balance decimal.Decimal) {
	if lm == nil {
		return
	}
	lm.outstandingBalance.Record(ctx, balance.InexactFloat64(),
		AttrTenantID.String(tenantID.String()),
		AttrPartyType.String(partyType),
	)
}

// =============================================================================
// Periodic Collection
// =============================================================================

// TenantProvider provides tenant IDs for periodic metrics collection.
type TenantProvider interface {
	GetActiveTenantIDs(ctx context.Context) ([]uuid.UUID, error)
}

// StartPeriodicCollection starts periodic collection of gauge metrics.
// It collects outstanding balances every interval (default: 5 minutes).
// This is non-blocking - use Stop() to stop collection.
func (lm *LedgerMetrics) StartPeriodicCollection(ctx context.Context, tenantProvider TenantProvider, interval time.Duration) {
	if lm == nil {
		return
	}
	lm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = 5 * time.Minute
		}

		go lm.runPeriodicCollection(ctx, tenantProvider, interval)
	})
}

// runPeriodicCollection runs the periodic collection loop.
func (lm *LedgerMetrics) runPeriodicCollection(ctx context.Context, tenantProvider TenantProvider, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Collect immediately on start
	lm.collectBalanceMetrics(ctx, tenantProvider)

	for {
		select {
		case <-lm.stopChan:
			lm.logger.Info("Stopping periodic ledger metrics collection")
			return
		case <-ctx.Done():
			lm.logger.Info("Context cancelled, stopping periodic ledger metrics collection")
			return
		case <-ticker.C:
			lm.collectBalanceMetrics(ctx, tenantProvider)
		}
	}
}

// collectBalanceMetrics collects balance gauges for all tenants.
func (lm *LedgerMetrics) collectBalanceMetrics(ctx context.Context, tenantProvider TenantProvider) {
	if lm.balanceProvider == nil {
		lm.logger.Debug("No balance provider configured, skipping balance metrics collection")
		return
	}

	tenantIDs, err := tenantProvider.GetActiveTenantIDs(ctx)
	if err != nil {
		lm.logger.Error("Failed to get tenant IDs for metrics collection", zap.Error(err))
		return
	}

	for _, tenantID := range tenantIDs {
		balances, err := lm.balanceProvider.GetOutstandingByPartyType(ctx, tenantID)
		if err != nil {
			lm.logger.Warn("Failed to get outstanding balances for tenant",
				zap.String("tenant_id", tenantID.String()),
				zap.Error(err),
			)
			continue
		}
		for partyType, balance := range balances {
			lm.RecordOutstandingBalance(ctx, tenantID, partyType, balance)
		}
	}
}

// Stop stops the periodic collection.
func (lm *LedgerMetrics) Stop() {
	if lm == nil {
		return
	}
	lm.stopOnce.Do(func() {
		close(lm.stopChan)
	})
}

// =============================================================================
// Error Types
// =============================================================================

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewLedgerMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}

// =============================================================================
// Attribute Key Constants
// =============================================================================

// Ledger metrics attribute keys not already defined in metrics.go
var (
	AttrDocumentKind     = attribute.Key("document_kind")
	AttrPartyType        = attribute.Key("party_type")
	AttrDriftDirection   = attribute.Key("drift_direction")
	AttrCollectionMethod = attribute.Key("collection_method")
)
