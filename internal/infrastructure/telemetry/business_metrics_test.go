package telemetry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erp/settlement/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newRecordingLedgerMetrics wires LedgerMetrics to a manual reader so tests can inspect values
func newRecordingLedgerMetrics(t *testing.T) (*telemetry.LedgerMetrics, *sdkmetric.ManualReader) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	lm, err := telemetry.NewLedgerMetrics(telemetry.LedgerMetricsConfig{
		Meter:  provider.Meter("test"),
		Logger: zap.NewNop(),
	})
	require.NoError(t, err)
	return lm, reader
}

// counterTotal sums every data point of the named int64 counter
func counterTotal(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "metric %s is not an int64 sum", name)
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	return total
}

func TestNewLedgerMetrics(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")

	lm, err := telemetry.NewLedgerMetrics(telemetry.LedgerMetricsConfig{
		Meter:  meter,
		Logger: zap.NewNop(),
	})

	require.NoError(t, err)
	require.NotNil(t, lm)
}

func TestNewLedgerMetrics_NilMeter(t *testing.T) {
	lm, err := telemetry.NewLedgerMetrics(telemetry.LedgerMetricsConfig{
		Meter:  nil,
		Logger: zap.NewNop(),
	})

	require.Error(t, err)
	assert.Nil(t, lm)
	assert.Equal(t, "NewLedgerMetrics: meter cannot be nil", err.Error())
}

func TestLedgerMetrics_NilReceiver(t *testing.T) {
	var lm *telemetry.LedgerMetrics
	ctx := context.Background()
	tenantID := uuid.New()

	assert.NotPanics(t, func() {
		lm.RecordDocumentIssued(ctx, tenantID, "invoice", decimal.NewFromInt(10))
		lm.RecordPaymentApplied(ctx, tenantID, "customer", decimal.NewFromInt(10))
		lm.RecordPaymentReplayed(ctx, tenantID)
		lm.RecordBalanceDrift(ctx, tenantID, "vendor", decimal.NewFromInt(-1))
		lm.RecordPayoutGenerated(ctx, tenantID, decimal.NewFromInt(5))
		lm.RecordPayoutFailure(ctx, tenantID)
		lm.RecordReconciliationMismatch(ctx, tenantID, "gateway")
		lm.RecordOutstandingBalance(ctx, tenantID, "customer", decimal.NewFromInt(1))
		lm.StartPeriodicCollection(ctx, &mockTenantProvider{}, time.Second)
		lm.Stop()
	})
}

func TestLedgerMetrics_RecordDocumentIssued(t *testing.T) {
	lm, reader := newRecordingLedgerMetrics(t)
	ctx := context.Background()
	tenantID := uuid.New()

	lm.RecordDocumentIssued(ctx, tenantID, "invoice", decimal.RequireFromString("199.99"))
	lm.RecordDocumentIssued(ctx, tenantID, "bill", decimal.RequireFromString("0.01"))

	assert.Equal(t, int64(2), counterTotal(t, reader, "ledger_document_issued_total"))
	assert.Equal(t, int64(20000), counterTotal(t, reader, "ledger_document_amount_total"))
}

func TestLedgerMetrics_RecordPayments(t *testing.T) {
	lm, reader := newRecordingLedgerMetrics(t)
	ctx := context.Background()
	tenantID := uuid.New()

	lm.RecordPaymentApplied(ctx, tenantID, "customer", decimal.RequireFromString("400.00"))
	lm.RecordPaymentReplayed(ctx, tenantID)
	lm.RecordPaymentReplayed(ctx, tenantID)

	assert.Equal(t, int64(1), counterTotal(t, reader, "ledger_payment_applied_total"))
	assert.Equal(t, int64(40000), counterTotal(t, reader, "ledger_payment_amount_total"))
	assert.Equal(t, int64(2), counterTotal(t, reader, "ledger_payment_replayed_total"))
}

func TestLedgerMetrics_RecordPayoutsAndReconciliation(t *testing.T) {
	lm, reader := newRecordingLedgerMetrics(t)
	ctx := context.Background()
	tenantID := uuid.New()

	lm.RecordPayoutGenerated(ctx, tenantID, decimal.RequireFromString("24.50"))
	lm.RecordPayoutGenerated(ctx, tenantID, decimal.RequireFromString("5.60"))
	lm.RecordPayoutFailure(ctx, tenantID)
	lm.RecordReconciliationMismatch(ctx, tenantID, "delivery_partner")
	lm.RecordBalanceDrift(ctx, tenantID, "customer", decimal.RequireFromString("-35"))

	assert.Equal(t, int64(2), counterTotal(t, reader, "ledger_payout_generated_total"))
	assert.Equal(t, int64(3010), counterTotal(t, reader, "ledger_payout_net_amount_total"))
	assert.Equal(t, int64(1), counterTotal(t, reader, "ledger_payout_failure_total"))
	assert.Equal(t, int64(1), counterTotal(t, reader, "ledger_reconciliation_mismatch_total"))
	assert.Equal(t, int64(1), counterTotal(t, reader, "ledger_balance_drift_total"))
}

// Mock implementations for testing periodic collection

type mockTenantProvider struct {
	tenantIDs []uuid.UUID
	err       error
}

func (m *mockTenantProvider) GetActiveTenantIDs(ctx context.Context) ([]uuid.UUID, error) {
	return m.tenantIDs, m.err
}

type mockBalanceProvider struct {
	balances map[string]decimal.Decimal
	err      error
	calls    chan uuid.UUID
}

func (m *mockBalanceProvider) GetOutstandingByPartyType(ctx context.Context, tenantID uuid.UUID) (map[string]decimal.Decimal, error) {
	select {
	case m.calls <- tenantID:
	default:
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.balances, nil
}

func TestLedgerMetrics_PeriodicCollection(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")
	tenantID := uuid.New()

	balanceProvider := &mockBalanceProvider{
		balances: map[string]decimal.Decimal{
			"customer": decimal.NewFromInt(600),
			"vendor":   decimal.NewFromInt(120),
		},
		calls: make(chan uuid.UUID, 1),
	}

	lm, err := telemetry.NewLedgerMetrics(telemetry.LedgerMetricsConfig{
		Meter:           meter,
		Logger:          zap.NewNop(),
		BalanceProvider: balanceProvider,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	lm.StartPeriodicCollection(ctx, &mockTenantProvider{tenantIDs: []uuid.UUID{tenantID}}, time.Hour)
	defer lm.Stop()

	// Collection runs immediately on start
	select {
	case got := <-balanceProvider.calls:
		assert.Equal(t, tenantID, got)
	case <-time.After(2 * time.Second):
		t.Fatal("balance provider was not queried")
	}
}

func TestLedgerMetrics_PeriodicCollection_ProviderErrors(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")

	lm, err := telemetry.NewLedgerMetrics(telemetry.LedgerMetricsConfig{
		Meter:           meter,
		BalanceProvider: &mockBalanceProvider{err: errors.New("db down"), calls: make(chan uuid.UUID, 1)},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Should not panic when either provider fails
	lm.StartPeriodicCollection(ctx, &mockTenantProvider{err: errors.New("no tenants")}, 50*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	lm.Stop()
}

func TestLedgerMetrics_PeriodicCollection_NoProvider(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")

	lm, err := telemetry.NewLedgerMetrics(telemetry.LedgerMetricsConfig{
		Meter:  meter,
		Logger: zap.NewNop(),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	lm.StartPeriodicCollection(ctx, &mockTenantProvider{tenantIDs: []uuid.UUID{uuid.New()}}, 50*time.Millisecond)

	time.Sleep(100 * time.Millisecond)
	lm.Stop()
}

func TestLedgerMetrics_Stop_Idempotent(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")
	lm, err := telemetry.NewLedgerMetrics(telemetry.LedgerMetricsConfig{
		Meter: meter,
	})
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		lm.Stop()
		lm.Stop()
	})
}

func TestMetricsError_Error(t *testing.T) {
	err := &telemetry.MetricsError{Op: "TestOp", Err: "test error"}
	assert.Equal(t, "TestOp: test error", err.Error())
}

func TestGormBalanceMetricsProvider(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.Exec(`CREATE TABLE party_accounts (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		party_type TEXT NOT NULL,
		party_id TEXT NOT NULL,
		balance NUMERIC NOT NULL
	)`).Error)

	tenantA := uuid.New()
	tenantB := uuid.New()
	rows := []struct {
		tenant    uuid.UUID
		partyType string
		partyID   string
		balance   string
	}{
		{tenantA, "customer", "c-1", "600.00"},
		{tenantA, "customer", "c-2", "40.50"},
		{tenantA, "vendor", "v-1", "120.00"},
		{tenantB, "customer", "c-9", "5.00"},
	}
	for _, r := range rows {
		require.NoError(t, db.Exec(
			"INSERT INTO party_accounts (id, tenant_id, party_type, party_id, balance) VALUES (?, ?, ?, ?, ?)",
			uuid.New(), r.tenant, r.partyType, r.partyID, r.balance,
		).Error)
	}

	provider := telemetry.NewGormBalanceMetricsProvider(db)
	balances, err := provider.GetOutstandingByPartyType(context.Background(), tenantA)
	require.NoError(t, err)
	require.Len(t, balances, 2)
	assert.True(t, decimal.RequireFromString("640.50").Equal(balances["customer"]))
	assert.True(t, decimal.RequireFromString("120").Equal(balances["vendor"]))

	tenants, err := telemetry.NewGormTenantProvider(db).GetActiveTenantIDs(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{tenantA, tenantB}, tenants)
}
