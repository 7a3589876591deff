package revenue

import (
	"testing"
	"time"

	"github.com/erp/settlement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// Wednesday
var testNow = time.Date(2024, 6, 12, 10, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, code, shared.ErrorCode(err), "unexpected error: %v", err)
}

// settlement wires every revenue service over the same in-memory repositories
type settlement struct {
	tenantID    uuid.UUID
	clock       *shared.FakeClock
	orders      *memOrderRepo
	payouts     *memPayoutRepo
	collections *memCollectionRepo
	publisher   *recordingPublisher
	exporter    *stubExporter

	commission *CommissionService
	revenue    *OrderRevenueService
	generator  *PayoutBatchGenerator
	summary    *PayoutSummaryService
	reconciler *ReconciliationService
}

func newSettlement(t *testing.T) *settlement {
	t.Helper()
	s := &settlement{
		tenantID:    uuid.New(),
		clock:       shared.NewFakeClock(testNow),
		orders:      newMemOrderRepo(),
		payouts:     newMemPayoutRepo(),
		collections: newMemCollectionRepo(),
		publisher:   &recordingPublisher{},
		exporter:    &stubExporter{},
	}
	scope := NewNoOpTransactionScope(s.orders, s.payouts, s.collections)
	numbers := &seqNumbers{}
	opts := []Option{WithClock(s.clock), WithEventPublisher(s.publisher)}

	s.commission = NewCommissionService(nil)
	s.revenue = NewOrderRevenueService(scope, s.orders, nil, opts...)
	s.generator = NewPayoutBatchGenerator(scope, s.orders, s.payouts, numbers, nil,
		PayoutConfig{ScheduledDelay: 72 * time.Hour}, opts...)
	s.generator.SetStatementExporter(s.exporter)
	s.summary = NewPayoutSummaryService(s.orders, s.payouts, opts...)
	s.reconciler = NewReconciliationService(scope, s.collections, numbers, opts...)
	return s
}

// record stores a silver order_completion order (7% commission) for partnerID
func (s *settlement) record(t *testing.T, orderID, partnerID, amount, fees string) *OrderRevenueResponse {
	t.Helper()
	resp, err := s.revenue.Record(t.Context(), s.tenantID, RecordOrderRevenueRequest{
		OrderID:        orderID,
		PartnerID:      partnerID,
		PartnerTier:    "silver",
		CommissionType: "order_completion",
		OrderAmount:    dec(amount),
		TotalFees:      dec(fees),
		PaymentMethod:  "card",
	})
	require.NoError(t, err)
	return resp
}

// receive moves the given orders to received through a matching gateway collection
func (s *settlement) receive(t *testing.T, orderIDs ...string) {
	t.Helper()
	total := decimal.Zero
	for _, id := range orderIDs {
		o, err := s.revenue.GetByOrderID(t.Context(), s.tenantID, id)
		require.NoError(t, err)
		total = total.Add(o.OrderAmount)
	}
	c, err := s.reconciler.CreateCollection(t.Context(), s.tenantID, CreateCollectionRequest{
		OrderIDs:    orderIDs,
		Method:      "gateway",
		TotalAmount: total,
	})
	require.NoError(t, err)
	_, err = s.reconciler.Reconcile(t.Context(), s.tenantID, c.ID)
	require.NoError(t, err)
}

func (s *settlement) order(t *testing.T, orderID string) *OrderRevenueResponse {
	t.Helper()
	o, err := s.revenue.GetByOrderID(t.Context(), s.tenantID, orderID)
	require.NoError(t, err)
	return o
}

func (s *settlement) week() GeneratePayoutsRequest {
	return GeneratePayoutsRequest{
		PeriodStart: time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC),
		PeriodEnd:   time.Date(2024, 6, 16, 23, 59, 59, 0, time.UTC),
	}
}
