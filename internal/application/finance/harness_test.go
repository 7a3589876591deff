package finance

import (
	"testing"
	"time"

	"github.com/erp/settlement/internal/domain/finance"
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, code, shared.ErrorCode(err), "unexpected error: %v", err)
}

// ledger wires every finance service over the same in-memory repositories
type ledger struct {
	tenantID  uuid.UUID
	clock     *shared.FakeClock
	parties   *memPartyRepo
	documents *memDocumentRepo
	payments  *memPaymentRepo
	publisher *recordingPublisher

	billing   *BillingService
	allocator *PaymentAllocator
	aging     *AgingService
	balances  *BalanceService
}

func newLedger(t *testing.T) *ledger {
	t.Helper()
	l := &ledger{
		tenantID:  uuid.New(),
		clock:     shared.NewFakeClock(testNow),
		parties:   newMemPartyRepo(),
		documents: newMemDocumentRepo(),
		payments:  newMemPaymentRepo(),
		publisher: &recordingPublisher{},
	}
	scope := NewNoOpTransactionScope(l.parties, l.documents, l.payments)
	numbers := &seqNumbers{}
	opts := []Option{WithClock(l.clock), WithEventPublisher(l.publisher)}

	l.billing = NewBillingService(scope, l.documents, numbers, opts...)
	l.allocator = NewPaymentAllocator(scope, l.payments, numbers, opts...)
	l.aging = NewAgingService(l.documents, opts...)
	l.balances = NewBalanceService(scope, l.parties, opts...)
	return l
}

// issue creates a sent document for partyID with a single line of the given total
func (l *ledger) issue(t *testing.T, kind finance.DocumentKind, partyID, total string, dueDate time.Time) *DocumentResponse {
	t.Helper()
	doc, err := l.billing.Create(t.Context(), l.tenantID, kind, CreateDocumentRequest{
		PartyID:   partyID,
		PartyName: "Party " + partyID,
		LineItems: []LineItemRequest{
			{Description: "services", Quantity: decimal.NewFromInt(1), UnitPrice: dec(total)},
		},
		IssueDate: dueDate.AddDate(0, 0, -30),
		DueDate:   dueDate,
	})
	require.NoError(t, err)
	return doc
}

func (l *ledger) balance(t *testing.T, partyType finance.PartyType, partyID string) decimal.Decimal {
	t.Helper()
	acc, err := l.balances.GetAccount(t.Context(), l.tenantID, partyType, partyID)
	require.NoError(t, err)
	return acc.OutstandingBalance
}

func (l *ledger) document(t *testing.T, kind finance.DocumentKind, id uuid.UUID) *DocumentResponse {
	t.Helper()
	doc, err := l.billing.GetByID(t.Context(), l.tenantID, kind, id)
	require.NoError(t, err)
	return doc
}

// requireBalanceInvariant checks the cached balance equals Σ(total - paid)
// over the party's non-cancelled documents
func (l *ledger) requireBalanceInvariant(t *testing.T, partyType finance.PartyType, partyID string) {
	t.Helper()
	owed, err := l.documents.SumOwedByParty(t.Context(), l.tenantID, partyType, partyID)
	require.NoError(t, err)
	require.True(t, owed.Equal(l.balance(t, partyType, partyID)),
		"cached balance %s drifted from documents %s", l.balance(t, partyType, partyID), owed)
}
