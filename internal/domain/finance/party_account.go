package finance

import (
	"time"

	"github.com/erp/settlement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PartyType identifies which side of the ledger a party sits on
type PartyType string

const (
	PartyTypeCustomer PartyType = "customer"
	PartyTypeVendor   PartyType = "vendor"
)

// IsValid checks if the party type is valid
func (t PartyType) IsValid() bool {
	return t == PartyTypeCustomer || t == PartyTypeVendor
}

// String returns the string representation of PartyType
func (t PartyType) String() string {
	return string(t)
}

// DocumentKind returns the billing document kind issued to this party type
func (t PartyType) DocumentKind() DocumentKind {
	if t == PartyTypeVendor {
		return DocumentKindBill
	}
	return DocumentKindInvoice
}

// PartyAccount is the running financial summary of a customer or vendor.
// OutstandingBalance is a cache of Σ(total - amountPaid) over the party's
// non-cancelled documents and is corrected by balance reconciliation.
type PartyAccount struct {
	shared.TenantAggregateRoot
	PartyType           PartyType       `json:"party_type"`
	PartyID             string          `json:"party_id"`
	PartyName           string          `json:"party_name"`
	OutstandingBalance  decimal.Decimal `json:"outstanding_balance"`
	TotalLifetimeAmount decimal.Decimal `json:"total_lifetime_amount"`
	TotalPaidAmount     decimal.Decimal `json:"total_paid_amount"`
	LastActivityDate    *time.Time      `json:"last_activity_date"`
	LastPaymentDate     *time.Time      `json:"last_payment_date"`
}

// NewPartyAccount creates an empty account for a party
func NewPartyAccount(tenantID uuid.UUID, partyType PartyType, partyID, partyName string) (*PartyAccount, error) {
	if !partyType.IsValid() {
		return nil, shared.NewValidationError("invalid party type %q", partyType)
	}
	if partyID == "" {
		return nil, shared.NewValidationError("party id cannot be empty")
	}
	if len(partyID) > 100 {
		return nil, shared.NewValidationError("party id cannot exceed 100 characters")
	}

	return &PartyAccount{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		PartyType:           partyType,
		PartyID:             partyID,
		PartyName:           partyName,
		OutstandingBalance:  decimal.Zero,
		TotalLifetimeAmount: decimal.Zero,
		TotalPaidAmount:     decimal.Zero,
	}, nil
}

// RecordDocument adds a newly issued document total to the balance
func (a *PartyAccount) RecordDocument(total decimal.Decimal, at time.Time) {
	a.OutstandingBalance = a.OutstandingBalance.Add(total)
	a.TotalLifetimeAmount = a.TotalLifetimeAmount.Add(total)
	a.touch(at)
}

// ReleaseDocument removes the unpaid remainder of a cancelled document
func (a *PartyAccount) ReleaseDocument(amountDue decimal.Decimal, at time.Time) {
	a.OutstandingBalance = a.OutstandingBalance.Sub(amountDue)
	a.touch(at)
}

// RecordPayment reduces the balance by an applied payment
func (a *PartyAccount) RecordPayment(amount decimal.Decimal, at time.Time) {
	a.OutstandingBalance = a.OutstandingBalance.Sub(amount)
	a.TotalPaidAmount = a.TotalPaidAmount.Add(amount)
	paidAt := at
	a.LastPaymentDate = &paidAt
	a.touch(at)
}

// CorrectBalance overwrites the cached balance with a freshly computed one.
// It returns the drift (recomputed - cached) and whether anything changed.
func (a *PartyAccount) CorrectBalance(recomputed decimal.Decimal, at time.Time) (decimal.Decimal, bool) {
	drift := recomputed.Sub(a.OutstandingBalance)
	if drift.IsZero() {
		return decimal.Zero, false
	}

	previous := a.OutstandingBalance
	a.OutstandingBalance = recomputed
	a.UpdatedAt = at
	a.IncrementVersion()
	a.AddDomainEvent(NewBalanceDriftDetectedEvent(a, previous, drift))
	return drift, true
}

// UpdateName refreshes the denormalized party name when a non-empty one is given
func (a *PartyAccount) UpdateName(name string) {
	if name != "" {
		a.PartyName = name
	}
}

func (a *PartyAccount) touch(at time.Time) {
	activity := at
	a.LastActivityDate = &activity
	a.UpdatedAt = at
	a.IncrementVersion()
}
