package revenue

import (
	"fmt"
	"time"

	"github.com/erp/settlement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CollectionMethod is how an external collection was gathered
type CollectionMethod string

const (
	CollectionMethodGateway         CollectionMethod = "gateway"
	CollectionMethodCash            CollectionMethod = "cash"
	CollectionMethodBankTransfer    CollectionMethod = "bank_transfer"
	CollectionMethodDeliveryPartner CollectionMethod = "delivery_partner"
)

// IsValid checks if the method is valid
func (m CollectionMethod) IsValid() bool {
	switch m {
	case CollectionMethodGateway, CollectionMethodCash, CollectionMethodBankTransfer, CollectionMethodDeliveryPartner:
		return true
	}
	return false
}

// String returns the string representation of CollectionMethod
func (m CollectionMethod) String() string {
	return string(m)
}

// RemitsPlatformShareOnly reports whether the collector keeps the partner
// commission and fees and only remits the platform's revenue
func (m CollectionMethod) RemitsPlatformShareOnly() bool {
	return m == CollectionMethodDeliveryPartner
}

// CollectionStatus is the status of a payment collection
type CollectionStatus string

const (
	CollectionStatusPending    CollectionStatus = "pending"
	CollectionStatusCollected  CollectionStatus = "collected"
	CollectionStatusDeposited  CollectionStatus = "deposited"
	CollectionStatusReconciled CollectionStatus = "reconciled"
)

// IsValid checks if the status is valid
func (s CollectionStatus) IsValid() bool {
	switch s {
	case CollectionStatusPending, CollectionStatusCollected, CollectionStatusDeposited, CollectionStatusReconciled:
		return true
	}
	return false
}

// String returns the string representation of CollectionStatus
func (s CollectionStatus) String() string {
	return string(s)
}

// PaymentCollection is an external collection event covering several orders
type PaymentCollection struct {
	shared.TenantAggregateRoot
	CollectionNumber string           `json:"collection_number"`
	OrderIDs         StringList       `json:"order_ids"`
	CollectionMethod CollectionMethod `json:"collection_method"`
	CollectorID      string           `json:"collector_id"`
	TotalAmount      decimal.Decimal  `json:"total_amount"`
	CollectionDate   time.Time        `json:"collection_date"`
	Status           CollectionStatus `json:"status"`
	ReconciledAt     *time.Time       `json:"reconciled_at"`
}

// NewCollectionParams holds the inputs for recording a collection
type NewCollectionParams struct {
	TenantID         uuid.UUID
	CollectionNumber string
	OrderIDs         []string
	Method           CollectionMethod
	CollectorID      string
	TotalAmount      decimal.Decimal
	CollectionDate   time.Time
}

// NewPaymentCollection validates and builds a pending collection
func NewPaymentCollection(p NewCollectionParams) (*PaymentCollection, error) {
	if len(p.OrderIDs) == 0 {
		return nil, shared.NewValidationError("collection must reference at least one order")
	}
	seen := make(map[string]struct{}, len(p.OrderIDs))
	for _, id := range p.OrderIDs {
		if id == "" {
			return nil, shared.NewValidationError("order id cannot be empty")
		}
		if _, dup := seen[id]; dup {
			return nil, shared.NewValidationError("order %s is listed more than once", id)
		}
		seen[id] = struct{}{}
	}
	if !p.Method.IsValid() {
		return nil, shared.NewValidationError("invalid collection method %q", p.Method)
	}
	if p.TotalAmount.IsNegative() {
		return nil, shared.NewValidationError("total amount cannot be negative")
	}
	if !p.TotalAmount.Equal(shared.Round2(p.TotalAmount)) {
		return nil, shared.NewValidationError("total amount has more than two decimal places")
	}
	if p.CollectionDate.IsZero() {
		return nil, shared.NewValidationError("collection date is required")
	}

	c := &PaymentCollection{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(p.TenantID),
		CollectionNumber:    p.CollectionNumber,
		OrderIDs:            append(StringList{}, p.OrderIDs...),
		CollectionMethod:    p.Method,
		CollectorID:         p.CollectorID,
		TotalAmount:         p.TotalAmount,
		CollectionDate:      p.CollectionDate.UTC(),
		Status:              CollectionStatusPending,
	}
	return c, nil
}

// MarkCollected records that the collector has the money in hand
func (c *PaymentCollection) MarkCollected(at time.Time) error {
	if c.Status != CollectionStatusPending {
		return shared.NewInvalidStateError("collection %s cannot be collected in %s status", c.CollectionNumber, c.Status)
	}
	c.Status = CollectionStatusCollected
	c.UpdatedAt = at
	c.IncrementVersion()
	return nil
}

// MarkDeposited records that the money reached the platform's account
func (c *PaymentCollection) MarkDeposited(at time.Time) error {
	if c.Status != CollectionStatusPending && c.Status != CollectionStatusCollected {
		return shared.NewInvalidStateError("collection %s cannot be deposited in %s status", c.CollectionNumber, c.Status)
	}
	c.Status = CollectionStatusDeposited
	c.UpdatedAt = at
	c.IncrementVersion()
	return nil
}

// ExpectedAmount is Σ orderAmount, or Σ clutchRevenue when the collector
// remits only the platform share
func (c *PaymentCollection) ExpectedAmount(orders []OrderRevenue) decimal.Decimal {
	expected := decimal.Zero
	for _, o := range orders {
		if c.CollectionMethod.RemitsPlatformShareOnly() {
			expected = expected.Add(o.ClutchRevenue)
		} else {
			expected = expected.Add(o.OrderAmount)
		}
	}
	return shared.Round2(expected)
}

// Reconcile checks the collection against the orders it covers and, on an
// exact match, marks each order received and the collection reconciled.
// On any failure neither the collection nor the orders are modified.
func (c *PaymentCollection) Reconcile(orders []OrderRevenue, at time.Time) error {
	if c.Status == CollectionStatusReconciled {
		return shared.NewInvalidStateError("collection %s is already reconciled", c.CollectionNumber)
	}
	if len(orders) != len(c.OrderIDs) {
		return shared.NewDomainError(shared.CodeNotFound,
			fmt.Sprintf("collection %s references %d orders but %d were found", c.CollectionNumber, len(c.OrderIDs), len(orders)))
	}
	for _, o := range orders {
		if o.Status != RevenueStatusPending && o.Status != RevenueStatusReceived {
			return shared.NewInvalidStateError("order %s is %s and cannot be reconciled", o.OrderID, o.Status)
		}
	}

	expected := c.ExpectedAmount(orders)
	actual := shared.Round2(c.TotalAmount)
	if !expected.Equal(actual) {
		return shared.NewDomainError(shared.CodeReconciliationMismatch,
			fmt.Sprintf("collection %s total %s does not match expected %s", c.CollectionNumber, actual.StringFixed(2), expected.StringFixed(2)))
	}

	for i := range orders {
		if err := orders[i].MarkReceived(at); err != nil {
			return err
		}
	}

	reconciledAt := at
	c.Status = CollectionStatusReconciled
	c.ReconciledAt = &reconciledAt
	c.UpdatedAt = at
	c.IncrementVersion()
	c.AddDomainEvent(NewCollectionReconciledEvent(c, expected))
	return nil
}
