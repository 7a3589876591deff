package finance

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/erp/settlement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentMethod is how a payment was made
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "cash"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodCard         PaymentMethod = "card"
	PaymentMethodCheck        PaymentMethod = "check"
	PaymentMethodGateway      PaymentMethod = "gateway"
	PaymentMethodOther        PaymentMethod = "other"
)

// IsValid checks if the payment method is valid
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodBankTransfer, PaymentMethodCard,
		PaymentMethodCheck, PaymentMethodGateway, PaymentMethodOther:
		return true
	}
	return false
}

// String returns the string representation of PaymentMethod
func (m PaymentMethod) String() string {
	return string(m)
}

// Allocation is the share of a payment applied to one document
type Allocation struct {
	DocumentID uuid.UUID       `json:"document_id"`
	Amount     decimal.Decimal `json:"amount"`
}

// Allocations implements GORM Scanner/Valuer for JSONB storage
type Allocations []Allocation

// Value implements driver.Valuer
func (a Allocations) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (a *Allocations) Scan(value any) error {
	return scanJSON(value, a, func() { *a = Allocations{} })
}

// Total returns the sum of all allocated amounts
func (a Allocations) Total() decimal.Decimal {
	total := decimal.Zero
	for _, x := range a {
		total = total.Add(x.Amount)
	}
	return total
}

// DocumentIDs implements GORM Scanner/Valuer for a JSON array of ids
type DocumentIDs []uuid.UUID

// Value implements driver.Valuer
func (d DocumentIDs) Value() (driver.Value, error) {
	if d == nil {
		return "[]", nil
	}
	b, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (d *DocumentIDs) Scan(value any) error {
	return scanJSON(value, d, func() { *d = DocumentIDs{} })
}

// Payment is an immutable record of money received from a customer or
// paid to a vendor, split across the documents it settles.
type Payment struct {
	shared.TenantAggregateRoot
	PaymentNumber   string          `json:"payment_number"`
	PartyType       PartyType       `json:"party_type"`
	PartyID         string          `json:"party_id"`
	DocumentIDs     DocumentIDs     `json:"document_ids"`
	Allocations     Allocations     `json:"allocations"`
	Amount          decimal.Decimal `json:"amount"`
	Method          PaymentMethod   `json:"method"`
	ReferenceNumber string          `json:"reference_number"`
	PaymentDate     time.Time       `json:"payment_date"`
	IdempotencyKey  *string         `json:"idempotency_key,omitempty"`
}

// NewPaymentParams holds the inputs for recording a payment
type NewPaymentParams struct {
	TenantID        uuid.UUID
	PaymentNumber   string
	PartyType       PartyType
	PartyID         string
	Allocations     Allocations
	Method          PaymentMethod
	ReferenceNumber string
	PaymentDate     time.Time
	IdempotencyKey  string
}

// NewPayment builds a payment from an already computed allocation
func NewPayment(p NewPaymentParams) (*Payment, error) {
	if !p.PartyType.IsValid() {
		return nil, shared.NewValidationError("invalid party type %q", p.PartyType)
	}
	if p.PartyID == "" {
		return nil, shared.NewValidationError("party id cannot be empty")
	}
	if !p.Method.IsValid() {
		return nil, shared.NewValidationError("invalid payment method %q", p.Method)
	}
	if len(p.Allocations) == 0 {
		return nil, shared.NewValidationError("payment must be allocated to at least one document")
	}
	amount := p.Allocations.Total()
	if !amount.IsPositive() {
		return nil, shared.NewValidationError("payment amount must be positive")
	}

	ids := make(DocumentIDs, 0, len(p.Allocations))
	for _, a := range p.Allocations {
		ids = append(ids, a.DocumentID)
	}

	payment := &Payment{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(p.TenantID),
		PaymentNumber:       p.PaymentNumber,
		PartyType:           p.PartyType,
		PartyID:             p.PartyID,
		DocumentIDs:         ids,
		Allocations:         p.Allocations,
		Amount:              amount,
		Method:              p.Method,
		ReferenceNumber:     p.ReferenceNumber,
		PaymentDate:         p.PaymentDate.UTC(),
	}
	if p.IdempotencyKey != "" {
		key := p.IdempotencyKey
		payment.IdempotencyKey = &key
	}

	payment.AddDomainEvent(NewPaymentAppliedEvent(payment))
	return payment, nil
}
