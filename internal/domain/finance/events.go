package finance

import (
	"time"

	"github.com/erp/settlement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event type names
const (
	EventTypeDocumentCreated      = "BillingDocumentCreated"
	EventTypeDocumentSent         = "BillingDocumentSent"
	EventTypeDocumentPaid         = "BillingDocumentPaid"
	EventTypeDocumentCancelled    = "BillingDocumentCancelled"
	EventTypePaymentApplied       = "PaymentApplied"
	EventTypeBalanceDriftDetected = "PartyBalanceDriftDetected"
)

const (
	aggregateTypeDocument = "BillingDocument"
	aggregateTypePayment  = "Payment"
	aggregateTypeParty    = "PartyAccount"
)

// DocumentCreatedEvent is raised when an invoice or bill is recorded
type DocumentCreatedEvent struct {
	shared.BaseDomainEvent
	DocumentID     uuid.UUID       `json:"document_id"`
	Kind           DocumentKind    `json:"kind"`
	DocumentNumber string          `json:"document_number"`
	PartyType      PartyType       `json:"party_type"`
	PartyID        string          `json:"party_id"`
	Total          decimal.Decimal `json:"total"`
	DueDate        time.Time       `json:"due_date"`
}

// EventType returns the event type name
func (e *DocumentCreatedEvent) EventType() string {
	return EventTypeDocumentCreated
}

// NewDocumentCreatedEvent creates a new DocumentCreatedEvent
func NewDocumentCreatedEvent(d *BillingDocument) *DocumentCreatedEvent {
	return &DocumentCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDocumentCreated, aggregateTypeDocument, d.ID, d.TenantID),
		DocumentID:      d.ID,
		Kind:            d.Kind,
		DocumentNumber:  d.DocumentNumber,
		PartyType:       d.PartyType,
		PartyID:         d.PartyID,
		Total:           d.Total,
		DueDate:         d.DueDate,
	}
}

// DocumentSentEvent is raised when a document is issued to the party
type DocumentSentEvent struct {
	shared.BaseDomainEvent
	DocumentID     uuid.UUID       `json:"document_id"`
	Kind           DocumentKind    `json:"kind"`
	DocumentNumber string          `json:"document_number"`
	PartyID        string          `json:"party_id"`
	PartyName      string          `json:"party_name"`
	AmountDue      decimal.Decimal `json:"amount_due"`
	DueDate        time.Time       `json:"due_date"`
}

// EventType returns the event type name
func (e *DocumentSentEvent) EventType() string {
	return EventTypeDocumentSent
}

// NewDocumentSentEvent creates a new DocumentSentEvent
func NewDocumentSentEvent(d *BillingDocument) *DocumentSentEvent {
	return &DocumentSentEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDocumentSent, aggregateTypeDocument, d.ID, d.TenantID),
		DocumentID:      d.ID,
		Kind:            d.Kind,
		DocumentNumber:  d.DocumentNumber,
		PartyID:         d.PartyID,
		PartyName:       d.PartyName,
		AmountDue:       d.AmountDue,
		DueDate:         d.DueDate,
	}
}

// DocumentPaidEvent is raised when a document's amount due reaches zero
type DocumentPaidEvent struct {
	shared.BaseDomainEvent
	DocumentID     uuid.UUID       `json:"document_id"`
	Kind           DocumentKind    `json:"kind"`
	DocumentNumber string          `json:"document_number"`
	PartyID        string          `json:"party_id"`
	Total          decimal.Decimal `json:"total"`
}

// EventType returns the event type name
func (e *DocumentPaidEvent) EventType() string {
	return EventTypeDocumentPaid
}

// NewDocumentPaidEvent creates a new DocumentPaidEvent
func NewDocumentPaidEvent(d *BillingDocument) *DocumentPaidEvent {
	return &DocumentPaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDocumentPaid, aggregateTypeDocument, d.ID, d.TenantID),
		DocumentID:      d.ID,
		Kind:            d.Kind,
		DocumentNumber:  d.DocumentNumber,
		PartyID:         d.PartyID,
		Total:           d.Total,
	}
}

// DocumentCancelledEvent is raised when a document is cancelled
type DocumentCancelledEvent struct {
	shared.BaseDomainEvent
	DocumentID     uuid.UUID       `json:"document_id"`
	Kind           DocumentKind    `json:"kind"`
	DocumentNumber string          `json:"document_number"`
	PartyID        string          `json:"party_id"`
	ReleasedAmount decimal.Decimal `json:"released_amount"`
	Reason         string          `json:"reason"`
}

// EventType returns the event type name
func (e *DocumentCancelledEvent) EventType() string {
	return EventTypeDocumentCancelled
}

// NewDocumentCancelledEvent creates a new DocumentCancelledEvent
func NewDocumentCancelledEvent(d *BillingDocument, released decimal.Decimal) *DocumentCancelledEvent {
	return &DocumentCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDocumentCancelled, aggregateTypeDocument, d.ID, d.TenantID),
		DocumentID:      d.ID,
		Kind:            d.Kind,
		DocumentNumber:  d.DocumentNumber,
		PartyID:         d.PartyID,
		ReleasedAmount:  released,
		Reason:          d.CancelReason,
	}
}

// PaymentAppliedEvent is raised when a payment has been allocated
type PaymentAppliedEvent struct {
	shared.BaseDomainEvent
	PaymentID     uuid.UUID       `json:"payment_id"`
	PaymentNumber string          `json:"payment_number"`
	PartyType     PartyType       `json:"party_type"`
	PartyID       string          `json:"party_id"`
	Amount        decimal.Decimal `json:"amount"`
	Allocations   Allocations     `json:"allocations"`
}

// EventType returns the event type name
func (e *PaymentAppliedEvent) EventType() string {
	return EventTypePaymentApplied
}

// NewPaymentAppliedEvent creates a new PaymentAppliedEvent
func NewPaymentAppliedEvent(p *Payment) *PaymentAppliedEvent {
	return &PaymentAppliedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentApplied, aggregateTypePayment, p.ID, p.TenantID),
		PaymentID:       p.ID,
		PaymentNumber:   p.PaymentNumber,
		PartyType:       p.PartyType,
		PartyID:         p.PartyID,
		Amount:          p.Amount,
		Allocations:     p.Allocations,
	}
}

// BalanceDriftDetectedEvent is raised when reconciliation corrects a cached balance
type BalanceDriftDetectedEvent struct {
	shared.BaseDomainEvent
	PartyType       PartyType       `json:"party_type"`
	PartyID         string          `json:"party_id"`
	PreviousBalance decimal.Decimal `json:"previous_balance"`
	Recomputed      decimal.Decimal `json:"recomputed"`
	Drift           decimal.Decimal `json:"drift"`
}

// EventType returns the event type name
func (e *BalanceDriftDetectedEvent) EventType() string {
	return EventTypeBalanceDriftDetected
}

// NewBalanceDriftDetectedEvent creates a new BalanceDriftDetectedEvent
func NewBalanceDriftDetectedEvent(a *PartyAccount, previous, drift decimal.Decimal) *BalanceDriftDetectedEvent {
	return &BalanceDriftDetectedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBalanceDriftDetected, aggregateTypeParty, a.ID, a.TenantID),
		PartyType:       a.PartyType,
		PartyID:         a.PartyID,
		PreviousBalance: previous,
		Recomputed:      a.OutstandingBalance,
		Drift:           drift,
	}
}
