package finance

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/erp/settlement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DocumentKind distinguishes AR invoices from AP bills.
// Both share the BillingDocument model.
type DocumentKind string

const (
	DocumentKindInvoice DocumentKind = "invoice"
	DocumentKindBill    DocumentKind = "bill"
)

// IsValid checks if the document kind is valid
func (k DocumentKind) IsValid() bool {
	return k == DocumentKindInvoice || k == DocumentKindBill
}

// String returns the string representation of DocumentKind
func (k DocumentKind) String() string {
	return string(k)
}

// PartyType returns the counterparty type for the document kind
func (k DocumentKind) PartyType() PartyType {
	if k == DocumentKindBill {
		return PartyTypeVendor
	}
	return PartyTypeCustomer
}

// NumberPrefix returns the document number prefix for the kind
func (k DocumentKind) NumberPrefix() string {
	if k == DocumentKindBill {
		return "BILL"
	}
	return "INV"
}

// DocumentStatus represents the status of a billing document
type DocumentStatus string

const (
	DocumentStatusDraft     DocumentStatus = "draft"
	DocumentStatusSent      DocumentStatus = "sent"
	DocumentStatusPartial   DocumentStatus = "partial"
	DocumentStatusPaid      DocumentStatus = "paid"
	DocumentStatusOverdue   DocumentStatus = "overdue" // derived on read, never stored
	DocumentStatusCancelled DocumentStatus = "cancelled"
)

// IsValid checks if the status is a valid DocumentStatus
func (s DocumentStatus) IsValid() bool {
	switch s {
	case DocumentStatusDraft, DocumentStatusSent, DocumentStatusPartial,
		DocumentStatusPaid, DocumentStatusOverdue, DocumentStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of DocumentStatus
func (s DocumentStatus) String() string {
	return string(s)
}

// IsTerminal returns true if the document can no longer change
func (s DocumentStatus) IsTerminal() bool {
	return s == DocumentStatusPaid || s == DocumentStatusCancelled
}

// IsOpen returns true if the document is issued and still carries an amount due
func (s DocumentStatus) IsOpen() bool {
	return s == DocumentStatusSent || s == DocumentStatusPartial || s == DocumentStatusOverdue
}

// CanApplyPayment returns true if payments can be applied in this status
func (s DocumentStatus) CanApplyPayment() bool {
	return s == DocumentStatusSent || s == DocumentStatusPartial
}

// LineItem is a single priced line on a billing document
type LineItem struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Amount      decimal.Decimal `json:"amount"`
}

// LineItems implements GORM Scanner/Valuer for JSONB storage
type LineItems []LineItem

// Value implements driver.Valuer
func (l LineItems) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (l *LineItems) Scan(value any) error {
	return scanJSON(value, l, func() { *l = LineItems{} })
}

// PaymentHistoryEntry references a payment applied to the document.
// The Payment itself is owned by the payment aggregate.
type PaymentHistoryEntry struct {
	PaymentID uuid.UUID       `json:"payment_id"`
	Amount    decimal.Decimal `json:"amount"`
	AppliedAt time.Time       `json:"applied_at"`
	Method    PaymentMethod   `json:"method"`
	Reference string          `json:"reference,omitempty"`
}

// PaymentHistory implements GORM Scanner/Valuer for JSONB storage
type PaymentHistory []PaymentHistoryEntry

// Value implements driver.Valuer
func (p PaymentHistory) Value() (driver.Value, error) {
	if p == nil {
		return "[]", nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (p *PaymentHistory) Scan(value any) error {
	return scanJSON(value, p, func() { *p = PaymentHistory{} })
}

func scanJSON(value any, dest any, empty func()) error {
	if value == nil {
		empty()
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan JSON column: unsupported type")
	}

	if len(bytes) == 0 {
		empty()
		return nil
	}
	return json.Unmarshal(bytes, dest)
}

// LineItemInput is the caller-supplied part of a line item
type LineItemInput struct {
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
}

// NewDocumentParams holds the inputs for creating a billing document
type NewDocumentParams struct {
	TenantID       uuid.UUID
	Kind           DocumentKind
	DocumentNumber string
	PartyID        string
	PartyName      string
	LineItems      []LineItemInput
	IssueDate      time.Time
	DueDate        time.Time
	Draft          bool
	Remark         string
	At             time.Time
}

// BillingDocument is an invoice (AR) or bill (AP) aggregate root.
// It is never deleted; cancellation keeps the record for audit.
type BillingDocument struct {
	shared.TenantAggregateRoot
	Kind           DocumentKind    `json:"kind"`
	DocumentNumber string          `json:"document_number"`
	PartyType      PartyType       `json:"party_type"`
	PartyID        string          `json:"party_id"`
	PartyName      string          `json:"party_name"`
	LineItems      LineItems       `json:"line_items"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	Total          decimal.Decimal `json:"total"`
	AmountPaid     decimal.Decimal `json:"amount_paid"`
	AmountDue      decimal.Decimal `json:"amount_due"`
	IssueDate      time.Time       `json:"issue_date"`
	DueDate        time.Time       `json:"due_date"`
	Status         DocumentStatus  `json:"status"`
	PaymentHistory PaymentHistory  `json:"payment_history"`
	Remark         string          `json:"remark"`
	SentAt         *time.Time      `json:"sent_at"`
	PaidAt         *time.Time      `json:"paid_at"`
	CancelledAt    *time.Time      `json:"cancelled_at"`
	CancelReason   string          `json:"cancel_reason"`
}

// NewBillingDocument validates the line items and builds a document.
// Totals are Σ(quantity × unitPrice) rounded once to two decimals.
func NewBillingDocument(p NewDocumentParams) (*BillingDocument, error) {
	if !p.Kind.IsValid() {
		return nil, shared.NewValidationError("invalid document kind %q", p.Kind)
	}
	if p.DocumentNumber == "" {
		return nil, shared.NewValidationError("document number cannot be empty")
	}
	if p.PartyID == "" {
		return nil, shared.NewValidationError("party id cannot be empty")
	}
	if len(p.LineItems) == 0 {
		return nil, shared.NewValidationError("at least one line item is required")
	}
	if p.IssueDate.IsZero() || p.DueDate.IsZero() {
		return nil, shared.NewValidationError("issue date and due date are required")
	}

	items := make(LineItems, 0, len(p.LineItems))
	subtotal := decimal.Zero
	for i, in := range p.LineItems {
		if in.Quantity.IsNegative() {
			return nil, shared.NewValidationError("line %d: quantity cannot be negative", i+1)
		}
		if in.UnitPrice.IsNegative() {
			return nil, shared.NewValidationError("line %d: unit price cannot be negative", i+1)
		}
		amount := in.Quantity.Mul(in.UnitPrice)
		items = append(items, LineItem{
			Description: in.Description,
			Quantity:    in.Quantity,
			UnitPrice:   in.UnitPrice,
			Amount:      amount,
		})
		subtotal = subtotal.Add(amount)
	}
	subtotal = shared.Round2(subtotal)

	doc := &BillingDocument{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(p.TenantID),
		Kind:                p.Kind,
		DocumentNumber:      p.DocumentNumber,
		PartyType:           p.Kind.PartyType(),
		PartyID:             p.PartyID,
		PartyName:           p.PartyName,
		LineItems:           items,
		Subtotal:            subtotal,
		Total:               subtotal,
		AmountPaid:          decimal.Zero,
		AmountDue:           subtotal,
		IssueDate:           p.IssueDate.UTC(),
		DueDate:             p.DueDate.UTC(),
		Status:              DocumentStatusDraft,
		PaymentHistory:      PaymentHistory{},
		Remark:              p.Remark,
	}
	if !p.At.IsZero() {
		doc.CreatedAt = p.At.UTC()
		doc.UpdatedAt = doc.CreatedAt
	}

	doc.AddDomainEvent(NewDocumentCreatedEvent(doc))

	if !p.Draft {
		doc.issue(doc.CreatedAt)
	}
	return doc, nil
}

// Send moves a draft document to sent
func (d *BillingDocument) Send(at time.Time) error {
	if d.Status != DocumentStatusDraft {
		return shared.NewInvalidStateError("cannot send %s %s in %s status", d.Kind, d.DocumentNumber, d.Status)
	}
	d.issue(at)
	d.UpdatedAt = at
	d.IncrementVersion()
	return nil
}

// issue marks the document sent, or paid outright when nothing is owed
func (d *BillingDocument) issue(at time.Time) {
	sentAt := at
	d.SentAt = &sentAt
	if d.AmountDue.IsZero() {
		d.Status = DocumentStatusPaid
		d.PaidAt = &sentAt
		return
	}
	d.Status = DocumentStatusSent
	d.AddDomainEvent(NewDocumentSentEvent(d))
}

// ApplyPayment applies an allocated share of a payment to the document
func (d *BillingDocument) ApplyPayment(paymentID uuid.UUID, amount decimal.Decimal, method PaymentMethod, reference string, at time.Time) error {
	if !d.Status.CanApplyPayment() {
		return shared.NewInvalidStateError("cannot apply payment to %s %s in %s status", d.Kind, d.DocumentNumber, d.Status)
	}
	if !amount.IsPositive() {
		return shared.NewValidationError("payment amount must be positive")
	}
	if amount.GreaterThan(d.AmountDue) {
		return shared.NewDomainError(shared.CodeOverpayment,
			fmt.Sprintf("payment amount %s exceeds amount due %s on %s", amount.StringFixed(2), d.AmountDue.StringFixed(2), d.DocumentNumber))
	}

	d.PaymentHistory = append(d.PaymentHistory, PaymentHistoryEntry{
		PaymentID: paymentID,
		Amount:    amount,
		AppliedAt: at,
		Method:    method,
		Reference: reference,
	})
	d.AmountPaid = d.AmountPaid.Add(amount)
	d.AmountDue = d.Total.Sub(d.AmountPaid)

	if d.AmountDue.IsZero() {
		paidAt := at
		d.Status = DocumentStatusPaid
		d.PaidAt = &paidAt
		d.AddDomainEvent(NewDocumentPaidEvent(d))
	} else {
		d.Status = DocumentStatusPartial
	}

	d.UpdatedAt = at
	d.IncrementVersion()
	return nil
}

// Cancel cancels the document and returns the amount due it releases
// from the party balance
func (d *BillingDocument) Cancel(reason string, at time.Time) (decimal.Decimal, error) {
	if d.Status.IsTerminal() {
		return decimal.Zero, shared.NewInvalidStateError("cannot cancel %s %s in %s status", d.Kind, d.DocumentNumber, d.Status)
	}

	released := d.AmountDue
	cancelledAt := at
	d.Status = DocumentStatusCancelled
	d.CancelledAt = &cancelledAt
	d.CancelReason = reason
	d.UpdatedAt = at
	d.IncrementVersion()

	d.AddDomainEvent(NewDocumentCancelledEvent(d, released))
	return released, nil
}

// IsOverdue reports whether the document is past due with money still owed
func (d *BillingDocument) IsOverdue(asOf time.Time) bool {
	if d.Status != DocumentStatusSent && d.Status != DocumentStatusPartial {
		return false
	}
	return d.AmountDue.IsPositive() && d.DueDate.Before(asOf)
}

// DisplayStatus returns the status as seen at asOf, deriving overdue
func (d *BillingDocument) DisplayStatus(asOf time.Time) DocumentStatus {
	if d.IsOverdue(asOf) {
		return DocumentStatusOverdue
	}
	return d.Status
}

// DaysPastDue returns whole calendar days (UTC) between the due date and asOf.
// Zero or negative means not yet past due.
func (d *BillingDocument) DaysPastDue(asOf time.Time) int {
	due := truncateToDay(d.DueDate)
	ref := truncateToDay(asOf)
	return int(ref.Sub(due).Hours() / 24)
}

// OwedAmount is total - amountPaid, the document's contribution to the
// party balance. Cancelled documents owe nothing.
func (d *BillingDocument) OwedAmount() decimal.Decimal {
	if d.Status == DocumentStatusCancelled {
		return decimal.Zero
	}
	return d.Total.Sub(d.AmountPaid)
}

func truncateToDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
