package finance

import (
	"time"

	"github.com/erp/settlement/internal/domain/finance"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ===================== Billing Documents =====================

// LineItemRequest is one line of a document to create
type LineItemRequest struct {
	Description string          `json:"description" binding:"max=500"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price" binding:"decimal_gte0"`
}

// CreateDocumentRequest creates an invoice or a bill
type CreateDocumentRequest struct {
	PartyID   string            `json:"party_id" binding:"required,max=100"`
	PartyName string            `json:"party_name" binding:"max=200"`
	LineItems []LineItemRequest `json:"line_items" binding:"required,min=1,dive"`
	IssueDate time.Time         `json:"issue_date"`
	DueDate   time.Time         `json:"due_date"`
	Draft     bool              `json:"draft"`
	Remark    string            `json:"remark" binding:"max=500"`
}

// CancelDocumentRequest cancels a document
type CancelDocumentRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// DocumentListFilter defines filtering options for document list queries
type DocumentListFilter struct {
	Search   string     `form:"search" binding:"max=100"`
	PartyID  string     `form:"party_id"`
	Status   string     `form:"status" binding:"omitempty,oneof=draft sent partial paid overdue cancelled"`
	DueFrom  *time.Time `form:"due_from" time_format:"2006-01-02"`
	DueTo    *time.Time `form:"due_to" time_format:"2006-01-02"`
	Page     int        `form:"page"`
	PageSize int        `form:"page_size" binding:"omitempty,max=100"`
	OrderBy  string     `form:"order_by" binding:"omitempty,oneof=created_at due_date issue_date document_number total"`
	OrderDir string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// LineItemResponse is a document line in API responses
type LineItemResponse struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Amount      decimal.Decimal `json:"amount"`
}

// PaymentHistoryResponse is an applied payment in API responses
type PaymentHistoryResponse struct {
	PaymentID uuid.UUID       `json:"payment_id"`
	Amount    decimal.Decimal `json:"amount"`
	AppliedAt time.Time       `json:"applied_at"`
	Method    string          `json:"method"`
	Reference string          `json:"reference,omitempty"`
}

// DocumentResponse represents an invoice or bill in API responses.
// Status is the status seen at read time, so it may be overdue.
type DocumentResponse struct {
	ID             uuid.UUID                `json:"id"`
	TenantID       uuid.UUID                `json:"tenant_id"`
	Kind           string                   `json:"kind"`
	DocumentNumber string                   `json:"document_number"`
	PartyType      string                   `json:"party_type"`
	PartyID        string                   `json:"party_id"`
	PartyName      string                   `json:"party_name"`
	LineItems      []LineItemResponse       `json:"line_items"`
	Subtotal       decimal.Decimal          `json:"subtotal"`
	Total          decimal.Decimal          `json:"total"`
	AmountPaid     decimal.Decimal          `json:"amount_paid"`
	AmountDue      decimal.Decimal          `json:"amount_due"`
	IssueDate      time.Time                `json:"issue_date"`
	DueDate        time.Time                `json:"due_date"`
	Status         string                   `json:"status"`
	DaysPastDue    int                      `json:"days_past_due"`
	PaymentHistory []PaymentHistoryResponse `json:"payment_history"`
	Remark         string                   `json:"remark,omitempty"`
	SentAt         *time.Time               `json:"sent_at,omitempty"`
	PaidAt         *time.Time               `json:"paid_at,omitempty"`
	CancelledAt    *time.Time               `json:"cancelled_at,omitempty"`
	CancelReason   string                   `json:"cancel_reason,omitempty"`
	CreatedAt      time.Time                `json:"created_at"`
	UpdatedAt      time.Time                `json:"updated_at"`
	Version        int                      `json:"version"`
}

func toDocumentResponse(d *finance.BillingDocument, asOf time.Time) DocumentResponse {
	lines := make([]LineItemResponse, 0, len(d.LineItems))
	for _, l := range d.LineItems {
		lines = append(lines, LineItemResponse{
			Description: l.Description,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			Amount:      l.Amount,
		})
	}
	history := make([]PaymentHistoryResponse, 0, len(d.PaymentHistory))
	for _, h := range d.PaymentHistory {
		history = append(history, PaymentHistoryResponse{
			PaymentID: h.PaymentID,
			Amount:    h.Amount,
			AppliedAt: h.AppliedAt,
			Method:    string(h.Method),
			Reference: h.Reference,
		})
	}
	days := 0
	if d.IsOverdue(asOf) {
		days = d.DaysPastDue(asOf)
	}
	return DocumentResponse{
		ID:             d.ID,
		TenantID:       d.TenantID,
		Kind:           string(d.Kind),
		DocumentNumber: d.DocumentNumber,
		PartyType:      string(d.PartyType),
		PartyID:        d.PartyID,
		PartyName:      d.PartyName,
		LineItems:      lines,
		Subtotal:       d.Subtotal,
		Total:          d.Total,
		AmountPaid:     d.AmountPaid,
		AmountDue:      d.AmountDue,
		IssueDate:      d.IssueDate,
		DueDate:        d.DueDate,
		Status:         string(d.DisplayStatus(asOf)),
		DaysPastDue:    days,
		PaymentHistory: history,
		Remark:         d.Remark,
		SentAt:         d.SentAt,
		PaidAt:         d.PaidAt,
		CancelledAt:    d.CancelledAt,
		CancelReason:   d.CancelReason,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
		Version:        d.Version,
	}
}

// ===================== Payments =====================

// AllocationRequest assigns part of a payment to one document
type AllocationRequest struct {
	DocumentID uuid.UUID       `json:"document_id" binding:"required"`
	Amount     decimal.Decimal `json:"amount"`
}

// ApplyPaymentRequest applies one payment across a set of documents.
// Without allocations the amount is split in proportion to amount due.
type ApplyPaymentRequest struct {
	PartyType       string              `json:"party_type" binding:"required,oneof=customer vendor"`
	PartyID         string              `json:"party_id" binding:"required,max=100"`
	DocumentIDs     []uuid.UUID         `json:"document_ids" binding:"required,min=1"`
	Amount          decimal.Decimal     `json:"amount"`
	Method          string              `json:"method" binding:"required,oneof=cash bank_transfer card check gateway other"`
	ReferenceNumber string              `json:"reference_number" binding:"max=100"`
	PaymentDate     *time.Time          `json:"payment_date"`
	Allocations     []AllocationRequest `json:"allocations" binding:"omitempty,dive"`
	IdempotencyKey  string              `json:"idempotency_key" binding:"max=128"`
}

// AllocationResponse is one document's share of a payment
type AllocationResponse struct {
	DocumentID uuid.UUID       `json:"document_id"`
	Amount     decimal.Decimal `json:"amount"`
}

// PaymentResponse represents a payment in API responses.
// Replayed is set when an idempotency key matched an earlier payment.
type PaymentResponse struct {
	ID              uuid.UUID            `json:"id"`
	TenantID        uuid.UUID            `json:"tenant_id"`
	PaymentNumber   string               `json:"payment_number"`
	PartyType       string               `json:"party_type"`
	PartyID         string               `json:"party_id"`
	DocumentIDs     []uuid.UUID          `json:"document_ids"`
	Allocations     []AllocationResponse `json:"allocations"`
	Amount          decimal.Decimal      `json:"amount"`
	Method          string               `json:"method"`
	ReferenceNumber string               `json:"reference_number,omitempty"`
	PaymentDate     time.Time            `json:"payment_date"`
	IdempotencyKey  string               `json:"idempotency_key,omitempty"`
	CreatedAt       time.Time            `json:"created_at"`
	Replayed        bool                 `json:"replayed"`
}

func toPaymentResponse(p *finance.Payment, replayed bool) *PaymentResponse {
	allocations := make([]AllocationResponse, 0, len(p.Allocations))
	for _, a := range p.Allocations {
		allocations = append(allocations, AllocationResponse{DocumentID: a.DocumentID, Amount: a.Amount})
	}
	resp := &PaymentResponse{
		ID:              p.ID,
		TenantID:        p.TenantID,
		PaymentNumber:   p.PaymentNumber,
		PartyType:       string(p.PartyType),
		PartyID:         p.PartyID,
		DocumentIDs:     append([]uuid.UUID{}, p.DocumentIDs...),
		Allocations:     allocations,
		Amount:          p.Amount,
		Method:          string(p.Method),
		ReferenceNumber: p.ReferenceNumber,
		PaymentDate:     p.PaymentDate,
		CreatedAt:       p.CreatedAt,
		Replayed:        replayed,
	}
	if p.IdempotencyKey != nil {
		resp.IdempotencyKey = *p.IdempotencyKey
	}
	return resp
}

// ===================== Party Accounts =====================

// PartyAccountResponse represents a party's running balance
type PartyAccountResponse struct {
	ID                  uuid.UUID       `json:"id"`
	PartyType           string          `json:"party_type"`
	PartyID             string          `json:"party_id"`
	PartyName           string          `json:"party_name"`
	OutstandingBalance  decimal.Decimal `json:"outstanding_balance"`
	TotalLifetimeAmount decimal.Decimal `json:"total_lifetime_amount"`
	TotalPaidAmount     decimal.Decimal `json:"total_paid_amount"`
	LastActivityDate    *time.Time      `json:"last_activity_date,omitempty"`
	LastPaymentDate     *time.Time      `json:"last_payment_date,omitempty"`
	UpdatedAt           time.Time       `json:"updated_at"`
	Version             int             `json:"version"`
}

func toPartyAccountResponse(a *finance.PartyAccount) *PartyAccountResponse {
	return &PartyAccountResponse{
		ID:                  a.ID,
		PartyType:           string(a.PartyType),
		PartyID:             a.PartyID,
		PartyName:           a.PartyName,
		OutstandingBalance:  a.OutstandingBalance,
		TotalLifetimeAmount: a.TotalLifetimeAmount,
		TotalPaidAmount:     a.TotalPaidAmount,
		LastActivityDate:    a.LastActivityDate,
		LastPaymentDate:     a.LastPaymentDate,
		UpdatedAt:           a.UpdatedAt,
		Version:             a.Version,
	}
}

// BalanceCorrection is one party whose cached balance had drifted
type BalanceCorrection struct {
	PartyType  string          `json:"party_type"`
	PartyID    string          `json:"party_id"`
	Previous   decimal.Decimal `json:"previous"`
	Recomputed decimal.Decimal `json:"recomputed"`
	Drift      decimal.Decimal `json:"drift"`
}

// BalanceFailure is a party whose balance could not be checked
type BalanceFailure struct {
	PartyType string `json:"party_type"`
	PartyID   string `json:"party_id"`
	Error     string `json:"error"`
}

// BalanceReconciliationReport summarizes a balance reconciliation run
type BalanceReconciliationReport struct {
	CheckedAt       time.Time           `json:"checked_at"`
	AccountsChecked int                 `json:"accounts_checked"`
	Corrections     []BalanceCorrection `json:"corrections"`
	Failures        []BalanceFailure    `json:"failures"`
}
