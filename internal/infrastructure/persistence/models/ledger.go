package models

import (
	"time"

	"github.com/erp/settlement/internal/domain/finance"
	"github.com/shopspring/decimal"
)

// PartyAccountModel is the persistence model for the PartyAccount aggregate.
// Tenant scoped unique indexes are declared in the SQL migrations.
type PartyAccountModel struct {
	TenantAggregateModel
	PartyType           finance.PartyType `gorm:"type:varchar(20);not null"`
	PartyID             string            `gorm:"type:varchar(100);not null"`
	PartyName           string            `gorm:"type:varchar(200)"`
	OutstandingBalance  decimal.Decimal   `gorm:"column:balance;type:decimal(18,4);not null;default:0"`
	TotalLifetimeAmount decimal.Decimal   `gorm:"type:decimal(18,4);not null;default:0"`
	TotalPaidAmount     decimal.Decimal   `gorm:"type:decimal(18,4);not null;default:0"`
	LastActivityDate    *time.Time
	LastPaymentDate     *time.Time
}

// TableName returns the table name for GORM
func (PartyAccountModel) TableName() string {
	return "party_accounts"
}

// ToDomain converts the persistence model to a domain PartyAccount
func (m *PartyAccountModel) ToDomain() *finance.PartyAccount {
	a := &finance.PartyAccount{
		PartyType:           m.PartyType,
		PartyID:             m.PartyID,
		PartyName:           m.PartyName,
		OutstandingBalance:  m.OutstandingBalance,
		TotalLifetimeAmount: m.TotalLifetimeAmount,
		TotalPaidAmount:     m.TotalPaidAmount,
		LastActivityDate:    m.LastActivityDate,
		LastPaymentDate:     m.LastPaymentDate,
	}
	m.PopulateTenantAggregateRoot(&a.TenantAggregateRoot)
	return a
}

// FromDomain populates the persistence model from a domain PartyAccount
func (m *PartyAccountModel) FromDomain(a *finance.PartyAccount) {
	m.FromDomainTenantAggregateRoot(a.TenantAggregateRoot)
	m.PartyType = a.PartyType
	m.PartyID = a.PartyID
	m.PartyName = a.PartyName
	m.OutstandingBalance = a.OutstandingBalance
	m.TotalLifetimeAmount = a.TotalLifetimeAmount
	m.TotalPaidAmount = a.TotalPaidAmount
	m.LastActivityDate = a.LastActivityDate
	m.LastPaymentDate = a.LastPaymentDate
}

// PartyAccountModelFromDomain creates a new persistence model from a domain PartyAccount
func PartyAccountModelFromDomain(a *finance.PartyAccount) *PartyAccountModel {
	m := &PartyAccountModel{}
	m.FromDomain(a)
	return m
}

// BillingDocumentModel is the persistence model for invoices and bills.
// Line items and payment history are stored as JSON columns.
type BillingDocumentModel struct {
	TenantAggregateModel
	Kind           finance.DocumentKind   `gorm:"type:varchar(20);not null;index"`
	DocumentNumber string                 `gorm:"type:varchar(50);not null"`
	PartyType      finance.PartyType      `gorm:"type:varchar(20);not null"`
	PartyID        string                 `gorm:"type:varchar(100);not null;index"`
	PartyName      string                 `gorm:"type:varchar(200)"`
	LineItems      finance.LineItems      `gorm:"type:jsonb;not null"`
	Subtotal       decimal.Decimal        `gorm:"type:decimal(18,4);not null"`
	Total          decimal.Decimal        `gorm:"type:decimal(18,4);not null"`
	AmountPaid     decimal.Decimal        `gorm:"type:decimal(18,4);not null;default:0"`
	IssueDate      time.Time              `gorm:"not null"`
	DueDate        time.Time              `gorm:"not null;index"`
	Status         finance.DocumentStatus `gorm:"type:varchar(20);not null;index"`
	PaymentHistory finance.PaymentHistory `gorm:"type:jsonb;not null"`
	Remark         string                 `gorm:"type:text"`
	SentAt         *time.Time
	PaidAt         *time.Time
	CancelledAt    *time.Time
	CancelReason   string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (BillingDocumentModel) TableName() string {
	return "billing_documents"
}

// ToDomain converts the persistence model to a domain BillingDocument.
// AmountDue is derived and therefore not stored.
func (m *BillingDocumentModel) ToDomain() *finance.BillingDocument {
	d := &finance.BillingDocument{
		Kind:           m.Kind,
		DocumentNumber: m.DocumentNumber,
		PartyType:      m.PartyType,
		PartyID:        m.PartyID,
		PartyName:      m.PartyName,
		LineItems:      m.LineItems,
		Subtotal:       m.Subtotal,
		Total:          m.Total,
		AmountPaid:     m.AmountPaid,
		AmountDue:      m.Total.Sub(m.AmountPaid),
		IssueDate:      m.IssueDate,
		DueDate:        m.DueDate,
		Status:         m.Status,
		PaymentHistory: m.PaymentHistory,
		Remark:         m.Remark,
		SentAt:         m.SentAt,
		PaidAt:         m.PaidAt,
		CancelledAt:    m.CancelledAt,
		CancelReason:   m.CancelReason,
	}
	if d.LineItems == nil {
		d.LineItems = finance.LineItems{}
	}
	if d.PaymentHistory == nil {
		d.PaymentHistory = finance.PaymentHistory{}
	}
	m.PopulateTenantAggregateRoot(&d.TenantAggregateRoot)
	return d
}

// FromDomain populates the persistence model from a domain BillingDocument
func (m *BillingDocumentModel) FromDomain(d *finance.BillingDocument) {
	m.FromDomainTenantAggregateRoot(d.TenantAggregateRoot)
	m.Kind = d.Kind
	m.DocumentNumber = d.DocumentNumber
	m.PartyType = d.PartyType
	m.PartyID = d.PartyID
	m.PartyName = d.PartyName
	m.LineItems = d.LineItems
	m.Subtotal = d.Subtotal
	m.Total = d.Total
	m.AmountPaid = d.AmountPaid
	m.IssueDate = d.IssueDate
	m.DueDate = d.DueDate
	m.Status = d.Status
	m.PaymentHistory = d.PaymentHistory
	m.Remark = d.Remark
	m.SentAt = d.SentAt
	m.PaidAt = d.PaidAt
	m.CancelledAt = d.CancelledAt
	m.CancelReason = d.CancelReason
}

// BillingDocumentModelFromDomain creates a new persistence model from a domain BillingDocument
func BillingDocumentModelFromDomain(d *finance.BillingDocument) *BillingDocumentModel {
	m := &BillingDocumentModel{}
	m.FromDomain(d)
	return m
}

// PaymentModel is the persistence model for the Payment aggregate.
// The idempotency key is nullable so the unique index only binds keyed payments.
type PaymentModel struct {
	TenantAggregateModel
	PaymentNumber   string                `gorm:"type:varchar(50);not null"`
	PartyType       finance.PartyType     `gorm:"type:varchar(20);not null;index:idx_payments_party,priority:2"`
	PartyID         string                `gorm:"type:varchar(100);not null;index:idx_payments_party,priority:3"`
	DocumentIDs     finance.DocumentIDs   `gorm:"type:jsonb;not null"`
	Allocations     finance.Allocations   `gorm:"type:jsonb;not null"`
	Amount          decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	Method          finance.PaymentMethod `gorm:"type:varchar(30);not null"`
	ReferenceNumber string                `gorm:"type:varchar(100)"`
	PaymentDate     time.Time             `gorm:"not null"`
	IdempotencyKey  *string               `gorm:"type:varchar(255)"`
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "payments"
}

// ToDomain converts the persistence model to a domain Payment
func (m *PaymentModel) ToDomain() *finance.Payment {
	p := &finance.Payment{
		PaymentNumber:   m.PaymentNumber,
		PartyType:       m.PartyType,
		PartyID:         m.PartyID,
		DocumentIDs:     m.DocumentIDs,
		Allocations:     m.Allocations,
		Amount:          m.Amount,
		Method:          m.Method,
		ReferenceNumber: m.ReferenceNumber,
		PaymentDate:     m.PaymentDate,
		IdempotencyKey:  m.IdempotencyKey,
	}
	m.PopulateTenantAggregateRoot(&p.TenantAggregateRoot)
	return p
}

// FromDomain populates the persistence model from a domain Payment
func (m *PaymentModel) FromDomain(p *finance.Payment) {
	m.FromDomainTenantAggregateRoot(p.TenantAggregateRoot)
	m.PaymentNumber = p.PaymentNumber
	m.PartyType = p.PartyType
	m.PartyID = p.PartyID
	m.DocumentIDs = p.DocumentIDs
	m.Allocations = p.Allocations
	m.Amount = p.Amount
	m.Method = p.Method
	m.ReferenceNumber = p.ReferenceNumber
	m.PaymentDate = p.PaymentDate
	m.IdempotencyKey = p.IdempotencyKey
}

// PaymentModelFromDomain creates a new persistence model from a domain Payment
func PaymentModelFromDomain(p *finance.Payment) *PaymentModel {
	m := &PaymentModel{}
	m.FromDomain(p)
	return m
}
