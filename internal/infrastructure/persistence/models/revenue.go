package models

import (
	"time"

	"github.com/erp/settlement/internal/domain/revenue"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderRevenueModel is the persistence model for the OrderRevenue aggregate
type OrderRevenueModel struct {
	TenantAggregateModel
	OrderID           string                 `gorm:"type:varchar(100);not null"`
	PartnerID         string                 `gorm:"type:varchar(100);not null;index"`
	PartnerTier       revenue.PartnerTier    `gorm:"type:varchar(20);not null"`
	CommissionType    revenue.CommissionType `gorm:"type:varchar(30);not null"`
	OrderAmount       decimal.Decimal        `gorm:"type:decimal(18,4);not null"`
	ClutchRevenue     decimal.Decimal        `gorm:"type:decimal(18,4);not null"`
	PartnerCommission decimal.Decimal        `gorm:"type:decimal(18,4);not null"`
	TotalFees         decimal.Decimal        `gorm:"type:decimal(18,4);not null;default:0"`
	PaymentMethod     string                 `gorm:"type:varchar(30)"`
	Status            revenue.RevenueStatus  `gorm:"type:varchar(20);not null;index"`
	PayoutID          *uuid.UUID             `gorm:"type:uuid;index"`
	ReceivedAt        *time.Time
	SettledAt         *time.Time
	DisputedAt        *time.Time
	DisputeReason     string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (OrderRevenueModel) TableName() string {
	return "order_revenues"
}

// ToDomain converts the persistence model to a domain OrderRevenue
func (m *OrderRevenueModel) ToDomain() *revenue.OrderRevenue {
	r := &revenue.OrderRevenue{
		OrderID:           m.OrderID,
		PartnerID:         m.PartnerID,
		PartnerTier:       m.PartnerTier,
		CommissionType:    m.CommissionType,
		OrderAmount:       m.OrderAmount,
		ClutchRevenue:     m.ClutchRevenue,
		PartnerCommission: m.PartnerCommission,
		TotalFees:         m.TotalFees,
		PaymentMethod:     m.PaymentMethod,
		Status:            m.Status,
		PayoutID:          m.PayoutID,
		ReceivedAt:        m.ReceivedAt,
		SettledAt:         m.SettledAt,
		DisputedAt:        m.DisputedAt,
		DisputeReason:     m.DisputeReason,
	}
	m.PopulateTenantAggregateRoot(&r.TenantAggregateRoot)
	return r
}

// FromDomain populates the persistence model from a domain OrderRevenue
func (m *OrderRevenueModel) FromDomain(r *revenue.OrderRevenue) {
	m.FromDomainTenantAggregateRoot(r.TenantAggregateRoot)
	m.OrderID = r.OrderID
	m.PartnerID = r.PartnerID
	m.PartnerTier = r.PartnerTier
	m.CommissionType = r.CommissionType
	m.OrderAmount = r.OrderAmount
	m.ClutchRevenue = r.ClutchRevenue
	m.PartnerCommission = r.PartnerCommission
	m.TotalFees = r.TotalFees
	m.PaymentMethod = r.PaymentMethod
	m.Status = r.Status
	m.PayoutID = r.PayoutID
	m.ReceivedAt = r.ReceivedAt
	m.SettledAt = r.SettledAt
	m.DisputedAt = r.DisputedAt
	m.DisputeReason = r.DisputeReason
}

// OrderRevenueModelFromDomain creates a new persistence model from a domain OrderRevenue
func OrderRevenueModelFromDomain(r *revenue.OrderRevenue) *OrderRevenueModel {
	m := &OrderRevenueModel{}
	m.FromDomain(r)
	return m
}

// PayoutModel is the persistence model for the Payout aggregate.
// At most one non-failed payout per partner and period is enforced by a
// partial unique index created in the migrations.
type PayoutModel struct {
	TenantAggregateModel
	PayoutNumber           string               `gorm:"type:varchar(50);not null"`
	PartnerID              string               `gorm:"type:varchar(100);not null;index"`
	PeriodStart            time.Time            `gorm:"not null"`
	PeriodEnd              time.Time            `gorm:"not null"`
	OrderIDs               revenue.StringList   `gorm:"type:jsonb;not null"`
	OrderCount             int                  `gorm:"not null;default:0"`
	TotalOrderAmount       decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	TotalClutchRevenue     decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	TotalPartnerCommission decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	TotalFees              decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	Deductions             decimal.Decimal      `gorm:"type:decimal(18,4);not null;default:0"`
	TotalNetPayout         decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	Status                 revenue.PayoutStatus `gorm:"type:varchar(20);not null;index"`
	ScheduledDate          time.Time            `gorm:"not null"`
	CompletedAt            *time.Time
	FailedAt               *time.Time
	FailureReason          string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (PayoutModel) TableName() string {
	return "payouts"
}

// ToDomain converts the persistence model to a domain Payout
func (m *PayoutModel) ToDomain() *revenue.Payout {
	p := &revenue.Payout{
		PayoutNumber:           m.PayoutNumber,
		PartnerID:              m.PartnerID,
		PeriodStart:            m.PeriodStart,
		PeriodEnd:              m.PeriodEnd,
		OrderIDs:               m.OrderIDs,
		OrderCount:             m.OrderCount,
		TotalOrderAmount:       m.TotalOrderAmount,
		TotalClutchRevenue:     m.TotalClutchRevenue,
		TotalPartnerCommission: m.TotalPartnerCommission,
		TotalFees:              m.TotalFees,
		Deductions:             m.Deductions,
		TotalNetPayout:         m.TotalNetPayout,
		Status:                 m.Status,
		ScheduledDate:          m.ScheduledDate,
		CompletedAt:            m.CompletedAt,
		FailedAt:               m.FailedAt,
		FailureReason:          m.FailureReason,
	}
	if p.OrderIDs == nil {
		p.OrderIDs = revenue.StringList{}
	}
	m.PopulateTenantAggregateRoot(&p.TenantAggregateRoot)
	return p
}

// FromDomain populates the persistence model from a domain Payout
func (m *PayoutModel) FromDomain(p *revenue.Payout) {
	m.FromDomainTenantAggregateRoot(p.TenantAggregateRoot)
	m.PayoutNumber = p.PayoutNumber
	m.PartnerID = p.PartnerID
	m.PeriodStart = p.PeriodStart
	m.PeriodEnd = p.PeriodEnd
	m.OrderIDs = p.OrderIDs
	m.OrderCount = p.OrderCount
	m.TotalOrderAmount = p.TotalOrderAmount
	m.TotalClutchRevenue = p.TotalClutchRevenue
	m.TotalPartnerCommission = p.TotalPartnerCommission
	m.TotalFees = p.TotalFees
	m.Deductions = p.Deductions
	m.TotalNetPayout = p.TotalNetPayout
	m.Status = p.Status
	m.ScheduledDate = p.ScheduledDate
	m.CompletedAt = p.CompletedAt
	m.FailedAt = p.FailedAt
	m.FailureReason = p.FailureReason
}

// PayoutModelFromDomain creates a new persistence model from a domain Payout
func PayoutModelFromDomain(p *revenue.Payout) *PayoutModel {
	m := &PayoutModel{}
	m.FromDomain(p)
	return m
}

// PaymentCollectionModel is the persistence model for the PaymentCollection aggregate
type PaymentCollectionModel struct {
	TenantAggregateModel
	CollectionNumber string                   `gorm:"type:varchar(50);not null"`
	OrderIDs         revenue.StringList       `gorm:"type:jsonb;not null"`
	CollectionMethod revenue.CollectionMethod `gorm:"type:varchar(30);not null;index"`
	CollectorID      string                   `gorm:"type:varchar(100)"`
	TotalAmount      decimal.Decimal          `gorm:"type:decimal(18,4);not null"`
	CollectionDate   time.Time                `gorm:"not null"`
	Status           revenue.CollectionStatus `gorm:"type:varchar(20);not null;index"`
	ReconciledAt     *time.Time
}

// TableName returns the table name for GORM
func (PaymentCollectionModel) TableName() string {
	return "payment_collections"
}

// ToDomain converts the persistence model to a domain PaymentCollection
func (m *PaymentCollectionModel) ToDomain() *revenue.PaymentCollection {
	c := &revenue.PaymentCollection{
		CollectionNumber: m.CollectionNumber,
		OrderIDs:         m.OrderIDs,
		CollectionMethod: m.CollectionMethod,
		CollectorID:      m.CollectorID,
		TotalAmount:      m.TotalAmount,
		CollectionDate:   m.CollectionDate,
		Status:           m.Status,
		ReconciledAt:     m.ReconciledAt,
	}
	if c.OrderIDs == nil {
		c.OrderIDs = revenue.StringList{}
	}
	m.PopulateTenantAggregateRoot(&c.TenantAggregateRoot)
	return c
}

// FromDomain populates the persistence model from a domain PaymentCollection
func (m *PaymentCollectionModel) FromDomain(c *revenue.PaymentCollection) {
	m.FromDomainTenantAggregateRoot(c.TenantAggregateRoot)
	m.CollectionNumber = c.CollectionNumber
	m.OrderIDs = c.OrderIDs
	m.CollectionMethod = c.CollectionMethod
	m.CollectorID = c.CollectorID
	m.TotalAmount = c.TotalAmount
	m.CollectionDate = c.CollectionDate
	m.Status = c.Status
	m.ReconciledAt = c.ReconciledAt
}

// PaymentCollectionModelFromDomain creates a new persistence model from a domain PaymentCollection
func PaymentCollectionModelFromDomain(c *revenue.PaymentCollection) *PaymentCollectionModel {
	m := &PaymentCollectionModel{}
	m.FromDomain(c)
	return m
}
