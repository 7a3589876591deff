package revenue

import (
	"time"

	"github.com/erp/settlement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event type names
const (
	EventTypeOrderRevenueRecorded = "OrderRevenueRecorded"
	EventTypePayoutGenerated      = "PayoutGenerated"
	EventTypePayoutStatusChanged  = "PayoutStatusChanged"
	EventTypeCollectionReconciled = "CollectionReconciled"
)

// OrderRevenueRecordedEvent is raised when a completed order's revenue is recorded
type OrderRevenueRecordedEvent struct {
	shared.BaseDomainEvent
	OrderID           string          `json:"order_id"`
	PartnerID         string          `json:"partner_id"`
	OrderAmount       decimal.Decimal `json:"order_amount"`
	PartnerCommission decimal.Decimal `json:"partner_commission"`
}

// EventType returns the event type name
func (e *OrderRevenueRecordedEvent) EventType() string {
	return EventTypeOrderRevenueRecorded
}

// NewOrderRevenueRecordedEvent creates a new OrderRevenueRecordedEvent
func NewOrderRevenueRecordedEvent(r *OrderRevenue) *OrderRevenueRecordedEvent {
	return &OrderRevenueRecordedEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(EventTypeOrderRevenueRecorded, "OrderRevenue", r.ID, r.TenantID),
		OrderID:           r.OrderID,
		PartnerID:         r.PartnerID,
		OrderAmount:       r.OrderAmount,
		PartnerCommission: r.PartnerCommission,
	}
}

// PayoutGeneratedEvent is raised when a payout batch creates a partner payout
type PayoutGeneratedEvent struct {
	shared.BaseDomainEvent
	PayoutID       uuid.UUID       `json:"payout_id"`
	PayoutNumber   string          `json:"payout_number"`
	PartnerID      string          `json:"partner_id"`
	PeriodStart    time.Time       `json:"period_start"`
	PeriodEnd      time.Time       `json:"period_end"`
	OrderCount     int             `json:"order_count"`
	TotalNetPayout decimal.Decimal `json:"total_net_payout"`
	ScheduledDate  time.Time       `json:"scheduled_date"`
}

// EventType returns the event type name
func (e *PayoutGeneratedEvent) EventType() string {
	return EventTypePayoutGenerated
}

// NewPayoutGeneratedEvent creates a new PayoutGeneratedEvent
func NewPayoutGeneratedEvent(p *Payout) *PayoutGeneratedEvent {
	return &PayoutGeneratedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePayoutGenerated, "Payout", p.ID, p.TenantID),
		PayoutID:        p.ID,
		PayoutNumber:    p.PayoutNumber,
		PartnerID:       p.PartnerID,
		PeriodStart:     p.PeriodStart,
		PeriodEnd:       p.PeriodEnd,
		OrderCount:      p.OrderCount,
		TotalNetPayout:  p.TotalNetPayout,
		ScheduledDate:   p.ScheduledDate,
	}
}

// PayoutStatusChangedEvent is raised when a payout completes or fails
type PayoutStatusChangedEvent struct {
	shared.BaseDomainEvent
	PayoutID      uuid.UUID    `json:"payout_id"`
	PayoutNumber  string       `json:"payout_number"`
	PartnerID     string       `json:"partner_id"`
	Status        PayoutStatus `json:"status"`
	FailureReason string       `json:"failure_reason,omitempty"`
}

// EventType returns the event type name
func (e *PayoutStatusChangedEvent) EventType() string {
	return EventTypePayoutStatusChanged
}

// NewPayoutStatusChangedEvent creates a new PayoutStatusChangedEvent
func NewPayoutStatusChangedEvent(p *Payout) *PayoutStatusChangedEvent {
	return &PayoutStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePayoutStatusChanged, "Payout", p.ID, p.TenantID),
		PayoutID:        p.ID,
		PayoutNumber:    p.PayoutNumber,
		PartnerID:       p.PartnerID,
		Status:          p.Status,
		FailureReason:   p.FailureReason,
	}
}

// CollectionReconciledEvent is raised when a collection is matched to its orders
type CollectionReconciledEvent struct {
	shared.BaseDomainEvent
	CollectionID     uuid.UUID        `json:"collection_id"`
	CollectionNumber string           `json:"collection_number"`
	Method           CollectionMethod `json:"method"`
	OrderIDs         []string         `json:"order_ids"`
	Amount           decimal.Decimal  `json:"amount"`
}

// EventType returns the event type name
func (e *CollectionReconciledEvent) EventType() string {
	return EventTypeCollectionReconciled
}

// NewCollectionReconciledEvent creates a new CollectionReconciledEvent
func NewCollectionReconciledEvent(c *PaymentCollection, amount decimal.Decimal) *CollectionReconciledEvent {
	return &CollectionReconciledEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeCollectionReconciled, "PaymentCollection", c.ID, c.TenantID),
		CollectionID:     c.ID,
		CollectionNumber: c.CollectionNumber,
		Method:           c.CollectionMethod,
		OrderIDs:         append([]string{}, c.OrderIDs...),
		Amount:           amount,
	}
}
