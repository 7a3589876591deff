package revenue

import (
	"time"

	"github.com/erp/settlement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RevenueStatus is the settlement status of an order's revenue
type RevenueStatus string

const (
	RevenueStatusPending  RevenueStatus = "pending"
	RevenueStatusReceived RevenueStatus = "received"
	RevenueStatusSettled  RevenueStatus = "settled"
	RevenueStatusPaidOut  RevenueStatus = "paid_out"
	RevenueStatusDisputed RevenueStatus = "disputed"
)

// IsValid checks if the status is valid
func (s RevenueStatus) IsValid() bool {
	switch s {
	case RevenueStatusPending, RevenueStatusReceived, RevenueStatusSettled,
		RevenueStatusPaidOut, RevenueStatusDisputed:
		return true
	}
	return false
}

// String returns the string representation of RevenueStatus
func (s RevenueStatus) String() string {
	return string(s)
}

// IsPayable returns true if the revenue can be consumed by a payout
func (s RevenueStatus) IsPayable() bool {
	return s == RevenueStatusReceived || s == RevenueStatusSettled
}

// PayableStatuses are the statuses a payout batch selects
func PayableStatuses() []RevenueStatus {
	return []RevenueStatus{RevenueStatusReceived, RevenueStatusSettled}
}

// rank orders the forward-only lifecycle
func (s RevenueStatus) rank() int {
	switch s {
	case RevenueStatusPending:
		return 0
	case RevenueStatusReceived:
		return 1
	case RevenueStatusSettled:
		return 2
	case RevenueStatusPaidOut:
		return 3
	}
	return -1
}

// ConservationTolerance is the allowed rounding gap in the revenue split
var ConservationTolerance = decimal.RequireFromString("0.01")

// OrderRevenue is the split of a completed order's value between the
// platform, the partner and fees
type OrderRevenue struct {
	shared.TenantAggregateRoot
	OrderID           string          `json:"order_id"`
	PartnerID         string          `json:"partner_id"`
	PartnerTier       PartnerTier     `json:"partner_tier"`
	CommissionType    CommissionType  `json:"commission_type"`
	OrderAmount       decimal.Decimal `json:"order_amount"`
	ClutchRevenue     decimal.Decimal `json:"clutch_revenue"`
	PartnerCommission decimal.Decimal `json:"partner_commission"`
	TotalFees         decimal.Decimal `json:"total_fees"`
	PaymentMethod     string          `json:"payment_method"`
	Status            RevenueStatus   `json:"status"`
	PayoutID          *uuid.UUID      `json:"payout_id,omitempty"`
	ReceivedAt        *time.Time      `json:"received_at"`
	SettledAt         *time.Time      `json:"settled_at"`
	DisputedAt        *time.Time      `json:"disputed_at"`
	DisputeReason     string          `json:"dispute_reason,omitempty"`
}

// NewOrderRevenueParams holds the inputs for recording order revenue
type NewOrderRevenueParams struct {
	TenantID          uuid.UUID
	OrderID           string
	PartnerID         string
	PartnerTier       PartnerTier
	CommissionType    CommissionType
	OrderAmount       decimal.Decimal
	PartnerCommission decimal.Decimal
	TotalFees         decimal.Decimal
	PaymentMethod     string
	At                time.Time
}

// NewOrderRevenue records a completed order; the platform share is what
// remains after the partner commission and fees
func NewOrderRevenue(p NewOrderRevenueParams) (*OrderRevenue, error) {
	if p.OrderID == "" {
		return nil, shared.NewValidationError("order id cannot be empty")
	}
	if p.PartnerID == "" {
		return nil, shared.NewValidationError("partner id cannot be empty")
	}
	if !p.OrderAmount.IsPositive() {
		return nil, shared.NewValidationError("order amount must be positive")
	}
	if p.PartnerCommission.IsNegative() || p.TotalFees.IsNegative() {
		return nil, shared.NewValidationError("commission and fees cannot be negative")
	}

	orderAmount := shared.Round2(p.OrderAmount)
	fees := shared.Round2(p.TotalFees)
	commission := shared.Round2(p.PartnerCommission)
	platform := orderAmount.Sub(commission).Sub(fees)
	if platform.IsNegative() {
		return nil, shared.NewValidationError("commission %s plus fees %s exceed order amount %s",
			commission.StringFixed(2), fees.StringFixed(2), orderAmount.StringFixed(2))
	}

	r := &OrderRevenue{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(p.TenantID),
		OrderID:             p.OrderID,
		PartnerID:           p.PartnerID,
		PartnerTier:         p.PartnerTier,
		CommissionType:      p.CommissionType,
		OrderAmount:         orderAmount,
		ClutchRevenue:       platform,
		PartnerCommission:   commission,
		TotalFees:           fees,
		PaymentMethod:       p.PaymentMethod,
		Status:              RevenueStatusPending,
	}
	if !p.At.IsZero() {
		r.CreatedAt = p.At.UTC()
		r.UpdatedAt = r.CreatedAt
	}
	r.AddDomainEvent(NewOrderRevenueRecordedEvent(r))
	return r, nil
}

// IsBalanced checks orderAmount == clutchRevenue + partnerCommission + totalFees
func (r *OrderRevenue) IsBalanced() bool {
	diff := r.OrderAmount.Sub(r.ClutchRevenue).Sub(r.PartnerCommission).Sub(r.TotalFees).Abs()
	return diff.LessThanOrEqual(ConservationTolerance)
}

// advance moves the status forward, rejecting regressions
func (r *OrderRevenue) advance(to RevenueStatus, at time.Time) error {
	if r.Status == RevenueStatusDisputed {
		return shared.NewInvalidStateError("order %s is disputed", r.OrderID)
	}
	if to.rank() <= r.Status.rank() {
		return shared.NewInvalidStateError("order %s cannot move from %s to %s", r.OrderID, r.Status, to)
	}
	r.Status = to
	r.UpdatedAt = at
	r.IncrementVersion()
	return nil
}

// MarkReceived records that the money for the order has been collected.
// Already received revenue is left untouched.
func (r *OrderRevenue) MarkReceived(at time.Time) error {
	if r.Status == RevenueStatusReceived {
		return nil
	}
	if r.Status != RevenueStatusPending {
		return shared.NewInvalidStateError("order %s cannot be received in %s status", r.OrderID, r.Status)
	}
	if err := r.advance(RevenueStatusReceived, at); err != nil {
		return err
	}
	receivedAt := at
	r.ReceivedAt = &receivedAt
	return nil
}

// Settle records that the collected money has cleared
func (r *OrderRevenue) Settle(at time.Time) error {
	if r.Status != RevenueStatusReceived {
		return shared.NewInvalidStateError("order %s cannot be settled in %s status", r.OrderID, r.Status)
	}
	if err := r.advance(RevenueStatusSettled, at); err != nil {
		return err
	}
	settledAt := at
	r.SettledAt = &settledAt
	return nil
}

// MarkPaidOut records that a payout consumed this revenue
func (r *OrderRevenue) MarkPaidOut(payoutID uuid.UUID, at time.Time) error {
	if !r.Status.IsPayable() {
		return shared.NewInvalidStateError("order %s cannot be paid out in %s status", r.OrderID, r.Status)
	}
	if err := r.advance(RevenueStatusPaidOut, at); err != nil {
		return err
	}
	id := payoutID
	r.PayoutID = &id
	return nil
}

// Dispute flags the revenue as disputed; paid out revenue cannot be disputed
func (r *OrderRevenue) Dispute(reason string, at time.Time) error {
	if r.Status == RevenueStatusPaidOut || r.Status == RevenueStatusDisputed {
		return shared.NewInvalidStateError("order %s cannot be disputed in %s status", r.OrderID, r.Status)
	}
	disputedAt := at
	r.Status = RevenueStatusDisputed
	r.DisputedAt = &disputedAt
	r.DisputeReason = reason
	r.UpdatedAt = at
	r.IncrementVersion()
	return nil
}
