package revenue

import (
	"time"

	"github.com/erp/settlement/internal/domain/revenue"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ===================== Commission =====================

// CalculateCommissionRequest asks for a commission quote
type CalculateCommissionRequest struct {
	PartnerTier    string          `json:"partner_tier" binding:"required"`
	CommissionType string          `json:"commission_type" binding:"required"`
	BaseAmount     decimal.Decimal `json:"base_amount" binding:"decimal_gte0"`
}

// CommissionResponse is a commission quote
type CommissionResponse struct {
	RequestedTier  string          `json:"requested_tier"`
	AppliedTier    string          `json:"applied_tier"`
	CommissionType string          `json:"commission_type"`
	BaseAmount     decimal.Decimal `json:"base_amount"`
	Rate           decimal.Decimal `json:"rate"`
	Amount         decimal.Decimal `json:"amount"`
}

func toCommissionResponse(c revenue.Commission) *CommissionResponse {
	return &CommissionResponse{
		RequestedTier:  string(c.RequestedTier),
		AppliedTier:    string(c.AppliedTier),
		CommissionType: string(c.CommissionType),
		BaseAmount:     c.BaseAmount,
		Rate:           c.Rate,
		Amount:         c.Amount,
	}
}

// ===================== Order Revenue =====================

// RecordOrderRevenueRequest records the revenue split of a completed order
type RecordOrderRevenueRequest struct {
	OrderID        string          `json:"order_id" binding:"required,max=100"`
	PartnerID      string          `json:"partner_id" binding:"required,max=100"`
	PartnerTier    string          `json:"partner_tier" binding:"required"`
	CommissionType string          `json:"commission_type" binding:"required"`
	OrderAmount    decimal.Decimal `json:"order_amount" binding:"decimal_gte0"`
	TotalFees      decimal.Decimal `json:"total_fees" binding:"decimal_gte0"`
	PaymentMethod  string          `json:"payment_method" binding:"max=50"`
}

// DisputeOrderRequest flags an order's revenue as disputed
type DisputeOrderRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

// OrderRevenueListFilter defines filtering options for order revenue lists
type OrderRevenueListFilter struct {
	PartnerID string `form:"partner_id"`
	Status    string `form:"status" binding:"omitempty,oneof=pending received settled paid_out disputed"`
	Page      int    `form:"page"`
	PageSize  int    `form:"page_size" binding:"omitempty,max=100"`
	OrderBy   string `form:"order_by" binding:"omitempty,oneof=created_at order_amount partner_commission"`
	OrderDir  string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// OrderRevenueResponse represents order revenue in API responses
type OrderRevenueResponse struct {
	ID                uuid.UUID       `json:"id"`
	OrderID           string          `json:"order_id"`
	PartnerID         string          `json:"partner_id"`
	PartnerTier       string          `json:"partner_tier"`
	CommissionType    string          `json:"commission_type"`
	OrderAmount       decimal.Decimal `json:"order_amount"`
	ClutchRevenue     decimal.Decimal `json:"clutch_revenue"`
	PartnerCommission decimal.Decimal `json:"partner_commission"`
	TotalFees         decimal.Decimal `json:"total_fees"`
	PaymentMethod     string          `json:"payment_method,omitempty"`
	Status            string          `json:"status"`
	PayoutID          *uuid.UUID      `json:"payout_id,omitempty"`
	ReceivedAt        *time.Time      `json:"received_at,omitempty"`
	SettledAt         *time.Time      `json:"settled_at,omitempty"`
	DisputedAt        *time.Time      `json:"disputed_at,omitempty"`
	DisputeReason     string          `json:"dispute_reason,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
	Version           int             `json:"version"`
}

func toOrderRevenueResponse(r *revenue.OrderRevenue) OrderRevenueResponse {
	return OrderRevenueResponse{
		ID:                r.ID,
		OrderID:           r.OrderID,
		PartnerID:         r.PartnerID,
		PartnerTier:       string(r.PartnerTier),
		CommissionType:    string(r.CommissionType),
		OrderAmount:       r.OrderAmount,
		ClutchRevenue:     r.ClutchRevenue,
		PartnerCommission: r.PartnerCommission,
		TotalFees:         r.TotalFees,
		PaymentMethod:     r.PaymentMethod,
		Status:            string(r.Status),
		PayoutID:          r.PayoutID,
		ReceivedAt:        r.ReceivedAt,
		SettledAt:         r.SettledAt,
		DisputedAt:        r.DisputedAt,
		DisputeReason:     r.DisputeReason,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
		Version:           r.Version,
	}
}

// ===================== Payouts =====================

// GeneratePayoutsRequest generates payouts for an inclusive period
type GeneratePayoutsRequest struct {
	PeriodStart time.Time `json:"period_start" binding:"required"`
	PeriodEnd   time.Time `json:"period_end" binding:"required"`
}

// FailPayoutRequest records a failed disbursement
type FailPayoutRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

// PayoutListFilter defines filtering options for payout lists
type PayoutListFilter struct {
	PartnerID string `form:"partner_id"`
	Status    string `form:"status" binding:"omitempty,oneof=pending processing completed failed"`
	Page      int    `form:"page"`
	PageSize  int    `form:"page_size" binding:"omitempty,max=100"`
	OrderBy   string `form:"order_by" binding:"omitempty,oneof=created_at period_start total_net_payout"`
	OrderDir  string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// PayoutResponse represents a payout in API responses
type PayoutResponse struct {
	ID                     uuid.UUID       `json:"id"`
	PayoutNumber           string          `json:"payout_number"`
	PartnerID              string          `json:"partner_id"`
	PeriodStart            time.Time       `json:"period_start"`
	PeriodEnd              time.Time       `json:"period_end"`
	OrderIDs               []string        `json:"order_ids"`
	OrderCount             int             `json:"order_count"`
	TotalOrderAmount       decimal.Decimal `json:"total_order_amount"`
	TotalClutchRevenue     decimal.Decimal `json:"total_clutch_revenue"`
	TotalPartnerCommission decimal.Decimal `json:"total_partner_commission"`
	TotalFees              decimal.Decimal `json:"total_fees"`
	Deductions             decimal.Decimal `json:"deductions"`
	TotalNetPayout         decimal.Decimal `json:"total_net_payout"`
	Status                 string          `json:"status"`
	ScheduledDate          time.Time       `json:"scheduled_date"`
	CompletedAt            *time.Time      `json:"completed_at,omitempty"`
	FailedAt               *time.Time      `json:"failed_at,omitempty"`
	FailureReason          string          `json:"failure_reason,omitempty"`
	StatementKey           string          `json:"statement_key,omitempty"`
	CreatedAt              time.Time       `json:"created_at"`
	UpdatedAt              time.Time       `json:"updated_at"`
	Version                int             `json:"version"`
}

func toPayoutResponse(p *revenue.Payout) PayoutResponse {
	return PayoutResponse{
		ID:                     p.ID,
		PayoutNumber:           p.PayoutNumber,
		PartnerID:              p.PartnerID,
		PeriodStart:            p.PeriodStart,
		PeriodEnd:              p.PeriodEnd,
		OrderIDs:               append([]string{}, p.OrderIDs...),
		OrderCount:             p.OrderCount,
		TotalOrderAmount:       p.TotalOrderAmount,
		TotalClutchRevenue:     p.TotalClutchRevenue,
		TotalPartnerCommission: p.TotalPartnerCommission,
		TotalFees:              p.TotalFees,
		Deductions:             p.Deductions,
		TotalNetPayout:         p.TotalNetPayout,
		Status:                 string(p.Status),
		ScheduledDate:          p.ScheduledDate,
		CompletedAt:            p.CompletedAt,
		FailedAt:               p.FailedAt,
		FailureReason:          p.FailureReason,
		CreatedAt:              p.CreatedAt,
		UpdatedAt:              p.UpdatedAt,
		Version:                p.Version,
	}
}

// PayoutFailure is a partner whose payout could not be generated
type PayoutFailure struct {
	PartnerID string `json:"partner_id"`
	Code      string `json:"code"`
	Error     string `json:"error"`
}

// PayoutDeferral lists orders that became payable after the partner was
// already paid for the period. They are paid once PayoutID is failed.
type PayoutDeferral struct {
	PartnerID string    `json:"partner_id"`
	PayoutID  uuid.UUID `json:"payout_id"`
	OrderIDs  []string  `json:"order_ids"`
}

// PayoutBatchResult summarizes one payout generation run
type PayoutBatchResult struct {
	PeriodStart time.Time        `json:"period_start"`
	PeriodEnd   time.Time        `json:"period_end"`
	Created     []PayoutResponse `json:"created"`
	Skipped     []string         `json:"skipped"`
	Deferred    []PayoutDeferral `json:"deferred"`
	Failed      []PayoutFailure  `json:"failed"`
}

// PartnerWeekSummary is one partner's payouts and unpaid commission for a week
type PartnerWeekSummary struct {
	PartnerID             string           `json:"partner_id"`
	Payouts               []PayoutResponse `json:"payouts"`
	PaidOutNet            decimal.Decimal  `json:"paid_out_net"`
	EligibleOrderCount    int              `json:"eligible_order_count"`
	EligibleCommission    decimal.Decimal  `json:"eligible_commission"`
	EligibleOrderAmount   decimal.Decimal  `json:"eligible_order_amount"`
	EligibleClutchRevenue decimal.Decimal  `json:"eligible_clutch_revenue"`
}

// WeeklyPayoutSummary is the payout picture of one Monday-to-Sunday week
type WeeklyPayoutSummary struct {
	PeriodStart             time.Time            `json:"period_start"`
	PeriodEnd               time.Time            `json:"period_end"`
	Partners                []PartnerWeekSummary `json:"partners"`
	TotalPaidOutNet         decimal.Decimal      `json:"total_paid_out_net"`
	TotalEligibleCommission decimal.Decimal      `json:"total_eligible_commission"`
}

// ===================== Collections =====================

// CreateCollectionRequest records an external collection covering several orders
type CreateCollectionRequest struct {
	OrderIDs       []string        `json:"order_ids" binding:"required,min=1"`
	Method         string          `json:"collection_method" binding:"required,oneof=gateway cash bank_transfer delivery_partner"`
	CollectorID    string          `json:"collector_id" binding:"max=100"`
	TotalAmount    decimal.Decimal `json:"total_amount" binding:"decimal_gte0"`
	CollectionDate *time.Time      `json:"collection_date"`
}

// CollectionListFilter defines filtering options for collection lists
type CollectionListFilter struct {
	Search   string `form:"search" binding:"max=100"`
	Method   string `form:"collection_method" binding:"omitempty,oneof=gateway cash bank_transfer delivery_partner"`
	Status   string `form:"status" binding:"omitempty,oneof=pending collected deposited reconciled"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size" binding:"omitempty,max=100"`
	OrderBy  string `form:"order_by" binding:"omitempty,oneof=created_at collection_date total_amount"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// CollectionResponse represents a payment collection in API responses
type CollectionResponse struct {
	ID               uuid.UUID       `json:"id"`
	CollectionNumber string          `json:"collection_number"`
	OrderIDs         []string        `json:"order_ids"`
	CollectionMethod string          `json:"collection_method"`
	CollectorID      string          `json:"collector_id,omitempty"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	CollectionDate   time.Time       `json:"collection_date"`
	Status           string          `json:"status"`
	ReconciledAt     *time.Time      `json:"reconciled_at,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	Version          int             `json:"version"`
}

func toCollectionResponse(c *revenue.PaymentCollection) CollectionResponse {
	return CollectionResponse{
		ID:               c.ID,
		CollectionNumber: c.CollectionNumber,
		OrderIDs:         append([]string{}, c.OrderIDs...),
		CollectionMethod: string(c.CollectionMethod),
		CollectorID:      c.CollectorID,
		TotalAmount:      c.TotalAmount,
		CollectionDate:   c.CollectionDate,
		Status:           string(c.Status),
		ReconciledAt:     c.ReconciledAt,
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
		Version:          c.Version,
	}
}

// ReconciliationResponse is the outcome of reconciling a collection
type ReconciliationResponse struct {
	Collection     CollectionResponse     `json:"collection"`
	ExpectedAmount decimal.Decimal        `json:"expected_amount"`
	Orders         []OrderRevenueResponse `json:"orders"`
}

// pageDefaults fills in paging defaults the way every list endpoint does
func pageDefaults(page, pageSize int, orderBy, orderDir string) (int, int, string, string) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	if orderBy == "" {
		orderBy = "created_at"
	}
	if orderDir == "" {
		orderDir = "desc"
	}
	return page, pageSize, orderBy, orderDir
}
