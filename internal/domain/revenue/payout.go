package revenue

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/erp/settlement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PayoutStatus represents the status of a partner payout
type PayoutStatus string

const (
	PayoutStatusPending    PayoutStatus = "pending"
	PayoutStatusProcessing PayoutStatus = "processing"
	PayoutStatusCompleted  PayoutStatus = "completed"
	PayoutStatusFailed     PayoutStatus = "failed"
)

// ActivePayoutStatuses are the statuses that hold a partner's period
func ActivePayoutStatuses() []PayoutStatus {
	return []PayoutStatus{PayoutStatusPending, PayoutStatusProcessing, PayoutStatusCompleted}
}

// IsValid checks if the status is valid
func (s PayoutStatus) IsValid() bool {
	switch s {
	case PayoutStatusPending, PayoutStatusProcessing, PayoutStatusCompleted, PayoutStatusFailed:
		return true
	}
	return false
}

// String returns the string representation of PayoutStatus
func (s PayoutStatus) String() string {
	return string(s)
}

// IsTerminal returns true if the payout can no longer change
func (s PayoutStatus) IsTerminal() bool {
	return s == PayoutStatusCompleted || s == PayoutStatusFailed
}

// StringList implements GORM Scanner/Valuer for a JSON array of strings
type StringList []string

// Value implements driver.Valuer
func (l StringList) Value() (driver.Value, error) {
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
func (l *StringList) Scan(value any) error {
	if value == nil {
		*l = StringList{}
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan StringList: unsupported type")
	}
	if len(bytes) == 0 {
		*l = StringList{}
		return nil
	}
	return json.Unmarshal(bytes, l)
}

// PayoutTotals are the summed revenue figures of one partner's batch
type PayoutTotals struct {
	OrderCount             int
	TotalOrderAmount       decimal.Decimal
	TotalClutchRevenue     decimal.Decimal
	TotalPartnerCommission decimal.Decimal
	TotalFees              decimal.Decimal
}

// SumRevenue totals the given revenue records
func SumRevenue(records []OrderRevenue) PayoutTotals {
	t := PayoutTotals{
		TotalOrderAmount:       decimal.Zero,
		TotalClutchRevenue:     decimal.Zero,
		TotalPartnerCommission: decimal.Zero,
		TotalFees:              decimal.Zero,
	}
	for _, r := range records {
		t.OrderCount++
		t.TotalOrderAmount = t.TotalOrderAmount.Add(r.OrderAmount)
		t.TotalClutchRevenue = t.TotalClutchRevenue.Add(r.ClutchRevenue)
		t.TotalPartnerCommission = t.TotalPartnerCommission.Add(r.PartnerCommission)
		t.TotalFees = t.TotalFees.Add(r.TotalFees)
	}
	return t
}

// Period is an inclusive time window
type Period struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewPeriod validates start <= end
func NewPeriod(start, end time.Time) (Period, error) {
	if start.IsZero() || end.IsZero() {
		return Period{}, shared.NewValidationError("period start and end are required")
	}
	if end.Before(start) {
		return Period{}, shared.NewValidationError("period end cannot be before period start")
	}
	return Period{Start: start.UTC(), End: end.UTC()}, nil
}

// Contains reports whether t falls inside the inclusive window
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && !t.After(p.End)
}

// Overlaps reports whether both inclusive windows share an instant
func (p Period) Overlaps(other Period) bool {
	return !p.Start.After(other.End) && !other.Start.After(p.End)
}

// WeekOf returns the Monday 00:00 to Sunday 23:59:59.999999999 UTC week containing t
func WeekOf(t time.Time) Period {
	u := t.UTC()
	offset := (int(u.Weekday()) + 6) % 7
	start := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -offset)
	end := start.AddDate(0, 0, 7).Add(-time.Nanosecond)
	return Period{Start: start, End: end}
}

// Payout is a single disbursement of a partner's earned commission for a period.
// Each consumed order belongs to at most one non-failed payout.
type Payout struct {
	shared.TenantAggregateRoot
	PayoutNumber           string          `json:"payout_number"`
	PartnerID              string          `json:"partner_id"`
	PeriodStart            time.Time       `json:"period_start"`
	PeriodEnd              time.Time       `json:"period_end"`
	OrderIDs               StringList      `json:"order_ids"`
	OrderCount             int             `json:"order_count"`
	TotalOrderAmount       decimal.Decimal `json:"total_order_amount"`
	TotalClutchRevenue     decimal.Decimal `json:"total_clutch_revenue"`
	TotalPartnerCommission decimal.Decimal `json:"total_partner_commission"`
	TotalFees              decimal.Decimal `json:"total_fees"`
	Deductions             decimal.Decimal `json:"deductions"`
	TotalNetPayout         decimal.Decimal `json:"total_net_payout"`
	Status                 PayoutStatus    `json:"status"`
	ScheduledDate          time.Time       `json:"scheduled_date"`
	CompletedAt            *time.Time      `json:"completed_at"`
	FailedAt               *time.Time      `json:"failed_at"`
	FailureReason          string          `json:"failure_reason,omitempty"`
}

// NewPayoutParams holds the inputs for creating a payout
type NewPayoutParams struct {
	TenantID      uuid.UUID
	PayoutNumber  string
	PartnerID     string
	Period        Period
	Records       []OrderRevenue
	Deductions    decimal.Decimal
	ScheduledDate time.Time
}

// NewPayout builds a pending payout from the partner's payable revenue.
// Net payout is Σ partnerCommission minus deductions.
func NewPayout(p NewPayoutParams) (*Payout, error) {
	if p.PartnerID == "" {
		return nil, shared.NewValidationError("partner id cannot be empty")
	}
	if len(p.Records) == 0 {
		return nil, shared.NewValidationError("payout needs at least one revenue record")
	}
	if p.Deductions.IsNegative() {
		return nil, shared.NewValidationError("deductions cannot be negative")
	}

	orderIDs := make(StringList, 0, len(p.Records))
	for _, r := range p.Records {
		if r.PartnerID != p.PartnerID {
			return nil, shared.NewValidationError("order %s belongs to partner %s, not %s", r.OrderID, r.PartnerID, p.PartnerID)
		}
		if !r.Status.IsPayable() {
			return nil, shared.NewInvalidStateError("order %s is %s and cannot be paid out", r.OrderID, r.Status)
		}
		orderIDs = append(orderIDs, r.OrderID)
	}
	sort.Strings(orderIDs)

	totals := SumRevenue(p.Records)
	deductions := decimal.Min(shared.Round2(p.Deductions), totals.TotalPartnerCommission)

	payout := &Payout{
		TenantAggregateRoot:    shared.NewTenantAggregateRoot(p.TenantID),
		PayoutNumber:           p.PayoutNumber,
		PartnerID:              p.PartnerID,
		PeriodStart:            p.Period.Start,
		PeriodEnd:              p.Period.End,
		OrderIDs:               orderIDs,
		OrderCount:             totals.OrderCount,
		TotalOrderAmount:       totals.TotalOrderAmount,
		TotalClutchRevenue:     totals.TotalClutchRevenue,
		TotalPartnerCommission: totals.TotalPartnerCommission,
		TotalFees:              totals.TotalFees,
		Deductions:             deductions,
		TotalNetPayout:         totals.TotalPartnerCommission.Sub(deductions),
		Status:                 PayoutStatusPending,
		ScheduledDate:          p.ScheduledDate.UTC(),
	}
	payout.AddDomainEvent(NewPayoutGeneratedEvent(payout))
	return payout, nil
}

// MarkProcessing hands the payout to the payment executor
func (p *Payout) MarkProcessing(at time.Time) error {
	if p.Status != PayoutStatusPending {
		return shared.NewInvalidStateError("payout %s cannot start processing in %s status", p.PayoutNumber, p.Status)
	}
	p.Status = PayoutStatusProcessing
	p.UpdatedAt = at
	p.IncrementVersion()
	return nil
}

// MarkCompleted records a successful disbursement; completed is terminal
func (p *Payout) MarkCompleted(at time.Time) error {
	if p.Status != PayoutStatusPending && p.Status != PayoutStatusProcessing {
		return shared.NewInvalidStateError("payout %s cannot complete in %s status", p.PayoutNumber, p.Status)
	}
	completedAt := at
	p.Status = PayoutStatusCompleted
	p.CompletedAt = &completedAt
	p.UpdatedAt = at
	p.IncrementVersion()
	p.AddDomainEvent(NewPayoutStatusChangedEvent(p))
	return nil
}

// MarkFailed records a failed disbursement. The consumed orders become
// payable again, which the caller must persist in the same transaction.
func (p *Payout) MarkFailed(reason string, at time.Time) error {
	if p.Status.IsTerminal() {
		return shared.NewInvalidStateError("payout %s cannot fail in %s status", p.PayoutNumber, p.Status)
	}
	if reason == "" {
		return shared.NewValidationError("failure reason is required")
	}
	failedAt := at
	p.Status = PayoutStatusFailed
	p.FailedAt = &failedAt
	p.FailureReason = reason
	p.UpdatedAt = at
	p.IncrementVersion()
	p.AddDomainEvent(NewPayoutStatusChangedEvent(p))
	return nil
}

// DeductionPolicy computes deductions withheld from a partner's payout
type DeductionPolicy interface {
	Deductions(partnerID string, totals PayoutTotals) decimal.Decimal
}

// NoDeductions withholds nothing
type NoDeductions struct{}

// Deductions returns zero
func (NoDeductions) Deductions(string, PayoutTotals) decimal.Decimal {
	return decimal.Zero
}

// FlatFeeDeduction withholds a fixed processing fee per payout
type FlatFeeDeduction struct {
	Fee decimal.Decimal
}

// Deductions returns the flat fee
func (f FlatFeeDeduction) Deductions(string, PayoutTotals) decimal.Decimal {
	return f.Fee
}
