package revenue

import (
	"context"
	"sort"
	"time"

	"github.com/erp/settlement/internal/domain/revenue"
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/erp/settlement/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// summaryPageSize bounds the payouts read for one week
const summaryPageSize = 1000

// PayoutSummaryService reports what was paid and what is still owed to
// partners for a week. It only reads.
type PayoutSummaryService struct {
	runtime
	orderRepo  revenue.OrderRevenueRepository
	payoutRepo revenue.PayoutRepository
}

// NewPayoutSummaryService creates a new PayoutSummaryService
func NewPayoutSummaryService(orderRepo revenue.OrderRevenueRepository, payoutRepo revenue.PayoutRepository, opts ...Option) *PayoutSummaryService {
	return &PayoutSummaryService{
		runtime:    newRuntime(opts),
		orderRepo:  orderRepo,
		payoutRepo: payoutRepo,
	}
}

// WeeklySummary covers the Monday 00:00 to Sunday 23:59:59 UTC week
// containing weekOf. A nil weekOf means the current week. Payouts are
// listed when their period overlaps the week.
func (s *PayoutSummaryService) WeeklySummary(ctx context.Context, tenantID uuid.UUID, weekOf *time.Time) (*WeeklyPayoutSummary, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payout", "weekly_summary")
	defer span.End()

	at := s.clock.Now()
	if weekOf != nil && !weekOf.IsZero() {
		at = *weekOf
	}
	week := revenue.WeekOf(at)

	payouts, err := s.payoutRepo.FindAllForTenant(ctx, tenantID, revenue.PayoutFilter{
		Filter:      shared.Filter{Page: 1, PageSize: summaryPageSize, OrderBy: "created_at", OrderDir: "asc"},
		Overlapping: &week,
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	byPartner := make(map[string]*PartnerWeekSummary)
	entry := func(partnerID string) *PartnerWeekSummary {
		if e, ok := byPartner[partnerID]; ok {
			return e
		}
		e := &PartnerWeekSummary{
			PartnerID:             partnerID,
			Payouts:               make([]PayoutResponse, 0),
			PaidOutNet:            decimal.Zero,
			EligibleCommission:    decimal.Zero,
			EligibleOrderAmount:   decimal.Zero,
			EligibleClutchRevenue: decimal.Zero,
		}
		byPartner[partnerID] = e
		return e
	}

	grouped := make(map[string][]revenue.Payout)
	for _, p := range payouts {
		grouped[p.PartnerID] = append(grouped[p.PartnerID], p)
	}
	for partnerID, ps := range grouped {
		e := entry(partnerID)
		for i := range ps {
			e.Payouts = append(e.Payouts, toPayoutResponse(&ps[i]))
		}
		e.PaidOutNet = netOf(ps)
	}

	partners, err := s.orderRepo.FindPayablePartners(ctx, tenantID, week)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	for _, partnerID := range partners {
		records, err := s.orderRepo.FindPayable(ctx, tenantID, partnerID, week)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		if len(records) == 0 {
			continue
		}
		totals := revenue.SumRevenue(records)
		e := entry(partnerID)
		e.EligibleOrderCount = totals.OrderCount
		e.EligibleCommission = totals.TotalPartnerCommission
		e.EligibleOrderAmount = totals.TotalOrderAmount
		e.EligibleClutchRevenue = totals.TotalClutchRevenue
	}

	summary := &WeeklyPayoutSummary{
		PeriodStart:             week.Start,
		PeriodEnd:               week.End,
		Partners:                make([]PartnerWeekSummary, 0, len(byPartner)),
		TotalPaidOutNet:         decimal.Zero,
		TotalEligibleCommission: decimal.Zero,
	}
	for _, e := range byPartner {
		summary.Partners = append(summary.Partners, *e)
		summary.TotalPaidOutNet = summary.TotalPaidOutNet.Add(e.PaidOutNet)
		summary.TotalEligibleCommission = summary.TotalEligibleCommission.Add(e.EligibleCommission)
	}
	sort.Slice(summary.Partners, func(i, j int) bool {
		return summary.Partners[i].PartnerID < summary.Partners[j].PartnerID
	})
	return summary, nil
}
