package revenue

import (
	"context"
	"errors"
	"time"

	"github.com/erp/settlement/internal/domain/revenue"
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/erp/settlement/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// StatementExporter publishes a rendered statement for a generated payout
// and returns the key it was stored under
type StatementExporter interface {
	Export(ctx context.Context, payout *revenue.Payout, records []revenue.OrderRevenue) (string, error)
}

// PayoutConfig holds payout generation settings
type PayoutConfig struct {
	// ScheduledDelay is added to the period end to get the disbursement date
	ScheduledDelay time.Duration
}

// PayoutBatchGenerator turns a period's payable order revenue into one
// payout per partner. Each partner is processed in its own transaction;
// a failing partner does not affect the others.
type PayoutBatchGenerator struct {
	runtime
	txScope    TransactionScope
	orderRepo  revenue.OrderRevenueRepository
	payoutRepo revenue.PayoutRepository
	numbers    shared.NumberGenerator
	policy     revenue.DeductionPolicy
	exporter   StatementExporter
	cfg        PayoutConfig
}

// NewPayoutBatchGenerator creates a new PayoutBatchGenerator.
// A nil policy withholds nothing.
func NewPayoutBatchGenerator(
	txScope TransactionScope,
	orderRepo revenue.OrderRevenueRepository,
	payoutRepo revenue.PayoutRepository,
	numbers shared.NumberGenerator,
	policy revenue.DeductionPolicy,
	cfg PayoutConfig,
	opts ...Option,
) *PayoutBatchGenerator {
	if policy == nil {
		policy = revenue.NoDeductions{}
	}
	return &PayoutBatchGenerator{
		runtime:    newRuntime(opts),
		txScope:    txScope,
		orderRepo:  orderRepo,
		payoutRepo: payoutRepo,
		numbers:    numbers,
		policy:     policy,
		cfg:        cfg,
	}
}

// SetStatementExporter enables statement export for generated payouts
func (g *PayoutBatchGenerator) SetStatementExporter(exporter StatementExporter) {
	g.exporter = exporter
}

// GeneratePayouts creates at most one payout per partner for the period.
// Running it again for the same period creates nothing new.
func (g *PayoutBatchGenerator) GeneratePayouts(ctx context.Context, tenantID uuid.UUID, req GeneratePayoutsRequest) (*PayoutBatchResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payout", "generate")
	defer span.End()
	started := time.Now()

	period, err := revenue.NewPeriod(req.PeriodStart, req.PeriodEnd)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span,
		telemetry.SpanAttrPeriodStart, period.Start.Format(time.RFC3339),
		telemetry.SpanAttrPeriodEnd, period.End.Format(time.RFC3339),
	)

	partners, err := g.orderRepo.FindPayablePartners(ctx, tenantID, period)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	result := &PayoutBatchResult{
		PeriodStart: period.Start,
		PeriodEnd:   period.End,
		Created:     make([]PayoutResponse, 0),
		Skipped:     make([]string, 0),
		Deferred:    make([]PayoutDeferral, 0),
		Failed:      make([]PayoutFailure, 0),
	}
	for _, partnerID := range partners {
		payout, records, deferred, err := g.generateForPartner(ctx, tenantID, partnerID, period)
		switch {
		case deferred != nil:
			g.logger.Warn("Orders became payable after the period was paid",
				zap.String("tenant_id", tenantID.String()),
				zap.String("partner_id", partnerID),
				zap.String("payout_id", deferred.PayoutID.String()),
				zap.Strings("order_ids", deferred.OrderIDs))
			result.Deferred = append(result.Deferred, *deferred)
		case err != nil:
			g.logger.Error("Payout generation failed",
				zap.String("tenant_id", tenantID.String()),
				zap.String("partner_id", partnerID),
				zap.Error(err))
			g.metrics.RecordPayoutFailure(ctx, tenantID)
			result.Failed = append(result.Failed, PayoutFailure{
				PartnerID: partnerID,
				Code:      shared.ErrorCode(err),
				Error:     err.Error(),
			})
		case payout == nil:
			result.Skipped = append(result.Skipped, partnerID)
		default:
			resp := toPayoutResponse(payout)
			resp.StatementKey = g.exportStatement(ctx, payout, records)
			g.metrics.RecordPayoutGenerated(ctx, tenantID, payout.TotalNetPayout)
			g.publish(ctx, payout)
			result.Created = append(result.Created, resp)
		}
	}

	g.metrics.RecordPayoutBatch(ctx, tenantID, time.Since(started))
	g.logger.Info("Payout batch generated",
		zap.String("tenant_id", tenantID.String()),
		zap.Time("period_start", period.Start),
		zap.Time("period_end", period.End),
		zap.Int("created", len(result.Created)),
		zap.Int("skipped", len(result.Skipped)),
		zap.Int("deferred", len(result.Deferred)),
		zap.Int("failed", len(result.Failed)))
	telemetry.SetAttributes(span,
		"payouts_created", len(result.Created),
		"payouts_failed", len(result.Failed),
	)
	return result, nil
}

// generateForPartner returns a nil payout when the partner has nothing left
// to pay, and a deferral when the period already has an active payout
func (g *PayoutBatchGenerator) generateForPartner(ctx context.Context, tenantID uuid.UUID, partnerID string, period revenue.Period) (*revenue.Payout, []revenue.OrderRevenue, *PayoutDeferral, error) {
	var (
		payout   *revenue.Payout
		records  []revenue.OrderRevenue
		deferred *PayoutDeferral
	)
	err := g.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		locked, err := repos.OrderRepo().FindPayableForUpdate(ctx, tenantID, partnerID, period)
		if err != nil {
			return err
		}
		if len(locked) == 0 {
			return nil
		}

		active, err := repos.PayoutRepo().FindAllForTenant(ctx, tenantID, revenue.PayoutFilter{
			Filter:      shared.Filter{Page: 1, PageSize: 1},
			PartnerID:   partnerID,
			Statuses:    revenue.ActivePayoutStatuses(),
			PeriodStart: &period.Start,
			PeriodEnd:   &period.End,
		})
		if err != nil {
			return err
		}
		if len(active) > 0 {
			ids := make([]string, 0, len(locked))
			for _, o := range locked {
				ids = append(ids, o.OrderID)
			}
			deferred = &PayoutDeferral{PartnerID: partnerID, PayoutID: active[0].ID, OrderIDs: ids}
			return nil
		}

		totals := revenue.SumRevenue(locked)
		p, err := revenue.NewPayout(revenue.NewPayoutParams{
			TenantID:      tenantID,
			PayoutNumber:  g.numbers.Generate("PO"),
			PartnerID:     partnerID,
			Period:        period,
			Records:       locked,
			Deductions:    g.policy.Deductions(partnerID, totals),
			ScheduledDate: period.End.Add(g.cfg.ScheduledDelay),
		})
		if err != nil {
			return err
		}
		if err := repos.PayoutRepo().Create(ctx, p); err != nil {
			return err
		}

		marked, err := repos.OrderRepo().MarkPaidOut(ctx, tenantID, p.OrderIDs, p.ID, g.clock.Now())
		if err != nil {
			return err
		}
		if marked != int64(len(p.OrderIDs)) {
			return shared.NewDomainError(shared.CodeConcurrencyConflict,
				"order revenue changed while generating payout for partner "+partnerID)
		}
		payout, records = p, locked
		return nil
	})
	if err != nil {
		return nil, nil, nil, err
	}
	return payout, records, deferred, nil
}

// exportStatement never fails the batch; the payout is already committed
func (g *PayoutBatchGenerator) exportStatement(ctx context.Context, payout *revenue.Payout, records []revenue.OrderRevenue) string {
	if g.exporter == nil {
		return ""
	}
	key, err := g.exporter.Export(ctx, payout, records)
	if err != nil {
		g.logger.Warn("Payout statement export failed",
			zap.String("payout_number", payout.PayoutNumber),
			zap.Error(err))
		return ""
	}
	return key
}

// MarkProcessing hands a pending payout to the payment executor
func (g *PayoutBatchGenerator) MarkProcessing(ctx context.Context, tenantID, id uuid.UUID) (*PayoutResponse, error) {
	return g.transition(ctx, tenantID, id, "processing", func(repos TransactionalRepositories, p *revenue.Payout, now time.Time) error {
		return p.MarkProcessing(now)
	})
}

// MarkCompleted records a successful disbursement
func (g *PayoutBatchGenerator) MarkCompleted(ctx context.Context, tenantID, id uuid.UUID) (*PayoutResponse, error) {
	return g.transition(ctx, tenantID, id, "complete", func(repos TransactionalRepositories, p *revenue.Payout, now time.Time) error {
		return p.MarkCompleted(now)
	})
}

// MarkFailed records a failed disbursement and releases the payout's
// orders back to settled so a later batch can pay them
func (g *PayoutBatchGenerator) MarkFailed(ctx context.Context, tenantID, id uuid.UUID, req FailPayoutRequest) (*PayoutResponse, error) {
	resp, err := g.transition(ctx, tenantID, id, "fail", func(repos TransactionalRepositories, p *revenue.Payout, now time.Time) error {
		if err := p.MarkFailed(req.Reason, now); err != nil {
			return err
		}
		released, err := repos.OrderRepo().ReleaseFromPayout(ctx, tenantID, p.ID, now)
		if err != nil {
			return err
		}
		g.logger.Warn("Payout failed, orders released",
			zap.String("tenant_id", tenantID.String()),
			zap.String("payout_number", p.PayoutNumber),
			zap.Int64("released", released),
			zap.String("reason", req.Reason))
		return nil
	})
	if err == nil {
		g.metrics.RecordPayoutFailure(ctx, tenantID)
	}
	return resp, err
}

func (g *PayoutBatchGenerator) transition(ctx context.Context, tenantID, id uuid.UUID, method string, apply func(repos TransactionalRepositories, p *revenue.Payout, now time.Time) error) (*PayoutResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payout", method)
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrPayoutID, id.String())

	now := g.clock.Now()
	var payout *revenue.Payout
	err := g.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		p, err := repos.PayoutRepo().FindByIDForUpdate(ctx, tenantID, id)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return shared.NewNotFoundError("payout", id.String())
			}
			return err
		}
		if err := apply(repos, p, now); err != nil {
			return err
		}
		if err := repos.PayoutRepo().SaveWithLock(ctx, p); err != nil {
			return err
		}
		payout = p
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	g.publish(ctx, payout)
	resp := toPayoutResponse(payout)
	return &resp, nil
}

// GetByID returns a payout
func (g *PayoutBatchGenerator) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*PayoutResponse, error) {
	p, err := g.payoutRepo.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewNotFoundError("payout", id.String())
		}
		return nil, err
	}
	resp := toPayoutResponse(p)
	return &resp, nil
}

// List returns a page of payouts
func (g *PayoutBatchGenerator) List(ctx context.Context, tenantID uuid.UUID, filter PayoutListFilter) ([]PayoutResponse, int64, error) {
	page, pageSize, orderBy, orderDir := pageDefaults(filter.Page, filter.PageSize, filter.OrderBy, filter.OrderDir)
	domainFilter := revenue.PayoutFilter{
		Filter:    shared.Filter{Page: page, PageSize: pageSize, OrderBy: orderBy, OrderDir: orderDir},
		PartnerID: filter.PartnerID,
	}
	if filter.Status != "" {
		status := revenue.PayoutStatus(filter.Status)
		if !status.IsValid() {
			return nil, 0, shared.NewValidationError("invalid status %q", filter.Status)
		}
		domainFilter.Statuses = []revenue.PayoutStatus{status}
	}

	payouts, err := g.payoutRepo.FindAllForTenant(ctx, tenantID, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := g.payoutRepo.CountForTenant(ctx, tenantID, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	out := make([]PayoutResponse, 0, len(payouts))
	for i := range payouts {
		out = append(out, toPayoutResponse(&payouts[i]))
	}
	return out, total, nil
}

// netOf sums the net payout of non-failed payouts
func netOf(payouts []revenue.Payout) decimal.Decimal {
	total := decimal.Zero
	for _, p := range payouts {
		if p.Status != revenue.PayoutStatusFailed {
			total = total.Add(p.TotalNetPayout)
		}
	}
	return total
}
