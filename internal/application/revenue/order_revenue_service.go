package revenue

import (
	"context"
	"errors"

	"github.com/erp/settlement/internal/domain/revenue"
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/erp/settlement/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderRevenueService records completed orders and moves their revenue
// through settlement
type OrderRevenueService struct {
	runtime
	txScope   TransactionScope
	orderRepo revenue.OrderRevenueRepository
	engine    *revenue.CommissionEngine
}

// NewOrderRevenueService creates a new OrderRevenueService
func NewOrderRevenueService(
	txScope TransactionScope,
	orderRepo revenue.OrderRevenueRepository,
	engine *revenue.CommissionEngine,
	opts ...Option,
) *OrderRevenueService {
	if engine == nil {
		engine = revenue.NewCommissionEngine(nil)
	}
	return &OrderRevenueService{
		runtime:   newRuntime(opts),
		txScope:   txScope,
		orderRepo: orderRepo,
		engine:    engine,
	}
}

// Record computes the partner commission of a completed order and stores
// the revenue split. Recording the same order twice fails with ALREADY_EXISTS.
func (s *OrderRevenueService) Record(ctx context.Context, tenantID uuid.UUID, req RecordOrderRevenueRequest) (*OrderRevenueResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "order_revenue", "record")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrOrderID, req.OrderID,
		telemetry.SpanAttrPartnerID, req.PartnerID,
	)

	commission, err := s.engine.Calculate(revenue.PartnerTier(req.PartnerTier), revenue.CommissionType(req.CommissionType), req.OrderAmount)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	record, err := revenue.NewOrderRevenue(revenue.NewOrderRevenueParams{
		TenantID:          tenantID,
		OrderID:           req.OrderID,
		PartnerID:         req.PartnerID,
		PartnerTier:       commission.AppliedTier,
		CommissionType:    commission.CommissionType,
		OrderAmount:       req.OrderAmount,
		PartnerCommission: commission.Amount,
		TotalFees:         req.TotalFees,
		PaymentMethod:     req.PaymentMethod,
		At:                s.clock.Now(),
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.orderRepo.Create(ctx, record); err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			err = shared.NewDomainError(shared.CodeAlreadyExists, "revenue for order "+req.OrderID+" is already recorded")
		}
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("Order revenue recorded",
		zap.String("tenant_id", tenantID.String()),
		zap.String("order_id", record.OrderID),
		zap.String("partner_id", record.PartnerID),
		zap.String("partner_commission", record.PartnerCommission.StringFixed(2)))
	s.publish(ctx, record)
	resp := toOrderRevenueResponse(record)
	return &resp, nil
}

// Settle moves received revenue to settled
func (s *OrderRevenueService) Settle(ctx context.Context, tenantID uuid.UUID, orderID string) (*OrderRevenueResponse, error) {
	return s.transition(ctx, tenantID, orderID, "settle", func(r *revenue.OrderRevenue) error {
		return r.Settle(s.clock.Now())
	})
}

// Dispute flags an order's revenue as disputed so no payout picks it up
func (s *OrderRevenueService) Dispute(ctx context.Context, tenantID uuid.UUID, orderID string, req DisputeOrderRequest) (*OrderRevenueResponse, error) {
	return s.transition(ctx, tenantID, orderID, "dispute", func(r *revenue.OrderRevenue) error {
		return r.Dispute(req.Reason, s.clock.Now())
	})
}

func (s *OrderRevenueService) transition(ctx context.Context, tenantID uuid.UUID, orderID, method string, apply func(r *revenue.OrderRevenue) error) (*OrderRevenueResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "order_revenue", method)
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrOrderID, orderID)

	var record *revenue.OrderRevenue
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		locked, err := repos.OrderRepo().FindByOrderIDsForUpdate(ctx, tenantID, []string{orderID})
		if err != nil {
			return err
		}
		if len(locked) == 0 {
			return shared.NewNotFoundError("order revenue", orderID)
		}
		r := &locked[0]
		if err := apply(r); err != nil {
			return err
		}
		if err := repos.OrderRepo().SaveWithLock(ctx, r); err != nil {
			return err
		}
		record = r
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	resp := toOrderRevenueResponse(record)
	return &resp, nil
}

// GetByOrderID returns the revenue of an order
func (s *OrderRevenueService) GetByOrderID(ctx context.Context, tenantID uuid.UUID, orderID string) (*OrderRevenueResponse, error) {
	record, err := s.orderRepo.FindByOrderID(ctx, tenantID, orderID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewNotFoundError("order revenue", orderID)
		}
		return nil, err
	}
	resp := toOrderRevenueResponse(record)
	return &resp, nil
}

// List returns a page of order revenue records
func (s *OrderRevenueService) List(ctx context.Context, tenantID uuid.UUID, filter OrderRevenueListFilter) ([]OrderRevenueResponse, int64, error) {
	page, pageSize, orderBy, orderDir := pageDefaults(filter.Page, filter.PageSize, filter.OrderBy, filter.OrderDir)
	domainFilter := revenue.OrderRevenueFilter{
		Filter:    shared.Filter{Page: page, PageSize: pageSize, OrderBy: orderBy, OrderDir: orderDir},
		PartnerID: filter.PartnerID,
	}
	if filter.Status != "" {
		status := revenue.RevenueStatus(filter.Status)
		if !status.IsValid() {
			return nil, 0, shared.NewValidationError("invalid status %q", filter.Status)
		}
		domainFilter.Statuses = []revenue.RevenueStatus{status}
	}

	records, err := s.orderRepo.FindAllForTenant(ctx, tenantID, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.orderRepo.CountForTenant(ctx, tenantID, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	out := make([]OrderRevenueResponse, 0, len(records))
	for i := range records {
		out = append(out, toOrderRevenueResponse(&records[i]))
	}
	return out, total, nil
}
