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

// ReconciliationService matches external payment collections against the
// order revenue they cover
type ReconciliationService struct {
	runtime
	txScope        TransactionScope
	collectionRepo revenue.PaymentCollectionRepository
	numbers        shared.NumberGenerator
}

// NewReconciliationService creates a new ReconciliationService
func NewReconciliationService(
	txScope TransactionScope,
	collectionRepo revenue.PaymentCollectionRepository,
	numbers shared.NumberGenerator,
	opts ...Option,
) *ReconciliationService {
	return &ReconciliationService{
		runtime:        newRuntime(opts),
		txScope:        txScope,
		collectionRepo: collectionRepo,
		numbers:        numbers,
	}
}

// CreateCollection records a pending collection; every order must have
// recorded revenue
func (s *ReconciliationService) CreateCollection(ctx context.Context, tenantID uuid.UUID, req CreateCollectionRequest) (*CollectionResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment_collection", "create")
	defer span.End()

	collectionDate := s.clock.Now()
	if req.CollectionDate != nil && !req.CollectionDate.IsZero() {
		collectionDate = *req.CollectionDate
	}
	collection, err := revenue.NewPaymentCollection(revenue.NewCollectionParams{
		TenantID:         tenantID,
		CollectionNumber: s.numbers.Generate("COL"),
		OrderIDs:         req.OrderIDs,
		Method:           revenue.CollectionMethod(req.Method),
		CollectorID:      req.CollectorID,
		TotalAmount:      req.TotalAmount,
		CollectionDate:   collectionDate,
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		orders, err := repos.OrderRepo().FindByOrderIDsForUpdate(ctx, tenantID, collection.OrderIDs)
		if err != nil {
			return err
		}
		if missing := missingOrders(collection.OrderIDs, orders); len(missing) > 0 {
			return shared.NewNotFoundError("order revenue", missing[0])
		}
		return repos.CollectionRepo().Create(ctx, collection)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	resp := toCollectionResponse(collection)
	return &resp, nil
}

// MarkCollected records that the collector holds the money
func (s *ReconciliationService) MarkCollected(ctx context.Context, tenantID, id uuid.UUID) (*CollectionResponse, error) {
	return s.transition(ctx, tenantID, id, "collect", func(c *revenue.PaymentCollection) error {
		return c.MarkCollected(s.clock.Now())
	})
}

// MarkDeposited records that the money reached the platform account
func (s *ReconciliationService) MarkDeposited(ctx context.Context, tenantID, id uuid.UUID) (*CollectionResponse, error) {
	return s.transition(ctx, tenantID, id, "deposit", func(c *revenue.PaymentCollection) error {
		return c.MarkDeposited(s.clock.Now())
	})
}

func (s *ReconciliationService) transition(ctx context.Context, tenantID, id uuid.UUID, method string, apply func(c *revenue.PaymentCollection) error) (*CollectionResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment_collection", method)
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrCollectionID, id.String())

	var collection *revenue.PaymentCollection
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		c, err := lockCollection(ctx, repos, tenantID, id)
		if err != nil {
			return err
		}
		if err := apply(c); err != nil {
			return err
		}
		if err := repos.CollectionRepo().SaveWithLock(ctx, c); err != nil {
			return err
		}
		collection = c
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	resp := toCollectionResponse(collection)
	return &resp, nil
}

// Reconcile checks the collection total against its orders. On an exact
// match the pending orders become received and the collection reconciled
// in one transaction; on a mismatch nothing changes.
func (s *ReconciliationService) Reconcile(ctx context.Context, tenantID, id uuid.UUID) (*ReconciliationResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment_collection", "reconcile")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrCollectionID, id.String())

	now := s.clock.Now()
	var (
		collection *revenue.PaymentCollection
		orders     []revenue.OrderRevenue
		method     revenue.CollectionMethod
	)
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		c, err := lockCollection(ctx, repos, tenantID, id)
		if err != nil {
			return err
		}
		method = c.CollectionMethod
		locked, err := repos.OrderRepo().FindByOrderIDsForUpdate(ctx, tenantID, c.OrderIDs)
		if err != nil {
			return err
		}

		versions := make(map[string]int, len(locked))
		for _, o := range locked {
			versions[o.OrderID] = o.Version
		}
		if err := c.Reconcile(locked, now); err != nil {
			return err
		}
		for i := range locked {
			if locked[i].Version == versions[locked[i].OrderID] {
				continue // already received
			}
			if err := repos.OrderRepo().SaveWithLock(ctx, &locked[i]); err != nil {
				return err
			}
		}
		if err := repos.CollectionRepo().SaveWithLock(ctx, c); err != nil {
			return err
		}
		collection, orders = c, locked
		return nil
	})
	if err != nil {
		if errors.Is(err, shared.ErrReconciliation) {
			s.logger.Warn("Collection reconciliation mismatch",
				zap.String("tenant_id", tenantID.String()),
				zap.String("collection_id", id.String()),
				zap.Error(err))
			s.metrics.RecordReconciliationMismatch(ctx, tenantID, string(method))
		}
		telemetry.RecordError(span, err)
		return nil, err
	}

	expected := collection.ExpectedAmount(orders)
	s.logger.Info("Collection reconciled",
		zap.String("tenant_id", tenantID.String()),
		zap.String("collection_number", collection.CollectionNumber),
		zap.Int("orders", len(orders)),
		zap.String("amount", expected.StringFixed(2)))
	s.publish(ctx, collection)

	out := make([]OrderRevenueResponse, 0, len(orders))
	for i := range orders {
		out = append(out, toOrderRevenueResponse(&orders[i]))
	}
	return &ReconciliationResponse{
		Collection:     toCollectionResponse(collection),
		ExpectedAmount: expected,
		Orders:         out,
	}, nil
}

// GetByID returns a collection
func (s *ReconciliationService) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*CollectionResponse, error) {
	c, err := s.collectionRepo.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewNotFoundError("payment collection", id.String())
		}
		return nil, err
	}
	resp := toCollectionResponse(c)
	return &resp, nil
}

// List returns a page of collections
func (s *ReconciliationService) List(ctx context.Context, tenantID uuid.UUID, filter CollectionListFilter) ([]CollectionResponse, int64, error) {
	page, pageSize, orderBy, orderDir := pageDefaults(filter.Page, filter.PageSize, filter.OrderBy, filter.OrderDir)
	domainFilter := revenue.CollectionFilter{
		Filter: shared.Filter{Page: page, PageSize: pageSize, OrderBy: orderBy, OrderDir: orderDir, Search: filter.Search},
	}
	if filter.Method != "" {
		m := revenue.CollectionMethod(filter.Method)
		if !m.IsValid() {
			return nil, 0, shared.NewValidationError("invalid collection method %q", filter.Method)
		}
		domainFilter.Method = &m
	}
	if filter.Status != "" {
		status := revenue.CollectionStatus(filter.Status)
		if !status.IsValid() {
			return nil, 0, shared.NewValidationError("invalid status %q", filter.Status)
		}
		domainFilter.Statuses = []revenue.CollectionStatus{status}
	}

	collections, err := s.collectionRepo.FindAllForTenant(ctx, tenantID, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.collectionRepo.CountForTenant(ctx, tenantID, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	out := make([]CollectionResponse, 0, len(collections))
	for i := range collections {
		out = append(out, toCollectionResponse(&collections[i]))
	}
	return out, total, nil
}

func lockCollection(ctx context.Context, repos TransactionalRepositories, tenantID, id uuid.UUID) (*revenue.PaymentCollection, error) {
	c, err := repos.CollectionRepo().FindByIDForUpdate(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewNotFoundError("payment collection", id.String())
		}
		return nil, err
	}
	return c, nil
}

func missingOrders(want []string, found []revenue.OrderRevenue) []string {
	have := make(map[string]struct{}, len(found))
	for _, o := range found {
		have[o.OrderID] = struct{}{}
	}
	missing := make([]string, 0)
	for _, id := range want {
		if _, ok := have[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}
