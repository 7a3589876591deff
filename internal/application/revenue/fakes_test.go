package revenue

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/erp/settlement/internal/domain/revenue"
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/google/uuid"
)

// =============================================================================
// In-memory repositories
// =============================================================================

type memOrderRepo struct {
	mu     sync.Mutex
	orders map[string]revenue.OrderRevenue // keyed by tenant|order
	keys   []string
}

func newMemOrderRepo() *memOrderRepo {
	return &memOrderRepo{orders: make(map[string]revenue.OrderRevenue)}
}

func orderKey(tenantID uuid.UUID, orderID string) string {
	return tenantID.String() + "|" + orderID
}

func storedOrder(r revenue.OrderRevenue) revenue.OrderRevenue {
	r.ClearDomainEvents()
	return r
}

func (r *memOrderRepo) FindByOrderID(_ context.Context, tenantID uuid.UUID, orderID string) (*revenue.OrderRevenue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[orderKey(tenantID, orderID)]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &o, nil
}

func (r *memOrderRepo) FindByOrderIDsForUpdate(_ context.Context, tenantID uuid.UUID, orderIDs []string) ([]revenue.OrderRevenue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]revenue.OrderRevenue, 0, len(orderIDs))
	for _, id := range orderIDs {
		if o, ok := r.orders[orderKey(tenantID, id)]; ok {
			out = append(out, o)
		}
	}
	return out, nil
}

func (r *memOrderRepo) matching(tenantID uuid.UUID, filter revenue.OrderRevenueFilter) []revenue.OrderRevenue {
	out := make([]revenue.OrderRevenue, 0)
	for _, k := range r.keys {
		o := r.orders[k]
		if o.TenantID != tenantID {
			continue
		}
		if filter.PartnerID != "" && o.PartnerID != filter.PartnerID {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, o.Status) {
			continue
		}
		if filter.CreatedFrom != nil && o.CreatedAt.Before(*filter.CreatedFrom) {
			continue
		}
		if filter.CreatedTo != nil && o.CreatedAt.After(*filter.CreatedTo) {
			continue
		}
		if filter.PayoutID != nil && (o.PayoutID == nil || *o.PayoutID != *filter.PayoutID) {
			continue
		}
		out = append(out, o)
	}
	return out
}

func containsStatus[T comparable](list []T, v T) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func (r *memOrderRepo) FindAllForTenant(_ context.Context, tenantID uuid.UUID, filter revenue.OrderRevenueFilter) ([]revenue.OrderRevenue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return page(r.matching(tenantID, filter), filter.Page, filter.PageSize), nil
}

func (r *memOrderRepo) CountForTenant(_ context.Context, tenantID uuid.UUID, filter revenue.OrderRevenueFilter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.matching(tenantID, filter))), nil
}

func (r *memOrderRepo) payable(tenantID uuid.UUID, partnerID string, period revenue.Period) []revenue.OrderRevenue {
	return r.matching(tenantID, revenue.OrderRevenueFilter{
		PartnerID:   partnerID,
		Statuses:    revenue.PayableStatuses(),
		CreatedFrom: &period.Start,
		CreatedTo:   &period.End,
	})
}

func (r *memOrderRepo) FindPayablePartners(_ context.Context, tenantID uuid.UUID, period revenue.Period) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, o := range r.payable(tenantID, "", period) {
		if _, ok := seen[o.PartnerID]; !ok {
			seen[o.PartnerID] = struct{}{}
			out = append(out, o.PartnerID)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (r *memOrderRepo) FindPayable(_ context.Context, tenantID uuid.UUID, partnerID string, period revenue.Period) ([]revenue.OrderRevenue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.payable(tenantID, partnerID, period), nil
}

func (r *memOrderRepo) FindPayableForUpdate(ctx context.Context, tenantID uuid.UUID, partnerID string, period revenue.Period) ([]revenue.OrderRevenue, error) {
	return r.FindPayable(ctx, tenantID, partnerID, period)
}

func (r *memOrderRepo) MarkPaidOut(_ context.Context, tenantID uuid.UUID, orderIDs []string, payoutID uuid.UUID, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, id := range orderIDs {
		k := orderKey(tenantID, id)
		o, ok := r.orders[k]
		if !ok || !o.Status.IsPayable() {
			continue
		}
		pid := payoutID
		o.Status = revenue.RevenueStatusPaidOut
		o.PayoutID = &pid
		o.UpdatedAt = at
		o.Version++
		r.orders[k] = o
		n++
	}
	return n, nil
}

func (r *memOrderRepo) ReleaseFromPayout(_ context.Context, tenantID, payoutID uuid.UUID, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for k, o := range r.orders {
		if o.TenantID != tenantID || o.Status != revenue.RevenueStatusPaidOut || o.PayoutID == nil || *o.PayoutID != payoutID {
			continue
		}
		o.Status = revenue.RevenueStatusSettled
		o.PayoutID = nil
		o.UpdatedAt = at
		o.Version++
		r.orders[k] = o
		n++
	}
	return n, nil
}

func (r *memOrderRepo) Create(_ context.Context, record *revenue.OrderRevenue) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := orderKey(record.TenantID, record.OrderID)
	if _, ok := r.orders[k]; ok {
		return shared.ErrAlreadyExists
	}
	r.orders[k] = storedOrder(*record)
	r.keys = append(r.keys, k)
	return nil
}

func (r *memOrderRepo) SaveWithLock(_ context.Context, record *revenue.OrderRevenue) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := orderKey(record.TenantID, record.OrderID)
	stored, ok := r.orders[k]
	if !ok || stored.Version != record.Version-1 {
		return shared.ErrConcurrencyConflict
	}
	r.orders[k] = storedOrder(*record)
	return nil
}

type memPayoutRepo struct {
	mu      sync.Mutex
	payouts map[uuid.UUID]revenue.Payout
	order   []uuid.UUID
}

func newMemPayoutRepo() *memPayoutRepo {
	return &memPayoutRepo{payouts: make(map[uuid.UUID]revenue.Payout)}
}

func storedPayout(p revenue.Payout) revenue.Payout {
	p.ClearDomainEvents()
	p.OrderIDs = append(revenue.StringList{}, p.OrderIDs...)
	return p
}

func (r *memPayoutRepo) FindByIDForTenant(_ context.Context, tenantID, id uuid.UUID) (*revenue.Payout, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payouts[id]
	if !ok || p.TenantID != tenantID {
		return nil, shared.ErrNotFound
	}
	c := storedPayout(p)
	return &c, nil
}

func (r *memPayoutRepo) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*revenue.Payout, error) {
	return r.FindByIDForTenant(ctx, tenantID, id)
}

func (r *memPayoutRepo) matching(tenantID uuid.UUID, filter revenue.PayoutFilter) []revenue.Payout {
	out := make([]revenue.Payout, 0)
	for _, id := range r.order {
		p := r.payouts[id]
		if p.TenantID != tenantID {
			continue
		}
		if filter.PartnerID != "" && p.PartnerID != filter.PartnerID {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, p.Status) {
			continue
		}
		if filter.PeriodStart != nil && !p.PeriodStart.Equal(*filter.PeriodStart) {
			continue
		}
		if filter.PeriodEnd != nil && !p.PeriodEnd.Equal(*filter.PeriodEnd) {
			continue
		}
		if filter.Overlapping != nil && !filter.Overlapping.Overlaps(revenue.Period{Start: p.PeriodStart, End: p.PeriodEnd}) {
			continue
		}
		out = append(out, storedPayout(p))
	}
	return out
}

func (r *memPayoutRepo) FindAllForTenant(_ context.Context, tenantID uuid.UUID, filter revenue.PayoutFilter) ([]revenue.Payout, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return page(r.matching(tenantID, filter), filter.Page, filter.PageSize), nil
}

func (r *memPayoutRepo) CountForTenant(_ context.Context, tenantID uuid.UUID, filter revenue.PayoutFilter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.matching(tenantID, filter))), nil
}

func (r *memPayoutRepo) Create(_ context.Context, payout *revenue.Payout) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.payouts {
		if p.TenantID == payout.TenantID && p.PartnerID == payout.PartnerID &&
			p.PeriodStart.Equal(payout.PeriodStart) && p.PeriodEnd.Equal(payout.PeriodEnd) &&
			p.Status != revenue.PayoutStatusFailed {
			return shared.ErrConcurrencyConflict
		}
	}
	r.payouts[payout.ID] = storedPayout(*payout)
	r.order = append(r.order, payout.ID)
	return nil
}

func (r *memPayoutRepo) SaveWithLock(_ context.Context, payout *revenue.Payout) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.payouts[payout.ID]
	if !ok || stored.Version != payout.Version-1 {
		return shared.ErrConcurrencyConflict
	}
	r.payouts[payout.ID] = storedPayout(*payout)
	return nil
}

func (r *memPayoutRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.payouts)
}

type memCollectionRepo struct {
	mu          sync.Mutex
	collections map[uuid.UUID]revenue.PaymentCollection
	order       []uuid.UUID
}

func newMemCollectionRepo() *memCollectionRepo {
	return &memCollectionRepo{collections: make(map[uuid.UUID]revenue.PaymentCollection)}
}

func storedCollection(c revenue.PaymentCollection) revenue.PaymentCollection {
	c.ClearDomainEvents()
	c.OrderIDs = append(revenue.StringList{}, c.OrderIDs...)
	return c
}

func (r *memCollectionRepo) FindByIDForTenant(_ context.Context, tenantID, id uuid.UUID) (*revenue.PaymentCollection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.collections[id]
	if !ok || c.TenantID != tenantID {
		return nil, shared.ErrNotFound
	}
	out := storedCollection(c)
	return &out, nil
}

func (r *memCollectionRepo) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*revenue.PaymentCollection, error) {
	return r.FindByIDForTenant(ctx, tenantID, id)
}

func (r *memCollectionRepo) matching(tenantID uuid.UUID, filter revenue.CollectionFilter) []revenue.PaymentCollection {
	out := make([]revenue.PaymentCollection, 0)
	for _, id := range r.order {
		c := r.collections[id]
		if c.TenantID != tenantID {
			continue
		}
		if filter.Method != nil && c.CollectionMethod != *filter.Method {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, c.Status) {
			continue
		}
		out = append(out, storedCollection(c))
	}
	return out
}

func (r *memCollectionRepo) FindAllForTenant(_ context.Context, tenantID uuid.UUID, filter revenue.CollectionFilter) ([]revenue.PaymentCollection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return page(r.matching(tenantID, filter), filter.Page, filter.PageSize), nil
}

func (r *memCollectionRepo) CountForTenant(_ context.Context, tenantID uuid.UUID, filter revenue.CollectionFilter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.matching(tenantID, filter))), nil
}

func (r *memCollectionRepo) Create(_ context.Context, collection *revenue.PaymentCollection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.collections[collection.ID] = storedCollection(*collection)
	r.order = append(r.order, collection.ID)
	return nil
}

func (r *memCollectionRepo) SaveWithLock(_ context.Context, collection *revenue.PaymentCollection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.collections[collection.ID]
	if !ok || stored.Version != collection.Version-1 {
		return shared.ErrConcurrencyConflict
	}
	r.collections[collection.ID] = storedCollection(*collection)
	return nil
}

func page[T any](items []T, pageNum, pageSize int) []T {
	if pageSize <= 0 {
		return items
	}
	start := (pageNum - 1) * pageSize
	if start < 0 || start >= len(items) {
		return []T{}
	}
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

// =============================================================================
// Collaborators
// =============================================================================

type seqNumbers struct {
	mu sync.Mutex
	n  int
}

func (g *seqNumbers) Generate(prefix string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", prefix, g.n)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (p *recordingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType())
	}
	return out
}

type stubExporter struct {
	mu       sync.Mutex
	err      error
	exported []string
}

func (e *stubExporter) Export(_ context.Context, payout *revenue.Payout, _ []revenue.OrderRevenue) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return "", e.err
	}
	key := "statements/" + payout.PayoutNumber + ".csv"
	e.exported = append(e.exported, key)
	return key, nil
}
