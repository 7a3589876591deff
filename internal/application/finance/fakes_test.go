package finance

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/erp/settlement/internal/domain/finance"
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// In-memory repositories
// =============================================================================

type memPartyRepo struct {
	mu       sync.Mutex
	accounts map[string]finance.PartyAccount
}

func newMemPartyRepo() *memPartyRepo {
	return &memPartyRepo{accounts: make(map[string]finance.PartyAccount)}
}

func partyKey(tenantID uuid.UUID, partyType finance.PartyType, partyID string) string {
	return tenantID.String() + "|" + string(partyType) + "|" + partyID
}

func (r *memPartyRepo) FindByParty(_ context.Context, tenantID uuid.UUID, partyType finance.PartyType, partyID string) (*finance.PartyAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[partyKey(tenantID, partyType, partyID)]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &a, nil
}

func (r *memPartyRepo) FindByPartyForUpdate(ctx context.Context, tenantID uuid.UUID, partyType finance.PartyType, partyID string) (*finance.PartyAccount, error) {
	return r.FindByParty(ctx, tenantID, partyType, partyID)
}

func (r *memPartyRepo) FindAllForTenant(_ context.Context, tenantID uuid.UUID, partyType *finance.PartyType) ([]finance.PartyAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]finance.PartyAccount, 0)
	for _, a := range r.accounts {
		if a.TenantID != tenantID || (partyType != nil && a.PartyType != *partyType) {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PartyID < out[j].PartyID })
	return out, nil
}

func (r *memPartyRepo) CreateIfAbsent(_ context.Context, account *finance.PartyAccount) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := partyKey(account.TenantID, account.PartyType, account.PartyID)
	if _, ok := r.accounts[key]; !ok {
		stored := *account
		stored.ClearDomainEvents()
		r.accounts[key] = stored
	}
	return nil
}

func (r *memPartyRepo) SaveWithLock(_ context.Context, account *finance.PartyAccount) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := partyKey(account.TenantID, account.PartyType, account.PartyID)
	stored, ok := r.accounts[key]
	if !ok || stored.Version != account.Version-1 {
		return shared.ErrConcurrencyConflict
	}
	stored = *account
	stored.ClearDomainEvents()
	r.accounts[key] = stored
	return nil
}

// setBalance corrupts the cached balance to simulate drift
func (r *memPartyRepo) setBalance(tenantID uuid.UUID, partyType finance.PartyType, partyID string, balance decimal.Decimal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := partyKey(tenantID, partyType, partyID)
	a := r.accounts[key]
	a.OutstandingBalance = balance
	r.accounts[key] = a
}

type memDocumentRepo struct {
	mu    sync.Mutex
	docs  map[uuid.UUID]finance.BillingDocument
	order []uuid.UUID
}

func newMemDocumentRepo() *memDocumentRepo {
	return &memDocumentRepo{docs: make(map[uuid.UUID]finance.BillingDocument)}
}

func cloneDocument(d finance.BillingDocument) finance.BillingDocument {
	d.ClearDomainEvents()
	d.LineItems = append(finance.LineItems{}, d.LineItems...)
	d.PaymentHistory = append(finance.PaymentHistory{}, d.PaymentHistory...)
	return d
}

func (r *memDocumentRepo) FindByIDForTenant(_ context.Context, tenantID, id uuid.UUID) (*finance.BillingDocument, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.docs[id]
	if !ok || d.TenantID != tenantID {
		return nil, shared.ErrNotFound
	}
	c := cloneDocument(d)
	return &c, nil
}

func (r *memDocumentRepo) FindByIDsForUpdate(_ context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]finance.BillingDocument, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]finance.BillingDocument, 0, len(ids))
	for _, id := range ids {
		if d, ok := r.docs[id]; ok && d.TenantID == tenantID {
			out = append(out, cloneDocument(d))
		}
	}
	return out, nil
}

func (r *memDocumentRepo) matching(tenantID uuid.UUID, filter finance.DocumentFilter) []finance.BillingDocument {
	out := make([]finance.BillingDocument, 0)
	for _, id := range r.order {
		d := r.docs[id]
		if d.TenantID != tenantID {
			continue
		}
		if filter.Kind != nil && d.Kind != *filter.Kind {
			continue
		}
		if filter.PartyID != "" && d.PartyID != filter.PartyID {
			continue
		}
		if len(filter.Statuses) > 0 {
			found := false
			for _, s := range filter.Statuses {
				if d.Status == s {
					found = true
				}
			}
			if !found {
				continue
			}
		}
		if filter.OverdueAt != nil && !d.IsOverdue(*filter.OverdueAt) {
			continue
		}
		if filter.CurrentAt != nil && d.IsOverdue(*filter.CurrentAt) {
			continue
		}
		out = append(out, cloneDocument(d))
	}
	return out
}

func (r *memDocumentRepo) FindAllForTenant(_ context.Context, tenantID uuid.UUID, filter finance.DocumentFilter) ([]finance.BillingDocument, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := r.matching(tenantID, filter)
	start := (filter.Page - 1) * filter.PageSize
	if start < 0 || start >= len(all) {
		return []finance.BillingDocument{}, nil
	}
	end := start + filter.PageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], nil
}

func (r *memDocumentRepo) CountForTenant(_ context.Context, tenantID uuid.UUID, filter finance.DocumentFilter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.matching(tenantID, filter))), nil
}

func (r *memDocumentRepo) FindOpen(_ context.Context, tenantID uuid.UUID, kind finance.DocumentKind, partyID string) ([]finance.BillingDocument, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.matching(tenantID, finance.DocumentFilter{
		Kind:     &kind,
		PartyID:  partyID,
		Statuses: []finance.DocumentStatus{finance.DocumentStatusSent, finance.DocumentStatusPartial},
	}), nil
}

func (r *memDocumentRepo) SumOwedByParty(_ context.Context, tenantID uuid.UUID, partyType finance.PartyType, partyID string) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sum := decimal.Zero
	for _, d := range r.docs {
		if d.TenantID == tenantID && d.PartyType == partyType && d.PartyID == partyID {
			sum = sum.Add(d.OwedAmount())
		}
	}
	return sum, nil
}

func (r *memDocumentRepo) Create(_ context.Context, doc *finance.BillingDocument) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.docs[doc.ID]; ok {
		return shared.ErrAlreadyExists
	}
	r.docs[doc.ID] = cloneDocument(*doc)
	r.order = append(r.order, doc.ID)
	return nil
}

func (r *memDocumentRepo) SaveWithLock(_ context.Context, doc *finance.BillingDocument) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.docs[doc.ID]
	if !ok || stored.Version != doc.Version-1 {
		return shared.ErrConcurrencyConflict
	}
	r.docs[doc.ID] = cloneDocument(*doc)
	return nil
}

type memPaymentRepo struct {
	mu       sync.Mutex
	payments map[uuid.UUID]finance.Payment
}

func newMemPaymentRepo() *memPaymentRepo {
	return &memPaymentRepo{payments: make(map[uuid.UUID]finance.Payment)}
}

func (r *memPaymentRepo) FindByIDForTenant(_ context.Context, tenantID, id uuid.UUID) (*finance.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok || p.TenantID != tenantID {
		return nil, shared.ErrNotFound
	}
	return &p, nil
}

func (r *memPaymentRepo) FindByIdempotencyKey(_ context.Context, tenantID uuid.UUID, key string) (*finance.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.payments {
		if p.TenantID == tenantID && p.IdempotencyKey != nil && *p.IdempotencyKey == key {
			return &p, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memPaymentRepo) FindByParty(_ context.Context, tenantID uuid.UUID, partyType finance.PartyType, partyID string) ([]finance.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]finance.Payment, 0)
	for _, p := range r.payments {
		if p.TenantID == tenantID && p.PartyType == partyType && p.PartyID == partyID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PaymentNumber > out[j].PaymentNumber })
	return out, nil
}

func (r *memPaymentRepo) ClaimIdempotencyKey(context.Context, uuid.UUID, string) error {
	return nil
}

func (r *memPaymentRepo) Create(_ context.Context, payment *finance.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.payments {
		if payment.IdempotencyKey != nil && p.IdempotencyKey != nil && *p.IdempotencyKey == *payment.IdempotencyKey {
			return shared.ErrAlreadyExists
		}
	}
	stored := *payment
	stored.ClearDomainEvents()
	r.payments[payment.ID] = stored
	return nil
}

func (r *memPaymentRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.payments)
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
