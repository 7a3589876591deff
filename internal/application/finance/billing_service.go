package finance

import (
	"context"
	"errors"

	"github.com/erp/settlement/internal/domain/finance"
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/erp/settlement/internal/infrastructure/telemetry"
	"github.com/google/uuid"
)

// BillingService manages the invoice and bill lifecycle. Every document
// mutation and the party balance change it implies commit together.
type BillingService struct {
	runtime
	txScope      TransactionScope
	documentRepo finance.BillingDocumentRepository
	numbers      shared.NumberGenerator
}

// NewBillingService creates a new BillingService
func NewBillingService(
	txScope TransactionScope,
	documentRepo finance.BillingDocumentRepository,
	numbers shared.NumberGenerator,
	opts ...Option,
) *BillingService {
	return &BillingService{
		runtime:      newRuntime(opts),
		txScope:      txScope,
		documentRepo: documentRepo,
		numbers:      numbers,
	}
}

// Create records a new invoice or bill and adds its total to the party balance
func (s *BillingService) Create(ctx context.Context, tenantID uuid.UUID, kind finance.DocumentKind, req CreateDocumentRequest) (*DocumentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "billing_document", "create")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrDocumentKind, string(kind),
		telemetry.SpanAttrPartyID, req.PartyID,
	)

	now := s.clock.Now()
	lines := make([]finance.LineItemInput, 0, len(req.LineItems))
	for _, l := range req.LineItems {
		lines = append(lines, finance.LineItemInput{
			Description: l.Description,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
		})
	}

	doc, err := finance.NewBillingDocument(finance.NewDocumentParams{
		TenantID:       tenantID,
		Kind:           kind,
		DocumentNumber: s.numbers.Generate(kind.NumberPrefix()),
		PartyID:        req.PartyID,
		PartyName:      req.PartyName,
		LineItems:      lines,
		IssueDate:      req.IssueDate,
		DueDate:        req.DueDate,
		Draft:          req.Draft,
		Remark:         req.Remark,
		At:             now,
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	var account *finance.PartyAccount
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		acc, err := lockPartyAccount(ctx, repos.PartyRepo(), tenantID, doc.PartyType, doc.PartyID, doc.PartyName)
		if err != nil {
			return err
		}
		if err := repos.DocumentRepo().Create(ctx, doc); err != nil {
			return err
		}
		acc.RecordDocument(doc.Total, now)
		if err := repos.PartyRepo().SaveWithLock(ctx, acc); err != nil {
			return err
		}
		account = acc
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.metrics.RecordDocumentIssued(ctx, tenantID, string(kind), doc.Total)
	s.publish(ctx, doc, account)
	resp := toDocumentResponse(doc, now)
	return &resp, nil
}

// Send issues a draft document
func (s *BillingService) Send(ctx context.Context, tenantID uuid.UUID, kind finance.DocumentKind, id uuid.UUID) (*DocumentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "billing_document", "send")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrDocumentID, id.String())

	now := s.clock.Now()
	var doc *finance.BillingDocument
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		d, err := lockDocument(ctx, repos.DocumentRepo(), tenantID, kind, id)
		if err != nil {
			return err
		}
		if err := d.Send(now); err != nil {
			return err
		}
		if err := repos.DocumentRepo().SaveWithLock(ctx, d); err != nil {
			return err
		}
		doc = d
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.publish(ctx, doc)
	resp := toDocumentResponse(doc, now)
	return &resp, nil
}

// Cancel cancels a document that is not paid and releases its unpaid
// remainder from the party balance in the same transaction
func (s *BillingService) Cancel(ctx context.Context, tenantID uuid.UUID, kind finance.DocumentKind, id uuid.UUID, req CancelDocumentRequest) (*DocumentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "billing_document", "cancel")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrDocumentID, id.String())

	now := s.clock.Now()
	var (
		doc     *finance.BillingDocument
		account *finance.PartyAccount
	)
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		d, err := lockDocument(ctx, repos.DocumentRepo(), tenantID, kind, id)
		if err != nil {
			return err
		}
		released, err := d.Cancel(req.Reason, now)
		if err != nil {
			return err
		}
		if err := repos.DocumentRepo().SaveWithLock(ctx, d); err != nil {
			return err
		}

		acc, err := repos.PartyRepo().FindByPartyForUpdate(ctx, tenantID, d.PartyType, d.PartyID)
		if err != nil {
			return err
		}
		acc.ReleaseDocument(released, now)
		if err := repos.PartyRepo().SaveWithLock(ctx, acc); err != nil {
			return err
		}
		doc, account = d, acc
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.publish(ctx, doc, account)
	resp := toDocumentResponse(doc, now)
	return &resp, nil
}

// GetByID returns a document of the given kind
func (s *BillingService) GetByID(ctx context.Context, tenantID uuid.UUID, kind finance.DocumentKind, id uuid.UUID) (*DocumentResponse, error) {
	doc, err := s.documentRepo.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewNotFoundError(kind.String(), id.String())
		}
		return nil, err
	}
	if doc.Kind != kind {
		return nil, shared.NewNotFoundError(kind.String(), id.String())
	}
	resp := toDocumentResponse(doc, s.clock.Now())
	return &resp, nil
}

// List returns a page of documents of the given kind. Filtering by the
// overdue status selects open documents whose due date has passed.
func (s *BillingService) List(ctx context.Context, tenantID uuid.UUID, kind finance.DocumentKind, filter DocumentListFilter) ([]DocumentResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if filter.OrderBy == "" {
		filter.OrderBy = "created_at"
	}
	if filter.OrderDir == "" {
		filter.OrderDir = "desc"
	}

	now := s.clock.Now()
	domainFilter := finance.DocumentFilter{
		Filter: shared.Filter{
			Page:     filter.Page,
			PageSize: filter.PageSize,
			OrderBy:  filter.OrderBy,
			OrderDir: filter.OrderDir,
			Search:   filter.Search,
		},
		Kind:    &kind,
		PartyID: filter.PartyID,
		DueFrom: filter.DueFrom,
		DueTo:   filter.DueTo,
	}
	switch status := finance.DocumentStatus(filter.Status); {
	case status == finance.DocumentStatusOverdue:
		domainFilter.Statuses = []finance.DocumentStatus{finance.DocumentStatusSent, finance.DocumentStatusPartial}
		domainFilter.OverdueAt = &now
	case status != "":
		if !status.IsValid() {
			return nil, 0, shared.NewValidationError("invalid status %q", filter.Status)
		}
		domainFilter.Statuses = []finance.DocumentStatus{status}
		if status == finance.DocumentStatusSent || status == finance.DocumentStatusPartial {
			// overdue rows are listed under overdue
			domainFilter.CurrentAt = &now
		}
	}

	docs, err := s.documentRepo.FindAllForTenant(ctx, tenantID, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.documentRepo.CountForTenant(ctx, tenantID, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	out := make([]DocumentResponse, 0, len(docs))
	for i := range docs {
		out = append(out, toDocumentResponse(&docs[i], now))
	}
	return out, total, nil
}

// lockDocument loads a single document of the expected kind with a row lock
func lockDocument(ctx context.Context, repo finance.BillingDocumentRepository, tenantID uuid.UUID, kind finance.DocumentKind, id uuid.UUID) (*finance.BillingDocument, error) {
	docs, err := repo.FindByIDsForUpdate(ctx, tenantID, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 || docs[0].Kind != kind {
		return nil, shared.NewNotFoundError(kind.String(), id.String())
	}
	return &docs[0], nil
}

// lockPartyAccount creates the party's account on first use and returns it row-locked
func lockPartyAccount(ctx context.Context, repo finance.PartyAccountRepository, tenantID uuid.UUID, partyType finance.PartyType, partyID, partyName string) (*finance.PartyAccount, error) {
	fresh, err := finance.NewPartyAccount(tenantID, partyType, partyID, partyName)
	if err != nil {
		return nil, err
	}
	if err := repo.CreateIfAbsent(ctx, fresh); err != nil {
		return nil, err
	}
	account, err := repo.FindByPartyForUpdate(ctx, tenantID, partyType, partyID)
	if err != nil {
		return nil, err
	}
	account.UpdateName(partyName)
	return account, nil
}
