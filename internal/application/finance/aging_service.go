package finance

import (
	"context"
	"time"

	"github.com/erp/settlement/internal/domain/finance"
	"github.com/erp/settlement/internal/infrastructure/telemetry"
	"github.com/google/uuid"
)

// AgingService serves aging reports. It only reads and takes no locks.
type AgingService struct {
	runtime
	documentRepo finance.BillingDocumentRepository
}

// NewAgingService creates a new AgingService
func NewAgingService(documentRepo finance.BillingDocumentRepository, opts ...Option) *AgingService {
	return &AgingService{
		runtime:      newRuntime(opts),
		documentRepo: documentRepo,
	}
}

// PartyAging ages one party's open documents of the given kind.
// A nil asOf means now.
func (s *AgingService) PartyAging(ctx context.Context, tenantID uuid.UUID, kind finance.DocumentKind, partyID string, asOf *time.Time) (*finance.AgingReport, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "aging", "party")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrDocumentKind, string(kind),
		telemetry.SpanAttrPartyID, partyID,
	)

	docs, err := s.documentRepo.FindOpen(ctx, tenantID, kind, partyID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	report := finance.ComputeAging(kind.PartyType(), partyID, docs, s.asOf(asOf))
	return &report, nil
}

// Summary ages every party's open documents of the given kind
func (s *AgingService) Summary(ctx context.Context, tenantID uuid.UUID, kind finance.DocumentKind, asOf *time.Time) (*finance.AgingSummary, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "aging", "summary")
	defer span.End()

	docs, err := s.documentRepo.FindOpen(ctx, tenantID, kind, "")
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	summary := finance.SummarizeAging(kind, docs, s.asOf(asOf))
	return &summary, nil
}

func (s *AgingService) asOf(asOf *time.Time) time.Time {
	if asOf == nil || asOf.IsZero() {
		return s.clock.Now()
	}
	return asOf.UTC()
}
