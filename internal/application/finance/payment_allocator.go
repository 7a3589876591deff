package finance

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/erp/settlement/internal/domain/finance"
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/erp/settlement/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PaymentAllocator applies a payment across a party's open documents.
// The documents, the party balance and the payment record are written in
// one transaction; a repeated idempotency key returns the original payment.
type PaymentAllocator struct {
	runtime
	txScope     TransactionScope
	paymentRepo finance.PaymentRepository
	numbers     shared.NumberGenerator
}

// NewPaymentAllocator creates a new PaymentAllocator
func NewPaymentAllocator(
	txScope TransactionScope,
	paymentRepo finance.PaymentRepository,
	numbers shared.NumberGenerator,
	opts ...Option,
) *PaymentAllocator {
	return &PaymentAllocator{
		runtime:     newRuntime(opts),
		txScope:     txScope,
		paymentRepo: paymentRepo,
		numbers:     numbers,
	}
}

// ApplyPayment validates, allocates and applies a payment
func (s *PaymentAllocator) ApplyPayment(ctx context.Context, tenantID uuid.UUID, req ApplyPaymentRequest) (*PaymentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "apply")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrPartyType, req.PartyType,
		telemetry.SpanAttrPartyID, req.PartyID,
		telemetry.SpanAttrAmount, req.Amount.String(),
	)

	key := strings.TrimSpace(req.IdempotencyKey)
	if key != "" {
		if existing, err := s.findReplay(ctx, tenantID, key, req); err != nil || existing != nil {
			return existing, err
		}
	}

	partyType := finance.PartyType(req.PartyType)
	if err := validatePaymentRequest(partyType, req); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	now := s.clock.Now()
	paymentDate := now
	if req.PaymentDate != nil && !req.PaymentDate.IsZero() {
		paymentDate = req.PaymentDate.UTC()
	}

	explicit := make([]finance.Allocation, 0, len(req.Allocations))
	for _, a := range req.Allocations {
		explicit = append(explicit, finance.Allocation{DocumentID: a.DocumentID, Amount: a.Amount})
	}

	var (
		payment *finance.Payment
		earlier *finance.Payment
		docs    []finance.BillingDocument
		account *finance.PartyAccount
	)
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		// Claim the key before reading documents
		if key != "" {
			if err := repos.PaymentRepo().ClaimIdempotencyKey(ctx, tenantID, key); err != nil {
				return err
			}
			found, err := repos.PaymentRepo().FindByIdempotencyKey(ctx, tenantID, key)
			if err == nil {
				earlier = found
				return nil
			}
			if !errors.Is(err, shared.ErrNotFound) {
				return err
			}
		}

		locked, err := repos.DocumentRepo().FindByIDsForUpdate(ctx, tenantID, req.DocumentIDs)
		if err != nil {
			return err
		}
		byID, err := indexTargets(locked, req.DocumentIDs, partyType, req.PartyID)
		if err != nil {
			return err
		}

		targets := make([]finance.AllocationTarget, 0, len(req.DocumentIDs))
		totalDue := decimal.Zero
		for _, id := range req.DocumentIDs {
			d := byID[id]
			targets = append(targets, finance.AllocationTarget{
				DocumentID:     d.ID,
				DocumentNumber: d.DocumentNumber,
				AmountDue:      d.AmountDue,
			})
			totalDue = totalDue.Add(d.AmountDue)
		}
		if req.Amount.GreaterThan(totalDue) {
			return shared.NewDomainError(shared.CodeOverpayment,
				fmt.Sprintf("payment amount %s exceeds total amount due %s", req.Amount.StringFixed(2), totalDue.StringFixed(2)))
		}

		allocations, err := finance.NewAllocationStrategy(explicit).Allocate(req.Amount, targets)
		if err != nil {
			return err
		}

		p, err := finance.NewPayment(finance.NewPaymentParams{
			TenantID:        tenantID,
			PaymentNumber:   s.numbers.Generate("PAY"),
			PartyType:       partyType,
			PartyID:         req.PartyID,
			Allocations:     allocations,
			Method:          finance.PaymentMethod(req.Method),
			ReferenceNumber: req.ReferenceNumber,
			PaymentDate:     paymentDate,
			IdempotencyKey:  key,
		})
		if err != nil {
			return err
		}

		applied := make([]finance.BillingDocument, 0, len(allocations))
		for _, a := range allocations {
			d := byID[a.DocumentID]
			if err := d.ApplyPayment(p.ID, a.Amount, p.Method, p.ReferenceNumber, now); err != nil {
				return err
			}
			if err := repos.DocumentRepo().SaveWithLock(ctx, d); err != nil {
				return err
			}
			applied = append(applied, *d)
		}

		acc, err := repos.PartyRepo().FindByPartyForUpdate(ctx, tenantID, partyType, req.PartyID)
		if err != nil {
			return err
		}
		acc.RecordPayment(p.Amount, paymentDate)
		if err := repos.PartyRepo().SaveWithLock(ctx, acc); err != nil {
			return err
		}

		if err := repos.PaymentRepo().Create(ctx, p); err != nil {
			return err
		}
		payment, docs, account = p, applied, acc
		return nil
	})
	if err != nil {
		// A concurrent request with the same key may have committed first
		if key != "" {
			existing, findErr := s.findReplay(ctx, tenantID, key, req)
			if existing != nil || errors.Is(findErr, shared.ErrIdempotencyConflict) {
				return existing, findErr
			}
		}
		telemetry.RecordError(span, err)
		return nil, err
	}
	if earlier != nil {
		return s.replay(ctx, tenantID, earlier, req)
	}

	s.logger.Info("Payment applied",
		zap.String("tenant_id", tenantID.String()),
		zap.String("payment_number", payment.PaymentNumber),
		zap.String("party_id", payment.PartyID),
		zap.String("amount", payment.Amount.StringFixed(2)),
		zap.Int("documents", len(docs)))
	s.metrics.RecordPaymentApplied(ctx, tenantID, string(partyType), payment.Amount)

	aggregates := []shared.AggregateRoot{payment, account}
	for i := range docs {
		aggregates = append(aggregates, &docs[i])
	}
	s.publish(ctx, aggregates...)
	return toPaymentResponse(payment, false), nil
}

// GetByID returns a payment
func (s *PaymentAllocator) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*PaymentResponse, error) {
	p, err := s.paymentRepo.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewNotFoundError("payment", id.String())
		}
		return nil, err
	}
	return toPaymentResponse(p, false), nil
}

// ListByParty returns the payments of a party, newest first
func (s *PaymentAllocator) ListByParty(ctx context.Context, tenantID uuid.UUID, partyType finance.PartyType, partyID string) ([]PaymentResponse, error) {
	payments, err := s.paymentRepo.FindByParty(ctx, tenantID, partyType, partyID)
	if err != nil {
		return nil, err
	}
	out := make([]PaymentResponse, 0, len(payments))
	for i := range payments {
		out = append(out, *toPaymentResponse(&payments[i], false))
	}
	return out, nil
}

func (s *PaymentAllocator) findReplay(ctx context.Context, tenantID uuid.UUID, key string, req ApplyPaymentRequest) (*PaymentResponse, error) {
	existing, err := s.paymentRepo.FindByIdempotencyKey(ctx, tenantID, key)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return s.replay(ctx, tenantID, existing, req)
}

// replay answers a retried request with the payment recorded under its key.
// A key reused for a different payment is rejected.
func (s *PaymentAllocator) replay(ctx context.Context, tenantID uuid.UUID, existing *finance.Payment, req ApplyPaymentRequest) (*PaymentResponse, error) {
	if !sameRequest(existing, req) {
		return nil, shared.NewDomainError(shared.CodeIdempotencyConflict,
			fmt.Sprintf("idempotency key %q was already used for payment %s with different details",
				strings.TrimSpace(req.IdempotencyKey), existing.PaymentNumber))
	}
	s.metrics.RecordPaymentReplayed(ctx, tenantID)
	return toPaymentResponse(existing, true), nil
}

// sameRequest reports whether req could have produced the recorded payment
func sameRequest(p *finance.Payment, req ApplyPaymentRequest) bool {
	if string(p.PartyType) != req.PartyType || p.PartyID != req.PartyID ||
		string(p.Method) != req.Method || !p.Amount.Equal(req.Amount) {
		return false
	}
	requested := make(map[uuid.UUID]struct{}, len(req.DocumentIDs))
	for _, id := range req.DocumentIDs {
		requested[id] = struct{}{}
	}
	allocated := make(map[uuid.UUID]decimal.Decimal, len(p.Allocations))
	for _, a := range p.Allocations {
		if _, ok := requested[a.DocumentID]; !ok {
			return false
		}
		allocated[a.DocumentID] = a.Amount
	}
	for _, a := range req.Allocations {
		if amount, ok := allocated[a.DocumentID]; !ok || !amount.Equal(a.Amount) {
			return false
		}
	}
	return true
}

func validatePaymentRequest(partyType finance.PartyType, req ApplyPaymentRequest) error {
	if !partyType.IsValid() {
		return shared.NewValidationError("invalid party type %q", req.PartyType)
	}
	if req.PartyID == "" {
		return shared.NewValidationError("party id cannot be empty")
	}
	if len(req.DocumentIDs) == 0 {
		return shared.NewValidationError("at least one document is required")
	}
	seen := make(map[uuid.UUID]struct{}, len(req.DocumentIDs))
	for _, id := range req.DocumentIDs {
		if _, dup := seen[id]; dup {
			return shared.NewValidationError("document %s is listed more than once", id)
		}
		seen[id] = struct{}{}
	}
	if !req.Amount.IsPositive() {
		return shared.NewValidationError("payment amount must be positive")
	}
	if !req.Amount.Equal(shared.Round2(req.Amount)) {
		return shared.NewValidationError("payment amount has more than two decimal places")
	}
	if !finance.PaymentMethod(req.Method).IsValid() {
		return shared.NewValidationError("invalid payment method %q", req.Method)
	}
	return nil
}

// indexTargets checks that every requested document was found, belongs to
// the paying party and can take a payment
func indexTargets(locked []finance.BillingDocument, ids []uuid.UUID, partyType finance.PartyType, partyID string) (map[uuid.UUID]*finance.BillingDocument, error) {
	byID := make(map[uuid.UUID]*finance.BillingDocument, len(locked))
	for i := range locked {
		byID[locked[i].ID] = &locked[i]
	}
	for _, id := range ids {
		d, ok := byID[id]
		if !ok {
			return nil, shared.NewNotFoundError("document", id.String())
		}
		if d.PartyType != partyType || d.PartyID != partyID {
			return nil, shared.NewValidationError("document %s does not belong to %s %s", d.DocumentNumber, partyType, partyID)
		}
		if !d.Status.CanApplyPayment() {
			return nil, shared.NewInvalidStateError("cannot apply payment to %s %s in %s status", d.Kind, d.DocumentNumber, d.Status)
		}
	}
	return byID, nil
}
