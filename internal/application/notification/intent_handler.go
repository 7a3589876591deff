// Package notification turns ledger events into notification intents.
// Delivery (email, push, SMS) belongs to an external service; this package
// only decides who should hear about what and logs that decision.
package notification

import (
	"context"
	"fmt"

	"github.com/erp/settlement/internal/domain/finance"
	"github.com/erp/settlement/internal/domain/revenue"
	"github.com/erp/settlement/internal/domain/shared"
	"go.uber.org/zap"
)

// Audience is who an intent is addressed to
type Audience string

const (
	AudienceCustomer   Audience = "customer"
	AudienceVendor     Audience = "vendor"
	AudiencePartner    Audience = "partner"
	AudienceOperations Audience = "operations"
)

// Intent is a single notification the ledger would like delivered
type Intent struct {
	Template    string
	Audience    Audience
	RecipientID string
	Subject     string
	EventID     string
	TenantID    string
}

// Sink receives intents. The default sink logs them.
type Sink interface {
	Deliver(ctx context.Context, intent Intent) error
}

// LogSink writes intents to the logger
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a sink that logs every intent at info level
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Deliver logs the intent
func (s *LogSink) Deliver(_ context.Context, intent Intent) error {
	s.logger.Info("notification intent",
		zap.String("template", intent.Template),
		zap.String("audience", string(intent.Audience)),
		zap.String("recipient_id", intent.RecipientID),
		zap.String("subject", intent.Subject),
		zap.String("event_id", intent.EventID),
		zap.String("tenant_id", intent.TenantID),
	)
	return nil
}

// IntentHandler maps ledger events to intents and hands them to a Sink
type IntentHandler struct {
	sink   Sink
	logger *zap.Logger
}

// NewIntentHandler creates a handler; a nil sink logs through logger
func NewIntentHandler(sink Sink, logger *zap.Logger) *IntentHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sink == nil {
		sink = NewLogSink(logger)
	}
	return &IntentHandler{sink: sink, logger: logger}
}

// Name identifies the handler in dedupe keys and logs
func (h *IntentHandler) Name() string {
	return "notification-intents"
}

// EventTypes returns the ledger events that produce notifications
func (h *IntentHandler) EventTypes() []string {
	return []string{
		finance.EventTypeDocumentSent,
		finance.EventTypeDocumentPaid,
		finance.EventTypeDocumentCancelled,
		finance.EventTypePaymentApplied,
		finance.EventTypeBalanceDriftDetected,
		revenue.EventTypePayoutGenerated,
		revenue.EventTypePayoutStatusChanged,
		revenue.EventTypeCollectionReconciled,
	}
}

// Handle builds the intent for event and delivers it
func (h *IntentHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	intent, ok := BuildIntent(event)
	if !ok {
		h.logger.Debug("no notification for event", zap.String("event_type", event.EventType()))
		return nil
	}
	if err := h.sink.Deliver(ctx, intent); err != nil {
		return fmt.Errorf("deliver %s intent: %w", intent.Template, err)
	}
	return nil
}

// BuildIntent maps an event to its intent. ok is false for events that do
// not notify anyone.
func BuildIntent(event shared.DomainEvent) (Intent, bool) {
	intent := Intent{
		EventID:  event.EventID().String(),
		TenantID: event.TenantID().String(),
	}

	switch e := event.(type) {
	case *finance.DocumentSentEvent:
		intent.Template = e.Kind.String() + "_issued"
		intent.Audience = documentAudience(e.Kind)
		intent.RecipientID = e.PartyID
		intent.Subject = fmt.Sprintf("%s %s: %s due %s", e.Kind, e.DocumentNumber, e.AmountDue.StringFixed(2), e.DueDate.Format("2006-01-02"))
	case *finance.DocumentPaidEvent:
		intent.Template = e.Kind.String() + "_paid"
		intent.Audience = documentAudience(e.Kind)
		intent.RecipientID = e.PartyID
		intent.Subject = fmt.Sprintf("%s %s paid in full (%s)", e.Kind, e.DocumentNumber, e.Total.StringFixed(2))
	case *finance.DocumentCancelledEvent:
		intent.Template = e.Kind.String() + "_cancelled"
		intent.Audience = documentAudience(e.Kind)
		intent.RecipientID = e.PartyID
		intent.Subject = fmt.Sprintf("%s %s cancelled: %s", e.Kind, e.DocumentNumber, e.Reason)
	case *finance.PaymentAppliedEvent:
		intent.Template = "payment_receipt"
		intent.Audience = partyAudience(e.PartyType)
		intent.RecipientID = e.PartyID
		intent.Subject = fmt.Sprintf("payment %s of %s applied to %d document(s)", e.PaymentNumber, e.Amount.StringFixed(2), len(e.Allocations))
	case *finance.BalanceDriftDetectedEvent:
		intent.Template = "balance_drift"
		intent.Audience = AudienceOperations
		intent.RecipientID = e.PartyID
		intent.Subject = fmt.Sprintf("%s %s balance corrected by %s", e.PartyType, e.PartyID, e.Drift.StringFixed(2))
	case *revenue.PayoutGeneratedEvent:
		intent.Template = "payout_scheduled"
		intent.Audience = AudiencePartner
		intent.RecipientID = e.PartnerID
		intent.Subject = fmt.Sprintf("payout %s of %s for %d order(s) scheduled %s", e.PayoutNumber, e.TotalNetPayout.StringFixed(2), e.OrderCount, e.ScheduledDate.Format("2006-01-02"))
	case *revenue.PayoutStatusChangedEvent:
		switch e.Status {
		case revenue.PayoutStatusCompleted:
			intent.Template = "payout_completed"
			intent.Audience = AudiencePartner
			intent.Subject = fmt.Sprintf("payout %s completed", e.PayoutNumber)
		case revenue.PayoutStatusFailed:
			intent.Template = "payout_failed"
			intent.Audience = AudienceOperations
			intent.Subject = fmt.Sprintf("payout %s failed: %s", e.PayoutNumber, e.FailureReason)
		default:
			return Intent{}, false
		}
		intent.RecipientID = e.PartnerID
	case *revenue.CollectionReconciledEvent:
		intent.Template = "collection_reconciled"
		intent.Audience = AudienceOperations
		intent.RecipientID = e.CollectionNumber
		intent.Subject = fmt.Sprintf("collection %s reconciled: %s across %d order(s)", e.CollectionNumber, e.Amount.StringFixed(2), len(e.OrderIDs))
	default:
		return Intent{}, false
	}
	return intent, true
}

func documentAudience(kind finance.DocumentKind) Audience {
	return partyAudience(kind.PartyType())
}

func partyAudience(partyType finance.PartyType) Audience {
	if partyType == finance.PartyTypeVendor {
		return AudienceVendor
	}
	return AudienceCustomer
}

var _ shared.EventHandler = (*IntentHandler)(nil)
