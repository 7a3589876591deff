package finance

import (
	"context"

	"github.com/erp/settlement/internal/domain/shared"
	"github.com/erp/settlement/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Option configures the ambient collaborators of a ledger service
type Option func(*runtime)

// WithClock overrides the wall clock
func WithClock(clock shared.Clock) Option {
	return func(r *runtime) {
		r.clock = clock
	}
}

// WithEventPublisher sets the publisher for domain events raised after commit
func WithEventPublisher(publisher shared.EventPublisher) Option {
	return func(r *runtime) {
		r.publisher = publisher
	}
}

// WithLedgerMetrics sets the business metrics recorder
func WithLedgerMetrics(metrics *telemetry.LedgerMetrics) Option {
	return func(r *runtime) {
		r.metrics = metrics
	}
}

// WithLogger sets the service logger
func WithLogger(logger *zap.Logger) Option {
	return func(r *runtime) {
		r.logger = logger
	}
}

// runtime holds what every ledger service needs besides its repositories
type runtime struct {
	clock     shared.Clock
	publisher shared.EventPublisher
	metrics   *telemetry.LedgerMetrics
	logger    *zap.Logger
}

func newRuntime(opts []Option) runtime {
	r := runtime{
		clock:  shared.SystemClock(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

// SetEventPublisher sets the event publisher for publishing domain events
func (r *runtime) SetEventPublisher(publisher shared.EventPublisher) {
	r.publisher = publisher
}

// publish sends the pending events of the given aggregates once their
// transaction has committed
func (r *runtime) publish(ctx context.Context, aggregates ...shared.AggregateRoot) {
	events := make([]shared.DomainEvent, 0)
	for _, agg := range aggregates {
		events = append(events, agg.GetDomainEvents()...)
		agg.ClearDomainEvents()
	}
	if r.publisher == nil || len(events) == 0 {
		return
	}
	// Publish errors are logged by the event bus, not propagated
	_ = r.publisher.Publish(ctx, events...)
}
