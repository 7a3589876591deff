package event

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/erp/settlement/internal/domain/shared"
	"go.uber.org/zap"
)

// DedupeMetrics counts outcomes of deduplicated deliveries
type DedupeMetrics struct {
	Processed atomic.Int64
	Duplicate atomic.Int64
	Failed    atomic.Int64
}

// DedupeStats is a point-in-time copy of DedupeMetrics
type DedupeStats struct {
	Processed int64 `json:"processed"`
	Duplicate int64 `json:"duplicate"`
	Failed    int64 `json:"failed"`
}

// Stats returns a snapshot of the counters
func (m *DedupeMetrics) Stats() DedupeStats {
	return DedupeStats{
		Processed: m.Processed.Load(),
		Duplicate: m.Duplicate.Load(),
		Failed:    m.Failed.Load(),
	}
}

// IdempotentHandler wraps an EventHandler so a given event is handled at
// most once per handler within the configured TTL, even when the bus or a
// replay delivers it again. The key is "<scope>:<event id>".
type IdempotentHandler struct {
	handler shared.EventHandler
	store   shared.IdempotencyStore
	config  shared.IdempotencyConfig
	scope   string
	logger  *zap.Logger
	metrics *DedupeMetrics
}

// IdempotentHandlerOption configures an IdempotentHandler
type IdempotentHandlerOption func(*IdempotentHandler)

// WithIdempotencyConfig sets TTL and the enabled switch
func WithIdempotencyConfig(config shared.IdempotencyConfig) IdempotentHandlerOption {
	return func(h *IdempotentHandler) {
		h.config = config
	}
}

// WithDedupeTTL overrides only the TTL
func WithDedupeTTL(ttl time.Duration) IdempotentHandlerOption {
	return func(h *IdempotentHandler) {
		if ttl > 0 {
			h.config.TTL = ttl
		}
	}
}

// WithDedupeScope sets the key scope; it defaults to the handler name
func WithDedupeScope(scope string) IdempotentHandlerOption {
	return func(h *IdempotentHandler) {
		h.scope = scope
	}
}

// WithDedupeMetrics shares a metrics collector between handlers
func WithDedupeMetrics(metrics *DedupeMetrics) IdempotentHandlerOption {
	return func(h *IdempotentHandler) {
		h.metrics = metrics
	}
}

// NewIdempotentHandler wraps handler with store-backed deduplication
func NewIdempotentHandler(
	handler shared.EventHandler,
	store shared.IdempotencyStore,
	logger *zap.Logger,
	opts ...IdempotentHandlerOption,
) *IdempotentHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &IdempotentHandler{
		handler: handler,
		store:   store,
		config:  shared.DefaultIdempotencyConfig(),
		scope:   handlerName(handler),
		logger:  logger,
		metrics: &DedupeMetrics{},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Name reports the wrapped handler's name
func (h *IdempotentHandler) Name() string {
	return h.scope
}

// EventTypes returns the wrapped handler's event types
func (h *IdempotentHandler) EventTypes() []string {
	return h.handler.EventTypes()
}

// Handle claims the event key and runs the wrapped handler for new events.
// A store failure is logged and the event is processed anyway. A handler
// failure keeps the claim so the event is not retried before the TTL expires.
func (h *IdempotentHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	if !h.config.Enabled || h.store == nil {
		return h.handle(ctx, event)
	}

	key := h.key(event)
	isNew, err := h.store.MarkProcessed(ctx, key, h.config.TTL)
	switch {
	case err != nil:
		h.logger.Warn("dedupe store unavailable, handling event anyway",
			zap.String("key", key),
			zap.String("event_type", event.EventType()),
			zap.Error(err),
		)
	case !isNew:
		h.metrics.Duplicate.Add(1)
		h.logger.Debug("duplicate event skipped",
			zap.String("key", key),
			zap.String("event_type", event.EventType()),
		)
		return nil
	}

	return h.handle(ctx, event)
}

func (h *IdempotentHandler) handle(ctx context.Context, event shared.DomainEvent) error {
	if err := h.handler.Handle(ctx, event); err != nil {
		h.metrics.Failed.Add(1)
		return err
	}
	h.metrics.Processed.Add(1)
	return nil
}

func (h *IdempotentHandler) key(event shared.DomainEvent) string {
	return h.scope + ":" + event.EventID().String()
}

// Metrics returns the handler's counters
func (h *IdempotentHandler) Metrics() *DedupeMetrics {
	return h.metrics
}

// Unwrap returns the wrapped handler
func (h *IdempotentHandler) Unwrap() shared.EventHandler {
	return h.handler
}

var _ shared.EventHandler = (*IdempotentHandler)(nil)

// SubscribeIdempotent wraps each handler and subscribes it to bus with a
// shared metrics collector, which is returned
func SubscribeIdempotent(
	bus shared.EventSubscriber,
	store shared.IdempotencyStore,
	logger *zap.Logger,
	ttl time.Duration,
	handlers ...shared.EventHandler,
) *DedupeMetrics {
	metrics := &DedupeMetrics{}
	for _, handler := range handlers {
		wrapped := NewIdempotentHandler(handler, store, logger,
			WithDedupeTTL(ttl),
			WithDedupeMetrics(metrics),
		)
		bus.Subscribe(wrapped, wrapped.EventTypes()...)
	}
	return metrics
}
