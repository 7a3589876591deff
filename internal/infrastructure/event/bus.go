package event

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/erp/settlement/internal/domain/shared"
	"github.com/erp/settlement/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Defaults used when the bus runs asynchronously without explicit sizing
const (
	DefaultWorkers     = 4
	DefaultBufferSize  = 256
	DefaultHandlerWait = 10 * time.Second
)

// delivery is one (handler, event) pair queued for an async worker
type delivery struct {
	ctx     context.Context
	handler shared.EventHandler
	event   shared.DomainEvent
}

// InMemoryEventBus implements EventBus with in-process pub/sub.
// In sync mode Publish runs every handler before returning. In async mode
// deliveries are queued to a worker pool and drained on Stop.
type InMemoryEventBus struct {
	registry *HandlerRegistry
	logger   *zap.Logger

	async       bool
	workers     int
	bufferSize  int
	handlerWait time.Duration

	mu      sync.RWMutex
	queue   chan delivery
	running atomic.Bool
	wg      sync.WaitGroup

	delivered atomic.Int64
	failed    atomic.Int64
}

// BusOption configures an InMemoryEventBus
type BusOption func(*InMemoryEventBus)

// WithAsyncDispatch hands deliveries to a pool of workers fed by a
// bounded queue
func WithAsyncDispatch(workers, bufferSize int) BusOption {
	return func(b *InMemoryEventBus) {
		b.async = true
		if workers > 0 {
			b.workers = workers
		}
		if bufferSize > 0 {
			b.bufferSize = bufferSize
		}
	}
}

// WithHandlerWait bounds how long Stop waits for queued deliveries
func WithHandlerWait(d time.Duration) BusOption {
	return func(b *InMemoryEventBus) {
		if d > 0 {
			b.handlerWait = d
		}
	}
}

// OptionsFromConfig translates the event section of the configuration
func OptionsFromConfig(cfg config.EventConfig) []BusOption {
	opts := []BusOption{WithHandlerWait(cfg.HandlerWait)}
	if cfg.Async {
		opts = append(opts, WithAsyncDispatch(cfg.Workers, cfg.BufferSize))
	}
	return opts
}

// NewInMemoryEventBus creates a new in-memory event bus
func NewInMemoryEventBus(logger *zap.Logger, opts ...BusOption) *InMemoryEventBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &InMemoryEventBus{
		registry:    NewHandlerRegistry(),
		logger:      logger,
		workers:     DefaultWorkers,
		bufferSize:  DefaultBufferSize,
		handlerWait: DefaultHandlerWait,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Publish delivers events to every subscribed handler. Handler failures are
// logged and counted but never returned to the publisher.
func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	for _, event := range events {
		if event == nil {
			continue
		}
		for _, handler := range b.registry.GetHandlers(event.EventType()) {
			if b.enqueue(ctx, handler, event) {
				continue
			}
			b.dispatchToHandler(ctx, handler, event)
		}
	}
	return nil
}

// enqueue hands the delivery to the worker pool. It reports false when the
// bus is synchronous, not running, or the queue is full.
func (b *InMemoryEventBus) enqueue(ctx context.Context, handler shared.EventHandler, event shared.DomainEvent) bool {
	if !b.async {
		return false
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.running.Load() || b.queue == nil {
		return false
	}

	d := delivery{ctx: context.WithoutCancel(ctx), handler: handler, event: event}
	select {
	case b.queue <- d:
		return true
	default:
		b.logger.Warn("event queue full, dispatching inline",
			zap.String("event_type", event.EventType()),
			zap.Int("buffer_size", b.bufferSize),
		)
		return false
	}
}

// Subscribe registers a handler for specific event types
func (b *InMemoryEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}
	b.registry.Register(handler, eventTypes...)
	b.logger.Debug("handler subscribed",
		zap.String("handler", handlerName(handler)),
		zap.Strings("event_types", eventTypes),
	)
}

// Unsubscribe removes a handler
func (b *InMemoryEventBus) Unsubscribe(handler shared.EventHandler) {
	b.registry.Unregister(handler)
	b.logger.Debug("handler unsubscribed", zap.String("handler", handlerName(handler)))
}

// Start launches the worker pool in async mode
func (b *InMemoryEventBus) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.running.Load() {
		return nil
	}
	if b.async {
		b.queue = make(chan delivery, b.bufferSize)
		for i := 0; i < b.workers; i++ {
			b.wg.Add(1)
			go b.work(b.queue)
		}
	}
	b.running.Store(true)
	b.logger.Info("event bus started",
		zap.Bool("async", b.async),
		zap.Int("workers", b.workers),
	)
	return nil
}

// Stop closes the queue and waits for queued deliveries, bounded by the
// handler wait and the caller's context
func (b *InMemoryEventBus) Stop(ctx context.Context) error {
	b.mu.Lock()
	if !b.running.Load() {
		b.mu.Unlock()
		return nil
	}
	b.running.Store(false)
	if b.queue != nil {
		close(b.queue)
		b.queue = nil
	}
	b.mu.Unlock()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(b.handlerWait)
	defer timer.Stop()

	select {
	case <-done:
		b.logger.Info("event bus stopped",
			zap.Int64("delivered", b.delivered.Load()),
			zap.Int64("failed", b.failed.Load()),
		)
		return nil
	case <-timer.C:
		return fmt.Errorf("event bus: deliveries still running after %s", b.handlerWait)
	case <-ctx.Done():
		return fmt.Errorf("event bus: stop interrupted: %w", ctx.Err())
	}
}

// Stats returns the delivered and failed delivery counts
func (b *InMemoryEventBus) Stats() (delivered, failed int64) {
	return b.delivered.Load(), b.failed.Load()
}

func (b *InMemoryEventBus) work(queue <-chan delivery) {
	defer b.wg.Done()
	for d := range queue {
		b.dispatchToHandler(d.ctx, d.handler, d.event)
	}
}

// dispatchToHandler runs one handler, converting panics into failures
func (b *InMemoryEventBus) dispatchToHandler(ctx context.Context, handler shared.EventHandler, event shared.DomainEvent) {
	defer func() {
		if r := recover(); r != nil {
			b.failed.Add(1)
			b.logger.Error("handler panicked",
				zap.String("handler", handlerName(handler)),
				zap.String("event_type", event.EventType()),
				zap.String("event_id", event.EventID().String()),
				zap.Any("panic", r),
			)
		}
	}()

	if err := handler.Handle(ctx, event); err != nil {
		b.failed.Add(1)
		b.logger.Error("handler failed to process event",
			zap.String("handler", handlerName(handler)),
			zap.String("event_type", event.EventType()),
			zap.String("event_id", event.EventID().String()),
			zap.Error(err),
		)
		return
	}
	b.delivered.Add(1)
}

func handlerName(handler shared.EventHandler) string {
	if named, ok := handler.(interface{ Name() string }); ok {
		return named.Name()
	}
	return fmt.Sprintf("%T", handler)
}

var (
	_ shared.EventPublisher  = (*InMemoryEventBus)(nil)
	_ shared.EventSubscriber = (*InMemoryEventBus)(nil)
)
