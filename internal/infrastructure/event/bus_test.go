package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/erp/settlement/internal/domain/finance"
	"github.com/erp/settlement/internal/domain/revenue"
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/erp/settlement/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type ledgerTestEvent struct {
	shared.BaseDomainEvent
}

func newLedgerEvent(eventType string) *ledgerTestEvent {
	return &ledgerTestEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, "BillingDocument", uuid.New(), uuid.New()),
	}
}

// recordingHandler captures events and can fail, panic or block on demand
type recordingHandler struct {
	eventTypes []string
	err        error
	panicWith  any
	gate       chan struct{}

	mu      sync.Mutex
	handled []shared.DomainEvent
}

func newRecordingHandler(eventTypes ...string) *recordingHandler {
	return &recordingHandler{eventTypes: eventTypes}
}

func (h *recordingHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	if h.gate != nil {
		<-h.gate
	}
	if h.panicWith != nil {
		panic(h.panicWith)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handled = append(h.handled, event)
	return h.err
}

func (h *recordingHandler) EventTypes() []string {
	return h.eventTypes
}

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.handled)
}

func TestInMemoryEventBus_SyncPublish(t *testing.T) {
	ctx := context.Background()
	bus := NewInMemoryEventBus(zap.NewNop())

	payments := newRecordingHandler(finance.EventTypePaymentApplied)
	payouts := newRecordingHandler(revenue.EventTypePayoutGenerated)
	everything := newRecordingHandler()

	bus.Subscribe(payments)
	bus.Subscribe(payouts)
	bus.Subscribe(everything)

	require.NoError(t, bus.Publish(ctx,
		newLedgerEvent(finance.EventTypePaymentApplied),
		newLedgerEvent(finance.EventTypeDocumentPaid),
		nil,
	))

	assert.Equal(t, 1, payments.count())
	assert.Equal(t, 0, payouts.count())
	assert.Equal(t, 2, everything.count())

	delivered, failed := bus.Stats()
	assert.EqualValues(t, 3, delivered)
	assert.Zero(t, failed)
}

func TestInMemoryEventBus_HandlerFailuresAreIsolated(t *testing.T) {
	core, recorded := observer.New(zapcore.ErrorLevel)
	bus := NewInMemoryEventBus(zap.New(core))

	failing := newRecordingHandler(finance.EventTypeDocumentCancelled)
	failing.err = errors.New("notification channel down")
	panicking := newRecordingHandler(finance.EventTypeDocumentCancelled)
	panicking.panicWith = "nil map"
	healthy := newRecordingHandler(finance.EventTypeDocumentCancelled)

	bus.Subscribe(failing)
	bus.Subscribe(panicking)
	bus.Subscribe(healthy)

	err := bus.Publish(context.Background(), newLedgerEvent(finance.EventTypeDocumentCancelled))
	require.NoError(t, err)

	assert.Equal(t, 1, healthy.count())
	delivered, failed := bus.Stats()
	assert.EqualValues(t, 1, delivered)
	assert.EqualValues(t, 2, failed)
	assert.Len(t, recorded.FilterMessage("handler failed to process event").All(), 1)
	assert.Len(t, recorded.FilterMessage("handler panicked").All(), 1)
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	h := newRecordingHandler(revenue.EventTypePayoutStatusChanged)
	bus.Subscribe(h)
	bus.Unsubscribe(h)

	require.NoError(t, bus.Publish(context.Background(), newLedgerEvent(revenue.EventTypePayoutStatusChanged)))
	assert.Zero(t, h.count())
}

func TestInMemoryEventBus_AsyncDispatch(t *testing.T) {
	ctx := context.Background()
	bus := NewInMemoryEventBus(zap.NewNop(), WithAsyncDispatch(3, 64))
	h := newRecordingHandler(revenue.EventTypeOrderRevenueRecorded)
	bus.Subscribe(h)

	require.NoError(t, bus.Start(ctx))
	for i := 0; i < 20; i++ {
		require.NoError(t, bus.Publish(ctx, newLedgerEvent(revenue.EventTypeOrderRevenueRecorded)))
	}
	require.NoError(t, bus.Stop(ctx))

	assert.Equal(t, 20, h.count())
}

func TestInMemoryEventBus_AsyncSurvivesCancelledPublisher(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop(), WithAsyncDispatch(1, 8))
	h := newRecordingHandler(finance.EventTypeDocumentSent)
	bus.Subscribe(h)
	require.NoError(t, bus.Start(context.Background()))

	reqCtx, cancel := context.WithCancel(context.Background())
	require.NoError(t, bus.Publish(reqCtx, newLedgerEvent(finance.EventTypeDocumentSent)))
	cancel()

	require.NoError(t, bus.Stop(context.Background()))
	assert.Equal(t, 1, h.count())
}

func TestInMemoryEventBus_NotStartedDispatchesInline(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop(), WithAsyncDispatch(2, 8))
	h := newRecordingHandler(finance.EventTypeDocumentCreated)
	bus.Subscribe(h)

	require.NoError(t, bus.Publish(context.Background(), newLedgerEvent(finance.EventTypeDocumentCreated)))
	assert.Equal(t, 1, h.count())
}

func TestInMemoryEventBus_FullQueueFallsBackInline(t *testing.T) {
	ctx := context.Background()
	bus := NewInMemoryEventBus(zap.NewNop(), WithAsyncDispatch(1, 1))

	blocked := newRecordingHandler(finance.EventTypeDocumentPaid)
	blocked.gate = make(chan struct{})
	bus.Subscribe(blocked)
	require.NoError(t, bus.Start(ctx))

	// first delivery occupies the worker, second fills the queue
	require.NoError(t, bus.Publish(ctx, newLedgerEvent(finance.EventTypeDocumentPaid)))
	require.Eventually(t, func() bool { return len(bus.queue) == 0 }, time.Second, 5*time.Millisecond)
	require.NoError(t, bus.Publish(ctx, newLedgerEvent(finance.EventTypeDocumentPaid)))

	inline := make(chan struct{})
	go func() {
		_ = bus.Publish(ctx, newLedgerEvent(finance.EventTypeDocumentPaid))
		close(inline)
	}()

	close(blocked.gate)
	<-inline
	require.NoError(t, bus.Stop(ctx))
	assert.Equal(t, 3, blocked.count())
}

func TestInMemoryEventBus_StopTimesOut(t *testing.T) {
	ctx := context.Background()
	bus := NewInMemoryEventBus(zap.NewNop(), WithAsyncDispatch(1, 4), WithHandlerWait(20*time.Millisecond))

	stuck := newRecordingHandler(revenue.EventTypeCollectionReconciled)
	stuck.gate = make(chan struct{})
	defer close(stuck.gate)
	bus.Subscribe(stuck)

	require.NoError(t, bus.Start(ctx))
	require.NoError(t, bus.Publish(ctx, newLedgerEvent(revenue.EventTypeCollectionReconciled)))

	err := bus.Stop(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "still running")
}

func TestInMemoryEventBus_StartStopIdempotent(t *testing.T) {
	ctx := context.Background()
	bus := NewInMemoryEventBus(nil, WithAsyncDispatch(2, 4))

	require.NoError(t, bus.Start(ctx))
	require.NoError(t, bus.Start(ctx))
	require.NoError(t, bus.Stop(ctx))
	require.NoError(t, bus.Stop(ctx))
}

func TestOptionsFromConfig(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop(), OptionsFromConfig(config.EventConfig{
		Async:       true,
		Workers:     6,
		BufferSize:  32,
		HandlerWait: 3 * time.Second,
	})...)
	assert.True(t, bus.async)
	assert.Equal(t, 6, bus.workers)
	assert.Equal(t, 32, bus.bufferSize)
	assert.Equal(t, 3*time.Second, bus.handlerWait)

	syncBus := NewInMemoryEventBus(zap.NewNop(), OptionsFromConfig(config.EventConfig{})...)
	assert.False(t, syncBus.async)
	assert.Equal(t, DefaultHandlerWait, syncBus.handlerWait)
}
