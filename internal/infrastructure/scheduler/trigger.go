package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/erp/settlement/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TenantProvider lists the tenants background jobs run for
type TenantProvider interface {
	GetActiveTenantIDs(ctx context.Context) ([]uuid.UUID, error)
}

// StaticTenants is a fixed tenant list, typically from configuration
type StaticTenants []uuid.UUID

// GetActiveTenantIDs returns the configured tenants
func (t StaticTenants) GetActiveTenantIDs(context.Context) ([]uuid.UUID, error) {
	return append([]uuid.UUID(nil), t...), nil
}

// ParseTenantIDs converts configured tenant ids
func ParseTenantIDs(raw []string) (StaticTenants, error) {
	tenants := make(StaticTenants, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, err
		}
		tenants = append(tenants, id)
	}
	return tenants, nil
}

// FireFunc builds the jobs for one firing at the scheduled instant
type FireFunc func(ctx context.Context, tenantID uuid.UUID, firedAt time.Time) *Job

// DefaultCheckInterval is how often triggers compare the clock with the
// next firing time
const DefaultCheckInterval = time.Minute

// Trigger submits one job per tenant every time its schedule fires
type Trigger struct {
	name          string
	schedule      Schedule
	scheduler     *Scheduler
	tenants       TenantProvider
	fire          FireFunc
	clock         shared.Clock
	checkInterval time.Duration
	logger        *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	next      time.Time
}

// NewTrigger creates a trigger; the first firing is the schedule's next
// occurrence after the clock's current time
func NewTrigger(
	name string,
	schedule Schedule,
	scheduler *Scheduler,
	tenants TenantProvider,
	fire FireFunc,
	clock shared.Clock,
	logger *zap.Logger,
) *Trigger {
	if clock == nil {
		clock = shared.SystemClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Trigger{
		name:          name,
		schedule:      schedule,
		scheduler:     scheduler,
		tenants:       tenants,
		fire:          fire,
		clock:         clock,
		checkInterval: DefaultCheckInterval,
		logger:        logger.With(zap.String("trigger", name)),
		next:          schedule.Next(clock.Now()),
	}
}

// SetCheckInterval changes how often the trigger polls the clock
func (t *Trigger) SetCheckInterval(d time.Duration) {
	if d > 0 {
		t.checkInterval = d
	}
}

// NextFire returns the next scheduled firing time
func (t *Trigger) NextFire() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.next
}

// Start starts the polling loop
func (t *Trigger) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = true
	t.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel

	t.wg.Add(1)
	go t.runLoop(ctx)

	t.logger.Info("Trigger started",
		zap.String("schedule", t.schedule.String()),
		zap.Time("next_fire", t.NextFire()),
	)
	return nil
}

// Stop stops the polling loop
func (t *Trigger) Stop(ctx context.Context) error {
	t.mu.Lock()
	if !t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = false
	t.mu.Unlock()

	t.cancel()

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.logger.Info("Trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Trigger) runLoop(ctx context.Context) {
	defer t.wg.Done()

	ticker := time.NewTicker(t.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.checkAndTrigger(ctx)
		}
	}
}

// checkAndTrigger fires once when the clock has reached the next firing
// time. Missed occurrences collapse into a single firing.
func (t *Trigger) checkAndTrigger(ctx context.Context) int {
	now := t.clock.Now()

	t.mu.Lock()
	if t.next.IsZero() || now.Before(t.next) {
		t.mu.Unlock()
		return 0
	}
	firedAt := t.next
	t.next = t.schedule.Next(now)
	t.mu.Unlock()

	submitted, err := t.FireNow(ctx, firedAt)
	if err != nil {
		t.logger.Error("Trigger firing failed", zap.Time("fired_at", firedAt), zap.Error(err))
	}
	return submitted
}

// FireNow submits the jobs for firedAt immediately and reports how many
// were queued
func (t *Trigger) FireNow(ctx context.Context, firedAt time.Time) (int, error) {
	tenantIDs, err := t.tenants.GetActiveTenantIDs(ctx)
	if err != nil {
		return 0, err
	}
	if len(tenantIDs) == 0 {
		return 0, ErrNoTenants
	}

	submitted := 0
	for _, tenantID := range tenantIDs {
		job := t.fire(ctx, tenantID, firedAt)
		if job == nil {
			continue
		}
		if err := t.scheduler.SubmitJob(job); err != nil {
			t.logger.Error("Failed to submit job",
				zap.String("tenant_id", tenantID.String()),
				zap.String("job", job.String()),
				zap.Error(err),
			)
			continue
		}
		submitted++
	}

	t.logger.Info("Trigger fired",
		zap.Time("fired_at", firedAt),
		zap.Int("tenants", len(tenantIDs)),
		zap.Int("submitted", submitted),
	)
	return submitted, nil
}
