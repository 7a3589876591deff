package cache

import (
	"context"
	"sync"
	"time"

	"github.com/erp/settlement/internal/domain/shared"
)

// DefaultSweepInterval is how often MemoryStore drops expired keys
const DefaultSweepInterval = 5 * time.Minute

// MemoryStore is a process local IdempotencyStore. Keys are not shared
// between instances, so it only fits single instance deployments and tests.
type MemoryStore struct {
	mu        sync.Mutex
	expiresAt map[string]time.Time
	clock     shared.Clock
	stop      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// MemoryStoreOption configures a MemoryStore
type MemoryStoreOption func(*memoryStoreOptions)

type memoryStoreOptions struct {
	clock         shared.Clock
	sweepInterval time.Duration
}

// WithClock overrides the clock used for expiry
func WithClock(clock shared.Clock) MemoryStoreOption {
	return func(o *memoryStoreOptions) {
		o.clock = clock
	}
}

// WithSweepInterval sets how often expired keys are removed; zero disables sweeping
func WithSweepInterval(d time.Duration) MemoryStoreOption {
	return func(o *memoryStoreOptions) {
		o.sweepInterval = d
	}
}

// NewMemoryStore creates a MemoryStore and starts its sweeper
func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	o := memoryStoreOptions{
		clock:         shared.SystemClock(),
		sweepInterval: DefaultSweepInterval,
	}
	for _, opt := range opts {
		opt(&o)
	}

	s := &MemoryStore{
		expiresAt: make(map[string]time.Time),
		clock:     o.clock,
		stop:      make(chan struct{}),
	}
	if o.sweepInterval > 0 {
		s.wg.Add(1)
		go s.sweepLoop(o.sweepInterval)
	}
	return s
}

// MarkProcessed records key until ttl elapses. It returns false when the
// key is already recorded and still live.
func (s *MemoryStore) MarkProcessed(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	if exp, ok := s.expiresAt[key]; ok && now.Before(exp) {
		return false, nil
	}
	s.expiresAt[key] = now.Add(ttl)
	return true, nil
}

// IsProcessed reports whether key is recorded and still live
func (s *MemoryStore) IsProcessed(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	exp, ok := s.expiresAt[key]
	return ok && s.clock.Now().Before(exp), nil
}

// Close stops the sweeper; safe to call more than once
func (s *MemoryStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stop)
		s.wg.Wait()
	})
	return nil
}

// Len returns the number of recorded keys, expired ones included until swept
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.expiresAt)
}

func (s *MemoryStore) sweepLoop(interval time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *MemoryStore) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	for key, exp := range s.expiresAt {
		if !now.Before(exp) {
			delete(s.expiresAt, key)
		}
	}
}

var _ shared.IdempotencyStore = (*MemoryStore)(nil)
