package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/erp/settlement/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// JobStatus represents the status of a scheduled job
type JobStatus string

const (
	JobStatusPending JobStatus = "PENDING"
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusSuccess JobStatus = "SUCCESS"
	JobStatusFailed  JobStatus = "FAILED"
)

// JobKind identifies the ledger operation a job runs
type JobKind string

const (
	JobKindPayoutGeneration JobKind = "PAYOUT_GENERATION"
	JobKindBalanceReconcile JobKind = "BALANCE_RECONCILE"
)

// Job is one unit of background ledger work for a tenant
type Job struct {
	ID          uuid.UUID
	Kind        JobKind
	TenantID    uuid.UUID
	PeriodStart time.Time // payout jobs only
	PeriodEnd   time.Time
	Status      JobStatus
	Error       string
	StartedAt   *time.Time
	CompletedAt *time.Time
	RetryCount  int
	MaxRetries  int
}

// NewPayoutJob creates a payout generation job for the closed period
func NewPayoutJob(tenantID uuid.UUID, periodStart, periodEnd time.Time, maxRetries int) *Job {
	return &Job{
		ID:          uuid.New(),
		Kind:        JobKindPayoutGeneration,
		TenantID:    tenantID,
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
		Status:      JobStatusPending,
		MaxRetries:  maxRetries,
	}
}

// NewBalanceJob creates a balance reconciliation job
func NewBalanceJob(tenantID uuid.UUID, maxRetries int) *Job {
	return &Job{
		ID:         uuid.New(),
		Kind:       JobKindBalanceReconcile,
		TenantID:   tenantID,
		Status:     JobStatusPending,
		MaxRetries: maxRetries,
	}
}

// Start marks the job as running
func (j *Job) Start(now time.Time) {
	j.Status = JobStatusRunning
	j.StartedAt = &now
	j.Error = ""
}

// Complete marks the job as successful
func (j *Job) Complete(now time.Time) {
	j.Status = JobStatusSuccess
	j.CompletedAt = &now
}

// Fail marks the job as failed
func (j *Job) Fail(now time.Time, err string) {
	j.Status = JobStatusFailed
	j.CompletedAt = &now
	j.Error = err
}

// ShouldRetry returns true if the job should be retried
func (j *Job) ShouldRetry() bool {
	return j.Status == JobStatusFailed && j.RetryCount < j.MaxRetries
}

// prepareRetry resets the job for another attempt
func (j *Job) prepareRetry() {
	j.RetryCount++
	j.Status = JobStatusPending
	j.Error = ""
}

// String describes the job for logs and errors
func (j *Job) String() string {
	if j.Kind == JobKindPayoutGeneration {
		return fmt.Sprintf("%s tenant=%s period=%s..%s", j.Kind, j.TenantID,
			j.PeriodStart.Format(time.DateOnly), j.PeriodEnd.Format(time.DateOnly))
	}
	return fmt.Sprintf("%s tenant=%s", j.Kind, j.TenantID)
}

// JobExecutor runs a job
type JobExecutor interface {
	Execute(ctx context.Context, job *Job) error
}

// Config holds worker pool settings
type Config struct {
	Workers       int
	QueueSize     int
	JobTimeout    time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
}

// DefaultConfig returns the default worker pool settings
func DefaultConfig() Config {
	return Config{
		Workers:       2,
		QueueSize:     100,
		JobTimeout:    30 * time.Minute,
		RetryAttempts: 3,
		RetryDelay:    5 * time.Minute,
	}
}

// Scheduler runs submitted jobs on a bounded worker pool with retries
type Scheduler struct {
	config   Config
	executor JobExecutor
	clock    shared.Clock
	logger   *zap.Logger

	jobs      chan *Job
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	retries   sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewScheduler creates a new scheduler instance
func NewScheduler(config Config, executor JobExecutor, clock shared.Clock, logger *zap.Logger) *Scheduler {
	defaults := DefaultConfig()
	if config.Workers <= 0 {
		config.Workers = defaults.Workers
	}
	if config.QueueSize <= 0 {
		config.QueueSize = defaults.QueueSize
	}
	if config.JobTimeout <= 0 {
		config.JobTimeout = defaults.JobTimeout
	}
	if clock == nil {
		clock = shared.SystemClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		config:   config,
		executor: executor,
		clock:    clock,
		logger:   logger,
	}
}

// Start launches the worker pool
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.jobs = make(chan *Job, s.config.QueueSize)
	s.isRunning = true

	for i := 0; i < s.config.Workers; i++ {
		s.wg.Add(1)
		go s.worker(ctx, s.jobs, i)
	}

	s.logger.Info("Ledger job scheduler started",
		zap.Int("workers", s.config.Workers),
		zap.Duration("job_timeout", s.config.JobTimeout),
	)
	return nil
}

// Stop cancels pending retries, closes the queue and waits for running jobs
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	close(s.jobs)
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		s.cancel()
		s.retries.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Ledger job scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.cancel()
		s.logger.Warn("Ledger job scheduler stop timed out")
		return ctx.Err()
	}
}

// SubmitJob queues a job for execution
func (s *Scheduler) SubmitJob(job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isRunning {
		return ErrSchedulerNotRunning
	}

	select {
	case s.jobs <- job:
		s.logger.Debug("Job submitted",
			zap.String("job_id", job.ID.String()),
			zap.String("job", job.String()),
		)
		return nil
	default:
		return ErrJobQueueFull
	}
}

func (s *Scheduler) worker(ctx context.Context, jobs <-chan *Job, workerID int) {
	defer s.wg.Done()
	for job := range jobs {
		s.processJob(ctx, job, workerID)
	}
}

// processJob executes a single job and schedules a retry when it fails
func (s *Scheduler) processJob(ctx context.Context, job *Job, workerID int) {
	job.Start(s.clock.Now())
	s.logger.Info("Processing job",
		zap.Int("worker_id", workerID),
		zap.String("job_id", job.ID.String()),
		zap.String("job", job.String()),
	)

	jobCtx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	defer cancel()

	if err := s.execute(jobCtx, job); err != nil {
		job.Fail(s.clock.Now(), err.Error())
		s.logger.Error("Job failed",
			zap.String("job_id", job.ID.String()),
			zap.String("job", job.String()),
			zap.Int("retry_count", job.RetryCount),
			zap.Error(err),
		)
		if job.ShouldRetry() {
			s.scheduleRetry(ctx, job)
		}
		return
	}

	job.Complete(s.clock.Now())
	s.logger.Info("Job completed successfully",
		zap.String("job_id", job.ID.String()),
		zap.String("job", job.String()),
	)
}

func (s *Scheduler) execute(ctx context.Context, job *Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return s.executor.Execute(ctx, job)
}

// scheduleRetry resubmits the job after the retry delay unless the
// scheduler stops first
func (s *Scheduler) scheduleRetry(ctx context.Context, job *Job) {
	job.prepareRetry()
	s.logger.Info("Job scheduled for retry",
		zap.String("job_id", job.ID.String()),
		zap.Int("retry_count", job.RetryCount),
		zap.Int("max_retries", job.MaxRetries),
		zap.Duration("delay", s.config.RetryDelay),
	)

	s.retries.Add(1)
	go func() {
		defer s.retries.Done()
		timer := time.NewTimer(s.config.RetryDelay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		if err := s.SubmitJob(job); err != nil {
			s.logger.Warn("Failed to re-queue job for retry",
				zap.String("job_id", job.ID.String()),
				zap.Error(err),
			)
		}
	}()
}
