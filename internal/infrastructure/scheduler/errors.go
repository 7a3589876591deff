package scheduler

import "errors"

var (
	// ErrSchedulerNotRunning is returned when trying to submit a job to a stopped scheduler
	ErrSchedulerNotRunning = errors.New("scheduler is not running")

	// ErrJobQueueFull is returned when the job queue is full
	ErrJobQueueFull = errors.New("job queue is full")

	// ErrUnknownJobKind is returned by the executor for a job it cannot run
	ErrUnknownJobKind = errors.New("unknown job kind")

	// ErrInvalidRecurrence is returned for an RRULE that cannot be parsed or never fires
	ErrInvalidRecurrence = errors.New("invalid recurrence rule")

	// ErrInvalidInterval is returned for a non-positive interval schedule
	ErrInvalidInterval = errors.New("interval must be positive")

	// ErrNoTenants is returned when a trigger fires but no tenant is eligible
	ErrNoTenants = errors.New("no tenants to schedule")
)
