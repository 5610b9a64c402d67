package scheduler

import "errors"

var (
	// ErrSchedulerRunning is returned when a task is registered after Start
	ErrSchedulerRunning = errors.New("scheduler is already running")

	// ErrSchedulerNotRunning is returned when a task is triggered on a stopped scheduler
	ErrSchedulerNotRunning = errors.New("scheduler is not running")

	// ErrInvalidTask is returned for a task without a name, interval or function
	ErrInvalidTask = errors.New("invalid scheduler task")

	// ErrDuplicateTask is returned when a task name is registered twice
	ErrDuplicateTask = errors.New("task already registered")

	// ErrJobNotFound is returned when a task is not found
	ErrJobNotFound = errors.New("job not found")
)
