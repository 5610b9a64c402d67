// Package scheduler runs periodic maintenance tasks such as purging relief
// counters of ended periods.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// JobStatus represents the status of the last run of a task
type JobStatus string

const (
	JobStatusPending JobStatus = "PENDING"
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusSuccess JobStatus = "SUCCESS"
	JobStatusFailed  JobStatus = "FAILED"
)

// Task is a function run every Interval
type Task struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Job is the run history of one task
type Job struct {
	Name        string
	Status      JobStatus
	Error       string
	Runs        int
	Failures    int
	StartedAt   *time.Time
	CompletedAt *time.Time
}

func (j *Job) start(now time.Time) {
	j.Status = JobStatusRunning
	j.StartedAt = &now
	j.Error = ""
	j.Runs++
}

func (j *Job) complete(now time.Time) {
	j.Status = JobStatusSuccess
	j.CompletedAt = &now
}

func (j *Job) fail(now time.Time, err string) {
	j.Status = JobStatusFailed
	j.CompletedAt = &now
	j.Error = err
	j.Failures++
}

// Config holds scheduler configuration
type Config struct {
	// JobTimeout bounds one attempt of a task.
	JobTimeout time.Duration
	// RetryAttempts is how many times a failed run is retried before the
	// task waits for its next interval.
	RetryAttempts int
	RetryDelay    time.Duration
}

// DefaultConfig returns default scheduler configuration
func DefaultConfig() Config {
	return Config{
		JobTimeout:    5 * time.Minute,
		RetryAttempts: 2,
		RetryDelay:    30 * time.Second,
	}
}

type entry struct {
	task    Task
	job     Job
	trigger chan struct{}
}

// Scheduler runs each registered task on its own ticker
type Scheduler struct {
	config Config
	logger *zap.Logger
	now    func() time.Time

	mu        sync.Mutex
	entries   map[string]*entry
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	isRunning bool
}

// Option configures a Scheduler
type Option func(*Scheduler)

// WithClock overrides the time source recorded in job history
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// NewScheduler creates a new scheduler instance
func NewScheduler(config Config, logger *zap.Logger, opts ...Option) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.JobTimeout <= 0 {
		config.JobTimeout = DefaultConfig().JobTimeout
	}
	s := &Scheduler{
		config:  config,
		logger:  logger,
		now:     time.Now,
		entries: make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register adds a task. Tasks must be registered before Start.
func (s *Scheduler) Register(task Task) error {
	if task.Name == "" || task.Interval <= 0 || task.Run == nil {
		return fmt.Errorf("%w: %q", ErrInvalidTask, task.Name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return ErrSchedulerRunning
	}
	if _, ok := s.entries[task.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateTask, task.Name)
	}
	s.entries[task.Name] = &entry{
		task:    task,
		job:     Job{Name: task.Name, Status: JobStatusPending},
		trigger: make(chan struct{}, 1),
	}
	return nil
}

// Start starts the scheduler
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return nil
	}
	s.isRunning = true

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for _, e := range s.entries {
		s.wg.Add(1)
		go s.loop(ctx, e)
	}

	s.logger.Info("Scheduler started", zap.Int("tasks", len(s.entries)))
	return nil
}

// Stop cancels running tasks and waits for them to return
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Scheduler stop timed out")
		return ctx.Err()
	}
}

// Trigger runs a task out of schedule. A trigger already pending for the
// task is not queued twice.
func (s *Scheduler) Trigger(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}
	if !s.isRunning {
		return ErrSchedulerNotRunning
	}
	select {
	case e.trigger <- struct{}{}:
	default:
	}
	return nil
}

// Status returns a copy of the run history of a task
func (s *Scheduler) Status(name string) (Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[name]
	if !ok {
		return Job{}, false
	}
	return e.job, true
}

func (s *Scheduler) loop(ctx context.Context, e *entry) {
	defer s.wg.Done()

	ticker := time.NewTicker(e.task.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runTask(ctx, e)
		case <-e.trigger:
			s.runTask(ctx, e)
		}
	}
}

// runTask runs e once, retrying failures up to RetryAttempts times
func (s *Scheduler) runTask(ctx context.Context, e *entry) {
	log := s.logger.With(zap.String("task", e.task.Name))

	s.mu.Lock()
	e.job.start(s.now())
	s.mu.Unlock()

	var err error
retry:
	for attempt := 0; ; attempt++ {
		err = s.attempt(ctx, e.task)
		if err == nil || attempt >= s.config.RetryAttempts {
			break
		}
		log.Info("Retrying task", zap.Int("attempt", attempt+1), zap.Error(err))
		select {
		case <-ctx.Done():
			break retry
		case <-time.After(s.config.RetryDelay):
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		e.job.fail(s.now(), err.Error())
		log.Error("Task failed", zap.Int("failures", e.job.Failures), zap.Error(err))
		return
	}
	e.job.complete(s.now())
	log.Debug("Task completed", zap.Int("runs", e.job.Runs))
}

func (s *Scheduler) attempt(ctx context.Context, task Task) (err error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return task.Run(ctx)
}
