package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func testConfig() Config {
	return Config{
		JobTimeout:    time.Second,
		RetryAttempts: 2,
		RetryDelay:    time.Millisecond,
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 5*time.Minute, cfg.JobTimeout)
	assert.Equal(t, 2, cfg.RetryAttempts)
	assert.Equal(t, 30*time.Second, cfg.RetryDelay)
}

func TestScheduler_Register(t *testing.T) {
	noop := func(context.Context) error { return nil }

	tests := []struct {
		name string
		task Task
		err  error
	}{
		{"valid", Task{Name: "purge", Interval: time.Minute, Run: noop}, nil},
		{"missing name", Task{Interval: time.Minute, Run: noop}, ErrInvalidTask},
		{"zero interval", Task{Name: "purge", Run: noop}, ErrInvalidTask},
		{"missing func", Task{Name: "purge", Interval: time.Minute}, ErrInvalidTask},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewScheduler(testConfig(), zaptest.NewLogger(t))
			err := s.Register(tt.task)
			if tt.err == nil {
				assert.NoError(t, err)
				job, ok := s.Status(tt.task.Name)
				require.True(t, ok)
				assert.Equal(t, JobStatusPending, job.Status)
				return
			}
			assert.ErrorIs(t, err, tt.err)
		})
	}

	t.Run("duplicate name", func(t *testing.T) {
		s := NewScheduler(testConfig(), zaptest.NewLogger(t))
		require.NoError(t, s.Register(Task{Name: "purge", Interval: time.Minute, Run: noop}))
		assert.ErrorIs(t, s.Register(Task{Name: "purge", Interval: time.Hour, Run: noop}), ErrDuplicateTask)
	})

	t.Run("after start", func(t *testing.T) {
		s := NewScheduler(testConfig(), zaptest.NewLogger(t))
		require.NoError(t, s.Start(context.Background()))
		defer func() { _ = s.Stop(context.Background()) }()
		assert.ErrorIs(t, s.Register(Task{Name: "late", Interval: time.Minute, Run: noop}), ErrSchedulerRunning)
	})
}

func TestScheduler_RunsOnInterval(t *testing.T) {
	var runs atomic.Int32
	s := NewScheduler(testConfig(), zaptest.NewLogger(t))
	require.NoError(t, s.Register(Task{
		Name:     "tick",
		Interval: 5 * time.Millisecond,
		Run: func(context.Context) error {
			runs.Add(1)
			return nil
		},
	}))

	require.NoError(t, s.Start(context.Background()))
	assert.Eventually(t, func() bool { return runs.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, s.Stop(context.Background()))

	job, ok := s.Status("tick")
	require.True(t, ok)
	assert.Equal(t, JobStatusSuccess, job.Status)
	assert.GreaterOrEqual(t, job.Runs, 3)
	assert.Zero(t, job.Failures)
	assert.NotNil(t, job.CompletedAt)
}

func TestScheduler_Trigger(t *testing.T) {
	done := make(chan struct{}, 1)
	s := NewScheduler(testConfig(), zaptest.NewLogger(t))
	require.NoError(t, s.Register(Task{
		Name:     "purge",
		Interval: time.Hour,
		Run: func(context.Context) error {
			done <- struct{}{}
			return nil
		},
	}))

	assert.ErrorIs(t, s.Trigger("purge"), ErrSchedulerNotRunning)
	assert.ErrorIs(t, s.Trigger("unknown"), ErrJobNotFound)

	require.NoError(t, s.Start(context.Background()))
	defer func() { _ = s.Stop(context.Background()) }()

	require.NoError(t, s.Trigger("purge"))
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("triggered task did not run")
	}
}

func TestScheduler_RetriesFailures(t *testing.T) {
	t.Run("succeeds within retries", func(t *testing.T) {
		var calls atomic.Int32
		s := NewScheduler(testConfig(), zaptest.NewLogger(t))
		require.NoError(t, s.Register(Task{
			Name:     "flaky",
			Interval: time.Hour,
			Run: func(context.Context) error {
				if calls.Add(1) < 3 {
					return errors.New("store unavailable")
				}
				return nil
			},
		}))
		require.NoError(t, s.Start(context.Background()))
		defer func() { _ = s.Stop(context.Background()) }()
		require.NoError(t, s.Trigger("flaky"))

		assert.Eventually(t, func() bool {
			job, _ := s.Status("flaky")
			return job.Status == JobStatusSuccess
		}, 2*time.Second, 5*time.Millisecond)
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("fails after retries", func(t *testing.T) {
		var calls atomic.Int32
		s := NewScheduler(testConfig(), zaptest.NewLogger(t))
		require.NoError(t, s.Register(Task{
			Name:     "broken",
			Interval: time.Hour,
			Run: func(context.Context) error {
				calls.Add(1)
				return errors.New("store unavailable")
			},
		}))
		require.NoError(t, s.Start(context.Background()))
		defer func() { _ = s.Stop(context.Background()) }()
		require.NoError(t, s.Trigger("broken"))

		assert.Eventually(t, func() bool {
			job, _ := s.Status("broken")
			return job.Status == JobStatusFailed
		}, 2*time.Second, 5*time.Millisecond)
		job, _ := s.Status("broken")
		assert.Equal(t, "store unavailable", job.Error)
		assert.Equal(t, 1, job.Failures)
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("panics are failures", func(t *testing.T) {
		cfg := testConfig()
		cfg.RetryAttempts = 0
		s := NewScheduler(cfg, zaptest.NewLogger(t))
		require.NoError(t, s.Register(Task{
			Name:     "panics",
			Interval: time.Hour,
			Run:      func(context.Context) error { panic("boom") },
		}))
		require.NoError(t, s.Start(context.Background()))
		defer func() { _ = s.Stop(context.Background()) }()
		require.NoError(t, s.Trigger("panics"))

		assert.Eventually(t, func() bool {
			job, _ := s.Status("panics")
			return job.Status == JobStatusFailed
		}, 2*time.Second, 5*time.Millisecond)
		job, _ := s.Status("panics")
		assert.Contains(t, job.Error, "boom")
	})
}

func TestScheduler_JobTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.JobTimeout = 10 * time.Millisecond
	cfg.RetryAttempts = 0
	s := NewScheduler(cfg, zaptest.NewLogger(t))
	require.NoError(t, s.Register(Task{
		Name:     "slow",
		Interval: time.Hour,
		Run: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		},
	}))
	require.NoError(t, s.Start(context.Background()))
	defer func() { _ = s.Stop(context.Background()) }()
	require.NoError(t, s.Trigger("slow"))

	assert.Eventually(t, func() bool {
		job, _ := s.Status("slow")
		return job.Status == JobStatusFailed
	}, 2*time.Second, 5*time.Millisecond)
	job, _ := s.Status("slow")
	assert.Equal(t, context.DeadlineExceeded.Error(), job.Error)
}

func TestScheduler_StopIsIdempotent(t *testing.T) {
	s := NewScheduler(testConfig(), nil)
	assert.NoError(t, s.Stop(context.Background()))
	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Start(context.Background()))
	assert.NoError(t, s.Stop(context.Background()))
	assert.NoError(t, s.Stop(context.Background()))
}
