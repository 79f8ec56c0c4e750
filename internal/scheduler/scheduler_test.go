package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScheduler() *Scheduler {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestEvery_RunsJob(t *testing.T) {
	s := newTestScheduler()
	var runs atomic.Int32
	require.NoError(t, s.Every("count", 20*time.Millisecond, func(context.Context) error {
		runs.Add(1)
		return nil
	}))

	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool { return runs.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
}

func TestEvery_FailingJobKeepsRunning(t *testing.T) {
	s := newTestScheduler()
	var runs atomic.Int32
	require.NoError(t, s.Every("fail", 20*time.Millisecond, func(context.Context) error {
		runs.Add(1)
		return errors.New("boom")
	}))

	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool { return runs.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
}

func TestEvery_RejectsNonPositiveInterval(t *testing.T) {
	s := newTestScheduler()
	err := s.Every("bad", 0, func(context.Context) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad")
}

func TestStop_CancelsJobContext(t *testing.T) {
	s := newTestScheduler()
	started := make(chan struct{})
	cancelled := make(chan struct{})
	require.NoError(t, s.Every("block", time.Hour, func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		close(cancelled)
		return ctx.Err()
	}))

	s.Start()
	<-started
	go s.Stop()

	select {
	case <-cancelled:
	case <-time.After(2 * time.Second):
		t.Fatal("job context was not cancelled")
	}
}
