package watcher

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/storm-radar-service/internal/domain"
	"github.com/couchcryptid/storm-radar-service/internal/observability"
)

// --- mocks ---

// scriptedSource returns the scripted timestamps in order, then repeats the
// last one. Every call is also signalled on polled.
type scriptedSource struct {
	mu          sync.Mutex
	times       []int64
	idx         int
	locateErr   error
	prefetchErr error
	prefetched  []int64
	polled      chan struct{}
}

func (s *scriptedSource) LocateLatest(context.Context, string, int) (time.Time, error) {
	s.mu.Lock()
	defer func() {
		s.mu.Unlock()
		if s.polled != nil {
			select {
			case s.polled <- struct{}{}:
			default:
			}
		}
	}()
	if s.locateErr != nil {
		return time.Time{}, s.locateErr
	}
	ts := s.times[min(s.idx, len(s.times)-1)]
	s.idx++
	return time.Unix(ts, 0).UTC(), nil
}

func (s *scriptedSource) Prefetch(_ context.Context, _ string, ts time.Time, count int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.prefetchErr != nil {
		return 0, s.prefetchErr
	}
	s.prefetched = append(s.prefetched, ts.Unix())
	return count, nil
}

type recordingListener struct {
	mu  sync.Mutex
	got []domain.ScanNotification
	err error
}

func (l *recordingListener) OnScan(_ context.Context, n domain.ScanNotification) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.got = append(l.got, n)
	return l.err
}

func (l *recordingListener) notifications() []domain.ScanNotification {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]domain.ScanNotification(nil), l.got...)
}

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

// syncBuffer is a bytes.Buffer safe for a logger shared across goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newTestWatcher(src ScanSource, clock clockwork.Clock) (*Watcher, *Registry, *observability.Metrics) {
	m := observability.NewMetricsForTesting()
	reg := NewRegistry(discardLogger(), m)
	w := New(src, reg, clock, discardLogger(), m, Config{Interval: time.Second, PrefetchSweeps: 7, StopTimeout: time.Second})
	return w, reg, m
}

// --- tests ---

func TestWatcher_StartStop(t *testing.T) {
	src := &scriptedSource{times: []int64{100}}
	w, _, m := newTestWatcher(src, clockwork.NewFakeClock())

	require.NoError(t, w.Start("KTLX"))
	assert.True(t, w.IsWatching("KTLX"))
	assert.True(t, w.IsWatching("ktlx"))
	assert.ErrorIs(t, w.Start("ktlx"), ErrAlreadyWatching)
	assert.Equal(t, []string{"KTLX"}, w.Stations())
	assert.InDelta(t, 1, testutil.ToFloat64(m.WatchersActive), 0)

	require.NoError(t, w.Stop("KTLX"))
	assert.False(t, w.IsWatching("KTLX"))
	assert.ErrorIs(t, w.Stop("KTLX"), ErrNotWatching)
	assert.InDelta(t, 0, testutil.ToFloat64(m.WatchersActive), 0)

	require.NoError(t, w.Start("KTLX"), "a stopped station can be watched again")
	w.StopAll()
	assert.Empty(t, w.Stations())
}

func TestWatcher_NotifiesOnlyOnAdvance(t *testing.T) {
	src := &scriptedSource{times: []int64{100, 100, 200}}
	w, reg, _ := newTestWatcher(src, clockwork.NewFakeClock())
	l := &recordingListener{}
	reg.Add("KTLX", l)

	tk := &task{cancel: func() {}, done: make(chan struct{})}
	w.tasks["KTLX"] = tk

	ctx := context.Background()
	w.poll(ctx, "KTLX", tk)
	w.poll(ctx, "KTLX", tk)
	assert.Empty(t, l.notifications(), "baseline and repeat must stay silent")

	w.poll(ctx, "KTLX", tk)
	require.Equal(t, []domain.ScanNotification{{Station: "KTLX", Timestamp: 200}}, l.notifications())
	assert.Equal(t, []int64{200}, src.prefetched)

	last, ok := w.LastObserved("KTLX")
	require.True(t, ok)
	assert.Equal(t, int64(200), last.Unix())
}

func TestWatcher_IgnoresOlderScans(t *testing.T) {
	src := &scriptedSource{times: []int64{300, 200, 300}}
	w, reg, _ := newTestWatcher(src, clockwork.NewFakeClock())
	l := &recordingListener{}
	reg.Add(domain.Wildcard, l)

	tk := &task{cancel: func() {}, done: make(chan struct{})}
	w.tasks["KTLX"] = tk
	for i := 0; i < 3; i++ {
		w.poll(context.Background(), "KTLX", tk)
	}
	assert.Empty(t, l.notifications())

	last, _ := w.LastObserved("KTLX")
	assert.Equal(t, int64(300), last.Unix(), "last observed never decreases")
}

func TestWatcher_PrefetchFailureSkipsNotification(t *testing.T) {
	src := &scriptedSource{times: []int64{100, 200}, prefetchErr: domain.ErrUpstreamFetch}
	w, reg, m := newTestWatcher(src, clockwork.NewFakeClock())
	l := &recordingListener{}
	reg.Add("KTLX", l)

	tk := &task{cancel: func() {}, done: make(chan struct{})}
	w.tasks["KTLX"] = tk
	w.poll(context.Background(), "KTLX", tk)
	w.poll(context.Background(), "KTLX", tk)

	assert.Empty(t, l.notifications())
	assert.InDelta(t, 1, testutil.ToFloat64(m.PollErrors.WithLabelValues("KTLX")), 0)
}

func TestWatcher_LocateErrorKeepsPolling(t *testing.T) {
	src := &scriptedSource{times: []int64{100}, locateErr: errors.New("listing failed")}
	w, _, m := newTestWatcher(src, clockwork.NewFakeClock())

	tk := &task{cancel: func() {}, done: make(chan struct{})}
	w.tasks["KTLX"] = tk
	w.poll(context.Background(), "KTLX", tk)
	w.poll(context.Background(), "KTLX", tk)

	_, ok := w.LastObserved("KTLX")
	assert.False(t, ok)
	assert.InDelta(t, 2, testutil.ToFloat64(m.PollErrors.WithLabelValues("KTLX")), 0)
}

func TestWatcher_StalePollAfterStopIsDropped(t *testing.T) {
	src := &scriptedSource{times: []int64{100}}
	w, _, _ := newTestWatcher(src, clockwork.NewFakeClock())

	stale := &task{cancel: func() {}, done: make(chan struct{})}
	w.poll(context.Background(), "KTLX", stale)

	_, ok := w.LastObserved("KTLX")
	assert.False(t, ok, "a task no longer registered must not record state")
}

func TestWatcher_LoopPollsOnTicks(t *testing.T) {
	clock := clockwork.NewFakeClock()
	src := &scriptedSource{times: []int64{100, 100, 200}, polled: make(chan struct{}, 1)}
	w, reg, _ := newTestWatcher(src, clock)
	l := &recordingListener{}
	reg.Add("KTLX", l)

	require.NoError(t, w.Start("KTLX"))
	defer w.StopAll()

	waitPoll := func() {
		t.Helper()
		select {
		case <-src.polled:
		case <-time.After(2 * time.Second):
			t.Fatal("watcher did not poll")
		}
	}

	waitPoll() // immediate first poll
	for i := 0; i < 2; i++ {
		require.NoError(t, clock.BlockUntilContext(context.Background(), 1))
		clock.Advance(time.Second)
		waitPoll()
	}

	require.Eventually(t, func() bool { return len(l.notifications()) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, int64(200), l.notifications()[0].Timestamp)
}

func TestWatcher_StopClearsState(t *testing.T) {
	src := &scriptedSource{times: []int64{100}}
	w, _, _ := newTestWatcher(src, clockwork.NewFakeClock())

	tk := &task{cancel: func() {}, done: make(chan struct{})}
	close(tk.done)
	w.tasks["KTLX"] = tk
	w.poll(context.Background(), "KTLX", tk)
	_, ok := w.LastObserved("KTLX")
	require.True(t, ok)

	require.NoError(t, w.Stop("KTLX"))
	_, ok = w.LastObserved("KTLX")
	assert.False(t, ok)
}

func testTime(unix int64) time.Time { return time.Unix(unix, 0).UTC() }

func TestWatcher_RepeatScanIsLogged(t *testing.T) {
	src := &scriptedSource{times: []int64{100, 100}}
	var logs syncBuffer
	m := observability.NewMetricsForTesting()
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	w := New(src, NewRegistry(logger, m), clockwork.NewFakeClock(), logger, m, DefaultConfig())

	tk := &task{cancel: func() {}, done: make(chan struct{})}
	w.tasks["KTLX"] = tk

	w.poll(context.Background(), "KTLX", tk)
	assert.NotContains(t, logs.String(), "no newer scan")

	w.poll(context.Background(), "KTLX", tk)
	assert.Contains(t, logs.String(), "no newer scan")
	assert.Contains(t, logs.String(), "station=KTLX")
}

func TestWatcher_Close(t *testing.T) {
	src := &scriptedSource{times: []int64{100}}
	w, _, m := newTestWatcher(src, clockwork.NewFakeClock())

	require.NoError(t, w.Start("KTLX"))
	require.NoError(t, w.Start("KFWS"))

	w.Close()
	assert.Empty(t, w.Stations())
	assert.Error(t, w.ctx.Err())
	assert.InDelta(t, 0, testutil.ToFloat64(m.WatchersActive), 0)
	assert.ErrorIs(t, w.Start("KTLX"), ErrClosed)

	w.Close()
}
