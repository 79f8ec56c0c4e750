// Package watcher polls the archive for new volume scans per station,
// prefetches their sweeps, and notifies registered listeners.
package watcher

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/storm-radar-service/internal/domain"
	"github.com/couchcryptid/storm-radar-service/internal/observability"
)

var (
	// ErrAlreadyWatching is returned by Start for a station with a running task.
	ErrAlreadyWatching = errors.New("already watching station")
	// ErrNotWatching is returned by Stop for a station without a running task.
	ErrNotWatching = errors.New("not watching station")
	// ErrClosed is returned by Start after Close.
	ErrClosed = errors.New("watcher closed")
)

// ScanSource locates scans and warms the frame cache for them.
type ScanSource interface {
	LocateLatest(ctx context.Context, station string, offset int) (time.Time, error)
	Prefetch(ctx context.Context, station string, ts time.Time, count int) (int, error)
}

// Config tunes the polling loop.
type Config struct {
	Interval       time.Duration // delay between polls
	PrefetchSweeps int           // sweeps 0..PrefetchSweeps-1 are cached before notifying
	StopTimeout    time.Duration // how long Stop waits for the task to exit
}

// DefaultConfig matches the archive's upload cadence closely enough that a
// new scan is picked up within a couple of seconds.
func DefaultConfig() Config {
	return Config{Interval: time.Second, PrefetchSweeps: 7, StopTimeout: 5 * time.Second}
}

type task struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Watcher runs one polling task per watched station.
type Watcher struct {
	source   ScanSource
	registry *Registry
	clock    clockwork.Clock
	logger   *slog.Logger
	metrics  *observability.Metrics
	cfg      Config

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	tasks    map[string]*task
	lastSeen map[string]time.Time
}

// New creates a Watcher. Tasks run until stopped or until StopAll.
func New(source ScanSource, registry *Registry, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics, cfg Config) *Watcher {
	def := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.PrefetchSweeps < 0 {
		cfg.PrefetchSweeps = 0
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = def.StopTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		source:   source,
		registry: registry,
		clock:    clock,
		logger:   logger,
		metrics:  metrics,
		cfg:      cfg,
		ctx:      ctx,
		cancel:   cancel,
		tasks:    make(map[string]*task),
		lastSeen: make(map[string]time.Time),
	}
}

// Start begins watching station.
func (w *Watcher) Start(station string) error {
	station = domain.NormalizeStation(station)
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.ctx.Err() != nil {
		return ErrClosed
	}
	if _, ok := w.tasks[station]; ok {
		return ErrAlreadyWatching
	}
	ctx, cancel := context.WithCancel(w.ctx)
	t := &task{cancel: cancel, done: make(chan struct{})}
	w.tasks[station] = t
	w.metrics.WatchersActive.Inc()

	go w.run(ctx, station, t)
	w.logger.Info("watcher started", "station", station, "interval", w.cfg.Interval)
	return nil
}

// Stop cancels the station's task and waits up to StopTimeout for it to
// exit. The station is no longer watched when Stop returns, even if the wait
// timed out.
func (w *Watcher) Stop(station string) error {
	station = domain.NormalizeStation(station)
	w.mu.Lock()
	t, ok := w.tasks[station]
	if ok {
		delete(w.tasks, station)
		delete(w.lastSeen, station)
	}
	w.mu.Unlock()
	if !ok {
		return ErrNotWatching
	}

	t.cancel()
	w.metrics.WatchersActive.Dec()

	timer := time.NewTimer(w.cfg.StopTimeout)
	defer timer.Stop()
	select {
	case <-t.done:
		w.logger.Info("watcher stopped", "station", station)
	case <-timer.C:
		w.logger.Warn("watcher did not exit in time", "station", station, "timeout", w.cfg.StopTimeout)
	}
	return nil
}

// StopAll stops every station.
func (w *Watcher) StopAll() {
	for _, s := range w.Stations() {
		_ = w.Stop(s)
	}
}

// Close cancels every task and stops them all. Start fails with ErrClosed
// afterwards.
func (w *Watcher) Close() {
	w.mu.Lock()
	w.cancel()
	w.mu.Unlock()
	w.StopAll()
}

// IsWatching reports whether station has a running task.
func (w *Watcher) IsWatching(station string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.tasks[domain.NormalizeStation(station)]
	return ok
}

// Stations returns the watched stations in sorted order.
func (w *Watcher) Stations() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.tasks))
	for s := range w.tasks {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// LastObserved returns the newest scan time seen for station.
func (w *Watcher) LastObserved(station string) (time.Time, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	ts, ok := w.lastSeen[domain.NormalizeStation(station)]
	return ts, ok
}

func (w *Watcher) run(ctx context.Context, station string, t *task) {
	defer close(t.done)

	ticker := w.clock.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		if ctx.Err() != nil {
			return
		}
		w.poll(ctx, station, t)

		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
		}
	}
}

// poll runs one iteration: locate the newest scan, and if it advanced past
// the last one seen, prefetch its sweeps and notify listeners. The first
// observation of a station only records the baseline.
func (w *Watcher) poll(ctx context.Context, station string, t *task) {
	ts, err := w.source.LocateLatest(ctx, station, 0)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		w.metrics.PollErrors.WithLabelValues(station).Inc()
		w.logger.Warn("locate latest scan failed", "station", station, "error", err)
		return
	}

	w.mu.Lock()
	if w.tasks[station] != t {
		w.mu.Unlock()
		return
	}
	last, seen := w.lastSeen[station]
	if seen && !ts.After(last) {
		w.mu.Unlock()
		w.logger.Debug("no newer scan", "station", station, "scan_time", ts, "last_seen", last)
		return
	}
	w.lastSeen[station] = ts
	w.mu.Unlock()

	if !seen {
		w.logger.Info("baseline scan recorded", "station", station, "scan_time", ts)
		return
	}

	w.metrics.ScansObserved.WithLabelValues(station).Inc()
	n, err := w.source.Prefetch(ctx, station, ts, w.cfg.PrefetchSweeps)
	if err != nil {
		if ctx.Err() == nil {
			w.metrics.PollErrors.WithLabelValues(station).Inc()
			w.logger.Error("prefetch failed, skipping notification", "station", station, "scan_time", ts, "error", err)
		}
		return
	}
	w.logger.Info("new scan", "station", station, "scan_time", ts, "sweeps_built", n)

	w.registry.Notify(ctx, domain.NewScanNotification(station, ts))
}
