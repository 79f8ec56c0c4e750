package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"

	"github.com/couchcryptid/storm-radar-service/internal/domain"
	"github.com/couchcryptid/storm-radar-service/internal/observability"
)

// Listener receives scan notifications. Listeners are compared by identity,
// so implementations must be pointer types.
type Listener interface {
	OnScan(ctx context.Context, n domain.ScanNotification) error
}

// ListenerFunc adapts a function to Listener. Take its address when
// registering: func values are not comparable.
type ListenerFunc func(ctx context.Context, n domain.ScanNotification) error

// OnScan calls f.
func (f *ListenerFunc) OnScan(ctx context.Context, n domain.ScanNotification) error {
	return (*f)(ctx, n)
}

// Registry maps station keys (or domain.Wildcard) to listeners.
type Registry struct {
	mu        sync.RWMutex
	listeners map[string][]Listener
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// NewRegistry creates an empty Registry.
func NewRegistry(logger *slog.Logger, metrics *observability.Metrics) *Registry {
	return &Registry{
		listeners: make(map[string][]Listener),
		logger:    logger,
		metrics:   metrics,
	}
}

// Add registers l under key. Adding the same listener twice is a no-op.
// Nil and non-comparable listeners are dropped with a warning.
func (r *Registry) Add(key string, l Listener) {
	key = registryKey(key)
	if !comparableListener(l) {
		r.logger.Warn("listener not registered: not comparable", "key", key, "type", fmt.Sprintf("%T", l))
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.listeners[key] {
		if existing == l {
			return
		}
	}
	r.listeners[key] = append(r.listeners[key], l)
}

// Remove unregisters l from key. Removing an absent listener is a no-op.
func (r *Registry) Remove(key string, l Listener) {
	key = registryKey(key)
	if !comparableListener(l) {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	list := r.listeners[key]
	for i, existing := range list {
		if existing == l {
			list = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(r.listeners, key)
		return
	}
	r.listeners[key] = list
}

// Listeners returns the station's listeners followed by wildcard listeners,
// each at most once. The slice is a snapshot.
func (r *Registry) Listeners(station string) []Listener {
	station = domain.NormalizeStation(station)
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Listener, 0, len(r.listeners[station])+len(r.listeners[domain.Wildcard]))
	seen := make(map[Listener]struct{})
	for _, key := range []string{station, domain.Wildcard} {
		for _, l := range r.listeners[key] {
			if _, dup := seen[l]; dup {
				continue
			}
			seen[l] = struct{}{}
			out = append(out, l)
		}
	}
	return out
}

// Count returns how many listeners are registered under key.
func (r *Registry) Count(key string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.listeners[registryKey(key)])
}

// Notify delivers n to every listener of its station. A failing or panicking
// listener is logged and does not affect the others.
func (r *Registry) Notify(ctx context.Context, n domain.ScanNotification) {
	for _, l := range r.Listeners(n.Station) {
		if err := deliver(ctx, l, n); err != nil {
			r.metrics.NotificationErrors.Inc()
			r.logger.Warn("notify listener failed", "station", n.Station, "scan_time", n.Time(), "error", err)
			continue
		}
		r.metrics.NotificationsSent.Inc()
	}
}

func deliver(ctx context.Context, l Listener, n domain.ScanNotification) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("listener panic: %v", p)
		}
	}()
	return l.OnScan(ctx, n)
}

func comparableListener(l Listener) bool {
	return l != nil && reflect.TypeOf(l).Comparable()
}

func registryKey(key string) string {
	if key == domain.Wildcard {
		return key
	}
	return domain.NormalizeStation(key)
}
