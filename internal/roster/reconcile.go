package roster

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/couchcryptid/storm-radar-service/internal/domain"
	"github.com/couchcryptid/storm-radar-service/internal/watcher"
)

// StationController starts and stops station watchers.
type StationController interface {
	Start(station string) error
	Stop(station string) error
	IsWatching(station string) bool
}

// Reconciler applies roster changes. It only stops stations it started
// itself, so watchers opened by subscribers or the API are left alone.
type Reconciler struct {
	ctrl   StationController
	logger *slog.Logger

	mu    sync.Mutex
	owned map[string]bool
}

// NewReconciler creates a Reconciler driving ctrl.
func NewReconciler(ctrl StationController, logger *slog.Logger) *Reconciler {
	return &Reconciler{ctrl: ctrl, logger: logger, owned: make(map[string]bool)}
}

// Apply starts listed stations that are not watched and stops owned stations
// that are no longer listed.
func (r *Reconciler) Apply(stations []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	want := make(map[string]bool, len(stations))
	for _, s := range stations {
		want[domain.NormalizeStation(s)] = true
	}

	for s := range want {
		if r.ctrl.IsWatching(s) {
			continue
		}
		err := r.ctrl.Start(s)
		switch {
		case errors.Is(err, watcher.ErrAlreadyWatching):
		case err != nil:
			r.logger.Error("start station failed", "station", s, "error", err)
		default:
			r.owned[s] = true
		}
	}

	for s := range r.owned {
		if want[s] {
			continue
		}
		if err := r.ctrl.Stop(s); err != nil && !errors.Is(err, watcher.ErrNotWatching) {
			r.logger.Error("stop station failed", "station", s, "error", err)
		}
		delete(r.owned, s)
	}
}

// Owned returns whether station was started by this reconciler.
func (r *Reconciler) Owned(station string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.owned[domain.NormalizeStation(station)]
}
