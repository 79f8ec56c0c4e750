package radar

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/storm-radar-service/internal/domain"
)

// searchWindows are the hour windows tried in order, relative to now.
var searchWindows = []time.Duration{0, -time.Hour, -24 * time.Hour}

// Locator finds volume scans in the archive.
type Locator struct {
	store  ObjectStore
	clock  clockwork.Clock
	logger *slog.Logger
}

// NewLocator creates a Locator reading from store.
func NewLocator(store ObjectStore, clock clockwork.Clock, logger *slog.Logger) *Locator {
	return &Locator{store: store, clock: clock, logger: logger}
}

// Locate returns the scan offset positions before the newest one. It searches
// the current UTC hour, then the previous hour, then the same hour one day
// earlier, and selects from the first window that holds any scan.
func (l *Locator) Locate(ctx context.Context, station string, offset int) (domain.ScanReference, error) {
	if offset < 0 {
		return domain.ScanReference{}, fmt.Errorf("%w: %d", domain.ErrInvalidOffset, offset)
	}
	station = domain.NormalizeStation(station)
	now := l.clock.Now().UTC()

	for _, d := range searchWindows {
		prefix := domain.HourPrefix(station, now.Add(d))
		keys, err := l.store.List(ctx, prefix)
		if err != nil {
			return domain.ScanReference{}, fmt.Errorf("list %s: %w", prefix, err)
		}
		keys = scanKeys(keys)
		if len(keys) == 0 {
			l.logger.Debug("no scans in window", "station", station, "prefix", prefix)
			continue
		}

		idx := len(keys) - 1 - offset
		if idx < 0 {
			return domain.ScanReference{}, fmt.Errorf("%w: %d with %d scans in %s", domain.ErrInvalidOffset, offset, len(keys), prefix)
		}
		return domain.ScanReference{Key: keys[idx]}, nil
	}
	return domain.ScanReference{}, fmt.Errorf("%w: station %s", domain.ErrNoScansFound, station)
}

// scanKeys drops metadata objects and sorts the rest oldest first.
func scanKeys(keys []string) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if strings.HasSuffix(k, domain.MetadataSuffix) {
			continue
		}
		out = append(out, k)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
