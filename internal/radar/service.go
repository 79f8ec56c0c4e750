// Package radar locates, downloads and renders NEXRAD volume scans and keeps
// the rendered sweep frames in the cache.
package radar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/couchcryptid/storm-radar-service/internal/cache"
	"github.com/couchcryptid/storm-radar-service/internal/domain"
	"github.com/couchcryptid/storm-radar-service/internal/observability"
)

// sharedBuildTimeout bounds a download shared by concurrent GetSweep callers.
// It runs detached from any single caller so one disconnect does not fail
// the others.
const sharedBuildTimeout = 2 * time.Minute

// Service is the read side used by the watcher and the HTTP API.
type Service struct {
	locator *Locator
	fetcher *Fetcher
	cache   FrameCache
	logger  *slog.Logger
	metrics *observability.Metrics
	group   singleflight.Group
}

// NewService wires the locator, fetcher and frame cache together.
func NewService(locator *Locator, fetcher *Fetcher, frames FrameCache, logger *slog.Logger, metrics *observability.Metrics) *Service {
	return &Service{
		locator: locator,
		fetcher: fetcher,
		cache:   frames,
		logger:  logger,
		metrics: metrics,
	}
}

// LocateLatest returns the timestamp of the scan offset positions before the
// newest one (0 is the newest).
func (s *Service) LocateLatest(ctx context.Context, station string, offset int) (time.Time, error) {
	ref, err := s.locator.Locate(ctx, station, offset)
	if err != nil {
		return time.Time{}, err
	}
	return domain.ExtractTimestamp(ref, station)
}

// GetSweep returns the encoded frame for one sweep, building and caching it
// on a miss. Concurrent misses for the same frame share one download.
func (s *Service) GetSweep(ctx context.Context, station string, sweep int, ts time.Time) ([]byte, error) {
	key := cache.SweepKey(station, sweep, ts)

	b, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("cache read failed, rebuilding frame", "key", key, "error", err)
	} else if ok {
		return b, nil
	}

	ch := s.group.DoChan(key, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedBuildTimeout)
		defer cancel()
		vol, err := s.fetcher.Fetch(fctx, station, ts)
		if err != nil {
			return nil, err
		}
		return s.build(fctx, vol, key, sweep, ts)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	}
}

// Prefetch makes sure sweeps 0..count-1 of a scan are cached and returns how
// many frames it built. The volume is downloaded at most once and not at all
// when every frame is already cached. Sweep indices the volume does not have
// and sweeps without reflectivity are skipped, and the skip is remembered in
// the cache so later calls for the same scan do not download it again.
func (s *Service) Prefetch(ctx context.Context, station string, ts time.Time, count int) (int, error) {
	var missing []int
	for i := 0; i < count; i++ {
		if s.settled(ctx, station, i, ts) {
			continue
		}
		missing = append(missing, i)
	}
	if len(missing) == 0 {
		return 0, nil
	}

	vol, err := s.fetcher.Fetch(ctx, station, ts)
	if err != nil {
		return 0, err
	}

	built := 0
	for _, i := range missing {
		if err := ctx.Err(); err != nil {
			return built, err
		}
		if i >= len(vol.Sweeps) {
			s.logger.Debug("sweep not present in volume", "station", station, "sweep", i, "sweeps", len(vol.Sweeps))
			s.metrics.SweepsBuilt.WithLabelValues("skipped").Inc()
			s.markSkipped(ctx, station, i, ts)
			continue
		}
		_, err := s.build(ctx, vol, cache.SweepKey(station, i, ts), i, ts)
		switch {
		case errors.Is(err, domain.ErrNoReflectivity):
			s.logger.Warn("sweep has no reflectivity", "station", station, "sweep", i)
			s.metrics.SweepsBuilt.WithLabelValues("skipped").Inc()
			s.markSkipped(ctx, station, i, ts)
		case err != nil:
			return built, err
		default:
			built++
		}
	}
	return built, nil
}

// settled reports whether a sweep is cached or known to be unbuildable.
func (s *Service) settled(ctx context.Context, station string, sweep int, ts time.Time) bool {
	for _, key := range []string{cache.SweepKey(station, sweep, ts), cache.SkipKey(station, sweep, ts)} {
		ok, err := s.cache.Has(ctx, key)
		if err != nil {
			s.logger.Warn("cache check failed, treating as miss", "station", station, "sweep", sweep, "error", err)
			return false
		}
		if ok {
			return true
		}
	}
	return false
}

func (s *Service) markSkipped(ctx context.Context, station string, sweep int, ts time.Time) {
	if err := s.cache.Set(ctx, cache.SkipKey(station, sweep, ts), []byte{}); err != nil {
		s.logger.Warn("record skipped sweep failed", "station", station, "sweep", sweep, "error", err)
	}
}

// CheckReadiness reports whether the frame cache is reachable.
func (s *Service) CheckReadiness(ctx context.Context) error {
	if err := s.cache.Ping(ctx); err != nil {
		return fmt.Errorf("cache unavailable: %w", err)
	}
	return nil
}

// build transforms, encodes and stores one sweep. Nothing is cached unless
// every step succeeds.
func (s *Service) build(ctx context.Context, vol *domain.Volume, key string, sweep int, ts time.Time) ([]byte, error) {
	start := time.Now()
	frame, err := domain.TransformSweep(vol, sweep, ts)
	if err != nil {
		if !errors.Is(err, domain.ErrNoReflectivity) {
			s.metrics.SweepsBuilt.WithLabelValues("error").Inc()
		}
		return nil, err
	}
	b, err := frame.Encode()
	if err != nil {
		s.metrics.SweepsBuilt.WithLabelValues("error").Inc()
		return nil, err
	}
	s.metrics.TransformDuration.Observe(time.Since(start).Seconds())

	if err := s.cache.Set(ctx, key, b); err != nil {
		s.metrics.SweepsBuilt.WithLabelValues("error").Inc()
		return nil, err
	}
	s.metrics.SweepsBuilt.WithLabelValues("success").Inc()
	return b, nil
}
