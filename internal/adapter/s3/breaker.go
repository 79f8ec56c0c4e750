package s3

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/couchcryptid/storm-radar-service/internal/domain"
	"github.com/couchcryptid/storm-radar-service/internal/radar"
)

// BreakerStore guards an ObjectStore with a circuit breaker so an archive
// outage fails watcher polls fast instead of piling up timeouts. Missing
// objects and calls abandoned by their caller count as successful calls.
type BreakerStore struct {
	inner radar.ObjectStore
	cb    *gobreaker.CircuitBreaker
}

// NewBreakerStore wraps inner. The breaker opens after five consecutive
// failures and probes again after timeout.
func NewBreakerStore(inner radar.ObjectStore, timeout time.Duration, logger *slog.Logger) *BreakerStore {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "radar-archive",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			var gone callerGone
			return err == nil ||
				errors.Is(err, domain.ErrScanNotFound) ||
				errors.Is(err, context.Canceled) ||
				errors.As(err, &gone)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return &BreakerStore{inner: inner, cb: cb}
}

func (b *BreakerStore) List(ctx context.Context, prefix string) ([]string, error) {
	v, err := b.cb.Execute(func() (interface{}, error) {
		keys, err := b.inner.List(ctx, prefix)
		return keys, markCallerGone(ctx, err)
	})
	if err != nil {
		return nil, breakerErr(err)
	}
	return v.([]string), nil
}

func (b *BreakerStore) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := b.cb.Execute(func() (interface{}, error) {
		body, err := b.inner.Get(ctx, key)
		return body, markCallerGone(ctx, err)
	})
	if err != nil {
		return nil, breakerErr(err)
	}
	return v.([]byte), nil
}

// callerGone marks a failure that happened after the caller's context ended.
// It says nothing about the archive's health.
type callerGone struct{ err error }

func (e callerGone) Error() string { return e.err.Error() }
func (e callerGone) Unwrap() error { return e.err }

func markCallerGone(ctx context.Context, err error) error {
	if err != nil && ctx.Err() != nil {
		return callerGone{err: err}
	}
	return err
}

// breakerErr maps rejections by an open breaker to upstream failures and
// strips the callerGone marker.
func breakerErr(err error) error {
	var gone callerGone
	if errors.As(err, &gone) {
		return gone.err
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", domain.ErrUpstreamFetch, err)
	}
	return err
}
