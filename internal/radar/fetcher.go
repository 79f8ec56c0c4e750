package radar

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/couchcryptid/storm-radar-service/internal/domain"
	"github.com/couchcryptid/storm-radar-service/internal/observability"
)

// Fetcher downloads and decodes volume scans.
type Fetcher struct {
	store   ObjectStore
	decoder Decoder
	metrics *observability.Metrics
}

// NewFetcher creates a Fetcher.
func NewFetcher(store ObjectStore, decoder Decoder, metrics *observability.Metrics) *Fetcher {
	return &Fetcher{store: store, decoder: decoder, metrics: metrics}
}

// Fetch downloads the scan a station produced at ts and decodes it.
func (f *Fetcher) Fetch(ctx context.Context, station string, ts time.Time) (*domain.Volume, error) {
	start := time.Now()
	key := domain.ScanKey(station, ts)

	body, err := f.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", key, err)
	}
	vol, err := f.decoder.Decode(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	f.metrics.FetchDuration.Observe(time.Since(start).Seconds())
	return vol, nil
}
