package radar

import (
	"context"
	"io"

	"github.com/couchcryptid/storm-radar-service/internal/domain"
)

// ObjectStore lists and reads archive objects.
type ObjectStore interface {
	// List returns every key starting with prefix, in no particular order.
	List(ctx context.Context, prefix string) ([]string, error)
	// Get returns the object body. A missing key yields an error wrapping
	// domain.ErrScanNotFound; transport failures wrap domain.ErrUpstreamFetch.
	Get(ctx context.Context, key string) ([]byte, error)
}

// Decoder parses a Level II file. Failures wrap domain.ErrDecode.
type Decoder interface {
	Decode(r io.Reader) (*domain.Volume, error)
}

// FrameCache is the subset of the cache used for encoded frames.
type FrameCache interface {
	Has(ctx context.Context, key string) (bool, error)
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Ping(ctx context.Context) error
}
