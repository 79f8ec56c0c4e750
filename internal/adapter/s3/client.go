// Package s3 reads the NEXRAD Level II archive from an S3 bucket.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/couchcryptid/storm-radar-service/internal/domain"
	"github.com/couchcryptid/storm-radar-service/internal/observability"
)

const source = "s3"

// Config selects the bucket and endpoint. The public archive needs no
// credentials, so requests are sent unsigned.
type Config struct {
	Bucket   string
	Region   string
	Endpoint string // empty for AWS; set for emulators, which implies path-style addressing
	Timeout  time.Duration
	// MaxAttempts caps SDK retries. Zero keeps the SDK default.
	MaxAttempts int
}

// Client implements radar.ObjectStore on top of the S3 API.
type Client struct {
	api     *s3.Client
	bucket  string
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewClient creates an anonymous S3 client for cfg.Bucket.
func NewClient(cfg Config, logger *slog.Logger, metrics *observability.Metrics) *Client {
	opts := s3.Options{
		Region:           cfg.Region,
		Credentials:      aws.AnonymousCredentials{},
		HTTPClient:       &http.Client{Timeout: cfg.Timeout},
		RetryMaxAttempts: cfg.MaxAttempts,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
		opts.UsePathStyle = true
	}
	return &Client{
		api:     s3.New(opts),
		bucket:  cfg.Bucket,
		logger:  logger,
		metrics: metrics,
	}
}

// List returns every key under prefix, following continuation tokens.
func (c *Client) List(ctx context.Context, prefix string) ([]string, error) {
	start := time.Now()
	defer c.observe(start)

	var keys []string
	p := s3.NewListObjectsV2Paginator(c.api, &s3.ListObjectsV2Input{
		Bucket: aws.String(c.bucket),
		Prefix: aws.String(prefix),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			c.metrics.UpstreamRequests.WithLabelValues(source, "error").Inc()
			return nil, fmt.Errorf("%w: list %s: %v", domain.ErrUpstreamFetch, prefix, err)
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}
	c.metrics.UpstreamRequests.WithLabelValues(source, "success").Inc()
	c.logger.Debug("listed objects", "prefix", prefix, "count", len(keys))
	return keys, nil
}

// Get downloads one object.
func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()
	defer c.observe(start)

	out, err := c.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			c.metrics.UpstreamRequests.WithLabelValues(source, "success").Inc()
			return nil, fmt.Errorf("%w: %s", domain.ErrScanNotFound, key)
		}
		c.metrics.UpstreamRequests.WithLabelValues(source, "error").Inc()
		return nil, fmt.Errorf("%w: get %s: %v", domain.ErrUpstreamFetch, key, err)
	}
	defer out.Body.Close()

	b, err := io.ReadAll(out.Body)
	if err != nil {
		c.metrics.UpstreamRequests.WithLabelValues(source, "error").Inc()
		return nil, fmt.Errorf("%w: read %s: %v", domain.ErrUpstreamFetch, key, err)
	}
	c.metrics.UpstreamRequests.WithLabelValues(source, "success").Inc()
	return b, nil
}

func (c *Client) observe(start time.Time) {
	c.metrics.UpstreamDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())
}
