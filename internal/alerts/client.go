package alerts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/couchcryptid/storm-radar-service/internal/cache"
	"github.com/couchcryptid/storm-radar-service/internal/domain"
	"github.com/couchcryptid/storm-radar-service/internal/observability"
)

const source = "nws"

// ZoneCache stores zone geometry responses.
type ZoneCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	SetTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Client reads active alerts from the NWS API.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	circuit    *gobreaker.CircuitBreaker
	zones      ZoneCache
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates an NWS alerts client.
func NewClient(baseURL, userAgent string, timeout time.Duration, zones ZoneCache, logger *slog.Logger, metrics *observability.Metrics) *Client {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "nws",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: timeout},
		circuit:    cb,
		zones:      zones,
		logger:     logger,
		metrics:    metrics,
	}
}

// Active returns the active, actual alerts for a two-letter state code.
// A response that is not a FeatureCollection yields no alerts.
func (c *Client) Active(ctx context.Context, state string) ([]Alert, error) {
	state = strings.ToUpper(strings.TrimSpace(state))
	params := url.Values{"area": {state}, "status": {"actual"}}

	body, err := c.get(ctx, c.baseURL+"/alerts/active?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var fc featureCollection
	if err := json.Unmarshal(body, &fc); err != nil {
		return nil, fmt.Errorf("decode alerts: %w", err)
	}
	if fc.Type != "FeatureCollection" {
		c.logger.Warn("alerts response is not a FeatureCollection", "state", state, "type", fc.Type)
		return []Alert{}, nil
	}

	alerts := make([]Alert, 0, len(fc.Features))
	for _, f := range fc.Features {
		a, err := c.toAlert(ctx, f, state)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.logger.Warn("skipping alert", "state", state, "id", f.Properties.ID, "error", err)
			continue
		}
		alerts = append(alerts, a)
	}
	return alerts, nil
}

func (c *Client) toAlert(ctx context.Context, f feature, state string) (Alert, error) {
	if f.Type != "Feature" {
		return Alert{}, fmt.Errorf("invalid GeoJSON feature type %q", f.Type)
	}
	p := f.Properties

	geom := f.Geometry
	if geom == nil {
		var err error
		geom, err = c.zoneGeometry(ctx, p.AffectedZones)
		if err != nil {
			return Alert{}, err
		}
	}

	color, weather := Classify(p.Event)
	return Alert{
		ID:           p.ID,
		Geometry:     geom,
		Sent:         p.Sent,
		Expires:      p.Expires,
		Effective:    p.Effective,
		Onset:        p.Onset,
		Ends:         p.Ends,
		MessageType:  p.MessageType,
		Severity:     p.Severity,
		Certainty:    p.Certainty,
		Urgency:      p.Urgency,
		Event:        p.Event,
		Headline:     p.Headline,
		Description:  p.Description,
		Instruction:  p.Instruction,
		AreaDesc:     p.AreaDesc,
		State:        state,
		MaxHailSize:  p.Parameters.MaxHailSize,
		MaxWindSpeed: p.Parameters.MaxWindSpeed,
		Color:        color,
		IsWeather:    weather,
	}, nil
}

// zoneBody returns a zone's geometry response, from the cache when possible.
// Only responses carrying a usable geometry are cached.
func (c *Client) zoneBody(ctx context.Context, zoneURL string) (*zoneResponse, error) {
	key := cache.AlertPolygonKey(zoneURL)
	if b, ok, err := c.zones.Get(ctx, key); err == nil && ok {
		var z zoneResponse
		if err := json.Unmarshal(b, &z); err == nil && z.Geometry != nil {
			return &z, nil
		}
	} else if err != nil {
		c.logger.Warn("zone cache read failed", "zone", zoneURL, "error", err)
	}

	b, err := c.get(ctx, zoneURL)
	if err != nil {
		return nil, err
	}
	var z zoneResponse
	if err := json.Unmarshal(b, &z); err != nil {
		return nil, fmt.Errorf("decode zone %s: %w", zoneURL, err)
	}
	if z.Geometry == nil {
		return nil, fmt.Errorf("zone %s has no geometry", zoneURL)
	}
	if err := c.zones.SetTTL(ctx, key, b, cache.AlertPolygonTTL); err != nil {
		c.logger.Warn("zone cache write failed", "zone", zoneURL, "error", err)
	}
	return &z, nil
}

func (c *Client) get(ctx context.Context, u string) ([]byte, error) {
	start := time.Now()
	defer func() {
		c.metrics.UpstreamDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())
	}()

	result, err := c.circuit.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/geo+json")
		req.Header.Set("User-Agent", c.userAgent)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("status %d: %s", resp.StatusCode, truncate(body, 200))
		}
		return body, nil
	})
	if err != nil {
		c.metrics.UpstreamRequests.WithLabelValues(source, "error").Inc()
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: nws circuit open: %v", domain.ErrUpstreamFetch, err)
		}
		return nil, fmt.Errorf("%w: nws %s: %v", domain.ErrUpstreamFetch, u, err)
	}
	c.metrics.UpstreamRequests.WithLabelValues(source, "success").Inc()
	return result.([]byte), nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
