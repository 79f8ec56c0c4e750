// Package api serves the radar dashboard HTTP and WebSocket API.
package api

import (
	"context"
	"log/slog"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/couchcryptid/storm-radar-service/internal/alerts"
	"github.com/couchcryptid/storm-radar-service/internal/observability"
	"github.com/couchcryptid/storm-radar-service/internal/watcher"
)

// RadarService locates scans and serves rendered sweep frames.
type RadarService interface {
	LocateLatest(ctx context.Context, station string, offset int) (time.Time, error)
	GetSweep(ctx context.Context, station string, sweep int, ts time.Time) ([]byte, error)
}

// StationWatcher controls per-station polling.
type StationWatcher interface {
	Start(station string) error
	Stop(station string) error
	IsWatching(station string) bool
	Stations() []string
	LastObserved(station string) (time.Time, bool)
}

// AlertSource returns active weather alerts for a state.
type AlertSource interface {
	Active(ctx context.Context, state string) ([]alerts.Alert, error)
}

// Deps bundles everything the router needs.
type Deps struct {
	Radar          RadarService
	Watcher        StationWatcher
	Registry       *watcher.Registry
	Alerts         AlertSource
	GeoJSONDir     string
	AllowedOrigins []string
	Logger         *slog.Logger
	Metrics        *observability.Metrics
}

// NewRouter creates the gin engine with CORS and all API routes.
func NewRouter(d Deps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if len(d.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = d.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	router.Use(cors.New(corsConfig))

	h := NewHandler(d)
	ws := newSubscriptions(d.Registry, d.Watcher, d.Logger, d.Metrics)

	api := router.Group("/api")

	radar := api.Group("/radar/:station")
	radar.GET("/scan/:last", h.GetLatestScan)
	radar.GET("/:sweep/:timestamp", h.GetSweep)

	watch := api.Group("/watch")
	watch.GET("", h.ListWatched)
	watch.GET("/:station", h.GetWatch)
	watch.PUT("/:station", h.StartWatch)
	watch.DELETE("/:station", h.StopWatch)

	api.GET("/alerts/:state", h.GetAlerts)
	api.GET("/geojson/:data/:version", h.GetGeoJSON)

	router.GET("/ws/watch/station/:station", ws.Serve)

	return router
}
