package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/couchcryptid/storm-radar-service/internal/domain"
	"github.com/couchcryptid/storm-radar-service/internal/watcher"
)

// Handler serves the JSON and msgpack endpoints.
type Handler struct {
	radar      RadarService
	watcher    StationWatcher
	alerts     AlertSource
	geojsonDir string
	logger     *slog.Logger
}

// NewHandler creates a Handler from the router dependencies.
func NewHandler(d Deps) *Handler {
	return &Handler{
		radar:      d.Radar,
		watcher:    d.Watcher,
		alerts:     d.Alerts,
		geojsonDir: d.GeoJSONDir,
		logger:     d.Logger,
	}
}

// GetLatestScan handles GET /api/radar/:station/scan/:last.
func (h *Handler) GetLatestScan(c *gin.Context) {
	station, ok := stationParam(c)
	if !ok {
		return
	}
	last, ok := intParam(c, "last")
	if !ok {
		return
	}

	ts, err := h.radar.LocateLatest(c.Request.Context(), station, last)
	if err != nil {
		h.writeError(c, err, "station", station, "last", last)
		return
	}
	c.JSON(http.StatusOK, gin.H{"timestamp": ts.Unix()})
}

// GetSweep handles GET /api/radar/:station/:sweep/:timestamp.
func (h *Handler) GetSweep(c *gin.Context) {
	station, ok := stationParam(c)
	if !ok {
		return
	}
	sweep, ok := intParam(c, "sweep")
	if !ok {
		return
	}
	unix, ok := intParam(c, "timestamp")
	if !ok {
		return
	}
	if sweep < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "sweep must not be negative"})
		return
	}

	b, err := h.radar.GetSweep(c.Request.Context(), station, sweep, time.Unix(int64(unix), 0).UTC())
	if err != nil {
		h.writeError(c, err, "station", station, "sweep", sweep, "timestamp", unix)
		return
	}
	c.Data(http.StatusOK, "application/msgpack", b)
}

// ListWatched handles GET /api/watch.
func (h *Handler) ListWatched(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"stations": h.watcher.Stations()})
}

// GetWatch handles GET /api/watch/:station.
func (h *Handler) GetWatch(c *gin.Context) {
	station, ok := stationParam(c)
	if !ok {
		return
	}
	resp := gin.H{
		"station":       station,
		"watching":      h.watcher.IsWatching(station),
		"last_observed": nil,
	}
	if ts, ok := h.watcher.LastObserved(station); ok {
		resp["last_observed"] = ts.Unix()
	}
	c.JSON(http.StatusOK, resp)
}

// StartWatch handles PUT /api/watch/:station.
func (h *Handler) StartWatch(c *gin.Context) {
	station, ok := stationParam(c)
	if !ok {
		return
	}
	if err := h.watcher.Start(station); err != nil {
		if errors.Is(err, watcher.ErrAlreadyWatching) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		h.writeError(c, err, "station", station)
		return
	}
	c.JSON(http.StatusOK, gin.H{"station": station, "watching": true})
}

// StopWatch handles DELETE /api/watch/:station.
func (h *Handler) StopWatch(c *gin.Context) {
	station, ok := stationParam(c)
	if !ok {
		return
	}
	if err := h.watcher.Stop(station); err != nil {
		if errors.Is(err, watcher.ErrNotWatching) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		h.writeError(c, err, "station", station)
		return
	}
	c.JSON(http.StatusOK, gin.H{"station": station, "watching": false})
}

// GetAlerts handles GET /api/alerts/:state.
func (h *Handler) GetAlerts(c *gin.Context) {
	state := c.Param("state")
	if len(state) != 2 {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid state %q", state)})
		return
	}
	list, err := h.alerts.Active(c.Request.Context(), state)
	if err != nil {
		h.writeError(c, err, "state", state)
		return
	}
	c.JSON(http.StatusOK, list)
}

// writeError maps domain errors to status codes.
func (h *Handler) writeError(c *gin.Context, err error, attrs ...any) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", append(attrs, "path", c.FullPath(), "error", err)...)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case domain.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUpstreamFetch):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func stationParam(c *gin.Context) (string, bool) {
	station := domain.NormalizeStation(c.Param("station"))
	if !domain.ValidStation(station) {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid station %q", c.Param("station"))})
		return "", false
	}
	return station, true
}

func intParam(c *gin.Context, name string) (int, bool) {
	n, err := strconv.Atoi(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid %s: %v", name, err)})
		return 0, false
	}
	return n, true
}
