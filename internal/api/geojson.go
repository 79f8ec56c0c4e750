package api

import (
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"
)

var overlays = map[string]bool{
	"coastline":        true,
	"states":           true,
	"lakes":            true,
	"rivers":           true,
	"freeways":         true,
	"oklahomaCounties": true,
	"oklahomaLakes":    true,
	"oklahomaStreams":  true,
}

// GetGeoJSON handles GET /api/geojson/:data/:version. Files live at
// {dir}/v{version}/{data}.json.
func (h *Handler) GetGeoJSON(c *gin.Context) {
	data := c.Param("data")
	if !overlays[data] {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown overlay"})
		return
	}
	version, err := strconv.Atoi(c.Param("version"))
	if err != nil || version < 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown overlay version"})
		return
	}

	versionDir := filepath.Join(h.geojsonDir, "v"+strconv.Itoa(version))
	if info, err := os.Stat(versionDir); err != nil || !info.IsDir() {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown overlay version"})
		return
	}

	b, err := os.ReadFile(filepath.Join(versionDir, data+".json"))
	if err != nil {
		h.logger.Error("read overlay failed", "data", data, "version", version, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "overlay unavailable"})
		return
	}
	c.Data(http.StatusOK, "application/json", b)
}
