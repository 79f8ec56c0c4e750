package observability

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel(" error "))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, "info", "json")

	log.Debug("dropped")
	log.Info("scan observed", "station", "KTLX")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "scan observed", rec["msg"])
	assert.Equal(t, "KTLX", rec["station"])
}

func TestNewLogger_Text(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, "debug", "text").Debug("tick", "station", "KFWS")
	assert.Contains(t, buf.String(), "station=KFWS")
}

func TestNewMetricsForTesting_Independent(t *testing.T) {
	a := NewMetricsForTesting()
	b := NewMetricsForTesting()

	a.ScansObserved.WithLabelValues("KTLX").Inc()
	assert.InDelta(t, 1, testutil.ToFloat64(a.ScansObserved.WithLabelValues("KTLX")), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(b.ScansObserved.WithLabelValues("KTLX")), 0)
}
