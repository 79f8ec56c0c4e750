package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/couchcryptid/storm-radar-service/internal/domain"
	"github.com/couchcryptid/storm-radar-service/internal/observability"
	"github.com/couchcryptid/storm-radar-service/internal/watcher"
)

const (
	// writeTimeout is the deadline for a single write to a subscriber.
	writeTimeout = 10 * time.Second

	// pongWait is how long to wait for a pong before treating the
	// connection as dead.
	pongWait = 60 * time.Second

	// pingPeriod must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	sendBufSize = 16
)

// Client text messages.
const (
	msgPing  = "PING"
	msgPong  = "PONG"
	msgClose = "close"
)

var errSlowSubscriber = errors.New("subscriber send buffer full")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Subscriptions are read-only, so any origin may connect.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// subscriptions upgrades station subscriptions and wires them into the
// listener registry.
type subscriptions struct {
	registry *watcher.Registry
	watcher  StationWatcher
	logger   *slog.Logger
	metrics  *observability.Metrics
}

func newSubscriptions(registry *watcher.Registry, w StationWatcher, logger *slog.Logger, metrics *observability.Metrics) *subscriptions {
	return &subscriptions{registry: registry, watcher: w, logger: logger, metrics: metrics}
}

// subscriber is one connected WebSocket client. It implements
// watcher.Listener.
type subscriber struct {
	id      string
	station string
	conn    *websocket.Conn
	send    chan []byte
	done    chan struct{}
}

// OnScan queues n for delivery without blocking the notifying watcher.
func (s *subscriber) OnScan(_ context.Context, n domain.ScanNotification) error {
	b, err := json.Marshal(n)
	if err != nil {
		return err
	}
	select {
	case <-s.done:
		return nil
	case s.send <- b:
		return nil
	default:
		return errSlowSubscriber
	}
}

func (s *subscriber) queue(msg string) {
	select {
	case s.send <- []byte(msg):
	default:
	}
}

// Serve handles GET /ws/watch/station/:station. It blocks until the
// subscriber disconnects or sends "close".
func (h *subscriptions) Serve(c *gin.Context) {
	station, ok := stationParam(c)
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// upgrader has already written the error response.
		return
	}

	sub := &subscriber{
		id:      uuid.NewString(),
		station: station,
		conn:    conn,
		send:    make(chan []byte, sendBufSize),
		done:    make(chan struct{}),
	}
	h.registry.Add(station, sub)
	h.metrics.Subscribers.Inc()
	h.logger.Info("subscriber connected", "station", station, "subscriber", sub.id)

	defer func() {
		h.registry.Remove(station, sub)
		close(sub.done)
		h.metrics.Subscribers.Dec()
		h.logger.Info("subscriber disconnected", "station", station, "subscriber", sub.id)
	}()

	if !h.watcher.IsWatching(station) {
		if err := h.watcher.Start(station); err != nil && !errors.Is(err, watcher.ErrAlreadyWatching) {
			h.logger.Error("start watcher failed", "station", station, "error", err)
		}
	}
	sub.queue(msgPong)

	go sub.writePump()
	sub.readPump()
}

// writePump is the only writer on the connection. It forwards queued
// messages and sends periodic pings.
func (s *subscriber) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case <-s.done:
			closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			s.conn.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(writeTimeout)) //nolint:errcheck
			return
		case msg := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeTimeout)) //nolint:errcheck
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeTimeout)) //nolint:errcheck
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump handles client text commands and detects disconnects.
func (s *subscriber) readPump() {
	s.conn.SetReadLimit(512)
	s.conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		s.conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck
		switch strings.TrimSpace(string(msg)) {
		case msgClose:
			return
		case msgPing:
			s.queue(msgPong)
		}
	}
}
