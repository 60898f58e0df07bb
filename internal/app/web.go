package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relabs-tech/compass_computer/internal/config"
	"github.com/relabs-tech/compass_computer/internal/gps"
	"github.com/relabs-tech/compass_computer/internal/logging"
	"github.com/relabs-tech/compass_computer/internal/orientation"
)

const (
	// headings queued per websocket client before new ones are dropped
	clientQueue  = 16
	writeTimeout = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// Web keeps the latest MQTT state for the HTTP API and pushes every
// heading to the connected websocket clients.
type Web struct {
	commands     Publisher
	commandTopic string
	logger       logging.Logger

	mu          sync.RWMutex
	heading     []byte
	haveHeading bool
	fix         []byte
	haveFix     bool
	clients     map[chan []byte]struct{}
}

// NewWeb returns a Web that sends commands to commandTopic through pub.
func NewWeb(pub Publisher, commandTopic string, logger logging.Logger) *Web {
	return &Web{
		commands:     pub,
		commandTopic: commandTopic,
		logger:       logger,
		clients:      make(map[chan []byte]struct{}),
	}
}

// OnHeading stores and broadcasts a heading payload.
func (w *Web) OnHeading(payload []byte) {
	var h orientation.Heading
	if err := json.Unmarshal(payload, &h); err != nil {
		w.logger.Warnw("heading unmarshal error", "error", err)
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.heading = payload
	w.haveHeading = true
	for c := range w.clients {
		select {
		case c <- payload:
		default:
			// slow client, it catches up with the next heading
		}
	}
}

// OnLocation stores a fix payload.
func (w *Web) OnLocation(payload []byte) {
	var f gps.Fix
	if err := json.Unmarshal(payload, &f); err != nil {
		w.logger.Warnw("location unmarshal error", "error", err)
		return
	}
	w.mu.Lock()
	w.fix = payload
	w.haveFix = true
	w.mu.Unlock()
}

// Handler serves the API and, when staticDir is set, the files below it.
func (w *Web) Handler(staticDir string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/heading", w.serveHeading)
	mux.HandleFunc("GET /api/location", w.serveLocation)
	mux.HandleFunc("POST /api/reset", w.serveReset)
	mux.HandleFunc("GET /ws", w.serveWS)
	if staticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(staticDir)))
	}
	return mux
}

func (w *Web) serveHeading(rw http.ResponseWriter, _ *http.Request) {
	w.mu.RLock()
	payload, ok := w.heading, w.haveHeading
	w.mu.RUnlock()
	writeJSON(rw, payload, ok)
}

func (w *Web) serveLocation(rw http.ResponseWriter, _ *http.Request) {
	w.mu.RLock()
	payload, ok := w.fix, w.haveFix
	w.mu.RUnlock()
	writeJSON(rw, payload, ok)
}

func writeJSON(rw http.ResponseWriter, payload []byte, ok bool) {
	if !ok {
		http.Error(rw, "no data yet", http.StatusServiceUnavailable)
		return
	}
	rw.Header().Set("Content-Type", "application/json")
	_, _ = rw.Write(payload)
}

func (w *Web) serveReset(rw http.ResponseWriter, _ *http.Request) {
	if err := w.commands.Publish(w.commandTopic, false, []byte(CommandReset)); err != nil {
		w.logger.Warnw("reset command publish error", "error", err)
		http.Error(rw, "command not delivered", http.StatusBadGateway)
		return
	}
	rw.WriteHeader(http.StatusAccepted)
}

func (w *Web) serveWS(rw http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(rw, r, nil)
	if err != nil {
		w.logger.Warnw("websocket upgrade error", "error", err)
		return
	}
	defer conn.Close()

	queue := make(chan []byte, clientQueue)
	w.mu.Lock()
	w.clients[queue] = struct{}{}
	if w.haveHeading {
		queue <- w.heading
	}
	w.mu.Unlock()
	defer func() {
		w.mu.Lock()
		delete(w.clients, queue)
		w.mu.Unlock()
	}()

	// the reader only notices the client going away
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					w.logger.Debugw("websocket read error", "error", err)
				}
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case payload := <-queue:
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				w.logger.Debugw("websocket write error", "error", err)
				return
			}
		}
	}
}

// Clients returns the number of connected websocket clients.
func (w *Web) Clients() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.clients)
}

// RunWeb subscribes to headings and locations and serves them on web.port
// until ctx is done.
func RunWeb(ctx context.Context, cfg *config.Config, staticDir string, logger logging.Logger) error {
	client, err := connectMQTT(cfg.MQTT, cfg.MQTT.ClientIDWeb, logger)
	if err != nil {
		return err
	}
	defer client.Disconnect(disconnectQuiesceMs)

	web := NewWeb(NewPublisher(client), cfg.Topics.Command, logger)
	if err := subscribe(client, cfg.Topics.Heading, logger, web.OnHeading); err != nil {
		return err
	}
	if err := subscribe(client, cfg.Topics.Location, logger, web.OnLocation); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Web.Port),
		Handler:           web.Handler(staticDir),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warnw("web server shutdown", "error", err)
		}
	}()

	logger.Infof("web server listening on %s", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
