// Package web exposes the telemetry hub and the operator command
// surface over HTTP. It renders nothing itself: observers pull JSON
// snapshots or subscribe to the websocket push feed.
package web

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/golang/glog"
	"github.com/gorilla/websocket"

	fx "github.com/tunnelworks/rover.go/pkg/framework"
	"github.com/tunnelworks/rover.go/pkg/nav"
	"github.com/tunnelworks/rover.go/pkg/telemetry"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server serves the dashboard API.
type Server struct {
	Addr string
	Hub  *telemetry.Hub
	// Post delivers an operator command into the control loop.
	// nil disables POST /api/command.
	Post func(nav.Command)

	mux    *http.ServeMux
	server *http.Server
}

// NewServer creates the Server and registers its routes.
func NewServer(addr string, hub *telemetry.Hub, post func(nav.Command)) *Server {
	s := &Server{Addr: addr, Hub: hub, Post: post, mux: http.NewServeMux()}
	s.mux.HandleFunc("GET /api/telemetry", s.handleTelemetry)
	s.mux.HandleFunc("GET /api/status", s.handleStatus)
	s.mux.HandleFunc("POST /api/command", s.handleCommand)
	s.mux.HandleFunc("GET /ws", s.handleWS)
	return s
}

// Name implements Named.
func (s *Server) Name() string {
	return "web"
}

// Run implements Runnable: serve until the context is canceled, then
// shut down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.server = &http.Server{Addr: s.Addr, Handler: s.mux}
	glog.Infof("dashboard listening at http://%s", s.Addr)
	return fx.RunWithContextCancel(ctx, func() {
		sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.server.Shutdown(sctx); err != nil {
			glog.Errorf("web: shutdown: %v", err)
		}
	}, func() error {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
}

// handleTelemetry returns the most recent n records (default 100).
func (s *Server) handleTelemetry(w http.ResponseWriter, r *http.Request) {
	n := 100
	if v := r.URL.Query().Get("n"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			http.Error(w, "invalid n", http.StatusBadRequest)
			return
		}
		n = parsed
	}
	writeJSON(w, s.Hub.Snapshot(n))
}

// handleStatus returns the latest record, 204 before the first tick.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.Hub.Latest()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, rec)
}

// handleCommand accepts an operator command as JSON {"op": ...}.
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	if s.Post == nil {
		http.Error(w, "commands disabled", http.StatusForbidden)
		return
	}
	var cmd nav.Command
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !cmd.Valid() {
		http.Error(w, "unknown op", http.StatusBadRequest)
		return
	}
	glog.Infof("web: command %s from %s", cmd.Op, r.RemoteAddr)
	s.Post(cmd)
	w.WriteHeader(http.StatusAccepted)
}

// handleWS pushes records to a websocket client. A client that stops
// reading only loses its own records.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	sub := s.Hub.Subscribe(32)
	defer sub.Close()

	// Drain client frames to notice a close.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case rec, ok := <-sub.C():
			if !ok {
				return
			}
			if err := conn.WriteJSON(rec); err != nil {
				return
			}
		}
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		glog.V(1).Infof("web: encode: %v", err)
	}
}
