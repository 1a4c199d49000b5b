package admin

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"rovops-sim/internal/logging"
	"rovops-sim/internal/metrics"
	"rovops-sim/internal/missionlog"
	"rovops-sim/internal/scenario"
	"rovops-sim/internal/sim"
	"rovops-sim/internal/telemetry"
)

const (
	maxCommandBytes = 64 << 10
	writeTimeout    = 5 * time.Second
	shutdownTimeout = 5 * time.Second
)

//go:embed templates/index.html
var content embed.FS

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server exposes the simulator over HTTP and WebSocket.
type Server struct {
	Sim     *sim.Simulator
	metrics *metrics.Collector
	router  *mux.Router
	tpl     *template.Template
}

// NewServer wires the routes. m may be nil, in which case /metrics is not served.
func NewServer(s *sim.Simulator, m *metrics.Collector) *Server {
	tpl := template.Must(template.New("index.html").ParseFS(content, "templates/index.html"))
	srv := &Server{Sim: s, metrics: m, router: mux.NewRouter(), tpl: tpl}
	srv.routes()
	return srv
}

func (s *Server) routes() {
	s.router.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/telemetry", s.handleTelemetry).Methods(http.MethodGet)
	s.router.HandleFunc("/mission-log", s.handleMissionLog).Methods(http.MethodGet)
	s.router.HandleFunc("/scenarios", s.handleScenarios).Methods(http.MethodGet)
	s.router.HandleFunc("/command", s.handleCommand).Methods(http.MethodPost)
	s.router.HandleFunc("/ws/telemetry", s.handleStream)
	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	}
	s.router.Use(loggingMiddleware)
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler { return s.router }

// Start serves on addr until ctx is cancelled, then shuts down gracefully.
// It returns http.ErrServerClosed after a clean shutdown.
func (s *Server) Start(ctx context.Context, addr string) error {
	hs := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = hs.Shutdown(shutdownCtx)
	}()
	return hs.ListenAndServe()
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logging.FromContext(r.Context()).Debug("admin request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := struct {
		VehicleID string
		RunID     string
		Scenario  scenario.Name
		Snapshot  telemetry.Snapshot
		Scenarios []scenario.Info
		Log       []missionlog.Entry
	}{
		VehicleID: s.Sim.VehicleID(),
		RunID:     s.Sim.RunID(),
		Scenario:  s.Sim.ActiveScenario(),
		Snapshot:  s.Sim.Snapshot(),
		Scenarios: scenario.Catalog(),
		Log:       s.Sim.MissionLog(),
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tpl.Execute(w, data); err != nil {
		logging.FromContext(r.Context()).Error("render index", "err", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":              "ok",
		"vehicle_id":          s.Sim.VehicleID(),
		"running":             s.Sim.Running(),
		"mission_log_entries": s.Sim.MissionLogLen(),
		"stream_subscribers":  s.Sim.Hub().Len(),
	})
}

// handleTelemetry returns the current snapshot without advancing the simulation.
func (s *Server) handleTelemetry(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Sim.Snapshot())
}

func (s *Server) handleMissionLog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Sim.MissionLog())
}

func (s *Server) handleScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenario.Catalog())
}

// handleCommand queues a command for the next tick.
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxCommandBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "cannot read body")
		return
	}
	cmd, err := sim.DecodeCommand(body)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, sim.ErrMalformedCommand) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
		return
	}
	if !s.Sim.Submit(cmd) {
		writeError(w, http.StatusServiceUnavailable, "command queue full")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"queued": cmd.Name()})
}

// handleStream sends the current snapshot, then every broadcast snapshot.
// Inbound text frames are decoded as commands and queued.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	sub := s.Sim.Hub().Subscribe()
	defer sub.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go func() {
		defer cancel()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			cmd, err := sim.DecodeCommand(data)
			if err != nil {
				log.Debug("dropping malformed stream command", "err", err)
				continue
			}
			if !s.Sim.Submit(cmd) {
				log.Warn("command queue full", "command", cmd.Name())
			}
		}
	}()

	send := func(snap telemetry.Snapshot) error {
		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		return conn.WriteJSON(snap)
	}
	if err := send(s.Sim.Snapshot()); err != nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-sub.C:
			if !ok {
				return
			}
			if err := send(snap); err != nil {
				return
			}
		}
	}
}
