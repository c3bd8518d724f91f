// Package api provides the read-only HTTP API over a finished simulation run.
// Every endpoint is GET; the run is immutable once served.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/talgya/ivle-sim/internal/agents"
	"github.com/talgya/ivle-sim/internal/engine"
	"github.com/talgya/ivle-sim/internal/metrics"
	"github.com/talgya/ivle-sim/internal/telemetry"
	"github.com/talgya/ivle-sim/internal/world"
)

const (
	defaultEventLimit = 100
	maxEventLimit     = 5000
)

// Run is the finished run the server exposes.
type Run struct {
	ID         string
	Config     engine.Config
	Catalog    *world.Catalog
	Actors     []*agents.Actor
	Events     []agents.Event
	Stats      engine.Stats
	Metrics    []metrics.Row
	Normalised []metrics.Row
	Weights    metrics.Weights
}

// Server serves one run over HTTP.
type Server struct {
	Run      *Run
	Recorder *telemetry.Recorder // Optional; enables /metrics and request counters
	Addr     string

	// Per-IP limit on the full event log endpoints. Nil disables limiting.
	Limiter *RateLimiter

	byActor map[agents.ActorID][]agents.Event
}

// NewServer indexes the run for per-actor lookups.
func NewServer(run *Run, rec *telemetry.Recorder, addr string) *Server {
	s := &Server{
		Run:      run,
		Recorder: rec,
		Addr:     addr,
		Limiter:  NewRateLimiter(120, time.Minute),
		byActor:  make(map[agents.ActorID][]agents.Event),
	}
	for _, e := range run.Events {
		s.byActor[e.ActorID] = append(s.byActor[e.ActorID], e)
	}
	return s
}

// Router builds the route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	v1 := r.PathPrefix("/api/v1").Subrouter()

	s.handle(v1, "/status", http.HandlerFunc(s.handleStatus))
	s.handle(v1, "/locations", http.HandlerFunc(s.handleLocations))
	s.handle(v1, "/actors", http.HandlerFunc(s.handleActors))
	s.handle(v1, "/actors/{id}/events", s.limited(http.HandlerFunc(s.handleActorEvents)))
	s.handle(v1, "/events", s.limited(http.HandlerFunc(s.handleEvents)))
	s.handle(v1, "/metrics", http.HandlerFunc(s.handleMetrics))
	s.handle(v1, "/summary", http.HandlerFunc(s.handleSummary))

	if s.Recorder != nil {
		r.Handle("/metrics", s.Recorder.Handler()).Methods(http.MethodGet)
	}
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	return r
}

func (s *Server) handle(r *mux.Router, path string, h http.Handler) {
	if s.Recorder != nil {
		h = s.Recorder.Middleware("/api/v1"+path, h)
	}
	r.Handle(path, h).Methods(http.MethodGet)
}

func (s *Server) limited(h http.Handler) http.Handler {
	if s.Limiter == nil {
		return h
	}
	return RateLimitMiddleware(s.Limiter, h)
}

// Handler returns the router wrapped with CORS and access logging.
func (s *Server) Handler() http.Handler {
	cors := handlers.CORS(
		handlers.AllowedOrigins(allowedOrigins()),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)
	return handlers.LoggingHandler(os.Stdout, cors(s.Router()))
}

// allowedOrigins returns localhost dev servers plus the comma-separated
// CORS_ORIGINS env var.
func allowedOrigins() []string {
	origins := []string{
		"http://localhost:5173",
		"http://localhost:4173",
		"http://localhost:3000",
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				origins = append(origins, origin)
			}
		}
	}
	return origins
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP API starting", "addr", s.Addr, "run_id", s.Run.ID)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		slog.Info("HTTP API shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	cal := engine.NewCalendar(s.Run.Config.Start, s.Run.Config.Days)
	status := map[string]any{
		"name":         "ivlesim",
		"run_id":       s.Run.ID,
		"start":        engine.DayLabel(cal.Start),
		"end":          engine.DayLabel(cal.End()),
		"days":         s.Run.Config.Days,
		"actors":       s.Run.Stats.Actors,
		"events":       len(s.Run.Events),
		"movements":    s.Run.Stats.Movements,
		"interactions": s.Run.Stats.Interactions,
		"active_days":  s.Run.Stats.ActiveDays,
		"simulated":    s.Run.Stats.SimulatedTime.String(),
		"login_policy": string(s.Run.Config.LoginPolicy),
		"weights":      s.Run.Weights,
	}
	writeJSON(w, status)
}

func (s *Server) handleLocations(w http.ResponseWriter, r *http.Request) {
	type locationSummary struct {
		Name    string   `json:"name"`
		Objects []string `json:"objects"`
		Width   float64  `json:"width"`
		Length  float64  `json:"length"`
	}

	out := make([]locationSummary, 0, s.Run.Catalog.Len())
	for _, loc := range s.Run.Catalog.Locations {
		objs := make([]string, 0, len(loc.Objects))
		for _, o := range loc.Objects {
			objs = append(objs, o.Name)
		}
		out = append(out, locationSummary{
			Name:    loc.Name,
			Objects: objs,
			Width:   loc.Size.Width,
			Length:  loc.Size.Length,
		})
	}
	writeJSON(w, out)
}

func (s *Server) handleActors(w http.ResponseWriter, r *http.Request) {
	type actorSummary struct {
		ID        agents.ActorID `json:"id"`
		Name      string         `json:"name"`
		Level     string         `json:"engagement_level"`
		LoginDays int            `json:"login_days"`
		Events    int            `json:"events"`
		Location  string         `json:"location,omitempty"`
	}

	levelFilter := r.URL.Query().Get("level")
	var want agents.Level
	if levelFilter != "" {
		l, err := agents.ParseLevel(levelFilter)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		want = l
	}

	out := make([]actorSummary, 0, len(s.Run.Actors))
	for _, a := range s.Run.Actors {
		if want != 0 && a.Level != want {
			continue
		}
		sum := actorSummary{
			ID:        a.ID,
			Name:      a.Name,
			Level:     a.Level.String(),
			LoginDays: len(a.LoginDays),
			Events:    len(a.Log),
		}
		if a.Located() {
			sum.Location = a.Location.Name
		}
		out = append(out, sum)
	}
	writeJSON(w, out)
}

func (s *Server) handleActorEvents(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid actor id")
		return
	}
	events, ok := s.byActor[agents.ActorID(id)]
	if !ok {
		if !s.hasActor(agents.ActorID(id)) {
			writeError(w, http.StatusNotFound, "actor not found")
			return
		}
		events = []agents.Event{}
	}
	writeJSON(w, events)
}

func (s *Server) hasActor(id agents.ActorID) bool {
	for _, a := range s.Run.Actors {
		if a.ID == id {
			return true
		}
	}
	return false
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := defaultEventLimit
	if l := q.Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n <= 0 || n > maxEventLimit {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and "+strconv.Itoa(maxEventLimit))
			return
		}
		limit = n
	}

	var activity agents.Activity
	switch a := agents.Activity(q.Get("activity")); a {
	case "", agents.ActivityMovement, agents.ActivityInteraction:
		activity = a
	default:
		writeError(w, http.StatusBadRequest, "activity must be movement or interaction")
		return
	}

	out := make([]agents.Event, 0, min(limit, len(s.Run.Events)))
	for _, e := range s.Run.Events {
		if activity != "" && e.Activity != activity {
			continue
		}
		out = append(out, e)
		if len(out) == limit {
			break
		}
	}
	writeJSON(w, out)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	rows := s.Run.Metrics
	if v := r.URL.Query().Get("normalised"); v != "" {
		norm, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "normalised must be true or false")
			return
		}
		if norm {
			rows = s.Run.Normalised
		}
	}
	if rows == nil {
		rows = []metrics.Row{}
	}
	writeJSON(w, rows)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, metrics.Summarise(s.Run.Metrics))
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		slog.Error("encoding response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
