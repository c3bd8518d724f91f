package api

import (
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/ivle-sim/internal/agents"
	"github.com/talgya/ivle-sim/internal/engine"
	"github.com/talgya/ivle-sim/internal/logging"
	"github.com/talgya/ivle-sim/internal/metrics"
	"github.com/talgya/ivle-sim/internal/telemetry"
	"github.com/talgya/ivle-sim/internal/world"
)

func testRun(t *testing.T) *Run {
	t.Helper()
	cat, err := world.FromMapping(map[string][]string{
		"Classroom":  {"Desk", "Book"},
		"Auditorium": {"Screen"},
	})
	require.NoError(t, err)

	cfg := engine.Config{
		Actors:      10,
		Days:        4,
		Start:       time.Date(2024, 1, 1, 0, 0, 0, 0, time.Local),
		Cohorts:     agents.DefaultCohorts(),
		LoginPolicy: agents.LoginSample,
	}
	sim, err := engine.NewSimulation(cfg, cat, rand.New(rand.NewSource(7)))
	require.NoError(t, err)
	sim.SetLogger(logging.Discard())
	events := sim.Run()

	w := metrics.DefaultWeights()
	raw := metrics.ComputePerActor(events, w, cat.DistinctInteractables())
	return &Run{
		ID:         "run-1",
		Config:     cfg,
		Catalog:    cat,
		Actors:     sim.Actors,
		Events:     events,
		Stats:      sim.Stats,
		Metrics:    raw,
		Normalised: metrics.Normalise(raw),
		Weights:    w,
	}
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestStatus(t *testing.T) {
	run := testRun(t)
	h := NewServer(run, nil, ":0").Router()

	rec := get(t, h, "/api/v1/status")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "run-1", body["run_id"])
	assert.Equal(t, "2024-01-01", body["start"])
	assert.EqualValues(t, len(run.Events), body["events"])
}

func TestLocationsAndActors(t *testing.T) {
	run := testRun(t)
	h := NewServer(run, nil, ":0").Router()

	rec := get(t, h, "/api/v1/locations")
	require.Equal(t, http.StatusOK, rec.Code)
	var locs []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &locs))
	require.Len(t, locs, 2)
	assert.Equal(t, "Auditorium", locs[0]["name"])

	rec = get(t, h, "/api/v1/actors")
	require.Equal(t, http.StatusOK, rec.Code)
	var actors []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &actors))
	assert.Len(t, actors, 10)

	rec = get(t, h, "/api/v1/actors?level=high")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &actors))
	for _, a := range actors {
		assert.Equal(t, "high", a["engagement_level"])
	}

	rec = get(t, h, "/api/v1/actors?level=extreme")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestActorEvents(t *testing.T) {
	run := testRun(t)
	h := NewServer(run, nil, ":0").Router()

	id := run.Actors[0].ID
	rec := get(t, h, "/api/v1/actors/1/events")
	require.Equal(t, http.StatusOK, rec.Code)
	var events []agents.Event
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
	for _, e := range events {
		assert.Equal(t, id, e.ActorID)
	}

	assert.Equal(t, http.StatusNotFound, get(t, h, "/api/v1/actors/999/events").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, h, "/api/v1/actors/abc/events").Code)
}

func TestEventsFilters(t *testing.T) {
	run := testRun(t)
	require.NotEmpty(t, run.Events)
	h := NewServer(run, nil, ":0").Router()

	rec := get(t, h, "/api/v1/events?activity=movement&limit=3")
	require.Equal(t, http.StatusOK, rec.Code)
	var events []agents.Event
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
	assert.LessOrEqual(t, len(events), 3)
	for _, e := range events {
		assert.Equal(t, agents.ActivityMovement, e.Activity)
	}

	tests := []struct {
		name string
		path string
	}{
		{"zero limit", "/api/v1/events?limit=0"},
		{"huge limit", "/api/v1/events?limit=999999"},
		{"bad activity", "/api/v1/events?activity=sleeping"},
		{"bad normalised", "/api/v1/metrics?normalised=maybe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, h, tt.path)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	run := testRun(t)
	h := NewServer(run, nil, ":0").Router()

	rec := get(t, h, "/api/v1/metrics?normalised=true")
	require.Equal(t, http.StatusOK, rec.Code)
	var rows []metrics.Row
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	require.Len(t, rows, len(run.Normalised))
	for _, r := range rows {
		assert.GreaterOrEqual(t, r.EngagementScore, 0.0)
		assert.LessOrEqual(t, r.EngagementScore, 1.0)
	}

	rec = get(t, h, "/api/v1/summary")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestPrometheusAndRequestCounting(t *testing.T) {
	run := testRun(t)
	rec := telemetry.NewRecorder()
	h := NewServer(run, rec, ":0").Router()

	require.Equal(t, http.StatusOK, get(t, h, "/api/v1/status").Code)

	res := get(t, h, "/metrics")
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), `ivlesim_http_requests_total{route="/api/v1/status",status="200"} 1`)
}

func TestUnknownRoute(t *testing.T) {
	h := NewServer(testRun(t), nil, ":0").Router()
	assert.Equal(t, http.StatusNotFound, get(t, h, "/api/v2/nothing").Code)
}

func TestRateLimitedEvents(t *testing.T) {
	srv := NewServer(testRun(t), nil, ":0")
	srv.Limiter = NewRateLimiter(2, time.Minute)
	h := srv.Router()

	assert.Equal(t, http.StatusOK, get(t, h, "/api/v1/events").Code)
	assert.Equal(t, http.StatusOK, get(t, h, "/api/v1/events").Code)

	rec := get(t, h, "/api/v1/events")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// Unlimited routes are unaffected.
	assert.Equal(t, http.StatusOK, get(t, h, "/api/v1/status").Code)
}
