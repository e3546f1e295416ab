package api

import (
	"bytes"
	"encoding/json"
	"image/png"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/epicity/internal/city"
	"github.com/talgya/epicity/internal/engine"
	"github.com/talgya/epicity/internal/persistence"
)

func init() {
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func seededServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	db, err := persistence.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := city.DefaultConfig("Alpha")
	cfg.Width, cfg.Height = 20, 20
	cfg.Population = 20
	cfg.Proximity = 1.5
	c, err := city.New(cfg, rand.New(rand.NewSource(5)), nil)
	require.NoError(t, err)
	sim, err := engine.NewSimulation([]*city.City{c})
	require.NoError(t, err)
	for tick := 0; tick < 6; tick++ {
		require.NoError(t, sim.TickAll(tick))
	}

	runID := persistence.NewRunID()
	require.NoError(t, db.SaveRun(persistence.Run{ID: runID, Seed: 5, Timesteps: 6, StartedAt: time.Now().UTC()}))
	require.NoError(t, db.SaveSimulation(runID, sim))

	srv := httptest.NewServer((&Server{DB: db, CurveLimit: 2}).Handler())
	t.Cleanup(srv.Close)
	return srv, runID
}

func getJSON(t *testing.T, url string, v any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp.StatusCode
}

func TestServer_RunsAndCities(t *testing.T) {
	srv, runID := seededServer(t)

	var runs []persistence.Run
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/v1/runs", &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, runID, runs[0].ID)

	var cities []persistence.CityRecord
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/v1/runs/"+runID+"/cities", &cities))
	require.Len(t, cities, 1)
	assert.Equal(t, "Alpha", cities[0].Name)

	assert.Equal(t, http.StatusNotFound, getJSON(t, srv.URL+"/api/v1/runs/missing/cities", &cities))
}

func TestServer_States(t *testing.T) {
	srv, runID := seededServer(t)

	var rows []persistence.StateRow
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/v1/runs/"+runID+"/cities/Alpha/states", &rows))
	require.Len(t, rows, 6)
	for i, row := range rows {
		assert.Equal(t, i, row.Tick)
		assert.Equal(t, 20, row.Total)
	}
	assert.Equal(t, http.StatusNotFound, getJSON(t, srv.URL+"/api/v1/runs/"+runID+"/cities/Nowhere/states", &rows))
}

func TestServer_CurveIsRateLimited(t *testing.T) {
	srv, runID := seededServer(t)
	url := srv.URL + "/api/v1/runs/" + runID + "/cities/Alpha/curve.png"

	for i := 0; i < 2; i++ {
		resp, err := http.Get(url)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
		_, err = png.Decode(resp.Body)
		resp.Body.Close()
		require.NoError(t, err)
	}

	resp, err := http.Get(url)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
}

func TestServer_RejectsPost(t *testing.T) {
	srv, _ := seededServer(t)
	resp, err := http.Post(srv.URL+"/api/v1/runs", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestRateLimiter_WindowResets(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"))
	assert.Equal(t, 61, rl.RetryAfter("a"))

	now = now.Add(time.Minute)
	assert.True(t, rl.Allow("a"))
}

func TestClientAddr(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.1:5555"
	assert.Equal(t, "10.0.0.1", clientAddr(r))

	r.Header.Set("X-Forwarded-For", "192.168.1.9, 10.0.0.1")
	assert.Equal(t, "192.168.1.9", clientAddr(r))
}

type brokenWriter struct {
	header http.Header
}

func (w *brokenWriter) Header() http.Header { return w.header }
func (w *brokenWriter) WriteHeader(int) {}
func (w *brokenWriter) Write([]byte) (int, error) { return 0, io.ErrClosedPipe }

func TestWriteJSON_LogsWriteFailure(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })

	w := &brokenWriter{header: http.Header{}}
	writeJSON(w, map[string]int{"n": 1})

	assert.Equal(t, "application/json", w.header.Get("Content-Type"))
	assert.Contains(t, buf.String(), "response write failed")
	assert.Contains(t, buf.String(), io.ErrClosedPipe.Error())
}
