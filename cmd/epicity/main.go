// Command epicity runs the standard set of city epidemic scenarios side by
// side, stores the trajectories, and renders their curves.
//
// Usage: epicity [timesteps]
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/talgya/epicity/internal/api"
	"github.com/talgya/epicity/internal/city"
	"github.com/talgya/epicity/internal/engine"
	"github.com/talgya/epicity/internal/entropy"
	"github.com/talgya/epicity/internal/persistence"
	"github.com/talgya/epicity/internal/policy"
	"github.com/talgya/epicity/internal/report"
)

const lockdownAt = 25

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Run Config ────────────────────────────────────────────────────
	run := engine.DefaultRunConfig()
	if v := os.Getenv("EPICITY_TIMESTEPS"); v != "" {
		run.Timesteps = mustInt("EPICITY_TIMESTEPS", v)
	}
	if len(os.Args) > 1 {
		run.Timesteps = mustInt("timesteps", os.Args[1])
	}
	if v := os.Getenv("EPICITY_SEED"); v != "" {
		s, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			slog.Error("invalid EPICITY_SEED", "value", v, "error", err)
			os.Exit(1)
		}
		run.Seed = s
	}
	run.Seed = entropy.ResolveSeed(ctx, entropy.NewClient(os.Getenv("RANDOM_ORG_API_KEY")), run.Seed)

	dbDriver := envOr("EPICITY_DB_DRIVER", "sqlite")
	dbPath := envOr("EPICITY_DB", "data/epicity.db")
	outDir := envOr("EPICITY_OUT", "out")

	slog.Info("epicity starting", "timesteps", run.Timesteps, "seed", run.Seed)

	// ── Database ──────────────────────────────────────────────────────
	if dbDriver == "sqlite" && dbPath != ":memory:" {
		os.MkdirAll(filepath.Dir(dbPath), 0755)
	}
	db, err := persistence.Open(dbDriver, dbPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "driver", dbDriver, "path", dbPath)

	// ── Cities ────────────────────────────────────────────────────────
	scenarios, err := city.StandardScenarios(run.Timesteps, lockdownAt)
	if err != nil {
		slog.Error("failed to build scenarios", "error", err)
		os.Exit(1)
	}

	rng := entropy.NewRand(run.Seed)
	var cities []*city.City
	for _, sc := range scenarios {
		c, err := sc.Build(rng, logger)
		if err != nil {
			slog.Error("failed to build city", "city", sc.Config.Name, "error", err)
			os.Exit(1)
		}
		slog.Info("city ready",
			"city", c.Name,
			"agents", c.N,
			"homes", len(c.Locations[policy.ModeHome]),
			"health", c.Policy().Health,
			"movement", c.Policy().Movement.Label,
		)
		cities = append(cities, c)
	}

	sim, err := engine.NewSimulation(cities)
	if err != nil {
		slog.Error("failed to seed infections", "error", err)
		os.Exit(1)
	}

	// ── Simulation ────────────────────────────────────────────────────
	runID := persistence.NewRunID()
	if err := db.SaveRun(persistence.Run{
		ID:        runID,
		Seed:      run.Seed,
		Timesteps: run.Timesteps,
		StartedAt: time.Now().UTC(),
	}); err != nil {
		slog.Error("failed to save run", "error", err)
		os.Exit(1)
	}

	eng := engine.NewEngine(run.Timesteps)
	sim.Attach(eng)
	finished := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			slog.Info("received signal, stopping")
			eng.Stop()
		case <-finished:
		}
	}()

	runErr := eng.Run()
	close(finished)
	if runErr != nil {
		slog.Error("simulation aborted", "error", runErr)
	}

	// ── Results ───────────────────────────────────────────────────────
	if err := db.SaveSimulation(runID, sim); err != nil {
		slog.Error("failed to save simulation", "error", err)
		os.Exit(1)
	}

	for _, s := range sim.Series {
		path, err := report.SaveCurves(outDir, s)
		if err != nil {
			slog.Warn("curve not rendered", "city", s.Name, "error", err)
			continue
		}
		slog.Info("curve rendered", "city", s.Name, "path", path)
	}

	for _, c := range cities {
		c.PrintStates(os.Stdout)
	}
	report.WriteSummary(os.Stdout, sim.Series)

	slog.Info("epicity finished", "run", runID, "last_tick", sim.LastTick)
	if runErr != nil {
		os.Exit(1)
	}

	// ── HTTP API ──────────────────────────────────────────────────────
	if v := os.Getenv("EPICITY_API_PORT"); v != "" && ctx.Err() == nil {
		port, err := strconv.Atoi(v)
		if err != nil {
			slog.Error("invalid EPICITY_API_PORT", "value", v, "error", err)
			os.Exit(1)
		}
		srv := &api.Server{DB: db, Port: port}
		if err := srv.Serve(ctx); err != nil {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func mustInt(name, v string) int {
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		slog.Error("invalid timestep count", "source", name, "value", v)
		os.Exit(1)
	}
	return n
}
