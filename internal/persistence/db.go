// Package persistence stores run summaries and per-timestep city states.
// SQLite is the default backend; Postgres is available for shared sweeps.
package persistence

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/talgya/epicity/internal/city"
	"github.com/talgya/epicity/internal/engine"
)

// DB wraps a database connection for run storage.
type DB struct {
	conn   *sqlx.DB
	driver string
}

// Run is one simulation run.
type Run struct {
	ID        string    `db:"id" json:"id"`
	Seed      int64     `db:"seed" json:"seed"`
	Timesteps int       `db:"timesteps" json:"timesteps"`
	StartedAt time.Time `db:"started_at" json:"started_at"`
}

// CityRecord is the stored summary of one city in a run.
type CityRecord struct {
	RunID          string  `db:"run_id" json:"run_id"`
	Name           string  `db:"name" json:"name"`
	Width          float64 `db:"width" json:"width"`
	Height         float64 `db:"height" json:"height"`
	Population     int     `db:"population" json:"population"`
	Proximity      float64 `db:"proximity" json:"proximity"`
	RecoveryRate   float64 `db:"recovery_rate" json:"recovery_rate"`
	HealthPolicy   string  `db:"health_policy" json:"health_policy"`
	MovementPolicy string  `db:"movement_policy" json:"movement_policy"`
	ConvergedAt    *int    `db:"converged_at" json:"converged_at,omitempty"`
	PeakInfected   int     `db:"peak_infected" json:"peak_infected"`
	PeakTick       int     `db:"peak_tick" json:"peak_tick"`
	TotalInfected  int     `db:"total_infected" json:"total_infected"`
}

// StateRow is one city's counts at one timestep.
type StateRow struct {
	Tick int     `db:"tick" json:"tick"`
	Beta float64 `db:"beta" json:"beta"`
	city.States
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// Open opens or creates a database. driver is "sqlite" or "postgres"; for
// sqlite, dsn is a file path or ":memory:".
func Open(driver, dsn string) (*DB, error) {
	if driver == "" {
		driver = "sqlite"
	}

	source := dsn
	if driver == "sqlite" && dsn != ":memory:" && !strings.Contains(dsn, "?") {
		source = dsn + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	conn, err := sqlx.Open(driver, source)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if driver == "sqlite" {
		// One connection keeps ":memory:" databases shared and serializes writers.
		conn.SetMaxOpenConns(1)
	}

	db := &DB{conn: conn, driver: driver}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			seed BIGINT NOT NULL,
			timesteps INTEGER NOT NULL,
			started_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS cities (
			run_id TEXT NOT NULL,
			name TEXT NOT NULL,
			width DOUBLE PRECISION NOT NULL,
			height DOUBLE PRECISION NOT NULL,
			population INTEGER NOT NULL,
			proximity DOUBLE PRECISION NOT NULL,
			recovery_rate DOUBLE PRECISION NOT NULL,
			health_policy TEXT NOT NULL,
			movement_policy TEXT NOT NULL,
			converged_at INTEGER,
			peak_infected INTEGER NOT NULL,
			peak_tick INTEGER NOT NULL,
			total_infected INTEGER NOT NULL,
			PRIMARY KEY (run_id, name)
		)`,
		`CREATE TABLE IF NOT EXISTS city_states (
			run_id TEXT NOT NULL,
			city TEXT NOT NULL,
			tick INTEGER NOT NULL,
			susceptible INTEGER NOT NULL,
			infected INTEGER NOT NULL,
			removed INTEGER NOT NULL,
			quarantined INTEGER NOT NULL,
			total INTEGER NOT NULL,
			total_ir INTEGER NOT NULL,
			beta DOUBLE PRECISION NOT NULL,
			PRIMARY KEY (run_id, city, tick)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_city_states_run ON city_states(run_id, city)`,
	}
	for _, stmt := range statements {
		if _, err := db.conn.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// SaveRun writes the run row.
func (db *DB) SaveRun(r Run) error {
	_, err := db.conn.NamedExec(
		`INSERT INTO runs (id, seed, timesteps, started_at) VALUES (:id, :seed, :timesteps, :started_at)`, r)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", r.ID, err)
	}
	return nil
}

// SaveSimulation writes every city summary and state series of a finished run
// (full replace for the run).
func (db *DB) SaveSimulation(runID string, sim *engine.Simulation) error {
	slog.Info("saving run", "run", runID, "cities", len(sim.Cities))

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(tx.Rebind("DELETE FROM city_states WHERE run_id = ?"), runID); err != nil {
		return err
	}
	if _, err := tx.Exec(tx.Rebind("DELETE FROM cities WHERE run_id = ?"), runID); err != nil {
		return err
	}

	for i, c := range sim.Cities {
		s := sim.Series[i]
		p := c.Policy()
		rec := CityRecord{
			RunID:          runID,
			Name:           c.Name,
			Width:          c.Width,
			Height:         c.Height,
			Population:     c.N,
			Proximity:      c.Proximity,
			RecoveryRate:   c.RecoveryRate,
			HealthPolicy:   p.Health.String(),
			MovementPolicy: p.Movement.Label,
			ConvergedAt:    s.ConvergedAt,
			PeakInfected:   s.PeakInfected,
			PeakTick:       s.PeakTick,
			TotalInfected:  s.TotalInfected,
		}
		if _, err := tx.NamedExec(`INSERT INTO cities
			(run_id, name, width, height, population, proximity, recovery_rate,
			 health_policy, movement_policy, converged_at, peak_infected, peak_tick, total_infected)
			VALUES (:run_id, :name, :width, :height, :population, :proximity, :recovery_rate,
			 :health_policy, :movement_policy, :converged_at, :peak_infected, :peak_tick, :total_infected)`, rec); err != nil {
			return fmt.Errorf("insert city %s: %w", c.Name, err)
		}

		stmt, err := tx.Preparex(tx.Rebind(`INSERT INTO city_states
			(run_id, city, tick, susceptible, infected, removed, quarantined, total, total_ir, beta)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`))
		if err != nil {
			return err
		}
		for k, st := range s.States {
			if _, err := stmt.Exec(runID, c.Name, s.Ticks[k],
				st.Susceptible, st.Infected, st.Removed, st.Quarantined, st.Total, st.TotalIR,
				s.Beta[k]); err != nil {
				stmt.Close()
				return fmt.Errorf("insert state %s/%d: %w", c.Name, s.Ticks[k], err)
			}
		}
		stmt.Close()
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	slog.Info("run saved", "run", runID)
	return nil
}

// Cities returns the stored city summaries of a run.
func (db *DB) Cities(runID string) ([]CityRecord, error) {
	var recs []CityRecord
	err := db.conn.Select(&recs, db.conn.Rebind(`SELECT run_id, name, width, height, population,
		proximity, recovery_rate, health_policy, movement_policy, converged_at,
		peak_infected, peak_tick, total_infected
		FROM cities WHERE run_id = ? ORDER BY name`), runID)
	return recs, err
}

// States returns a city's stored series in tick order.
func (db *DB) States(runID, cityName string) ([]StateRow, error) {
	var rows []StateRow
	err := db.conn.Select(&rows, db.conn.Rebind(`SELECT tick, beta, susceptible, infected, removed,
		quarantined, total, total_ir
		FROM city_states WHERE run_id = ? AND city = ? ORDER BY tick`), runID, cityName)
	return rows, err
}

// Runs returns every stored run, newest first.
func (db *DB) Runs() ([]Run, error) {
	var runs []Run
	err := db.conn.Select(&runs, "SELECT id, seed, timesteps, started_at FROM runs ORDER BY started_at DESC")
	return runs, err
}
