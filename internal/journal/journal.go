// Package journal provides a SQLite audit trail for simulation runs:
// inference decisions and periodic stats samples. It is write-only from
// the simulation's point of view; nothing in the sim reads it back.
package journal

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/sparkfield/sparkfield/internal/inference"
	"github.com/sparkfield/sparkfield/internal/sim"
)

// Journal wraps a SQLite connection for run observability.
type Journal struct {
	conn  *sqlx.DB
	runID string
}

// Open opens or creates the journal database and starts a new run row.
func Open(path string, seed int64) (*Journal, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	j := &Journal{conn: conn, runID: uuid.NewString()}
	if err := j.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate journal: %w", err)
	}
	if _, err := conn.Exec(
		`INSERT INTO runs (id, started_at, seed) VALUES (?, ?, ?)`,
		j.runID, time.Now().UTC().Format(time.RFC3339), seed,
	); err != nil {
		conn.Close()
		return nil, fmt.Errorf("record run: %w", err)
	}

	slog.Info("journal opened", "path", path, "run", j.runID)
	return j, nil
}

// RunID returns this run's identifier.
func (j *Journal) RunID() string { return j.runID }

// Close closes the database connection.
func (j *Journal) Close() error {
	return j.conn.Close()
}

func (j *Journal) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at TEXT NOT NULL,
		seed INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS inferences (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		entity_id INTEGER NOT NULL,
		sim_time REAL NOT NULL,
		source TEXT NOT NULL,
		success INTEGER NOT NULL,
		reasoning TEXT NOT NULL,
		changes_json TEXT NOT NULL,
		error TEXT
	);

	CREATE TABLE IF NOT EXISTS stats (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		tick INTEGER NOT NULL,
		sim_time REAL NOT NULL,
		population INTEGER NOT NULL,
		faded INTEGER NOT NULL,
		mean_food_ratio REAL NOT NULL,
		mean_energy_ratio REAL NOT NULL,
		world_food REAL NOT NULL,
		world_energy REAL NOT NULL,
		territories INTEGER NOT NULL,
		contests INTEGER NOT NULL
	);
	`
	_, err := j.conn.Exec(schema)
	return err
}

// RecordInference appends one inference outcome.
func (j *Journal) RecordInference(entityID uint64, d *inference.Decision, callErr error, simTime float64) {
	source, reasoning := "", ""
	changes := "{}"
	success := 0
	if d != nil {
		source = d.Source
		reasoning = d.Reasoning
		success = 1
		if b, err := json.Marshal(d.Changes); err == nil {
			changes = string(b)
		}
	}
	errText := ""
	if callErr != nil {
		errText = callErr.Error()
	}

	_, err := j.conn.Exec(
		`INSERT INTO inferences (run_id, entity_id, sim_time, source, success, reasoning, changes_json, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		j.runID, entityID, simTime, source, success, reasoning, changes, errText,
	)
	if err != nil {
		slog.Warn("journal inference write failed", "err", err)
	}
}

// RecordStats appends one stats sample.
func (j *Journal) RecordStats(row sim.StatsRow) {
	_, err := j.conn.Exec(
		`INSERT INTO stats (run_id, tick, sim_time, population, faded, mean_food_ratio,
		 mean_energy_ratio, world_food, world_energy, territories, contests)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		j.runID, row.Tick, row.Time, row.Population, row.Faded, row.MeanFoodRatio,
		row.MeanEnergyRatio, row.WorldFood, row.WorldEnergy, row.Territories, row.Contests,
	)
	if err != nil {
		slog.Warn("journal stats write failed", "err", err)
	}
}
