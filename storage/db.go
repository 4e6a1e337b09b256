// Package storage provides SQLite-based storage for batch sweep results.
package storage

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"gopkg.in/yaml.v3"
	_ "modernc.org/sqlite"

	"github.com/pthm-cable/urbanmood/batch"
	"github.com/pthm-cable/urbanmood/config"
)

// Sweep describes one stored parameter sweep.
type Sweep struct {
	ID         string `db:"id"`
	CreatedAt  int64  `db:"created_at"` // unix seconds
	Runs       int    `db:"runs"`
	ConfigYAML string `db:"config_yaml"`
}

// DB wraps a SQLite connection for sweep storage.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
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
	schema := `
	CREATE TABLE IF NOT EXISTS sweeps (
		id TEXT PRIMARY KEY,
		created_at INTEGER NOT NULL,
		runs INTEGER NOT NULL,
		config_yaml TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS results (
		sweep_id TEXT NOT NULL REFERENCES sweeps(id),
		run_id INTEGER NOT NULL,
		iteration INTEGER NOT NULL,
		seed INTEGER NOT NULL,
		step INTEGER NOT NULL,
		green_ratio REAL NOT NULL,
		stress_ratio REAL NOT NULL,
		width INTEGER NOT NULL,
		height INTEGER NOT NULL,
		num_agents INTEGER NOT NULL,
		average_mood REAL NOT NULL,
		mood_std REAL NOT NULL,
		num_isolated INTEGER NOT NULL,
		PRIMARY KEY (sweep_id, run_id, step)
	);

	CREATE INDEX IF NOT EXISTS idx_results_ratios ON results(green_ratio, stress_ratio);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// SaveSweep records a sweep and the config it ran with.
func (db *DB) SaveSweep(id string, runs int, cfg *config.Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	_, err = db.conn.Exec(
		"INSERT OR REPLACE INTO sweeps (id, created_at, runs, config_yaml) VALUES (?, ?, ?, ?)",
		id, time.Now().Unix(), runs, string(data),
	)
	return err
}

// Sweep returns a stored sweep.
func (db *DB) Sweep(id string) (Sweep, error) {
	var s Sweep
	err := db.conn.Get(&s, "SELECT id, created_at, runs, config_yaml FROM sweeps WHERE id = ?", id)
	return s, err
}

// SaveResults writes result rows in one transaction.
func (db *DB) SaveResults(results []batch.RunResult) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareNamed(`INSERT OR REPLACE INTO results
		(sweep_id, run_id, iteration, seed, step, green_ratio, stress_ratio,
		 width, height, num_agents, average_mood, mood_std, num_isolated)
		VALUES (:sweep_id, :run_id, :iteration, :seed, :step, :green_ratio, :stress_ratio,
		 :width, :height, :num_agents, :average_mood, :mood_std, :num_isolated)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range results {
		if _, err := stmt.Exec(r); err != nil {
			return fmt.Errorf("insert run %d step %d: %w", r.RunID, r.Step, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	slog.Info("results saved", "rows", len(results))
	return nil
}

// Results returns the rows of a sweep ordered by run and step.
func (db *DB) Results(sweepID string) ([]batch.RunResult, error) {
	var results []batch.RunResult
	err := db.conn.Select(&results,
		`SELECT sweep_id, run_id, iteration, seed, step, green_ratio, stress_ratio,
		        width, height, num_agents, average_mood, mood_std, num_isolated
		 FROM results WHERE sweep_id = ? ORDER BY run_id, step`,
		sweepID,
	)
	return results, err
}

// RatioSummary is the mean final state of the runs sharing one ratio pair.
type RatioSummary struct {
	GreenRatio  float64 `db:"green_ratio"`
	StressRatio float64 `db:"stress_ratio"`
	Runs        int     `db:"runs"`
	AverageMood float64 `db:"average_mood"`
	NumIsolated float64 `db:"num_isolated"`
}

// Summary aggregates the last recorded step of every run by ratio pair.
func (db *DB) Summary(sweepID string) ([]RatioSummary, error) {
	var out []RatioSummary
	err := db.conn.Select(&out,
		`SELECT r.green_ratio, r.stress_ratio, COUNT(*) AS runs,
		        AVG(r.average_mood) AS average_mood, AVG(r.num_isolated) AS num_isolated
		 FROM results r
		 JOIN (SELECT run_id, MAX(step) AS step FROM results WHERE sweep_id = ? GROUP BY run_id) fin
		   ON r.run_id = fin.run_id AND r.step = fin.step
		 WHERE r.sweep_id = ?
		 GROUP BY r.green_ratio, r.stress_ratio
		 ORDER BY r.green_ratio, r.stress_ratio`,
		sweepID, sweepID,
	)
	return out, err
}
