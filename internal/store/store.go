package store

import (
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a run id has no row.
var ErrNotFound = errors.New("run not found")

// timeLayout is fixed-width so created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id        TEXT PRIMARY KEY,
	scenario      TEXT NOT NULL,
	config_json   TEXT,
	created_at    TEXT NOT NULL,
	finished_at   TEXT,
	summary_json  TEXT,
	halted        INTEGER NOT NULL DEFAULT 0,
	halt_reason   TEXT
);

CREATE TABLE IF NOT EXISTS step_log (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id          TEXT NOT NULL,
	step            INTEGER NOT NULL,
	global_value    REAL NOT NULL,
	local_value     REAL NOT NULL,
	strain          REAL,
	velocity        REAL,
	cum_drift       REAL,
	peak_velocity   REAL,
	recoverability  REAL,
	action          TEXT NOT NULL,
	reason          TEXT,
	environment     TEXT NOT NULL,
	rule            TEXT,
	goodness_ratio  REAL NOT NULL,
	recovery_steps  INTEGER,
	substituted     INTEGER NOT NULL DEFAULT 0,
	record_json     TEXT,
	created_at      TEXT NOT NULL,
	FOREIGN KEY (run_id) REFERENCES runs(run_id)
);

CREATE INDEX IF NOT EXISTS idx_step_log_run ON step_log(run_id, step);
`

// #endregion schema

// #region store-struct
// Store persists runs and their step logs in SQLite.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// one writer; also keeps a ":memory:" database shared across callers
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// #endregion constructor

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use by other packages (e.g. logging).
func (s *Store) DB() *sql.DB {
	return s.db
}

// #region create-run
// CreateRun opens a run row for scenario and returns it with a fresh id.
func (s *Store) CreateRun(scenario, configJSON string) (RunRecord, error) {
	rec := RunRecord{
		RunID:      uuid.New().String(),
		Scenario:   scenario,
		ConfigJSON: configJSON,
		CreatedAt:  time.Now().UTC(),
	}

	_, err := s.db.Exec(
		`INSERT INTO runs (run_id, scenario, config_json, created_at) VALUES (?, ?, ?, ?)`,
		rec.RunID, rec.Scenario, nullIfEmpty(configJSON), rec.CreatedAt.Format(timeLayout),
	)
	if err != nil {
		return RunRecord{}, fmt.Errorf("insert run: %w", err)
	}
	return rec, nil
}

// #endregion create-run

// #region finish-run
// FinishRun records the run's summary and halt state. A run finishes once.
func (s *Store) FinishRun(runID, summaryJSON string, halted bool, haltReason string) error {
	res, err := s.db.Exec(
		`UPDATE runs SET finished_at = ?, summary_json = ?, halted = ?, halt_reason = ?
		 WHERE run_id = ? AND finished_at IS NULL`,
		time.Now().UTC().Format(timeLayout), nullIfEmpty(summaryJSON), boolToInt(halted), nullIfEmpty(haltReason), runID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n == 0 {
		if _, err := s.GetRun(runID); err != nil {
			return err
		}
		return fmt.Errorf("finish run %s: already finished", runID)
	}
	return nil
}

// #endregion finish-run

// #region get-run
// GetRun retrieves a run by id.
func (s *Store) GetRun(runID string) (RunRecord, error) {
	row := s.db.QueryRow(
		`SELECT run_id, scenario, config_json, created_at, finished_at, summary_json, halted, halt_reason
		 FROM runs WHERE run_id = ?`, runID,
	)
	rec, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, fmt.Errorf("get run %s: %w", runID, ErrNotFound)
	}
	if err != nil {
		return RunRecord{}, fmt.Errorf("get run %s: %w", runID, err)
	}
	return rec, nil
}

// #endregion get-run

// #region list-runs
// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(limit int) ([]RunRecord, error) {
	rows, err := s.db.Query(
		`SELECT run_id, scenario, config_json, created_at, finished_at, summary_json, halted, halt_reason
		 FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// #endregion list-runs

// #region steps
// Steps returns a run's step log in step order.
func (s *Store) Steps(runID string) ([]StepRow, error) {
	rows, err := s.db.Query(
		`SELECT run_id, step, global_value, local_value, strain, velocity, cum_drift, peak_velocity,
		        recoverability, action, reason, environment, rule, goodness_ratio, recovery_steps,
		        substituted, record_json, created_at
		 FROM step_log WHERE run_id = ? ORDER BY step ASC, id ASC`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query steps: %w", err)
	}
	defer rows.Close()

	var out []StepRow
	for rows.Next() {
		var r StepRow
		var strain, velocity, cum, peak, rec sql.NullFloat64
		var reason, rule, recordJSON sql.NullString
		var recovery sql.NullInt64
		var substituted int
		var createdStr string

		if err := rows.Scan(&r.RunID, &r.Step, &r.Global, &r.Local, &strain, &velocity, &cum, &peak,
			&rec, &r.Action, &reason, &r.Environment, &rule, &r.GoodnessRatio, &recovery,
			&substituted, &recordJSON, &createdStr); err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}
		r.Strain = nullFloat(strain)
		r.Velocity = nullFloat(velocity)
		r.CumulativeDrift = nullFloat(cum)
		r.PeakVelocity = nullFloat(peak)
		r.Recoverability = nullFloat(rec)
		r.Reason = reason.String
		r.Rule = rule.String
		r.RecordJSON = recordJSON.String
		if recovery.Valid {
			n := int(recovery.Int64)
			r.RecoverySteps = &n
		}
		r.Substituted = substituted != 0
		r.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		out = append(out, r)
	}
	return out, rows.Err()
}

// #endregion steps

// #region helpers
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (RunRecord, error) {
	var rec RunRecord
	var configJSON, finishedStr, summaryJSON, haltReason sql.NullString
	var createdStr string
	var halted int

	if err := sc.Scan(&rec.RunID, &rec.Scenario, &configJSON, &createdStr, &finishedStr,
		&summaryJSON, &halted, &haltReason); err != nil {
		return RunRecord{}, err
	}
	rec.ConfigJSON = configJSON.String
	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
	if finishedStr.Valid {
		rec.FinishedAt, _ = time.Parse(time.RFC3339Nano, finishedStr.String)
	}
	rec.SummaryJSON = summaryJSON.String
	rec.Halted = halted != 0
	rec.HaltReason = haltReason.String
	return rec, nil
}

// nullFloat maps SQL NULL back to NaN; NaN is written as NULL.
func nullFloat(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// #endregion helpers
