package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rohrwerk/callaudit/pkg/logger"
)

// RunRecord is one pipeline run in the index.
type RunRecord struct {
	RunID       string
	StartedAt   time.Time
	Overall     string
	CallCount   int
	Criticals   int
	Warnings    int
	SummaryPath string
}

// CallRecord is one audited call within a run.
type CallRecord struct {
	RunID          string
	CallID         string
	Verdict        string
	Criticals      int
	Warnings       int
	ReportPath     string
	AudioAvailable bool
	Correlated     bool
}

// RunStorage handles storage of run-index records
type RunStorage struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewRunStorage creates a new SQLite run-index storage
func NewRunStorage(db *sql.DB, logger *logger.Logger) (*RunStorage, error) {
	storage := &RunStorage{
		db:     db,
		logger: logger.Named("sqlite-runs"),
	}
	if err := storage.initDB(); err != nil {
		return nil, fmt.Errorf("failed to initialize run storage: %w", err)
	}
	return storage, nil
}

// initDB initializes the database tables
func (s *RunStorage) initDB() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			started_at TIMESTAMP NOT NULL,
			overall TEXT NOT NULL,
			call_count INTEGER NOT NULL,
			criticals INTEGER NOT NULL,
			warnings INTEGER NOT NULL,
			summary_path TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create runs table: %w", err)
	}

	_, err = s.db.Exec(`
		CREATE TABLE IF NOT EXISTS run_calls (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			call_id TEXT NOT NULL,
			verdict TEXT NOT NULL,
			criticals INTEGER NOT NULL,
			warnings INTEGER NOT NULL,
			report_path TEXT NOT NULL,
			audio_available INTEGER NOT NULL DEFAULT 0,
			correlated INTEGER NOT NULL DEFAULT 0,
			FOREIGN KEY (run_id) REFERENCES runs(run_id)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create run_calls table: %w", err)
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_run_calls_run_id ON run_calls(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_run_calls_call_id ON run_calls(call_id)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`,
	}
	for _, idx := range indexes {
		if _, err := s.db.Exec(idx); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}

// StoreRun records a completed run and its per-call results.
func (s *RunStorage) StoreRun(run *RunRecord, calls []CallRecord) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT OR REPLACE INTO runs (run_id, started_at, overall, call_count, criticals, warnings, summary_path)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.StartedAt.UTC(), run.Overall, run.CallCount, run.Criticals, run.Warnings, run.SummaryPath,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	for _, c := range calls {
		_, err = tx.Exec(
			`INSERT INTO run_calls (run_id, call_id, verdict, criticals, warnings, report_path, audio_available, correlated)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			c.RunID, c.CallID, c.Verdict, c.Criticals, c.Warnings, c.ReportPath, boolToInt(c.AudioAvailable), boolToInt(c.Correlated),
		)
		if err != nil {
			return fmt.Errorf("failed to insert run call: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}

	s.logger.Debug("Stored run",
		logger.String("run_id", run.RunID),
		logger.Int("calls", len(calls)))
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (s *RunStorage) ListRuns(limit int) ([]*RunRecord, error) {
	rows, err := s.db.Query(
		`SELECT run_id, started_at, overall, call_count, criticals, warnings, summary_path
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*RunRecord
	for rows.Next() {
		var r RunRecord
		if err := rows.Scan(&r.RunID, &r.StartedAt, &r.Overall, &r.CallCount, &r.Criticals, &r.Warnings, &r.SummaryPath); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, &r)
	}
	return runs, rows.Err()
}

// GetRunCalls returns the per-call results for a run.
func (s *RunStorage) GetRunCalls(runID string) ([]*CallRecord, error) {
	rows, err := s.db.Query(
		`SELECT run_id, call_id, verdict, criticals, warnings, report_path, audio_available, correlated
		 FROM run_calls WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query run calls: %w", err)
	}
	defer rows.Close()

	var calls []*CallRecord
	for rows.Next() {
		var c CallRecord
		var audio, corr int
		if err := rows.Scan(&c.RunID, &c.CallID, &c.Verdict, &c.Criticals, &c.Warnings, &c.ReportPath, &audio, &corr); err != nil {
			return nil, fmt.Errorf("failed to scan run call: %w", err)
		}
		c.AudioAvailable = audio != 0
		c.Correlated = corr != 0
		calls = append(calls, &c)
	}
	return calls, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
