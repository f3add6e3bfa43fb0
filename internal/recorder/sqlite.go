package recorder

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"PowerPosition/internal/model"
)

// SQLiteRecorder persists the run journal to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	log zerolog.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, log zerolog.Logger) (*SQLiteRecorder, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets the ops endpoint read while a run writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, log: log.With().Str("component", "recorder").Logger()}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	r.log.Info().Str("path", dbPath).Msg("SQLite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS report_runs (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id      TEXT NOT NULL,
			trigger_at  INTEGER NOT NULL,
			report_date TEXT NOT NULL,
			status      TEXT NOT NULL,
			attempts    INTEGER,
			output_path TEXT,
			error       TEXT,
			duration_ms INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_trigger ON report_runs(trigger_at)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_status ON report_runs(status)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordRun(evt *RunEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO report_runs
		(run_id, trigger_at, report_date, status, attempts, output_path, error, duration_ms)
		VALUES (?,?,?,?,?,?,?,?)`,
		evt.RunID, evt.Trigger.UTC().Unix(), evt.ReportDate, string(evt.Status),
		evt.Attempts, evt.OutputPath, evt.Error, evt.Duration.Milliseconds(),
	)
	return err
}

func (r *SQLiteRecorder) RecentRuns(limit int) ([]RunEvent, error) {
	if limit <= 0 {
		return nil, nil
	}

	rows, err := r.db.Query(`SELECT run_id, trigger_at, report_date, status, attempts, output_path, error, duration_ms
		FROM report_runs ORDER BY trigger_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunEvent
	for rows.Next() {
		var (
			evt        RunEvent
			triggerAt  int64
			status     string
			durationMs int64
		)
		if err := rows.Scan(&evt.RunID, &triggerAt, &evt.ReportDate, &status,
			&evt.Attempts, &evt.OutputPath, &evt.Error, &durationMs); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		evt.Trigger = time.Unix(triggerAt, 0).UTC()
		evt.Status = model.RunStatus(status)
		evt.Duration = time.Duration(durationMs) * time.Millisecond
		runs = append(runs, evt)
	}
	return runs, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info().Msg("Closing SQLite recorder")
	return r.db.Close()
}
