package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/carsch18/opsflow/pkg/execution"
)

// History archives finished runs to a local SQLite database so the
// execution log survives closing the editor. The engine owns workflow
// persistence; this store keeps only what the overlay produced.
type History struct {
	db *sql.DB
}

// NewHistory opens (or creates) the run archive under the given config
// directory. Database location: <configDir>/history.db
func NewHistory(configDir string) (*History, error) {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}
	return NewHistoryAtPath(filepath.Join(configDir, "history.db"))
}

// NewHistoryAtPath opens the archive at an explicit database path.
// Useful for testing.
func NewHistoryAtPath(dbPath string) (*History, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite works best with a single connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := initializeHistorySchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return &History{db: db}, nil
}

// Close closes the database connection.
func (h *History) Close() error {
	return h.db.Close()
}

// initializeHistorySchema creates the archive schema, tracking a
// migration version so future schema changes can build on it.
func initializeHistorySchema(db *sql.DB) error {
	migrationsTable := `
	CREATE TABLE IF NOT EXISTS migrations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		version INTEGER NOT NULL UNIQUE,
		applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);`

	if _, err := db.Exec(migrationsTable); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	var currentVersion int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM migrations").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to check migration version: %w", err)
	}

	if currentVersion < 1 {
		if err := applyHistoryMigration1(db); err != nil {
			return fmt.Errorf("failed to apply migration 1: %w", err)
		}
	}

	return nil
}

func applyHistoryMigration1(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	runsTable := `
	CREATE TABLE runs (
		id TEXT PRIMARY KEY,
		workflow_id TEXT NOT NULL,
		dry_run INTEGER NOT NULL DEFAULT 0,
		outcome TEXT NOT NULL,
		error TEXT,
		started_at TIMESTAMP NOT NULL,
		duration_ms INTEGER NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);`

	if _, err := tx.Exec(runsTable); err != nil {
		return fmt.Errorf("failed to create runs table: %w", err)
	}

	entriesTable := `
	CREATE TABLE run_entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		seq INTEGER NOT NULL,
		node_id TEXT,
		name TEXT NOT NULL,
		status TEXT NOT NULL,
		duration_ms INTEGER NOT NULL,
		detail TEXT
	);`

	if _, err := tx.Exec(entriesTable); err != nil {
		return fmt.Errorf("failed to create run_entries table: %w", err)
	}

	indexes := []string{
		"CREATE INDEX idx_runs_workflow_id ON runs(workflow_id, started_at DESC);",
		"CREATE INDEX idx_runs_started_at ON runs(started_at DESC);",
		"CREATE INDEX idx_run_entries_run ON run_entries(run_id, seq);",
	}
	for _, idx := range indexes {
		if _, err := tx.Exec(idx); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	if _, err := tx.Exec("INSERT INTO migrations (version) VALUES (1)"); err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}

	return tx.Commit()
}

// SaveRun archives a finished run with its log entries. Saving the
// same run id again replaces the previous archive entry wholly.
func (h *History) SaveRun(rec execution.RunRecord) error {
	if rec.RunID == "" {
		return fmt.Errorf("cannot save run without an id")
	}

	tx, err := h.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var dryRun int
	if rec.DryRun {
		dryRun = 1
	}

	runQuery := `
		INSERT INTO runs (id, workflow_id, dry_run, outcome, error, started_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			outcome = excluded.outcome,
			error = excluded.error,
			duration_ms = excluded.duration_ms
	`
	_, err = tx.Exec(runQuery,
		rec.RunID,
		rec.WorkflowID,
		dryRun,
		string(rec.Outcome),
		rec.Error,
		rec.StartedAt.UTC(),
		rec.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	if _, err := tx.Exec("DELETE FROM run_entries WHERE run_id = ?", rec.RunID); err != nil {
		return fmt.Errorf("failed to clear run entries: %w", err)
	}

	entryQuery := `
		INSERT INTO run_entries (run_id, seq, node_id, name, status, duration_ms, detail)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	for seq, entry := range rec.Entries {
		var nodeID sql.NullString
		if entry.NodeID != "" {
			nodeID.Valid = true
			nodeID.String = entry.NodeID
		}
		_, err := tx.Exec(entryQuery,
			rec.RunID,
			seq,
			nodeID,
			entry.Name,
			string(entry.Status),
			entry.Duration.Milliseconds(),
			entry.Detail,
		)
		if err != nil {
			return fmt.Errorf("failed to save run entry %d: %w", seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// ListRuns returns archived runs for a workflow, most recent first.
// Log entries are not loaded here; use LoadRun for the full record.
func (h *History) ListRuns(workflowID string, limit int) ([]execution.RunRecord, error) {
	query := `
		SELECT id, workflow_id, dry_run, outcome, error, started_at, duration_ms
		FROM runs
		WHERE workflow_id = ?
		ORDER BY started_at DESC
	`
	args := []interface{}{workflowID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := h.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	records := make([]execution.RunRecord, 0)
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}

	return records, nil
}

// LoadRun retrieves one archived run with its log entries in order.
func (h *History) LoadRun(runID string) (execution.RunRecord, error) {
	query := `
		SELECT id, workflow_id, dry_run, outcome, error, started_at, duration_ms
		FROM runs
		WHERE id = ?
	`
	row := h.db.QueryRow(query, runID)
	rec, err := scanRun(row)
	if err == sql.ErrNoRows {
		return execution.RunRecord{}, fmt.Errorf("run not found: %s", runID)
	}
	if err != nil {
		return execution.RunRecord{}, err
	}

	entryQuery := `
		SELECT node_id, name, status, duration_ms, detail
		FROM run_entries
		WHERE run_id = ?
		ORDER BY seq
	`
	rows, err := h.db.Query(entryQuery, runID)
	if err != nil {
		return execution.RunRecord{}, fmt.Errorf("failed to query run entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var nodeID sql.NullString
		var name, status, detail string
		var durationMS int64
		if err := rows.Scan(&nodeID, &name, &status, &durationMS, &detail); err != nil {
			return execution.RunRecord{}, fmt.Errorf("failed to scan run entry: %w", err)
		}
		rec.Entries = append(rec.Entries, execution.LogEntry{
			NodeID:   nodeID.String,
			Name:     name,
			Status:   execution.Status(status),
			Duration: time.Duration(durationMS) * time.Millisecond,
			Detail:   detail,
		})
	}
	if err := rows.Err(); err != nil {
		return execution.RunRecord{}, fmt.Errorf("error iterating run entries: %w", err)
	}

	return rec, nil
}

// PruneRuns keeps the most recent keep runs for a workflow and deletes
// the rest. Entry rows go with their runs via the foreign key cascade.
func (h *History) PruneRuns(workflowID string, keep int) (int, error) {
	if keep < 0 {
		return 0, fmt.Errorf("keep cannot be negative: %d", keep)
	}

	query := `
		DELETE FROM runs
		WHERE workflow_id = ?
		AND id NOT IN (
			SELECT id FROM runs
			WHERE workflow_id = ?
			ORDER BY started_at DESC
			LIMIT ?
		)
	`
	result, err := h.db.Exec(query, workflowID, workflowID, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check prune result: %w", err)
	}
	return int(deleted), nil
}

// rowScanner covers both sql.Row and sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (execution.RunRecord, error) {
	var rec execution.RunRecord
	var dryRun int
	var outcome string
	var errText sql.NullString
	var startedAt time.Time
	var durationMS int64

	err := row.Scan(&rec.RunID, &rec.WorkflowID, &dryRun, &outcome, &errText, &startedAt, &durationMS)
	if err == sql.ErrNoRows {
		return execution.RunRecord{}, err
	}
	if err != nil {
		return execution.RunRecord{}, fmt.Errorf("failed to scan run: %w", err)
	}

	rec.DryRun = dryRun != 0
	rec.Outcome = execution.Outcome(outcome)
	rec.Error = errText.String
	rec.StartedAt = startedAt
	rec.Duration = time.Duration(durationMS) * time.Millisecond
	return rec, nil
}
