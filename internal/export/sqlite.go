package export

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/AggarwalShourya/Smart-Provider-Credentialing-Analytics-Platform/internal/domain"
)

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore creates a new SQLite export store.
// It creates the database file and schema if they don't exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}, nil
}

func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS export_runs (
		id TEXT PRIMARY KEY,
		snapshot_id TEXT NOT NULL,
		report TEXT NOT NULL,
		row_count INTEGER NOT NULL DEFAULT 0,
		rows_json TEXT NOT NULL DEFAULT '[]',
		groups_json TEXT NOT NULL DEFAULT '[]',
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_export_runs_snapshot ON export_runs(snapshot_id);
	CREATE INDEX IF NOT EXISTS idx_export_runs_created_at ON export_runs(created_at);
	`

	_, err := db.Exec(schema)
	return err
}

// Save stores a new run.
func (s *SQLiteStore) Save(ctx context.Context, run *Run) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	if len(run.Rows) > 0 && len(run.Groups) > 0 {
		return fmt.Errorf("export run carries both rows and groups")
	}
	if run.Rows == nil {
		run.Rows = []domain.AugmentedRecord{}
	}
	run.RowCount = len(run.Rows) + len(run.Groups)

	rows, err := json.Marshal(run.Rows)
	if err != nil {
		return fmt.Errorf("failed to encode rows: %w", err)
	}
	groups := []byte("[]")
	if len(run.Groups) > 0 {
		if groups, err = json.Marshal(run.Groups); err != nil {
			return fmt.Errorf("failed to encode groups: %w", err)
		}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO export_runs (id, snapshot_id, report, row_count, rows_json, groups_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.SnapshotID,
		run.Report,
		run.RowCount,
		string(rows),
		string(groups),
		run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert: %w", err)
	}
	return nil
}

// Get returns a run with its rows.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, snapshot_id, report, row_count, created_at, rows_json, groups_json
		FROM export_runs
		WHERE id = ?
	`, id)

	run := &Run{}
	var rows, groups string
	err := row.Scan(&run.ID, &run.SnapshotID, &run.Report, &run.RowCount, &run.CreatedAt, &rows, &groups)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("export run %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan: %w", err)
	}

	if err := json.Unmarshal([]byte(rows), &run.Rows); err != nil {
		return nil, fmt.Errorf("failed to decode rows: %w", err)
	}
	if err := json.Unmarshal([]byte(groups), &run.Groups); err != nil {
		return nil, fmt.Errorf("failed to decode groups: %w", err)
	}
	if len(run.Groups) == 0 {
		run.Groups = nil
	}
	return run, nil
}

// List returns run summaries, newest first.
func (s *SQLiteStore) List(ctx context.Context, limit, offset int) ([]*Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, snapshot_id, report, row_count, created_at
		FROM export_runs
		ORDER BY created_at DESC, id
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	result := []*Run{}
	for rows.Next() {
		run := &Run{}
		if err := rows.Scan(&run.ID, &run.SnapshotID, &run.Report, &run.RowCount, &run.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, run)
	}
	return result, rows.Err()
}

// Count returns the total number of runs.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM export_runs").Scan(&count)
	return count, err
}

// Delete removes a run by ID.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM export_runs WHERE id = ?", id)
	return err
}

// ExportJSON writes one run as JSON.
func (s *SQLiteStore) ExportJSON(ctx context.Context, id string, writer io.Writer) error {
	run, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	doc := &RunExport{
		Version:    "1.0",
		ExportedAt: time.Now().UTC(),
		Run:        run,
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(doc)
}

// ExportCSV writes the rows of one run as CSV.
func (s *SQLiteStore) ExportCSV(ctx context.Context, id string, writer io.Writer) error {
	run, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	return WriteCSV(writer, run.Data())
}

// Close closes the store and releases resources.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
