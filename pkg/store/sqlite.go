package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/jepsonlabs/immich-monitor/pkg/models"
)

// SQLiteSnapshotStore implements SnapshotStore using a local SQLite file
type SQLiteSnapshotStore struct {
	db *sql.DB
}

// NewSQLiteSnapshotStore opens (or creates) the snapshot database
func NewSQLiteSnapshotStore(path string) (*SQLiteSnapshotStore, error) {
	if path == "" {
		return nil, fmt.Errorf("SQLite path is required")
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite handles one writer at a time
	db.SetMaxOpenConns(1)

	store := &SQLiteSnapshotStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteSnapshotStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS snapshots (
		id TEXT PRIMARY KEY,
		captured_at TIMESTAMP NOT NULL,
		metrics TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_snapshots_captured_at ON snapshots(captured_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveSnapshot persists one sample
func (s *SQLiteSnapshotStore) SaveSnapshot(ctx context.Context, snap *models.Snapshot) error {
	metricsJSON, err := json.Marshal(snap.Metrics)
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO snapshots (id, captured_at, metrics) VALUES (?, ?, ?)`,
		snap.ID, snap.CapturedAt.UTC(), string(metricsJSON))
	if err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}

	return nil
}

// RecentSnapshots returns up to limit samples, newest first
func (s *SQLiteSnapshotStore) RecentSnapshots(ctx context.Context, limit int) ([]*models.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, captured_at, metrics FROM snapshots ORDER BY captured_at DESC LIMIT ?`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []*models.Snapshot
	for rows.Next() {
		var snap models.Snapshot
		var metricsJSON string
		if err := rows.Scan(&snap.ID, &snap.CapturedAt, &metricsJSON); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		if err := json.Unmarshal([]byte(metricsJSON), &snap.Metrics); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metrics: %w", err)
		}
		snapshots = append(snapshots, &snap)
	}

	return snapshots, rows.Err()
}

// PruneSnapshots deletes samples captured before cutoff
func (s *SQLiteSnapshotStore) PruneSnapshots(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM snapshots WHERE captured_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune snapshots: %w", err)
	}

	return result.RowsAffected()
}

// Close releases the database
func (s *SQLiteSnapshotStore) Close() error {
	return s.db.Close()
}
