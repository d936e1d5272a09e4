package store

import (
	"context"
	"time"

	"github.com/jepsonlabs/immich-monitor/pkg/models"
)

// UploadStats holds raw upload aggregates read from the Immich database
type UploadStats struct {
	TotalAssets int64
	Last1h      int64
	Last24h     int64
	Last7d      int64
	Last30d     int64
	LastUpload  *time.Time
}

// UserCounts holds raw user aggregates read from the Immich database
type UserCounts struct {
	Total  int64
	Admins int64
}

// ImmichStore reads aggregate statistics from the Immich database.
// All access is read-only.
type ImmichStore interface {
	// UploadStats returns asset counts over the standard trailing windows,
	// excluding soft-deleted assets.
	UploadStats(ctx context.Context) (*UploadStats, error)

	// ActiveUploaders returns the number of distinct users who uploaded
	// at least one asset within the window.
	ActiveUploaders(ctx context.Context, window time.Duration) (int64, error)

	// UserCounts returns total and admin user counts.
	UserCounts(ctx context.Context) (*UserCounts, error)

	// HealthCheck verifies database connectivity.
	HealthCheck(ctx context.Context) error

	// Close releases the connection pool.
	Close() error
}

// SnapshotStore persists combined metric samples for the history endpoint
type SnapshotStore interface {
	// SaveSnapshot persists one sample.
	SaveSnapshot(ctx context.Context, snap *models.Snapshot) error

	// RecentSnapshots returns up to limit samples, newest first.
	RecentSnapshots(ctx context.Context, limit int) ([]*models.Snapshot, error)

	// PruneSnapshots deletes samples captured before cutoff and
	// returns the number removed.
	PruneSnapshots(ctx context.Context, cutoff time.Time) (int64, error)

	// Close releases the store.
	Close() error
}

// Config holds database connection configuration
type Config struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}
