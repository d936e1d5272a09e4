package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// PostgresImmichStore implements ImmichStore against the Immich database
type PostgresImmichStore struct {
	db *sql.DB
}

// NewPostgresImmichStore opens a pooled, read-only view of the Immich database
func NewPostgresImmichStore(config Config) (*PostgresImmichStore, error) {
	if config.DSN == "" {
		return nil, fmt.Errorf("PostgreSQL DSN is required")
	}

	db, err := sql.Open("postgres", config.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if config.MaxOpenConns > 0 {
		db.SetMaxOpenConns(config.MaxOpenConns)
	} else {
		db.SetMaxOpenConns(10)
	}

	if config.MaxIdleConns > 0 {
		db.SetMaxIdleConns(config.MaxIdleConns)
	} else {
		db.SetMaxIdleConns(2)
	}

	if config.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(config.ConnMaxLifetime)
	} else {
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	if config.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(config.ConnMaxIdleTime)
	} else {
		db.SetConnMaxIdleTime(1 * time.Minute)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresImmichStore{db: db}, nil
}

// UploadStats returns asset counts over the standard trailing windows
func (s *PostgresImmichStore) UploadStats(ctx context.Context) (*UploadStats, error) {
	query := `
		SELECT
			COUNT(*) AS total_assets,
			COUNT(CASE WHEN "createdAt" > NOW() - INTERVAL '1 hour' THEN 1 END) AS last_1h,
			COUNT(CASE WHEN "createdAt" > NOW() - INTERVAL '24 hours' THEN 1 END) AS last_24h,
			COUNT(CASE WHEN "createdAt" > NOW() - INTERVAL '7 days' THEN 1 END) AS last_7d,
			COUNT(CASE WHEN "createdAt" > NOW() - INTERVAL '30 days' THEN 1 END) AS last_30d,
			MAX("createdAt") AS last_upload
		FROM asset
		WHERE "deletedAt" IS NULL`

	var stats UploadStats
	var lastUpload sql.NullTime
	err := s.db.QueryRowContext(ctx, query).Scan(
		&stats.TotalAssets,
		&stats.Last1h,
		&stats.Last24h,
		&stats.Last7d,
		&stats.Last30d,
		&lastUpload,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query upload stats: %w", err)
	}

	if lastUpload.Valid {
		t := lastUpload.Time
		stats.LastUpload = &t
	}

	return &stats, nil
}

// ActiveUploaders returns distinct owners with uploads inside the window
func (s *PostgresImmichStore) ActiveUploaders(ctx context.Context, window time.Duration) (int64, error) {
	query := `
		SELECT COUNT(DISTINCT "ownerId")
		FROM asset
		WHERE "createdAt" > NOW() - $1::interval
		AND "deletedAt" IS NULL`

	interval := fmt.Sprintf("%d seconds", int64(window.Seconds()))

	var count int64
	if err := s.db.QueryRowContext(ctx, query, interval).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to query active uploaders: %w", err)
	}

	return count, nil
}

// UserCounts returns total and admin user counts
func (s *PostgresImmichStore) UserCounts(ctx context.Context) (*UserCounts, error) {
	query := `
		SELECT
			COUNT(*) AS total_users,
			SUM(CASE WHEN "isAdmin" = true THEN 1 ELSE 0 END) AS admin_users
		FROM "user"`

	var counts UserCounts
	var admins sql.NullInt64
	if err := s.db.QueryRowContext(ctx, query).Scan(&counts.Total, &admins); err != nil {
		return nil, fmt.Errorf("failed to query user counts: %w", err)
	}
	if admins.Valid {
		counts.Admins = admins.Int64
	}

	return &counts, nil
}

// HealthCheck verifies database connectivity
func (s *PostgresImmichStore) HealthCheck(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

// Close releases the connection pool
func (s *PostgresImmichStore) Close() error {
	return s.db.Close()
}
