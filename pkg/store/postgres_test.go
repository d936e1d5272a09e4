package store

import (
	"context"
	"os"
	"testing"
	"time"
)

// TestPostgresIntegration runs against a real Immich database.
// Set DATABASE_DSN to run: export DATABASE_DSN="host=... dbname=immich ..."
func TestPostgresIntegration(t *testing.T) {
	dsn := os.Getenv("DATABASE_DSN")
	if dsn == "" {
		t.Skip("Skipping PostgreSQL integration test: DATABASE_DSN not set")
	}

	store, err := NewPostgresImmichStore(Config{DSN: dsn})
	if err != nil {
		t.Fatalf("Failed to create PostgreSQL store: %v", err)
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := store.HealthCheck(ctx); err != nil {
		t.Fatalf("Health check failed: %v", err)
	}

	stats, err := store.UploadStats(ctx)
	if err != nil {
		t.Fatalf("UploadStats failed: %v", err)
	}
	if stats.TotalAssets < 0 {
		t.Errorf("Negative asset count: %d", stats.TotalAssets)
	}
	if stats.Last1h > stats.Last24h || stats.Last24h > stats.Last30d {
		t.Errorf("Window counts not monotonic: 1h=%d 24h=%d 30d=%d",
			stats.Last1h, stats.Last24h, stats.Last30d)
	}

	uploaders, err := store.ActiveUploaders(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("ActiveUploaders failed: %v", err)
	}
	if uploaders < 0 {
		t.Errorf("Negative uploader count: %d", uploaders)
	}

	users, err := store.UserCounts(ctx)
	if err != nil {
		t.Fatalf("UserCounts failed: %v", err)
	}
	if users.Admins > users.Total {
		t.Errorf("More admins (%d) than users (%d)", users.Admins, users.Total)
	}
}
