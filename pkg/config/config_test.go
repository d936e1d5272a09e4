package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load with defaults failed: %v", err)
	}

	if cfg.Port != 8090 {
		t.Errorf("Expected default port 8090, got %d", cfg.Port)
	}
	if cfg.Health.MaxFailures != 3 {
		t.Errorf("Expected 3 max failures, got %d", cfg.Health.MaxFailures)
	}
	if cfg.ProbeInterval() != 30*time.Second {
		t.Errorf("Expected 30s probe interval, got %v", cfg.ProbeInterval())
	}
	if cfg.ProbeTimeout() != 5*time.Second {
		t.Errorf("Expected 5s probe timeout, got %v", cfg.ProbeTimeout())
	}
	if cfg.GracePeriod() != 5*time.Second {
		t.Errorf("Expected 5s grace period, got %v", cfg.GracePeriod())
	}
}

func TestLoadYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "monitord.yaml")
	content := `
port: 9000
metrics_port: 9200
database:
  host: db.internal
  name: immich_prod
cloudflare:
  zone_id: abc123
  timeout: 15s
sampler:
  interval: 1m
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Port != 9000 {
		t.Errorf("Expected port 9000, got %d", cfg.Port)
	}
	if cfg.Database.Host != "db.internal" {
		t.Errorf("Expected host db.internal, got %s", cfg.Database.Host)
	}
	if cfg.Database.Port != "5432" {
		t.Errorf("Unset fields should keep defaults, got port %s", cfg.Database.Port)
	}
	if cfg.Cloudflare.ZoneID != "abc123" {
		t.Errorf("Expected zone abc123, got %s", cfg.Cloudflare.ZoneID)
	}
	if cfg.CloudflareTimeout() != 15*time.Second {
		t.Errorf("Expected 15s timeout, got %v", cfg.CloudflareTimeout())
	}
	if cfg.SampleInterval() != time.Minute {
		t.Errorf("Expected 1m sample interval, got %v", cfg.SampleInterval())
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("DB_HOST", "immich-db")
	t.Setenv("DB_PASS", "secret")
	t.Setenv("CF_ZONE_ID", "zone-from-env")
	t.Setenv("PORT", "8095")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Database.Host != "immich-db" {
		t.Errorf("Expected env host, got %s", cfg.Database.Host)
	}
	if cfg.Database.Password != "secret" {
		t.Errorf("Expected env password, got %s", cfg.Database.Password)
	}
	if cfg.Cloudflare.ZoneID != "zone-from-env" {
		t.Errorf("Expected env zone, got %s", cfg.Cloudflare.ZoneID)
	}
	if cfg.Port != 8095 {
		t.Errorf("Expected env port 8095, got %d", cfg.Port)
	}
}

func TestSnapshotDBEmptyEnvSelectsMemory(t *testing.T) {
	t.Setenv("SNAPSHOT_DB", "")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// An empty-but-set SNAPSHOT_DB disables the SQLite file, which the
	// daemon maps to the in-memory snapshot store
	if cfg.Sampler.SnapshotDB != "" {
		t.Errorf("Expected empty snapshot DB path, got %q", cfg.Sampler.SnapshotDB)
	}
}

func TestSnapshotDBUnsetKeepsDefault(t *testing.T) {
	t.Setenv("SNAPSHOT_DB", "placeholder")
	os.Unsetenv("SNAPSHOT_DB")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Sampler.SnapshotDB != "snapshots.db" {
		t.Errorf("Expected default snapshot DB path, got %q", cfg.Sampler.SnapshotDB)
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Port = 0
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for invalid port")
	}

	cfg = Default()
	cfg.MetricsPort = cfg.Port
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for colliding ports")
	}

	cfg = Default()
	cfg.Health.ProbeInterval = "not-a-duration"
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for bad duration")
	}

	cfg = Default()
	cfg.Health.MaxFailures = 0
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for zero failure budget")
	}
}

func TestDSN(t *testing.T) {
	db := DatabaseConfig{
		Host: "localhost", Port: "5432", Name: "immich",
		User: "immich", Password: "pw", SSLMode: "disable",
	}
	want := "host=localhost port=5432 dbname=immich user=immich password=pw sslmode=disable"
	if got := db.DSN(); got != want {
		t.Errorf("DSN mismatch:\n got %s\nwant %s", got, want)
	}
}
