package collector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jepsonlabs/immich-monitor/pkg/cloudflare"
	"github.com/jepsonlabs/immich-monitor/pkg/logging"
	"github.com/jepsonlabs/immich-monitor/pkg/retry"
	"github.com/jepsonlabs/immich-monitor/pkg/store"
)

func testLogger() *logging.Logger {
	log := logging.NewLogger(logging.ERROR, false)
	return log
}

func fakeCloudflare(t *testing.T) (*httptest.Server, *cloudflare.Client) {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/graphql") {
			fmt.Fprint(w, `{"data":{"viewer":{"zones":[{"httpRequests1hGroups":[
				{"sum":{"requests":50,"bytes":1000,"cachedBytes":500,"cachedRequests":25,"threats":1},"dimensions":{"datetime":"2026-08-29T00:00:00Z"}}
			]}]}}}`)
			return
		}
		fmt.Fprint(w, `{"success":true,"result":{"name":"jepson.live","status":"active","plan":{"name":"Free Website"}}}`)
	}))
	client := cloudflare.NewClient(cloudflare.Options{
		ZoneID:   "zone-1",
		APIToken: "token",
		BaseURL:  server.URL,
		Retry:    retry.Config{MaxRetries: 0, InitialBackoff: 1, MaxBackoff: 1, Multiplier: 1},
	})
	return server, client
}

func TestImmichMetricsDerivation(t *testing.T) {
	lastUpload := time.Now().Add(-30 * time.Minute)
	immich := store.NewMemoryImmichStore()
	immich.Stats = store.UploadStats{
		TotalAssets: 10000,
		Last1h:      3,
		Last24h:     48,
		Last7d:      200,
		Last30d:     900,
		LastUpload:  &lastUpload,
	}
	immich.Uploaders = 2
	immich.Users = store.UserCounts{Total: 5, Admins: 1}

	server, cf := fakeCloudflare(t)
	defer server.Close()

	c := New(immich, cf, nil, testLogger())
	m := c.ImmichMetrics(context.Background())

	if m.Error != "" {
		t.Fatalf("Unexpected error: %s", m.Error)
	}
	if m.TotalAssets != 10000 {
		t.Errorf("Expected 10000 assets, got %d", m.TotalAssets)
	}
	if m.Uploads.RatePerHour != 2.0 {
		t.Errorf("Expected rate 2.0/hour, got %v", m.Uploads.RatePerHour)
	}
	if m.LastUpload.MinutesAgo == nil || *m.LastUpload.MinutesAgo != 30 {
		t.Errorf("Expected 30 minutes ago, got %v", m.LastUpload.MinutesAgo)
	}
	if !m.Health.IsActive || m.Health.Alert {
		t.Errorf("Upload 30 minutes ago should be active: %+v", m.Health)
	}
}

func TestImmichMetricsStaleLibraryAlerts(t *testing.T) {
	lastUpload := time.Now().Add(-3 * time.Hour)
	immich := store.NewMemoryImmichStore()
	immich.Stats = store.UploadStats{TotalAssets: 100, LastUpload: &lastUpload}

	server, cf := fakeCloudflare(t)
	defer server.Close()

	c := New(immich, cf, nil, testLogger())
	m := c.ImmichMetrics(context.Background())

	if m.Health.IsActive {
		t.Error("Upload 3 hours ago should not be active")
	}
	if !m.Health.Alert {
		t.Error("Inactive library should alert")
	}
}

func TestImmichMetricsEmptyLibrary(t *testing.T) {
	immich := store.NewMemoryImmichStore()

	server, cf := fakeCloudflare(t)
	defer server.Close()

	c := New(immich, cf, nil, testLogger())
	m := c.ImmichMetrics(context.Background())

	if m.LastUpload.Timestamp != nil || m.LastUpload.MinutesAgo != nil {
		t.Error("Empty library should have null last upload")
	}
	if m.Health.IsActive {
		t.Error("Empty library is not active")
	}
}

func TestImmichMetricsErrorPayload(t *testing.T) {
	immich := store.NewMemoryImmichStore()
	immich.SetError(errors.New("connection refused"))

	server, cf := fakeCloudflare(t)
	defer server.Close()

	c := New(immich, cf, nil, testLogger())
	m := c.ImmichMetrics(context.Background())

	if m.Error == "" {
		t.Error("Expected error in payload")
	}
	if c.CollectErrors() == 0 {
		t.Error("Expected collect error to be counted")
	}
}

func TestCombinedIsolatesFailures(t *testing.T) {
	immich := store.NewMemoryImmichStore()
	immich.SetError(errors.New("database down"))

	server, cf := fakeCloudflare(t)
	defer server.Close()

	c := New(immich, cf, nil, testLogger())
	combined := c.Combined(context.Background())

	if combined.Immich == nil || combined.Immich.Error == "" {
		t.Error("Expected immich sub-document with error")
	}
	if combined.Cloudflare == nil || combined.Cloudflare.Error != "" {
		t.Error("Cloudflare collection should succeed independently")
	}
	if combined.Timestamp.IsZero() {
		t.Error("Expected timestamp")
	}
	if c.LastCombined() != combined {
		t.Error("Expected last combined payload to be cached")
	}
}

func TestSamplerPersistsAndPrunes(t *testing.T) {
	immich := store.NewMemoryImmichStore()
	snapshots := store.NewMemorySnapshotStore()

	server, cf := fakeCloudflare(t)
	defer server.Close()

	c := New(immich, cf, snapshots, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.RunSampler(ctx, 10*time.Millisecond, time.Hour)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for {
		snaps, err := snapshots.RecentSnapshots(context.Background(), 10)
		if err != nil {
			t.Fatalf("RecentSnapshots failed: %v", err)
		}
		if len(snaps) >= 2 {
			if snaps[0].ID == "" {
				t.Error("Expected snapshot IDs to be assigned")
			}
			break
		}
		select {
		case <-deadline:
			t.Fatal("Sampler never produced snapshots")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	<-done

	history, err := c.History(context.Background(), 1)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 1 {
		t.Errorf("Expected 1 history entry, got %d", len(history))
	}
}
