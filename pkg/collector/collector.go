package collector

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jepsonlabs/immich-monitor/pkg/cloudflare"
	"github.com/jepsonlabs/immich-monitor/pkg/logging"
	"github.com/jepsonlabs/immich-monitor/pkg/models"
	"github.com/jepsonlabs/immich-monitor/pkg/store"
)

// activeThreshold is how recent the last upload must be for the
// library to count as active.
const activeThreshold = 120 * time.Minute

// Collector assembles metric payloads from the Immich database and the
// CloudFlare API, and samples them into the snapshot store.
type Collector struct {
	immich     store.ImmichStore
	cloudflare *cloudflare.Client
	snapshots  store.SnapshotStore
	log        *logging.Logger

	queryTimeout time.Duration

	mu             sync.RWMutex
	lastCollection time.Time
	lastDuration   time.Duration
	collectErrors  int64
	lastCombined   *models.CombinedMetrics
}

// New creates a collector. snapshots may be nil when history is disabled.
func New(immich store.ImmichStore, cf *cloudflare.Client, snapshots store.SnapshotStore, log *logging.Logger) *Collector {
	return &Collector{
		immich:       immich,
		cloudflare:   cf,
		snapshots:    snapshots,
		log:          log,
		queryTimeout: 10 * time.Second,
	}
}

// ImmichMetrics assembles the /immich payload. Database failures are
// reported inside the payload.
func (c *Collector) ImmichMetrics(ctx context.Context) *models.ImmichMetrics {
	ctx, cancel := context.WithTimeout(ctx, c.queryTimeout)
	defer cancel()

	stats, err := c.immich.UploadStats(ctx)
	if err != nil {
		c.recordError()
		return &models.ImmichMetrics{Error: err.Error()}
	}

	uploaders, err := c.immich.ActiveUploaders(ctx, 24*time.Hour)
	if err != nil {
		c.recordError()
		return &models.ImmichMetrics{Error: err.Error()}
	}

	users, err := c.immich.UserCounts(ctx)
	if err != nil {
		c.recordError()
		return &models.ImmichMetrics{Error: err.Error()}
	}

	metrics := &models.ImmichMetrics{
		TotalAssets: stats.TotalAssets,
		Uploads: models.UploadWindows{
			Last1h:      stats.Last1h,
			Last24h:     stats.Last24h,
			Last7d:      stats.Last7d,
			Last30d:     stats.Last30d,
			RatePerHour: math.Round(float64(stats.Last24h)/24*10) / 10,
		},
		Users: models.UserStats{
			Total:     users.Total,
			Admins:    users.Admins,
			Active24h: uploaders,
		},
	}

	if stats.LastUpload != nil {
		minutesAgo := int64(time.Since(*stats.LastUpload).Minutes())
		metrics.LastUpload = models.LastUpload{
			Timestamp:  stats.LastUpload,
			MinutesAgo: &minutesAgo,
		}
		metrics.Health.IsActive = time.Since(*stats.LastUpload) < activeThreshold
	}
	metrics.Health.Alert = !metrics.Health.IsActive

	return metrics
}

// CloudflareMetrics assembles the /cloudflare payload
func (c *Collector) CloudflareMetrics(ctx context.Context) *models.CloudflareMetrics {
	m := c.cloudflare.Metrics(ctx)
	if m.Error != "" {
		c.recordError()
	}
	return m
}

// Combined assembles the / and /all payload. Both sources are collected
// concurrently and each failure stays inside its own sub-document.
func (c *Collector) Combined(ctx context.Context) *models.CombinedMetrics {
	start := time.Now()

	var wg sync.WaitGroup
	var immich *models.ImmichMetrics
	var cf *models.CloudflareMetrics

	wg.Add(2)
	go func() {
		defer wg.Done()
		immich = c.ImmichMetrics(ctx)
	}()
	go func() {
		defer wg.Done()
		cf = c.CloudflareMetrics(ctx)
	}()
	wg.Wait()

	combined := &models.CombinedMetrics{
		Timestamp:  time.Now().UTC(),
		Immich:     immich,
		Cloudflare: cf,
	}

	c.mu.Lock()
	c.lastCollection = time.Now()
	c.lastDuration = time.Since(start)
	c.lastCombined = combined
	c.mu.Unlock()

	return combined
}

// History returns the most recent snapshots, newest first
func (c *Collector) History(ctx context.Context, limit int) ([]*models.Snapshot, error) {
	if c.snapshots == nil {
		return nil, nil
	}
	return c.snapshots.RecentSnapshots(ctx, limit)
}

// RunSampler collects and persists a snapshot on every tick until ctx
// is cancelled, pruning snapshots past the retention horizon.
func (c *Collector) RunSampler(ctx context.Context, interval, retention time.Duration) {
	if c.snapshots == nil {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Capture one sample immediately so /history is never empty
	c.sample(ctx, retention)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.sample(ctx, retention)
		}
	}
}

func (c *Collector) sample(ctx context.Context, retention time.Duration) {
	combined := c.Combined(ctx)

	snap := &models.Snapshot{
		ID:         uuid.New().String(),
		CapturedAt: combined.Timestamp,
		Metrics:    *combined,
	}

	if err := c.snapshots.SaveSnapshot(ctx, snap); err != nil {
		c.log.Error("Failed to persist snapshot", map[string]interface{}{"error": err.Error()})
		return
	}

	removed, err := c.snapshots.PruneSnapshots(ctx, time.Now().Add(-retention))
	if err != nil {
		c.log.Warn("Failed to prune snapshots", map[string]interface{}{"error": err.Error()})
	} else if removed > 0 {
		c.log.Debug("Pruned snapshots", map[string]interface{}{"removed": removed})
	}
}

func (c *Collector) recordError() {
	c.mu.Lock()
	c.collectErrors++
	c.mu.Unlock()
}

// LastCollection returns when the last combined collection finished
func (c *Collector) LastCollection() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastCollection
}

// LastDuration returns how long the last combined collection took
func (c *Collector) LastDuration() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastDuration
}

// CollectErrors returns the total number of failed collections
func (c *Collector) CollectErrors() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.collectErrors
}

// LastCombined returns the most recently collected combined payload,
// or nil before the first collection
func (c *Collector) LastCombined() *models.CombinedMetrics {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastCombined
}
