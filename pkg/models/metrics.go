package models

import (
	"encoding/json"
	"time"
)

// UploadWindows holds upload counts over trailing time windows
type UploadWindows struct {
	Last1h      int64   `json:"last_1h"`
	Last24h     int64   `json:"last_24h"`
	Last7d      int64   `json:"last_7d"`
	Last30d     int64   `json:"last_30d"`
	RatePerHour float64 `json:"rate_per_hour"`
}

// UserStats holds user counts from the Immich database
type UserStats struct {
	Total     int64 `json:"total"`
	Admins    int64 `json:"admins"`
	Active24h int64 `json:"active_24h"`
}

// LastUpload describes the most recent asset upload
type LastUpload struct {
	Timestamp  *time.Time `json:"timestamp"`
	MinutesAgo *int64     `json:"minutes_ago"`
}

// ActivityHealth flags whether the library is receiving uploads
type ActivityHealth struct {
	IsActive bool `json:"is_active"`
	Alert    bool `json:"alert"`
}

// ImmichMetrics is the payload served at /immich
type ImmichMetrics struct {
	TotalAssets int64          `json:"total_assets"`
	Uploads     UploadWindows  `json:"uploads"`
	Users       UserStats      `json:"users"`
	LastUpload  LastUpload     `json:"last_upload"`
	Health      ActivityHealth `json:"health"`

	// Set instead of the above when collection failed
	Error string `json:"error,omitempty"`
}

// MarshalJSON collapses a failed collection to a bare error document,
// so consumers never read the zeroed fields as data.
func (m ImmichMetrics) MarshalJSON() ([]byte, error) {
	if m.Error != "" {
		return json.Marshal(struct {
			Error string `json:"error"`
		}{m.Error})
	}
	type plain ImmichMetrics
	return json.Marshal(plain(m))
}

// ZoneInfo describes the CloudFlare zone
type ZoneInfo struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Plan   string `json:"plan"`
}

// RequestStats holds request counts over the trailing 24 hours
type RequestStats struct {
	Total         int64   `json:"total"`
	Cached        int64   `json:"cached"`
	Uncached      int64   `json:"uncached"`
	CacheHitRatio float64 `json:"cache_hit_ratio"`
}

// BandwidthStats holds byte counts over the trailing 24 hours
type BandwidthStats struct {
	TotalBytes  int64   `json:"total_bytes"`
	TotalGB     float64 `json:"total_gb"`
	CachedBytes int64   `json:"cached_bytes"`
}

// SecurityStats holds threat counts over the trailing 24 hours
type SecurityStats struct {
	ThreatsBlocked int64 `json:"threats_blocked"`
}

// ZoneHealth flags whether the zone is serving traffic
type ZoneHealth struct {
	ZoneActive bool `json:"zone_active"`
	Alert      bool `json:"alert"`
}

// CloudflareMetrics is the payload served at /cloudflare
type CloudflareMetrics struct {
	Zone        ZoneInfo       `json:"zone"`
	Requests24h RequestStats   `json:"requests_24h"`
	Bandwidth   BandwidthStats `json:"bandwidth_24h"`
	Security    SecurityStats  `json:"security_24h"`
	Health      ZoneHealth     `json:"health"`
	Configured  bool           `json:"configured"`
	Note        string         `json:"note,omitempty"`

	Error string `json:"error,omitempty"`
}

// MarshalJSON collapses a failed collection to an error document. The
// configured flag is kept so clients can tell missing credentials from
// an upstream failure.
func (m CloudflareMetrics) MarshalJSON() ([]byte, error) {
	if m.Error != "" {
		return json.Marshal(struct {
			Error      string `json:"error"`
			Configured bool   `json:"configured"`
		}{m.Error, m.Configured})
	}
	type plain CloudflareMetrics
	return json.Marshal(plain(m))
}

// CombinedMetrics is the payload served at / and /all
type CombinedMetrics struct {
	Timestamp  time.Time          `json:"timestamp"`
	Immich     *ImmichMetrics     `json:"immich"`
	Cloudflare *CloudflareMetrics `json:"cloudflare"`
}

// Snapshot is a persisted combined-metrics sample
type Snapshot struct {
	ID         string          `json:"id"`
	CapturedAt time.Time       `json:"captured_at"`
	Metrics    CombinedMetrics `json:"metrics"`
}
