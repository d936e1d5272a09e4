package exporter

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/jepsonlabs/immich-monitor/pkg/collector"
	"github.com/jepsonlabs/immich-monitor/pkg/health"
)

// Exporter serves Prometheus metrics for the monitoring service
type Exporter struct {
	collector *collector.Collector
	tracker   *health.Tracker
	registry  *promclient.Registry
	extras    []promclient.Gatherer
	startTime time.Time

	// Immich gauges
	assetsTotal   promclient.Gauge
	uploadsWindow *promclient.GaugeVec
	uploadRate    promclient.Gauge
	usersTotal    *promclient.GaugeVec
	minutesSince  promclient.Gauge
	libraryActive promclient.Gauge

	// CloudFlare gauges
	cfRequests      *promclient.GaugeVec
	cfBandwidth     *promclient.GaugeVec
	cfThreats       promclient.Gauge
	cfCacheHitRatio promclient.Gauge
	cfZoneActive    promclient.Gauge

	// Service gauges
	collectErrors  promclient.Gauge
	lastCollection promclient.Gauge
	collectSeconds promclient.Gauge
	healthStatus   promclient.Gauge
	uptimeSeconds  promclient.Gauge
	hostCPUPercent promclient.Gauge
	hostMemBytes   promclient.Gauge
}

// New creates an exporter. extras are additional registries (e.g. the
// bandwidth monitor's) gathered into the same output.
func New(c *collector.Collector, tracker *health.Tracker, extras ...promclient.Gatherer) *Exporter {
	e := &Exporter{
		collector: c,
		tracker:   tracker,
		registry:  promclient.NewRegistry(),
		extras:    extras,
		startTime: time.Now(),

		assetsTotal: promclient.NewGauge(promclient.GaugeOpts{
			Name: "immich_assets_total",
			Help: "Total assets in the Immich library (excluding deleted)",
		}),
		uploadsWindow: promclient.NewGaugeVec(promclient.GaugeOpts{
			Name: "immich_uploads",
			Help: "Uploads within the trailing window",
		}, []string{"window"}),
		uploadRate: promclient.NewGauge(promclient.GaugeOpts{
			Name: "immich_upload_rate_per_hour",
			Help: "Average uploads per hour over the last 24 hours",
		}),
		usersTotal: promclient.NewGaugeVec(promclient.GaugeOpts{
			Name: "immich_users",
			Help: "Immich user counts",
		}, []string{"kind"}),
		minutesSince: promclient.NewGauge(promclient.GaugeOpts{
			Name: "immich_minutes_since_last_upload",
			Help: "Minutes since the most recent upload (-1 when library is empty)",
		}),
		libraryActive: promclient.NewGauge(promclient.GaugeOpts{
			Name: "immich_library_active",
			Help: "Whether an upload occurred within the activity threshold (1=yes)",
		}),

		cfRequests: promclient.NewGaugeVec(promclient.GaugeOpts{
			Name: "cloudflare_requests_24h",
			Help: "CloudFlare requests over the trailing 24 hours",
		}, []string{"kind"}),
		cfBandwidth: promclient.NewGaugeVec(promclient.GaugeOpts{
			Name: "cloudflare_bandwidth_bytes_24h",
			Help: "CloudFlare bandwidth over the trailing 24 hours",
		}, []string{"kind"}),
		cfThreats: promclient.NewGauge(promclient.GaugeOpts{
			Name: "cloudflare_threats_blocked_24h",
			Help: "Threats blocked over the trailing 24 hours",
		}),
		cfCacheHitRatio: promclient.NewGauge(promclient.GaugeOpts{
			Name: "cloudflare_cache_hit_ratio",
			Help: "Cache hit ratio percentage over the trailing 24 hours",
		}),
		cfZoneActive: promclient.NewGauge(promclient.GaugeOpts{
			Name: "cloudflare_zone_active",
			Help: "Whether the zone status is active (1=yes)",
		}),

		collectErrors: promclient.NewGauge(promclient.GaugeOpts{
			Name: "monitor_collect_errors_total",
			Help: "Total failed metric collections",
		}),
		lastCollection: promclient.NewGauge(promclient.GaugeOpts{
			Name: "monitor_last_collection_timestamp",
			Help: "Unix timestamp of the last combined collection",
		}),
		collectSeconds: promclient.NewGauge(promclient.GaugeOpts{
			Name: "monitor_collection_duration_seconds",
			Help: "Duration of the last combined collection",
		}),
		healthStatus: promclient.NewGauge(promclient.GaugeOpts{
			Name: "monitor_health_status",
			Help: "Service health (0=healthy, 1=degraded, 2=unhealthy)",
		}),
		uptimeSeconds: promclient.NewGauge(promclient.GaugeOpts{
			Name: "monitor_uptime_seconds",
			Help: "Time since the service started",
		}),
		hostCPUPercent: promclient.NewGauge(promclient.GaugeOpts{
			Name: "monitor_host_cpu_percent",
			Help: "Host CPU usage percentage",
		}),
		hostMemBytes: promclient.NewGauge(promclient.GaugeOpts{
			Name: "monitor_host_memory_used_bytes",
			Help: "Host memory in use",
		}),
	}

	e.registry.MustRegister(
		e.assetsTotal, e.uploadsWindow, e.uploadRate, e.usersTotal,
		e.minutesSince, e.libraryActive,
		e.cfRequests, e.cfBandwidth, e.cfThreats, e.cfCacheHitRatio, e.cfZoneActive,
		e.collectErrors, e.lastCollection, e.collectSeconds,
		e.healthStatus, e.uptimeSeconds, e.hostCPUPercent, e.hostMemBytes,
	)

	return e
}

// updateMetrics refreshes all gauges from the collector's latest payload
func (e *Exporter) updateMetrics() {
	combined := e.collector.LastCombined()
	if combined != nil && combined.Immich != nil && combined.Immich.Error == "" {
		im := combined.Immich
		e.assetsTotal.Set(float64(im.TotalAssets))
		e.uploadsWindow.WithLabelValues("1h").Set(float64(im.Uploads.Last1h))
		e.uploadsWindow.WithLabelValues("24h").Set(float64(im.Uploads.Last24h))
		e.uploadsWindow.WithLabelValues("7d").Set(float64(im.Uploads.Last7d))
		e.uploadsWindow.WithLabelValues("30d").Set(float64(im.Uploads.Last30d))
		e.uploadRate.Set(im.Uploads.RatePerHour)
		e.usersTotal.WithLabelValues("total").Set(float64(im.Users.Total))
		e.usersTotal.WithLabelValues("admin").Set(float64(im.Users.Admins))
		e.usersTotal.WithLabelValues("active_24h").Set(float64(im.Users.Active24h))
		if im.LastUpload.MinutesAgo != nil {
			e.minutesSince.Set(float64(*im.LastUpload.MinutesAgo))
		} else {
			e.minutesSince.Set(-1)
		}
		e.libraryActive.Set(boolGauge(im.Health.IsActive))
	}

	if combined != nil && combined.Cloudflare != nil && combined.Cloudflare.Error == "" {
		cf := combined.Cloudflare
		e.cfRequests.WithLabelValues("total").Set(float64(cf.Requests24h.Total))
		e.cfRequests.WithLabelValues("cached").Set(float64(cf.Requests24h.Cached))
		e.cfRequests.WithLabelValues("uncached").Set(float64(cf.Requests24h.Uncached))
		e.cfBandwidth.WithLabelValues("total").Set(float64(cf.Bandwidth.TotalBytes))
		e.cfBandwidth.WithLabelValues("cached").Set(float64(cf.Bandwidth.CachedBytes))
		e.cfThreats.Set(float64(cf.Security.ThreatsBlocked))
		e.cfCacheHitRatio.Set(cf.Requests24h.CacheHitRatio)
		e.cfZoneActive.Set(boolGauge(cf.Health.ZoneActive))
	}

	e.collectErrors.Set(float64(e.collector.CollectErrors()))
	if last := e.collector.LastCollection(); !last.IsZero() {
		e.lastCollection.Set(float64(last.Unix()))
		e.collectSeconds.Set(e.collector.LastDuration().Seconds())
	}
	e.healthStatus.Set(float64(e.tracker.Status()))
	e.uptimeSeconds.Set(time.Since(e.startTime).Seconds())

	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		e.hostCPUPercent.Set(percents[0])
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		e.hostMemBytes.Set(float64(vm.Used))
	}
}

// ServeHTTP serves Prometheus-compatible metrics at /metrics
func (e *Exporter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	e.updateMetrics()

	gatherers := promclient.Gatherers{e.registry}
	for _, extra := range e.extras {
		gatherers = append(gatherers, extra)
	}

	metricFamilies, err := gatherers.Gather()
	if err != nil {
		http.Error(w, fmt.Sprintf("Error gathering metrics: %v", err), http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	encoder := expfmt.NewEncoder(&buf, expfmt.FmtText)
	for _, mf := range metricFamilies {
		if err := encoder.Encode(mf); err != nil {
			fmt.Fprintf(&buf, "# Error encoding metric %s: %v\n", mf.GetName(), err)
		}
	}

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	w.Write(buf.Bytes())
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
