package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"

	"github.com/jepsonlabs/immich-monitor/pkg/api"
	"github.com/jepsonlabs/immich-monitor/pkg/bandwidth"
	"github.com/jepsonlabs/immich-monitor/pkg/cloudflare"
	"github.com/jepsonlabs/immich-monitor/pkg/collector"
	"github.com/jepsonlabs/immich-monitor/pkg/config"
	"github.com/jepsonlabs/immich-monitor/pkg/exporter"
	"github.com/jepsonlabs/immich-monitor/pkg/health"
	"github.com/jepsonlabs/immich-monitor/pkg/logging"
	"github.com/jepsonlabs/immich-monitor/pkg/ratelimit"
	"github.com/jepsonlabs/immich-monitor/pkg/retry"
	"github.com/jepsonlabs/immich-monitor/pkg/shutdown"
	"github.com/jepsonlabs/immich-monitor/pkg/store"
)

func main() {
	configFile := flag.String("config", "", "YAML config file (optional, env vars override)")
	port := flag.Int("port", 0, "API port (default 8090, or PORT env var)")
	metricsPort := flag.Int("metrics-port", 0, "Prometheus exporter port (default 9105)")
	snapshotDB := flag.String("db", "", "SQLite snapshot database path (pass an empty string to keep history in memory)")
	sampleInterval := flag.Duration("sample-interval", 0, "Snapshot sample interval (default 5m)")
	logLevel := flag.String("log-level", "", "Log level: DEBUG, INFO, WARN, ERROR")
	logJSON := flag.Bool("log-json", false, "Emit JSON log lines")
	logFile := flag.String("log-file", "", "Log file name under /var/log/immich-monitor (falls back to ./logs); also logs to stdout")
	healthcheck := flag.Bool("healthcheck", false, "Probe the local /health endpoint once and exit")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	// Flags override file and environment
	if *port != 0 {
		cfg.Port = *port
	}
	if *metricsPort != 0 {
		cfg.MetricsPort = *metricsPort
	}
	// -db "" is meaningful (in-memory history), so apply it whenever
	// the flag was passed rather than only when non-empty
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "db" {
			cfg.Sampler.SnapshotDB = *snapshotDB
		}
	})
	if *sampleInterval != 0 {
		cfg.Sampler.Interval = sampleInterval.String()
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *logJSON {
		cfg.LogJSON = true
	}
	if *logFile != "" {
		cfg.LogFile = *logFile
	}

	if *healthcheck {
		os.Exit(runHealthcheck(cfg))
	}

	var log *logging.Logger
	if cfg.LogFile != "" {
		fileLog, err := logging.NewFileLogger(cfg.LogFile, logging.ParseLevel(cfg.LogLevel), cfg.LogJSON)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
			os.Exit(1)
		}
		defer fileLog.Close()
		log = fileLog
	} else {
		log = logging.NewLogger(logging.ParseLevel(cfg.LogLevel), cfg.LogJSON)
	}

	log.Info("Starting Immich monitoring service")
	log.Info("Configuration", map[string]interface{}{
		"port":            cfg.Port,
		"metrics_port":    cfg.MetricsPort,
		"db_host":         cfg.Database.Host,
		"db_name":         cfg.Database.Name,
		"cf_configured":   cfg.Cloudflare.ZoneID != "" && cfg.Cloudflare.APIToken != "",
		"sample_interval": cfg.Sampler.Interval,
	})

	// Immich database (read-only)
	immichStore, err := store.NewPostgresImmichStore(store.Config{
		DSN:          cfg.Database.DSN(),
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	})
	if err != nil {
		log.Fatal("Failed to connect to Immich database", map[string]interface{}{"error": err.Error()})
	}

	// Snapshot history store
	var snapshotStore store.SnapshotStore
	if cfg.Sampler.SnapshotDB != "" {
		sqliteStore, err := store.NewSQLiteSnapshotStore(cfg.Sampler.SnapshotDB)
		if err != nil {
			log.Fatal("Failed to open snapshot database", map[string]interface{}{"error": err.Error()})
		}
		snapshotStore = sqliteStore
		log.Info("Snapshot history enabled", map[string]interface{}{"path": cfg.Sampler.SnapshotDB})
	} else {
		snapshotStore = store.NewMemorySnapshotStore()
		log.Warn("Using in-memory snapshot store (history will not survive restarts)")
	}

	cfClient := cloudflare.NewClient(cloudflare.Options{
		ZoneID:   cfg.Cloudflare.ZoneID,
		APIToken: cfg.Cloudflare.APIToken,
		BaseURL:  cfg.Cloudflare.BaseURL,
		Timeout:  cfg.CloudflareTimeout(),
		Retry:    retry.DefaultConfig(),
	})

	coll := collector.New(immichStore, cfClient, snapshotStore, log)
	tracker := health.NewTracker(cfg.GracePeriod(), cfg.Health.MaxFailures)

	// API router with rate limiting and bandwidth accounting
	limiter := ratelimit.NewLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	bwMonitor := bandwidth.NewMonitor()

	router := mux.NewRouter()
	router.Use(bwMonitor.Middleware)
	router.Use(limiter.Middleware(ratelimit.IPKeyFunc))
	api.NewHandler(coll, tracker, log).RegisterRoutes(router)

	apiServer := &http.Server{
		Addr:         fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	// Prometheus exporter on its own port
	exp := exporter.New(coll, tracker, bwMonitor.Registry())
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", exp)
	metricsServer := &http.Server{
		Addr:    fmt.Sprintf("0.0.0.0:%d", cfg.MetricsPort),
		Handler: metricsMux,
	}

	shutdownMgr := shutdown.New(30 * time.Second)
	shutdownMgr.Register(shutdown.CloseResource(immichStore, "Immich database"))
	shutdownMgr.Register(shutdown.CloseResource(snapshotStore, "snapshot store"))
	shutdownMgr.Register(shutdown.StopHTTPServer(apiServer, "API"))
	shutdownMgr.Register(shutdown.StopHTTPServer(metricsServer, "metrics"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Background sampler feeds the history endpoint and the exporter cache
	go coll.RunSampler(ctx, cfg.SampleInterval(), cfg.SampleRetention())

	// Self-probe mirrors the container health check discipline
	prober := health.NewProber(
		fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Port),
		cfg.ProbeInterval(),
		cfg.ProbeTimeout(),
	)
	go prober.Run(ctx, tracker, func(s health.Status) {
		log.Warn("Health status changed", map[string]interface{}{"status": s.String()})
	})

	// Rate limiter housekeeping
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				limiter.Cleanup(time.Hour)
			}
		}
	}()

	go func() {
		log.Info("Metrics endpoint listening", map[string]interface{}{"addr": metricsServer.Addr})
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Metrics server failed", map[string]interface{}{"error": err.Error()})
		}
	}()

	go func() {
		log.Info("API listening", map[string]interface{}{"addr": apiServer.Addr})
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("API server failed", map[string]interface{}{"error": err.Error()})
		}
	}()

	shutdownMgr.Wait()
	cancel()
	shutdownMgr.Shutdown()
}

// runHealthcheck is invoked by the container HEALTHCHECK. It probes the
// local liveness endpoint once with the configured timeout.
func runHealthcheck(cfg *config.Config) int {
	prober := health.NewProber(
		fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Port),
		cfg.ProbeInterval(),
		cfg.ProbeTimeout(),
	)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ProbeTimeout())
	defer cancel()

	if err := prober.Probe(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "unhealthy: %v\n", err)
		return 1
	}
	fmt.Println("healthy")
	return 0
}
