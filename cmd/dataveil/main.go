package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/dataveil/dataveil/internal/audit"
	"github.com/dataveil/dataveil/internal/catalog"
	"github.com/dataveil/dataveil/internal/classify"
	"github.com/dataveil/dataveil/internal/config"
	"github.com/dataveil/dataveil/internal/detect"
	"github.com/dataveil/dataveil/internal/engine"
	"github.com/dataveil/dataveil/internal/export"
	"github.com/dataveil/dataveil/internal/logger"
	"github.com/dataveil/dataveil/internal/mappings"
	"github.com/dataveil/dataveil/internal/scramble"
	"github.com/dataveil/dataveil/internal/server"
	"github.com/dataveil/dataveil/internal/websocket"
)

var (
	version = "0.1.0"
	commit  = "dev"
	date    = "unknown"
)

func main() {
	// Parse command line flags
	var (
		configPath  = flag.String("config", "", "Path to configuration file")
		showVersion = flag.Bool("version", false, "Show version information")
		healthCheck = flag.Bool("health-check", false, "Perform health check and exit")
	)
	flag.Parse()

	// Show version and exit
	if *showVersion {
		fmt.Printf("DataVeil %s (commit: %s, built: %s)\n", version, commit, date)
		os.Exit(0)
	}

	// Perform health check and exit
	if *healthCheck {
		performHealthCheck()
		return
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	loggerConfig := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	}

	if cfg.Logging.File.Enabled {
		loggerConfig.File = &logger.FileConfig{
			Enabled:  cfg.Logging.File.Enabled,
			Path:     cfg.Logging.File.Path,
			MaxSize:  cfg.Logging.File.MaxSize,
			MaxAge:   cfg.Logging.File.MaxAge,
			Compress: cfg.Logging.File.Compress,
		}
	}

	log, err := logger.New(loggerConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting DataVeil",
		zap.String("version", version),
		zap.String("commit", commit),
		zap.String("build_date", date),
		zap.Int("port", cfg.Server.Port),
	)

	// Detection pipeline
	cat := catalog.New()
	classifier := classify.New(cat, log.WithComponent("classify").Logger)
	scanner := detect.NewScanner(cat, detect.Options{
		Timeout:       cfg.Detection.ScanTimeout,
		DisabledTypes: cfg.Detection.DisabledTypes,
	}, log.WithComponent("detect").Logger)
	scrambler := scramble.New(log.WithComponent("scramble").Logger)

	// Session mapping store
	var mapStore mappings.Store
	if cfg.Mappings.Backend == "redis" {
		mapStore, err = mappings.NewRedisStore(mappings.Config{
			RedisURL:  cfg.Mappings.RedisURL,
			KeyPrefix: cfg.Mappings.KeyPrefix,
			TTL:       cfg.Mappings.TTL,
		}, log.WithComponent("mappings").Logger)
		if err != nil {
			log.Fatal("Failed to connect to mapping store", zap.Error(err))
		}
	} else {
		mapStore = mappings.NewMemoryStore(cfg.Mappings.TTL)
	}
	defer mapStore.Close()

	// WebSocket hub; audit notifications ride on it
	hubConfig := &websocket.HubConfig{
		BroadcastDetections:  cfg.WebSocket.Events.BroadcastDetections,
		BroadcastSweeps:      cfg.WebSocket.Events.BroadcastSweeps,
		BroadcastEscalations: cfg.WebSocket.Events.BroadcastEscalations,
		BroadcastSystem:      true,
		BroadcastConnections: true,
		AllowedOrigins:       cfg.WebSocket.AllowedOrigins,
	}
	hub := websocket.NewHub(hubConfig, log.WithComponent("websocket").Logger)

	// Retention policies, overridden from config
	overrides := make(map[string]audit.RetentionPolicy, len(cfg.Retention.Policies))
	for key, policy := range cfg.Retention.Policies {
		overrides[key] = audit.RetentionPolicy{
			RetentionDays:   policy.RetentionDays,
			GracePeriodDays: policy.GracePeriodDays,
		}
	}
	policies := audit.NewPolicyTable(overrides)

	// Audit trail: store, recorder, sweeper, deletion requests, reports
	deps := engine.Deps{
		Catalog:    cat,
		Classifier: classifier,
		Scanner:    scanner,
		Scrambler:  scrambler,
		Mappings:   mapStore,
	}

	var sweeper *audit.Sweeper
	if cfg.Audit.Enabled {
		store, err := audit.NewPostgresStore(audit.StoreConfig{
			DatabaseURL:     cfg.Database.URL,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		}, log.WithComponent("audit").Logger)
		if err != nil {
			log.Fatal("Failed to connect to audit store", zap.Error(err))
		}
		defer store.Close()

		var notifier audit.Notifier
		if cfg.Audit.NotifyHighRisk {
			notifier = websocket.NewNotifier(hub)
		}

		var archiver audit.Archiver
		if cfg.Retention.Archive.Enabled {
			parquetArchiver, err := export.NewParquetArchiver(export.Config{
				Enabled:   true,
				Directory: cfg.Retention.Archive.Directory,
			}, log.WithComponent("export").Logger)
			if err != nil {
				log.Fatal("Failed to create archiver", zap.Error(err))
			}
			archiver = parquetArchiver
		}

		sweepEvents := make(chan audit.SweepSummary, 16)
		escalations := make(chan audit.Escalation, 16)
		go websocket.Relay(hub, sweepEvents, escalations)

		processor := audit.NewProcessor(store, escalations, log.WithComponent("deletion").Logger)

		sweeper = audit.NewSweeper(store, policies, archiver, cfg.Retention.SweepSchedule, sweepEvents, log.WithComponent("retention").Logger)
		sweeper.TrackOverdue(processor)
		if err := sweeper.Start(); err != nil {
			log.Fatal("Failed to start retention sweeper", zap.Error(err))
		}
		defer sweeper.Stop()

		deps.Store = store
		deps.Recorder = audit.NewRecorder(store, policies, notifier, true, log.WithComponent("audit").Logger)
		deps.Sweeper = sweeper
		deps.Processor = processor
		deps.Reports = audit.NewReportGenerator(store, log.WithComponent("reports").Logger)
	} else {
		deps.Recorder = audit.NewRecorder(nil, policies, nil, false, log.WithComponent("audit").Logger)
	}

	eng := engine.New(deps, log.WithComponent("engine").Logger)

	// API server
	srv, err := server.New(cfg, eng, hub, log)
	if err != nil {
		log.Fatal("Failed to create server", zap.Error(err))
	}

	// Detection toggles apply live; everything else needs a restart
	if err := config.Watch(cfg, func(newCfg *config.Config) {
		scanner.SetDisabledTypes(newCfg.Detection.DisabledTypes)
		log.Info("Configuration reloaded",
			zap.Strings("disabled_types", newCfg.Detection.DisabledTypes),
		)
	}); err != nil {
		log.Warn("Failed to watch configuration", zap.Error(err))
	}

	// Start server in goroutine
	serverErrors := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", zap.Int("port", cfg.Server.Port))
		serverErrors <- srv.Start()
	}()

	// Setup graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	// Wait for shutdown signal or server error
	select {
	case err := <-serverErrors:
		log.Error("Server error", zap.Error(err))
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		// Give outstanding requests 30 seconds to complete
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Stop(ctx); err != nil {
			log.Error("Failed to shutdown server gracefully", zap.Error(err))
			os.Exit(1)
		}

		log.Info("Server shutdown complete")
	}
}

// performHealthCheck performs a health check against the running server
func performHealthCheck() {
	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	resp, err := client.Get("http://localhost:8080/health")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Health check failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "Health check failed: HTTP %d\n", resp.StatusCode)
		os.Exit(1)
	}

	fmt.Println("Health check passed")
	os.Exit(0)
}
