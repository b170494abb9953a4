package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/marmos91/cipherdrop/internal/logger"
	"github.com/marmos91/cipherdrop/internal/telemetry"
	"github.com/marmos91/cipherdrop/pkg/adapter"
	"github.com/marmos91/cipherdrop/pkg/api"
	"github.com/marmos91/cipherdrop/pkg/config"
	"github.com/marmos91/cipherdrop/pkg/dispatch"
	"github.com/marmos91/cipherdrop/pkg/metrics"
	"github.com/marmos91/cipherdrop/pkg/state"
	"github.com/marmos91/cipherdrop/pkg/state/store"
	"github.com/marmos91/cipherdrop/pkg/vault"
	"github.com/spf13/cobra"

	// Import prometheus metrics to register init() functions
	_ "github.com/marmos91/cipherdrop/pkg/metrics/prometheus"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the CipherDrop server",
	Long: `Start the CipherDrop transfer server in the foreground.

The server loads its configuration, opens the state store, and listens
for transfer clients on the resolved TCP port. It runs until interrupted
(SIGINT/SIGTERM) and shuts down gracefully, draining in-flight requests
up to server.shutdown_timeout.

Examples:
  # Start with the default config location
  cipherdrop start

  # Start with a custom config file
  cipherdrop start --config /etc/cipherdrop/config.yaml

  # Start with environment variable overrides
  CIPHERDROP_LOGGING_LEVEL=DEBUG cipherdrop start`,
	RunE: runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	if err := InitLogger(cfg); err != nil {
		return err
	}

	// Create cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry (if enabled)
	telemetryCfg := telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "cipherdrop",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	}
	telemetryShutdown, err := telemetry.Init(ctx, telemetryCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := telemetryShutdown(ctx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}()

	// Initialize Pyroscope profiling (if enabled)
	profilingCfg := telemetry.ProfilingConfig{
		Enabled:        cfg.Telemetry.Profiling.Enabled,
		ServiceName:    "cipherdrop",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Profiling.Endpoint,
		ProfileTypes:   cfg.Telemetry.Profiling.ProfileTypes,
	}
	profilingShutdown, err := telemetry.InitProfiling(profilingCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize profiling: %w", err)
	}
	defer func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("profiling shutdown error", "error", err)
		}
	}()

	fmt.Println("CipherDrop - encrypted file transfer server")
	logger.Info("Log level", "level", cfg.Logging.Level, "format", cfg.Logging.Format)
	logger.Info("Configuration loaded", "source", getConfigSource(GetConfigFile()))
	if telemetry.IsEnabled() {
		logger.Info("Telemetry enabled", "endpoint", cfg.Telemetry.Endpoint, "sample_rate", cfg.Telemetry.SampleRate)
	} else {
		logger.Info("Telemetry disabled")
	}
	if telemetry.IsProfilingEnabled() {
		logger.Info("Profiling enabled", "endpoint", cfg.Telemetry.Profiling.Endpoint, "profile_types", cfg.Telemetry.Profiling.ProfileTypes)
	} else {
		logger.Info("Profiling disabled")
	}

	// Initialize metrics before anything that records them.
	var transferMetrics metrics.TransferMetrics
	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		transferMetrics = metrics.NewTransferMetrics()
		metricsServer = metrics.NewServer(cfg.Metrics.Port)
		logger.Info("Metrics enabled", "port", cfg.Metrics.Port)
	} else {
		logger.Info("Metrics collection disabled")
	}

	// Open the state store and load clients and files into memory.
	st, err := store.New(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to open state store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("state store close error", "error", err)
		}
	}()

	registry := state.NewRegistry(st)
	if err := registry.Load(ctx); err != nil {
		return fmt.Errorf("failed to load state: %w", err)
	}
	stats := registry.Stats()
	logger.Info("State loaded",
		"driver", cfg.Database.Driver,
		"clients", stats.Clients,
		"files", stats.Files,
		"verified_files", stats.VerifiedFiles)

	// Open the vault receiving uploaded files.
	files, err := vault.New(vault.DefaultConfig(cfg.Storage.Root))
	if err != nil {
		return fmt.Errorf("failed to open vault: %w", err)
	}
	logger.Info("Vault ready", "root", files.Root())

	dispatcher := dispatch.New(registry, files, transferMetrics)

	port, portSource := config.ResolvePort(&cfg.Server)
	logger.Info("Transfer port resolved", "port", port, "source", string(portSource))
	logger.Info("Transfer limits",
		"max_connections", cfg.Server.MaxConnections,
		"max_payload", cfg.Server.MaxPayload.String(),
		"idle_timeout", cfg.Server.IdleTimeout)

	srv := adapter.New(adapter.Config{
		Host:            cfg.Server.Host,
		Port:            port,
		MaxConnections:  cfg.Server.MaxConnections,
		MaxPayload:      uint32(cfg.Server.MaxPayload),
		IdleTimeout:     cfg.Server.IdleTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, dispatcher, transferMetrics)

	// Start the metrics endpoint on its own listener.
	if metricsServer != nil {
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Metrics server error", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancelShutdown()
			_ = metricsServer.Shutdown(shutdownCtx)
		}()
	}

	// Start the read-only admin API (if enabled).
	if cfg.API.Enabled {
		apiServer, err := api.NewServer(cfg.API, registry)
		if err != nil {
			return fmt.Errorf("failed to create API server: %w", err)
		}
		go func() {
			if err := apiServer.Start(ctx); err != nil {
				logger.Error("API server error", "error", err)
			}
		}()
		logger.Info("Admin API enabled", "port", apiServer.Port())
	} else {
		logger.Info("Admin API disabled")
	}

	// Serve transfer clients in the background.
	serverDone := make(chan error, 1)
	go func() {
		serverDone <- srv.Serve(ctx)
	}()

	// Wait for interrupt signal or server error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Server is running. Press Ctrl+C to stop.")

	select {
	case <-sigChan:
		signal.Stop(sigChan)
		logger.Info("Shutdown signal received, initiating graceful shutdown")
		cancel()

		if err := <-serverDone; err != nil {
			logger.Error("Server shutdown error", "error", err)
			return err
		}
		logger.Info("Server stopped gracefully")

	case err := <-serverDone:
		signal.Stop(sigChan)
		if err != nil {
			logger.Error("Server error", "error", err)
			return err
		}
		logger.Info("Server stopped")
	}

	return nil
}
