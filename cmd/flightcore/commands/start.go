package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/aeroline/flightcore/internal/logger"
	"github.com/aeroline/flightcore/internal/telemetry"
	"github.com/aeroline/flightcore/pkg/api"
	"github.com/aeroline/flightcore/pkg/api/handlers"
	"github.com/aeroline/flightcore/pkg/auth"
	"github.com/aeroline/flightcore/pkg/config"
	"github.com/aeroline/flightcore/pkg/eventbus"
	"github.com/aeroline/flightcore/pkg/hub"
	"github.com/aeroline/flightcore/pkg/ingest"
	"github.com/aeroline/flightcore/pkg/metrics"
	"github.com/aeroline/flightcore/pkg/mqttconsumer"
	"github.com/aeroline/flightcore/pkg/store"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the flightcore server",
	Long: `Start the flightcore server: the MQTT ingestion consumer, the REST and
websocket API, and (if enabled) the Prometheus metrics endpoint.

Use --config to specify a custom configuration file, or it will use the
default location at $XDG_CONFIG_HOME/flightcore/config.yaml.`,
	RunE: runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	if err := logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetryShutdown, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "flightcore",
		ServiceVersion: Version,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := telemetryShutdown(context.Background()); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}()

	logger.Info("flightcore starting", "version", Version, "commit", Commit)
	if telemetry.IsEnabled() {
		logger.Info("tracing enabled", "sample_rate", cfg.Telemetry.SampleRate)
	} else {
		logger.Info("tracing disabled")
	}

	str, err := store.New(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}

	tokens, err := auth.NewTokenService(cfg.Auth, str)
	if err != nil {
		return fmt.Errorf("failed to initialize token service: %w", err)
	}

	bus := eventbus.New()
	buffer := ingest.New(str, bus)
	go buffer.Run(ctx)

	consumer := mqttconsumer.New(cfg.MQTT, tokens, buffer)
	go func() {
		if err := consumer.Start(ctx); err != nil {
			logger.ErrorCtx(ctx, "mqtt consumer stopped", "error", err)
		}
	}()
	defer consumer.Stop()

	roomAuthorizer := handlers.NewRoomAuthorizer(str)
	h := hub.New(roomAuthorizer)
	hub.WireEventBus(h, bus)

	if cfg.Metrics.Enabled {
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Port); err != nil {
				logger.ErrorCtx(ctx, "metrics server stopped", "error", err)
			}
		}()
		logger.Info("metrics enabled", "port", cfg.Metrics.Port)
	} else {
		logger.Info("metrics disabled")
	}

	apiServer, err := api.NewServer(cfg.API, api.Deps{
		Tokens:   tokens,
		Store:    str,
		Vessels:  str,
		Flights:  str,
		Commands: str,
		Buffer:   buffer,
		Bus:      bus,
		Hub:      h,
		Pinger:   func() error { return str.Healthcheck(context.Background()) },
	})
	if err != nil {
		return fmt.Errorf("failed to create api server: %w", err)
	}
	logger.Info("api server configured", "port", cfg.API.Port)

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- apiServer.Start(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("flightcore is running, press ctrl+c to stop")

	select {
	case <-sigChan:
		signal.Stop(sigChan)
		logger.Info("shutdown signal received, initiating graceful shutdown")
		cancel()

		select {
		case err := <-serverDone:
			if err != nil {
				logger.Error("api server shutdown error", "error", err)
				return err
			}
		case <-time.After(cfg.ShutdownTimeout):
			logger.Error("graceful shutdown timed out")
		}
		logger.Info("flightcore stopped gracefully")

	case err := <-serverDone:
		signal.Stop(sigChan)
		if err != nil {
			logger.Error("api server error", "error", err)
			return err
		}
		logger.Info("api server stopped")
	}

	return nil
}

