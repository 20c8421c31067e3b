package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hdds-team/hdds/internal/logger"
	"github.com/hdds-team/hdds/internal/telemetry"
	"github.com/hdds-team/hdds/pkg/config"
	"github.com/hdds-team/hdds/pkg/metrics"
	"github.com/hdds-team/hdds/pkg/metrics/prometheus"
	"github.com/hdds-team/hdds/pkg/participant"
	"github.com/spf13/cobra"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the RTPS participant",
	Long: `Start an RTPS domain participant with the specified configuration.

Use --config to specify a custom configuration file, or it will use the
default location at $XDG_CONFIG_HOME/hdds/config.yaml.

Examples:
  # Start with the default config
  hdds start

  # Start with a custom config file
  hdds start --config /etc/hdds/config.yaml

  # Start with environment variable overrides
  HDDS_LOGGING_LEVEL=DEBUG hdds start`,
	RunE: runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	loggerCfg := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}
	if err := logger.Init(loggerCfg); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetryShutdown, err := telemetry.Init(ctx, cfg.ToTelemetryConfig())
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := telemetryShutdown(ctx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}()

	profilingShutdown, err := telemetry.InitProfiling(cfg.ToProfilingConfig())
	if err != nil {
		return fmt.Errorf("failed to initialize profiling: %w", err)
	}
	defer func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("profiling shutdown error", "error", err)
		}
	}()

	logger.Info("configuration loaded", "source", configSource(GetConfigFile()))
	if telemetry.IsEnabled() {
		logger.Info("telemetry enabled", "endpoint", cfg.Telemetry.Endpoint, "sample_rate", cfg.Telemetry.SampleRate)
	} else {
		logger.Info("telemetry disabled")
	}
	if telemetry.IsProfilingEnabled() {
		logger.Info("profiling enabled", "endpoint", cfg.Telemetry.Profiling.Endpoint)
	} else {
		logger.Info("profiling disabled")
	}

	metrics.InitRegistry(cfg.Metrics.Enabled)
	stats := prometheus.NewRTPSStats()
	if stats != nil {
		defer stats.(metrics.Closer).Close()
	}

	var metricsServer *metrics.Server
	if metrics.IsEnabled() {
		metricsServer, err = metrics.StartServer(cfg.Metrics.Port)
		if err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
		defer func() {
			if err := metricsServer.Stop(ctx); err != nil {
				logger.Error("metrics server shutdown error", "error", err)
			}
		}()
		logger.Info("metrics enabled", "port", cfg.Metrics.Port)
	} else {
		logger.Info("metrics disabled")
	}

	p, err := participant.New(cfg.ToParticipantConfig())
	if err != nil {
		return fmt.Errorf("failed to create participant: %w", err)
	}
	p.Start(ctx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("participant is running, press Ctrl+C to stop",
		"domain_id", cfg.DomainID, "participant_id", cfg.ParticipantID)

	<-sigChan
	signal.Stop(sigChan)
	logger.Info("shutdown signal received, initiating graceful shutdown")
	cancel()
	p.Stop()
	logger.Info("participant stopped")

	return nil
}

// configSource returns a description of where the config was loaded from.
func configSource(configFile string) string {
	if configFile != "" {
		return configFile
	}
	if config.DefaultConfigExists() {
		return config.GetDefaultConfigPath()
	}
	return "defaults"
}
