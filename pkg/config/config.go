// Package config loads an hdds participant's static configuration from a
// YAML file, environment variables, and built-in defaults, in that order of
// decreasing precedence below the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/hdds-team/hdds/internal/telemetry"
	"github.com/hdds-team/hdds/pkg/participant"
	"github.com/hdds-team/hdds/pkg/transport"
)

// Config is the static configuration of a running hdds participant.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (HDDS_*)
//  2. Configuration file (YAML)
//  3. Default values (lowest priority)
type Config struct {
	// DomainID is the RTPS domain this participant joins. Valid range is
	// 0-232 per the port-mapping formula's practical ceiling.
	DomainID int `mapstructure:"domain_id" validate:"gte=0,lte=232" yaml:"domain_id"`

	// ParticipantID distinguishes multiple participants on the same host
	// and domain; it feeds the per-participant port offset.
	ParticipantID int `mapstructure:"participant_id" validate:"gte=0" yaml:"participant_id"`

	// TransportMode selects which transports are brought up: "udp",
	// "tcp", or "both".
	TransportMode string `mapstructure:"transport_mode" validate:"required,oneof=udp tcp both" yaml:"transport_mode"`

	// BindAddress restricts which local address the transports bind to;
	// empty means all interfaces.
	BindAddress string `mapstructure:"bind_address" yaml:"bind_address"`

	// InterfaceFilter is copied into the participant configuration; the
	// mobility poller does not apply it and watches every up, non-loopback
	// IPv4 interface.
	InterfaceFilter []string `mapstructure:"interface_filter" yaml:"interface_filter"`

	// HoldDownMS is the locator hold-down period, in milliseconds, before
	// a removed address is actually dropped from advertisement.
	HoldDownMS int `mapstructure:"hold_down_ms" validate:"gte=0" yaml:"hold_down_ms"`

	// LeaseMS is the SPDP lease duration advertised to peers, in
	// milliseconds.
	LeaseMS int `mapstructure:"lease_ms" validate:"required,gt=0" yaml:"lease_ms"`

	// CustomPortMapping overrides the standard RTPS PB/DG/PG/d0/d1/d2
	// port formula constants. Nil uses transport.DefaultPortMapping.
	CustomPortMapping *PortMappingConfig `mapstructure:"custom_port_mapping" yaml:"custom_port_mapping,omitempty"`

	// ShutdownTimeout bounds how long graceful participant shutdown may
	// take before the process gives up waiting on background tasks.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`

	// Logging controls log output behavior.
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Telemetry controls OpenTelemetry distributed tracing and Pyroscope
	// continuous profiling.
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`

	// Metrics contains Prometheus metrics server configuration.
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// PortMappingConfig mirrors transport.PortMapping for YAML/env loading.
type PortMappingConfig struct {
	PB int `mapstructure:"pb" validate:"required,gt=0" yaml:"pb"`
	DG int `mapstructure:"dg" validate:"required,gt=0" yaml:"dg"`
	PG int `mapstructure:"pg" validate:"required,gt=0" yaml:"pg"`
	D0 int `mapstructure:"d0" yaml:"d0"`
	D1 int `mapstructure:"d1" yaml:"d1"`
	D2 int `mapstructure:"d2" yaml:"d2"`
}

// ToPortMapping converts to the transport package's runtime type.
func (m PortMappingConfig) ToPortMapping() transport.PortMapping {
	return transport.PortMapping{PB: m.PB, DG: m.DG, PG: m.PG, D0: m.D0, D1: m.D1, D2: m.D2}
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output.
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase).
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format: text or json.
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written: stdout, stderr, or a file path.
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// TelemetryConfig controls OpenTelemetry distributed tracing and Pyroscope
// continuous profiling.
type TelemetryConfig struct {
	// Enabled controls whether distributed tracing is enabled.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the OTLP collector endpoint (host:port).
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// Insecure controls whether to use an insecure (non-TLS) connection.
	Insecure bool `mapstructure:"insecure" yaml:"insecure"`

	// SampleRate controls the trace sampling rate (0.0 to 1.0).
	SampleRate float64 `mapstructure:"sample_rate" validate:"omitempty,gte=0,lte=1" yaml:"sample_rate"`

	// Profiling contains Pyroscope continuous profiling configuration.
	Profiling ProfilingConfig `mapstructure:"profiling" yaml:"profiling"`
}

// ProfilingConfig controls Pyroscope continuous profiling.
type ProfilingConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the Pyroscope server endpoint (URL).
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// ProfileTypes specifies which profile types to collect.
	ProfileTypes []string `mapstructure:"profile_types" yaml:"profile_types"`
}

// MetricsConfig configures the Prometheus metrics HTTP server. When Enabled
// is false, no metrics are collected.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the HTTP port for the metrics endpoint.
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
}

// ToParticipantConfig translates the loaded configuration into a
// participant.Config ready for participant.New.
func (c *Config) ToParticipantConfig() participant.Config {
	mode := participant.TransportUDP
	switch c.TransportMode {
	case "tcp":
		mode = participant.TransportTCP
	case "both":
		mode = participant.TransportBoth
	}

	pc := participant.Config{
		DomainID:        c.DomainID,
		ParticipantID:   c.ParticipantID,
		TransportMode:   mode,
		BindAddress:     c.BindAddress,
		InterfaceFilter: c.InterfaceFilter,
		LeaseDuration:   time.Duration(c.LeaseMS) * time.Millisecond,
		HoldDownPeriod:  time.Duration(c.HoldDownMS) * time.Millisecond,
	}
	if c.CustomPortMapping != nil {
		pc.PortMapping = c.CustomPortMapping.ToPortMapping()
	}
	return pc
}

// ToTelemetryConfig translates the loaded telemetry section into
// internal/telemetry's runtime Config.
func (c *Config) ToTelemetryConfig() telemetry.Config {
	return telemetry.Config{
		Enabled:        c.Telemetry.Enabled,
		ServiceName:    "hdds",
		ServiceVersion: "dev",
		Endpoint:       c.Telemetry.Endpoint,
		Insecure:       c.Telemetry.Insecure,
		SampleRate:     c.Telemetry.SampleRate,
	}
}

// ToProfilingConfig translates the loaded profiling section into
// internal/telemetry's runtime ProfilingConfig.
func (c *Config) ToProfilingConfig() telemetry.ProfilingConfig {
	return telemetry.ProfilingConfig{
		Enabled:        c.Telemetry.Profiling.Enabled,
		ServiceName:    "hdds",
		ServiceVersion: "dev",
		Endpoint:       c.Telemetry.Profiling.Endpoint,
		ProfileTypes:   c.Telemetry.Profiling.ProfileTypes,
	}
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (HDDS_*)
//  2. Configuration file
//  3. Default values
//
// configPath is the path to a config file; an empty string uses the
// default location.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	configFileFound, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	if !configFileFound {
		cfg := GetDefaultConfig()
		return cfg, nil
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration with helpful error messages, checking
// whether the config file exists and reporting how to create it if not.
func MustLoad(configPath string) (*Config, error) {
	if configPath == "" {
		if !DefaultConfigExists() {
			return nil, fmt.Errorf("no configuration file found at default location: %s\n\n"+
				"Please initialize a configuration file first:\n"+
				"  hdds init\n\n"+
				"Or specify a custom config file:\n"+
				"  hdds <command> --config /path/to/config.yaml",
				GetDefaultConfigPath())
		}
		configPath = GetDefaultConfigPath()
	} else if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s\n\n"+
			"Please create the configuration file:\n"+
			"  hdds init --config %s",
			configPath, configPath)
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// SaveConfig saves the configuration to the specified file path in YAML
// format.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// setupViper configures viper with environment variable and config file
// settings.
func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use HDDS_ prefix and underscores.
	// Example: HDDS_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("HDDS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		configDir := getConfigDir()
		v.AddConfigPath(configDir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists. Returns
// (fileFound, error) where fileFound indicates whether a config file was
// actually found.
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}
	return true, nil
}

// configDecodeHooks returns the decode hook used for unmarshaling custom
// types, currently just time.Duration (human-readable strings like "30s").
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		durationDecodeHook(),
	)
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// getConfigDir returns the configuration directory path: $XDG_CONFIG_HOME/hdds,
// ~/.config/hdds, or "." if the home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "hdds")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "hdds")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists reports whether a config file exists at the default
// location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path (exposed for the
// init command).
func GetConfigDir() string {
	return getConfigDir()
}
