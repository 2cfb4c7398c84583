package config

import (
	"fmt"
	"math"
	"strings"

	"github.com/spf13/viper"

	"github.com/samirrijal/staymap/internal/core/markers"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	NATS       NATSConfig       `mapstructure:"nats"`
	Valkey     ValkeyConfig     `mapstructure:"valkey"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
	Temporal   TemporalConfig   `mapstructure:"temporal"`
	Hospitable HospitableConfig `mapstructure:"hospitable"`
	Markers    MarkersConfig    `mapstructure:"markers"`
	Log        LogConfig        `mapstructure:"log"`
}

type ServerConfig struct {
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
	AllowOrigins string `mapstructure:"allow_origins"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type ValkeyConfig struct {
	Addr string `mapstructure:"addr"`
}

type TelemetryConfig struct {
	ServiceName  string `mapstructure:"service_name"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	Enabled      bool   `mapstructure:"enabled"`
}

type TemporalConfig struct {
	HostPort     string `mapstructure:"host_port"`
	Namespace    string `mapstructure:"namespace"`
	TaskQueue    string `mapstructure:"task_queue"`
	SyncSchedule string `mapstructure:"sync_schedule"` // cron; empty disables the scheduled run
}

type HospitableConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Token   string `mapstructure:"token"`
	PerPage int    `mapstructure:"per_page"`
	Timeout int    `mapstructure:"timeout"` // seconds
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MarkersConfig holds the map rendering defaults.
type MarkersConfig struct {
	MaxOffsetKm     float64 `mapstructure:"max_offset_km"`
	MinOffsetKm     float64 `mapstructure:"min_offset_km"`
	MinSeparationKm float64 `mapstructure:"min_separation_km"`
	MaxAttempts     int     `mapstructure:"max_attempts"`
	SpreadRadius    float64 `mapstructure:"spread_radius"`
	SpreadPrecision int     `mapstructure:"spread_precision"`
}

// Displacement returns the configured obfuscation options with default keys.
func (m MarkersConfig) Displacement() markers.DisplacementOptions {
	opts := markers.DefaultDisplacementOptions()
	opts.MaxOffsetKm = m.MaxOffsetKm
	opts.MinOffsetKm = m.MinOffsetKm
	opts.MinSeparationKm = m.MinSeparationKm
	opts.MaxAttempts = m.MaxAttempts
	return opts
}

// Spread returns the configured spreading options with default keys.
func (m MarkersConfig) Spread() markers.SpreadOptions {
	opts := markers.DefaultSpreadOptions()
	opts.Radius = m.SpreadRadius
	opts.Precision = m.SpreadPrecision
	return opts
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()
	setDefaults(v, service)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: STAYMAP_DATABASE_HOST → database.host
	v.SetEnvPrefix("STAYMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper, service string) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("server.allow_origins", "http://localhost:3000, http://localhost:5173")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "staymap")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "staymap")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.otlp_endpoint", "tempo:4317")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "listing-sync")
	v.SetDefault("temporal.sync_schedule", "0 * * * *")
	v.SetDefault("hospitable.base_url", "https://public.api.hospitable.com/v2")
	v.SetDefault("hospitable.token", "")
	v.SetDefault("hospitable.per_page", 100)
	v.SetDefault("hospitable.timeout", 15)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Search map settings: wide jitter, no circle spreading.
	v.SetDefault("markers.max_offset_km", 3.0)
	v.SetDefault("markers.min_offset_km", 0.5)
	v.SetDefault("markers.min_separation_km", 1.0)
	v.SetDefault("markers.max_attempts", markers.DefaultMaxAttempts)
	v.SetDefault("markers.spread_radius", 0.0)
	v.SetDefault("markers.spread_precision", markers.DefaultSpreadPrecision)
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Database.Host == "" {
		errs = append(errs, "database.host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", c.Database.Port))
	}
	if c.Database.User == "" {
		errs = append(errs, "database.user is required")
	}
	if c.Database.DBName == "" {
		errs = append(errs, "database.dbname is required")
	}
	if c.NATS.URL == "" {
		errs = append(errs, "nats.url is required")
	}
	if c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required")
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.Temporal.TaskQueue == "" {
		errs = append(errs, "temporal.task_queue is required")
	}
	if c.Hospitable.PerPage <= 0 || c.Hospitable.PerPage > 500 {
		errs = append(errs, fmt.Sprintf("hospitable.per_page must be 1-500, got %d", c.Hospitable.PerPage))
	}

	m := c.Markers
	for _, f := range []struct {
		name string
		val  float64
	}{
		{"markers.max_offset_km", m.MaxOffsetKm},
		{"markers.min_offset_km", m.MinOffsetKm},
		{"markers.min_separation_km", m.MinSeparationKm},
		{"markers.spread_radius", m.SpreadRadius},
	} {
		if math.IsNaN(f.val) || math.IsInf(f.val, 0) || f.val < 0 {
			errs = append(errs, fmt.Sprintf("%s must be a non-negative number, got %v", f.name, f.val))
		}
	}
	if m.MinOffsetKm > m.MaxOffsetKm {
		errs = append(errs, "markers.min_offset_km must not exceed markers.max_offset_km")
	}
	if m.MaxAttempts < 1 {
		errs = append(errs, "markers.max_attempts must be at least 1")
	}
	if m.SpreadPrecision < 0 || m.SpreadPrecision > 15 {
		errs = append(errs, fmt.Sprintf("markers.spread_precision must be 0-15, got %d", m.SpreadPrecision))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
