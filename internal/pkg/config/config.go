package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Dispatch modes.
const (
	DispatchDirect   = "direct"
	DispatchTemporal = "temporal"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Database  DatabaseConfig  `mapstructure:"database"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Temporal  TemporalConfig  `mapstructure:"temporal"`
	Dispatch  DispatchConfig  `mapstructure:"dispatch"`
	Planner   PlannerConfig   `mapstructure:"planner"`
}

type ServerConfig struct {
	Port           int `mapstructure:"port"`
	ReadTimeout    int `mapstructure:"read_timeout"`
	WriteTimeout   int `mapstructure:"write_timeout"`
	RequestTimeout int `mapstructure:"request_timeout"`
	BodyLimitMB    int `mapstructure:"body_limit_mb"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
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
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

type TemporalConfig struct {
	HostPort  string `mapstructure:"host_port"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
}

type DispatchConfig struct {
	Mode string `mapstructure:"mode"`
}

// PlannerConfig holds the default planning parameters. Requests may
// override every field except the earth radius.
type PlannerConfig struct {
	MinDistance float64 `mapstructure:"min_distance"`
	Offset      float64 `mapstructure:"offset"`
	EarthRadius float64 `mapstructure:"earth_radius"`
	MinZoom     int     `mapstructure:"min_zoom"`
	MaxZoom     int     `mapstructure:"max_zoom"`
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("server.request_timeout", 15)
	v.SetDefault("server.body_limit_mb", 8)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "routetiles")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "routetiles")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "tile-prefetch")
	v.SetDefault("dispatch.mode", DispatchDirect)
	v.SetDefault("planner.min_distance", 5000.0)
	v.SetDefault("planner.offset", 1000.0)
	v.SetDefault("planner.earth_radius", 6378137.0)
	v.SetDefault("planner.min_zoom", 8)
	v.SetDefault("planner.max_zoom", 14)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: ROUTETILES_PLANNER_MIN_DISTANCE → planner.min_distance
	v.SetEnvPrefix("ROUTETILES")
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

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.Server.RequestTimeout <= 0 {
		errs = append(errs, "server.request_timeout must be positive")
	}
	if c.Server.BodyLimitMB <= 0 {
		errs = append(errs, "server.body_limit_mb must be positive")
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

	switch c.Dispatch.Mode {
	case DispatchDirect:
	case DispatchTemporal:
		if c.Temporal.HostPort == "" {
			errs = append(errs, "temporal.host_port is required when dispatch.mode is temporal")
		}
		if c.Temporal.TaskQueue == "" {
			errs = append(errs, "temporal.task_queue is required when dispatch.mode is temporal")
		}
	default:
		errs = append(errs, fmt.Sprintf("dispatch.mode must be %q or %q, got %q", DispatchDirect, DispatchTemporal, c.Dispatch.Mode))
	}

	if c.Planner.MinDistance <= 0 {
		errs = append(errs, "planner.min_distance must be positive")
	}
	if c.Planner.Offset <= 0 {
		errs = append(errs, "planner.offset must be positive")
	}
	if c.Planner.EarthRadius <= 0 {
		errs = append(errs, "planner.earth_radius must be positive")
	}
	if c.Planner.MinZoom < 0 || c.Planner.MaxZoom > 22 || c.Planner.MinZoom > c.Planner.MaxZoom {
		errs = append(errs, fmt.Sprintf("planner zoom range must satisfy 0 <= min_zoom <= max_zoom <= 22, got %d-%d",
			c.Planner.MinZoom, c.Planner.MaxZoom))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
