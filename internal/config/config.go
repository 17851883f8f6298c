package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DriverSQLServer = "sqlserver"
	DriverPostgres  = "postgres"
)

type Config struct {
	Connection ConnectionConfig `mapstructure:"connection"`
	Streams    []StreamConfig   `mapstructure:"streams"`
	Targets    TargetsConfig    `mapstructure:"targets"`
	Pipeline   PipelineConfig   `mapstructure:"pipeline"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`

	// StartDate bounds the first incremental run of temporal replication
	// keys when no checkpoint exists yet. RFC 3339 timestamp or plain date.
	StartDate string `mapstructure:"start_date"`

	// StateFile seeds checkpoints on startup and receives them on
	// shutdown, enabling resumable extraction across runs.
	StateFile string `mapstructure:"state_file"`

	// StrictTypes disables the built-in type mapping rules; deployments
	// setting it must supply mappings externally, and any reach into the
	// base mapper is reported as an explicit error.
	StrictTypes bool `mapstructure:"strict_types"`
}

type ConnectionConfig struct {
	Driver   string            `mapstructure:"driver"`
	Host     string            `mapstructure:"host"`
	Port     int               `mapstructure:"port"`
	Database string            `mapstructure:"database"`
	User     string            `mapstructure:"user"`
	Password string            `mapstructure:"password"`
	Params   map[string]string `mapstructure:"params"`

	// MaxOpenConns bounds driver-side pooling explicitly when an external
	// orchestrator manages connection lifecycles. Zero leaves the driver
	// default in place.
	MaxOpenConns int `mapstructure:"max_open_conns"`
}

type StreamConfig struct {
	Name           string   `mapstructure:"name"`
	Schema         string   `mapstructure:"schema"`
	Table          string   `mapstructure:"table"`
	ReplicationKey string   `mapstructure:"replication_key"`
	Columns        []string `mapstructure:"columns"`
}

type TargetsConfig struct {
	ClickHouse []ClickHouseTarget `mapstructure:"clickhouse"`
}

type TargetBase struct {
	Name  string      `mapstructure:"name"`
	Retry RetryConfig `mapstructure:"retry"`
}

type ClickHouseTarget struct {
	TargetBase       `mapstructure:",squash"`
	ConnectionString string `mapstructure:"connection_string"`
}

type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	Backoff     time.Duration `mapstructure:"backoff"`
}

func (r *RetryConfig) setDefaults() {
	if r.MaxAttempts == 0 {
		r.MaxAttempts = 3
	}
	if r.Backoff == 0 {
		r.Backoff = 100 * time.Millisecond
	}
}

type PipelineConfig struct {
	BatchSize int `mapstructure:"batch_size"`
}

type TelemetryConfig struct {
	Address string `mapstructure:"address"`
}

func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("EXTRACTOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("connection.driver", DriverSQLServer)
	v.SetDefault("pipeline.batch_size", 1000)
	v.SetDefault("telemetry.address", ":9090")

	// Read config file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.Pipeline.BatchSize <= 0 {
		c.Pipeline.BatchSize = 1000
	}
	for i := range c.Targets.ClickHouse {
		c.Targets.ClickHouse[i].Retry.setDefaults()
	}
}

func (c *Config) Validate() error {
	switch c.Connection.Driver {
	case DriverSQLServer, DriverPostgres:
	case "":
		return errors.New("connection.driver is required")
	default:
		return fmt.Errorf("connection.driver %q is not supported (use %q or %q)",
			c.Connection.Driver, DriverSQLServer, DriverPostgres)
	}
	if c.Connection.Host == "" {
		return errors.New("connection.host is required")
	}
	if c.Connection.Database == "" {
		return errors.New("connection.database is required")
	}
	if c.Connection.User == "" {
		return errors.New("connection.user is required")
	}

	if len(c.Streams) == 0 {
		return errors.New("at least one stream must be defined")
	}
	for i, s := range c.Streams {
		if s.Name == "" {
			return fmt.Errorf("streams[%d].name is required", i)
		}
		if s.Table == "" {
			return fmt.Errorf("streams[%d].table is required", i)
		}
	}

	for i, t := range c.Targets.ClickHouse {
		if t.Name == "" {
			return fmt.Errorf("targets.clickhouse[%d].name is required", i)
		}
		if t.ConnectionString == "" {
			return fmt.Errorf("targets.clickhouse[%d].connection_string is required", i)
		}
	}

	if _, err := c.ParseStartDate(); err != nil {
		return err
	}

	return nil
}

// ParseStartDate resolves the configured start boundary. Zero time when
// unset.
func (c *Config) ParseStartDate() (time.Time, error) {
	if c.StartDate == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if ts, err := time.Parse(layout, c.StartDate); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("start_date %q is not an RFC 3339 timestamp or date", c.StartDate)
}
