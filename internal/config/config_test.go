package config

import (
	"os"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	// Create a temporary config file
	configContent := `
connection:
  driver: "sqlserver"
  host: "db.internal"
  port: 1433
  database: "sales"
  user: "extractor"
  password: "secret"
  max_open_conns: 1

start_date: "2024-01-01"
state_file: "/var/lib/extractor/state.json"

streams:
  - name: "orders"
    schema: "dbo"
    table: "orders"
    replication_key: "updated_at"
  - name: "customers"
    table: "customers"

targets:
  clickhouse:
    - name: "ch1"
      connection_string: "clickhouse://localhost:9000"
      retry:
        max_attempts: 5
        backoff: 200ms

pipeline:
  batch_size: 500
`
	tmpFile, err := os.CreateTemp("", "config-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(tmpFile.Name())

	if _, err := tmpFile.WriteString(configContent); err != nil {
		t.Fatal(err)
	}
	tmpFile.Close()

	cfg, err := Load(tmpFile.Name())
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	// Validate connection
	if cfg.Connection.Host != "db.internal" {
		t.Errorf("Expected host 'db.internal', got %s", cfg.Connection.Host)
	}
	if cfg.Connection.MaxOpenConns != 1 {
		t.Errorf("Expected max_open_conns 1, got %d", cfg.Connection.MaxOpenConns)
	}

	// Validate streams
	if len(cfg.Streams) != 2 {
		t.Fatalf("Expected 2 streams, got %d", len(cfg.Streams))
	}
	if cfg.Streams[0].ReplicationKey != "updated_at" {
		t.Errorf("Expected replication_key 'updated_at', got %s", cfg.Streams[0].ReplicationKey)
	}
	if cfg.Streams[1].ReplicationKey != "" {
		t.Errorf("Expected no replication_key, got %s", cfg.Streams[1].ReplicationKey)
	}

	// Validate targets
	if len(cfg.Targets.ClickHouse) != 1 {
		t.Fatalf("Expected 1 clickhouse target, got %d", len(cfg.Targets.ClickHouse))
	}
	if cfg.Targets.ClickHouse[0].Retry.MaxAttempts != 5 {
		t.Errorf("Expected max_attempts 5, got %d", cfg.Targets.ClickHouse[0].Retry.MaxAttempts)
	}

	if cfg.Pipeline.BatchSize != 500 {
		t.Errorf("Expected batch_size 500, got %d", cfg.Pipeline.BatchSize)
	}

	ts, err := cfg.ParseStartDate()
	if err != nil {
		t.Fatalf("ParseStartDate failed: %v", err)
	}
	if ts.IsZero() {
		t.Error("Expected non-zero start date")
	}
}

func validConfig() Config {
	return Config{
		Connection: ConnectionConfig{
			Driver:   DriverSQLServer,
			Host:     "db.internal",
			Database: "sales",
			User:     "extractor",
		},
		Streams: []StreamConfig{
			{Name: "orders", Table: "orders"},
		},
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError bool
	}{
		{
			name:        "valid config",
			mutate:      func(c *Config) {},
			expectError: false,
		},
		{
			name:        "missing host",
			mutate:      func(c *Config) { c.Connection.Host = "" },
			expectError: true,
		},
		{
			name:        "missing database",
			mutate:      func(c *Config) { c.Connection.Database = "" },
			expectError: true,
		},
		{
			name:        "missing user",
			mutate:      func(c *Config) { c.Connection.User = "" },
			expectError: true,
		},
		{
			name:        "unknown driver",
			mutate:      func(c *Config) { c.Connection.Driver = "oracle" },
			expectError: true,
		},
		{
			name:        "no streams",
			mutate:      func(c *Config) { c.Streams = nil },
			expectError: true,
		},
		{
			name:        "stream missing table",
			mutate:      func(c *Config) { c.Streams[0].Table = "" },
			expectError: true,
		},
		{
			name: "clickhouse target missing connection string",
			mutate: func(c *Config) {
				c.Targets.ClickHouse = []ClickHouseTarget{{TargetBase: TargetBase{Name: "ch1"}}}
			},
			expectError: true,
		},
		{
			name:        "bad start date",
			mutate:      func(c *Config) { c.StartDate = "yesterday" },
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.expectError && err == nil {
				t.Error("Expected validation error, got nil")
			}
			if !tt.expectError && err != nil {
				t.Errorf("Expected no error, got: %v", err)
			}
		})
	}
}
