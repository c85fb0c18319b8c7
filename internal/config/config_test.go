package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	yaml := `
instance:
  id: test-instance
log:
  level: debug
  format: json
pool:
  max_tasks: 16
  retry_interval: 25ms
services:
  prime_time:
    enabled: true
    addr: 127.0.0.1
    port: 9001
  means_to_an_end:
    enabled: true
    port: 9002
    shared_ledger: true
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Instance.ID != "test-instance" {
		t.Errorf("Instance.ID = %q, want %q", cfg.Instance.ID, "test-instance")
	}
	if cfg.Log.Format != "json" {
		t.Errorf("Log.Format = %q, want %q", cfg.Log.Format, "json")
	}
	if cfg.Pool.MaxTasks != 16 {
		t.Errorf("Pool.MaxTasks = %d, want %d", cfg.Pool.MaxTasks, 16)
	}
	if cfg.Pool.RetryInterval != 25*time.Millisecond {
		t.Errorf("Pool.RetryInterval = %v, want %v", cfg.Pool.RetryInterval, 25*time.Millisecond)
	}
	if got := cfg.Services.PrimeTime.Address(); got != "127.0.0.1:9001" {
		t.Errorf("Services.PrimeTime.Address() = %q, want %q", got, "127.0.0.1:9001")
	}
	if !cfg.Services.MeansToAnEnd.Enabled || cfg.Services.MeansToAnEnd.Port != 9002 {
		t.Errorf("Services.MeansToAnEnd = %+v, want enabled on port 9002", cfg.Services.MeansToAnEnd)
	}
	if !cfg.Services.MeansToAnEnd.SharedLedger {
		t.Error("Services.MeansToAnEnd.SharedLedger = false, want true")
	}
	if cfg.Services.SmokeTest.Enabled {
		t.Error("Services.SmokeTest.Enabled = true, want false")
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_MEANS_PORT", "8123")

	yaml := `
services:
  means_to_an_end:
    enabled: true
    port: ${TEST_MEANS_PORT}
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Services.MeansToAnEnd.Port != 8123 {
		t.Errorf("Services.MeansToAnEnd.Port = %d, want %d", cfg.Services.MeansToAnEnd.Port, 8123)
	}
}

func TestLoadWithDotEnv(t *testing.T) {
	const key = "PROTOHACKERS_TEST_INSTANCE_ID"
	t.Cleanup(func() { os.Unsetenv(key) })

	path := writeTempFile(t, "instance:\n  id: ${"+key+"}\n")
	env := filepath.Join(filepath.Dir(path), ".env")
	if err := os.WriteFile(env, []byte(key+"=from-dotenv\n"), 0644); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Instance.ID != "from-dotenv" {
		t.Errorf("Instance.ID = %q, want %q", cfg.Instance.ID, "from-dotenv")
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil || !strings.Contains(err.Error(), "read config file") {
		t.Errorf("Load(missing) error = %v, want read config file error", err)
	}

	path := writeTempFile(t, "pool: [unclosed")
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "parse config yaml") {
		t.Errorf("Load(bad yaml) error = %v, want parse config yaml error", err)
	}
}

func TestLoadWithDefaults(t *testing.T) {
	yaml := `
services:
  means_to_an_end:
    enabled: true
`
	path := writeTempFile(t, yaml)

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	// Check defaults were applied
	if cfg.Instance.ID != DefaultInstanceID {
		t.Errorf("Instance.ID = %q, want default %q", cfg.Instance.ID, DefaultInstanceID)
	}
	if cfg.Pool.MaxTasks != DefaultMaxTasks {
		t.Errorf("Pool.MaxTasks = %d, want default %d", cfg.Pool.MaxTasks, DefaultMaxTasks)
	}
	if cfg.Pool.AllocRetries == nil || *cfg.Pool.AllocRetries != DefaultAllocRetries {
		t.Errorf("Pool.AllocRetries = %v, want default %d", cfg.Pool.AllocRetries, DefaultAllocRetries)
	}
	if cfg.Services.MeansToAnEnd.Address() != "0.0.0.0:7777" {
		t.Errorf("Services.MeansToAnEnd.Address() = %q, want %q", cfg.Services.MeansToAnEnd.Address(), "0.0.0.0:7777")
	}
	if cfg.Services.SmokeTest.Port != DefaultSmokeTestPort {
		t.Errorf("Services.SmokeTest.Port = %d, want default %d", cfg.Services.SmokeTest.Port, DefaultSmokeTestPort)
	}
	if cfg.Services.MeansToAnEnd.ReadBufferRecords != DefaultReadBufferRecords {
		t.Errorf("ReadBufferRecords = %d, want default %d", cfg.Services.MeansToAnEnd.ReadBufferRecords, DefaultReadBufferRecords)
	}
	if cfg.Metrics.Port != DefaultMetricsPort {
		t.Errorf("Metrics.Port = %d, want default %d", cfg.Metrics.Port, DefaultMetricsPort)
	}
	if cfg.Metrics.Enabled {
		t.Error("Metrics.Enabled = true, want false unless set")
	}
}

func TestLoadWithDefaultsKeepsZeroRetries(t *testing.T) {
	yaml := `
pool:
  alloc_retries: 0
services:
  means_to_an_end:
    enabled: true
`
	path := writeTempFile(t, yaml)

	cfg, err := LoadAndValidate(path)
	if err != nil {
		t.Fatalf("LoadAndValidate failed: %v", err)
	}
	if cfg.Pool.AllocRetries == nil || *cfg.Pool.AllocRetries != 0 {
		t.Errorf("Pool.AllocRetries = %v, want 0", cfg.Pool.AllocRetries)
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	if !cfg.Services.MeansToAnEnd.Enabled {
		t.Error("Services.MeansToAnEnd.Enabled = false, want true")
	}
	if cfg.Services.SmokeTest.Enabled || cfg.Services.PrimeTime.Enabled {
		t.Error("only the price ledger service should be enabled by default")
	}
	if !cfg.Metrics.Enabled {
		t.Error("Metrics.Enabled = false, want true")
	}
	if cfg.Services.MeansToAnEnd.SharedLedger {
		t.Error("Services.MeansToAnEnd.SharedLedger = true, want false")
	}
}

func TestLoadAndValidate(t *testing.T) {
	path := writeTempFile(t, "services:\n  smoke_test:\n    enabled: true\n    port: 70000\n")

	_, err := LoadAndValidate(path)
	if err == nil {
		t.Fatal("LoadAndValidate expected error, got nil")
	}
	want := "validate config: services.smoke_test.port must be between 1 and 65535, got 70000"
	if err.Error() != want {
		t.Errorf("LoadAndValidate error = %q, want %q", err.Error(), want)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "missing instance id",
			mutate:  func(c *Config) { c.Instance.ID = "" },
			wantErr: "instance.id is required",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Log.Level = "trace" },
			wantErr: `log.level must be one of debug, info, warn, error, got "trace"`,
		},
		{
			name:    "bad log format",
			mutate:  func(c *Config) { c.Log.Format = "xml" },
			wantErr: `log.format must be text or json, got "xml"`,
		},
		{
			name:    "zero max tasks",
			mutate:  func(c *Config) { c.Pool.MaxTasks = 0 },
			wantErr: "pool.max_tasks must be >= 1",
		},
		{
			name:    "negative retries",
			mutate:  func(c *Config) { retries := -1; c.Pool.AllocRetries = &retries },
			wantErr: "pool.alloc_retries must be >= 0",
		},
		{
			name:    "negative drain timeout",
			mutate:  func(c *Config) { c.Server.DrainTimeout = -time.Second },
			wantErr: "server.drain_timeout must be >= 0",
		},
		{
			name:    "means port out of range",
			mutate:  func(c *Config) { c.Services.MeansToAnEnd.Port = 70000 },
			wantErr: "services.means_to_an_end.port must be between 1 and 65535, got 70000",
		},
		{
			name:    "missing prime addr",
			mutate:  func(c *Config) { c.Services.PrimeTime.Addr = "" },
			wantErr: "services.prime_time.addr is required",
		},
		{
			name:    "zero read buffer",
			mutate:  func(c *Config) { c.Services.MeansToAnEnd.ReadBufferRecords = 0 },
			wantErr: "services.means_to_an_end.read_buffer_records must be >= 1",
		},
		{
			name:    "no services",
			mutate:  func(c *Config) { c.Services.MeansToAnEnd.Enabled = false },
			wantErr: "at least one service must be enabled",
		},
		{
			name:    "metrics path clash",
			mutate:  func(c *Config) { c.Metrics.Path = "/health" },
			wantErr: `metrics.path must start with / and differ from /health, got "/health"`,
		},
		{
			name:    "grpc port out of range",
			mutate:  func(c *Config) { c.Health.GRPCPort = -1 },
			wantErr: "health.grpc_port must be between 0 and 65535, got -1",
		},
		{
			name:    "valid config",
			mutate:  func(c *Config) {},
			wantErr: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
			} else {
				if err == nil {
					t.Errorf("Validate() expected error containing %q, got nil", tt.wantErr)
				} else if err.Error() != tt.wantErr {
					t.Errorf("Validate() error = %q, want %q", err.Error(), tt.wantErr)
				}
			}
		})
	}
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}
