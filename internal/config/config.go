package config

import (
	"net"
	"strconv"
	"time"
)

// Config is the root configuration.
type Config struct {
	Instance InstanceConfig `yaml:"instance"`
	Log      LogConfig      `yaml:"log"`
	Pool     PoolConfig     `yaml:"pool"`
	Server   ServerConfig   `yaml:"server"`
	Services ServicesConfig `yaml:"services"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Health   HealthConfig   `yaml:"health"`
}

// InstanceConfig identifies this process.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level      string `yaml:"level"`  // debug, info, warn or error
	Format     string `yaml:"format"` // text or json
	File       string `yaml:"file"`   // Rotated log file, disabled when empty
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// PoolConfig holds worker pool settings. Each service gets its own pool.
type PoolConfig struct {
	MaxTasks      int           `yaml:"max_tasks"`
	AllocRetries  *int          `yaml:"alloc_retries"` // nil uses the default; 0 fails fast
	RetryInterval time.Duration `yaml:"retry_interval"`
}

// ServerConfig holds accept loop settings.
type ServerConfig struct {
	DrainTimeout time.Duration `yaml:"drain_timeout"` // 0 waits forever
}

// ServicesConfig lists the TCP services.
type ServicesConfig struct {
	SmokeTest    ServiceConfig `yaml:"smoke_test"`
	PrimeTime    ServiceConfig `yaml:"prime_time"`
	MeansToAnEnd MeansConfig   `yaml:"means_to_an_end"`
}

// ServiceConfig holds the listener settings of one service.
type ServiceConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Port    int    `yaml:"port"`
}

// Address returns the host:port to listen on.
func (s ServiceConfig) Address() string {
	return net.JoinHostPort(s.Addr, strconv.Itoa(s.Port))
}

// MeansConfig holds the price ledger service settings.
type MeansConfig struct {
	ServiceConfig     `yaml:",inline"`
	ReadBufferRecords int  `yaml:"read_buffer_records"`
	SharedLedger      bool `yaml:"shared_ledger"`
}

// MetricsConfig holds Prometheus metrics and HTTP health settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    int    `yaml:"port"`
	Path    string `yaml:"path"`
}

// HealthConfig holds the gRPC health service settings.
type HealthConfig struct {
	GRPCPort int `yaml:"grpc_port"` // 0 disables the gRPC health server
}
