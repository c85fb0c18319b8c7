package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error, got %q", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	if c.Log.MaxSizeMB < 0 {
		return errors.New("log.max_size_mb must be >= 0")
	}

	if c.Pool.MaxTasks < 1 {
		return errors.New("pool.max_tasks must be >= 1")
	}
	if c.Pool.AllocRetries != nil && *c.Pool.AllocRetries < 0 {
		return errors.New("pool.alloc_retries must be >= 0")
	}
	if c.Pool.RetryInterval < 0 {
		return errors.New("pool.retry_interval must be >= 0")
	}

	if c.Server.DrainTimeout < 0 {
		return errors.New("server.drain_timeout must be >= 0")
	}

	if err := c.Services.SmokeTest.validate("services.smoke_test"); err != nil {
		return err
	}
	if err := c.Services.PrimeTime.validate("services.prime_time"); err != nil {
		return err
	}
	if err := c.Services.MeansToAnEnd.validate("services.means_to_an_end"); err != nil {
		return err
	}
	if c.Services.MeansToAnEnd.ReadBufferRecords < 1 {
		return errors.New("services.means_to_an_end.read_buffer_records must be >= 1")
	}
	if !c.Services.SmokeTest.Enabled && !c.Services.PrimeTime.Enabled && !c.Services.MeansToAnEnd.Enabled {
		return errors.New("at least one service must be enabled")
	}

	if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
		return fmt.Errorf("metrics.port must be between 1 and 65535, got %d", c.Metrics.Port)
	}
	if !strings.HasPrefix(c.Metrics.Path, "/") || c.Metrics.Path == "/health" {
		return fmt.Errorf("metrics.path must start with / and differ from /health, got %q", c.Metrics.Path)
	}

	if c.Health.GRPCPort < 0 || c.Health.GRPCPort > 65535 {
		return fmt.Errorf("health.grpc_port must be between 0 and 65535, got %d", c.Health.GRPCPort)
	}

	return nil
}

func (s *ServiceConfig) validate(prefix string) error {
	if s.Addr == "" {
		return fmt.Errorf("%s.addr is required", prefix)
	}
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("%s.port must be between 1 and 65535, got %d", prefix, s.Port)
	}
	return nil
}
