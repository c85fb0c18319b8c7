package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultInstanceID        = "protohackers"
	DefaultLogLevel          = "info"
	DefaultLogFormat         = "text"
	DefaultLogMaxSizeMB      = 100
	DefaultLogMaxBackups     = 3
	DefaultLogMaxAgeDays     = 28
	DefaultMaxTasks          = 1024
	DefaultAllocRetries      = 5
	DefaultRetryInterval     = 10 * time.Millisecond
	DefaultBindAddr          = "0.0.0.0"
	DefaultSmokeTestPort     = 7000
	DefaultPrimeTimePort     = 7001
	DefaultMeansToAnEndPort  = 7777
	DefaultReadBufferRecords = 512
	DefaultMetricsPort       = 9090
	DefaultMetricsPath       = "/metrics"
)

// Default returns the configuration used when no file is given: the price
// ledger service alone, with metrics enabled.
func Default() *Config {
	cfg := &Config{}
	cfg.Services.MeansToAnEnd.Enabled = true
	cfg.Metrics.Enabled = true
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Instance.ID == "" {
		c.Instance.ID = DefaultInstanceID
	}

	// Log defaults
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
	if c.Log.MaxSizeMB == 0 {
		c.Log.MaxSizeMB = DefaultLogMaxSizeMB
	}
	if c.Log.MaxBackups == 0 {
		c.Log.MaxBackups = DefaultLogMaxBackups
	}
	if c.Log.MaxAgeDays == 0 {
		c.Log.MaxAgeDays = DefaultLogMaxAgeDays
	}

	// Pool defaults
	if c.Pool.MaxTasks == 0 {
		c.Pool.MaxTasks = DefaultMaxTasks
	}
	if c.Pool.AllocRetries == nil {
		retries := DefaultAllocRetries
		c.Pool.AllocRetries = &retries
	}
	if c.Pool.RetryInterval == 0 {
		c.Pool.RetryInterval = DefaultRetryInterval
	}

	// Service defaults
	applyServiceDefaults(&c.Services.SmokeTest, DefaultSmokeTestPort)
	applyServiceDefaults(&c.Services.PrimeTime, DefaultPrimeTimePort)
	applyServiceDefaults(&c.Services.MeansToAnEnd.ServiceConfig, DefaultMeansToAnEndPort)
	if c.Services.MeansToAnEnd.ReadBufferRecords == 0 {
		c.Services.MeansToAnEnd.ReadBufferRecords = DefaultReadBufferRecords
	}

	// Metrics defaults
	if c.Metrics.Port == 0 {
		c.Metrics.Port = DefaultMetricsPort
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
}

func applyServiceDefaults(s *ServiceConfig, port int) {
	if s.Addr == "" {
		s.Addr = DefaultBindAddr
	}
	if s.Port == 0 {
		s.Port = port
	}
}
