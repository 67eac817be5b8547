package config

import (
	"time"

	"github.com/skillsenselab/statekit/logger"
	"github.com/skillsenselab/statekit/util"
	"github.com/skillsenselab/statekit/validation"
)

// CacheConfig controls the resolved query-result cache.
type CacheConfig struct {
	// TTL is how long resolved query results stay cached. Zero means forever.
	TTL time.Duration `mapstructure:"ttl" json:"ttl" validate:"gte=0"`
	// CleanupInterval is how often expired entries are purged.
	CleanupInterval time.Duration `mapstructure:"cleanup_interval" json:"cleanup_interval" validate:"gte=0"`
}

// ObservabilityConfig controls OpenTelemetry export.
type ObservabilityConfig struct {
	// Enabled turns on trace and metric export.
	Enabled bool `mapstructure:"enabled" json:"enabled"`
	// ServiceName identifies this process in exported telemetry.
	ServiceName string `mapstructure:"service_name" json:"service_name"`
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string `mapstructure:"endpoint" json:"endpoint"`
	// Insecure allows insecure connections (for development).
	Insecure bool `mapstructure:"insecure" json:"insecure"`
	// SampleRate is the trace sampling rate (0.0 to 1.0).
	SampleRate float64 `mapstructure:"sample_rate" json:"sample_rate" validate:"gte=0,lte=1"`
	// Interval is the metric export interval.
	Interval time.Duration `mapstructure:"interval" json:"interval" validate:"gte=0"`
}

// EngineConfig is the full configuration for a statekit engine.
type EngineConfig struct {
	Logging       logger.Config       `mapstructure:"logging" json:"logging"`
	Cache         CacheConfig         `mapstructure:"cache" json:"cache"`
	Observability ObservabilityConfig `mapstructure:"observability" json:"observability"`
}

// ApplyDefaults fills unset fields with sensible defaults.
func (c *EngineConfig) ApplyDefaults() {
	c.Logging.ApplyDefaults()
	if c.Cache.CleanupInterval == 0 {
		c.Cache.CleanupInterval = 10 * time.Minute
	}
	c.Observability.ServiceName = util.Coalesce(c.Observability.ServiceName, "statekit")
	c.Observability.Endpoint = util.Coalesce(c.Observability.Endpoint, "localhost:4318")
	if c.Observability.SampleRate == 0 {
		c.Observability.SampleRate = 1.0
	}
	if c.Observability.Interval == 0 {
		c.Observability.Interval = 15 * time.Second
	}
}

// Validate checks the configuration for invalid values.
func (c *EngineConfig) Validate() error {
	return validation.Validate(c)
}

// Default returns a ready-to-use configuration with all defaults applied.
func Default() EngineConfig {
	var cfg EngineConfig
	cfg.ApplyDefaults()
	return cfg
}
