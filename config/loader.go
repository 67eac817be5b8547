package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// LoaderConfig holds optional file overrides for Load.
type LoaderConfig struct {
	// ConfigFile is an explicit config file path (optional).
	ConfigFile string
	// EnvFile is an explicit .env file path (optional).
	EnvFile string
	// EnvPrefix namespaces environment variables (default "STATEKIT").
	EnvPrefix string
}

// LoaderOption is a functional option for Load.
type LoaderOption func(*LoaderConfig)

// WithConfigFile sets an explicit config file path.
func WithConfigFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.ConfigFile = path }
}

// WithEnvFile sets an explicit .env file path.
func WithEnvFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvFile = path }
}

// WithEnvPrefix sets the environment variable prefix.
func WithEnvPrefix(prefix string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvPrefix = prefix }
}

// Load reads engine configuration from config files, .env files, and the
// environment, applies defaults, and validates the result.
func Load(opts ...LoaderOption) (EngineConfig, error) {
	var lc LoaderConfig
	for _, opt := range opts {
		opt(&lc)
	}
	if lc.EnvPrefix == "" {
		lc.EnvPrefix = "STATEKIT"
	}

	var cfg EngineConfig

	// 1. Load the .env file so its variables participate in env binding.
	envFile := lc.EnvFile
	if envFile == "" {
		envFile = findFile(".env")
	}
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			fmt.Fprintf(os.Stderr, "[config] warning: failed to load .env file %s: %v\n", envFile, err)
		}
	}

	v := viper.New()

	// 2. Load the YAML config file (base configuration).
	configFile := lc.ConfigFile
	if configFile == "" {
		configFile = findFile("statekit.yml", "config/statekit.yml", "config.yml")
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return cfg, fmt.Errorf("reading config file %s: %w", configFile, err)
		}
	}

	// 3. Environment variables override file values.
	v.SetEnvPrefix(lc.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvKeys(v)

	// 4. Unmarshal, default, validate.
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("unmarshaling engine config: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// bindEnvKeys registers every known config key with viper so AutomaticEnv
// can find them even when no config file supplied the key.
func bindEnvKeys(v *viper.Viper) {
	keys := []string{
		"logging.level", "logging.format", "logging.output",
		"logging.no_color", "logging.timestamp",
		"cache.ttl", "cache.cleanup_interval",
		"observability.enabled", "observability.service_name",
		"observability.endpoint", "observability.insecure",
		"observability.sample_rate", "observability.interval",
	}
	for _, key := range keys {
		// BindEnv only errors on an empty key.
		_ = v.BindEnv(key)
	}
}

// findFile returns the first existing path from candidates, or "".
func findFile(candidates ...string) string {
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
