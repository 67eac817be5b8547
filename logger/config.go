package logger

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level (trace, debug, info, warn, error).
	Level string `mapstructure:"level" json:"level"`
	// Format selects the output format: "json" or "console".
	Format string `mapstructure:"format" json:"format"`
	// Output selects the destination: "stdout" or "stderr".
	Output string `mapstructure:"output" json:"output"`
	// NoColor disables ANSI colors in console format.
	NoColor bool `mapstructure:"no_color" json:"no_color"`
	// Timestamp enables timestamps on every event.
	Timestamp bool `mapstructure:"timestamp" json:"timestamp"`
}

// ApplyDefaults fills unset fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "console"
	}
	if c.Output == "" {
		c.Output = "stderr"
	}
}
