package logger

// Option defines a function to modify logger configuration
type Option func(*Config)

// WithLevel sets the log level
func WithLevel(level string) Option {
	return func(c *Config) {
		c.Level = level
	}
}

// WithFormat sets the log format (json or console)
func WithFormat(format string) Option {
	return func(c *Config) {
		c.Format = format
	}
}

// NewWithOptions creates a logger from DefaultConfig adjusted by opts
func NewWithOptions(opts ...Option) (*Logger, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return New(cfg)
}

// CLI returns a console logger for galleryctl
func CLI(verbose bool) (*Logger, error) {
	level := "info"
	if verbose {
		level = "debug"
	}
	return NewWithOptions(WithLevel(level), WithFormat("console"))
}
