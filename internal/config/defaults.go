package config

// Default values for configuration fields.
const (
	DefaultStorePath   = "linql.db"
	DefaultBinaryScope = "isolated"
	DefaultMaxDepth    = 256
	DefaultWorkers     = 4
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "text"
	DefaultNamespace   = "linql"
)

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills zero-valued fields.
func ApplyDefaults(cfg *Config) {
	if cfg.Store.Path == "" {
		cfg.Store.Path = DefaultStorePath
	}
	if cfg.Compiler.BinaryScope == "" {
		cfg.Compiler.BinaryScope = DefaultBinaryScope
	}
	if cfg.Compiler.MaxDepth == 0 {
		cfg.Compiler.MaxDepth = DefaultMaxDepth
	}
	if cfg.Batch.Workers == 0 {
		cfg.Batch.Workers = DefaultWorkers
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultNamespace
	}
}
