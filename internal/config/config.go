// Package config loads linql settings from YAML.
//
// Loading reads the file, applies defaults, applies LINQL_* environment
// overrides and validates the result. Every field is optional; an empty
// file yields the defaults.
//
// Example:
//
//	catalog:
//	  paths: [schema/models.cue]
//	store:
//	  path: data/linql.db
//	compiler:
//	  binary_scope: isolated
//	  max_depth: 256
//	batch:
//	  workers: 8
//	log:
//	  level: info
//	  format: text
//	metrics:
//	  namespace: linql
package config

// Config is the root configuration.
type Config struct {
	Catalog  CatalogConfig  `yaml:"catalog"`
	Store    StoreConfig    `yaml:"store"`
	Compiler CompilerConfig `yaml:"compiler"`
	Batch    BatchConfig    `yaml:"batch"`
	Log      LogConfig      `yaml:"log"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// CatalogConfig lists the CUE files or directories defining namespaces.
// Namespaces are registered in list order, which is also the order type
// names are searched in.
type CatalogConfig struct {
	Paths []string `yaml:"paths"`
}

// StoreConfig locates the SQLite database.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// CompilerConfig tunes compilation.
type CompilerConfig struct {
	// BinaryScope is "isolated" or "shared".
	BinaryScope string `yaml:"binary_scope"`

	// MaxDepth bounds expression tree nesting.
	MaxDepth int `yaml:"max_depth"`
}

// BatchConfig sizes the batch worker pool.
type BatchConfig struct {
	Workers int `yaml:"workers"`
}

// LogConfig selects log level and handler.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `yaml:"level"`

	// Format is text or json.
	Format string `yaml:"format"`
}

// MetricsConfig names the Prometheus namespace.
type MetricsConfig struct {
	Namespace string `yaml:"namespace"`
}
