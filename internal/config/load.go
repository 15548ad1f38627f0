package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes environment overrides, e.g. LINQL_STORE_PATH.
const EnvPrefix = "LINQL_"

// Load reads the YAML file at path, applies defaults and environment
// overrides, and validates the result. An empty path loads defaults plus
// overrides. Relative catalog paths are resolved against the file's
// directory.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
		}
		if err := Parse(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
		}
		base := filepath.Dir(path)
		for i, p := range cfg.Catalog.Paths {
			if !filepath.IsAbs(p) {
				cfg.Catalog.Paths[i] = filepath.Join(base, p)
			}
		}
	}

	ApplyDefaults(&cfg)
	applyEnvOverrides(&cfg, os.Getenv)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Parse decodes YAML into cfg. Unknown keys are rejected.
func Parse(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// applyEnvOverrides applies LINQL_SECTION_FIELD variables. Malformed
// numbers are ignored. LINQL_CATALOG_PATHS is a list separated by the OS
// path list separator.
func applyEnvOverrides(cfg *Config, getenv func(string) string) {
	if val := getenv(EnvPrefix + "CATALOG_PATHS"); val != "" {
		cfg.Catalog.Paths = filepath.SplitList(val)
	}
	if val := getenv(EnvPrefix + "STORE_PATH"); val != "" {
		cfg.Store.Path = val
	}
	if val := getenv(EnvPrefix + "COMPILER_BINARY_SCOPE"); val != "" {
		cfg.Compiler.BinaryScope = val
	}
	if val := getenv(EnvPrefix + "COMPILER_MAX_DEPTH"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Compiler.MaxDepth = i
		}
	}
	if val := getenv(EnvPrefix + "BATCH_WORKERS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Batch.Workers = i
		}
	}
	if val := getenv(EnvPrefix + "LOG_LEVEL"); val != "" {
		cfg.Log.Level = val
	}
	if val := getenv(EnvPrefix + "LOG_FORMAT"); val != "" {
		cfg.Log.Format = val
	}
	if val := getenv(EnvPrefix + "METRICS_NAMESPACE"); val != "" {
		cfg.Metrics.Namespace = val
	}
}
