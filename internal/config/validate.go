package config

import (
	"fmt"
	"strings"
)

// FieldError is a validation failure for one field.
type FieldError struct {
	// Field is the dotted YAML path, e.g. "compiler.max_depth".
	Field string

	Message string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError collects every field failure.
type ValidationError struct {
	Errors []FieldError
}

func (e ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "configuration validation failed with %d errors:\n", len(e.Errors))
	for _, err := range e.Errors {
		fmt.Fprintf(&sb, "  - %s\n", err.Error())
	}
	return sb.String()
}

// Validate checks a configuration after defaults are applied.
func Validate(cfg *Config) error {
	var errs []FieldError

	for i, p := range cfg.Catalog.Paths {
		if strings.TrimSpace(p) == "" {
			errs = append(errs, FieldError{fmt.Sprintf("catalog.paths[%d]", i), "must not be empty"})
		}
	}
	if cfg.Store.Path == "" {
		errs = append(errs, FieldError{"store.path", "must not be empty"})
	}
	switch cfg.Compiler.BinaryScope {
	case "isolated", "shared":
	default:
		errs = append(errs, FieldError{"compiler.binary_scope", fmt.Sprintf("must be isolated or shared, got %q", cfg.Compiler.BinaryScope)})
	}
	if cfg.Compiler.MaxDepth < 1 {
		errs = append(errs, FieldError{"compiler.max_depth", "must be positive"})
	}
	if cfg.Batch.Workers < 1 {
		errs = append(errs, FieldError{"batch.workers", "must be positive"})
	}
	switch strings.ToLower(cfg.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, FieldError{"log.level", fmt.Sprintf("must be debug, info, warn or error, got %q", cfg.Log.Level)})
	}
	switch cfg.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, FieldError{"log.format", fmt.Sprintf("must be text or json, got %q", cfg.Log.Format)})
	}

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}
