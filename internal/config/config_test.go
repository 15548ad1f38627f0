package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "linql.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, "isolated", cfg.Compiler.BinaryScope)
	assert.Equal(t, 256, cfg.Compiler.MaxDepth)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
catalog:
  paths: [models.cue, /abs/other.cue]
store:
  path: data.db
compiler:
  binary_scope: shared
  max_depth: 32
batch:
  workers: 2
log:
  level: debug
  format: json
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{filepath.Join(filepath.Dir(path), "models.cue"), "/abs/other.cue"}, cfg.Catalog.Paths)
	assert.Equal(t, "data.db", cfg.Store.Path)
	assert.Equal(t, "shared", cfg.Compiler.BinaryScope)
	assert.Equal(t, 32, cfg.Compiler.MaxDepth)
	assert.Equal(t, 2, cfg.Batch.Workers)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, DefaultNamespace, cfg.Metrics.Namespace)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "compiler:\n  unknown_key: 1\n"))
	assert.Error(t, err, "unknown keys are rejected")

	_, err = Load(writeConfig(t, "compiler:\n  binary_scope: global\nbatch:\n  workers: -1\n"))
	var verr ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Errors, 2)
	assert.Equal(t, "compiler.binary_scope", verr.Errors[0].Field)
	assert.Equal(t, "batch.workers", verr.Errors[1].Field)
}

func TestEnvOverrides(t *testing.T) {
	env := map[string]string{
		"LINQL_STORE_PATH":            "env.db",
		"LINQL_COMPILER_BINARY_SCOPE": "shared",
		"LINQL_COMPILER_MAX_DEPTH":    "not-a-number",
		"LINQL_BATCH_WORKERS":         "16",
		"LINQL_CATALOG_PATHS":         "a.cue" + string(filepath.ListSeparator) + "b.cue",
	}
	cfg := Default()
	applyEnvOverrides(cfg, func(k string) string { return env[k] })

	assert.Equal(t, "env.db", cfg.Store.Path)
	assert.Equal(t, "shared", cfg.Compiler.BinaryScope)
	assert.Equal(t, DefaultMaxDepth, cfg.Compiler.MaxDepth, "malformed numbers are ignored")
	assert.Equal(t, 16, cfg.Batch.Workers)
	assert.Equal(t, []string{"a.cue", "b.cue"}, cfg.Catalog.Paths)
}

func TestLoad_EnvWins(t *testing.T) {
	t.Setenv("LINQL_LOG_LEVEL", "warn")
	cfg, err := Load(writeConfig(t, "log:\n  level: debug\n"))
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
}
