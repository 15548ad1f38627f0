package cli

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/linql/internal/batch"
	"github.com/roach88/linql/internal/catalog"
	"github.com/roach88/linql/internal/compiler"
	"github.com/roach88/linql/internal/metrics"
	"github.com/roach88/linql/internal/store"
)

// env is the wiring a command needs: catalog, compiler, metrics and,
// when requested, the store and batch executor.
type env struct {
	catalog  *catalog.Catalog
	compiler *compiler.Compiler
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	store    *store.Store
	executor *batch.Executor
}

// setup ensures configuration is loaded. Commands built directly,
// without the root command, load it on first use.
func (o *RootOptions) setup(cmd *cobra.Command) error {
	if o.Config != nil {
		return nil
	}
	return o.load(cmd.ErrOrStderr())
}

// openEnv builds the command environment. The store is opened only when
// withStore is set; callers must Close the result.
func (o *RootOptions) openEnv(cmd *cobra.Command, withStore bool) (*env, error) {
	if err := o.setup(cmd); err != nil {
		return nil, err
	}
	cfg := o.Config

	if len(cfg.Catalog.Paths) == 0 {
		return nil, setupError(ErrCodeCatalog, fmt.Errorf("no catalog paths configured (set catalog.paths or --catalog)"))
	}
	cat, err := catalog.Load(cfg.Catalog.Paths, catalog.WithLogger(o.Logger))
	if err != nil {
		return nil, setupError(ErrCodeCatalog, fmt.Errorf("failed to load catalog: %w", err))
	}

	scope, err := compiler.ParseBinaryScope(cfg.Compiler.BinaryScope)
	if err != nil {
		return nil, setupError(ErrCodeConfig, err)
	}

	e := &env{catalog: cat, registry: prometheus.NewRegistry()}
	e.metrics = metrics.New(cfg.Metrics.Namespace, e.registry)
	e.compiler = compiler.New(cat,
		compiler.WithBinaryScope(scope),
		compiler.WithMaxDepth(cfg.Compiler.MaxDepth),
		compiler.WithLogger(o.Logger),
		compiler.WithMetrics(e.metrics),
	)

	if !withStore {
		return e, nil
	}

	st, err := store.Open(cfg.Store.Path, store.WithLogger(o.Logger))
	if err != nil {
		return nil, setupError(ErrCodeStore, err)
	}
	e.store = st
	e.executor = batch.New(e.compiler, st,
		batch.WithWorkers(cfg.Batch.Workers),
		batch.WithLogger(o.Logger),
		batch.WithMetrics(e.metrics),
	)
	return e, nil
}

func (e *env) Close() error {
	if e.store != nil {
		return e.store.Close()
	}
	return nil
}

// setupError tags an environment failure with its CLI code. The code
// travels as the ExitError message so envFailure can recover it.
func setupError(code string, err error) *ExitError {
	return WrapExitError(ExitCommandError, code, err)
}

// envFailure reports a setup failure and returns the command error.
func envFailure(f *OutputFormatter, err error) error {
	var ee *ExitError
	if errors.As(err, &ee) && ee.Err != nil {
		return f.Fail(ExitCommandError, ee.Message, ee.Err)
	}
	return f.Fail(ExitCommandError, ErrCodeGeneric, err)
}
