package mediator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/randalmurphal/mediator/pkg/mediator/config"
	"github.com/randalmurphal/mediator/pkg/mediator/journal"
	"github.com/randalmurphal/mediator/pkg/mediator/observability"
)

// DefaultMaxCascadeDepth bounds how deeply callbacks may nest engine calls.
const DefaultMaxCascadeDepth = 256

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder. Defaults to observability.NoopMetrics.
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(e *Engine) {
		if m != nil {
			e.metrics = m
		}
	}
}

// WithSpanManager sets the span manager. Defaults to observability.NoopSpanManager.
func WithSpanManager(sm observability.SpanManager) Option {
	return func(e *Engine) {
		if sm != nil {
			e.spans = sm
		}
	}
}

// WithJournal records engine activity to store.
// The engine closes the store when Close is called.
func WithJournal(store journal.Store) Option {
	return func(e *Engine) {
		e.journal = store
	}
}

// WithMaxCascadeDepth sets how many engine calls may be nested inside
// callbacks before further calls fail with ErrCascadeTooDeep.
// Default: DefaultMaxCascadeDepth. Values <= 0 are ignored.
func WithMaxCascadeDepth(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxDepth = n
		}
	}
}

// WithContext sets the root context for spans and metrics.
// Defaults to context.Background().
func WithContext(ctx context.Context) Option {
	return func(e *Engine) {
		if ctx != nil {
			e.rootCtx = ctx
		}
	}
}

// OptionsFromConfig translates configuration into engine options.
//
// Recognised keys:
//   - max_cascade_depth (int)
//   - metrics (bool): OTel metrics via the global meter provider
//   - tracing (bool): OTel spans via the global tracer provider
//   - journal.driver ("memory" or "sqlite")
//   - journal.path (string): SQLite database path, required for "sqlite"
//
// A journal opened here is owned by the engine and closed by Engine.Close.
func OptionsFromConfig(cfg config.Config) ([]Option, error) {
	var opts []Option

	if cfg.Has("max_cascade_depth") {
		depth := cfg.Int("max_cascade_depth", 0)
		if depth <= 0 {
			return nil, fmt.Errorf("max_cascade_depth must be a positive integer")
		}
		opts = append(opts, WithMaxCascadeDepth(depth))
	}

	if cfg.Bool("metrics", false) {
		opts = append(opts, WithMetrics(observability.NewMetricsRecorder()))
	}

	if cfg.Bool("tracing", false) {
		opts = append(opts, WithSpanManager(observability.NewSpanManager()))
	}

	switch driver := cfg.String("journal.driver", ""); driver {
	case "":
	case "memory":
		opts = append(opts, WithJournal(journal.NewMemoryStore()))
	case "sqlite":
		path := cfg.String("journal.path", "")
		if path == "" {
			return nil, fmt.Errorf("journal.path is required for the sqlite journal")
		}
		store, err := journal.NewSQLiteStore(path)
		if err != nil {
			return nil, fmt.Errorf("open journal: %w", err)
		}
		opts = append(opts, WithJournal(store))
	default:
		return nil, fmt.Errorf("unknown journal driver: %s", driver)
	}

	return opts, nil
}

// NewFromConfig creates an engine configured by cfg, then applies opts.
func NewFromConfig(cfg config.Config, opts ...Option) (*Engine, error) {
	cfgOpts, err := OptionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	return New(append(cfgOpts, opts...)...), nil
}
