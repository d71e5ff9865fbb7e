// Package observability provides structured logging, metrics and tracing
// for the mediator engine.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger adds connection context to a logger.
// Returns a new logger with ref and names fields.
//
// Example:
//
//	enriched := EnrichLogger(logger, "conn-123", []string{"Router", "Store"})
//	enriched.Debug("resolving") // includes ref, names
func EnrichLogger(logger *slog.Logger, ref string, names []string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("ref", ref),
		slog.Any("names", names),
	)
}

// LogRegistered logs a successful registration.
func LogRegistered(logger *slog.Logger, name, kind string, size int) {
	if logger == nil {
		return
	}
	logger.Debug("name registered",
		slog.String("name", name),
		slog.String("kind", kind),
		slog.Int("size", size),
	)
}

// LogConnectDeferred logs a connection that is waiting on missing names.
func LogConnectDeferred(logger *slog.Logger, ref string, remaining []string) {
	if logger == nil {
		return
	}
	logger.Debug("connection deferred",
		slog.String("ref", ref),
		slog.Any("remaining", remaining),
	)
}

// LogResolved logs a connection whose names are all present.
func LogResolved(logger *slog.Logger, ref string, names []string, waited time.Duration) {
	if logger == nil {
		return
	}
	logger.Debug("connection resolved",
		slog.String("ref", ref),
		slog.Any("names", names),
		slog.Float64("waited_ms", float64(waited.Microseconds())/1000),
	)
}

// LogSubscribed logs a new broadcast subscription and the size of its replay.
func LogSubscribed(logger *slog.Logger, ref, filter string, replayed int) {
	if logger == nil {
		return
	}
	logger.Debug("subscription added",
		slog.String("ref", ref),
		slog.String("filter", filter),
		slog.Int("replayed", replayed),
	)
}

// LogGrouped logs the registration of a group.
func LogGrouped(logger *slog.Logger, name string, members []string) {
	if logger == nil {
		return
	}
	logger.Debug("group registered",
		slog.String("name", name),
		slog.Any("members", members),
	)
}

// LogInstanceWait warns about a connection waiting on an instance name.
// Registering instances never resolves connections, so the wait can only end
// if the caller made a mistake elsewhere.
func LogInstanceWait(logger *slog.Logger, ref string, names []string) {
	if logger == nil {
		return
	}
	logger.Warn("connection waits on instance names that are not registered",
		slog.String("ref", ref),
		slog.Any("instances", names),
	)
}

// LogJournalError logs journal failure (non-fatal).
func LogJournalError(logger *slog.Logger, op string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("journal append failed",
		slog.String("operation", op),
		slog.String("error", err.Error()),
	)
}

// LogRejected logs an operation rejected with an error.
func LogRejected(logger *slog.Logger, op string, err error) {
	if logger == nil {
		return
	}
	logger.Debug("operation rejected",
		slog.String("operation", op),
		slog.String("error", err.Error()),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time.
//
// Example:
//
//	done := TimedOperation()
//	// ... do work ...
//	elapsed := done()
func TimedOperation() func() time.Duration {
	start := time.Now()
	return func() time.Duration {
		return time.Since(start)
	}
}
