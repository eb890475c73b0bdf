// Package log provides structured logging for flume components.
//
// The Logger interface is a thin, field-based surface bridged onto
// log/slog. Callers construct one logger at the entry point and pass it
// down explicitly:
//
//	logger := log.NewLogger(
//	    log.WithLevel(log.InfoLevel),
//	    log.WithFormatter(&log.TextFormatter{}),
//	    log.WithOutput(log.NewConsoleOutput()),
//	)
//	logger.Info("queue opened", log.Str("queue", "orders"))
//
// RedirectStdLog routes standard-library log output (used by Pebble)
// through the same pipeline.
package log
