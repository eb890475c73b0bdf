package log

import (
	stdlog "log"
	"strings"
)

// stdlogWriter adapts standard-library log output into a Logger at Info
// level. Pebble and other embedded code log through the stdlib by default.
type stdlogWriter struct {
	logger Logger
}

func (w stdlogWriter) Write(p []byte) (int, error) {
	msg := strings.TrimRight(string(p), "\n")
	if msg != "" {
		w.logger.Info(msg, Str("source", "stdlog"))
	}
	return len(p), nil
}

// RedirectStdLog routes the standard library's default logger through the
// provided Logger. Timestamps are stripped since the pipeline adds its own.
func RedirectStdLog(logger Logger) {
	stdlog.SetFlags(0)
	stdlog.SetOutput(stdlogWriter{logger: logger})
}
