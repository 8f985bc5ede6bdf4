// Package obslog is the engine's structured logger, grounded on
// jhkimqd-chaos-utils/pkg/reporting/logger.go's zerolog-based Logger
// conventions. The three call sites that matter to this engine map
// directly onto the error taxonomy: user input errors are returned
// (never logged-and-continued), semantic incompleteness errors are
// returned from the query that discovered them, and operational
// warnings (unused configuration keys, evidence making a Layer 3
// participant unsatisfiable) are Warn() calls that do not abort the
// query.
package obslog

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/dflrisk/odfengine/config"
)

// Logger wraps a zerolog.Logger with the fixed field vocabulary this
// engine's call sites use (query index, node name, formula text).
type Logger struct {
	logger zerolog.Logger
}

// New builds a Logger from cfg writing to out, defaulting to stdout when
// out is nil.
func New(cfg config.LoggingConfig, out io.Writer) *Logger {
	if out == nil {
		out = os.Stdout
	}

	var output io.Writer = out
	if cfg.Format != "json" {
		output = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
			NoColor:    false,
		}
	}

	zlog := zerolog.New(output).With().Timestamp().Logger()
	zlog = zlog.Level(parseLevel(cfg.Level))
	return &Logger{logger: zlog}
}

func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Info logs an informational message, e.g. a query's reconstructed
// header or a Layer 2 probability readout.
func (l *Logger) Info(msg string, fields map[string]any) {
	event := l.logger.Info()
	addFields(event, fields)
	event.Msg(msg)
}

// Warn logs an operational warning that does not abort the query it
// came from (an ignored or unused configuration entry, evidence that
// makes a participant unsatisfiable).
func (l *Logger) Warn(msg string, fields map[string]any) {
	event := l.logger.Warn()
	addFields(event, fields)
	event.Msg(msg)
}

// Error logs a query failure after it has already been classified into
// an exit code; it never aborts the process itself.
func (l *Logger) Error(msg string, fields map[string]any) {
	event := l.logger.Error()
	addFields(event, fields)
	event.Msg(msg)
}

// WithField returns a child Logger carrying one extra structured field,
// for tagging every message inside one query's evaluation with its index.
func (l *Logger) WithField(key string, value any) *Logger {
	return &Logger{logger: l.logger.With().Interface(key, value).Logger()}
}

func addFields(event *zerolog.Event, fields map[string]any) {
	for k, v := range fields {
		event.Interface(k, v)
	}
}
