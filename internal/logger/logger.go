package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogConfig holds logging configuration
type LogConfig struct {
	Level      string // trace, debug, info, warn, error, disabled
	Format     string // json, console
	TimeFormat string // layout for the timestamp field
	Output     string // stdout, stderr, or file path
	NoColor    bool   // disable ANSI colors in console format
}

// DefaultConfig returns the configuration used when nothing else is set.
// Output goes to stderr so stdout stays free for extraction results.
func DefaultConfig() LogConfig {
	return LogConfig{
		Level:      "info",
		Format:     "console",
		TimeFormat: time.RFC3339,
		Output:     "stderr",
	}
}

// Setup initializes the global logger with the provided configuration.
// The returned closer releases a log file when Output is a path; it is a no-op otherwise.
func Setup(config LogConfig) (io.Closer, error) {
	if config.Level == "" {
		config.Level = "info"
	}
	level, err := zerolog.ParseLevel(strings.ToLower(config.Level))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", config.Level, err)
	}
	zerolog.SetGlobalLevel(level)

	var (
		output io.Writer
		closer io.Closer = nopCloser{}
	)
	switch config.Output {
	case "", "stderr":
		output = os.Stderr
	case "stdout":
		output = os.Stdout
	default:
		file, err := os.OpenFile(config.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		output = file
		closer = file
	}

	if strings.ToLower(config.Format) != "json" {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: config.TimeFormat,
			NoColor:    config.NoColor,
		}
	}

	if config.TimeFormat != "" {
		zerolog.TimeFieldFormat = config.TimeFormat
	}

	log.Logger = zerolog.New(output).With().
		Timestamp().
		Caller().
		Logger()

	return closer, nil
}

// WithComponent returns a logger with a component field
func WithComponent(component string) zerolog.Logger {
	return log.Logger.With().Str("component", component).Logger()
}

// WithRequestID returns a logger with a request ID field
func WithRequestID(requestID string) zerolog.Logger {
	return log.Logger.With().Str("request_id", requestID).Logger()
}

// WithDocument returns a component logger tagged with the document being processed.
func WithDocument(component, document, requestID string) zerolog.Logger {
	return log.Logger.With().
		Str("component", component).
		Str("document", document).
		Str("request_id", requestID).
		Logger()
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
