// Package log provides the structured loggers shared by the vault engine.
package log

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the global logger instance.
var Logger zerolog.Logger

// Component loggers.
var (
	Vault    zerolog.Logger
	Keyring  zerolog.Logger
	Indexer  zerolog.Logger
	Keystore zerolog.Logger
	Chain    zerolog.Logger
)

func init() {
	// stdout belongs to command output.
	Logger = NewConsoleLogger(os.Stderr, "info")
	initComponentLoggers()
}

// Init configures the global logger. When file is non-empty, logs go to
// both stderr and the file; the file always receives JSON.
func Init(level string, jsonOutput bool, file string) error {
	var console io.Writer = os.Stderr
	if !jsonOutput {
		console = consoleWriter(os.Stderr)
	}

	switch {
	case file != "":
		f, err := os.OpenFile(file, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
		if err != nil {
			return err
		}
		Logger = newLogger(zerolog.MultiLevelWriter(console, f), level)
	default:
		Logger = newLogger(console, level)
	}

	initComponentLoggers()
	return nil
}

func consoleWriter(w io.Writer) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
}

func newLogger(w io.Writer, level string) zerolog.Logger {
	return zerolog.New(w).Level(ParseLevel(level)).With().Timestamp().Logger()
}

// NewConsoleLogger creates a colored console logger.
func NewConsoleLogger(w io.Writer, level string) zerolog.Logger {
	return newLogger(consoleWriter(w), level)
}

// NewJSONLogger creates a structured JSON logger.
func NewJSONLogger(w io.Writer, level string) zerolog.Logger {
	return newLogger(w, level)
}

// ParseLevel converts a level name to a zerolog level. Unknown names map
// to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// SetLogger replaces the global logger. Used by tests to capture output.
func SetLogger(l zerolog.Logger) {
	Logger = l
	initComponentLoggers()
}

func initComponentLoggers() {
	Vault = WithComponent("vault")
	Keyring = WithComponent("keyring")
	Indexer = WithComponent("indexer")
	Keystore = WithComponent("keystore")
	Chain = WithComponent("chain")
}

// WithComponent returns a logger with a component field.
func WithComponent(name string) zerolog.Logger {
	return Logger.With().Str("component", name).Logger()
}

// WithChain returns the vault logger tagged with a chain name.
func WithChain(chain string) zerolog.Logger {
	return Vault.With().Str("chain", chain).Logger()
}

// Timer logs the duration of an operation at debug level when the
// returned func is called.
func Timer(l zerolog.Logger, op string) func() {
	start := time.Now()
	return func() {
		l.Debug().Str("op", op).Dur("took", time.Since(start)).Msg("timing")
	}
}
