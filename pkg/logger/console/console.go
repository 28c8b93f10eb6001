package console

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

// ConsoleLogger implements LoggerInstance using charmbracelet/log for console output.
type ConsoleLogger struct {
	logger *log.Logger
}

// ConsoleLoggerParams contains configuration for creating a ConsoleLogger.
//
// Format selects the line format: "text" (default), "json" or "logfmt".
// Output defaults to stderr.
type ConsoleLoggerParams struct {
	Debug  bool
	Format string
	Prefix string
	Output io.Writer
}

func formatter(name string) log.Formatter {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "json":
		return log.JSONFormatter
	case "logfmt":
		return log.LogfmtFormatter
	default:
		return log.TextFormatter
	}
}

// NewConsoleLogger creates a new console logger.
func NewConsoleLogger(params ConsoleLoggerParams) *ConsoleLogger {
	level := log.InfoLevel
	if params.Debug {
		level = log.DebugLevel
	}
	out := params.Output
	if out == nil {
		out = os.Stderr
	}
	logger := log.NewWithOptions(out, log.Options{
		ReportTimestamp: true,
		Level:           level,
		Prefix:          params.Prefix,
		Formatter:       formatter(params.Format),
	})
	return &ConsoleLogger{
		logger: logger,
	}
}

// Log writes a message at the default level.
func (c *ConsoleLogger) Log(message string, keyvals ...any) {
	c.logger.Print(message, keyvals...)
}

// Info writes a message at INFO level.
func (c *ConsoleLogger) Info(message string, keyvals ...any) {
	c.logger.Info(message, keyvals...)
}

// Warn writes a message at WARN level.
func (c *ConsoleLogger) Warn(message string, keyvals ...any) {
	c.logger.Warn(message, keyvals...)
}

// Error writes a message at ERROR level.
func (c *ConsoleLogger) Error(message string, keyvals ...any) {
	c.logger.Error(message, keyvals...)
}

// Debug writes a message at DEBUG level.
func (c *ConsoleLogger) Debug(message string, keyvals ...any) {
	c.logger.Debug(message, keyvals...)
}

// Fatal writes a message at FATAL level and terminates the program.
func (c *ConsoleLogger) Fatal(message string, keyvals ...any) {
	c.logger.Fatal(message, keyvals...)
}
