// Package output provides terminal output utilities.
package output

import (
	"os"

	"github.com/charmbracelet/log"
)

// LogConfig controls logger construction.
type LogConfig struct {
	// Verbose enables debug level and caller reporting, and forces timestamps on.
	Verbose bool

	// Timestamps overrides the default (on). Nil keeps the default.
	Timestamps *bool
}

// logger is the global logger instance.
var logger = log.NewWithOptions(os.Stderr, log.Options{
	ReportTimestamp: true,
	TimeFormat:      "15:04:05",
})

// SetupLogging configures the global logger.
func SetupLogging(cfg LogConfig) {
	level := log.InfoLevel
	if cfg.Verbose {
		level = log.DebugLevel
	}

	timestamps := true
	if cfg.Timestamps != nil {
		timestamps = *cfg.Timestamps
	}
	if cfg.Verbose {
		timestamps = true
	}

	logger = log.NewWithOptions(os.Stderr, log.Options{
		Level:           level,
		ReportTimestamp: timestamps,
		ReportCaller:    cfg.Verbose,
		TimeFormat:      "15:04:05",
	})
}

// Logger returns the global logger.
func Logger() *log.Logger {
	return logger
}

// BundleLogger returns a child logger scoped to one bundle.
func BundleLogger(name string) *log.Logger {
	return scoped("b:", name)
}

// TaskLogger returns a child logger scoped to one task of the build graph.
func TaskLogger(name string) *log.Logger {
	return scoped("t:", name)
}

func scoped(kind, name string) *log.Logger {
	child := logger.With()
	child.SetPrefix(StyleDim.Render(kind) + StyleNoun.Render(name))
	return child
}

// BoolPtr returns a pointer to b.
func BoolPtr(b bool) *bool {
	return &b
}

// Debug logs a debug message.
func Debug(msg string, keyvals ...interface{}) {
	logger.Debug(msg, keyvals...)
}

// Info logs an info message.
func Info(msg string, keyvals ...interface{}) {
	logger.Info(msg, keyvals...)
}

// Warn logs a warning message.
func Warn(msg string, keyvals ...interface{}) {
	logger.Warn(msg, keyvals...)
}

// Error logs an error message.
func Error(msg string, keyvals ...interface{}) {
	logger.Error(msg, keyvals...)
}
