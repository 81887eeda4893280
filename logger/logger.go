// Package logger provides structured logging with automatic PII redaction.
//
// This package wraps Go's standard log/slog with convenience functions for:
//   - Outbound message and rejection logging
//   - Auto-transition chain diagnostics
//   - Automatic phone/email redaction in logged payloads
//   - Contextual logging with session tracing
//   - Level-based verbosity control
//
// All exported functions use the global DefaultLogger which can be configured
// for different output formats and log levels.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"github.com/AltairaLabs/DialogKit/version"
)

var (
	// DefaultLogger is the global structured logger instance.
	// It is safe for concurrent use and initialized with slog.LevelInfo by default.
	DefaultLogger *slog.Logger

	// logOutput is the destination for all log records.
	logOutput io.Writer = os.Stderr

	// customHandler is set via SetLogger and takes precedence over Configure.
	customHandler slog.Handler
)

func init() {
	// Check LOG_LEVEL environment variable
	level := slog.LevelInfo
	if envLevel := os.Getenv("LOG_LEVEL"); envLevel != "" {
		level = ParseLevel(envLevel)
	}

	// Initialize with text handler writing to stderr
	handler := slog.NewTextHandler(logOutput, &slog.HandlerOptions{
		Level: level,
	})
	DefaultLogger = slog.New(NewContextHandler(handler))

	version.LogStartup()
}

// ParseLevel converts a level name to a slog.Level.
// Unknown names fall back to slog.LevelInfo.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "trace":
		return slog.LevelDebug - 4
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetLevel changes the logging level for all subsequent log operations.
// This is safe for concurrent use as it replaces the entire logger instance.
func SetLevel(level slog.Level) {
	handler := slog.NewTextHandler(logOutput, &slog.HandlerOptions{
		Level: level,
	})
	DefaultLogger = slog.New(NewContextHandler(handler))
}

// SetVerbose enables debug-level logging when verbose is true, otherwise sets info-level.
// This is a convenience wrapper around SetLevel for command-line verbose flags.
func SetVerbose(verbose bool) {
	if verbose {
		SetLevel(slog.LevelDebug)
	} else {
		SetLevel(slog.LevelInfo)
	}
}

// SetOutput redirects log output to the given writer and rebuilds the
// global logger. Passing nil resets output to stderr.
func SetOutput(w io.Writer) {
	if w == nil {
		w = os.Stderr
	}
	logOutput = w
	handler := slog.NewTextHandler(logOutput, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	DefaultLogger = slog.New(NewContextHandler(handler))
}

// SetLogger replaces the global logger with one built on the given handler.
// A handler set this way is preserved across later Configure calls.
func SetLogger(handler slog.Handler) {
	customHandler = handler
	DefaultLogger = slog.New(handler)
	slog.SetDefault(DefaultLogger)
}

// Info logs an informational message with structured key-value attributes.
// Args should be provided in key-value pairs: key1, value1, key2, value2, ...
func Info(msg string, args ...any) {
	DefaultLogger.Info(msg, args...)
}

// InfoContext logs an informational message with context and structured attributes.
// The context can be used for request tracing and cancellation.
func InfoContext(ctx context.Context, msg string, args ...any) {
	DefaultLogger.InfoContext(ctx, msg, args...)
}

// Debug logs a debug-level message with structured attributes.
// Debug messages are only output when the log level is set to LevelDebug or lower.
func Debug(msg string, args ...any) {
	DefaultLogger.Debug(msg, args...)
}

// DebugContext logs a debug message with context and structured attributes.
func DebugContext(ctx context.Context, msg string, args ...any) {
	DefaultLogger.DebugContext(ctx, msg, args...)
}

// Warn logs a warning message with structured attributes.
// Use for recoverable errors or unexpected but non-critical situations.
func Warn(msg string, args ...any) {
	DefaultLogger.Warn(msg, args...)
}

// WarnContext logs a warning message with context and structured attributes.
func WarnContext(ctx context.Context, msg string, args ...any) {
	DefaultLogger.WarnContext(ctx, msg, args...)
}

// Error logs an error message with structured attributes.
// Use for errors that affect operation but don't cause complete failure.
func Error(msg string, args ...any) {
	DefaultLogger.Error(msg, args...)
}

// ErrorContext logs an error message with context and structured attributes.
func ErrorContext(ctx context.Context, msg string, args ...any) {
	DefaultLogger.ErrorContext(ctx, msg, args...)
}

// OutboundSend logs an outbound message delivery with structured fields.
// Additional attributes can be passed as key-value pairs after the required parameters.
func OutboundSend(ctx context.Context, kind, chatID string, attrs ...any) {
	allAttrs := make([]any, 0, 4+len(attrs))
	allAttrs = append(allAttrs,
		"send_kind", kind,
		"chat_id", chatID,
	)
	allAttrs = append(allAttrs, attrs...)
	InfoContext(ctx, "outbound send", allAttrs...)
}

// InputRejected logs a rejected inbound event with its rejection kind.
func InputRejected(ctx context.Context, kind string, attrs ...any) {
	allAttrs := make([]any, 0, 2+len(attrs))
	allAttrs = append(allAttrs, "reject_kind", kind)
	allAttrs = append(allAttrs, attrs...)
	InfoContext(ctx, "input rejected", allAttrs...)
}

// ChainAborted logs an auto-transition chain abort with its reason.
func ChainAborted(ctx context.Context, reason string, steps int, attrs ...any) {
	allAttrs := make([]any, 0, 4+len(attrs))
	allAttrs = append(allAttrs,
		"reason", reason,
		"steps", steps,
	)
	allAttrs = append(allAttrs, attrs...)
	WarnContext(ctx, "auto-transition chain aborted", allAttrs...)
}

// ScenarioFault logs a scenario-authoring defect surfaced at runtime.
func ScenarioFault(ctx context.Context, err error, attrs ...any) {
	allAttrs := make([]any, 0, 2+len(attrs))
	allAttrs = append(allAttrs, "error", err)
	allAttrs = append(allAttrs, attrs...)
	ErrorContext(ctx, "scenario processing failed", allAttrs...)
}

var (
	// piiPatterns contains compiled regular expressions for detecting
	// user-identifying data in logged message content.
	piiPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\+?\d[\d\s().-]{7,}\d`),                          // phone numbers
		regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`), // email addresses
	}
)

// RedactSensitiveData removes phone numbers and email addresses from strings.
// It replaces matched patterns with a redacted form that preserves the first
// few characters for debugging while hiding the identifying portion.
//
// This function is safe for concurrent use as it only reads from the compiled patterns.
func RedactSensitiveData(input string) string {
	result := input

	for _, pattern := range piiPatterns {
		result = pattern.ReplaceAllStringFunc(result, func(match string) string {
			// Show first 2 characters for debugging context
			if len(match) > 4 {
				return match[:2] + "...[REDACTED]"
			}
			return "[REDACTED]"
		})
	}

	return result
}
