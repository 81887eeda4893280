package logger

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestSetLevel(t *testing.T) {
	// Test setting different levels
	SetLevel(slog.LevelDebug)
	if DefaultLogger == nil {
		t.Error("Expected DefaultLogger to be set")
	}

	SetLevel(slog.LevelInfo)
	if DefaultLogger == nil {
		t.Error("Expected DefaultLogger to be set")
	}

	SetLevel(slog.LevelWarn)
	if DefaultLogger == nil {
		t.Error("Expected DefaultLogger to be set")
	}

	SetLevel(slog.LevelError)
	if DefaultLogger == nil {
		t.Error("Expected DefaultLogger to be set")
	}
}

func TestSetVerbose(t *testing.T) {
	// Enable verbose
	SetVerbose(true)
	if DefaultLogger == nil {
		t.Error("Expected DefaultLogger to be set after SetVerbose(true)")
	}

	// Disable verbose
	SetVerbose(false)
	if DefaultLogger == nil {
		t.Error("Expected DefaultLogger to be set after SetVerbose(false)")
	}
}

func TestInfo(t *testing.T) {
	// Should not panic
	Info("test message")
	Info("test with args", "key", "value")
	Info("test with multiple", "key1", "value1", "key2", "value2")
}

func TestInfoContext(t *testing.T) {
	ctx := context.Background()

	// Should not panic
	InfoContext(ctx, "test message")
	InfoContext(ctx, "test with args", "key", "value")
}

func TestDebug(t *testing.T) {
	SetVerbose(true) // Enable debug logging

	// Should not panic
	Debug("debug message")
	Debug("debug with args", "key", "value")

	SetVerbose(false) // Reset
}

func TestDebugContext(t *testing.T) {
	SetVerbose(true) // Enable debug logging
	ctx := context.Background()

	// Should not panic
	DebugContext(ctx, "debug message")
	DebugContext(ctx, "debug with args", "key", "value")

	SetVerbose(false) // Reset
}

func TestWarn(t *testing.T) {
	// Should not panic
	Warn("warning message")
	Warn("warning with args", "key", "value")
}

func TestWarnContext(t *testing.T) {
	ctx := context.Background()

	// Should not panic
	WarnContext(ctx, "warning message")
	WarnContext(ctx, "warning with args", "key", "value")
}

func TestError(t *testing.T) {
	// Should not panic
	Error("error message")
	Error("error with args", "key", "value", "error", "test error")
}

func TestErrorContext(t *testing.T) {
	ctx := context.Background()

	// Should not panic
	ErrorContext(ctx, "error message")
	ErrorContext(ctx, "error with args", "key", "value", "error", "test error")
}

func TestOutboundSend(t *testing.T) {
	ctx := context.Background()

	// Should not panic
	OutboundSend(ctx, "text", "chat-42")
	OutboundSend(ctx, "buttons", "chat-42", "step_id", "intro")
}

func TestInputRejected(t *testing.T) {
	ctx := context.Background()

	// Should not panic
	InputRejected(ctx, "DUPLICATE")
	InputRejected(ctx, "RATE_LIMITED", "user_id", "u-1")
}

func TestChainAborted(t *testing.T) {
	ctx := context.Background()

	// Should not panic
	ChainAborted(ctx, "version_conflict", 3)
	ChainAborted(ctx, "max_chain_length", 25, "transition_id", "t-1")
}

func TestScenarioFault(t *testing.T) {
	ctx := context.Background()

	// Should not panic
	ScenarioFault(ctx, errors.New("step not found"))
	ScenarioFault(ctx, errors.New("no matching transition"), "step_id", "fork")
}

func TestDefaultLoggerInitialized(t *testing.T) {
	// Test that DefaultLogger is initialized on package load
	if DefaultLogger == nil {
		t.Error("Expected DefaultLogger to be initialized")
	}
}

func TestLoggingWithStructuredAttributes(t *testing.T) {
	// Test various attribute types
	Info("structured log",
		"string", "value",
		"int", 42,
		"bool", true,
		"float", 3.14,
	)
}

func TestRedactSensitiveData_Phone(t *testing.T) {
	input := "User called from +1 (555) 203-0417 about the order"
	result := RedactSensitiveData(input)

	if result == input {
		t.Error("Expected phone number to be redacted")
	}

	if strings.Contains(result, "203-0417") {
		t.Error("Expected full phone number to not be in result")
	}

	if !strings.Contains(result, "[REDACTED]") {
		t.Error("Expected redacted form to be present")
	}
}

func TestRedactSensitiveData_Email(t *testing.T) {
	input := "Contact: ada.lovelace@example.com please"
	result := RedactSensitiveData(input)

	if result == input {
		t.Error("Expected email to be redacted")
	}

	if strings.Contains(result, "ada.lovelace@example.com") {
		t.Error("Expected full email to not be in result")
	}

	if !strings.Contains(result, "ad...[REDACTED]") {
		t.Error("Expected redacted form to be present")
	}
}

func TestRedactSensitiveData_Multiple(t *testing.T) {
	input := "Reach me at bob@example.org or 8-800-555-3535"
	result := RedactSensitiveData(input)

	if strings.Contains(result, "bob@example.org") {
		t.Error("Email should be redacted")
	}

	if strings.Contains(result, "555-3535") {
		t.Error("Phone should be redacted")
	}
}

func TestRedactSensitiveData_NoSensitiveData(t *testing.T) {
	input := "This is just a normal string with no contact data"
	result := RedactSensitiveData(input)

	if result != input {
		t.Error("Expected string without sensitive data to remain unchanged")
	}
}

func TestSetLogger_Preserved(t *testing.T) {
	orig := DefaultLogger
	origCustom := customHandler
	defer func() {
		customHandler = origCustom
		DefaultLogger = orig
		slog.SetDefault(orig)
	}()

	handler := slog.NewTextHandler(logOutput, nil)
	SetLogger(handler)

	if DefaultLogger.Handler() != handler {
		t.Error("Expected SetLogger to install the given handler")
	}

	// A custom logger survives Configure.
	if err := Configure(&LoggingConfigSpec{DefaultLevel: "debug"}); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	if DefaultLogger.Handler() != handler {
		t.Error("Expected custom handler to be preserved across Configure")
	}
}
