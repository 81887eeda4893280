// Package logger provides structured logging with automatic PII redaction.
package logger

import (
	"context"
)

// contextKey is a private type for context keys to avoid collisions.
type contextKey string

// Context keys for common logging fields.
// These keys are used to store values in context.Context that will be
// automatically extracted and added to log entries.
const (
	// ContextKeyBotID identifies the bot handling the conversation.
	ContextKeyBotID contextKey = "bot_id"

	// ContextKeyPlatform identifies the messaging platform (e.g., "telegram").
	ContextKeyPlatform contextKey = "platform"

	// ContextKeyChatID identifies the chat within the platform.
	ContextKeyChatID contextKey = "chat_id"

	// ContextKeySessionKey identifies the dialog session (bot:platform:chat).
	ContextKeySessionKey contextKey = "session_key"

	// ContextKeyUserID identifies the user who sent the inbound event.
	ContextKeyUserID contextKey = "user_id"

	// ContextKeyScenario identifies the scenario being executed.
	ContextKeyScenario contextKey = "scenario"

	// ContextKeyScenarioVersion identifies the version of the scenario.
	ContextKeyScenarioVersion contextKey = "scenario_version"

	// ContextKeyStepID identifies the scenario step being processed.
	ContextKeyStepID contextKey = "step_id"

	// ContextKeyTransitionID identifies an auto-transition chain.
	ContextKeyTransitionID contextKey = "transition_id"

	// ContextKeyRequestID identifies the individual inbound event.
	ContextKeyRequestID contextKey = "request_id"
)

// allContextKeys lists all context keys that should be extracted for logging.
// This is used by the handler to iterate over all possible context values.
var allContextKeys = []contextKey{
	ContextKeyBotID,
	ContextKeyPlatform,
	ContextKeyChatID,
	ContextKeySessionKey,
	ContextKeyUserID,
	ContextKeyScenario,
	ContextKeyScenarioVersion,
	ContextKeyStepID,
	ContextKeyTransitionID,
	ContextKeyRequestID,
}

// WithBotID returns a new context with the bot ID set.
func WithBotID(ctx context.Context, botID string) context.Context {
	return context.WithValue(ctx, ContextKeyBotID, botID)
}

// WithPlatform returns a new context with the platform name set.
func WithPlatform(ctx context.Context, platform string) context.Context {
	return context.WithValue(ctx, ContextKeyPlatform, platform)
}

// WithChatID returns a new context with the chat ID set.
func WithChatID(ctx context.Context, chatID string) context.Context {
	return context.WithValue(ctx, ContextKeyChatID, chatID)
}

// WithSessionKey returns a new context with the session key set.
func WithSessionKey(ctx context.Context, sessionKey string) context.Context {
	return context.WithValue(ctx, ContextKeySessionKey, sessionKey)
}

// WithUserID returns a new context with the user ID set.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ContextKeyUserID, userID)
}

// WithScenario returns a new context with the scenario name set.
func WithScenario(ctx context.Context, scenario string) context.Context {
	return context.WithValue(ctx, ContextKeyScenario, scenario)
}

// WithScenarioVersion returns a new context with the scenario version set.
func WithScenarioVersion(ctx context.Context, version string) context.Context {
	return context.WithValue(ctx, ContextKeyScenarioVersion, version)
}

// WithStepID returns a new context with the step ID set.
func WithStepID(ctx context.Context, stepID string) context.Context {
	return context.WithValue(ctx, ContextKeyStepID, stepID)
}

// WithTransitionID returns a new context with the transition ID set.
func WithTransitionID(ctx context.Context, transitionID string) context.Context {
	return context.WithValue(ctx, ContextKeyTransitionID, transitionID)
}

// WithRequestID returns a new context with the request ID set.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// WithLoggingContext returns a new context with multiple logging fields set at once.
// This is a convenience function for setting multiple fields in one call.
// Only non-empty values are set.
func WithLoggingContext(ctx context.Context, fields *LoggingFields) context.Context {
	if fields == nil {
		return ctx
	}
	if fields.BotID != "" {
		ctx = WithBotID(ctx, fields.BotID)
	}
	if fields.Platform != "" {
		ctx = WithPlatform(ctx, fields.Platform)
	}
	if fields.ChatID != "" {
		ctx = WithChatID(ctx, fields.ChatID)
	}
	if fields.SessionKey != "" {
		ctx = WithSessionKey(ctx, fields.SessionKey)
	}
	if fields.UserID != "" {
		ctx = WithUserID(ctx, fields.UserID)
	}
	if fields.Scenario != "" {
		ctx = WithScenario(ctx, fields.Scenario)
	}
	if fields.ScenarioVersion != "" {
		ctx = WithScenarioVersion(ctx, fields.ScenarioVersion)
	}
	if fields.StepID != "" {
		ctx = WithStepID(ctx, fields.StepID)
	}
	if fields.TransitionID != "" {
		ctx = WithTransitionID(ctx, fields.TransitionID)
	}
	if fields.RequestID != "" {
		ctx = WithRequestID(ctx, fields.RequestID)
	}
	return ctx
}

// LoggingFields holds all standard logging context fields.
// This struct is used with WithLoggingContext for bulk field setting.
type LoggingFields struct {
	BotID           string
	Platform        string
	ChatID          string
	SessionKey      string
	UserID          string
	Scenario        string
	ScenarioVersion string
	StepID          string
	TransitionID    string
	RequestID       string
}

// ExtractLoggingFields extracts all logging fields from a context.
// Returns a LoggingFields struct with all values found in the context.
func ExtractLoggingFields(ctx context.Context) LoggingFields {
	fields := LoggingFields{}
	if v := ctx.Value(ContextKeyBotID); v != nil {
		fields.BotID, _ = v.(string)
	}
	if v := ctx.Value(ContextKeyPlatform); v != nil {
		fields.Platform, _ = v.(string)
	}
	if v := ctx.Value(ContextKeyChatID); v != nil {
		fields.ChatID, _ = v.(string)
	}
	if v := ctx.Value(ContextKeySessionKey); v != nil {
		fields.SessionKey, _ = v.(string)
	}
	if v := ctx.Value(ContextKeyUserID); v != nil {
		fields.UserID, _ = v.(string)
	}
	if v := ctx.Value(ContextKeyScenario); v != nil {
		fields.Scenario, _ = v.(string)
	}
	if v := ctx.Value(ContextKeyScenarioVersion); v != nil {
		fields.ScenarioVersion, _ = v.(string)
	}
	if v := ctx.Value(ContextKeyStepID); v != nil {
		fields.StepID, _ = v.(string)
	}
	if v := ctx.Value(ContextKeyTransitionID); v != nil {
		fields.TransitionID, _ = v.(string)
	}
	if v := ctx.Value(ContextKeyRequestID); v != nil {
		fields.RequestID, _ = v.(string)
	}
	return fields
}
