package events

import (
	"time"
)

// EventType identifies the type of event emitted by the engine.
type EventType string

const (
	// EventReceived marks an inbound user event entering the engine.
	EventReceived EventType = "event.received"
	// EventInputRejected marks an inbound event rejected by validation.
	EventInputRejected EventType = "input.rejected"
	// EventHandled marks a turn finishing, however it ended.
	EventHandled EventType = "event.handled"

	// EventStepProcessed marks a scenario step rendered and resolved.
	EventStepProcessed EventType = "step.processed"
	// EventMessageSent marks an outbound message delivered to the sink.
	EventMessageSent EventType = "message.sent"
	// EventStateCommitted marks a step transition committed to the store.
	EventStateCommitted EventType = "state.committed"

	// EventChainStarted marks the start of an auto-transition chain.
	EventChainStarted EventType = "chain.started"
	// EventChainCompleted marks a chain reaching a resting step.
	EventChainCompleted EventType = "chain.completed"
	// EventChainAborted marks a chain halted before its resting step.
	EventChainAborted EventType = "chain.aborted"

	// EventSessionCreated marks a new dialog session.
	EventSessionCreated EventType = "session.created"
	// EventSessionReset marks a session reset back to the scenario start.
	EventSessionReset EventType = "session.reset"
)

// EventData is a marker interface for event payloads.
type EventData interface {
	eventData()
}

// Event represents an engine event delivered to listeners.
type Event struct {
	Type         EventType
	Timestamp    time.Time
	BotID        string
	SessionKey   string
	TransitionID string
	Data         EventData
}

// baseEventData provides a shared marker implementation for all event payloads.
type baseEventData struct{}

func (baseEventData) eventData() {}

// ReceivedData contains data for inbound event arrival.
type ReceivedData struct {
	baseEventData
	Platform  string
	InputKind string
}

// InputRejectedData contains data for validation rejections.
type InputRejectedData struct {
	baseEventData
	Kind string
}

// HandledData contains data for completed turns.
type HandledData struct {
	baseEventData
	Status     string
	RejectKind string
	Duration   time.Duration
}

// StepProcessedData contains data for step processing events.
type StepProcessedData struct {
	baseEventData
	StepID   string
	Duration time.Duration
}

// MessageSentData contains data for outbound send events.
type MessageSentData struct {
	baseEventData
	StepID string
	Kind   string // text, buttons, media
	Auto   bool
}

// StateCommittedData contains data for committed step transitions.
type StateCommittedData struct {
	baseEventData
	FromStep string
	ToStep   string
	Trigger  string
	Version  int64
}

// ChainStartedData contains data for chain start events.
type ChainStartedData struct {
	baseEventData
	OriginStep string
}

// ChainCompletedData contains data for chain completion events.
type ChainCompletedData struct {
	baseEventData
	Steps    int
	Duration time.Duration
}

// ChainAbortedData contains data for chain abort events.
type ChainAbortedData struct {
	baseEventData
	Reason   string
	Steps    int
	Duration time.Duration
}

// SessionCreatedData contains data for session creation events.
type SessionCreatedData struct {
	baseEventData
	Scenario        string
	ScenarioVersion string
}

// SessionResetData contains data for session reset events.
type SessionResetData struct {
	baseEventData
	Scenario string
}
