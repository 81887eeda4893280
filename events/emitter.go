package events

import "time"

// Emitter provides helpers for publishing engine events with shared
// session metadata. A nil Emitter (or one without a bus) drops events, so
// callers do not need nil checks at every publish site.
type Emitter struct {
	bus          *EventBus
	botID        string
	sessionKey   string
	transitionID string
}

// NewEmitter creates a new event emitter scoped to one session.
func NewEmitter(bus *EventBus, botID, sessionKey string) *Emitter {
	return &Emitter{
		bus:        bus,
		botID:      botID,
		sessionKey: sessionKey,
	}
}

// WithTransitionID returns a copy of the emitter that stamps events with
// the given auto-transition chain id.
func (e *Emitter) WithTransitionID(id string) *Emitter {
	if e == nil {
		return nil
	}
	c := *e
	c.transitionID = id
	return &c
}

// emit publishes an event with shared context fields.
func (e *Emitter) emit(eventType EventType, data EventData) {
	if e == nil || e.bus == nil {
		return
	}

	e.bus.Publish(&Event{
		Type:         eventType,
		Timestamp:    time.Now(),
		BotID:        e.botID,
		SessionKey:   e.sessionKey,
		TransitionID: e.transitionID,
		Data:         data,
	})
}

// Received emits the event.received event.
func (e *Emitter) Received(platform, inputKind string) {
	e.emit(EventReceived, ReceivedData{Platform: platform, InputKind: inputKind})
}

// Handled emits the event.handled event.
func (e *Emitter) Handled(status, rejectKind string, duration time.Duration) {
	e.emit(EventHandled, HandledData{Status: status, RejectKind: rejectKind, Duration: duration})
}

// InputRejected emits the input.rejected event.
func (e *Emitter) InputRejected(kind string) {
	e.emit(EventInputRejected, InputRejectedData{Kind: kind})
}

// StepProcessed emits the step.processed event.
func (e *Emitter) StepProcessed(stepID string, duration time.Duration) {
	e.emit(EventStepProcessed, StepProcessedData{StepID: stepID, Duration: duration})
}

// MessageSent emits the message.sent event.
func (e *Emitter) MessageSent(stepID, kind string, auto bool) {
	e.emit(EventMessageSent, MessageSentData{StepID: stepID, Kind: kind, Auto: auto})
}

// StateCommitted emits the state.committed event.
func (e *Emitter) StateCommitted(fromStep, toStep, trigger string, version int64) {
	e.emit(EventStateCommitted, StateCommittedData{
		FromStep: fromStep,
		ToStep:   toStep,
		Trigger:  trigger,
		Version:  version,
	})
}

// ChainStarted emits the chain.started event.
func (e *Emitter) ChainStarted(originStep string) {
	e.emit(EventChainStarted, ChainStartedData{OriginStep: originStep})
}

// ChainCompleted emits the chain.completed event.
func (e *Emitter) ChainCompleted(steps int, duration time.Duration) {
	e.emit(EventChainCompleted, ChainCompletedData{Steps: steps, Duration: duration})
}

// ChainAborted emits the chain.aborted event.
func (e *Emitter) ChainAborted(reason string, steps int, duration time.Duration) {
	e.emit(EventChainAborted, ChainAbortedData{Reason: reason, Steps: steps, Duration: duration})
}

// SessionCreated emits the session.created event.
func (e *Emitter) SessionCreated(scenarioName, scenarioVersion string) {
	e.emit(EventSessionCreated, SessionCreatedData{
		Scenario:        scenarioName,
		ScenarioVersion: scenarioVersion,
	})
}

// SessionReset emits the session.reset event.
func (e *Emitter) SessionReset(scenarioName string) {
	e.emit(EventSessionReset, SessionResetData{Scenario: scenarioName})
}
