package prometheus

import (
	"github.com/AltairaLabs/DialogKit/events"
)

// MetricsListener records engine events as Prometheus metrics.
// It implements the events.Listener signature and should be registered
// with EventBus.SubscribeAll so every event type reaches it.
type MetricsListener struct{}

// NewMetricsListener creates a new MetricsListener.
func NewMetricsListener() *MetricsListener {
	return &MetricsListener{}
}

// Handle processes an event and records relevant metrics.
func (l *MetricsListener) Handle(event *events.Event) {
	switch event.Type {
	case events.EventReceived:
		if data, ok := event.Data.(events.ReceivedData); ok {
			RecordEventReceived(data.Platform, data.InputKind)
		}
	case events.EventInputRejected:
		if data, ok := event.Data.(events.InputRejectedData); ok {
			RecordRejection(data.Kind)
		}
	case events.EventMessageSent:
		if data, ok := event.Data.(events.MessageSentData); ok {
			RecordSend(data.Kind, data.Auto)
		}
	case events.EventStepProcessed:
		if data, ok := event.Data.(events.StepProcessedData); ok {
			RecordStepDuration(data.Duration.Seconds())
		}
	case events.EventStateCommitted:
		if data, ok := event.Data.(events.StateCommittedData); ok {
			RecordStateCommit(data.Trigger)
		}
	case events.EventChainStarted:
		RecordChainStart()
	case events.EventChainCompleted:
		if data, ok := event.Data.(events.ChainCompletedData); ok {
			RecordChainCompleted(data.Steps, data.Duration.Seconds())
		}
	case events.EventChainAborted:
		if data, ok := event.Data.(events.ChainAbortedData); ok {
			RecordChainAborted(data.Reason, data.Steps, data.Duration.Seconds())
		}
	case events.EventSessionCreated:
		if data, ok := event.Data.(events.SessionCreatedData); ok {
			RecordSessionCreated(data.Scenario)
		}
	case events.EventSessionReset:
		if data, ok := event.Data.(events.SessionResetData); ok {
			RecordSessionReset(data.Scenario)
		}
	default:
		// Ignore events that don't have metrics
	}
}

// Listener returns an events.Listener function that can be registered
// with an EventBus.
func (l *MetricsListener) Listener() events.Listener {
	return l.Handle
}
