package events

import (
	"sync"
	"testing"
	"time"
)

func collectOne(t *testing.T, bus *EventBus, eventType EventType) func() *Event {
	t.Helper()

	var mu sync.Mutex
	var got *Event
	var wg sync.WaitGroup
	wg.Add(1)

	bus.Subscribe(eventType, func(e *Event) {
		mu.Lock()
		got = e
		mu.Unlock()
		wg.Done()
	})

	return func() *Event {
		if !waitForWG(&wg, 200*time.Millisecond) {
			t.Fatalf("timed out waiting for %s", eventType)
		}
		mu.Lock()
		defer mu.Unlock()
		return got
	}
}

func TestEmitterStampsSessionMetadata(t *testing.T) {
	t.Parallel()

	bus := NewEventBus()
	wait := collectOne(t, bus, EventMessageSent)

	em := NewEmitter(bus, "bot-1", "bot-1:telegram:chat-42")
	em.MessageSent("welcome", "text", false)

	e := wait()
	if e.BotID != "bot-1" {
		t.Errorf("BotID = %q", e.BotID)
	}
	if e.SessionKey != "bot-1:telegram:chat-42" {
		t.Errorf("SessionKey = %q", e.SessionKey)
	}
	if e.Timestamp.IsZero() {
		t.Error("Timestamp not set")
	}

	data, ok := e.Data.(MessageSentData)
	if !ok {
		t.Fatalf("Data is %T", e.Data)
	}
	if data.StepID != "welcome" || data.Kind != "text" || data.Auto {
		t.Errorf("unexpected payload: %+v", data)
	}
}

func TestEmitterWithTransitionID(t *testing.T) {
	t.Parallel()

	bus := NewEventBus()
	wait := collectOne(t, bus, EventChainAborted)

	em := NewEmitter(bus, "bot-1", "bot-1:telegram:chat-42").WithTransitionID("t-123")
	em.ChainAborted("version_conflict", 2, time.Second)

	e := wait()
	if e.TransitionID != "t-123" {
		t.Errorf("TransitionID = %q", e.TransitionID)
	}
	data := e.Data.(ChainAbortedData)
	if data.Reason != "version_conflict" || data.Steps != 2 {
		t.Errorf("unexpected payload: %+v", data)
	}
}

func TestEmitterNilSafe(t *testing.T) {
	t.Parallel()

	var em *Emitter
	em.MessageSent("welcome", "text", false)
	em.WithTransitionID("t-1").ChainStarted("welcome")

	NewEmitter(nil, "bot-1", "k").SessionCreated("onboarding", "1.0.0")
}
