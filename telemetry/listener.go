package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AltairaLabs/DialogKit/events"
)

// chainState tracks the root span for an in-flight auto-transition chain.
type chainState struct {
	span trace.Span
	ctx  context.Context //nolint:containedctx // needed to parent step spans
}

// pendingEnd buffers a chain completion that arrived before the chain start.
// The EventBus dispatches each Publish() in a separate goroutine, so
// completion events can race ahead of start events.
type pendingEnd struct {
	errMsg string // empty means success
	attrs  []attribute.KeyValue
}

// OTelEventListener converts engine events into OTel spans in real time.
// Turns become retroactive dialog.handle_event spans, auto-transition
// chains become dialog.chain root spans with one dialog.chain_step child
// per committed step. It is safe for concurrent use and tolerates
// out-of-order event delivery.
type OTelEventListener struct {
	tracer trace.Tracer

	mu          sync.Mutex
	chains      map[string]*chainState // transitionID → root span + ctx
	pendingEnds map[string]*pendingEnd // buffered completions for out-of-order delivery
}

// NewOTelEventListener creates a listener that creates OTel spans from
// engine events.
func NewOTelEventListener(tracer trace.Tracer) *OTelEventListener {
	return &OTelEventListener{
		tracer:      tracer,
		chains:      make(map[string]*chainState),
		pendingEnds: make(map[string]*pendingEnd),
	}
}

// OnEvent handles a single engine event and creates/completes OTel spans
// accordingly. It can be passed to EventBus.SubscribeAll.
func (l *OTelEventListener) OnEvent(evt *events.Event) {
	//nolint:exhaustive // Only handling span-producing events
	switch evt.Type {
	case events.EventHandled:
		l.handleTurn(evt)
	case events.EventChainStarted:
		l.startChain(evt)
	case events.EventStateCommitted:
		l.handleCommit(evt)
	case events.EventMessageSent:
		l.handleSend(evt)
	case events.EventChainCompleted:
		l.completeChain(evt)
	case events.EventChainAborted:
		l.abortChain(evt)
	}
}

// handleTurn emits a retroactive span covering one full HandleEvent call.
// The event carries the turn duration, so the span is started at
// Timestamp-Duration and ended at Timestamp.
func (l *OTelEventListener) handleTurn(evt *events.Event) {
	data, ok := asPtr[events.HandledData](evt.Data)
	if !ok {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("bot.id", evt.BotID),
		attribute.String("session.key", evt.SessionKey),
		attribute.String("dialog.status", data.Status),
		attribute.Int64("dialog.duration_ms", data.Duration.Milliseconds()),
	}
	if data.RejectKind != "" {
		attrs = append(attrs, attribute.String("dialog.reject_kind", data.RejectKind))
	}

	_, span := l.tracer.Start(context.Background(), "dialog.handle_event",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithTimestamp(evt.Timestamp.Add(-data.Duration)),
		trace.WithAttributes(attrs...),
	)
	if data.Status == "error" {
		span.SetStatus(codes.Error, "turn failed")
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End(trace.WithTimestamp(evt.Timestamp))
}

// startChain opens the root span for an auto-transition chain. If the
// completion already arrived (out-of-order delivery), the span is ended
// immediately.
func (l *OTelEventListener) startChain(evt *events.Event) {
	if evt.TransitionID == "" {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("bot.id", evt.BotID),
		attribute.String("session.key", evt.SessionKey),
		attribute.String("transition.id", evt.TransitionID),
	}
	if data, ok := asPtr[events.ChainStartedData](evt.Data); ok {
		attrs = append(attrs, attribute.String("dialog.origin_step", data.OriginStep))
	}

	ctx, span := l.tracer.Start(context.Background(), "dialog.chain",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithTimestamp(evt.Timestamp),
		trace.WithAttributes(attrs...),
	)

	l.mu.Lock()
	pe, havePending := l.pendingEnds[evt.TransitionID]
	if havePending {
		delete(l.pendingEnds, evt.TransitionID)
	} else {
		l.chains[evt.TransitionID] = &chainState{span: span, ctx: ctx}
	}
	l.mu.Unlock()

	if havePending {
		span.SetAttributes(pe.attrs...)
		if pe.errMsg != "" {
			span.SetStatus(codes.Error, pe.errMsg)
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}
}

// handleCommit records one committed chain step as an instant child span
// under the chain root. Commits outside a chain carry no transition ID and
// are skipped; the turn span already covers them.
func (l *OTelEventListener) handleCommit(evt *events.Event) {
	if evt.TransitionID == "" {
		return
	}
	data, ok := asPtr[events.StateCommittedData](evt.Data)
	if !ok {
		return
	}

	_, span := l.tracer.Start(l.chainCtx(evt.TransitionID), "dialog.chain_step",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithTimestamp(evt.Timestamp),
		trace.WithAttributes(
			attribute.String("dialog.from_step", data.FromStep),
			attribute.String("dialog.to_step", data.ToStep),
			attribute.Int64("dialog.state_version", data.Version),
		),
	)
	span.End(trace.WithTimestamp(evt.Timestamp))
}

// handleSend attaches outbound sends inside a chain as events on the chain
// root span.
func (l *OTelEventListener) handleSend(evt *events.Event) {
	if evt.TransitionID == "" {
		return
	}
	data, ok := asPtr[events.MessageSentData](evt.Data)
	if !ok {
		return
	}

	l.mu.Lock()
	cs, exists := l.chains[evt.TransitionID]
	l.mu.Unlock()
	if !exists {
		return
	}
	cs.span.AddEvent("dialog.message_sent", trace.WithAttributes(
		attribute.String("dialog.step_id", data.StepID),
		attribute.String("message.kind", data.Kind),
	))
}

func (l *OTelEventListener) completeChain(evt *events.Event) {
	attrs := []attribute.KeyValue{}
	if data, ok := asPtr[events.ChainCompletedData](evt.Data); ok {
		attrs = append(attrs,
			attribute.Int("dialog.chain_steps", data.Steps),
			attribute.Int64("dialog.duration_ms", data.Duration.Milliseconds()),
		)
	}
	l.endChain(evt.TransitionID, "", attrs...)
}

func (l *OTelEventListener) abortChain(evt *events.Event) {
	var errMsg string
	attrs := []attribute.KeyValue{}
	if data, ok := asPtr[events.ChainAbortedData](evt.Data); ok {
		attrs = append(attrs,
			attribute.String("dialog.abort_reason", data.Reason),
			attribute.Int("dialog.chain_steps", data.Steps),
			attribute.Int64("dialog.duration_ms", data.Duration.Milliseconds()),
		)
		if faultAbort(data.Reason) {
			errMsg = data.Reason
		}
	}
	l.endChain(evt.TransitionID, errMsg, attrs...)
}

// faultAbort reports whether a chain abort reason represents a failure
// rather than an expected supersede or bound.
func faultAbort(reason string) bool {
	switch reason {
	case "processing_error", "load_failed", "commit_failed", "send_failed":
		return true
	}
	return false
}

// chainCtx returns the context parenting spans under the chain root.
// Falls back to context.Background() if the chain is unknown.
func (l *OTelEventListener) chainCtx(transitionID string) context.Context {
	l.mu.Lock()
	defer l.mu.Unlock()
	if cs, ok := l.chains[transitionID]; ok {
		return cs.ctx
	}
	return context.Background()
}

// endChain ends the chain root span. If the span hasn't started yet
// (out-of-order delivery), the completion is buffered and applied when
// startChain creates the span.
func (l *OTelEventListener) endChain(transitionID, errMsg string, attrs ...attribute.KeyValue) {
	if transitionID == "" {
		return
	}
	l.mu.Lock()
	cs, ok := l.chains[transitionID]
	if ok {
		delete(l.chains, transitionID)
	} else {
		l.pendingEnds[transitionID] = &pendingEnd{errMsg: errMsg, attrs: attrs}
	}
	l.mu.Unlock()
	if !ok {
		return
	}
	cs.span.SetAttributes(attrs...)
	if errMsg != "" {
		cs.span.SetStatus(codes.Error, errMsg)
	} else {
		cs.span.SetStatus(codes.Ok, "")
	}
	cs.span.End()
}

// asPtr extracts event data as a pointer, handling both value and pointer
// types.
func asPtr[T any](data any) (*T, bool) {
	if p, ok := data.(*T); ok {
		return p, true
	}
	if v, ok := data.(T); ok {
		return &v, true
	}
	return nil, false
}
