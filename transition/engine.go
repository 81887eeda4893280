// Package transition drives delayed auto-advance chains through a scenario.
//
// The step that starts a chain has already had its message sent by the
// orchestrator. From there the engine is the sole sender: it sleeps the
// step's delay, re-checks that no user input advanced the session in the
// meantime, then processes, sends and commits one step at a time until it
// reaches a step that waits for input, hits a bound, or loses a version
// race. A lost race is the designed cancellation path, so it aborts the
// chain silently.
package transition

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/AltairaLabs/DialogKit/config"
	"github.com/AltairaLabs/DialogKit/events"
	"github.com/AltairaLabs/DialogKit/logger"
	"github.com/AltairaLabs/DialogKit/processor"
	"github.com/AltairaLabs/DialogKit/scenario"
	"github.com/AltairaLabs/DialogKit/statestore"
)

// Chain abort reasons.
const (
	AbortSuperseded   = "superseded"
	AbortConflict     = "version_conflict"
	AbortMaxLength    = "max_chain_length"
	AbortMaxDuration  = "max_chain_duration"
	AbortCanceled     = "canceled"
	AbortLoadFailed   = "load_failed"
	AbortCommitFailed = "commit_failed"
	AbortSendFailed   = "send_failed"
	AbortFault        = "processing_error"
)

// ChainRequest describes the committed state an auto-advance chain starts
// from: the step the session currently sits at, the version that commit
// produced, and the origin step's delay.
type ChainRequest struct {
	Scenario *scenario.Scenario
	Key      statestore.SessionKey
	StepID   string
	Version  int64
	Delay    time.Duration
}

// Result reports how a chain ended. Completed means the chain came to rest
// at a step that waits for input or is terminal; otherwise AbortReason says
// why it stopped early.
type Result struct {
	TransitionID string
	Steps        int
	Completed    bool
	AbortReason  string
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Engine runs auto-advance chains. It is safe for concurrent use; each Run
// call is an independent chain.
type Engine struct {
	proc     *processor.Processor
	store    statestore.Store
	sink     Sink
	cfg      *config.Config
	bus      *events.EventBus
	sleep    SleepFunc
	timeFunc func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithSleepFunc replaces the delay sleep, letting tests run chains without
// real waiting.
func WithSleepFunc(fn SleepFunc) Option {
	return func(e *Engine) { e.sleep = fn }
}

// WithTimeFunc sets a custom time source for chain duration bounds.
func WithTimeFunc(fn func() time.Time) Option {
	return func(e *Engine) { e.timeFunc = fn }
}

// WithEventBus publishes chain lifecycle events to bus.
func WithEventBus(bus *events.EventBus) Option {
	return func(e *Engine) { e.bus = bus }
}

// New creates an Engine writing through store and sending through sink.
func New(store statestore.Store, sink Sink, cfg *config.Config, opts ...Option) *Engine {
	if cfg == nil {
		cfg = config.Default()
	}
	e := &Engine{
		proc:     processor.New(),
		store:    store,
		sink:     sink,
		cfg:      cfg,
		sleep:    sleepContext,
		timeFunc: time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run drives one auto-advance chain to its resting step. It blocks across
// the per-step delays; callers that want fire-and-forget run it in a
// goroutine. Errors never escape: every failure mode ends the chain with a
// Result and leaves the session at its last committed step.
func (e *Engine) Run(ctx context.Context, req ChainRequest) *Result {
	id := uuid.NewString()
	ctx = logger.WithTransitionID(ctx, id)
	em := events.NewEmitter(e.bus, req.Key.BotID, req.Key.String()).WithTransitionID(id)

	res := &Result{TransitionID: id}
	start := e.timeFunc()
	em.ChainStarted(req.StepID)
	logger.DebugContext(ctx, "auto chain started", "step_id", req.StepID)

	cur := req.StepID
	version := req.Version
	delay := req.Delay

	for {
		if res.Steps >= e.cfg.MaxChainLength {
			return e.abort(ctx, em, res, start, AbortMaxLength, false)
		}
		if e.timeFunc().Sub(start) > e.cfg.MaxChainDuration() {
			return e.abort(ctx, em, res, start, AbortMaxDuration, false)
		}

		if delay <= 0 {
			delay = e.cfg.AutoNextDelay()
		}
		if err := e.sleep(ctx, delay); err != nil {
			return e.abort(ctx, em, res, start, AbortCanceled, true)
		}

		st, err := e.store.Get(ctx, req.Key)
		if err != nil {
			logger.ErrorContext(ctx, "auto chain state load failed", "error", err)
			return e.abort(ctx, em, res, start, AbortLoadFailed, true)
		}

		// A user message landing during the delay advances the version;
		// that is the cancellation signal for this chain.
		if st.CurrentStep != cur || st.Version != version {
			return e.abort(ctx, em, res, start, AbortSuperseded, true)
		}

		step := req.Scenario.Step(cur)
		if step == nil {
			logger.ScenarioFault(ctx, scenario.ErrStepNotFound, "step_id", cur)
			return e.abort(ctx, em, res, start, AbortFault, true)
		}

		next, err := e.proc.ResolveNext(ctx, step, st.Collected)
		if err != nil {
			logger.ScenarioFault(ctx, err, "step_id", cur)
			return e.abort(ctx, em, res, start, AbortFault, true)
		}
		if next == "" {
			// Terminal step, nothing left to advance to.
			res.Completed = true
			em.ChainCompleted(res.Steps, e.timeFunc().Sub(start))
			return res
		}

		processed, err := e.proc.ProcessStep(ctx, req.Scenario, next, st.Collected)
		if err != nil {
			logger.ScenarioFault(ctx, err, "step_id", next)
			return e.abort(ctx, em, res, start, AbortFault, true)
		}

		kind, err := Deliver(ctx, e.sink, req.Key, processed)
		if err != nil {
			logger.ErrorContext(ctx, "auto chain send failed", "step_id", next, "error", err)
			return e.abort(ctx, em, res, start, AbortSendFailed, true)
		}
		em.MessageSent(next, kind, true)
		logger.OutboundSend(ctx, kind, req.Key.ChatID, "step_id", next, "auto", true)

		committed, err := e.store.Update(ctx, req.Key, version, func(s *statestore.DialogState) {
			s.CurrentStep = next
			s.LastInteractionAt = e.timeFunc()
		})
		if errors.Is(err, statestore.ErrVersionConflict) {
			return e.abort(ctx, em, res, start, AbortConflict, true)
		}
		if err != nil {
			logger.ErrorContext(ctx, "auto chain commit failed", "step_id", next, "error", err)
			return e.abort(ctx, em, res, start, AbortCommitFailed, true)
		}

		if err := e.store.RecordHistory(ctx, req.Key, statestore.HistoryEntry{
			FromStep:  cur,
			ToStep:    next,
			Trigger:   statestore.TriggerAuto,
			Timestamp: e.timeFunc(),
		}); err != nil {
			logger.WarnContext(ctx, "history record failed", "error", err)
		}
		em.StateCommitted(cur, next, statestore.TriggerAuto, committed.Version)

		res.Steps++
		cur = next
		version = committed.Version

		if !processed.AutoNext || processed.ExpectedInput != nil {
			res.Completed = true
			em.ChainCompleted(res.Steps, e.timeFunc().Sub(start))
			logger.DebugContext(ctx, "auto chain completed", "steps", res.Steps, "resting_step", cur)
			return res
		}
		delay = processed.AutoNextDelay
	}
}

func (e *Engine) abort(ctx context.Context, em *events.Emitter, res *Result, start time.Time, reason string, silent bool) *Result {
	res.AbortReason = reason
	em.ChainAborted(reason, res.Steps, e.timeFunc().Sub(start))
	if silent {
		logger.DebugContext(ctx, "auto chain aborted", "reason", reason, "steps", res.Steps)
	} else {
		logger.ChainAborted(ctx, reason, res.Steps)
	}
	return res
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
