// Package orchestrator is the engine's front door. It takes one inbound
// user event through the full turn: validate, load state, process the
// step, send the response, commit, and hand off to the auto-transition
// engine when the new step advances on its own.
//
// The orchestrator owns the origin send of every turn. The transition
// engine sends only the chain steps that follow; nothing ever sends the
// same step twice.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AltairaLabs/DialogKit/cache"
	"github.com/AltairaLabs/DialogKit/config"
	"github.com/AltairaLabs/DialogKit/events"
	"github.com/AltairaLabs/DialogKit/logger"
	"github.com/AltairaLabs/DialogKit/processor"
	"github.com/AltairaLabs/DialogKit/scenario"
	"github.com/AltairaLabs/DialogKit/statestore"
	"github.com/AltairaLabs/DialogKit/transition"
	"github.com/AltairaLabs/DialogKit/types"
	"github.com/AltairaLabs/DialogKit/validation"
)

// Sink is the outbound message interface platform adapters implement.
type Sink = transition.Sink

// ErrInvalidEvent is returned when an inbound event is missing addressing.
var ErrInvalidEvent = errors.New("invalid inbound event")

// ErrNoScenario is returned when no scenario can be resolved for a session.
var ErrNoScenario = errors.New("no scenario available")

// Event is one inbound user interaction.
type Event struct {
	BotID    string
	Platform string
	ChatID   string
	UserID   string
	Input    types.UserInput
}

// Status classifies how a turn ended.
type Status string

const (
	// StatusProcessed means the input advanced the dialog.
	StatusProcessed Status = "processed"
	// StatusRejected means validation failed and a correction was sent.
	StatusRejected Status = "rejected"
	// StatusIgnored means the event was dropped with no outbound send.
	StatusIgnored Status = "ignored"
	// StatusCommand means the event was routed as a command.
	StatusCommand Status = "command"
	// StatusRecovered means a processing fault degraded to a step resend.
	StatusRecovered Status = "recovered"
)

// Outcome describes what one HandleEvent call did.
type Outcome struct {
	Status     Status
	RejectKind validation.RejectKind
	StepID     string
	Chain      *transition.Result
}

// CommandFunc handles a routed command. The state argument is nil when the
// user has no session yet.
type CommandFunc func(ctx context.Context, ev Event, st *statestore.DialogState) error

// Orchestrator coordinates one turn of a dialog per HandleEvent call.
// It is safe for concurrent use across sessions; concurrent turns on the
// same session are serialized by optimistic versioning, not locks.
type Orchestrator struct {
	registry        *scenario.Registry
	store           statestore.Store
	validator       *validation.Validator
	engine          *transition.Engine
	proc            *processor.Processor
	sink            Sink
	cfg             *config.Config
	bus             *events.EventBus
	timeFunc        func() time.Time
	defaultScenario string
	commands        map[string]CommandFunc
	limiter         validation.RateLimiter
	sleepFn         transition.SleepFunc
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithEventBus publishes engine lifecycle events to bus.
func WithEventBus(bus *events.EventBus) Option {
	return func(o *Orchestrator) { o.bus = bus }
}

// WithTimeFunc sets a custom time source.
func WithTimeFunc(fn func() time.Time) Option {
	return func(o *Orchestrator) { o.timeFunc = fn }
}

// WithSleepFunc replaces the auto-transition delay sleep, for tests.
func WithSleepFunc(fn transition.SleepFunc) Option {
	return func(o *Orchestrator) { o.sleepFn = fn }
}

// WithRateLimiter replaces the default cache-counter rate limiter.
func WithRateLimiter(rl validation.RateLimiter) Option {
	return func(o *Orchestrator) { o.limiter = rl }
}

// WithDefaultScenario names the scenario new sessions start in. Without it
// the orchestrator uses the registry's sole scenario, if there is one.
func WithDefaultScenario(name string) Option {
	return func(o *Orchestrator) { o.defaultScenario = name }
}

// New wires an Orchestrator from its collaborators: the scenario registry,
// the durable state store, a cache for validation counters, and the
// outbound sink.
func New(reg *scenario.Registry, store statestore.Store, c cache.Cache, sink Sink, cfg *config.Config, opts ...Option) *Orchestrator {
	if cfg == nil {
		cfg = config.Default()
	}
	o := &Orchestrator{
		registry: reg,
		store:    store,
		proc:     processor.New(),
		sink:     sink,
		cfg:      cfg,
		timeFunc: time.Now,
		commands: make(map[string]CommandFunc),
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.limiter == nil {
		o.limiter = validation.NewCounterLimiter(c, cfg.MaxRequestsPerMinute)
	}
	o.validator = validation.New(c, o.limiter, cfg)

	engineOpts := []transition.Option{transition.WithTimeFunc(o.timeFunc)}
	if o.bus != nil {
		engineOpts = append(engineOpts, transition.WithEventBus(o.bus))
	}
	if o.sleepFn != nil {
		engineOpts = append(engineOpts, transition.WithSleepFunc(o.sleepFn))
	}
	o.engine = transition.New(store, sink, cfg, engineOpts...)

	return o
}

// RegisterCommand routes the named command (without prefix) to fn.
// The built-in "start" command resets the session; registering "start"
// overrides that.
func (o *Orchestrator) RegisterCommand(name string, fn CommandFunc) {
	o.commands[strings.ToLower(name)] = fn
}

// HandleEvent runs one full turn for an inbound event.
func (o *Orchestrator) HandleEvent(ctx context.Context, ev Event) (*Outcome, error) {
	key := statestore.SessionKey{BotID: ev.BotID, Platform: ev.Platform, ChatID: ev.ChatID}
	if !key.Valid() {
		return nil, fmt.Errorf("%w: bot_id, platform and chat_id are required", ErrInvalidEvent)
	}

	ctx = logger.WithLoggingContext(ctx, &logger.LoggingFields{
		BotID:      ev.BotID,
		Platform:   ev.Platform,
		ChatID:     ev.ChatID,
		SessionKey: key.String(),
		UserID:     ev.UserID,
	})
	em := events.NewEmitter(o.bus, ev.BotID, key.String())
	em.Received(ev.Platform, string(ev.Input.Kind))

	start := o.timeFunc()
	out, err := o.handleTurn(ctx, em, ev, key)
	status, rejectKind := "error", ""
	if err == nil {
		status = string(out.Status)
		rejectKind = string(out.RejectKind)
	}
	em.Handled(status, rejectKind, o.timeFunc().Sub(start))
	return out, err
}

func (o *Orchestrator) handleTurn(ctx context.Context, em *events.Emitter, ev Event, key statestore.SessionKey) (*Outcome, error) {
	st, sc, step, err := o.loadSession(ctx, key)
	if err != nil {
		return nil, err
	}
	if st != nil {
		ctx = logger.WithLoggingContext(ctx, &logger.LoggingFields{
			Scenario:        st.ScenarioName,
			ScenarioVersion: st.ScenarioVersion,
			StepID:          st.CurrentStep,
		})
	}

	res, err := o.validator.Validate(ctx, validation.Request{
		Key:    key,
		UserID: ev.UserID,
		State:  st,
		Step:   step,
		Input:  ev.Input,
	})
	if err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}

	if !res.Valid {
		return o.reject(ctx, em, key, st, res)
	}
	if res.Command {
		return o.routeCommand(ctx, em, ev, key, st)
	}

	return o.advance(ctx, em, key, st, sc, step, res)
}

// loadSession fetches state and resolves its scenario and current step.
// A missing session is not an error; unresolvable scenario or step come
// back nil and are handled as state mismatches downstream.
func (o *Orchestrator) loadSession(ctx context.Context, key statestore.SessionKey) (*statestore.DialogState, *scenario.Scenario, *scenario.Step, error) {
	st, err := o.store.Get(ctx, key)
	if errors.Is(err, statestore.ErrNotFound) {
		return nil, nil, nil, nil
	}
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load state: %w", err)
	}

	sc, err := o.registry.Get(st.ScenarioName, st.ScenarioVersion)
	if err != nil {
		logger.ScenarioFault(ctx, err, "scenario", st.ScenarioName, "scenario_version", st.ScenarioVersion)
		return st, nil, nil, nil
	}
	return st, sc, sc.Step(st.CurrentStep), nil
}

// reject converts a validation rejection into its outbound behavior.
// Duplicates send nothing at all. A state mismatch (re)starts the session,
// everything else sends the correction message.
func (o *Orchestrator) reject(ctx context.Context, em *events.Emitter, key statestore.SessionKey, st *statestore.DialogState, res *validation.Result) (*Outcome, error) {
	em.InputRejected(string(res.Kind))

	switch res.Kind {
	case validation.RejectDuplicate:
		return &Outcome{Status: StatusIgnored, RejectKind: res.Kind}, nil

	case validation.RejectStateMismatch:
		out, err := o.startSession(ctx, em, key)
		if err != nil {
			return nil, err
		}
		if st != nil {
			// An existing session at an unresolvable step is a recovery;
			// a user with no session yet is just a fresh start.
			out.Status = StatusRecovered
			out.RejectKind = res.Kind
		}
		return out, nil

	default:
		if res.CorrectionMessage != "" {
			var err error
			if len(res.SuggestedButtons) > 0 {
				err = o.sink.SendButtons(ctx, key, res.CorrectionMessage, res.SuggestedButtons)
			} else {
				err = o.sink.SendText(ctx, key, res.CorrectionMessage)
			}
			if err != nil {
				return nil, fmt.Errorf("send correction: %w", err)
			}
			logger.OutboundSend(ctx, transition.KindText, key.ChatID, "correction", string(res.Kind))
		}
		return &Outcome{Status: StatusRejected, RejectKind: res.Kind}, nil
	}
}

// advance applies a validated input: store the collected value, resolve the
// transition, send the next step and commit. Any scenario fault degrades to
// resending the current step so the session never dies mid-conversation.
func (o *Orchestrator) advance(ctx context.Context, em *events.Emitter, key statestore.SessionKey, st *statestore.DialogState, sc *scenario.Scenario, step *scenario.Step, res *validation.Result) (*Outcome, error) {
	data := mergedData(st, step, res)

	if step.ExpectedInput == nil {
		// Nothing was expected here. Re-present the step instead of
		// guessing at a transition.
		return o.resendStep(ctx, em, key, sc, st)
	}

	next, err := o.proc.ResolveNext(ctx, step, data)
	if err != nil {
		logger.ScenarioFault(ctx, err, "step_id", step.ID)
		return o.resendStep(ctx, em, key, sc, st)
	}

	variable := step.ExpectedInput.Variable

	if next == "" {
		// Terminal step that still collected input: commit the value and
		// let the dialog rest.
		committed, err := o.commit(ctx, key, st.Version, step.ID, step.ID, statestore.TriggerUserInput, variable, res.Value)
		if err != nil {
			return nil, err
		}
		em.StateCommitted(step.ID, step.ID, statestore.TriggerUserInput, committed.Version)
		return &Outcome{Status: StatusProcessed, StepID: step.ID}, nil
	}

	start := o.timeFunc()
	processed, err := o.proc.ProcessStep(ctx, sc, next, data)
	if err != nil {
		logger.ScenarioFault(ctx, err, "step_id", next)
		return o.resendStep(ctx, em, key, sc, st)
	}

	kind, err := transition.Deliver(ctx, o.sink, key, processed)
	if err != nil {
		return nil, fmt.Errorf("send step %q: %w", next, err)
	}
	em.MessageSent(next, kind, false)
	em.StepProcessed(next, o.timeFunc().Sub(start))
	logger.OutboundSend(ctx, kind, key.ChatID, "step_id", next)

	committed, err := o.commit(ctx, key, st.Version, step.ID, next, statestore.TriggerUserInput, variable, res.Value)
	if errors.Is(err, statestore.ErrVersionConflict) {
		// Another turn won the race after our send. Its state stands.
		logger.WarnContext(ctx, "commit lost version race", "step_id", next)
		return &Outcome{Status: StatusProcessed, StepID: next}, nil
	}
	if err != nil {
		return nil, err
	}
	em.StateCommitted(step.ID, next, statestore.TriggerUserInput, committed.Version)

	out := &Outcome{Status: StatusProcessed, StepID: next}
	if processed.AutoNext && processed.ExpectedInput == nil {
		out.Chain = o.engine.Run(ctx, transition.ChainRequest{
			Scenario: sc,
			Key:      key,
			StepID:   next,
			Version:  committed.Version,
			Delay:    processed.AutoNextDelay,
		})
		if out.Chain.Completed {
			final, err := o.store.Get(ctx, key)
			if err != nil {
				logger.DebugContext(ctx, "post-chain state load failed, outcome step may be stale", "error", err)
			} else {
				out.StepID = final.CurrentStep
			}
		}
	}
	return out, nil
}

// commit writes the turn's state change under the optimistic version check
// and records the transition in history.
func (o *Orchestrator) commit(ctx context.Context, key statestore.SessionKey, version int64, from, to, trigger, variable string, value any) (*statestore.DialogState, error) {
	committed, err := o.store.Update(ctx, key, version, func(s *statestore.DialogState) {
		if variable != "" && value != nil {
			if s.Collected == nil {
				s.Collected = make(map[string]any)
			}
			s.Collected[variable] = value
		}
		s.CurrentStep = to
		s.LastInteractionAt = o.timeFunc()
	})
	if err != nil {
		return nil, err
	}

	if from != to {
		if err := o.store.RecordHistory(ctx, key, statestore.HistoryEntry{
			FromStep:  from,
			ToStep:    to,
			Trigger:   trigger,
			Timestamp: o.timeFunc(),
		}); err != nil {
			logger.WarnContext(ctx, "history record failed", "error", err)
		}
	}
	return committed, nil
}

// resendStep re-renders and re-sends the session's current step without
// state changes. Used when processing faults or when input arrives at a
// step that expects none.
func (o *Orchestrator) resendStep(ctx context.Context, em *events.Emitter, key statestore.SessionKey, sc *scenario.Scenario, st *statestore.DialogState) (*Outcome, error) {
	if sc == nil || sc.Step(st.CurrentStep) == nil {
		return o.startSession(ctx, em, key)
	}

	processed, err := o.proc.ProcessStep(ctx, sc, st.CurrentStep, st.Collected)
	if err != nil {
		return nil, fmt.Errorf("resend step %q: %w", st.CurrentStep, err)
	}
	kind, err := transition.Deliver(ctx, o.sink, key, processed)
	if err != nil {
		return nil, fmt.Errorf("resend step %q: %w", st.CurrentStep, err)
	}
	em.MessageSent(st.CurrentStep, kind, false)
	logger.OutboundSend(ctx, kind, key.ChatID, "step_id", st.CurrentStep, "resend", true)

	return &Outcome{Status: StatusRecovered, StepID: st.CurrentStep}, nil
}
