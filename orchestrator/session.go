package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/AltairaLabs/DialogKit/events"
	"github.com/AltairaLabs/DialogKit/logger"
	"github.com/AltairaLabs/DialogKit/scenario"
	"github.com/AltairaLabs/DialogKit/statestore"
	"github.com/AltairaLabs/DialogKit/transition"
	"github.com/AltairaLabs/DialogKit/validation"
)

// startScenario resolves the scenario new or reset sessions run.
func (o *Orchestrator) startScenario() (*scenario.Scenario, error) {
	name := o.defaultScenario
	if name == "" {
		names := o.registry.Names()
		if len(names) != 1 {
			return nil, fmt.Errorf("%w: no default scenario configured", ErrNoScenario)
		}
		name = names[0]
	}
	sc, err := o.registry.Latest(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoScenario, err)
	}
	return sc, nil
}

// startSession creates a session at the scenario's start step, sends the
// start step's message and runs its auto chain if it has one. When a
// session already exists it is reset in place instead.
func (o *Orchestrator) startSession(ctx context.Context, em *events.Emitter, key statestore.SessionKey) (*Outcome, error) {
	sc, err := o.startScenario()
	if err != nil {
		return nil, err
	}
	ctx = logger.WithLoggingContext(ctx, &logger.LoggingFields{
		Scenario:        sc.Name,
		ScenarioVersion: sc.Version,
		StepID:          sc.StartStep,
	})

	st := &statestore.DialogState{
		Key:               key,
		ScenarioName:      sc.Name,
		ScenarioVersion:   sc.Version,
		CurrentStep:       sc.StartStep,
		Collected:         make(map[string]any),
		LastInteractionAt: o.timeFunc(),
	}
	err = o.store.Create(ctx, st)
	switch {
	case errors.Is(err, statestore.ErrAlreadyExists):
		st, err = o.resetSession(ctx, em, key, sc)
		if err != nil {
			return nil, err
		}
	case err != nil:
		return nil, fmt.Errorf("create session: %w", err)
	default:
		em.SessionCreated(sc.Name, sc.Version)
		logger.InfoContext(ctx, "session created")
	}

	return o.sendStart(ctx, em, key, sc, st)
}

// resetSession rewinds an existing session to the scenario start step and
// clears its collected data. The reset retries once on a version race; a
// concurrent turn between the load and the update is expected traffic,
// not a failure.
func (o *Orchestrator) resetSession(ctx context.Context, em *events.Emitter, key statestore.SessionKey, sc *scenario.Scenario) (*statestore.DialogState, error) {
	var st *statestore.DialogState
	for attempt := 0; attempt < 2; attempt++ {
		cur, err := o.store.Get(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("reset session: %w", err)
		}
		st, err = o.store.Update(ctx, key, cur.Version, func(s *statestore.DialogState) {
			s.ScenarioName = sc.Name
			s.ScenarioVersion = sc.Version
			s.CurrentStep = sc.StartStep
			s.Collected = make(map[string]any)
			s.LastInteractionAt = o.timeFunc()
		})
		if errors.Is(err, statestore.ErrVersionConflict) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reset session: %w", err)
		}
		em.SessionReset(sc.Name)
		logger.InfoContext(ctx, "session reset", "start_step", sc.StartStep)
		return st, nil
	}
	return nil, fmt.Errorf("reset session: %w", statestore.ErrVersionConflict)
}

// sendStart performs the origin send for the start step and delegates its
// auto chain.
func (o *Orchestrator) sendStart(ctx context.Context, em *events.Emitter, key statestore.SessionKey, sc *scenario.Scenario, st *statestore.DialogState) (*Outcome, error) {
	processed, err := o.proc.ProcessStep(ctx, sc, sc.StartStep, st.Collected)
	if err != nil {
		return nil, fmt.Errorf("process start step: %w", err)
	}

	kind, err := transition.Deliver(ctx, o.sink, key, processed)
	if err != nil {
		return nil, fmt.Errorf("send start step: %w", err)
	}
	em.MessageSent(sc.StartStep, kind, false)
	logger.OutboundSend(ctx, kind, key.ChatID, "step_id", sc.StartStep)

	out := &Outcome{Status: StatusProcessed, StepID: sc.StartStep}
	if processed.AutoNext && processed.ExpectedInput == nil {
		out.Chain = o.engine.Run(ctx, transition.ChainRequest{
			Scenario: sc,
			Key:      key,
			StepID:   sc.StartStep,
			Version:  st.Version,
			Delay:    processed.AutoNextDelay,
		})
		if out.Chain.Completed {
			if final, err := o.store.Get(ctx, key); err != nil {
				logger.DebugContext(ctx, "post-chain state load failed, outcome step may be stale", "error", err)
			} else {
				out.StepID = final.CurrentStep
			}
		}
	}
	return out, nil
}

// routeCommand dispatches a validated command input. "start" is built in;
// other commands go through registered handlers and unknown ones are
// dropped quietly.
func (o *Orchestrator) routeCommand(ctx context.Context, em *events.Emitter, ev Event, key statestore.SessionKey, st *statestore.DialogState) (*Outcome, error) {
	name := strings.ToLower(strings.TrimPrefix(ev.Input.Value, o.cfg.CommandPrefix))
	if i := strings.IndexByte(name, ' '); i >= 0 {
		name = name[:i]
	}
	logger.InfoContext(ctx, "command received", "command", name)

	if fn, ok := o.commands[name]; ok {
		if err := fn(ctx, ev, st); err != nil {
			return nil, fmt.Errorf("command %q: %w", name, err)
		}
		return &Outcome{Status: StatusCommand}, nil
	}

	if name == "start" {
		out, err := o.startSession(ctx, em, key)
		if err != nil {
			return nil, err
		}
		out.Status = StatusCommand
		return out, nil
	}

	logger.DebugContext(ctx, "unknown command ignored", "command", name)
	return &Outcome{Status: StatusIgnored}, nil
}

// mergedData is the view of collected data used for transition resolution:
// the session's collected variables plus the value the current input just
// produced, so predicates can reference the variable being collected.
func mergedData(st *statestore.DialogState, step *scenario.Step, res *validation.Result) map[string]any {
	data := make(map[string]any, len(st.Collected)+1)
	for k, v := range st.Collected {
		data[k] = v
	}
	if step.ExpectedInput != nil && step.ExpectedInput.Variable != "" && res.Value != nil {
		data[step.ExpectedInput.Variable] = res.Value
	}
	return data
}
