// Package processor turns scenario steps into ready-to-send messages and
// resolves step transitions against collected session data.
package processor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AltairaLabs/DialogKit/condition"
	"github.com/AltairaLabs/DialogKit/logger"
	"github.com/AltairaLabs/DialogKit/scenario"
	"github.com/AltairaLabs/DialogKit/template"
	"github.com/AltairaLabs/DialogKit/types"
)

// ErrNoMatchingTransition is returned when a conditional next_step has no
// truthy predicate and no default target.
var ErrNoMatchingTransition = errors.New("no matching transition")

// ProcessedStep is the fully resolved output of processing one scenario step:
// the rendered message, what input the step expects, and where the dialog
// goes next.
type ProcessedStep struct {
	StepID        string
	Text          string
	Media         []types.MediaItem
	Buttons       []types.Button
	ExpectedInput *scenario.ExpectedInput
	NextStepID    string
	AutoNext      bool
	AutoNextDelay time.Duration
}

// Processor renders step messages and resolves transitions.
// It is stateless and safe for concurrent use.
type Processor struct {
	renderer *template.Renderer
}

// New creates a Processor.
func New() *Processor {
	return &Processor{
		renderer: template.NewRenderer(),
	}
}

// ProcessStep resolves the step with the given id against collected data
// and produces its outbound message and transition directives.
//
// For steps that await user input, next-step resolution is deferred: the
// predicates may reference the variable the step is about to collect, so
// NextStepID stays empty and the caller resolves it once input arrives.
func (p *Processor) ProcessStep(ctx context.Context, sc *scenario.Scenario, stepID string, data map[string]any) (*ProcessedStep, error) {
	step := sc.Step(stepID)
	if step == nil {
		return nil, fmt.Errorf("%w: %q", scenario.ErrStepNotFound, stepID)
	}

	out := &ProcessedStep{
		StepID:        step.ID,
		Text:          p.renderer.Render(step.Message.Text, data),
		Media:         step.Message.Media,
		Buttons:       step.Buttons,
		ExpectedInput: step.ExpectedInput,
		AutoNext:      step.AutoNext,
		AutoNextDelay: step.AutoNextDelay,
	}

	if step.ExpectedInput == nil {
		next, err := p.ResolveNext(ctx, step, data)
		if err != nil {
			return nil, err
		}
		out.NextStepID = next
	}

	return out, nil
}

// ResolveNext resolves the target of step's next_step against data.
// Conditional entries are evaluated in declaration order and the first
// truthy predicate wins; an unconditioned default entry is the fallback.
// Returns "" for a terminal step and ErrNoMatchingTransition when a
// conditional has neither a truthy predicate nor a default.
//
// A malformed predicate is treated as false: the scenario passed load-time
// validation with a warning, so at runtime it only costs a diagnostic.
func (p *Processor) ResolveNext(ctx context.Context, step *scenario.Step, data map[string]any) (string, error) {
	next := step.Next
	if next == nil {
		return "", nil
	}
	if !next.IsConditional() {
		return next.StepID, nil
	}

	for _, cond := range next.Conditions {
		ok, err := condition.Evaluate(cond.If, data)
		if err != nil {
			logger.WarnContext(ctx, "condition evaluation failed, treating as false",
				"step_id", step.ID,
				"condition", cond.If,
				"error", err,
			)
			continue
		}
		if ok {
			return cond.Then, nil
		}
	}

	if next.Default != "" {
		return next.Default, nil
	}
	return "", fmt.Errorf("%w: step %q", ErrNoMatchingTransition, step.ID)
}
