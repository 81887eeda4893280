// Package scenario defines the typed in-memory scenario model, the JSON
// loader that produces it, and a versioned registry for looking scenarios up.
//
// A scenario is an immutable conversation definition: a graph of steps with
// transition rules. Documents are validated against an embedded JSON Schema
// and resolved into this closed, strongly typed representation once at load
// time; unknown step types and input kinds are rejected there, never at
// runtime.
package scenario

import (
	"time"

	"github.com/AltairaLabs/DialogKit/types"
)

// StepType is the closed set of step variants.
type StepType string

// Step types.
const (
	StepMessage            StepType = "message"
	StepConditionalMessage StepType = "conditional_message"
)

// Scenario is an immutable, validated conversation definition.
type Scenario struct {
	Name        string
	Version     string
	Description string
	StartStep   string
	Steps       map[string]*Step
}

// Step returns the step with the given id, or nil if absent.
func (s *Scenario) Step(id string) *Step {
	return s.Steps[id]
}

// Step is one unit of bot output plus optional expected input and
// transition logic.
type Step struct {
	ID            string
	Type          StepType
	Message       MessageSpec
	Buttons       []types.Button
	ExpectedInput *ExpectedInput
	Next          *NextStep // nil means terminal
	AutoNext      bool
	AutoNextDelay time.Duration
}

// IsTerminal reports whether the step has no outgoing transition.
func (st *Step) IsTerminal() bool {
	return st.Next == nil
}

// ButtonValues returns the declared button values for the step.
func (st *Step) ButtonValues() []string {
	vals := make([]string, 0, len(st.Buttons))
	for _, b := range st.Buttons {
		vals = append(vals, b.Value)
	}
	return vals
}

// HasButtonValue reports whether value is in the step's declared button set.
func (st *Step) HasButtonValue(value string) bool {
	for _, b := range st.Buttons {
		if b.Value == value {
			return true
		}
	}
	return false
}

// MessageSpec is the outbound message content of a step before variable
// substitution.
type MessageSpec struct {
	Text  string
	Media []types.MediaItem
}

// ExpectedInput declares what the step waits for. A step with no
// ExpectedInput is auto-progressing by construction.
type ExpectedInput struct {
	Kind       types.InputKind
	Variable   string
	Validation ValidationRules
}

// ValidationRules are the per-kind validation constraints for an expected
// input. Only the fields relevant to the declared kind are consulted.
type ValidationRules struct {
	MinValue     *float64
	MaxValue     *float64
	MinLength    int
	MaxLength    int
	Pattern      string
	MimeTypes    []string
	MaxSizeBytes int64
	MinDate      string
	MaxDate      string
}

// NextStep is a transition rule: either a literal target step id, or an
// ordered conditional list evaluated first-match-wins with an optional
// default fallback.
type NextStep struct {
	StepID     string
	Conditions []ConditionalTarget
	Default    string
}

// IsConditional reports whether the transition carries predicates.
func (n *NextStep) IsConditional() bool {
	return len(n.Conditions) > 0 || n.Default != ""
}

// Targets returns every step id the transition can resolve to.
func (n *NextStep) Targets() []string {
	if n == nil {
		return nil
	}
	if !n.IsConditional() {
		return []string{n.StepID}
	}
	targets := make([]string, 0, len(n.Conditions)+1)
	for _, c := range n.Conditions {
		targets = append(targets, c.Then)
	}
	if n.Default != "" {
		targets = append(targets, n.Default)
	}
	return targets
}

// ConditionalTarget is a single predicate/target pair of a conditional
// transition.
type ConditionalTarget struct {
	If   string
	Then string
}
