package scenario

import (
	"fmt"

	"github.com/AltairaLabs/DialogKit/condition"
)

// ValidationResult holds errors and warnings from scenario validation.
type ValidationResult struct {
	Errors   []string // Blocking: unresolved references, auto-advance cycles
	Warnings []string // Non-blocking: user-driven cycles, malformed predicates
}

// HasErrors returns true if there are blocking validation errors.
func (r *ValidationResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// Validate checks a resolved scenario for structural consistency.
//
// Every next_step reference must resolve to an existing step. Cycles made
// entirely of auto_next steps are errors: a chain entering one would always
// run until the chain bounds trip. Cycles that pass through at least one
// user-driven step are legal (menus are cycles by design) and reported as
// warnings so authors see them. Malformed transition predicates are warnings:
// at runtime they evaluate as false with a diagnostic.
func Validate(sc *Scenario) *ValidationResult {
	r := &ValidationResult{}

	if len(sc.Steps) == 0 {
		r.Errors = append(r.Errors, "scenario has no steps")
		return r
	}
	if _, ok := sc.Steps[sc.StartStep]; !ok {
		r.Errors = append(r.Errors, fmt.Sprintf(
			"start_step %q does not reference a step", sc.StartStep))
	}

	for id, step := range sc.Steps {
		validateStepRefs(sc, id, step, r)
		validatePredicates(id, step, r)
	}

	detectCycles(sc, r)
	return r
}

// validateStepRefs checks that every transition target exists.
func validateStepRefs(sc *Scenario, id string, step *Step, r *ValidationResult) {
	if step.Next == nil {
		return
	}
	for _, target := range step.Next.Targets() {
		if target == "" {
			continue
		}
		if _, ok := sc.Steps[target]; !ok {
			r.Errors = append(r.Errors, fmt.Sprintf(
				"step %q references missing step %q", id, target))
		}
	}
	if step.Next.IsConditional() && len(step.Next.Conditions) == 0 && step.Next.Default == "" {
		r.Errors = append(r.Errors, fmt.Sprintf(
			"step %q has a conditional transition with no conditions", id))
	}
}

// validatePredicates compiles each predicate once so authors learn about
// malformed expressions at load time.
func validatePredicates(id string, step *Step, r *ValidationResult) {
	if step.Next == nil {
		return
	}
	for i, c := range step.Next.Conditions {
		if _, err := condition.Evaluate(c.If, map[string]any{}); err != nil {
			r.Warnings = append(r.Warnings, fmt.Sprintf(
				"step %q condition %d: %v (will evaluate as false)", id, i, err))
		}
	}
}

// detectCycles runs DFS over the transition graph. A cycle whose every node
// has auto_next set is a blocking error; other cycles are warnings.
func detectCycles(sc *Scenario, r *ValidationResult) {
	const (
		white = iota // unvisited
		gray         // in current DFS path
		black        // fully explored
	)

	color := make(map[string]int, len(sc.Steps))
	var path []string

	var dfs func(id string)
	dfs = func(id string) {
		color[id] = gray
		path = append(path, id)

		step := sc.Steps[id]
		if step != nil && step.Next != nil {
			for _, target := range step.Next.Targets() {
				switch color[target] {
				case gray:
					reportCycle(sc, append(cycleFrom(path, target), target), r)
				case white:
					if _, ok := sc.Steps[target]; ok {
						dfs(target)
					}
				}
			}
		}

		path = path[:len(path)-1]
		color[id] = black
	}

	for id := range sc.Steps {
		if color[id] == white {
			dfs(id)
		}
	}
}

// cycleFrom slices the DFS path from the first occurrence of start.
func cycleFrom(path []string, start string) []string {
	for i, id := range path {
		if id == start {
			cycle := make([]string, len(path)-i)
			copy(cycle, path[i:])
			return cycle
		}
	}
	return append([]string(nil), path...)
}

func reportCycle(sc *Scenario, cycle []string, r *ValidationResult) {
	allAuto := true
	for _, id := range cycle[:len(cycle)-1] {
		step := sc.Steps[id]
		if step == nil || !step.AutoNext || step.ExpectedInput != nil {
			allAuto = false
			break
		}
	}

	desc := ""
	for i, id := range cycle {
		if i > 0 {
			desc += " -> "
		}
		desc += id
	}

	if allAuto {
		r.Errors = append(r.Errors, fmt.Sprintf(
			"auto-advance cycle: %s (would loop without user input)", desc))
	} else {
		r.Warnings = append(r.Warnings, fmt.Sprintf("scenario contains a cycle: %s", desc))
	}
}
