package processor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AltairaLabs/DialogKit/scenario"
	"github.com/AltairaLabs/DialogKit/types"
)

func testScenario() *scenario.Scenario {
	return &scenario.Scenario{
		Name:      "onboarding",
		Version:   "1.0.0",
		StartStep: "welcome",
		Steps: map[string]*scenario.Step{
			"welcome": {
				ID:            "welcome",
				Type:          scenario.StepMessage,
				Message:       scenario.MessageSpec{Text: "Hi {{first_name}}!"},
				Next:          &scenario.NextStep{StepID: "fork"},
				AutoNext:      true,
				AutoNextDelay: time.Second,
			},
			"fork": {
				ID:      "fork",
				Type:    scenario.StepConditionalMessage,
				Message: scenario.MessageSpec{Text: "Routing..."},
				Next: &scenario.NextStep{
					Conditions: []scenario.ConditionalTarget{
						{If: "x > 3", Then: "a"},
						{If: "x > 1", Then: "b"},
					},
					Default: "c",
				},
			},
			"a": {ID: "a", Type: scenario.StepMessage, Message: scenario.MessageSpec{Text: "A"}},
			"b": {ID: "b", Type: scenario.StepMessage, Message: scenario.MessageSpec{Text: "B"}},
			"c": {ID: "c", Type: scenario.StepMessage, Message: scenario.MessageSpec{Text: "C"}},
		},
	}
}

func TestProcessStep_RendersTemplate(t *testing.T) {
	p := New()
	ctx := context.Background()

	out, err := p.ProcessStep(ctx, testScenario(), "welcome", map[string]any{"first_name": "Ada"})
	require.NoError(t, err)

	assert.Equal(t, "welcome", out.StepID)
	assert.Equal(t, "Hi Ada!", out.Text)
	assert.Equal(t, "fork", out.NextStepID)
	assert.True(t, out.AutoNext)
	assert.Equal(t, time.Second, out.AutoNextDelay)
}

func TestProcessStep_MissingVariableRendersEmpty(t *testing.T) {
	p := New()

	out, err := p.ProcessStep(context.Background(), testScenario(), "welcome", nil)
	require.NoError(t, err)
	assert.Equal(t, "Hi !", out.Text)
}

func TestProcessStep_StepNotFound(t *testing.T) {
	p := New()

	_, err := p.ProcessStep(context.Background(), testScenario(), "ghost", nil)
	assert.ErrorIs(t, err, scenario.ErrStepNotFound)
}

func TestProcessStep_TerminalStep(t *testing.T) {
	p := New()

	out, err := p.ProcessStep(context.Background(), testScenario(), "a", nil)
	require.NoError(t, err)
	assert.Empty(t, out.NextStepID)
	assert.False(t, out.AutoNext)
}

func TestResolveNext_FirstMatchWins(t *testing.T) {
	p := New()
	sc := testScenario()

	// x=5 satisfies both predicates; declaration order decides.
	next, err := p.ResolveNext(context.Background(), sc.Step("fork"), map[string]any{"x": 5})
	require.NoError(t, err)
	assert.Equal(t, "a", next)

	next, err = p.ResolveNext(context.Background(), sc.Step("fork"), map[string]any{"x": 2})
	require.NoError(t, err)
	assert.Equal(t, "b", next)
}

func TestResolveNext_DefaultFallback(t *testing.T) {
	p := New()
	sc := testScenario()

	next, err := p.ResolveNext(context.Background(), sc.Step("fork"), map[string]any{"x": 0})
	require.NoError(t, err)
	assert.Equal(t, "c", next)

	// Missing variable makes every comparison false.
	next, err = p.ResolveNext(context.Background(), sc.Step("fork"), nil)
	require.NoError(t, err)
	assert.Equal(t, "c", next)
}

func TestResolveNext_NoMatchNoDefault(t *testing.T) {
	p := New()
	step := &scenario.Step{
		ID: "fork",
		Next: &scenario.NextStep{
			Conditions: []scenario.ConditionalTarget{
				{If: "x > 3", Then: "a"},
			},
		},
	}

	_, err := p.ResolveNext(context.Background(), step, map[string]any{"x": 1})
	assert.ErrorIs(t, err, ErrNoMatchingTransition)
}

func TestResolveNext_MalformedPredicateIsFalse(t *testing.T) {
	p := New()
	step := &scenario.Step{
		ID: "fork",
		Next: &scenario.NextStep{
			Conditions: []scenario.ConditionalTarget{
				{If: "x >", Then: "a"},
				{If: "x == 1", Then: "b"},
			},
			Default: "c",
		},
	}

	next, err := p.ResolveNext(context.Background(), step, map[string]any{"x": 1})
	require.NoError(t, err)
	assert.Equal(t, "b", next)
}

func TestProcessStep_ExpectedInputDefersResolution(t *testing.T) {
	p := New()
	sc := &scenario.Scenario{
		Name: "s", Version: "1.0.0", StartStep: "ask",
		Steps: map[string]*scenario.Step{
			"ask": {
				ID:      "ask",
				Type:    scenario.StepMessage,
				Message: scenario.MessageSpec{Text: "Age?"},
				ExpectedInput: &scenario.ExpectedInput{
					Kind:     types.InputNumber,
					Variable: "age",
				},
				Next: &scenario.NextStep{
					Conditions: []scenario.ConditionalTarget{
						{If: "age >= 18", Then: "adult"},
					},
					Default: "minor",
				},
			},
			"adult": {ID: "adult", Type: scenario.StepMessage, Message: scenario.MessageSpec{Text: "ok"}},
			"minor": {ID: "minor", Type: scenario.StepMessage, Message: scenario.MessageSpec{Text: "no"}},
		},
	}

	// The predicate references the not-yet-collected variable, so
	// processing the step must not resolve (or fail to resolve) the
	// transition.
	out, err := p.ProcessStep(context.Background(), sc, "ask", nil)
	require.NoError(t, err)
	assert.Empty(t, out.NextStepID)
	require.NotNil(t, out.ExpectedInput)

	// Once the input is collected the transition resolves normally.
	next, err := p.ResolveNext(context.Background(), sc.Step("ask"), map[string]any{"age": 30})
	require.NoError(t, err)
	assert.Equal(t, "adult", next)
}

func TestProcessStep_IdempotentRendering(t *testing.T) {
	p := New()
	data := map[string]any{"first_name": "Ada"}

	first, err := p.ProcessStep(context.Background(), testScenario(), "welcome", data)
	require.NoError(t, err)
	second, err := p.ProcessStep(context.Background(), testScenario(), "welcome", data)
	require.NoError(t, err)

	assert.Equal(t, first.Text, second.Text)
}
