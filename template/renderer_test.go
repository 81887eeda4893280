package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRender_BasicSubstitution(t *testing.T) {
	r := NewRenderer()

	out := r.Render("Hello {{name}}, welcome to {{city}}!", map[string]any{
		"name": "Alice",
		"city": "Berlin",
	})
	assert.Equal(t, "Hello Alice, welcome to Berlin!", out)
}

func TestRender_MissingVariableRendersEmpty(t *testing.T) {
	r := NewRenderer()

	out := r.Render("Hello {{name}}!", map[string]any{})
	assert.Equal(t, "Hello !", out)
}

func TestRender_NilValueRendersEmpty(t *testing.T) {
	r := NewRenderer()

	out := r.Render("Value: {{x}}", map[string]any{"x": nil})
	assert.Equal(t, "Value: ", out)
}

func TestRender_NumericValues(t *testing.T) {
	r := NewRenderer()

	vars := map[string]any{"age": float64(30), "score": 7.25}
	out := r.Render("{{age}} / {{score}}", vars)
	assert.Equal(t, "30 / 7.25", out)
}

func TestRender_WhitespaceInPlaceholder(t *testing.T) {
	r := NewRenderer()

	out := r.Render("Hi {{ name }}", map[string]any{"name": "Bob"})
	assert.Equal(t, "Hi Bob", out)
}

func TestRender_Idempotent(t *testing.T) {
	r := NewRenderer()
	vars := map[string]any{"a": "one", "b": float64(2)}
	tmpl := "{{a}} and {{b}} and {{missing}}"

	first := r.Render(tmpl, vars)
	second := r.Render(tmpl, vars)
	assert.Equal(t, first, second)
}

func TestRender_ValueContainingPlaceholderNotReExpanded(t *testing.T) {
	r := NewRenderer()

	out := r.Render("{{a}}", map[string]any{"a": "{{b}}", "b": "secret"})
	assert.Equal(t, "{{b}}", out)
}

func TestRender_NonPlaceholderBracesUntouched(t *testing.T) {
	r := NewRenderer()

	out := r.Render("code {{{x}} literal {}", map[string]any{"x": "v"})
	assert.Equal(t, "code {v literal {}", out)
}

func TestPlaceholders(t *testing.T) {
	r := NewRenderer()

	names := r.Placeholders("{{a}} {{b}} {{a}}")
	assert.Equal(t, []string{"a", "b"}, names)
}

func TestMergeVars_LaterMapsWin(t *testing.T) {
	merged := MergeVars(
		map[string]any{"color": "blue", "size": "medium"},
		map[string]any{"color": "red"},
	)
	assert.Equal(t, "red", merged["color"])
	assert.Equal(t, "medium", merged["size"])
}
