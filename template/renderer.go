// Package template provides variable substitution for step message templates.
//
// Templates use {{variable}} syntax. Substitution is a pure function of the
// template text and the variable map: rendering the same inputs twice yields
// identical output. Variables that are absent from the map render as an empty
// string, so optional collected data never blocks a message from being
// sent. Callers that care about unresolved
// placeholders can inspect them via Placeholders before rendering.
package template

import (
	"fmt"
	"regexp"
)

// placeholderRe matches {{variable}} placeholders. Variable names are
// word characters only; anything else is left in the text untouched.
var placeholderRe = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_]*)\s*\}\}`)

// Renderer substitutes collected-data variables into message templates.
type Renderer struct{}

// NewRenderer creates a new template renderer.
func NewRenderer() *Renderer {
	return &Renderer{}
}

// Render substitutes {{var}} placeholders with values from vars.
// Missing variables render as an empty string. Values are inserted verbatim;
// placeholders inside substituted values are not re-expanded, which keeps
// rendering idempotent.
func (r *Renderer) Render(templateText string, vars map[string]any) string {
	return placeholderRe.ReplaceAllStringFunc(templateText, func(match string) string {
		name := placeholderRe.FindStringSubmatch(match)[1]
		v, ok := vars[name]
		if !ok || v == nil {
			return ""
		}
		return Stringify(v)
	})
}

// Placeholders returns the variable names referenced by the template,
// in order of first appearance.
func (r *Renderer) Placeholders(templateText string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, m := range placeholderRe.FindAllStringSubmatch(templateText, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}

// MergeVars merges multiple variable maps with later maps taking precedence.
// Useful for combining scenario defaults with per-session collected data.
func MergeVars(varMaps ...map[string]any) map[string]any {
	result := make(map[string]any)
	for _, vars := range varMaps {
		for k, v := range vars {
			result[k] = v
		}
	}
	return result
}

// Stringify converts a collected-data value to its template representation.
// Numbers render without a trailing ".0" when they are whole, matching how
// they were typically entered by the user.
func Stringify(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%g", val)
	case bool:
		if val {
			return "true"
		}
		return "false"
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", val)
	}
}
