package condition

import (
	"strconv"
	"strings"
	"sync"
)

// parseCache caches compiled expressions. Scenario predicates are a small
// fixed set per scenario, so entries are never evicted.
var parseCache sync.Map

// Evaluate evaluates a boolean expression against collected data.
//
// An empty expression is vacuously true (unconditioned transitions always
// match). Malformed expressions return ErrMalformed. Comparisons involving a
// missing variable are false rather than an error; exists() is the explicit
// existence check.
func Evaluate(expr string, data map[string]any) (bool, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return true, nil
	}

	var root node
	if cached, ok := parseCache.Load(expr); ok {
		root = cached.(node)
	} else {
		parsed, err := parse(expr)
		if err != nil {
			return false, err
		}
		parseCache.Store(expr, parsed)
		root = parsed
	}

	return truthy(root.eval(data)), nil
}

func (n *identNode) eval(data map[string]any) any {
	v, ok := data[n.name]
	if !ok {
		return nil
	}
	return v
}

func (n *literalNode) eval(map[string]any) any { return n.value }

func (n *existsNode) eval(data map[string]any) any {
	_, ok := data[n.name]
	return ok
}

func (n *notNode) eval(data map[string]any) any {
	return !truthy(n.child.eval(data))
}

func (n *binaryNode) eval(data map[string]any) any {
	switch n.op {
	case "and":
		return truthy(n.left.eval(data)) && truthy(n.right.eval(data))
	case "or":
		return truthy(n.left.eval(data)) || truthy(n.right.eval(data))
	}

	left := n.left.eval(data)
	right := n.right.eval(data)

	// Comparisons against a missing value are false by definition.
	if left == nil || right == nil {
		return false
	}

	switch n.op {
	case "==":
		return equal(left, right)
	case "!=":
		return !equal(left, right)
	case ">", "<", ">=", "<=":
		return compareOrdered(n.op, left, right)
	case "contains":
		return contains(left, right)
	}
	return false
}

// truthy converts an evaluated value to a boolean: nil, false, empty string,
// and zero are false; everything else is true.
func truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != ""
	case float64:
		return val != 0
	default:
		return true
	}
}

// equal compares two values, preferring numeric comparison when both sides
// coerce to numbers so that "5" == 5 holds for user-entered data.
func equal(a, b any) bool {
	if fa, aok := toNumber(a); aok {
		if fb, bok := toNumber(b); bok {
			return fa == fb
		}
	}
	if ba, aok := a.(bool); aok {
		if bb, bok := b.(bool); bok {
			return ba == bb
		}
	}
	return asString(a) == asString(b)
}

// compareOrdered applies an ordering operator. Both operands must coerce to
// numbers; anything else is false.
func compareOrdered(op string, a, b any) bool {
	fa, aok := toNumber(a)
	fb, bok := toNumber(b)
	if !aok || !bok {
		return false
	}
	switch op {
	case ">":
		return fa > fb
	case "<":
		return fa < fb
	case ">=":
		return fa >= fb
	case "<=":
		return fa <= fb
	}
	return false
}

// contains reports substring containment for strings and membership for
// slices of collected values.
func contains(a, b any) bool {
	if list, ok := a.([]any); ok {
		for _, item := range list {
			if equal(item, b) {
				return true
			}
		}
		return false
	}
	return strings.Contains(asString(a), asString(b))
}

func toNumber(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func asString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}
