package enums

import (
	"fmt"
	"strings"

	"rim/internal/document"
)

// ResolveContext evaluates an enumPath such as "../personalActivityType"
// against a document stack. The last element of stack is the document holding
// the field being validated and earlier elements are its ancestors. "."
// stays on the current document, ".." moves to the parent, and the final
// segment names the sibling field (dotted names reach into sub-documents).
func ResolveContext(path string, stack []map[string]any) (string, bool) {
	segments := strings.Split(path, "/")
	level := len(stack) - 1

	for _, seg := range segments[:len(segments)-1] {
		switch seg {
		case "", ".":
		case "..":
			level--
		default:
			return "", false
		}
	}
	if level < 0 {
		return "", false
	}

	field := segments[len(segments)-1]
	if field == "" || field == "." || field == ".." {
		return "", false
	}

	v, ok := document.Get(stack[level], field)
	if !ok || v == nil {
		return "", false
	}
	if s, ok := v.(string); ok {
		return s, s != ""
	}
	return fmt.Sprint(v), true
}

// Check validates value against enum name. Nested enums pick their bucket
// through enumPath.
func (r *Registry) Check(name string, enumPath string, value string, stack []map[string]any) bool {
	if !r.IsNested(name) {
		return r.Contains(name, value)
	}

	context, ok := ResolveContext(enumPath, stack)
	if !ok {
		return false
	}
	return r.ContainsNested(name, context, value)
}
