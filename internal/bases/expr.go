// Package bases implements the filter-expression language and the metadata
// query engine ("bases") that applies it across the vault.
package bases

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// Expression is the filter tagged union. Exactly one field is set: a raw
// string literal (itself a mini-grammar evaluated lazily), or a list of
// sub-expressions combined with And, Or, or Not. Not(L) reads as
// !(L[0] || L[1] || ...), not as a per-element negation.
type Expression struct {
	Literal string
	And     []Expression
	Or      []Expression
	Not     []Expression
}

// IsZero reports whether the expression is empty (no filter).
func (e *Expression) IsZero() bool {
	return e.Literal == "" && len(e.And) == 0 && len(e.Or) == 0 && len(e.Not) == 0
}

// UnmarshalYAML accepts either a scalar literal or a one-key mapping
// {and: [...]} / {or: [...]} / {not: [...]}.
func (e *Expression) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		e.Literal = value.Value
		return nil
	case yaml.MappingNode:
		for i := 0; i+1 < len(value.Content); i += 2 {
			key := strings.ToLower(value.Content[i].Value)
			var list []Expression
			if err := value.Content[i+1].Decode(&list); err != nil {
				return fmt.Errorf("bases: decode %s list: %w", key, err)
			}
			switch key {
			case "and":
				e.And = list
			case "or":
				e.Or = list
			case "not":
				e.Not = list
			default:
				return fmt.Errorf("bases: unknown filter combinator %q", key)
			}
		}
		return nil
	default:
		return fmt.Errorf("bases: filter must be a string or a combinator map")
	}
}

// UnmarshalJSON mirrors the YAML form for JSON payloads.
func (e *Expression) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		e.Literal = s
		return nil
	}
	var m map[string][]Expression
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("bases: filter must be a string or a combinator map")
	}
	for key, list := range m {
		switch strings.ToLower(key) {
		case "and":
			e.And = list
		case "or":
			e.Or = list
		case "not":
			e.Not = list
		default:
			return fmt.Errorf("bases: unknown filter combinator %q", key)
		}
	}
	return nil
}

// MarshalJSON emits the same shape UnmarshalJSON accepts.
func (e Expression) MarshalJSON() ([]byte, error) {
	switch {
	case len(e.And) > 0:
		return json.Marshal(map[string][]Expression{"and": e.And})
	case len(e.Or) > 0:
		return json.Marshal(map[string][]Expression{"or": e.Or})
	case len(e.Not) > 0:
		return json.Marshal(map[string][]Expression{"not": e.Not})
	default:
		return json.Marshal(e.Literal)
	}
}

// Evaluate computes the expression against a document context. Evaluation
// is pure: it never mutates ctx and identical inputs always yield the same
// result. Malformed pieces evaluate false rather than raising.
func Evaluate(e Expression, ctx *Context) bool {
	switch {
	case len(e.And) > 0:
		for _, sub := range e.And {
			if !Evaluate(sub, ctx) {
				return false
			}
		}
		return true
	case len(e.Or) > 0:
		for _, sub := range e.Or {
			if Evaluate(sub, ctx) {
				return true
			}
		}
		return false
	case len(e.Not) > 0:
		// !(a || b): true only when no sub-expression holds.
		for _, sub := range e.Not {
			if Evaluate(sub, ctx) {
				return false
			}
		}
		return true
	case e.Literal != "":
		return evalString(e.Literal, ctx)
	default:
		// Empty And is vacuously true; an entirely empty expression is
		// treated the same way (no filter).
		return true
	}
}

// evalString applies the fixed left-to-right grammar: top-level &&, then
// top-level ||, then leading !, then built-in calls, then binary
// comparison, then bare truthiness. There is no conventional operator
// precedence beyond this order.
func evalString(s string, ctx *Context) bool {
	s = unwrapParens(strings.TrimSpace(s))
	if s == "" {
		return false
	}

	if parts := splitTopLevel(s, "&&"); len(parts) > 1 {
		for _, part := range parts {
			if !evalString(part, ctx) {
				return false
			}
		}
		return true
	}

	if parts := splitTopLevel(s, "||"); len(parts) > 1 {
		for _, part := range parts {
			if evalString(part, ctx) {
				return true
			}
		}
		return false
	}

	if strings.HasPrefix(s, "!") {
		return !evalString(s[1:], ctx)
	}

	if name, args, ok := matchCall(s); ok {
		return callBuiltin(name, args, ctx)
	}

	if lhs, op, rhs, ok := splitComparison(s); ok {
		return compare(resolveValue(lhs, ctx), op, resolveValue(rhs, ctx))
	}

	return truthy(resolveValue(s, ctx))
}

// unwrapParens strips a balanced outer parenthesis pair, repeatedly.
func unwrapParens(s string) string {
	for strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		depth := 0
		balanced := true
		for i, r := range s {
			switch r {
			case '(':
				depth++
			case ')':
				depth--
				if depth == 0 && i != len(s)-1 {
					balanced = false
				}
			}
			if !balanced {
				break
			}
		}
		if !balanced || depth != 0 {
			return s
		}
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}

// splitTopLevel splits s on op occurrences that sit outside parentheses and
// quoted strings. This is an explicit depth/quote scan: an operator inside
// contains(x, "a && b") must not split the expression.
func splitTopLevel(s, op string) []string {
	var parts []string
	depth := 0
	var quote rune
	last := 0

	for i := 0; i < len(s); i++ {
		c := rune(s[i])
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '(':
			depth++
		case c == ')':
			if depth > 0 {
				depth--
			}
		case depth == 0 && strings.HasPrefix(s[i:], op):
			parts = append(parts, strings.TrimSpace(s[last:i]))
			i += len(op) - 1
			last = i + 1
		}
	}
	parts = append(parts, strings.TrimSpace(s[last:]))
	return parts
}

// matchCall recognises name(args) where the opening paren follows a bare
// identifier (dots allowed for file.* built-ins) and the closing paren ends
// the string. Arguments are split on top-level commas with the same
// depth/quote scan.
func matchCall(s string) (name string, args []string, ok bool) {
	open := strings.IndexByte(s, '(')
	if open <= 0 || !strings.HasSuffix(s, ")") {
		return "", nil, false
	}
	name = s[:open]
	for _, r := range name {
		if !isIdentRune(r) {
			return "", nil, false
		}
	}
	inner := s[open+1 : len(s)-1]
	if strings.TrimSpace(inner) == "" {
		return name, nil, true
	}
	for _, a := range splitTopLevel(inner, ",") {
		args = append(args, a)
	}
	return name, args, true
}

func isIdentRune(r rune) bool {
	return r == '.' || r == '_' || r == '-' ||
		(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

// splitComparison finds the leftmost top-level comparison operator. Two-rune
// operators are matched before their one-rune prefixes.
func splitComparison(s string) (lhs, op, rhs string, ok bool) {
	depth := 0
	var quote rune
	for i := 0; i < len(s); i++ {
		c := rune(s[i])
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
			continue
		case c == '\'' || c == '"':
			quote = c
			continue
		case c == '(':
			depth++
			continue
		case c == ')':
			if depth > 0 {
				depth--
			}
			continue
		}
		if depth != 0 {
			continue
		}
		if i+1 < len(s) {
			two := s[i : i+2]
			switch two {
			case "==", "!=", ">=", "<=":
				return strings.TrimSpace(s[:i]), two, strings.TrimSpace(s[i+2:]), true
			}
		}
		switch c {
		case '>', '<':
			return strings.TrimSpace(s[:i]), string(c), strings.TrimSpace(s[i+1:]), true
		}
	}
	return "", "", "", false
}

// compare applies a binary comparison. Equality operators are always
// string-coerced; ordering operators are always numeric-coerced, and a side
// that cannot be read as a number makes the comparison false.
func compare(left any, op string, right any) bool {
	switch op {
	case "==":
		return cast.ToString(left) == cast.ToString(right)
	case "!=":
		return cast.ToString(left) != cast.ToString(right)
	}

	l, errL := cast.ToFloat64E(left)
	r, errR := cast.ToFloat64E(right)
	if errL != nil || errR != nil {
		return false
	}
	switch op {
	case ">":
		return l > r
	case "<":
		return l < r
	case ">=":
		return l >= r
	case "<=":
		return l <= r
	}
	return false
}

// callBuiltin dispatches a fixed function table. Unknown names evaluate
// false by policy.
func callBuiltin(name string, args []string, ctx *Context) bool {
	arg := func(i int) string {
		if i >= len(args) {
			return ""
		}
		return unquote(args[i])
	}

	switch name {
	case "file.hasTag", "hasTag", "taggedWith":
		return ctx.HasTag(arg(0))
	case "file.hasLink", "hasLink", "linksTo":
		return ctx.HasLink(arg(0))
	case "file.inFolder", "inFolder":
		return ctx.InFolder(arg(0))
	case "contains":
		if len(args) < 2 {
			return false
		}
		return containsValue(resolveValue(args[0], ctx), unquote(args[1]))
	case "startsWith":
		if len(args) < 2 {
			return false
		}
		return strings.HasPrefix(cast.ToString(resolveValue(args[0], ctx)), unquote(args[1]))
	case "endsWith":
		if len(args) < 2 {
			return false
		}
		return strings.HasSuffix(cast.ToString(resolveValue(args[0], ctx)), unquote(args[1]))
	case "empty", "isEmpty":
		if len(args) == 0 {
			return false
		}
		return !truthy(resolveValue(args[0], ctx))
	default:
		return false
	}
}

// containsValue tests membership for lists and substring presence for
// everything else.
func containsValue(haystack any, needle string) bool {
	switch v := haystack.(type) {
	case []any:
		for _, item := range v {
			if cast.ToString(item) == needle {
				return true
			}
		}
		return false
	case []string:
		for _, item := range v {
			if item == needle {
				return true
			}
		}
		return false
	default:
		return strings.Contains(cast.ToString(haystack), needle)
	}
}

// resolveValue turns one side of a comparison (or a bare reference) into a
// value: quoted string literal, numeric/boolean/null literal, file.*
// pseudo-property, or metadata property lookup.
func resolveValue(token string, ctx *Context) any {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	if isQuoted(token) {
		return token[1 : len(token)-1]
	}
	switch token {
	case "true":
		return true
	case "false":
		return false
	case "null", "nil":
		return nil
	}
	if f, err := cast.ToFloat64E(token); err == nil {
		return f
	}
	return ctx.Value(token)
}

// truthy applies the filter language's truthiness rules: null, false, zero,
// empty string, and empty collections are falsy; everything else is truthy.
func truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != ""
	case []any:
		return len(val) > 0
	case []string:
		return len(val) > 0
	case map[string]any:
		return len(val) > 0
	default:
		if f, err := cast.ToFloat64E(v); err == nil {
			return f != 0
		}
		return true
	}
}

func isQuoted(s string) bool {
	if len(s) < 2 {
		return false
	}
	return (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'')
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if isQuoted(s) {
		return s[1 : len(s)-1]
	}
	return s
}
