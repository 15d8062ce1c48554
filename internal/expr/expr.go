// Package expr implements the Expression Engine (spec.md §4.1): a narrow
// Evaluator contract plus a default implementation evaluating a JQ-compatible
// dialect, grounded on serverlessworkflow-sdk-go/impl/expr/expr.go's
// gojq-based traversal and serverlessworkflow-sdk-go/expr/expr.go's strict-
// expression detection.
package expr

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/itchyny/gojq"
)

// Environment is the value environment every evaluation runs against; its
// well-known names match spec.md §4.1 exactly.
type Environment struct {
	Context       interface{}
	Input         interface{}
	Output        interface{}
	Secrets       map[string]interface{}
	Task          map[string]interface{}
	Workflow      map[string]interface{}
	Runtime       map[string]interface{}
	Authorization map[string]interface{}

	// Item and At are not part of spec.md §4.1's named environment, but a
	// `for` task's "binds item and optional at (index) names per iteration"
	// has to live somewhere; they ride the same variable mechanism as the
	// named entries below rather than a second evaluation path.
	Item interface{}
	At   interface{}
}

func (e Environment) names() []string {
	return []string{"context", "input", "output", "secrets", "task", "workflow", "runtime", "authorization", "item", "at"}
}

func (e Environment) values() []interface{} {
	return []interface{}{e.Context, e.Input, e.Output, e.Secrets, e.Task, e.Workflow, e.Runtime, e.Authorization, e.Item, e.At}
}

// ErrNoResult names the case of a jq program yielding no value at all (an
// exhausted iterator). GojqEvaluator.Evaluate does not return it: a program
// with no value, such as a `?`-guarded field access on a scalar, evaluates
// to nil.
var ErrNoResult = errors.New("expr: expression produced no result")

// Evaluator is the narrow contract the rest of the engine calls through.
type Evaluator interface {
	// Evaluate runs expression (a bare JQ-dialect program, loose mode) against
	// env and returns its value.
	Evaluate(ctx context.Context, expression string, env Environment) (interface{}, error)
	// EvaluateValue recursively walks value, evaluating every strict-mode
	// (`${ ... }`) string it finds in place and leaving everything else
	// untouched. It is how input.from/output.as/set/with arguments that are
	// whole JSON objects get resolved.
	EvaluateValue(ctx context.Context, value interface{}, env Environment) (interface{}, error)
}

// IsStrictExpr reports whether s is wrapped in `${ ... }`.
func IsStrictExpr(s string) bool {
	trimmed := strings.TrimSpace(s)
	return strings.HasPrefix(trimmed, "${") && strings.HasSuffix(trimmed, "}")
}

// Sanitize strips the `${ }` wrapper from a strict expression, returning the
// bare JQ program inside.
func Sanitize(s string) string {
	trimmed := strings.TrimSpace(s)
	trimmed = strings.TrimPrefix(trimmed, "${")
	trimmed = strings.TrimSuffix(trimmed, "}")
	return strings.TrimSpace(trimmed)
}

// GojqEvaluator is the default, real Evaluator, using
// github.com/itchyny/gojq.
type GojqEvaluator struct {
	mu    sync.Mutex
	cache map[string]*gojq.Code
}

func NewGojqEvaluator() *GojqEvaluator {
	return &GojqEvaluator{cache: make(map[string]*gojq.Code)}
}

func (g *GojqEvaluator) Evaluate(ctx context.Context, expression string, env Environment) (interface{}, error) {
	program := strings.TrimSpace(expression)
	if IsStrictExpr(program) {
		program = Sanitize(program)
	}
	if program == "" {
		return nil, nil
	}
	code, err := g.compile(program)
	if err != nil {
		return nil, err
	}
	iter := code.RunWithContext(ctx, env.Context, env.values()...)
	v, ok := iter.Next()
	if !ok {
		return nil, nil
	}
	if err, isErr := v.(error); isErr {
		var halt *gojq.HaltError
		if errors.As(err, &halt) && halt.Value() == nil {
			return nil, nil
		}
		return nil, fmt.Errorf("expr: %q: %w", expression, err)
	}
	return v, nil
}

// compile rewrites program so that only its field-access path segments
// (`.foo`, `$var.foo`) gain gojq's `?` optional suffix, per the preprocessing
// contract in spec.md §4.1: a missing or non-object value along a path
// degrades to null instead of raising. Nothing else in the program is
// touched, so explicit type errors (adding an object to a number, dividing
// by a non-number, etc.) still propagate as real errors — `?` only
// suppresses a failure raised by evaluating the exact subexpression it
// suffixes.
func (g *GojqEvaluator) compile(program string) (*gojq.Code, error) {
	g.mu.Lock()
	if c, ok := g.cache[program]; ok {
		g.mu.Unlock()
		return c, nil
	}
	g.mu.Unlock()

	rewritten := nullSafeFieldAccess(program)
	query, err := gojq.Parse(rewritten)
	if err != nil {
		// Fall back to the unrewritten program so a syntax error in the
		// author's own expression surfaces directly, rather than being
		// obscured by the rewrite.
		query, err = gojq.Parse(program)
		if err != nil {
			return nil, fmt.Errorf("expr: parse %q: %w", program, err)
		}
	}
	code, err := gojq.Compile(query, gojq.WithVariables((Environment{}).names()))
	if err != nil {
		return nil, fmt.Errorf("expr: compile %q: %w", program, err)
	}
	g.mu.Lock()
	g.cache[program] = code
	g.mu.Unlock()
	return code, nil
}

// fieldAccessPattern matches one `.identifier` path segment, the jq syntax
// for object field access (and, chained after `$var`, named-variable field
// access). Not matched: `..` (recursive descent, no identifier follows) and
// decimal literals like `3.14` (a digit, not a letter/underscore, follows
// the dot).
var fieldAccessPattern = regexp.MustCompile(`\.[A-Za-z_][A-Za-z0-9_]*`)

// nullSafeFieldAccess appends `?` to every field-access segment in program
// that isn't already optional, skipping anything inside a string literal so
// a path-shaped substring inside quoted text is never rewritten.
func nullSafeFieldAccess(program string) string {
	var out strings.Builder
	var code strings.Builder
	flushCode := func() {
		out.WriteString(rewriteFieldAccess(code.String()))
		code.Reset()
	}

	inString := false
	escaped := false
	for i := 0; i < len(program); i++ {
		c := program[i]
		if inString {
			out.WriteByte(c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		if c == '"' {
			flushCode()
			inString = true
			out.WriteByte(c)
			continue
		}
		code.WriteByte(c)
	}
	flushCode()
	return out.String()
}

// rewriteFieldAccess appends `?` after every fieldAccessPattern match in
// code, skipping matches that are already followed by `?` so repeated
// compilation of an already-rewritten program never produces `??`.
func rewriteFieldAccess(code string) string {
	matches := fieldAccessPattern.FindAllStringIndex(code, -1)
	if len(matches) == 0 {
		return code
	}
	var b strings.Builder
	prev := 0
	for _, m := range matches {
		b.WriteString(code[prev:m[1]])
		if m[1] >= len(code) || code[m[1]] != '?' {
			b.WriteByte('?')
		}
		prev = m[1]
	}
	b.WriteString(code[prev:])
	return b.String()
}

func (g *GojqEvaluator) EvaluateValue(ctx context.Context, value interface{}, env Environment) (interface{}, error) {
	return g.traverse(ctx, value, env)
}

func (g *GojqEvaluator) traverse(ctx context.Context, node interface{}, env Environment) (interface{}, error) {
	switch v := node.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for key, val := range v {
			ev, err := g.traverse(ctx, val, env)
			if err != nil {
				return nil, err
			}
			out[key] = ev
		}
		return out, nil
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, val := range v {
			ev, err := g.traverse(ctx, val, env)
			if err != nil {
				return nil, err
			}
			out[i] = ev
		}
		return out, nil
	case string:
		if IsStrictExpr(v) {
			return g.Evaluate(ctx, v, env)
		}
		return v, nil
	default:
		return v, nil
	}
}
