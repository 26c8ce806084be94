// Package transform compiles and evaluates the scalar expressions attached
// to parameters. An expression is written in the single variable theta and is
// applied whenever a parameter value leaves the engine, for example when it
// is written into a simulator card.
package transform

import (
	"fmt"
	"math"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

type Transform struct {
	source  string
	program *vm.Program
}

// Compile validates an expression eagerly so malformed transforms surface as
// configuration errors at definition time. An empty source is the identity.
func Compile(source string) (*Transform, error) {
	if source == "" {
		return &Transform{}, nil
	}
	program, err := expr.Compile(source, expr.Env(env(0)), expr.AsFloat64())
	if err != nil {
		return nil, fmt.Errorf("compile transform %q: %w", source, err)
	}
	return &Transform{source: source, program: program}, nil
}

// Apply evaluates the transform at theta. A nil or empty transform returns
// theta unchanged.
func (t *Transform) Apply(theta float64) (float64, error) {
	if t == nil || t.program == nil {
		return theta, nil
	}
	out, err := expr.Run(t.program, env(theta))
	if err != nil {
		return 0, fmt.Errorf("apply transform %q: %w", t.source, err)
	}
	value, ok := out.(float64)
	if !ok {
		return 0, fmt.Errorf("transform %q did not produce a number", t.source)
	}
	return value, nil
}

func (t *Transform) Source() string {
	if t == nil {
		return ""
	}
	return t.source
}

func env(theta float64) map[string]any {
	return map[string]any{
		"theta": theta,
		"sqrt":  math.Sqrt,
		"cbrt":  math.Cbrt,
		"log":   math.Log,
		"exp":   math.Exp,
		"sin":   math.Sin,
		"cos":   math.Cos,
		"tan":   math.Tan,
		"atan":  math.Atan,
		"pi":    math.Pi,
	}
}
