// Package expressions wraps CEL so configuration files can carry small
// programs, validated and compiled once at startup.
package expressions

import (
	"errors"
	"fmt"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/ext"
)

var ErrNotBool = errors.New("expressions: expression must evaluate to a bool")

// New creates the base CEL environment every configured expression shares.
func New(opts ...cel.EnvOption) (*cel.Env, error) {
	args := []cel.EnvOption{
		ext.Strings(
			ext.StringsLocale("en_US"),
			ext.StringsValidateFormatCalls(true),
		),

		// default all timestamps to UTC
		cel.DefaultUTCTimeZone(true),
	}
	args = append(args, opts...)

	return cel.NewEnv(args...)
}

// Compile parses, checks, and optimizes one boolean expression.
func Compile(env *cel.Env, src string) (cel.Program, error) {
	ast, issues := env.Compile(src)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("expressions: can't compile %q: %w", src, issues.Err())
	}

	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("%w: %q has type %s", ErrNotBool, src, ast.OutputType())
	}

	return env.Program(
		ast,
		cel.EvalOptions(
			// optimize regular expressions right now instead of on the fly
			cel.OptOptimize,
		),
	)
}
