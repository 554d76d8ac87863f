package trap

import (
	"strings"
	"time"

	"github.com/google/cel-go/cel"
)

// celGate wraps a compiled CEL program evaluated over drop metrics before a
// trigger is emitted. Operators use it to veto responses (for example,
// require a deeper drop during known rebalance windows). When disabled,
// Allow always returns true and thresholds apply unmodified.
type celGate struct {
	prog    cel.Program
	enabled bool
}

func newCELGate(expr string) (celGate, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return celGate{enabled: false}, nil
	}
	env, err := cel.NewEnv(
		cel.Variable("drop_bp", cel.IntType),
		cel.Variable("source", cel.StringType),
		cel.Variable("observed_at_ms", cel.IntType),
		cel.Variable("now_ms", cel.IntType),
	)
	if err != nil {
		return celGate{}, err
	}
	ast, iss := env.Parse(expr)
	if iss != nil && iss.Err() != nil {
		return celGate{}, iss.Err()
	}
	checked, iss2 := env.Check(ast)
	if iss2 != nil && iss2.Err() != nil {
		return celGate{}, iss2.Err()
	}
	prog, err := env.Program(checked)
	if err != nil {
		return celGate{}, err
	}
	return celGate{prog: prog, enabled: true}, nil
}

// Allow evaluates the rule against the drop. The caller supplies the wall
// clock so evaluation stays deterministic. Evaluation errors fail closed
// (no trigger).
func (g celGate) Allow(drop Drop, observedAt, now time.Time) bool {
	if !g.enabled {
		return true
	}
	out, _, err := g.prog.Eval(map[string]any{
		"drop_bp":        drop.Bp,
		"source":         string(drop.Source),
		"observed_at_ms": observedAt.UnixMilli(),
		"now_ms":         now.UnixMilli(),
	})
	if err != nil {
		return false
	}
	b, ok := out.Value().(bool)
	return ok && b
}
