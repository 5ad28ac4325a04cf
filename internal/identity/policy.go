package identity

import (
	"fmt"

	"github.com/google/cel-go/cel"
)

// Policy is a compiled CEL rule deciding whether a caller is an admin.
type Policy struct {
	expr string
	prg  cel.Program
}

func NewPolicy(expr string) (*Policy, error) {
	env, err := cel.NewEnv(
		cel.Variable("sub", cel.StringType),
		cel.Variable("roles", cel.ListType(cel.StringType)),
		cel.Variable("metadata", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, err
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("identity: compile admin rule %q: %w", expr, issues.Err())
	}
	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("identity: admin rule %q must evaluate to bool, got %s", expr, ast.OutputType())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, err
	}
	return &Policy{expr: expr, prg: prg}, nil
}

// Allow evaluates the rule for c. A nil caller is never allowed.
func (p *Policy) Allow(c *Caller) (bool, error) {
	if c == nil {
		return false, nil
	}
	roles := c.Roles
	if roles == nil {
		roles = []string{}
	}
	metadata := c.Metadata
	if metadata == nil {
		metadata = map[string]interface{}{}
	}

	out, _, err := p.prg.Eval(map[string]interface{}{
		"sub":      c.UserID,
		"roles":    roles,
		"metadata": metadata,
	})
	if err != nil {
		return false, fmt.Errorf("identity: evaluate admin rule: %w", err)
	}
	return out.Value() == true, nil
}

func (p *Policy) String() string { return p.expr }
