package policy

import (
	"fmt"
	"sort"

	"github.com/google/cel-go/cel"
	"github.com/guardrail/guardrail/internal/models"
)

// checkExpressions evaluates CEL expression rules against artifact
// bodies. Compile errors are policy-authoring errors; evaluation
// failures and non-boolean results are recorded per artifact. Nothing
// here ever aborts the run.
func (c *Checker) checkExpressions() []models.Violation {
	if len(c.policy.ExpressionRules) == 0 {
		return nil
	}

	violations := []models.Violation{}

	env, err := cel.NewEnv(
		cel.Variable("input", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		violations = append(violations, models.NewViolation(models.CategoryPolicy,
			"expression environment: %v", err))
		return violations
	}

	for _, rule := range c.policy.ExpressionRules {
		if !c.mode.Applies(rule.Modes) {
			continue
		}
		if rule.Expr == "" {
			violations = append(violations, models.NewViolation(models.CategoryPolicy,
				"expression rule %q has no expr", rule.Name))
			continue
		}

		ast, issues := env.Compile(rule.Expr)
		if issues != nil && issues.Err() != nil {
			violations = append(violations, models.NewViolation(models.CategoryPolicy,
				"expression rule %q: compile error: %v", rule.Name, issues.Err()))
			continue
		}
		prg, err := env.Program(ast)
		if err != nil {
			violations = append(violations, models.NewViolation(models.CategoryPolicy,
				"expression rule %q: program error: %v", rule.Name, err))
			continue
		}

		for _, path := range c.expressionScopes(rule) {
			parsed, exists, loadViolations := c.artifact(path)
			violations = append(violations, loadViolations...)
			if !exists || parsed == nil {
				continue
			}
			violations = append(violations, evaluateExpression(rule, prg, path, parsed, c.mode)...)
		}
	}

	return violations
}

// expressionScopes resolves a rule's target artifacts: its own scopes,
// or every tracked artifact when none are declared.
func (c *Checker) expressionScopes(rule models.ExpressionRule) []string {
	if len(rule.Scopes) > 0 {
		return rule.Scopes
	}
	paths := make([]string, 0, len(c.policy.ArtifactPolicy.TrackedArtifacts))
	for _, spec := range c.policy.ArtifactPolicy.TrackedArtifacts {
		paths = append(paths, spec.Path)
	}
	sort.Strings(paths)
	return paths
}

func evaluateExpression(rule models.ExpressionRule, prg cel.Program, path string, parsed *models.ParsedArtifact, mode models.Mode) []models.Violation {
	input := map[string]any{
		"artifact": parsed.Results,
		"path":     path,
		"mode":     string(mode),
	}
	if parsed.Provenance != nil {
		input["provenance"] = parsed.Provenance
	}

	out, _, err := prg.Eval(map[string]any{"input": input})
	if err != nil {
		return []models.Violation{models.NewViolation(models.CategoryExpression,
			"%s: rule %q: evaluation error: %v", path, rule.Name, err)}
	}

	passed, ok := out.Value().(bool)
	if !ok {
		return []models.Violation{models.NewViolation(models.CategoryExpression,
			"%s: rule %q must return boolean, got %T", path, rule.Name, out.Value())}
	}
	if passed {
		return nil
	}

	msg := rule.FailureMsg
	if msg == "" {
		msg = fmt.Sprintf("expression %q evaluated to false", rule.Expr)
	}
	return []models.Violation{models.NewViolation(models.CategoryExpression,
		"%s: %s: %s", path, rule.Name, msg)}
}
