package policy

import (
	"fmt"
	"regexp"

	"github.com/google/cel-go/cel"
	"github.com/guardrail/guardrail/internal/models"
)

// ValidateDocument performs static authoring checks on a policy without
// touching the filesystem. Everything it finds would surface as [policy]
// violations at check time; running it first gives authors the full list
// in one pass.
func ValidateDocument(doc *models.PolicyDocument) []models.Violation {
	var out []models.Violation

	tracked := map[string]bool{}
	for _, path := range doc.TrackedFiles {
		tracked[path] = true
	}
	checkScopes := func(label string, scopes []string) {
		if len(tracked) == 0 {
			return
		}
		for _, scope := range scopes {
			if !tracked[scope] {
				out = append(out, models.NewViolation(models.CategoryPolicy,
					"%s: scope %q not listed in tracked_files", label, scope))
			}
		}
	}

	patternIDs := map[string]bool{}
	for i, rule := range doc.BannedPatterns {
		id := ruleLabel(rule.ID, "banned_patterns", i)
		if rule.ID == "" {
			out = append(out, models.NewViolation(models.CategoryPolicy, "%s: missing id", id))
		} else if patternIDs[rule.ID] {
			out = append(out, models.NewViolation(models.CategoryPolicy, "%s: duplicate rule id", id))
		}
		patternIDs[rule.ID] = true

		if rule.Pattern == "" {
			out = append(out, models.NewViolation(models.CategoryPolicy, "%s: empty pattern", id))
		} else if rule.Regex {
			pattern := rule.Pattern
			if rule.CaseInsensitive {
				pattern = "(?i)" + pattern
			}
			if _, err := regexp.Compile(pattern); err != nil {
				out = append(out, models.NewViolation(models.CategoryPolicy, "%s: invalid regex: %v", id, err))
			}
		}
		if len(rule.Scopes) == 0 {
			out = append(out, models.NewViolation(models.CategoryPolicy, "%s: no scopes", id))
		}
		checkScopes(id, rule.Scopes)
		out = append(out, validateModes(rule.Modes, id)...)
	}

	for i, rule := range doc.RequiredMarkers {
		id := ruleLabel(rule.ID, "required_markers", i)
		if rule.ID == "" {
			out = append(out, models.NewViolation(models.CategoryPolicy, "%s: missing id", id))
		}
		if len(rule.Markers) == 0 {
			out = append(out, models.NewViolation(models.CategoryPolicy, "%s: no markers", id))
		}
		if len(rule.Scopes) == 0 {
			out = append(out, models.NewViolation(models.CategoryPolicy, "%s: no scopes", id))
		}
		checkScopes(id, rule.Scopes)
		out = append(out, validateModes(rule.Modes, id)...)
	}

	for _, entry := range doc.Allowlist {
		if entry.PatternID == "" || entry.Scope == "" {
			out = append(out, models.NewViolation(models.CategoryPolicy,
				"allowlist entry (%q, %q): pattern_id and scope are both required", entry.PatternID, entry.Scope))
			continue
		}
		if !patternIDs[entry.PatternID] {
			out = append(out, models.NewViolation(models.CategoryPolicy,
				"allowlist entry references unknown pattern id %q", entry.PatternID))
		}
	}

	for i, spec := range doc.ArtifactPolicy.TrackedArtifacts {
		id := ruleLabel(spec.Path, "tracked_artifacts", i)
		if spec.Path == "" {
			out = append(out, models.NewViolation(models.CategoryPolicy, "%s: missing path", id))
		}
		out = append(out, validateModes(spec.RequiredInModes, id)...)
	}

	for i, lp := range doc.LanePolicies {
		id := ruleLabel(lp.ArtifactPath, "lane_policies", i)
		if lp.ArtifactPath == "" {
			out = append(out, models.NewViolation(models.CategoryPolicy, "%s: missing artifact_path", id))
		}
		for status, lane := range lp.RequiredLaneByStatus {
			if lane == "" {
				out = append(out, models.NewViolation(models.CategoryPolicy,
					"%s: empty lane for status %q", id, status))
			}
		}
	}

	for i, cc := range doc.CrossChecks {
		id := ruleLabel(cc.Name, "cross_checks", i)
		if cc.PrimaryPath == "" || cc.PairedPath == "" {
			out = append(out, models.NewViolation(models.CategoryPolicy,
				"%s: primary_path and paired_path are both required", id))
		}
		if cc.RequireFreshness && cc.MaxTimestampSkewSeconds <= 0 {
			out = append(out, models.NewViolation(models.CategoryPolicy,
				"%s: require_freshness needs max_timestamp_skew_seconds > 0", id))
		}
	}

	if tp := doc.ThresholdPolicy; tp != nil && tp.ArtifactPath == "" {
		out = append(out, models.NewViolation(models.CategoryPolicy, "threshold_policy: missing artifact_path"))
	}
	if cp := doc.CouplingPolicy; cp != nil {
		if cp.GateArtifactPath == "" || cp.ProvenanceArtifactPath == "" {
			out = append(out, models.NewViolation(models.CategoryPolicy,
				"coupling_policy: gate_artifact_path and provenance_artifact_path are both required"))
		}
	}

	out = append(out, validateExpressions(doc.ExpressionRules)...)

	return out
}

// validateExpressions compiles every expression rule against the check
// environment so authoring errors surface before any artifact is read.
func validateExpressions(rules []models.ExpressionRule) []models.Violation {
	if len(rules) == 0 {
		return nil
	}

	env, err := cel.NewEnv(
		cel.Variable("input", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return []models.Violation{
			models.NewViolation(models.CategoryPolicy, "expression environment: %v", err),
		}
	}

	var out []models.Violation
	for i, rule := range rules {
		id := ruleLabel(rule.Name, "expression_rules", i)
		if rule.Expr == "" {
			out = append(out, models.NewViolation(models.CategoryPolicy, "%s: empty expr", id))
			continue
		}
		ast, iss := env.Compile(rule.Expr)
		if iss != nil && iss.Err() != nil {
			out = append(out, models.NewViolation(models.CategoryPolicy, "%s: %v", id, iss.Err()))
			continue
		}
		if ast.OutputType() != cel.BoolType {
			out = append(out, models.NewViolation(models.CategoryPolicy,
				"%s: expression must evaluate to bool, got %s", id, ast.OutputType()))
		}
		out = append(out, validateModes(rule.Modes, id)...)
	}
	return out
}

func validateModes(modes []string, label string) []models.Violation {
	var out []models.Violation
	for _, m := range modes {
		if _, err := models.ParseMode(m); err != nil {
			out = append(out, models.NewViolation(models.CategoryPolicy, "%s: unknown mode %q", label, m))
		}
	}
	return out
}

func ruleLabel(id, kind string, index int) string {
	if id != "" {
		return kind + " " + id
	}
	return fmt.Sprintf("%s[%d]", kind, index)
}
