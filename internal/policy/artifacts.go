package policy

import (
	"sort"

	"github.com/guardrail/guardrail/internal/models"
)

// checkArtifacts runs the structural validation fold over every tracked
// artifact spec. Checks within a spec are independent: violations
// accumulate regardless of earlier failures, and only a parse failure
// precludes inspecting fields.
func (c *Checker) checkArtifacts() []models.Violation {
	violations := []models.Violation{}

	for _, spec := range c.policy.ArtifactPolicy.TrackedArtifacts {
		required := c.mode.Applies(spec.RequiredInModes) && len(spec.RequiredInModes) > 0

		parsed, exists, loadViolations := c.artifact(spec.Path)
		violations = append(violations, loadViolations...)

		if !exists {
			if required {
				violations = append(violations, models.NewViolation(models.CategoryMissingArtifact,
					"required in mode=%s: %s", c.mode, spec.Path))
			}
			continue
		}
		if parsed == nil {
			// parse violation already recorded
			continue
		}

		violations = append(violations, validateSpec(spec, parsed, c.mode)...)
	}

	return violations
}

// validateSpec applies one spec's field, status, reason, and validity
// expectations to a parsed body.
func validateSpec(spec models.ArtifactSpec, parsed *models.ParsedArtifact, mode models.Mode) []models.Violation {
	violations := []models.Violation{}
	body := parsed.Results

	for _, key := range spec.RequiredResultKeys {
		if _, ok := body[key]; !ok {
			violations = append(violations, models.NewViolation(models.CategoryArtifactField,
				"%s: missing key %q", spec.Path, key))
		}
	}

	// sorted parents keep the violation order reproducible
	parents := make([]string, 0, len(spec.RequiredNestedResultKeys))
	for parent := range spec.RequiredNestedResultKeys {
		parents = append(parents, parent)
	}
	sort.Strings(parents)

	for _, parent := range parents {
		nested, ok := asMap(body[parent])
		if !ok {
			violations = append(violations, models.NewViolation(models.CategoryArtifactField,
				"%s: key %q is missing or not an object", spec.Path, parent))
			continue
		}
		for _, child := range spec.RequiredNestedResultKeys[parent] {
			if _, ok := nested[child]; !ok {
				violations = append(violations, models.NewViolation(models.CategoryArtifactField,
					"%s: missing key %q", spec.Path, parent+"."+child))
			}
		}
	}

	status := stringify(body["status"])
	if len(spec.AllowedStatuses) > 0 && !containsString(spec.AllowedStatuses, status) {
		violations = append(violations, models.NewViolation(models.CategoryArtifactStatus,
			"%s: status %q not in allowed set %v", spec.Path, status, spec.AllowedStatuses))
	}

	if allowedReasons, ok := spec.StatusReasonCodes[status]; ok {
		reason := stringify(body["reason_code"])
		if !containsString(allowedReasons, reason) {
			violations = append(violations, models.NewViolation(models.CategoryArtifactReason,
				"%s: reason_code %q not allowed for status %q", spec.Path, reason, status))
		}
	}

	if spec.CheckMetricValidity {
		if present, _ := lookupPath(body, "metric_validity.required_fields_present"); present != true {
			violations = append(violations, models.NewViolation(models.CategoryArtifactValidity,
				"%s: metric_validity.required_fields_present is not true", spec.Path))
		}
		if mode == models.ModeRelease {
			if sufficient, _ := lookupPath(body, "metric_validity.sufficient_iterations"); sufficient != true {
				violations = append(violations, models.NewViolation(models.CategoryArtifactValidity,
					"%s: metric_validity.sufficient_iterations is not true", spec.Path))
			}
		}
	}

	return violations
}
