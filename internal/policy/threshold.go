package policy

import (
	"github.com/guardrail/guardrail/internal/models"
)

// checkThresholds gates a distinguished health artifact on numeric
// ceilings, a pass flag, and age. Age checks run against the injected
// clock so staleness boundaries are deterministic under test.
func (c *Checker) checkThresholds() []models.Violation {
	tp := c.policy.ThresholdPolicy
	if tp == nil || tp.ArtifactPath == "" {
		return nil
	}

	violations := []models.Violation{}

	parsed, exists, loadViolations := c.artifact(tp.ArtifactPath)
	violations = append(violations, loadViolations...)
	if !exists {
		violations = append(violations, models.NewViolation(models.CategoryMissingArtifact,
			"threshold policy artifact not found: %s", tp.ArtifactPath))
		return violations
	}
	if parsed == nil {
		return violations
	}

	body := parsed.Results

	ceilings := []struct {
		field string
		max   *float64
	}{
		{"orphaned_ratio", tp.OrphanedRatioMax},
		{"orphaned_rows", tp.OrphanedRowsMax},
		{"running_rows", tp.RunningRowsMax},
		{"missing_manifests", tp.MissingManifestsMax},
	}
	for _, ceiling := range ceilings {
		if ceiling.max == nil {
			continue
		}
		observedValue, ok := lookupPath(body, ceiling.field)
		if !ok {
			violations = append(violations, models.NewViolation(models.CategoryThreshold,
				"%s: %s absent (max %.6f)", tp.ArtifactPath, ceiling.field, *ceiling.max))
			continue
		}
		observed, numeric := asFloat(observedValue)
		if !numeric {
			violations = append(violations, models.NewViolation(models.CategoryThreshold,
				"%s: %s is not numeric (max %.6f)", tp.ArtifactPath, ceiling.field, *ceiling.max))
			continue
		}
		if observed > *ceiling.max {
			violations = append(violations, models.NewViolation(models.CategoryThreshold,
				"%s: %s %.6f > %.6f", tp.ArtifactPath, ceiling.field, observed, *ceiling.max))
		}
	}

	if tp.RequirePass {
		if passValue, _ := lookupPath(body, "threshold_policy_pass"); passValue != true {
			violations = append(violations, models.NewViolation(models.CategoryThreshold,
				"%s: threshold_policy_pass is not true", tp.ArtifactPath))
		}
	}

	violations = append(violations, c.checkArtifactAge(tp.ArtifactPath, body, tp.MaxArtifactAgeHours)...)

	if tp.SyncArtifactPath != "" {
		sync, syncExists, loadViolations := c.artifact(tp.SyncArtifactPath)
		violations = append(violations, loadViolations...)
		if !syncExists {
			violations = append(violations, models.NewViolation(models.CategoryMissingArtifact,
				"threshold sync artifact not found: %s", tp.SyncArtifactPath))
		} else if sync != nil {
			violations = append(violations, c.checkArtifactAge(tp.SyncArtifactPath, sync.Results, tp.SyncMaxAgeHours)...)
		}
	}

	return violations
}

// checkArtifactAge compares generated_utc against the age ceiling.
func (c *Checker) checkArtifactAge(path string, body map[string]any, maxAgeHours float64) []models.Violation {
	if maxAgeHours <= 0 {
		return nil
	}

	generatedValue, ok := lookupPath(body, "generated_utc")
	if !ok {
		return []models.Violation{models.NewViolation(models.CategoryStaleArtifact,
			"%s: generated_utc absent (max age %.1fh)", path, maxAgeHours)}
	}

	generated, err := parseTimestamp(stringify(generatedValue))
	if err != nil {
		return []models.Violation{models.NewViolation(models.CategoryStaleArtifact,
			"%s: invalid generated_utc: %v", path, err)}
	}

	ageHours := c.now().Sub(generated).Hours()
	if ageHours > maxAgeHours {
		return []models.Violation{models.NewViolation(models.CategoryStaleArtifact,
			"%s: artifact age %.1fh exceeds %.1fh", path, ageHours, maxAgeHours)}
	}
	return nil
}
