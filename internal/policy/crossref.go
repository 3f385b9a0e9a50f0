package policy

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/guardrail/guardrail/internal/models"
	"github.com/wI2L/jsondiff"
)

// checkCrossArtifacts compares paired artifacts that are supposed to
// describe facets of the same computation: declared field equality,
// metric overlap/leakage, and provenance freshness with explicit
// clock-skew tolerance.
func (c *Checker) checkCrossArtifacts() []models.Violation {
	violations := []models.Violation{}

	for _, check := range c.policy.CrossChecks {
		primary, primaryExists, loadViolations := c.artifact(check.PrimaryPath)
		violations = append(violations, loadViolations...)
		paired, pairedExists, loadViolations := c.artifact(check.PairedPath)
		violations = append(violations, loadViolations...)

		if !primaryExists {
			violations = append(violations, models.NewViolation(models.CategoryMissingArtifact,
				"cross-check %q: %s not found", check.Name, check.PrimaryPath))
		}
		if !pairedExists {
			violations = append(violations, models.NewViolation(models.CategoryMissingArtifact,
				"cross-check %q: %s not found", check.Name, check.PairedPath))
		}
		if primary == nil || paired == nil {
			continue
		}

		violations = append(violations, checkFieldEquality(check, primary, paired)...)
		violations = append(violations, checkOverlapLeakage(check, primary)...)
		violations = append(violations, checkFreshness(check, primary, paired)...)
	}

	return violations
}

// checkFieldEquality uses direct equality, not fuzzy comparison. The
// detail carries a structural diff when one can be computed.
func checkFieldEquality(check models.CrossCheckPolicy, primary, paired *models.ParsedArtifact) []models.Violation {
	violations := []models.Violation{}

	for _, field := range check.EqualFields {
		a, aOK := lookupPath(primary.Results, field)
		b, bOK := lookupPath(paired.Results, field)

		if !aOK || !bOK {
			if aOK != bOK {
				violations = append(violations, models.NewViolation(models.CategoryCrossArtifact,
					"field %q present in only one of %s, %s", field, check.PrimaryPath, check.PairedPath))
			}
			continue
		}
		if reflect.DeepEqual(a, b) {
			continue
		}
		violations = append(violations, models.NewViolation(models.CategoryCrossArtifact,
			"field %q differs between %s and %s: %s", field, check.PrimaryPath, check.PairedPath, describeDiff(a, b)))
	}

	return violations
}

// describeDiff renders the disagreement as a JSON patch when possible,
// falling back to plain value formatting.
func describeDiff(a, b any) string {
	patch, err := jsondiff.Compare(a, b)
	if err != nil || len(patch) == 0 {
		return fmt.Sprintf("%v != %v", a, b)
	}
	ops := make([]string, 0, len(patch))
	for _, op := range patch {
		ops = append(ops, op.String())
	}
	return strings.Join(ops, "; ")
}

// checkOverlapLeakage recomputes the matching/holdout metric
// intersection and holds the artifact's own declarations to it.
func checkOverlapLeakage(check models.CrossCheckPolicy, primary *models.ParsedArtifact) []models.Violation {
	if check.MatchingMetricsField == "" || check.HoldoutMetricsField == "" {
		return nil
	}

	violations := []models.Violation{}
	body := primary.Results

	matchingValue, _ := lookupPath(body, check.MatchingMetricsField)
	holdoutValue, _ := lookupPath(body, check.HoldoutMetricsField)
	matching, _ := asStringSlice(matchingValue)
	holdout, _ := asStringSlice(holdoutValue)

	computed := intersect(matching, holdout)

	if check.OverlapField != "" {
		declaredValue, ok := lookupPath(body, check.OverlapField)
		if ok {
			declared, isList := asStringSlice(declaredValue)
			if !isList || !sameStringSet(declared, computed) {
				violations = append(violations, models.NewViolation(models.CategoryOverlap,
					"%s: declared %s %v does not equal computed overlap %v", check.PrimaryPath, check.OverlapField, declaredValue, computed))
			}
		}
	}

	if check.LeakageField != "" {
		declaredValue, _ := lookupPath(body, check.LeakageField)
		declared, isBool := asBool(declaredValue)
		if !isBool || declared != (len(computed) > 0) {
			violations = append(violations, models.NewViolation(models.CategoryLeakage,
				"%s: %s=%v but computed overlap is %v", check.PrimaryPath, check.LeakageField, declaredValue, computed))
		}
	}

	return violations
}

// checkFreshness requires matching run ids and timestamps within the
// configured skew. Timestamps are ISO-8601 with the Z suffix
// normalized.
func checkFreshness(check models.CrossCheckPolicy, primary, paired *models.ParsedArtifact) []models.Violation {
	if !check.RequireFreshness {
		return nil
	}

	violations := []models.Violation{}

	primaryRun := stringify(provenanceField(primary, "run_id"))
	pairedRun := stringify(provenanceField(paired, "run_id"))
	switch {
	case primaryRun == "" || pairedRun == "":
		violations = append(violations, models.NewViolation(models.CategoryFreshness,
			"cross-check %q: provenance.run_id missing on %s or %s", check.Name, check.PrimaryPath, check.PairedPath))
	case primaryRun != pairedRun:
		violations = append(violations, models.NewViolation(models.CategoryFreshness,
			"cross-check %q: provenance.run_id %q != %q", check.Name, primaryRun, pairedRun))
	}

	primaryTS, primaryErr := parseTimestamp(stringify(provenanceField(primary, "timestamp")))
	if primaryErr != nil {
		violations = append(violations, models.NewViolation(models.CategoryFreshness,
			"cross-check %q: %s: invalid provenance.timestamp: %v", check.Name, check.PrimaryPath, primaryErr))
	}
	pairedTS, pairedErr := parseTimestamp(stringify(provenanceField(paired, "timestamp")))
	if pairedErr != nil {
		violations = append(violations, models.NewViolation(models.CategoryFreshness,
			"cross-check %q: %s: invalid provenance.timestamp: %v", check.Name, check.PairedPath, pairedErr))
	}
	if primaryErr != nil || pairedErr != nil {
		return violations
	}

	skew := math.Abs(primaryTS.Sub(pairedTS).Seconds())
	if check.MaxTimestampSkewSeconds > 0 && skew > check.MaxTimestampSkewSeconds {
		violations = append(violations, models.NewViolation(models.CategoryFreshness,
			"cross-check %q: provenance timestamps %.0fs apart (max %.0fs)", check.Name, skew, check.MaxTimestampSkewSeconds))
	}

	return violations
}

func provenanceField(artifact *models.ParsedArtifact, field string) any {
	if artifact.Provenance == nil {
		return nil
	}
	return artifact.Provenance[field]
}

// parseTimestamp accepts RFC 3339 with the Z suffix normalized to an
// explicit offset.
func parseTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("timestamp missing")
	}
	normalized := value
	if strings.HasSuffix(normalized, "Z") {
		normalized = strings.TrimSuffix(normalized, "Z") + "+00:00"
	}
	ts, err := time.Parse(time.RFC3339, normalized)
	if err != nil {
		return time.Time{}, err
	}
	return ts, nil
}

func intersect(a, b []string) []string {
	index := make(map[string]bool, len(b))
	for _, item := range b {
		index[item] = true
	}
	seen := make(map[string]bool)
	out := []string{}
	for _, item := range a {
		if index[item] && !seen[item] {
			seen[item] = true
			out = append(out, item)
		}
	}
	sort.Strings(out)
	return out
}

func sameStringSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	sortedA := append([]string(nil), a...)
	sortedB := append([]string(nil), b...)
	sort.Strings(sortedA)
	sort.Strings(sortedB)
	for i := range sortedA {
		if sortedA[i] != sortedB[i] {
			return false
		}
	}
	return true
}
