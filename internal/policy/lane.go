package policy

import (
	"sort"
	"strings"

	"github.com/guardrail/guardrail/internal/models"
)

// laneRow is one row of the lane decision table: a declared status,
// an optional required-fields predicate, and the lane the combination
// must be filed under. An empty lane leaves the combination
// unconstrained.
type laneRow struct {
	status        string
	fieldsPresent *bool // nil = don't care
	lane          string
}

// buildLaneTable expands a lane policy into an explicit, ordered
// decision table. The inconclusive status contributes two rows, one per
// value of the required-fields flag; every other status contributes one
// row from the status→lane mapping. Rows for the inconclusive status
// come first so its flag-sensitive branch always wins.
func buildLaneTable(lp models.LanePolicy) []laneRow {
	rows := []laneRow{}

	if lp.InconclusiveStatus != "" {
		yes, no := true, false
		rows = append(rows,
			laneRow{status: lp.InconclusiveStatus, fieldsPresent: &yes, lane: lp.RequiredLaneByStatus[lp.InconclusiveStatus]},
			laneRow{status: lp.InconclusiveStatus, fieldsPresent: &no, lane: lp.InconclusiveLaneWhenFieldsMissing},
		)
	}

	statuses := make([]string, 0, len(lp.RequiredLaneByStatus))
	for status := range lp.RequiredLaneByStatus {
		if status == lp.InconclusiveStatus {
			continue
		}
		statuses = append(statuses, status)
	}
	sort.Strings(statuses)
	for _, status := range statuses {
		rows = append(rows, laneRow{status: status, lane: lp.RequiredLaneByStatus[status]})
	}

	return rows
}

// expectedLane evaluates the table in row order. The second return is
// false when no row constrains the combination.
func expectedLane(rows []laneRow, status string, fieldsPresent bool) (string, bool) {
	for _, row := range rows {
		if row.status != status {
			continue
		}
		if row.fieldsPresent != nil && *row.fieldsPresent != fieldsPresent {
			continue
		}
		if row.lane == "" {
			return "", false
		}
		return row.lane, true
	}
	return "", false
}

// checkLanes validates every lane policy against its artifact: lane
// derivation, required auxiliary fields per lane, the irrecoverability
// guard, the run-profile registry, and the metric floors. Presence of
// the artifact itself is the artifact pass's job; an absent or
// unparseable artifact is skipped here.
func (c *Checker) checkLanes() []models.Violation {
	violations := []models.Violation{}

	for _, lp := range c.policy.LanePolicies {
		parsed, exists, loadViolations := c.artifact(lp.ArtifactPath)
		violations = append(violations, loadViolations...)
		if !exists || parsed == nil {
			continue
		}
		violations = append(violations, c.checkLanePolicy(lp, parsed.Results)...)
	}

	return violations
}

func (c *Checker) checkLanePolicy(lp models.LanePolicy, body map[string]any) []models.Violation {
	violations := []models.Violation{}

	statusValue, _ := lookupPath(body, lp.StatusField)
	status := stringify(statusValue)
	if status == "" {
		// nothing to derive; a missing status surfaces through
		// required_result_keys on the artifact spec
		return violations
	}

	declaredValue, _ := lookupPath(body, lp.LaneField)
	declared := stringify(declaredValue)

	fieldsPresentValue, _ := lookupPath(body, lp.FieldsPresentField)
	fieldsPresent := fieldsPresentValue == true

	rows := buildLaneTable(lp)
	if expected, constrained := expectedLane(rows, status, fieldsPresent); constrained && declared != expected {
		violations = append(violations, models.NewViolation(models.CategoryArtifactLane,
			"%s: declared lane %q but expected %q for status %q", lp.ArtifactPath, declared, expected, status))
	}

	if containsString(lp.RequireReopenTriggersForLanes, declared) {
		triggers, ok := lookupPath(body, lp.ReopenTriggersField)
		list, isList := triggers.([]any)
		if !ok || !isList || len(list) == 0 {
			violations = append(violations, models.NewViolation(models.CategoryArtifactLane,
				"%s: lane %q requires non-empty %s", lp.ArtifactPath, declared, lp.ReopenTriggersField))
		}
	}

	if containsString(lp.RequireResidualReasonForLanes, declared) {
		reason, _ := lookupPath(body, lp.ResidualReasonField)
		if strings.TrimSpace(stringify(reason)) == "" {
			violations = append(violations, models.NewViolation(models.CategoryArtifactLane,
				"%s: lane %q requires non-empty %s", lp.ArtifactPath, declared, lp.ResidualReasonField))
		}
	}

	violations = append(violations, c.checkIrrecoverabilityGuard(lp, body, declared)...)
	violations = append(violations, c.checkRunProfile(lp, body)...)
	violations = append(violations, c.checkMetricFloors(lp, body, status)...)

	return violations
}

// checkIrrecoverabilityGuard enforces the objective linkage between a
// claimed block and a machine-checkable failure flag. A subjective
// claim of data unavailability must never trigger a blocked
// classification on its own.
func (c *Checker) checkIrrecoverabilityGuard(lp models.LanePolicy, body map[string]any, declared string) []models.Violation {
	if lp.ObjectiveFailureField == "" {
		return nil
	}

	violations := []models.Violation{}

	objectiveValue, _ := lookupPath(body, lp.ObjectiveFailureField)
	objective := objectiveValue == true

	if lp.BlockingClaimedField != "" {
		claimedValue, _ := lookupPath(body, lp.BlockingClaimedField)
		if claimedValue == true && !objective {
			violations = append(violations, models.NewViolation(models.CategoryFragility,
				"%s: %s is true without objective failure flag %s", lp.ArtifactPath, lp.BlockingClaimedField, lp.ObjectiveFailureField))
		}
	}

	residual, _ := lookupPath(body, lp.ResidualReasonField)
	reasonCode, _ := lookupPath(body, lp.ReasonCodeField)
	text := strings.ToLower(stringify(residual) + " " + stringify(reasonCode))

	if containsString(lp.BlockedLanes, declared) {
		if !objective {
			violations = append(violations, models.NewViolation(models.CategoryFragility,
				"%s: blocked lane %q without objective failure flag %s", lp.ArtifactPath, declared, lp.ObjectiveFailureField))
		}
		if len(lp.BlockedResidualKeywords) > 0 && !containsAnyKeyword(text, lp.BlockedResidualKeywords) {
			violations = append(violations, models.NewViolation(models.CategoryFragility,
				"%s: blocked lane %q lacks a blocking keyword in residual text", lp.ArtifactPath, declared))
		}
	} else if !objective {
		for _, keyword := range lp.ForbiddenNonBlockedResidualKeywords {
			if strings.Contains(text, strings.ToLower(keyword)) {
				violations = append(violations, models.NewViolation(models.CategoryFragility,
					"%s: non-blocked lane %q residual text contains %q without objective failure flag", lp.ArtifactPath, declared, keyword))
			}
		}
	}

	return violations
}

// checkRunProfile validates parameters.run_profile against the
// registered confidence matrix. The literal "custom" opts out.
func (c *Checker) checkRunProfile(lp models.LanePolicy, body map[string]any) []models.Violation {
	profileValue, ok := lookupPath(body, "parameters.run_profile")
	if !ok {
		return nil
	}
	profile := stringify(profileValue)
	if profile == "" || profile == "custom" {
		return nil
	}

	violations := []models.Violation{}

	registered, known := lp.RunProfiles[profile]
	if !known {
		violations = append(violations, models.NewViolation(models.CategoryParameters,
			"%s: run_profile %q not registered", lp.ArtifactPath, profile))
		return violations
	}

	if iterationsValue, ok := lookupPath(body, "parameters.iterations"); ok {
		iterations, numeric := asFloat(iterationsValue)
		if !numeric || int(iterations) != int(registered) {
			violations = append(violations, models.NewViolation(models.CategoryParameters,
				"%s: iterations %v do not match run_profile %q (expected %d)", lp.ArtifactPath, iterationsValue, profile, int(registered)))
		}
	}

	return violations
}

// checkMetricFloors applies the ordered floor triples to confirming
// statuses. An absent metric with a declared floor is itself a
// violation.
func (c *Checker) checkMetricFloors(lp models.LanePolicy, body map[string]any, status string) []models.Violation {
	floorStatuses := lp.FloorStatuses
	if len(floorStatuses) == 0 {
		floorStatuses = []string{"STABILITY_CONFIRMED", "DISTANCE_QUALIFIED"}
	}
	if !containsString(floorStatuses, status) {
		return nil
	}

	violations := []models.Violation{}
	for _, floor := range lp.MetricFloors {
		observedValue, ok := lookupPath(body, floor.Field)
		if !ok {
			violations = append(violations, models.NewViolation(models.CategoryMetricThreshold,
				"%s: metric %s absent (floor %.4f)", lp.ArtifactPath, floor.Name, floor.Floor))
			continue
		}
		observed, numeric := asFloat(observedValue)
		if !numeric {
			violations = append(violations, models.NewViolation(models.CategoryMetricThreshold,
				"%s: metric %s is not numeric (floor %.4f)", lp.ArtifactPath, floor.Name, floor.Floor))
			continue
		}
		if observed < floor.Floor {
			violations = append(violations, models.NewViolation(models.CategoryMetricThreshold,
				"%s: metric %s %.4f below floor %.4f", lp.ArtifactPath, floor.Name, observed, floor.Floor))
		}
	}
	return violations
}

func containsAnyKeyword(text string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(text, strings.ToLower(keyword)) {
			return true
		}
	}
	return false
}
