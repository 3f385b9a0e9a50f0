package models

import "fmt"

// Category classifies a violation. The category vocabulary is closed:
// renderers and receipts group by these strings.
type Category string

const (
	CategoryMissingFile      Category = "missing-file"
	CategoryPolicy           Category = "policy"
	CategoryBannedPattern    Category = "banned-pattern"
	CategoryMissingMarker    Category = "missing-marker"
	CategoryMissingArtifact  Category = "missing-artifact"
	CategoryArtifactParse    Category = "artifact-parse"
	CategoryArtifactField    Category = "artifact-field"
	CategoryArtifactStatus   Category = "artifact-status"
	CategoryArtifactReason   Category = "artifact-reason"
	CategoryArtifactValidity Category = "artifact-validity"
	CategoryArtifactLane     Category = "artifact-lane"
	CategoryFragility        Category = "artifact-fragility"
	CategoryParameters       Category = "artifact-parameters"
	CategoryMetricThreshold  Category = "artifact-threshold"
	CategoryOverlap          Category = "artifact-overlap"
	CategoryLeakage          Category = "artifact-leakage"
	CategoryCrossArtifact    Category = "cross-artifact"
	CategoryFreshness        Category = "freshness"
	CategoryThreshold        Category = "threshold"
	CategoryStaleArtifact    Category = "stale-artifact"
	CategoryContractCoupling Category = "contract-coupling"
	CategoryExpression       Category = "expression"
)

// Violation is a single finding. Violations are terminal outputs: the
// engine accumulates them into one flat ordered list and never reacts
// to them itself.
type Violation struct {
	Category Category `json:"category"`
	Detail   string   `json:"detail"`
}

// String renders the canonical "[category] detail" form.
func (v Violation) String() string {
	return fmt.Sprintf("[%s] %s", v.Category, v.Detail)
}

// NewViolation constructor
func NewViolation(cat Category, format string, args ...any) Violation {
	return Violation{Category: cat, Detail: fmt.Sprintf(format, args...)}
}

// FormatViolations renders the canonical string list.
func FormatViolations(violations []Violation) []string {
	out := make([]string, len(violations))
	for i, v := range violations {
		out[i] = v.String()
	}
	return out
}
