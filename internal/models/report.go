package models

// CheckReport is the serializable record of one check run. It is what
// the JSON output format emits and what report signing covers.
type CheckReport struct {
	PolicyName string         `json:"policy"`
	PolicyPath string         `json:"policyPath"`
	Root       string         `json:"root"`
	Mode       string         `json:"mode"`
	Summary    ReportSummary  `json:"summary"`
	Violations []Violation    `json:"violations"`
	Categories map[string]int `json:"categories,omitempty"`
	Outcome    string         `json:"outcome"` // "PASS" or "FAIL"
}

// ReportSummary counts
type ReportSummary struct {
	Total int `json:"total"`
}

// BuildCheckReport from a finished run.
func BuildCheckReport(policyName, policyPath, root string, mode Mode, violations []Violation) *CheckReport {
	report := &CheckReport{
		PolicyName: policyName,
		PolicyPath: policyPath,
		Root:       root,
		Mode:       string(mode),
		Violations: violations,
		Summary:    ReportSummary{Total: len(violations)},
		Outcome:    "PASS",
	}
	if report.Violations == nil {
		report.Violations = []Violation{}
	}
	if len(violations) > 0 {
		report.Outcome = "FAIL"
		report.Categories = make(map[string]int)
		for _, v := range violations {
			report.Categories[string(v.Category)]++
		}
	}
	return report
}
