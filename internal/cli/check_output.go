package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/guardrail/guardrail/internal/models"
)

// FormatTextOutput renders the canonical human-readable report: a
// [FAIL]/[OK] headline plus each violation indented, followed by a
// small per-category tally.
func FormatTextOutput(report *models.CheckReport) string {
	var sb strings.Builder

	if report.Outcome == "PASS" {
		sb.WriteString(fmt.Sprintf("%s[OK]%s no violations (mode=%s).\n", colorGreen, colorReset, report.Mode))
		return sb.String()
	}

	sb.WriteString(fmt.Sprintf("%s[FAIL]%s %d violations (mode=%s):\n", colorRed, colorReset, report.Summary.Total, report.Mode))
	for _, v := range report.Violations {
		sb.WriteString("  " + v.String() + "\n")
	}

	if len(report.Categories) > 0 {
		sb.WriteString("\n")
		categories := make([]string, 0, len(report.Categories))
		for category := range report.Categories {
			categories = append(categories, category)
		}
		sort.Strings(categories)
		for _, category := range categories {
			sb.WriteString(fmt.Sprintf("%s%-22s%s %d\n", colorYellow, category, colorReset, report.Categories[category]))
		}
	}

	return sb.String()
}

// FormatJSONOutput raw json
func FormatJSONOutput(report *models.CheckReport) ([]byte, error) {
	return json.MarshalIndent(report, "", "  ")
}

// writeReportFile persists the JSON report for later signing.
func writeReportFile(path string, report *models.CheckReport) error {
	data, err := FormatJSONOutput(report)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}
