package policy

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/guardrail/guardrail/internal/models"
)

// writeTree materializes a fixture tree under a temp root.
func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		full := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
			t.Fatalf("mkdir %s: %v", rel, err)
		}
		if err := os.WriteFile(full, []byte(content), 0644); err != nil {
			t.Fatalf("write %s: %v", rel, err)
		}
	}
	return root
}

func fixedClock(ts string) Clock {
	parsed, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		panic(err)
	}
	return func() time.Time { return parsed }
}

func categories(violations []models.Violation) []models.Category {
	out := make([]models.Category, len(violations))
	for i, v := range violations {
		out[i] = v.Category
	}
	return out
}

func hasCategory(violations []models.Violation, cat models.Category) bool {
	for _, v := range violations {
		if v.Category == cat {
			return true
		}
	}
	return false
}

func TestRunIsDeterministic(t *testing.T) {
	root := writeTree(t, map[string]string{
		"reports/summary.md":    "TODO: fill in\n",
		"artifacts/report.json": `{"results": {"lane": "active"}}`,
	})
	doc := &models.PolicyDocument{
		Name: "det",
		BannedPatterns: []models.BannedPatternRule{
			{ID: "no-todo", Pattern: "TODO", Scopes: []string{"reports/summary.md"}},
		},
		ArtifactPolicy: models.ArtifactPolicy{
			TrackedArtifacts: []models.ArtifactSpec{
				{Path: "artifacts/report.json", RequiredResultKeys: []string{"status", "lane"}},
				{Path: "artifacts/absent.json", RequiredInModes: []string{"ci"}},
			},
		},
	}

	first := RunChecks(context.Background(), doc, root, models.ModeCI)
	second := RunChecks(context.Background(), doc, root, models.ModeCI)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("runs differ:\n%v\n%v", first, second)
	}
	if len(first) != 3 {
		t.Fatalf("expected 3 violations, got %d: %v", len(first), first)
	}

	want := []models.Category{
		models.CategoryBannedPattern,
		models.CategoryArtifactField,
		models.CategoryMissingArtifact,
	}
	if got := categories(first); !reflect.DeepEqual(got, want) {
		t.Errorf("category order = %v, want %v", got, want)
	}
}

func TestRunCollectsAllViolations(t *testing.T) {
	root := writeTree(t, map[string]string{
		"reports/summary.md":    "TODO and FIXME\n",
		"artifacts/report.json": `{"results": {}}`,
	})
	doc := &models.PolicyDocument{
		BannedPatterns: []models.BannedPatternRule{
			{ID: "no-todo", Pattern: "TODO", Scopes: []string{"reports/summary.md"}},
			{ID: "no-fixme", Pattern: "FIXME", Scopes: []string{"reports/summary.md"}},
		},
		RequiredMarkers: []models.MarkerRule{
			{ID: "run-note", Scopes: []string{"reports/summary.md"}, Markers: []string{"Run ID:"}},
		},
		ArtifactPolicy: models.ArtifactPolicy{
			TrackedArtifacts: []models.ArtifactSpec{
				{Path: "artifacts/report.json", RequiredResultKeys: []string{"status"}},
			},
		},
	}

	got := RunChecks(context.Background(), doc, root, models.ModeCI)
	if len(got) != 4 {
		t.Errorf("expected every violation collected, got %d: %v", len(got), got)
	}
}

func TestEmptyPolicyPasses(t *testing.T) {
	root := writeTree(t, nil)
	got := RunChecks(context.Background(), &models.PolicyDocument{Name: "empty"}, root, models.ModeRelease)
	if len(got) != 0 {
		t.Errorf("empty policy produced violations: %v", got)
	}
}

func TestArtifactCacheReportsParseFailureOnce(t *testing.T) {
	root := writeTree(t, map[string]string{
		"artifacts/report.json": "not json",
	})
	doc := &models.PolicyDocument{
		ArtifactPolicy: models.ArtifactPolicy{
			TrackedArtifacts: []models.ArtifactSpec{
				{Path: "artifacts/report.json", RequiredResultKeys: []string{"status"}},
			},
		},
		LanePolicies: []models.LanePolicy{
			{ArtifactPath: "artifacts/report.json", StatusField: "status", LaneField: "lane",
				FieldsPresentField: "metric_validity.required_fields_present",
				ReopenTriggersField: "reopen_triggers", ResidualReasonField: "residual_reason",
				ReasonCodeField: "reason_code"},
		},
	}

	got := RunChecks(context.Background(), doc, root, models.ModeCI)
	parseCount := 0
	for _, v := range got {
		if v.Category == models.CategoryArtifactParse {
			parseCount++
		}
	}
	if parseCount != 1 {
		t.Errorf("parse failure reported %d times, want 1: %v", parseCount, got)
	}
}

func TestParseArtifact(t *testing.T) {
	tests := []struct {
		name        string
		data        string
		wantErr     bool
		wantKey     string
		wantProvKey string
	}{
		{name: "flat object", data: `{"status": "ok"}`, wantKey: "status"},
		{name: "results envelope", data: `{"results": {"status": "ok"}, "provenance": {"run_id": "r1"}}`, wantKey: "status", wantProvKey: "run_id"},
		{name: "top-level array", data: `[1, 2]`, wantErr: true},
		{name: "top-level scalar", data: `42`, wantErr: true},
		{name: "malformed", data: `{`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, err := parseArtifact([]byte(tt.data))
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseArtifact error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if _, ok := parsed.Results[tt.wantKey]; !ok {
				t.Errorf("results missing key %q", tt.wantKey)
			}
			if tt.wantProvKey != "" {
				if _, ok := parsed.Provenance[tt.wantProvKey]; !ok {
					t.Errorf("provenance missing key %q", tt.wantProvKey)
				}
			}
		})
	}
}

func TestUnreadableArtifactIsParseViolation(t *testing.T) {
	root := writeTree(t, nil)
	// a directory where a file is expected
	if err := os.MkdirAll(filepath.Join(root, "artifacts", "report.json"), 0755); err != nil {
		t.Fatal(err)
	}
	doc := &models.PolicyDocument{
		ArtifactPolicy: models.ArtifactPolicy{
			TrackedArtifacts: []models.ArtifactSpec{{Path: "artifacts/report.json"}},
		},
	}

	got := RunChecks(context.Background(), doc, root, models.ModeCI)
	if !hasCategory(got, models.CategoryArtifactParse) {
		t.Errorf("expected artifact-parse violation, got %v", got)
	}
}
