package policy

import (
	"context"
	"testing"

	"github.com/guardrail/guardrail/internal/models"
)

func artifactDoc(spec models.ArtifactSpec) *models.PolicyDocument {
	return &models.PolicyDocument{
		ArtifactPolicy: models.ArtifactPolicy{TrackedArtifacts: []models.ArtifactSpec{spec}},
	}
}

func TestArtifactRequiredness(t *testing.T) {
	tests := []struct {
		name        string
		requiredIn  []string
		mode        models.Mode
		wantMissing bool
	}{
		{name: "required in current mode", requiredIn: []string{"ci"}, mode: models.ModeCI, wantMissing: true},
		{name: "required in both modes", requiredIn: []string{"ci", "release"}, mode: models.ModeRelease, wantMissing: true},
		{name: "required in other mode only", requiredIn: []string{"release"}, mode: models.ModeCI, wantMissing: false},
		{name: "empty set never required", requiredIn: nil, mode: models.ModeRelease, wantMissing: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := writeTree(t, nil)
			doc := artifactDoc(models.ArtifactSpec{
				Path:               "status/report.json",
				RequiredInModes:    tt.requiredIn,
				RequiredResultKeys: []string{"status"},
			})
			got := RunChecks(context.Background(), doc, root, tt.mode)

			if !tt.wantMissing {
				if len(got) != 0 {
					t.Errorf("expected absent optional artifact to be skipped, got %v", got)
				}
				return
			}
			if len(got) != 1 {
				t.Fatalf("got %d violations, want 1: %v", len(got), got)
			}
			want := "required in mode=" + string(tt.mode) + ": status/report.json"
			if got[0].Category != models.CategoryMissingArtifact || got[0].Detail != want {
				t.Errorf("violation = %v, want [missing-artifact] %s", got[0], want)
			}
		})
	}
}

func TestMissingArtifactExactString(t *testing.T) {
	root := writeTree(t, nil)
	doc := artifactDoc(models.ArtifactSpec{
		Path:            "status/report.json",
		RequiredInModes: []string{"ci"},
	})
	got := RunChecks(context.Background(), doc, root, models.ModeCI)
	if len(got) != 1 {
		t.Fatalf("got %v", got)
	}
	want := "[missing-artifact] required in mode=ci: status/report.json"
	if got[0].String() != want {
		t.Errorf("violation = %q, want %q", got[0].String(), want)
	}
}

func TestValidateSpecResultKeys(t *testing.T) {
	root := writeTree(t, map[string]string{
		"status/report.json": `{"results": {"status": "PASS", "metrics": {"auc": 0.91}}}`,
	})
	doc := artifactDoc(models.ArtifactSpec{
		Path:               "status/report.json",
		RequiredResultKeys: []string{"status", "lane"},
		RequiredNestedResultKeys: map[string][]string{
			"metrics":    {"auc", "f1"},
			"provenance": {"run_id"},
		},
	})

	got := RunChecks(context.Background(), doc, root, models.ModeCI)
	wantDetails := []string{
		`status/report.json: missing key "lane"`,
		`status/report.json: missing key "metrics.f1"`,
		`status/report.json: key "provenance" is missing or not an object`,
	}
	if len(got) != len(wantDetails) {
		t.Fatalf("got %d violations, want %d: %v", len(got), len(wantDetails), got)
	}
	for i, want := range wantDetails {
		if got[i].Category != models.CategoryArtifactField || got[i].Detail != want {
			t.Errorf("violation[%d] = %v, want [artifact-field] %s", i, got[i], want)
		}
	}
}

func TestValidateSpecStatusAndReason(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		spec     models.ArtifactSpec
		wantCats []models.Category
	}{
		{
			name: "status outside allowed set",
			body: `{"status": "UNKNOWN"}`,
			spec: models.ArtifactSpec{AllowedStatuses: []string{"PASS", "FAIL"}},
			wantCats: []models.Category{models.CategoryArtifactStatus},
		},
		{
			name:     "status in allowed set",
			body:     `{"status": "PASS"}`,
			spec:     models.ArtifactSpec{AllowedStatuses: []string{"PASS", "FAIL"}},
			wantCats: nil,
		},
		{
			name: "reason code not allowed for status",
			body: `{"status": "FAIL", "reason_code": "OTHER"}`,
			spec: models.ArtifactSpec{
				StatusReasonCodes: map[string][]string{"FAIL": {"DATA_MISSING", "TIMEOUT"}},
			},
			wantCats: []models.Category{models.CategoryArtifactReason},
		},
		{
			name: "reason code allowed",
			body: `{"status": "FAIL", "reason_code": "TIMEOUT"}`,
			spec: models.ArtifactSpec{
				StatusReasonCodes: map[string][]string{"FAIL": {"DATA_MISSING", "TIMEOUT"}},
			},
			wantCats: nil,
		},
		{
			name: "unconstrained status skips reason check",
			body: `{"status": "PASS", "reason_code": "whatever"}`,
			spec: models.ArtifactSpec{
				StatusReasonCodes: map[string][]string{"FAIL": {"TIMEOUT"}},
			},
			wantCats: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.spec.Path = "status/report.json"
			root := writeTree(t, map[string]string{"status/report.json": tt.body})
			got := RunChecks(context.Background(), artifactDoc(tt.spec), root, models.ModeCI)
			if len(got) != len(tt.wantCats) {
				t.Fatalf("got %d violations, want %d: %v", len(got), len(tt.wantCats), got)
			}
			for i, cat := range tt.wantCats {
				if got[i].Category != cat {
					t.Errorf("violation[%d] category = %s, want %s", i, got[i].Category, cat)
				}
			}
		})
	}
}

func TestValidateSpecMetricValidity(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		mode      models.Mode
		wantCount int
	}{
		{
			name:      "both flags true in release",
			body:      `{"metric_validity": {"required_fields_present": true, "sufficient_iterations": true}}`,
			mode:      models.ModeRelease,
			wantCount: 0,
		},
		{
			name:      "fields flag false",
			body:      `{"metric_validity": {"required_fields_present": false, "sufficient_iterations": true}}`,
			mode:      models.ModeCI,
			wantCount: 1,
		},
		{
			name:      "iterations flag only checked in release",
			body:      `{"metric_validity": {"required_fields_present": true, "sufficient_iterations": false}}`,
			mode:      models.ModeCI,
			wantCount: 0,
		},
		{
			name:      "iterations flag enforced in release",
			body:      `{"metric_validity": {"required_fields_present": true, "sufficient_iterations": false}}`,
			mode:      models.ModeRelease,
			wantCount: 1,
		},
		{
			name:      "validity object absent",
			body:      `{}`,
			mode:      models.ModeRelease,
			wantCount: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := writeTree(t, map[string]string{"status/report.json": tt.body})
			doc := artifactDoc(models.ArtifactSpec{Path: "status/report.json", CheckMetricValidity: true})
			got := RunChecks(context.Background(), doc, root, tt.mode)
			if len(got) != tt.wantCount {
				t.Fatalf("got %d violations, want %d: %v", len(got), tt.wantCount, got)
			}
			for _, v := range got {
				if v.Category != models.CategoryArtifactValidity {
					t.Errorf("unexpected category %s", v.Category)
				}
			}
		})
	}
}

func TestSpecViolationsAccumulate(t *testing.T) {
	root := writeTree(t, map[string]string{
		"status/report.json": `{"status": "UNKNOWN"}`,
	})
	doc := artifactDoc(models.ArtifactSpec{
		Path:                "status/report.json",
		RequiredResultKeys:  []string{"lane"},
		AllowedStatuses:     []string{"PASS"},
		CheckMetricValidity: true,
	})

	got := RunChecks(context.Background(), doc, root, models.ModeCI)
	if len(got) != 3 {
		t.Errorf("independent checks must all fire, got %d: %v", len(got), got)
	}
}
