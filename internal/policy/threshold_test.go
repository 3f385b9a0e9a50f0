package policy

import (
	"context"
	"testing"

	"github.com/guardrail/guardrail/internal/models"
)

func floatPtr(f float64) *float64 { return &f }

func thresholdDoc(tp models.ThresholdPolicy) *models.PolicyDocument {
	return &models.PolicyDocument{ThresholdPolicy: &tp}
}

func TestThresholdCeilings(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		tp         models.ThresholdPolicy
		wantCount  int
		wantDetail string
	}{
		{
			name:      "all under ceilings",
			body:      `{"orphaned_ratio": 0.1, "orphaned_rows": 3, "running_rows": 0, "missing_manifests": 0}`,
			tp:        models.ThresholdPolicy{ArtifactPath: "health.json", OrphanedRatioMax: floatPtr(0.4), OrphanedRowsMax: floatPtr(10), RunningRowsMax: floatPtr(0), MissingManifestsMax: floatPtr(0)},
			wantCount: 0,
		},
		{
			name:       "ratio over ceiling",
			body:       `{"orphaned_ratio": 0.8}`,
			tp:         models.ThresholdPolicy{ArtifactPath: "health.json", OrphanedRatioMax: floatPtr(0.4)},
			wantCount:  1,
			wantDetail: "health.json: orphaned_ratio 0.800000 > 0.400000",
		},
		{
			name:      "boundary value passes",
			body:      `{"orphaned_ratio": 0.4}`,
			tp:        models.ThresholdPolicy{ArtifactPath: "health.json", OrphanedRatioMax: floatPtr(0.4)},
			wantCount: 0,
		},
		{
			name:       "field absent with ceiling set",
			body:       `{}`,
			tp:         models.ThresholdPolicy{ArtifactPath: "health.json", OrphanedRowsMax: floatPtr(5)},
			wantCount:  1,
			wantDetail: "health.json: orphaned_rows absent (max 5.000000)",
		},
		{
			name:      "non-numeric field",
			body:      `{"running_rows": "many"}`,
			tp:        models.ThresholdPolicy{ArtifactPath: "health.json", RunningRowsMax: floatPtr(0)},
			wantCount: 1,
		},
		{
			name:      "unset ceiling not checked",
			body:      `{"orphaned_ratio": 99}`,
			tp:        models.ThresholdPolicy{ArtifactPath: "health.json"},
			wantCount: 0,
		},
		{
			name:      "multiple ceilings all reported",
			body:      `{"orphaned_ratio": 0.8, "orphaned_rows": 50}`,
			tp:        models.ThresholdPolicy{ArtifactPath: "health.json", OrphanedRatioMax: floatPtr(0.4), OrphanedRowsMax: floatPtr(10)},
			wantCount: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := writeTree(t, map[string]string{"health.json": tt.body})
			got := RunChecks(context.Background(), thresholdDoc(tt.tp), root, models.ModeCI)
			if len(got) != tt.wantCount {
				t.Fatalf("got %d violations, want %d: %v", len(got), tt.wantCount, got)
			}
			if tt.wantDetail != "" && got[0].Detail != tt.wantDetail {
				t.Errorf("detail = %q, want %q", got[0].Detail, tt.wantDetail)
			}
			for _, v := range got {
				if v.Category != models.CategoryThreshold {
					t.Errorf("unexpected category %s", v.Category)
				}
			}
		})
	}
}

func TestThresholdArtifactMissing(t *testing.T) {
	root := writeTree(t, nil)
	got := RunChecks(context.Background(), thresholdDoc(models.ThresholdPolicy{ArtifactPath: "health.json"}), root, models.ModeCI)
	if len(got) != 1 || got[0].Category != models.CategoryMissingArtifact {
		t.Errorf("threshold artifact absence must always report, got %v", got)
	}
}

func TestThresholdRequirePass(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantCount int
	}{
		{name: "pass flag true", body: `{"threshold_policy_pass": true}`, wantCount: 0},
		{name: "pass flag false", body: `{"threshold_policy_pass": false}`, wantCount: 1},
		{name: "pass flag absent", body: `{}`, wantCount: 1},
		{name: "pass flag non-boolean", body: `{"threshold_policy_pass": "yes"}`, wantCount: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := writeTree(t, map[string]string{"health.json": tt.body})
			tp := models.ThresholdPolicy{ArtifactPath: "health.json", RequirePass: true}
			got := RunChecks(context.Background(), thresholdDoc(tp), root, models.ModeCI)
			if len(got) != tt.wantCount {
				t.Errorf("got %d violations, want %d: %v", len(got), tt.wantCount, got)
			}
		})
	}
}

func TestArtifactAge(t *testing.T) {
	clock := fixedClock("2026-08-12T12:00:00Z")

	tests := []struct {
		name       string
		body       string
		maxAge     float64
		wantCount  int
		wantDetail string
	}{
		{
			name:      "fresh artifact",
			body:      `{"generated_utc": "2026-08-12T10:00:00Z"}`,
			maxAge:    24,
			wantCount: 0,
		},
		{
			name:       "stale artifact",
			body:       `{"generated_utc": "2026-08-10T12:00:00Z"}`,
			maxAge:     24,
			wantCount:  1,
			wantDetail: "health.json: artifact age 48.0h exceeds 24.0h",
		},
		{
			name:      "generated_utc absent",
			body:      `{}`,
			maxAge:    24,
			wantCount: 1,
		},
		{
			name:      "invalid generated_utc",
			body:      `{"generated_utc": "last tuesday"}`,
			maxAge:    24,
			wantCount: 1,
		},
		{
			name:      "no age ceiling configured",
			body:      `{"generated_utc": "2020-01-01T00:00:00Z"}`,
			maxAge:    0,
			wantCount: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := writeTree(t, map[string]string{"health.json": tt.body})
			tp := models.ThresholdPolicy{ArtifactPath: "health.json", MaxArtifactAgeHours: tt.maxAge}
			got := RunChecks(context.Background(), thresholdDoc(tp), root, models.ModeCI, WithClock(clock))
			if len(got) != tt.wantCount {
				t.Fatalf("got %d violations, want %d: %v", len(got), tt.wantCount, got)
			}
			if tt.wantDetail != "" && got[0].Detail != tt.wantDetail {
				t.Errorf("detail = %q, want %q", got[0].Detail, tt.wantDetail)
			}
			for _, v := range got {
				if v.Category != models.CategoryStaleArtifact {
					t.Errorf("unexpected category %s", v.Category)
				}
			}
		})
	}
}

func TestSyncArtifactAge(t *testing.T) {
	clock := fixedClock("2026-08-12T12:00:00Z")
	root := writeTree(t, map[string]string{
		"health.json": `{"threshold_policy_pass": true}`,
		"sync.json":   `{"generated_utc": "2026-08-11T00:00:00Z"}`,
	})
	tp := models.ThresholdPolicy{
		ArtifactPath:     "health.json",
		SyncArtifactPath: "sync.json",
		SyncMaxAgeHours:  12,
	}

	got := RunChecks(context.Background(), thresholdDoc(tp), root, models.ModeCI, WithClock(clock))
	if len(got) != 1 || got[0].Category != models.CategoryStaleArtifact {
		t.Fatalf("expected one stale-artifact violation, got %v", got)
	}
	want := "sync.json: artifact age 36.0h exceeds 12.0h"
	if got[0].Detail != want {
		t.Errorf("detail = %q, want %q", got[0].Detail, want)
	}
}

func TestSyncArtifactMissing(t *testing.T) {
	root := writeTree(t, map[string]string{"health.json": `{}`})
	tp := models.ThresholdPolicy{ArtifactPath: "health.json", SyncArtifactPath: "sync.json"}
	got := RunChecks(context.Background(), thresholdDoc(tp), root, models.ModeCI)
	if len(got) != 1 || got[0].Category != models.CategoryMissingArtifact {
		t.Errorf("expected missing sync artifact violation, got %v", got)
	}
}
