package policy

import (
	"context"
	"testing"

	"github.com/guardrail/guardrail/internal/models"
)

func couplingDoc(cp models.CouplingPolicy) *models.PolicyDocument {
	doc := &models.PolicyDocument{CouplingPolicy: &cp}
	applyDefaults(doc)
	return doc
}

func baseCoupling() models.CouplingPolicy {
	return models.CouplingPolicy{
		GateArtifactPath:             "health.json",
		ProvenanceArtifactPath:       "provenance.json",
		DegradedStatuses:             []string{"DEGRADED", "CRITICAL"},
		DisallowedProvenanceStatuses: []string{"CLEAN"},
		RequireCouplingPass:          true,
		RequiredReasonCodes:          []string{"CONTRACT_DEGRADED"},
		PermittedLanes:               []string{"blocked-contract", "needs-review"},
	}
}

func TestCouplingHealthyGateSkipsChecks(t *testing.T) {
	root := writeTree(t, map[string]string{
		"health.json":     `{"status": "HEALTHY"}`,
		"provenance.json": `{"status": "CLEAN", "lane": "confirmed"}`,
	})

	got := RunChecks(context.Background(), couplingDoc(baseCoupling()), root, models.ModeCI)
	if len(got) != 0 {
		t.Errorf("healthy gate must not trigger coupling checks, got %v", got)
	}
}

func TestCouplingDegradedGate(t *testing.T) {
	tests := []struct {
		name      string
		prov      string
		wantCount int
	}{
		{
			name:      "fully acknowledged degradation",
			prov:      `{"status": "DEGRADED_ACK", "lane": "blocked-contract", "contract_coupling_pass": true, "contract_reason_codes": ["CONTRACT_DEGRADED"]}`,
			wantCount: 0,
		},
		{
			name:      "disallowed provenance status",
			prov:      `{"status": "CLEAN", "lane": "blocked-contract", "contract_coupling_pass": true, "contract_reason_codes": ["CONTRACT_DEGRADED"]}`,
			wantCount: 1,
		},
		{
			name:      "coupling pass flag missing",
			prov:      `{"status": "DEGRADED_ACK", "lane": "blocked-contract", "contract_reason_codes": ["CONTRACT_DEGRADED"]}`,
			wantCount: 1,
		},
		{
			name:      "required reason code missing",
			prov:      `{"status": "DEGRADED_ACK", "lane": "blocked-contract", "contract_coupling_pass": true, "contract_reason_codes": ["OTHER"]}`,
			wantCount: 1,
		},
		{
			name:      "lane outside permitted set",
			prov:      `{"status": "DEGRADED_ACK", "lane": "confirmed", "contract_coupling_pass": true, "contract_reason_codes": ["CONTRACT_DEGRADED"]}`,
			wantCount: 1,
		},
		{
			name:      "everything wrong reported together",
			prov:      `{"status": "CLEAN", "lane": "confirmed"}`,
			wantCount: 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := writeTree(t, map[string]string{
				"health.json":     `{"status": "DEGRADED"}`,
				"provenance.json": tt.prov,
			})
			got := RunChecks(context.Background(), couplingDoc(baseCoupling()), root, models.ModeCI)
			if len(got) != tt.wantCount {
				t.Fatalf("got %d violations, want %d: %v", len(got), tt.wantCount, got)
			}
			for _, v := range got {
				if v.Category != models.CategoryContractCoupling {
					t.Errorf("unexpected category %s", v.Category)
				}
			}
		})
	}
}

func TestCouplingMissingArtifacts(t *testing.T) {
	root := writeTree(t, map[string]string{"health.json": `{"status": "DEGRADED"}`})
	got := RunChecks(context.Background(), couplingDoc(baseCoupling()), root, models.ModeCI)
	if len(got) != 1 || got[0].Category != models.CategoryMissingArtifact {
		t.Errorf("expected missing provenance artifact, got %v", got)
	}
}

func TestCouplingDisabledWithoutPaths(t *testing.T) {
	root := writeTree(t, nil)
	cp := models.CouplingPolicy{GateArtifactPath: "health.json"}
	got := RunChecks(context.Background(), couplingDoc(cp), root, models.ModeCI)
	if len(got) != 0 {
		t.Errorf("coupling without both paths must be inert, got %v", got)
	}
}
