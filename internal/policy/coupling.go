package policy

import (
	"github.com/guardrail/guardrail/internal/models"
)

// checkCoupling enforces the contract between a gate-health artifact
// and its paired provenance artifact: when the gate reports a degraded
// status, the provenance side must acknowledge the degradation in
// specific, machine-checkable ways.
func (c *Checker) checkCoupling() []models.Violation {
	cp := c.policy.CouplingPolicy
	if cp == nil || cp.GateArtifactPath == "" || cp.ProvenanceArtifactPath == "" {
		return nil
	}

	violations := []models.Violation{}

	gate, gateExists, loadViolations := c.artifact(cp.GateArtifactPath)
	violations = append(violations, loadViolations...)
	prov, provExists, loadViolations := c.artifact(cp.ProvenanceArtifactPath)
	violations = append(violations, loadViolations...)

	if !gateExists {
		violations = append(violations, models.NewViolation(models.CategoryMissingArtifact,
			"contract coupling gate artifact not found: %s", cp.GateArtifactPath))
	}
	if !provExists {
		violations = append(violations, models.NewViolation(models.CategoryMissingArtifact,
			"contract coupling provenance artifact not found: %s", cp.ProvenanceArtifactPath))
	}
	if gate == nil || prov == nil {
		return violations
	}

	gateStatus := stringify(gate.Results["status"])
	if !containsString(cp.DegradedStatuses, gateStatus) {
		return violations
	}

	provStatus := stringify(prov.Results["status"])
	if containsString(cp.DisallowedProvenanceStatuses, provStatus) {
		violations = append(violations, models.NewViolation(models.CategoryContractCoupling,
			"gate status %q is degraded but %s reports disallowed status %q", gateStatus, cp.ProvenanceArtifactPath, provStatus))
	}

	if cp.RequireCouplingPass {
		if passValue, _ := lookupPath(prov.Results, "contract_coupling_pass"); passValue != true {
			violations = append(violations, models.NewViolation(models.CategoryContractCoupling,
				"%s: contract_coupling_pass is not true under degraded gate status %q", cp.ProvenanceArtifactPath, gateStatus))
		}
	}

	if len(cp.RequiredReasonCodes) > 0 {
		declaredValue, _ := lookupPath(prov.Results, cp.ReasonCodesField)
		declared, _ := asStringSlice(declaredValue)
		for _, code := range cp.RequiredReasonCodes {
			if !containsString(declared, code) {
				violations = append(violations, models.NewViolation(models.CategoryContractCoupling,
					"%s: missing contract reason code %q under degraded gate status %q", cp.ProvenanceArtifactPath, code, gateStatus))
			}
		}
	}

	if len(cp.PermittedLanes) > 0 {
		laneValue, _ := lookupPath(prov.Results, cp.LaneField)
		lane := stringify(laneValue)
		if !containsString(cp.PermittedLanes, lane) {
			violations = append(violations, models.NewViolation(models.CategoryContractCoupling,
				"%s: lane %q not permitted under degraded gate status %q (permitted %v)", cp.ProvenanceArtifactPath, lane, gateStatus, cp.PermittedLanes))
		}
	}

	return violations
}
