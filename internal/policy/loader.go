package policy

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/guardrail/guardrail/internal/models"
	"gopkg.in/yaml.v3"
)

// LoadDocument reads a policy document from disk. JSON is the primary
// format; .yaml/.yml files are decoded with yaml.v3. The schema is
// permissive: absent keys decode to their zero values and simply
// disable the corresponding checks.
func LoadDocument(path string) (*models.PolicyDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var doc models.PolicyDocument
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse policy YAML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse policy JSON: %w", err)
		}
	}

	applyDefaults(&doc)
	return &doc, nil
}

// Resolve loads a policy by preset name or file path. Preset names are
// tried first so that "baseline" never collides with a local file of
// the same name.
func Resolve(nameOrPath string) (*models.PolicyDocument, error) {
	if preset := GetPreset(nameOrPath); preset != nil {
		return preset, nil
	}
	return LoadDocument(nameOrPath)
}

// applyDefaults fills the configurable field names the policy author
// left blank. Documents stay comparable after loading: defaults are
// applied once here, never at check time.
func applyDefaults(doc *models.PolicyDocument) {
	for i := range doc.LanePolicies {
		lp := &doc.LanePolicies[i]
		lp.StatusField = firstNonEmpty(lp.StatusField, "status")
		lp.LaneField = firstNonEmpty(lp.LaneField, "lane")
		lp.ReasonCodeField = firstNonEmpty(lp.ReasonCodeField, "reason_code")
		lp.FieldsPresentField = firstNonEmpty(lp.FieldsPresentField, "metric_validity.required_fields_present")
		lp.ReopenTriggersField = firstNonEmpty(lp.ReopenTriggersField, "reopen_triggers")
		lp.ResidualReasonField = firstNonEmpty(lp.ResidualReasonField, "residual_reason")
	}
	if doc.CouplingPolicy != nil {
		cp := doc.CouplingPolicy
		cp.ReasonCodesField = firstNonEmpty(cp.ReasonCodesField, "contract_reason_codes")
		cp.LaneField = firstNonEmpty(cp.LaneField, "lane")
	}
}
