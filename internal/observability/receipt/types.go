// Package receipt provides stable evidence artifacts for audit/compliance.
package receipt

// ReceiptSchemaVersion current
const ReceiptSchemaVersion = "1.0"

// Receipt structure
type Receipt struct {
	SchemaVersion string         `json:"schema_version"`
	OpID          string         `json:"op_id"`
	TsStart       string         `json:"ts_start"`
	TsEnd         string         `json:"ts_end"`
	Command       string         `json:"command"`
	Args          []string       `json:"args"`
	ArgsRedacted  bool           `json:"args_redacted,omitempty"`
	Result        Result         `json:"result"`
	Policy        *PolicyRef     `json:"policy,omitempty"`
	Check         *CheckSummary  `json:"check,omitempty"`
	Signature     *SignatureNote `json:"signature,omitempty"`
}

// Result status
type Result struct {
	Status string `json:"status"` // "success" or "fail"
	Error  string `json:"error,omitempty"`
}

// PolicyRef detail
type PolicyRef struct {
	Name   string `json:"name,omitempty"`
	Path   string `json:"path"`
	SHA256 string `json:"sha256,omitempty"`
}

// CheckSummary records the outcome of one check run, with violation
// counts bucketed by category so receipts stay small even for noisy
// runs.
type CheckSummary struct {
	Mode       string         `json:"mode"`
	Outcome    string         `json:"outcome"` // PASS|FAIL
	Violations int            `json:"violations"`
	Categories map[string]int `json:"categories,omitempty"`
}

// SignatureNote detail
type SignatureNote struct {
	ReportPath string `json:"report_path"`
	KeyPath    string `json:"key_path,omitempty"`
	Verified   *bool  `json:"verified,omitempty"`
}
