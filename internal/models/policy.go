package models

// PolicyDocument is the root configuration for a check run. It is
// deserialized once from JSON or YAML and never mutated afterwards.
// The schema is deliberately permissive: absent keys decode to empty
// structures, and an impoverished policy simply performs fewer checks.
type PolicyDocument struct {
	Name            string              `json:"name" yaml:"name"`
	TrackedFiles    []string            `json:"tracked_files" yaml:"tracked_files"`
	BannedPatterns  []BannedPatternRule `json:"banned_patterns" yaml:"banned_patterns"`
	RequiredMarkers []MarkerRule        `json:"required_markers" yaml:"required_markers"`
	Allowlist       []AllowlistEntry    `json:"allowlist" yaml:"allowlist"`
	ArtifactPolicy  ArtifactPolicy      `json:"artifact_policy" yaml:"artifact_policy"`
	LanePolicies    []LanePolicy        `json:"lane_policies" yaml:"lane_policies"`
	CrossChecks     []CrossCheckPolicy  `json:"cross_checks" yaml:"cross_checks"`
	ThresholdPolicy *ThresholdPolicy    `json:"threshold_policy" yaml:"threshold_policy"`
	CouplingPolicy  *CouplingPolicy     `json:"contract_coupling_policy" yaml:"contract_coupling_policy"`
	ExpressionRules []ExpressionRule    `json:"expression_rules" yaml:"expression_rules"`
}

// BannedPatternRule forbids a substring or regex in tracked files.
type BannedPatternRule struct {
	ID              string   `json:"id" yaml:"id"`
	Pattern         string   `json:"pattern" yaml:"pattern"`
	Scopes          []string `json:"scopes" yaml:"scopes"`
	Regex           bool     `json:"regex" yaml:"regex"`
	CaseInsensitive bool     `json:"case_insensitive" yaml:"case_insensitive"`
	Modes           []string `json:"modes" yaml:"modes"`
}

// MarkerRule requires literal markers to be present in tracked files.
type MarkerRule struct {
	ID      string   `json:"id" yaml:"id"`
	Scopes  []string `json:"scopes" yaml:"scopes"`
	Markers []string `json:"markers" yaml:"markers"`
	Modes   []string `json:"modes" yaml:"modes"`
}

// AllowlistEntry suppresses one banned-pattern rule for one file.
type AllowlistEntry struct {
	PatternID string `json:"pattern_id" yaml:"pattern_id"`
	Scope     string `json:"scope" yaml:"scope"`
}

// ArtifactPolicy groups the tracked artifact specs.
type ArtifactPolicy struct {
	TrackedArtifacts []ArtifactSpec `json:"tracked_artifacts" yaml:"tracked_artifacts"`
}

// ArtifactSpec declares the structural expectations on one artifact file.
type ArtifactSpec struct {
	Path                     string              `json:"path" yaml:"path"`
	RequiredInModes          []string            `json:"required_in_modes" yaml:"required_in_modes"`
	RequiredResultKeys       []string            `json:"required_result_keys" yaml:"required_result_keys"`
	RequiredNestedResultKeys map[string][]string `json:"required_nested_result_keys" yaml:"required_nested_result_keys"`
	AllowedStatuses          []string            `json:"allowed_statuses" yaml:"allowed_statuses"`
	StatusReasonCodes        map[string][]string `json:"status_reason_codes" yaml:"status_reason_codes"`
	CheckMetricValidity      bool                `json:"check_metric_validity" yaml:"check_metric_validity"`
}

// LanePolicy parameterizes the lane derivation pass for one domain.
// The same decision procedure serves every domain; only these tables vary.
type LanePolicy struct {
	Name         string `json:"name" yaml:"name"`
	ArtifactPath string `json:"artifact_path" yaml:"artifact_path"`

	StatusField        string `json:"status_field" yaml:"status_field"`                 // default "status"
	LaneField          string `json:"lane_field" yaml:"lane_field"`                     // default "lane"
	ReasonCodeField    string `json:"reason_code_field" yaml:"reason_code_field"`       // default "reason_code"
	FieldsPresentField string `json:"fields_present_field" yaml:"fields_present_field"` // default "metric_validity.required_fields_present"

	RequiredLaneByStatus              map[string]string `json:"required_lane_by_status" yaml:"required_lane_by_status"`
	InconclusiveStatus                string            `json:"inconclusive_status" yaml:"inconclusive_status"`
	InconclusiveLaneWhenFieldsMissing string            `json:"inconclusive_lane_when_fields_missing" yaml:"inconclusive_lane_when_fields_missing"`

	RequireReopenTriggersForLanes []string `json:"require_reopen_triggers_for_lanes" yaml:"require_reopen_triggers_for_lanes"`
	ReopenTriggersField           string   `json:"reopen_triggers_field" yaml:"reopen_triggers_field"` // default "reopen_triggers"
	RequireResidualReasonForLanes []string `json:"require_residual_reason_for_lanes" yaml:"require_residual_reason_for_lanes"`
	ResidualReasonField           string   `json:"residual_reason_field" yaml:"residual_reason_field"` // default "residual_reason"

	BlockedLanes                        []string `json:"blocked_lanes" yaml:"blocked_lanes"`
	BlockingClaimedField                string   `json:"blocking_claimed_field" yaml:"blocking_claimed_field"`
	ObjectiveFailureField               string   `json:"objective_failure_field" yaml:"objective_failure_field"`
	ForbiddenNonBlockedResidualKeywords []string `json:"forbidden_non_blocked_residual_keywords" yaml:"forbidden_non_blocked_residual_keywords"`
	BlockedResidualKeywords             []string `json:"blocked_residual_keywords" yaml:"blocked_residual_keywords"`

	RunProfiles map[string]float64 `json:"run_profiles" yaml:"run_profiles"`

	MetricFloors  []MetricFloor `json:"metric_floors" yaml:"metric_floors"`
	FloorStatuses []string      `json:"floor_statuses" yaml:"floor_statuses"`
}

// MetricFloor is one (observed metric, floor, name) triple.
type MetricFloor struct {
	Field string  `json:"field" yaml:"field"`
	Floor float64 `json:"floor" yaml:"floor"`
	Name  string  `json:"name" yaml:"name"`
}

// CrossCheckPolicy pairs two artifacts and declares their consistency
// obligations: field equality, metric overlap/leakage, and provenance
// freshness.
type CrossCheckPolicy struct {
	Name        string `json:"name" yaml:"name"`
	PrimaryPath string `json:"primary_path" yaml:"primary_path"`
	PairedPath  string `json:"paired_path" yaml:"paired_path"`

	EqualFields []string `json:"equal_fields" yaml:"equal_fields"`

	MatchingMetricsField string `json:"matching_metrics_field" yaml:"matching_metrics_field"`
	HoldoutMetricsField  string `json:"holdout_metrics_field" yaml:"holdout_metrics_field"`
	OverlapField         string `json:"overlap_field" yaml:"overlap_field"`
	LeakageField         string `json:"leakage_field" yaml:"leakage_field"`

	RequireFreshness        bool    `json:"require_freshness" yaml:"require_freshness"`
	MaxTimestampSkewSeconds float64 `json:"max_timestamp_skew_seconds" yaml:"max_timestamp_skew_seconds"`
}

// ThresholdPolicy gates a distinguished health artifact on numeric
// ceilings and age.
type ThresholdPolicy struct {
	ArtifactPath string `json:"artifact_path" yaml:"artifact_path"`

	OrphanedRatioMax    *float64 `json:"orphaned_ratio_max" yaml:"orphaned_ratio_max"`
	OrphanedRowsMax     *float64 `json:"orphaned_rows_max" yaml:"orphaned_rows_max"`
	RunningRowsMax      *float64 `json:"running_rows_max" yaml:"running_rows_max"`
	MissingManifestsMax *float64 `json:"missing_manifests_max" yaml:"missing_manifests_max"`
	RequirePass         bool     `json:"require_pass" yaml:"require_pass"`

	MaxArtifactAgeHours float64 `json:"max_artifact_age_hours" yaml:"max_artifact_age_hours"`
	SyncArtifactPath    string  `json:"sync_artifact_path" yaml:"sync_artifact_path"`
	SyncMaxAgeHours     float64 `json:"sync_max_age_hours" yaml:"sync_max_age_hours"`
}

// CouplingPolicy couples a gate-health artifact to its provenance
// artifact when the gate reports a degraded status.
type CouplingPolicy struct {
	GateArtifactPath       string `json:"gate_artifact_path" yaml:"gate_artifact_path"`
	ProvenanceArtifactPath string `json:"provenance_artifact_path" yaml:"provenance_artifact_path"`

	DegradedStatuses             []string `json:"degraded_statuses" yaml:"degraded_statuses"`
	DisallowedProvenanceStatuses []string `json:"disallowed_provenance_statuses" yaml:"disallowed_provenance_statuses"`
	RequireCouplingPass          bool     `json:"require_coupling_pass" yaml:"require_coupling_pass"`
	RequiredReasonCodes          []string `json:"required_reason_codes" yaml:"required_reason_codes"`
	ReasonCodesField             string   `json:"reason_codes_field" yaml:"reason_codes_field"` // default "contract_reason_codes"
	PermittedLanes               []string `json:"permitted_lanes" yaml:"permitted_lanes"`
	LaneField                    string   `json:"lane_field" yaml:"lane_field"` // default "lane"
}

// ExpressionRule is a CEL rule evaluated against artifact bodies.
type ExpressionRule struct {
	Name       string   `json:"name" yaml:"name"`
	Expr       string   `json:"expr" yaml:"expr"`
	FailureMsg string   `json:"failure_msg" yaml:"failure_msg"`
	Scopes     []string `json:"scopes" yaml:"scopes"` // artifact paths; empty = all tracked artifacts
	Modes      []string `json:"modes" yaml:"modes"`
}
