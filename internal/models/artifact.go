package models

// ParsedArtifact is the runtime result of loading an artifact file.
// Results is the logical body, unwrapped from an optional
// {"results": {...}} envelope; Provenance is the top-level sibling
// object, kept only for the cross-artifact freshness checks.
type ParsedArtifact struct {
	Results    map[string]any
	Provenance map[string]any
}
