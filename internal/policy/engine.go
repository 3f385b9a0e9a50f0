// Package policy implements the guardrail rule-evaluation engine: a
// JSON/YAML policy document interpreted against a tree of JSON research
// artifacts and a set of tracked text files, producing a deterministic
// ordered list of violations.
//
// The engine never short-circuits. Every pass records what it finds and
// moves on, so one run always reports everything wrong at once. The
// only inputs besides the policy are the filesystem and the clock; the
// clock is injectable so freshness boundaries are testable.
package policy

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/guardrail/guardrail/internal/models"
	"github.com/guardrail/guardrail/internal/observability/logging"
)

// Clock supplies "now" for freshness and staleness checks.
type Clock func() time.Time

// Checker evaluates one policy document against one filesystem root in
// one mode. It owns the per-run artifact cache; nothing is shared
// across runs.
type Checker struct {
	policy *models.PolicyDocument
	root   string
	mode   models.Mode
	now    Clock

	artifacts map[string]*artifactEntry
}

// artifactEntry caches one load attempt. A parse failure is recorded
// exactly once; later passes see the failure without re-reporting it.
type artifactEntry struct {
	parsed *models.ParsedArtifact
	exists bool
	failed bool
}

// Option configures a Checker.
type Option func(*Checker)

// WithClock overrides the real-time clock.
func WithClock(clock Clock) Option {
	return func(c *Checker) {
		c.now = clock
	}
}

// NewChecker constructor
func NewChecker(policy *models.PolicyDocument, root string, mode models.Mode, opts ...Option) *Checker {
	c := &Checker{
		policy:    policy,
		root:      root,
		mode:      mode,
		now:       time.Now,
		artifacts: make(map[string]*artifactEntry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RunChecks evaluates the policy and returns the full ordered violation
// list. Convenience wrapper over NewChecker(...).Run.
func RunChecks(ctx context.Context, policy *models.PolicyDocument, root string, mode models.Mode, opts ...Option) []models.Violation {
	return NewChecker(policy, root, mode, opts...).Run(ctx)
}

// Run executes every pass in a fixed order and concatenates their
// violations. Pattern and artifact passes are independent; the lane,
// cross-artifact, threshold, and coupling passes reuse the artifact
// cache populated by the artifact pass.
func (c *Checker) Run(ctx context.Context) []models.Violation {
	log := logging.From(ctx)
	start := time.Now()

	violations := []models.Violation{}
	violations = append(violations, c.checkBannedPatterns()...)
	violations = append(violations, c.checkRequiredMarkers()...)
	violations = append(violations, c.checkArtifacts()...)
	violations = append(violations, c.checkLanes()...)
	violations = append(violations, c.checkCrossArtifacts()...)
	violations = append(violations, c.checkThresholds()...)
	violations = append(violations, c.checkCoupling()...)
	violations = append(violations, c.checkExpressions()...)

	log.Event(ctx, "check.pass_complete", map[string]any{
		"policy":      c.policy.Name,
		"mode":        string(c.mode),
		"violations":  len(violations),
		"duration_ms": time.Since(start).Milliseconds(),
	})

	return violations
}

// resolve joins a policy-relative path onto the check root.
func (c *Checker) resolve(rel string) string {
	return filepath.Join(c.root, rel)
}

// artifact loads (or recalls) one artifact by policy-relative path.
// Returned violations are non-empty only on the first failed parse.
func (c *Checker) artifact(rel string) (*models.ParsedArtifact, bool, []models.Violation) {
	if entry, ok := c.artifacts[rel]; ok {
		return entry.parsed, entry.exists, nil
	}

	entry := &artifactEntry{}
	c.artifacts[rel] = entry

	data, err := os.ReadFile(c.resolve(rel))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		entry.exists = true
		entry.failed = true
		return nil, true, []models.Violation{
			models.NewViolation(models.CategoryArtifactParse, "%s: %v", rel, err),
		}
	}
	entry.exists = true

	parsed, err := parseArtifact(data)
	if err != nil {
		entry.failed = true
		return nil, true, []models.Violation{
			models.NewViolation(models.CategoryArtifactParse, "%s: %v", rel, err),
		}
	}

	entry.parsed = parsed
	return parsed, true, nil
}

// parseArtifact decodes an artifact payload. A non-object top level is
// a parse failure, not a valid artifact. An object with a "results"
// object inside is treated as an envelope; otherwise the whole object
// is the body.
func parseArtifact(data []byte) (*models.ParsedArtifact, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	top, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("top-level JSON value is not an object")
	}

	parsed := &models.ParsedArtifact{Results: top}
	if results, ok := asMap(top["results"]); ok {
		parsed.Results = results
	}
	if provenance, ok := asMap(top["provenance"]); ok {
		parsed.Provenance = provenance
	}
	return parsed, nil
}
