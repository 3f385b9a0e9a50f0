package policy

import (
	"os"
	"regexp"
	"strings"

	"github.com/guardrail/guardrail/internal/models"
)

// checkBannedPatterns scans tracked text files for forbidden content.
// Files are read whole as UTF-8 text; there is no format contract
// beyond decodability.
func (c *Checker) checkBannedPatterns() []models.Violation {
	violations := []models.Violation{}
	allowed := c.allowlistIndex()

	for _, rule := range c.policy.BannedPatterns {
		if !c.mode.Applies(rule.Modes) {
			continue
		}
		if rule.Pattern == "" {
			violations = append(violations, models.NewViolation(models.CategoryPolicy,
				"banned pattern rule %q has no pattern", rule.ID))
			continue
		}
		if len(rule.Scopes) == 0 {
			violations = append(violations, models.NewViolation(models.CategoryPolicy,
				"banned pattern rule %q has no scopes", rule.ID))
			continue
		}

		matcher, err := compileMatcher(rule)
		if err != nil {
			violations = append(violations, models.NewViolation(models.CategoryPolicy,
				"banned pattern rule %q: invalid regex: %v", rule.ID, err))
			continue
		}

		for _, scope := range rule.Scopes {
			data, err := os.ReadFile(c.resolve(scope))
			if err != nil {
				violations = append(violations, trackedFileViolation(scope, rule.ID, err))
				continue
			}
			if allowed[allowKey(rule.ID, scope)] {
				continue
			}
			if matched, text := matcher(string(data)); matched {
				violations = append(violations, models.NewViolation(models.CategoryBannedPattern,
					"%s: matched %q (rule %s)", scope, text, rule.ID))
			}
		}
	}

	return violations
}

// checkRequiredMarkers is the inverted scan: each marker must be
// literally present in each scope. No allowlist suppression applies.
func (c *Checker) checkRequiredMarkers() []models.Violation {
	violations := []models.Violation{}

	for _, rule := range c.policy.RequiredMarkers {
		if !c.mode.Applies(rule.Modes) {
			continue
		}
		if len(rule.Markers) == 0 {
			violations = append(violations, models.NewViolation(models.CategoryPolicy,
				"marker rule %q has no markers", rule.ID))
			continue
		}
		if len(rule.Scopes) == 0 {
			violations = append(violations, models.NewViolation(models.CategoryPolicy,
				"marker rule %q has no scopes", rule.ID))
			continue
		}

		for _, scope := range rule.Scopes {
			data, err := os.ReadFile(c.resolve(scope))
			if err != nil {
				violations = append(violations, trackedFileViolation(scope, rule.ID, err))
				continue
			}
			content := string(data)
			for _, marker := range rule.Markers {
				if !strings.Contains(content, marker) {
					violations = append(violations, models.NewViolation(models.CategoryMissingMarker,
						"%s: marker %q not found (rule %s)", scope, marker, rule.ID))
				}
			}
		}
	}

	return violations
}

// matcherFunc reports a match plus the matched text.
type matcherFunc func(content string) (bool, string)

// compileMatcher builds the containment test for one rule: literal
// substring when regex is off, regexp search when on.
func compileMatcher(rule models.BannedPatternRule) (matcherFunc, error) {
	if !rule.Regex {
		pattern := rule.Pattern
		if rule.CaseInsensitive {
			lowered := strings.ToLower(pattern)
			return func(content string) (bool, string) {
				return strings.Contains(strings.ToLower(content), lowered), pattern
			}, nil
		}
		return func(content string) (bool, string) {
			return strings.Contains(content, pattern), pattern
		}, nil
	}

	source := rule.Pattern
	if rule.CaseInsensitive {
		source = "(?i)" + source
	}
	re, err := regexp.Compile(source)
	if err != nil {
		return nil, err
	}
	return func(content string) (bool, string) {
		// Index form distinguishes an empty match from no match.
		loc := re.FindStringIndex(content)
		if loc == nil {
			return false, ""
		}
		return true, content[loc[0]:loc[1]]
	}, nil
}

// trackedFileViolation keeps the not-found detail for absent files and
// surfaces the real cause for anything else (permissions, directories).
func trackedFileViolation(scope, ruleID string, err error) models.Violation {
	if os.IsNotExist(err) {
		return models.NewViolation(models.CategoryMissingFile,
			"%s: tracked file not found (rule %s)", scope, ruleID)
	}
	return models.NewViolation(models.CategoryMissingFile,
		"%s: tracked file unreadable: %v (rule %s)", scope, err, ruleID)
}

func (c *Checker) allowlistIndex() map[string]bool {
	index := make(map[string]bool, len(c.policy.Allowlist))
	for _, entry := range c.policy.Allowlist {
		index[allowKey(entry.PatternID, entry.Scope)] = true
	}
	return index
}

func allowKey(patternID, scope string) string {
	return patternID + "\x00" + scope
}
