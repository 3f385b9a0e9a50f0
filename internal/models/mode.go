package models

import (
	"fmt"
	"strings"
)

// Mode selects which rules apply during a check run.
type Mode string

const (
	// ModeCI is the lightweight mode: most artifacts optional.
	ModeCI Mode = "ci"
	// ModeRelease is the strict mode: artifacts and thresholds mandatory.
	ModeRelease Mode = "release"
)

// ParseMode from string
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "ci":
		return ModeCI, nil
	case "release":
		return ModeRelease, nil
	default:
		return "", fmt.Errorf("invalid mode: %s (use ci or release)", s)
	}
}

// Applies reports whether a rule gated by the given mode set is active.
// An empty set applies to all modes.
func (m Mode) Applies(modes []string) bool {
	if len(modes) == 0 {
		return true
	}
	for _, candidate := range modes {
		if Mode(candidate) == m {
			return true
		}
	}
	return false
}
