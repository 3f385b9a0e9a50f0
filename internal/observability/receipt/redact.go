package receipt

import (
	"regexp"
	"strings"
)

const redactedValue = "[REDACTED]"

// secretFlags name CLI flags whose values never belong in a receipt,
// in either -flag or --flag form.
var secretFlags = map[string]bool{
	"token":          true,
	"key":            true,
	"password":       true,
	"secret":         true,
	"identity-token": true,
	"pat":            true,
	"api-key":        true,
	"apikey":         true,
	"auth":           true,
	"credential":     true,
	"credentials":    true,
	"bearer":         true,
	"access-token":   true,
	"refresh-token":  true,
	"private-key":    true,
}

// secretPrefixes mark values that are recognizable tokens on sight,
// such as registry credentials passed to policy pull.
var secretPrefixes = []string{
	"sk-",         // OpenAI, Stripe
	"ghp_",        // GitHub PAT
	"github_pat_", // GitHub fine-grained PAT
	"gho_",        // GitHub OAuth
	"ghu_",        // GitHub user-to-server
	"ghs_",        // GitHub server-to-server
	"xoxb-",       // Slack bot
	"xoxp-",       // Slack user
	"AKIA",        // AWS access key
	"ya29.",       // Google OAuth
	"AIza",        // Google API key
	"npm_",        // npm token
	"pypi-",       // PyPI token
}

// jwtRegex is a heuristic for three dot-joined base64-ish segments.
var jwtRegex = regexp.MustCompile(`^[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}$`)

// longSecretRegex catches 32+ chars of hex or base64 alphabet.
var longSecretRegex = regexp.MustCompile(`^[A-Za-z0-9+/=_-]{32,}$`)

// RedactArgs sanitizes a command line before it is recorded in a
// receipt. Policy paths, artifact roots, and report paths pass through
// untouched; flag values and bare arguments that look like credentials
// are replaced. The second return reports whether anything changed.
func RedactArgs(args []string) ([]string, bool) {
	if len(args) == 0 {
		return args, false
	}

	redacted := make([]string, len(args))
	changed := false

	for i := 0; i < len(args); i++ {
		arg := args[i]

		// --flag=value form
		if eq := strings.Index(arg, "="); eq > 0 {
			if secretFlags[flagName(arg[:eq])] || secretValue(arg[eq+1:]) {
				redacted[i] = arg[:eq+1] + redactedValue
				changed = true
				continue
			}
			redacted[i] = arg
			continue
		}

		// --flag value form: the value is the next argument
		if strings.HasPrefix(arg, "-") && secretFlags[flagName(arg)] && i+1 < len(args) {
			redacted[i] = arg
			i++
			redacted[i] = redactedValue
			changed = true
			continue
		}

		if secretValue(arg) {
			redacted[i] = redactedValue
			changed = true
			continue
		}

		redacted[i] = arg
	}

	return redacted, changed
}

func flagName(s string) string {
	s = strings.TrimPrefix(s, "--")
	s = strings.TrimPrefix(s, "-")
	return strings.ToLower(s)
}

// secretValue pattern-matches a bare value against known credential
// shapes. Values containing "/" or "." are exempt from the long-string
// rule so file paths and URLs survive.
func secretValue(value string) bool {
	for _, prefix := range secretPrefixes {
		if strings.HasPrefix(value, prefix) {
			return true
		}
	}

	if jwtRegex.MatchString(value) {
		return true
	}

	if len(value) >= 32 && !strings.Contains(value, "/") && !strings.Contains(value, ".") {
		if longSecretRegex.MatchString(value) {
			return true
		}
	}

	return false
}
