package executor

import "regexp"

// Rule rejects code matching Pattern.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
}

// DefaultDenyList rejects obviously destructive commands. It is a guard
// against accidents, not a sandbox.
func DefaultDenyList() []Rule {
	return []Rule{
		{Name: "recursive delete of /", Pattern: regexp.MustCompile(`\brm\s+(-\S+\s+)*-\S*[rR]\S*\s+(-\S+\s+)*(--\s+)?/(\*)?(\s|;|&|\||$)`)},
		{Name: "filesystem creation", Pattern: regexp.MustCompile(`\bmkfs(\.\w+)?\b`)},
		{Name: "raw device write", Pattern: regexp.MustCompile(`\bdd\b[^\n]*\bof=/dev/`)},
		{Name: "device redirect", Pattern: regexp.MustCompile(`>\s*/dev/(sd|nvme|vd|xvd|hd)[a-z0-9]*`)},
		{Name: "fork bomb", Pattern: regexp.MustCompile(`:\(\)\s*\{\s*:\s*\|\s*:\s*&\s*\}\s*;\s*:`)},
		{Name: "host power state", Pattern: regexp.MustCompile(`(^|[;&|\s])(shutdown|reboot|halt|poweroff)(\s|;|$)`)},
	}
}

func checkPolicy(rules []Rule, code string) (Rule, bool) {
	for _, r := range rules {
		if r.Pattern.MatchString(code) {
			return r, false
		}
	}
	return Rule{}, true
}
