package common

import "strings"

// HasAnyFold reports whether s contains any of the phrases, ignoring case.
// Empty phrases never match.
func HasAnyFold(s string, phrases ...string) bool {
	s = strings.ToLower(s)
	for _, p := range phrases {
		if p != "" && strings.Contains(s, strings.ToLower(p)) {
			return true
		}
	}
	return false
}
