package utils

import (
	"strings"
)

// ContainsEither reports whether either string contains the other.
// The test is case-sensitive; blank strings never match.
func ContainsEither(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

// ContainsAnyFold reports whether s contains any of the terms, ignoring case
func ContainsAnyFold(s string, terms []string) bool {
	lower := strings.ToLower(s)
	for _, term := range terms {
		if term == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(term)) {
			return true
		}
	}
	return false
}

// EqualsAnyFold reports whether the trimmed s equals one of the terms, ignoring case
func EqualsAnyFold(s string, terms []string) bool {
	s = strings.TrimSpace(s)
	for _, term := range terms {
		if strings.EqualFold(s, term) {
			return true
		}
	}
	return false
}

// UniqueStrings trims each value, drops blanks and duplicates, and keeps first-seen order
func UniqueStrings(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
