// Package guard implements the restricted-topic filter for incoming questions.
package guard

import "strings"

// Filter short-circuits answer generation for queries touching a denylist of
// sensitive topics. It is a blunt substring check, not a classifier; false
// positives are accepted.
type Filter struct {
	keywords []string
}

// NewFilter returns a filter over the given denylist. Keywords are matched
// case-insensitively as substrings.
func NewFilter(keywords []string) *Filter {
	lowered := make([]string, len(keywords))
	for i, k := range keywords {
		lowered[i] = strings.ToLower(k)
	}
	return &Filter{keywords: lowered}
}

// IsRestricted reports whether query touches any denylisted topic.
func (f *Filter) IsRestricted(query string) bool {
	q := strings.ToLower(query)
	for _, k := range f.keywords {
		if k != "" && strings.Contains(q, k) {
			return true
		}
	}
	return false
}
