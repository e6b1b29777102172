package macro

import (
	ac "github.com/petar-dambovaliev/aho-corasick"
)

// SetMatch is the token found by SetMatcher.Match.
type SetMatch struct {
	Token  string
	Length int
}

// SetMatcher finds the longest member of a fixed token set that starts at a
// given offset. It is immutable after construction.
type SetMatcher struct {
	tokens []string
	maxLen int
	// nil when the set is empty
	ac *ac.AhoCorasick
}

// NewSetMatcher builds a matcher over tokens. Empty tokens are ignored and
// duplicates collapse; order is otherwise kept.
func NewSetMatcher(tokens []string) *SetMatcher {
	m := &SetMatcher{tokens: make([]string, 0, len(tokens))}
	seen := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		m.tokens = append(m.tokens, t)
		if len(t) > m.maxLen {
			m.maxLen = len(t)
		}
	}
	if len(m.tokens) == 0 {
		return m
	}
	builder := ac.NewAhoCorasickBuilder(ac.Opts{
		AsciiCaseInsensitive: false,
		MatchOnlyWholeWords:  false,
		MatchKind:            ac.LeftMostLongestMatch,
		DFA:                  false,
	})
	automaton := builder.Build(m.tokens) // pattern index == index in m.tokens
	m.ac = &automaton
	return m
}

// Tokens returns a copy of the candidate set.
func (m *SetMatcher) Tokens() []string { return append([]string(nil), m.tokens...) }

// Match returns the longest token equal to source[pos:pos+len(token)].
func (m *SetMatcher) Match(source string, pos int) (SetMatch, bool) {
	if m.ac == nil || pos < 0 || pos >= len(source) {
		return SetMatch{}, false
	}
	end := pos + m.maxLen
	if end > len(source) {
		end = len(source)
	}
	window := source[pos:end]

	// leftmost-longest: if any token starts at 0, the first match is the
	// longest of them
	matches := m.ac.FindAll(window)
	if len(matches) == 0 || matches[0].Start() != 0 {
		return SetMatch{}, false
	}
	tok := m.tokens[matches[0].Pattern()]
	return SetMatch{Token: tok, Length: len(tok)}, true
}
