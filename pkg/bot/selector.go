package bot

import (
	"fmt"
	"strings"

	"litegram/pkg/match"
	"litegram/pkg/payload"
)

type selectorKind int

const (
	selectAlways selectorKind = iota
	selectAnyOf
	selectField
)

// Selector is one matching condition of a rule.
type Selector struct {
	kind     selectorKind
	paths    []string
	patterns []string
}

// Always fires for every update.
func Always() Selector {
	return Selector{kind: selectAlways}
}

// AnyOf fires when at least one of paths is present in the update.
func AnyOf(paths ...string) Selector {
	return Selector{kind: selectAnyOf, paths: paths}
}

// FieldMatches fires when the value at path matches any of patterns. A missing
// field is matched as the empty string.
func FieldMatches(path string, patterns ...string) Selector {
	return Selector{kind: selectField, paths: []string{path}, patterns: patterns}
}

// test reports whether the selector holds for p, with the captures of the
// first matching pattern.
func (s Selector) test(p *payload.Payload, m *match.Matcher) (bool, []string) {
	switch s.kind {
	case selectAlways:
		return true, nil
	case selectAnyOf:
		for _, path := range s.paths {
			if p.Exists(path) {
				return true, nil
			}
		}
	case selectField:
		candidate := p.Get(s.paths[0], "")
		for _, pattern := range s.patterns {
			if result := m.Match(pattern, candidate); result.Matched {
				return true, result.Args
			}
		}
	}

	return false, nil
}

func (s Selector) String() string {
	switch s.kind {
	case selectAlways:
		return "always"
	case selectAnyOf:
		return "any(" + strings.Join(s.paths, ", ") + ")"
	default:
		return fmt.Sprintf("%s ~ %q", s.paths[0], s.patterns)
	}
}
