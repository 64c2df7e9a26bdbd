package rules

import (
	"fmt"
	"regexp"

	"github.com/bmatcuk/doublestar/v4"
)

type patternKind int

const (
	kindExact patternKind = iota
	kindGlob
	kindRegex
)

// PatternSpec matches a single string against one pattern. Exactly one of
// the three dialects is active. Glob and regex patterns are validated or
// compiled at construction; matching never fails.
type PatternSpec struct {
	kind patternKind
	raw  string
	re   *regexp.Regexp
}

// NewExact returns a spec matching s byte-for-byte.
func NewExact(s string) PatternSpec {
	return PatternSpec{kind: kindExact, raw: s}
}

// NewGlob returns a spec matching under glob semantics: `*` matches within
// a path segment, `**` crosses segments, `?` matches one non-separator
// character, `{a,b}` is alternation. Separator is `/`.
func NewGlob(pattern string) (PatternSpec, error) {
	if !doublestar.ValidatePattern(pattern) {
		return PatternSpec{}, fmt.Errorf("invalid glob pattern %q", pattern)
	}
	return PatternSpec{kind: kindGlob, raw: pattern}, nil
}

// NewRegex returns a spec whose regex, compiled here, matches anywhere in
// the input. Callers anchor with ^…$ when they need a full-string match.
func NewRegex(pattern string) (PatternSpec, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return PatternSpec{}, fmt.Errorf("invalid regex %q: %w", pattern, err)
	}
	return PatternSpec{kind: kindRegex, raw: pattern, re: re}, nil
}

// Matches reports whether s satisfies the pattern.
func (p PatternSpec) Matches(s string) bool {
	switch p.kind {
	case kindExact:
		return s == p.raw
	case kindGlob:
		ok, err := doublestar.Match(p.raw, s)
		return err == nil && ok
	case kindRegex:
		return p.re.MatchString(s)
	}
	return false
}

// String returns the raw pattern, for logging.
func (p PatternSpec) String() string { return p.raw }
