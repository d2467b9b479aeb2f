package restriction

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"rowsynth/internal/util"
)

// DefaultMaxStringLength bounds generated strings when nothing tighter applies.
const DefaultMaxStringLength = 1000

// Pattern is a regular expression a string must (or must not) match.
// A full pattern matches the whole value; otherwise any substring.
type Pattern struct {
	Source string
	Full   bool
	re     *regexp.Regexp
}

// NewPattern compiles a pattern.
func NewPattern(source string, full bool) (Pattern, error) {
	expr := source
	if full {
		expr = `^(?:` + source + `)$`
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return Pattern{}, err
	}
	return Pattern{Source: source, Full: full, re: re}, nil
}

// MustPattern is NewPattern for patterns known to compile.
func MustPattern(source string, full bool) Pattern {
	p, err := NewPattern(source, full)
	if err != nil {
		util.Invariantf("pattern %q: %v", source, err)
	}
	return p
}

// Key identifies the pattern for set semantics.
func (p Pattern) Key() string {
	if p.Full {
		return "~" + p.Source
	}
	return "*" + p.Source
}

// Matches reports whether s satisfies the pattern.
func (p Pattern) Matches(s string) bool {
	return p.re.MatchString(s)
}

func (p Pattern) String() string {
	if p.Full {
		return "/" + p.Source + "/"
	}
	return "/.*" + p.Source + ".*/"
}

// StringRestriction bounds string length in runes and constrains shape by
// patterns.
type StringRestriction struct {
	minLength   int
	maxLength   int
	matching    []Pattern
	notMatching []Pattern
}

// NewStringRestriction builds a string restriction. Negative lengths panic.
func NewStringRestriction(minLength, maxLength int, matching, notMatching []Pattern) *StringRestriction {
	if minLength < 0 || maxLength < 0 {
		util.Invariantf("string length bounds must be non-negative: %d..%d", minLength, maxLength)
	}
	return &StringRestriction{
		minLength:   minLength,
		maxLength:   maxLength,
		matching:    normalizePatterns(matching),
		notMatching: normalizePatterns(notMatching),
	}
}

// DefaultString is the unconstrained string restriction.
func DefaultString(maxLength int) *StringRestriction {
	if maxLength <= 0 {
		maxLength = DefaultMaxStringLength
	}
	return NewStringRestriction(0, maxLength, nil, nil)
}

func normalizePatterns(in []Pattern) []Pattern {
	if len(in) == 0 {
		return nil
	}
	out := slices.Clone(in)
	slices.SortFunc(out, func(a, b Pattern) int { return strings.Compare(a.Key(), b.Key()) })
	return slices.CompactFunc(out, func(a, b Pattern) bool { return a.Key() == b.Key() })
}

func (*StringRestriction) typed() {}

// MinLength returns the minimum length in runes.
func (s *StringRestriction) MinLength() int { return s.minLength }

// MaxLength returns the maximum length in runes.
func (s *StringRestriction) MaxLength() int { return s.maxLength }

// Matching returns the required patterns.
func (s *StringRestriction) Matching() []Pattern { return s.matching }

// NotMatching returns the forbidden patterns.
func (s *StringRestriction) NotMatching() []Pattern { return s.notMatching }

// Matches reports whether v satisfies every part of the restriction.
func (s *StringRestriction) Matches(v string) bool {
	n := utf8.RuneCountInString(v)
	if n < s.minLength || n > s.maxLength {
		return false
	}
	for _, p := range s.matching {
		if !p.Matches(v) {
			return false
		}
	}
	for _, p := range s.notMatching {
		if p.Matches(v) {
			return false
		}
	}
	return true
}

// MatchValue implements Typed.
func (s *StringRestriction) MatchValue(v any) bool {
	str, ok := v.(string)
	return ok && s.Matches(str)
}

// Merge intersects two string restrictions. The second result is false on
// a length contradiction or a pattern both required and forbidden.
func (s *StringRestriction) Merge(other *StringRestriction) (*StringRestriction, bool) {
	merged := &StringRestriction{
		minLength:   max(s.minLength, other.minLength),
		maxLength:   min(s.maxLength, other.maxLength),
		matching:    normalizePatterns(append(slices.Clone(s.matching), other.matching...)),
		notMatching: normalizePatterns(append(slices.Clone(s.notMatching), other.notMatching...)),
	}
	if merged.minLength > merged.maxLength {
		return nil, false
	}
	for _, p := range merged.matching {
		if slices.ContainsFunc(merged.notMatching, func(q Pattern) bool { return q.Key() == p.Key() }) {
			return nil, false
		}
	}
	return merged, true
}

// Equal compares lengths and pattern sets.
func (s *StringRestriction) Equal(other *StringRestriction) bool {
	if s == nil || other == nil {
		return s == other
	}
	key := func(p Pattern) string { return p.Key() }
	return s.minLength == other.minLength && s.maxLength == other.maxLength &&
		slices.Equal(mapKeys(s.matching, key), mapKeys(other.matching, key)) &&
		slices.Equal(mapKeys(s.notMatching, key), mapKeys(other.notMatching, key))
}

func mapKeys(ps []Pattern, f func(Pattern) string) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = f(p)
	}
	return out
}

func (s *StringRestriction) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "length %d..%d", s.minLength, s.maxLength)
	for _, p := range s.matching {
		fmt.Fprintf(&b, " matching %s", p)
	}
	for _, p := range s.notMatching {
		fmt.Fprintf(&b, " not matching %s", p)
	}
	return b.String()
}
