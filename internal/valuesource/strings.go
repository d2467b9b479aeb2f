package valuesource

import (
	"iter"
	"math"
	"math/bits"
	"regexp/syntax"
	"unicode/utf8"

	"rowsynth/internal/restriction"
	"rowsynth/internal/util"

	"github.com/lucasjones/reggen"
)

const (
	// printable ASCII stands in for any-character classes.
	printableLo = 0x20
	printableHi = 0x7e
	// openRepeat bounds *, + and {n,} when generating.
	openRepeat = 8
	// maxRandomExtraLength bounds random plain strings above their minimum length.
	maxRandomExtraLength = 32
)

// Strings draws values satisfying a string restriction. Values are
// generated from the first required pattern (full patterns first) and
// checked against the whole restriction.
type Strings struct {
	Restriction *restriction.StringRestriction
}

func (s Strings) source() (string, bool) {
	var chosen *restriction.Pattern
	for _, p := range s.Restriction.Matching() {
		if p.Full {
			chosen = &p
			break
		}
		if chosen == nil {
			chosen = &p
		}
	}
	if chosen == nil {
		return "", false
	}
	src := chosen.Source
	if !chosen.Full {
		src = `.*(?:` + src + `).*`
	}
	return src, true
}

func (s Strings) base() *syntax.Regexp {
	src, ok := s.source()
	if !ok {
		return nil
	}
	re, err := syntax.Parse(src, syntax.Perl)
	if err != nil {
		util.Invariantf("pattern %q was compiled but does not parse: %v", src, err)
	}
	return re.Simplify()
}

// IsFinite reports whether the generating pattern has no open repeats.
func (s Strings) IsFinite() bool {
	re := s.base()
	return re != nil && !hasOpenRepeat(re)
}

// ValueCount counts strings of the generating pattern before filtering.
func (s Strings) ValueCount() uint64 {
	re := s.base()
	if re == nil || hasOpenRepeat(re) {
		return math.MaxUint64
	}
	return countStrings(re)
}

// AllValues enumerates candidates in a fixed order and keeps the ones the
// restriction accepts. Without a pattern it enumerates lowercase strings
// by length.
func (s Strings) AllValues() iter.Seq[any] {
	return func(yield func(any) bool) {
		emit := func(v string) bool {
			if !s.Restriction.Matches(v) {
				return true
			}
			return yield(v)
		}
		re := s.base()
		if re == nil {
			s.enumeratePlain(emit)
			return
		}
		e := enumerator{maxLen: s.Restriction.MaxLength()}
		e.walk(re, "", emit)
	}
}

func (s Strings) enumeratePlain(emit func(string) bool) {
	lo, hi := s.Restriction.MinLength(), s.plainUpper()
	for n := lo; n <= hi; n++ {
		idx := make([]byte, n)
		for {
			buf := make([]byte, n)
			for i, c := range idx {
				buf[i] = 'a' + c
			}
			if !emit(string(buf)) {
				return
			}
			i := n - 1
			for i >= 0 && idx[i] == 25 {
				idx[i] = 0
				i--
			}
			if i < 0 {
				break
			}
			idx[i]++
		}
	}
}

func (s Strings) plainUpper() int {
	return min(s.Restriction.MaxLength(), s.Restriction.MinLength()+maxRandomExtraLength)
}

// RandomValues generates candidates at random and keeps the accepted ones.
// The sequence ends after too many consecutive rejections.
func (s Strings) RandomValues(r util.RandomSource) iter.Seq[any] {
	return func(yield func(any) bool) {
		var gen *reggen.Generator
		if src, ok := s.source(); ok {
			var err error
			if gen, err = reggen.NewGenerator(src); err != nil {
				util.Invariantf("pattern %q was compiled but does not parse: %v", src, err)
			}
			gen.SetSeed(r.Int63n(math.MaxInt64))
		}
		misses := 0
		for {
			var v string
			if gen == nil {
				v = s.randomPlain(r)
			} else {
				v = gen.Generate(openRepeat)
			}
			if !s.Restriction.Matches(v) {
				misses++
				if misses >= maxConsecutiveMisses {
					return
				}
				continue
			}
			misses = 0
			if !yield(v) {
				return
			}
		}
	}
}

func (s Strings) randomPlain(r util.RandomSource) string {
	n := util.RandIntRange(r, s.Restriction.MinLength(), s.plainUpper())
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = byte(printableLo + r.Intn(printableHi-printableLo+1))
	}
	return string(buf)
}

// Intersect merges two string restrictions.
func (s Strings) Intersect(other FieldValueSource) (FieldValueSource, error) {
	o, ok := other.(Strings)
	if !ok {
		return nil, ErrUnsupported
	}
	merged, ok := s.Restriction.Merge(o.Restriction)
	if !ok {
		return Empty(), nil
	}
	return Strings{Restriction: merged}, nil
}

// Complement implements FieldValueSource.
func (Strings) Complement() (FieldValueSource, error) {
	return nil, ErrUnsupported
}

func repeatBounds(re *syntax.Regexp) (int, int) {
	switch re.Op {
	case syntax.OpStar:
		return 0, -1
	case syntax.OpPlus:
		return 1, -1
	case syntax.OpQuest:
		return 0, 1
	default:
		return re.Min, re.Max
	}
}

func isRepeat(re *syntax.Regexp) bool {
	switch re.Op {
	case syntax.OpStar, syntax.OpPlus, syntax.OpQuest, syntax.OpRepeat:
		return true
	default:
		return false
	}
}

func hasOpenRepeat(re *syntax.Regexp) bool {
	if isRepeat(re) {
		if _, hi := repeatBounds(re); hi < 0 {
			return true
		}
	}
	for _, sub := range re.Sub {
		if hasOpenRepeat(sub) {
			return true
		}
	}
	return false
}

// classRunes returns the printable runes of a character class, or of any
// character for the dot operators.
func classRunes(re *syntax.Regexp) []rune {
	var out []rune
	switch re.Op {
	case syntax.OpAnyChar, syntax.OpAnyCharNotNL:
		for c := rune(printableLo); c <= printableHi; c++ {
			out = append(out, c)
		}
	case syntax.OpCharClass:
		for i := 0; i+1 < len(re.Rune); i += 2 {
			lo, hi := re.Rune[i], re.Rune[i+1]
			if hi > printableHi && lo <= printableHi {
				hi = printableHi
			}
			if lo < printableLo && hi >= printableLo {
				lo = printableLo
			}
			if hi-lo > 255 {
				hi = lo + 255
			}
			for c := lo; c <= hi; c++ {
				out = append(out, c)
			}
		}
	}
	return out
}

func mulSat(a, b uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return math.MaxUint64
	}
	return lo
}

func countStrings(re *syntax.Regexp) uint64 {
	switch re.Op {
	case syntax.OpNoMatch:
		return 0
	case syntax.OpLiteral, syntax.OpEmptyMatch, syntax.OpBeginLine, syntax.OpEndLine,
		syntax.OpBeginText, syntax.OpEndText, syntax.OpWordBoundary, syntax.OpNoWordBoundary:
		return 1
	case syntax.OpAnyChar, syntax.OpAnyCharNotNL, syntax.OpCharClass:
		return uint64(len(classRunes(re)))
	case syntax.OpCapture:
		return countStrings(re.Sub[0])
	case syntax.OpConcat:
		n := uint64(1)
		for _, sub := range re.Sub {
			n = mulSat(n, countStrings(sub))
		}
		return n
	case syntax.OpAlternate:
		var n uint64
		for _, sub := range re.Sub {
			n = saturatingAdd(n, countStrings(sub))
		}
		return n
	default:
		lo, hi := repeatBounds(re)
		if hi < 0 {
			return math.MaxUint64
		}
		each := countStrings(re.Sub[0])
		var n uint64
		for k := lo; k <= hi; k++ {
			term := uint64(1)
			for range k {
				term = mulSat(term, each)
			}
			n = saturatingAdd(n, term)
		}
		return n
	}
}

// enumerator walks a regexp tree in continuation-passing style, pruning
// prefixes longer than maxLen runes.
type enumerator struct {
	maxLen int
}

func (e enumerator) walk(re *syntax.Regexp, prefix string, k func(string) bool) bool {
	switch re.Op {
	case syntax.OpNoMatch:
		return true
	case syntax.OpLiteral:
		return e.seq(nil, prefix+string(re.Rune), k)
	case syntax.OpAnyChar, syntax.OpAnyCharNotNL, syntax.OpCharClass:
		for _, c := range classRunes(re) {
			if !e.seq(nil, prefix+string(c), k) {
				return false
			}
		}
		return true
	case syntax.OpCapture:
		return e.walk(re.Sub[0], prefix, k)
	case syntax.OpConcat:
		return e.seq(re.Sub, prefix, k)
	case syntax.OpAlternate:
		for _, sub := range re.Sub {
			if !e.walk(sub, prefix, k) {
				return false
			}
		}
		return true
	case syntax.OpStar, syntax.OpPlus, syntax.OpQuest, syntax.OpRepeat:
		lo, hi := repeatBounds(re)
		if hi < 0 {
			hi = lo + openRepeat
		}
		for n := lo; n <= hi; n++ {
			subs := make([]*syntax.Regexp, n)
			for i := range subs {
				subs[i] = re.Sub[0]
			}
			if !e.seq(subs, prefix, k) {
				return false
			}
		}
		return true
	default:
		return k(prefix)
	}
}

func (e enumerator) seq(res []*syntax.Regexp, prefix string, k func(string) bool) bool {
	if utf8.RuneCountInString(prefix) > e.maxLen {
		return true
	}
	if len(res) == 0 {
		return k(prefix)
	}
	return e.walk(res[0], prefix, func(s string) bool {
		return e.seq(res[1:], s, k)
	})
}
