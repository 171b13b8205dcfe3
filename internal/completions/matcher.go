package completions

import (
	"slices"
	"strings"
	"unicode"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MatchMode selects the predicate a Matcher applies to each key field.
type MatchMode int

const (
	// MatchSubstring matches when the query occurs anywhere in a key,
	// ignoring case and diacritics.
	MatchSubstring MatchMode = iota

	// MatchWordsOnly matches when the query, stripped of punctuation,
	// starts at a word boundary of a key. "winkingf" matches
	// ":winking_face:" but "inking" does not.
	MatchWordsOnly

	// MatchFuzzy matches when the query runes appear in order in a key.
	MatchFuzzy
)

// KeyFunc extracts one searchable field from a candidate.
type KeyFunc func(Candidate) string

// DisplayKey is the default key field.
func DisplayKey(c Candidate) string { return c.DisplayKey }

type MatcherOptions struct {
	Keys []KeyFunc
	Mode MatchMode
}

type matchKey struct {
	raw        string
	normalized string
	// wordTails[i] is the concatenation of words i..n of the key, used by
	// MatchWordsOnly.
	wordTails []string
}

// Matcher answers which candidates match a query. Its candidate set and
// key fields are fixed at construction.
type Matcher struct {
	candidates []Candidate
	keys       [][]matchKey
	mode       MatchMode
}

func NewMatcher(candidates []Candidate, opts MatcherOptions) *Matcher {
	keyFuncs := opts.Keys
	if len(keyFuncs) == 0 {
		keyFuncs = []KeyFunc{DisplayKey}
	}

	sorted := slices.Clone(candidates)
	slices.SortStableFunc(sorted, func(a, b Candidate) int {
		return a.Ordinal - b.Ordinal
	})

	m := &Matcher{
		candidates: sorted,
		keys:       make([][]matchKey, len(sorted)),
		mode:       opts.Mode,
	}
	for i, c := range sorted {
		for _, fn := range keyFuncs {
			raw := fn(c)
			k := matchKey{raw: raw, normalized: normalize(raw)}
			if opts.Mode == MatchWordsOnly {
				k.wordTails = wordTails(k.normalized)
			}
			m.keys[i] = append(m.keys[i], k)
		}
	}
	return m
}

// Match returns matching candidates in their original order. A negative
// limit is unbounded, zero returns nothing, and a positive limit keeps the
// earliest matches. An empty query matches every candidate.
func (m *Matcher) Match(query string, limit int) []Candidate {
	if limit == 0 {
		return nil
	}

	q := normalize(query)
	if m.mode == MatchWordsOnly {
		q = stripNonWord(q)
	}

	var out []Candidate
	for i, c := range m.candidates {
		if !m.matches(i, query, q) {
			continue
		}
		out = append(out, c)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func (m *Matcher) matches(i int, rawQuery, q string) bool {
	if q == "" {
		return true
	}
	for _, k := range m.keys[i] {
		switch m.mode {
		case MatchWordsOnly:
			for _, tail := range k.wordTails {
				if strings.HasPrefix(tail, q) {
					return true
				}
			}
		case MatchFuzzy:
			if fuzzy.MatchNormalizedFold(rawQuery, k.raw) {
				return true
			}
		default:
			if strings.Contains(k.normalized, q) {
				return true
			}
		}
	}
	return false
}

// normalize lower-cases s and strips combining marks so "Café" matches "cafe".
func normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func stripNonWord(s string) string {
	return strings.Map(func(r rune) rune {
		if isWordRune(r) {
			return r
		}
		return -1
	}, s)
}

func wordTails(s string) []string {
	words := strings.FieldsFunc(s, func(r rune) bool { return !isWordRune(r) })
	tails := make([]string, len(words))
	for i := range words {
		tails[i] = strings.Join(words[i:], "")
	}
	return tails
}
