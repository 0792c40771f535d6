package rules

import (
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var particles = map[string]bool{
	"DE":  true,
	"DEL": true,
	"LA":  true,
	"LAS": true,
	"LOS": true,
	"Y":   true,
}

// Fold strips diacritics, so "Pérez" becomes "Perez".
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// NormalizeName upper-cases s, folds diacritics and collapses whitespace.
func NormalizeName(s string) string {
	return strings.Join(strings.Fields(strings.ToUpper(Fold(s))), " ")
}

// Name is a tokenized person name. When the source used the
// "SURNAMES, GIVEN NAMES" form, Surnames and Given are populated and
// Structured is true. Tokens always holds every token.
type Name struct {
	Tokens     []string
	Given      []string
	Surnames   []string
	Structured bool
}

// ParseName tokenizes s, dropping punctuation and name particles.
func ParseName(s string) Name {
	s = NormalizeName(s)

	if before, after, ok := strings.Cut(s, ","); ok {
		surnames, given := tokens(before), tokens(after)
		if len(surnames) > 0 && len(given) > 0 {
			return Name{
				Tokens:     append(append([]string{}, surnames...), given...),
				Given:      given,
				Surnames:   surnames,
				Structured: true,
			}
		}
	}

	return Name{Tokens: tokens(s)}
}

func tokens(s string) []string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, s)

	var out []string
	for _, f := range strings.Fields(cleaned) {
		if !particles[f] {
			out = append(out, f)
		}
	}
	return out
}

// Matcher compares an asserted person against a candidate record.
type Matcher struct {
	// MaxDistance is the largest edit distance still treated as a typo.
	MaxDistance int
	// MinFuzzyLength is the shortest token eligible for typo tolerance.
	MinFuzzyLength int
}

// DefaultMatcher tolerates one edit on tokens of four or more letters.
func DefaultMatcher() Matcher {
	return Matcher{MaxDistance: 1, MinFuzzyLength: 4}
}

// Match reports whether asserted and candidate plausibly name the same
// person: at least one given name and one surname must be shared. A single
// initial matches a given name starting with that letter, and small typos
// are tolerated. Surnames must match in full.
//
// A name in the "SURNAMES, GIVEN" form has known roles. Otherwise the last
// two tokens (the last one for a two-token name) are read as surnames, or,
// for names written surname first, the first two; either reading may pair
// with either reading of the other name.
func (m Matcher) Match(asserted, candidate string) bool {
	a, b := ParseName(asserted), ParseName(candidate)
	if len(a.Tokens) == 0 || len(b.Tokens) == 0 {
		return false
	}

	for _, x := range readings(a) {
		for _, y := range readings(b) {
			if m.samePerson(x, y) {
				return true
			}
		}
	}
	return false
}

func (m Matcher) samePerson(a, b Name) bool {
	if full, _ := m.pair(a.Surnames, b.Surnames, false); full == 0 {
		return false
	}
	full, initials := m.pair(a.Given, b.Given, true)
	return full+initials > 0
}

// readings returns the role assignments a name supports.
func readings(n Name) []Name {
	if n.Structured {
		return []Name{n}
	}

	count := len(n.Tokens)
	if count < 2 {
		return nil
	}
	k := min(2, count-1)

	return []Name{
		{Tokens: n.Tokens, Given: n.Tokens[:count-k], Surnames: n.Tokens[count-k:]},
		{Tokens: n.Tokens, Given: n.Tokens[k:], Surnames: n.Tokens[:k]},
	}
}

// pair greedily matches tokens across a and b, exact matches first, then
// typos, then initials. Each token is used at most once.
func (m Matcher) pair(a, b []string, allowInitials bool) (full, initials int) {
	usedA := make([]bool, len(a))
	usedB := make([]bool, len(b))

	match := func(eq func(x, y string) bool) int {
		n := 0
		for i, x := range a {
			if usedA[i] {
				continue
			}
			for j, y := range b {
				if usedB[j] || !eq(x, y) {
					continue
				}
				usedA[i], usedB[j] = true, true
				n++
				break
			}
		}
		return n
	}

	full += match(func(x, y string) bool {
		return len(x) > 1 && x == y
	})
	full += match(m.typo)

	if allowInitials {
		initials = match(initial)
	}
	return full, initials
}

func (m Matcher) typo(x, y string) bool {
	if m.MaxDistance <= 0 {
		return false
	}
	if len([]rune(x)) < m.MinFuzzyLength || len([]rune(y)) < m.MinFuzzyLength {
		return false
	}
	return levenshtein.ComputeDistance(x, y) <= m.MaxDistance
}

func initial(x, y string) bool {
	xr, yr := []rune(x), []rune(y)
	switch {
	case len(xr) == 1 && len(yr) >= 1:
		return xr[0] == yr[0]
	case len(yr) == 1 && len(xr) >= 1:
		return xr[0] == yr[0]
	}
	return false
}
