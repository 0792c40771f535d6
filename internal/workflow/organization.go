package workflow

import (
	"cmp"
	"path/filepath"
	"slices"
	"strings"
	"unicode"

	"github.com/JaimeStill/attest/pkg/rules"
)

// Organization is an insurer and the names it appears under.
type Organization struct {
	Name    string   `toml:"name" json:"name"`
	Aliases []string `toml:"aliases" json:"aliases"`
}

// DefaultOrganizations returns the built-in insurer table.
func DefaultOrganizations() []Organization {
	return []Organization{
		{Name: "MAPFRE", Aliases: []string{"MAPFRE", "MAPFRE PERU"}},
		{Name: "PACIFICO", Aliases: []string{"PACIFICO", "PACIFICO SEGUROS", "PACIFICO EPS"}},
		{Name: "RIMAC", Aliases: []string{"RIMAC", "RIMAC SEGUROS"}},
		{Name: "SANITAS", Aliases: []string{"SANITAS", "SANITAS PERU"}},
		{Name: "LA POSITIVA", Aliases: []string{"LA POSITIVA", "LA POSITIVA VIDA"}},
	}
}

type alias struct {
	text string
	org  string
}

// Identify returns the organization whose alias appears as a whole-word
// sequence in text. Longer aliases are tried first. It returns "" when
// nothing matches.
func Identify(orgs []Organization, text string) string {
	haystack := " " + normalizeText(text) + " "

	var aliases []alias
	for _, o := range orgs {
		for _, a := range o.Aliases {
			if n := normalizeText(a); n != "" {
				aliases = append(aliases, alias{text: n, org: o.Name})
			}
		}
	}
	slices.SortStableFunc(aliases, func(a, b alias) int {
		return cmp.Compare(len(b.text), len(a.text))
	})

	for _, a := range aliases {
		if strings.Contains(haystack, " "+a.text+" ") {
			return a.org
		}
	}
	return ""
}

// IdentifyFilename identifies the organization from a file name.
func IdentifyFilename(orgs []Organization, filename string) string {
	base := filepath.Base(filename)
	return Identify(orgs, strings.TrimSuffix(base, filepath.Ext(base)))
}

func normalizeText(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, strings.ToUpper(rules.Fold(s)))
	return strings.Join(strings.Fields(s), " ")
}
