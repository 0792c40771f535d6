package rules_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/JaimeStill/attest/pkg/rules"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		{name: "iso", input: "2024-01-31", want: date(2024, time.January, 31)},
		{name: "slashes", input: "31/01/2024", want: date(2024, time.January, 31)},
		{name: "single digits", input: "5/3/2024", want: date(2024, time.March, 5)},
		{name: "dashes", input: "01-06-2023", want: date(2023, time.June, 1)},
		{name: "dots", input: "15.08.2022", want: date(2022, time.August, 15)},
		{name: "spanish long", input: "31 de enero de 2024", want: date(2024, time.January, 31)},
		{name: "spanish del", input: "5 de Marzo del 2024", want: date(2024, time.March, 5)},
		{name: "setiembre", input: "1 de setiembre de 2023", want: date(2023, time.September, 1)},
		{name: "accents and spacing", input: "  9  de  Diciémbre  de 2025 ", want: date(2025, time.December, 9)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := rules.ParseDate(tt.input)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}
}

func TestParseDateInvalid(t *testing.T) {
	for _, input := range []string{"", "tomorrow", "31/02/2024", "31 de febrero de 2024", "3 de brumario de 2024"} {
		t.Run(input, func(t *testing.T) {
			_, err := rules.ParseDate(input)
			assert.ErrorIs(t, err, rules.ErrInvalidDate)
		})
	}
}

func TestValidityPredicates(t *testing.T) {
	issuance := date(2023, time.January, 1)
	end := date(2024, time.January, 1)

	tests := []struct {
		name      string
		issuance  time.Time
		reference time.Time
		within    bool
		current   bool
	}{
		{name: "inside period", issuance: issuance, reference: date(2023, time.June, 1), within: true, current: true},
		{name: "reference on last day", issuance: issuance, reference: end, within: true, current: true},
		{name: "expired", issuance: issuance, reference: date(2024, time.January, 2), within: true, current: false},
		{name: "issued after end", issuance: date(2024, time.February, 1), reference: date(2023, time.June, 1), within: false, current: true},
		{name: "issued on last day", issuance: end, reference: end, within: true, current: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.within, rules.IssuanceWithinValidity(tt.issuance, end))
			assert.Equal(t, tt.current, rules.NotExpired(end, tt.reference))
			assert.Equal(t, tt.within && tt.current, rules.ValidityOK(tt.issuance, end, tt.reference))
		})
	}
}

func TestValidityIgnoresTimeOfDay(t *testing.T) {
	end := date(2024, time.January, 1)
	late := time.Date(2024, time.January, 1, 23, 59, 0, 0, time.UTC)

	assert.True(t, rules.NotExpired(end, late))
	assert.True(t, rules.IssuanceWithinValidity(late, end))
}

func TestValidityOKIsConjunction(t *testing.T) {
	base := date(2000, time.January, 1)
	day := rapid.IntRange(0, 365*40)

	rapid.Check(t, func(t *rapid.T) {
		issuance := base.AddDate(0, 0, day.Draw(t, "issuance"))
		end := base.AddDate(0, 0, day.Draw(t, "end"))
		reference := base.AddDate(0, 0, day.Draw(t, "reference"))

		want := rules.IssuanceWithinValidity(issuance, end) && rules.NotExpired(end, reference)
		if got := rules.ValidityOK(issuance, end, reference); got != want {
			t.Fatalf("ValidityOK(%s, %s, %s) = %v, want %v", issuance, end, reference, got, want)
		}
	})
}

func TestPolicyPresent(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"123-4567", true},
		{"POL 889", true},
		{"", false},
		{"   ", false},
		{"null", false},
		{"N/A", false},
		{"-", false},
		{"---", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, rules.PolicyPresent(tt.input))
		})
	}
}

func TestParseName(t *testing.T) {
	n := rules.ParseName("Pérez de la Cruz, María José")
	assert.True(t, n.Structured)
	assert.Equal(t, []string{"PEREZ", "CRUZ"}, n.Surnames)
	assert.Equal(t, []string{"MARIA", "JOSE"}, n.Given)

	n = rules.ParseName("  juan   c.  pérez ")
	assert.False(t, n.Structured)
	assert.Equal(t, []string{"JUAN", "C", "PEREZ"}, n.Tokens)
}

func TestMatch(t *testing.T) {
	m := rules.DefaultMatcher()

	tests := []struct {
		name      string
		asserted  string
		candidate string
		want      bool
	}{
		{name: "identical", asserted: "Juan Perez", candidate: "JUAN PEREZ", want: true},
		{name: "reordered", asserted: "Perez Juan", candidate: "Juan Perez", want: true},
		{name: "accents and punctuation", asserted: "José Pérez-García", candidate: "JOSE PEREZ GARCIA", want: true},
		{name: "initial", asserted: "J. Perez", candidate: "Juan Perez", want: true},
		{name: "typo", asserted: "Juan Peres", candidate: "Juan Perez", want: true},
		{name: "extra tokens", asserted: "Juan Carlos Perez Garcia", candidate: "PEREZ GARCIA, JUAN", want: true},
		{name: "particles ignored", asserted: "Maria de la Cruz", candidate: "Maria Cruz", want: true},
		{name: "different surname", asserted: "Juan Perez", candidate: "Juan Lopez", want: false},
		{name: "surname only", asserted: "Perez", candidate: "Juan Perez", want: false},
		{name: "two edits", asserted: "Jaun Perez", candidate: "Juan Lopez", want: false},
		{name: "initial alone", asserted: "J. L.", candidate: "Juan Lopez", want: false},
		{name: "short token typo", asserted: "Ana Li", candidate: "Ana Lu", want: false},
		{name: "empty", asserted: "", candidate: "Juan Perez", want: false},
		{name: "structured initial", asserted: "PEREZ GARCIA, JUAN", candidate: "GARCIA, J.", want: true},
		{name: "siblings share surnames", asserted: "Juan Carlos Perez Garcia", candidate: "Maria Elena Perez Garcia", want: false},
		{name: "given name shared as surname", asserted: "Juan Perez", candidate: "Maria Juan", want: false},
		{name: "surname first", asserted: "PEREZ GARCIA JUAN CARLOS", candidate: "Juan Perez", want: true},
		{name: "structured roles swapped", asserted: "PEREZ, JUAN", candidate: "JUAN, PEREZ", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.Match(tt.asserted, tt.candidate))
		})
	}
}

func TestMatchExactOnly(t *testing.T) {
	m := rules.Matcher{MaxDistance: 0, MinFuzzyLength: 4}
	assert.False(t, m.Match("Juan Peres", "Juan Perez"))
	assert.True(t, m.Match("Juan Perez", "Perez Juan"))
}

func TestMatchSymmetric(t *testing.T) {
	m := rules.DefaultMatcher()
	names := rapid.SampledFrom([]string{
		"Juan Perez", "J. Perez", "Perez, Juan", "Maria Lopez", "Juan Peres", "Lopez Maria", "Ana",
	})

	rapid.Check(t, func(t *rapid.T) {
		a, b := names.Draw(t, "a"), names.Draw(t, "b")
		if m.Match(a, b) != m.Match(b, a) {
			t.Fatalf("Match(%q, %q) is not symmetric", a, b)
		}
	})
}
