package verdict

import "github.com/JaimeStill/attest/pkg/marks"

// Classification is the severity tier of a document verdict.
type Classification string

const (
	Valid    Classification = "valid"
	Observed Classification = "observed"
	Invalid  Classification = "invalid"
)

// Criterion names a checked condition.
type Criterion string

const (
	CriterionLogo      Criterion = "logo"
	CriterionSignature Criterion = "signature"
	CriterionValidity  Criterion = "validity"
	CriterionPolicy    Criterion = "policy"
	CriterionPerson    Criterion = "person"
)

// PageMarks is the mark diagnosis for one rendered page.
type PageMarks struct {
	Page    int          `json:"page_number"`
	Count   int          `json:"signatures_found"`
	Regions []marks.Rect `json:"signatures"`
}

// LogoInspection is the visual judgment of the issuer logo.
type LogoInspection struct {
	Match  bool   `json:"match"`
	Reason string `json:"reason"`
}

// ArtifactFinding is the document-wide mark and logo diagnosis.
type ArtifactFinding struct {
	Present bool           `json:"present"`
	Regions []marks.Rect   `json:"regions"`
	Count   int            `json:"count"`
	Pages   []PageMarks    `json:"pages"`
	Logo    LogoInspection `json:"logo"`
}

// NewFinding builds the document finding from per-page diagnoses.
func NewFinding(pages []PageMarks, logo LogoInspection) ArtifactFinding {
	f := ArtifactFinding{
		Regions: []marks.Rect{},
		Pages:   pages,
		Logo:    logo,
	}
	for _, p := range pages {
		f.Regions = append(f.Regions, p.Regions...)
		f.Count += p.Count
	}
	f.Present = f.Count > 0
	return f
}

// Summary aggregates mark counts across pages.
type Summary struct {
	TotalMarks          int     `json:"total_signatures"`
	PagesWithMarks      int     `json:"pages_with_signatures"`
	PagesWithoutMarks   int     `json:"pages_without_signatures"`
	AverageMarksPerPage float64 `json:"average_signatures_per_page"`
}

// Summarize computes a Summary over pages.
func Summarize(pages []PageMarks) Summary {
	var s Summary
	for _, p := range pages {
		s.TotalMarks += p.Count
		if p.Count > 0 {
			s.PagesWithMarks++
		} else {
			s.PagesWithoutMarks++
		}
	}
	if len(pages) > 0 {
		s.AverageMarksPerPage = float64(s.TotalMarks) / float64(len(pages))
	}
	return s
}

// UnitChecks holds the per-unit criterion flags.
type UnitChecks struct {
	Validity bool `json:"validity"`
	Policy   bool `json:"policy"`
	Person   bool `json:"person"`
}

// All reports whether every criterion passed.
func (c UnitChecks) All() bool {
	return c.Validity && c.Policy && c.Person
}

// And combines two sets of flags criterion by criterion.
func (c UnitChecks) And(o UnitChecks) UnitChecks {
	return UnitChecks{
		Validity: c.Validity && o.Validity,
		Policy:   c.Policy && o.Policy,
		Person:   c.Person && o.Person,
	}
}

// UnitVerdict is the outcome for one document unit.
type UnitVerdict struct {
	Unit    int        `json:"unit"`
	Pass    bool       `json:"verdict"`
	Reason  string     `json:"reason"`
	Checks  UnitChecks `json:"details"`
	Missing bool       `json:"missing,omitempty"`
}

// Details holds the document-level criterion flags.
type Details struct {
	Logo      bool `json:"logo"`
	Signature bool `json:"signature"`
	Validity  bool `json:"validity"`
	Policy    bool `json:"policy"`
	Person    bool `json:"person"`
}

// Review is an advisory document judgment from a secondary judge.
type Review struct {
	Verdict bool   `json:"verdict"`
	Reason  string `json:"reason"`
	Agrees  bool   `json:"agrees"`
}

// FinalVerdict is the document-level outcome.
type FinalVerdict struct {
	Verdict        bool           `json:"verdict"`
	Classification Classification `json:"classification"`
	Reason         string         `json:"reason"`
	Details        Details        `json:"details"`
	Failed         []Criterion    `json:"failed_criteria"`
	Review         *Review        `json:"review,omitempty"`
}
