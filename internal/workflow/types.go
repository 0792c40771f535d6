package workflow

import (
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/attest/internal/verdict"
)

// State keys shared by the pipeline stages.
const (
	KeyDocument      = "document"
	KeyTempDir       = "temp_dir"
	KeyPerson        = "person"
	KeyReferenceDate = "reference_date"
	KeyOrganization  = "organization"
	KeyPages         = "pages"
	KeyUnits         = "units"
	KeyPageMarks     = "page_marks"
	KeyLogo          = "logo"
	KeyFinding       = "finding"
	KeyUnitVerdicts  = "unit_verdicts"
	KeyObservations  = "observations"
	KeyVerdict       = "verdict"

	// Per-unit branch keys.
	KeyUnit        = "unit"
	KeyFacts       = "facts"
	KeyRuleCheck   = "rule_check"
	KeyUnitVerdict = "unit_verdict"
	KeyObservation = "observation"
)

// Stage names.
const (
	StagePrepare      = "prepare"
	StageSegment      = "segment"
	StageMarks        = "marks"
	StageLogo         = "logo"
	StageDispatch     = "dispatch"
	StageValidateUnit = "validate_unit"
	StageAggregate    = "aggregate"

	StageExtract = "extract"
	StageCheck   = "check"
	StageJudge   = "judge"
)

// Document is a submitted file. Data is owned by the pipeline for the
// duration of a run. A zero ReferenceDate means today.
type Document struct {
	Data          []byte
	Filename      string
	ContentType   string
	Organization  string
	ReferenceDate time.Time
}

// Page is one rendered page image on disk.
type Page struct {
	Number    int    `json:"page_number"`
	ImagePath string `json:"image_path"`
}

// Unit is one semantically coherent fragment of a document.
type Unit struct {
	Ordinal int    `json:"ordinal"`
	Text    string `json:"text"`
	Pages   []int  `json:"pages,omitempty"`
	Image   string `json:"image,omitempty"`
}

// InsuredRecord is an insured person listed on a unit.
type InsuredRecord struct {
	Name         string  `json:"name"`
	PolicyNumber *string `json:"policy_number"`
	Organization *string `json:"organization"`
}

// Facts are the structured fields extracted from a unit. Absent values
// are nil. Dates are kept as printed and parsed by the check stage.
type Facts struct {
	ValidityStart *string        `json:"validity_start"`
	ValidityEnd   *string        `json:"validity_end"`
	IssuanceDate  *string        `json:"issuance_date"`
	PolicyNumber  *string        `json:"policy_number"`
	Organization  *string        `json:"organization"`
	Insured       *InsuredRecord `json:"insured"`
}

// Observation records what was extracted from a unit and how it was judged.
type Observation struct {
	Unit    int                 `json:"unit"`
	Facts   Facts               `json:"facts"`
	Verdict verdict.UnitVerdict `json:"verdict"`
	Review  string              `json:"review,omitempty"`
}

// Report is the result of a completed validation run.
type Report struct {
	RunID        uuid.UUID              `json:"run_id"`
	Filename     string                 `json:"filename"`
	TotalPages   int                    `json:"total_pages"`
	Pages        []verdict.PageMarks    `json:"page_diagnosis"`
	Summary      verdict.Summary        `json:"signature_summary"`
	Organization string                 `json:"organization"`
	Observations []Observation          `json:"observations"`
	Logo         verdict.LogoInspection `json:"logo"`
	Verdict      verdict.FinalVerdict   `json:"final_verdict"`
	CompletedAt  time.Time              `json:"completed_at"`
}

// MarksReport is the result of a mark-detection-only run.
type MarksReport struct {
	Filename   string              `json:"filename"`
	TotalPages int                 `json:"total_pages"`
	Pages      []verdict.PageMarks `json:"page_diagnosis"`
	Summary    verdict.Summary     `json:"signature_summary"`
}
