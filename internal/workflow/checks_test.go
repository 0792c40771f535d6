package workflow_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/JaimeStill/attest/internal/verdict"
	"github.com/JaimeStill/attest/internal/workflow"
	"github.com/JaimeStill/attest/pkg/rules"
)

func TestCheckFacts(t *testing.T) {
	reference := time.Date(2023, time.June, 1, 0, 0, 0, 0, time.UTC)
	m := rules.DefaultMatcher()

	tests := []struct {
		name   string
		facts  workflow.Facts
		want   verdict.UnitChecks
		reason string
	}{
		{
			name:   "all pass",
			facts:  validFacts("Juan Perez"),
			want:   verdict.UnitChecks{Validity: true, Policy: true, Person: true},
			reason: "all checks passed",
		},
		{
			name: "expired",
			facts: func() workflow.Facts {
				f := validFacts("Juan Perez")
				f.ValidityEnd = ptr("31/05/2023")
				return f
			}(),
			want:   verdict.UnitChecks{Policy: true, Person: true},
			reason: "validity ended on 2023-05-31 before reference date 2023-06-01",
		},
		{
			name: "issuance falls back to validity start",
			facts: func() workflow.Facts {
				f := validFacts("Juan Perez")
				f.IssuanceDate = nil
				return f
			}(),
			want:   verdict.UnitChecks{Validity: true, Policy: true, Person: true},
			reason: "all checks passed",
		},
		{
			name: "missing end date",
			facts: func() workflow.Facts {
				f := validFacts("Juan Perez")
				f.ValidityEnd = nil
				return f
			}(),
			want:   verdict.UnitChecks{Policy: true, Person: true},
			reason: "validity end date not found",
		},
		{
			name: "placeholder policy uses insured policy",
			facts: func() workflow.Facts {
				f := validFacts("Juan Perez")
				f.PolicyNumber = ptr("N/A")
				f.Insured.PolicyNumber = ptr("9194284")
				return f
			}(),
			want:   verdict.UnitChecks{Validity: true, Policy: true, Person: true},
			reason: "all checks passed",
		},
		{
			name: "no policy and no insured",
			facts: workflow.Facts{
				ValidityEnd:  ptr("2024-01-01"),
				IssuanceDate: ptr("2023-01-01"),
			},
			want:   verdict.UnitChecks{Validity: true},
			reason: "policy number not found; insured person JUAN PEREZ is not listed",
		},
		{
			name:   "different person",
			facts:  validFacts("Maria Lopez"),
			want:   verdict.UnitChecks{Validity: true, Policy: true},
			reason: `listed insured "Maria Lopez" does not match JUAN PEREZ`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := workflow.CheckFacts(tt.facts, "JUAN PEREZ", reference, m)
			assert.Equal(t, tt.want, got.Checks)
			assert.Equal(t, tt.reason, got.Reason())
		})
	}
}

func TestIdentify(t *testing.T) {
	orgs := workflow.DefaultOrganizations()

	tests := []struct {
		text string
		want string
	}{
		{"Pacífico Seguros S.A.", "PACIFICO"},
		{"MAPFRE PERÚ Compañía de Seguros", "MAPFRE"},
		{"certificado la positiva", "LA POSITIVA"},
		{"RIMACSEGUROS", ""},
		{"Sanitas", "SANITAS"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, workflow.Identify(orgs, tt.text))
		})
	}
}

func TestIdentifyFilename(t *testing.T) {
	orgs := workflow.DefaultOrganizations()

	assert.Equal(t, "RIMAC", workflow.IdentifyFilename(orgs, "/tmp/uploads/Constancia_RIMAC-2024.pdf"))
	assert.Equal(t, "", workflow.IdentifyFilename(orgs, "scan_0001.pdf"))
}

func TestContentType(t *testing.T) {
	tests := []struct {
		name string
		doc  workflow.Document
		want string
	}{
		{"declared", workflow.Document{ContentType: "application/pdf; charset=binary"}, "application/pdf"},
		{"sniffed pdf", workflow.Document{Data: []byte("%PDF-1.7\n")}, "application/pdf"},
		{"sniffed png", workflow.Document{Data: []byte("\x89PNG\r\n\x1a\n")}, "image/png"},
		{"extension", workflow.Document{Data: []byte{0x49, 0x49, 0x2a, 0x00}, Filename: "scan.TIFF"}, "image/tiff"},
		{"unknown", workflow.Document{Data: []byte{0x00, 0x01}, Filename: "blob"}, "application/octet-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, workflow.ContentType(tt.doc))
		})
	}
}
