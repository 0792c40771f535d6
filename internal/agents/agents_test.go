package agents_test

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/tiff"

	"github.com/JaimeStill/attest/internal/agents"
	"github.com/JaimeStill/attest/internal/prompts"
	"github.com/JaimeStill/attest/internal/verdict"
	"github.com/JaimeStill/attest/internal/workflow"
	"github.com/JaimeStill/attest/pkg/formatting"
)

type fakeGenerator struct {
	mu       sync.Mutex
	answer   string
	err      error
	block    bool
	requests []agents.Request
}

func (f *fakeGenerator) Generate(ctx context.Context, req agents.Request) (string, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return f.answer, f.err
}

func (f *fakeGenerator) last(t *testing.T) agents.Request {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.requests)
	return f.requests[len(f.requests)-1]
}

func newAgents(gen agents.Generator) *agents.Agents {
	return agents.New(gen, 0, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func page() image.Image {
	img := image.NewGray(image.Rect(0, 0, 16, 16))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	img.SetGray(4, 4, color.Gray{})
	return img
}

func writePages(t *testing.T, n int, ext string) []workflow.Page {
	t.Helper()
	dir := t.TempDir()

	pages := make([]workflow.Page, n)
	for i := range n {
		path := filepath.Join(dir, "page-"+string(rune('1'+i))+ext)
		f, err := os.Create(path)
		require.NoError(t, err)

		if ext == ".tif" {
			require.NoError(t, tiff.Encode(f, page(), nil))
		} else {
			require.NoError(t, png.Encode(f, page()))
		}
		require.NoError(t, f.Close())

		pages[i] = workflow.Page{Number: i + 1, ImagePath: path}
	}
	return pages
}

func TestSegment(t *testing.T) {
	gen := &fakeGenerator{answer: "```json\n" + `{"units":[
		{"text":"  Constancia de cobertura  ","pages":[1]},
		{"text":"","pages":[1]},
		{"text":"Anexo de asegurados","pages":[2, 7]}
	]}` + "\n```"}

	units, err := newAgents(gen).Segment(context.Background(), workflow.Document{Filename: "rimac.pdf"}, writePages(t, 2, ".png"))
	require.NoError(t, err)

	require.Len(t, units, 2)
	assert.Equal(t, "Constancia de cobertura", units[0].Text)
	assert.Equal(t, []int{2}, units[1].Pages)

	req := gen.last(t)
	assert.Equal(t, prompts.StageSegment, req.Stage)
	assert.Len(t, req.Images, 2)
	assert.Equal(t, "image/png", req.Images[0].MIMEType)
	assert.Contains(t, req.System, `"rimac.pdf"`)
}

func TestSegmentReencodesTIFF(t *testing.T) {
	gen := &fakeGenerator{answer: `{"units":[{"text":"Constancia","pages":[1]}]}`}

	_, err := newAgents(gen).Segment(context.Background(), workflow.Document{}, writePages(t, 1, ".tif"))
	require.NoError(t, err)

	img := gen.last(t).Images[0]
	assert.Equal(t, "image/png", img.MIMEType)

	decoded, err := png.Decode(strings.NewReader(string(img.Data)))
	require.NoError(t, err)
	assert.Equal(t, 16, decoded.Bounds().Dx())
}

func TestSegmentAllEmptyUnits(t *testing.T) {
	gen := &fakeGenerator{answer: `{"units":[{"text":"   "}]}`}

	_, err := newAgents(gen).Segment(context.Background(), workflow.Document{}, writePages(t, 1, ".png"))
	assert.Error(t, err)
}

func TestExtractNormalizesFacts(t *testing.T) {
	gen := &fakeGenerator{answer: `Here are the facts: {
		"validity_start": "01/01/2023",
		"validity_end": "31 de diciembre de 2023",
		"issuance_date": "",
		"policy_number": "null",
		"organization": "RIMAC SEGUROS",
		"insured": {"name": " PEREZ GARCIA, JUAN ", "policy_number": "9194284", "organization": null}
	}`}

	pages := writePages(t, 1, ".png")
	unit := workflow.Unit{Ordinal: 3, Text: "Se certifica que...", Image: pages[0].ImagePath}

	facts, err := newAgents(gen).Extract(context.Background(), unit, "RIMAC", "JUAN PEREZ")
	require.NoError(t, err)

	assert.Equal(t, "31 de diciembre de 2023", *facts.ValidityEnd)
	assert.Nil(t, facts.IssuanceDate)
	assert.Nil(t, facts.PolicyNumber)
	require.NotNil(t, facts.Insured)
	assert.Equal(t, "PEREZ GARCIA, JUAN", facts.Insured.Name)
	assert.Equal(t, "9194284", *facts.Insured.PolicyNumber)

	req := gen.last(t)
	assert.Equal(t, "Se certifica que...", req.Text)
	assert.Len(t, req.Images, 1)
	assert.Contains(t, req.System, `"asserted_person": "JUAN PEREZ"`)
}

func TestExtractDropsNamelessInsured(t *testing.T) {
	gen := &fakeGenerator{answer: `{"validity_end":"2024-01-01","insured":{"name":"  "}}`}

	facts, err := newAgents(gen).Extract(context.Background(), workflow.Unit{Ordinal: 1, Text: "x"}, "", "JUAN PEREZ")
	require.NoError(t, err)
	assert.Nil(t, facts.Insured)
	assert.Empty(t, gen.last(t).Images)
}

func TestInspectLogo(t *testing.T) {
	tests := []struct {
		name   string
		answer string
		match  bool
		reason string
	}{
		{"match", `{"present":true,"match":true,"reason":"RIMAC letterhead"}`, true, "RIMAC letterhead"},
		{"different insurer", `{"present":true,"match":false,"reason":"MAPFRE logo"}`, false, "MAPFRE logo"},
		{"match without logo", `{"present":false,"match":true,"reason":""}`, false, "no logo found for RIMAC"},
	}

	pages := writePages(t, 3, ".png")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &fakeGenerator{answer: tt.answer}

			got, err := newAgents(gen).InspectLogo(context.Background(), pages, "RIMAC")
			require.NoError(t, err)
			assert.Equal(t, verdict.LogoInspection{Match: tt.match, Reason: tt.reason}, got)
			assert.Len(t, gen.last(t).Images, 2)
		})
	}
}

func TestJudgeUnit(t *testing.T) {
	gen := &fakeGenerator{answer: `{"validity":true,"policy":true,"person":false,"reason":"person not listed"}`}

	v, err := newAgents(gen).JudgeUnit(context.Background(), workflow.UnitReview{
		Unit:          workflow.Unit{Ordinal: 2, Text: "..."},
		Person:        "JUAN PEREZ",
		ReferenceDate: time.Date(2023, time.June, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	assert.Equal(t, 2, v.Unit)
	assert.False(t, v.Pass)
	assert.Equal(t, verdict.UnitChecks{Validity: true, Policy: true}, v.Checks)
	assert.Contains(t, gen.last(t).System, `"reference_date": "2023-06-01"`)
}

func TestJudgeDocument(t *testing.T) {
	gen := &fakeGenerator{answer: `{"verdict":true,"reason":"all criteria met"}`}

	v, err := newAgents(gen).JudgeDocument(context.Background(), nil, verdict.ArtifactFinding{Count: 1})
	require.NoError(t, err)

	assert.True(t, v.Verdict)
	assert.Equal(t, verdict.Valid, v.Classification)
	assert.Equal(t, "all criteria met", v.Reason)
}

func TestCallFailures(t *testing.T) {
	ctx := context.Background()
	unit := workflow.Unit{Ordinal: 1, Text: "x"}

	t.Run("generator error", func(t *testing.T) {
		boom := errors.New("quota exceeded")
		_, err := newAgents(&fakeGenerator{err: boom}).Extract(ctx, unit, "", "A B")
		assert.ErrorIs(t, err, boom)
	})

	t.Run("empty response", func(t *testing.T) {
		_, err := newAgents(&fakeGenerator{}).Extract(ctx, unit, "", "A B")
		assert.ErrorIs(t, err, agents.ErrEmptyResponse)
	})

	t.Run("unparseable response", func(t *testing.T) {
		_, err := newAgents(&fakeGenerator{answer: "I cannot help with that."}).Extract(ctx, unit, "", "A B")
		assert.ErrorIs(t, err, formatting.ErrParseFailed)
	})

	t.Run("call timeout", func(t *testing.T) {
		a := agents.New(&fakeGenerator{block: true}, 20*time.Millisecond, slog.New(slog.NewTextHandler(io.Discard, nil)))
		_, err := a.Extract(ctx, unit, "", "A B")
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("missing image", func(t *testing.T) {
		gen := &fakeGenerator{answer: `{}`}
		_, err := newAgents(gen).Extract(ctx, workflow.Unit{Ordinal: 1, Image: "/nonexistent/page-1.png"}, "", "A B")
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}
