package workflow_test

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/attest/internal/verdict"
	"github.com/JaimeStill/attest/internal/workflow"
	"github.com/JaimeStill/attest/pkg/graph"
	"github.com/JaimeStill/attest/pkg/marks"
	"github.com/JaimeStill/attest/pkg/rules"
)

func ptr[T any](v T) *T { return &v }

func fill(img draw.Image, r image.Rectangle) {
	draw.Draw(img, r, image.NewUniform(color.Black), image.Point{}, draw.Src)
}

func blankPage() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, 200, 200))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Gray{Y: 255}), image.Point{}, draw.Src)
	return img
}

// signedPage holds a line of small text dots and one mark-sized outline.
func signedPage() *image.Gray {
	img := blankPage()
	for i := range 20 {
		fill(img, image.Rect(10+8*i, 10, 13+8*i, 13))
	}
	fill(img, image.Rect(60, 100, 100, 101))
	fill(img, image.Rect(60, 129, 100, 130))
	fill(img, image.Rect(60, 100, 61, 130))
	fill(img, image.Rect(99, 100, 100, 130))
	return img
}

type fakeRenderer struct {
	pages []image.Image
	err   error
}

func (f fakeRenderer) Render(_ context.Context, _ workflow.Document, dir string) ([]workflow.Page, error) {
	if f.err != nil {
		return nil, f.err
	}

	pages := make([]workflow.Page, len(f.pages))
	for i, img := range f.pages {
		path := filepath.Join(dir, fmt.Sprintf("page-%d.png", i+1))
		out, err := os.Create(path)
		if err != nil {
			return nil, err
		}
		if err := png.Encode(out, img); err != nil {
			out.Close()
			return nil, err
		}
		out.Close()
		pages[i] = workflow.Page{Number: i + 1, ImagePath: path}
	}
	return pages, nil
}

type fakeSegmenter struct {
	units []workflow.Unit
	err   error
}

func (f fakeSegmenter) Segment(context.Context, workflow.Document, []workflow.Page) ([]workflow.Unit, error) {
	return f.units, f.err
}

type fakeExtractor struct {
	facts map[int]workflow.Facts
	errs  map[int]error
	block bool
	// stall parks the unit with this ordinal until release is closed,
	// ignoring cancellation.
	stall   int
	release chan struct{}
}

func (f fakeExtractor) Extract(ctx context.Context, unit workflow.Unit, _, _ string) (workflow.Facts, error) {
	if f.block {
		<-ctx.Done()
		return workflow.Facts{}, ctx.Err()
	}
	if f.stall != 0 && f.stall == unit.Ordinal {
		<-f.release
		return workflow.Facts{}, context.Canceled
	}
	if err := f.errs[unit.Ordinal]; err != nil {
		return workflow.Facts{}, err
	}
	return f.facts[unit.Ordinal], nil
}

type fakeLogo struct {
	mu    sync.Mutex
	match bool
	orgs  []string
}

func (f *fakeLogo) InspectLogo(_ context.Context, _ []workflow.Page, org string) (verdict.LogoInspection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orgs = append(f.orgs, org)
	return verdict.LogoInspection{Match: f.match, Reason: "letterhead checked"}, nil
}

func (f *fakeLogo) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.orgs
}

func validFacts(name string) workflow.Facts {
	return workflow.Facts{
		ValidityStart: ptr("01/01/2023"),
		ValidityEnd:   ptr("2024-01-01"),
		IssuanceDate:  ptr("2023-01-01"),
		PolicyNumber:  ptr("POL-7011610"),
		Organization:  ptr("RIMAC SEGUROS"),
		Insured:       &workflow.InsuredRecord{Name: name},
	}
}

func newRuntime(pages []image.Image, units []workflow.Unit, ex fakeExtractor, logo *fakeLogo) *workflow.Runtime {
	return &workflow.Runtime{
		Segmenter:     fakeSegmenter{units: units},
		Extractor:     ex,
		Logo:          logo,
		Judge:         workflow.RuleJudge{Matcher: rules.DefaultMatcher()},
		Renderer:      fakeRenderer{pages: pages},
		Detector:      marks.New(marks.DefaultOptions()),
		Matcher:       rules.DefaultMatcher(),
		Organizations: workflow.DefaultOrganizations(),
		Observer:      graph.NoopObserver{},
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func document(filename string) workflow.Document {
	return workflow.Document{
		Data:          []byte("%PDF-1.7"),
		Filename:      filename,
		ReferenceDate: time.Date(2023, time.June, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestExecuteValidDocument(t *testing.T) {
	logo := &fakeLogo{match: true}
	rt := newRuntime(
		[]image.Image{signedPage()},
		[]workflow.Unit{{Text: "Certificado de cobertura"}},
		fakeExtractor{facts: map[int]workflow.Facts{1: validFacts("PEREZ GARCIA, JUAN")}},
		logo,
	)

	report, err := workflow.Execute(context.Background(), rt, document("rimac_certificado.pdf"), "Juan Pérez")
	require.NoError(t, err)

	assert.True(t, report.Verdict.Verdict)
	assert.Equal(t, verdict.Valid, report.Verdict.Classification)
	assert.Equal(t, 1, report.TotalPages)
	assert.Equal(t, 1, report.Summary.TotalMarks)
	assert.Equal(t, "RIMAC", report.Organization)
	assert.Equal(t, []string{"RIMAC"}, logo.calls())
	require.Len(t, report.Observations, 1)
	assert.True(t, report.Observations[0].Verdict.Pass)
	require.NotNil(t, report.Verdict.Review)
	assert.True(t, report.Verdict.Review.Agrees)
	assert.NotEqual(t, "", report.RunID.String())
}

func TestExecuteMissingMarkIsObserved(t *testing.T) {
	rt := newRuntime(
		[]image.Image{blankPage()},
		[]workflow.Unit{{Text: "Certificado"}},
		fakeExtractor{facts: map[int]workflow.Facts{1: validFacts("Juan Perez")}},
		&fakeLogo{match: true},
	)

	report, err := workflow.Execute(context.Background(), rt, document("rimac.pdf"), "Juan Perez")
	require.NoError(t, err)

	assert.False(t, report.Verdict.Verdict)
	assert.Equal(t, verdict.Observed, report.Verdict.Classification)
	assert.Contains(t, report.Verdict.Reason, "signature")
	assert.Equal(t, 0, report.Summary.TotalMarks)
	assert.Equal(t, 1, report.Summary.PagesWithoutMarks)
}

func TestExecutePersonOnSecondUnit(t *testing.T) {
	rt := newRuntime(
		[]image.Image{signedPage()},
		[]workflow.Unit{{Text: "Carta"}, {Text: "Anexo de asegurados"}},
		fakeExtractor{facts: map[int]workflow.Facts{
			1: {ValidityEnd: ptr("2024-01-01"), IssuanceDate: ptr("2023-01-01"), PolicyNumber: ptr("123")},
			2: validFacts("Juan Perez"),
		}},
		&fakeLogo{match: true},
	)

	report, err := workflow.Execute(context.Background(), rt, document("rimac.pdf"), "Juan Perez")
	require.NoError(t, err)

	assert.True(t, report.Verdict.Verdict)
	require.Len(t, report.Observations, 2)
	assert.Equal(t, 1, report.Observations[0].Unit)
	assert.False(t, report.Observations[0].Verdict.Checks.Person)
	assert.True(t, report.Observations[1].Verdict.Checks.Person)
}

func TestExecuteExtractionFailureIsIsolated(t *testing.T) {
	rt := newRuntime(
		[]image.Image{signedPage()},
		[]workflow.Unit{{Text: "uno"}, {Text: "dos"}, {Text: "tres"}},
		fakeExtractor{
			facts: map[int]workflow.Facts{
				1: validFacts("Juan Perez"),
				3: validFacts("Juan Perez"),
			},
			errs: map[int]error{2: errors.New("model unavailable")},
		},
		&fakeLogo{match: true},
	)

	report, err := workflow.Execute(context.Background(), rt, document("rimac.pdf"), "Juan Perez")
	require.Error(t, err)
	assert.Nil(t, report)
	assert.ErrorIs(t, err, workflow.ErrExtraction)

	var pe *workflow.PipelineError
	require.ErrorAs(t, err, &pe)
	require.Len(t, pe.Failures, 1)
	assert.Equal(t, workflow.StageValidateUnit, pe.Failures[0].Stage)

	require.Len(t, pe.Units, 3)
	assert.True(t, pe.Units[0].Pass)
	assert.False(t, pe.Units[1].Pass)
	assert.True(t, pe.Units[1].Missing)
	assert.Contains(t, pe.Units[1].Reason, "model unavailable")
	assert.True(t, pe.Units[2].Pass)
}

func TestExecuteSegmentationFailure(t *testing.T) {
	rt := newRuntime([]image.Image{signedPage()}, nil, fakeExtractor{}, &fakeLogo{match: true})
	rt.Segmenter = fakeSegmenter{err: errors.New("service down")}

	_, err := workflow.Execute(context.Background(), rt, document("rimac.pdf"), "Juan Perez")
	require.Error(t, err)
	assert.ErrorIs(t, err, workflow.ErrSegmentation)

	var pe *workflow.PipelineError
	require.ErrorAs(t, err, &pe)
	assert.Empty(t, pe.Units)
}

func TestExecuteNoUnitsIsSegmentationFailure(t *testing.T) {
	rt := newRuntime([]image.Image{signedPage()}, []workflow.Unit{}, fakeExtractor{}, &fakeLogo{match: true})

	_, err := workflow.Execute(context.Background(), rt, document("rimac.pdf"), "Juan Perez")
	assert.ErrorIs(t, err, workflow.ErrSegmentation)
}

func TestExecuteTimeout(t *testing.T) {
	rt := newRuntime(
		[]image.Image{signedPage()},
		[]workflow.Unit{{Text: "uno"}},
		fakeExtractor{block: true},
		&fakeLogo{match: true},
	)
	rt.Timeout = 100 * time.Millisecond

	_, err := workflow.Execute(context.Background(), rt, document("rimac.pdf"), "Juan Perez")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	var te *graph.TimeoutError
	require.ErrorAs(t, err, &te)
	assert.Contains(t, te.Pending, workflow.StageValidateUnit)
	assert.Contains(t, te.Completed, workflow.StageDispatch)

	var pe *workflow.PipelineError
	require.ErrorAs(t, err, &pe)
	require.Len(t, pe.Units, 1)
	assert.True(t, pe.Units[0].Missing)
	assert.False(t, pe.Units[0].Pass)
}

func TestExecuteTimeoutKeepsEveryUnit(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	rt := newRuntime(
		[]image.Image{signedPage()},
		[]workflow.Unit{{Text: "uno"}, {Text: "dos"}, {Text: "tres"}},
		fakeExtractor{
			facts: map[int]workflow.Facts{
				1: validFacts("Juan Perez"),
				3: validFacts("Juan Perez"),
			},
			stall:   2,
			release: release,
		},
		&fakeLogo{match: true},
	)
	rt.Timeout = 200 * time.Millisecond

	_, err := workflow.Execute(context.Background(), rt, document("rimac.pdf"), "Juan Perez")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	var pe *workflow.PipelineError
	require.ErrorAs(t, err, &pe)
	require.Len(t, pe.Units, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{pe.Units[0].Unit, pe.Units[1].Unit, pe.Units[2].Unit})
	assert.True(t, pe.Units[0].Pass)
	assert.True(t, pe.Units[1].Missing)
	assert.False(t, pe.Units[1].Pass)
	assert.True(t, pe.Units[2].Pass)
}

func TestExecuteOrganizationFromUnitText(t *testing.T) {
	logo := &fakeLogo{match: true}
	rt := newRuntime(
		[]image.Image{signedPage()},
		[]workflow.Unit{{Text: "La Positiva Vida Seguros y Reaseguros"}},
		fakeExtractor{facts: map[int]workflow.Facts{1: validFacts("Juan Perez")}},
		logo,
	)

	report, err := workflow.Execute(context.Background(), rt, document("scan-0042.pdf"), "Juan Perez")
	require.NoError(t, err)

	assert.Equal(t, "LA POSITIVA", report.Organization)
	assert.Equal(t, []string{"LA POSITIVA"}, logo.calls())
}

func TestExecuteUnknownOrganizationFailsLogo(t *testing.T) {
	logo := &fakeLogo{match: true}
	rt := newRuntime(
		[]image.Image{signedPage()},
		[]workflow.Unit{{Text: "Certificado"}},
		fakeExtractor{facts: map[int]workflow.Facts{1: validFacts("Juan Perez")}},
		logo,
	)

	report, err := workflow.Execute(context.Background(), rt, document("scan.pdf"), "Juan Perez")
	require.NoError(t, err)

	assert.Empty(t, logo.calls())
	assert.False(t, report.Logo.Match)
	assert.Equal(t, verdict.Observed, report.Verdict.Classification)
}

func TestExecuteInputValidation(t *testing.T) {
	rt := newRuntime(nil, nil, fakeExtractor{}, &fakeLogo{})

	_, err := workflow.Execute(context.Background(), rt, document("a.pdf"), "   ")
	assert.ErrorIs(t, err, workflow.ErrInvalidPerson)

	_, err = workflow.Execute(context.Background(), rt, workflow.Document{Filename: "a.pdf"}, "Juan")
	assert.ErrorIs(t, err, workflow.ErrEmptyDocument)
}

func TestDetectMarks(t *testing.T) {
	rt := newRuntime([]image.Image{signedPage(), blankPage()}, nil, fakeExtractor{}, &fakeLogo{})

	report, err := workflow.DetectMarks(context.Background(), rt, document("rimac.pdf"))
	require.NoError(t, err)

	assert.Equal(t, 2, report.TotalPages)
	require.Len(t, report.Pages, 2)
	assert.Equal(t, 1, report.Pages[0].Count)
	assert.Equal(t, 0, report.Pages[1].Count)
	assert.Equal(t, verdict.Summary{
		TotalMarks:          1,
		PagesWithMarks:      1,
		PagesWithoutMarks:   1,
		AverageMarksPerPage: 0.5,
	}, report.Summary)
}
