package workflow

import (
	"cmp"
	"context"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/attest/internal/verdict"
	"github.com/JaimeStill/attest/pkg/graph"
	"github.com/JaimeStill/attest/pkg/rules"
)

// Execute validates a single document for the asserted person. It creates
// a temp directory for page images (cleaned up via defer), builds the stage
// graph, runs it and extracts the Report from the final state.
//
// Any stage failure or timeout yields a *PipelineError carrying the unit
// verdicts gathered so far. A Report is only returned for a clean run.
func Execute(ctx context.Context, rt *Runtime, doc Document, person string) (*Report, error) {
	if len(doc.Data) == 0 {
		return nil, ErrEmptyDocument
	}

	person = rules.NormalizeName(person)
	if person == "" {
		return nil, ErrInvalidPerson
	}

	reference := doc.ReferenceDate
	if reference.IsZero() {
		reference = rules.Today()
	}
	reference = rules.Day(reference)

	tempDir, err := os.MkdirTemp("", "attest-validate-*")
	if err != nil {
		return nil, fmt.Errorf("create temp directory: %w", err)
	}
	defer os.RemoveAll(tempDir)

	g, err := buildGraph(rt)
	if err != nil {
		return nil, fmt.Errorf("build graph: %w", err)
	}

	runID := uuid.New()
	initial := graph.NewState(map[string]any{
		KeyDocument:      doc,
		KeyTempDir:       tempDir,
		KeyPerson:        person,
		KeyReferenceDate: reference,
	})

	rt.Logger.InfoContext(
		ctx, "validation started",
		"run_id", runID,
		"filename", doc.Filename,
		"reference_date", reference.Format(rules.DateLayout),
	)

	final, err := g.Run(ctx, initial)
	if err != nil {
		return nil, newPipelineError(runID, final, err)
	}

	return extractReport(runID, doc, final)
}

// DetectMarks renders doc and runs only the mark detector.
func DetectMarks(ctx context.Context, rt *Runtime, doc Document) (*MarksReport, error) {
	if len(doc.Data) == 0 {
		return nil, ErrEmptyDocument
	}

	tempDir, err := os.MkdirTemp("", "attest-marks-*")
	if err != nil {
		return nil, fmt.Errorf("create temp directory: %w", err)
	}
	defer os.RemoveAll(tempDir)

	pages, err := rt.Renderer.Render(ctx, doc, tempDir)
	if err != nil {
		return nil, err
	}

	diagnosis, err := DetectPages(ctx, rt.Detector, pages)
	if err != nil {
		return nil, err
	}

	return &MarksReport{
		Filename:   doc.Filename,
		TotalPages: len(pages),
		Pages:      diagnosis,
		Summary:    verdict.Summarize(diagnosis),
	}, nil
}

func buildGraph(rt *Runtime) (*graph.Graph, error) {
	cfg := graph.DefaultConfig("attest-validate")
	if rt.MaxConcurrency > 0 {
		cfg.MaxConcurrency = rt.MaxConcurrency
	}
	cfg.Timeout = rt.Timeout

	g, err := graph.New(cfg, observerOption(rt))
	if err != nil {
		return nil, err
	}

	unitGraph, err := buildUnitGraph(rt)
	if err != nil {
		return nil, fmt.Errorf("unit graph: %w", err)
	}

	if err := g.DeclareField(KeyUnitVerdicts, graph.Append[verdict.UnitVerdict]()); err != nil {
		return nil, err
	}

	if err := g.DeclareField(KeyObservations, graph.Append[Observation]()); err != nil {
		return nil, err
	}

	stages := []struct {
		name  string
		stage graph.Stage
		opts  []graph.StageOption
	}{
		{StagePrepare, PrepareStage(rt), nil},
		{StageSegment, SegmentStage(rt), nil},
		{StageMarks, MarksStage(rt), nil},
		{StageLogo, LogoStage(rt), nil},
		{StageDispatch, DispatchStage(rt), []graph.StageOption{graph.Deferred()}},
		{StageValidateUnit, graph.Subgraph(unitGraph, projectUnit), nil},
		{StageAggregate, AggregateStage(rt), []graph.StageOption{graph.Deferred()}},
	}

	for _, s := range stages {
		if err := g.AddStage(s.name, s.stage, s.opts...); err != nil {
			return nil, err
		}
	}

	// prepare → segment → logo, prepare → marks (parallel with segment)
	edges := [][2]string{
		{StagePrepare, StageSegment},
		{StagePrepare, StageMarks},
		{StageSegment, StageLogo},
		{StageMarks, StageDispatch},
		{StageLogo, StageDispatch},
	}

	for _, e := range edges {
		if err := g.AddEdge(e[0], e[1]); err != nil {
			return nil, err
		}
	}

	// dispatch → validate_unit × N, dispatch → aggregate (deferred join)
	if err := g.AddRouter(StageDispatch, routeUnits, StageValidateUnit, StageAggregate); err != nil {
		return nil, err
	}

	if err := g.SetEntryPoint(StagePrepare); err != nil {
		return nil, err
	}

	return g, g.Validate()
}

func observerOption(rt *Runtime) graph.Option {
	if rt.Observer == nil {
		return graph.WithObserver(graph.LogObserver(rt.Logger))
	}
	return graph.WithObserver(rt.Observer)
}

func extractReport(runID uuid.UUID, doc Document, s graph.State) (*Report, error) {
	final, err := value[verdict.FinalVerdict](s, KeyVerdict)
	if err != nil {
		return nil, fmt.Errorf("final state: %w", err)
	}

	finding, err := value[verdict.ArtifactFinding](s, KeyFinding)
	if err != nil {
		return nil, fmt.Errorf("final state: %w", err)
	}

	pages, err := value[[]Page](s, KeyPages)
	if err != nil {
		return nil, fmt.Errorf("final state: %w", err)
	}

	org, _ := graph.Value[string](s, KeyOrganization)

	observations, _ := graph.Value[[]Observation](s, KeyObservations)
	observations = slices.Clone(observations)
	slices.SortFunc(observations, func(a, b Observation) int {
		return cmp.Compare(a.Unit, b.Unit)
	})

	return &Report{
		RunID:        runID,
		Filename:     doc.Filename,
		TotalPages:   len(pages),
		Pages:        finding.Pages,
		Summary:      verdict.Summarize(finding.Pages),
		Organization: org,
		Observations: observations,
		Logo:         finding.Logo,
		Verdict:      final,
		CompletedAt:  time.Now().UTC(),
	}, nil
}
