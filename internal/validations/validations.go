package validations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/JaimeStill/attest/internal/cache"
	"github.com/JaimeStill/attest/internal/observability"
	"github.com/JaimeStill/attest/internal/workflow"
	"github.com/JaimeStill/attest/pkg/rules"
	"github.com/JaimeStill/attest/pkg/storage"
)

// Deps are the collaborators of the validation service. Store may be nil,
// which disables stored validations and report archiving. Cache defaults
// to cache.Noop and Tracer to the global tracer provider.
type Deps struct {
	Runtime *workflow.Runtime
	Cache   cache.Cache
	Store   storage.System
	Metrics *observability.Metrics
	Tracer  *observability.Tracer
	Logger  *slog.Logger

	// MaxDocumentSize bounds stored blobs read for validation.
	MaxDocumentSize int64
}

type service struct {
	rt      *workflow.Runtime
	cache   cache.Cache
	store   storage.System
	metrics *observability.Metrics
	tracer  *observability.Tracer
	logger  *slog.Logger
	maxSize int64
}

// New creates the validation service implementing System.
func New(d Deps) System {
	s := &service{
		rt:      d.Runtime,
		cache:   d.Cache,
		store:   d.Store,
		metrics: d.Metrics,
		tracer:  d.Tracer,
		logger:  d.Logger.With("system", "validations"),
		maxSize: d.MaxDocumentSize,
	}
	if s.cache == nil {
		s.cache = cache.Noop{}
	}
	if s.tracer == nil {
		s.tracer = observability.NewTracer(nil)
	}
	return s
}

func (s *service) Handler(maxUploadSize int64) *Handler {
	return NewHandler(s, s.logger, maxUploadSize)
}

// Validate runs the pipeline for cmd unless an identical request has a
// cached report. Clean runs are cached and, when storage is configured,
// archived as JSON.
func (s *service) Validate(ctx context.Context, cmd ValidateCommand) (*Result, error) {
	if s.rt.Segmenter == nil || s.rt.Extractor == nil || s.rt.Logo == nil {
		return nil, ErrAgentsUnavailable
	}

	doc := cmd.Document
	if len(doc.Data) == 0 {
		return nil, workflow.ErrEmptyDocument
	}
	person := rules.NormalizeName(cmd.Person)
	if person == "" {
		return nil, workflow.ErrInvalidPerson
	}
	if doc.ReferenceDate.IsZero() {
		doc.ReferenceDate = rules.Today()
	}
	doc.ReferenceDate = rules.Day(doc.ReferenceDate)

	ctx, span := s.tracer.Start(ctx, "validations/validate",
		attribute.String("attest.filename", doc.Filename),
		attribute.Int("attest.size", len(doc.Data)),
	)
	defer span.End()

	key := cache.Key(doc, person)
	if cached := s.lookup(ctx, key); cached != nil {
		span.SetAttributes(attribute.Bool("attest.cached", true))
		return &Result{Report: cached, Cached: true}, nil
	}

	start := time.Now()
	report, err := workflow.Execute(ctx, s.rt, doc, person)
	if err != nil {
		s.metrics.ObserveValidation("error", time.Since(start))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	class := string(report.Verdict.Classification)
	s.metrics.ObserveValidation(class, time.Since(start))
	span.SetAttributes(
		attribute.String("attest.run_id", report.RunID.String()),
		attribute.String("attest.classification", class),
	)

	if err := s.cache.Set(ctx, key, report); err != nil {
		s.logger.WarnContext(ctx, "cache store failed", "run_id", report.RunID, "error", err)
	}

	return &Result{
		Report:     report,
		ArchiveKey: s.archive(ctx, report),
	}, nil
}

// ValidateStored reads the document from blob storage and validates it.
func (s *service) ValidateStored(ctx context.Context, cmd StoredCommand) (*Result, error) {
	if s.store == nil {
		return nil, storage.ErrNotConfigured
	}

	reference, err := parseReferenceDate(cmd.ReferenceDate)
	if err != nil {
		return nil, err
	}

	obj, err := s.store.Read(ctx, cmd.Key, s.maxSize)
	if err != nil {
		return nil, fmt.Errorf("read stored document: %w", err)
	}

	return s.Validate(ctx, ValidateCommand{
		Document: workflow.Document{
			Data:          obj.Data,
			Filename:      path.Base(obj.Key),
			ContentType:   obj.ContentType,
			Organization:  cmd.Organization,
			ReferenceDate: reference,
		},
		Person: cmd.Person,
	})
}

func (s *service) DetectMarks(ctx context.Context, doc workflow.Document) (*workflow.MarksReport, error) {
	ctx, span := s.tracer.Start(ctx, "validations/marks",
		attribute.String("attest.filename", doc.Filename),
	)
	defer span.End()

	report, err := workflow.DetectMarks(ctx, s.rt, doc)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("attest.total_marks", report.Summary.TotalMarks))
	return report, nil
}

func (s *service) lookup(ctx context.Context, key string) *workflow.Report {
	report, err := s.cache.Get(ctx, key)
	switch {
	case err == nil:
		s.metrics.ObserveCache("hit")
		s.logger.InfoContext(ctx, "validation served from cache", "run_id", report.RunID)
		return report
	case errors.Is(err, cache.ErrMiss):
		s.metrics.ObserveCache("miss")
	default:
		s.metrics.ObserveCache("error")
		s.logger.WarnContext(ctx, "cache lookup failed", "error", err)
	}
	return nil
}

func (s *service) archive(ctx context.Context, report *workflow.Report) string {
	if s.store == nil {
		return ""
	}

	data, err := json.Marshal(report)
	if err != nil {
		s.logger.ErrorContext(ctx, "report encode failed", "run_id", report.RunID, "error", err)
		return ""
	}

	key, err := s.store.Archive(ctx, report.RunID.String()+".json", data, "application/json")
	if err != nil {
		s.logger.WarnContext(ctx, "report archive failed", "run_id", report.RunID, "error", err)
		return ""
	}
	return key
}
