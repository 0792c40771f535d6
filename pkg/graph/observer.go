package graph

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Event describes one stage invocation.
type Event struct {
	RunID    uuid.UUID
	Graph    string
	Stage    string
	Step     int
	Branch   int
	Duration time.Duration
	Err      error
}

// Observer receives stage lifecycle hooks. StageStarted may return a derived
// context, which the stage and the matching StageFinished call receive.
// Observers are called from concurrently running branches.
type Observer interface {
	StageStarted(ctx context.Context, e Event) context.Context
	StageFinished(ctx context.Context, e Event)
}

// NoopObserver ignores every event.
type NoopObserver struct{}

func (NoopObserver) StageStarted(ctx context.Context, _ Event) context.Context { return ctx }
func (NoopObserver) StageFinished(context.Context, Event)                      {}

type logObserver struct {
	logger *slog.Logger
}

// LogObserver logs stage starts and completions at debug level and
// failures at warn level.
func LogObserver(logger *slog.Logger) Observer {
	return &logObserver{logger: logger}
}

func (o *logObserver) StageStarted(ctx context.Context, e Event) context.Context {
	o.logger.DebugContext(
		ctx, "stage started",
		"graph", e.Graph,
		"stage", e.Stage,
		"step", e.Step,
		"branch", e.Branch,
		"run_id", e.RunID,
	)
	return ctx
}

func (o *logObserver) StageFinished(ctx context.Context, e Event) {
	if e.Err != nil {
		o.logger.WarnContext(
			ctx, "stage failed",
			"graph", e.Graph,
			"stage", e.Stage,
			"branch", e.Branch,
			"duration", e.Duration,
			"error", e.Err,
		)
		return
	}
	o.logger.DebugContext(
		ctx, "stage finished",
		"graph", e.Graph,
		"stage", e.Stage,
		"branch", e.Branch,
		"duration", e.Duration,
	)
}

type multiObserver []Observer

// Observers fans events out to each observer in order.
func Observers(obs ...Observer) Observer {
	return multiObserver(obs)
}

func (m multiObserver) StageStarted(ctx context.Context, e Event) context.Context {
	for _, o := range m {
		ctx = o.StageStarted(ctx, e)
	}
	return ctx
}

func (m multiObserver) StageFinished(ctx context.Context, e Event) {
	for i := len(m) - 1; i >= 0; i-- {
		m[i].StageFinished(ctx, e)
	}
}
