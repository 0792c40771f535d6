// Package agents implements the model-backed pipeline collaborators:
// segmentation, fact extraction, logo inspection and judgment. Every call
// is a single structured-output request whose JSON answer is decoded into
// the workflow types.
package agents

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/JaimeStill/attest/internal/prompts"
	"github.com/JaimeStill/attest/pkg/formatting"
)

var (
	ErrEmptyResponse = errors.New("model returned no content")
	ErrNotConfigured = errors.New("agent project is not configured")
)

// Image is one inline image part.
type Image struct {
	MIMEType string
	Data     []byte
}

// Request is a single model call. System carries the composed stage
// prompt; Images and Text form the user turn.
type Request struct {
	Stage  prompts.Stage
	System string
	Images []Image
	Text   string
}

// Generator sends one request and returns the raw text of the answer.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Agents implements workflow.Segmenter, workflow.Extractor,
// workflow.LogoInspector and workflow.Judge over one Generator.
type Agents struct {
	gen         Generator
	callTimeout time.Duration
	logger      *slog.Logger
}

// New wraps gen. A positive callTimeout bounds each model call.
func New(gen Generator, callTimeout time.Duration, logger *slog.Logger) *Agents {
	return &Agents{
		gen:         gen,
		callTimeout: callTimeout,
		logger:      logger.With("system", "agents"),
	}
}

// ask composes the stage prompt, sends it and decodes the answer into T.
func ask[T any](ctx context.Context, a *Agents, stage prompts.Stage, data any, text string, images []Image) (T, error) {
	var zero T

	system, err := prompts.Compose(stage, data)
	if err != nil {
		return zero, fmt.Errorf("compose %s prompt: %w", stage, err)
	}

	if a.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.callTimeout)
		defer cancel()
	}

	start := time.Now()
	raw, err := a.gen.Generate(ctx, Request{
		Stage:  stage,
		System: system,
		Images: images,
		Text:   text,
	})
	if err != nil {
		return zero, fmt.Errorf("%s call: %w", stage, err)
	}

	a.logger.DebugContext(
		ctx, "model call complete",
		"stage", stage,
		"images", len(images),
		"duration", time.Since(start),
	)

	if raw == "" {
		return zero, fmt.Errorf("%s call: %w", stage, ErrEmptyResponse)
	}

	out, err := formatting.Parse[T](raw)
	if err != nil {
		return zero, fmt.Errorf("%s response: %w", stage, err)
	}
	return out, nil
}
