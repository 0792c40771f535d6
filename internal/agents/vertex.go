package agents

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"cloud.google.com/go/vertexai/genai"

	"github.com/JaimeStill/attest/internal/config"
)

// Vertex is a Generator backed by a Gemini model on Vertex AI. Requests
// ask for a JSON response at the configured temperature.
type Vertex struct {
	client      *genai.Client
	model       string
	temperature float32
	logger      *slog.Logger
}

// NewVertex connects to Vertex AI with application default credentials.
func NewVertex(ctx context.Context, cfg *config.AgentConfig, logger *slog.Logger) (*Vertex, error) {
	if cfg.Project == "" {
		return nil, ErrNotConfigured
	}

	client, err := genai.NewClient(ctx, cfg.Project, cfg.Location)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	var temperature float32
	if cfg.Temperature != nil {
		temperature = *cfg.Temperature
	}

	return &Vertex{
		client:      client,
		model:       cfg.Model,
		temperature: temperature,
		logger:      logger.With("system", "vertex", "model", cfg.Model),
	}, nil
}

func (v *Vertex) Generate(ctx context.Context, req Request) (string, error) {
	model := v.client.GenerativeModel(v.model)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(req.System)},
	}
	model.GenerationConfig = genai.GenerationConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr(v.temperature),
	}

	parts := make([]genai.Part, 0, len(req.Images)+1)
	for _, img := range req.Images {
		parts = append(parts, genai.ImageData(strings.TrimPrefix(img.MIMEType, "image/"), img.Data))
	}
	if req.Text != "" {
		parts = append(parts, genai.Text(req.Text))
	}
	if len(parts) == 0 {
		parts = append(parts, genai.Text("Respond using the context provided in the instructions."))
	}

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		v.logger.ErrorContext(ctx, "generate content failed", "stage", req.Stage, "error", err)
		return "", fmt.Errorf("generate content: %w", err)
	}

	return responseText(resp), nil
}

// Close releases the underlying client.
func (v *Vertex) Close() error {
	return v.client.Close()
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	return strings.TrimSpace(sb.String())
}
