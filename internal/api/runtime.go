package api

import (
	"github.com/JaimeStill/attest/internal/config"
	"github.com/JaimeStill/attest/internal/infrastructure"
	"github.com/JaimeStill/attest/internal/workflow"
)

// Runtime extends Infrastructure with the pipeline runtime and API limits.
type Runtime struct {
	*infrastructure.Infrastructure
	Workflow      *workflow.Runtime
	MaxUploadSize int64
	ReportPrefix  string
	BasePath      string
	Version       string
}

// NewRuntime creates an API runtime with a module-scoped logger.
func NewRuntime(cfg *config.Config, infra *infrastructure.Infrastructure) *Runtime {
	scoped := *infra
	scoped.Logger = infra.Logger.With("module", "api")

	return &Runtime{
		Infrastructure: &scoped,
		Workflow:       infra.Runtime(&cfg.Pipeline),
		MaxUploadSize:  cfg.API.MaxUploadSizeBytes(),
		ReportPrefix:   cfg.Storage.ReportPrefix,
		BasePath:       cfg.API.BasePath,
		Version:        cfg.Version,
	}
}
