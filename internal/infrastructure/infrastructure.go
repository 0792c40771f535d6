// Package infrastructure provides core service initialization for application startup.
// It assembles the systems the validation pipeline and its HTTP surface
// depend on: logging, storage, the verdict cache, telemetry and the model
// backed collaborators.
package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/JaimeStill/attest/internal/agents"
	"github.com/JaimeStill/attest/internal/cache"
	"github.com/JaimeStill/attest/internal/config"
	"github.com/JaimeStill/attest/internal/observability"
	"github.com/JaimeStill/attest/pkg/lifecycle"
	"github.com/JaimeStill/attest/pkg/storage"
)

const flushTimeout = 5 * time.Second

// Infrastructure holds the core systems required by all domain modules.
// Storage and Agents are nil when their configuration is absent.
type Infrastructure struct {
	Lifecycle *lifecycle.Coordinator
	Logger    *slog.Logger
	Storage   storage.System
	Cache     cache.Cache
	Registry  *prometheus.Registry
	Metrics   *observability.Metrics
	Tracer    *observability.Tracer
	Agents    *agents.Agents

	vertex        *agents.Vertex
	traceShutdown func(context.Context) error
}

// New creates an Infrastructure from the application configuration.
// It initializes all systems but does not start them; call Start separately.
func New(ctx context.Context, cfg *config.Config) (*Infrastructure, error) {
	return NewWithLogger(ctx, cfg, slog.New(slog.NewTextHandler(os.Stderr, nil)))
}

// NewWithLogger is New with a caller-supplied logger.
func NewWithLogger(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Infrastructure, error) {
	infra := &Infrastructure{
		Lifecycle: lifecycle.New(),
		Logger:    logger,
		Cache:     cache.Noop{},
		Registry:  prometheus.NewRegistry(),
	}

	infra.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	infra.Metrics = observability.NewMetrics(infra.Registry)

	shutdown, err := observability.SetupTracing(ctx, &cfg.Tracing, cfg.Version)
	if err != nil {
		return nil, fmt.Errorf("tracing init failed: %w", err)
	}
	infra.traceShutdown = shutdown
	infra.Tracer = observability.NewTracer(nil)

	if cfg.Storage.Enabled() {
		store, err := storage.New(&cfg.Storage, logger)
		if err != nil {
			return nil, fmt.Errorf("storage init failed: %w", err)
		}
		infra.Storage = store
	} else {
		logger.Info("storage not configured; stored validations and report archiving disabled")
	}

	if cfg.Cache.Enabled {
		c, err := cache.New(&cfg.Cache, logger)
		if err != nil {
			return nil, fmt.Errorf("cache init failed: %w", err)
		}
		infra.Cache = c
	}

	vertex, err := agents.NewVertex(ctx, &cfg.Agent, logger)
	switch {
	case err == nil:
		infra.vertex = vertex
		infra.Agents = agents.New(vertex, cfg.Agent.CallTimeoutDuration(), logger)
	case errors.Is(err, agents.ErrNotConfigured):
		logger.Warn("agent project not configured; only mark detection is available")
	default:
		return nil, fmt.Errorf("agent init failed: %w", err)
	}

	return infra, nil
}

// Start registers all infrastructure systems with the lifecycle coordinator.
func (i *Infrastructure) Start() error {
	if i.Storage != nil {
		if err := i.Storage.Start(i.Lifecycle); err != nil {
			return fmt.Errorf("storage start failed: %w", err)
		}
	}

	if err := i.Cache.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("cache start failed: %w", err)
	}

	i.Lifecycle.OnShutdown("telemetry", func() {
		<-i.Lifecycle.Context().Done()

		if i.vertex != nil {
			if err := i.vertex.Close(); err != nil {
				i.Logger.Error("vertex client close failed", "error", err)
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
		defer cancel()
		if err := i.traceShutdown(ctx); err != nil {
			i.Logger.Error("trace exporter shutdown failed", "error", err)
		}
	})

	return nil
}
