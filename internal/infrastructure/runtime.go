package infrastructure

import (
	"maps"
	"slices"

	"github.com/JaimeStill/attest/internal/config"
	"github.com/JaimeStill/attest/internal/workflow"
	"github.com/JaimeStill/attest/pkg/graph"
	"github.com/JaimeStill/attest/pkg/marks"
	"github.com/JaimeStill/attest/pkg/rules"
)

// Runtime assembles the pipeline runtime from the pipeline configuration.
// Stage events go to the log, the metrics and the tracer. Without agents
// the model-backed collaborators are left nil and only mark detection can
// run.
func (i *Infrastructure) Runtime(cfg *config.PipelineConfig) *workflow.Runtime {
	logger := i.Logger.With("system", "workflow")

	rt := &workflow.Runtime{
		Renderer: workflow.NewPageRenderer(cfg.DPI),
		Detector: marks.New(marks.DefaultOptions()),
		Matcher: rules.Matcher{
			MaxDistance:    cfg.EditDistance(),
			MinFuzzyLength: cfg.MinFuzzyLength,
		},
		Organizations:  Organizations(cfg.Organizations),
		MaxConcurrency: cfg.MaxConcurrency,
		Timeout:        cfg.TimeoutDuration(),
		Observer:       graph.Observers(graph.LogObserver(logger), i.Metrics, i.Tracer),
		Logger:         logger,
	}
	rt.Judge = workflow.RuleJudge{Matcher: rt.Matcher}

	if i.Agents != nil {
		rt.Segmenter = i.Agents
		rt.Extractor = i.Agents
		rt.Logo = i.Agents
		if cfg.JudgeMode == config.JudgeAgent {
			rt.Judge = i.Agents
		}
	} else if cfg.JudgeMode == config.JudgeAgent {
		logger.Warn("agent judge requested without agents; using rule judge")
	}

	return rt
}

// Organizations converts the configured organization table. An empty
// table yields the built-in defaults. Names are sorted so identification
// is deterministic.
func Organizations(table map[string][]string) []workflow.Organization {
	if len(table) == 0 {
		return workflow.DefaultOrganizations()
	}

	orgs := make([]workflow.Organization, 0, len(table))
	for _, name := range slices.Sorted(maps.Keys(table)) {
		orgs = append(orgs, workflow.Organization{
			Name:    name,
			Aliases: slices.Clone(table[name]),
		})
	}
	return orgs
}
