package workflow

import (
	"log/slog"
	"runtime"
	"time"

	"github.com/JaimeStill/attest/pkg/graph"
	"github.com/JaimeStill/attest/pkg/marks"
	"github.com/JaimeStill/attest/pkg/rules"
)

// Runtime bundles the dependencies that pipeline stages require.
// It is constructed by higher-level composition code from Infrastructure and the agents.
type Runtime struct {
	Segmenter     Segmenter
	Extractor     Extractor
	Logo          LogoInspector
	Judge         Judge
	Renderer      Renderer
	Detector      *marks.Detector
	Matcher       rules.Matcher
	Organizations []Organization

	MaxConcurrency int
	Timeout        time.Duration

	Observer graph.Observer
	Logger   *slog.Logger
}

func workerCount(n int) int {
	return max(min(runtime.NumCPU(), n), 1)
}
