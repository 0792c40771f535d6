package graph

import "context"

// Stage transforms a state view into a partial update.
type Stage interface {
	Run(ctx context.Context, s State) (Update, error)
}

// StageFunc adapts a function to Stage.
type StageFunc func(ctx context.Context, s State) (Update, error)

func (f StageFunc) Run(ctx context.Context, s State) (Update, error) {
	return f(ctx, s)
}

// Send schedules one invocation of Stage. A zero State gives the branch the
// merged run state, or the sender's view when the sender is itself narrowed;
// a non-zero State is the narrowed view the branch receives.
type Send struct {
	Stage string
	State State
}

// To schedules stage with the merged run state.
func To(stage string) Send {
	return Send{Stage: stage}
}

// Router picks the next stages after the stage it is attached to.
// Returning the same stage several times fans out into independent branches.
type Router func(s State) []Send

// StageOption configures a registered stage.
type StageOption func(*stageSpec)

// Deferred holds the stage until no other work is runnable. Every trigger
// collected while it waits collapses into a single invocation, which makes
// deferred stages the join point for fan-out branches.
func Deferred() StageOption {
	return func(s *stageSpec) {
		s.deferred = true
	}
}

type stageSpec struct {
	name     string
	stage    Stage
	deferred bool
}

type routerSpec struct {
	route   Router
	targets []string
}
