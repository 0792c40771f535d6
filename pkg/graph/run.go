package graph

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

type task struct {
	stage    string
	input    State
	narrowed bool
	branch   int
	path     []string
}

type outcome struct {
	index  int
	task   task
	input  State
	update Update
	err    error
}

type run struct {
	graph     *Graph
	id        uuid.UUID
	state     State
	sem       *semaphore.Weighted
	branches  int
	completed []string
	failures  []*StageError
}

// Run executes the graph from its entry point until no stage is reachable.
//
// Stages scheduled together form a step and run concurrently; their updates
// are applied one at a time, in scheduling order, once the step settles.
// A narrowed branch keeps its view across plain edges and routes, and its
// replace writes stay in that view; only its reduced fields reach the run
// state. Branches rejoin the run state at a deferred stage.
// A failed branch does not stop its siblings: the run continues and returns
// a *RunError listing every failure alongside the final state. Configuration
// faults (cycles, conflicting replace writes, unknown targets) abort at once.
// When ctx ends first, running branches are abandoned and a *TimeoutError is
// returned with the state merged so far.
func (g *Graph) Run(ctx context.Context, initial State) (State, error) {
	if err := g.Validate(); err != nil {
		return initial, err
	}

	if g.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.Timeout)
		defer cancel()
	}

	if initial.IsZero() {
		initial = NewState(nil)
	}

	r := &run{
		graph: g,
		id:    uuid.New(),
		state: initial,
		sem:   g.newSemaphore(),
	}

	frontier := []task{r.newTask(g.entry, State{}, nil)}
	var held []task

	for step := 0; ; step++ {
		if len(frontier) == 0 {
			if len(held) == 0 {
				break
			}
			frontier, held = collapse(held), nil
		}

		if step >= g.cfg.MaxSteps {
			return r.state, fmt.Errorf("%w: graph %s stopped after %d steps", ErrStepLimit, g.cfg.Name, step)
		}

		if err := ctx.Err(); err != nil {
			return r.state, r.timeout(err, frontier)
		}

		outcomes, err := r.step(ctx, step, frontier)
		if err != nil {
			return r.state, err
		}

		next, err := r.successors(outcomes)
		if err != nil {
			return r.state, err
		}

		frontier = nil
		for _, t := range next {
			if g.stages[t.stage].deferred {
				held = append(held, t)
			} else {
				frontier = append(frontier, t)
			}
		}
		frontier = dedupe(frontier)
	}

	if len(r.failures) > 0 {
		return r.state, &RunError{Graph: g.cfg.Name, Failures: r.failures}
	}
	return r.state, nil
}

func (r *run) newTask(stage string, input State, path []string) task {
	r.branches++
	return task{
		stage:    stage,
		input:    input,
		narrowed: !input.IsZero(),
		branch:   r.branches,
		path:     path,
	}
}

func (r *run) step(ctx context.Context, step int, tasks []task) ([]*outcome, error) {
	snapshot := r.state
	results := make(chan outcome, len(tasks))

	for i, t := range tasks {
		input := t.input
		if !t.narrowed {
			input = snapshot
		}
		go r.execute(ctx, step, i, t, input, results)
	}

	outcomes := make([]*outcome, len(tasks))
	for received := 0; received < len(tasks); received++ {
		select {
		case o := <-results:
			outcomes[o.index] = &o
		case <-ctx.Done():
			if err := r.apply(outcomes); err != nil {
				return nil, err
			}
			var pending []task
			for i, o := range outcomes {
				if o == nil {
					pending = append(pending, tasks[i])
				}
			}
			return nil, r.timeout(ctx.Err(), pending)
		}
	}

	if err := r.apply(outcomes); err != nil {
		return nil, err
	}
	return outcomes, nil
}

func (r *run) execute(ctx context.Context, step, index int, t task, input State, out chan<- outcome) {
	o := outcome{index: index, task: t, input: input}
	defer func() { out <- o }()

	if err := r.sem.Acquire(ctx, 1); err != nil {
		o.err = err
		return
	}
	defer r.sem.Release(1)

	event := Event{
		RunID:  r.id,
		Graph:  r.graph.cfg.Name,
		Stage:  t.stage,
		Step:   step,
		Branch: t.branch,
	}
	sctx := r.graph.observer.StageStarted(ctx, event)
	start := time.Now()

	defer func() {
		if p := recover(); p != nil {
			o.update = nil
			o.err = fmt.Errorf("%w: %v", ErrStagePanic, p)
		}
		event.Duration = time.Since(start)
		event.Err = o.err
		r.graph.observer.StageFinished(sctx, event)
	}()

	o.update, o.err = r.graph.stages[t.stage].stage.Run(sctx, input)
}

// apply merges outcomes into the run state in scheduling order. It is only
// ever called from the goroutine driving Run.
func (r *run) apply(outcomes []*outcome) error {
	written := make(map[string]string)

	for _, o := range outcomes {
		if o == nil {
			continue
		}

		if o.err != nil {
			se := &StageError{
				Stage:  o.task.stage,
				Branch: o.task.branch,
				Input:  o.input,
				Err:    o.err,
			}
			if err := r.merge(KeyFailures, se); err != nil {
				return err
			}
			r.failures = append(r.failures, se)
			continue
		}

		for _, field := range sortedKeys(o.update) {
			if field == KeyFailures {
				return fmt.Errorf("%w: stage %s wrote %s", ErrReservedField, o.task.stage, field)
			}

			if r.graph.reducer(field).exclusive {
				if o.task.narrowed {
					continue
				}
				if prev, ok := written[field]; ok {
					return fmt.Errorf(
						"%w: field %s written by %s and %s",
						ErrConflictingUpdate, field, prev, o.task.stage,
					)
				}
				written[field] = o.task.stage
			}

			if err := r.merge(field, o.update[field]); err != nil {
				return fmt.Errorf("stage %s: %w", o.task.stage, err)
			}
		}

		r.completed = append(r.completed, o.task.stage)
	}

	return nil
}

func (r *run) merge(field string, value any) error {
	current, _ := r.state.Get(field)
	merged, err := r.graph.reducer(field).reduce(current, value)
	if err != nil {
		return fmt.Errorf("merge %s: %w", field, err)
	}
	r.state = r.state.Set(field, merged)
	return nil
}

func (r *run) successors(outcomes []*outcome) ([]task, error) {
	var next []task

	for _, o := range outcomes {
		if o.err != nil {
			continue
		}

		stage := o.task.stage
		path := append(slices.Clip(o.task.path), stage)

		var carry State
		if o.task.narrowed {
			carry = o.input.overlay(o.update)
		}

		for _, to := range r.graph.edges[stage] {
			if slices.Contains(path, to) {
				return nil, &CycleError{Path: append(slices.Clone(path), to)}
			}
			next = append(next, r.newTask(to, carry, path))
		}

		spec, ok := r.graph.routers[stage]
		if !ok {
			continue
		}

		view := r.state
		if o.task.narrowed {
			view = carry
		}

		for _, send := range spec.route(view) {
			if _, ok := r.graph.stages[send.Stage]; !ok {
				return nil, fmt.Errorf("%w: %s routed to %s", ErrUnknownStage, stage, send.Stage)
			}
			if len(spec.targets) > 0 && !slices.Contains(spec.targets, send.Stage) {
				return nil, fmt.Errorf("%w: %s routed to %s", ErrUndeclaredTarget, stage, send.Stage)
			}
			if slices.Contains(path, send.Stage) {
				return nil, &CycleError{Path: append(slices.Clone(path), send.Stage)}
			}
			input := send.State
			if input.IsZero() {
				input = carry
			}
			next = append(next, r.newTask(send.Stage, input, path))
		}
	}

	return next, nil
}

func (r *run) timeout(err error, pending []task) *TimeoutError {
	names := make([]string, len(pending))
	for i, t := range pending {
		names[i] = t.stage
	}
	return &TimeoutError{
		Graph:     r.graph.cfg.Name,
		Completed: slices.Clone(r.completed),
		Pending:   names,
		Failures:  slices.Clone(r.failures),
		Err:       err,
	}
}

// dedupe merges full-state triggers of the same stage into one task.
// Narrowed sends are distinct work items and are never merged.
func dedupe(tasks []task) []task {
	out := make([]task, 0, len(tasks))
	index := make(map[string]int)

	for _, t := range tasks {
		if t.narrowed {
			out = append(out, t)
			continue
		}
		if i, ok := index[t.stage]; ok {
			out[i].path = union(out[i].path, t.path)
			continue
		}
		index[t.stage] = len(out)
		out = append(out, t)
	}

	return out
}

// collapse joins every held trigger of a deferred stage into one
// invocation over the merged state.
func collapse(held []task) []task {
	for i := range held {
		held[i].input = State{}
		held[i].narrowed = false
	}
	return dedupe(held)
}

func union(a, b []string) []string {
	out := slices.Clone(a)
	for _, s := range b {
		if !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}

func sortedKeys(u Update) []string {
	return slices.Sorted(maps.Keys(u))
}
