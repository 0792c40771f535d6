package graph

import (
	"fmt"
	"slices"

	"golang.org/x/sync/semaphore"
)

// KeyFailures is the reserved append field collecting *StageError values
// for failed branches, so join stages can see which work items are missing.
const KeyFailures = "__failures"

// Graph is a registry of stages, edges, routers and field reducers.
// Graphs are built once and may be run many times concurrently.
type Graph struct {
	cfg      Config
	stages   map[string]*stageSpec
	order    []string
	edges    map[string][]string
	routers  map[string]*routerSpec
	fields   map[string]Reducer
	entry    string
	observer Observer
}

// Option configures a Graph at construction.
type Option func(*Graph)

// WithObserver installs stage lifecycle hooks.
func WithObserver(o Observer) Option {
	return func(g *Graph) {
		if o != nil {
			g.observer = o
		}
	}
}

// New creates an empty graph.
func New(cfg Config, opts ...Option) (*Graph, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	g := &Graph{
		cfg:      cfg,
		stages:   make(map[string]*stageSpec),
		edges:    make(map[string][]string),
		routers:  make(map[string]*routerSpec),
		fields:   map[string]Reducer{KeyFailures: Append[*StageError]()},
		observer: NoopObserver{},
	}

	for _, opt := range opts {
		opt(g)
	}

	return g, nil
}

// Name returns the configured graph name.
func (g *Graph) Name() string {
	return g.cfg.Name
}

// AddStage registers stage under name.
func (g *Graph) AddStage(name string, stage Stage, opts ...StageOption) error {
	if name == "" {
		return ErrEmptyName
	}
	if stage == nil {
		return fmt.Errorf("%w: %s", ErrNilStage, name)
	}
	if _, ok := g.stages[name]; ok {
		return &DuplicateStageError{Name: name}
	}

	spec := &stageSpec{name: name, stage: stage}
	for _, opt := range opts {
		opt(spec)
	}

	g.stages[name] = spec
	g.order = append(g.order, name)
	return nil
}

// DeclareField sets the merge policy for field. Undeclared fields replace.
func (g *Graph) DeclareField(field string, r Reducer) error {
	if field == KeyFailures {
		return fmt.Errorf("%w: %s", ErrReservedField, field)
	}
	if _, ok := g.fields[field]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateField, field)
	}
	g.fields[field] = r
	return nil
}

// AddEdge wires an unconditional transition from one stage to another.
func (g *Graph) AddEdge(from, to string) error {
	if err := g.requireStages(from, to); err != nil {
		return err
	}
	if !slices.Contains(g.edges[from], to) {
		g.edges[from] = append(g.edges[from], to)
	}
	return nil
}

// AddRouter attaches a conditional router to from. When targets are given
// the router may only send to those stages and they take part in static
// cycle detection.
func (g *Graph) AddRouter(from string, route Router, targets ...string) error {
	if err := g.requireStages(append([]string{from}, targets...)...); err != nil {
		return err
	}
	if _, ok := g.routers[from]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateRouter, from)
	}
	g.routers[from] = &routerSpec{route: route, targets: slices.Clone(targets)}
	return nil
}

// SetEntryPoint selects the stage every run starts from.
func (g *Graph) SetEntryPoint(name string) error {
	if err := g.requireStages(name); err != nil {
		return err
	}
	g.entry = name
	return nil
}

// Validate checks that an entry point exists and that no path declared by
// edges or router targets revisits a stage.
func (g *Graph) Validate() error {
	if g.entry == "" {
		return ErrNoEntryPoint
	}

	const (
		unvisited = iota
		visiting
		done
	)

	marks := make(map[string]int, len(g.stages))
	var path []string

	var visit func(name string) error
	visit = func(name string) error {
		switch marks[name] {
		case visiting:
			start := slices.Index(path, name)
			cycle := append(slices.Clone(path[start:]), name)
			return &CycleError{Path: cycle}
		case done:
			return nil
		}

		marks[name] = visiting
		path = append(path, name)

		for _, next := range g.successorsOf(name) {
			if err := visit(next); err != nil {
				return err
			}
		}

		path = path[:len(path)-1]
		marks[name] = done
		return nil
	}

	for _, name := range g.order {
		if err := visit(name); err != nil {
			return err
		}
	}
	return nil
}

func (g *Graph) successorsOf(name string) []string {
	next := slices.Clone(g.edges[name])
	if r, ok := g.routers[name]; ok {
		next = append(next, r.targets...)
	}
	return next
}

func (g *Graph) requireStages(names ...string) error {
	for _, name := range names {
		if _, ok := g.stages[name]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownStage, name)
		}
	}
	return nil
}

func (g *Graph) reducer(field string) Reducer {
	if r, ok := g.fields[field]; ok {
		return r
	}
	return Replace()
}

func (g *Graph) newSemaphore() *semaphore.Weighted {
	return semaphore.NewWeighted(int64(g.cfg.MaxConcurrency))
}

// Failures returns the stage errors recorded in s so far.
func Failures(s State) []*StageError {
	f, _ := Value[[]*StageError](s, KeyFailures)
	return f
}
