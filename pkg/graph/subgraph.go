package graph

import "context"

// Projection maps the final state of an inner run to the outer update.
type Projection func(s State) (Update, error)

type subgraph struct {
	graph   *Graph
	project Projection
}

// Subgraph adapts g into a Stage. The inner run starts from the stage's
// input view, and project selects what flows back to the outer graph.
// Any inner failure fails the outer stage.
func Subgraph(g *Graph, project Projection) Stage {
	return &subgraph{graph: g, project: project}
}

func (s *subgraph) Run(ctx context.Context, in State) (Update, error) {
	out, err := s.graph.Run(ctx, in)
	if err != nil {
		return nil, err
	}
	return s.project(out)
}
