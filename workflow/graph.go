package workflow

import (
	"context"
	"fmt"

	"github.com/luminon/agentd/types"
)

// End is the terminal route. A router returning End stops the graph.
const End = "__end__"

// NodeFunc executes one graph node against the running turn.
type NodeFunc func(ctx context.Context, run *Run) error

// RouteFunc picks the next node after its owner has executed.
type RouteFunc func(run *Run) string

// Graph is a named-node state machine with conditional edges. Nodes
// mutate the Run; routers inspect it to pick the next node.
type Graph struct {
	nodes  map[string]NodeFunc
	edges  map[string]string
	routes map[string]RouteFunc
	entry  string

	// maxSteps bounds total node executions so a miswired graph cannot
	// spin forever. The tool-round cap is enforced separately.
	maxSteps int

	// onStep runs after every successfully executed node.
	onStep NodeFunc
}

func NewGraph(entry string) *Graph {
	return &Graph{
		nodes:    make(map[string]NodeFunc),
		edges:    make(map[string]string),
		routes:   make(map[string]RouteFunc),
		entry:    entry,
		maxSteps: 128,
	}
}

// AddNode registers a node under name.
func (g *Graph) AddNode(name string, fn NodeFunc) *Graph {
	g.nodes[name] = fn
	return g
}

// AddEdge adds an unconditional edge from one node to the next.
func (g *Graph) AddEdge(from, to string) *Graph {
	g.edges[from] = to
	return g
}

// AddRouter adds a conditional edge evaluated after from executes.
func (g *Graph) AddRouter(from string, route RouteFunc) *Graph {
	g.routes[from] = route
	return g
}

// OnStep registers a hook run after each node completes. The engine uses
// it to checkpoint thread state, so a cancelled run keeps everything up
// to the last finished node.
func (g *Graph) OnStep(fn NodeFunc) *Graph {
	g.onStep = fn
	return g
}

// Execute walks the graph from the entry node until a route returns End.
func (g *Graph) Execute(ctx context.Context, run *Run) error {
	current := g.entry
	for steps := 0; ; steps++ {
		if steps >= g.maxSteps {
			return types.NewError(types.ErrInternal, fmt.Sprintf("graph exceeded %d steps", g.maxSteps))
		}
		if err := ctx.Err(); err != nil {
			return types.NewError(types.ErrInternal, "run cancelled").WithCause(err)
		}
		node, ok := g.nodes[current]
		if !ok {
			return types.NewError(types.ErrInternal, "unknown graph node: "+current)
		}
		if err := node(ctx, run); err != nil {
			return err
		}
		if g.onStep != nil {
			if err := g.onStep(ctx, run); err != nil {
				return err
			}
		}

		if route, ok := g.routes[current]; ok {
			current = route(run)
		} else if next, ok := g.edges[current]; ok {
			current = next
		} else {
			current = End
		}
		if current == End {
			return nil
		}
	}
}
