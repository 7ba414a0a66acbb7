package graph

import (
	"context"
	"fmt"

	"ai-learnpath-be/pkg/agent/state"
)

// NodeFunc executes one node against the shared turn state.
type NodeFunc func(context.Context, *state.AgentState) error

// ConditionFunc picks the label of the outgoing edge to follow.
type ConditionFunc func(*state.AgentState) string

// Observer receives node lifecycle callbacks during execution.
type Observer interface {
	NodeStart(name string)
	NodeEnd(name string)
}

// Node is one state of the turn machine. A node runs its function (if any),
// then either follows its static Next edge or evaluates Condition against
// NextMap to choose a branch.
type Node struct {
	Name      string
	Run       NodeFunc
	Next      string
	Condition ConditionFunc
	NextMap   map[string]string
	Terminal  bool
}

// Graph is a directed graph of nodes with conditional edges, executed
// sequentially from the start node until a terminal node is reached.
type Graph struct {
	nodes     map[string]*Node
	start     string
	maxVisits int
}

func New() *Graph {
	return &Graph{
		nodes:     make(map[string]*Node),
		maxVisits: 10,
	}
}

func (g *Graph) add(node *Node) {
	if node.Name == "" {
		panic("graph: node name cannot be empty")
	}
	if _, exists := g.nodes[node.Name]; exists {
		panic(fmt.Sprintf("graph: node %s already exists", node.Name))
	}
	g.nodes[node.Name] = node
}

// Execute walks the graph from the start node, running each node and
// following edges until a terminal node. A node revisited more than
// maxVisits times aborts execution; the graph is expected to be acyclic but
// the guard keeps a mis-wired edge from spinning forever.
func (g *Graph) Execute(ctx context.Context, st *state.AgentState, obs Observer) error {
	if g.start == "" {
		return fmt.Errorf("graph: start node not set")
	}

	visited := make(map[string]int)
	current := g.start

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		node, exists := g.nodes[current]
		if !exists {
			return fmt.Errorf("graph: node %s not found", current)
		}

		visited[current]++
		if visited[current] > g.maxVisits {
			return fmt.Errorf("graph: loop detected at node %s", current)
		}

		if obs != nil {
			obs.NodeStart(current)
		}
		if node.Run != nil {
			if err := node.Run(ctx, st); err != nil {
				if obs != nil {
					obs.NodeEnd(current)
				}
				return fmt.Errorf("graph: node %s: %w", current, err)
			}
		}
		if obs != nil {
			obs.NodeEnd(current)
		}

		if node.Terminal {
			return nil
		}

		next, err := g.resolveNext(node, st)
		if err != nil {
			return err
		}
		current = next
	}
}

func (g *Graph) resolveNext(node *Node, st *state.AgentState) (string, error) {
	if node.Condition != nil {
		label := node.Condition(st)
		next, ok := node.NextMap[label]
		if !ok {
			return "", fmt.Errorf("graph: node %s has no edge for label %q", node.Name, label)
		}
		return next, nil
	}
	if node.Next == "" {
		return "", fmt.Errorf("graph: node %s has no next node", node.Name)
	}
	return node.Next, nil
}

// Builder assembles graphs fluently.
type Builder struct {
	graph *Graph
}

func NewBuilder() *Builder {
	return &Builder{graph: New()}
}

// AddNode registers a plain node. Wire its outgoing edge with Edge or
// ConditionalEdge.
func (b *Builder) AddNode(name string, run NodeFunc) *Builder {
	b.graph.add(&Node{Name: name, Run: run})
	return b
}

// AddTerminal registers a node that ends execution after running.
func (b *Builder) AddTerminal(name string, run NodeFunc) *Builder {
	b.graph.add(&Node{Name: name, Run: run, Terminal: true})
	return b
}

// Edge sets the static next node of from.
func (b *Builder) Edge(from, to string) *Builder {
	node, exists := b.graph.nodes[from]
	if !exists {
		panic(fmt.Sprintf("graph: node %s not found", from))
	}
	node.Next = to
	return b
}

// ConditionalEdge routes from via cond: the returned label selects the next
// node from edges.
func (b *Builder) ConditionalEdge(from string, cond ConditionFunc, edges map[string]string) *Builder {
	node, exists := b.graph.nodes[from]
	if !exists {
		panic(fmt.Sprintf("graph: node %s not found", from))
	}
	node.Condition = cond
	node.NextMap = edges
	return b
}

// SetStart marks the entry node.
func (b *Builder) SetStart(name string) *Builder {
	if _, exists := b.graph.nodes[name]; !exists {
		panic(fmt.Sprintf("graph: node %s not found", name))
	}
	b.graph.start = name
	return b
}

// SetMaxVisits overrides the per-node revisit guard.
func (b *Builder) SetMaxVisits(n int) *Builder {
	b.graph.maxVisits = n
	return b
}

func (b *Builder) Build() *Graph {
	return b.graph
}
