// Package graph is an explicit DAG executor for the research workflow.
// Stages are named nodes with declared produced fields; edges declare the
// join barriers. The runner dispatches independent nodes concurrently and
// starts a joining node only after every one of its predecessors has
// completed and merged its delta, so fan-out order never affects which
// fields end up populated.
package graph

import (
	"context"
	"fmt"

	"github.com/equityscribe/equityscribe/internal/models"
)

// NodeFunc runs one stage against a read-only snapshot of the state and
// returns the fields it produced. A non-nil error aborts the whole run.
type NodeFunc func(ctx context.Context, state models.ResearchState) (models.Delta, error)

// Node is one named stage of the workflow.
type Node struct {
	Name     string
	Produces []models.Field
	Run      NodeFunc
}

// Graph is the build-time description of the workflow: nodes, edges and
// an entry point. Compile validates it into a Runner.
type Graph struct {
	nodes map[string]*Node
	order []string // insertion order, keeps Compile deterministic
	edges map[string][]string
	entry string
}

func New() *Graph {
	return &Graph{
		nodes: make(map[string]*Node),
		edges: make(map[string][]string),
	}
}

// AddNode registers a stage. Node names and produced fields must be
// unique across the graph; each state field has exactly one writer.
func (g *Graph) AddNode(n *Node) error {
	if n == nil || n.Name == "" {
		return fmt.Errorf("graph: node must have a name")
	}
	if _, exists := g.nodes[n.Name]; exists {
		return fmt.Errorf("graph: duplicate node %q", n.Name)
	}
	g.nodes[n.Name] = n
	g.order = append(g.order, n.Name)
	return nil
}

// AddEdge declares that "to" must wait for "from". A joining node simply
// has several incoming edges.
func (g *Graph) AddEdge(from, to string) error {
	if _, ok := g.nodes[from]; !ok {
		return fmt.Errorf("graph: edge from unknown node %q", from)
	}
	if _, ok := g.nodes[to]; !ok {
		return fmt.Errorf("graph: edge to unknown node %q", to)
	}
	g.edges[from] = append(g.edges[from], to)
	return nil
}

// SetEntry marks the node the run starts from.
func (g *Graph) SetEntry(name string) error {
	if _, ok := g.nodes[name]; !ok {
		return fmt.Errorf("graph: unknown entry node %q", name)
	}
	g.entry = name
	return nil
}

// Compile validates the graph and returns an executable Runner. It
// rejects graphs with duplicate field writers, cycles, or nodes
// unreachable from the entry point.
func (g *Graph) Compile() (*Runner, error) {
	if g.entry == "" {
		return nil, fmt.Errorf("graph: entry point not set")
	}

	writers := make(map[models.Field]string)
	for _, name := range g.order {
		for _, f := range g.nodes[name].Produces {
			if prev, dup := writers[f]; dup {
				return nil, fmt.Errorf("graph: field %q written by both %q and %q", f, prev, name)
			}
			writers[f] = name
		}
	}

	indegree := make(map[string]int, len(g.nodes))
	for _, name := range g.order {
		indegree[name] = 0
	}
	for _, tos := range g.edges {
		for _, to := range tos {
			indegree[to]++
		}
	}

	// Kahn's algorithm doubles as the cycle check.
	queue := make([]string, 0, len(g.nodes))
	remaining := make(map[string]int, len(indegree))
	for name, d := range indegree {
		remaining[name] = d
		if d == 0 {
			queue = append(queue, name)
		}
	}
	visited := 0
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		visited++
		for _, to := range g.edges[name] {
			remaining[to]--
			if remaining[to] == 0 {
				queue = append(queue, to)
			}
		}
	}
	if visited != len(g.nodes) {
		return nil, fmt.Errorf("graph: cycle detected")
	}

	if indegree[g.entry] != 0 {
		return nil, fmt.Errorf("graph: entry node %q has incoming edges", g.entry)
	}

	reachable := make(map[string]bool, len(g.nodes))
	stack := []string{g.entry}
	for len(stack) > 0 {
		name := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if reachable[name] {
			continue
		}
		reachable[name] = true
		stack = append(stack, g.edges[name]...)
	}
	for _, name := range g.order {
		if !reachable[name] {
			return nil, fmt.Errorf("graph: node %q unreachable from entry %q", name, g.entry)
		}
	}

	return &Runner{graph: g, indegree: indegree}, nil
}
