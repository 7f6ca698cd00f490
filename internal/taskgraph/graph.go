// Package taskgraph runs named tasks in dependency order on a worker pool.
package taskgraph

import (
	"container/heap"
	"context"
	"sort"
)

// Gate reports whether a task has completed successfully. A running task
// receives the scheduler's gate so it can check its own preconditions.
type Gate interface {
	Completed(name string) bool
}

// Task is one node of the graph.
type Task struct {
	Name  string
	After []string
	Run   func(ctx context.Context, gate Gate) error
}

type node struct {
	task  Task
	index int
}

// Graph is a validated, immutable DAG of tasks.
type Graph struct {
	nodes    []*node
	byName   map[string]*node
	incoming [][]int
	outgoing [][]int
	indeg    []int
	rank     []int
}

// New validates tasks and builds the graph. Canonical node order is by name,
// so every derived ordering is independent of declaration order.
func New(tasks []Task) (*Graph, error) {
	sorted := append([]Task(nil), tasks...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	g := &Graph{byName: make(map[string]*node, len(sorted))}
	for i, t := range sorted {
		if t.Name == "" {
			return nil, invalidf("task name must not be empty")
		}
		if _, dup := g.byName[t.Name]; dup {
			return nil, invalidf("duplicate task %q", t.Name)
		}
		n := &node{task: t, index: i}
		g.nodes = append(g.nodes, n)
		g.byName[t.Name] = n
	}

	g.incoming = make([][]int, len(g.nodes))
	g.outgoing = make([][]int, len(g.nodes))
	g.indeg = make([]int, len(g.nodes))
	for _, n := range g.nodes {
		seen := make(map[string]bool, len(n.task.After))
		for _, dep := range n.task.After {
			if dep == n.task.Name {
				return nil, invalidf("task %q depends on itself", dep)
			}
			if seen[dep] {
				continue
			}
			seen[dep] = true
			d, ok := g.byName[dep]
			if !ok {
				return nil, invalidf("task %q depends on unknown task %q", n.task.Name, dep)
			}
			g.incoming[n.index] = append(g.incoming[n.index], d.index)
			g.outgoing[d.index] = append(g.outgoing[d.index], n.index)
			g.indeg[n.index]++
		}
	}
	for i := range g.outgoing {
		sort.Ints(g.outgoing[i])
		sort.Ints(g.incoming[i])
	}

	order := g.topoOrderIndices()
	if len(order) != len(g.nodes) {
		return nil, cycleError(g.findCycleDeterministic())
	}
	g.rank = make([]int, len(g.nodes))
	for r, idx := range order {
		g.rank[idx] = r
	}
	return g, nil
}

// Order returns the task names in deterministic topological order.
func (g *Graph) Order() []string {
	out := make([]string, 0, len(g.nodes))
	for _, idx := range g.topoOrderIndices() {
		out = append(out, g.nodes[idx].task.Name)
	}
	return out
}

// Len returns the number of tasks.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Predecessors returns the direct predecessors of name, sorted.
func (g *Graph) Predecessors(name string) []string {
	n, ok := g.byName[name]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(g.incoming[n.index]))
	for _, idx := range g.incoming[n.index] {
		out = append(out, g.nodes[idx].task.Name)
	}
	return out
}

type intMinHeap []int

func (h intMinHeap) Len() int           { return len(h) }
func (h intMinHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h intMinHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *intMinHeap) Push(x any)        { *h = append(*h, x.(int)) }
func (h *intMinHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// topoOrderIndices is Kahn's algorithm with a min-heap ready queue.
func (g *Graph) topoOrderIndices() []int {
	indeg := append([]int(nil), g.indeg...)

	ready := &intMinHeap{}
	for i := range indeg {
		if indeg[i] == 0 {
			heap.Push(ready, i)
		}
	}

	out := make([]int, 0, len(indeg))
	for ready.Len() > 0 {
		n := heap.Pop(ready).(int)
		out = append(out, n)
		for _, m := range g.outgoing[n] {
			indeg[m]--
			if indeg[m] == 0 {
				heap.Push(ready, m)
			}
		}
	}
	return out
}

// findCycleDeterministic extracts one stable cycle witness by DFS over
// canonical indices.
func (g *Graph) findCycleDeterministic() []string {
	const (
		white = 0
		gray  = 1
		black = 2
	)

	color := make([]int, len(g.nodes))
	parent := make([]int, len(g.nodes))
	for i := range parent {
		parent[i] = -1
	}

	var cycle []int
	var dfs func(u int) bool
	dfs = func(u int) bool {
		color[u] = gray
		for _, v := range g.outgoing[u] {
			switch color[v] {
			case white:
				parent[v] = u
				if dfs(v) {
					return true
				}
			case gray:
				cycle = append(cycle, v)
				for cur := u; cur != -1 && cur != v; cur = parent[cur] {
					cycle = append(cycle, cur)
				}
				cycle = append(cycle, v)
				return true
			}
		}
		color[u] = black
		return false
	}

	for i := range g.nodes {
		if color[i] == white && dfs(i) {
			break
		}
	}

	out := make([]string, 0, len(cycle))
	for i := len(cycle) - 1; i >= 0; i-- {
		out = append(out, g.nodes[cycle[i]].task.Name)
	}
	return out
}
