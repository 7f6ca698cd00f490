package taskgraph

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// TaskResult is the outcome of one task.
type TaskResult struct {
	State    State
	Err      error
	Duration time.Duration
	// SkippedBy names the failed predecessor that caused a skip. Empty when
	// the task was skipped by cancellation.
	SkippedBy string
}

// Result is the outcome of a graph run.
type Result struct {
	Tasks map[string]TaskResult
	// Finished lists tasks in the order they reached Completed or Failed.
	Finished []string
}

// Failed returns the names of failed tasks, sorted.
func (r *Result) Failed() []string {
	var out []string
	for name, tr := range r.Tasks {
		if tr.State == Failed {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// OK reports whether every task completed.
func (r *Result) OK() bool {
	for _, tr := range r.Tasks {
		if tr.State != Completed {
			return false
		}
	}
	return true
}

// Execution holds the mutable state of one graph run. It implements Gate.
type Execution struct {
	g *Graph

	mu      sync.Mutex
	state   []State
	results []TaskResult
	order   []string
}

// NewExecution prepares a run with every task Pending.
func (g *Graph) NewExecution() *Execution {
	return &Execution{
		g:       g,
		state:   make([]State, len(g.nodes)),
		results: make([]TaskResult, len(g.nodes)),
	}
}

// Run executes g on a fresh Execution.
func (g *Graph) Run(ctx context.Context, workers int) *Result {
	return g.NewExecution().Run(ctx, workers)
}

// Completed implements Gate.
func (e *Execution) Completed(name string) bool {
	n, ok := e.g.byName[name]
	if !ok {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state[n.index] == Completed
}

// State returns the current state of a task.
func (e *Execution) State(name string) (State, bool) {
	n, ok := e.g.byName[name]
	if !ok {
		return Pending, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state[n.index], true
}

type done struct {
	index    int
	err      error
	duration time.Duration
}

// Run dispatches ready tasks to up to workers goroutines (at least one).
// A failed task skips only its transitive dependents. Once ctx is done no
// further tasks start and the remaining ones are marked Skipped.
func (e *Execution) Run(ctx context.Context, workers int) *Result {
	if workers < 1 {
		workers = 1
	}

	doneCh := make(chan done, len(e.g.nodes))
	inFlight := 0

	for {
		e.mu.Lock()
		if ctx.Err() != nil {
			e.skipPending(ctx.Err())
		}
		for _, idx := range e.ready() {
			if inFlight >= workers {
				break
			}
			e.transition(idx, Running)
			inFlight++
			go e.runTask(ctx, idx, doneCh)
		}
		e.mu.Unlock()

		if inFlight == 0 {
			break
		}

		d := <-doneCh
		inFlight--

		e.mu.Lock()
		name := e.g.nodes[d.index].task.Name
		e.results[d.index].Duration = d.duration
		e.order = append(e.order, name)
		if d.err == nil {
			e.transition(d.index, Completed)
		} else {
			e.results[d.index].Err = d.err
			e.transition(d.index, Failed)
			e.skipDependents(d.index, name)
		}
		e.mu.Unlock()
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	// Anything still pending had an unreachable predecessor.
	e.skipPending(nil)

	res := &Result{Tasks: make(map[string]TaskResult, len(e.g.nodes)), Finished: append([]string(nil), e.order...)}
	for i, n := range e.g.nodes {
		tr := e.results[i]
		tr.State = e.state[i]
		res.Tasks[n.task.Name] = tr
	}
	return res
}

func (e *Execution) runTask(ctx context.Context, idx int, doneCh chan<- done) {
	t := e.g.nodes[idx].task
	start := time.Now()
	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = &PanicError{Task: t.Name, Value: r}
			}
		}()
		if t.Run != nil {
			err = t.Run(ctx, e)
		}
	}()
	doneCh <- done{index: idx, err: err, duration: time.Since(start)}
}

// ready returns pending tasks whose predecessors all completed, in
// topological rank order. Caller holds e.mu.
func (e *Execution) ready() []int {
	var out []int
	for i := range e.g.nodes {
		if e.state[i] != Pending {
			continue
		}
		ok := true
		for _, p := range e.g.incoming[i] {
			if e.state[p] != Completed {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, i)
		}
	}
	sort.Slice(out, func(a, b int) bool { return e.g.rank[out[a]] < e.g.rank[out[b]] })
	return out
}

// skipDependents marks every pending transitive dependent of idx Skipped.
// Caller holds e.mu.
func (e *Execution) skipDependents(idx int, cause string) {
	stack := append([]int(nil), e.g.outgoing[idx]...)
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if e.state[n] != Pending {
			continue
		}
		e.transition(n, Skipped)
		e.results[n].SkippedBy = cause
		stack = append(stack, e.g.outgoing[n]...)
	}
}

// skipPending marks all pending tasks Skipped. Caller holds e.mu.
func (e *Execution) skipPending(cause error) {
	for i := range e.state {
		if e.state[i] == Pending {
			e.transition(i, Skipped)
			if cause != nil {
				e.results[i].Err = cause
			}
		}
	}
}

// transition panics on a disallowed move; that is a scheduler bug.
func (e *Execution) transition(idx int, to State) {
	from := e.state[idx]
	if !allowedTransition(from, to) {
		panic(fmt.Sprintf("taskgraph: disallowed transition for %q: %s -> %s", e.g.nodes[idx].task.Name, from, to))
	}
	e.state[idx] = to
}
