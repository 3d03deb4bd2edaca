package graph

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/equityscribe/equityscribe/internal/models"
)

// Runner executes a compiled graph. Safe for concurrent use; each Invoke
// owns its state copy for the duration of the run.
type Runner struct {
	graph    *Graph
	indegree map[string]int
	log      *zap.SugaredLogger
}

// WithLogger attaches a logger for per-node timing. A nil logger disables
// logging.
func (r *Runner) WithLogger(log *zap.SugaredLogger) *Runner {
	r.log = log
	return r
}

type nodeResult struct {
	name  string
	delta models.Delta
	err   error
}

// Invoke runs the workflow to completion and returns the fully populated
// state. Independent nodes run concurrently; a joining node is dispatched
// only once all of its predecessors have completed and their deltas have
// been merged. The first node error cancels the remaining work and is
// returned as the single run-level failure; no partial state is returned
// with a nil error.
func (r *Runner) Invoke(ctx context.Context, initial models.ResearchState) (models.ResearchState, error) {
	state := initial

	pending := make(map[string]int, len(r.indegree))
	for name, d := range r.indegree {
		pending[name] = d
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan nodeResult)
	var wg sync.WaitGroup

	dispatch := func(name string) {
		node := r.graph.nodes[name]
		snapshot := state
		wg.Add(1)
		go func() {
			defer wg.Done()
			started := time.Now()
			delta, err := node.Run(runCtx, snapshot)
			if r.log != nil {
				r.log.Debugw("node finished", "node", name, "duration", time.Since(started), "err", err)
			}
			select {
			case results <- nodeResult{name: name, delta: delta, err: err}:
			case <-runCtx.Done():
			}
		}()
	}

	running := 1
	dispatch(r.graph.entry)

	var runErr error
	for running > 0 {
		res := <-results
		running--

		if res.err != nil {
			runErr = fmt.Errorf("stage %s: %w", res.name, res.err)
			cancel()
			break
		}

		if err := r.merge(&state, res.name, res.delta); err != nil {
			runErr = err
			cancel()
			break
		}

		// A successor becomes ready once its last predecessor merges.
		for _, next := range r.graph.edges[res.name] {
			pending[next]--
			if pending[next] == 0 {
				running++
				dispatch(next)
			}
		}
	}

	cancel()
	wg.Wait()

	if runErr != nil {
		return models.ResearchState{}, runErr
	}
	if err := ctx.Err(); err != nil {
		return models.ResearchState{}, err
	}
	return state, nil
}

// merge applies a node's delta, checking it produced exactly its declared
// fields. Declared-but-absent fields and undeclared extras are both
// rejected so ownership violations surface immediately.
func (r *Runner) merge(state *models.ResearchState, name string, delta models.Delta) error {
	node := r.graph.nodes[name]

	declared := make(map[models.Field]bool, len(node.Produces))
	for _, f := range node.Produces {
		declared[f] = true
		if _, ok := delta[f]; !ok {
			return fmt.Errorf("stage %s: declared field %q missing from output", name, f)
		}
	}
	for f := range delta {
		if !declared[f] {
			return fmt.Errorf("stage %s: produced undeclared field %q", name, f)
		}
	}

	if err := state.Apply(delta); err != nil {
		return fmt.Errorf("stage %s: %w", name, err)
	}
	return nil
}
