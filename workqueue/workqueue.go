// Package workqueue implements timestamp-driven incremental staleness
// analysis over a package graph.Graph, plus a thread-safe ready/in-progress
// state machine that coordinates concurrent workers the way
// internal/batch's scheduler coordinates distri package builds — except
// here workers pull work via Queue.GetItem rather than reading from a Go
// channel, because completion needs to re-validate an artifact's timestamp
// against its predecessors' (Queue.MarkDone) before releasing dependents,
// which a plain channel-based fan-out cannot express.
package workqueue

import (
	"sync"

	"github.com/distr1/buildcore"
	"github.com/distr1/buildcore/graph"
	"github.com/distr1/buildcore/oracle"
	"golang.org/x/xerrors"
)

// Queue drives an incremental, concurrent build over a graph.Graph rooted
// at a single start node. Construction performs one-time staleness
// analysis; thereafter GetItem/MarkDone/MarkError form the worker-facing
// API. A Queue is safe for concurrent use by multiple goroutines. The graph
// it was built from must not be mutated afterwards.
//
// Behavior is unspecified if g contains a cycle reachable from start;
// callers should reject cyclic graphs with g.IsCyclic() before calling New.
type Queue[V comparable] struct {
	g       *graph.Graph[string, V]
	oracles oracle.Table[V]

	mu   sync.Mutex
	cond *sync.Cond

	timestamps map[string]int64
	depends    map[string]map[string]struct{} // unfinished out-of-date predecessors
	outOfDate  map[string]struct{}
	inDate     map[string]struct{}
	ready      map[string]struct{}
	inprogress map[string]struct{}
	err        bool
}

// New constructs a Queue over g rooted at start, using oracles to look up
// each touched artifact's timestamp, and runs the staleness analysis
// described on analyze immediately.
func New[V comparable](g *graph.Graph[string, V], start string, oracles oracle.Table[V]) (*Queue[V], error) {
	if !g.Contains(start) {
		return nil, xerrors.Errorf("workqueue: start %q: %w", start, buildcore.ErrNotFound)
	}
	q := &Queue[V]{
		g:          g,
		oracles:    oracles,
		timestamps: make(map[string]int64),
		depends:    make(map[string]map[string]struct{}),
		outOfDate:  make(map[string]struct{}),
		inDate:     make(map[string]struct{}),
		ready:      make(map[string]struct{}),
		inprogress: make(map[string]struct{}),
	}
	q.cond = sync.NewCond(&q.mu)
	if err := q.analyze(start); err != nil {
		return nil, err
	}
	return q, nil
}

// timestamp looks up n's current timestamp via the oracle selected by its
// vertex value.
func (q *Queue[V]) timestamp(n string) (int64, error) {
	tag, err := q.g.Get(n)
	if err != nil {
		return 0, err
	}
	fn, ok := q.oracles.For(tag)
	if !ok {
		return 0, xerrors.Errorf("workqueue: no oracle registered for %q's value: %w", n, buildcore.ErrNotFound)
	}
	return fn(n), nil
}

// analyze performs the one-time staleness pass: deepest-first over start's
// transitive predecessors (so that by the time a node is classified, every
// one of its prerequisites already has been), then over start itself.
func (q *Queue[V]) analyze(start string) error {
	preds, err := q.g.GetAllPredecessors(start)
	if err != nil {
		return err
	}
	order := append(preds, start)

	for _, n := range order {
		ts, err := q.timestamp(n)
		if err != nil {
			return err
		}
		q.timestamps[n] = ts
	}

	for _, n := range order {
		directPreds, err := q.g.GetDirectPredecessors(n)
		if err != nil {
			return err
		}

		stale := q.timestamps[n] == oracle.Missing
		if !stale {
			for _, p := range directPreds {
				if q.timestamps[p] > q.timestamps[n] {
					stale = true
					break
				}
				if _, isOOD := q.outOfDate[p]; isOOD {
					stale = true
					break
				}
			}
		}

		if !stale {
			q.inDate[n] = struct{}{}
			continue
		}

		q.outOfDate[n] = struct{}{}
		deps := make(map[string]struct{})
		for _, p := range directPreds {
			if _, isOOD := q.outOfDate[p]; isOOD {
				deps[p] = struct{}{}
			}
		}
		q.depends[n] = deps
		if len(deps) == 0 {
			q.ready[n] = struct{}{}
		}
	}
	return nil
}

// doneLocked reports whether no work remains, or the error flag is
// latched. Callers must hold q.mu.
func (q *Queue[V]) doneLocked() bool {
	return len(q.outOfDate) == 0 || q.err
}

// Done reports whether the queue has no more work to dispatch, or has been
// aborted via MarkError.
func (q *Queue[V]) Done() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.doneLocked()
}

// ReadyCount returns the number of items currently eligible for dispatch.
func (q *Queue[V]) ReadyCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ready)
}

// GetItem returns the name of an out-of-date artifact with no remaining
// out-of-date prerequisites, moving it into the in-progress set. If no
// item is ready and wait is false, GetItem returns ("", false, nil). If
// wait is true, GetItem blocks until an item becomes ready or the queue
// becomes done. Once the queue is done, GetItem returns ("", false, nil)
// — unless it is done because MarkError was called, in which case it
// returns a wrapped buildcore.ErrAborted instead of failing silently.
func (q *Queue[V]) GetItem(wait bool) (name string, ok bool, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for {
		if q.doneLocked() {
			if q.err {
				return "", false, xerrors.Errorf("workqueue: %w", buildcore.ErrAborted)
			}
			return "", false, nil
		}
		if len(q.ready) > 0 {
			break
		}
		if !wait {
			return "", false, nil
		}
		q.cond.Wait()
	}

	for n := range q.ready {
		name = n
		break
	}
	delete(q.ready, name)
	q.inprogress[name] = struct{}{}
	return name, true, nil
}

// MarkDone reports that name's external work finished and its artifact was
// refreshed. MarkDone re-reads name's timestamp from the oracle and fails
// with buildcore.ErrStaleCompletion if any direct predecessor's timestamp
// is still newer — the worker claimed completion without actually
// refreshing the artifact. On success, any direct successor whose last
// out-of-date prerequisite was name becomes ready.
func (q *Queue[V]) MarkDone(name string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.inprogress[name]; !ok {
		return xerrors.Errorf("workqueue: mark done %q: not in progress: %w", name, buildcore.ErrNotFound)
	}

	ts, err := q.timestamp(name)
	if err != nil {
		return err
	}
	q.timestamps[name] = ts

	preds, err := q.g.GetDirectPredecessors(name)
	if err != nil {
		return err
	}
	for _, p := range preds {
		if q.timestamps[p] > ts {
			return xerrors.Errorf("workqueue: mark done %q: predecessor %q is newer (%d > %d): %w",
				name, p, q.timestamps[p], ts, buildcore.ErrStaleCompletion)
		}
	}

	delete(q.outOfDate, name)
	delete(q.inprogress, name)

	succs, err := q.g.GetDirectSuccessors(name)
	if err != nil {
		return err
	}
	for _, s := range succs {
		deps, ok := q.depends[s]
		if !ok {
			continue
		}
		delete(deps, name)
		if len(deps) == 0 {
			q.ready[s] = struct{}{}
		}
	}

	if q.doneLocked() {
		q.cond.Broadcast()
	} else {
		for i := 0; i < len(q.ready); i++ {
			q.cond.Signal()
		}
	}
	return nil
}

// MarkError latches the queue's abort flag and wakes every waiter. Once
// called, GetItem fails with buildcore.ErrAborted instead of dispatching
// further work.
func (q *Queue[V]) MarkError() {
	q.mu.Lock()
	q.err = true
	q.mu.Unlock()
	q.cond.Broadcast()
}
