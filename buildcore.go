// Package buildcore provides the core of a build-system library: a
// dependency graph with cycle detection (package graph) and a
// timestamp-driven incremental work queue (package workqueue) that drives
// concurrent workers. See the subpackages for the actual API; this file
// holds error taxonomy shared by both.
package buildcore

import "golang.org/x/xerrors"

// Error kinds shared across the graph and workqueue packages. Callers
// compare against these with errors.Is; wrapping context is added with
// xerrors.Errorf("...: %w", ErrX).
var (
	// ErrNotFound indicates a vertex or key was referenced but does not
	// exist in the graph.
	ErrNotFound = xerrors.New("buildcore: not found")

	// ErrDuplicate indicates an attempt to insert a vertex key that
	// already exists.
	ErrDuplicate = xerrors.New("buildcore: duplicate key")

	// ErrTypeMismatch indicates API misuse, such as passing a value that
	// is not a sequence where one is required.
	ErrTypeMismatch = xerrors.New("buildcore: type mismatch")

	// ErrUniqueness indicates a uniquestack invariant was violated.
	ErrUniqueness = xerrors.New("buildcore: uniqueness violated")

	// ErrStaleCompletion indicates mark_done was called for an artifact
	// whose timestamp did not advance past all of its predecessors'.
	ErrStaleCompletion = xerrors.New("buildcore: stale completion")

	// ErrAborted indicates the work queue's error flag is latched; it is
	// surfaced by any subsequent guarded operation.
	ErrAborted = xerrors.New("buildcore: aborted")
)
