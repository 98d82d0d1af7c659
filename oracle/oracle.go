// Package oracle defines the timestamp oracle contract consumed by package
// workqueue, and a small dispatch table that selects an oracle function by
// a vertex's value, mirroring graph.Graph's use of the vertex value as an
// opaque type tag.
package oracle

// Missing is the sentinel timestamp returned for an artifact that does not
// exist. Any node whose oracle reports Missing is always out-of-date.
const Missing int64 = -1

// Oracle looks up the current timestamp of the artifact named name. Larger
// values mean "newer"; Missing (-1) means the artifact does not exist.
// Implementations must be idempotent and side-effect-free: staleness
// analysis may call an Oracle repeatedly with the same name. An Oracle may
// be invoked concurrently, including from goroutines other than the one
// that constructed the workqueue.Queue, and must be safe for that.
type Oracle func(name string) int64

// Table dispatches to an Oracle by a vertex's value, the way
// graph.Graph[K, V]'s V doubles as a selector into a small enumeration of
// artifact kinds. V must be comparable so it can key the table.
type Table[V comparable] map[V]Oracle

// For returns the oracle registered for tag, and whether one was found.
// Callers are expected to construct Table so every vertex value used in
// the graph has an entry; a missing entry means the caller wired the table
// incorrectly rather than indicating a recoverable runtime condition.
func (t Table[V]) For(tag V) (Oracle, bool) {
	fn, ok := t[tag]
	return fn, ok
}
