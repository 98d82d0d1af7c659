// Package tsdict implements an on-disk timestamp dictionary: a name ->
// mtime map persisted as a gzip-compressed JSON file, written atomically the
// way cmd/distri/build.go persists its metadata through
// github.com/google/renameio rather than a plain os.Create+os.Rename. It
// exists to back an oracle.Oracle with durable state across process runs.
package tsdict

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/distr1/buildcore"
	"github.com/google/renameio"
	"github.com/klauspost/compress/gzip"
	"golang.org/x/xerrors"
)

// Dict is a mutable, concurrency-safe name -> timestamp store.
type Dict struct {
	path string

	mu      sync.RWMutex
	entries map[string]int64
}

// Open loads path, a gzip-compressed JSON object, into a Dict. A missing
// file is not an error: Open returns an empty Dict that will create path on
// the first Save.
func Open(path string) (*Dict, error) {
	entries := make(map[string]int64)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Dict{path: path, entries: entries}, nil
		}
		return nil, xerrors.Errorf("tsdict: open %s: %w", path, err)
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, xerrors.Errorf("tsdict: %s: not gzip: %v: %w", path, err, ErrCorrupt)
	}
	defer zr.Close()

	if err := json.NewDecoder(zr).Decode(&entries); err != nil {
		return nil, xerrors.Errorf("tsdict: %s: decode: %v: %w", path, err, ErrCorrupt)
	}
	return &Dict{path: path, entries: entries}, nil
}

// stripNamespace removes an optional "tsd::<id>/" prefix before any lookup
// or update. The prefix does not partition the Dict: "tsd::a/foo.o",
// "tsd::b/foo.o" and "foo.o" all address the same entry.
func stripNamespace(name string) string {
	if !strings.HasPrefix(name, "tsd::") {
		return name
	}
	rest := name[len("tsd::"):]
	if idx := strings.IndexByte(rest, '/'); idx >= 0 {
		return rest[idx+1:]
	}
	return rest
}

// Time returns name's recorded timestamp, or oracle.Missing-compatible -1
// if name has never been touched. Time is itself an oracle.Oracle.
func (d *Dict) Time(name string) int64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ts, ok := d.entries[stripNamespace(name)]
	if !ok {
		return -1
	}
	return ts
}

// Touch records ts as name's current timestamp.
func (d *Dict) Touch(name string, ts int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries[stripNamespace(name)] = ts
}

// Save writes the dictionary to its path as gzip-compressed JSON, replacing
// the previous contents atomically via renameio so a reader never observes
// a partially-written file.
func (d *Dict) Save() (err error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	t, err := renameio.TempFile("", d.path)
	if err != nil {
		return xerrors.Errorf("tsdict: save %s: %w", d.path, err)
	}
	defer t.Cleanup()

	zw := gzip.NewWriter(t)
	if err := json.NewEncoder(zw).Encode(d.entries); err != nil {
		return xerrors.Errorf("tsdict: save %s: encode: %w", d.path, err)
	}
	if err := zw.Close(); err != nil {
		return xerrors.Errorf("tsdict: save %s: %w", d.path, err)
	}
	return t.CloseAtomicallyReplace()
}

// Freeze returns a read-only snapshot of the dictionary's current contents.
// Unlike reading Dict directly, a FrozenDict's map is independently owned:
// concurrent Touch calls on the live Dict after Freeze returns cannot
// mutate it and cannot race with a goroutine reading it, so staleness
// analysis (which wants a consistent view of every node's timestamp for the
// whole pass) never observes a torn update from an in-flight writer.
func (d *Dict) Freeze() FrozenDict {
	d.mu.RLock()
	defer d.mu.RUnlock()
	snapshot := make(map[string]int64, len(d.entries))
	for k, v := range d.entries {
		snapshot[k] = v
	}
	return FrozenDict{entries: snapshot}
}

// FrozenDict is an immutable point-in-time view of a Dict.
type FrozenDict struct {
	entries map[string]int64
}

// Time returns name's timestamp as of the Freeze call, or -1 if absent.
func (f FrozenDict) Time(name string) int64 {
	ts, ok := f.entries[stripNamespace(name)]
	if !ok {
		return -1
	}
	return ts
}

// WriteTo serializes a FrozenDict as gzip-compressed JSON, matching Dict's
// on-disk format, so a snapshot can be persisted independently of its
// originating Dict (for example from a different goroutine than the one
// that owns the live Dict).
func (f FrozenDict) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if err := json.NewEncoder(zw).Encode(f.entries); err != nil {
		return 0, xerrors.Errorf("tsdict: encode snapshot: %w", err)
	}
	if err := zw.Close(); err != nil {
		return 0, xerrors.Errorf("tsdict: close gzip writer: %w", err)
	}
	n, err := w.Write(buf.Bytes())
	return int64(n), err
}

// ErrCorrupt is returned by Open when path exists but is not a valid
// gzip+JSON timestamp dictionary.
var ErrCorrupt = xerrors.Errorf("tsdict: corrupt dictionary file: %w", buildcore.ErrTypeMismatch)
