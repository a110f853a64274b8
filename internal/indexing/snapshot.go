package indexing

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/krakend/docsearch-mcp/internal/searchindex"
)

// ErrSnapshotSchema is returned when a snapshot was written by a different
// IndexSchemaVersion and must be rebuilt.
var ErrSnapshotSchema = errors.New("snapshot schema version mismatch")

// Snapshot stores the parsed fragments of every source next to an on-disk
// bleve index, so page listings survive a restart without re-fetching payloads.
type Snapshot struct {
	Schema  uint16           `msgpack:"schema"`
	Sources []SourceSnapshot `msgpack:"sources"`
}

// SourceSnapshot holds one source's fragments in payload order.
type SourceSnapshot struct {
	Name      string                    `msgpack:"name"`
	BaseURL   string                    `msgpack:"base_url"`
	Variable  string                    `msgpack:"variable"`
	UpdatedAt time.Time                 `msgpack:"updated_at"`
	Fragments []searchindex.DocFragment `msgpack:"fragments"`
}

// NewSourceSnapshot captures a loaded index.
func NewSourceSnapshot(name, baseURL string, ix *searchindex.Index) SourceSnapshot {
	return SourceSnapshot{
		Name:      name,
		BaseURL:   baseURL,
		Variable:  ix.Variable(),
		Fragments: ix.Slice(),
	}
}

// Index rebuilds the immutable index from the snapshot.
func (s SourceSnapshot) Index() *searchindex.Index {
	return searchindex.New(s.Fragments)
}

// WriteSnapshot serializes snap to path, replacing any previous file atomically.
func WriteSnapshot(path string, snap *Snapshot) (err error) {
	snap.Schema = IndexSchemaVersion

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	f, err := os.CreateTemp(filepath.Dir(path), "snapshot-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create snapshot: %w", err)
	}
	defer func() {
		if err != nil {
			os.Remove(f.Name())
		}
	}()

	if err = msgpack.NewEncoder(f).Encode(snap); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("failed to close snapshot: %w", err)
	}

	// Atomic replacement
	if err = os.Rename(f.Name(), path); err != nil {
		return fmt.Errorf("failed to move snapshot into place: %w", err)
	}
	return nil
}

// ReadSnapshot loads a snapshot written by WriteSnapshot.
func ReadSnapshot(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var snap Snapshot
	if err := msgpack.NewDecoder(f).Decode(&snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if snap.Schema != IndexSchemaVersion {
		return nil, fmt.Errorf("%w (have: v%d, want: v%d)", ErrSnapshotSchema, snap.Schema, IndexSchemaVersion)
	}
	return &snap, nil
}
