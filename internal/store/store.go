// Package store keeps one JSON snapshot file per collection under a
// storage root.
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/zeebo/xxh3"

	"github.com/marcin-skalski/mngtool/internal/apperrors"
)

// Collection names persisted by a full sync.
const (
	Teams    = "teams"
	Projects = "projects"
	Issues   = "issues"
	Users    = "users"
	Labels   = "labels"
	Cycles   = "cycles"
)

var MasterCollections = []string{Teams, Projects, Issues, Users, Labels, Cycles}

// Snapshot is the on-disk shape of one collection.
type Snapshot[T any] struct {
	FetchedAt time.Time `json:"fetchedAt"`
	Count     int       `json:"count"`
	Items     []T       `json:"items"`
}

// WriteResult describes one completed write.
type WriteResult struct {
	Name  string `json:"name"`
	Path  string `json:"path"`
	Count int    `json:"count"`
	Bytes int    `json:"bytes"`
	// Unchanged reports that items are identical to the previous snapshot.
	// The file is rewritten anyway so fetchedAt moves forward.
	Unchanged bool `json:"unchanged"`
}

// Info is snapshot metadata for status views.
type Info struct {
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	Exists    bool      `json:"exists"`
	Count     int       `json:"count"`
	FetchedAt time.Time `json:"fetchedAt"`
	Size      int64     `json:"size"`
}

// Store is not safe for concurrent writers to the same root.
type Store struct {
	root   string
	logger *slog.Logger
}

func New(root string, logger *slog.Logger) *Store {
	return &Store{root: root, logger: logger}
}

func (s *Store) Root() string { return s.root }

func (s *Store) Path(name string) string {
	return filepath.Join(s.root, name+".json")
}

// Write replaces the named snapshot with items stamped at fetchedAt.
func Write[T any](s *Store, name string, fetchedAt time.Time, items []T) (WriteResult, error) {
	data, res, err := encode(s, name, fetchedAt, items)
	if err != nil {
		return WriteResult{}, err
	}
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return WriteResult{}, fmt.Errorf("create storage dir: %w", err)
	}
	if err := writeAtomic(res.Path, data); err != nil {
		return WriteResult{}, fmt.Errorf("write %s snapshot: %w", name, err)
	}
	s.logWrite(res)
	return res, nil
}

func encode[T any](s *Store, name string, fetchedAt time.Time, items []T) ([]byte, WriteResult, error) {
	if items == nil {
		items = []T{}
	}
	snap := Snapshot[T]{FetchedAt: fetchedAt.UTC(), Count: len(items), Items: items}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, WriteResult{}, fmt.Errorf("encode %s snapshot: %w", name, err)
	}
	data = append(data, '\n')

	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return nil, WriteResult{}, fmt.Errorf("encode %s items: %w", name, err)
	}
	path := s.Path(name)
	return data, WriteResult{
		Name:      name,
		Path:      path,
		Count:     len(items),
		Bytes:     len(data),
		Unchanged: s.itemsHash(path) == xxh3.Hash(itemsJSON),
	}, nil
}

func (s *Store) logWrite(res WriteResult) {
	s.logger.Info("snapshot written", "collection", res.Name, "count", res.Count,
		"size", humanize.Bytes(uint64(res.Bytes)), "unchanged", res.Unchanged)
}

// Batch stages several snapshots as temp files next to their targets and
// replaces the targets only on Commit. Until then no snapshot changes.
type Batch struct {
	s      *Store
	staged []stagedWrite
}

type stagedWrite struct {
	tmp string
	res WriteResult
}

func (s *Store) NewBatch() *Batch { return &Batch{s: s} }

// Stage encodes items and writes them to a temp file.
func Stage[T any](b *Batch, name string, fetchedAt time.Time, items []T) error {
	data, res, err := encode(b.s, name, fetchedAt, items)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(b.s.root, 0o755); err != nil {
		return fmt.Errorf("create storage dir: %w", err)
	}
	tmp, err := writeTemp(res.Path, data)
	if err != nil {
		return fmt.Errorf("stage %s snapshot: %w", name, err)
	}
	b.staged = append(b.staged, stagedWrite{tmp: tmp, res: res})
	return nil
}

// Commit renames every staged file into place, in staging order.
func (b *Batch) Commit() ([]WriteResult, error) {
	out := make([]WriteResult, 0, len(b.staged))
	for i, st := range b.staged {
		if err := os.Rename(st.tmp, st.res.Path); err != nil {
			b.staged = b.staged[i:]
			b.Discard()
			return nil, fmt.Errorf("write %s snapshot: %w", st.res.Name, err)
		}
		b.s.logWrite(st.res)
		out = append(out, st.res)
	}
	b.staged = nil
	return out, nil
}

// Discard removes staged temp files. It is a no-op after Commit.
func (b *Batch) Discard() {
	for _, st := range b.staged {
		os.Remove(st.tmp)
	}
	b.staged = nil
}

// itemsHash hashes the compacted items of the existing file, or 0.
func (s *Store) itemsHash(path string) uint64 {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	var prev struct {
		Items json.RawMessage `json:"items"`
	}
	if err := json.Unmarshal(raw, &prev); err != nil || prev.Items == nil {
		return 0
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, prev.Items); err != nil {
		return 0
	}
	return xxh3.Hash(buf.Bytes())
}

func writeAtomic(path string, data []byte) error {
	tmpName, err := writeTemp(path, data)
	if err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

func writeTemp(path string, data []byte) (string, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return "", err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", err
	}
	return tmpName, nil
}

// Load reads the named snapshot. A missing file is reported through found,
// not as an error.
func Load[T any](s *Store, name string) (snap Snapshot[T], found bool, err error) {
	data, err := os.ReadFile(s.Path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return Snapshot[T]{}, false, nil
	}
	if err != nil {
		return Snapshot[T]{}, false, fmt.Errorf("read %s snapshot: %w", name, err)
	}
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot[T]{}, false, fmt.Errorf("parse %s snapshot: %w", name, err)
	}
	if snap.Items == nil {
		snap.Items = []T{}
	}
	return snap, true, nil
}

// Read is Load with a missing snapshot turned into DatasetNotFoundError.
func Read[T any](s *Store, name string) (Snapshot[T], error) {
	snap, found, err := Load[T](s, name)
	if err != nil {
		return Snapshot[T]{}, err
	}
	if !found {
		return Snapshot[T]{}, &apperrors.DatasetNotFoundError{Name: name}
	}
	return snap, nil
}

// Stat reports metadata for the named snapshot without keeping its items.
func (s *Store) Stat(name string) (Info, error) {
	path := s.Path(name)
	info := Info{Name: name, Path: path}
	fi, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return info, nil
	}
	if err != nil {
		return info, fmt.Errorf("stat %s snapshot: %w", name, err)
	}
	snap, found, err := Load[json.RawMessage](s, name)
	if err != nil {
		return info, err
	}
	info.Exists = found
	info.Count = snap.Count
	info.FetchedAt = snap.FetchedAt
	info.Size = fi.Size()
	return info, nil
}

// StatAll reports every master collection in sync order.
func (s *Store) StatAll() ([]Info, error) {
	out := make([]Info, 0, len(MasterCollections))
	for _, name := range MasterCollections {
		info, err := s.Stat(name)
		if err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	return out, nil
}
