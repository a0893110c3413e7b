package facts

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// Snapshot is an immutable set of facts from one extraction run, keyed by
// identity. A new extraction always produces a new Snapshot; existing
// snapshots are never mutated in place.
type Snapshot struct {
	meta  Meta
	byID  map[string]Fact
	order []string // identities sorted for deterministic iteration

	// Indexes for fast lookups
	byKind map[string][]string // kind -> identities
	byFile map[string][]string // file -> identities
}

// NewSnapshot creates a snapshot from a list of facts. Duplicate identities
// keep the first occurrence; extraction is expected to have resolved
// collisions (with warnings) before this point.
func NewSnapshot(meta Meta, ff []Fact) *Snapshot {
	s := &Snapshot{
		meta:   meta,
		byID:   make(map[string]Fact, len(ff)),
		byKind: make(map[string][]string),
		byFile: make(map[string][]string),
	}
	for _, f := range ff {
		if _, ok := s.byID[f.Identity]; ok {
			continue
		}
		s.byID[f.Identity] = f
		s.order = append(s.order, f.Identity)
		s.byKind[f.Kind] = append(s.byKind[f.Kind], f.Identity)
		if f.File != "" {
			s.byFile[f.File] = append(s.byFile[f.File], f.Identity)
		}
	}
	sort.Strings(s.order)
	s.meta.FactCount = len(s.byID)
	return s
}

// Meta returns the snapshot metadata.
func (s *Snapshot) Meta() Meta {
	return s.meta
}

// Count returns the number of facts in the snapshot.
func (s *Snapshot) Count() int {
	return len(s.byID)
}

// Get returns the fact with the given identity.
func (s *Snapshot) Get(identity string) (Fact, bool) {
	f, ok := s.byID[identity]
	return f, ok
}

// Identities returns all identities in sorted order.
func (s *Snapshot) Identities() []string {
	result := make([]string, len(s.order))
	copy(result, s.order)
	return result
}

// All returns all facts in identity order.
func (s *Snapshot) All() []Fact {
	result := make([]Fact, 0, len(s.order))
	for _, id := range s.order {
		result = append(result, s.byID[id])
	}
	return result
}

// ByKind returns all facts of the given kind in identity order.
func (s *Snapshot) ByKind(kind string) []Fact {
	return s.collect(s.byKind[kind])
}

// ByFile returns all facts found in the given file.
func (s *Snapshot) ByFile(file string) []Fact {
	return s.collect(s.byFile[file])
}

// Query returns facts matching all provided filter criteria. Empty filter
// values are ignored (match all). Name matching is by substring.
func (s *Snapshot) Query(kind, file, name string) []Fact {
	var result []Fact
	for _, id := range s.order {
		f := s.byID[id]
		if kind != "" && f.Kind != kind {
			continue
		}
		if file != "" && f.File != file {
			continue
		}
		if name != "" && !strings.Contains(f.Name, name) {
			continue
		}
		result = append(result, f)
	}
	return result
}

func (s *Snapshot) collect(ids []string) []Fact {
	result := make([]Fact, 0, len(ids))
	for _, id := range ids {
		result = append(result, s.byID[id])
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Identity < result[j].Identity })
	return result
}

// WriteJSONL writes all facts as JSONL in identity order.
func (s *Snapshot) WriteJSONL(w io.Writer) error {
	enc := json.NewEncoder(w)
	for _, id := range s.order {
		f := s.byID[id]
		if err := enc.Encode(f); err != nil {
			return fmt.Errorf("encoding fact %q: %w", f.Identity, err)
		}
	}
	return nil
}

// WriteJSONLFile writes all facts as JSONL to the given file path.
func (s *Snapshot) WriteJSONLFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()
	bw := bufio.NewWriter(f)
	if err := s.WriteJSONL(bw); err != nil {
		return err
	}
	return bw.Flush()
}

// ReadSnapshot reads facts from a JSONL reader and builds a snapshot with the
// given metadata. Identity, kind, and attributes round-trip exactly.
func ReadSnapshot(meta Meta, r io.Reader) (*Snapshot, error) {
	scanner := bufio.NewScanner(r)
	// Allow large lines
	scanner.Buffer(make([]byte, 0, 1024*1024), 10*1024*1024)
	var ff []Fact
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var f Fact
		if err := json.Unmarshal(line, &f); err != nil {
			return nil, fmt.Errorf("decoding fact: %w", err)
		}
		ff = append(ff, f)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return NewSnapshot(meta, ff), nil
}

// ReadSnapshotFile reads a snapshot from a JSONL file. If a sibling meta file
// (path + ".meta.json") exists its metadata is used; otherwise the metadata
// is left mostly empty.
func ReadSnapshotFile(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	meta := Meta{}
	if data, err := os.ReadFile(path + ".meta.json"); err == nil {
		// Best effort: a corrupt meta file does not fail the read.
		_ = json.Unmarshal(data, &meta)
	}
	return ReadSnapshot(meta, f)
}

// WriteMetaFile writes the snapshot metadata as JSON next to the facts file.
func (s *Snapshot) WriteMetaFile(path string) error {
	data, err := json.MarshalIndent(s.meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling meta: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
