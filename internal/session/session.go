// Package session persists editor state between CLI invocations: the last
// directory a document was opened from and the staged, not yet saved edits
// per document.
package session

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hyperifyio/htmledit/internal/cache"
)

// FileName is the state file kept under the work dir.
const FileName = "session.yaml"

// Pending holds staged edits for one document.
type Pending struct {
	Edits     map[string]string `yaml:"edits"`
	UpdatedAt time.Time         `yaml:"updated_at"`
}

// State is the persisted session.
type State struct {
	LastDir   string              `yaml:"last_dir,omitempty"`
	Documents map[string]*Pending `yaml:"documents,omitempty"`
}

// Store reads and writes State under Dir.
type Store struct {
	Dir string
	now func() time.Time
}

func (s *Store) path() string { return filepath.Join(s.Dir, FileName) }

func (s *Store) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now().UTC()
}

// Load reads the state file. A missing file yields an empty state.
func (s *Store) Load() (*State, error) {
	st := &State{Documents: map[string]*Pending{}}
	b, err := os.ReadFile(s.path())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return st, nil
		}
		return nil, fmt.Errorf("read session: %w", err)
	}
	if err := yaml.Unmarshal(b, st); err != nil {
		return nil, fmt.Errorf("parse session %s: %w", s.path(), err)
	}
	if st.Documents == nil {
		st.Documents = map[string]*Pending{}
	}
	for k, p := range st.Documents {
		if p == nil || len(p.Edits) == 0 {
			delete(st.Documents, k)
		}
	}
	return st, nil
}

// Save writes the state atomically, creating Dir when needed.
func (s *Store) Save(st *State) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("create work dir: %w", err)
	}
	b, err := yaml.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return cache.WriteFileAtomic(s.path(), b, 0o644)
}

// docKey normalizes a document path so relative and absolute spellings of the
// same file share one entry.
func docKey(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return filepath.Clean(abs)
	}
	return filepath.Clean(path)
}

// Opened records the directory of doc as the last used one.
func (st *State) Opened(doc string) {
	st.LastDir = filepath.Dir(docKey(doc))
}

// Stage merges edits into the pending set of doc.
func (s *Store) Stage(st *State, doc string, edits map[string]string) {
	k := docKey(doc)
	p := st.Documents[k]
	if p == nil {
		p = &Pending{}
		st.Documents[k] = p
	}
	if p.Edits == nil {
		p.Edits = map[string]string{}
	}
	for addr, text := range edits {
		p.Edits[addr] = text
	}
	p.UpdatedAt = s.clock()
}

// PendingFor returns a copy of the staged edits for doc.
func (st *State) PendingFor(doc string) map[string]string {
	out := map[string]string{}
	if p := st.Documents[docKey(doc)]; p != nil {
		for k, v := range p.Edits {
			out[k] = v
		}
	}
	return out
}

// Clear drops the staged edits of doc.
func (st *State) Clear(doc string) {
	delete(st.Documents, docKey(doc))
}

// Docs lists documents with staged edits, sorted.
func (st *State) Docs() []string {
	out := make([]string, 0, len(st.Documents))
	for k := range st.Documents {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
