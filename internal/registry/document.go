package registry

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/forgebin/forgebin/internal/errdefs"
	"github.com/forgebin/forgebin/internal/pkginfo"
)

// document is the on-disk shape of the whole-document backend.
type document struct {
	Packages []pkginfo.Record `yaml:"packages"`
}

// documentStore keeps the full collection in memory and rewrites the
// file on every mutation. A single mutex serializes writers; every
// write is O(n) in the collection size, which is fine for the tens of
// packages a user machine holds.
type documentStore struct {
	path string

	mu  sync.Mutex
	doc document
}

func openDocumentStore(path string) (*documentStore, error) {
	s := &documentStore{path: path}
	raw, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		if werr := s.flushLocked(); werr != nil {
			return nil, werr
		}
	case err != nil:
		return nil, fmt.Errorf("%w: reading %s: %v", errdefs.ErrRegistry, path, err)
	default:
		if uerr := yaml.Unmarshal(raw, &s.doc); uerr != nil {
			return nil, fmt.Errorf("%w: parsing %s: %v", errdefs.ErrRegistry, path, uerr)
		}
	}
	return s, nil
}

// flushLocked serializes the collection back to disk. Callers hold mu
// (or have exclusive access during open).
func (s *documentStore) flushLocked() error {
	raw, err := yaml.Marshal(&s.doc)
	if err != nil {
		return fmt.Errorf("%w: encoding registry: %v", errdefs.ErrRegistry, err)
	}
	if err := os.WriteFile(s.path, raw, 0644); err != nil {
		return fmt.Errorf("%w: writing %s: %v", errdefs.ErrRegistry, s.path, err)
	}
	return nil
}

func (s *documentStore) List() ([]pkginfo.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]pkginfo.Record, len(s.doc.Packages))
	copy(out, s.doc.Packages)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *documentStore) Get(name string) (*pkginfo.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.doc.Packages {
		if s.doc.Packages[i].Name == name {
			rec := s.doc.Packages[i]
			return &rec, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", errdefs.ErrNotFound, name)
}

func (s *documentStore) Upsert(rec *pkginfo.Record) error {
	rec.DedupInstalledFiles()
	s.mu.Lock()
	defer s.mu.Unlock()
	replaced := false
	for i := range s.doc.Packages {
		if s.doc.Packages[i].Name == rec.Name {
			s.doc.Packages[i] = *rec
			replaced = true
			break
		}
	}
	if !replaced {
		s.doc.Packages = append(s.doc.Packages, *rec)
	}
	return s.flushLocked()
}

func (s *documentStore) Remove(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.doc.Packages {
		if s.doc.Packages[i].Name == name {
			s.doc.Packages = append(s.doc.Packages[:i], s.doc.Packages[i+1:]...)
			return s.flushLocked()
		}
	}
	return fmt.Errorf("%w: %s", errdefs.ErrNotFound, name)
}

func (s *documentStore) Close() error { return nil }
