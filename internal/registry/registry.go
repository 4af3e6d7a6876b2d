// Package registry persists Package Records keyed by name. Two
// backends implement the same Store contract: a whole-document YAML
// file guarded by a writer lock, and a transactional bbolt database
// for overlapping install/uninstall operations. Both are exercised by
// one conformance test suite.
package registry

import (
	"fmt"
	"path/filepath"

	"github.com/forgebin/forgebin/internal/errdefs"
	"github.com/forgebin/forgebin/internal/pkginfo"
	"github.com/forgebin/forgebin/internal/utils/fsutil"
)

// Backend selects the storage implementation at configuration time.
type Backend string

const (
	BackendDocument Backend = "document"
	BackendBolt     Backend = "bolt"
)

// Store is the keyed store of Package Records.
type Store interface {
	// List returns every record, sorted by name.
	List() ([]pkginfo.Record, error)

	// Get returns the record for name, or ErrNotFound.
	Get(name string) (*pkginfo.Record, error)

	// Upsert inserts or replaces the record keyed by its Name. The
	// file ledger is deduplicated and sorted before persistence.
	Upsert(rec *pkginfo.Record) error

	// Remove deletes the record for name, or returns ErrNotFound.
	Remove(name string) error

	Close() error
}

// Open creates storage at path if absent, otherwise opens the existing
// storage. Existing data is never truncated.
func Open(backend Backend, path string) (Store, error) {
	if err := fsutil.CreateDirIfNotExist(filepath.Dir(path)); err != nil {
		return nil, fmt.Errorf("%w: %v", errdefs.ErrRegistry, err)
	}
	switch backend {
	case BackendDocument, "":
		return openDocumentStore(path)
	case BackendBolt:
		return openBoltStore(path)
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", errdefs.ErrRegistry, backend)
	}
}
