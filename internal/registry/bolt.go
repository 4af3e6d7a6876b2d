package registry

import (
	"fmt"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"
	"gopkg.in/yaml.v3"

	"github.com/forgebin/forgebin/internal/errdefs"
	"github.com/forgebin/forgebin/internal/pkginfo"
)

var packagesBucket = []byte("packages")

// boltStore keeps records in a bbolt database. Mutations run inside
// committed read-write transactions, so an uncommitted write is never
// observable and overlapping operations stay isolated.
type boltStore struct {
	db *bolt.DB
}

func openBoltStore(path string) (*boltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %v", errdefs.ErrRegistry, path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, berr := tx.CreateBucketIfNotExists(packagesBucket)
		return berr
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: preparing %s: %v", errdefs.ErrRegistry, path, err)
	}
	return &boltStore{db: db}, nil
}

func (s *boltStore) List() ([]pkginfo.Record, error) {
	var out []pkginfo.Record
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(packagesBucket).ForEach(func(_, v []byte) error {
			var rec pkginfo.Record
			if err := yaml.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("decoding record: %w", err)
			}
			out = append(out, rec)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errdefs.ErrRegistry, err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *boltStore) Get(name string) (*pkginfo.Record, error) {
	var rec *pkginfo.Record
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(packagesBucket).Get([]byte(name))
		if v == nil {
			return nil
		}
		rec = new(pkginfo.Record)
		return yaml.Unmarshal(v, rec)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errdefs.ErrRegistry, err)
	}
	if rec == nil {
		return nil, fmt.Errorf("%w: %s", errdefs.ErrNotFound, name)
	}
	return rec, nil
}

func (s *boltStore) Upsert(rec *pkginfo.Record) error {
	rec.DedupInstalledFiles()
	raw, err := yaml.Marshal(rec)
	if err != nil {
		return fmt.Errorf("%w: encoding %s: %v", errdefs.ErrRegistry, rec.Name, err)
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(packagesBucket).Put([]byte(rec.Name), raw)
	})
	if err != nil {
		return fmt.Errorf("%w: storing %s: %v", errdefs.ErrRegistry, rec.Name, err)
	}
	return nil
}

func (s *boltStore) Remove(name string) error {
	found := false
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(packagesBucket)
		if b.Get([]byte(name)) == nil {
			return nil
		}
		found = true
		return b.Delete([]byte(name))
	})
	if err != nil {
		return fmt.Errorf("%w: removing %s: %v", errdefs.ErrRegistry, name, err)
	}
	if !found {
		return fmt.Errorf("%w: %s", errdefs.ErrNotFound, name)
	}
	return nil
}

func (s *boltStore) Close() error { return s.db.Close() }
