package registry_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/forgebin/forgebin/internal/errdefs"
	"github.com/forgebin/forgebin/internal/hostinfo"
	"github.com/forgebin/forgebin/internal/pkginfo"
	"github.com/forgebin/forgebin/internal/registry"
)

var backends = []struct {
	name    string
	backend registry.Backend
	file    string
}{
	{"document", registry.BackendDocument, "registry.yaml"},
	{"bolt", registry.BackendBolt, "registry.db"},
}

func mustRecord(t *testing.T, name, url string) *pkginfo.Record {
	t.Helper()
	rec, err := pkginfo.FromURL(url, hostinfo.Info{OS: "linux", Arch: "amd64"})
	if err != nil {
		t.Fatalf("FromURL: %v", err)
	}
	rec.Name = name
	return rec
}

// Every backend must pass the same conformance assertions.
func TestStoreConformance(t *testing.T) {
	for _, tc := range backends {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tc.file)
			store, err := registry.Open(tc.backend, path)
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			defer store.Close()

			a := mustRecord(t, "bpm", "https://github.com/lxl66566/bpm-rs/")
			a.Version = "v1.2.3"
			a.InstalledFiles = []string{"/r/app/bpm/bin", "/r/app/bpm"}
			b := mustRecord(t, "abd", "https://github.com/someone/abd/")

			if err := store.Upsert(a); err != nil {
				t.Fatalf("Upsert(a): %v", err)
			}
			if err := store.Upsert(b); err != nil {
				t.Fatalf("Upsert(b): %v", err)
			}

			all, err := store.List()
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(all) != 2 {
				t.Fatalf("List length = %d, want 2", len(all))
			}

			got, err := store.Get("bpm")
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if got.Version != "v1.2.3" || got.Owner != "lxl66566" {
				t.Errorf("round trip mismatch: %+v", got)
			}
			// Ledger was deduplicated and sorted on persistence.
			if len(got.InstalledFiles) != 2 || got.InstalledFiles[0] != "/r/app/bpm" {
				t.Errorf("ledger not normalized: %v", got.InstalledFiles)
			}

			if err := store.Remove("bpm"); err != nil {
				t.Fatalf("Remove: %v", err)
			}
			all, err = store.List()
			if err != nil {
				t.Fatalf("List after remove: %v", err)
			}
			if len(all) != 1 || all[0].Name != "abd" {
				t.Fatalf("List after remove = %+v, want only abd", all)
			}

			if err := store.Remove("bpm"); !errors.Is(err, errdefs.ErrNotFound) {
				t.Errorf("Remove absent: err = %v, want ErrNotFound", err)
			}
			if _, err := store.Get("bpm"); !errors.Is(err, errdefs.ErrNotFound) {
				t.Errorf("Get absent: err = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestStorePersistsAcrossReopen(t *testing.T) {
	for _, tc := range backends {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tc.file)
			store, err := registry.Open(tc.backend, path)
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			rec := mustRecord(t, "eza", "https://github.com/eza-community/eza/")
			rec.Version = "v0.18.0"
			if err := store.Upsert(rec); err != nil {
				t.Fatalf("Upsert: %v", err)
			}
			if err := store.Close(); err != nil {
				t.Fatalf("Close: %v", err)
			}

			reopened, err := registry.Open(tc.backend, path)
			if err != nil {
				t.Fatalf("reopen: %v", err)
			}
			defer reopened.Close()
			got, err := reopened.Get("eza")
			if err != nil {
				t.Fatalf("Get after reopen: %v", err)
			}
			if got.Version != "v0.18.0" {
				t.Errorf("Version = %q, want v0.18.0", got.Version)
			}
		})
	}
}

func TestUpsertReplacesByName(t *testing.T) {
	for _, tc := range backends {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tc.file)
			store, err := registry.Open(tc.backend, path)
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			defer store.Close()

			rec := mustRecord(t, "fd", "https://github.com/sharkdp/fd/")
			rec.Version = "v9.0.0"
			if err := store.Upsert(rec); err != nil {
				t.Fatalf("Upsert: %v", err)
			}
			rec.Version = "v10.0.0"
			if err := store.Upsert(rec); err != nil {
				t.Fatalf("Upsert replace: %v", err)
			}

			all, err := store.List()
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(all) != 1 {
				t.Fatalf("List length = %d, want 1 after replace", len(all))
			}
			if all[0].Version != "v10.0.0" {
				t.Errorf("Version = %q, want v10.0.0", all[0].Version)
			}
		})
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	_, err := registry.Open("mystery", filepath.Join(t.TempDir(), "x"))
	if !errors.Is(err, errdefs.ErrRegistry) {
		t.Fatalf("err = %v, want ErrRegistry", err)
	}
}
