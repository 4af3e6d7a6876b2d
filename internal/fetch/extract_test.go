package fetch_test

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"

	"github.com/forgebin/forgebin/internal/fetch"
)

func writeZip(t *testing.T, dir string, entries map[string]string) string {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range entries {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip create: %v", err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("zip write: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	path := filepath.Join(dir, "test.zip")
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("writing archive: %v", err)
	}
	return path
}

func writeTarGz(t *testing.T, dir string, entries map[string]string) string {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, content := range entries {
		hdr := &tar.Header{Name: name, Mode: 0755, Size: int64(len(content))}
		if strings.HasSuffix(name, "/") {
			hdr.Typeflag = tar.TypeDir
			hdr.Size = 0
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("tar header: %v", err)
		}
		if hdr.Typeflag != tar.TypeDir {
			if _, err := tw.Write([]byte(content)); err != nil {
				t.Fatalf("tar write: %v", err)
			}
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("tar close: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	path := filepath.Join(dir, "test.tar.gz")
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("writing archive: %v", err)
	}
	return path
}

func TestExtractZipNoRoot(t *testing.T) {
	tmp := t.TempDir()
	archive := writeZip(t, tmp, map[string]string{
		"tool":      "#!/bin/sh\n",
		"README.md": "hi",
	})
	dest := filepath.Join(tmp, "out")
	main, err := fetch.Extract(archive, dest)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if main != dest {
		t.Errorf("main = %q, want dest for rootless archive", main)
	}
	if _, err := os.Stat(filepath.Join(dest, "tool")); err != nil {
		t.Errorf("missing extracted file: %v", err)
	}
	if _, err := os.Stat(archive); !os.IsNotExist(err) {
		t.Errorf("archive should be removed after extraction")
	}
}

func TestExtractTarGzSingleRootUnwrapped(t *testing.T) {
	tmp := t.TempDir()
	archive := writeTarGz(t, tmp, map[string]string{
		"tool-1.0/":        "",
		"tool-1.0/tool":    "bin",
		"tool-1.0/LICENSE": "mit",
	})
	dest := filepath.Join(tmp, "out")
	main, err := fetch.Extract(archive, dest)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if main != filepath.Join(dest, "tool-1.0") {
		t.Errorf("main = %q, want unwrapped root dir", main)
	}
	if _, err := os.Stat(filepath.Join(main, "tool")); err != nil {
		t.Errorf("missing extracted file: %v", err)
	}
}

func TestExtractRejectsEscapingEntries(t *testing.T) {
	tmp := t.TempDir()
	archive := writeTarGz(t, tmp, map[string]string{
		"../evil": "boom",
	})
	dest := filepath.Join(tmp, "out")
	if _, err := fetch.Extract(archive, dest); err == nil {
		t.Fatal("Extract accepted an entry escaping the destination")
	}
	if _, err := os.Stat(filepath.Join(tmp, "evil")); !os.IsNotExist(err) {
		t.Fatal("escaping entry was written")
	}
}

func TestExtractPassthroughBinary(t *testing.T) {
	tmp := t.TempDir()
	bin := filepath.Join(tmp, "tool-x86_64.exe")
	if err := os.WriteFile(bin, []byte("MZ"), 0644); err != nil {
		t.Fatalf("writing binary: %v", err)
	}
	dest := filepath.Join(tmp, "out")
	main, err := fetch.Extract(bin, dest)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if main != dest {
		t.Errorf("main = %q, want dest", main)
	}
	if _, err := os.Stat(filepath.Join(dest, "tool-x86_64.exe")); err != nil {
		t.Errorf("binary not moved into dest: %v", err)
	}
	if _, err := os.Stat(bin); !os.IsNotExist(err) {
		t.Errorf("source binary should be removed")
	}
}
