package fetch

import (
	"archive/tar"
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"

	"github.com/forgebin/forgebin/internal/utils/fsutil"
	"github.com/forgebin/forgebin/internal/utils/logger"
)

// Extract unpacks archive into destDir and removes the archive. It
// returns the "main" directory of the unpacked content: when the
// archive holds a single top-level directory that directory is
// unwrapped, otherwise destDir itself. Files that are not archives
// (bare executables, installer packages) are moved into destDir as-is.
func Extract(archive, destDir string) (string, error) {
	if err := fsutil.CreateDirIfNotExist(destDir); err != nil {
		return "", err
	}

	name := strings.ToLower(filepath.Base(archive))
	var err error
	switch {
	case strings.HasSuffix(name, ".zip"):
		err = extractZip(archive, destDir)
	case strings.HasSuffix(name, ".tar.gz"), strings.HasSuffix(name, ".tgz"):
		err = extractTar(archive, destDir, func(r io.Reader) (io.Reader, func(), error) {
			gz, gerr := gzip.NewReader(r)
			if gerr != nil {
				return nil, nil, gerr
			}
			return gz, func() { gz.Close() }, nil
		})
	case strings.HasSuffix(name, ".tar.xz"), strings.HasSuffix(name, ".txz"):
		err = extractTar(archive, destDir, func(r io.Reader) (io.Reader, func(), error) {
			xr, xerr := xz.NewReader(r)
			return xr, func() {}, xerr
		})
	case strings.HasSuffix(name, ".tar.zst"):
		err = extractTar(archive, destDir, func(r io.Reader) (io.Reader, func(), error) {
			zr, zerr := zstd.NewReader(r)
			if zerr != nil {
				return nil, nil, zerr
			}
			return zr, func() { zr.Close() }, nil
		})
	case strings.HasSuffix(name, ".tar"):
		err = extractTar(archive, destDir, func(r io.Reader) (io.Reader, func(), error) {
			return r, func() {}, nil
		})
	default:
		// Not an archive: a bare binary or a native installer
		// package. Move it into place unchanged.
		dest := filepath.Join(destDir, filepath.Base(archive))
		if err := fsutil.CopyFile(archive, dest); err != nil {
			return "", err
		}
		if err := os.Remove(archive); err != nil {
			return "", fmt.Errorf("removing %s: %w", archive, err)
		}
		return destDir, nil
	}
	if err != nil {
		return "", fmt.Errorf("extracting %s: %w", archive, err)
	}
	if err := os.Remove(archive); err != nil {
		return "", fmt.Errorf("removing %s: %w", archive, err)
	}

	// Unwrap a single top-level directory so callers see the real
	// content root.
	if entry, ok, err := fsutil.SingleEntry(destDir); err != nil {
		return "", err
	} else if ok {
		if fi, serr := os.Stat(entry); serr == nil && fi.IsDir() {
			logger.Logger().Debugf("unwrapping archive folder: %s", entry)
			return entry, nil
		}
	}
	return destDir, nil
}

// securePath joins an archive entry name onto destDir and rejects
// entries that would escape it.
func securePath(destDir, entryName string) (string, error) {
	target := filepath.Join(destDir, filepath.FromSlash(entryName))
	if !fsutil.IsSubpath(target, destDir) {
		return "", fmt.Errorf("archive entry %q escapes extraction directory", entryName)
	}
	return target, nil
}

func extractZip(archive, destDir string) error {
	zr, err := zip.OpenReader(archive)
	if err != nil {
		return err
	}
	defer zr.Close()

	for _, f := range zr.File {
		target, err := securePath(destDir, f.Name)
		if err != nil {
			return err
		}
		if f.FileInfo().IsDir() {
			if err := fsutil.CreateDirIfNotExist(target); err != nil {
				return err
			}
			continue
		}
		if err := fsutil.CreateDirIfNotExist(filepath.Dir(target)); err != nil {
			return err
		}
		rc, err := f.Open()
		if err != nil {
			return err
		}
		err = writeFile(target, rc, f.Mode())
		rc.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func extractTar(archive, destDir string, wrap func(io.Reader) (io.Reader, func(), error)) error {
	f, err := os.Open(archive)
	if err != nil {
		return err
	}
	defer f.Close()

	decompressed, closeWrap, err := wrap(f)
	if err != nil {
		return err
	}
	defer closeWrap()

	tr := tar.NewReader(decompressed)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		target, err := securePath(destDir, hdr.Name)
		if err != nil {
			return err
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := fsutil.CreateDirIfNotExist(target); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := fsutil.CreateDirIfNotExist(filepath.Dir(target)); err != nil {
				return err
			}
			if err := writeFile(target, tr, os.FileMode(hdr.Mode)); err != nil {
				return err
			}
		default:
			logger.Logger().Debugf("skipping archive entry %s (type %c)", hdr.Name, hdr.Typeflag)
		}
	}
}

func writeFile(target string, r io.Reader, mode os.FileMode) error {
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode.Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
