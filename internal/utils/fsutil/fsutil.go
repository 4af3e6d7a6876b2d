package fsutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/forgebin/forgebin/internal/utils/logger"
)

// CreateDirIfNotExist creates dir and any missing parents. Creating a
// directory that already exists is not an error.
func CreateDirIfNotExist(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}
	return nil
}

// RemoveAllAllowMissing removes a file or directory tree. A path that
// is already absent is not an error.
func RemoveAllAllowMissing(path string) error {
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("removing %s: %w", path, err)
	}
	return nil
}

// IsSubpath reports whether path equals root or lives underneath it.
// The comparison is lexical; both paths are cleaned first.
func IsSubpath(path, root string) bool {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(path))
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

// GlobName walks root recursively and returns every regular file whose
// base name matches pattern (filepath.Match syntax, e.g. "*.exe").
func GlobName(root, pattern string) ([]string, error) {
	var matches []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ok, err := filepath.Match(pattern, d.Name())
		if err != nil {
			return fmt.Errorf("bad pattern %q: %w", pattern, err)
		}
		if ok {
			matches = append(matches, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("globbing %q under %s: %w", pattern, root, err)
	}
	return matches, nil
}

// SingleEntry returns the path of the sole entry of dir, or ok=false
// when dir holds zero or more than one entry.
func SingleEntry(dir string) (path string, ok bool, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false, fmt.Errorf("reading %s: %w", dir, err)
	}
	if len(entries) != 1 {
		return "", false, nil
	}
	return filepath.Join(dir, entries[0].Name()), true, nil
}

// CopyFile copies src to dst, creating or truncating dst, and carries
// the permission bits over.
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}
	defer in.Close()
	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", src, err)
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("creating %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copying %s -> %s: %w", src, dst, err)
	}
	return out.Close()
}

// moveEntry renames src to dst, falling back to copy+remove when the
// rename crosses filesystems.
func moveEntry(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	if err := CopyFile(src, dst); err != nil {
		return err
	}
	return os.Remove(src)
}

// MoveTree moves every file and directory underneath srcDir into
// dstDir, creating destination directories as needed. The visitor is
// called once per moved entry with its destination path; every entry
// of a directory is visited before the directory itself, and source
// subdirectories are removed only after their contents have moved.
// srcDir itself is neither removed nor visited.
//
// The traversal uses an explicit stack so arbitrarily deep trees do
// not exhaust the call stack. With dryRun set nothing is touched; the
// intended moves are logged and the visitor still observes them.
func MoveTree(srcDir, dstDir string, dryRun bool, visit func(dst string, isDir bool) error) error {
	log := logger.Logger()
	if !dryRun {
		if err := CreateDirIfNotExist(dstDir); err != nil {
			return err
		}
	}

	type frame struct {
		src, dst string
		expanded bool
	}
	stack := []frame{{src: srcDir, dst: dstDir}}
	for len(stack) > 0 {
		top := len(stack) - 1
		if !stack[top].expanded {
			stack[top].expanded = true
			src, dst := stack[top].src, stack[top].dst
			entries, err := os.ReadDir(src)
			if err != nil {
				return fmt.Errorf("reading %s: %w", src, err)
			}
			for _, entry := range entries {
				srcPath := filepath.Join(src, entry.Name())
				dstPath := filepath.Join(dst, entry.Name())
				switch {
				case entry.IsDir():
					if dryRun {
						log.Infof("dry run: create dir %s", dstPath)
					} else if err := CreateDirIfNotExist(dstPath); err != nil {
						return err
					}
					stack = append(stack, frame{src: srcPath, dst: dstPath})
				case entry.Type().IsRegular():
					if dryRun {
						log.Infof("dry run: move %s -> %s", srcPath, dstPath)
					} else if err := moveEntry(srcPath, dstPath); err != nil {
						return err
					}
					if err := visit(dstPath, false); err != nil {
						return err
					}
				default:
					log.Warnf("skipping non-regular entry: %s", srcPath)
				}
			}
			continue
		}

		f := stack[top]
		stack = stack[:top]
		if f.src == srcDir {
			continue
		}
		if dryRun {
			log.Infof("dry run: remove source dir %s", f.src)
		} else if err := os.Remove(f.src); err != nil {
			return fmt.Errorf("removing emptied dir %s: %w", f.src, err)
		}
		if err := visit(f.dst, true); err != nil {
			return err
		}
	}
	return nil
}
