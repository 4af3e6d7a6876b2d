// Package installer places extracted package content into the install
// layout and removes it again. Strategies are selected at runtime from
// the detected host rather than with build tags, so every strategy
// compiles and is testable on every platform.
package installer

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/forgebin/forgebin/internal/errdefs"
	"github.com/forgebin/forgebin/internal/hostinfo"
	"github.com/forgebin/forgebin/internal/pkginfo"
	"github.com/forgebin/forgebin/internal/utils/fsutil"
	"github.com/forgebin/forgebin/internal/utils/logger"
)

// Env carries the filesystem layout and run mode an installation
// operates under.
type Env struct {
	// InstallRoot is the directory every installed artifact must live
	// under. Uninstall refuses to touch anything outside it.
	InstallRoot string

	// BinDir is where executables (or shims pointing at them) go.
	BinDir string

	DryRun   bool
	Elevated bool
}

// AppDir returns the per-package content directory under the root.
func (e Env) AppDir(name string) string {
	return filepath.Join(e.InstallRoot, "app", name)
}

// Installer is one platform strategy.
type Installer interface {
	// Install moves the extracted content rooted at extractedRoot into
	// the install layout and appends every created path to the record's
	// file ledger.
	Install(ctx context.Context, env Env, extractedRoot string, rec *pkginfo.Record) error

	// Uninstall removes every path in the record's file ledger.
	Uninstall(ctx context.Context, env Env, rec *pkginfo.Record) error
}

// New selects the strategy for the host.
func New(host hostinfo.Info) (Installer, error) {
	switch host.OS {
	case "windows":
		return &windowsInstaller{}, nil
	case "linux", "darwin", "freebsd":
		return &unixInstaller{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", errdefs.ErrPlatformUnsupported, host.OS)
	}
}

// uninstallFiles deletes every ledger path, leaf-first. Before any
// deletion every path is verified to live under the install root; a
// single violation aborts with ErrUnsafeRemoval and zero deletions.
func uninstallFiles(env Env, rec *pkginfo.Record) error {
	log := logger.Logger()
	for _, p := range rec.InstalledFiles {
		if !fsutil.IsSubpath(p, env.InstallRoot) {
			return fmt.Errorf("%w: %s is not under %s", errdefs.ErrUnsafeRemoval, p, env.InstallRoot)
		}
	}

	paths := make([]string, len(rec.InstalledFiles))
	copy(paths, rec.InstalledFiles)
	sort.Sort(sort.Reverse(sort.StringSlice(paths)))

	for _, p := range paths {
		if env.DryRun {
			log.Infof("dry run: remove %s", p)
			continue
		}
		if err := fsutil.RemoveAllAllowMissing(p); err != nil {
			return err
		}
		log.Debugf("removed %s", p)
	}
	return nil
}
