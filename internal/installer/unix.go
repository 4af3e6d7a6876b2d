package installer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/forgebin/forgebin/internal/pkginfo"
	"github.com/forgebin/forgebin/internal/utils/fsutil"
	"github.com/forgebin/forgebin/internal/utils/logger"
)

// unixInstaller places content under <root>/app/<name> and copies the
// matched executables into the bin dir with the exec bit set.
type unixInstaller struct{}

func (u *unixInstaller) Install(ctx context.Context, env Env, extractedRoot string, rec *pkginfo.Record) error {
	log := logger.Logger()
	if err := ctx.Err(); err != nil {
		return err
	}

	appDir := env.AppDir(rec.Name)
	if err := fsutil.MoveTree(extractedRoot, appDir, env.DryRun, func(dst string, isDir bool) error {
		rec.AddInstalledFile(dst)
		return nil
	}); err != nil {
		return fmt.Errorf("placing %s: %w", rec.Name, err)
	}
	rec.AddInstalledFile(appDir)

	binaries, err := locateBinaries(env, appDir, extractedRoot, rec)
	if err != nil {
		return err
	}
	if len(binaries) == 0 {
		log.Warnf("no executable matching %q in %s; nothing linked into %s", rec.BinaryName, rec.Name, env.BinDir)
		return nil
	}

	if !env.DryRun {
		if err := fsutil.CreateDirIfNotExist(env.BinDir); err != nil {
			return err
		}
	}
	for _, src := range binaries {
		dst := filepath.Join(env.BinDir, filepath.Base(src))
		if env.DryRun {
			log.Infof("dry run: install %s -> %s", src, dst)
			rec.AddInstalledFile(dst)
			continue
		}
		if err := fsutil.CopyFile(src, dst); err != nil {
			return fmt.Errorf("installing %s: %w", dst, err)
		}
		if err := os.Chmod(dst, 0755); err != nil {
			return fmt.Errorf("marking %s executable: %w", dst, err)
		}
		rec.AddInstalledFile(dst)
		log.Debugf("installed %s", dst)
	}
	return nil
}

func (u *unixInstaller) Uninstall(ctx context.Context, env Env, rec *pkginfo.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return uninstallFiles(env, rec)
}

// locateBinaries finds the executables named by the record's binary
// glob. During a dry run the tree was never moved, so the search runs
// over the extracted content instead of the app dir.
func locateBinaries(env Env, appDir, extractedRoot string, rec *pkginfo.Record) ([]string, error) {
	root := appDir
	if env.DryRun {
		root = extractedRoot
	}
	matches, err := fsutil.GlobName(root, rec.BinaryName)
	if err != nil {
		return nil, err
	}
	if rec.OneBinary && len(matches) > 1 {
		logger.Logger().Debugf("%s: keeping only %s of %d matches", rec.Name, matches[0], len(matches))
		matches = matches[:1]
	}
	return matches, nil
}
