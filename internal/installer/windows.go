package installer

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/forgebin/forgebin/internal/pkginfo"
	"github.com/forgebin/forgebin/internal/utils/fsutil"
	"github.com/forgebin/forgebin/internal/utils/logger"
)

// windowsInstaller handles the two Windows delivery shapes: a single
// MSI package handed to msiexec, or a portable tree placed under
// <root>/app/<name> with shims generated in the bin dir. PATH entries
// on Windows resolve .lnk and .cmd from cmd.exe and the extensionless
// wrapper from POSIX shells (Git Bash, MSYS2, WSL), so every binary
// gets all three.
type windowsInstaller struct{}

func (w *windowsInstaller) Install(ctx context.Context, env Env, extractedRoot string, rec *pkginfo.Record) error {
	log := logger.Logger()
	if err := ctx.Err(); err != nil {
		return err
	}

	if msi, ok, err := singleMSI(extractedRoot); err != nil {
		return err
	} else if ok {
		if env.DryRun {
			log.Infof("dry run: msiexec /i %s /quiet /norestart", msi)
		} else {
			cmd := exec.CommandContext(ctx, "msiexec", "/i", msi, "/quiet", "/norestart")
			if out, err := cmd.CombinedOutput(); err != nil {
				return fmt.Errorf("msiexec failed for %s: %w: %s", msi, err, strings.TrimSpace(string(out)))
			}
		}
		rec.MSIInstalled = true
		return nil
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
	for _, bin := range binaries {
		target := bin
		if env.DryRun {
			// The dry-run match came from the extracted tree; shims
			// would point at the final location.
			rel, rerr := filepath.Rel(extractedRoot, bin)
			if rerr == nil {
				target = filepath.Join(appDir, rel)
			}
		}
		if err := w.createShims(ctx, env, target, rec); err != nil {
			return err
		}
	}
	return nil
}

func (w *windowsInstaller) Uninstall(ctx context.Context, env Env, rec *pkginfo.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if rec.MSIInstalled {
		logger.Logger().Warnf("%s was installed from an MSI package; remove it through Windows \"Apps & features\"", rec.Name)
	}
	return uninstallFiles(env, rec)
}

// singleMSI reports whether dir holds exactly one entry and that entry
// is an MSI package.
func singleMSI(dir string) (string, bool, error) {
	entry, ok, err := fsutil.SingleEntry(dir)
	if err != nil || !ok {
		return "", false, err
	}
	if strings.HasSuffix(strings.ToLower(entry), ".msi") {
		return entry, true, nil
	}
	return "", false, nil
}

// createShims writes the three launchers for target into the bin dir,
// replacing any stale ones, and records each in the ledger.
func (w *windowsInstaller) createShims(ctx context.Context, env Env, target string, rec *pkginfo.Record) error {
	log := logger.Logger()
	stem := strings.TrimSuffix(filepath.Base(target), filepath.Ext(target))

	lnk := filepath.Join(env.BinDir, stem+".lnk")
	cmdShim := filepath.Join(env.BinDir, stem+".cmd")
	shShim := filepath.Join(env.BinDir, stem)

	if env.DryRun {
		for _, s := range []string{lnk, cmdShim, shShim} {
			log.Infof("dry run: create shim %s -> %s", s, target)
			rec.AddInstalledFile(s)
		}
		return nil
	}

	for _, s := range []string{lnk, cmdShim, shShim} {
		if err := fsutil.RemoveAllAllowMissing(s); err != nil {
			return err
		}
	}

	script := fmt.Sprintf(
		"$s = (New-Object -ComObject WScript.Shell).CreateShortcut('%s'); $s.TargetPath = '%s'; $s.WorkingDirectory = '%s'; $s.Save()",
		lnk, target, filepath.Dir(target))
	cmd := exec.CommandContext(ctx, "powershell", "-NoProfile", "-NonInteractive", "-Command", script)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("creating shortcut %s: %w: %s", lnk, err, strings.TrimSpace(string(out)))
	}
	rec.AddInstalledFile(lnk)

	cmdBody := fmt.Sprintf("@echo off\r\n\"%s\" %%*\r\n", target)
	if err := os.WriteFile(cmdShim, []byte(cmdBody), 0755); err != nil {
		return fmt.Errorf("creating shim %s: %w", cmdShim, err)
	}
	rec.AddInstalledFile(cmdShim)

	shBody := fmt.Sprintf("#!/bin/sh\nif [ -d /mnt/c ]; then\n  exec \"%s\" \"$@\"\nelse\n  exec \"%s\" \"$@\"\nfi\n",
		toWSLPath(target), toBashPath(target))
	if err := os.WriteFile(shShim, []byte(shBody), 0755); err != nil {
		return fmt.Errorf("creating shim %s: %w", shShim, err)
	}
	rec.AddInstalledFile(shShim)

	log.Debugf("created shims for %s in %s", stem, env.BinDir)
	return nil
}

// toBashPath rewrites C:\a\b into the /c/a/b form used by Git Bash and
// MSYS2. Paths without a drive letter pass through with separators
// normalized. Backslashes are replaced directly rather than with
// filepath.ToSlash so the conversion behaves the same on every host.
func toBashPath(p string) string {
	drive, rest, ok := splitDrive(p)
	if !ok {
		return strings.ReplaceAll(p, `\`, "/")
	}
	return "/" + drive + strings.ReplaceAll(rest, `\`, "/")
}

// toWSLPath rewrites C:\a\b into /mnt/c/a/b.
func toWSLPath(p string) string {
	drive, rest, ok := splitDrive(p)
	if !ok {
		return strings.ReplaceAll(p, `\`, "/")
	}
	return "/mnt/" + drive + strings.ReplaceAll(rest, `\`, "/")
}

func splitDrive(p string) (drive, rest string, ok bool) {
	if len(p) < 2 || p[1] != ':' {
		return "", "", false
	}
	c := p[0]
	if c >= 'A' && c <= 'Z' {
		c += 'a' - 'A'
	}
	if c < 'a' || c > 'z' {
		return "", "", false
	}
	return string(c), p[2:], true
}
