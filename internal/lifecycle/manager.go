// Package lifecycle orchestrates the package operations: resolving a
// name to a repository, picking a release asset for the host, and
// driving download, extraction, placement and registry bookkeeping.
package lifecycle

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/forgebin/forgebin/internal/config"
	"github.com/forgebin/forgebin/internal/errdefs"
	"github.com/forgebin/forgebin/internal/fetch"
	"github.com/forgebin/forgebin/internal/forge"
	"github.com/forgebin/forgebin/internal/hostinfo"
	"github.com/forgebin/forgebin/internal/installer"
	"github.com/forgebin/forgebin/internal/pkginfo"
	"github.com/forgebin/forgebin/internal/registry"
	"github.com/forgebin/forgebin/internal/selector"
	"github.com/forgebin/forgebin/internal/utils/fsutil"
	"github.com/forgebin/forgebin/internal/utils/logger"
)

// Result reports the outcome of one package operation. Err is
// per-package; one failure does not abort its siblings.
type Result struct {
	Name       string
	Version    string
	OldVersion string
	Err        error
}

// downloader is the slice of fetch.Downloader the manager needs.
type downloader interface {
	Fetch(ctx context.Context, reqs []fetch.Request) ([]fetch.Result, error)
}

// Manager wires the components together. All dependencies sit behind
// small interfaces or function values so tests can substitute fakes.
type Manager struct {
	cfg     *config.Config
	host    hostinfo.Info
	catalog selector.Catalog

	store     registry.Store
	forge     forge.Client
	download  downloader
	installer installer.Installer
	extract   func(archive, destDir string) (string, error)

	// prompt asks the user to pick among candidate repository URLs.
	// promptMu keeps concurrent package goroutines from interleaving
	// their prompts on the terminal.
	prompt   func(urls []string) (int, error)
	promptMu sync.Mutex
}

// NewManager builds a Manager for the detected host.
func NewManager(cfg *config.Config, host hostinfo.Info, store registry.Store, client forge.Client) (*Manager, error) {
	inst, err := installer.New(host)
	if err != nil {
		return nil, err
	}
	return &Manager{
		cfg:       cfg,
		host:      host,
		catalog:   selector.NewCatalog(host),
		store:     store,
		forge:     client,
		download:  fetch.NewDownloader(cfg.CacheDir, cfg.Workers, cfg.Quiet),
		installer: inst,
		extract:   fetch.Extract,
		prompt:    terminalPrompt,
	}, nil
}

func (m *Manager) env() installer.Env {
	return installer.Env{
		InstallRoot: m.cfg.InstallRoot,
		BinDir:      m.cfg.BinDir(),
		DryRun:      m.cfg.DryRun,
		Elevated:    m.host.Elevated,
	}
}

// Resolve fills the record's owner/repo identity via forge search.
// Quiet mode takes the forge's top hit; interactive mode asks the user
// to choose.
func (m *Manager) Resolve(ctx context.Context, rec *pkginfo.Record, interactive bool) error {
	if rec.Resolved() {
		return nil
	}
	urls, err := m.forge.SearchRepositories(ctx, rec.Name+" in:name")
	if err != nil {
		return fmt.Errorf("searching for %s: %w", rec.Name, err)
	}
	if len(urls) == 0 {
		return fmt.Errorf("no repository found for %q", rec.Name)
	}

	choice := 0
	if interactive && !m.cfg.Quiet && len(urls) > 1 {
		m.promptMu.Lock()
		choice, err = m.prompt(urls)
		m.promptMu.Unlock()
		if err != nil {
			return err
		}
		if choice < 0 || choice >= len(urls) {
			return fmt.Errorf("selection %d out of range", choice+1)
		}
	}
	if err := rec.SetFromURL(urls[choice]); err != nil {
		return err
	}
	logger.Logger().Debugf("%s resolved to %s/%s", rec.Name, rec.Owner, rec.Repo)
	return nil
}

// FetchAssets queries the latest release and selects the asset for the
// host: platform filter, architecture filter, suffix demotion, then the
// libc preference pass on Linux. It records the asset name and version
// on the record and returns the asset's download URL. An empty
// selection is a legitimate outcome reported as ErrNoAvailableAsset.
func (m *Manager) FetchAssets(ctx context.Context, rec *pkginfo.Record) (string, error) {
	if !rec.Resolved() {
		return "", fmt.Errorf("%w: %s", errdefs.ErrNotResolved, rec.Name)
	}
	rel, err := m.forge.LatestRelease(ctx, rec.Owner, rec.Repo, rec.Prerelease)
	if err != nil {
		return "", fmt.Errorf("fetching release for %s/%s: %w", rec.Owner, rec.Repo, err)
	}

	// Selection runs on asset file names; markers matched against full
	// URLs would trip over owner and repo names.
	byName := make(map[string]string, len(rel.AssetURLs))
	names := make([]string, 0, len(rel.AssetURLs))
	for _, u := range rel.AssetURLs {
		name := path.Base(u)
		if _, dup := byName[name]; !dup {
			names = append(names, name)
		}
		byName[name] = u
	}

	selected := m.catalog.Select(names)
	if m.host.OS == "linux" {
		selected = selector.PreferLibc(selected, m.host.Musl && !rec.PreferGnu)
	}
	if len(selected) == 0 {
		return "", fmt.Errorf("%w: %s %s (%s/%s)", errdefs.ErrNoAvailableAsset, rec.Name, rel.TagName, m.host.OS, m.host.Arch)
	}

	rec.Asset = selected[0]
	rec.Version = rel.TagName
	logger.Logger().Debugf("%s %s: selected %s", rec.Name, rec.Version, rec.Asset)
	return byName[selected[0]], nil
}

// InstallOptions apply to every package of one install batch.
type InstallOptions struct {
	// Interactive prompts for the repository when the search returns
	// more than one candidate.
	Interactive bool

	// BinaryName overrides the executable glob derived from the name.
	BinaryName string

	OneBinary  bool
	Prerelease bool
	PreferGnu  bool
}

// Install processes every identifier concurrently and returns one
// Result per name, in completion order.
func (m *Manager) Install(ctx context.Context, names []string, opts InstallOptions) []Result {
	results := make(chan Result, len(names))
	var wg sync.WaitGroup
	for _, name := range names {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			rec, err := pkginfo.FromIdentifier(id, m.host)
			if err != nil {
				results <- Result{Name: id, Err: err}
				return
			}
			if opts.BinaryName != "" {
				rec.SetBinaryName(opts.BinaryName, m.host)
			}
			rec.OneBinary = opts.OneBinary
			rec.Prerelease = opts.Prerelease
			rec.PreferGnu = opts.PreferGnu
			err = m.installOne(ctx, rec, opts.Interactive)
			results <- Result{Name: rec.Name, Version: rec.Version, Err: err}
		}(name)
	}
	wg.Wait()
	close(results)

	out := make([]Result, 0, len(names))
	for r := range results {
		out = append(out, r)
	}
	return out
}

func (m *Manager) installOne(ctx context.Context, rec *pkginfo.Record, interactive bool) error {
	if err := m.Resolve(ctx, rec, interactive); err != nil {
		return err
	}
	url, err := m.FetchAssets(ctx, rec)
	if err != nil {
		return err
	}
	return m.deploy(ctx, rec, url)
}

// deploy downloads, extracts and places one resolved package, then
// persists the record.
func (m *Manager) deploy(ctx context.Context, rec *pkginfo.Record, url string) error {
	root, cleanup, err := m.fetchArchive(ctx, rec, url)
	if err != nil {
		return err
	}
	defer cleanup()
	return m.place(ctx, rec, root)
}

// fetchArchive downloads the asset into a fresh session dir and
// extracts it. The returned cleanup removes the session dir once the
// content has been placed.
func (m *Manager) fetchArchive(ctx context.Context, rec *pkginfo.Record, url string) (string, func(), error) {
	fetched, err := m.download.Fetch(ctx, []fetch.Request{{Name: rec.Name, URL: url}})
	if err != nil {
		return "", nil, err
	}
	if fetched[0].Err != nil {
		return "", nil, fmt.Errorf("downloading %s: %w", rec.Name, fetched[0].Err)
	}
	archive := fetched[0].Path
	session := filepath.Dir(archive)
	cleanup := func() {
		if err := fsutil.RemoveAllAllowMissing(session); err != nil {
			logger.Logger().Warnf("leaving cache dir %s behind: %v", session, err)
		}
	}

	root, err := m.extract(archive, filepath.Join(session, rec.Name))
	if err != nil {
		cleanup()
		return "", nil, err
	}
	return root, cleanup, nil
}

// place installs the extracted content and persists the record. The
// record is persisted even when placement failed partway so an
// interrupted install leaves a ledger the next uninstall can act on.
func (m *Manager) place(ctx context.Context, rec *pkginfo.Record, root string) error {
	instErr := m.installer.Install(ctx, m.env(), root, rec)
	if instErr != nil && len(rec.InstalledFiles) == 0 && !rec.MSIInstalled {
		return instErr
	}
	rec.InstalledAt = time.Now()
	if !m.cfg.DryRun {
		if err := m.store.Upsert(rec); err != nil {
			return err
		}
	}
	return instErr
}

// Update re-fetches the package and reinstalls when the released
// version differs from the installed one. A matching version is a
// successful no-op reporting the same version on both sides.
func (m *Manager) Update(ctx context.Context, name string) Result {
	rec, err := m.store.Get(name)
	if err != nil {
		return Result{Name: name, Err: err}
	}
	old := rec.Version
	url, err := m.FetchAssets(ctx, rec)
	if err != nil {
		return Result{Name: name, OldVersion: old, Err: err}
	}
	if rec.Version == old {
		logger.Logger().Infof("%s is up to date (%s)", name, old)
		return Result{Name: name, Version: old, OldVersion: old}
	}

	// The new asset is downloaded and unpacked before anything of the
	// installed version is touched, so a failed download leaves the
	// package intact.
	root, cleanup, err := m.fetchArchive(ctx, rec, url)
	if err != nil {
		return Result{Name: name, OldVersion: old, Err: err}
	}
	defer cleanup()

	if err := m.installer.Uninstall(ctx, m.env(), rec); err != nil {
		return Result{Name: name, OldVersion: old, Err: err}
	}
	if !m.cfg.DryRun {
		rec.InstalledFiles = nil
	}
	err = m.place(ctx, rec, root)
	return Result{Name: name, Version: rec.Version, OldVersion: old, Err: err}
}

// Uninstall removes the package's files and drops its record. The
// record survives a dry run.
func (m *Manager) Uninstall(ctx context.Context, name string) Result {
	rec, err := m.store.Get(name)
	if err != nil {
		return Result{Name: name, Err: err}
	}
	if err := m.installer.Uninstall(ctx, m.env(), rec); err != nil {
		return Result{Name: name, Version: rec.Version, Err: err}
	}
	if m.cfg.DryRun {
		return Result{Name: name, Version: rec.Version}
	}
	if err := m.store.Remove(name); err != nil {
		return Result{Name: name, Version: rec.Version, Err: err}
	}
	return Result{Name: name, Version: rec.Version}
}

// List returns every managed package.
func (m *Manager) List() ([]pkginfo.Record, error) {
	return m.store.List()
}

// Info returns the record for one package.
func (m *Manager) Info(name string) (*pkginfo.Record, error) {
	return m.store.Get(name)
}

// terminalPrompt lists the candidate repositories and reads a 1-based
// choice from stdin. An empty line takes the first candidate.
func terminalPrompt(urls []string) (int, error) {
	fmt.Println("multiple repositories match:")
	for i, u := range urls {
		fmt.Printf("  [%d] %s\n", i+1, u)
	}
	fmt.Print("select [1]: ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return 0, fmt.Errorf("reading selection: %w", err)
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(line)
	if err != nil || n < 1 || n > len(urls) {
		return 0, fmt.Errorf("invalid selection %q", line)
	}
	return n - 1, nil
}
