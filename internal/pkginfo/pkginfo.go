// Package pkginfo defines the Package Record: the persisted unit of
// installed-package state, from symbolic identity through resolved
// remote coordinates to the ledger of files installation created.
package pkginfo

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/forgebin/forgebin/internal/errdefs"
	"github.com/forgebin/forgebin/internal/hostinfo"
)

// Site identifies the remote forge a package comes from. Only GitHub
// is implemented; the type exists so records stay readable if more
// forges are added.
type Site string

const SiteGitHub Site = "github"

// BaseURL returns the web base of the forge.
func (s Site) BaseURL() string {
	return "https://github.com"
}

// APIBaseURL returns the REST API base of the forge.
func (s Site) APIBaseURL() string {
	return "https://api.github.com"
}

// reservedNames collide with the install-layout directories on hosts
// that place packages under <root>/app and shims under <root>/bin.
var reservedNames = []string{"app", "bin"}

// Record is one managed package.
type Record struct {
	Name       string `yaml:"name" json:"name"`
	BinaryName string `yaml:"binary_name" json:"binary_name"`
	Site       Site   `yaml:"site" json:"site"`

	Owner string `yaml:"owner,omitempty" json:"owner,omitempty"`
	Repo  string `yaml:"repo,omitempty" json:"repo,omitempty"`

	Asset   string `yaml:"asset,omitempty" json:"asset,omitempty"`
	Version string `yaml:"version,omitempty" json:"version,omitempty"`

	InstalledFiles []string  `yaml:"installed_files,omitempty" json:"installed_files,omitempty"`
	InstalledAt    time.Time `yaml:"installed_at,omitempty" json:"installed_at,omitempty"`

	PreferGnu    bool `yaml:"prefer_gnu,omitempty" json:"prefer_gnu,omitempty"`
	Prerelease   bool `yaml:"prerelease,omitempty" json:"prerelease,omitempty"`
	OneBinary    bool `yaml:"one_binary,omitempty" json:"one_binary,omitempty"`
	MSIInstalled bool `yaml:"msi_installed,omitempty" json:"msi_installed,omitempty"`
}

// New creates an unresolved record for a plain package name.
func New(name string, host hostinfo.Info) (*Record, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: empty name", errdefs.ErrInvalidIdentifier)
	}
	if host.OS == "windows" {
		for _, r := range reservedNames {
			if name == r {
				return nil, fmt.Errorf("%w: %q collides with an install directory", errdefs.ErrInvalidIdentifier, name)
			}
		}
	}
	rec := &Record{
		Name: name,
		Site: SiteGitHub,
	}
	rec.BinaryName = defaultBinaryName(name, host)
	return rec, nil
}

// FromURL creates a record whose identity is already resolved from a
// repository URL such as https://github.com/OWNER/NAME/.
func FromURL(rawurl string, host hostinfo.Info) (*Record, error) {
	owner, repo, err := splitRepoPath(rawurl)
	if err != nil {
		return nil, err
	}
	rec, err := New(repo, host)
	if err != nil {
		return nil, err
	}
	rec.Owner = owner
	rec.Repo = repo
	return rec, nil
}

// FromIdentifier dispatches on the identifier shape: anything that
// parses as an http(s) URL resolves immediately, everything else is a
// bare name to be searched later.
func FromIdentifier(id string, host hostinfo.Info) (*Record, error) {
	if u, err := url.Parse(id); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		return FromURL(id, host)
	}
	return New(id, host)
}

// defaultBinaryName is the glob used to locate installable executables
// inside an extracted artifact: any .exe on Windows, the package name
// itself elsewhere.
func defaultBinaryName(name string, host hostinfo.Info) string {
	if host.OS == "windows" {
		return "*.exe"
	}
	return name
}

// SetBinaryName overrides the binary glob. On Windows an .exe
// extension is appended when missing.
func (r *Record) SetBinaryName(bin string, host hostinfo.Info) {
	bin = strings.TrimSpace(bin)
	if host.OS == "windows" && !strings.HasSuffix(strings.ToLower(bin), ".exe") {
		bin += ".exe"
	}
	r.BinaryName = bin
}

// SetFullName fills Owner and Repo from an "owner/repo" pair.
func (r *Record) SetFullName(fullName string) error {
	owner, repo, err := splitFullName(fullName)
	if err != nil {
		return err
	}
	r.Owner = owner
	r.Repo = repo
	return nil
}

// SetFromURL fills Owner and Repo from a repository URL.
func (r *Record) SetFromURL(rawurl string) error {
	owner, repo, err := splitRepoPath(rawurl)
	if err != nil {
		return err
	}
	r.Owner = owner
	r.Repo = repo
	return nil
}

// Resolved reports whether the remote identity is known.
func (r *Record) Resolved() bool {
	return r.Owner != "" && r.Repo != ""
}

// URL reconstructs the canonical repository URL, without a trailing
// slash. It fails with ErrNotResolved before the identity is set.
func (r *Record) URL() (string, error) {
	if !r.Resolved() {
		return "", fmt.Errorf("%w: %s", errdefs.ErrNotResolved, r.Name)
	}
	return strings.TrimSuffix(r.Site.BaseURL(), "/") + "/" + r.Owner + "/" + r.Repo, nil
}

// AddInstalledFile appends a path to the file ledger. Installation
// appends entries in dependency order: files and directories deeper in
// a tree come before their ancestors.
func (r *Record) AddInstalledFile(path string) {
	r.InstalledFiles = append(r.InstalledFiles, path)
}

// DedupInstalledFiles sorts the ledger and drops duplicates. The
// registry calls this before every persistence.
func (r *Record) DedupInstalledFiles() {
	sort.Strings(r.InstalledFiles)
	out := r.InstalledFiles[:0]
	var prev string
	for i, f := range r.InstalledFiles {
		if i == 0 || f != prev {
			out = append(out, f)
		}
		prev = f
	}
	r.InstalledFiles = out
}

// splitFullName splits "owner/repo" into its two parts, tolerating
// surrounding slashes and whitespace.
func splitFullName(fullName string) (owner, repo string, err error) {
	trimmed := strings.Trim(fullName, "/ \t\r\n")
	parts := strings.Split(trimmed, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("%w: %q is not owner/repo", errdefs.ErrInvalidIdentifier, fullName)
	}
	return parts[0], parts[1], nil
}

// splitRepoPath extracts owner/repo from a repository URL.
func splitRepoPath(rawurl string) (owner, repo string, err error) {
	u, err := url.Parse(rawurl)
	if err != nil {
		return "", "", fmt.Errorf("%w: %q: %v", errdefs.ErrInvalidIdentifier, rawurl, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return "", "", fmt.Errorf("%w: %q is not a repository URL", errdefs.ErrInvalidIdentifier, rawurl)
	}
	return splitFullName(u.Path)
}
