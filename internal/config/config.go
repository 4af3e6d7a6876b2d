// Package config loads the tool configuration: install root, cache and
// registry locations, worker count and the dry-run switch. The core
// never reads flags or environment variables itself; the CLI resolves
// those and hands the finished Config down.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/santhosh-tekuri/jsonschema/v5"
	yamlv3 "gopkg.in/yaml.v3"
	sigsyaml "sigs.k8s.io/yaml"

	"github.com/forgebin/forgebin/internal/utils/fsutil"
)

// Config is the resolved configuration threaded through every
// operation. DryRun is carried here rather than in package-level state
// so mutating code paths read it from the value they were handed.
type Config struct {
	InstallRoot     string `yaml:"install_root" json:"install_root,omitempty"`
	CacheDir        string `yaml:"cache_dir" json:"cache_dir,omitempty"`
	RegistryPath    string `yaml:"registry_path" json:"registry_path,omitempty"`
	RegistryBackend string `yaml:"registry_backend" json:"registry_backend,omitempty"`
	Workers         int    `yaml:"workers" json:"workers,omitempty"`
	LogLevel        string `yaml:"log_level" json:"log_level,omitempty"`
	DryRun          bool   `yaml:"dry_run" json:"dry_run,omitempty"`
	Quiet           bool   `yaml:"quiet" json:"quiet,omitempty"`
}

// schema validates the raw config document before it is decoded, so a
// typo fails with a pointed message instead of a zero value.
const schema = `{
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "install_root":     {"type": "string", "minLength": 1},
    "cache_dir":        {"type": "string", "minLength": 1},
    "registry_path":    {"type": "string", "minLength": 1},
    "registry_backend": {"enum": ["document", "bolt"]},
    "workers":          {"type": "integer", "minimum": 1, "maximum": 64},
    "log_level":        {"enum": ["debug", "info", "warn", "error"]},
    "dry_run":          {"type": "boolean"},
    "quiet":            {"type": "boolean"}
  }
}`

var compiledSchema = jsonschema.MustCompileString("config.schema.json", schema)

// Default returns the built-in configuration. The install root is
// /usr/local when running with root privilege on a Unix host,
// otherwise everything lives under ~/.forgebin.
func Default(elevated bool) (*Config, error) {
	cfg := &Config{
		RegistryBackend: "document",
		Workers:         4,
		LogLevel:        "info",
	}
	if elevated {
		cfg.InstallRoot = "/usr/local"
		cfg.CacheDir = "/var/cache/forgebin"
		cfg.RegistryPath = "/var/lib/forgebin/registry.yaml"
		return cfg, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolving home directory: %w", err)
	}
	root := filepath.Join(home, ".forgebin")
	cfg.InstallRoot = root
	cfg.CacheDir = filepath.Join(root, "cache")
	cfg.RegistryPath = filepath.Join(root, "registry.yaml")
	return cfg, nil
}

// Load reads path on top of the defaults. A missing file is not an
// error: the defaults apply unchanged.
func Load(path string, elevated bool) (*Config, error) {
	cfg, err := Default(elevated)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := validate(raw); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	if err := yamlv3.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// validate checks the raw YAML document against the embedded schema.
func validate(raw []byte) error {
	jsonRaw, err := sigsyaml.YAMLToJSON(raw)
	if err != nil {
		return fmt.Errorf("converting to JSON: %w", err)
	}
	var doc interface{}
	if err := json.Unmarshal(jsonRaw, &doc); err != nil {
		return fmt.Errorf("decoding: %w", err)
	}
	if doc == nil {
		return nil
	}
	if err := compiledSchema.Validate(doc); err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}
	return nil
}

// AppDir returns the package-specific directory files are placed in.
func (c *Config) AppDir(pkg string) string {
	return filepath.Join(c.InstallRoot, "app", pkg)
}

// BinDir returns the directory binaries and shims land in.
func (c *Config) BinDir() string {
	return filepath.Join(c.InstallRoot, "bin")
}

// EnsureDirs creates the managed directory tree. Safe to call on every
// run; existing directories are left alone.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.InstallRoot, filepath.Join(c.InstallRoot, "app"), c.BinDir(), c.CacheDir} {
		if err := fsutil.CreateDirIfNotExist(dir); err != nil {
			return err
		}
	}
	return nil
}

// DefaultPath returns the conventional config file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "forgebin", "config.yaml")
}
