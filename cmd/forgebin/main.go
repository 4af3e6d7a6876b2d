// forgebin installs single-binary tools straight from forge releases:
// it resolves a name to a repository, picks the release asset matching
// the host, unpacks it under the install root and keeps a registry of
// everything it placed on disk.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/forgebin/forgebin/internal/config"
	"github.com/forgebin/forgebin/internal/errdefs"
	"github.com/forgebin/forgebin/internal/forge"
	"github.com/forgebin/forgebin/internal/hostinfo"
	"github.com/forgebin/forgebin/internal/lifecycle"
	"github.com/forgebin/forgebin/internal/pkginfo"
	"github.com/forgebin/forgebin/internal/registry"
	"github.com/forgebin/forgebin/internal/utils/logger"
)

// version is stamped at build time with -ldflags.
var version = "dev"

// Persistent flags
var (
	configPath string
	dryRun     bool
	quiet      bool
	verbose    bool
)

// createRootCommand creates the forgebin root command
func createRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "forgebin",
		Short: "install single-binary tools from forge releases",
		Long: `forgebin installs command line tools published as release
assets: it searches the forge for the repository, selects the asset
built for this machine, unpacks it under the install root and links the
executables into the bin directory. Everything it places on disk is
tracked in a registry so packages can be updated and removed cleanly.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath(),
		"Path to the configuration file")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false,
		"Log the operations without touching the filesystem")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false,
		"Suppress progress output and prompts")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Enable debug logging")

	rootCmd.AddCommand(createInstallCommand())
	rootCmd.AddCommand(createUninstallCommand())
	rootCmd.AddCommand(createUpdateCommand())
	rootCmd.AddCommand(createListCommand())
	rootCmd.AddCommand(createInfoCommand())
	return rootCmd
}

// setup resolves the configuration, opens the registry and builds the
// manager every subcommand runs against. The returned store must be
// closed by the caller.
func setup(cmd *cobra.Command) (*lifecycle.Manager, registry.Store, error) {
	host := hostinfo.Detect(cmd.Context())
	cfg, err := config.Load(configPath, host.Elevated)
	if err != nil {
		return nil, nil, err
	}
	if dryRun {
		cfg.DryRun = true
	}
	if quiet {
		cfg.Quiet = true
	}
	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	if _, err := logger.Setup(level, cfg.Quiet); err != nil {
		return nil, nil, err
	}
	if !cfg.DryRun {
		if err := cfg.EnsureDirs(); err != nil {
			return nil, nil, err
		}
	}

	store, err := registry.Open(registry.Backend(cfg.RegistryBackend), cfg.RegistryPath)
	if err != nil {
		return nil, nil, err
	}
	client := forge.NewClient(pkginfo.SiteGitHub, "forgebin/"+version)
	mgr, err := lifecycle.NewManager(cfg, host, store, client)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return mgr, store, nil
}

// reportFailure prints one package failure. Fatal conditions (an
// unsafe removal, a registry failure) are returned so the caller stops
// the batch instead of carrying on to the next package.
func reportFailure(r lifecycle.Result) error {
	fmt.Fprintf(os.Stderr, "%s: %v\n", r.Name, r.Err)
	if errdefs.IsFatal(r.Err) {
		return r.Err
	}
	return nil
}

// failuresToError folds per-package failures into the command error so
// the process exits non-zero when any package failed.
func failuresToError(results []lifecycle.Result) error {
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d packages failed", failed, len(results))
	}
	return nil
}

func main() {
	if err := createRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
