package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/forgebin/forgebin/internal/lifecycle"
)

// Install command flags
var (
	installInteractive bool
	installBinName     string
	installOneBin      bool
	installPre         bool
	installPreferGnu   bool
)

// createInstallCommand creates the install subcommand
func createInstallCommand() *cobra.Command {
	installCmd := &cobra.Command{
		Use:   "install PACKAGE...",
		Short: "install packages from their latest release",
		Long: `Install resolves each PACKAGE (a bare name or a repository
URL) to a repository, downloads the release asset matching this
machine and places it under the install root. Packages are processed
concurrently; one failure does not abort the others.`,
		Args: cobra.MinimumNArgs(1),

		RunE: executeInstall,
	}

	installCmd.Flags().BoolVarP(&installInteractive, "interactive", "i", false,
		"Prompt to choose when the search returns several repositories")
	installCmd.Flags().StringVar(&installBinName, "bin-name", "",
		"Executable name to look for inside the unpacked asset")
	installCmd.Flags().BoolVar(&installOneBin, "one-bin", false,
		"Link only the first matching executable")
	installCmd.Flags().BoolVar(&installPre, "pre", false,
		"Consider prereleases when picking the release")
	installCmd.Flags().BoolVar(&installPreferGnu, "prefer-gnu", false,
		"Prefer glibc builds even on musl-based distributions")
	return installCmd
}

func executeInstall(cmd *cobra.Command, args []string) error {
	mgr, store, err := setup(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	results := mgr.Install(cmd.Context(), args, lifecycle.InstallOptions{
		Interactive: installInteractive,
		BinaryName:  installBinName,
		OneBinary:   installOneBin,
		Prerelease:  installPre,
		PreferGnu:   installPreferGnu,
	})
	for _, r := range results {
		if r.Err != nil {
			if fatal := reportFailure(r); fatal != nil {
				return fatal
			}
			continue
		}
		fmt.Printf("installed %s %s\n", r.Name, r.Version)
	}
	return failuresToError(results)
}
