package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/forgebin/forgebin/internal/lifecycle"
)

// createUninstallCommand creates the uninstall subcommand
func createUninstallCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall PACKAGE...",
		Short: "remove installed packages",
		Long: `Uninstall deletes every file recorded for each PACKAGE and
drops it from the registry. Removal is refused entirely if any recorded
file lies outside the install root.`,
		Args: cobra.MinimumNArgs(1),

		RunE: executeUninstall,
	}
}

func executeUninstall(cmd *cobra.Command, args []string) error {
	mgr, store, err := setup(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	results := make([]lifecycle.Result, 0, len(args))
	for _, name := range args {
		r := mgr.Uninstall(cmd.Context(), name)
		results = append(results, r)
		if r.Err != nil {
			if fatal := reportFailure(r); fatal != nil {
				return fatal
			}
			continue
		}
		fmt.Printf("uninstalled %s\n", r.Name)
	}
	return failuresToError(results)
}
