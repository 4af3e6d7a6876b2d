package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/forgebin/forgebin/internal/lifecycle"
)

var updateAll bool

// createUpdateCommand creates the update subcommand
func createUpdateCommand() *cobra.Command {
	updateCmd := &cobra.Command{
		Use:   "update [PACKAGE...]",
		Short: "update installed packages to their latest release",
		Long: `Update re-fetches the release for each PACKAGE and
reinstalls it when a newer version is available. A package already at
the latest version is left untouched.`,
		Args: cobra.ArbitraryArgs,

		RunE: executeUpdate,
	}

	updateCmd.Flags().BoolVar(&updateAll, "all", false,
		"Update every installed package")
	return updateCmd
}

func executeUpdate(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && !updateAll {
		return fmt.Errorf("name at least one package or pass --all")
	}
	mgr, store, err := setup(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	names := args
	if updateAll {
		recs, err := mgr.List()
		if err != nil {
			return err
		}
		names = names[:0]
		for _, r := range recs {
			names = append(names, r.Name)
		}
	}

	results := make([]lifecycle.Result, 0, len(names))
	for _, name := range names {
		r := mgr.Update(cmd.Context(), name)
		results = append(results, r)
		switch {
		case r.Err != nil:
			if fatal := reportFailure(r); fatal != nil {
				return fatal
			}
		case r.Version == r.OldVersion:
			fmt.Printf("%s is up to date (%s)\n", r.Name, r.Version)
		default:
			fmt.Printf("updated %s %s -> %s\n", r.Name, r.OldVersion, r.Version)
		}
	}
	return failuresToError(results)
}
