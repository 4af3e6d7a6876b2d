package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// createListCommand creates the list subcommand
func createListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "list installed packages",
		Args:  cobra.NoArgs,

		RunE: executeList,
	}
}

func executeList(cmd *cobra.Command, args []string) error {
	mgr, store, err := setup(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	recs, err := mgr.List()
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Println("no packages installed")
		return nil
	}
	for _, r := range recs {
		fmt.Printf("%s %s (%s/%s)\n", r.Name, r.Version, r.Owner, r.Repo)
	}
	return nil
}
