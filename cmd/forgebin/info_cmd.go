package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// createInfoCommand creates the info subcommand
func createInfoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info PACKAGE",
		Short: "show the stored record of an installed package",
		Args:  cobra.ExactArgs(1),

		RunE: executeInfo,
	}
}

func executeInfo(cmd *cobra.Command, args []string) error {
	mgr, store, err := setup(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	rec, err := mgr.Info(args[0])
	if err != nil {
		return err
	}
	out, err := yaml.Marshal(rec)
	if err != nil {
		return fmt.Errorf("rendering record: %w", err)
	}
	fmt.Print(string(out))
	return nil
}
