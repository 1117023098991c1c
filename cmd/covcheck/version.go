package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"covcheck/pkg/contracts"
)

func newVersionCommand() *cobra.Command {
	var full bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		// Skip config loading
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, _ []string) error {
			if full {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), contracts.GetFullVersionString())
				return err
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), contracts.GetVersionString())
			return err
		},
	}

	cmd.Flags().BoolVar(&full, "full", false, "include build time, commit and Go version")
	return cmd
}
