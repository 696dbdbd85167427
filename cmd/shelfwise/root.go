package main

import (
	"github.com/spf13/cobra"
)

var verbose bool

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "shelfwise",
		Short:         "Library back office: catalog, circulation, fines and invoices",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log container lifecycle events")

	root.AddCommand(
		newServeCmd(),
		newSchedulerCmd(),
		newMigrateCmd(),
		newImportCmd(),
		newNoticesCmd(),
	)
	return root
}
