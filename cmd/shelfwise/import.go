package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/smallbiznis/shelfwise/internal/events"
	"github.com/smallbiznis/shelfwise/internal/importer"
	"github.com/smallbiznis/shelfwise/internal/migration"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

func newImportCmd() *cobra.Command {
	var (
		formatFlag string
		dryRun     bool
	)
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Upsert books by ISBN from a CSV or JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			format, err := resolveFormat(formatFlag, path)
			if err != nil {
				return err
			}

			var (
				im         *importer.Importer
				dispatcher *events.Dispatcher
			)
			opts := fx.Options(domainModules(), migration.Module, fx.Populate(&im, &dispatcher))
			return runOneShot(cmd, opts, func(ctx context.Context) error {
				f, err := os.Open(path)
				if err != nil {
					return err
				}
				defer f.Close()

				report, evts, err := im.Import(ctx, importer.Request{Format: format, Reader: f, DryRun: dryRun})
				if err != nil {
					return err
				}
				if err := dispatcher.Dispatch(ctx, evts...); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
				}
				return printJSON(cmd, report)
			})
		},
	}
	cmd.Flags().StringVar(&formatFlag, "format", "", "csv or json (default: from the file extension)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate and count without writing")
	return cmd
}

func resolveFormat(flag, path string) (importer.Format, error) {
	if flag != "" {
		return importer.ParseFormat(flag)
	}
	return importer.FormatFromFilename(path)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
