package main

import (
	"github.com/smallbiznis/shelfwise/internal/logger"
	"github.com/smallbiznis/shelfwise/internal/migration"
	"github.com/smallbiznis/shelfwise/internal/scheduler"
	"github.com/smallbiznis/shelfwise/internal/server"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

func serveModules(withScheduler bool) fx.Option {
	opts := []fx.Option{
		domainModules(),
		migration.Module,
		server.Module,
	}
	if withScheduler {
		opts = append(opts, scheduler.Module, scheduler.Loop)
	}
	return fx.Options(opts...)
}

func newServeCmd() *cobra.Command {
	var noScheduler bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the background scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fx.New(serveModules(!noScheduler), logger.FxOption(verbose))
			if err := app.Err(); err != nil {
				return err
			}
			app.Run()
			return nil
		},
	}
	cmd.Flags().BoolVar(&noScheduler, "no-scheduler", false, "serve HTTP only")
	return cmd
}
