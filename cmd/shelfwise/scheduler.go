package main

import (
	"context"

	"github.com/smallbiznis/shelfwise/internal/logger"
	"github.com/smallbiznis/shelfwise/internal/migration"
	"github.com/smallbiznis/shelfwise/internal/scheduler"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

func schedulerModules() fx.Option {
	return fx.Options(
		domainModules(),
		migration.Module,
		scheduler.Module,
	)
}

func newSchedulerCmd() *cobra.Command {
	var once bool
	cmd := &cobra.Command{
		Use:   "scheduler",
		Short: "Run the background jobs without the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if once {
				var sched *scheduler.Scheduler
				return runOneShot(cmd, fx.Options(schedulerModules(), fx.Populate(&sched)), func(ctx context.Context) error {
					return sched.RunOnce(ctx)
				})
			}

			app := fx.New(schedulerModules(), scheduler.Loop, logger.FxOption(verbose))
			if err := app.Err(); err != nil {
				return err
			}
			app.Run()
			return nil
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "run every enabled job once and exit")
	return cmd
}
