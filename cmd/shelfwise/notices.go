package main

import (
	"context"
	"fmt"

	"github.com/smallbiznis/shelfwise/internal/clock"
	"github.com/smallbiznis/shelfwise/internal/events"
	"github.com/smallbiznis/shelfwise/internal/migration"
	"github.com/smallbiznis/shelfwise/internal/notice"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

func newNoticesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notices",
		Short: "Member notices",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "send",
		Short: "Email every member with overdue loans",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				sender     *notice.Sender
				clk        clock.Clock
				dispatcher *events.Dispatcher
			)
			opts := fx.Options(domainModules(), migration.Module, fx.Populate(&sender, &clk, &dispatcher))
			return runOneShot(cmd, opts, func(ctx context.Context) error {
				result, evts, err := sender.SendOverdueNotices(ctx, clk.Now())
				if err != nil {
					return err
				}
				if err := dispatcher.Dispatch(ctx, evts...); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
				}
				return printJSON(cmd, result)
			})
		},
	})
	return cmd
}
