package main

import (
	"context"
	"os"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/shelfwise/internal/audit"
	"github.com/smallbiznis/shelfwise/internal/catalog"
	"github.com/smallbiznis/shelfwise/internal/circulation"
	"github.com/smallbiznis/shelfwise/internal/clock"
	"github.com/smallbiznis/shelfwise/internal/config"
	"github.com/smallbiznis/shelfwise/internal/events"
	"github.com/smallbiznis/shelfwise/internal/importer"
	"github.com/smallbiznis/shelfwise/internal/invoice"
	"github.com/smallbiznis/shelfwise/internal/locale"
	"github.com/smallbiznis/shelfwise/internal/logger"
	"github.com/smallbiznis/shelfwise/internal/membership"
	"github.com/smallbiznis/shelfwise/internal/notice"
	"github.com/smallbiznis/shelfwise/internal/observability"
	obscontext "github.com/smallbiznis/shelfwise/internal/observability/context"
	"github.com/smallbiznis/shelfwise/internal/providers"
	"github.com/smallbiznis/shelfwise/internal/stock"
	"github.com/smallbiznis/shelfwise/pkg/db"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

// infraModules is the base every command needs to reach the database.
func infraModules() fx.Option {
	return fx.Options(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
	)
}

// domainModules wires every domain service and its providers.
func domainModules() fx.Option {
	return fx.Options(
		infraModules(),
		providers.Module,
		events.Module,
		audit.Module,
		catalog.Module,
		stock.Module,
		membership.Module,
		invoice.Module,
		circulation.Module,
		notice.Module,
		importer.Module,
		locale.Module,
	)
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.SnowflakeNode)
}

// runOneShot starts the container, runs fn with a CLI actor on the
// context and stops the container again.
func runOneShot(cmd *cobra.Command, opts fx.Option, fn func(ctx context.Context) error) error {
	app := fx.New(opts, logger.FxOption(verbose))
	if err := app.Err(); err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	startCtx, cancel := context.WithTimeout(ctx, app.StartTimeout())
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), app.StopTimeout())
		defer cancel()
		_ = app.Stop(stopCtx)
	}()

	return fn(obscontext.WithActor(ctx, "cli", cliActor()))
}

func cliActor() string {
	if user := strings.TrimSpace(os.Getenv("USER")); user != "" {
		return user
	}
	return "cli"
}
