package main

import (
	"context"
	"fmt"

	"github.com/smallbiznis/shelfwise/internal/migration"
	"github.com/smallbiznis/shelfwise/pkg/db"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Bring the database schema up to date",
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				conn  *gorm.DB
				dbCfg db.Config
			)
			opts := fx.Options(infraModules(), migration.Module, fx.Populate(&conn, &dbCfg))
			return runOneShot(cmd, opts, func(ctx context.Context) error {
				if dbCfg.Type != "postgres" {
					fmt.Fprintf(cmd.OutOrStdout(), "%s schema up to date\n", dbCfg.Type)
					return nil
				}
				sqlDB, err := conn.DB()
				if err != nil {
					return err
				}
				version, dirty, err := migration.Version(sqlDB)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "postgres schema at version %d (dirty=%t)\n", version, dirty)
				return nil
			})
		},
	}
}
