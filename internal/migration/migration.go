package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	auditdomain "github.com/smallbiznis/shelfwise/internal/audit/domain"
	catalogdomain "github.com/smallbiznis/shelfwise/internal/catalog/domain"
	circulationdomain "github.com/smallbiznis/shelfwise/internal/circulation/domain"
	invoicedomain "github.com/smallbiznis/shelfwise/internal/invoice/domain"
	membershipdomain "github.com/smallbiznis/shelfwise/internal/membership/domain"
	stockdomain "github.com/smallbiznis/shelfwise/internal/stock/domain"
	"github.com/smallbiznis/shelfwise/pkg/db"
	"gorm.io/gorm"
)

const migrationsDir = "migrations"

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// Models lists every persisted table in dependency order.
func Models() []any {
	var models []any
	models = append(models, catalogdomain.Models()...)
	models = append(models, stockdomain.Models()...)
	models = append(models, membershipdomain.Models()...)
	models = append(models, circulationdomain.Models()...)
	models = append(models, invoicedomain.Models()...)
	models = append(models, auditdomain.Models()...)
	return models
}

// Run brings the schema up to date. Postgres applies the embedded SQL
// migrations; sqlite and mysql use AutoMigrate over the models.
func Run(conn *gorm.DB, cfg db.Config) error {
	if conn == nil {
		return errors.New("migration database handle is required")
	}
	if cfg.Type != "postgres" {
		if err := conn.AutoMigrate(Models()...); err != nil {
			return fmt.Errorf("automigrate %s: %w", cfg.Type, err)
		}
		return nil
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return RunMigrations(sqlDB)
}

func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	migrator, err := newMigrator(db)
	if err != nil {
		return err
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// Closing the migrator would close the shared *sql.DB.
	return nil
}

// Version reports the applied postgres migration version.
func Version(db *sql.DB) (uint, bool, error) {
	migrator, err := newMigrator(db)
	if err != nil {
		return 0, false, err
	}
	version, dirty, err := migrator.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

func newMigrator(db *sql.DB) (*migrate.Migrate, error) {
	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return nil, fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return nil, fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	return migrator, nil
}
