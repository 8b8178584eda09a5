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
	classifierdomain "github.com/smallbiznis/signbilling/internal/classifier/domain"
	contractdomain "github.com/smallbiznis/signbilling/internal/contract/domain"
	ledgerdomain "github.com/smallbiznis/signbilling/internal/ledger/domain"
	ratingdomain "github.com/smallbiznis/signbilling/internal/rating/domain"
	usagedomain "github.com/smallbiznis/signbilling/internal/usage/domain"
	"gorm.io/gorm"
)

const migrationsDir = "sql"

//go:embed sql/*.sql
var embeddedMigrations embed.FS

// RunMigrations applies the embedded postgres schema.
func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// Do not call migrator.Close here because it would close the shared *sql.DB.

	return nil
}

// Models lists every table the engine reads or writes.
func Models() []any {
	return []any{
		&contractdomain.Client{},
		&contractdomain.Vendor{},
		&contractdomain.Contract{},
		&contractdomain.Order{},
		&classifierdomain.Filter{},
		&classifierdomain.FilterConfig{},
		&classifierdomain.BillableService{},
		&classifierdomain.VendorService{},
		&classifierdomain.VendorFilterOverride{},
		&contractdomain.OrderService{},
		&contractdomain.OrderPrice{},
		&ledgerdomain.PrepaidPackage{},
		&contractdomain.OrderPackage{},
		&ledgerdomain.PrepaidPackageCharge{},
		&usagedomain.UsageEvent{},
		&ratingdomain.Charge{},
		&ratingdomain.Invoice{},
	}
}

// AutoMigrate creates the schema from the models. Used for sqlite and mysql,
// which the embedded migrations do not target.
func AutoMigrate(db *gorm.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
