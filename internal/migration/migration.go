package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	addressdomain "github.com/smallbiznis/giftflow/internal/address/domain"
	catalogdomain "github.com/smallbiznis/giftflow/internal/catalog/domain"
	employeedomain "github.com/smallbiznis/giftflow/internal/employee/domain"
	ledgerdomain "github.com/smallbiznis/giftflow/internal/ledger/domain"
	orderdomain "github.com/smallbiznis/giftflow/internal/order/domain"
	referencedomain "github.com/smallbiznis/giftflow/internal/reference/domain"
	tenantdomain "github.com/smallbiznis/giftflow/internal/tenant/domain"
	"gorm.io/gorm"
)

// Models lists every persisted type. Non-postgres stores are migrated from
// these definitions.
func Models() []any {
	return []any{
		&referencedomain.Country{},
		&catalogdomain.Product{},
		&tenantdomain.Tenant{},
		&catalogdomain.TenantProduct{},
		&employeedomain.Employee{},
		&ledgerdomain.Entry{},
		&orderdomain.Order{},
		&orderdomain.OrderItem{},
		&orderdomain.StatusEvent{},
		&orderdomain.CheckoutRequest{},
		&addressdomain.SavedAddress{},
	}
}

// RunMigrations applies the embedded SQL migrations to a postgres database.
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
	// migrator.Close would close the shared *sql.DB.
	return nil
}

// AutoMigrate creates the schema on mysql and sqlite stores.
func AutoMigrate(conn *gorm.DB) error {
	if err := conn.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
