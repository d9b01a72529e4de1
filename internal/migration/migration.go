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
	attendancedomain "github.com/smallbiznis/gymdesk/internal/attendance/domain"
	auditdomain "github.com/smallbiznis/gymdesk/internal/audit/domain"
	memberdomain "github.com/smallbiznis/gymdesk/internal/member/domain"
	membershiptypedomain "github.com/smallbiznis/gymdesk/internal/membershiptype/domain"
	paymentdomain "github.com/smallbiznis/gymdesk/internal/payment/domain"
	productdomain "github.com/smallbiznis/gymdesk/internal/product/domain"
	saledomain "github.com/smallbiznis/gymdesk/internal/sale/domain"
	"gorm.io/gorm"
)

const migrationsDir = "sql"

//go:embed sql/*.sql
var embeddedMigrations embed.FS

// Models lists every table in dependency order.
func Models() []any {
	return []any{
		&membershiptypedomain.MembershipType{},
		&memberdomain.Member{},
		&paymentdomain.Payment{},
		&attendancedomain.Attendance{},
		&productdomain.Product{},
		&saledomain.Sale{},
		&saledomain.SaleLine{},
		&auditdomain.ActivityEntry{},
	}
}

// RunMigrations applies the embedded postgres migrations.
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

// AutoMigrate builds the schema from the models. Used for sqlite and mysql,
// which the embedded SQL does not target.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	for _, stmt := range dialectStatements(db.Dialector.Name()) {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("auto migrate %s: %w", db.Dialector.Name(), err)
		}
	}
	return nil
}

// dialectStatements runs after AutoMigrate. Product names are unique by exact
// match, which MySQL's default case-insensitive collation would not honor.
func dialectStatements(dialect string) []string {
	switch dialect {
	case "mysql":
		return []string{
			`ALTER TABLE products MODIFY name VARCHAR(150) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin NOT NULL`,
		}
	default:
		return nil
	}
}

// Apply picks the migration path for the connected dialect.
func Apply(db *gorm.DB) error {
	if db.Dialector.Name() != "postgres" {
		return AutoMigrate(db)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return RunMigrations(sqlDB)
}
