package database

import (
	"fieldtasks/internal/model"

	gorm_logrus "github.com/onrik/gorm-logrus"
	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewConnection initializes a new connection pool using GORM, routing SQL
// logs through logrus.
func NewConnection(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gorm_logrus.New(),
	})
	if err != nil {
		return nil, errors.Wrap(err, "open postgres connection")
	}

	if err := Migrate(db); err != nil {
		return nil, errors.Wrap(err, "auto-migrate models")
	}

	return db, nil
}

// Migrate creates or updates the schema for all core models. Split out of
// NewConnection so tests can run it against their own database.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.RefreshToken{},
		&model.Region{},
		&model.RegionAssignment{},
		&model.Task{},
		&model.TaskReport{},
		&model.AuditLog{},
	)
}
