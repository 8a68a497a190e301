package database

import (
	"fmt"
	"os"
	"time"

	"loyalty-backend/docstore"
	"loyalty-backend/logger"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const defaultDSN = "host=localhost user=postgres password=postgres dbname=loyalty port=5432 sslmode=disable"

// Connect opens the Postgres database named by DATABASE_URL.
func Connect() (*gorm.DB, error) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		dsn = defaultDSN
	}
	return Open(postgres.Open(dsn))
}

// Open opens a gorm connection that logs slow queries and errors through logrus.
func Open(dialector gorm.Dialector) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.New(logger.GormWriter(), gormlogger.Config{
			SlowThreshold:             500 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates the document tables.
func Migrate(db *gorm.DB) error {
	if err := docstore.NewGormStore(db, false).Migrate(); err != nil {
		return fmt.Errorf("failed to migrate document tables: %w", err)
	}
	return nil
}

// NewStore migrates db and returns a document store on top of it. Row locking
// is enabled on Postgres so concurrent claims on a customer serialize.
func NewStore(db *gorm.DB) (*docstore.GormStore, error) {
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return docstore.NewGormStore(db, db.Dialector.Name() == "postgres"), nil
}
