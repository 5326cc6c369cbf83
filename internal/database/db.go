// internal/database/db.go
package database

import (
	"fmt"

	"insert-coin-bot/internal/models"

	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type DB struct {
	*gorm.DB
}

func NewDB(host, user, password, dbname string, port int) (*DB, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable TimeZone=UTC",
		host, user, password, dbname, port)

	return Open(dsn)
}

// Open connects to Postgres, enables pgvector and migrates every table.
func Open(dsn string) (*DB, error) {
	gormDB, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, errors.Wrap(err, "unable to open database")
	}

	// Enable pgvector extension
	if err := gormDB.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return nil, errors.Wrap(err, "unable to enable pgvector")
	}

	db := &DB{gormDB}
	if err := db.Migrate(&models.Post{}); err != nil {
		return nil, err
	}
	if err := db.Migrate(LedgerModels()...); err != nil {
		return nil, err
	}

	return db, nil
}

// LedgerModels are the relational tables that do not need pgvector.
func LedgerModels() []interface{} {
	return []interface{}{
		&models.MatchRecord{},
		&models.Tournament{},
		&models.TournamentEntrant{},
		&models.TournamentChannel{},
	}
}

func (db *DB) Migrate(dst ...interface{}) error {
	if err := db.AutoMigrate(dst...); err != nil {
		return errors.Wrap(err, "auto migrate failed")
	}
	return nil
}
