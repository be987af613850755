package database

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/shelfscout/server/internal/config"
	"github.com/shelfscout/server/internal/models"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens the configured database and optionally runs auto-migration.
func Connect(cfg *config.AppConfig, autoMigrate bool) (*gorm.DB, error) {
	db, err := openDB(cfg, resolveLogLevel(cfg))
	if err != nil {
		return nil, err
	}

	if autoMigrate {
		if err := Migrate(db); err != nil {
			return nil, fmt.Errorf("migration failed: %w", err)
		}
	}
	return db, nil
}

// EnsureSchema applies database migration in a short-lived setup connection.
func EnsureSchema(cfg *config.AppConfig) error {
	db, err := openDB(cfg, resolveLogLevel(cfg))
	if err != nil {
		return err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("resolve sql db: %w", err)
	}
	defer sqlDB.Close()

	if err := Migrate(db); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func resolveLogLevel(cfg *config.AppConfig) logger.LogLevel {
	if cfg.IsDev() {
		return logger.Info
	}
	return logger.Warn
}

func openDB(cfg *config.AppConfig, logLevel logger.LogLevel) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	}

	var dialector gorm.Dialector
	switch cfg.Database.Driver {
	case config.DriverMySQL:
		dialector = mysql.New(mysql.Config{
			DSN:               cfg.DSN,
			DefaultStringSize: 191,
		})
	case config.DriverSQLite:
		dialector = sqlite.Open(cfg.SQLitePath())
	default:
		sqlDB, err := sql.Open("postgres", cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("database connection failed: %w", err)
		}
		sqlDB.SetMaxOpenConns(20)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		dialector = postgres.New(postgres.Config{Conn: sqlDB})
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	if cfg.Database.Driver == config.DriverSQLite {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("resolve sql db: %w", err)
		}
		// SQLite allows a single writer; :memory: is also per-connection.
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

// Migrate runs GORM auto-migration and creates the full-text indexes on Postgres.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Book{},
		&models.SearchHistory{},
	); err != nil {
		return err
	}

	if db.Dialector.Name() == "postgres" {
		for _, stmt := range []string{
			`CREATE INDEX IF NOT EXISTS title_idx ON books USING GIN (to_tsvector('english', title))`,
			`CREATE INDEX IF NOT EXISTS description_idx ON books USING GIN (to_tsvector('english', description))`,
			`CREATE INDEX IF NOT EXISTS author_idx ON books USING GIN (to_tsvector('english', author))`,
		} {
			if err := db.Exec(stmt).Error; err != nil {
				return err
			}
		}
	}

	return nil
}
