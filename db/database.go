package db

import (
	"fmt"
	"log"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Options selects the backing store
type Options struct {
	Driver      string // sqlite | postgres
	Path        string // sqlite file path
	DatabaseURL string // postgres DSN
	Environment string
}

// Initialize sets up the database connection. SQLite runs in WAL mode with a
// single writer; PostgreSQL is used where row-level locks are required.
func Initialize(opts Options) error {
	conn, err := Open(opts)
	if err != nil {
		return err
	}
	DB = conn
	return nil
}

// Open returns a new connection without touching the package-level handle
func Open(opts Options) (*gorm.DB, error) {
	// Determine log level based on environment
	logLevel := logger.Info
	if opts.Environment == "production" {
		logLevel = logger.Warn
	}
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	}

	switch opts.Driver {
	case "postgres":
		if opts.DatabaseURL == "" {
			return nil, fmt.Errorf("postgres driver requires a database url")
		}
		conn, err := gorm.Open(postgres.Open(opts.DatabaseURL), gormConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		log.Println("Database connection established (postgres)")
		return conn, nil
	case "", "sqlite":
		// Enable WAL mode for better concurrency support
		dsn := opts.Path + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"
		conn, err := gorm.Open(sqlite.Open(dsn), gormConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		sqlDB, err := conn.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get database instance: %w", err)
		}
		// SQLite allows one writer; serialize at the pool
		sqlDB.SetMaxOpenConns(1)
		log.Println("Database connection established (WAL mode enabled)")
		return conn, nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", opts.Driver)
	}
}

// AutoMigrate runs database migrations for the provided models
func AutoMigrate(models ...interface{}) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	err := DB.AutoMigrate(models...)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Println("Database migrations completed")
	return nil
}

// Close closes the database connection
func Close() error {
	if DB == nil {
		return nil
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	return sqlDB.Close()
}
