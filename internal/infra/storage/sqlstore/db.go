package sqlstore

import (
	"context"
	"embed"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // driver "pgx"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // driver "postgres"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // driver "sqlite"

	"github.com/vietddude/repoguard/internal/metrics"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Supported drivers.
const (
	DriverPgx      = "pgx"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

func init() {
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// Config holds SQL connection configuration.
type Config struct {
	Driver   string `yaml:"driver"`
	URL      string `yaml:"url"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`

	// Retention removes entries older than this; zero keeps them forever.
	Retention time.Duration `yaml:"retention"`
}

// DB wraps the sqlx connection.
type DB struct {
	*sqlx.DB
	driver string
}

// Open connects to the database and applies the embedded migrations.
func Open(ctx context.Context, cfg Config) (*DB, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverPgx
	}
	dialect, err := gooseDialect(driver)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open(driver, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	switch {
	case driver == DriverSQLite && cfg.URL == ":memory:":
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	case cfg.MaxConns > 0:
		db.SetMaxOpenConns(cfg.MaxConns)
	default:
		db.SetMaxOpenConns(10)
	}

	if cfg.MinConns > 0 {
		db.SetMaxIdleConns(cfg.MinConns)
	} else {
		db.SetMaxIdleConns(2)
	}
	db.SetConnMaxIdleTime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect(dialect); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := goose.UpContext(ctx, db.DB, "migrations"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate db: %w", err)
	}

	return &DB{DB: db, driver: driver}, nil
}

func gooseDialect(driver string) (string, error) {
	switch driver {
	case DriverPgx, DriverPostgres:
		return "postgres", nil
	case DriverSQLite:
		return "sqlite3", nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", driver)
	}
}

// Driver returns the database/sql driver name.
func (db *DB) Driver() string {
	return db.driver
}

// StartMetricsCollector reports pool usage until ctx is done.
func (db *DB) StartMetricsCollector(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				stats := db.Stats()
				if stats.MaxOpenConnections > 0 {
					usage := float64(stats.OpenConnections) / float64(stats.MaxOpenConnections) * 100
					metrics.DBConnectionPoolUsage.Set(usage)
				}
			}
		}
	}()
}

// Health checks if the database is reachable.
func (db *DB) Health(ctx context.Context) error {
	return db.PingContext(ctx)
}
