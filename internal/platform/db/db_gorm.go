package db

import (
	"fmt"
	"log/slog"
	"time"

	gmysql "gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	adjadapters "ashare_store/internal/feature/adjustment/adapters"
	baradapters "ashare_store/internal/feature/bars/adapters"
	caladapters "ashare_store/internal/feature/calendar/adapters"
	instadapters "ashare_store/internal/feature/instrument/adapters"
	"ashare_store/internal/platform/config"
)

// Supported gorm drivers.
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const (
	defaultConnectTimeout = 60 * time.Second
	retryInterval         = 3 * time.Second
	memoryDSN             = ":memory:"
)

// Config is the database section of the service configuration.
type Config = config.Database

// Opener opens a gorm connection for a DSN.
type Opener func(dsn string) (*gorm.DB, error)

// BuildDSN renders the connection string for cfg.Driver. For mysql and postgres a
// Cloud SQL instance name takes precedence over host and port. Connections always
// run in UTC so that civil trade dates round-trip unchanged.
func BuildDSN(cfg Config) string {
	switch cfg.Driver {
	case DriverPostgres:
		host := cfg.Host
		port := cfg.Port
		if cfg.InstanceName != "" {
			host = "/cloudsql/" + cfg.InstanceName
			port = ""
		}
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s", host, cfg.User, cfg.Password, cfg.Name)
		if port != "" {
			dsn += " port=" + port
		}
		return dsn + " sslmode=disable TimeZone=UTC"
	case DriverSQLite:
		path := cfg.SQLitePath
		if path == "" {
			path = "ashare.db"
		}
		if path == memoryDSN {
			return path
		}
		return path + "?_busy_timeout=5000"
	default:
		if cfg.InstanceName != "" {
			return fmt.Sprintf("%s:%s@unix(/cloudsql/%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
				cfg.User, cfg.Password, cfg.InstanceName, cfg.Name)
		}
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
			cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Name)
	}
}

// OpenerFor returns the gorm opener of a driver name. An empty driver means mysql.
func OpenerFor(driver string) (Opener, error) {
	var dialect func(string) gorm.Dialector
	switch driver {
	case DriverMySQL, "":
		dialect = gmysql.Open
	case DriverPostgres:
		dialect = postgres.Open
	case DriverSQLite:
		dialect = sqlite.Open
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	return func(dsn string) (*gorm.DB, error) {
		return gorm.Open(dialect(dsn), &gorm.Config{})
	}, nil
}

// ConnectWithRetry calls opener until it succeeds or timeout elapses, sleeping
// retryInterval between attempts.
func ConnectWithRetry(dsn string, timeout time.Duration, opener Opener) (*gorm.DB, error) {
	deadline := time.Now().Add(timeout)
	for {
		db, err := opener(dsn)
		if err == nil {
			return db, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("db connect failed after %s: %w", timeout, err)
		}
		slog.Warn("db connect failed, retrying", "error", err)
		time.Sleep(retryInterval)
	}
}

// Open connects to the configured database and, when enabled, migrates the schema.
func Open(cfg Config) (*gorm.DB, error) {
	opener, err := OpenerFor(cfg.Driver)
	if err != nil {
		return nil, err
	}
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}

	db, err := ConnectWithRetry(BuildDSN(cfg), timeout, opener)
	if err != nil {
		return nil, err
	}

	// every :memory: connection is a separate database
	if cfg.Driver == DriverSQLite && cfg.SQLitePath == memoryDSN {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if cfg.RunMigrations {
		if err := Migrate(db); err != nil {
			return nil, fmt.Errorf("failed to migrate: %w", err)
		}
	}
	return db, nil
}

// Migrate creates or updates every table of the store.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&caladapters.TradingDayModel{},
		&instadapters.InstrumentModel{},
		&instadapters.BoardModel{},
		&instadapters.MembershipModel{},
		&adjadapters.FactorModel{},
		&baradapters.DailyBarModel{},
		&baradapters.MinuteBarModel{},
	)
}
