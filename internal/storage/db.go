package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/jackc/pgx/v5/stdlib" // Postgres driver for database/sql
	_ "modernc.org/sqlite"             // SQLite driver for database/sql
)

// Driver selects the SQL backend.
type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// DefaultTable is the info table name used when none is configured.
const DefaultTable = "abc_college"

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidTableName reports whether name can be used as an unquoted identifier.
func ValidTableName(name string) bool {
	return tableNamePattern.MatchString(name)
}

// sqlDriverName returns the database/sql driver registered for d.
func (d Driver) sqlDriverName() (string, error) {
	switch d {
	case DriverSQLite, "":
		return "sqlite", nil
	case DriverPostgres:
		return "pgx", nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", d)
	}
}

func (d Driver) placeholder() sq.PlaceholderFormat {
	if d == DriverPostgres {
		return sq.Dollar
	}
	return sq.Question
}

// Options configures Open.
type Options struct {
	Driver Driver
	// DSN is a file path for SQLite (":memory:" allowed) or a connection
	// URL for Postgres.
	DSN         string
	Table       string
	AutoMigrate bool
	// MaxOpenConns caps the pool. Zero keeps the driver default.
	MaxOpenConns int
}

// DB wraps the info store connection pool.
type DB struct {
	conn    *sql.DB
	driver  Driver
	table   string
	builder sq.StatementBuilderType
	metrics MetricsRecorder
}

// MetricsRecorder records repository query outcomes.
type MetricsRecorder interface {
	RecordRepositoryQuery(intent, status string, duration time.Duration)
}

// Open connects to the configured store and, when AutoMigrate is set,
// creates the info table if it is missing.
func Open(ctx context.Context, opts Options) (*DB, error) {
	if opts.Table == "" {
		opts.Table = DefaultTable
	}
	if !ValidTableName(opts.Table) {
		return nil, fmt.Errorf("invalid table name %q", opts.Table)
	}
	driverName, err := opts.Driver.sqlDriverName()
	if err != nil {
		return nil, err
	}
	if opts.Driver == "" {
		opts.Driver = DriverSQLite
	}

	if opts.Driver == DriverSQLite && opts.DSN != ":memory:" {
		dir := filepath.Dir(opts.DSN)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	conn, err := sql.Open(driverName, opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	switch {
	case opts.Driver == DriverSQLite && opts.DSN == ":memory:":
		// Every connection to :memory: is a separate database.
		conn.SetMaxOpenConns(1)
	case opts.MaxOpenConns > 0:
		conn.SetMaxOpenConns(opts.MaxOpenConns)
		conn.SetMaxIdleConns(max(1, opts.MaxOpenConns/2))
	}
	conn.SetConnMaxLifetime(time.Hour)

	if opts.Driver == DriverSQLite {
		if err := configureSQLite(ctx, conn); err != nil {
			_ = conn.Close()
			return nil, err
		}
	}

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := NewWithConn(conn, opts.Driver, opts.Table)

	if opts.AutoMigrate {
		if err := InitSchema(ctx, conn, opts.Table); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("failed to initialize schema: %w", err)
		}
	}

	return db, nil
}

func configureSQLite(ctx context.Context, conn *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=30000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := conn.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}
	return nil
}

// NewWithConn wraps an existing pool. Used by Open and by tests that
// supply a mock connection.
func NewWithConn(conn *sql.DB, driver Driver, table string) *DB {
	if driver == "" {
		driver = DriverSQLite
	}
	if table == "" {
		table = DefaultTable
	}
	return &DB{
		conn:    conn,
		driver:  driver,
		table:   table,
		builder: sq.StatementBuilder.PlaceholderFormat(driver.placeholder()),
	}
}

// Close closes the database connection
func (db *DB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

// Conn returns the underlying *sql.DB connection
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Driver returns the configured backend.
func (db *DB) Driver() Driver {
	return db.driver
}

// Table returns the info table name.
func (db *DB) Table() string {
	return db.table
}

// SetMetrics sets the metrics recorder for repository queries
func (db *DB) SetMetrics(recorder MetricsRecorder) {
	db.metrics = recorder
}

// Ping verifies the store is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// NewTestDB creates a migrated in-memory SQLite database for testing.
func NewTestDB(ctx context.Context) (*DB, error) {
	return Open(ctx, Options{
		Driver:      DriverSQLite,
		DSN:         ":memory:",
		Table:       DefaultTable,
		AutoMigrate: true,
	})
}
