package store

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite" // SQLite driver for database/sql
)

//go:embed migrations/*.sql
var migrations embed.FS

// NewDB opens a SQLite database connection and configures it for optimal performance.
// The pragmas are part of the DSN because they are per-connection in SQLite:
// database/sql pools connections, and a pragma run with db.Exec would only
// reach whichever connection happened to execute it. Foreign key enforcement
// in particular must hold on every pooled connection or cascades stop firing.
func NewDB(path string) (*sql.DB, error) {
	dsn := path +
		"?_pragma=journal_mode(WAL)" + // Write-Ahead Logging for better concurrency
		"&_pragma=busy_timeout(5000)" + // Wait 5s when database is locked
		"&_pragma=synchronous(NORMAL)" + // Good balance of safety and speed
		"&_pragma=foreign_keys(1)" + // Enforce foreign key constraints
		"&_pragma=temp_store(MEMORY)" // Store temp tables in memory

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Verify connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return db, nil
}

// Migrate runs all pending database migrations.
func Migrate(db *sql.DB) error {
	goose.SetBaseFS(migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("setting dialect: %w", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	return nil
}
