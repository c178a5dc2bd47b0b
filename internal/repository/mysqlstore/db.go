// Package mysqlstore implements the identity and product stores on MySQL.
package mysqlstore

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/pressly/goose/v3"

	"github.com/catalog/catalog-go/internal/repository"
)

//go:embed migrations/*.sql
var migrations embed.FS

// mysqlDuplicateEntry is the server error number for unique key violations.
const mysqlDuplicateEntry = 1062

// DB wraps the connection pool. Open it once at startup and Close it at shutdown.
type DB struct {
	db      *sql.DB
	timeout time.Duration
}

// Open creates a MySQL connection pool with the given DSN and applies pending migrations.
// The DSN must enable parseTime.
func Open(ctx context.Context, dsn string, timeout time.Duration) (*DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging mysql: %w", err)
	}

	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	slog.Info("connected to mysql")
	return &DB{db: db, timeout: timeout}, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("mysql"); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}
	return nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

// Users returns the identity store.
func (d *DB) Users() *UserStore {
	return NewUserStore(d.db, d.timeout)
}

// Products returns the product store.
func (d *DB) Products() *ProductStore {
	return NewProductStore(d.db, d.timeout)
}

// isDuplicateEntryError checks if a MySQL error is a duplicate entry error (code 1062).
func isDuplicateEntryError(err error) bool {
	var mysqlErr *mysqldriver.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry
}

// classify maps driver failures onto repository errors.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var netErr net.Error
	switch {
	case repository.IsContextError(err),
		errors.Is(err, driver.ErrBadConn),
		errors.Is(err, mysqldriver.ErrInvalidConn),
		errors.As(err, &netErr):
		return repository.Unavailable(err)
	default:
		return err
	}
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
