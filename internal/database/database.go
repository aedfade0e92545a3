// Package database wraps database/sql behind the narrow capability surface
// the orchestrator and file executor actually need: execute, insert, query.
// It exists so callers depend on three verbs instead of the full driver
// surface, mirroring the dynamic "relation by string lookup" the original
// ORM collaborator exposed, typed down per §9 of the design notes.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq" // postgres driver, registered under "postgres"

	"github.com/half-orm/half-orm-dev/internal/dbconfig"
	"github.com/half-orm/half-orm-dev/internal/hoperr"
)

// Database is the capability surface every component that touches a
// developer or production PostgreSQL instance is allowed to use.
type Database struct {
	db   *sql.DB
	name string
}

// Open connects to the database described by cfg and verifies reachability
// with a ping.
func Open(ctx context.Context, cfg dbconfig.Config) (*Database, error) {
	db, err := sql.Open("postgres", cfg.ConnString())
	if err != nil {
		return nil, hoperr.Wrap(hoperr.KindDatabaseNotConfigured, err, "failed to open database connection")
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, hoperr.Wrap(hoperr.KindDatabaseNotConfigured, err,
			fmt.Sprintf("database %q is unreachable", cfg.Name))
	}
	return &Database{db: db, name: cfg.Name}, nil
}

// Close releases the underlying connection pool.
func (d *Database) Close() error {
	return d.db.Close()
}

// Name returns the database name this instance was opened against.
func (d *Database) Name() string { return d.name }

// DB exposes the underlying *sql.DB for components that must drive raw
// driver features (e.g. fileexec's ExecContext path). Reach for Execute /
// Query first.
func (d *Database) DB() *sql.DB { return d.db }

// Execute runs a statement that returns no rows, e.g. DDL or an
// INSERT/UPDATE/DELETE whose result count the caller doesn't need.
func (d *Database) Execute(ctx context.Context, query string, args ...interface{}) error {
	if _, err := d.db.ExecContext(ctx, query, args...); err != nil {
		return hoperr.Wrap(hoperr.KindFileExecution, err, "statement execution failed")
	}
	return nil
}

// Insert builds and runs a parameterized INSERT for table from row, keyed
// by column name. Only an error is returned; the number of rows affected is
// not reported.
func (d *Database) Insert(ctx context.Context, table string, row map[string]interface{}) error {
	if len(row) == 0 {
		return hoperr.New(hoperr.KindFileExecution, "insert requires at least one column", "table", table)
	}

	cols := make([]string, 0, len(row))
	for col := range row {
		cols = append(cols, col)
	}

	placeholders := make([]string, len(cols))
	args := make([]interface{}, len(cols))
	for i, col := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = row[col]
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(cols, ", "), strings.Join(placeholders, ", "))

	if _, err := d.db.ExecContext(ctx, query, args...); err != nil {
		return hoperr.Wrap(hoperr.KindFileExecution, err, "insert into "+table+" failed", "table", table)
	}
	return nil
}

// Row is one result row, column name to value.
type Row map[string]interface{}

// Query runs query and returns every row as a column-name-keyed map.
func (d *Database) Query(ctx context.Context, query string, args ...interface{}) ([]Row, error) {
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, hoperr.Wrap(hoperr.KindFileExecution, err, "query failed")
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, hoperr.Wrap(hoperr.KindFileExecution, err, "failed to read result columns")
	}

	var results []Row
	for rows.Next() {
		raw := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, hoperr.Wrap(hoperr.KindFileExecution, err, "failed to scan result row")
		}
		row := make(Row, len(cols))
		for i, col := range cols {
			row[col] = raw[i]
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, hoperr.Wrap(hoperr.KindFileExecution, err, "error iterating result rows")
	}
	return results, nil
}

// TableExists reports whether schema.table exists, used to verify a fresh
// database already carries the half_orm_meta bootstrap tables before init
// proceeds.
func (d *Database) TableExists(ctx context.Context, schema, table string) (bool, error) {
	rows, err := d.Query(ctx, `
		SELECT 1 FROM information_schema.tables
		WHERE table_schema = $1 AND table_name = $2`, schema, table)
	if err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}
