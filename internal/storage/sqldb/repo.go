// Package sqldb implements the storage.Repository on database/sql for the
// backends without a native bulk-load API (MySQL, SQL Server, SQLite). Each
// batch runs as one transaction around a prepared single-row INSERT; the
// dialect supplies placeholder syntax and argument conversions.
package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"heartetl/internal/schema/ddl"
)

// Dialect captures the per-driver differences the repository needs.
type Dialect struct {
	// DDL selects the CREATE TABLE rendering.
	DDL ddl.Dialect

	// Placeholder renders the i-th (1-based) statement parameter.
	Placeholder func(i int) string

	// ConvertArg optionally rewrites a value before binding (e.g. bool to
	// 0/1 for drivers without a boolean type). nil means pass-through.
	ConvertArg func(v any) any
}

// Repository is a database/sql-backed storage.Repository.
type Repository struct {
	db      *sql.DB
	dialect Dialect
}

// New opens the driver and verifies the connection with a ping.
func New(ctx context.Context, driver, dsn string, dialect Dialect) (*Repository, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: open: %w", driver, err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: ping: %w", driver, err)
	}
	return &Repository{db: db, dialect: dialect}, nil
}

// EnsureTable creates the destination table when absent.
func (r *Repository) EnsureTable(ctx context.Context, def ddl.TableDef) error {
	stmt, err := ddl.CreateTableSQL(r.dialect.DDL, def)
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	return nil
}

// InsertBatch inserts all rows inside one transaction using a prepared
// statement. Any failure rolls the whole batch back.
func (r *Repository) InsertBatch(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	stmtSQL := InsertSQL(table, columns, r.dialect.Placeholder)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, stmtSQL)
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if len(row) != len(columns) {
			_ = tx.Rollback()
			return 0, fmt.Errorf("row width %d != %d columns", len(row), len(columns))
		}
		args := row
		if r.dialect.ConvertArg != nil {
			args = make([]any, len(row))
			for i, v := range row {
				args[i] = r.dialect.ConvertArg(v)
			}
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("insert: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return int64(len(rows)), nil
}

// CountRows returns the destination table's row count.
func (r *Repository) CountRows(ctx context.Context, table string) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

// Close releases the connection pool.
func (r *Repository) Close() { _ = r.db.Close() }

// InsertSQL renders "INSERT INTO t (a, b) VALUES (p1, p2)" with the
// dialect's placeholders.
func InsertSQL(table string, columns []string, placeholder func(i int) string) string {
	ph := make([]string, len(columns))
	for i := range columns {
		ph[i] = placeholder(i + 1)
	}
	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		table,
		strings.Join(columns, ", "),
		strings.Join(ph, ", "),
	)
}
