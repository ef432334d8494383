// Package mysql registers the MySQL storage backend.
package mysql

import (
	"context"

	_ "github.com/go-sql-driver/mysql"

	"heartetl/internal/schema/ddl"
	"heartetl/internal/storage"
	"heartetl/internal/storage/sqldb"
)

// Kind is the backend name used in configuration.
const Kind = "mysql"

func init() {
	storage.Register(Kind, func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		return sqldb.New(ctx, "mysql", cfg.DSN, sqldb.Dialect{
			DDL:         ddl.MySQL,
			Placeholder: func(int) string { return "?" },
		})
	})
}
