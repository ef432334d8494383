// Package mssql registers the SQL Server storage backend.
package mssql

import (
	"context"
	"fmt"

	_ "github.com/microsoft/go-mssqldb"

	"heartetl/internal/schema/ddl"
	"heartetl/internal/storage"
	"heartetl/internal/storage/sqldb"
)

// Kind is the backend name used in configuration.
const Kind = "mssql"

func init() {
	storage.Register(Kind, func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		return sqldb.New(ctx, "sqlserver", cfg.DSN, sqldb.Dialect{
			DDL:         ddl.MSSQL,
			Placeholder: func(i int) string { return fmt.Sprintf("@p%d", i) },
		})
	})
}
