// Package sqlite registers the SQLite storage backend. Useful for local runs
// without a database server; booleans are stored as 0/1 and timestamps as
// RFC 3339 text.
package sqlite

import (
	"context"
	"time"

	_ "modernc.org/sqlite"

	"heartetl/internal/schema/ddl"
	"heartetl/internal/storage"
	"heartetl/internal/storage/sqldb"
)

// Kind is the backend name used in configuration.
const Kind = "sqlite"

func init() {
	storage.Register(Kind, func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		return sqldb.New(ctx, "sqlite", cfg.DSN, sqldb.Dialect{
			DDL:         ddl.SQLite,
			Placeholder: func(int) string { return "?" },
			ConvertArg:  convertArg,
		})
	})
}

func convertArg(v any) any {
	switch t := v.(type) {
	case bool:
		if t {
			return int64(1)
		}
		return int64(0)
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	default:
		return v
	}
}
