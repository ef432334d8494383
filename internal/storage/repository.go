// Package storage contains the storage-agnostic contracts for the load
// stage: the Repository interface every backend implements, a factory keyed
// by backend kind, and the batched transactional loader.
//
// Backends register themselves in init (see the sibling packages and
// storage/all); the entry point blank-imports storage/all so the config can
// select any of them by name.
package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"heartetl/internal/schema/ddl"
)

// Repository is the minimal destination-database surface the loader needs.
type Repository interface {
	// EnsureTable creates the destination table when absent.
	EnsureTable(ctx context.Context, def ddl.TableDef) error

	// InsertBatch inserts all rows in one transaction. Either every row in
	// the batch commits or none do. rows are aligned to columns.
	InsertBatch(ctx context.Context, table string, columns []string, rows [][]any) (int64, error)

	// CountRows returns the destination table's row count.
	CountRows(ctx context.Context, table string) (int64, error)

	// Close releases the connection pool.
	Close()
}

// Config carries backend connection settings.
type Config struct {
	DSN string
}

// Builder constructs a Repository for one backend kind.
type Builder func(ctx context.Context, cfg Config) (Repository, error)

var (
	buildersMu sync.RWMutex
	builders   = map[string]Builder{}
)

// Register installs a backend builder under a kind name. Intended to be
// called from backend package init functions.
func Register(kind string, b Builder) {
	buildersMu.Lock()
	defer buildersMu.Unlock()
	if _, dup := builders[kind]; dup {
		panic(fmt.Sprintf("storage: backend %q registered twice", kind))
	}
	builders[kind] = b
}

// Open constructs the Repository for the named backend kind.
func Open(ctx context.Context, kind string, cfg Config) (Repository, error) {
	buildersMu.RLock()
	b, ok := builders[kind]
	buildersMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("storage: unknown backend %q (have %v)", kind, Kinds())
	}
	return b(ctx, cfg)
}

// Kinds lists the registered backend kinds, sorted.
func Kinds() []string {
	buildersMu.RLock()
	defer buildersMu.RUnlock()
	out := make([]string, 0, len(builders))
	for k := range builders {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
