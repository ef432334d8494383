package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"heartetl/internal/metrics"
	"heartetl/internal/schema"
	"heartetl/internal/schema/ddl"
	"heartetl/pkg/records"
)

// DefaultBatchSize is the number of rows written per transaction when the
// configuration does not override it.
const DefaultBatchSize = 1000

// Loader writes a cleaned table to the destination in fixed-size
// transactional batches and verifies the persisted row count afterwards.
type Loader struct {
	Repo      Repository
	Spec      schema.TableSpec
	BatchSize int
	Logger    *slog.Logger
}

// NewLoader constructs a Loader with defaults applied.
func NewLoader(repo Repository, spec schema.TableSpec, batchSize int, logger *slog.Logger) *Loader {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{Repo: repo, Spec: spec, BatchSize: batchSize, Logger: logger}
}

// Load ensures the destination table exists, writes every row in batches
// (one transaction per batch, no partial batches, no retries), then issues a
// count query and fails with *VerificationError when the destination does not
// hold exactly the submitted rows on top of what it held before.
//
// A batch failure is rolled back by the repository and surfaced as a
// *LoadError carrying the 1-based batch index.
func (l *Loader) Load(ctx context.Context, table *records.Table) (int64, error) {
	columns := l.Spec.OutputColumns()
	for _, col := range columns {
		if !table.HasColumn(col) {
			return 0, fmt.Errorf("load: cleaned table missing column %q", col)
		}
	}

	if err := l.Repo.EnsureTable(ctx, ddl.FromSpec(l.Spec)); err != nil {
		return 0, fmt.Errorf("load: ensure table: %w", err)
	}

	before, err := l.Repo.CountRows(ctx, l.Spec.Table)
	if err != nil {
		return 0, fmt.Errorf("load: count before: %w", err)
	}

	rows := make([][]any, len(table.Rows))
	for i, rec := range table.Rows {
		row := make([]any, len(columns))
		for j, col := range columns {
			row[j] = rec[col]
		}
		rows[i] = row
	}

	var (
		total   int64
		start   = time.Now()
		lastTS  = start
		batches = (len(rows) + l.BatchSize - 1) / l.BatchSize
	)
	for i := 0; i < len(rows); i += l.BatchSize {
		end := i + l.BatchSize
		if end > len(rows) {
			end = len(rows)
		}
		batchIdx := i/l.BatchSize + 1

		n, err := l.Repo.InsertBatch(ctx, l.Spec.Table, columns, rows[i:end])
		total += n
		if err != nil {
			l.Logger.Error("batch insert failed",
				"batch", batchIdx, "batches", batches, "total_inserted", total, "error", err)
			return total, &LoadError{Batch: batchIdx, Err: err}
		}
		metrics.RecordBatches(l.Spec.Table, 1)

		now := time.Now()
		sinceLast := now.Sub(lastTS)
		rps := float64(0)
		if sinceLast > 0 {
			rps = float64(n) / sinceLast.Seconds()
		}
		l.Logger.Info("batch committed",
			"batch", batchIdx,
			"batches", batches,
			"inserted", n,
			"total_inserted", total,
			"rps", int64(rps),
			"elapsed", now.Sub(start).Truncate(time.Millisecond).String(),
		)
		lastTS = now
	}

	after, err := l.Repo.CountRows(ctx, l.Spec.Table)
	if err != nil {
		return total, fmt.Errorf("load: count after: %w", err)
	}
	expected := before + int64(len(rows))
	if after != expected {
		return total, &VerificationError{Expected: expected, Actual: after}
	}

	l.Logger.Info("load complete", "rows_loaded", total, "destination_rows", after, "table", l.Spec.Table)
	return total, nil
}
