// Package records defines the in-memory row representation shared by the
// extract, transform, and load stages: a Record is a single row keyed by
// column name, and a Table is an ordered collection of records together with
// the column order of the source.
package records

import (
	"fmt"
	"strings"
	"time"

	"github.com/zeebo/xxh3"
)

// Record is one row. Values are nil (missing), string, int64, float64, bool,
// or time.Time depending on the pipeline stage.
type Record map[string]any

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Fingerprint hashes the record's values across the given columns in order.
// Two records with equal values in every column produce the same fingerprint.
// nil is distinguished from the empty string.
func (r Record) Fingerprint(columns []string) uint64 {
	var b strings.Builder
	for i, col := range columns {
		if i > 0 {
			b.WriteByte('\x1f') // unlikely separator
		}
		switch t := r[col].(type) {
		case nil:
			b.WriteByte('\x00')
		case string:
			b.WriteByte('s')
			b.WriteString(t)
		case time.Time:
			b.WriteByte('t')
			b.WriteString(t.UTC().Format(time.RFC3339Nano))
		default:
			b.WriteByte('v')
			b.WriteString(fmt.Sprint(t))
		}
	}
	return xxh3.HashString(b.String())
}

// Table is an ordered set of records. Columns preserves the source column
// order; every record is expected to have an entry (possibly nil) for each
// listed column.
type Table struct {
	Columns []string
	Rows    []Record
}

// NewTable constructs an empty table with the given column order.
func NewTable(columns []string) *Table {
	return &Table{Columns: append([]string(nil), columns...)}
}

// NumRows returns the number of rows.
func (t *Table) NumRows() int { return len(t.Rows) }

// NumColumns returns the number of columns.
func (t *Table) NumColumns() int { return len(t.Columns) }

// HasColumn reports whether the table declares the named column.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}
