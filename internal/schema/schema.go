// Package schema defines the declarative per-column policy table consumed by
// the transformer and the loader: declared type, valid range or category set,
// criticality, and the dataset-level knobs (missing-rate threshold, NA tokens,
// renames, derived and lineage columns).
//
// The policy table is defined once per dataset and is read-only during a run.
package schema

import (
	"heartetl/pkg/records"
)

// Kind is the declared logical type of a column.
type Kind uint8

const (
	KindText Kind = iota
	KindInteger
	KindReal
	KindBool
	KindCategorical // integer-coded category
	KindDate
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindInteger:
		return "integer"
	case KindReal:
		return "real"
	case KindBool:
		return "bool"
	case KindCategorical:
		return "categorical"
	case KindDate:
		return "date"
	default:
		return "text"
	}
}

// Numeric reports whether the kind is imputed with a median rather than a mode.
func (k Kind) Numeric() bool { return k == KindInteger || k == KindReal }

// Range is an inclusive numeric validity interval.
type Range struct {
	Min float64
	Max float64
}

// ColumnSpec describes one destination column. Name is the normalized
// (snake_case) name the transformer produces in step 1.
type ColumnSpec struct {
	Name        string
	Kind        Kind
	Range       *Range  // numeric columns only; values outside are repaired
	Allowed     []int64 // categorical columns only; values outside are repaired
	Critical    bool    // high-missing-rate rows are dropped instead of imputed
	Description string
}

// AllowedSet returns the category set as a lookup map, or nil.
func (c ColumnSpec) AllowedSet() map[int64]struct{} {
	if len(c.Allowed) == 0 {
		return nil
	}
	set := make(map[int64]struct{}, len(c.Allowed))
	for _, v := range c.Allowed {
		set[v] = struct{}{}
	}
	return set
}

// DerivedColumn is an enrichment column computed from cleaned values.
type DerivedColumn struct {
	Name        string
	Kind        Kind
	Fn          func(records.Record) any
	Description string
}

// Lineage column names appended after enrichment. These record processing
// metadata rather than domain data.
const (
	LineageSource    = "source"
	LineageDatasetID = "source_dataset_id"
	LineageRunID     = "run_id"
	LineageProcessed = "processed_at"
)

// DefaultMissingRateThreshold is the fraction of missing values at which the
// drop-vs-impute decision flips for critical columns.
const DefaultMissingRateThreshold = 0.05

// TableSpec is the full dataset contract: destination table, ordered column
// policies, normalization renames, derived columns, and cleaning thresholds.
type TableSpec struct {
	// Table is the destination table name (optionally schema-qualified).
	Table string

	// Source is the lineage label written to every row (e.g. "uci_ml_repo").
	Source string

	// Columns lists the expected columns, in destination order, keyed by
	// their normalized names. Every listed column must be present in the
	// extracted input (after normalization and renames).
	Columns []ColumnSpec

	// Renames maps a normalized input name to its canonical name
	// (e.g. "num" -> "target"). Applied during step 1.
	Renames map[string]string

	// Derived lists enrichment columns appended in step 7.
	Derived []DerivedColumn

	// MissingRateThreshold overrides DefaultMissingRateThreshold when > 0.
	MissingRateThreshold float64

	// NATokens are raw string values treated as missing during coercion,
	// compared case-insensitively after trimming.
	NATokens []string
}

// Threshold returns the effective missing-rate threshold.
func (s TableSpec) Threshold() float64 {
	if s.MissingRateThreshold > 0 {
		return s.MissingRateThreshold
	}
	return DefaultMissingRateThreshold
}

// Column looks up a column spec by normalized name.
func (s TableSpec) Column(name string) (ColumnSpec, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnSpec{}, false
}

// ColumnNames returns the declared column names in destination order.
func (s TableSpec) ColumnNames() []string {
	out := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		out[i] = c.Name
	}
	return out
}

// OutputColumns returns the full destination column order: declared columns,
// then derived columns, then the lineage columns.
func (s TableSpec) OutputColumns() []string {
	out := s.ColumnNames()
	for _, d := range s.Derived {
		out = append(out, d.Name)
	}
	return append(out, LineageSource, LineageDatasetID, LineageRunID, LineageProcessed)
}
