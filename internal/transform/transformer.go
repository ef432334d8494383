// Package transform implements the cleaning pipeline: column-name
// normalization, type coercion, missing-value handling, range/category
// repair, date standardization, duplicate removal, and enrichment. Steps run
// in that order; later steps rely on the invariants earlier steps establish.
//
// Data-quality anomalies (missing, out-of-range, unparseable) are corrected
// in place and counted in the Report; only naming collisions and absent
// declared columns are fatal.
package transform

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"heartetl/internal/schema"
	"heartetl/pkg/records"
)

// Transformer applies the policy table to a raw extracted table.
type Transformer struct {
	Spec   schema.TableSpec
	Logger *slog.Logger

	// Now and RunID are injectable for tests; defaults are time.Now and a
	// fresh UUID per run.
	Now   func() time.Time
	RunID string
}

// New returns a Transformer for the given policy table.
func New(spec schema.TableSpec, logger *slog.Logger) *Transformer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Transformer{Spec: spec, Logger: logger}
}

// columnPolicy is the step-3 drop-vs-impute decision for one column. Steps 4
// and 5 reuse it when they null values, as if those values had been missing
// from the start.
type columnPolicy struct {
	drop bool // drop incomplete rows instead of imputing
}

// Transform runs the full cleaning pipeline and returns the cleaned table
// plus the data-quality report. The input table is not reused afterwards.
func (tr *Transformer) Transform(in *records.Table, datasetID int) (*records.Table, *Report, error) {
	report := NewReport()
	report.RowsIn = in.NumRows()

	t, err := tr.normalizeColumns(in)
	if err != nil {
		return nil, nil, err
	}

	tr.coerceTypes(t, report)

	policies := tr.handleMissing(t, report)
	tr.repairInvalid(t, policies, report)
	tr.standardizeDates(t, policies, report)
	tr.dedupe(t, report)
	tr.enrich(t, datasetID)

	report.RowsOut = t.NumRows()
	report.LogSummary(tr.Logger)
	return t, report, nil
}

// normalizeColumns maps every input column to snake_case, applies dataset
// renames, verifies the declared columns are all present, and projects the
// table onto the declared column order.
func (tr *Transformer) normalizeColumns(in *records.Table) (*records.Table, error) {
	mapping := make(map[string]string, len(in.Columns)) // original -> normalized
	claimed := make(map[string]string, len(in.Columns)) // normalized -> original
	for _, orig := range in.Columns {
		name := NormalizeName(orig)
		if renamed, ok := tr.Spec.Renames[name]; ok {
			name = renamed
		}
		if first, dup := claimed[name]; dup {
			return nil, &SchemaError{Column: name, First: first, Second: orig}
		}
		claimed[name] = orig
		mapping[orig] = name
	}

	var ignored []string
	declared := make(map[string]struct{}, len(tr.Spec.Columns))
	for _, c := range tr.Spec.Columns {
		declared[c.Name] = struct{}{}
		if _, ok := claimed[c.Name]; !ok {
			return nil, &TransformationError{Column: c.Name}
		}
	}
	for name, orig := range claimed {
		if _, ok := declared[name]; !ok {
			ignored = append(ignored, orig)
		}
	}
	if len(ignored) > 0 {
		tr.Logger.Debug("ignoring undeclared input columns", "columns", ignored)
	}

	out := records.NewTable(tr.Spec.ColumnNames())
	out.Rows = make([]records.Record, 0, len(in.Rows))
	for _, row := range in.Rows {
		rec := make(records.Record, len(out.Columns))
		for orig, name := range mapping {
			if _, ok := declared[name]; ok {
				rec[name] = row[orig]
			}
		}
		out.Rows = append(out.Rows, rec)
	}
	return out, nil
}

// coerceTypes converts every value to its declared type; uncoercible values
// become missing and are handled by the missing-value step.
func (tr *Transformer) coerceTypes(t *records.Table, report *Report) {
	c := newCoercer(tr.Spec)
	for _, col := range tr.Spec.Columns {
		for _, row := range t.Rows {
			val, missing, ok := c.coerce(col, row[col.Name])
			if !ok {
				report.CoercionFailures[col.Name]++
			}
			if missing {
				row[col.Name] = nil
			} else {
				row[col.Name] = val
			}
		}
	}
}

// handleMissing applies the per-column missing-value policy: below the
// threshold impute (median/mode); at or above it drop incomplete rows when
// the column is critical, otherwise impute anyway. Columns are processed in
// declaration order; a drop changes the row set seen by later columns.
func (tr *Transformer) handleMissing(t *records.Table, report *Report) map[string]columnPolicy {
	threshold := tr.Spec.Threshold()
	policies := make(map[string]columnPolicy, len(tr.Spec.Columns))

	for _, col := range tr.Spec.Columns {
		total := len(t.Rows)
		if total == 0 {
			policies[col.Name] = columnPolicy{}
			continue
		}
		missing := 0
		for _, row := range t.Rows {
			if row[col.Name] == nil {
				missing++
			}
		}
		rate := float64(missing) / float64(total)
		policy := columnPolicy{drop: rate >= threshold && col.Critical}
		policies[col.Name] = policy

		if missing == 0 {
			continue
		}
		tr.Logger.Info("column has missing values",
			"column", col.Name, "count", missing, "rate", rate)

		if policy.drop {
			report.DroppedRows[col.Name] += tr.dropMissing(t, col.Name)
		} else {
			report.Imputed[col.Name] += tr.fillMissing(t, col)
		}
	}
	return policies
}

// repairInvalid nulls numeric values outside the declared range and
// categorical values outside the allowed set, then closes the gaps under the
// column's step-3 policy with a freshly computed statistic.
func (tr *Transformer) repairInvalid(t *records.Table, policies map[string]columnPolicy, report *Report) {
	for _, col := range tr.Spec.Columns {
		nulled := 0
		switch {
		case col.Range != nil:
			for _, row := range t.Rows {
				f, ok := asFloat(row[col.Name])
				if ok && (f < col.Range.Min || f > col.Range.Max) {
					row[col.Name] = nil
					nulled++
				}
			}
		case len(col.Allowed) > 0:
			set := col.AllowedSet()
			for _, row := range t.Rows {
				v, ok := row[col.Name].(int64)
				if ok {
					if _, valid := set[v]; !valid {
						row[col.Name] = nil
						nulled++
					}
				}
			}
		}
		if nulled == 0 {
			continue
		}
		report.Repaired[col.Name] += nulled
		tr.Logger.Warn("out-of-range values nulled", "column", col.Name, "count", nulled)
		tr.applyPolicy(t, col, policies[col.Name], report)
	}
}

// standardizeDates canonicalizes declared date columns to YYYY-MM-DD;
// unparseable values become missing and the column's policy closes the gap.
func (tr *Transformer) standardizeDates(t *records.Table, policies map[string]columnPolicy, report *Report) {
	for _, col := range tr.Spec.Columns {
		if col.Kind != schema.KindDate {
			continue
		}
		bad := 0
		for _, row := range t.Rows {
			switch v := row[col.Name].(type) {
			case nil:
				continue
			case time.Time:
				row[col.Name] = v.Format(canonicalDate)
			case string:
				if iso, ok := parseDate(v); ok {
					row[col.Name] = iso
				} else {
					row[col.Name] = nil
					bad++
				}
			default:
				row[col.Name] = nil
				bad++
			}
		}
		if bad == 0 {
			continue
		}
		report.BadDates[col.Name] += bad
		tr.Logger.Warn("unparseable dates nulled", "column", col.Name, "count", bad)
		tr.applyPolicy(t, col, policies[col.Name], report)
	}
}

// applyPolicy closes freshly created gaps in a column per its step-3 policy.
func (tr *Transformer) applyPolicy(t *records.Table, col schema.ColumnSpec, policy columnPolicy, report *Report) {
	if policy.drop {
		report.DroppedRows[col.Name] += tr.dropMissing(t, col.Name)
		return
	}
	report.Imputed[col.Name] += tr.fillMissing(t, col)
}

// dropMissing removes rows with a nil value in the column, preserving order,
// and returns the number removed.
func (tr *Transformer) dropMissing(t *records.Table, col string) int {
	kept := t.Rows[:0]
	dropped := 0
	for _, row := range t.Rows {
		if row[col] == nil {
			dropped++
			continue
		}
		kept = append(kept, row)
	}
	t.Rows = kept
	return dropped
}

// fillMissing imputes nil values in the column with the median (numeric) or
// mode (categorical) of the remaining values and returns the number filled.
func (tr *Transformer) fillMissing(t *records.Table, col schema.ColumnSpec) int {
	val, ok := imputeValue(col.Kind, t.Rows, col.Name)
	if !ok {
		// Every value is missing; nothing to impute from. Leave the column
		// as-is rather than inventing a value.
		tr.Logger.Warn("column entirely missing, imputation skipped", "column", col.Name)
		return 0
	}
	filled := 0
	for _, row := range t.Rows {
		if row[col.Name] == nil {
			row[col.Name] = val
			filled++
		}
	}
	if filled > 0 {
		tr.Logger.Info("imputed missing values", "column", col.Name, "count", filled, "value", val)
	}
	return filled
}

// dedupe removes exact full-row duplicates, keeping the first occurrence.
func (tr *Transformer) dedupe(t *records.Table, report *Report) {
	seen := make(map[uint64]struct{}, len(t.Rows))
	kept := t.Rows[:0]
	for _, row := range t.Rows {
		fp := row.Fingerprint(t.Columns)
		if _, dup := seen[fp]; dup {
			report.Duplicates++
			continue
		}
		seen[fp] = struct{}{}
		kept = append(kept, row)
	}
	t.Rows = kept
	if report.Duplicates > 0 {
		tr.Logger.Info("removed duplicate rows", "count", report.Duplicates)
	}
}

// enrich appends derived columns and the lineage columns.
func (tr *Transformer) enrich(t *records.Table, datasetID int) {
	now := time.Now
	if tr.Now != nil {
		now = tr.Now
	}
	runID := tr.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	processedAt := now().UTC()

	for _, d := range tr.Spec.Derived {
		t.Columns = append(t.Columns, d.Name)
		for _, row := range t.Rows {
			row[d.Name] = d.Fn(row)
		}
	}
	t.Columns = append(t.Columns,
		schema.LineageSource, schema.LineageDatasetID, schema.LineageRunID, schema.LineageProcessed)
	for _, row := range t.Rows {
		row[schema.LineageSource] = tr.Spec.Source
		row[schema.LineageDatasetID] = int64(datasetID)
		row[schema.LineageRunID] = runID
		row[schema.LineageProcessed] = processedAt
	}
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case int64:
		return float64(t), true
	case float64:
		return t, true
	default:
		return 0, false
	}
}
