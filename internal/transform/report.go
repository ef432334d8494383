package transform

import (
	"log/slog"
	"sort"
)

// Report accumulates data-quality counters during a transform run. It is
// created empty, mutated by each step, logged once at the end of the stage,
// and then discarded; nothing in it persists across runs.
type Report struct {
	RowsIn  int
	RowsOut int

	// CoercionFailures counts values that could not be coerced to the
	// declared type and were converted to missing (step 2).
	CoercionFailures map[string]int

	// Imputed counts missing values filled with the column median/mode
	// (steps 3-5).
	Imputed map[string]int

	// DroppedRows counts rows dropped per critical column with a high
	// missing rate (steps 3-5).
	DroppedRows map[string]int

	// Repaired counts out-of-range or out-of-set values nulled and then
	// re-imputed or dropped (step 4).
	Repaired map[string]int

	// BadDates counts unparseable date values treated as missing (step 5).
	BadDates map[string]int

	// Duplicates counts full-row duplicates removed (step 6).
	Duplicates int
}

// NewReport returns an empty report.
func NewReport() *Report {
	return &Report{
		CoercionFailures: map[string]int{},
		Imputed:          map[string]int{},
		DroppedRows:      map[string]int{},
		Repaired:         map[string]int{},
		BadDates:         map[string]int{},
	}
}

// TotalImputed sums imputations across columns.
func (r *Report) TotalImputed() int { return sumCounts(r.Imputed) }

// TotalDropped sums dropped rows across columns.
func (r *Report) TotalDropped() int { return sumCounts(r.DroppedRows) }

// TotalRepaired sums range/category repairs across columns.
func (r *Report) TotalRepaired() int { return sumCounts(r.Repaired) }

// LogSummary emits the report to the log, one line for the totals and one
// per column that saw corrections.
func (r *Report) LogSummary(logger *slog.Logger) {
	logger.Info("transform report",
		"rows_in", r.RowsIn,
		"rows_out", r.RowsOut,
		"imputed", r.TotalImputed(),
		"rows_dropped", r.TotalDropped(),
		"repaired", r.TotalRepaired(),
		"duplicates_removed", r.Duplicates,
	)
	for _, col := range sortedKeys(r.CoercionFailures) {
		logger.Debug("uncoercible values treated as missing", "column", col, "count", r.CoercionFailures[col])
	}
	for _, col := range sortedKeys(r.Imputed) {
		logger.Info("imputed missing values", "column", col, "count", r.Imputed[col])
	}
	for _, col := range sortedKeys(r.DroppedRows) {
		logger.Warn("dropped rows with missing values", "column", col, "count", r.DroppedRows[col])
	}
	for _, col := range sortedKeys(r.Repaired) {
		logger.Warn("repaired out-of-range values", "column", col, "count", r.Repaired[col])
	}
	for _, col := range sortedKeys(r.BadDates) {
		logger.Warn("unparseable dates treated as missing", "column", col, "count", r.BadDates[col])
	}
}

func sumCounts(m map[string]int) int {
	total := 0
	for _, n := range m {
		total += n
	}
	return total
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
