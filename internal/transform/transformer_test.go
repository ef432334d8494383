package transform

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"heartetl/internal/schema"
	"heartetl/pkg/records"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func buildTable(columns []string, rows ...[]any) *records.Table {
	t := records.NewTable(columns)
	for _, vals := range rows {
		rec := make(records.Record, len(columns))
		for i, col := range columns {
			rec[col] = vals[i]
		}
		t.Rows = append(t.Rows, rec)
	}
	return t
}

// testSpec is a small policy table exercising every column kind. The
// threshold is raised to 0.5 so that small fixtures stay under it unless a
// test wants the drop path.
func testSpec() schema.TableSpec {
	return schema.TableSpec{
		Table:                "patients",
		Source:               "unit_test",
		NATokens:             []string{"", "?"},
		Renames:              map[string]string{"num": "target"},
		MissingRateThreshold: 0.5,
		Columns: []schema.ColumnSpec{
			{Name: "age", Kind: schema.KindInteger, Range: &schema.Range{Min: 0, Max: 120}, Critical: true},
			{Name: "chol", Kind: schema.KindInteger, Range: &schema.Range{Min: 0, Max: 600}},
			{Name: "cp", Kind: schema.KindCategorical, Allowed: []int64{1, 2, 3, 4}},
			{Name: "visit", Kind: schema.KindDate},
			{Name: "target", Kind: schema.KindInteger, Range: &schema.Range{Min: 0, Max: 4}, Critical: true},
		},
		Derived: []schema.DerivedColumn{
			{Name: "has_disease", Kind: schema.KindInteger, Fn: func(r records.Record) any {
				if v, ok := r["target"].(int64); ok && v > 0 {
					return int64(1)
				}
				return int64(0)
			}},
		},
	}
}

func TestTransformRenamesAndProjects(t *testing.T) {
	tr := New(testSpec(), discard())
	in := buildTable(
		[]string{"Age", "chol", "cp", "visit", "Num", "ignored extra"},
		[]any{"54", "240", "3", "2024-01-02", "1", "x"},
	)
	out, _, err := tr.Transform(in, 45)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	row := out.Rows[0]
	if row["target"] != int64(1) {
		t.Fatalf("num was not renamed to target: %v", row["target"])
	}
	if _, present := row["ignored extra"]; present {
		t.Fatalf("undeclared column survived projection")
	}
	if out.HasColumn("num") {
		t.Fatalf("pre-rename column name survived")
	}
}

func TestTransformSchemaErrorOnCollision(t *testing.T) {
	tr := New(testSpec(), discard())
	in := buildTable(
		[]string{"Age", "age ", "chol", "cp", "visit", "target"},
		[]any{"54", "55", "240", "3", "2024-01-02", "1"},
	)
	_, _, err := tr.Transform(in, 45)
	var se *SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("want *SchemaError, got %v", err)
	}
	if se.Column != "age" {
		t.Fatalf("SchemaError.Column = %q, want age", se.Column)
	}
}

func TestTransformErrorOnMissingDeclaredColumn(t *testing.T) {
	tr := New(testSpec(), discard())
	in := buildTable(
		[]string{"age", "chol", "cp", "visit"}, // no target
		[]any{"54", "240", "3", "2024-01-02"},
	)
	_, _, err := tr.Transform(in, 45)
	var te *TransformationError
	if !errors.As(err, &te) {
		t.Fatalf("want *TransformationError, got %v", err)
	}
	if te.Column != "target" {
		t.Fatalf("TransformationError.Column = %q, want target", te.Column)
	}
}

func TestTransformImputesBelowThreshold(t *testing.T) {
	tr := New(testSpec(), discard())
	// One of four chol values missing (25% < 50%): impute the median of
	// 200, 240, 300 = 240. One cp value missing: impute the mode (3).
	in := buildTable(
		[]string{"age", "chol", "cp", "visit", "target"},
		[]any{"50", "200", "3", "2024-01-01", "0"},
		[]any{"55", "?", "3", "2024-01-02", "1"},
		[]any{"60", "240", "?", "2024-01-03", "2"},
		[]any{"65", "300", "1", "2024-01-04", "0"},
	)
	out, report, err := tr.Transform(in, 45)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if got := out.Rows[1]["chol"]; got != int64(240) {
		t.Fatalf("chol imputed = %v, want 240", got)
	}
	if got := out.Rows[2]["cp"]; got != int64(3) {
		t.Fatalf("cp imputed = %v, want mode 3", got)
	}
	if report.Imputed["chol"] != 1 || report.Imputed["cp"] != 1 {
		t.Fatalf("report.Imputed = %v", report.Imputed)
	}
	if out.NumRows() != 4 {
		t.Fatalf("rows = %d, want 4", out.NumRows())
	}
}

func TestTransformDropsRowsForCriticalColumn(t *testing.T) {
	spec := testSpec()
	spec.MissingRateThreshold = 0.2
	tr := New(spec, discard())
	// age is critical and 25% missing (>= 20%): the incomplete row is
	// dropped, not imputed.
	in := buildTable(
		[]string{"age", "chol", "cp", "visit", "target"},
		[]any{"50", "200", "3", "2024-01-01", "0"},
		[]any{"?", "210", "3", "2024-01-02", "1"},
		[]any{"60", "240", "2", "2024-01-03", "2"},
		[]any{"65", "300", "1", "2024-01-04", "0"},
	)
	out, report, err := tr.Transform(in, 45)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if out.NumRows() != 3 {
		t.Fatalf("rows = %d, want 3", out.NumRows())
	}
	if report.DroppedRows["age"] != 1 {
		t.Fatalf("report.DroppedRows = %v", report.DroppedRows)
	}
	for _, row := range out.Rows {
		if row["age"] == nil {
			t.Fatalf("incomplete row survived the drop")
		}
	}
}

func TestTransformImputesNonCriticalAboveThreshold(t *testing.T) {
	spec := testSpec()
	spec.MissingRateThreshold = 0.2
	tr := New(spec, discard())
	// chol is not critical, so even at 50% missing it is imputed.
	in := buildTable(
		[]string{"age", "chol", "cp", "visit", "target"},
		[]any{"50", "?", "3", "2024-01-01", "0"},
		[]any{"55", "200", "3", "2024-01-02", "1"},
		[]any{"60", "?", "2", "2024-01-03", "2"},
		[]any{"65", "300", "1", "2024-01-04", "0"},
	)
	out, report, err := tr.Transform(in, 45)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if out.NumRows() != 4 {
		t.Fatalf("rows = %d, want 4", out.NumRows())
	}
	if report.Imputed["chol"] != 2 {
		t.Fatalf("report.Imputed[chol] = %d, want 2", report.Imputed["chol"])
	}
	// median of the present values 200 and 300 is the integer midpoint.
	if got := out.Rows[0]["chol"]; got != int64(250) {
		t.Fatalf("chol imputed = %v, want 250", got)
	}
}

func TestTransformRepairsOutOfRange(t *testing.T) {
	tr := New(testSpec(), discard())
	// An age of 150 is outside [0, 120]: it is nulled and re-imputed with
	// the median of the remaining values (50, 60, 70) = 60.
	in := buildTable(
		[]string{"age", "chol", "cp", "visit", "target"},
		[]any{"50", "200", "3", "2024-01-01", "0"},
		[]any{"150", "210", "3", "2024-01-02", "1"},
		[]any{"60", "240", "2", "2024-01-03", "2"},
		[]any{"70", "300", "1", "2024-01-04", "0"},
	)
	out, report, err := tr.Transform(in, 45)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if got := out.Rows[1]["age"]; got != int64(60) {
		t.Fatalf("repaired age = %v, want 60", got)
	}
	if report.Repaired["age"] != 1 || report.Imputed["age"] != 1 {
		t.Fatalf("report: Repaired=%v Imputed=%v", report.Repaired, report.Imputed)
	}
}

func TestTransformRepairsDisallowedCategory(t *testing.T) {
	tr := New(testSpec(), discard())
	in := buildTable(
		[]string{"age", "chol", "cp", "visit", "target"},
		[]any{"50", "200", "3", "2024-01-01", "0"},
		[]any{"55", "210", "9", "2024-01-02", "1"},
		[]any{"60", "240", "3", "2024-01-03", "2"},
	)
	out, report, err := tr.Transform(in, 45)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if got := out.Rows[1]["cp"]; got != int64(3) {
		t.Fatalf("repaired cp = %v, want mode 3", got)
	}
	if report.Repaired["cp"] != 1 {
		t.Fatalf("report.Repaired[cp] = %d, want 1", report.Repaired["cp"])
	}
}

func TestTransformStandardizesDates(t *testing.T) {
	tr := New(testSpec(), discard())
	in := buildTable(
		[]string{"age", "chol", "cp", "visit", "target"},
		[]any{"50", "200", "3", "02.01.2024", "0"},
		[]any{"55", "210", "3", "2024-01-03", "1"},
		[]any{"60", "240", "2", "not a date", "2"},
	)
	out, report, err := tr.Transform(in, 45)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if got := out.Rows[0]["visit"]; got != "2024-01-02" {
		t.Fatalf("visit = %v, want 2024-01-02", got)
	}
	if got := out.Rows[1]["visit"]; got != "2024-01-03" {
		t.Fatalf("visit = %v, want 2024-01-03", got)
	}
	// The bad date is nulled and imputed with the mode of the valid ones.
	if got := out.Rows[2]["visit"]; got == nil || got == "not a date" {
		t.Fatalf("bad date not repaired: %v", got)
	}
	if report.BadDates["visit"] != 1 {
		t.Fatalf("report.BadDates = %v", report.BadDates)
	}
}

func TestTransformDedupeKeepsFirst(t *testing.T) {
	tr := New(testSpec(), discard())
	in := buildTable(
		[]string{"age", "chol", "cp", "visit", "target"},
		[]any{"50", "200", "3", "2024-01-01", "0"},
		[]any{"50", "200", "3", "2024-01-01", "0"},
		[]any{"55", "210", "2", "2024-01-02", "1"},
		[]any{"50", "200", "3", "2024-01-01", "0"},
	)
	out, report, err := tr.Transform(in, 45)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if out.NumRows() != 2 {
		t.Fatalf("rows = %d, want 2", out.NumRows())
	}
	if report.Duplicates != 2 {
		t.Fatalf("report.Duplicates = %d, want 2", report.Duplicates)
	}
	if out.Rows[0]["age"] != int64(50) || out.Rows[1]["age"] != int64(55) {
		t.Fatalf("order not preserved: %v", out.Rows)
	}
}

func TestTransformEnrichment(t *testing.T) {
	now := time.Date(2024, 6, 1, 10, 30, 0, 0, time.UTC)
	tr := New(testSpec(), discard())
	tr.Now = func() time.Time { return now }
	tr.RunID = "run-123"

	in := buildTable(
		[]string{"age", "chol", "cp", "visit", "target"},
		[]any{"50", "200", "3", "2024-01-01", "0"},
		[]any{"55", "210", "2", "2024-01-02", "2"},
	)
	out, report, err := tr.Transform(in, 45)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}

	for _, col := range []string{"has_disease", "source", "source_dataset_id", "run_id", "processed_at"} {
		if !out.HasColumn(col) {
			t.Fatalf("missing enrichment column %q", col)
		}
	}
	if out.Rows[0]["has_disease"] != int64(0) || out.Rows[1]["has_disease"] != int64(1) {
		t.Fatalf("has_disease = %v / %v", out.Rows[0]["has_disease"], out.Rows[1]["has_disease"])
	}
	row := out.Rows[0]
	if row["source"] != "unit_test" {
		t.Fatalf("source = %v", row["source"])
	}
	if row["source_dataset_id"] != int64(45) {
		t.Fatalf("source_dataset_id = %v", row["source_dataset_id"])
	}
	if row["run_id"] != "run-123" {
		t.Fatalf("run_id = %v", row["run_id"])
	}
	if ts, ok := row["processed_at"].(time.Time); !ok || !ts.Equal(now) {
		t.Fatalf("processed_at = %v", row["processed_at"])
	}
	if report.RowsIn != 2 || report.RowsOut != 2 {
		t.Fatalf("report rows: in=%d out=%d", report.RowsIn, report.RowsOut)
	}
}

func TestTransformHeartDiseaseSpec(t *testing.T) {
	spec := schema.HeartDisease()
	tr := New(spec, discard())

	cols := []string{
		"age", "sex", "cp", "trestbps", "chol", "fbs", "restecg",
		"thalach", "exang", "oldpeak", "slope", "ca", "thal", "num",
	}
	in := buildTable(cols,
		[]any{"63", "1", "1", "145", "233", "1", "2", "150", "0", "2.3", "3", "0", "6", "0"},
		[]any{"67", "1", "4", "160", "286", "0", "2", "108", "1", "1.5", "2", "3", "3", "2"},
		[]any{"67", "1", "4", "120", "229", "0", "2", "129", "1", "2.6", "2", "2", "7", "1"},
	)
	out, _, err := tr.Transform(in, 45)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if out.NumRows() != 3 {
		t.Fatalf("rows = %d, want 3", out.NumRows())
	}
	if out.Rows[0]["sex"] != true {
		t.Fatalf("sex = %v, want true", out.Rows[0]["sex"])
	}
	if out.Rows[0]["oldpeak"] != 2.3 {
		t.Fatalf("oldpeak = %v, want 2.3", out.Rows[0]["oldpeak"])
	}
	if out.Rows[1]["target"] != int64(2) || out.Rows[1]["has_disease"] != int64(1) {
		t.Fatalf("target/has_disease = %v/%v", out.Rows[1]["target"], out.Rows[1]["has_disease"])
	}
	if out.Rows[0]["has_disease"] != int64(0) {
		t.Fatalf("has_disease = %v, want 0", out.Rows[0]["has_disease"])
	}
}
