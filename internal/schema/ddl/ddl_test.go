package ddl

import (
	"strings"
	"testing"

	"heartetl/internal/schema"
)

func sampleSpec() schema.TableSpec {
	return schema.TableSpec{
		Table: "patients",
		Columns: []schema.ColumnSpec{
			{Name: "age", Kind: schema.KindInteger, Critical: true},
			{Name: "oldpeak", Kind: schema.KindReal},
			{Name: "sex", Kind: schema.KindBool, Critical: true},
			{Name: "visit", Kind: schema.KindDate},
			{Name: "note", Kind: schema.KindText},
		},
		Derived: []schema.DerivedColumn{{Name: "has_disease", Kind: schema.KindInteger}},
	}
}

func TestFromSpec(t *testing.T) {
	def := FromSpec(sampleSpec())
	if def.Name != "patients" {
		t.Fatalf("Name = %q", def.Name)
	}
	// declared + derived + 4 lineage columns
	if len(def.Columns) != 10 {
		t.Fatalf("columns = %d, want 10", len(def.Columns))
	}
	byName := map[string]ColumnDef{}
	for _, c := range def.Columns {
		byName[c.Name] = c
	}
	if byName["age"].Nullable {
		t.Fatalf("critical column age should be NOT NULL")
	}
	if !byName["oldpeak"].Nullable {
		t.Fatalf("non-critical column oldpeak should be nullable")
	}
	if !byName["has_disease"].Nullable {
		t.Fatalf("derived column should be nullable")
	}
	for _, lineage := range []string{"source", "source_dataset_id", "run_id", "processed_at"} {
		c, ok := byName[lineage]
		if !ok {
			t.Fatalf("lineage column %q missing", lineage)
		}
		if c.Nullable {
			t.Fatalf("lineage column %q should be NOT NULL", lineage)
		}
	}
	if byName["processed_at"].Kind != KindTimestamp {
		t.Fatalf("processed_at kind = %v, want timestamp", byName["processed_at"].Kind)
	}
}

func TestCreateTableSQL(t *testing.T) {
	def := FromSpec(sampleSpec())

	cases := []struct {
		dialect  Dialect
		contains []string
	}{
		{Postgres, []string{
			"CREATE TABLE IF NOT EXISTS patients",
			"age BIGINT NOT NULL",
			"oldpeak DOUBLE PRECISION",
			"sex BOOLEAN NOT NULL",
			"visit DATE",
			"processed_at TIMESTAMPTZ NOT NULL",
		}},
		{MySQL, []string{
			"CREATE TABLE IF NOT EXISTS patients",
			"sex TINYINT(1) NOT NULL",
			"oldpeak DOUBLE",
			"note VARCHAR(255)",
			"processed_at DATETIME NOT NULL",
		}},
		{MSSQL, []string{
			"IF OBJECT_ID(N'patients', N'U') IS NULL CREATE TABLE patients",
			"sex BIT NOT NULL",
			"oldpeak FLOAT",
			"note NVARCHAR(MAX)",
			"processed_at DATETIME2 NOT NULL",
		}},
		{SQLite, []string{
			"CREATE TABLE IF NOT EXISTS patients",
			"age INTEGER NOT NULL",
			"oldpeak REAL",
			"sex INTEGER NOT NULL",
			"visit TEXT",
			"processed_at TEXT NOT NULL",
		}},
	}
	for _, tc := range cases {
		t.Run(string(tc.dialect), func(t *testing.T) {
			sql, err := CreateTableSQL(tc.dialect, def)
			if err != nil {
				t.Fatalf("CreateTableSQL: %v", err)
			}
			for _, want := range tc.contains {
				if !strings.Contains(sql, want) {
					t.Fatalf("statement missing %q:\n%s", want, sql)
				}
			}
		})
	}
}

func TestCreateTableSQLValidation(t *testing.T) {
	if _, err := CreateTableSQL(Postgres, TableDef{Name: "", Columns: []ColumnDef{{Name: "a"}}}); err == nil {
		t.Fatalf("accepted empty table name")
	}
	if _, err := CreateTableSQL(Postgres, TableDef{Name: "t"}); err == nil {
		t.Fatalf("accepted table without columns")
	}
	if _, err := CreateTableSQL(Postgres, TableDef{Name: "t", Columns: []ColumnDef{{Name: " "}}}); err == nil {
		t.Fatalf("accepted column with empty name")
	}
}
