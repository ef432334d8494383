// Package ddl renders CREATE TABLE statements for the destination table from
// a schema.TableSpec. The model is dialect-agnostic; rendering maps logical
// kinds to per-dialect SQL types and emits create-if-absent semantics in the
// form each backend understands.
package ddl

import (
	"fmt"
	"strings"

	"heartetl/internal/schema"
)

// Dialect selects the SQL flavor used when rendering.
type Dialect string

const (
	Postgres Dialect = "postgres"
	MySQL    Dialect = "mysql"
	MSSQL    Dialect = "mssql"
	SQLite   Dialect = "sqlite"
)

// ColumnDef describes a single rendered column.
type ColumnDef struct {
	Name     string
	Kind     schema.Kind
	Nullable bool
}

// TableDef holds the table name and an ordered list of columns.
type TableDef struct {
	Name    string
	Columns []ColumnDef
}

// FromSpec builds the destination TableDef from a policy table: declared
// columns, derived columns, then the lineage columns. Critical and lineage
// columns are NOT NULL; everything else is nullable (the transformer closes
// all gaps, but the database does not enforce that for repaired columns).
func FromSpec(s schema.TableSpec) TableDef {
	def := TableDef{Name: s.Table}
	for _, c := range s.Columns {
		def.Columns = append(def.Columns, ColumnDef{Name: c.Name, Kind: c.Kind, Nullable: !c.Critical})
	}
	for _, d := range s.Derived {
		def.Columns = append(def.Columns, ColumnDef{Name: d.Name, Kind: d.Kind, Nullable: true})
	}
	def.Columns = append(def.Columns,
		ColumnDef{Name: schema.LineageSource, Kind: schema.KindText},
		ColumnDef{Name: schema.LineageDatasetID, Kind: schema.KindInteger},
		ColumnDef{Name: schema.LineageRunID, Kind: schema.KindText},
		ColumnDef{Name: schema.LineageProcessed, Kind: KindTimestamp},
	)
	return def
}

// KindTimestamp marks the processed_at lineage column; the policy table
// itself never declares this kind.
const KindTimestamp = schema.Kind(250)

// CreateTableSQL renders a create-if-absent statement for the dialect.
func CreateTableSQL(d Dialect, t TableDef) (string, error) {
	name := strings.TrimSpace(t.Name)
	if name == "" {
		return "", fmt.Errorf("ddl: table name must not be empty")
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("ddl: at least one column is required")
	}

	cols := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		if strings.TrimSpace(c.Name) == "" {
			return "", fmt.Errorf("ddl: column with empty name in table %s", name)
		}
		typ, err := sqlType(d, c.Kind)
		if err != nil {
			return "", fmt.Errorf("ddl: column %s: %w", c.Name, err)
		}
		var sb strings.Builder
		sb.WriteString(c.Name)
		sb.WriteByte(' ')
		sb.WriteString(typ)
		if !c.Nullable {
			sb.WriteString(" NOT NULL")
		}
		cols = append(cols, sb.String())
	}

	body := fmt.Sprintf("(\n  %s\n)", strings.Join(cols, ",\n  "))

	switch d {
	case MSSQL:
		// SQL Server has no CREATE TABLE IF NOT EXISTS.
		return fmt.Sprintf(
			"IF OBJECT_ID(N'%s', N'U') IS NULL CREATE TABLE %s %s;",
			name, name, body,
		), nil
	default:
		return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s %s;", name, body), nil
	}
}

// sqlType maps a logical kind to the dialect's column type.
func sqlType(d Dialect, k schema.Kind) (string, error) {
	switch k {
	case schema.KindInteger, schema.KindCategorical:
		if d == SQLite {
			return "INTEGER", nil
		}
		return "BIGINT", nil
	case schema.KindReal:
		switch d {
		case MySQL:
			return "DOUBLE", nil
		case MSSQL:
			return "FLOAT", nil
		case SQLite:
			return "REAL", nil
		default:
			return "DOUBLE PRECISION", nil
		}
	case schema.KindBool:
		switch d {
		case MySQL:
			return "TINYINT(1)", nil
		case MSSQL:
			return "BIT", nil
		case SQLite:
			return "INTEGER", nil
		default:
			return "BOOLEAN", nil
		}
	case schema.KindDate:
		if d == SQLite {
			return "TEXT", nil // canonical YYYY-MM-DD strings
		}
		return "DATE", nil
	case KindTimestamp:
		switch d {
		case Postgres:
			return "TIMESTAMPTZ", nil
		case MySQL:
			return "DATETIME", nil
		case MSSQL:
			return "DATETIME2", nil
		case SQLite:
			return "TEXT", nil
		}
		return "", fmt.Errorf("unknown dialect %q", d)
	case schema.KindText:
		switch d {
		case MSSQL:
			return "NVARCHAR(MAX)", nil
		case MySQL:
			return "VARCHAR(255)", nil
		default:
			return "TEXT", nil
		}
	default:
		return "", fmt.Errorf("unknown kind %d", k)
	}
}
