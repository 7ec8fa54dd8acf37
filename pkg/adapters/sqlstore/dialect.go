package sqlstore

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aretw0/transito/pkg/schema"
)

// Dialect captures the differences between the supported SQL engines.
type Dialect struct {
	// Name is the value accepted by ParseDialect.
	Name string
	// Driver is the database/sql driver name the dialect is used with.
	Driver string

	placeholder func(n int) string
	types       map[string]string
}

// SQLite targets modernc.org/sqlite (driver "sqlite").
var SQLite = Dialect{
	Name:        "sqlite",
	Driver:      "sqlite",
	placeholder: func(int) string { return "?" },
	types: map[string]string{
		"string": "TEXT",
		"int":    "INTEGER",
		"float":  "REAL",
		"bool":   "INTEGER",
		"json":   "TEXT",
	},
}

// Postgres targets PostgreSQL through github.com/jackc/pgx/v5/stdlib (driver "pgx").
var Postgres = Dialect{
	Name:        "postgres",
	Driver:      "pgx",
	placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
	types: map[string]string{
		"string": "TEXT",
		"int":    "BIGINT",
		"float":  "DOUBLE PRECISION",
		"bool":   "BOOLEAN",
		"json":   "TEXT",
	},
}

// ParseDialect returns the dialect called name.
func ParseDialect(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "postgres", "postgresql", "pgx":
		return Postgres, nil
	default:
		return Dialect{}, fmt.Errorf("sqlstore: unknown dialect %q", name)
	}
}

// columnType maps a schema type to a column definition.
func (d Dialect) columnType(t schema.Type) (string, error) {
	nullable := schema.IsNullable(t)
	if n, ok := t.(*schema.NullableType); ok {
		t = n.Inner()
	}

	var key string
	switch t.(type) {
	case *schema.StringType:
		key = "string"
	case *schema.IntType:
		key = "int"
	case *schema.FloatType:
		key = "float"
	case *schema.BoolType:
		key = "bool"
	case *schema.SliceType:
		key = "json"
	default:
		return "", fmt.Errorf("type %s has no column mapping", t.Name())
	}

	col := d.types[key]
	if !nullable {
		col += " NOT NULL"
	}
	return col, nil
}

// assignments renders `"col" = <placeholder>` pairs numbered from first.
func (d Dialect) assignments(cols []string, first int) string {
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = quote(c) + " = " + d.placeholder(first+i)
	}
	return strings.Join(parts, ", ")
}

func (d Dialect) placeholders(first, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = d.placeholder(first + i)
	}
	return strings.Join(parts, ", ")
}

func quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func quoteAll(idents []string) string {
	out := make([]string, len(idents))
	for i, id := range idents {
		out[i] = quote(id)
	}
	return strings.Join(out, ", ")
}
