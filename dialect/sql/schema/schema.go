// Package schema creates tables for models and detects drift between a
// model's declared columns and the live database catalog. It never alters an
// existing table.
package schema

import (
	"strings"

	"github.com/syssam/pgoose/dialect/sql"
)

// Column is the expected definition of a table column.
type Column struct {
	Name string
	// Type is the column type written in CREATE TABLE.
	Type string
	// Catalog is the type name the catalog reports for the column.
	// Empty means Type.
	Catalog string
	Unique  bool
	NotNull bool
}

// CatalogType returns the type expected back from the catalog.
func (c *Column) CatalogType() string {
	if c.Catalog != "" {
		return c.Catalog
	}
	return c.Type
}

// Table is the expected definition of a table.
type Table struct {
	Name string
	// PrimaryKey is the definition of the id column.
	PrimaryKey string
	Columns    []*Column
}

// NewTable returns a new table with the given name.
func NewTable(name string) *Table {
	return &Table{Name: name}
}

// SetPrimaryKey sets the id column definition.
func (t *Table) SetPrimaryKey(def string) *Table {
	t.PrimaryKey = def
	return t
}

// AddColumn appends a column to the table.
func (t *Table) AddColumn(c *Column) *Table {
	t.Columns = append(t.Columns, c)
	return t
}

// Column returns the column with the given name.
func (t *Table) Column(name string) (*Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// CreateStatement returns the CREATE TABLE IF NOT EXISTS statement of the
// table for the given dialect.
func (t *Table) CreateStatement(dialectName string) string {
	b := sql.NewBuilder(dialectName)
	b.WriteString("CREATE TABLE IF NOT EXISTS ").Ident(t.Name).WriteString(" (")
	b.Ident("id").Pad().WriteString(t.PrimaryKey)
	for _, c := range t.Columns {
		b.WriteString(", ").Ident(c.Name).Pad().WriteString(c.Type)
		if c.Unique {
			b.WriteString(" UNIQUE")
		}
		if c.NotNull {
			b.WriteString(" NOT NULL")
		}
	}
	b.WriteByte(')')
	return b.String()
}

func normalizeType(t string) string {
	return strings.Join(strings.Fields(strings.ToLower(t)), " ")
}
