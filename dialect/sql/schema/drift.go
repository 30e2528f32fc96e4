package schema

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSchemaPathsHasChanged is returned when the live table no longer matches
// the schema it was created from.
var ErrSchemaPathsHasChanged = errors.New("pgoose: schema paths has changed, delete the table to refresh it or use the previous schema")

// ColumnChange describes a column whose catalog type differs from the
// declared one.
type ColumnChange struct {
	Column string
	Want   string
	Got    string
}

// Drift holds the differences between a table definition and the catalog.
type Drift struct {
	Table string
	// Changed lists columns present on both sides with different types.
	Changed []ColumnChange
	// Missing lists declared columns that the table does not have.
	Missing []string
	// Extra lists table columns the definition does not declare.
	Extra []string
}

// Fields returns the names of the changed columns.
func (d *Drift) Fields() []string {
	names := make([]string, len(d.Changed))
	for i, c := range d.Changed {
		names[i] = c.Column
	}
	return names
}

// HasChanges reports whether any column type changed.
func (d *Drift) HasChanges() bool {
	return len(d.Changed) > 0
}

// Empty reports whether the table matches its definition.
func (d *Drift) Empty() bool {
	return len(d.Changed) == 0 && len(d.Missing) == 0 && len(d.Extra) == 0
}

// String returns a human-readable summary of the drift.
func (d *Drift) String() string {
	if d.Empty() {
		return "No issues found"
	}
	var sb strings.Builder
	for _, c := range d.Changed {
		fmt.Fprintf(&sb, "%s.%s: column type changed from %s to %s\n", d.Table, c.Column, c.Want, c.Got)
	}
	for _, c := range d.Missing {
		fmt.Fprintf(&sb, "%s.%s: column is missing\n", d.Table, c)
	}
	for _, c := range d.Extra {
		fmt.Fprintf(&sb, "%s.%s: column is not declared\n", d.Table, c)
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

// Diff compares the expected table with the catalog columns, given as
// name and type pairs in table order. The id column is skipped.
func Diff(t *Table, catalog []CatalogColumn) *Drift {
	d := &Drift{Table: t.Name}
	seen := make(map[string]bool, len(catalog))
	for _, cc := range catalog {
		if cc.Name == "id" {
			continue
		}
		seen[cc.Name] = true
		c, ok := t.Column(cc.Name)
		if !ok {
			d.Extra = append(d.Extra, cc.Name)
			continue
		}
		if want, got := normalizeType(c.CatalogType()), normalizeType(cc.Type); want != got {
			d.Changed = append(d.Changed, ColumnChange{Column: c.Name, Want: want, Got: got})
		}
	}
	for _, c := range t.Columns {
		if !seen[c.Name] {
			d.Missing = append(d.Missing, c.Name)
		}
	}
	return d
}

// DriftError reports changed column types. It is recoverable: the table is
// left untouched and the model stays usable for the unchanged columns.
type DriftError struct {
	Drift *Drift
}

// Error returns the error string.
func (e *DriftError) Error() string {
	return fmt.Sprintf("pgoose: schema paths of table %q has changed: %s", e.Drift.Table, strings.Join(e.Drift.Fields(), ", "))
}

// Is reports whether the target error matches ErrSchemaPathsHasChanged.
func (e *DriftError) Is(err error) bool {
	return err == ErrSchemaPathsHasChanged
}

// IsDriftError returns true if the error is a DriftError.
func IsDriftError(err error) bool {
	if err == nil {
		return false
	}
	var e *DriftError
	return errors.As(err, &e)
}
