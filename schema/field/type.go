package field

import (
	"fmt"
	"slices"
	"sync"

	"github.com/syssam/pgoose/dialect"
)

// Builtin type names.
const (
	TypeString    = "String"
	TypeText      = "Text"
	TypeNumber    = "Number"
	TypeBigNumber = "BigNumber"
	TypeBoolean   = "Boolean"
	TypeDate      = "Date"
	TypeJSON      = "Json"
	TypeJSONB     = "JsonB"
	TypeUUID      = "Uuid"
	TypeID        = "Id"
)

// StringLimit is the number of characters a String value is clipped to.
const StringLimit = 255

// Type describes a logical field type: its column type in each dialect, the
// type name the catalog reports for such a column, and the value codecs.
//
// Columns and Catalog are keyed by dialect name. Lookups for a dialect that
// has no entry fall back to the Postgres entry.
type Type struct {
	Name    string
	Columns map[string]string
	Catalog map[string]string
	// Encode converts a non-nil application value to a driver value.
	Encode func(any) (any, error)
	// Decode converts a non-nil raw column value to the native Go value.
	Decode func(any) (any, error)
}

// ColumnType returns the column type used in CREATE TABLE statements.
func (t *Type) ColumnType(dialectName string) string {
	return lookup(t.Columns, dialectName)
}

// CatalogType returns the type name the catalog reports for the column.
func (t *Type) CatalogType(dialectName string) string {
	if c := lookup(t.Catalog, dialectName); c != "" {
		return c
	}
	return t.ColumnType(dialectName)
}

// ToDB converts v to a value that can be bound as a query argument.
// A nil value stays nil.
func (t *Type) ToDB(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if t.Encode == nil {
		return v, nil
	}
	return t.Encode(v)
}

// FromDB converts a raw column value back to the type's native Go value.
// SQL NULL is returned as nil.
func (t *Type) FromDB(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if t.Decode == nil {
		return v, nil
	}
	return t.Decode(v)
}

// Coerce normalizes an application value to the form FromDB would return
// for it after a round trip through the database.
func (t *Type) Coerce(v any) (any, error) {
	dv, err := t.ToDB(v)
	if err != nil {
		return nil, err
	}
	return t.FromDB(dv)
}

// IsID reports whether t is the identity type.
func (t *Type) IsID() bool {
	return t.Name == TypeID
}

func (t *Type) String() string {
	return t.Name
}

func lookup(m map[string]string, dialectName string) string {
	if v, ok := m[dialectName]; ok {
		return v
	}
	return m[dialect.Postgres]
}

// PrimaryKey returns the column definition of the id column.
func PrimaryKey(dialectName string) string {
	switch dialectName {
	case dialect.MySQL:
		return "INT AUTO_INCREMENT PRIMARY KEY"
	case dialect.SQLite:
		return "INTEGER PRIMARY KEY AUTOINCREMENT"
	default:
		return "SERIAL PRIMARY KEY"
	}
}

var registry = struct {
	sync.RWMutex
	types map[string]*Type
}{types: make(map[string]*Type)}

// Register adds a type to the registry. Registering a name twice fails.
func Register(t *Type) error {
	if t == nil || t.Name == "" {
		return fmt.Errorf("%w: type must have a name", ErrBadTypeFormat)
	}
	registry.Lock()
	defer registry.Unlock()
	if _, ok := registry.types[t.Name]; ok {
		return fmt.Errorf("pgoose: type %q already registered", t.Name)
	}
	registry.types[t.Name] = t
	return nil
}

// MustRegister is like Register but panics on error.
func MustRegister(t *Type) {
	if err := Register(t); err != nil {
		panic(err)
	}
}

// Describe returns the registered type with the given name.
func Describe(name string) (*Type, error) {
	registry.RLock()
	defer registry.RUnlock()
	t, ok := registry.types[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUndefinedType, name)
	}
	return t, nil
}

// Names returns the registered type names in sorted order.
func Names() []string {
	registry.RLock()
	defer registry.RUnlock()
	names := make([]string, 0, len(registry.types))
	for n := range registry.types {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Resolve turns a declared type into a registered *Type. The declaration may
// be a type name or a *Type, which must be the one registered under its
// name.
func Resolve(declared any) (*Type, error) {
	switch t := declared.(type) {
	case *Type:
		if t == nil {
			return nil, ErrBadTypeFormat
		}
		reg, err := Describe(t.Name)
		if err != nil {
			return nil, err
		}
		if reg != t {
			return nil, fmt.Errorf("%w: %q is not the registered type", ErrUndefinedType, t.Name)
		}
		return t, nil
	case string:
		if t == "" {
			return nil, ErrBadTypeFormat
		}
		return Describe(t)
	default:
		return nil, fmt.Errorf("%w: %T", ErrBadTypeFormat, declared)
	}
}
