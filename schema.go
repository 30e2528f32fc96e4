package pgoose

import (
	"fmt"
	"sync"

	sqlschema "github.com/syssam/pgoose/dialect/sql/schema"
	"github.com/syssam/pgoose/schema/field"
)

// Path is the normalized metadata of one schema field.
type Path struct {
	Name       string
	Type       *field.Type
	Default    any
	Required   bool
	Unique     bool
	Enum       []any
	Ref        string
	Validators []field.Validator
}

// IsForeignKey reports whether the path is an Id field referencing another
// model.
func (p *Path) IsForeignKey() bool {
	return p.Type.IsID() && p.Ref != ""
}

// writable reports whether the path is part of INSERT and UPDATE column
// lists. Plain Id paths are identity columns managed by the database.
func (p *Path) writable() bool {
	return !p.Type.IsID() || p.Ref != ""
}

// column returns the table column that stores the path.
func (p *Path) column(dialectName string) *sqlschema.Column {
	return &sqlschema.Column{
		Name:    p.Name,
		Type:    p.Type.ColumnType(dialectName),
		Catalog: p.Type.CatalogType(dialectName),
		Unique:  p.Unique,
		NotNull: p.Required,
	}
}

var reserved = map[string]bool{"id": true, "schema": true}

// Schema describes the fields, hooks and extension functions of a model.
// Paths are fixed at construction. Hooks, methods and statics may be
// registered at any time and are safe for concurrent use.
type Schema struct {
	paths []*Path
	index map[string]*Path

	mu      sync.RWMutex
	hooks   [2]map[HookKind]Hook
	methods map[string]Method
	statics map[string]Static
}

// NewSchema builds a schema from field declarations. The declaration order
// is the column order of the table.
func NewSchema(fields ...field.Field) (*Schema, error) {
	s := &Schema{
		index:   make(map[string]*Path, len(fields)),
		hooks:   [2]map[HookKind]Hook{make(map[HookKind]Hook), make(map[HookKind]Hook)},
		methods: make(map[string]Method),
		statics: make(map[string]Static),
	}
	for _, f := range fields {
		d := f.Descriptor()
		if reserved[d.Name] {
			return nil, fmt.Errorf("%w: %q", ErrForbiddenColumnName, d.Name)
		}
		if d.Name == "" {
			return nil, fmt.Errorf("pgoose: field must have a name")
		}
		if err := checkIdentifier("field", d.Name); err != nil {
			return nil, err
		}
		if _, ok := s.index[d.Name]; ok {
			return nil, fmt.Errorf("pgoose: field %q declared twice", d.Name)
		}
		typ, err := field.Resolve(d.Type)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", d.Name, err)
		}
		p := &Path{
			Name:       d.Name,
			Type:       typ,
			Required:   d.Required,
			Unique:     d.Unique,
			Enum:       d.Enum,
			Ref:        d.Ref,
			Validators: d.Validators,
		}
		if d.Default != nil {
			if p.Default, err = typ.Coerce(d.Default); err != nil {
				return nil, fmt.Errorf("default of field %q: %w", d.Name, err)
			}
		}
		s.paths = append(s.paths, p)
		s.index[p.Name] = p
	}
	return s, nil
}

// MustSchema is like NewSchema but panics on error.
func MustSchema(fields ...field.Field) *Schema {
	s, err := NewSchema(fields...)
	if err != nil {
		panic(err)
	}
	return s
}

// Paths returns the schema paths in declaration order.
func (s *Schema) Paths() []*Path {
	return append([]*Path(nil), s.paths...)
}

// Path returns the path with the given name.
func (s *Schema) Path(name string) (*Path, bool) {
	p, ok := s.index[name]
	return p, ok
}

// Names returns the path names in declaration order.
func (s *Schema) Names() []string {
	names := make([]string, len(s.paths))
	for i, p := range s.paths {
		names[i] = p.Name
	}
	return names
}

// Pre registers the hook run before operations of the given kind. A later
// registration for the same kind replaces the earlier one.
func (s *Schema) Pre(kind HookKind, fn Hook) error {
	return s.setHook(phasePre, kind, fn)
}

// Post registers the hook run after operations of the given kind. A later
// registration for the same kind replaces the earlier one.
func (s *Schema) Post(kind HookKind, fn Hook) error {
	return s.setHook(phasePost, kind, fn)
}

func (s *Schema) setHook(phase hookPhase, kind HookKind, fn Hook) error {
	if err := kind.check(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if fn == nil {
		delete(s.hooks[phase], kind)
	} else {
		s.hooks[phase][kind] = fn
	}
	return nil
}

func (s *Schema) hook(phase hookPhase, kind HookKind) Hook {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hooks[phase][kind]
}

// Method declares an instance-bound function callable with Instance.Call.
func (s *Schema) Method(name string, fn Method) *Schema {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.methods[name] = fn
	return s
}

// Static declares a model-level function callable with Model.Call.
func (s *Schema) Static(name string, fn Static) *Schema {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statics[name] = fn
	return s
}

func (s *Schema) method(name string) (Method, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn, ok := s.methods[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMethodNotFound, name)
	}
	return fn, nil
}

func (s *Schema) static(name string) (Static, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn, ok := s.statics[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMethodNotFound, name)
	}
	return fn, nil
}

// Table returns the table definition of the schema for the given dialect.
func (s *Schema) Table(name, dialectName string) *sqlschema.Table {
	t := sqlschema.NewTable(name).SetPrimaryKey(field.PrimaryKey(dialectName))
	for _, p := range s.paths {
		t.AddColumn(p.column(dialectName))
	}
	return t
}

// columns returns the selected column names: id followed by every path.
func (s *Schema) columns() []string {
	return append([]string{"id"}, s.Names()...)
}

var idType = func() *field.Type {
	t, err := field.Describe(field.TypeID)
	if err != nil {
		panic(err)
	}
	return t
}()

// lookup returns the type of a column, including the implicit id column.
func (s *Schema) lookup(name string) (*field.Type, error) {
	if name == "id" {
		return idType, nil
	}
	p, ok := s.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrFieldNotFound, name)
	}
	return p.Type, nil
}
