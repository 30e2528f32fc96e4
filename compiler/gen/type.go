package gen

import (
	"fmt"
	"strings"

	"github.com/syssam/pgoose/compiler/load"
	"github.com/syssam/pgoose/schema/field"
)

type (
	// Graph holds the models to generate typed records for.
	Graph struct {
		*Config
		// Nodes are the models in declaration order.
		Nodes []*Type
	}

	// Type is a model and the Go struct generated for it.
	Type struct {
		// Name is the Go name of the record struct.
		Name string
		// Model is the model name as declared.
		Model  string
		Fields []*Field
		schema *load.Schema
	}

	// Field is a model field and its struct field.
	Field struct {
		// Name is the field name as declared.
		Name string
		// StructField is the Go name of the struct field.
		StructField string
		// Type is the logical type name.
		Type     string
		Required bool
		Unique   bool
		Enum     []any
		Default  any
		// Ref is the referenced record when the field is a foreign key.
		Ref *Type
	}
)

// NewGraph validates the loaded schemas and builds their generation graph.
func NewGraph(c *Config, schemas ...*load.Schema) (*Graph, error) {
	if c == nil {
		return nil, NewConfigError("Config", nil, "configuration is required")
	}
	g := &Graph{Config: c}
	names := make(map[string]*Type)
	tables := make(map[string]*Type)
	for _, s := range schemas {
		t, err := newType(s)
		if err != nil {
			return nil, err
		}
		if prev, ok := tables[s.Table()]; ok {
			return nil, NewSchemaError(s.Name, "", fmt.Sprintf("table %q already declared by model %s", s.Table(), prev.Model), nil)
		}
		if prev, ok := names[t.Name]; ok {
			return nil, NewSchemaError(s.Name, "", fmt.Sprintf("record name %s already used by model %s", t.Name, prev.Model), nil)
		}
		names[t.Name] = t
		tables[s.Table()] = t
		g.Nodes = append(g.Nodes, t)
	}
	for _, t := range g.Nodes {
		for i, f := range t.Fields {
			ref := t.schema.Fields[i].Ref
			if ref == "" {
				continue
			}
			target, ok := tables[strings.ToLower(ref)]
			if !ok {
				return nil, NewSchemaError(t.Model, f.Name, fmt.Sprintf("reference to undeclared model %q", ref), nil)
			}
			f.Ref = target
		}
	}
	return g, nil
}

func newType(s *load.Schema) (*Type, error) {
	name := pascal(singular(s.Name))
	if name == "" || !isExported(name) {
		return nil, NewSchemaError(s.Name, "", "model name does not form a Go identifier", nil)
	}
	t := &Type{Name: name, Model: s.Name, schema: s}
	seen := map[string]string{"ID": "id", "Values": "method Values"}
	for _, lf := range s.Fields {
		if _, err := field.Describe(lf.Type); err != nil {
			return nil, NewSchemaError(s.Name, lf.Name, "", err)
		}
		f := &Field{
			Name:        lf.Name,
			StructField: pascal(lf.Name),
			Type:        lf.Type,
			Required:    lf.Required,
			Unique:      lf.Unique,
			Enum:        lf.Enum,
			Default:     lf.Default,
		}
		if !isExported(f.StructField) {
			return nil, NewSchemaError(s.Name, lf.Name, "field name does not form a Go identifier", nil)
		}
		if prev, ok := seen[f.StructField]; ok {
			return nil, NewSchemaError(s.Name, lf.Name, fmt.Sprintf("struct field %s collides with %s", f.StructField, prev), nil)
		}
		seen[f.StructField] = lf.Name
		t.Fields = append(t.Fields, f)
	}
	return t, nil
}

func isExported(name string) bool {
	for i, r := range name {
		switch {
		case i == 0 && (r < 'A' || r > 'Z'):
			return false
		case !(r == '_' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z'):
			return false
		}
	}
	return name != ""
}

// Table returns the table name of the model.
func (t *Type) Table() string {
	return t.schema.Table()
}

// Receiver returns the receiver name of the record methods.
func (t *Type) Receiver() string {
	r := receiver(t.Name)
	switch r {
	case "in", "v", "values":
		r += "x"
	}
	return r
}

// Plural returns the name of the record list type.
func (t *Type) Plural() string {
	return plural(t.Name)
}

// File returns the file name of the generated record.
func (t *Type) File() string {
	return snake(t.Name) + ".go"
}

// Optional reports whether the struct field is a pointer. Required fields
// and Json fields hold their value directly.
func (f *Field) Optional() bool {
	return !f.Required && !f.IsJSON()
}

// IsJSON reports whether the field holds an arbitrary JSON document.
func (f *Field) IsJSON() bool {
	return f.Type == field.TypeJSON || f.Type == field.TypeJSONB
}

// Builder returns the name of the field constructor in the field package.
func (f *Field) Builder() string {
	switch f.Type {
	case field.TypeBoolean:
		return "Bool"
	case field.TypeJSON:
		return "JSON"
	case field.TypeJSONB:
		return "JSONB"
	case field.TypeUUID:
		return "UUID"
	case field.TypeID:
		return "ID"
	default:
		return f.Type
	}
}
