// Package load reads model declarations from YAML schema files.
//
// A schema file maps model names to their fields. A field is either a type
// name or a mapping of options:
//
//	users:
//	  name: {type: String, required: true}
//	  email: {type: String, unique: true}
//	  age: Number
//	  role: {type: String, enum: [admin, member], default: member}
//	posts:
//	  title: Text
//	  author: {type: Id, ref: users}
//
// Models and fields keep the order of the file.
package load

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/syssam/pgoose"
	"github.com/syssam/pgoose/schema/field"
)

// ErrInvalidSchema is returned for schema files that cannot be loaded.
var ErrInvalidSchema = errors.New("pgoose: invalid schema file")

// Schema is a model declaration loaded from a schema file.
type Schema struct {
	Name   string   `json:"name,omitempty"`
	Pos    string   `json:"-"`
	Fields []*Field `json:"fields,omitempty"`
}

// Field is a field declaration loaded from a schema file.
type Field struct {
	Name     string `json:"name,omitempty"`
	Type     string `json:"type,omitempty"`
	Default  any    `json:"default,omitempty"`
	Enum     []any  `json:"enum,omitempty"`
	Required bool   `json:"required,omitempty"`
	Unique   bool   `json:"unique,omitempty"`
	Ref      string `json:"ref,omitempty"`
	Pos      string `json:"-"`
}

// Decl returns the map-style declaration of the field.
func (f *Field) Decl() field.Decl {
	return field.Decl{
		Type:     f.Type,
		Default:  f.Default,
		Enum:     f.Enum,
		Required: f.Required,
		Index:    field.Index{Unique: f.Unique},
		Ref:      f.Ref,
	}
}

// Build returns the runtime schema of the declaration.
func (s *Schema) Build() (*pgoose.Schema, error) {
	fields := make([]field.Field, len(s.Fields))
	for i, f := range s.Fields {
		fields[i] = field.FromDecl(f.Name, f.Decl())
	}
	ps, err := pgoose.NewSchema(fields...)
	if err != nil {
		return nil, fmt.Errorf("%s: schema %q: %w", s.Pos, s.Name, err)
	}
	return ps, nil
}

// Table returns the table name of the model.
func (s *Schema) Table() string {
	return strings.ToLower(s.Name)
}

// Load reads the schema files at the given paths. A directory contributes
// its .yaml and .yml files in lexical order. Model names must be unique
// across all files.
func Load(paths ...string) ([]*Schema, error) {
	var files []string
	for _, p := range paths {
		fi, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !fi.IsDir() {
			files = append(files, p)
			continue
		}
		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if ext := filepath.Ext(e.Name()); !e.IsDir() && (ext == ".yaml" || ext == ".yml") {
				files = append(files, filepath.Join(p, e.Name()))
			}
		}
	}
	var (
		all  []*Schema
		seen = make(map[string]string)
	)
	for _, f := range files {
		schemas, err := ParseFile(f)
		if err != nil {
			return nil, err
		}
		for _, s := range schemas {
			if pos, ok := seen[s.Table()]; ok {
				return nil, fmt.Errorf("%w: %s: model %q already declared at %s", ErrInvalidSchema, s.Pos, s.Name, pos)
			}
			seen[s.Table()] = s.Pos
		}
		all = append(all, schemas...)
	}
	return all, nil
}

// ParseFile reads a single schema file.
func ParseFile(path string) ([]*Schema, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(path, b)
}

// Parse decodes the content of a schema file. The name is used in error
// positions.
func Parse(name string, b []byte) ([]*Schema, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidSchema, name, err)
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return nil, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: %s: expected a mapping of models", ErrInvalidSchema, pos(name, root))
	}
	var schemas []*Schema
	for i := 0; i < len(root.Content); i += 2 {
		key, value := root.Content[i], root.Content[i+1]
		s := &Schema{Name: key.Value, Pos: pos(name, key)}
		if value.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("%w: %s: model %q must map field names to declarations", ErrInvalidSchema, s.Pos, s.Name)
		}
		for j := 0; j < len(value.Content); j += 2 {
			f, err := parseField(name, value.Content[j], value.Content[j+1])
			if err != nil {
				return nil, err
			}
			s.Fields = append(s.Fields, f)
		}
		schemas = append(schemas, s)
	}
	return schemas, nil
}

var fieldKeys = []string{"default", "enum", "index", "ref", "required", "type", "unique"}

func parseField(name string, key, value *yaml.Node) (*Field, error) {
	f := &Field{Name: key.Value, Pos: pos(name, key)}
	fail := func(n *yaml.Node, format string, args ...any) error {
		return fmt.Errorf("%w: %s: field %q: %s", ErrInvalidSchema, pos(name, n), f.Name, fmt.Sprintf(format, args...))
	}
	switch value.Kind {
	case yaml.ScalarNode:
		f.Type = value.Value
	case yaml.MappingNode:
		for i := 0; i < len(value.Content); i += 2 {
			k, v := value.Content[i], value.Content[i+1]
			var err error
			switch k.Value {
			case "type":
				err = v.Decode(&f.Type)
			case "default":
				err = v.Decode(&f.Default)
			case "enum":
				err = v.Decode(&f.Enum)
			case "required":
				err = v.Decode(&f.Required)
			case "unique":
				err = v.Decode(&f.Unique)
			case "index":
				var idx field.Index
				err = v.Decode(&idx)
				f.Unique = f.Unique || idx.Unique
			case "ref":
				err = v.Decode(&f.Ref)
			default:
				return nil, fail(k, "unknown key %q, expected one of %s", k.Value, strings.Join(fieldKeys, ", "))
			}
			if err != nil {
				return nil, fail(v, "%s: %v", k.Value, err)
			}
		}
	default:
		return nil, fail(value, "expected a type name or a mapping")
	}
	if f.Type == "" {
		return nil, fail(value, "missing type")
	}
	if _, err := field.Describe(f.Type); err != nil {
		return nil, fail(value, "%v, expected one of %s", err, strings.Join(field.Names(), ", "))
	}
	if f.Ref != "" && f.Type != field.TypeID {
		return nil, fail(value, "ref requires type %s", field.TypeID)
	}
	return f, nil
}

func pos(name string, n *yaml.Node) string {
	return fmt.Sprintf("%s:%d", name, n.Line)
}

// Define builds and registers every loaded schema in the collection, in
// order. References to undeclared models are rejected first.
func Define(ctx context.Context, c *pgoose.Collection, schemas []*Schema) ([]*pgoose.Model, error) {
	tables := make([]string, len(schemas))
	for i, s := range schemas {
		tables[i] = s.Table()
	}
	for _, s := range schemas {
		for _, f := range s.Fields {
			if f.Ref == "" || slices.Contains(tables, strings.ToLower(f.Ref)) {
				continue
			}
			if _, err := c.Model(f.Ref); err != nil {
				return nil, fmt.Errorf("%s: field %q references %q: %w", f.Pos, f.Name, f.Ref, err)
			}
		}
	}
	models := make([]*pgoose.Model, 0, len(schemas))
	for _, s := range schemas {
		ps, err := s.Build()
		if err != nil {
			return nil, err
		}
		m, err := c.Define(ctx, s.Name, ps)
		if m != nil {
			models = append(models, m)
		}
		if err != nil {
			return models, err
		}
	}
	return models, nil
}
