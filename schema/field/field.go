package field

import "fmt"

// Validator is a predicate run against a field value before it is written.
// Message is returned to the caller when Fn reports false.
type Validator struct {
	Fn      func(any) bool
	Message string
}

// Descriptor holds the raw declaration of a field. Type is either a type
// name or a *Type and is resolved when the owning schema is built.
type Descriptor struct {
	Name       string
	Type       any
	Default    any
	Required   bool
	Unique     bool
	Enum       []any
	Ref        string
	Validators []Validator
}

// Field is implemented by every field declaration.
type Field interface {
	Descriptor() *Descriptor
}

// Builder is the fluent builder shared by every field type.
type Builder struct {
	desc *Descriptor
}

// New returns a builder for a field of the given declared type.
func New(name string, typ any) *Builder {
	return &Builder{desc: &Descriptor{Name: name, Type: typ}}
}

// String returns a builder for a varchar(255) field.
func String(name string) *Builder { return New(name, TypeString) }

// Text returns a builder for an unbounded text field.
func Text(name string) *Builder { return New(name, TypeText) }

// Number returns a builder for a floating point field.
func Number(name string) *Builder { return New(name, TypeNumber) }

// BigNumber returns a builder for an arbitrary precision decimal field.
func BigNumber(name string) *Builder { return New(name, TypeBigNumber) }

// Bool returns a builder for a boolean field.
func Bool(name string) *Builder { return New(name, TypeBoolean) }

// Date returns a builder for a timestamp field.
func Date(name string) *Builder { return New(name, TypeDate) }

// JSON returns a builder for a json field.
func JSON(name string) *Builder { return New(name, TypeJSON) }

// JSONB returns a builder for a jsonb field.
func JSONB(name string) *Builder { return New(name, TypeJSONB) }

// UUID returns a builder for a uuid field.
func UUID(name string) *Builder { return New(name, TypeUUID) }

// ID returns a builder for an integer identity field. Combined with Ref it
// declares a foreign key to another model.
func ID(name string) *Builder { return New(name, TypeID) }

// Default sets the value used when an instance is built without one.
func (b *Builder) Default(v any) *Builder {
	b.desc.Default = v
	return b
}

// Required marks the field as NOT NULL and adds a definedness validator.
func (b *Builder) Required() *Builder {
	if !b.desc.Required {
		b.desc.Required = true
		name := b.desc.Name
		b.desc.Validators = append(b.desc.Validators, Validator{
			Fn:      func(v any) bool { return v != nil },
			Message: fmt.Sprintf("%s is marked as required but missing", name),
		})
	}
	return b
}

// Unique adds a UNIQUE constraint to the column.
func (b *Builder) Unique() *Builder {
	b.desc.Unique = true
	return b
}

// Enum restricts the field to the given values. A nil value is accepted so
// that optional enum fields can be left unset.
func (b *Builder) Enum(values ...any) *Builder {
	d := b.desc
	if len(d.Enum) == 0 {
		d.Validators = append(d.Validators, Validator{
			Fn: func(v any) bool {
				if v == nil {
					return true
				}
				for _, a := range d.Enum {
					if fmt.Sprint(a) == fmt.Sprint(v) {
						return true
					}
				}
				return false
			},
			Message: fmt.Sprintf("%s is not one of the allowed values", d.Name),
		})
	}
	d.Enum = append(d.Enum, values...)
	return b
}

// Validate appends a custom validator.
func (b *Builder) Validate(fn func(any) bool, message string) *Builder {
	b.desc.Validators = append(b.desc.Validators, Validator{Fn: fn, Message: message})
	return b
}

// Ref sets the model an Id field references.
func (b *Builder) Ref(model string) *Builder {
	b.desc.Ref = model
	return b
}

// Descriptor implements the Field interface.
func (b *Builder) Descriptor() *Descriptor {
	return b.desc
}

// Index holds the index options of a map-style declaration.
type Index struct {
	Unique bool `yaml:"unique"`
}

// Decl is the map-style declaration of a field, as found in schema files.
type Decl struct {
	Type     any         `yaml:"type"`
	Default  any         `yaml:"default"`
	Enum     []any       `yaml:"enum"`
	Validate []Validator `yaml:"-"`
	Required bool        `yaml:"required"`
	Index    Index       `yaml:"index"`
	Ref      string      `yaml:"ref"`
}

// FromDecl returns a builder populated from a map-style declaration.
func FromDecl(name string, d Decl) *Builder {
	b := New(name, d.Type).Default(d.Default)
	for _, v := range d.Validate {
		b.Validate(v.Fn, v.Message)
	}
	if len(d.Enum) > 0 {
		b.Enum(d.Enum...)
	}
	if d.Required {
		b.Required()
	}
	if d.Index.Unique {
		b.Unique()
	}
	if d.Ref != "" {
		b.Ref(d.Ref)
	}
	return b
}
