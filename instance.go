package pgoose

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Instance is one row of a model. Values are keyed by field name and always
// hold the native Go value of the field's type.
type Instance struct {
	model     *Model
	id        int64
	persisted bool
	values    map[string]any
	populated map[string]*Instance
}

func newInstance(m *Model) *Instance {
	in := &Instance{model: m, values: make(map[string]any, len(m.schema.paths))}
	for _, p := range m.schema.paths {
		in.values[p.Name] = deepCopy(p.Default)
	}
	return in
}

// Model returns the model of the instance.
func (in *Instance) Model() *Model {
	return in.model
}

// ID returns the identity of the instance. It is zero until the instance is
// persisted and again after it is removed.
func (in *Instance) ID() int64 {
	return in.id
}

// IsPersisted reports whether the instance has an identity in the database.
func (in *Instance) IsPersisted() bool {
	return in.persisted
}

// Get returns the value of a field, or nil if unset. "id" returns the
// identity.
func (in *Instance) Get(name string) any {
	if name == "id" {
		if !in.persisted {
			return nil
		}
		return in.id
	}
	return in.values[name]
}

// Set assigns a field after converting the value to the field's type.
func (in *Instance) Set(name string, v any) error {
	cv, err := in.coerce(name, v)
	if err != nil {
		return err
	}
	in.values[name] = cv
	return nil
}

// SetValues assigns several fields. When a value is rejected, the first
// error in field name order is returned and no field is assigned.
func (in *Instance) SetValues(values map[string]any) error {
	coerced := make(map[string]any, len(values))
	for _, name := range slices.Sorted(maps.Keys(values)) {
		cv, err := in.coerce(name, values[name])
		if err != nil {
			return err
		}
		coerced[name] = cv
	}
	maps.Copy(in.values, coerced)
	return nil
}

func (in *Instance) coerce(name string, v any) (any, error) {
	if reserved[name] {
		return nil, fmt.Errorf("%w: %q", ErrForbiddenColumnName, name)
	}
	p, ok := in.model.schema.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrFieldNotFound, in.model.name, name)
	}
	cv, err := p.Type.Coerce(deepCopy(v))
	if err != nil {
		return nil, fmt.Errorf("field %q: %w", name, err)
	}
	return cv, nil
}

// Values returns a deep copy of the field values, including "id" once the
// instance is persisted.
func (in *Instance) Values() map[string]any {
	out := make(map[string]any, len(in.values)+1)
	for k, v := range in.values {
		out[k] = deepCopy(v)
	}
	if in.persisted {
		out["id"] = in.id
	}
	return out
}

// Populated returns the referenced instance loaded by Populate for the
// given field.
func (in *Instance) Populated(name string) (*Instance, bool) {
	p, ok := in.populated[name]
	return p, ok
}

// GetString returns a String, Text or Uuid field as a string.
func (in *Instance) GetString(name string) string {
	switch v := in.values[name].(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	}
	return ""
}

// GetFloat returns a Number field.
func (in *Instance) GetFloat(name string) float64 {
	f, _ := in.values[name].(float64)
	return f
}

// GetInt returns an Id field.
func (in *Instance) GetInt(name string) int64 {
	if name == "id" {
		return in.id
	}
	n, _ := in.values[name].(int64)
	return n
}

// GetBool returns a Boolean field.
func (in *Instance) GetBool(name string) bool {
	b, _ := in.values[name].(bool)
	return b
}

// GetTime returns a Date field.
func (in *Instance) GetTime(name string) time.Time {
	t, _ := in.values[name].(time.Time)
	return t
}

// GetDecimal returns a BigNumber field.
func (in *Instance) GetDecimal(name string) decimal.Decimal {
	d, _ := in.values[name].(decimal.Decimal)
	return d
}

// GetUUID returns a Uuid field.
func (in *Instance) GetUUID(name string) uuid.UUID {
	u, _ := in.values[name].(uuid.UUID)
	return u
}

// Validate runs the validators of every field in declaration order and
// returns the first failure.
func (in *Instance) Validate() error {
	for _, p := range in.model.schema.paths {
		if err := validatePath(p, in.values[p.Name]); err != nil {
			return err
		}
	}
	return nil
}

func validatePath(p *Path, v any) error {
	for _, vd := range p.Validators {
		if vd.Fn != nil && !vd.Fn(v) {
			return NewValidationError(p.Name, errors.New(vd.Message))
		}
	}
	return nil
}

// Save inserts the instance if it is not persisted and updates it
// otherwise. The save hooks run in both cases.
func (in *Instance) Save(ctx context.Context) error {
	m := in.model
	if in.persisted {
		_, err := m.update(in, HookSave).Exec(ctx)
		return err
	}
	_, err := m.insert(in, HookSave).Exec(ctx)
	return err
}

// Create inserts the instance. It fails with ErrModelAlreadyPersisted if
// the instance has an identity.
func (in *Instance) Create(ctx context.Context) error {
	_, err := in.model.insert(in, HookCreate).Exec(ctx)
	return err
}

// Update assigns the given values and writes the instance. It fails with
// ErrModelNotPersisted, before assigning anything, if the instance was never
// inserted.
func (in *Instance) Update(ctx context.Context, values map[string]any) error {
	if !in.persisted {
		return ErrModelNotPersisted
	}
	if err := in.SetValues(values); err != nil {
		return err
	}
	_, err := in.model.update(in, HookUpdate).Exec(ctx)
	return err
}

// Remove deletes the row of the instance. Afterwards the instance is no
// longer persisted and keeps its field values.
func (in *Instance) Remove(ctx context.Context) error {
	_, err := in.model.remove(in, HookRemove).Exec(ctx)
	return err
}

// Call invokes a method declared on the schema with the instance.
func (in *Instance) Call(ctx context.Context, name string, args ...any) (any, error) {
	fn, err := in.model.schema.method(name)
	if err != nil {
		return nil, err
	}
	return fn(ctx, in, args...)
}

// String returns the model name and identity of the instance.
func (in *Instance) String() string {
	if !in.persisted {
		return in.model.name + "(new)"
	}
	return fmt.Sprintf("%s(%d)", in.model.name, in.id)
}

// assign stores a raw row returned by the database. Unknown columns are
// ignored.
func (in *Instance) assign(row map[string]any) error {
	if raw, ok := row["id"]; ok && raw != nil {
		id, err := idType.FromDB(raw)
		if err != nil {
			return fmt.Errorf("column id: %w", err)
		}
		in.id, in.persisted = id.(int64), true
	}
	for _, p := range in.model.schema.paths {
		raw, ok := row[p.Name]
		if !ok {
			continue
		}
		v, err := p.Type.FromDB(raw)
		if err != nil {
			return fmt.Errorf("column %q: %w", p.Name, err)
		}
		in.values[p.Name] = v
	}
	return nil
}

// deepCopy copies the containers produced by JSON decoding and byte slices
// so instances never share mutable values.
func deepCopy(v any) any {
	switch v := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, e := range v {
			out[k] = deepCopy(e)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = deepCopy(e)
		}
		return out
	case []byte:
		return append([]byte(nil), v...)
	default:
		return v
	}
}
