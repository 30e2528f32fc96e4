package pgoose

import (
	"context"
	"fmt"
	"maps"

	"github.com/syssam/pgoose/dialect"
	sqlschema "github.com/syssam/pgoose/dialect/sql/schema"
)

// Model binds a schema to a table. Models are created by Collection.Define
// and are safe for concurrent use.
type Model struct {
	name   string
	table  string
	schema *Schema
	coll   *Collection
	synced *Future[*sqlschema.Report]
}

// Name returns the model name.
func (m *Model) Name() string { return m.name }

// Table returns the table name.
func (m *Model) Table() string { return m.table }

// Schema returns the model schema.
func (m *Model) Schema() *Schema { return m.schema }

// Collection returns the collection the model is registered in.
func (m *Model) Collection() *Collection { return m.coll }

// Synced returns the outcome of the table synchronization started by
// Define.
func (m *Model) Synced() *Future[*sqlschema.Report] { return m.synced }

// Sync creates the model's table if it is missing, or checks it for drift.
func (m *Model) Sync(ctx context.Context) (*sqlschema.Report, error) {
	drv, err := m.coll.Driver()
	if err != nil {
		return nil, err
	}
	s := sqlschema.NewSyncer(drv, sqlschema.WithLogger(m.coll.logger.With("model", m.name)))
	return s.Sync(ctx, m.schema.Table(m.table, drv.Dialect()))
}

// New returns an instance built from the schema defaults and the given
// values. An "id" value gives the instance an identity without reading the
// database.
func (m *Model) New(values map[string]any) (*Instance, error) {
	in := newInstance(m)
	rest := values
	if id, ok := values["id"]; ok {
		rest = maps.Clone(values)
		delete(rest, "id")
		if id != nil {
			n, err := idType.Coerce(id)
			if err != nil {
				return nil, fmt.Errorf("field \"id\": %w", err)
			}
			in.id, in.persisted = n.(int64), true
		}
	}
	if err := in.SetValues(rest); err != nil {
		return nil, err
	}
	return in, nil
}

// MustNew is like New but panics on error.
func (m *Model) MustNew(values map[string]any) *Instance {
	in, err := m.New(values)
	if err != nil {
		panic(err)
	}
	return in
}

// hydrate builds an instance from a raw row.
func (m *Model) hydrate(row map[string]any) (*Instance, error) {
	in := newInstance(m)
	if err := in.assign(row); err != nil {
		return nil, fmt.Errorf("pgoose: hydrate %s: %w", m.name, err)
	}
	return in, nil
}

func (m *Model) driver() (dialect.Driver, error) {
	return m.coll.Driver()
}

func (m *Model) cacheKey(id int64) CacheKey {
	return CacheKey{Table: m.table, Operation: "row", ID: id}
}

// Find returns a query for the rows matching the criteria.
func (m *Model) Find(criteria Criteria) *Select {
	s := newSelect(m, HookFind)
	s.q.criteria(criteria)
	return s
}

// FindOne returns a query for the first row matching the criteria. Exec
// returns a nil instance when no row matches.
func (m *Model) FindOne(criteria Criteria) *SelectOne {
	s := newSelectOne(m, HookFindOne)
	s.q.criteria(criteria)
	return s
}

// FindByID returns a query for the row with the given identity. Exec fails
// with a *NotFoundError when the row does not exist.
func (m *Model) FindByID(id int64) *SelectOne {
	s := newSelectOne(m, HookFindByID)
	s.q.eq("id", id)
	s.id = &id
	return s
}

// FindByIDAndUpdate loads the row with the given identity, assigns the
// values and writes it back.
func (m *Model) FindByIDAndUpdate(id int64, values map[string]any) *Op[*Instance] {
	return &Op[*Instance]{run: func(ctx context.Context) (*Instance, error) {
		in, err := m.FindByID(id).hooks(nil, nil).Exec(ctx)
		if err != nil {
			return nil, err
		}
		if err := in.SetValues(values); err != nil {
			return nil, err
		}
		return m.update(in, HookFindByIDAndUpdate).Exec(ctx)
	}}
}

// FindByIDAndRemove loads the row with the given identity and deletes it.
// The removed instance is returned.
func (m *Model) FindByIDAndRemove(id int64) *Op[*Instance] {
	return &Op[*Instance]{run: func(ctx context.Context) (*Instance, error) {
		in, err := m.FindByID(id).hooks(nil, nil).Exec(ctx)
		if err != nil {
			return nil, err
		}
		return m.remove(in, HookFindByIDAndRemove).Exec(ctx)
	}}
}

// Create returns an insert of a new instance built from the values.
func (m *Model) Create(values map[string]any) *Insert {
	in, err := m.New(values)
	if err != nil {
		return &Insert{m: m, err: err}
	}
	return m.insert(in, HookCreate)
}

// UpdateAll returns an update of every row matching the criteria.
func (m *Model) UpdateAll(criteria Criteria, values map[string]any) *UpdateAll {
	u := &UpdateAll{q: newQuery(m, false)}
	u.q.criteria(criteria)
	u.set(values)
	return u
}

// RemoveAll returns a delete of every row matching the criteria.
func (m *Model) RemoveAll(criteria Criteria) *RemoveAll {
	r := &RemoveAll{q: newQuery(m, false)}
	r.q.criteria(criteria)
	return r
}

// Count returns the number of rows matching the criteria.
func (m *Model) Count(criteria Criteria) *Op[int64] {
	s := newSelect(m, "")
	s.q.criteria(criteria)
	return &Op[int64]{run: s.Count}
}

// Call invokes a static declared on the schema.
func (m *Model) Call(ctx context.Context, name string, args ...any) (any, error) {
	fn, err := m.schema.static(name)
	if err != nil {
		return nil, err
	}
	return fn(ctx, m, args...)
}

// Fields returns the field names of the model in declaration order.
func (m *Model) Fields() []string {
	return m.schema.Names()
}

func (m *Model) insert(in *Instance, kind HookKind) *Insert {
	return &Insert{
		m:    m,
		in:   in,
		kind: kind,
		pre:  m.schema.hook(phasePre, kind),
		post: m.schema.hook(phasePost, kind),
	}
}

func (m *Model) update(in *Instance, kind HookKind) *Update {
	return &Update{
		m:    m,
		in:   in,
		kind: kind,
		pre:  m.schema.hook(phasePre, kind),
		post: m.schema.hook(phasePost, kind),
	}
}

func (m *Model) remove(in *Instance, kind HookKind) *Remove {
	return &Remove{
		m:    m,
		in:   in,
		kind: kind,
		pre:  m.schema.hook(phasePre, kind),
		post: m.schema.hook(phasePost, kind),
	}
}
