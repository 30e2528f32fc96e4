package pgoose

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/syssam/pgoose/dialect"
	"github.com/syssam/pgoose/dialect/sql"
)

// Insert writes a new instance. Rows come back through RETURNING where
// the dialect supports it, and through LastInsertId and a select otherwise.
type Insert struct {
	m         *Model
	in        *Instance
	kind      HookKind
	err       error
	pre, post Hook
}

// Instance returns the instance being inserted.
func (i *Insert) Instance() *Instance {
	return i.in
}

// Pre replaces the hook run before the insert.
func (i *Insert) Pre(fn Hook) *Insert {
	i.pre = fn
	return i
}

// Post replaces the hook run after the insert.
func (i *Insert) Post(fn Hook) *Insert {
	i.post = fn
	return i
}

// Exec runs the insert and refreshes the instance from the stored row.
func (i *Insert) Exec(ctx context.Context) (*Instance, error) {
	if i.err != nil {
		return nil, i.err
	}
	m, in := i.m, i.in
	if in.persisted {
		return nil, ErrModelAlreadyPersisted
	}
	drv, err := m.driver()
	if err != nil {
		return nil, err
	}
	if err := runPre(ctx, i.kind, i.pre, in); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	d := drv.Dialect()
	ins := sql.Dialect(d).Insert(m.table)
	for _, p := range m.schema.paths {
		v := in.values[p.Name]
		if !p.writable() || v == nil {
			continue
		}
		dv, err := p.Type.ToDB(v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", p.Name, err)
		}
		ins.Set(p.Name, dv)
	}
	var row map[string]any
	if dialect.SupportsReturning(d) {
		query, args := ins.Returning(m.schema.columns()...).Query()
		if row, err = queryRow(ctx, drv, query, args); err != nil {
			return nil, err
		}
		if row == nil {
			return nil, fmt.Errorf("pgoose: insert into %s returned no row", m.table)
		}
	} else {
		query, args := ins.Query()
		var res sql.Result
		if err := drv.Exec(ctx, query, args, &res); err != nil {
			return nil, err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}
		if row, err = m.reselect(ctx, drv, id); err != nil {
			return nil, err
		}
		if row == nil {
			return nil, NewNotFoundErrorWithID(m.name, id)
		}
	}
	if err := in.assign(row); err != nil {
		return nil, err
	}
	m.runPost(ctx, i.kind, i.post, in)
	return in, nil
}

// ExecAsync runs the insert in the background.
func (i *Insert) ExecAsync(ctx context.Context) *Future[*Instance] {
	return Go(func() (*Instance, error) { return i.Exec(ctx) })
}

// Update writes every field of a persisted instance.
type Update struct {
	m         *Model
	in        *Instance
	kind      HookKind
	pre, post Hook
}

// Pre replaces the hook run before the update.
func (u *Update) Pre(fn Hook) *Update {
	u.pre = fn
	return u
}

// Post replaces the hook run after the update.
func (u *Update) Post(fn Hook) *Update {
	u.post = fn
	return u
}

// Exec runs the update and refreshes the instance from the stored row. It
// fails with ErrModelNotPersisted, before any SQL, if the instance has no
// identity.
func (u *Update) Exec(ctx context.Context) (*Instance, error) {
	m, in := u.m, u.in
	if !in.persisted {
		return nil, ErrModelNotPersisted
	}
	drv, err := m.driver()
	if err != nil {
		return nil, err
	}
	if err := runPre(ctx, u.kind, u.pre, in); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	d := drv.Dialect()
	upd := sql.Dialect(d).Update(m.table)
	for _, p := range m.schema.paths {
		if !p.writable() {
			continue
		}
		dv, err := p.Type.ToDB(in.values[p.Name])
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", p.Name, err)
		}
		upd.Set(p.Name, dv)
	}
	upd.Where(sql.EQ("id", in.id))
	var row map[string]any
	switch {
	case upd.Empty():
		row, err = m.reselect(ctx, drv, in.id)
	case dialect.SupportsReturning(d):
		query, args := upd.Returning(m.schema.columns()...).Query()
		row, err = queryRow(ctx, drv, query, args)
	default:
		query, args := upd.Query()
		if err = drv.Exec(ctx, query, args, nil); err == nil {
			row, err = m.reselect(ctx, drv, in.id)
		}
	}
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, NewNotFoundErrorWithID(m.name, in.id)
	}
	if err := in.assign(row); err != nil {
		return nil, err
	}
	m.coll.invalidate(ctx, m.cacheKey(in.id), false)
	m.runPost(ctx, u.kind, u.post, in)
	return in, nil
}

// ExecAsync runs the update in the background.
func (u *Update) ExecAsync(ctx context.Context) *Future[*Instance] {
	return Go(func() (*Instance, error) { return u.Exec(ctx) })
}

// Remove deletes the row of a persisted instance.
type Remove struct {
	m         *Model
	in        *Instance
	kind      HookKind
	pre, post Hook
}

// Pre replaces the hook run before the delete.
func (r *Remove) Pre(fn Hook) *Remove {
	r.pre = fn
	return r
}

// Post replaces the hook run after the delete.
func (r *Remove) Post(fn Hook) *Remove {
	r.post = fn
	return r
}

// Exec runs the delete. It fails with ErrModelNotPersisted, before any SQL,
// if the instance has no identity, and with a *NotFoundError if no row was
// deleted.
func (r *Remove) Exec(ctx context.Context) (*Instance, error) {
	m, in := r.m, r.in
	if !in.persisted {
		return nil, ErrModelNotPersisted
	}
	drv, err := m.driver()
	if err != nil {
		return nil, err
	}
	if err := runPre(ctx, r.kind, r.pre, in); err != nil {
		return nil, err
	}
	query, args := sql.Dialect(drv.Dialect()).Delete(m.table).Where(sql.EQ("id", in.id)).Query()
	var res sql.Result
	if err := drv.Exec(ctx, query, args, &res); err != nil {
		return nil, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, NewNotFoundErrorWithID(m.name, in.id)
	}
	m.coll.invalidate(ctx, m.cacheKey(in.id), false)
	in.persisted, in.id = false, 0
	m.runPost(ctx, r.kind, r.post, in)
	return in, nil
}

// ExecAsync runs the delete in the background.
func (r *Remove) ExecAsync(ctx context.Context) *Future[*Instance] {
	return Go(func() (*Instance, error) { return r.Exec(ctx) })
}

type assignment struct {
	column string
	value  any
}

// UpdateAll sets fields on every matching row.
type UpdateAll struct {
	q         *query
	sets      []assignment
	pre, post Hook
}

func (u *UpdateAll) set(values map[string]any) {
	for _, name := range slices.Sorted(maps.Keys(values)) {
		if reserved[name] {
			u.q.fail(fmt.Errorf("%w: %q", ErrForbiddenColumnName, name))
			return
		}
		p, ok := u.q.m.schema.Path(name)
		if !ok {
			u.q.fail(fmt.Errorf("%w: %q", ErrFieldNotFound, name))
			return
		}
		v, err := p.Type.Coerce(values[name])
		if err != nil {
			u.q.fail(fmt.Errorf("field %q: %w", name, err))
			return
		}
		if err := validatePath(p, v); err != nil {
			u.q.fail(err)
			return
		}
		dv, err := p.Type.ToDB(v)
		if err != nil {
			u.q.fail(fmt.Errorf("field %q: %w", name, err))
			return
		}
		u.sets = append(u.sets, assignment{column: name, value: dv})
	}
}

// Where starts a condition on the given field.
func (u *UpdateAll) Where(field string) *Cond[*UpdateAll] {
	return newCond(u, u.q, field)
}

// Criteria adds the compiled criteria.
func (u *UpdateAll) Criteria(c Criteria) *UpdateAll {
	u.q.criteria(c)
	return u
}

// Pre sets the hook run before the update. It receives no instance.
func (u *UpdateAll) Pre(fn Hook) *UpdateAll {
	u.pre = fn
	return u
}

// Post sets the hook run after the update. It receives no instance.
func (u *UpdateAll) Post(fn Hook) *UpdateAll {
	u.post = fn
	return u
}

// Exec runs the update and returns the number of affected rows.
func (u *UpdateAll) Exec(ctx context.Context) (int64, error) {
	if u.q.err != nil {
		return 0, u.q.err
	}
	m := u.q.m
	if len(u.sets) == 0 {
		return 0, fmt.Errorf("pgoose: update of %s sets no field", m.table)
	}
	drv, err := m.driver()
	if err != nil {
		return 0, err
	}
	if err := runPre(ctx, HookUpdate, u.pre); err != nil {
		return 0, err
	}
	upd := sql.Dialect(drv.Dialect()).Update(m.table)
	for _, a := range u.sets {
		upd.Set(a.column, a.value)
	}
	for _, p := range u.q.preds {
		upd.Where(p)
	}
	n, err := execAffected(ctx, drv, upd)
	if err != nil {
		return 0, err
	}
	m.coll.invalidate(ctx, m.cacheKey(0), true)
	m.runPost(ctx, HookUpdate, u.post)
	return n, nil
}

// ExecAsync runs the update in the background.
func (u *UpdateAll) ExecAsync(ctx context.Context) *Future[int64] {
	return Go(func() (int64, error) { return u.Exec(ctx) })
}

// RemoveAll deletes every matching row. Without conditions it empties the
// table.
type RemoveAll struct {
	q         *query
	pre, post Hook
}

// Where starts a condition on the given field.
func (r *RemoveAll) Where(field string) *Cond[*RemoveAll] {
	return newCond(r, r.q, field)
}

// Criteria adds the compiled criteria.
func (r *RemoveAll) Criteria(c Criteria) *RemoveAll {
	r.q.criteria(c)
	return r
}

// Pre sets the hook run before the delete. It receives no instance.
func (r *RemoveAll) Pre(fn Hook) *RemoveAll {
	r.pre = fn
	return r
}

// Post sets the hook run after the delete. It receives no instance.
func (r *RemoveAll) Post(fn Hook) *RemoveAll {
	r.post = fn
	return r
}

// Exec runs the delete and returns the number of removed rows.
func (r *RemoveAll) Exec(ctx context.Context) (int64, error) {
	if r.q.err != nil {
		return 0, r.q.err
	}
	m := r.q.m
	drv, err := m.driver()
	if err != nil {
		return 0, err
	}
	if err := runPre(ctx, HookRemove, r.pre); err != nil {
		return 0, err
	}
	del := sql.Dialect(drv.Dialect()).Delete(m.table)
	for _, p := range r.q.preds {
		del.Where(p)
	}
	n, err := execAffected(ctx, drv, del)
	if err != nil {
		return 0, err
	}
	m.coll.invalidate(ctx, m.cacheKey(0), true)
	m.runPost(ctx, HookRemove, r.post)
	return n, nil
}

// ExecAsync runs the delete in the background.
func (r *RemoveAll) ExecAsync(ctx context.Context) *Future[int64] {
	return Go(func() (int64, error) { return r.Exec(ctx) })
}

func execAffected(ctx context.Context, drv dialect.Driver, q sql.Querier) (int64, error) {
	query, args := q.Query()
	var res sql.Result
	if err := drv.Exec(ctx, query, args, &res); err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// queryRow runs a query and returns its first row, or nil.
func queryRow(ctx context.Context, drv dialect.Driver, query string, args []any) (map[string]any, error) {
	rows, _, err := sql.QueryMaps(ctx, drv, query, args)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

// reselect reads the row with the given identity.
func (m *Model) reselect(ctx context.Context, drv dialect.Driver, id int64) (map[string]any, error) {
	t := sql.Table(m.table)
	sel := sql.Dialect(drv.Dialect()).Select().From(t).Where(sql.EQ(t.C("id"), id)).Limit(1)
	for _, c := range m.schema.columns() {
		sel.AppendSelect(t.C(c))
	}
	query, args := sel.Query()
	return queryRow(ctx, drv, query, args)
}
