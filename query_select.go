package pgoose

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/syssam/pgoose/dialect"
	"github.com/syssam/pgoose/dialect/sql"
)

// selectState is shared by Select and SelectOne.
type selectState struct {
	q         *query
	kind      HookKind
	fields    []string
	group     []string
	order     []string
	limit     *int
	offset    *int
	populate  []string
	pre, post Hook
}

func newSelectState(m *Model, kind HookKind) selectState {
	return selectState{
		q:    newQuery(m, true),
		kind: kind,
		pre:  m.schema.hook(phasePre, kind),
		post: m.schema.hook(phasePost, kind),
	}
}

func (s *selectState) setFields(names []string) {
	for _, name := range names {
		if _, err := s.q.m.schema.lookup(name); err != nil {
			s.q.fail(err)
			return
		}
	}
	s.fields = append(s.fields, names...)
}

func (s *selectState) setGroup(name string) {
	if _, err := s.q.m.schema.lookup(name); err != nil {
		s.q.fail(err)
		return
	}
	s.group = append(s.group, s.q.col(name))
}

func (s *selectState) setSort(name string, direction int) {
	if _, err := s.q.m.schema.lookup(name); err != nil {
		s.q.fail(err)
		return
	}
	if direction < 0 {
		s.order = append(s.order, sql.Desc(s.q.col(name)))
	} else {
		s.order = append(s.order, sql.Asc(s.q.col(name)))
	}
}

func (s *selectState) setPopulate(name string) {
	if slices.Contains(s.populate, name) {
		return
	}
	p, ok := s.q.m.schema.Path(name)
	if !ok {
		s.q.fail(fmt.Errorf("%w: %q", ErrFieldNotFound, name))
		return
	}
	if !p.IsForeignKey() {
		s.q.fail(fmt.Errorf("%w: %q", ErrFieldNotForeignKey, name))
		return
	}
	s.populate = append(s.populate, name)
}

// populated is a joined reference resolved at build time.
type populated struct {
	field string
	model *Model
}

// columns returns the selected columns. id is always selected.
func (s *selectState) columns() []string {
	if len(s.fields) == 0 {
		return s.q.m.schema.columns()
	}
	cols := s.fields
	if !slices.Contains(cols, "id") {
		cols = append([]string{"id"}, cols...)
	}
	return cols
}

func (s *selectState) build(dialectName string, count bool) (*sql.Selector, []populated, error) {
	if s.q.err != nil {
		return nil, nil, s.q.err
	}
	m, t := s.q.m, s.q.table
	sel := sql.Dialect(dialectName).Select().From(t)
	for _, p := range s.q.preds {
		sel.Where(p)
	}
	if count {
		return sel.Count(), nil, nil
	}
	for _, c := range s.columns() {
		sel.AppendSelect(t.C(c))
	}
	refs := make([]populated, 0, len(s.populate))
	for _, name := range s.populate {
		p, _ := m.schema.Path(name)
		ref, err := m.coll.Model(p.Ref)
		if err != nil {
			return nil, nil, fmt.Errorf("populate %q: %w", name, err)
		}
		alias := sql.Table(ref.table).As(name)
		sel.LeftJoin(alias).On(alias.C("id"), t.C(name))
		for _, c := range ref.schema.columns() {
			sel.AppendSelectAs(alias.C(c), name+"__"+c)
		}
		refs = append(refs, populated{field: name, model: ref})
	}
	if len(s.group) > 0 {
		sel.GroupBy(s.group...)
	}
	if len(s.order) > 0 {
		sel.OrderBy(s.order...)
	}
	if s.limit != nil {
		sel.Limit(*s.limit)
	}
	if s.offset != nil {
		sel.Offset(*s.offset)
	}
	return sel, refs, nil
}

// rows runs the select and returns the raw rows.
func (s *selectState) rows(ctx context.Context, drv dialect.Driver) ([]map[string]any, []populated, error) {
	sel, refs, err := s.build(drv.Dialect(), false)
	if err != nil {
		return nil, nil, err
	}
	query, args := sel.Query()
	rows, _, err := sql.QueryMaps(ctx, drv, query, args)
	if err != nil {
		return nil, nil, err
	}
	return rows, refs, nil
}

// hydrate converts rows to instances, nesting the populated references.
func (s *selectState) hydrate(rows []map[string]any, refs []populated) ([]*Instance, error) {
	out := make([]*Instance, 0, len(rows))
	for _, row := range rows {
		in, err := s.q.m.hydrate(row)
		if err != nil {
			return nil, err
		}
		for _, r := range refs {
			prefix := r.field + "__"
			sub := make(map[string]any)
			for k, v := range row {
				if strings.HasPrefix(k, prefix) {
					sub[k[len(prefix):]] = v
				}
			}
			if sub["id"] == nil {
				continue
			}
			ref, err := r.model.hydrate(sub)
			if err != nil {
				return nil, err
			}
			if in.populated == nil {
				in.populated = make(map[string]*Instance, len(refs))
			}
			in.populated[r.field] = ref
		}
		out = append(out, in)
	}
	return out, nil
}

func (s *selectState) exec(ctx context.Context) ([]*Instance, error) {
	if s.q.err != nil {
		return nil, s.q.err
	}
	m := s.q.m
	drv, err := m.driver()
	if err != nil {
		return nil, err
	}
	if err := runPre(ctx, s.kind, s.pre); err != nil {
		return nil, err
	}
	rows, refs, err := s.rows(ctx, drv)
	if err != nil {
		return nil, err
	}
	instances, err := s.hydrate(rows, refs)
	if err != nil {
		return nil, err
	}
	m.runPost(ctx, s.kind, s.post, instances...)
	return instances, nil
}

func (s *selectState) count(ctx context.Context) (int64, error) {
	if s.q.err != nil {
		return 0, s.q.err
	}
	drv, err := s.q.m.driver()
	if err != nil {
		return 0, err
	}
	sel, _, err := s.build(drv.Dialect(), true)
	if err != nil {
		return 0, err
	}
	query, args := sel.Query()
	rows, fields, err := sql.QueryMaps(ctx, drv, query, args)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 || len(fields) == 0 {
		return 0, nil
	}
	n, err := idType.FromDB(rows[0][fields[0].Name])
	if err != nil {
		return 0, fmt.Errorf("pgoose: count %s: %w", s.q.m.name, err)
	}
	return n.(int64), nil
}

// Select is a query for many rows. It is not safe for concurrent use.
type Select struct {
	selectState
}

func newSelect(m *Model, kind HookKind) *Select {
	return &Select{selectState: newSelectState(m, kind)}
}

// Where starts a condition on the given field.
func (s *Select) Where(field string) *Cond[*Select] {
	return newCond(s, s.q, field)
}

// Criteria adds the compiled criteria.
func (s *Select) Criteria(c Criteria) *Select {
	s.q.criteria(c)
	return s
}

// Fields restricts the selected fields. The id is always selected.
func (s *Select) Fields(names ...string) *Select {
	s.setFields(names)
	return s
}

// Group adds a GROUP BY field.
func (s *Select) Group(field string) *Select {
	s.setGroup(field)
	return s
}

// Sort orders by the field, ascending for a positive direction and
// descending for a negative one.
func (s *Select) Sort(field string, direction int) *Select {
	s.setSort(field, direction)
	return s
}

// Limit sets the maximum number of rows.
func (s *Select) Limit(n int) *Select {
	s.limit = &n
	return s
}

// Offset skips the first n rows.
func (s *Select) Offset(n int) *Select {
	s.offset = &n
	return s
}

// Skip is an alias of Offset.
func (s *Select) Skip(n int) *Select {
	return s.Offset(n)
}

// Populate joins the model referenced by an Id field and nests it in each
// instance. Repeated calls for the same field are no-ops.
func (s *Select) Populate(field string) *Select {
	s.setPopulate(field)
	return s
}

// Pre replaces the hook run before the query.
func (s *Select) Pre(fn Hook) *Select {
	s.pre = fn
	return s
}

// Post replaces the hook run with the resulting instances.
func (s *Select) Post(fn Hook) *Select {
	s.post = fn
	return s
}

// Exec runs the query.
func (s *Select) Exec(ctx context.Context) ([]*Instance, error) {
	return s.exec(ctx)
}

// ExecAsync runs the query in the background.
func (s *Select) ExecAsync(ctx context.Context) *Future[[]*Instance] {
	return Go(func() ([]*Instance, error) { return s.exec(ctx) })
}

// Count returns the number of matching rows.
func (s *Select) Count(ctx context.Context) (int64, error) {
	return s.count(ctx)
}

// SelectOne is a query for a single row. It is not safe for concurrent use.
type SelectOne struct {
	selectState
	// id is set by FindByID. A missing row is then an error and the row
	// cache is consulted.
	id *int64
}

func newSelectOne(m *Model, kind HookKind) *SelectOne {
	one := 1
	s := &SelectOne{selectState: newSelectState(m, kind)}
	s.limit = &one
	return s
}

// Where starts a condition on the given field.
func (s *SelectOne) Where(field string) *Cond[*SelectOne] {
	return newCond(s, s.q, field)
}

// Criteria adds the compiled criteria.
func (s *SelectOne) Criteria(c Criteria) *SelectOne {
	s.q.criteria(c)
	return s
}

// Fields restricts the selected fields. The id is always selected.
func (s *SelectOne) Fields(names ...string) *SelectOne {
	s.setFields(names)
	return s
}

// Sort orders by the field, ascending for a positive direction and
// descending for a negative one.
func (s *SelectOne) Sort(field string, direction int) *SelectOne {
	s.setSort(field, direction)
	return s
}

// Offset skips the first n rows.
func (s *SelectOne) Offset(n int) *SelectOne {
	s.offset = &n
	return s
}

// Skip is an alias of Offset.
func (s *SelectOne) Skip(n int) *SelectOne {
	return s.Offset(n)
}

// Populate joins the model referenced by an Id field and nests it in the
// instance. Repeated calls for the same field are no-ops.
func (s *SelectOne) Populate(field string) *SelectOne {
	s.setPopulate(field)
	return s
}

// Pre replaces the hook run before the query.
func (s *SelectOne) Pre(fn Hook) *SelectOne {
	s.pre = fn
	return s
}

// Post replaces the hook run with the resulting instance.
func (s *SelectOne) Post(fn Hook) *SelectOne {
	s.post = fn
	return s
}

func (s *SelectOne) hooks(pre, post Hook) *SelectOne {
	s.pre, s.post = pre, post
	return s
}

// Exec runs the query.
func (s *SelectOne) Exec(ctx context.Context) (*Instance, error) {
	if s.q.err != nil {
		return nil, s.q.err
	}
	m := s.q.m
	drv, err := m.driver()
	if err != nil {
		return nil, err
	}
	if err := runPre(ctx, s.kind, s.pre); err != nil {
		return nil, err
	}
	var row map[string]any
	cached := s.cacheable()
	if cached {
		row = s.cached(ctx)
	}
	var refs []populated
	if row == nil {
		var rows []map[string]any
		if rows, refs, err = s.rows(ctx, drv); err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			if s.id != nil {
				return nil, NewNotFoundErrorWithID(m.name, *s.id)
			}
			return nil, nil
		}
		row = rows[0]
		if cached {
			s.store(ctx, row)
		}
	}
	instances, err := s.hydrate([]map[string]any{row}, refs)
	if err != nil {
		return nil, err
	}
	m.runPost(ctx, s.kind, s.post, instances...)
	return instances[0], nil
}

// ExecAsync runs the query in the background.
func (s *SelectOne) ExecAsync(ctx context.Context) *Future[*Instance] {
	return Go(func() (*Instance, error) { return s.Exec(ctx) })
}

// cacheable reports whether the query reads exactly the row of an identity:
// the id equality is its only predicate and nothing reshapes the result.
func (s *SelectOne) cacheable() bool {
	return s.id != nil && s.q.m.coll.cache != nil &&
		len(s.q.preds) == 1 && s.offset == nil && len(s.group) == 0 &&
		len(s.fields) == 0 && len(s.populate) == 0
}

func (s *SelectOne) cached(ctx context.Context) map[string]any {
	m := s.q.m
	b, err := m.coll.cache.Get(ctx, m.cacheKey(*s.id).String())
	if err != nil || b == nil {
		return nil
	}
	row, err := decodeRow(b)
	if err != nil {
		m.coll.logger.WarnContext(ctx, "cache decode failed", "model", m.name, "id", *s.id, "err", err)
		return nil
	}
	return row
}

func (s *SelectOne) store(ctx context.Context, row map[string]any) {
	m := s.q.m
	b, err := encodeRow(row)
	if err == nil {
		err = m.coll.cache.Set(ctx, m.cacheKey(*s.id).String(), b, m.coll.cacheTTL)
	}
	if err != nil {
		m.coll.logger.WarnContext(ctx, "cache store failed", "model", m.name, "id", *s.id, "err", err)
	}
}
