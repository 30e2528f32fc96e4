package pgoose

import (
	"context"
	"fmt"

	"github.com/syssam/pgoose/dialect/sql"
)

// query holds the predicates shared by every builder. The first error is
// kept and returned by Exec.
type query struct {
	m       *Model
	table   *sql.SelectTable
	qualify bool
	preds   []*sql.Predicate
	err     error
}

func newQuery(m *Model, qualify bool) *query {
	return &query{m: m, table: sql.Table(m.table), qualify: qualify}
}

func (q *query) fail(err error) {
	if q.err == nil {
		q.err = err
	}
}

// col returns the column reference of a field.
func (q *query) col(name string) string {
	if q.qualify {
		return q.table.C(name)
	}
	return name
}

// arg converts v with the type of the field.
func (q *query) arg(name string, v any) (any, bool) {
	typ, err := q.m.schema.lookup(name)
	if err != nil {
		q.fail(err)
		return nil, false
	}
	dv, err := typ.ToDB(v)
	if err != nil {
		q.fail(fmt.Errorf("field %q: %w", name, err))
		return nil, false
	}
	return dv, true
}

func (q *query) compare(name string, cmp func(string, any) *sql.Predicate, v any) {
	if dv, ok := q.arg(name, v); ok {
		q.preds = append(q.preds, cmp(q.col(name), dv))
	}
}

func (q *query) eq(name string, v any) {
	q.compare(name, sql.EQ, v)
}

func (q *query) between(name string, not bool, lo, hi any) {
	dlo, ok := q.arg(name, lo)
	if !ok {
		return
	}
	dhi, ok := q.arg(name, hi)
	if !ok {
		return
	}
	if not {
		q.preds = append(q.preds, sql.NotBetween(q.col(name), dlo, dhi))
	} else {
		q.preds = append(q.preds, sql.Between(q.col(name), dlo, dhi))
	}
}

func (q *query) in(name string, set func(string, ...any) *sql.Predicate, values []any) {
	args := make([]any, 0, len(values))
	for _, v := range values {
		dv, ok := q.arg(name, v)
		if !ok {
			return
		}
		args = append(args, dv)
	}
	q.preds = append(q.preds, set(q.col(name), args...))
}

// like binds the pattern as text whatever the field type.
func (q *query) like(name string, match func(string, string) *sql.Predicate, pattern any) {
	if _, err := q.m.schema.lookup(name); err != nil {
		q.fail(err)
		return
	}
	s, ok := pattern.(string)
	if !ok {
		q.fail(fmt.Errorf("field %q: %w: pattern must be a string, got %T", name, ErrTypeMismatch, pattern))
		return
	}
	q.preds = append(q.preds, match(q.col(name), s))
}

// Cond is a pending condition on a field created by Where. Each comparison
// completes the predicate and returns the builder.
type Cond[B any] struct {
	b    B
	q    *query
	name string
}

func newCond[B any](b B, q *query, name string) *Cond[B] {
	return &Cond[B]{b: b, q: q, name: name}
}

// Equals adds "field = v". A nil value matches NULL.
func (c *Cond[B]) Equals(v any) B {
	c.q.compare(c.name, sql.EQ, v)
	return c.b
}

// NotEquals adds "field <> v".
func (c *Cond[B]) NotEquals(v any) B {
	c.q.compare(c.name, sql.NEQ, v)
	return c.b
}

// GT adds "field > v".
func (c *Cond[B]) GT(v any) B {
	c.q.compare(c.name, sql.GT, v)
	return c.b
}

// GTE adds "field >= v".
func (c *Cond[B]) GTE(v any) B {
	c.q.compare(c.name, sql.GTE, v)
	return c.b
}

// LT adds "field < v".
func (c *Cond[B]) LT(v any) B {
	c.q.compare(c.name, sql.LT, v)
	return c.b
}

// LTE adds "field <= v".
func (c *Cond[B]) LTE(v any) B {
	c.q.compare(c.name, sql.LTE, v)
	return c.b
}

// Between adds "field BETWEEN lo AND hi".
func (c *Cond[B]) Between(lo, hi any) B {
	c.q.between(c.name, false, lo, hi)
	return c.b
}

// NotBetween adds "field NOT BETWEEN lo AND hi".
func (c *Cond[B]) NotBetween(lo, hi any) B {
	c.q.between(c.name, true, lo, hi)
	return c.b
}

// In adds "field IN (values...)". An empty list matches no rows.
func (c *Cond[B]) In(values ...any) B {
	c.q.in(c.name, sql.In, values)
	return c.b
}

// Like adds "field LIKE pattern".
func (c *Cond[B]) Like(pattern string) B {
	c.q.like(c.name, sql.Like, pattern)
	return c.b
}

// ILike adds a case-insensitive LIKE.
func (c *Cond[B]) ILike(pattern string) B {
	c.q.like(c.name, sql.ILike, pattern)
	return c.b
}

func runPre(ctx context.Context, kind HookKind, fn Hook, instances ...*Instance) error {
	if fn == nil {
		return nil
	}
	if err := fn(ctx, instances...); err != nil {
		return fmt.Errorf("pgoose: pre %s hook: %w", kind, err)
	}
	return nil
}

func (m *Model) runPost(ctx context.Context, kind HookKind, fn Hook, instances ...*Instance) {
	if fn == nil {
		return
	}
	if err := fn(ctx, instances...); err != nil {
		m.coll.logger.WarnContext(ctx, "post hook failed", "model", m.name, "hook", string(kind), "err", err)
	}
}
