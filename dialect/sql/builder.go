package sql

import (
	"strconv"
	"strings"

	"github.com/lib/pq"

	"github.com/syssam/pgoose/dialect"
)

// Querier wraps the Query method. Every statement builder implements it.
type Querier interface {
	Query() (string, []any)
}

// Literal is implemented by values that are written into the statement text
// as-is instead of being bound as arguments. It is meant for SQL keywords
// such as TRUE and FALSE, never for user input.
type Literal interface {
	SQLLiteral() string
}

type raw string

func (r raw) SQLLiteral() string { return string(r) }

// Raw returns a Literal for the given SQL fragment.
func Raw(s string) Literal { return raw(s) }

// Builder is the low-level statement writer shared by all builders. It
// quotes identifiers and numbers placeholders for its dialect.
type Builder struct {
	sb      strings.Builder
	dialect string
	args    []any
	total   int
}

// NewBuilder returns a Builder for the given dialect.
func NewBuilder(dialect string) *Builder {
	return &Builder{dialect: dialect}
}

// Dialect returns the dialect of the builder.
func (b *Builder) Dialect() string {
	return b.dialect
}

// WriteString writes s to the statement.
func (b *Builder) WriteString(s string) *Builder {
	b.sb.WriteString(s)
	return b
}

// WriteByte writes c to the statement.
func (b *Builder) WriteByte(c byte) *Builder {
	b.sb.WriteByte(c)
	return b
}

// Pad writes a space.
func (b *Builder) Pad() *Builder {
	return b.WriteByte(' ')
}

// Ident writes a quoted identifier. Dotted names are quoted per part.
func (b *Builder) Ident(s string) *Builder {
	return b.WriteString(b.Quote(s))
}

// IdentComma writes a comma separated list of identifiers.
func (b *Builder) IdentComma(s ...string) *Builder {
	for i := range s {
		if i > 0 {
			b.WriteString(", ")
		}
		b.Ident(s[i])
	}
	return b
}

// Quote returns the quoted form of the identifier for the builder dialect.
// Every part of a dotted name is quoted, with embedded quotes doubled, so
// the result is always a single identifier. Only * and COUNT(*) are
// written unchanged.
func (b *Builder) Quote(ident string) string {
	if ident == "*" || ident == "COUNT(*)" {
		return ident
	}
	parts := strings.Split(ident, ".")
	for i, p := range parts {
		if p == "*" && i == len(parts)-1 && i > 0 {
			continue
		}
		if b.dialect == dialect.MySQL {
			parts[i] = "`" + strings.ReplaceAll(p, "`", "``") + "`"
		} else {
			parts[i] = pq.QuoteIdentifier(p)
		}
	}
	return strings.Join(parts, ".")
}

// Arg writes a placeholder for a and records it as an argument. Literal
// values are written inline.
func (b *Builder) Arg(a any) *Builder {
	if l, ok := a.(Literal); ok {
		return b.WriteString(l.SQLLiteral())
	}
	b.total++
	b.args = append(b.args, a)
	if b.dialect == dialect.Postgres {
		return b.WriteString("$" + strconv.Itoa(b.total))
	}
	return b.WriteByte('?')
}

// Args writes a comma separated list of placeholders.
func (b *Builder) Args(a ...any) *Builder {
	for i := range a {
		if i > 0 {
			b.WriteString(", ")
		}
		b.Arg(a[i])
	}
	return b
}

// String returns the statement text written so far.
func (b *Builder) String() string {
	return b.sb.String()
}

// Query implements the Querier interface.
func (b *Builder) Query() (string, []any) {
	return b.String(), b.args
}

// DialectBuilder prefixes all root builders with the dialect.
type DialectBuilder struct {
	dialect string
}

// Dialect creates a new DialectBuilder with the given dialect name.
func Dialect(name string) *DialectBuilder {
	return &DialectBuilder{dialect: name}
}

// Select returns a Selector for the dialect.
//
//	Dialect(dialect.Postgres).
//		Select("id", "name").
//		From(Table("users"))
func (d *DialectBuilder) Select(columns ...string) *Selector {
	return &Selector{dialect: d.dialect, columns: columns}
}

// Insert returns an InsertBuilder for the dialect.
func (d *DialectBuilder) Insert(table string) *InsertBuilder {
	return &InsertBuilder{dialect: d.dialect, table: table}
}

// Update returns an UpdateBuilder for the dialect.
func (d *DialectBuilder) Update(table string) *UpdateBuilder {
	return &UpdateBuilder{dialect: d.dialect, table: table}
}

// Delete returns a DeleteBuilder for the dialect.
func (d *DialectBuilder) Delete(table string) *DeleteBuilder {
	return &DeleteBuilder{dialect: d.dialect, table: table}
}

// SelectTable is a table reference in a FROM or JOIN clause.
type SelectTable struct {
	name string
	as   string
}

// Table returns a new table reference.
func Table(name string) *SelectTable {
	return &SelectTable{name: name}
}

// As sets the alias of the table.
func (t *SelectTable) As(alias string) *SelectTable {
	t.as = alias
	return t
}

// C returns the qualified name of a column of the table.
func (t *SelectTable) C(column string) string {
	return t.ref() + "." + column
}

// Name returns the table name.
func (t *SelectTable) Name() string {
	return t.name
}

func (t *SelectTable) ref() string {
	if t.as != "" {
		return t.as
	}
	return t.name
}

func (t *SelectTable) write(b *Builder) {
	b.Ident(t.name)
	if t.as != "" {
		b.WriteString(" AS ").Ident(t.as)
	}
}

type join struct {
	kind        string
	table       *SelectTable
	left, right string
}

type selection struct {
	expr string
	as   string
}

// Selector is a builder for SELECT statements.
type Selector struct {
	dialect string
	columns []string
	extra   []selection
	from    *SelectTable
	joins   []join
	where   []*Predicate
	group   []string
	order   []string
	limit   *int
	offset  *int
	count   bool
}

// Select returns a Selector for the Postgres dialect.
func Select(columns ...string) *Selector {
	return Dialect(dialect.Postgres).Select(columns...)
}

// Dialect returns the dialect of the selector.
func (s *Selector) Dialect() string {
	return s.dialect
}

// Columns replaces the selected columns.
func (s *Selector) Columns(columns ...string) *Selector {
	s.columns = columns
	return s
}

// AppendSelect appends columns to the selection.
func (s *Selector) AppendSelect(columns ...string) *Selector {
	s.columns = append(s.columns, columns...)
	return s
}

// AppendSelectAs appends a column selected under an alias.
func (s *Selector) AppendSelectAs(column, as string) *Selector {
	s.extra = append(s.extra, selection{expr: column, as: as})
	return s
}

// Count turns the selector into a COUNT(*) query.
func (s *Selector) Count() *Selector {
	s.count = true
	return s
}

// From sets the source table.
func (s *Selector) From(t *SelectTable) *Selector {
	s.from = t
	return s
}

// Table returns the source table.
func (s *Selector) Table() *SelectTable {
	return s.from
}

// Join appends an INNER JOIN. It must be followed by On.
func (s *Selector) Join(t *SelectTable) *Selector {
	s.joins = append(s.joins, join{kind: "JOIN", table: t})
	return s
}

// LeftJoin appends a LEFT JOIN. It must be followed by On.
func (s *Selector) LeftJoin(t *SelectTable) *Selector {
	s.joins = append(s.joins, join{kind: "LEFT JOIN", table: t})
	return s
}

// On sets the condition of the last join.
func (s *Selector) On(left, right string) *Selector {
	if n := len(s.joins); n > 0 {
		s.joins[n-1].left, s.joins[n-1].right = left, right
	}
	return s
}

// Where appends a predicate. Multiple predicates are joined with AND.
func (s *Selector) Where(p *Predicate) *Selector {
	if p != nil {
		s.where = append(s.where, p)
	}
	return s
}

// HasWhere reports whether the selector has predicates.
func (s *Selector) HasWhere() bool {
	return len(s.where) > 0
}

// GroupBy sets the GROUP BY columns.
func (s *Selector) GroupBy(columns ...string) *Selector {
	s.group = append(s.group, columns...)
	return s
}

// OrderBy appends ordering terms. A term is a column optionally followed by
// ASC or DESC, as produced by Asc and Desc.
func (s *Selector) OrderBy(terms ...string) *Selector {
	s.order = append(s.order, terms...)
	return s
}

// Limit sets the LIMIT clause.
func (s *Selector) Limit(n int) *Selector {
	s.limit = &n
	return s
}

// Offset sets the OFFSET clause.
func (s *Selector) Offset(n int) *Selector {
	s.offset = &n
	return s
}

// Asc returns an ascending ordering term.
func Asc(column string) string { return column + " ASC" }

// Desc returns a descending ordering term.
func Desc(column string) string { return column + " DESC" }

// Query implements the Querier interface.
func (s *Selector) Query() (string, []any) {
	b := NewBuilder(s.dialect)
	b.WriteString("SELECT ")
	switch {
	case s.count:
		b.WriteString("COUNT(*)")
	case len(s.columns) == 0 && len(s.extra) == 0:
		b.WriteByte('*')
	default:
		b.IdentComma(s.columns...)
		for i, e := range s.extra {
			if i > 0 || len(s.columns) > 0 {
				b.WriteString(", ")
			}
			b.Ident(e.expr).WriteString(" AS ").Ident(e.as)
		}
	}
	if s.from != nil {
		b.WriteString(" FROM ")
		s.from.write(b)
	}
	for _, j := range s.joins {
		b.Pad().WriteString(j.kind).Pad()
		j.table.write(b)
		if j.left != "" {
			b.WriteString(" ON ").Ident(j.left).WriteString(" = ").Ident(j.right)
		}
	}
	writeWhere(b, s.where)
	if len(s.group) > 0 {
		b.WriteString(" GROUP BY ").IdentComma(s.group...)
	}
	if len(s.order) > 0 {
		b.WriteString(" ORDER BY ")
		for i, term := range s.order {
			if i > 0 {
				b.WriteString(", ")
			}
			col, dir := splitOrder(term)
			b.Ident(col)
			if dir != "" {
				b.Pad().WriteString(dir)
			}
		}
	}
	if s.limit != nil {
		b.WriteString(" LIMIT ").WriteString(strconv.Itoa(*s.limit))
	}
	if s.offset != nil {
		if s.limit == nil && s.dialect == dialect.MySQL {
			// MySQL rejects OFFSET without LIMIT.
			b.WriteString(" LIMIT 18446744073709551615")
		}
		b.WriteString(" OFFSET ").WriteString(strconv.Itoa(*s.offset))
	}
	return b.Query()
}

func splitOrder(term string) (string, string) {
	term = strings.TrimSpace(term)
	if i := strings.LastIndexByte(term, ' '); i > 0 {
		switch dir := strings.ToUpper(term[i+1:]); dir {
		case "ASC", "DESC":
			return strings.TrimSpace(term[:i]), dir
		}
	}
	return term, ""
}

func writeWhere(b *Builder, preds []*Predicate) {
	if len(preds) == 0 {
		return
	}
	b.WriteString(" WHERE ")
	And(preds...).write(b)
}

// InsertBuilder is a builder for INSERT statements.
type InsertBuilder struct {
	dialect   string
	table     string
	columns   []string
	values    [][]any
	defaults  bool
	returning []string
}

// Insert returns an InsertBuilder for the Postgres dialect.
func Insert(table string) *InsertBuilder {
	return Dialect(dialect.Postgres).Insert(table)
}

// Columns sets the inserted columns.
func (i *InsertBuilder) Columns(columns ...string) *InsertBuilder {
	i.columns = append(i.columns, columns...)
	return i
}

// Values appends a row of values.
func (i *InsertBuilder) Values(values ...any) *InsertBuilder {
	i.values = append(i.values, values)
	return i
}

// Set appends a column and its value to a single-row insert.
func (i *InsertBuilder) Set(column string, v any) *InsertBuilder {
	i.columns = append(i.columns, column)
	if len(i.values) == 0 {
		i.values = append(i.values, nil)
	}
	i.values[0] = append(i.values[0], v)
	return i
}

// Default inserts a row of column defaults.
func (i *InsertBuilder) Default() *InsertBuilder {
	i.defaults = true
	return i
}

// Returning sets the RETURNING clause. It is ignored by MySQL.
func (i *InsertBuilder) Returning(columns ...string) *InsertBuilder {
	i.returning = columns
	return i
}

// Query implements the Querier interface.
func (i *InsertBuilder) Query() (string, []any) {
	b := NewBuilder(i.dialect)
	b.WriteString("INSERT INTO ").Ident(i.table)
	if i.defaults || len(i.columns) == 0 {
		if i.dialect == dialect.MySQL {
			b.WriteString(" () VALUES ()")
		} else {
			b.WriteString(" DEFAULT VALUES")
		}
	} else {
		b.WriteString(" (").IdentComma(i.columns...).WriteString(") VALUES ")
		for j, row := range i.values {
			if j > 0 {
				b.WriteString(", ")
			}
			b.WriteByte('(').Args(row...).WriteByte(')')
		}
	}
	writeReturning(b, i.returning)
	return b.Query()
}

func writeReturning(b *Builder, columns []string) {
	if len(columns) == 0 || !dialect.SupportsReturning(b.dialect) {
		return
	}
	b.WriteString(" RETURNING ").IdentComma(columns...)
}

// UpdateBuilder is a builder for UPDATE statements.
type UpdateBuilder struct {
	dialect   string
	table     string
	columns   []string
	values    []any
	where     []*Predicate
	returning []string
}

// Update returns an UpdateBuilder for the Postgres dialect.
func Update(table string) *UpdateBuilder {
	return Dialect(dialect.Postgres).Update(table)
}

// Set sets a column to a value.
func (u *UpdateBuilder) Set(column string, v any) *UpdateBuilder {
	u.columns = append(u.columns, column)
	u.values = append(u.values, v)
	return u
}

// Empty reports whether the statement sets no columns.
func (u *UpdateBuilder) Empty() bool {
	return len(u.columns) == 0
}

// Where appends a predicate. Multiple predicates are joined with AND.
func (u *UpdateBuilder) Where(p *Predicate) *UpdateBuilder {
	if p != nil {
		u.where = append(u.where, p)
	}
	return u
}

// Returning sets the RETURNING clause. It is ignored by MySQL.
func (u *UpdateBuilder) Returning(columns ...string) *UpdateBuilder {
	u.returning = columns
	return u
}

// Query implements the Querier interface.
func (u *UpdateBuilder) Query() (string, []any) {
	b := NewBuilder(u.dialect)
	b.WriteString("UPDATE ").Ident(u.table).WriteString(" SET ")
	for i, c := range u.columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.Ident(c).WriteString(" = ").Arg(u.values[i])
	}
	writeWhere(b, u.where)
	writeReturning(b, u.returning)
	return b.Query()
}

// DeleteBuilder is a builder for DELETE statements.
type DeleteBuilder struct {
	dialect string
	table   string
	where   []*Predicate
}

// Delete returns a DeleteBuilder for the Postgres dialect.
func Delete(table string) *DeleteBuilder {
	return Dialect(dialect.Postgres).Delete(table)
}

// Where appends a predicate. Multiple predicates are joined with AND.
func (d *DeleteBuilder) Where(p *Predicate) *DeleteBuilder {
	if p != nil {
		d.where = append(d.where, p)
	}
	return d
}

// Query implements the Querier interface.
func (d *DeleteBuilder) Query() (string, []any) {
	b := NewBuilder(d.dialect)
	b.WriteString("DELETE FROM ").Ident(d.table)
	writeWhere(b, d.where)
	return b.Query()
}
