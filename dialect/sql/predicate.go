package sql

import "github.com/syssam/pgoose/dialect"

// Predicate is a boolean SQL expression rendered lazily, so the same
// predicate can be written by builders of any dialect.
type Predicate struct {
	fns []func(*Builder)
}

// P creates a new predicate from the given render functions.
//
//	P(func(b *Builder) {
//		b.Ident("name").WriteString(" = ").Arg("a8m")
//	})
func P(fns ...func(*Builder)) *Predicate {
	return &Predicate{fns: fns}
}

// Append adds render functions to the predicate.
func (p *Predicate) Append(f func(*Builder)) *Predicate {
	p.fns = append(p.fns, f)
	return p
}

func (p *Predicate) write(b *Builder) {
	for _, f := range p.fns {
		f(b)
	}
}

// Query renders the predicate for the Postgres dialect.
func (p *Predicate) Query() (string, []any) {
	b := NewBuilder(dialect.Postgres)
	p.write(b)
	return b.Query()
}

func compare(col, op string, v any) *Predicate {
	return P(func(b *Builder) {
		b.Ident(col).WriteString(op).Arg(v)
	})
}

// EQ returns a "=" predicate. A nil value renders IS NULL.
func EQ(col string, v any) *Predicate {
	if v == nil {
		return IsNull(col)
	}
	return compare(col, " = ", v)
}

// NEQ returns a "<>" predicate. A nil value renders IS NOT NULL.
func NEQ(col string, v any) *Predicate {
	if v == nil {
		return NotNull(col)
	}
	return compare(col, " <> ", v)
}

// GT returns a ">" predicate.
func GT(col string, v any) *Predicate { return compare(col, " > ", v) }

// GTE returns a ">=" predicate.
func GTE(col string, v any) *Predicate { return compare(col, " >= ", v) }

// LT returns a "<" predicate.
func LT(col string, v any) *Predicate { return compare(col, " < ", v) }

// LTE returns a "<=" predicate.
func LTE(col string, v any) *Predicate { return compare(col, " <= ", v) }

// Like returns a LIKE predicate with the pattern bound as an argument.
func Like(col, pattern string) *Predicate { return compare(col, " LIKE ", pattern) }

// ILike returns a case-insensitive LIKE predicate. Both sides are lowered so
// it behaves the same on every dialect.
func ILike(col, pattern string) *Predicate {
	return P(func(b *Builder) {
		b.WriteString("LOWER(").Ident(col).WriteString(") LIKE LOWER(").Arg(pattern).WriteByte(')')
	})
}

// Contains returns a LIKE predicate matching values containing sub.
func Contains(col, sub string) *Predicate { return Like(col, "%"+sub+"%") }

// HasPrefix returns a LIKE predicate matching values starting with prefix.
func HasPrefix(col, prefix string) *Predicate { return Like(col, prefix+"%") }

// In returns an IN predicate. An empty list matches nothing.
func In(col string, args ...any) *Predicate {
	if len(args) == 0 {
		return False()
	}
	return P(func(b *Builder) {
		b.Ident(col).WriteString(" IN (").Args(args...).WriteByte(')')
	})
}

// NotIn returns a NOT IN predicate. An empty list matches everything.
func NotIn(col string, args ...any) *Predicate {
	if len(args) == 0 {
		return P(func(b *Builder) { b.WriteString("1 = 1") })
	}
	return P(func(b *Builder) {
		b.Ident(col).WriteString(" NOT IN (").Args(args...).WriteByte(')')
	})
}

// Between returns a BETWEEN predicate.
func Between(col string, lo, hi any) *Predicate {
	return P(func(b *Builder) {
		b.Ident(col).WriteString(" BETWEEN ").Arg(lo).WriteString(" AND ").Arg(hi)
	})
}

// NotBetween returns a NOT BETWEEN predicate.
func NotBetween(col string, lo, hi any) *Predicate {
	return P(func(b *Builder) {
		b.Ident(col).WriteString(" NOT BETWEEN ").Arg(lo).WriteString(" AND ").Arg(hi)
	})
}

// IsNull returns an IS NULL predicate.
func IsNull(col string) *Predicate {
	return P(func(b *Builder) { b.Ident(col).WriteString(" IS NULL") })
}

// NotNull returns an IS NOT NULL predicate.
func NotNull(col string) *Predicate {
	return P(func(b *Builder) { b.Ident(col).WriteString(" IS NOT NULL") })
}

// False returns a predicate that matches no rows.
func False() *Predicate {
	return P(func(b *Builder) { b.WriteString("1 = 0") })
}

// And joins predicates with AND.
func And(preds ...*Predicate) *Predicate {
	return joinPreds(" AND ", false, preds)
}

// Or joins predicates with OR. The result is parenthesized.
func Or(preds ...*Predicate) *Predicate {
	return joinPreds(" OR ", true, preds)
}

func joinPreds(op string, wrap bool, preds []*Predicate) *Predicate {
	return P(func(b *Builder) {
		if wrap && len(preds) > 1 {
			b.WriteByte('(')
		}
		for i, p := range preds {
			if i > 0 {
				b.WriteString(op)
			}
			p.write(b)
		}
		if wrap && len(preds) > 1 {
			b.WriteByte(')')
		}
	})
}
