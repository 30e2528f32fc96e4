package pgoose

import (
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strings"

	"github.com/syssam/pgoose/dialect/sql"
)

// Criteria selects rows by field. Entries are ANDed.
//
// A key is a field name, optionally followed by a space and an operator:
// like, ilike, >, <, >=, <=, <> or !=. A value is either compared for
// equality, or an Ops map applying several operators to the same field.
//
//	pgoose.Criteria{
//		"name ilike": "%doe%",
//		"age":        pgoose.Ops{"$gte": 18, "$lt": 65},
//		"role":       pgoose.Ops{"$in": []string{"admin", "owner"}},
//	}
type Criteria map[string]any

// Ops maps operators to operands: $eq, $ne, $lt, $lte, $gt, $gte, $in, $nin,
// $like and $ilike.
type Ops map[string]any

// parseKey splits a criteria key into the field name and the operator.
func parseKey(key string) (string, string, error) {
	parts := strings.Fields(key)
	switch len(parts) {
	case 1:
		return parts[0], "=", nil
	case 2:
		return parts[0], strings.ToLower(parts[1]), nil
	default:
		return "", "", fmt.Errorf("%w: %q", ErrUnknownOperator, key)
	}
}

// operands returns the value as Ops if it is an operator map.
func operands(v any) (Ops, bool) {
	switch v := v.(type) {
	case Ops:
		return v, true
	case map[string]any:
		if len(v) == 0 {
			return nil, false
		}
		for k := range v {
			if !strings.HasPrefix(k, "$") {
				return nil, false
			}
		}
		return Ops(v), true
	}
	return nil, false
}

// criteria compiles the entries in sorted key order so the generated
// statement is stable.
func (q *query) criteria(c Criteria) {
	for _, key := range slices.Sorted(maps.Keys(c)) {
		name, op, err := parseKey(key)
		if err != nil {
			q.fail(err)
			return
		}
		v := c[key]
		if ops, ok := operands(v); ok && op == "=" {
			for _, op := range slices.Sorted(maps.Keys(ops)) {
				q.apply(name, op, ops[op])
			}
			continue
		}
		q.apply(name, op, v)
	}
}

var comparisons = map[string]func(string, any) *sql.Predicate{
	"=":    sql.EQ,
	"$eq":  sql.EQ,
	"<>":   sql.NEQ,
	"!=":   sql.NEQ,
	"$ne":  sql.NEQ,
	">":    sql.GT,
	"$gt":  sql.GT,
	">=":   sql.GTE,
	"$gte": sql.GTE,
	"<":    sql.LT,
	"$lt":  sql.LT,
	"<=":   sql.LTE,
	"$lte": sql.LTE,
}

func (q *query) apply(name, op string, v any) {
	if cmp, ok := comparisons[op]; ok {
		q.compare(name, cmp, v)
		return
	}
	switch op {
	case "like", "$like":
		q.like(name, sql.Like, v)
	case "ilike", "$ilike":
		q.like(name, sql.ILike, v)
	case "$in", "$nin":
		values, err := list(v)
		if err != nil {
			q.fail(fmt.Errorf("%s %s: %w", name, op, err))
			return
		}
		if op == "$in" {
			q.in(name, sql.In, values)
		} else {
			q.in(name, sql.NotIn, values)
		}
	default:
		q.fail(fmt.Errorf("%w: %q on field %q", ErrUnknownOperator, op, name))
	}
}

// list returns the elements of a slice or array value.
func list(v any) ([]any, error) {
	if vs, ok := v.([]any); ok {
		return vs, nil
	}
	rv := reflect.ValueOf(v)
	if (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) || rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, fmt.Errorf("%w: expected a list, got %T", ErrTypeMismatch, v)
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, nil
}
