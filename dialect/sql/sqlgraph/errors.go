// Package sqlgraph classifies errors returned by the database drivers.
package sqlgraph

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// constraint describes how each driver reports one kind of violation.
type constraint struct {
	pg     pq.ErrorCode
	mysql  []uint16
	sqlite []int
	// text is matched against the message of errors from other drivers.
	text []string
}

var (
	unique = constraint{
		pg:     "23505",
		mysql:  []uint16{1062},
		sqlite: []int{sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY},
		text:   []string{"Error 1062", "violates unique constraint", "UNIQUE constraint failed"},
	}
	foreignKey = constraint{
		pg:     "23503",
		mysql:  []uint16{1451, 1452},
		sqlite: []int{sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY},
		text:   []string{"Error 1451", "Error 1452", "violates foreign key constraint", "FOREIGN KEY constraint failed"},
	}
	check = constraint{
		pg:     "23514",
		mysql:  []uint16{3819},
		sqlite: []int{sqlite3.SQLITE_CONSTRAINT_CHECK},
		text:   []string{"Error 3819", "violates check constraint", "CHECK constraint failed"},
	}
	notNull = constraint{
		pg:     "23502",
		mysql:  []uint16{1048},
		sqlite: []int{sqlite3.SQLITE_CONSTRAINT_NOTNULL},
		text:   []string{"Error 1048", "violates not-null constraint", "NOT NULL constraint failed"},
	}
)

func (c constraint) match(err error) bool {
	if err == nil {
		return false
	}
	if e := (*pq.Error)(nil); errors.As(err, &e) {
		return e.Code == c.pg
	}
	if e := (*mysql.MySQLError)(nil); errors.As(err, &e) {
		for _, n := range c.mysql {
			if e.Number == n {
				return true
			}
		}
		return false
	}
	// SQLite reports the primary code unless extended codes are enabled on
	// the connection, so a mismatch falls through to the message.
	if e := (*sqlite.Error)(nil); errors.As(err, &e) {
		for _, code := range c.sqlite {
			if e.Code() == code {
				return true
			}
		}
	}
	msg := err.Error()
	for _, s := range c.text {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// IsConstraintError returns true if the error resulted from a database constraint violation.
func IsConstraintError(err error) bool {
	return IsUniqueConstraintError(err) ||
		IsForeignKeyConstraintError(err) ||
		IsCheckConstraintError(err) ||
		IsNotNullConstraintError(err)
}

// IsUniqueConstraintError reports if the error resulted from a DB uniqueness constraint violation.
// e.g. duplicate value in unique index.
func IsUniqueConstraintError(err error) bool { return unique.match(err) }

// IsForeignKeyConstraintError reports if the error resulted from a database foreign-key constraint violation.
// e.g. parent row does not exist.
func IsForeignKeyConstraintError(err error) bool { return foreignKey.match(err) }

// IsCheckConstraintError reports if the error resulted from a database check constraint violation.
func IsCheckConstraintError(err error) bool { return check.match(err) }

// IsNotNullConstraintError reports if the error resulted from writing NULL to a NOT NULL column.
func IsNotNullConstraintError(err error) bool { return notNull.match(err) }
