package field

import (
	"errors"
	"fmt"
)

var (
	// ErrUndefinedType is returned when a type name is not in the registry.
	ErrUndefinedType = errors.New("pgoose: undefined type")

	// ErrBadTypeFormat is returned when a declared type is neither a type
	// name nor a *Type.
	ErrBadTypeFormat = errors.New("pgoose: bad schema type")

	// ErrTypeMismatch is returned when a value cannot be converted to or
	// from a logical type.
	ErrTypeMismatch = errors.New("pgoose: type mismatch")
)

// TypeError describes a failed conversion of a value by a logical type.
type TypeError struct {
	Type  string
	Value any
	Err   error
}

// Error returns the error string.
func (e *TypeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("pgoose: cannot convert %T to %s: %v", e.Value, e.Type, e.Err)
	}
	return fmt.Sprintf("pgoose: cannot convert %T to %s", e.Value, e.Type)
}

// Is reports whether the target error matches ErrTypeMismatch.
func (e *TypeError) Is(err error) bool {
	return err == ErrTypeMismatch
}

// Unwrap returns the underlying error.
func (e *TypeError) Unwrap() error {
	return e.Err
}

func mismatch(typ string, v any, err error) error {
	return &TypeError{Type: typ, Value: v, Err: err}
}

// IsTypeMismatch returns true if the error is a TypeError.
func IsTypeMismatch(err error) bool {
	if err == nil {
		return false
	}
	var e *TypeError
	return errors.As(err, &e) || errors.Is(err, ErrTypeMismatch)
}
