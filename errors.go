package pgoose

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	sqlschema "github.com/syssam/pgoose/dialect/sql/schema"
	"github.com/syssam/pgoose/dialect/sql/sqlgraph"
	"github.com/syssam/pgoose/schema/field"
)

// Standard sentinel errors for common operations.
var (
	// ErrNotFound is returned when a requested item does not exist.
	ErrNotFound = errors.New("pgoose: item not found")

	// ErrConnectionNotInitialized is returned when the process-wide
	// connection is used or closed before Connect or Use.
	ErrConnectionNotInitialized = errors.New("pgoose: connection not initialized")

	// ErrUnknownHookType is returned when registering a hook for a kind outside
	// the fixed set of hook kinds.
	ErrUnknownHookType = errors.New("pgoose: unknown hook type")

	// ErrForbiddenColumnName is returned for field names reserved by the
	// runtime, such as "id" and "schema".
	ErrForbiddenColumnName = errors.New("pgoose: forbidden column name")

	// ErrModelNotPersisted is returned when an operation needs the identity
	// of an instance that was never inserted.
	ErrModelNotPersisted = errors.New("pgoose: model has not been persisted yet")

	// ErrModelAlreadyPersisted is returned when creating an instance that
	// already has an identity.
	ErrModelAlreadyPersisted = errors.New("pgoose: model has already been persisted")

	// ErrItemExists is returned when a model is registered twice for the same
	// table in a collection.
	ErrItemExists = errors.New("pgoose: item already exists")

	// ErrModelMissing is returned when looking up a model that is not
	// registered.
	ErrModelMissing = errors.New("pgoose: model not found")

	// ErrFieldNotFound is returned for field names that are not declared in
	// the schema.
	ErrFieldNotFound = errors.New("pgoose: field not found")

	// ErrFieldNotForeignKey is returned when populating a field that is not an
	// Id field referencing another model.
	ErrFieldNotForeignKey = errors.New("pgoose: field is not a foreign key")

	// ErrUnknownOperator is returned for criteria operators that cannot be
	// compiled.
	ErrUnknownOperator = errors.New("pgoose: unknown criteria operator")

	// ErrMethodNotFound is returned when calling a method or static that is
	// not declared in the schema.
	ErrMethodNotFound = errors.New("pgoose: method not found")

	// ErrInvalidIdentifier is returned for model and field names that are
	// not plain SQL identifiers.
	ErrInvalidIdentifier = errors.New("pgoose: invalid identifier")
)

// identRe matches the names usable as tables and columns.
var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func checkIdentifier(kind, name string) error {
	if len(name) > 63 || !identRe.MatchString(name) {
		return fmt.Errorf("%w: %s %q", ErrInvalidIdentifier, kind, name)
	}
	return nil
}

// Errors raised by the type registry and the table synchronizer.
var (
	ErrUndefinedType         = field.ErrUndefinedType
	ErrBadTypeFormat         = field.ErrBadTypeFormat
	ErrTypeMismatch          = field.ErrTypeMismatch
	ErrSchemaPathsHasChanged = sqlschema.ErrSchemaPathsHasChanged
)

// DriftError reports a table whose column types differ from its schema.
type DriftError = sqlschema.DriftError

// IsDriftError returns true if the error is a DriftError.
func IsDriftError(err error) bool {
	return sqlschema.IsDriftError(err)
}

// NotFoundError represents an error when an item is not found.
type NotFoundError struct {
	label string
	id    any // Optional: the ID that was searched for
}

// Error returns the error string.
func (e *NotFoundError) Error() string {
	if e.id != nil {
		return fmt.Sprintf("pgoose: %s not found (id=%v)", e.label, e.id)
	}
	return fmt.Sprintf("pgoose: %s not found", e.label)
}

// Is reports whether the target error matches NotFoundError.
// This allows errors.Is(notFoundErr, ErrNotFound) to return true.
func (e *NotFoundError) Is(err error) bool {
	return err == ErrNotFound
}

// Label returns the model name.
func (e *NotFoundError) Label() string {
	return e.label
}

// ID returns the ID that was searched for, if available.
func (e *NotFoundError) ID() any {
	return e.id
}

// NewNotFoundError returns a new NotFoundError for the given model.
func NewNotFoundError(label string) *NotFoundError {
	return &NotFoundError{label: label}
}

// NewNotFoundErrorWithID returns a new NotFoundError with the ID that was searched for.
func NewNotFoundErrorWithID(label string, id any) *NotFoundError {
	return &NotFoundError{label: label, id: id}
}

// IsNotFound returns true if the error is a NotFoundError.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var e *NotFoundError
	return errors.As(err, &e) || errors.Is(err, ErrNotFound)
}

// ValidationError represents a validation error for field values. Err holds
// the message configured on the failing validator.
type ValidationError struct {
	Name string // Field name
	Err  error  // Underlying validation error
}

// Error returns the error string.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("pgoose: validator failed for field %q: %s", e.Name, e.Err)
}

// Unwrap returns the underlying error.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError returns a new ValidationError for the given field.
func NewValidationError(name string, err error) *ValidationError {
	return &ValidationError{Name: name, Err: err}
}

// IsValidationError returns true if the error is a ValidationError.
func IsValidationError(err error) bool {
	if err == nil {
		return false
	}
	var e *ValidationError
	return errors.As(err, &e)
}

// IsConstraintError returns true if the error is a constraint violation
// reported by the database driver.
func IsConstraintError(err error) bool {
	return sqlgraph.IsConstraintError(err)
}

// AggregateError represents multiple errors collected during an operation.
type AggregateError struct {
	Errors []error
}

// Error returns the error string.
func (e *AggregateError) Error() string {
	if len(e.Errors) == 0 {
		return "pgoose: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var sb strings.Builder
	sb.WriteString("pgoose: multiple errors:")
	for i, err := range e.Errors {
		fmt.Fprintf(&sb, "\n  [%d] %v", i+1, err)
	}
	return sb.String()
}

// Unwrap returns the collected errors.
func (e *AggregateError) Unwrap() []error {
	return e.Errors
}

// NewAggregateError returns a new AggregateError if there are errors,
// otherwise returns nil.
func NewAggregateError(errs ...error) error {
	var filtered []error
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	if len(filtered) == 0 {
		return nil
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &AggregateError{Errors: filtered}
}
