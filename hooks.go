package pgoose

import (
	"context"
	"fmt"
)

// HookKind names the operation a hook is attached to.
type HookKind string

// Hook kinds. The set is closed: registering any other kind fails.
const (
	HookCreate            HookKind = "create"
	HookSave              HookKind = "save"
	HookUpdate            HookKind = "update"
	HookRemove            HookKind = "remove"
	HookFind              HookKind = "find"
	HookFindOne           HookKind = "findOne"
	HookFindByID          HookKind = "findById"
	HookFindByIDAndUpdate HookKind = "findByIdAndUpdate"
	HookFindByIDAndRemove HookKind = "findByIdAndRemove"
)

// HookKinds returns all hook kinds.
func HookKinds() []HookKind {
	return []HookKind{
		HookCreate, HookSave, HookUpdate, HookRemove, HookFind,
		HookFindOne, HookFindByID, HookFindByIDAndUpdate, HookFindByIDAndRemove,
	}
}

// Valid reports whether k is one of the hook kinds.
func (k HookKind) Valid() bool {
	switch k {
	case HookCreate, HookSave, HookUpdate, HookRemove, HookFind,
		HookFindOne, HookFindByID, HookFindByIDAndUpdate, HookFindByIDAndRemove:
		return true
	}
	return false
}

func (k HookKind) check() error {
	if !k.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownHookType, string(k))
	}
	return nil
}

// Hook is a callback run before or after an operation.
//
// A pre hook receives the instance the operation works on, if any, and may
// change its fields. Returning an error aborts the operation before any SQL
// is sent. A post hook receives the resulting instances; its error is logged
// and does not change the result of the operation.
type Hook func(ctx context.Context, instances ...*Instance) error

// Method is an instance-bound extension function declared on a schema.
type Method func(ctx context.Context, in *Instance, args ...any) (any, error)

// Static is a model-level extension function declared on a schema.
type Static func(ctx context.Context, m *Model, args ...any) (any, error)

type hookPhase int

const (
	phasePre hookPhase = iota
	phasePost
)

func (p hookPhase) String() string {
	if p == phasePre {
		return "pre"
	}
	return "post"
}
