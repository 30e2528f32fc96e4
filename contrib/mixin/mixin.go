// Package mixin provides reusable groups of fields and hooks for pgoose
// schemas.
//
// These mixins are OPTIONAL and provided as convenient starting points.
// Users are encouraged to create their own mixins tailored to their needs.
//
// Available mixins:
//   - CreateTime: Adds a created_at date set on insert
//   - UpdateTime: Adds an updated_at date set on every write
//   - Time: Combines CreateTime and UpdateTime
//   - TenantID: Adds a tenant_id field filled from the privacy viewer
//   - Policy: Evaluates a privacy policy after the hooks of earlier mixins
//
// Usage:
//
//	s, err := mixin.Schema([]mixin.Mixin{mixin.Time{}, mixin.TenantID{}},
//	    field.String("title").Required(),
//	)
//
// Mixin fields come first in the table, in mixin order. The hooks of all
// mixins are chained per kind and registered as pre hooks of the schema;
// registering another pre hook of the same kind replaces the chain.
//
// Custom mixins:
//
//	type Audit struct{}
//
//	func (Audit) Fields() []field.Field {
//	    return []field.Field{field.String("created_by")}
//	}
//
//	func (Audit) Hooks() []mixin.Hook { return nil }
package mixin

import (
	"context"
	"time"

	"github.com/syssam/pgoose"
	"github.com/syssam/pgoose/privacy"
	"github.com/syssam/pgoose/schema/field"
)

// Mixin is a group of fields and pre hooks shared by several schemas.
type Mixin interface {
	Fields() []field.Field
	Hooks() []Hook
}

// Hook is a pre hook of a mixin and the kinds it runs on.
type Hook struct {
	Kinds []pgoose.HookKind
	Fn    pgoose.Hook
}

// Schema builds a schema from the mixin fields followed by the given
// fields, and registers the mixin hooks.
func Schema(mixins []Mixin, fields ...field.Field) (*pgoose.Schema, error) {
	var all []field.Field
	for _, m := range mixins {
		all = append(all, m.Fields()...)
	}
	s, err := pgoose.NewSchema(append(all, fields...)...)
	if err != nil {
		return nil, err
	}
	chains := make(map[pgoose.HookKind][]pgoose.Hook)
	for _, m := range mixins {
		for _, h := range m.Hooks() {
			for _, kind := range h.Kinds {
				chains[kind] = append(chains[kind], h.Fn)
			}
		}
	}
	for _, kind := range pgoose.HookKinds() {
		if len(chains[kind]) == 0 {
			continue
		}
		if err := s.Pre(kind, chain(chains[kind])); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// MustSchema is like Schema but panics on error.
func MustSchema(mixins []Mixin, fields ...field.Field) *pgoose.Schema {
	s, err := Schema(mixins, fields...)
	if err != nil {
		panic(err)
	}
	return s
}

func chain(hooks []pgoose.Hook) pgoose.Hook {
	return func(ctx context.Context, instances ...*pgoose.Instance) error {
		for _, fn := range hooks {
			if err := fn(ctx, instances...); err != nil {
				return err
			}
		}
		return nil
	}
}

// each returns a hook calling fn for every instance.
func each(fn func(context.Context, *pgoose.Instance) error) pgoose.Hook {
	return func(ctx context.Context, instances ...*pgoose.Instance) error {
		for _, in := range instances {
			if err := fn(ctx, in); err != nil {
				return err
			}
		}
		return nil
	}
}

var (
	insertKinds = []pgoose.HookKind{pgoose.HookCreate, pgoose.HookSave}
	writeKinds  = []pgoose.HookKind{pgoose.HookCreate, pgoose.HookSave, pgoose.HookUpdate, pgoose.HookFindByIDAndUpdate}
)

func now(fn func() time.Time) time.Time {
	if fn == nil {
		return time.Now().UTC()
	}
	return fn()
}

// CreateTime adds a created_at date. It is set on insert unless a value
// was given, and left untouched by updates.
type CreateTime struct {
	// Now overrides the clock.
	Now func() time.Time
}

// Fields of the create time mixin.
func (CreateTime) Fields() []field.Field {
	return []field.Field{field.Date("created_at")}
}

// Hooks of the create time mixin.
func (m CreateTime) Hooks() []Hook {
	return []Hook{{
		Kinds: insertKinds,
		Fn: each(func(_ context.Context, in *pgoose.Instance) error {
			if in.IsPersisted() || in.Get("created_at") != nil {
				return nil
			}
			return in.Set("created_at", now(m.Now))
		}),
	}}
}

// UpdateTime adds an updated_at date set on every write of an instance.
// Bulk updates do not change it.
type UpdateTime struct {
	// Now overrides the clock.
	Now func() time.Time
}

// Fields of the update time mixin.
func (UpdateTime) Fields() []field.Field {
	return []field.Field{field.Date("updated_at")}
}

// Hooks of the update time mixin.
func (m UpdateTime) Hooks() []Hook {
	return []Hook{{
		Kinds: writeKinds,
		Fn: each(func(_ context.Context, in *pgoose.Instance) error {
			return in.Set("updated_at", now(m.Now))
		}),
	}}
}

// Time composes CreateTime and UpdateTime. Both dates of a new instance
// hold the same value.
type Time struct {
	// Now overrides the clock.
	Now func() time.Time
}

// Fields of the time mixin.
func (m Time) Fields() []field.Field {
	return append(CreateTime(m).Fields(), UpdateTime(m).Fields()...)
}

// Hooks of the time mixin.
func (m Time) Hooks() []Hook {
	return []Hook{{
		Kinds: writeKinds,
		Fn: each(func(_ context.Context, in *pgoose.Instance) error {
			t := now(m.Now)
			if !in.IsPersisted() && in.Get("created_at") == nil {
				if err := in.Set("created_at", t); err != nil {
					return err
				}
			}
			return in.Set("updated_at", t)
		}),
	}}
}

// TenantID adds a required tenant_id field. On insert it is filled from
// the tenant of the privacy viewer unless a value was given.
//
// Combined with privacy.TenantRule("tenant_id"), writes stay inside the
// tenant of the viewer.
type TenantID struct{}

// Fields of the tenant id mixin.
func (TenantID) Fields() []field.Field {
	return []field.Field{field.String("tenant_id").Required()}
}

// Hooks of the tenant id mixin.
func (TenantID) Hooks() []Hook {
	return []Hook{{
		Kinds: insertKinds,
		Fn: each(func(ctx context.Context, in *pgoose.Instance) error {
			if in.IsPersisted() || in.Get("tenant_id") != nil {
				return nil
			}
			v := privacy.ViewerFromContext(ctx)
			if v == nil || v.GetTenantID() == "" {
				return nil
			}
			return in.Set("tenant_id", v.GetTenantID())
		}),
	}}
}

// Policy returns a mixin evaluating the privacy policy as a pre hook. Placed
// after other mixins, its rules see the values those mixins set:
//
//	mixin.Schema([]mixin.Mixin{
//	    mixin.TenantID{},
//	    mixin.Policy(privacy.Policy{Mutation: []privacy.Rule{privacy.TenantRule("tenant_id")}}),
//	})
func Policy(p privacy.Policy) Mixin {
	return policy{p}
}

type policy struct{ p privacy.Policy }

func (policy) Fields() []field.Field { return nil }

func (m policy) Hooks() []Hook {
	var hooks []Hook
	for _, kind := range pgoose.HookKinds() {
		op := privacy.Operation{Kind: kind}
		if len(m.p.Query) == 0 && op.IsQuery() || len(m.p.Mutation) == 0 && !op.IsQuery() {
			continue
		}
		hooks = append(hooks, Hook{
			Kinds: []pgoose.HookKind{kind},
			Fn: func(ctx context.Context, instances ...*pgoose.Instance) error {
				return m.p.Eval(ctx, privacy.Operation{Kind: kind, Instances: instances})
			},
		})
	}
	return hooks
}

var (
	_ Mixin = policy{}
	_ Mixin = CreateTime{}
	_ Mixin = UpdateTime{}
	_ Mixin = Time{}
	_ Mixin = TenantID{}
)
