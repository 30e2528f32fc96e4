package privacy

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/syssam/pgoose"
)

// Policy decision sentinel errors.
//
// These errors are used as return values from policy rules to indicate
// how the policy evaluation should proceed. Use errors.Is() to check
// for these values:
//
//	if errors.Is(err, privacy.Allow) { ... }
//	if errors.Is(err, privacy.Deny) { ... }
//	if errors.Is(err, privacy.Skip) { ... }
var (
	// Allow may be returned by rules to indicate that the policy
	// evaluation should terminate with an allow decision.
	Allow = errors.New("pgoose/privacy: allow rule")

	// Deny may be returned by rules to indicate that the policy
	// evaluation should terminate with a deny decision. The operation
	// fails before any statement is sent.
	Deny = errors.New("pgoose/privacy: deny rule")

	// Skip may be returned by rules to indicate that the policy
	// evaluation should continue to the next rule in the chain.
	Skip = errors.New("pgoose/privacy: skip rule")
)

// Allowf returns a formatted wrapped Allow decision.
func Allowf(format string, a ...any) error {
	return fmt.Errorf(format+": %w", append(a, Allow)...)
}

// Denyf returns a formatted wrapped Deny decision.
func Denyf(format string, a ...any) error {
	return fmt.Errorf(format+": %w", append(a, Deny)...)
}

// Skipf returns a formatted wrapped Skip decision.
func Skipf(format string, a ...any) error {
	return fmt.Errorf(format+": %w", append(a, Skip)...)
}

// Operation is the model operation a rule decides on.
type Operation struct {
	Kind pgoose.HookKind
	// Instances holds the instance a write works on. It is empty for
	// queries and for bulk updates and removals.
	Instances []*pgoose.Instance
}

// IsQuery reports whether the operation only reads rows.
func (op Operation) IsQuery() bool {
	return slices.Contains(QueryKinds(), op.Kind)
}

// Field returns the value of a field of the first instance.
func (op Operation) Field(name string) (any, bool) {
	if len(op.Instances) == 0 || op.Instances[0] == nil {
		return nil, false
	}
	v := op.Instances[0].Get(name)
	return v, v != nil
}

// QueryKinds returns the hook kinds of read operations.
func QueryKinds() []pgoose.HookKind {
	return []pgoose.HookKind{pgoose.HookFind, pgoose.HookFindOne, pgoose.HookFindByID}
}

// MutationKinds returns the hook kinds of write operations.
func MutationKinds() []pgoose.HookKind {
	return slices.DeleteFunc(pgoose.HookKinds(), func(k pgoose.HookKind) bool {
		return slices.Contains(QueryKinds(), k)
	})
}

// Rule decides whether an operation may run.
type Rule interface {
	Eval(context.Context, Operation) error
}

// RuleFunc type is an adapter which allows the use of ordinary functions
// as rules.
type RuleFunc func(context.Context, Operation) error

// Eval returns f(ctx, op).
func (f RuleFunc) Eval(ctx context.Context, op Operation) error {
	return f(ctx, op)
}

// AlwaysAllowRule returns a rule that always returns an Allow decision.
func AlwaysAllowRule() Rule {
	return fixedDecision{Allow}
}

// AlwaysDenyRule returns a rule that always returns a Deny decision.
func AlwaysDenyRule() Rule {
	return fixedDecision{Deny}
}

// ContextRule creates a rule from a context evaluation function.
// Returning nil is equivalent to returning Skip.
func ContextRule(eval func(context.Context) error) Rule {
	return RuleFunc(func(ctx context.Context, _ Operation) error {
		return eval(ctx)
	})
}

// OnKinds evaluates the given rule only on the given operation kinds.
func OnKinds(rule Rule, kinds ...pgoose.HookKind) Rule {
	return RuleFunc(func(ctx context.Context, op Operation) error {
		if slices.Contains(kinds, op.Kind) {
			return rule.Eval(ctx, op)
		}
		return Skip
	})
}

// DenyKindsRule returns a rule denying the given operation kinds.
func DenyKindsRule(kinds ...pgoose.HookKind) Rule {
	return OnKinds(RuleFunc(func(_ context.Context, op Operation) error {
		return Denyf("pgoose/privacy: operation %s is not allowed", op.Kind)
	}), kinds...)
}

// AllowKindsRule returns a rule allowing the given operation kinds.
func AllowKindsRule(kinds ...pgoose.HookKind) Rule {
	return OnKinds(fixedDecision{Allow}, kinds...)
}

// Policy groups the rules of read and write operations.
type Policy struct {
	Query    []Rule
	Mutation []Rule
}

// Eval evaluates the rules matching the operation in order. The first
// Allow ends the evaluation with a nil error, the first other decision that
// is not Skip is returned. An operation no rule decides on is allowed.
//
// A decision attached to ctx with DecisionContext takes precedence.
func (p Policy) Eval(ctx context.Context, op Operation) error {
	if decision, ok := DecisionFromContext(ctx); ok {
		return decision
	}
	rules := p.Mutation
	if op.IsQuery() {
		rules = p.Query
	}
	for _, rule := range rules {
		switch decision := rule.Eval(ctx, op); {
		case decision == nil || errors.Is(decision, Skip):
		case errors.Is(decision, Allow):
			return nil
		default:
			return decision
		}
	}
	return nil
}

// Apply registers the policy as pre hooks of the schema, for every kind
// that has rules. It replaces the pre hooks registered for those kinds, so
// hooks that must run too should be composed into a rule.
func Apply(s *pgoose.Schema, p Policy) error {
	for _, kind := range pgoose.HookKinds() {
		op := Operation{Kind: kind}
		if len(p.Query) == 0 && op.IsQuery() || len(p.Mutation) == 0 && !op.IsQuery() {
			continue
		}
		err := s.Pre(kind, func(ctx context.Context, instances ...*pgoose.Instance) error {
			return p.Eval(ctx, Operation{Kind: kind, Instances: instances})
		})
		if err != nil {
			return err
		}
	}
	return nil
}

type decisionCtxKey struct{}

// DecisionContext creates a new context from the given parent context with
// a policy decision attach to it.
func DecisionContext(parent context.Context, decision error) context.Context {
	if decision == nil || errors.Is(decision, Skip) {
		return parent
	}
	return context.WithValue(parent, decisionCtxKey{}, decision)
}

// DecisionFromContext retrieves the policy decision from the context.
func DecisionFromContext(ctx context.Context) (error, bool) {
	decision, ok := ctx.Value(decisionCtxKey{}).(error)
	if ok && errors.Is(decision, Allow) {
		decision = nil
	}
	return decision, ok
}

type fixedDecision struct {
	decision error
}

func (f fixedDecision) Eval(context.Context, Operation) error {
	return f.decision
}
