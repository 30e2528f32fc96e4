// Package privacy provides authorization rules evaluated before model
// operations reach the database.
//
// A Policy holds the rules of read operations (find, findOne, findById) and
// of write operations (every other hook kind). Apply registers a policy as
// pre hooks of a schema:
//
//	s := pgoose.MustSchema(field.String("title"), field.ID("author").Ref("users"))
//	err := privacy.Apply(s, privacy.Policy{
//	    Query: []privacy.Rule{
//	        privacy.DenyIfNoViewer(),
//	    },
//	    Mutation: []privacy.Rule{
//	        privacy.DenyIfNoViewer(),
//	        privacy.HasRole("admin"),
//	        privacy.IsOwner("author"),
//	        privacy.AlwaysDenyRule(),
//	    },
//	})
//
// # Rule Evaluation
//
// Rules are evaluated in order until one returns a final decision:
//
//   - Allow: grants access and stops evaluation
//   - Deny: fails the operation and stops evaluation
//   - Skip (or nil): continues to the next rule
//
// If every rule skips, the operation is allowed; end a policy with
// AlwaysDenyRule to deny by default. A denied operation returns an error
// matching Deny with errors.Is.
//
// # Viewer
//
// Rules read the current user from the context:
//
//	ctx = privacy.WithViewer(ctx, &privacy.SimpleViewer{UserID: "7", Roles: []string{"admin"}})
//
// DecisionContext attaches a decision that bypasses every policy, for
// example in migrations or system jobs:
//
//	ctx = privacy.DecisionContext(ctx, privacy.Allow)
package privacy
