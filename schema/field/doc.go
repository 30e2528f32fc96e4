// Package field provides the logical type registry and the fluent builders
// used to declare schema fields in pgoose.
//
// # Types
//
// Every field is backed by a logical type registered in the package registry.
// A type knows the column type it maps to in each dialect, the type name the
// database catalog reports back for that column, and how to convert values in
// both directions:
//
//	t, err := field.Describe("String")
//	v, _ := t.ToDB(strings.Repeat("a", 300)) // clipped to 255 characters
//	t.ColumnType(dialect.Postgres)          // "varchar(255)"
//
// The builtin types are String, Text, Number, BigNumber, Boolean, Date, Json,
// JsonB, Uuid and Id. Custom types are added with Register.
//
// # Fields
//
// Fields are declared with builders named after their type:
//
//	field.String("name").Required()
//	field.Number("age").Default(18)
//	field.String("role").Enum("admin", "user")
//	field.String("email").Unique().
//	    Validate(isEmail, "email is malformed")
//	field.ID("owner").Ref("users")
//
// or from a map-style declaration, which is how schema files describe them:
//
//	field.FromDecl("email", field.Decl{Type: "String", Index: field.Index{Unique: true}})
//
// Builders only record the declaration. Type resolution happens when a schema
// is built from the fields, so an unknown or malformed type is reported there.
package field
