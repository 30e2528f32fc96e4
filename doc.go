// Package pgoose is a schema-driven object mapper for PostgreSQL, MySQL and
// SQLite.
//
// A Schema declares the fields of a model with the builders of the
// schema/field package. Defining a model in a Collection creates its table
// when missing and reports column drift otherwise:
//
//	users := pgoose.MustSchema(
//		field.String("name").Required(),
//		field.Number("age"),
//		field.Bool("admin").Default(false),
//	)
//	User, err := coll.Define(ctx, "User", users)
//
// Model statics return query builders that compile to parameterized SQL when
// executed:
//
//	adults, err := User.Find(pgoose.Criteria{"age >=": 18}).
//		Sort("name", 1).
//		Limit(10).
//		Exec(ctx)
//
//	jane, err := User.FindOne(nil).Where("name").ILike("%jane%").Exec(ctx)
//
// Instances are saved, updated and removed through their model:
//
//	u, _ := User.New(map[string]any{"name": "Ada", "age": 36})
//	err = u.Save(ctx) // INSERT
//	_ = u.Set("age", 37)
//	err = u.Save(ctx) // UPDATE
//
// Every builder also offers ExecAsync, which returns a Future whose Then
// method delivers the same result and error as Exec.
//
// Models use the driver given to their Collection with WithDriver, or the
// process-wide connection opened by Connect.
package pgoose
