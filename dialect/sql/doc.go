// Package sql implements dialect.Driver on top of database/sql and provides
// the parameterized statement builders pgoose compiles queries with.
//
// # Builders
//
//   - Builder: low-level statement writer with identifier quoting and
//     dialect placeholders ($1 on Postgres, ? elsewhere)
//   - Selector: SELECT with joins, predicates, grouping, ordering and paging
//   - InsertBuilder: INSERT with RETURNING where the dialect supports it
//   - UpdateBuilder: UPDATE with SET, WHERE and RETURNING
//   - DeleteBuilder: DELETE with WHERE
//
//	users := sql.Table("users")
//	query, args := sql.Dialect(dialect.Postgres).
//	    Select(users.C("id"), users.C("name")).
//	    From(users).
//	    Where(sql.And(sql.GT(users.C("age"), 30), sql.ILike(users.C("name"), "%doe%"))).
//	    OrderBy(sql.Desc(users.C("age"))).
//	    Limit(10).
//	    Query()
//	// SELECT "users"."id", "users"."name" FROM "users"
//	// WHERE "users"."age" > $1 AND LOWER("users"."name") LIKE LOWER($2)
//	// ORDER BY "users"."age" DESC LIMIT 10
//
// Values are always bound as arguments. The only exception is a value
// implementing Literal, which is written inline; the Boolean field type
// uses it for the TRUE and FALSE keywords.
//
// # Predicates
//
//	sql.EQ("name", "john")            // "name" = $1
//	sql.EQ("deleted_at", nil)         // "deleted_at" IS NULL
//	sql.In("status", "a", "b")        // "status" IN ($1, $2)
//	sql.Between("age", 18, 30)        // "age" BETWEEN $1 AND $2
//	sql.ILike("name", "%doe%")        // LOWER("name") LIKE LOWER($1)
//	sql.Or(sql.GT("a", 1), sql.LT("b", 2))
//
// # Drivers
//
// Importing this package links the postgres, mysql and sqlite database/sql
// drivers, so Open accepts any of the three dialect names. StatsDriver collects statement
// statistics and reports slow statements through log/slog.
package sql
