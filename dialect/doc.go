// Package dialect defines the database dialects pgoose speaks and the
// driver contract the rest of the module executes statements through.
//
// # Dialects
//
//	dialect.Postgres = "postgres"
//	dialect.MySQL    = "mysql"
//	dialect.SQLite   = "sqlite"
//
// Postgres is the reference dialect: column types, catalog queries and
// RETURNING clauses are modeled after it. SQLite is used for embedded and
// test databases, MySQL lacks RETURNING and falls back to LAST_INSERT_ID.
//
// # Driver Interface
//
//	type Driver interface {
//	    ExecQuerier
//	    Close() error
//	    Dialect() string
//	}
//
//	type ExecQuerier interface {
//	    Exec(ctx context.Context, query string, args, v any) error
//	    Query(ctx context.Context, query string, args, v any) error
//	}
//
// The sql sub-package implements Driver on top of database/sql:
//
//	drv, err := sql.Open(dialect.Postgres, "host=localhost dbname=app")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer drv.Close()
//
// # Sub-packages
//
//   - dialect/sql: database/sql driver, statement builders and predicates
//   - dialect/sql/schema: table creation and column drift detection
//   - dialect/sql/sqlgraph: classification of driver errors
package dialect
