package dialect

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Dialect names.
const (
	Postgres = "postgres"
	MySQL    = "mysql"
	SQLite   = "sqlite"
)

// ExecQuerier wraps the two execution primitives: Exec for statements that
// return no rows, and Query for statements that do.
type ExecQuerier interface {
	// Exec executes a statement. v is nil or a pointer to an sql.Result.
	Exec(ctx context.Context, query string, args, v any) error
	// Query executes a query. v is a pointer to the rows to scan.
	Query(ctx context.Context, query string, args, v any) error
}

// Driver is the interface that wraps the ExecQuerier with the connection
// lifecycle and the dialect name.
type Driver interface {
	ExecQuerier
	// Close closes the underlying connection.
	Close() error
	// Dialect returns the dialect name of the driver.
	Dialect() string
}

// Normalize maps a dialect alias to its canonical name. Driver names such as
// "postgresql", "pgx" or "sqlite3" are accepted.
func Normalize(name string) (string, error) {
	switch n := strings.ToLower(strings.TrimSpace(name)); n {
	case Postgres, "postgresql", "pg", "pgx":
		return Postgres, nil
	case MySQL, "mariadb":
		return MySQL, nil
	case SQLite, "sqlite3":
		return SQLite, nil
	default:
		return "", fmt.Errorf("dialect: unsupported dialect %q", name)
	}
}

// SupportsReturning reports whether the dialect accepts a RETURNING clause on
// INSERT and UPDATE statements.
func SupportsReturning(name string) bool {
	return name == Postgres || name == SQLite
}

// Debug returns a driver that logs every statement to the given logger at
// debug level before executing it.
func Debug(d Driver, logger *slog.Logger) Driver {
	if logger == nil {
		logger = slog.Default()
	}
	return &DebugDriver{Driver: d, logger: logger}
}

// DebugDriver is a driver that logs all driver operations.
type DebugDriver struct {
	Driver
	logger *slog.Logger
}

// Exec logs its params and calls the underlying driver Exec method.
func (d *DebugDriver) Exec(ctx context.Context, query string, args, v any) error {
	d.logger.DebugContext(ctx, "driver.Exec", "query", query, "args", args)
	return d.Driver.Exec(ctx, query, args, v)
}

// Query logs its params and calls the underlying driver Query method.
func (d *DebugDriver) Query(ctx context.Context, query string, args, v any) error {
	d.logger.DebugContext(ctx, "driver.Query", "query", query, "args", args)
	return d.Driver.Query(ctx, query, args, v)
}
