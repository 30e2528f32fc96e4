package pgoose

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/syssam/pgoose/config"
	"github.com/syssam/pgoose/dialect"
	"github.com/syssam/pgoose/dialect/sql"
)

// conn is the process-wide connection shared by every collection that was
// not given its own driver.
var conn struct {
	sync.RWMutex
	drv dialect.Driver
	cfg *config.Config
}

// Connect opens the process-wide connection described by cfg and verifies
// it. The pool is capped to a single open connection. A previous connection
// is closed.
func Connect(ctx context.Context, cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	drv, err := sql.Open(cfg.Dialect, cfg.DSN())
	if err != nil {
		return err
	}
	drv.DB().SetMaxOpenConns(1)
	if err := drv.Ping(ctx); err != nil {
		drv.Close()
		return err
	}
	var d dialect.Driver = drv
	if cfg.Debug {
		d = dialect.Debug(d, slog.Default())
	}
	if cfg.SlowQuery > 0 {
		d = sql.NewStatsDriver(d, sql.WithSlowThreshold(cfg.SlowQuery), sql.WithSlowQueryLog(slog.Default()))
	}
	return swap(d, &cfg)
}

// Stats returns the statement statistics of the process-wide connection.
// The second value is false unless Connect was given a SlowQuery threshold
// or Use a *sql.StatsDriver.
func Stats() (sql.StatsSnapshot, bool) {
	conn.RLock()
	defer conn.RUnlock()
	s, ok := conn.drv.(*sql.StatsDriver)
	if !ok {
		return sql.StatsSnapshot{}, false
	}
	return s.QueryStats().Stats(), true
}

// Use installs drv as the process-wide connection. It is meant for tests
// and for applications that open the database themselves.
func Use(drv dialect.Driver) error {
	return swap(drv, nil)
}

func swap(drv dialect.Driver, cfg *config.Config) error {
	conn.Lock()
	prev := conn.drv
	conn.drv, conn.cfg = drv, cfg
	conn.Unlock()
	if prev != nil && prev != drv {
		if err := prev.Close(); err != nil {
			return fmt.Errorf("pgoose: close previous connection: %w", err)
		}
	}
	return nil
}

// Disconnect closes the process-wide connection.
func Disconnect() error {
	conn.Lock()
	drv := conn.drv
	conn.drv, conn.cfg = nil, nil
	conn.Unlock()
	if drv == nil {
		return ErrConnectionNotInitialized
	}
	return drv.Close()
}

// IsConnected reports whether a process-wide connection is installed.
func IsConnected() bool {
	conn.RLock()
	defer conn.RUnlock()
	return conn.drv != nil
}

// Conn returns the process-wide connection.
func Conn() (dialect.Driver, error) {
	conn.RLock()
	defer conn.RUnlock()
	if conn.drv == nil {
		return nil, ErrConnectionNotInitialized
	}
	return conn.drv, nil
}

// CurrentConfig returns the configuration passed to Connect. The second
// value is false when not connected or when the driver was installed by Use.
func CurrentConfig() (config.Config, bool) {
	conn.RLock()
	defer conn.RUnlock()
	if conn.cfg == nil {
		return config.Config{}, false
	}
	return *conn.cfg, true
}

// Result holds the rows returned by Run and the metadata of their columns.
type Result struct {
	Rows   []map[string]any
	Fields []sql.Field
}

// Run executes a raw statement on the process-wide connection. Driver
// errors are returned unmodified.
func Run(ctx context.Context, query string, args ...any) (*Result, error) {
	drv, err := Conn()
	if err != nil {
		return nil, err
	}
	return run(ctx, drv, query, args)
}

func run(ctx context.Context, eq dialect.ExecQuerier, query string, args []any) (*Result, error) {
	rows, fields, err := sql.QueryMaps(ctx, eq, query, args)
	if err != nil {
		return nil, err
	}
	return &Result{Rows: rows, Fields: fields}, nil
}
