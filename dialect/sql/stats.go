package sql

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/syssam/pgoose/dialect"
)

// QueryStats counts the statements sent through a StatsDriver. Counters
// are updated atomically and may be read while statements run.
type QueryStats struct {
	TotalQueries  atomic.Int64
	TotalExecs    atomic.Int64
	TotalDuration atomic.Int64 // nanoseconds
	SlowQueries   atomic.Int64
	Errors        atomic.Int64
}

// Stats returns a snapshot of the counters.
func (s *QueryStats) Stats() StatsSnapshot {
	return StatsSnapshot{
		TotalQueries:  s.TotalQueries.Load(),
		TotalExecs:    s.TotalExecs.Load(),
		TotalDuration: time.Duration(s.TotalDuration.Load()),
		SlowQueries:   s.SlowQueries.Load(),
		Errors:        s.Errors.Load(),
	}
}

// Reset sets every counter to zero.
func (s *QueryStats) Reset() {
	for _, c := range []*atomic.Int64{&s.TotalQueries, &s.TotalExecs, &s.TotalDuration, &s.SlowQueries, &s.Errors} {
		c.Store(0)
	}
}

// StatsSnapshot holds the counters of a QueryStats at one point in time.
type StatsSnapshot struct {
	TotalQueries  int64
	TotalExecs    int64
	TotalDuration time.Duration
	SlowQueries   int64
	Errors        int64
}

// AvgQueryDuration returns the mean duration of queries and execs.
func (s StatsSnapshot) AvgQueryDuration() time.Duration {
	if n := s.TotalQueries + s.TotalExecs; n > 0 {
		return s.TotalDuration / time.Duration(n)
	}
	return 0
}

func (s StatsSnapshot) String() string {
	return fmt.Sprintf("queries=%d execs=%d duration=%s avg=%s slow=%d errors=%d",
		s.TotalQueries, s.TotalExecs, s.TotalDuration, s.AvgQueryDuration(), s.SlowQueries, s.Errors)
}

// SlowQueryHook is called for every statement running longer than the slow
// threshold.
type SlowQueryHook func(ctx context.Context, query string, args []any, duration time.Duration)

// StatsDriver is a driver counting statements and reporting slow ones.
type StatsDriver struct {
	dialect.Driver
	stats     QueryStats
	threshold atomic.Int64
	slow      SlowQueryHook
}

// StatsOption configures a StatsDriver.
type StatsOption func(*StatsDriver)

// WithSlowThreshold sets the duration above which a statement is slow.
// The default is 100ms.
func WithSlowThreshold(d time.Duration) StatsOption {
	return func(s *StatsDriver) {
		s.threshold.Store(int64(d))
	}
}

// WithSlowQueryHook sets the callback of slow statements.
func WithSlowQueryHook(hook SlowQueryHook) StatsOption {
	return func(s *StatsDriver) {
		s.slow = hook
	}
}

// WithSlowQueryLog logs slow statements at warn level. A nil logger means
// slog.Default().
func WithSlowQueryLog(logger *slog.Logger) StatsOption {
	return func(s *StatsDriver) {
		l := logger
		if l == nil {
			l = slog.Default()
		}
		d := s.Dialect()
		s.slow = func(ctx context.Context, query string, args []any, duration time.Duration) {
			l.WarnContext(ctx, "slow query", "dialect", d, "duration", duration, "query", query, "args", args)
		}
	}
}

// NewStatsDriver wraps drv:
//
//	drv, _ := sql.Open(dialect.Postgres, dsn)
//	pgoose.Use(sql.NewStatsDriver(drv, sql.WithSlowThreshold(200*time.Millisecond), sql.WithSlowQueryLog(nil)))
//
// Connect does the same when config.Config.SlowQuery is set.
func NewStatsDriver(drv dialect.Driver, opts ...StatsOption) *StatsDriver {
	s := &StatsDriver{Driver: drv}
	s.threshold.Store(int64(100 * time.Millisecond))
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// QueryStats returns the counters of the driver.
func (d *StatsDriver) QueryStats() *QueryStats {
	return &d.stats
}

// SlowThreshold returns the slow statement threshold.
func (d *StatsDriver) SlowThreshold() time.Duration {
	return time.Duration(d.threshold.Load())
}

// SetSlowThreshold changes the slow statement threshold.
func (d *StatsDriver) SetSlowThreshold(threshold time.Duration) {
	d.threshold.Store(int64(threshold))
}

// Query runs the query on the wrapped driver and counts it.
func (d *StatsDriver) Query(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := d.Driver.Query(ctx, query, args, v)
	d.stats.TotalQueries.Add(1)
	d.observe(ctx, query, args, time.Since(start), err)
	return err
}

// Exec runs the statement on the wrapped driver and counts it.
func (d *StatsDriver) Exec(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := d.Driver.Exec(ctx, query, args, v)
	d.stats.TotalExecs.Add(1)
	d.observe(ctx, query, args, time.Since(start), err)
	return err
}

func (d *StatsDriver) observe(ctx context.Context, query string, args any, took time.Duration, err error) {
	d.stats.TotalDuration.Add(int64(took))
	if err != nil {
		d.stats.Errors.Add(1)
	}
	if took <= d.SlowThreshold() {
		return
	}
	d.stats.SlowQueries.Add(1)
	if d.slow != nil {
		argv, _ := args.([]any)
		d.slow(ctx, query, argv, took)
	}
}

var _ dialect.Driver = (*StatsDriver)(nil)
