package pgoose

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/syssam/pgoose/dialect"
	sqlschema "github.com/syssam/pgoose/dialect/sql/schema"
)

// SyncMode controls how a model's table is synchronized when it is defined.
type SyncMode int

const (
	// SyncBackground synchronizes the table in a goroutine. The outcome is
	// available from Model.Synced.
	SyncBackground SyncMode = iota
	// SyncBlocking synchronizes the table before Define returns.
	SyncBlocking
	// SyncDisabled skips synchronization.
	SyncDisabled
)

// Option configures a Collection.
type Option func(*Collection)

// WithDriver sets the driver used by the collection's models instead of the
// process-wide connection.
func WithDriver(drv dialect.Driver) Option {
	return func(c *Collection) {
		c.drv = drv
	}
}

// WithLogger sets the logger for sync events and hook failures.
func WithLogger(l *slog.Logger) Option {
	return func(c *Collection) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithCache enables the FindByID row cache. A zero ttl never expires.
func WithCache(cache Cache, ttl time.Duration) Option {
	return func(c *Collection) {
		c.cache, c.cacheTTL = cache, ttl
	}
}

// WithSync sets how tables are synchronized on Define.
func WithSync(mode SyncMode) Option {
	return func(c *Collection) {
		c.sync = mode
	}
}

// WithSyncConcurrency limits the number of tables SyncAll synchronizes at
// once. Zero or less means no limit.
func WithSyncConcurrency(n int) Option {
	return func(c *Collection) {
		c.syncLimit = n
	}
}

// Collection is a registry of models keyed by table name. It is safe for
// concurrent use.
type Collection struct {
	mu     sync.RWMutex
	models map[string]*Model

	drv       dialect.Driver
	logger    *slog.Logger
	cache     Cache
	cacheTTL  time.Duration
	sync      SyncMode
	syncLimit int
}

// NewCollection returns an empty collection.
func NewCollection(opts ...Option) *Collection {
	c := &Collection{
		models: make(map[string]*Model),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var defaultCollection = NewCollection()

// DefaultCollection returns the collection used by the package-level Define
// and Lookup.
func DefaultCollection() *Collection {
	return defaultCollection
}

// Define registers a model in the default collection.
func Define(ctx context.Context, name string, s *Schema) (*Model, error) {
	return defaultCollection.Define(ctx, name, s)
}

// Lookup returns a model of the default collection by name.
func Lookup(name string) (*Model, error) {
	return defaultCollection.Model(name)
}

// Define registers a model for the given schema. The table name is the lower
// cased model name. Defining a second model for the same table fails with
// ErrItemExists.
//
// With SyncBlocking, the error of the table synchronization is returned
// along with the registered model, so a *DriftError leaves the model
// usable.
func (c *Collection) Define(ctx context.Context, name string, s *Schema) (*Model, error) {
	if name == "" {
		return nil, fmt.Errorf("pgoose: model must have a name")
	}
	if err := checkIdentifier("model", name); err != nil {
		return nil, err
	}
	if s == nil {
		return nil, fmt.Errorf("pgoose: model %q has no schema", name)
	}
	m := &Model{name: name, table: strings.ToLower(name), schema: s, coll: c}
	c.mu.Lock()
	if _, ok := c.models[m.table]; ok {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: model %q", ErrItemExists, m.table)
	}
	c.models[m.table] = m
	c.mu.Unlock()

	switch c.sync {
	case SyncDisabled:
		m.synced = Resolved[*sqlschema.Report](nil, nil)
	case SyncBlocking:
		report, err := m.Sync(ctx)
		m.synced = Resolved(report, err)
		return m, err
	default:
		ctx := context.WithoutCancel(ctx)
		m.synced = Go(func() (*sqlschema.Report, error) {
			return m.Sync(ctx)
		})
	}
	return m, nil
}

// Model returns the model registered for the given name or table.
func (c *Collection) Model(name string) (*Model, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.models[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrModelMissing, name)
	}
	return m, nil
}

// Models returns a copy of the registered models keyed by table name.
func (c *Collection) Models() map[string]*Model {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return maps.Clone(c.models)
}

// Driver returns the driver used by the collection's models.
func (c *Collection) Driver() (dialect.Driver, error) {
	if c.drv != nil {
		return c.drv, nil
	}
	return Conn()
}

// SyncAll synchronizes the tables of all models concurrently. Drift errors
// are collected and returned together once every table was checked; any
// other error cancels the remaining work.
func (c *Collection) SyncAll(ctx context.Context) ([]*sqlschema.Report, error) {
	models := c.Models()
	tables := slices.Sorted(maps.Keys(models))
	reports := make([]*sqlschema.Report, len(tables))
	drifts := make([]error, len(tables))
	g, ctx := errgroup.WithContext(ctx)
	if c.syncLimit > 0 {
		g.SetLimit(c.syncLimit)
	}
	for i, table := range tables {
		g.Go(func() error {
			report, err := models[table].Sync(ctx)
			reports[i] = report
			if IsDriftError(err) {
				drifts[i] = err
				return nil
			}
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, NewAggregateError(drifts...)
}

func (c *Collection) invalidate(ctx context.Context, key CacheKey, all bool) {
	if c.cache == nil {
		return
	}
	var err error
	if all {
		err = c.cache.DeletePrefix(ctx, key.Prefix())
	} else {
		err = c.cache.Delete(ctx, key.String())
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		c.logger.Warn("cache invalidation failed", "table", key.Table, "err", err)
	}
}
