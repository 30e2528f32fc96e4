// Package dataloader batches lookups of model instances by identity.
//
// Resolving the references of many rows one FindByID at a time sends one
// statement per row. A Loader collects the identities requested within a
// short window and loads them with a single query:
//
//	loader := dataloader.New(users)
//	a := loader.Load(ctx, post1.GetInt("author"))
//	b := loader.Load(ctx, post2.GetInt("author"))
//	alice, err := a.Wait(ctx) // SELECT ... WHERE "users"."id" IN ($1, $2)
//
// Loaded instances are cached by the loader, which is meant to live for a
// single request.
//
// The generic helpers OrderByKeys, GroupByKey and OrderGroupsByKeys shape
// batch results for other loader implementations.
package dataloader

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/syssam/pgoose"
)

// ErrNotFound is returned when an entity is not found in a batch result.
var ErrNotFound = errors.New("dataloader: entity not found")

// KeyFunc extracts a key from an entity.
type KeyFunc[K comparable, V any] func(V) K

// OrderByKeys reorders entities to match the order of requested keys.
// Missing entities are represented as zero values with corresponding errors.
func OrderByKeys[K comparable, V any](keys []K, values []V, keyFn KeyFunc[K, V]) ([]V, []error) {
	lookup := make(map[K]V, len(values))
	for _, v := range values {
		lookup[keyFn(v)] = v
	}
	result := make([]V, len(keys))
	errs := make([]error, len(keys))
	for i, key := range keys {
		if v, ok := lookup[key]; ok {
			result[i] = v
		} else {
			errs[i] = ErrNotFound
		}
	}
	return result, errs
}

// GroupByKey groups entities by a key function. Useful for one-to-many
// references where several rows share the same foreign key.
//
//	posts, _ := posts.Find(pgoose.Criteria{"author": pgoose.Ops{"$in": ids}}).Exec(ctx)
//	grouped := GroupByKey(posts, func(p *pgoose.Instance) int64 { return p.GetInt("author") })
func GroupByKey[K comparable, V any](values []V, keyFn KeyFunc[K, V]) map[K][]V {
	result := make(map[K][]V)
	for _, v := range values {
		key := keyFn(v)
		result[key] = append(result[key], v)
	}
	return result
}

// OrderGroupsByKeys reorders grouped entities to match the order of
// requested keys.
func OrderGroupsByKeys[K comparable, V any](keys []K, groups map[K][]V) [][]V {
	result := make([][]V, len(keys))
	for i, key := range keys {
		result[i] = groups[key]
	}
	return result
}

// Option configures a Loader.
type Option func(*Loader)

// WithWait sets how long a batch collects identities before it is sent.
func WithWait(d time.Duration) Option {
	return func(l *Loader) {
		l.wait = d
	}
}

// WithMaxBatch caps the number of identities per query. A full batch is
// sent without waiting.
func WithMaxBatch(n int) Option {
	return func(l *Loader) {
		if n > 0 {
			l.maxBatch = n
		}
	}
}

// Loader batches FindByID lookups of one model.
type Loader struct {
	model    *pgoose.Model
	wait     time.Duration
	maxBatch int

	mu    sync.Mutex
	cache map[int64]*pgoose.Future[*pgoose.Instance]
	batch *batch
}

type batch struct {
	ids     []int64
	done    chan struct{}
	results map[int64]*pgoose.Instance
	err     error
}

// New returns a loader of the given model. Batches wait 2ms and hold up
// to 100 identities unless configured otherwise.
func New(m *pgoose.Model, opts ...Option) *Loader {
	l := &Loader{
		model:    m,
		wait:     2 * time.Millisecond,
		maxBatch: 100,
		cache:    make(map[int64]*pgoose.Future[*pgoose.Instance]),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load returns the instance with the given identity. The query of a batch
// runs with the context of its first Load. A missing row resolves to a
// *pgoose.NotFoundError.
func (l *Loader) Load(ctx context.Context, id int64) *pgoose.Future[*pgoose.Instance] {
	l.mu.Lock()
	if f, ok := l.cache[id]; ok {
		l.mu.Unlock()
		return f
	}
	b := l.batch
	if b == nil {
		b = &batch{done: make(chan struct{})}
		l.batch = b
		time.AfterFunc(l.wait, func() { l.flush(ctx, b) })
	}
	b.ids = append(b.ids, id)
	full := len(b.ids) >= l.maxBatch
	f := pgoose.Go(func() (*pgoose.Instance, error) {
		<-b.done
		if b.err != nil {
			return nil, b.err
		}
		in, ok := b.results[id]
		if !ok {
			return nil, pgoose.NewNotFoundErrorWithID(l.model.Name(), id)
		}
		return in, nil
	})
	l.cache[id] = f
	l.mu.Unlock()
	if full {
		l.flush(ctx, b)
	}
	return f
}

// LoadMany loads several identities and returns the instances in order,
// with a nil instance and an error for each failed lookup.
func (l *Loader) LoadMany(ctx context.Context, ids []int64) ([]*pgoose.Instance, []error) {
	futures := make([]*pgoose.Future[*pgoose.Instance], len(ids))
	for i, id := range ids {
		futures[i] = l.Load(ctx, id)
	}
	instances := make([]*pgoose.Instance, len(ids))
	errs := make([]error, len(ids))
	for i, f := range futures {
		instances[i], errs[i] = f.Wait(ctx)
	}
	return instances, errs
}

// Prime stores a persisted instance in the cache.
func (l *Loader) Prime(in *pgoose.Instance) {
	if !in.IsPersisted() {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache[in.ID()] = pgoose.Resolved(in, nil)
}

// Clear removes an identity from the cache, so that the next Load reads it
// again.
func (l *Loader) Clear(id int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.cache, id)
}

// flush sends the batch once, whether the timer or a full batch fires
// first.
func (l *Loader) flush(ctx context.Context, b *batch) {
	l.mu.Lock()
	if l.batch != b {
		l.mu.Unlock()
		return
	}
	l.batch = nil
	ids := b.ids
	l.mu.Unlock()

	b.results = make(map[int64]*pgoose.Instance, len(ids))
	found, err := l.model.Find(pgoose.Criteria{"id": pgoose.Ops{"$in": ids}}).Exec(ctx)
	if err != nil {
		b.err = fmt.Errorf("dataloader: load %s: %w", l.model.Name(), err)
	}
	for _, in := range found {
		b.results[in.ID()] = in
	}
	close(b.done)
}
