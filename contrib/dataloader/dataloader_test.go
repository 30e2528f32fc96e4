package dataloader

import (
	"context"
	"slices"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/pgoose"
	"github.com/syssam/pgoose/dialect"
	"github.com/syssam/pgoose/dialect/sql"
	"github.com/syssam/pgoose/schema/field"
)

type author struct {
	ID   int64
	Name string
}

type book struct {
	Title  string
	Author int64
}

func TestOrderByKeys(t *testing.T) {
	t.Parallel()
	byID := func(a author) int64 { return a.ID }
	ada, alan := author{1, "ada"}, author{2, "alan"}

	tests := []struct {
		name    string
		keys    []int64
		values  []author
		want    []author
		missing []int
	}{
		{"Reordered", []int64{2, 1}, []author{ada, alan}, []author{alan, ada}, nil},
		{"Missing", []int64{1, 3, 2, 4}, []author{alan, ada}, []author{ada, {}, alan, {}}, []int{1, 3}},
		{"Repeated", []int64{1, 1}, []author{ada}, []author{ada, ada}, nil},
		{"NoValues", []int64{5}, nil, []author{{}}, []int{0}},
		{"NoKeys", nil, []author{ada}, []author{}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, errs := OrderByKeys(tt.keys, tt.values, byID)
			assert.Equal(t, tt.want, got)
			require.Len(t, errs, len(tt.keys))
			for i, err := range errs {
				if slices.Contains(tt.missing, i) {
					assert.ErrorIs(t, err, ErrNotFound, "index %d", i)
				} else {
					assert.NoError(t, err, "index %d", i)
				}
			}
		})
	}
}

func TestGroupByKey(t *testing.T) {
	t.Parallel()
	books := []book{{"Notes", 1}, {"Computing Machinery", 2}, {"Sketch", 1}}
	groups := GroupByKey(books, func(b book) int64 { return b.Author })
	assert.Equal(t, map[int64][]book{
		1: {{"Notes", 1}, {"Sketch", 1}},
		2: {{"Computing Machinery", 2}},
	}, groups)
	assert.Empty(t, GroupByKey(nil, func(b book) int64 { return b.Author }))

	ordered := OrderGroupsByKeys([]int64{2, 3, 1}, groups)
	assert.Equal(t, [][]book{groups[2], nil, groups[1]}, ordered)
	assert.Empty(t, OrderGroupsByKeys(nil, groups))
}

// countingDriver counts the statements sent to the database.
type countingDriver struct {
	dialect.Driver
	queries atomic.Int32
}

func (d *countingDriver) Query(ctx context.Context, query string, args, v any) error {
	d.queries.Add(1)
	return d.Driver.Query(ctx, query, args, v)
}

func newUsers(t *testing.T) (*pgoose.Model, *countingDriver, []int64) {
	t.Helper()
	ctx := context.Background()
	drv, err := sql.Open(dialect.SQLite, ":memory:")
	require.NoError(t, err)
	drv.DB().SetMaxOpenConns(1)
	t.Cleanup(func() { drv.Close() })
	counting := &countingDriver{Driver: drv}
	coll := pgoose.NewCollection(pgoose.WithDriver(counting), pgoose.WithSync(pgoose.SyncBlocking))
	users, err := coll.Define(ctx, "users", pgoose.MustSchema(field.String("name").Required()))
	require.NoError(t, err)

	var ids []int64
	for _, name := range []string{"ada", "alan", "grace"} {
		in, err := users.Create(map[string]any{"name": name}).Exec(ctx)
		require.NoError(t, err)
		ids = append(ids, in.ID())
	}
	counting.queries.Store(0)
	return users, counting, ids
}

func TestLoader(t *testing.T) {
	ctx := context.Background()
	users, drv, ids := newUsers(t)
	loader := New(users, WithWait(10*time.Millisecond))

	third := loader.Load(ctx, ids[2])
	first := loader.Load(ctx, ids[0])
	missing := loader.Load(ctx, 404)

	in, err := first.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ada", in.GetString("name"))
	in, err = third.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, "grace", in.GetString("name"))
	_, err = missing.Wait(ctx)
	assert.True(t, pgoose.IsNotFound(err))
	assert.EqualValues(t, 1, drv.queries.Load(), "one statement per batch")

	again, err := loader.Load(ctx, ids[0]).Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ada", again.GetString("name"))
	assert.EqualValues(t, 1, drv.queries.Load(), "cached")

	loader.Clear(ids[0])
	_, err = loader.Load(ctx, ids[0]).Wait(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, drv.queries.Load())
}

func TestLoaderLoadMany(t *testing.T) {
	ctx := context.Background()
	users, drv, ids := newUsers(t)
	loader := New(users, WithMaxBatch(2), WithWait(time.Hour))

	instances, errs := loader.LoadMany(ctx, []int64{ids[1], 404, ids[0], ids[2], ids[1]})
	require.Len(t, instances, 5)
	assert.Equal(t, "alan", instances[0].GetString("name"))
	assert.Nil(t, instances[1])
	assert.True(t, pgoose.IsNotFound(errs[1]))
	assert.Equal(t, "ada", instances[2].GetString("name"))
	assert.Equal(t, "grace", instances[3].GetString("name"))
	assert.Same(t, instances[0], instances[4])
	for _, i := range []int{0, 2, 3, 4} {
		assert.NoError(t, errs[i])
	}
	assert.EqualValues(t, 2, drv.queries.Load(), "full batches are sent without waiting")
}

func TestLoaderPrime(t *testing.T) {
	ctx := context.Background()
	users, drv, ids := newUsers(t)
	loader := New(users)

	loader.Prime(users.MustNew(map[string]any{"name": "draft"}))
	loader.Prime(users.MustNew(map[string]any{"id": ids[0], "name": "primed"}))
	in, err := loader.Load(ctx, ids[0]).Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, "primed", in.GetString("name"))
	assert.Zero(t, drv.queries.Load())
}

func TestLoaderError(t *testing.T) {
	users, _, ids := newUsers(t)
	loader := New(users)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := loader.Load(ctx, ids[0]).Wait(context.Background())
	assert.ErrorContains(t, err, "dataloader: load users")
}
func BenchmarkOrderByKeys(b *testing.B) {
	keys := make([]int64, 100)
	values := make([]author, 100)
	for i := range keys {
		keys[i] = int64(i)
		values[len(values)-1-i] = author{ID: int64(i)}
	}
	b.ResetTimer()
	for range b.N {
		OrderByKeys(keys, values, func(a author) int64 { return a.ID })
	}
}
