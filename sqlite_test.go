package pgoose_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/pgoose"
	"github.com/syssam/pgoose/config"
	"github.com/syssam/pgoose/dialect"
	"github.com/syssam/pgoose/dialect/sql"
	"github.com/syssam/pgoose/schema/field"
)

func openSQLite(t *testing.T) *sql.Driver {
	t.Helper()
	drv, err := sql.Open(dialect.SQLite, ":memory:")
	require.NoError(t, err)
	// Every connection of the pool would open its own in-memory database.
	drv.DB().SetMaxOpenConns(1)
	t.Cleanup(func() { drv.Close() })
	return drv
}

func sqliteCollection(t *testing.T) (*pgoose.Collection, *sql.Driver) {
	t.Helper()
	drv := openSQLite(t)
	return pgoose.NewCollection(pgoose.WithDriver(drv), pgoose.WithSync(pgoose.SyncBlocking)), drv
}

func seedUsers(t *testing.T, users *pgoose.Model) {
	t.Helper()
	ctx := context.Background()
	for _, v := range []map[string]any{
		{"name": "Ada Lovelace", "age": 36},
		{"name": "Alan Turing", "age": 41, "admin": true},
		{"name": "Grace Hopper", "age": 85},
	} {
		_, err := users.Create(v).Exec(ctx)
		require.NoError(t, err)
	}
}

func TestSQLiteQueries(t *testing.T) {
	ctx := context.Background()
	coll, _ := sqliteCollection(t)
	users, err := coll.Define(ctx, "users", userSchema())
	require.NoError(t, err)
	report, err := users.Synced().Wait(ctx)
	require.NoError(t, err)
	assert.True(t, report.Created)
	seedUsers(t, users)

	t.Run("ILike", func(t *testing.T) {
		found, err := users.Find(pgoose.Criteria{"name ilike": "%ADA%"}).Exec(ctx)
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, "Ada Lovelace", found[0].GetString("name"))
	})

	t.Run("StrictAndInclusive", func(t *testing.T) {
		gt, err := users.Find(pgoose.Criteria{"age >": 41}).Exec(ctx)
		require.NoError(t, err)
		gte, err := users.Find(pgoose.Criteria{"age >=": 41}).Sort("age", 1).Exec(ctx)
		require.NoError(t, err)
		require.Len(t, gt, 1)
		require.Len(t, gte, 2)
		assert.Equal(t, "Alan Turing", gte[0].GetString("name"))
	})

	t.Run("Count", func(t *testing.T) {
		n, err := users.Count(nil).Exec(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)
		n, err = users.Find(nil).Where("admin").Equals(true).Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("Pagination", func(t *testing.T) {
		page, err := users.Find(nil).Sort("age", -1).Limit(2).Offset(1).Exec(ctx)
		require.NoError(t, err)
		require.Len(t, page, 2)
		assert.Equal(t, 41.0, page[0].GetFloat("age"))
		assert.Equal(t, 36.0, page[1].GetFloat("age"))
	})

	t.Run("FindOne", func(t *testing.T) {
		u, err := users.FindOne(pgoose.Criteria{"name like": "Grace%"}).Exec(ctx)
		require.NoError(t, err)
		require.NotNil(t, u)
		assert.Equal(t, 85.0, u.GetFloat("age"))

		u, err = users.FindOne(pgoose.Criteria{"name": "nobody"}).Exec(ctx)
		require.NoError(t, err)
		assert.Nil(t, u)
	})

	t.Run("UpdateAll", func(t *testing.T) {
		n, err := users.UpdateAll(pgoose.Criteria{"age >": 40}, map[string]any{"admin": true}).Exec(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
		admins, err := users.Find(pgoose.Criteria{"admin": true}).Exec(ctx)
		require.NoError(t, err)
		assert.Len(t, admins, 2)
	})

	t.Run("RemoveAll", func(t *testing.T) {
		n, err := users.RemoveAll(pgoose.Criteria{"age": pgoose.Ops{"$gt": 80}}).Exec(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
		n, err = users.Count(nil).Exec(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
	})
}

func TestSQLiteLifecycle(t *testing.T) {
	ctx := context.Background()
	coll, _ := sqliteCollection(t)
	users, err := coll.Define(ctx, "users", userSchema())
	require.NoError(t, err)

	u := users.MustNew(map[string]any{"name": "Ada"})
	assert.ErrorIs(t, u.Remove(ctx), pgoose.ErrModelNotPersisted)

	require.NoError(t, u.Save(ctx))
	require.True(t, u.IsPersisted())
	id := u.ID()
	assert.NotZero(t, id)
	assert.False(t, u.GetBool("admin"), "default is stored")

	require.NoError(t, u.Set("age", 37))
	require.NoError(t, u.Save(ctx))
	assert.Equal(t, id, u.ID(), "second save updates")

	got, err := users.FindByID(id).Exec(ctx)
	require.NoError(t, err)
	assert.Equal(t, 37.0, got.GetFloat("age"))
	n, err := users.Count(nil).Exec(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	updated, err := users.FindByIDAndUpdate(id, map[string]any{"name": "Ada L."}).Exec(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Ada L.", updated.GetString("name"))

	removed, err := users.FindByIDAndRemove(id).Exec(ctx)
	require.NoError(t, err)
	assert.False(t, removed.IsPersisted())

	_, err = users.FindByIDAndRemove(id).Exec(ctx)
	assert.True(t, pgoose.IsNotFound(err))
	_, err = users.FindByID(id).Exec(ctx)
	assert.True(t, pgoose.IsNotFound(err))
}

func TestSQLiteValidation(t *testing.T) {
	ctx := context.Background()
	coll, _ := sqliteCollection(t)
	users, err := coll.Define(ctx, "users", pgoose.MustSchema(
		field.String("name").Required(),
		field.String("role").Enum("admin", "member"),
	))
	require.NoError(t, err)

	err = users.MustNew(map[string]any{"role": "member"}).Save(ctx)
	require.True(t, pgoose.IsValidationError(err))
	err = users.MustNew(map[string]any{"name": "ada", "role": "root"}).Save(ctx)
	require.True(t, pgoose.IsValidationError(err))

	n, err := users.Count(nil).Exec(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "nothing was written")
}

func TestSQLiteTypes(t *testing.T) {
	ctx := context.Background()
	coll, _ := sqliteCollection(t)
	events, err := coll.Define(ctx, "events", pgoose.MustSchema(
		field.Text("body"),
		field.Date("at"),
		field.JSON("meta"),
		field.BigNumber("amount"),
		field.UUID("ref"),
	))
	require.NoError(t, err)

	at := time.Date(2024, 3, 9, 14, 30, 5, 0, time.UTC)
	ref := uuid.New()
	e, err := events.Create(map[string]any{
		"body":   "hello",
		"at":     at,
		"meta":   map[string]any{"tags": []any{"a", "b"}},
		"amount": "12.5",
		"ref":    ref,
	}).Exec(ctx)
	require.NoError(t, err)

	got, err := events.FindByID(e.ID()).Exec(ctx)
	require.NoError(t, err)
	assert.Equal(t, "hello", got.GetString("body"))
	assert.True(t, at.Equal(got.GetTime("at")), "got %v", got.GetTime("at"))
	assert.Equal(t, map[string]any{"tags": []any{"a", "b"}}, got.Get("meta"))
	assert.True(t, decimal.RequireFromString("12.5").Equal(got.GetDecimal("amount")))
	assert.Equal(t, ref, got.GetUUID("ref"))
}

func TestSQLitePopulate(t *testing.T) {
	ctx := context.Background()
	coll, _ := sqliteCollection(t)
	users, err := coll.Define(ctx, "users", userSchema())
	require.NoError(t, err)
	posts, err := coll.Define(ctx, "posts", postSchema())
	require.NoError(t, err)

	ada, err := users.Create(map[string]any{"name": "Ada"}).Exec(ctx)
	require.NoError(t, err)
	_, err = posts.Create(map[string]any{"title": "notes", "author": ada.ID()}).Exec(ctx)
	require.NoError(t, err)
	_, err = posts.Create(map[string]any{"title": "anonymous"}).Exec(ctx)
	require.NoError(t, err)

	found, err := posts.Find(nil).Populate("author").Sort("title", 1).Exec(ctx)
	require.NoError(t, err)
	require.Len(t, found, 2)
	_, ok := found[0].Populated("author")
	assert.False(t, ok)
	author, ok := found[1].Populated("author")
	require.True(t, ok)
	assert.Equal(t, ada.ID(), author.ID())
	assert.Equal(t, "Ada", author.GetString("name"))
}

func TestSQLiteDrift(t *testing.T) {
	ctx := context.Background()
	coll, drv := sqliteCollection(t)
	err := drv.Exec(ctx, `CREATE TABLE "users" ("id" INTEGER PRIMARY KEY AUTOINCREMENT, "name" text, "age" real, "admin" boolean, "nickname" text)`, []any{}, nil)
	require.NoError(t, err)

	users, err := coll.Define(ctx, "users", userSchema())
	require.NotNil(t, users, "the model is registered despite the drift")
	require.True(t, pgoose.IsDriftError(err))
	assert.ErrorIs(t, err, pgoose.ErrSchemaPathsHasChanged)
	assert.EqualError(t, err, `pgoose: schema paths of table "users" has changed: name`)

	var drift *pgoose.DriftError
	require.ErrorAs(t, err, &drift)
	assert.Equal(t, []string{"name"}, drift.Drift.Fields())
	assert.Equal(t, []string{"nickname"}, drift.Drift.Extra)

	_, err = users.Create(map[string]any{"name": "Ada"}).Exec(ctx)
	assert.NoError(t, err)
}

func TestSQLiteSyncModes(t *testing.T) {
	ctx := context.Background()
	drv := openSQLite(t)

	bg := pgoose.NewCollection(pgoose.WithDriver(drv))
	users, err := bg.Define(ctx, "users", userSchema())
	require.NoError(t, err)
	report, err := users.Synced().Wait(ctx)
	require.NoError(t, err)
	assert.True(t, report.Created)

	require.NoError(t, drv.Exec(ctx, `CREATE TABLE "posts" ("id" INTEGER PRIMARY KEY AUTOINCREMENT, "title" text, "author" integer)`, []any{}, nil))
	all := pgoose.NewCollection(pgoose.WithDriver(drv), pgoose.WithSync(pgoose.SyncDisabled), pgoose.WithSyncConcurrency(1))
	_, err = all.Define(ctx, "users", userSchema())
	require.NoError(t, err)
	_, err = all.Define(ctx, "posts", postSchema())
	require.NoError(t, err)
	_, err = all.Define(ctx, "tags", pgoose.MustSchema(field.String("label")))
	require.NoError(t, err)

	reports, err := all.SyncAll(ctx)
	require.Len(t, reports, 3)
	require.True(t, pgoose.IsDriftError(err))
	assert.Contains(t, err.Error(), `table "posts"`)
	assert.Equal(t, "posts", reports[0].Table)
	assert.False(t, reports[0].Created)
	assert.True(t, reports[1].Created, "tags")
	assert.False(t, reports[2].Created, "users exists")
	assert.True(t, reports[2].Drift.Empty())
}

func TestConnection(t *testing.T) {
	ctx := context.Background()
	require.False(t, pgoose.IsConnected())
	_, err := pgoose.Conn()
	assert.ErrorIs(t, err, pgoose.ErrConnectionNotInitialized)
	_, err = pgoose.Run(ctx, "SELECT 1")
	assert.ErrorIs(t, err, pgoose.ErrConnectionNotInitialized)
	assert.ErrorIs(t, pgoose.Disconnect(), pgoose.ErrConnectionNotInitialized)

	drv := openSQLite(t)
	require.NoError(t, pgoose.Use(drv))
	assert.True(t, pgoose.IsConnected())
	_, ok := pgoose.CurrentConfig()
	assert.False(t, ok)
	_, ok = pgoose.Stats()
	assert.False(t, ok)

	res, err := pgoose.Run(ctx, "SELECT 1 AS one, 'a' AS two")
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, int64(1), res.Rows[0]["one"])
	assert.Equal(t, "a", res.Rows[0]["two"])
	require.Len(t, res.Fields, 2)
	assert.Equal(t, "one", res.Fields[0].Name)

	_, err = pgoose.Run(ctx, "SELECT * FROM missing")
	assert.Error(t, err)

	coll := pgoose.NewCollection(pgoose.WithSync(pgoose.SyncBlocking))
	users, err := coll.Define(ctx, "users", userSchema())
	require.NoError(t, err)
	_, err = users.Create(map[string]any{"name": "Ada"}).Exec(ctx)
	require.NoError(t, err)
	require.NoError(t, pgoose.Disconnect())
	assert.False(t, pgoose.IsConnected())

	_, err = users.Find(nil).Exec(ctx)
	assert.ErrorIs(t, err, pgoose.ErrConnectionNotInitialized)
}

func TestConnectStats(t *testing.T) {
	ctx := context.Background()
	cfg := config.Config{
		Dialect:   "sqlite3",
		Database:  filepath.Join(t.TempDir(), "app.db"),
		SlowQuery: time.Nanosecond,
	}
	require.NoError(t, pgoose.Connect(ctx, cfg))
	t.Cleanup(func() { pgoose.Disconnect() })

	current, ok := pgoose.CurrentConfig()
	require.True(t, ok)
	assert.Equal(t, dialect.SQLite, current.Dialect)

	_, err := pgoose.Run(ctx, "SELECT 1")
	require.NoError(t, err)
	_, err = pgoose.Run(ctx, "SELECT * FROM missing")
	require.Error(t, err)

	stats, ok := pgoose.Stats()
	require.True(t, ok)
	assert.EqualValues(t, 2, stats.TotalQueries)
	assert.EqualValues(t, 1, stats.Errors)
	assert.EqualValues(t, 2, stats.SlowQueries)
}
