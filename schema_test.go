package pgoose_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/pgoose"
	"github.com/syssam/pgoose/dialect"
	"github.com/syssam/pgoose/schema/field"
)

func TestNewSchema(t *testing.T) {
	s, err := pgoose.NewSchema(
		field.String("name").Required(),
		field.Number("age").Default("18"),
		field.ID("owner").Ref("users"),
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "age", "owner"}, s.Names())

	age, ok := s.Path("age")
	require.True(t, ok)
	assert.Equal(t, 18.0, age.Default, "defaults are converted to the field type")
	assert.False(t, age.IsForeignKey())

	owner, ok := s.Path("owner")
	require.True(t, ok)
	assert.True(t, owner.IsForeignKey())

	name, _ := s.Path("name")
	assert.True(t, name.Required)
	assert.Len(t, s.Paths(), 3)
}

func TestNewSchemaErrors(t *testing.T) {
	tests := []struct {
		name   string
		fields []field.Field
		target error
	}{
		{"ReservedID", []field.Field{field.String("id")}, pgoose.ErrForbiddenColumnName},
		{"ReservedSchema", []field.Field{field.JSON("schema")}, pgoose.ErrForbiddenColumnName},
		{"UndefinedType", []field.Field{field.New("name", "Varchar")}, pgoose.ErrUndefinedType},
		{"BadFormat", []field.Field{field.New("name", 42)}, pgoose.ErrBadTypeFormat},
		{"BadDefault", []field.Field{field.Number("age").Default("old")}, pgoose.ErrTypeMismatch},
		{"QuoteInName", []field.Field{field.String(`name" TEXT); DROP TABLE users; --`)}, pgoose.ErrInvalidIdentifier},
		{"DottedName", []field.Field{field.String("address.city")}, pgoose.ErrInvalidIdentifier},
		{"LeadingDigit", []field.Field{field.String("1st")}, pgoose.ErrInvalidIdentifier},
		{"TooLong", []field.Field{field.String(strings.Repeat("a", 64))}, pgoose.ErrInvalidIdentifier},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := pgoose.NewSchema(tt.fields...)
			assert.ErrorIs(t, err, tt.target)
		})
	}

	t.Run("Duplicate", func(t *testing.T) {
		_, err := pgoose.NewSchema(field.String("name"), field.Text("name"))
		assert.EqualError(t, err, `pgoose: field "name" declared twice`)
	})

	t.Run("MustSchema", func(t *testing.T) {
		assert.Panics(t, func() { pgoose.MustSchema(field.String("id")) })
	})
}

func TestSchemaHooks(t *testing.T) {
	s := pgoose.MustSchema(field.String("name"))
	noop := func(context.Context, ...*pgoose.Instance) error { return nil }

	for _, kind := range pgoose.HookKinds() {
		assert.NoError(t, s.Pre(kind, noop), kind)
		assert.NoError(t, s.Post(kind, noop), kind)
	}
	err := s.Pre("validate", noop)
	assert.ErrorIs(t, err, pgoose.ErrUnknownHookType)
	assert.ErrorIs(t, s.Post("", noop), pgoose.ErrUnknownHookType)
	assert.False(t, pgoose.HookKind("findMany").Valid())
}

func TestSchemaTable(t *testing.T) {
	s := pgoose.MustSchema(
		field.String("email").Required().Unique(),
		field.Date("born"),
		field.ID("team").Ref("teams"),
	)
	query := s.Table("users", dialect.Postgres).CreateStatement(dialect.Postgres)
	assert.Equal(t, `CREATE TABLE IF NOT EXISTS "users" ("id" SERIAL PRIMARY KEY, "email" varchar(255) UNIQUE NOT NULL, "born" timestamp with time zone, "team" integer)`, query)

	query = s.Table("users", dialect.MySQL).CreateStatement(dialect.MySQL)
	assert.Equal(t, "CREATE TABLE IF NOT EXISTS `users` (`id` INT AUTO_INCREMENT PRIMARY KEY, `email` varchar(255) UNIQUE NOT NULL, `born` datetime, `team` int)", query)
}

func TestSchemaExtensions(t *testing.T) {
	ctx := context.Background()
	s := pgoose.MustSchema(field.String("name"))
	s.Method("greet", func(_ context.Context, in *pgoose.Instance, args ...any) (any, error) {
		return "hello " + in.GetString("name"), nil
	}).Static("kind", func(_ context.Context, m *pgoose.Model, _ ...any) (any, error) {
		return m.Name(), nil
	})

	c := pgoose.NewCollection(pgoose.WithSync(pgoose.SyncDisabled))
	m, err := c.Define(ctx, "Person", s)
	require.NoError(t, err)

	in := m.MustNew(map[string]any{"name": "ada"})
	v, err := in.Call(ctx, "greet")
	require.NoError(t, err)
	assert.Equal(t, "hello ada", v)

	v, err = m.Call(ctx, "kind")
	require.NoError(t, err)
	assert.Equal(t, "Person", v)

	_, err = in.Call(ctx, "missing")
	assert.True(t, errors.Is(err, pgoose.ErrMethodNotFound))
	_, err = m.Call(ctx, "missing")
	assert.ErrorIs(t, err, pgoose.ErrMethodNotFound)
}
