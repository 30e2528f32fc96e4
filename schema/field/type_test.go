package field_test

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/pgoose/dialect"
	"github.com/syssam/pgoose/schema/field"
)

func describe(t *testing.T, name string) *field.Type {
	t.Helper()
	typ, err := field.Describe(name)
	require.NoError(t, err)
	return typ
}

func TestDescribe(t *testing.T) {
	for _, name := range []string{
		field.TypeString, field.TypeText, field.TypeNumber, field.TypeBigNumber,
		field.TypeBoolean, field.TypeDate, field.TypeJSON, field.TypeJSONB,
		field.TypeUUID, field.TypeID,
	} {
		t.Run(name, func(t *testing.T) {
			typ := describe(t, name)
			assert.Equal(t, name, typ.Name)
			assert.NotEmpty(t, typ.ColumnType(dialect.Postgres))
		})
	}

	_, err := field.Describe("Mixed")
	require.ErrorIs(t, err, field.ErrUndefinedType)
	assert.Contains(t, field.Names(), field.TypeString)
}

func TestRegister(t *testing.T) {
	err := field.Register(&field.Type{Name: field.TypeString})
	require.Error(t, err)
	require.ErrorIs(t, field.Register(nil), field.ErrBadTypeFormat)

	custom := &field.Type{Name: "Inet", Columns: map[string]string{dialect.Postgres: "inet"}}
	require.NoError(t, field.Register(custom))
	typ := describe(t, "Inet")
	assert.Equal(t, "inet", typ.ColumnType(dialect.SQLite))
	assert.Equal(t, "inet", typ.CatalogType(dialect.Postgres))
	v, err := typ.ToDB("10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1", v)
}

func TestResolve(t *testing.T) {
	typ, err := field.Resolve("Number")
	require.NoError(t, err)
	assert.Equal(t, field.TypeNumber, typ.Name)

	same, err := field.Resolve(typ)
	require.NoError(t, err)
	assert.Same(t, typ, same)

	_, err = field.Resolve(&field.Type{Name: "Unregistered"})
	require.ErrorIs(t, err, field.ErrUndefinedType)
	_, err = field.Resolve(&field.Type{Name: field.TypeNumber})
	require.ErrorIs(t, err, field.ErrUndefinedType, "a copy of a registered name is not the registered type")

	_, err = field.Resolve(42)
	require.ErrorIs(t, err, field.ErrBadTypeFormat)
	_, err = field.Resolve("")
	require.ErrorIs(t, err, field.ErrBadTypeFormat)
	_, err = field.Resolve("Nope")
	require.ErrorIs(t, err, field.ErrUndefinedType)
}

func TestColumnTypes(t *testing.T) {
	tests := []struct {
		typ     string
		dialect string
		column  string
		catalog string
	}{
		{field.TypeString, dialect.Postgres, "varchar(255)", "character varying"},
		{field.TypeString, dialect.MySQL, "varchar(255)", "varchar"},
		{field.TypeNumber, dialect.Postgres, "real", "real"},
		{field.TypeNumber, dialect.MySQL, "double", "double"},
		{field.TypeBoolean, dialect.MySQL, "boolean", "tinyint"},
		{field.TypeDate, dialect.Postgres, "timestamp with time zone", "timestamp with time zone"},
		{field.TypeDate, dialect.SQLite, "datetime", "datetime"},
		{field.TypeJSONB, dialect.Postgres, "jsonb", "jsonb"},
		{field.TypeUUID, dialect.MySQL, "char(36)", "char"},
		{field.TypeID, dialect.Postgres, "integer", "integer"},
	}
	for _, tt := range tests {
		t.Run(tt.typ+"/"+tt.dialect, func(t *testing.T) {
			typ := describe(t, tt.typ)
			assert.Equal(t, tt.column, typ.ColumnType(tt.dialect))
			assert.Equal(t, tt.catalog, typ.CatalogType(tt.dialect))
		})
	}
	assert.Equal(t, "SERIAL PRIMARY KEY", field.PrimaryKey(dialect.Postgres))
	assert.Equal(t, "INTEGER PRIMARY KEY AUTOINCREMENT", field.PrimaryKey(dialect.SQLite))
	assert.Equal(t, "INT AUTO_INCREMENT PRIMARY KEY", field.PrimaryKey(dialect.MySQL))
}

func TestStringTruncation(t *testing.T) {
	typ := describe(t, field.TypeString)
	for _, n := range []int{0, 1, 254, 255, 256, 1000} {
		v, err := typ.ToDB(strings.Repeat("é", n))
		require.NoError(t, err)
		assert.Equal(t, min(n, field.StringLimit), len([]rune(v.(string))))
	}
	v, err := typ.ToDB(12)
	require.NoError(t, err)
	assert.Equal(t, "12", v)

	text := describe(t, field.TypeText)
	v, err = text.ToDB(strings.Repeat("a", 1000))
	require.NoError(t, err)
	assert.Len(t, v, 1000)
}

func TestBooleanRoundTrip(t *testing.T) {
	typ := describe(t, field.TypeBoolean)
	for _, b := range []bool{true, false} {
		dv, err := typ.ToDB(b)
		require.NoError(t, err)
		back, err := typ.FromDB(dv)
		require.NoError(t, err)
		assert.Equal(t, b, back)
	}
	dv, err := typ.ToDB(true)
	require.NoError(t, err)
	assert.Equal(t, field.True, dv)
	assert.Equal(t, "FALSE", field.False.SQLLiteral())

	for _, tt := range []struct {
		raw  any
		want bool
	}{
		{"t", true}, {"f", false}, {[]byte("true"), true}, {int64(1), true}, {int64(0), false},
	} {
		got, err := typ.FromDB(tt.raw)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%v", tt.raw)
	}
	_, err = typ.ToDB("maybe")
	require.ErrorIs(t, err, field.ErrTypeMismatch)
}

func TestDateRoundTrip(t *testing.T) {
	typ := describe(t, field.TypeDate)
	loc := time.FixedZone("UTC+2", 2*60*60)
	now := time.Date(2024, 3, 9, 17, 4, 5, 987654321, loc)
	dv, err := typ.ToDB(now)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-09 15:04:05+00:00", dv)

	back, err := typ.FromDB(dv)
	require.NoError(t, err)
	assert.True(t, now.Truncate(time.Second).Equal(back.(time.Time)))

	for _, raw := range []any{
		"2024-03-09 15:04:05+00",
		"2024-03-09T15:04:05Z",
		[]byte("2024-03-09 15:04:05"),
		now,
	} {
		got, err := typ.FromDB(raw)
		require.NoError(t, err)
		assert.True(t, got.(time.Time).Equal(now.Truncate(time.Second)), "%v", raw)
	}
	_, err = typ.FromDB("yesterday")
	require.ErrorIs(t, err, field.ErrTypeMismatch)
}

func TestNumberAndID(t *testing.T) {
	num := describe(t, field.TypeNumber)
	for _, v := range []any{42, int8(42), uint16(42), float32(42), 42.0, "42"} {
		got, err := num.ToDB(v)
		require.NoError(t, err)
		assert.Equal(t, 42.0, got)
	}
	_, err := num.ToDB("forty")
	require.ErrorIs(t, err, field.ErrTypeMismatch)

	id := describe(t, field.TypeID)
	got, err := id.FromDB([]byte("7"))
	require.NoError(t, err)
	assert.Equal(t, int64(7), got)
	_, err = id.ToDB(1.5)
	require.True(t, field.IsTypeMismatch(err))
}

func TestBigNumber(t *testing.T) {
	typ := describe(t, field.TypeBigNumber)
	dv, err := typ.ToDB(decimal.RequireFromString("12345678901234567890.123456789"))
	require.NoError(t, err)
	assert.Equal(t, "12345678901234567890.123456789", dv)

	back, err := typ.FromDB([]byte("12345678901234567890.123456789"))
	require.NoError(t, err)
	assert.True(t, back.(decimal.Decimal).Equal(decimal.RequireFromString("12345678901234567890.123456789")))

	dv, err = typ.ToDB(10)
	require.NoError(t, err)
	assert.Equal(t, "10", dv)
}

func TestJSON(t *testing.T) {
	typ := describe(t, field.TypeJSONB)
	dv, err := typ.ToDB(map[string]any{"a": 1})
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, dv)

	dv, err = typ.ToDB(`{"b":[1,2]}`)
	require.NoError(t, err)
	assert.Equal(t, `{"b":[1,2]}`, dv)

	dv, err = typ.ToDB("plain")
	require.NoError(t, err)
	assert.Equal(t, `"plain"`, dv)

	back, err := typ.FromDB([]byte(`{"a":1}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": 1.0}, back)
}

func TestUUID(t *testing.T) {
	typ := describe(t, field.TypeUUID)
	u := uuid.New()
	dv, err := typ.ToDB(u)
	require.NoError(t, err)
	assert.Equal(t, u.String(), dv)

	back, err := typ.FromDB([]byte(u.String()))
	require.NoError(t, err)
	assert.Equal(t, u, back)

	_, err = typ.ToDB("not-a-uuid")
	require.ErrorIs(t, err, field.ErrTypeMismatch)
}

func TestNilValues(t *testing.T) {
	for _, name := range field.Names() {
		typ := describe(t, name)
		v, err := typ.ToDB(nil)
		require.NoError(t, err)
		assert.Nil(t, v)
		v, err = typ.FromDB(nil)
		require.NoError(t, err)
		assert.Nil(t, v)
	}
}
