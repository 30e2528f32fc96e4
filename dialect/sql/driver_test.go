package sql

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/pgoose/dialect"
)

func TestOpenDB(t *testing.T) {
	tests := []struct {
		name    string
		dialect string
	}{
		{"Postgres", dialect.Postgres},
		{"MySQL", dialect.MySQL},
		{"SQLite", dialect.SQLite},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, _, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			drv := OpenDB(tt.dialect, db)
			assert.NotNil(t, drv)
			assert.Equal(t, tt.dialect, drv.Dialect())
			assert.Same(t, db, drv.DB())
		})
	}
}

func TestOpen(t *testing.T) {
	drv, err := Open("sqlite3", ":memory:")
	require.NoError(t, err)
	defer drv.Close()
	assert.Equal(t, dialect.SQLite, drv.Dialect())
	require.NoError(t, drv.Ping(context.Background()))

	_, err = Open("oracle", "")
	require.Error(t, err)
}

func TestDriverQuery(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	drv := OpenDB(dialect.Postgres, db)
	ctx := context.Background()

	t.Run("simple_query", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, name FROM users").
			WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).
				AddRow(1, "Alice").
				AddRow(2, "Bob"))
		rows := &Rows{}
		require.NoError(t, drv.Query(ctx, "SELECT id, name FROM users", []any{}, rows))
		var names []string
		for rows.Next() {
			var (
				id   int
				name string
			)
			require.NoError(t, rows.Scan(&id, &name))
			names = append(names, name)
		}
		require.NoError(t, rows.Close())
		assert.Equal(t, []string{"Alice", "Bob"}, names)
	})

	t.Run("query_error", func(t *testing.T) {
		driverErr := errors.New("relation does not exist")
		mock.ExpectQuery("SELECT").WillReturnError(driverErr)
		err := drv.Query(ctx, "SELECT * FROM nope", []any{}, &Rows{})
		require.ErrorIs(t, err, driverErr)
		assert.Equal(t, driverErr, err, "driver errors are returned unmodified")
	})

	t.Run("invalid_args", func(t *testing.T) {
		err := drv.Query(ctx, "SELECT 1", "arg", &Rows{})
		require.Error(t, err)
		err = drv.Query(ctx, "SELECT 1", []any{}, nil)
		require.Error(t, err)
	})
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDriverExec(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	drv := OpenDB(dialect.Postgres, db)
	ctx := context.Background()

	mock.ExpectExec("DELETE FROM users").
		WithArgs(1).
		WillReturnResult(sqlmock.NewResult(0, 3))
	var res sql.Result
	require.NoError(t, drv.Exec(ctx, "DELETE FROM users WHERE id = $1", []any{1}, &res))
	n, err := res.RowsAffected()
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	mock.ExpectExec("INSERT INTO users").WillReturnError(errors.New("duplicate"))
	err = drv.Exec(ctx, "INSERT INTO users DEFAULT VALUES", []any{}, nil)
	require.EqualError(t, err, "duplicate")

	err = drv.Exec(ctx, "SELECT 1", []any{}, new(int))
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScanMaps(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	drv := OpenDB(dialect.Postgres, db)

	mock.ExpectQuery("SELECT").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email"}).
			AddRow(int64(1), []byte("alice"), nil).
			AddRow(int64(2), []byte("bob"), "bob@example.com"))
	rows, fields, err := QueryMaps(context.Background(), drv, "SELECT id, name, email FROM users", nil)
	require.NoError(t, err)
	require.Len(t, fields, 3)
	assert.Equal(t, "email", fields[2].Name)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(1), rows[0]["id"])
	assert.Equal(t, []byte("alice"), rows[0]["name"])
	assert.Nil(t, rows[0]["email"])
	assert.Equal(t, "bob@example.com", rows[1]["email"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestContextCancellation(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	drv := OpenDB(dialect.Postgres, db)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	err = drv.Query(ctx, "SELECT 1", []any{}, &Rows{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestDebugDriver(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	drv := dialect.Debug(OpenDB(dialect.SQLite, db), nil)
	assert.Equal(t, dialect.SQLite, drv.Dialect())

	mock.ExpectExec("DELETE FROM users").WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, drv.Exec(context.Background(), "DELETE FROM users", []any{}, nil))
	require.NoError(t, mock.ExpectationsWereMet())
}
