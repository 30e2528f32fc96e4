package load

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/pgoose"
	"github.com/syssam/pgoose/schema/field"
)

func TestLoad(t *testing.T) {
	schemas, err := Load("testdata/valid")
	require.NoError(t, err)
	require.Len(t, schemas, 2)

	posts, users := schemas[0], schemas[1]
	assert.Equal(t, "posts", posts.Name)
	assert.Equal(t, "testdata/valid/posts.yml:1", posts.Pos)
	assert.Equal(t, "users", users.Name)

	require.Len(t, users.Fields, 4)
	assert.Equal(t, &Field{Name: "name", Type: field.TypeString, Required: true, Pos: "testdata/valid/users.yaml:2"}, users.Fields[0])
	assert.True(t, users.Fields[1].Unique, "index.unique")
	assert.Equal(t, field.TypeNumber, users.Fields[2].Type)
	assert.Equal(t, []any{"admin", "member"}, users.Fields[3].Enum)
	assert.Equal(t, "member", users.Fields[3].Default)

	author := posts.Fields[2]
	assert.Equal(t, "users", author.Ref)
	assert.Equal(t, false, posts.Fields[1].Default)
}

func TestLoadDuplicate(t *testing.T) {
	_, err := Load("testdata/failure/duplicate.yaml")
	assert.ErrorIs(t, err, ErrInvalidSchema)
	assert.ErrorContains(t, err, `model "Users" already declared at testdata/failure/duplicate.yaml:1`)

	_, err = Load("testdata/missing")
	assert.Error(t, err)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		message string
	}{
		{"NotMapping", "- users", "t.yaml:1: expected a mapping of models"},
		{"ModelNotMapping", "users: String", `t.yaml:1: model "users" must map field names to declarations`},
		{"UnknownType", "users:\n  name: Varchar", `t.yaml:2: field "name": pgoose: undefined type "Varchar"`},
		{"UnknownKey", "users:\n  name: {type: String, size: 10}", `field "name": unknown key "size"`},
		{"MissingType", "users:\n  name: {required: true}", `field "name": missing type`},
		{"BadRequired", "users:\n  name: {type: String, required: maybe}", `field "name": required:`},
		{"RefNotID", "users:\n  team: {type: String, ref: teams}", `field "team": ref requires type Id`},
		{"Sequence", "users:\n  name: [String]", `field "name": expected a type name or a mapping`},
		{"Syntax", "users: {", "t.yaml: yaml:"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("t.yaml", []byte(tt.input))
			require.ErrorIs(t, err, ErrInvalidSchema)
			assert.Contains(t, err.Error(), tt.message)
		})
	}

	schemas, err := Parse("empty.yaml", nil)
	require.NoError(t, err)
	assert.Empty(t, schemas)
}

func TestBuild(t *testing.T) {
	schemas, err := Parse("t.yaml", []byte("users:\n  name: {type: String, required: true}\n  age: {type: Number, default: 18}\n"))
	require.NoError(t, err)
	s, err := schemas[0].Build()
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "age"}, s.Names())
	age, _ := s.Path("age")
	assert.Equal(t, 18.0, age.Default)

	schemas, err = Parse("t.yaml", []byte("users:\n  id: Id\n"))
	require.NoError(t, err)
	_, err = schemas[0].Build()
	assert.ErrorIs(t, err, pgoose.ErrForbiddenColumnName)
}

func TestDefine(t *testing.T) {
	ctx := context.Background()
	schemas, err := Load("testdata/valid")
	require.NoError(t, err)

	c := pgoose.NewCollection(pgoose.WithSync(pgoose.SyncDisabled))
	models, err := Define(ctx, c, schemas)
	require.NoError(t, err)
	require.Len(t, models, 2)
	assert.Equal(t, "posts", models[0].Table())
	m, err := c.Model("users")
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "email", "age", "role"}, m.Fields())

	orphan, err := Parse("t.yaml", []byte("comments:\n  thread: {type: Id, ref: threads}\n"))
	require.NoError(t, err)
	_, err = Define(ctx, c, orphan)
	assert.ErrorIs(t, err, pgoose.ErrModelMissing)

	_, err = Define(ctx, c, schemas[1:])
	assert.ErrorIs(t, err, pgoose.ErrItemExists)
}
