package gen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/pgoose/compiler/load"
)

func TestNewGraph(t *testing.T) {
	schemas, err := load.Load("../load/testdata/valid")
	require.NoError(t, err)
	g, err := NewGraph(&Config{Package: "example.com/models"}, schemas...)
	require.NoError(t, err)
	require.Len(t, g.Nodes, 2)

	post, user := g.Nodes[0], g.Nodes[1]
	assert.Equal(t, "Post", post.Name)
	assert.Equal(t, "posts", post.Model)
	assert.Equal(t, "posts", post.Table())
	assert.Equal(t, "post.go", post.File())
	assert.Equal(t, "Posts", post.Plural())
	assert.Equal(t, "p", post.Receiver())

	author := post.Fields[2]
	assert.Equal(t, "Author", author.StructField)
	assert.Same(t, user, author.Ref)
	assert.True(t, author.Optional())
	assert.Equal(t, "ID", author.Builder())
	assert.Equal(t, "Bool", post.Fields[1].Builder())
	assert.Equal(t, "Text", post.Fields[0].Builder())

	name := user.Fields[0]
	assert.False(t, name.Optional(), "required fields are not pointers")
	assert.True(t, user.Fields[1].Unique)
}

func TestNewGraphErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		message string
	}{
		{"RecordName", "user:\n  a: String\nusers:\n  b: String\n", "record name User already used by model user"},
		{"Ref", "posts:\n  author: {type: Id, ref: people}\n", `on model posts field author: reference to undeclared model "people"`},
		{"Collision", "users:\n  user_id: Id\n  userID: Id\n", "field userID: struct field UserID collides with user_id"},
		{"Method", "users:\n  values: Json\n", "struct field Values collides with method Values"},
		{"FieldName", "users:\n  1st: String\n", "field 1st: field name does not form a Go identifier"},
		{"ModelName", "_:\n  a: String\n", "model name does not form a Go identifier"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			schemas, err := load.Parse("t.yaml", []byte(tt.input))
			require.NoError(t, err)
			_, err = NewGraph(&Config{}, schemas...)
			require.ErrorIs(t, err, ErrInvalidSchema)
			assert.ErrorContains(t, err, tt.message)
		})
	}

	_, err := NewGraph(nil)
	assert.ErrorIs(t, err, ErrMissingConfig)
}

func TestTypeReceiver(t *testing.T) {
	for name, want := range map[string]string{
		"User":        "u",
		"Invoice":     "i",
		"InvoiceNote": "inx",
		"Vote":        "vx",
		"PostTag":     "pt",
	} {
		assert.Equal(t, want, (&Type{Name: name}).Receiver(), name)
	}
}
