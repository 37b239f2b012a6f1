package compiler

import (
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/qset/internal/meta"
)

func compileModelString(t *testing.T, src, name string) (*meta.Model, error) {
	t.Helper()
	ctx := cuecontext.New()
	v := ctx.CompileString(src)
	require.NoError(t, v.Err())
	return CompileModel(v.LookupPath(cue.ParsePath("model." + name)))
}

func TestCompileModel_Shorthand(t *testing.T) {
	m, err := compileModelString(t, `
model: Author: {
	fields: {
		id:     int
		name:   string
		email:  string | null
		rating: float
		active: bool
		avatar: bytes
	}
}
`, "Author")
	require.NoError(t, err)

	assert.Equal(t, "Author", m.Name)
	assert.Empty(t, m.Table, "defaults are filled by the registry")
	assert.Equal(t, []meta.Field{
		{Name: "id", Type: meta.TypeInt},
		{Name: "name", Type: meta.TypeString},
		{Name: "email", Type: meta.TypeString, Nullable: true},
		{Name: "rating", Type: meta.TypeFloat},
		{Name: "active", Type: meta.TypeBool},
		{Name: "avatar", Type: meta.TypeBytes},
	}, m.Fields)
}

func TestCompileModel_StructForm(t *testing.T) {
	m, err := compileModelString(t, `
model: Post: {
	table:       "blog_post"
	primary_key: "key"
	fields: {
		key:     int
		author:  {references: "Author"}
		editor:  {references: "Author", column: "editor_ref", nullable: true}
		created: {type: "time"}
	}
}
`, "Post")
	require.NoError(t, err)

	assert.Equal(t, "blog_post", m.Table)
	assert.Equal(t, "key", m.PrimaryKey)
	require.Len(t, m.Fields, 4)
	assert.Equal(t, meta.Field{Name: "author", ForeignKey: "Author"}, m.Fields[1])
	assert.Equal(t, meta.Field{Name: "editor", ForeignKey: "Author", Column: "editor_ref", Nullable: true}, m.Fields[2])
	assert.Equal(t, meta.Field{Name: "created", Type: meta.TypeTime}, m.Fields[3])
}

func TestCompileModel_Errors(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		field string
		want  string
	}{
		{
			name:  "no fields",
			src:   `model: X: { table: "x" }`,
			field: "fields",
			want:  "at least one field",
		},
		{
			name:  "unknown model attribute",
			src:   `model: X: { tabel: "x", fields: { id: int } }`,
			field: "model",
			want:  `unknown attribute "tabel"`,
		},
		{
			name:  "unknown field attribute",
			src:   `model: X: { fields: { id: { kind: "int" } } }`,
			field: "model",
			want:  `unknown attribute "kind"`,
		},
		{
			name:  "unsupported declared type",
			src:   `model: X: { fields: { id: { type: "decimal" } } }`,
			field: "type",
			want:  `unsupported type "decimal"`,
		},
		{
			name:  "list type",
			src:   `model: X: { fields: { tags: [...string] } }`,
			field: "type",
			want:  "unsupported type kind",
		},
		{
			name:  "table not a string",
			src:   `model: X: { table: 3, fields: { id: int } }`,
			field: "table",
			want:  "must be a string",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := compileModelString(t, tt.src, "X")
			require.Error(t, err)

			var compileErr *CompileError
			require.ErrorAs(t, err, &compileErr)
			assert.Equal(t, tt.field, compileErr.Field)
			assert.Contains(t, compileErr.Message, tt.want)
		})
	}
}

func TestCompileError_Format(t *testing.T) {
	err := &CompileError{Field: "type", Message: "bad"}
	assert.Equal(t, "type: bad", err.Error())
}
