package meta

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func blogModels() []Model {
	return []Model{
		{
			Name: "Author",
			Fields: []Field{
				{Name: "id", Type: TypeInt},
				{Name: "name"},
			},
		},
		{
			Name:  "Post",
			Table: "blog_post",
			Fields: []Field{
				{Name: "id", Type: TypeInt},
				{Name: "title"},
				{Name: "author", ForeignKey: "Author"},
				{Name: "editor", ForeignKey: "Author", Column: "editor_ref", Nullable: true},
			},
		},
		{
			Name: "Comment",
			Fields: []Field{
				{Name: "id", Type: TypeInt},
				{Name: "post", ForeignKey: "Post"},
				{Name: "body"},
			},
		},
	}
}

func newBlogRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := NewRegistry(blogModels()...)
	require.NoError(t, err)
	require.NoError(t, r.Validate())
	return r
}

func TestRegister_FillsDefaults(t *testing.T) {
	r := newBlogRegistry(t)

	author, err := r.Model("Author")
	require.NoError(t, err)
	assert.Equal(t, "author", author.Table)
	assert.Equal(t, "id", author.PrimaryKey)

	name, ok := author.Field("name")
	require.True(t, ok)
	assert.Equal(t, "name", name.Column)
	assert.Equal(t, TypeString, name.Type)

	post, err := r.Model("Post")
	require.NoError(t, err)
	fk, ok := post.Field("author")
	require.True(t, ok)
	assert.Equal(t, "author_id", fk.Column)
	assert.Equal(t, TypeInt, fk.Type)

	editor, _ := post.Field("editor")
	assert.Equal(t, "editor_ref", editor.Column, "explicit column wins")
}

func TestRegister_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		model Model
		want  string
	}{
		{"empty name", Model{Fields: []Field{{Name: "id"}}}, "model name is empty"},
		{"no fields", Model{Name: "X"}, "no fields declared"},
		{"missing primary key", Model{Name: "X", Fields: []Field{{Name: "name"}}}, "primary key"},
		{"duplicate field", Model{Name: "X", Fields: []Field{{Name: "id"}, {Name: "id"}}}, "declared twice"},
		{"duplicate column", Model{Name: "X", Fields: []Field{{Name: "id"}, {Name: "b", Column: "id"}}}, "already mapped"},
		{"bad type", Model{Name: "X", Fields: []Field{{Name: "id", Type: "decimal"}}}, "unsupported type"},
		{"double underscore", Model{Name: "X", Fields: []Field{{Name: "id"}, {Name: "a__b"}}}, "__"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := (&Registry{}).Register(tt.model)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidModel)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRegister_Duplicate(t *testing.T) {
	r := newBlogRegistry(t)
	err := r.Register(Model{Name: "Author", Fields: []Field{{Name: "id"}}})
	assert.ErrorIs(t, err, ErrInvalidModel)
	assert.Contains(t, err.Error(), "already registered")
}

func TestValidate_UnknownForeignKeyTarget(t *testing.T) {
	r, err := NewRegistry(
		Model{Name: "Post", Fields: []Field{{Name: "id"}, {Name: "author", ForeignKey: "Author"}}},
		Model{Name: "Tag", Fields: []Field{{Name: "id"}, {Name: "post", ForeignKey: "Missing"}}},
	)
	require.NoError(t, err)

	err = r.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidModel)
	assert.Contains(t, err.Error(), `"Author"`)
	assert.Contains(t, err.Error(), `"Missing"`)
}

func TestLookups(t *testing.T) {
	r := newBlogRegistry(t)

	table, err := r.TableFor("Post")
	require.NoError(t, err)
	assert.Equal(t, "blog_post", table)

	col, err := r.ColumnFor("Post", "author")
	require.NoError(t, err)
	assert.Equal(t, "blog_post.author_id", col)

	pk, err := r.PrimaryKeyField("Comment")
	require.NoError(t, err)
	assert.Equal(t, "id", pk)

	_, err = r.ColumnFor("Post", "nope")
	assert.ErrorIs(t, err, ErrUnknownField)

	_, err = r.TableFor("Nope")
	assert.ErrorIs(t, err, ErrUnknownModel)

	_, err = r.RelationsOf("Nope")
	assert.ErrorIs(t, err, ErrUnknownModel)
}

func TestRelationsOf_DeclarationOrder(t *testing.T) {
	r := newBlogRegistry(t)

	rels, err := r.RelationsOf("Post")
	require.NoError(t, err)
	assert.Equal(t, []Relation{
		{Model: "Post", Field: "author", Column: "author_id", Related: "Author"},
		{Model: "Post", Field: "editor", Column: "editor_ref", Related: "Author"},
	}, rels)

	rels, err = r.RelationsOf("Author")
	require.NoError(t, err)
	assert.Empty(t, rels)
}

func TestDependentsOf(t *testing.T) {
	r := newBlogRegistry(t)

	deps, err := r.DependentsOf("Author")
	require.NoError(t, err)
	assert.Equal(t, []Relation{
		{Model: "Post", Field: "author", Column: "author_id", Related: "Author"},
		{Model: "Post", Field: "editor", Column: "editor_ref", Related: "Author"},
	}, deps)

	deps, err = r.DependentsOf("Comment")
	require.NoError(t, err)
	assert.Empty(t, deps)

	_, err = r.DependentsOf("Nope")
	assert.ErrorIs(t, err, ErrUnknownModel)
}

func TestModels_SortedByName(t *testing.T) {
	r := newBlogRegistry(t)
	var names []string
	for _, m := range r.Models() {
		names = append(names, m.Name)
	}
	assert.Equal(t, []string{"Author", "Comment", "Post"}, names)
}

func TestField_Decode(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		typ  FieldType
		raw  any
		want any
	}{
		{"nil", TypeInt, nil, nil},
		{"int from int64", TypeInt, int64(7), int64(7)},
		{"int from bytes", TypeInt, []byte("42"), int64(42)},
		{"float from int", TypeFloat, int64(2), float64(2)},
		{"float from text", TypeFloat, "2.5", 2.5},
		{"string from bytes", TypeString, []byte("ann"), "ann"},
		{"string from int", TypeString, int64(5), "5"},
		{"bool from sqlite int", TypeBool, int64(1), true},
		{"bool from text", TypeBool, "false", false},
		{"bool from mysql bytes", TypeBool, []byte("1"), true},
		{"time passthrough", TypeTime, ts, ts},
		{"time from sqlite text", TypeTime, "2024-03-01 12:30:00", ts},
		{"time from rfc3339", TypeTime, "2024-03-01T12:30:00Z", ts},
		{"bytes copy", TypeBytes, []byte{1, 2}, []byte{1, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := Field{Name: "x", Type: tt.typ}
			got, err := f.Decode(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestField_DecodeErrors(t *testing.T) {
	_, err := Field{Name: "age", Type: TypeInt}.Decode("old")
	assert.ErrorContains(t, err, "age")

	_, err = Field{Name: "at", Type: TypeTime}.Decode("yesterday")
	assert.Error(t, err)

	_, err = Field{Name: "ok", Type: TypeBool}.Decode(2.5)
	assert.Error(t, err)
}

func TestRecord_Related(t *testing.T) {
	rec := Record{"id": int64(1), "author": Record{"id": int64(9), "name": "Ann"}}
	author, ok := rec.Related("author")
	require.True(t, ok)
	assert.Equal(t, "Ann", author["name"])

	_, ok = rec.Related("id")
	assert.False(t, ok)
}
