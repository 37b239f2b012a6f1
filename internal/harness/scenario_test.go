package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/qset/internal/testutil"
)

// writeScenario writes content to a temp file and returns its path.
func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadScenario_Fixtures(t *testing.T) {
	for _, name := range []string{"people.yaml", "blog.yaml"} {
		t.Run(name, func(t *testing.T) {
			s, err := LoadScenario(testutil.Testdata("scenarios", name))
			require.NoError(t, err)
			assert.NotEmpty(t, s.Steps)
			assert.FileExists(t, s.SchemaFile)
			assert.DirExists(t, s.Models)
		})
	}
}

func TestLoadScenario_ResolvesRelativePaths(t *testing.T) {
	s, err := LoadScenario(testutil.Testdata("scenarios", "people.yaml"))
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(testutil.Testdata("scenarios"), "..", "models"), s.Models)
	assert.Equal(t, filepath.Join(testutil.Testdata("scenarios"), "..", "schema", "sqlite.sql"), s.SchemaFile)
}

func TestLoadScenario_Parse(t *testing.T) {
	path := writeScenario(t, `
name: parse
description: every field
models: `+testutil.Testdata("models")+`
schema:
  - CREATE TABLE person (id INTEGER PRIMARY KEY, name TEXT, age INTEGER, status TEXT, created DATETIME)
fixtures:
  - table: person
    rows:
      - { id: 1, name: Ann, age: 34, status: active, created: "2024-01-01 10:00:00" }
batch_size: 4
steps:
  - model: Person
    chain:
      - filter: { age__gte: 18 }
      - exclude: { status: banned }
      - order_by: [-age, name]
      - limit: [1, 2]
      - select_related: true
    op: at
    args: { index: 0 }
    expect:
      error: index_out_of_range
      queries: 1
`)

	s, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "parse", s.Name)
	assert.Equal(t, 4, s.BatchSize)
	require.Len(t, s.Fixtures, 1)
	assert.Equal(t, "person", s.Fixtures[0].Table)
	assert.Equal(t, "Ann", s.Fixtures[0].Rows[0]["name"])

	require.Len(t, s.Steps, 1)
	step := s.Steps[0]
	require.Len(t, step.Chain, 5)
	assert.Equal(t, map[string]any{"age__gte": 18}, step.Chain[0].Filter)
	assert.Equal(t, map[string]any{"status": "banned"}, step.Chain[1].Exclude)
	assert.Equal(t, []string{"-age", "name"}, step.Chain[2].OrderBy)
	assert.Equal(t, []int{1, 2}, step.Chain[3].Limit)
	assert.True(t, step.Chain[4].SelectRelated)
	assert.Equal(t, OpAt, step.Op)
	assert.Equal(t, 0, step.Args["index"])
	assert.Equal(t, "index_out_of_range", step.Expect.Error)
	require.NotNil(t, step.Expect.Queries)
	assert.Equal(t, 1, *step.Expect.Queries)
	assert.Nil(t, step.Expect.Count)
}

func TestLoadScenario_UnknownField(t *testing.T) {
	path := writeScenario(t, `
name: typo
description: misspelled key
models: `+testutil.Testdata("models")+`
step:
  - model: Person
    op: count
`)
	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadScenario_Invalid(t *testing.T) {
	models := testutil.Testdata("models")
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing name",
			content: "description: d\nmodels: " + models + "\nsteps: [{model: Person, op: count}]\n",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			content: "name: n\nmodels: " + models + "\nsteps: [{model: Person, op: count}]\n",
			wantErr: "description is required",
		},
		{
			name:    "missing models",
			content: "name: n\ndescription: d\nsteps: [{model: Person, op: count}]\n",
			wantErr: "models directory is required",
		},
		{
			name:    "models not found",
			content: "name: n\ndescription: d\nmodels: nowhere\nsteps: [{model: Person, op: count}]\n",
			wantErr: "models directory not found",
		},
		{
			name:    "schema file not found",
			content: "name: n\ndescription: d\nmodels: " + models + "\nschema_file: nope.sql\nsteps: [{model: Person, op: count}]\n",
			wantErr: "schema file not found",
		},
		{
			name:    "no steps",
			content: "name: n\ndescription: d\nmodels: " + models + "\n",
			wantErr: "steps list is required",
		},
		{
			name:    "unknown op",
			content: "name: n\ndescription: d\nmodels: " + models + "\nsteps: [{model: Person, op: delete}]\n",
			wantErr: `unknown op "delete"`,
		},
		{
			name:    "step without model",
			content: "name: n\ndescription: d\nmodels: " + models + "\nsteps: [{op: count}]\n",
			wantErr: "steps[0]: model is required",
		},
		{
			name:    "two calls in one link",
			content: "name: n\ndescription: d\nmodels: " + models + "\nsteps: [{model: Person, op: count, chain: [{none: true, order_by: [id]}]}]\n",
			wantErr: "chain[0]: exactly one of",
		},
		{
			name:    "short limit",
			content: "name: n\ndescription: d\nmodels: " + models + "\nsteps: [{model: Person, op: count, chain: [{limit: [1]}]}]\n",
			wantErr: "limit takes [offset, length]",
		},
		{
			name:    "at without index",
			content: "name: n\ndescription: d\nmodels: " + models + "\nsteps: [{model: Person, op: at}]\n",
			wantErr: "at requires args.index",
		},
		{
			name:    "update without set",
			content: "name: n\ndescription: d\nmodels: " + models + "\nsteps: [{model: Person, op: update}]\n",
			wantErr: "update requires args.set",
		},
		{
			name:    "fixture without table",
			content: "name: n\ndescription: d\nmodels: " + models + "\nfixtures: [{rows: []}]\nsteps: [{model: Person, op: count}]\n",
			wantErr: "fixtures[0]: table is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}
