package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/qset/internal/testutil"
)

func runValidateCmd(t *testing.T, opts *RootOptions, dir string) (string, string, error) {
	t.Helper()
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	cmd := NewValidateCommand(opts)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs([]string{dir})
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeModels(t *testing.T, src string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "models.cue"), []byte(src), 0o644))
	return dir
}

func TestValidateValidModels(t *testing.T) {
	out, _, err := runValidateCmd(t, &RootOptions{Format: "text"}, testutil.Testdata("models"))
	require.NoError(t, err)
	assert.Equal(t, "✓ 4 model(s) valid\n", out)
}

func TestValidateValidModelsJSON(t *testing.T) {
	out, _, err := runValidateCmd(t, &RootOptions{Format: "json"}, testutil.Testdata("models"))
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	assert.ElementsMatch(t, []string{"Author", "Post", "Comment", "Person"}, resp.Data.Models)
	assert.Empty(t, resp.Data.Cycles)
}

func TestValidateNonExistentDirectory(t *testing.T) {
	out, _, err := runValidateCmd(t, &RootOptions{Format: "text"}, "/nonexistent/directory/path")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "E005") // ErrCodeNotFound
	assert.Contains(t, out, "not found")
}

func TestValidateEmptyDirectory(t *testing.T) {
	out, _, err := runValidateCmd(t, &RootOptions{Format: "text"}, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "E003")
	assert.Contains(t, out, "no CUE files found")
}

func TestValidateUnknownReference(t *testing.T) {
	dir := writeModels(t, `
package models

model: Post: {
	fields: {
		id:     int
		author: {references: "Writer"}
	}
}
`)

	out, _, err := runValidateCmd(t, &RootOptions{Format: "text"}, dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "validation failed")
	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, `E106: Post.author references undeclared model "Writer"`)
}

func TestValidateUnknownReferenceJSON(t *testing.T) {
	dir := writeModels(t, `
package models

model: Post: {
	fields: {
		id:     int
		author: {references: "Writer"}
	}
}
`)

	out, _, err := runValidateCmd(t, &RootOptions{Format: "json"}, dir)
	require.Error(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E106", resp.Error.Code)
}

func TestValidateReportsCycles(t *testing.T) {
	dir := writeModels(t, `
package models

model: Category: {
	fields: {
		id:     int
		name:   string
		parent: {references: "Category", nullable: true}
	}
}
`)

	out, _, err := runValidateCmd(t, &RootOptions{Format: "text"}, dir)
	require.NoError(t, err)
	assert.Equal(t, "✓ 1 model(s) valid\n  info: Self-referencing model: Category → Category\n", out)
}

func TestValidateVerboseOutput(t *testing.T) {
	out, stderr, err := runValidateCmd(t, &RootOptions{Format: "json", Verbose: true}, testutil.Testdata("models"))
	require.NoError(t, err)

	// Verbose logs go to stderr to avoid corrupting JSON output
	assert.True(t, json.Valid([]byte(out)))
	assert.Contains(t, stderr, "CUE file(s)")
	assert.Contains(t, stderr, "Validating model: Person")
}
