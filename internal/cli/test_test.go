package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/qset/internal/harness"
	"github.com/roach88/qset/internal/testutil"
)

func runTestCmd(t *testing.T, opts *RootOptions, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewTestCommand(opts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// writeScenario writes a one-step scenario counting adults in the
// fixture person table.
func writeScenario(t *testing.T, dir, name string, want int) string {
	t.Helper()
	src := "name: " + name + "\n" +
		"models: " + testutil.Testdata("models") + "\n" +
		"schema_file: " + testutil.Testdata("schema", "sqlite.sql") + "\n" +
		"steps:\n" +
		"  - name: adults\n" +
		"    model: Person\n" +
		"    chain:\n" +
		"      - filter: { age__gte: 18 }\n" +
		"    op: count\n" +
		"    expect:\n" +
		"      count: " + strconv.Itoa(want) + "\n"
	path := filepath.Join(dir, name+".yaml")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func TestTestCommandMissingArgs(t *testing.T) {
	_, err := runTestCmd(t, &RootOptions{Format: "text"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 1 arg(s)")
}

func TestTestCommandNonExistentPath(t *testing.T) {
	out, err := runTestCmd(t, &RootOptions{Format: "text"}, "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error ["+ErrCodeConfig+"]")
}

func TestTestCommandEmptyDir(t *testing.T) {
	out, err := runTestCmd(t, &RootOptions{Format: "text"}, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "No scenarios found.\n", out)
}

func TestTestCommandFixtures(t *testing.T) {
	out, err := runTestCmd(t, &RootOptions{Format: "text"}, testutil.Testdata("scenarios"))
	require.NoError(t, err)
	assert.Equal(t, "✓ blog\n✓ people\n\nTest Summary: 2 passed, 0 failed, 2 total\n✓ All scenarios passed\n", out)
}

func TestTestCommandFixturesJSON(t *testing.T) {
	out, err := runTestCmd(t, &RootOptions{Format: "json"}, testutil.Testdata("scenarios"), "--filter", "blog")
	require.NoError(t, err)

	var resp struct {
		Status string              `json:"status"`
		Data   harness.SuiteResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 1, resp.Data.Total)
	assert.Equal(t, 1, resp.Data.Passed)
}

func TestTestCommandUpdate(t *testing.T) {
	dir := t.TempDir()
	path := writeScenario(t, dir, "adults", 7)

	out, err := runTestCmd(t, &RootOptions{Format: "text"}, dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ adults (golden updated)")
	assert.FileExists(t, harness.GoldenPath(path))

	out, err = runTestCmd(t, &RootOptions{Format: "text"}, dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ adults\n")
}

func TestTestCommandFailure(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "wrong", 3)

	out, err := runTestCmd(t, &RootOptions{Format: "text"}, dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ wrong")
	assert.Contains(t, out, "Test Summary: 0 passed, 1 failed, 1 total")
	assert.NotContains(t, out, "All scenarios passed")
}

func TestTestCommandFailureJSON(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "wrong", 3)

	out, err := runTestCmd(t, &RootOptions{Format: "json"}, dir)
	require.Error(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeTestFailed, resp.Error.Code)
	assert.Equal(t, "1 scenario(s) failed", resp.Error.Message)
}
