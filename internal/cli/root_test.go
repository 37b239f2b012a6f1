package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "qset", cmd.Use)
	assert.Contains(t, cmd.Long, "lookup expressions")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"count", "list", "get", "values", "update", "delete", "sql", "validate", "test"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "", configFlag.DefValue)
}

func TestQueryCommandFlags(t *testing.T) {
	cmd := NewRootCommand()

	for _, name := range []string{"count", "list", "get", "values", "update", "delete", "sql"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)

			for _, flag := range []string{"db", "driver", "models", "filter", "exclude", "order", "offset", "related"} {
				assert.NotNil(t, sub.Flags().Lookup(flag), "flag --%s", flag)
			}

			modelFlag := sub.Flags().Lookup("model")
			require.NotNil(t, modelFlag)
			assert.Equal(t, "m", modelFlag.Shorthand)

			limitFlag := sub.Flags().Lookup("limit")
			require.NotNil(t, limitFlag)
			assert.Equal(t, "-1", limitFlag.DefValue)
		})
	}
}

func TestDeleteCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	deleteCmd, _, err := cmd.Find([]string{"delete"})
	require.NoError(t, err)

	yesFlag := deleteCmd.Flags().Lookup("yes")
	require.NotNil(t, yesFlag)
	assert.Equal(t, "false", yesFlag.DefValue)
}

func TestValuesCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	valuesCmd, _, err := cmd.Find([]string{"values"})
	require.NoError(t, err)

	flatFlag := valuesCmd.Flags().Lookup("flat")
	require.NotNil(t, flatFlag)
	assert.Equal(t, "false", flatFlag.DefValue)
}

func TestTestCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	testCmd, _, err := cmd.Find([]string{"test"})
	require.NoError(t, err)

	updateFlag := testCmd.Flags().Lookup("update")
	require.NotNil(t, updateFlag)
	assert.Equal(t, "false", updateFlag.DefValue)

	filterFlag := testCmd.Flags().Lookup("filter")
	require.NotNil(t, filterFlag)
}

func TestCommandHelp(t *testing.T) {
	cmd := NewRootCommand()

	assert.Contains(t, cmd.Short, "query-sets")
	assert.Contains(t, cmd.Long, "QSET_")
}

func TestFormatValidation(t *testing.T) {
	assert.True(t, isValidFormat("text"))
	assert.True(t, isValidFormat("json"))
	assert.True(t, isValidFormat("yaml"))

	assert.False(t, isValidFormat("xml"))
	assert.False(t, isValidFormat(""))
	assert.False(t, isValidFormat("TEXT"))
}

func TestFormatValidationIntegration(t *testing.T) {
	_, _, err := runCLI(t, "--format", "invalid", "count", "--model", "Person")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestConfigLoadFailure(t *testing.T) {
	_, _, err := runCLI(t, "--config", "/nonexistent/qset.yaml", "count", "--model", "Person")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to load config")
}
