package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "hiscore", cmd.Use)
	assert.Contains(t, cmd.Long, "strictly-improving")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"keygen", "authorize", "serve", "submit", "score", "top", "page", "skin", "events", "audit", "test"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestNestedCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	for _, path := range [][]string{
		{"serve", "signer"},
		{"serve", "ledger"},
		{"serve", "all"},
		{"skin", "has"},
		{"skin", "grant"},
	} {
		subCmd, _, err := cmd.Find(path)
		require.NoError(t, err)
		assert.Equal(t, path[1], subCmd.Name())
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
	assert.Equal(t, "c", configFlag.Shorthand)
}

func TestSubmitCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	submitCmd, _, err := cmd.Find([]string{"submit"})
	require.NoError(t, err)

	for _, name := range []string{"db", "signature", "timestamp", "nonce", "sign"} {
		assert.NotNil(t, submitCmd.Flags().Lookup(name), name)
	}
	assert.Equal(t, "", submitCmd.Flags().Lookup("db").DefValue)
}

func TestTopCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	topCmd, _, err := cmd.Find([]string{"top"})
	require.NoError(t, err)

	limitFlag := topCmd.Flags().Lookup("limit")
	require.NotNil(t, limitFlag)
	assert.Equal(t, "n", limitFlag.Shorthand)
	assert.Equal(t, "10", limitFlag.DefValue)
}

func TestServeCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	serveCmd, _, err := cmd.Find([]string{"serve", "all"})
	require.NoError(t, err)

	for _, name := range []string{"db", "signer-listen", "ledger-listen"} {
		assert.NotNil(t, serveCmd.InheritedFlags().Lookup(name), name)
	}
}

func TestTestCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	testCmd, _, err := cmd.Find([]string{"test"})
	require.NoError(t, err)

	updateFlag := testCmd.Flags().Lookup("update")
	require.NotNil(t, updateFlag)
	assert.Equal(t, "false", updateFlag.DefValue)

	assert.NotNil(t, testCmd.Flags().Lookup("filter"))
	assert.NotNil(t, testCmd.Flags().Lookup("golden"))
}

func TestCommandHelp(t *testing.T) {
	cmd := NewRootCommand()
	assert.Contains(t, cmd.Short, "leaderboard")
	assert.Contains(t, cmd.Long, "append-only registry")
}

func TestFormatValidation(t *testing.T) {
	// Test valid formats
	assert.True(t, isValidFormat("text"))
	assert.True(t, isValidFormat("json"))

	// Test invalid formats
	assert.False(t, isValidFormat("xml"))
	assert.False(t, isValidFormat(""))
	assert.False(t, isValidFormat("TEXT"))
}

func TestFormatValidationIntegration(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"--format", "invalid", "keygen"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}
