package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	cmds := rootCmd.Commands()

	// Collect subcommand names.
	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}

	// Verify expected subcommands are registered.
	expected := []string{"run", "stats", "leads", "health", "serve", "lookup"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "leads-cli", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestRunCommand_Flags(t *testing.T) {
	for _, flagName := range []string{"state", "limit", "workers"} {
		flag := runCmd.Flags().Lookup(flagName)
		assert.NotNil(t, flag, "run should have --%s flag", flagName)
	}
}

func TestStatsCommand_Flags(t *testing.T) {
	flag := statsCmd.Flags().Lookup("window")
	require.NotNil(t, flag, "stats command should have --window flag")

	format := statsCmd.Flags().Lookup("format")
	require.NotNil(t, format, "stats command should have --format flag")
	assert.Equal(t, "table", format.DefValue)
}

func TestLeadsCommand_Flags(t *testing.T) {
	flag := leadsCmd.Flags().Lookup("date")
	require.NotNil(t, flag, "leads command should have --date flag")
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestLookupCommand_Metadata(t *testing.T) {
	assert.Equal(t, "lookup <cnpj>", lookupCmd.Use)
	require.NotNil(t, lookupCmd.Flags().Lookup("raw"))
}
