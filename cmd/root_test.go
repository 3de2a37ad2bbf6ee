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
	expected := []string{"scrape", "qualify", "leads", "export", "push", "serve"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "leadscout", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestScrapeCommand_Flags(t *testing.T) {
	for _, flagName := range []string{"sources", "service", "max-leads", "min-confidence", "skip-prevalidate", "qualify", "presets"} {
		flag := scrapeCmd.Flags().Lookup(flagName)
		assert.NotNil(t, flag, "scrape should have --%s flag", flagName)
	}
}

func TestQualifyCommand_Flags(t *testing.T) {
	for _, flagName := range []string{"service", "max-leads", "min-confidence", "limit", "all"} {
		flag := qualifyCmd.Flags().Lookup(flagName)
		assert.NotNil(t, flag, "qualify should have --%s flag", flagName)
	}
}

func TestLeadsCommand_HasSubcommands(t *testing.T) {
	cmds := leadsCmd.Commands()
	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}

	for _, name := range []string{"list", "get", "import"} {
		assert.True(t, names[name], "leads should have subcommand %q", name)
	}
}

func TestLeadsImportCommand_RequiredFlag(t *testing.T) {
	flag := leadsImportCmd.Flags().Lookup("file")
	require.NotNil(t, flag, "leads import should have --file flag")
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestLeadsListCommand_Defaults(t *testing.T) {
	flag := leadsListCmd.Flags().Lookup("limit")
	require.NotNil(t, flag)
	assert.Equal(t, "50", flag.DefValue)
}
