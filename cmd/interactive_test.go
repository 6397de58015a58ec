// File: cmd/interactive_test.go
package cmd

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/pathfinder-autofill/internal/config"
)

// recordActions replaces the per-action command tree with a stub that records its arguments.
func recordActions(t *testing.T, fail error) *[][]string {
	t.Helper()
	var calls [][]string
	original := newActionCommand
	newActionCommand = func() *cobra.Command {
		return &cobra.Command{
			Use:                "pathfinder",
			DisableFlagParsing: true,
			RunE: func(cmd *cobra.Command, args []string) error {
				calls = append(calls, args)
				return fail
			},
		}
	}
	t.Cleanup(func() { newActionCommand = original })
	return &calls
}

func runInteractive(t *testing.T, input string, args ...string) (string, error) {
	t.Helper()
	rootCmd := NewRootCommand()
	buf := new(bytes.Buffer)
	rootCmd.SetIn(strings.NewReader(input))
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(append([]string{"interactive"}, args...))
	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func TestInteractive_RunsActionsOnFreshCommands(t *testing.T) {
	newFixture(t)
	calls := recordActions(t, nil)

	input := strings.Join([]string{
		"1", "https://a.example", "",
		"2", "https://b.example", "n",
		"2", "https://c.example", "y",
		"3", "site.json",
		"5",
	}, "\n") + "\n"
	out, err := runInteractive(t, input, "--headless")
	require.NoError(t, err)

	assert.Equal(t, [][]string{
		{"extract", "--url", "https://a.example", "--output", "extracted_data.json", "--headless=true"},
		{"fill", "--url", "https://b.example", "--config", "config.json", "--no-submit", "--headless=true"},
		{"fill", "--url", "https://c.example", "--config", "config.json", "--headless=true"},
		{"analyze", "--output", "site.json", "--headless=true"},
	}, *calls)
	assert.Contains(t, out, "Exiting interactive mode.")
}

func TestInteractive_InputHandling(t *testing.T) {
	newFixture(t)
	calls := recordActions(t, errors.New("authentication failed"))

	out, err := runInteractive(t, "9\n1\n\n2\nhttps://x.example\nn\n")
	require.NoError(t, err, "end of input leaves the menu")

	assert.Contains(t, out, "Invalid option. Please enter a number from 1 to 5.")
	assert.Contains(t, out, "URL cannot be empty.")
	assert.Contains(t, out, "Error: authentication failed", "action errors are reported and the menu continues")
	assert.Len(t, *calls, 1)
}

func TestInteractive_EditConfig(t *testing.T) {
	newFixture(t)
	recordActions(t, nil)
	require.NoError(t, config.SaveRunConfig("config.json", config.RunConfig{
		Credentials:   config.Credentials{Username: "old-user", Password: "old-pass"},
		DefaultValues: config.DefaultValues{Title: "Old title"},
	}))

	input := strings.Join([]string{
		"4",
		"tok-123", // access token
		"",        // api key
		"",        // username
		"",        // password
		"",        // default title
		"A demo asset",
		" ai, demo ,, ",
		"5",
	}, "\n") + "\n"
	out, err := runInteractive(t, input)
	require.NoError(t, err)

	assert.Contains(t, out, "Loaded existing configuration from config.json")
	assert.Contains(t, out, "Password (current: ********)")
	assert.NotContains(t, out, "old-pass")

	cfg, created, err := config.LoadRunConfig("config.json")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, config.RunConfig{
		Credentials:   config.Credentials{AccessToken: "tok-123", Username: "old-user", Password: "old-pass"},
		DefaultValues: config.DefaultValues{Title: "Old title", Description: "A demo asset", Tags: []string{"ai", "demo"}},
	}, cfg)
}

func TestSplitTags(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitTags(" a ,, b,"))
	assert.Equal(t, []string{}, splitTags(" , "))
}

func TestInteractive_ActionsUseTheRealCommandTree(t *testing.T) {
	require.NotNil(t, newActionCommand)
	rootCmd := newActionCommand()
	assert.Equal(t, "pathfinder", rootCmd.Use)

	var names []string
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"fill", "extract", "batch", "analyze", "interactive", "version"})
}
