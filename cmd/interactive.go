// File: cmd/interactive.go
package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/pathfinder-autofill/internal/config"
)

// newActionCommand builds the command tree each menu action runs on. Tests replace it.
// It is assigned in init because NewRootCommand itself reaches the interactive shell.
var newActionCommand func() *cobra.Command

func init() {
	newActionCommand = NewRootCommand
}

func newInteractiveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "interactive",
		Short: "Run the menu-driven interactive mode",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := &shell{
				in:        bufio.NewScanner(cmd.InOrStdin()),
				out:       cmd.OutOrStdout(),
				runConfig: a.cfg.Paths().RunConfig,
				inherited: inheritedFlags(cmd),
			}
			return s.loop(cmd.Context())
		},
	}
}

// inheritedFlags forwards the global flags the user set to every action.
func inheritedFlags(cmd *cobra.Command) []string {
	var out []string
	for _, name := range []string{"headless", "verbose"} {
		if f := cmd.Flag(name); f != nil && f.Changed {
			out = append(out, "--"+name+"="+f.Value.String())
		}
	}
	if f := cmd.Flag("settings"); f != nil && f.Changed {
		out = append(out, "--settings", f.Value.String())
	}
	return out
}

type shell struct {
	in        *bufio.Scanner
	out       io.Writer
	runConfig string
	inherited []string
}

func (s *shell) loop(ctx context.Context) error {
	fmt.Fprintln(s.out, "\n=== PathFinder Autofill Agent: Interactive Mode ===")
	fmt.Fprintln(s.out, "This mode allows you to interactively extract data and fill forms.")

	for {
		fmt.Fprintln(s.out, "\nOptions:")
		fmt.Fprintln(s.out, "1. Extract data from URL")
		fmt.Fprintln(s.out, "2. Fill form with URL")
		fmt.Fprintln(s.out, "3. Analyze website structure")
		fmt.Fprintln(s.out, "4. Edit configuration")
		fmt.Fprintln(s.out, "5. Exit")

		choice, ok := s.prompt("\nEnter option number: ")
		if !ok {
			return s.in.Err()
		}
		switch choice {
		case "1":
			s.extract(ctx)
		case "2":
			s.fill(ctx)
		case "3":
			s.analyze(ctx)
		case "4":
			if err := s.editConfig(); err != nil {
				fmt.Fprintf(s.out, "Error editing configuration: %v\n", err)
			}
		case "5", "exit", "quit":
			fmt.Fprintln(s.out, "Exiting interactive mode.")
			return nil
		default:
			fmt.Fprintln(s.out, "Invalid option. Please enter a number from 1 to 5.")
		}

		if err := ctx.Err(); err != nil {
			return err
		}
	}
}

// prompt prints label and reads one trimmed line; ok is false at end of input.
func (s *shell) prompt(label string) (string, bool) {
	fmt.Fprint(s.out, label)
	if !s.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(s.in.Text()), true
}

func (s *shell) promptDefault(label, def string) string {
	v, _ := s.prompt(fmt.Sprintf("%s (default: %s): ", label, def))
	if v == "" {
		return def
	}
	return v
}

func (s *shell) confirm(label string) bool {
	v, _ := s.prompt(label + " (y/n): ")
	return strings.EqualFold(v, "y") || strings.EqualFold(v, "yes")
}

func (s *shell) promptURL() (string, bool) {
	url, _ := s.prompt("\nEnter URL to extract from: ")
	if url == "" {
		fmt.Fprintln(s.out, "URL cannot be empty.")
		return "", false
	}
	return url, true
}

func (s *shell) extract(ctx context.Context) {
	url, ok := s.promptURL()
	if !ok {
		return
	}
	output := s.promptDefault("Save extracted data to", "extracted_data.json")
	fmt.Fprintf(s.out, "\nExtracting data from %s...\n", url)
	s.run(ctx, "extract", "--url", url, "--output", output)
}

func (s *shell) fill(ctx context.Context) {
	url, ok := s.promptURL()
	if !ok {
		return
	}
	args := []string{"fill", "--url", url, "--config", s.runConfig}
	if !s.confirm("Submit the form after filling?") {
		args = append(args, "--no-submit")
	}
	s.run(ctx, args...)
}

func (s *shell) analyze(ctx context.Context) {
	output := s.promptDefault("Save analysis to", "analysis.json")
	s.run(ctx, "analyze", "--output", output)
}

// run executes one action on a fresh command tree so flags never leak between actions.
func (s *shell) run(ctx context.Context, args ...string) {
	rootCmd := newActionCommand()
	rootCmd.SetArgs(append(args, s.inherited...))
	rootCmd.SetOut(s.out)
	rootCmd.SetErr(s.out)

	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(s.out, "Error: command panicked: %v\n", r)
		}
	}()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
	}
}

// editConfig updates the run configuration. Empty answers keep the current value.
func (s *shell) editConfig() error {
	cfg, created, err := config.LoadRunConfig(s.runConfig)
	if err != nil {
		return err
	}
	if created {
		fmt.Fprintf(s.out, "\nCreating new configuration file %s\n", s.runConfig)
	} else {
		fmt.Fprintf(s.out, "\nLoaded existing configuration from %s\n", s.runConfig)
	}

	fmt.Fprintln(s.out, "\nEnter authentication details (leave empty to keep existing values):")
	s.edit("Access token", &cfg.AccessToken, cfg.AccessToken)
	s.edit("API key", &cfg.APIKey, cfg.APIKey)
	s.edit("Username", &cfg.Username, cfg.Username)
	s.edit("Password", &cfg.Password, mask(cfg.Password))

	fmt.Fprintln(s.out, "\nEnter default values (leave empty to keep existing values):")
	defaults := &cfg.DefaultValues
	s.edit("Default title", &defaults.Title, defaults.Title)
	s.edit("Default description", &defaults.Description, defaults.Description)
	if tags, _ := s.prompt(fmt.Sprintf("Default tags, comma separated (current: %s): ", orNone(strings.Join(defaults.Tags, ", ")))); tags != "" {
		defaults.Tags = splitTags(tags)
	}

	if err := config.SaveRunConfig(s.runConfig, cfg); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "\nConfiguration saved to %s\n", s.runConfig)
	return nil
}

func (s *shell) edit(label string, field *string, shown string) {
	if v, _ := s.prompt(fmt.Sprintf("%s (current: %s): ", label, orNone(shown))); v != "" {
		*field = v
	}
}

// splitTags parses a comma separated tag list, dropping blanks.
func splitTags(s string) []string {
	tags := []string{}
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "********"
}

func orNone(s string) string {
	if s == "" {
		return "None"
	}
	return s
}
