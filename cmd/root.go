// File: cmd/root.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pathfinder-autofill/internal/config"
	"github.com/xkilldash9x/pathfinder-autofill/internal/observability"
)

// Caller-facing failures. main maps every error to a non-zero exit code.
var (
	ErrURLRequired          = errors.New("a URL is required")
	ErrInputNotFound        = errors.New("input file not found")
	ErrNoURLs               = errors.New("no URLs found in the input file")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrSubmissionFailed     = errors.New("form submission failed")
)

const envPrefix = "PATHFINDER_APP"

// app is the state shared by the commands of one root command instance.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewRootCommand builds a fresh command tree. Each call has its own flags and
// configuration, so the interactive shell can run one per action.
func NewRootCommand() *cobra.Command {
	a := &app{}
	var (
		settingsFile string
		verbose      bool
	)

	rootCmd := &cobra.Command{
		Use:           "pathfinder",
		Short:         "PathFinder autofill agent: extract metadata from a URL and fill the add-asset form.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v := viper.New()
			config.SetDefaults(v)
			if err := initializeConfig(v, settingsFile); err != nil {
				return err
			}
			if err := v.BindPFlag("browser.headless", cmd.Flags().Lookup("headless")); err != nil {
				return err
			}

			cfg, err := config.NewConfigFromViper(v)
			if err != nil {
				return err
			}
			if verbose {
				cfg.SetLoggerLevel("debug")
			}

			observability.InitializeLogger(cfg.Logger())
			// The logger is process-wide; a later command in the same process may change the level.
			if err := observability.SetLevel(cfg.Logger().Level); err != nil {
				return fmt.Errorf("invalid log level: %w", err)
			}

			a.cfg = cfg
			a.logger = observability.GetLogger()
			a.logger.Debug("Configuration loaded.",
				zap.String("command", cmd.Name()),
				zap.Bool("headless", cfg.Browser().Headless),
				zap.String("settings", v.ConfigFileUsed()))
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&settingsFile, "settings", "", "application settings file (default is ./pathfinder.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().Bool("headless", false, "run the browser in headless mode")
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	rootCmd.AddCommand(
		newFillCmd(a),
		newExtractCmd(a),
		newBatchCmd(a),
		newAnalyzeCmd(a),
		newInteractiveCmd(a),
		newVersionCmd(),
	)
	return rootCmd
}

// Execute runs a fresh root command with args.
func Execute(ctx context.Context, args []string) error {
	rootCmd := NewRootCommand()
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		observability.GetLogger().Error("Command execution failed", zap.Error(err))
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	observability.Sync()
	return err
}

// initializeConfig points v at the settings file and the environment.
// A missing default settings file is not an error; a missing explicit one is.
func initializeConfig(v *viper.Viper, settingsFile string) error {
	if settingsFile != "" {
		v.SetConfigFile(settingsFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("pathfinder")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if settingsFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("error reading settings file: %w", err)
		}
	}
	return nil
}
