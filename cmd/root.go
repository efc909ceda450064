package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"github.com/fakeyudi/focustrail/internal/config"
	"github.com/fakeyudi/focustrail/internal/logutil"
	"github.com/fakeyudi/focustrail/internal/profile"
)

// cfg holds the merged configuration, populated in PersistentPreRunE.
var cfg config.Config

// activeProfile holds the loaded user profile.
var activeProfile *profile.Profile

// logger is built from cfg in PersistentPreRunE; logCloser releases its file sink.
var (
	logger    = slog.Default()
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:          "focustrail",
	Short:        "Track foreground activity and keep focus blocks on goal",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip setup check for the setup command itself.
		if cmd.Name() == "setup" {
			return nil
		}

		// First-run: profile missing → run setup wizard automatically.
		// Only do this when stdin is an interactive terminal.
		if !profile.Exists() && term.IsTerminal(os.Stdin.Fd()) {
			fmt.Println()
			fmt.Println("  Welcome to focustrail! Looks like this is your first time.")
			if err := runSetup(cmd, true); err != nil {
				return err
			}
		}

		activeProfile = nil
		if profile.Exists() {
			p, err := profile.Load()
			if err != nil {
				return fmt.Errorf("loading profile: %w", err)
			}
			activeProfile = p
		}

		loaded, err := config.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded

		l, closer, err := logutil.New(logutil.LoggerConfig{
			Level:  cfg.LogLevel,
			Format: cfg.LogFormat,
			File:   cfg.LogFile,
		})
		if err != nil {
			return fmt.Errorf("configuring logger: %w", err)
		}
		logger, logCloser = l, closer
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if logCloser == nil {
			return nil
		}
		err := logCloser.Close()
		logCloser = nil
		return err
	},
}

// Execute runs the root command. Exits with code 1 on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
