// Package cli wires the quire commands.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ByLCY/quire/internal/config"
	"github.com/ByLCY/quire/internal/logging"
)

// app carries what every subcommand needs after flag parsing.
type app struct {
	cfg    config.Config
	logger *slog.Logger
}

// NewRootCommand builds the quire command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "quire",
		Short:         "quire renders scene files to PDF",
		Long:          `quire lays out documents described in the quire scene language and streams them as PDF.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			path, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("log-level") {
				cfg.LogLevel, _ = cmd.Flags().GetString("log-level")
			}
			a.cfg = cfg
			a.logger = logging.New(logging.ParseLevel(cfg.LogLevel))
			return nil
		},
	}
	root.PersistentFlags().String("config", "quire.yaml", "Path to the configuration file")
	root.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")

	root.AddCommand(newRenderCommand(a), newServeCommand(a))
	return root
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	root := NewRootCommand()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return err
	}
	return nil
}

func (a *app) log() *slog.Logger {
	if a.logger == nil {
		return logging.NewNop()
	}
	return a.logger
}
