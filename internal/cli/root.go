// Package cli wires the spool pipeline into a cobra command tree.
package cli

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// RootOptions holds global flags shared by all commands.
type RootOptions struct {
	Workspace string
	Format    string // "json" | "text"
	Verbose   bool

	Log zerolog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the spool CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "spool",
		Short: "spool - personal-archive thread reconstruction",
		Long: "Reconstructs reply threads and conversations from normalized personal-archive\n" +
			"items and persists every pipeline stage in a content-addressed checkpoint store.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}

			level := zerolog.InfoLevel
			if opts.Verbose {
				level = zerolog.DebugLevel
			}
			opts.Log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
				Level(level).
				With().Timestamp().Logger()
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.Workspace, "workspace", "w", "workspace", "workspace directory")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewCheckpointsCommand(opts))
	cmd.AddCommand(NewDecisionsCommand(opts))
	cmd.AddCommand(NewStatsCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// Execute runs the root command and returns a process exit code.
func Execute() int {
	cmd := NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return GetExitCode(err)
	}
	return ExitSuccess
}
