package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spoolhq/spool/internal/store"
)

// NewStatsCommand creates the "stats" command: summarize workspace contents
// from the catalog.
func NewStatsCommand(opts *RootOptions) *cobra.Command {
	var rebuild bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize workspace blobs and checkpoints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.Open(opts.Workspace)
			if err != nil {
				return WrapExitError(ExitCommandError, "opening workspace", err)
			}
			defer st.Close()

			if rebuild {
				if err := st.RebuildCatalog(); err != nil {
					return WrapExitError(ExitFailure, "rebuilding catalog", err)
				}
			}

			stats, err := st.Catalog().Stats()
			if err != nil {
				return WrapExitError(ExitFailure, "reading catalog", err)
			}

			if opts.Format == "json" {
				formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
				return formatter.Success(stats)
			}
			fmt.Fprintf(cmd.OutOrStdout(),
				"objects: %d\nsequences: %d\ncheckpoints: %d\ntotal bytes: %d\n",
				stats.Objects, stats.Sequences, stats.Checkpoints, stats.TotalBytes)
			return nil
		},
	}

	cmd.Flags().BoolVar(&rebuild, "rebuild", false, "re-derive the catalog from the workspace directories first")

	return cmd
}
