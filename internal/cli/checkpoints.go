package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spoolhq/spool/internal/store"
)

// NewCheckpointsCommand creates the "checkpoints" command group for
// inspecting the manifest ledger.
func NewCheckpointsCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkpoints",
		Short: "Inspect the checkpoint manifest ledger",
	}

	cmd.AddCommand(newCheckpointsListCommand(opts))
	cmd.AddCommand(newCheckpointsShowCommand(opts))
	cmd.AddCommand(newCheckpointsLatestCommand(opts))

	return cmd
}

func newCheckpointsListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all checkpoints, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.Open(opts.Workspace)
			if err != nil {
				return WrapExitError(ExitCommandError, "opening workspace", err)
			}
			defer st.Close()

			manifests, err := st.ListCheckpoints()
			if err != nil {
				return WrapExitError(ExitFailure, "listing checkpoints", err)
			}

			if opts.Format == "json" {
				formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
				return formatter.Success(manifests)
			}
			for _, m := range manifests {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  parent=%s  transforms=%d\n",
					m.CreatedAt, m.ID, orDash(m.ParentID), len(m.Transforms))
			}
			return nil
		},
	}
}

func newCheckpointsShowCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print one checkpoint manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.Open(opts.Workspace)
			if err != nil {
				return WrapExitError(ExitCommandError, "opening workspace", err)
			}
			defer st.Close()

			m, err := st.ReadCheckpoint(args[0])
			if err != nil {
				code := ExitFailure
				if store.IsNotFound(err) {
					code = ExitCommandError
				}
				return WrapExitError(code, "reading checkpoint", err)
			}

			return printManifest(cmd, opts, m)
		},
	}
}

func newCheckpointsLatestCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "latest",
		Short: "Print the most recent checkpoint manifest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.Open(opts.Workspace)
			if err != nil {
				return WrapExitError(ExitCommandError, "opening workspace", err)
			}
			defer st.Close()

			m, err := st.ResolveLatestCheckpoint()
			if err != nil {
				return WrapExitError(ExitFailure, "resolving latest checkpoint", err)
			}
			if m == nil {
				return WrapExitError(ExitCommandError, "no checkpoints in workspace", nil)
			}

			return printManifest(cmd, opts, m)
		},
	}
}

func printManifest(cmd *cobra.Command, opts *RootOptions, m *store.Manifest) error {
	if opts.Format == "json" {
		formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
		return formatter.Success(m)
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
