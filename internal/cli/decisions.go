package cli

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spoolhq/spool/internal/decision"
)

// NewDecisionsCommand creates the "decisions" command group.
func NewDecisionsCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decisions",
		Short: "Fold and inspect decision logs",
	}

	cmd.AddCommand(newDecisionsFoldCommand(opts))

	return cmd
}

func newDecisionsFoldCommand(opts *RootOptions) *cobra.Command {
	var allowed []string
	var idsStatus string

	cmd := &cobra.Command{
		Use:   "fold <log>",
		Short: "Fold a decision log into the latest-state-per-id view",
		Long: "Reads newline-delimited JSON decision records and prints one latest-state\n" +
			"aggregate per id. With --ids-status the input is instead a bare JSON array of\n" +
			"id strings, all assigned that status.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "opening decision log", err)
			}
			defer f.Close()

			var records []decision.Record
			if idsStatus != "" {
				records, err = decision.ReadIDList(f, idsStatus, "")
				if err != nil {
					return WrapExitError(ExitCommandError, "reading id list", err)
				}
			} else {
				var skipped int
				records, skipped, err = decision.ReadRecords(f)
				if err != nil {
					return WrapExitError(ExitCommandError, "reading decision log", err)
				}
				if skipped > 0 {
					opts.Log.Warn().Int("skipped", skipped).Msg("malformed decision records skipped")
				}
			}

			folded := decision.Fold(records, decision.FoldOptions{AllowedStatuses: allowed})

			if opts.Format == "json" {
				formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
				return formatter.Success(folded)
			}

			ids := make([]string, 0, len(folded))
			for id := range folded {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			for _, id := range ids {
				latest := folded[id]
				fmt.Fprintf(cmd.OutOrStdout(), "%s  status=%s  tags=%s  ts=%s\n",
					id, orDash(latest.Status), orDash(strings.Join(latest.Tags, ",")), orDash(latest.TS))
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&allowed, "allowed-statuses", nil, "restrict statuses to this set (others normalize to absent)")
	cmd.Flags().StringVar(&idsStatus, "ids-status", "", "treat input as a bare JSON id array, assigning this status")

	return cmd
}
