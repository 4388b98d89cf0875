package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/spoolhq/spool/internal/item"
	"github.com/spoolhq/spool/internal/pipeline"
	"github.com/spoolhq/spool/internal/store"
)

// NewRunCommand creates the "run" command: execute the pipeline over a
// normalized items file and save a checkpoint.
func NewRunCommand(opts *RootOptions) *cobra.Command {
	var configPath string
	var notes string

	cmd := &cobra.Command{
		Use:   "run <items.jsonl>",
		Short: "Group an item file into threads/conversations and checkpoint the run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := pipeline.DefaultConfig()
			if configPath != "" {
				loaded, err := pipeline.LoadConfig(configPath)
				if err != nil {
					return WrapExitError(ExitCommandError, "loading config", err)
				}
				cfg = loaded
			}
			cfg.Workspace = opts.Workspace
			if notes != "" {
				cfg.Notes = notes
			}
			cfg.SourceRefs = append(cfg.SourceRefs, args[0])

			items, skipped, err := loadItems(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "loading items", err)
			}
			if skipped > 0 {
				opts.Log.Warn().Int("skipped", skipped).Msg("malformed item lines skipped")
			}

			st, err := store.Open(cfg.Workspace)
			if err != nil {
				return WrapExitError(ExitCommandError, "opening workspace", err)
			}
			defer st.Close()

			result, err := pipeline.NewRunner(st, opts.Log).Run(items, cfg)
			if err != nil {
				return WrapExitError(ExitFailure, "pipeline run", err)
			}

			formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
			if opts.Format == "json" {
				return formatter.Success(result)
			}
			return formatter.Successf(
				"checkpoint %s: %d items -> %d filtered, %d threads, %d conversations",
				result.CheckpointID, result.ItemCount, result.FilteredCount,
				result.ThreadCount, result.ConversationCount,
			)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "pipeline config file (YAML)")
	cmd.Flags().StringVar(&notes, "notes", "", "notes to record on the checkpoint manifest")

	return cmd
}

// loadItems reads normalized items from a JSONL file, skipping malformed
// lines rather than failing the whole load.
func loadItems(path string) (items []item.ContentItem, skipped int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open items file: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var it item.ContentItem
		if err := json.Unmarshal(line, &it); err != nil {
			skipped++
			continue
		}
		items = append(items, it)
	}
	if err := sc.Err(); err != nil {
		return nil, 0, fmt.Errorf("read items file: %w", err)
	}

	return items, skipped, nil
}
