package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"bracketeer/internal/organizer"
	"bracketeer/internal/store"
)

const defaultRunsLimit = 20

type runJSON struct {
	ID         string `json:"id"`
	Directory  string `json:"directory"`
	Action     string `json:"action"`
	Pattern    string `json:"pattern"`
	Status     string `json:"status"`
	Groups     int    `json:"groups"`
	Moves      int    `json:"moves"`
	StartedAt  string `json:"started_at"`
	FinishedAt string `json:"finished_at,omitempty"`
	Error      string `json:"error,omitempty"`
}

func newRunsCommand(ctx *commandContext) *cobra.Command {
	var (
		limit   int
		jsonOut bool
	)

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded organize runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st *store.Store) error {
				runs, err := st.ListRuns(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if jsonOut {
					out := make([]runJSON, 0, len(runs))
					for _, r := range runs {
						item := runJSON{
							ID:        r.ID,
							Directory: r.Directory,
							Action:    r.Action,
							Pattern:   r.Pattern,
							Status:    string(r.Status),
							Groups:    r.GroupCount,
							Moves:     r.MoveCount,
							StartedAt: r.StartedAt.UTC().Format("2006-01-02T15:04:05Z"),
							Error:     r.ErrorMessage,
						}
						if !r.FinishedAt.IsZero() {
							item.FinishedAt = r.FinishedAt.UTC().Format("2006-01-02T15:04:05Z")
						}
						out = append(out, item)
					}
					return writeJSON(cmd, out)
				}
				if len(runs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded")
					return nil
				}
				rows := make([][]string, 0, len(runs))
				for _, r := range runs {
					rows = append(rows, []string{
						shortID(r.ID),
						humanize.Time(r.StartedAt),
						filepath.Base(r.Directory),
						string(r.Status),
						strconv.Itoa(r.GroupCount),
						strconv.Itoa(r.MoveCount),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Started", "Directory", "Status", "Groups", "Moves"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight},
				))
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", defaultRunsLimit, "Maximum number of runs shown")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func newUndoCommand(ctx *commandContext) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "undo [RUN]",
		Short: "Move the files of an organize run back",
		Long:  "Reverts the given run, or the latest undoable run (of --dir when set).",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := ctx.setup(cmd, nil)
			if err != nil {
				return err
			}
			if dir != "" {
				if dir, err = filepath.Abs(dir); err != nil {
					return fmt.Errorf("resolve directory: %w", err)
				}
			}
			return ctx.withStore(func(st *store.Store) error {
				runID := ""
				if len(args) == 1 {
					if runID, err = resolveRunID(cmd, st, args[0]); err != nil {
						return err
					}
				}
				outcome, err := organizer.New(cfg, st, logger).Undo(cmd.Context(), runID, dir)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Restored %s in %s (run %s)\n", plural(outcome.Restored, "file"), outcome.Directory, shortID(outcome.RunID))
				if outcome.Missing > 0 {
					fmt.Fprintf(out, "%s could not be found and stayed where they were\n", plural(outcome.Missing, "file"))
				}
				if n := len(outcome.RemovedFolders); n > 0 {
					fmt.Fprintf(out, "Removed %s\n", plural(n, "empty folder"))
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", "", "Undo the latest run of this directory")
	return cmd
}

// resolveRunID expands a short id prefix as printed by the runs table.
func resolveRunID(cmd *cobra.Command, st *store.Store, value string) (string, error) {
	value = strings.TrimSpace(value)
	if len(value) >= 36 {
		return value, nil
	}
	runs, err := st.ListRuns(cmd.Context(), 0)
	if err != nil {
		return "", err
	}
	var matches []string
	for _, r := range runs {
		if strings.HasPrefix(r.ID, value) {
			matches = append(matches, r.ID)
		}
	}
	switch len(matches) {
	case 0:
		return value, nil
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("run id %q is ambiguous (%d matches)", value, len(matches))
	}
}
