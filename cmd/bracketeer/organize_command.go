package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"bracketeer/internal/config"
	"bracketeer/internal/organizer"
	"bracketeer/internal/store"
)

func newOrganizeCommand(ctx *commandContext) *cobra.Command {
	var (
		flags   detectionFlags
		dryRun  bool
		action  string
		naming  string
		jsonOut bool
	)

	cmd := &cobra.Command{
		Use:   "organize DIR",
		Short: "Move each bracket into its own folder, or export sequences",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := ctx.setup(cmd, &flags)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("action") {
				cfg.Organize.Action = strings.ToLower(strings.TrimSpace(action))
			}
			if cmd.Flags().Changed("naming") {
				cfg.Organize.FolderNaming = strings.ToLower(strings.TrimSpace(naming))
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid organize options: %w", err)
			}

			return ctx.withStore(func(st *store.Store) error {
				runCtx, report, err := planDirectory(cmd.Context(), cmd, cfg, st, logger, args[0])
				if err != nil {
					return err
				}
				layout, err := organizer.NewLayout(cfg, report)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if dryRun {
					if jsonOut {
						return writeJSON(cmd, layout)
					}
					printReportSummary(out, report)
					printLayout(out, layout)
					fmt.Fprintln(out, "\nDry run: nothing was changed")
					return nil
				}

				outcome, err := organizer.New(cfg, st, logger).Apply(runCtx, layout)
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, outcome)
				}
				printReportSummary(out, report)
				printOutcome(out, layout, outcome)
				return nil
			})
		},
	}

	flags.bind(cmd)
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "Show what would happen without moving files")
	cmd.Flags().StringVar(&action, "action", "", "move or textfile")
	cmd.Flags().StringVar(&naming, "naming", "", "Folder naming: first-file, sequence or timestamp")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func printLayout(out io.Writer, layout *organizer.Layout) {
	verb := "move into"
	if layout.Action == config.ActionTextfile {
		verb = "append to " + layout.SequencesPath
	}
	if len(layout.Folders) > 0 {
		rows := make([][]string, 0, len(layout.Folders))
		for _, f := range layout.Folders {
			target := f.Name
			if f.Path != "" {
				rel, err := filepath.Rel(layout.Directory, f.Path)
				if err == nil {
					target = rel
				}
			}
			rows = append(rows, []string{
				fmt.Sprintf("%d", f.Group),
				f.Completeness.String(),
				fmt.Sprintf("%d", len(f.Members)),
				target,
			})
		}
		fmt.Fprintf(out, "\nWould %s:\n", verb)
		fmt.Fprintln(out, renderTable(
			[]string{"#", "Status", "Shots", "Folder"},
			rows,
			[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft},
		))
	}
	for _, s := range layout.Skipped {
		fmt.Fprintf(out, "Skipping group %d (%s): %s\n", s.Group, s.Completeness, s.Reason)
	}
}

func printOutcome(out io.Writer, layout *organizer.Layout, outcome organizer.Outcome) {
	fmt.Fprintln(out)
	if layout.Action == config.ActionTextfile {
		fmt.Fprintf(out, "Appended %s to %s\n", plural(outcome.Groups, "group"), outcome.SequencesPath)
		return
	}
	fmt.Fprintf(out, "Moved %s into %s (run %s)\n",
		plural(outcome.Moved, "file"), plural(len(outcome.Folders), "folder"), shortID(outcome.RunID))
	if len(layout.Skipped) > 0 {
		fmt.Fprintf(out, "Left %s in place\n", plural(len(layout.Skipped), "group"))
	}
	if outcome.Moved > 0 {
		fmt.Fprintln(out, "Undo with: bracketeer undo "+outcome.RunID)
	}
}
