package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"bracketeer/internal/exposure"
	"bracketeer/internal/extract"
	"bracketeer/internal/pattern"
	"bracketeer/internal/store"
)

const defaultDiscoverLimit = 30

func newDiscoverCommand(ctx *commandContext) *cobra.Command {
	var (
		dir     string
		limit   int
		save    bool
		jsonOut bool
	)

	cmd := &cobra.Command{
		Use:   "discover [FILE...]",
		Short: "Propose a bracket pattern from a sample of shots",
		Long: "Reads the exposure bias of the given files, or of the first --limit files of --dir,\n" +
			"clusters the values and prints the candidate pattern. Nothing is saved unless --save is passed.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if (dir == "") == (len(args) == 0) {
				return errors.New("pass either --dir or one or more files")
			}
			cfg, logger, err := ctx.setup(cmd, nil)
			if err != nil {
				return err
			}
			paths := args
			if dir != "" {
				listed, err := extract.List(dir, cfg.Scan.Extensions)
				if err != nil {
					return err
				}
				if limit > 0 && len(listed) > limit {
					listed = listed[:limit]
				}
				paths = listed
			}

			return ctx.withStore(func(st *store.Store) error {
				scanner := newScanner(cfg, st, logger)
				res, err := scanner.ScanFiles(cmd.Context(), paths)
				if err != nil {
					return err
				}
				candidate, err := pattern.Discover(res.Records, cfg.Detection.ToleranceEV)
				if err != nil {
					return err
				}
				list := pattern.Format(candidate.Offsets)
				if save {
					if err := st.SaveLastPattern(cmd.Context(), list); err != nil {
						return err
					}
				}
				if jsonOut {
					return writeJSON(cmd, struct {
						Pattern  string            `json:"pattern"`
						Clusters []pattern.Cluster `json:"clusters"`
						Skipped  int               `json:"skipped"`
						Failed   int               `json:"failed"`
						Saved    bool              `json:"saved"`
					}{list, candidate.Clusters, candidate.Skipped, len(res.Failures), save})
				}
				printCandidate(cmd, res.Records, candidate)
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "\nCandidate pattern: %s\n", list)
				if len(res.Failures) > 0 {
					fmt.Fprintf(out, "%s could not be read\n", plural(len(res.Failures), "file"))
				}
				if save {
					fmt.Fprintln(out, `Saved; use --pattern last or detection.pattern = "last"`)
				} else {
					fmt.Fprintln(out, "Pass --save to keep it as the last-used pattern")
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", "", "Sample the first files of this directory")
	cmd.Flags().IntVar(&limit, "limit", defaultDiscoverLimit, "Number of files sampled from --dir")
	cmd.Flags().BoolVar(&save, "save", false, "Store the candidate as the last-used pattern")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func printCandidate(cmd *cobra.Command, records []exposure.Record, candidate pattern.Candidate) {
	ordered := append([]exposure.Record(nil), records...)
	exposure.Sort(ordered)
	rows := make([][]string, 0, len(candidate.Clusters))
	for _, c := range candidate.Clusters {
		first := ""
		if c.FirstIndex >= 0 && c.FirstIndex < len(ordered) {
			first = filepath.Base(ordered[c.FirstIndex].FileID)
		}
		rows = append(rows, []string{
			pattern.Format([]float64{c.Center}),
			fmt.Sprintf("%d", c.Members),
			first,
		})
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable(
		[]string{"Level", "Shots", "First shot"},
		rows,
		[]columnAlignment{alignRight, alignRight, alignLeft},
	))
	if candidate.Skipped > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "%s without exposure bias ignored\n", plural(candidate.Skipped, "shot"))
	}
}
