package main

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"bracketeer/internal/plan"
	"bracketeer/internal/segment"
	"bracketeer/internal/store"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	var (
		flags   detectionFlags
		jsonOut bool
		showAll bool
	)

	cmd := &cobra.Command{
		Use:   "scan DIR",
		Short: "Detect brackets in a directory without changing anything",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := ctx.setup(cmd, &flags)
			if err != nil {
				return err
			}
			return ctx.withStore(func(st *store.Store) error {
				_, report, err := planDirectory(cmd.Context(), cmd, cfg, st, logger, args[0])
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, newReportJSON(report))
				}
				out := cmd.OutOrStdout()
				printReportSummary(out, report)
				printGroups(out, report)
				if showAll {
					printEntries(out, report)
				}
				return nil
			})
		},
	}

	flags.bind(cmd)
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&showAll, "files", false, "List every file with its bucket")
	return cmd
}

func printReportSummary(out io.Writer, report *plan.Report) {
	counts := report.GroupCounts()
	residual := residualCounts(report)
	fmt.Fprintf(out, "Directory: %s\n", report.Directory)
	fmt.Fprintf(out, "Pattern:   %s (%s, %s)\n", report.Pattern, report.Pattern.Mode, report.Pattern.EVMode)
	fmt.Fprintf(out, "Files:     %d listed, %d cached, %d failed, %d without exposure bias\n",
		report.Listed, report.Cached, len(report.Failures), report.Missing)
	fmt.Fprintf(out, "Groups:    %d complete, %d partial, %d ambiguous\n",
		counts[segment.Complete], counts[segment.Partial], counts[segment.Ambiguous])
	fmt.Fprintf(out, "Residual:  %d%s\n", len(report.Residual), residual)
}

func residualCounts(report *plan.Report) string {
	counts := make(map[segment.Reason]int)
	for _, r := range report.Residual {
		counts[r.Reason]++
	}
	if len(counts) == 0 {
		return ""
	}
	reasons := make([]string, 0, len(counts))
	for reason := range counts {
		reasons = append(reasons, string(reason))
	}
	sort.Strings(reasons)
	parts := make([]string, len(reasons))
	for i, reason := range reasons {
		parts[i] = fmt.Sprintf("%s %d", reason, counts[segment.Reason(reason)])
	}
	return " (" + strings.Join(parts, ", ") + ")"
}

func printGroups(out io.Writer, report *plan.Report) {
	if len(report.Groups) == 0 {
		fmt.Fprintln(out, "\nNo brackets found")
		return
	}
	rows := make([][]string, 0, len(report.Groups))
	for _, g := range report.Groups {
		rows = append(rows, []string{
			fmt.Sprintf("%d", g.Index),
			filepath.Base(g.Members[0]),
			fmt.Sprintf("%d/%d", g.Len(), g.Pattern.Len()),
			g.Completeness.String(),
			fmt.Sprintf("%.2f", g.Score),
			g.Start().Local().Format("2006-01-02 15:04:05"),
		})
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, renderTable(
		[]string{"#", "First", "Shots", "Status", "Score", "Start"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft, alignRight, alignLeft},
	))
}

func printEntries(out io.Writer, report *plan.Report) {
	rows := make([][]string, 0, report.Listed)
	for _, e := range report.Entries() {
		group := ""
		if e.Group > 0 {
			group = fmt.Sprintf("%d", e.Group)
		}
		rows = append(rows, []string{filepath.Base(e.Path), string(e.Bucket), group, e.Reason})
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, renderTable(
		[]string{"File", "Bucket", "Group", "Reason"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
	))
}

type groupJSON struct {
	Index        int       `json:"index"`
	Completeness string    `json:"completeness"`
	Score        float64   `json:"score"`
	Start        time.Time `json:"start"`
	Members      []string  `json:"members"`
}

type entryJSON struct {
	Path   string `json:"path"`
	Bucket string `json:"bucket"`
	Group  int    `json:"group,omitempty"`
	Reason string `json:"reason,omitempty"`
}

type reportJSON struct {
	Directory string         `json:"directory"`
	Pattern   string         `json:"pattern"`
	MatchMode string         `json:"match_mode"`
	EVMode    string         `json:"ev_mode"`
	Listed    int            `json:"listed"`
	Cached    int            `json:"cached"`
	Missing   int            `json:"missing_bias"`
	Counts    map[string]int `json:"counts"`
	Groups    []groupJSON    `json:"groups"`
	Entries   []entryJSON    `json:"entries"`
}

func newReportJSON(report *plan.Report) reportJSON {
	out := reportJSON{
		Directory: report.Directory,
		Pattern:   report.Pattern.String(),
		MatchMode: report.Pattern.Mode.String(),
		EVMode:    report.Pattern.EVMode.String(),
		Listed:    report.Listed,
		Cached:    report.Cached,
		Missing:   report.Missing,
		Counts:    make(map[string]int),
		Groups:    make([]groupJSON, 0, len(report.Groups)),
	}
	for bucket, n := range report.Counts() {
		out.Counts[string(bucket)] = n
	}
	for _, g := range report.Groups {
		out.Groups = append(out.Groups, groupJSON{
			Index:        g.Index,
			Completeness: g.Completeness.String(),
			Score:        g.Score,
			Start:        g.Start(),
			Members:      g.Members,
		})
	}
	for _, e := range report.Entries() {
		out.Entries = append(out.Entries, entryJSON{Path: e.Path, Bucket: string(e.Bucket), Group: e.Group, Reason: e.Reason})
	}
	return out
}
