package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"bracketeer/internal/exposure"
	"bracketeer/internal/extract"
	"bracketeer/internal/store"
)

type exposureRow struct {
	File         string  `json:"file"`
	Bias         string  `json:"bias"`
	Stops        float64 `json:"stops,omitempty"`
	Mode         string  `json:"mode"`
	ExposureTime float64 `json:"exposure_time,omitempty"`
	FNumber      float64 `json:"f_number,omitempty"`
	ISO          int     `json:"iso,omitempty"`
	Taken        string  `json:"taken,omitempty"`
	Error        string  `json:"error,omitempty"`

	known bool
}

func newExposuresCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "exposures FILE...",
		Short: "Show exposure bias and exposure mode of individual files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := ctx.setup(cmd, nil)
			if err != nil {
				return err
			}
			return ctx.withStore(func(st *store.Store) error {
				res, err := newScanner(cfg, st, logger).ScanFiles(cmd.Context(), args)
				if err != nil {
					return err
				}
				rows := exposureRows(args, res)
				if jsonOut {
					return writeJSON(cmd, rows)
				}
				table := make([][]string, 0, len(rows))
				for _, r := range rows {
					stops := ""
					if r.known {
						stops = fmt.Sprintf("%+.2f", r.Stops)
					}
					table = append(table, []string{r.File, r.Bias, stops, r.Mode, r.Error})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"File", "Bias", "Stops", "Mode", "Error"},
					table,
					[]columnAlignment{alignLeft, alignRight, alignRight, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

// exposureRows keeps the argument order and reports every file once.
func exposureRows(paths []string, res extract.ScanResult) []exposureRow {
	records := make(map[string]exposure.Record, len(res.Records))
	for _, r := range res.Records {
		records[r.FileID] = r
	}
	failures := make(map[string]extract.Failure, len(res.Failures))
	for _, f := range res.Failures {
		failures[f.Path] = f
	}

	rows := make([]exposureRow, 0, len(paths))
	for _, path := range paths {
		row := exposureRow{File: filepath.Base(path), Bias: exposure.Unknown.String(), Mode: exposure.ModeUnknown.String()}
		if rec, ok := records[path]; ok {
			row.Mode = rec.Mode.String()
			row.ExposureTime = rec.ExposureTime
			row.FNumber = rec.FNumber
			row.ISO = rec.ISO
			if !rec.CapturedAt.IsZero() {
				row.Taken = rec.CapturedAt.Format("2006-01-02 15:04:05.000")
			}
			if rec.HasBias() {
				row.Bias = rec.Bias.String()
				row.Stops = rec.Bias.Float()
				row.known = true
			} else {
				row.Error = extract.MissingExposureTag.String()
			}
		} else if f, ok := failures[path]; ok {
			row.Error = f.Err.Error()
		}
		rows = append(rows, row)
	}
	return rows
}
