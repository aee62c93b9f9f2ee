package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"bracketeer/internal/config"
	"bracketeer/internal/extract"
	"bracketeer/internal/faults"
	"bracketeer/internal/pattern"
	"bracketeer/internal/plan"
	"bracketeer/internal/runinfo"
	"bracketeer/internal/store"
)

// detectionFlags override configuration for one invocation.
type detectionFlags struct {
	pattern         string
	matchMode       string
	evMode          string
	tolerance       float64
	maxGap          float64
	minGroupSize    int
	resync          bool
	autoBracketOnly bool
	workers         int
	noCache         bool
}

func (f *detectionFlags) bind(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVarP(&f.pattern, "pattern", "p", "", `EV pattern such as "0, -2, +2", or "last" for the saved candidate`)
	flags.StringVar(&f.matchMode, "match-mode", "", "ordered or multiset")
	flags.StringVar(&f.evMode, "ev-mode", "", "absolute or relative")
	flags.Float64Var(&f.tolerance, "tolerance", 0, "Tolerance in EV")
	flags.Float64Var(&f.maxGap, "max-gap", 0, "Maximum seconds between shots of one bracket")
	flags.IntVar(&f.minGroupSize, "min-group-size", 0, "Smallest group that is emitted")
	flags.BoolVar(&f.resync, "resync", false, "Retry rejected runs from their second shot")
	flags.BoolVar(&f.autoBracketOnly, "auto-bracket-only", false, "Ignore shots not taken in auto bracket mode")
	flags.IntVar(&f.workers, "workers", 0, "Metadata extraction workers (0 for one per CPU)")
	flags.BoolVar(&f.noCache, "no-cache", false, "Bypass the metadata cache")
}

// apply returns a copy of cfg with the changed flags applied and validated.
func (f *detectionFlags) apply(cmd *cobra.Command, cfg *config.Config) (*config.Config, error) {
	out := *cfg
	out.Scan.Extensions = append([]string(nil), cfg.Scan.Extensions...)
	flags := cmd.Flags()
	if flags.Changed("pattern") {
		out.Detection.Pattern = strings.TrimSpace(f.pattern)
	}
	if flags.Changed("match-mode") {
		out.Detection.MatchMode = strings.ToLower(strings.TrimSpace(f.matchMode))
	}
	if flags.Changed("ev-mode") {
		out.Detection.EVMode = strings.ToLower(strings.TrimSpace(f.evMode))
	}
	if flags.Changed("tolerance") {
		out.Detection.ToleranceEV = f.tolerance
	}
	if flags.Changed("max-gap") {
		out.Detection.MaxIntraGapSeconds = f.maxGap
	}
	if flags.Changed("min-group-size") {
		out.Detection.MinGroupSize = f.minGroupSize
	}
	if flags.Changed("resync") {
		out.Detection.Resync = f.resync
	}
	if flags.Changed("auto-bracket-only") {
		out.Scan.AutoBracketOnly = f.autoBracketOnly
	}
	if flags.Changed("workers") {
		out.Scan.Workers = f.workers
		if out.Scan.Workers <= 0 {
			out.Scan.Workers = runtime.NumCPU()
		}
	}
	if f.noCache {
		out.Scan.Cache = false
	}
	if err := out.Validate(); err != nil {
		return nil, faults.Wrap(faults.ErrConfiguration, "cli", "apply flags", "", err)
	}
	return &out, nil
}

// resolvePattern turns detection.pattern into offsets, reading the saved
// candidate for "last".
func resolvePattern(ctx context.Context, cfg *config.Config, st *store.Store) ([]float64, string, error) {
	list := cfg.Detection.Pattern
	if cfg.UsesSavedPattern() {
		saved, ok, err := st.LastPattern(ctx)
		if err != nil {
			return nil, "", err
		}
		if !ok {
			return nil, "", faults.Wrap(faults.ErrConfiguration, "cli", "resolve pattern",
				"no saved pattern; run `bracketeer discover --save` first", nil)
		}
		list = saved
	}
	if strings.TrimSpace(list) == "" {
		return nil, "", faults.Wrap(faults.ErrConfiguration, "cli", "resolve pattern",
			fmt.Sprintf("no pattern configured; set detection.pattern, %s, or --pattern", config.PatternEnvVar), nil)
	}
	offsets, err := pattern.Parse(list)
	if err != nil {
		return nil, "", err
	}
	return offsets, list, nil
}

func newScanner(cfg *config.Config, st *store.Store, logger *slog.Logger) *extract.Scanner {
	scanner := &extract.Scanner{
		Extractor:  extract.ExifExtractor{},
		Extensions: cfg.Scan.Extensions,
		Workers:    cfg.Scan.Workers,
		Logger:     logger,
	}
	if cfg.Scan.Cache && st != nil {
		scanner.Cache = st
	}
	return scanner
}

// planDirectory runs extraction and segmentation for dir and returns a
// context stamped with a fresh run id.
func planDirectory(ctx context.Context, cmd *cobra.Command, cfg *config.Config, st *store.Store, logger *slog.Logger, dir string) (context.Context, *plan.Report, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return ctx, nil, fmt.Errorf("resolve directory: %w", err)
	}
	offsets, _, err := resolvePattern(ctx, cfg, st)
	if err != nil {
		return ctx, nil, err
	}
	opts, err := plan.OptionsFromConfig(cfg, offsets, logger)
	if err != nil {
		return ctx, nil, err
	}

	ctx = runinfo.WithRunID(ctx, uuid.NewString())
	scanner := newScanner(cfg, st, logger)
	progressFn, stop := newScanProgress(cmd.ErrOrStderr(), "Reading metadata")
	scanner.Progress = progressFn
	planner := &plan.Planner{Scanner: scanner, Options: opts, Logger: logger}
	report, err := planner.Plan(ctx, abs)
	stop()
	if err != nil {
		return ctx, nil, err
	}
	return ctx, report, nil
}

// setup resolves config with flag overrides plus the logger.
func (c *commandContext) setup(cmd *cobra.Command, flags *detectionFlags) (*config.Config, *slog.Logger, error) {
	base, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	cfg := base
	if flags != nil {
		if cfg, err = flags.apply(cmd, base); err != nil {
			return nil, nil, err
		}
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
