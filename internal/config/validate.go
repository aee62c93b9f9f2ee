package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"bracketeer/internal/pattern"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateDetection(); err != nil {
		return err
	}
	if err := c.validateScan(); err != nil {
		return err
	}
	if err := c.validateOrganize(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateDetection() error {
	d := c.Detection
	if _, err := pattern.ParseMatchMode(d.MatchMode); err != nil {
		return fmt.Errorf("detection.match_mode: %w", err)
	}
	if _, err := pattern.ParseEVMode(d.EVMode); err != nil {
		return fmt.Errorf("detection.ev_mode: %w", err)
	}
	if !(d.ToleranceEV > 0) {
		return errors.New("detection.tolerance_ev must be positive")
	}
	if !(d.MaxIntraGapSeconds > 0) {
		return errors.New("detection.max_intra_gap_seconds must be positive")
	}
	if !(d.AcceptanceThreshold > 0) || d.AcceptanceThreshold > 1 {
		return errors.New("detection.acceptance_threshold must be in (0, 1]")
	}
	if d.AuxWeight < 0 || d.AuxWeight > 1 {
		return errors.New("detection.aux_weight must be between 0 and 1")
	}
	if d.MinGroupSize < 1 {
		return errors.New("detection.min_group_size must be at least 1")
	}
	if d.Pattern != "" && !c.UsesSavedPattern() {
		if _, err := pattern.Parse(d.Pattern); err != nil {
			return fmt.Errorf("detection.pattern: %w", err)
		}
	}
	return nil
}

func (c *Config) validateScan() error {
	if len(c.Scan.Extensions) == 0 {
		return errors.New("scan.extensions must list at least one extension")
	}
	if c.Scan.Workers < 1 {
		return errors.New("scan.workers must be at least 1")
	}
	return nil
}

func (c *Config) validateOrganize() error {
	o := c.Organize
	switch o.Action {
	case ActionMove, ActionTextfile:
	default:
		return fmt.Errorf("organize.action: unsupported value %q", o.Action)
	}
	switch o.FolderNaming {
	case NamingFirstFile, NamingSequence, NamingTimestamp:
	default:
		return fmt.Errorf("organize.folder_naming: unsupported value %q", o.FolderNaming)
	}
	switch o.Ambiguous {
	case AmbiguousReview, AmbiguousGroup, AmbiguousSkip:
	default:
		return fmt.Errorf("organize.ambiguous: unsupported value %q", o.Ambiguous)
	}
	if err := plainName("organize.review_dir", o.ReviewDir); err != nil {
		return err
	}
	return plainName("organize.sequences_file", o.SequencesFile)
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

// plainName rejects values that would escape the scanned directory.
func plainName(key, value string) error {
	if value == "." || value == ".." || strings.ContainsAny(value, `/\`) || filepath.IsAbs(value) {
		return fmt.Errorf("%s must be a plain name inside the scanned directory, got %q", key, value)
	}
	return nil
}
