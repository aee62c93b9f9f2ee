package config

import (
	"fmt"
	"os"
	"runtime"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeDetection()
	c.normalizeScan()
	c.normalizeOrganize()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeDetection() {
	c.Detection.Pattern = strings.TrimSpace(c.Detection.Pattern)
	if c.Detection.Pattern == "" {
		if value, ok := os.LookupEnv(PatternEnvVar); ok {
			c.Detection.Pattern = strings.TrimSpace(value)
		}
	}
	c.Detection.MatchMode = lowerOr(c.Detection.MatchMode, defaultMatchMode)
	c.Detection.EVMode = lowerOr(c.Detection.EVMode, defaultEVMode)
}

func (c *Config) normalizeScan() {
	seen := make(map[string]struct{}, len(c.Scan.Extensions))
	exts := make([]string, 0, len(c.Scan.Extensions))
	for _, ext := range c.Scan.Extensions {
		ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if ext == "" {
			continue
		}
		if _, ok := seen[ext]; ok {
			continue
		}
		seen[ext] = struct{}{}
		exts = append(exts, ext)
	}
	c.Scan.Extensions = exts
	if c.Scan.Workers <= 0 {
		c.Scan.Workers = runtime.NumCPU()
	}
}

func (c *Config) normalizeOrganize() {
	c.Organize.Action = lowerOr(c.Organize.Action, defaultAction)
	c.Organize.FolderNaming = lowerOr(c.Organize.FolderNaming, defaultFolderNaming)
	c.Organize.Ambiguous = lowerOr(c.Organize.Ambiguous, defaultAmbiguous)
	c.Organize.ReviewDir = strings.TrimSpace(c.Organize.ReviewDir)
	if c.Organize.ReviewDir == "" {
		c.Organize.ReviewDir = defaultReviewDir
	}
	c.Organize.SequencesFile = strings.TrimSpace(c.Organize.SequencesFile)
	if c.Organize.SequencesFile == "" {
		c.Organize.SequencesFile = defaultSequencesFile
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = lowerOr(c.Logging.Format, defaultLogFormat)
	c.Logging.Level = lowerOr(c.Logging.Level, defaultLogLevel)
}

func lowerOr(value, fallback string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return fallback
	}
	return value
}
