package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"bracketeer/internal/config"
	"bracketeer/internal/faults"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv(config.PatternEnvVar, "")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantState := filepath.Join(tempHome, ".local", "share", "bracketeer")
	if cfg.Paths.StateDir != wantState {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Paths.StateDir, wantState)
	}
	if cfg.DatabasePath() != filepath.Join(wantState, "bracketeer.db") {
		t.Fatalf("unexpected database path: %q", cfg.DatabasePath())
	}
	if cfg.MaxIntraGap() != 2*time.Second {
		t.Fatalf("unexpected gap: %v", cfg.MaxIntraGap())
	}
	if cfg.Detection.AcceptanceThreshold != 0.9 || cfg.Detection.MinGroupSize != 2 {
		t.Fatalf("unexpected detection defaults: %+v", cfg.Detection)
	}
	if cfg.Organize.Action != config.ActionMove || cfg.Organize.Ambiguous != config.AmbiguousReview {
		t.Fatalf("unexpected organize defaults: %+v", cfg.Organize)
	}
	if cfg.Scan.Workers < 1 {
		t.Fatalf("expected positive worker count, got %d", cfg.Scan.Workers)
	}
}

func TestLoadReadsFileAndNormalizes(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "bracketeer.toml")
	content := `
[detection]
pattern = "0/10, -20/10, 20/10"
match_mode = "MULTISET"
ev_mode = "delta"

[scan]
extensions = [".ARW", "arw", " nef "]
workers = 0

[organize]
folder_naming = "Timestamp"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected file to be used, got %q exists=%v", resolved, exists)
	}
	if cfg.Detection.MatchMode != "multiset" || cfg.Detection.EVMode != "delta" {
		t.Fatalf("unexpected modes: %+v", cfg.Detection)
	}
	if strings.Join(cfg.Scan.Extensions, ",") != "arw,nef" {
		t.Fatalf("unexpected extensions: %v", cfg.Scan.Extensions)
	}
	if cfg.Scan.Workers < 1 {
		t.Fatalf("workers not normalized: %d", cfg.Scan.Workers)
	}
	if cfg.Organize.FolderNaming != config.NamingTimestamp {
		t.Fatalf("unexpected folder naming: %q", cfg.Organize.FolderNaming)
	}
}

func TestPatternEnvFallback(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv(config.PatternEnvVar, "-1, 0, +1")

	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Detection.Pattern != "-1, 0, +1" {
		t.Fatalf("expected env pattern, got %q", cfg.Detection.Pattern)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("[detection]\ntolerence = 0.2\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	_, _, _, err := config.Load(path)
	if !errors.Is(err, faults.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{name: "tolerance", mutate: func(c *config.Config) { c.Detection.ToleranceEV = 0 }, want: "tolerance_ev"},
		{name: "gap", mutate: func(c *config.Config) { c.Detection.MaxIntraGapSeconds = -1 }, want: "max_intra_gap_seconds"},
		{name: "threshold", mutate: func(c *config.Config) { c.Detection.AcceptanceThreshold = 1.5 }, want: "acceptance_threshold"},
		{name: "match mode", mutate: func(c *config.Config) { c.Detection.MatchMode = "fuzzy" }, want: "match_mode"},
		{name: "pattern", mutate: func(c *config.Config) { c.Detection.Pattern = "0, two" }, want: "detection.pattern"},
		{name: "action", mutate: func(c *config.Config) { c.Organize.Action = "copy" }, want: "organize.action"},
		{name: "review dir", mutate: func(c *config.Config) { c.Organize.ReviewDir = "../elsewhere" }, want: "review_dir"},
		{name: "log format", mutate: func(c *config.Config) { c.Logging.Format = "xml" }, want: "logging.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}

func TestSavedPatternKeyword(t *testing.T) {
	cfg := config.Default()
	cfg.Detection.Pattern = "LAST"
	if !cfg.UsesSavedPattern() {
		t.Fatal("expected saved pattern keyword to be recognized")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
}

func TestCreateSampleDecodes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var cfg config.Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("sample config does not decode: %v", err)
	}
	if cfg.Detection.Pattern != "0, -2, +2" {
		t.Fatalf("unexpected sample pattern %q", cfg.Detection.Pattern)
	}
}
