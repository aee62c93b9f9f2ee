package testsupport

import (
	"path/filepath"
	"testing"

	"bracketeer/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = ""
	cfgVal.Detection.Pattern = "-2, 0, +2"
	cfgVal.Scan.Workers = 2

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return builder.cfg
}

// WithPattern sets detection.pattern.
func WithPattern(list string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Detection.Pattern = list
	}
}

// WithMatchMode sets detection.match_mode.
func WithMatchMode(mode string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Detection.MatchMode = mode
	}
}

// WithAction sets organize.action.
func WithAction(action string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Organize.Action = action
	}
}

// WithConfig applies an arbitrary mutation.
func WithConfig(mutate func(*config.Config)) ConfigOption {
	return func(b *configBuilder) {
		mutate(b.cfg)
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
