package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"bracketeer/internal/config"
	"bracketeer/internal/testsupport"
)

var shotStart = time.Date(2025, 1, 2, 15, 4, 5, 0, time.UTC)

type cliTestEnv struct {
	configPath string
	stateDir   string
	photoDir   string
	baseDir    string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Setenv(config.PatternEnvVar, "")

	env := &cliTestEnv{
		configPath: filepath.Join(homeDir, ".config", "bracketeer", "config.toml"),
		stateDir:   filepath.Join(base, "state"),
		photoDir:   filepath.Join(base, "photos"),
		baseDir:    base,
	}
	if err := os.MkdirAll(env.photoDir, 0o755); err != nil {
		t.Fatalf("mkdir photos: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(env.configPath), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	writeTestConfig(t, env.configPath, env.stateDir)
	return env
}

func writeTestConfig(t *testing.T, path, stateDir string) {
	t.Helper()
	content := fmt.Sprintf(
		"[paths]\nstate_dir = %q\nlog_dir = \"\"\n\n[detection]\npattern = \"-2, 0, +2\"\n\n[scan]\nworkers = 2\n\n[logging]\nlevel = \"error\"\n",
		stateDir,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

// writeBrackets writes two complete -2, 0, +2 brackets a minute apart.
func (e *cliTestEnv) writeBrackets(t *testing.T) {
	t.Helper()
	testsupport.WriteBracket(t, e.photoDir, "IMG", 1, shotStart, -6, 0, 6)
	testsupport.WriteBracket(t, e.photoDir, "IMG", 4, shotStart.Add(time.Minute), -6, 0, 6)
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
