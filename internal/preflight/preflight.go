package preflight

import (
	"fmt"
	"strings"

	"bracketeer/internal/config"
	"bracketeer/internal/faults"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll checks the photo directory and the state directory. The review
// directory is checked only when it already exists; it is created on demand.
func RunAll(cfg *config.Config, dir string) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Photo directory", dir),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
	}
	if cfg.Organize.Action == config.ActionTextfile {
		return results
	}
	if review := ReviewDir(cfg, dir); review != "" && exists(review) {
		results = append(results, CheckDirectoryAccess("Review directory", review))
	}
	return results
}

// Err folds failed results into a single faults.ErrIO error, nil when every
// check passed.
func Err(results []Result) error {
	var failed []string
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, fmt.Sprintf("%s: %s", r.Name, r.Detail))
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return faults.Wrap(faults.ErrIO, "preflight", "check directories", strings.Join(failed, "; "), nil)
}
