package organizer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"bracketeer/internal/faults"
	"bracketeer/internal/fileutil"
	"bracketeer/internal/logging"
	"bracketeer/internal/runinfo"
	"bracketeer/internal/store"
)

// UndoOutcome summarizes a reverted run.
type UndoOutcome struct {
	RunID          string
	Directory      string
	Restored       int
	Missing        int
	RemovedFolders []string
}

// Undo moves the files of a run back. An empty runID selects the latest
// undoable run, restricted to dir when dir is set.
func (o *Organizer) Undo(ctx context.Context, runID, dir string) (UndoOutcome, error) {
	if o.journal == nil {
		return UndoOutcome{}, faults.Wrap(faults.ErrConfiguration, "undo", "load run", "undo needs a journal", nil)
	}
	run, err := o.findRun(ctx, runID, dir)
	if err != nil {
		return UndoOutcome{}, err
	}

	unlock, err := o.lock(run.Directory)
	if err != nil {
		return UndoOutcome{}, err
	}
	defer unlock()

	ctx = runinfo.WithStage(runinfo.WithRunID(runinfo.WithDirectory(ctx, run.Directory), run.ID), "undo")
	logger := logging.WithContext(ctx, o.logger)

	moves, err := o.journal.ListMoves(ctx, run.ID)
	if err != nil {
		return UndoOutcome{}, faults.Wrap(faults.ErrIO, "undo", "list moves", run.ID, err)
	}

	outcome := UndoOutcome{RunID: run.ID, Directory: run.Directory}
	folders := make(map[string]bool)
	var failed []string
	for i := len(moves) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return outcome, err
		}
		m := moves[i]
		if m.State == store.MoveUndone || m.State == store.MoveFailed {
			continue
		}
		folders[filepath.Dir(m.Destination)] = true

		// A pending move may or may not have happened before the process died.
		if _, err := os.Lstat(m.Destination); errors.Is(err, os.ErrNotExist) {
			if _, srcErr := os.Lstat(m.Source); srcErr == nil && m.State == store.MovePending {
				_ = o.journal.SetMoveState(ctx, m.ID, store.MoveUndone)
				continue
			}
			outcome.Missing++
			logging.WarnWithContext(logger, "moved file is gone", "undo_file_missing",
				logging.String("destination", m.Destination),
				logging.String(logging.FieldErrorHint, "the file was moved or deleted after organizing"),
				logging.String(logging.FieldImpact, "file cannot be restored"),
			)
			continue
		}

		if err := fileutil.MoveFile(m.Destination, m.Source); err != nil && !errors.Is(err, fileutil.ErrSourceRemains) {
			failed = append(failed, m.Destination)
			logging.ErrorWithContext(logger, "restore failed", "undo_move_failed",
				logging.String("source", m.Destination),
				logging.String("destination", m.Source),
				logging.Error(err),
			)
			continue
		}
		if err := o.journal.SetMoveState(ctx, m.ID, store.MoveUndone); err != nil {
			return outcome, faults.Wrap(faults.ErrIO, "undo", "journal move", m.Destination, err)
		}
		outcome.Restored++
	}

	outcome.RemovedFolders = removeFolders(run.Directory, folders)

	if len(failed) > 0 {
		return outcome, faults.Wrap(faults.ErrIO, "undo", "restore files",
			fmt.Sprintf("%d files could not be restored", len(failed)), nil)
	}
	if err := o.journal.SetRunStatus(ctx, run.ID, store.RunUndone); err != nil {
		return outcome, faults.Wrap(faults.ErrIO, "undo", "mark run", run.ID, err)
	}
	logger.Info("undo complete",
		logging.Int("restored", outcome.Restored),
		logging.Int("missing", outcome.Missing),
		logging.Int("folders_removed", len(outcome.RemovedFolders)),
	)
	return outcome, nil
}

func (o *Organizer) findRun(ctx context.Context, runID, dir string) (*store.Run, error) {
	var (
		run *store.Run
		err error
	)
	if runID != "" {
		run, err = o.journal.GetRun(ctx, runID)
	} else {
		run, err = o.journal.LatestUndoableRun(ctx, dir)
	}
	if err != nil {
		return nil, faults.Wrap(faults.ErrIO, "undo", "load run", runID, err)
	}
	if run == nil {
		return nil, faults.Wrap(faults.ErrNotFound, "undo", "load run", "no undoable run found", nil)
	}
	if run.Status == store.RunUndone {
		return nil, faults.Wrap(faults.ErrValidation, "undo", "load run", fmt.Sprintf("run %s was already undone", run.ID), nil)
	}
	return run, nil
}

// removeFolders removes group folders that became empty, deepest first, and
// then their parents up to but excluding root.
func removeFolders(root string, folders map[string]bool) []string {
	root = filepath.Clean(root)
	candidates := make(map[string]bool)
	for dir := range folders {
		for d := filepath.Clean(dir); d != root && within(root, d); d = filepath.Dir(d) {
			candidates[d] = true
		}
	}
	ordered := make([]string, 0, len(candidates))
	for d := range candidates {
		ordered = append(ordered, d)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if len(ordered[i]) != len(ordered[j]) {
			return len(ordered[i]) > len(ordered[j])
		}
		return ordered[i] < ordered[j]
	})
	return fileutil.RemoveEmptyDirs(ordered...)
}
