package organizer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"bracketeer/internal/config"
	"bracketeer/internal/faults"
	"bracketeer/internal/fileutil"
	"bracketeer/internal/logging"
	"bracketeer/internal/preflight"
	"bracketeer/internal/runinfo"
	"bracketeer/internal/store"
)

// Journal persists runs and their moves.
type Journal interface {
	CreateRun(ctx context.Context, run *store.Run) error
	FinishRun(ctx context.Context, id string, status store.RunStatus, groupCount, moveCount int, runErr error) error
	SetRunStatus(ctx context.Context, id string, status store.RunStatus) error
	GetRun(ctx context.Context, id string) (*store.Run, error)
	LatestUndoableRun(ctx context.Context, directory string) (*store.Run, error)
	AddMove(ctx context.Context, move *store.Move) error
	SetMoveState(ctx context.Context, id int64, state store.MoveState) error
	ListMoves(ctx context.Context, runID string) ([]store.Move, error)
}

// Organizer applies layouts and undoes journaled runs.
type Organizer struct {
	cfg     *config.Config
	journal Journal
	logger  *slog.Logger
}

// Outcome summarizes an applied layout.
type Outcome struct {
	RunID         string
	Groups        int
	Moved         int
	Folders       []string
	SequencesPath string
}

// New constructs an organizer.
func New(cfg *config.Config, journal Journal, logger *slog.Logger) *Organizer {
	return &Organizer{cfg: cfg, journal: journal, logger: logging.NewComponentLogger(logger, "organizer")}
}

// Apply executes the layout under the directory lock.
func (o *Organizer) Apply(ctx context.Context, l *Layout) (Outcome, error) {
	if l == nil {
		return Outcome{}, faults.Wrap(faults.ErrValidation, "organize", "apply", "layout is nil", nil)
	}
	unlock, err := o.lock(l.Directory)
	if err != nil {
		return Outcome{}, err
	}
	defer unlock()

	ctx = runinfo.WithStage(runinfo.WithDirectory(ctx, l.Directory), "organize")
	if l.Action == config.ActionTextfile {
		return o.writeSequences(ctx, l)
	}
	return o.move(ctx, l)
}

func (o *Organizer) move(ctx context.Context, l *Layout) (Outcome, error) {
	if err := preflight.Err(preflight.RunAll(o.cfg, l.Directory)); err != nil {
		return Outcome{}, err
	}
	logger := logging.WithContext(ctx, o.logger)
	if err := ValidateLayout(l, logger); err != nil {
		return Outcome{}, err
	}
	if o.journal == nil {
		return Outcome{}, faults.Wrap(faults.ErrConfiguration, "organize", "apply", "move action needs a journal", nil)
	}

	run := &store.Run{Directory: l.Directory, Action: l.Action, Pattern: l.Pattern}
	if id, ok := runinfo.RunIDFromContext(ctx); ok {
		run.ID = id
	}
	if err := o.journal.CreateRun(ctx, run); err != nil {
		return Outcome{}, faults.Wrap(faults.ErrIO, "organize", "create run", "journal unavailable", err)
	}
	ctx = runinfo.WithRunID(ctx, run.ID)
	logger = logging.WithContext(ctx, o.logger)
	logger.Info("organize started",
		logging.Int("groups", len(l.Folders)),
		logging.Int("skipped", len(l.Skipped)),
		logging.String("pattern", l.Pattern),
	)

	outcome := Outcome{RunID: run.ID, Groups: len(l.Folders)}
	finish := func(status store.RunStatus, runErr error) error {
		if err := o.journal.FinishRun(context.WithoutCancel(ctx), run.ID, status, outcome.Groups, outcome.Moved, runErr); err != nil {
			logging.WarnWithContext(logger, "failed to finish run", "run_finish_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "run status may show running; undo still works"),
			)
		}
		return runErr
	}

	for _, folder := range l.Folders {
		if err := os.MkdirAll(folder.Path, 0o755); err != nil {
			return outcome, finish(store.RunFailed, faults.Wrap(faults.ErrIO, "organize", "create folder", folder.Path, err))
		}
		outcome.Folders = append(outcome.Folders, folder.Path)
		for _, src := range folder.Members {
			if err := ctx.Err(); err != nil {
				return outcome, finish(store.RunFailed, err)
			}
			dst := filepath.Join(folder.Path, filepath.Base(src))
			if err := o.moveOne(ctx, logger, run.ID, folder.Group, src, dst); err != nil {
				return outcome, finish(store.RunFailed, err)
			}
			outcome.Moved++
		}
	}

	logger.Info("organize complete",
		logging.Int("groups", outcome.Groups),
		logging.Int("moved", outcome.Moved),
	)
	return outcome, finish(store.RunCompleted, nil)
}

// moveOne journals the move as pending before touching the file.
func (o *Organizer) moveOne(ctx context.Context, logger *slog.Logger, runID string, group int, src, dst string) error {
	entry := &store.Move{RunID: runID, GroupIndex: group, Source: src, Destination: dst}
	if err := o.journal.AddMove(ctx, entry); err != nil {
		return faults.Wrap(faults.ErrIO, "organize", "journal move", src, err)
	}

	moveErr := fileutil.MoveFile(src, dst)
	if errors.Is(moveErr, fileutil.ErrSourceRemains) {
		logging.WarnWithContext(logger, "source remains after cross-device copy", "move_source_cleanup_failed",
			logging.String("source", src),
			logging.Error(moveErr),
			logging.String(logging.FieldErrorHint, "delete the source file manually"),
			logging.String(logging.FieldImpact, "duplicate file exists in the photo directory"),
		)
		moveErr = nil
	}
	state := store.MoveDone
	if moveErr != nil {
		state = store.MoveFailed
	}
	if err := o.journal.SetMoveState(context.WithoutCancel(ctx), entry.ID, state); err != nil && moveErr == nil {
		return faults.Wrap(faults.ErrIO, "organize", "journal move", dst, err)
	}
	if moveErr != nil {
		logging.ErrorWithContext(logger, "move failed", "move_failed",
			logging.String("source", src),
			logging.String("destination", dst),
			logging.Error(moveErr),
			logging.String(logging.FieldErrorHint, "run bracketeer undo to restore moved files"),
		)
		return faults.Wrap(faults.ErrIO, "organize", "move file", src, moveErr)
	}
	logger.Debug("moved", logging.String("source", src), logging.String("destination", dst))
	return nil
}

// writeSequences appends one block per group to the sequences file.
func (o *Organizer) writeSequences(ctx context.Context, l *Layout) (Outcome, error) {
	outcome := Outcome{Groups: len(l.Folders), SequencesPath: l.SequencesPath}
	if len(l.Folders) == 0 {
		return outcome, nil
	}
	info, err := os.Stat(l.SequencesPath)
	needsSeparator := err == nil && info.Size() > 0

	f, err := os.OpenFile(l.SequencesPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return Outcome{}, faults.Wrap(faults.ErrIO, "organize", "open sequences file", l.SequencesPath, err)
	}
	defer f.Close()

	if _, err := f.WriteString(formatSequences(l.Folders, needsSeparator)); err != nil {
		return Outcome{}, faults.Wrap(faults.ErrIO, "organize", "write sequences file", l.SequencesPath, err)
	}
	if err := f.Close(); err != nil {
		return Outcome{}, faults.Wrap(faults.ErrIO, "organize", "close sequences file", l.SequencesPath, err)
	}
	logging.WithContext(ctx, o.logger).Info("sequences written",
		logging.String("path", l.SequencesPath),
		logging.Int("groups", outcome.Groups),
	)
	return outcome, nil
}

func formatSequences(folders []Folder, leadingBlank bool) string {
	var out []byte
	for i, folder := range folders {
		if i > 0 || leadingBlank {
			out = append(out, '\n')
		}
		for _, path := range folder.Members {
			out = append(out, path...)
			out = append(out, '\n')
		}
	}
	return string(out)
}

// lock takes the per-directory lock under the state directory.
func (o *Organizer) lock(dir string) (func(), error) {
	lockDir := filepath.Join(o.cfg.Paths.StateDir, "locks")
	if err := os.MkdirAll(lockDir, 0o755); err != nil {
		return nil, faults.Wrap(faults.ErrIO, "organize", "lock", "create lock directory", err)
	}
	lockPath := LockPath(o.cfg.Paths.StateDir, dir)
	fl := flock.New(lockPath)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, faults.Wrap(faults.ErrIO, "organize", "lock", fmt.Sprintf("acquire %s", lockPath), err)
	}
	if !ok {
		return nil, faults.Wrap(faults.ErrLocked, "organize", "lock",
			fmt.Sprintf("another bracketeer run is organizing %s", dir), nil)
	}
	return func() {
		if err := fl.Unlock(); err != nil {
			o.logger.Warn("failed to release directory lock", logging.Error(err), logging.String("lock", lockPath))
		}
	}, nil
}

// LockPath returns the lock file guarding dir.
func LockPath(stateDir, dir string) string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = dir
	}
	sum := sha256.Sum256([]byte(filepath.Clean(abs)))
	return filepath.Join(stateDir, "locks", hex.EncodeToString(sum[:8])+".lock")
}
