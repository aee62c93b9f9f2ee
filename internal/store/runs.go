package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RunStatus is the lifecycle state of an organize run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
	RunUndone    RunStatus = "undone"
)

// MoveState is the lifecycle state of one journaled file move.
type MoveState string

const (
	// MovePending is recorded before the rename is attempted.
	MovePending MoveState = "pending"
	MoveDone    MoveState = "done"
	MoveFailed  MoveState = "failed"
	MoveUndone  MoveState = "undone"
)

// Run is one organize invocation.
type Run struct {
	ID           string
	Directory    string
	Action       string
	Pattern      string
	Status       RunStatus
	GroupCount   int
	MoveCount    int
	StartedAt    time.Time
	FinishedAt   time.Time
	ErrorMessage string
}

// Move is one journaled file relocation.
type Move struct {
	ID          int64
	RunID       string
	GroupIndex  int
	Source      string
	Destination string
	State       MoveState
	UpdatedAt   time.Time
}

const runColumns = "id, directory, action, pattern, status, group_count, move_count, started_at, finished_at, error_message"

// CreateRun inserts a running run. An empty ID is replaced by a new UUID.
func (s *Store) CreateRun(ctx context.Context, run *Run) error {
	if run == nil {
		return errors.New("run is nil")
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	run.Status = RunRunning
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (`+runColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Directory, run.Action, run.Pattern, run.Status,
		run.GroupCount, run.MoveCount, formatTime(run.StartedAt), nil, nil,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// FinishRun records the final status and counters of a run.
func (s *Store) FinishRun(ctx context.Context, id string, status RunStatus, groupCount, moveCount int, runErr error) error {
	var message string
	if runErr != nil {
		message = runErr.Error()
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, group_count = ?, move_count = ?, finished_at = ?, error_message = ? WHERE id = ?`,
		status, groupCount, moveCount, formatTime(time.Now()), nullableString(message), id,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// SetRunStatus updates only the status of a run.
func (s *Store) SetRunStatus(ctx context.Context, id string, status RunStatus) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE runs SET status = ? WHERE id = ?`, status, id); err != nil {
		return fmt.Errorf("set run status: %w", err)
	}
	return nil
}

// GetRun fetches a run by id. A missing run yields nil without error.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// LatestUndoableRun returns the most recent run that moved files and has not
// been undone. An empty directory matches any directory.
func (s *Store) LatestUndoableRun(ctx context.Context, directory string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM runs
         WHERE status IN (?, ?, ?) AND (? = '' OR directory = ?)
         ORDER BY started_at DESC, rowid DESC LIMIT 1`,
		RunCompleted, RunFailed, RunRunning, directory, directory,
	)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest run: %w", err)
	}
	return run, nil
}

// ListRuns returns runs newest first. A limit of zero returns every run.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// AddMove journals a pending move and sets its ID.
func (s *Store) AddMove(ctx context.Context, move *Move) error {
	if move == nil {
		return errors.New("move is nil")
	}
	move.State = MovePending
	move.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO moves (run_id, group_index, source, destination, state, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		move.RunID, move.GroupIndex, move.Source, move.Destination, move.State, formatTime(move.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert move: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	move.ID = id
	return nil
}

// SetMoveState updates the state of a journaled move.
func (s *Store) SetMoveState(ctx context.Context, id int64, state MoveState) error {
	_, err := s.db.ExecContext(ctx, `UPDATE moves SET state = ?, updated_at = ? WHERE id = ?`,
		state, formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("set move state: %w", err)
	}
	return nil
}

// ListMoves returns the moves of a run in journal order.
func (s *Store) ListMoves(ctx context.Context, runID string) ([]Move, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, group_index, source, destination, state, updated_at
         FROM moves WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("list moves: %w", err)
	}
	defer rows.Close()

	var moves []Move
	for rows.Next() {
		var (
			m       Move
			state   string
			updated string
		)
		if err := rows.Scan(&m.ID, &m.RunID, &m.GroupIndex, &m.Source, &m.Destination, &state, &updated); err != nil {
			return nil, fmt.Errorf("scan move: %w", err)
		}
		m.State = MoveState(state)
		m.UpdatedAt = parseTime(updated)
		moves = append(moves, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate moves: %w", err)
	}
	return moves, nil
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		run      Run
		status   string
		started  string
		finished sql.NullString
		message  sql.NullString
	)
	if err := scanner.Scan(
		&run.ID, &run.Directory, &run.Action, &run.Pattern, &status,
		&run.GroupCount, &run.MoveCount, &started, &finished, &message,
	); err != nil {
		return nil, err
	}
	run.Status = RunStatus(status)
	run.StartedAt = parseTime(started)
	run.FinishedAt = parseTime(finished.String)
	run.ErrorMessage = message.String
	return &run, nil
}
