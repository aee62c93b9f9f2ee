package organizer

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"bracketeer/internal/faults"
	"bracketeer/internal/logging"
)

// ValidateLayout verifies that every planned move stays inside the scanned
// directory, starts from an existing file, and lands on a free path.
// Nothing is moved when validation fails.
func ValidateLayout(l *Layout, logger *slog.Logger) error {
	if l == nil {
		return faults.Wrap(faults.ErrValidation, "organize", "validate layout", "layout is nil", nil)
	}
	root := filepath.Clean(l.Directory)
	seen := make(map[string]string)
	for _, m := range l.Moves() {
		if !within(root, m.Source) || !within(root, m.Destination) {
			return validationError(logger, "move_outside_directory",
				fmt.Sprintf("move %s -> %s leaves %s", m.Source, m.Destination, root))
		}
		if prev, ok := seen[m.Destination]; ok {
			return validationError(logger, "duplicate_destination",
				fmt.Sprintf("%s and %s both map to %s", prev, m.Source, m.Destination))
		}
		seen[m.Destination] = m.Source

		info, err := os.Stat(m.Source)
		if err != nil {
			return faults.Wrap(faults.ErrNotFound, "organize", "validate layout", "source missing", err)
		}
		if !info.Mode().IsRegular() {
			return validationError(logger, "source_not_regular", fmt.Sprintf("%s is not a regular file", m.Source))
		}
		if _, err := os.Lstat(m.Destination); err == nil {
			return validationError(logger, "destination_exists", fmt.Sprintf("%s already exists", m.Destination))
		} else if !errors.Is(err, os.ErrNotExist) {
			return faults.Wrap(faults.ErrIO, "organize", "validate layout", m.Destination, err)
		}
	}
	return nil
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

func validationError(logger *slog.Logger, eventType, message string) error {
	if logger != nil {
		logger.Error("layout validation failed",
			logging.String("reason", message),
			logging.String(logging.FieldEventType, eventType),
			logging.String(logging.FieldErrorHint, "rescan the directory; files may have changed since planning"),
		)
	}
	return faults.Wrap(faults.ErrValidation, "organize", "validate layout", message, nil)
}
