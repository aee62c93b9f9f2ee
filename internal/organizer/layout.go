package organizer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"bracketeer/internal/config"
	"bracketeer/internal/plan"
	"bracketeer/internal/segment"
	"bracketeer/internal/textutil"
)

const timestampFolderLayout = "20060102-150405"

// Folder is the destination of one group.
type Folder struct {
	Group        int
	Completeness segment.Completeness
	Name         string
	Path         string
	Review       bool
	Members      []string
}

// Skip is a group left in place.
type Skip struct {
	Group        int
	Completeness segment.Completeness
	Reason       string
	Members      []string
}

// Move is one planned rename.
type Move struct {
	Group       int
	Source      string
	Destination string
}

// Layout is the full set of actions one organize run would take.
type Layout struct {
	Directory     string
	Action        string
	Pattern       string
	Folders       []Folder
	Skipped       []Skip
	SequencesPath string
}

// Moves flattens the folders into renames in group order.
func (l *Layout) Moves() []Move {
	var moves []Move
	for _, f := range l.Folders {
		for _, src := range f.Members {
			moves = append(moves, Move{Group: f.Group, Source: src, Destination: filepath.Join(f.Path, filepath.Base(src))})
		}
	}
	return moves
}

// NewLayout decides where every group of report goes. It reads the
// directory to avoid folder names that already exist but changes nothing.
func NewLayout(cfg *config.Config, report *plan.Report) (*Layout, error) {
	if cfg == nil || report == nil {
		return nil, errors.New("organizer: config and report are required")
	}
	dir := report.Directory
	layout := &Layout{
		Directory: dir,
		Action:    cfg.Organize.Action,
		Pattern:   report.Pattern.String(),
	}
	if cfg.Organize.Action == config.ActionTextfile {
		layout.SequencesPath = filepath.Join(dir, cfg.Organize.SequencesFile)
	}

	reviewDir := filepath.Join(dir, cfg.Organize.ReviewDir)
	names := newNameAllocator()
	names.reserve(dir, cfg.Organize.ReviewDir, cfg.Organize.SequencesFile)

	for _, g := range report.Groups {
		if reason, skip := skipReason(cfg, g); skip {
			layout.Skipped = append(layout.Skipped, Skip{
				Group:        g.Index,
				Completeness: g.Completeness,
				Reason:       reason,
				Members:      g.Members,
			})
			continue
		}
		folder := Folder{
			Group:        g.Index,
			Completeness: g.Completeness,
			Members:      g.Members,
		}
		if layout.Action == config.ActionMove {
			parent := dir
			if g.Completeness == segment.Ambiguous && cfg.Organize.Ambiguous == config.AmbiguousReview {
				parent = reviewDir
				folder.Review = true
			}
			name, err := names.allocate(parent, folderName(cfg.Organize.FolderNaming, g))
			if err != nil {
				return nil, err
			}
			folder.Name = name
			folder.Path = filepath.Join(parent, name)
		}
		layout.Folders = append(layout.Folders, folder)
	}
	return layout, nil
}

func skipReason(cfg *config.Config, g segment.Group) (string, bool) {
	switch {
	case g.Completeness == segment.Partial && !cfg.Organize.IncludePartial:
		return "partial groups excluded", true
	case g.Completeness == segment.Ambiguous && cfg.Organize.Ambiguous == config.AmbiguousSkip:
		return "ambiguous groups skipped", true
	default:
		return "", false
	}
}

func folderName(naming string, g segment.Group) string {
	var name string
	switch naming {
	case config.NamingTimestamp:
		if start := g.Start(); !start.IsZero() {
			name = start.Format(timestampFolderLayout)
		}
	case config.NamingFirstFile:
		if len(g.Members) > 0 {
			name = textutil.SanitizeFileName(textutil.Stem(g.Members[0]))
		}
	}
	if name == "" {
		name = fmt.Sprintf("bracket-%04d", g.Index)
	}
	return name
}

// nameAllocator hands out folder names that collide neither with each other
// nor with existing entries on disk.
type nameAllocator struct {
	used map[string]map[string]bool
}

func newNameAllocator() *nameAllocator {
	return &nameAllocator{used: make(map[string]map[string]bool)}
}

func (a *nameAllocator) reserve(parent string, names ...string) {
	set := a.set(parent)
	for _, n := range names {
		if n != "" {
			set[strings.ToLower(n)] = true
		}
	}
}

func (a *nameAllocator) set(parent string) map[string]bool {
	set, ok := a.used[parent]
	if !ok {
		set = make(map[string]bool)
		a.used[parent] = set
	}
	return set
}

func (a *nameAllocator) allocate(parent, base string) (string, error) {
	const maxAttempts = 10000
	set := a.set(parent)
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		candidate := base
		if attempt > 1 {
			candidate = fmt.Sprintf("%s-%d", base, attempt)
		}
		key := strings.ToLower(candidate)
		if set[key] {
			continue
		}
		if _, err := os.Lstat(filepath.Join(parent, candidate)); err == nil {
			continue
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", err
		}
		set[key] = true
		return candidate, nil
	}
	return "", fmt.Errorf("exhausted folder name slots for %s in %s", base, parent)
}
