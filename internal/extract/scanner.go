package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"bracketeer/internal/exposure"
	"bracketeer/internal/faults"
	"bracketeer/internal/logging"
)

// Cache persists records between scans. Entries are keyed by path, size and
// modification time so an edited file is extracted again.
type Cache interface {
	LookupRecord(ctx context.Context, path string, size int64, modTime time.Time) (exposure.Record, bool, error)
	StoreRecord(ctx context.Context, path string, size int64, modTime time.Time, rec exposure.Record) error
}

// ProgressFunc is invoked from the collecting goroutine after each file.
type ProgressFunc func(done, total int)

// Scanner extracts every matching file of one directory.
type Scanner struct {
	Extractor  Extractor
	Extensions []string
	Workers    int
	Cache      Cache
	Logger     *slog.Logger
	Progress   ProgressFunc
}

// Failure is a file that contributes nothing to segmentation.
type Failure struct {
	Path string
	Kind Kind
	Err  error
}

// ScanResult holds the extracted records in stream order.
type ScanResult struct {
	Records  []exposure.Record
	Failures []Failure
	// Missing counts records extracted without an exposure-bias value.
	Missing int
	// Cached counts records served from the cache.
	Cached int
	// Listed is the number of files that matched the extension filter.
	Listed int
}

// FailureCounts tallies failures per kind.
func (r ScanResult) FailureCounts() map[Kind]int {
	counts := make(map[Kind]int)
	for _, f := range r.Failures {
		counts[f.Kind]++
	}
	return counts
}

// List returns the matching files of dir sorted by name. Hidden files and
// subdirectories are skipped.
func List(dir string, extensions []string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, faults.Wrap(faults.ErrNotFound, "scan", "list", dir, err)
		}
		return nil, faults.Wrap(faults.ErrIO, "scan", "list", dir, err)
	}
	allowed := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		allowed[strings.ToLower(strings.TrimPrefix(ext, "."))] = struct{}{}
	}
	var paths []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") || !entry.Type().IsRegular() {
			continue
		}
		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
		if _, ok := allowed[ext]; !ok && len(allowed) > 0 {
			continue
		}
		paths = append(paths, filepath.Join(dir, name))
	}
	sort.Strings(paths)
	return paths, nil
}

// Scan lists dir and extracts every matching file.
func (s *Scanner) Scan(ctx context.Context, dir string) (ScanResult, error) {
	paths, err := List(dir, s.Extensions)
	if err != nil {
		return ScanResult{}, err
	}
	return s.ScanFiles(ctx, paths)
}

type outcome struct {
	rec    exposure.Record
	err    error
	cached bool
	path   string
}

// ScanFiles extracts the given files. When ctx is cancelled the partial
// results are discarded and ctx.Err() is returned.
func (s *Scanner) ScanFiles(ctx context.Context, paths []string) (ScanResult, error) {
	logger := logging.WithContext(ctx, logging.NewComponentLogger(s.Logger, "extract"))
	extractor := s.Extractor
	if extractor == nil {
		extractor = ExifExtractor{}
	}
	workers := s.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	workers = min(workers, max(len(paths), 1))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan string)
	results := make(chan outcome, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				select {
				case results <- s.extractOne(ctx, extractor, path):
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, path := range paths {
			select {
			case jobs <- path:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	res := ScanResult{Listed: len(paths)}
	done := 0
	for out := range results {
		done++
		if out.cached {
			res.Cached++
		}
		switch {
		case out.err == nil:
			res.Records = append(res.Records, out.rec)
		case KindOf(out.err) == MissingExposureTag:
			res.Missing++
			res.Records = append(res.Records, out.rec)
			logger.Debug("no exposure bias", logging.String("file", filepath.Base(out.path)))
		case errors.Is(out.err, context.Canceled) || errors.Is(out.err, context.DeadlineExceeded):
		default:
			res.Failures = append(res.Failures, Failure{Path: out.path, Kind: KindOf(out.err), Err: out.err})
			logging.WarnWithContext(logger, "file skipped", "extract_failed",
				logging.String("file", filepath.Base(out.path)),
				logging.Error(out.err),
				logging.String(logging.FieldErrorHint, "check the file is a camera original with EXIF metadata"),
				logging.String(logging.FieldImpact, "file is excluded from bracket detection"),
			)
		}
		if s.Progress != nil {
			s.Progress(done, len(paths))
		}
	}

	if err := ctx.Err(); err != nil {
		return ScanResult{}, err
	}
	if done != len(paths) {
		return ScanResult{}, fmt.Errorf("scan collected %d of %d files", done, len(paths))
	}

	exposure.Sort(res.Records)
	sort.Slice(res.Failures, func(i, j int) bool { return res.Failures[i].Path < res.Failures[j].Path })
	logger.Info("scan complete",
		logging.Int("files", res.Listed),
		logging.Int("records", len(res.Records)),
		logging.Int("cached", res.Cached),
		logging.Int("failed", len(res.Failures)),
		logging.Int("missing_bias", res.Missing),
	)
	return res, nil
}

func (s *Scanner) extractOne(ctx context.Context, extractor Extractor, path string) outcome {
	var (
		size    int64
		modTime time.Time
	)
	if s.Cache != nil {
		if info, err := os.Stat(path); err == nil {
			size, modTime = info.Size(), info.ModTime()
			if rec, ok, err := s.Cache.LookupRecord(ctx, path, size, modTime); err == nil && ok {
				var missing error
				if !rec.HasBias() {
					missing = &Error{Kind: MissingExposureTag, Path: path}
				}
				return outcome{rec: rec, err: missing, cached: true, path: path}
			}
		}
	}

	rec, err := extractor.Extract(ctx, path)
	if s.Cache != nil && !modTime.IsZero() && !Fatal(err) {
		if storeErr := s.Cache.StoreRecord(ctx, path, size, modTime, rec); storeErr != nil {
			logging.NewComponentLogger(s.Logger, "extract").Debug("cache store failed",
				logging.String("file", filepath.Base(path)), logging.Error(storeErr))
		}
	}
	return outcome{rec: rec, err: err, path: path}
}
