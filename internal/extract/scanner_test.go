package extract_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"bracketeer/internal/exposure"
	"bracketeer/internal/extract"
	"bracketeer/internal/testsupport"
)

func TestListFiltersAndSorts(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteFiller(t, dir, "b.ARW", 1)
	testsupport.WriteFiller(t, dir, "a.arw", 1)
	testsupport.WriteFiller(t, dir, ".hidden.arw", 1)
	testsupport.WriteFiller(t, dir, "notes.txt", 1)
	testsupport.WriteFiller(t, filepath.Join(dir, "sub"), "c.arw", 1)

	paths, err := extract.List(dir, []string{"arw"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{filepath.Join(dir, "a.arw"), filepath.Join(dir, "b.ARW")}
	if len(paths) != len(want) || paths[0] != want[0] || paths[1] != want[1] {
		t.Fatalf("List = %v, want %v", paths, want)
	}

	if _, err := extract.List(filepath.Join(dir, "missing"), nil); err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestScanSortsRecordsAndCountsFailures(t *testing.T) {
	dir := t.TempDir()
	start := time.Date(2025, 4, 5, 6, 7, 8, 0, time.Local)
	// Names sort opposite to capture order.
	testsupport.WritePhoto(t, dir, "z.tif", testsupport.TIFF(testsupport.Bias(-6, start)))
	testsupport.WritePhoto(t, dir, "y.tif", testsupport.TIFF(testsupport.Bias(0, start.Add(time.Second))))
	testsupport.WritePhoto(t, dir, "x.tif", testsupport.TIFF(testsupport.Bias(6, start.Add(2*time.Second))))
	testsupport.WritePhoto(t, dir, "w.jpg", testsupport.JPEG(testsupport.Shot{Taken: start.Add(3 * time.Second)}))
	testsupport.WriteFiller(t, dir, "v.cr3", 64)

	var (
		mu       sync.Mutex
		progress []int
	)
	scanner := &extract.Scanner{
		Extensions: []string{"tif", "jpg", "cr3"},
		Workers:    3,
		Progress: func(done, total int) {
			mu.Lock()
			defer mu.Unlock()
			progress = append(progress, done)
			if total != 5 {
				t.Errorf("total = %d", total)
			}
		},
	}
	res, err := scanner.Scan(context.Background(), dir)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if res.Listed != 5 || len(res.Records) != 4 || res.Missing != 1 || len(res.Failures) != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
	names := make([]string, len(res.Records))
	for i, rec := range res.Records {
		names[i] = filepath.Base(rec.FileID)
	}
	if names[0] != "z.tif" || names[1] != "y.tif" || names[2] != "x.tif" || names[3] != "w.jpg" {
		t.Fatalf("records not in capture order: %v", names)
	}
	if res.FailureCounts()[extract.UnsupportedFormat] != 1 {
		t.Fatalf("failure counts = %v", res.FailureCounts())
	}
	if len(progress) != 5 || progress[4] != 5 {
		t.Fatalf("progress = %v", progress)
	}
}

type memoryCache struct {
	mu      sync.Mutex
	records map[string]exposure.Record
	lookups int
}

func (c *memoryCache) LookupRecord(_ context.Context, path string, _ int64, _ time.Time) (exposure.Record, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lookups++
	rec, ok := c.records[path]
	return rec, ok, nil
}

func (c *memoryCache) StoreRecord(_ context.Context, path string, _ int64, _ time.Time, rec exposure.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records[path] = rec
	return nil
}

type countingExtractor struct {
	mu    sync.Mutex
	calls int
}

func (e *countingExtractor) Extract(ctx context.Context, path string) (exposure.Record, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	return extract.ExifExtractor{}.Extract(ctx, path)
}

func TestScanUsesCache(t *testing.T) {
	dir := t.TempDir()
	start := time.Date(2025, 4, 5, 6, 7, 8, 0, time.Local)
	testsupport.WriteBracket(t, dir, "DSC", 1, start, -6, 0, 6)

	cache := &memoryCache{records: map[string]exposure.Record{}}
	ex := &countingExtractor{}
	scanner := &extract.Scanner{Extractor: ex, Extensions: []string{"tif"}, Workers: 2, Cache: cache}

	first, err := scanner.Scan(context.Background(), dir)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	second, err := scanner.Scan(context.Background(), dir)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if ex.calls != 3 || second.Cached != 3 || first.Cached != 0 {
		t.Fatalf("calls=%d first.cached=%d second.cached=%d", ex.calls, first.Cached, second.Cached)
	}
	for i := range first.Records {
		if first.Records[i].FileID != second.Records[i].FileID || first.Records[i].Bias != second.Records[i].Bias {
			t.Fatalf("cached scan differs at %d", i)
		}
	}
}

type blockingExtractor struct {
	started chan struct{}
	once    sync.Once
}

func (e *blockingExtractor) Extract(ctx context.Context, path string) (exposure.Record, error) {
	e.once.Do(func() { close(e.started) })
	<-ctx.Done()
	return exposure.Record{FileID: path}, ctx.Err()
}

func TestScanCancellationDiscardsPartialResults(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteBracket(t, dir, "DSC", 1, time.Now(), -3, 0, 3, -3, 0, 3)

	ex := &blockingExtractor{started: make(chan struct{})}
	scanner := &extract.Scanner{Extractor: ex, Extensions: []string{"tif"}, Workers: 2}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-ex.started
		cancel()
	}()
	res, err := scanner.Scan(ctx, dir)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(res.Records) != 0 || res.Listed != 0 {
		t.Fatalf("partial results must be discarded, got %+v", res)
	}
}
