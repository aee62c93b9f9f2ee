package runinfo_test

import (
	"context"
	"testing"

	"bracketeer/internal/runinfo"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = runinfo.WithRunID(ctx, "run-1")
	ctx = runinfo.WithDirectory(ctx, "/photos/day1")
	ctx = runinfo.WithStage(ctx, "extract")

	if id, ok := runinfo.RunIDFromContext(ctx); !ok || id != "run-1" {
		t.Fatalf("unexpected run id: %v %v", id, ok)
	}
	if dir, ok := runinfo.DirectoryFromContext(ctx); !ok || dir != "/photos/day1" {
		t.Fatalf("unexpected directory: %v %v", dir, ok)
	}
	if stage, ok := runinfo.StageFromContext(ctx); !ok || stage != "extract" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := runinfo.WithStage(context.Background(), "")
	if _, ok := runinfo.StageFromContext(ctx); ok {
		t.Fatal("expected no stage value")
	}
	if _, ok := runinfo.RunIDFromContext(runinfo.WithRunID(context.Background(), "")); ok {
		t.Fatal("expected no run id")
	}
}
