package artifacts_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"slyce/internal/artifacts"
	"slyce/internal/testsupport"
)

func TestCreateRunPersistsMetadata(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenRegistry(t, cfg)
	ctx := context.Background()

	type plan struct {
		TileCount int `json:"length"`
	}
	run, err := store.CreateRun(ctx, artifacts.NewRun{
		Source:    "/videos/clip.mp4",
		OutputDir: cfg.Paths.OutputDir,
		Settings:  map[string]any{"crossSectionCount": 4},
		Plan:      plan{TileCount: 3},
		TileCount: 3,
	})
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	if len(run.ID) != 36 {
		t.Fatalf("expected uuid run id, got %q", run.ID)
	}
	if run.Status != artifacts.StatusRunning || run.FinishedAt != nil {
		t.Fatalf("unexpected new run state %+v", run)
	}
	var decoded plan
	if err := run.DecodePlan(&decoded); err != nil || decoded.TileCount != 3 {
		t.Fatalf("DecodePlan = %+v, %v", decoded, err)
	}
	if run.VideoJSON != "" {
		t.Fatalf("expected empty video json, got %q", run.VideoJSON)
	}

	if _, err := store.CreateRun(ctx, artifacts.NewRun{}); err == nil {
		t.Fatal("expected error for missing source")
	}
}

func TestFinishRunTransitions(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenRegistry(t, cfg)
	ctx := context.Background()
	run := testsupport.NewRun(t, store, "a.mp4")

	if err := store.FinishRun(ctx, run.ID, artifacts.StatusRunning, ""); err == nil {
		t.Fatal("expected error finishing into running")
	}
	if err := store.FinishRun(ctx, run.ID, artifacts.StatusFailed, "tile 2: encode failed"); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}
	got, err := store.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Status != artifacts.StatusFailed || got.ErrorMessage != "tile 2: encode failed" || got.FinishedAt == nil {
		t.Fatalf("unexpected finished run %+v", got)
	}
	if err := store.FinishRun(ctx, run.ID, artifacts.StatusCompleted, ""); !errors.Is(err, artifacts.ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound on second finish, got %v", err)
	}
	if missing, err := store.GetRun(ctx, "nope"); err != nil || missing != nil {
		t.Fatalf("GetRun(missing) = %v, %v", missing, err)
	}
}

func TestPublishComputesChecksum(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenRegistry(t, cfg)
	ctx := context.Background()
	run := testsupport.NewRun(t, store, "a.mp4")

	path := filepath.Join(t.TempDir(), artifacts.TileFileName(1, "ktx2"))
	testsupport.WriteFile(t, path, 4096)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	sum := sha256.Sum256(data)

	published, err := store.Publish(ctx, artifacts.Artifact{RunID: run.ID, Tile: 1, Kind: "ktx2", Path: path, Layers: 4, Width: 64, Height: 64})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if published.Bytes != 4096 || published.SHA256 != hex.EncodeToString(sum[:]) {
		t.Fatalf("unexpected checksum %d %s", published.Bytes, published.SHA256)
	}
	if published.FileName() != "2.ktx2" {
		t.Fatalf("FileName = %q", published.FileName())
	}

	other := filepath.Join(t.TempDir(), "1.ktx2")
	testsupport.WriteFile(t, other, 10)
	if _, err := store.Publish(ctx, artifacts.Artifact{RunID: run.ID, Tile: 0, Kind: "ktx2", Path: other, Layers: 4}); err != nil {
		t.Fatalf("Publish tile 0: %v", err)
	}
	if _, err := store.Publish(ctx, artifacts.Artifact{RunID: run.ID, Tile: 1, Kind: "ktx2", Path: path}); err == nil {
		t.Fatal("expected duplicate tile to be rejected")
	}

	list, err := store.ListArtifacts(ctx, run.ID)
	if err != nil {
		t.Fatalf("ListArtifacts: %v", err)
	}
	if len(list) != 2 || list[0].Tile != 0 || list[1].Tile != 1 {
		t.Fatalf("unexpected artifact order %+v", list)
	}
}

func TestPublishRequiresRunningRun(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenRegistry(t, cfg)
	ctx := context.Background()
	run := testsupport.NewRun(t, store, "a.mp4")
	if err := store.FinishRun(ctx, run.ID, artifacts.StatusAborted, "cancelled"); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}
	path := filepath.Join(t.TempDir(), "1.ktx2")
	testsupport.WriteFile(t, path, 8)
	if _, err := store.Publish(ctx, artifacts.Artifact{RunID: run.ID, Kind: "ktx2", Path: path}); err == nil {
		t.Fatal("expected publish to aborted run to fail")
	}
	if _, err := store.Publish(ctx, artifacts.Artifact{RunID: "missing", Kind: "ktx2", Path: path}); !errors.Is(err, artifacts.ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestListAndResolveRuns(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenRegistry(t, cfg)
	ctx := context.Background()

	first := testsupport.NewRun(t, store, "one.mp4")
	time.Sleep(2 * time.Millisecond)
	second := testsupport.NewRun(t, store, "two.mp4")
	if err := store.FinishRun(ctx, first.ID, artifacts.StatusCompleted, ""); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	all, err := store.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(all) != 2 || all[0].ID != second.ID {
		t.Fatalf("expected newest first, got %+v", all)
	}
	completed, err := store.ListRuns(ctx, 10, artifacts.StatusCompleted)
	if err != nil || len(completed) != 1 || completed[0].ID != first.ID {
		t.Fatalf("status filter = %+v, %v", completed, err)
	}
	limited, err := store.ListRuns(ctx, 1)
	if err != nil || len(limited) != 1 {
		t.Fatalf("limit = %+v, %v", limited, err)
	}

	resolved, err := store.ResolveRun(ctx, first.ID[:8])
	if err != nil || resolved.ID != first.ID {
		t.Fatalf("ResolveRun(prefix) = %+v, %v", resolved, err)
	}
	if _, err := store.ResolveRun(ctx, "zzzz"); !errors.Is(err, artifacts.ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
	if _, err := store.ResolveRun(ctx, ""); !errors.Is(err, artifacts.ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound for empty id, got %v", err)
	}
}

func TestAbandonRunningAndDelete(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenRegistry(t, cfg)
	ctx := context.Background()
	run := testsupport.NewRun(t, store, "stale.mp4")

	n, err := store.AbandonRunning(ctx, time.Now().Add(time.Minute))
	if err != nil || n != 1 {
		t.Fatalf("AbandonRunning = %d, %v", n, err)
	}
	got, _ := store.GetRun(ctx, run.ID)
	if got.Status != artifacts.StatusAborted {
		t.Fatalf("expected aborted, got %s", got.Status)
	}

	if err := store.DeleteRun(ctx, run.ID); err != nil {
		t.Fatalf("DeleteRun: %v", err)
	}
	if err := store.DeleteRun(ctx, run.ID); !errors.Is(err, artifacts.ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestReopenKeepsSchema(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := artifacts.Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	run := testsupport.NewRun(t, store, "keep.mp4")
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened := testsupport.MustOpenRegistry(t, cfg)
	got, err := reopened.GetRun(context.Background(), run.ID)
	if err != nil || got == nil {
		t.Fatalf("run lost after reopen: %v", err)
	}
	if reopened.Path() != cfg.RegistryPath() {
		t.Fatalf("Path = %q", reopened.Path())
	}
}

func TestParseStatus(t *testing.T) {
	if s, ok := artifacts.ParseStatus("completed"); !ok || !s.IsTerminal() {
		t.Fatalf("ParseStatus(completed) = %v %v", s, ok)
	}
	if _, ok := artifacts.ParseStatus("paused"); ok {
		t.Fatal("expected unknown status")
	}
	if artifacts.StatusRunning.IsTerminal() {
		t.Fatal("running is not terminal")
	}
}
