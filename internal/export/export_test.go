package export_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"

	"slyce/internal/artifacts"
	"slyce/internal/export"
)

func fixture(t *testing.T) (*artifacts.Run, []*artifacts.Artifact) {
	t.Helper()
	dir := t.TempDir()
	run := &artifacts.Run{
		ID:           "run-1",
		Source:       "/videos/clip.mp4",
		Status:       artifacts.StatusCompleted,
		SettingsJSON: `{"crossSectionCount":2}`,
		PlanJSON:     `{"tiles":2}`,
		VideoJSON:    `{"width":4,"height":4}`,
	}
	var list []*artifacts.Artifact
	for tile, body := range []string{"first tile", "second tile"} {
		path := filepath.Join(dir, artifacts.TileFileName(tile, "ktx2"))
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatalf("write artifact: %v", err)
		}
		sum, size, err := artifacts.Checksum(path)
		if err != nil {
			t.Fatalf("Checksum: %v", err)
		}
		list = append(list, &artifacts.Artifact{
			RunID: run.ID, Tile: tile, Kind: "ktx2", Path: path,
			Bytes: size, SHA256: sum, Layers: 2, Width: 4, Height: 4,
		})
	}
	return run, list
}

func fixedNow() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

func TestWriteZipBundlesMetadataAndTiles(t *testing.T) {
	run, list := fixture(t)
	var buf bytes.Buffer
	if err := export.WriteZip(&buf, run, list, export.Options{Level: 9, Now: fixedNow}); err != nil {
		t.Fatalf("WriteZip: %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("zip.NewReader: %v", err)
	}
	names := make([]string, 0, len(zr.File))
	contents := map[string][]byte{}
	for _, f := range zr.File {
		names = append(names, f.Name)
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %s: %v", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("read %s: %v", f.Name, err)
		}
		contents[f.Name] = data
	}
	want := []string{"metadata.json", "1.ktx2", "2.ktx2"}
	if len(names) != len(want) {
		t.Fatalf("entries = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("entries = %v, want %v", names, want)
		}
	}
	if string(contents["2.ktx2"]) != "second tile" {
		t.Fatalf("tile 2 content = %q", contents["2.ktx2"])
	}

	var meta export.Metadata
	if err := json.Unmarshal(contents["metadata.json"], &meta); err != nil {
		t.Fatalf("decode metadata: %v", err)
	}
	if meta.GeneratedBy != "slyce" || !meta.GeneratedAt.Equal(fixedNow()) {
		t.Fatalf("unexpected header %+v", meta)
	}
	if meta.Output.Format != "ktx2" || meta.Output.MimeType != "image/ktx2" || meta.Output.TileCount != 2 {
		t.Fatalf("unexpected output %+v", meta.Output)
	}
	if meta.Output.Files[0].Tile != 1 || meta.Output.Files[0].SHA256 != list[0].SHA256 {
		t.Fatalf("unexpected file entry %+v", meta.Output.Files[0])
	}
	if string(meta.TilePlan) != `{"tiles":2}` {
		t.Fatalf("tile plan = %s", meta.TilePlan)
	}
}

func TestWriteZipDetectsModifiedArtifact(t *testing.T) {
	run, list := fixture(t)
	if err := os.WriteFile(list[1].Path, []byte("tampered"), 0o644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	if err := export.WriteZip(io.Discard, run, list, export.Options{}); err == nil {
		t.Fatal("expected checksum mismatch")
	}
}

func TestWriteZipRequiresArtifacts(t *testing.T) {
	run, _ := fixture(t)
	if err := export.WriteZip(io.Discard, run, nil, export.Options{}); !errors.Is(err, export.ErrNoArtifacts) {
		t.Fatalf("expected ErrNoArtifacts, got %v", err)
	}
}

func TestWriteZipFileLeavesNothingOnFailure(t *testing.T) {
	run, list := fixture(t)
	if err := os.Remove(list[0].Path); err != nil {
		t.Fatalf("remove: %v", err)
	}
	dir := t.TempDir()
	target := filepath.Join(dir, export.BundleName(run.Source))
	if err := export.WriteZipFile(target, run, list, export.Options{}); err == nil {
		t.Fatal("expected error for missing artifact")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("leftover files: %v", entries)
	}
}

func TestWriteDirCopiesUnpacked(t *testing.T) {
	run, list := fixture(t)
	dir := filepath.Join(t.TempDir(), "out")
	if err := export.WriteDir(dir, run, list, export.Options{Now: fixedNow}); err != nil {
		t.Fatalf("WriteDir: %v", err)
	}
	for _, name := range []string{"metadata.json", "1.ktx2", "2.ktx2"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("missing %s: %v", name, err)
		}
	}
}

func TestBundleName(t *testing.T) {
	cases := map[string]string{
		"/videos/clip.mp4":   "clip_tiles.zip",
		"holiday.final.webm": "holiday.final_tiles.zip",
		"noext":              "noext_tiles.zip",
	}
	for in, want := range cases {
		if got := export.BundleName(in); got != want {
			t.Fatalf("BundleName(%q) = %q, want %q", in, got, want)
		}
	}
}
