package logging

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestPruneRunLogsRemovesOnlyOldRunLogs(t *testing.T) {
	dir := t.TempDir()
	old := time.Now().AddDate(0, 0, -10)
	write := func(name string, mod time.Time) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte("{}\n"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		if err := os.Chtimes(path, mod, mod); err != nil {
			t.Fatalf("chtimes %s: %v", name, err)
		}
		return path
	}
	stale := write("run-a.log", old)
	kept := write("run-b.log", old)
	fresh := write("run-c.log", time.Now())
	other := write("slyce.log", old)

	if n := PruneRunLogs(NewNop(), dir, 7, kept); n != 1 {
		t.Fatalf("removed %d files, want 1", n)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatalf("expected %s removed", stale)
	}
	for _, path := range []string{kept, fresh, other} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected %s kept: %v", path, err)
		}
	}
}

func TestPruneRunLogsDisabled(t *testing.T) {
	if n := PruneRunLogs(nil, t.TempDir(), 0); n != 0 {
		t.Fatalf("expected no pruning, got %d", n)
	}
}
