package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// runIDHandler stamps every record with the run ID.
type runIDHandler struct {
	base  slog.Handler
	runID string
}

func newRunIDHandler(base slog.Handler, runID string) slog.Handler {
	if base == nil {
		return NoopHandler{}
	}
	return &runIDHandler{base: base, runID: runID}
}

func (h *runIDHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.base.Enabled(ctx, level)
}

func (h *runIDHandler) Handle(ctx context.Context, record slog.Record) error {
	record.AddAttrs(slog.String(FieldRunID, h.runID))
	return h.base.Handle(ctx, record)
}

func (h *runIDHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &runIDHandler{base: h.base.WithAttrs(attrs), runID: h.runID}
}

func (h *runIDHandler) WithGroup(name string) slog.Handler {
	return &runIDHandler{base: h.base.WithGroup(name), runID: h.runID}
}

// RunLog is a per-run JSON log file teed from a base logger.
type RunLog struct {
	Logger *slog.Logger
	Path   string
	file   *os.File
}

// OpenRunLog creates dir/run-<id>.log and returns a logger writing to both the
// base logger and that file, each stamped with the run ID. The file records debug output regardless of the
// base level.
func OpenRunLog(base *slog.Logger, dir, runID string) (*RunLog, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure run log directory: %w", err)
	}
	path := filepath.Join(dir, "run-"+runID+".log")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open run log: %w", err)
	}
	levelVar := new(slog.LevelVar)
	levelVar.Set(slog.LevelDebug)
	jsonHandler, err := newJSONHandler(file, levelVar, false)
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	if base != nil {
		base = base.With(slog.String(FieldRunID, runID))
	}
	return &RunLog{
		Logger: TeeLogger(base, newRunIDHandler(jsonHandler, runID)),
		Path:   path,
		file:   file,
	}, nil
}

// Close flushes and closes the run log file.
func (r *RunLog) Close() error {
	if r == nil || r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}
