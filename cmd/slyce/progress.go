package main

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"slyce/internal/processor"
)

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// progressView renders frame ingestion and tile publishing on one bar.
type progressView struct {
	mu    sync.Mutex
	bar   *progressbar.ProgressBar
	tiles int
}

func newProgressView(w io.Writer, lastFrame, tiles int) *progressView {
	bar := progressbar.NewOptions(lastFrame,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(fmt.Sprintf("tiles 0/%d", tiles)),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("frames"),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionFullWidth(),
		progressbar.OptionClearOnFinish(),
	)
	return &progressView{bar: bar, tiles: tiles}
}

func (v *progressView) handle(ev processor.Event) {
	v.mu.Lock()
	defer v.mu.Unlock()
	switch ev.Stage {
	case processor.StageFrames:
		_ = v.bar.Set(ev.Done)
	case processor.StagePublish:
		v.bar.Describe(fmt.Sprintf("tiles %d/%d", ev.Done, v.tiles))
	}
}

func (v *progressView) finish() {
	v.mu.Lock()
	defer v.mu.Unlock()
	_ = v.bar.Finish()
}
