// Package loop renders a tile's cross-sections as a looping WebM animation.
//
// The cross-section images play forward and then in reverse, so the clip
// returns to its first frame. Frames are piped to ffmpeg as raw RGBA and
// encoded with libvpx-vp9.
package loop

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"os/exec"
	"strconv"
	"strings"
)

var commandContext = exec.CommandContext

const (
	DefaultFPS              = 30
	DefaultBitrate          = 3_000_000
	DefaultKeyframeInterval = 30
)

// Options configures the encoder.
type Options struct {
	Binary           string
	FPS              int
	Bitrate          int
	KeyframeInterval int
}

func (o Options) withDefaults() Options {
	if strings.TrimSpace(o.Binary) == "" {
		o.Binary = "ffmpeg"
	}
	if o.FPS <= 0 {
		o.FPS = DefaultFPS
	}
	if o.Bitrate <= 0 {
		o.Bitrate = DefaultBitrate
	}
	if o.KeyframeInterval <= 0 {
		o.KeyframeInterval = DefaultKeyframeInterval
	}
	return o
}

// Sequence returns the forward-then-reverse frame order for imgs.
func Sequence(imgs []*image.RGBA) []*image.RGBA {
	out := make([]*image.RGBA, 0, len(imgs)*2)
	out = append(out, imgs...)
	for i := len(imgs) - 1; i >= 0; i-- {
		out = append(out, imgs[i])
	}
	return out
}

// Encoder writes WebM loops with ffmpeg.
type Encoder struct {
	opts Options
}

// NewEncoder returns an encoder with defaults applied.
func NewEncoder(opts Options) *Encoder {
	return &Encoder{opts: opts.withDefaults()}
}

func (e *Encoder) args(width, height int, outputPath string) []string {
	return []string{
		"-v", "error", "-y",
		"-f", "rawvideo", "-pix_fmt", "rgba",
		"-s", fmt.Sprintf("%dx%d", width, height),
		"-r", strconv.Itoa(e.opts.FPS),
		"-i", "-",
		"-c:v", "libvpx-vp9",
		"-b:v", strconv.Itoa(e.opts.Bitrate),
		"-g", strconv.Itoa(e.opts.KeyframeInterval),
		"-pix_fmt", "yuv420p",
		"-f", "webm",
		outputPath,
	}
}

// Encode writes the looping animation of imgs to outputPath.
func (e *Encoder) Encode(ctx context.Context, imgs []*image.RGBA, outputPath string) error {
	if len(imgs) == 0 {
		return errors.New("no frames to encode")
	}
	if strings.TrimSpace(outputPath) == "" {
		return errors.New("output path required")
	}
	width, height := imgs[0].Rect.Dx(), imgs[0].Rect.Dy()
	if width%2 != 0 || height%2 != 0 {
		return fmt.Errorf("frame size %dx%d must be even", width, height)
	}
	for i, img := range imgs {
		if img.Rect.Dx() != width || img.Rect.Dy() != height {
			return fmt.Errorf("frame %d is %dx%d, expected %dx%d", i, img.Rect.Dx(), img.Rect.Dy(), width, height)
		}
	}

	cmd := commandContext(ctx, e.opts.Binary, e.args(width, height, outputPath)...) //nolint:gosec
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdin pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start ffmpeg: %w", err)
	}

	var writeErr error
	for _, img := range Sequence(imgs) {
		if writeErr = ctx.Err(); writeErr != nil {
			break
		}
		if _, writeErr = stdin.Write(img.Pix[:width*height*4]); writeErr != nil {
			writeErr = fmt.Errorf("write frame: %w", writeErr)
			break
		}
	}
	_ = stdin.Close()
	waitErr := cmd.Wait()
	if writeErr != nil {
		return writeErr
	}
	if waitErr != nil {
		return fmt.Errorf("ffmpeg webm encode failed: %w: %s", waitErr, strings.TrimSpace(stderr.String()))
	}
	return nil
}
