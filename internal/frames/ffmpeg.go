package frames

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
)

var commandContext = exec.CommandContext

// Option configures an FFmpeg source.
type Option func(*FFmpeg)

// WithBinary overrides the ffmpeg executable.
func WithBinary(binary string) Option {
	return func(f *FFmpeg) {
		if strings.TrimSpace(binary) != "" {
			f.binary = binary
		}
	}
}

// WithFrameLimit stops decoding after n frames. Zero decodes everything.
func WithFrameLimit(n int) Option {
	return func(f *FFmpeg) {
		if n > 0 {
			f.limit = n
		}
	}
}

// FFmpeg decodes a video file by piping raw RGBA frames from ffmpeg.
type FFmpeg struct {
	binary string
	path   string
	width  int
	height int
	limit  int

	once   sync.Once
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr bytes.Buffer
	cancel context.CancelFunc
	frame  *image.RGBA
	number int
	err    error
}

// NewFFmpeg prepares a decoder for path. The process starts on the first Next.
func NewFFmpeg(path string, width, height int, opts ...Option) (*FFmpeg, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("input path required")
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid frame size %dx%d", width, height)
	}
	f := &FFmpeg{binary: "ffmpeg", path: path, width: width, height: height}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

func (f *FFmpeg) args() []string {
	args := []string{"-v", "error", "-nostdin", "-i", f.path, "-map", "0:v:0", "-an", "-sn"}
	if f.limit > 0 {
		args = append(args, "-frames:v", strconv.Itoa(f.limit))
	}
	return append(args, "-f", "rawvideo", "-pix_fmt", "rgba", "-")
}

func (f *FFmpeg) start(ctx context.Context) error {
	ctx, f.cancel = context.WithCancel(ctx)
	f.cmd = commandContext(ctx, f.binary, f.args()...) //nolint:gosec
	f.cmd.Stderr = &f.stderr
	stdout, err := f.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	f.stdout = stdout
	if err := f.cmd.Start(); err != nil {
		return fmt.Errorf("start ffmpeg: %w", err)
	}
	f.frame = image.NewRGBA(image.Rect(0, 0, f.width, f.height))
	return nil
}

// Next reads the following frame. The returned image is reused.
func (f *FFmpeg) Next(ctx context.Context) (Frame, error) {
	f.once.Do(func() { f.err = f.start(ctx) })
	if f.err != nil {
		return Frame{}, f.err
	}
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}
	if _, err := io.ReadFull(f.stdout, f.frame.Pix); err != nil {
		if errors.Is(err, io.EOF) {
			if waitErr := f.wait(); waitErr != nil {
				f.err = waitErr
				return Frame{}, waitErr
			}
			f.err = io.EOF
			return Frame{}, io.EOF
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			f.err = fmt.Errorf("ffmpeg: truncated frame %d", f.number+1)
			_ = f.wait()
			return Frame{}, f.err
		}
		f.err = fmt.Errorf("read frame %d: %w", f.number+1, err)
		return Frame{}, f.err
	}
	f.number++
	return Frame{Image: f.frame, Number: f.number}, nil
}

func (f *FFmpeg) wait() error {
	if f.cmd == nil || f.cmd.Process == nil {
		return nil
	}
	err := f.cmd.Wait()
	f.cmd = nil
	if err != nil {
		return fmt.Errorf("ffmpeg decode failed: %w: %s", err, strings.TrimSpace(f.stderr.String()))
	}
	return nil
}

// Close terminates the decoder if it is still running.
func (f *FFmpeg) Close() error {
	if f.cancel != nil {
		f.cancel()
	}
	if f.cmd != nil && f.cmd.Process != nil {
		_ = f.cmd.Wait()
		f.cmd = nil
	}
	return nil
}

var _ Source = (*FFmpeg)(nil)
var _ Source = (*Slice)(nil)
