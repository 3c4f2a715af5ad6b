package frames

import (
	"context"
	"errors"
	"image"
	"io"
	"os"
	"os/exec"
	"strconv"
	"testing"

	"slyce/internal/media/ffprobe"
)

func TestSliceNumbersFromOne(t *testing.T) {
	imgs := []*image.RGBA{
		image.NewRGBA(image.Rect(0, 0, 1, 1)),
		image.NewRGBA(image.Rect(0, 0, 1, 1)),
	}
	src := NewSlice(imgs)
	for want := 1; want <= 2; want++ {
		f, err := src.Next(context.Background())
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if f.Number != want {
			t.Fatalf("frame number = %d, want %d", f.Number, want)
		}
	}
	if _, err := src.Next(context.Background()); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF, got %v", err)
	}
}

func TestSliceHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	src := NewSlice([]*image.RGBA{image.NewRGBA(image.Rect(0, 0, 1, 1))})
	if _, err := src.Next(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func stubFFmpeg(t *testing.T, mode string, frames int, captured *[]string) {
	t.Helper()
	original := commandContext
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		if captured != nil {
			*captured = append([]string(nil), args...)
		}
		cmd := exec.CommandContext(ctx, os.Args[0], "-test.run=TestHelperProcess")
		cmd.Env = append(os.Environ(),
			"GO_WANT_HELPER_PROCESS=1",
			"FRAMES_HELPER_MODE="+mode,
			"FRAMES_HELPER_COUNT="+strconv.Itoa(frames),
		)
		return cmd
	}
	t.Cleanup(func() { commandContext = original })
}

func TestFFmpegReadsRawFrames(t *testing.T) {
	var args []string
	stubFFmpeg(t, "frames", 3, &args)
	src, err := NewFFmpeg("/media/clip.mp4", 2, 2, WithFrameLimit(3))
	if err != nil {
		t.Fatalf("NewFFmpeg: %v", err)
	}
	defer src.Close()

	for want := 1; want <= 3; want++ {
		f, err := src.Next(context.Background())
		if err != nil {
			t.Fatalf("frame %d: %v", want, err)
		}
		if f.Number != want || f.Image.Pix[0] != byte(want) {
			t.Fatalf("frame %d: number=%d first byte=%d", want, f.Number, f.Image.Pix[0])
		}
	}
	if _, err := src.Next(context.Background()); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF, got %v", err)
	}
	if idx := indexOf(args, "-frames:v"); idx < 0 || args[idx+1] != "3" {
		t.Fatalf("frame limit not passed: %v", args)
	}
	if idx := indexOf(args, "-pix_fmt"); idx < 0 || args[idx+1] != "rgba" {
		t.Fatalf("pixel format not requested: %v", args)
	}
}

func TestFFmpegReportsTruncatedFrame(t *testing.T) {
	stubFFmpeg(t, "truncated", 1, nil)
	src, err := NewFFmpeg("/media/clip.mp4", 2, 2)
	if err != nil {
		t.Fatalf("NewFFmpeg: %v", err)
	}
	defer src.Close()
	if _, err := src.Next(context.Background()); err == nil || errors.Is(err, io.EOF) {
		t.Fatalf("expected truncation error, got %v", err)
	}
}

func TestFFmpegReportsProcessFailure(t *testing.T) {
	stubFFmpeg(t, "failure", 0, nil)
	src, err := NewFFmpeg("/media/clip.mp4", 2, 2)
	if err != nil {
		t.Fatalf("NewFFmpeg: %v", err)
	}
	defer src.Close()
	if _, err := src.Next(context.Background()); err == nil || errors.Is(err, io.EOF) {
		t.Fatalf("expected process error, got %v", err)
	}
}

func TestNewFFmpegValidates(t *testing.T) {
	if _, err := NewFFmpeg("", 2, 2); err == nil {
		t.Fatal("expected error for empty path")
	}
	if _, err := NewFFmpeg("/x.mp4", 0, 2); err == nil {
		t.Fatal("expected error for zero width")
	}
}

func TestInfoFromResult(t *testing.T) {
	result := ffprobe.Result{
		Streams: []ffprobe.Stream{{CodecType: "video", CodecName: "h264", Width: 640, Height: 360, NBFrames: "120", AvgFrameRate: "24/1"}},
		Format:  ffprobe.Format{Duration: "5"},
	}
	info, err := infoFromResult("/media/a.mp4", result)
	if err != nil {
		t.Fatalf("infoFromResult: %v", err)
	}
	if info.Width != 640 || info.Height != 360 || info.FrameCount != 120 || info.FrameRate != 24 || info.Codec != "h264" {
		t.Fatalf("unexpected info %+v", info)
	}

	empty := ffprobe.Result{Streams: []ffprobe.Stream{{CodecType: "video", Width: 1, Height: 1}}}
	if _, err := infoFromResult("/media/b.mp4", empty); !errors.Is(err, ErrEmpty) {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
	if _, err := infoFromResult("/media/c.mp4", ffprobe.Result{}); err == nil {
		t.Fatal("expected error without video stream")
	}
}

func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	count, _ := strconv.Atoi(os.Getenv("FRAMES_HELPER_COUNT"))
	switch os.Getenv("FRAMES_HELPER_MODE") {
	case "frames":
		for i := 1; i <= count; i++ {
			buf := make([]byte, 2*2*4)
			for j := range buf {
				buf[j] = byte(i)
			}
			_, _ = os.Stdout.Write(buf)
		}
		os.Exit(0)
	case "truncated":
		_, _ = os.Stdout.Write([]byte{1, 2, 3})
		os.Exit(0)
	case "failure":
		_, _ = os.Stderr.WriteString("invalid data found when processing input\n")
		os.Exit(1)
	default:
		os.Exit(0)
	}
}

func indexOf(args []string, target string) int {
	for i, arg := range args {
		if arg == target {
			return i
		}
	}
	return -1
}
