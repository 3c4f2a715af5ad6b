package deps

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Blank", Command: " "},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available || results[0].Detail != "" {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("expected missing binary to be unavailable with detail, got %#v", results[1])
	}
	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}
	if results[2].Detail != "command not configured" {
		t.Fatalf("unexpected blank detail: %q", results[2].Detail)
	}
}

const encoderListing = `Encoders:
 V..... = Video
 ------
 V....D libx264              libx264 H.264 / AVC / MPEG-4 AVC
 V....D libvpx-vp9           libvpx VP9 (codec vp9)
 A....D aac                  AAC (Advanced Audio Coding)
`

func stubFFmpeg(t *testing.T, mode string) {
	t.Helper()
	original := commandContext
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		cmd := exec.CommandContext(ctx, os.Args[0], "-test.run=TestHelperProcess", "--")
		cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1", "DEPS_HELPER_MODE="+mode)
		return cmd
	}
	t.Cleanup(func() { commandContext = original })
}

func TestCheckFFmpegEncoder(t *testing.T) {
	stubFFmpeg(t, "list")
	if st := CheckFFmpegEncoder(context.Background(), "ffmpeg", "libvpx-vp9"); !st.Available {
		t.Fatalf("expected libvpx-vp9 available, got %+v", st)
	}
	if st := CheckFFmpegEncoder(context.Background(), "ffmpeg", "libaom-av1"); st.Available || st.Detail == "" {
		t.Fatalf("expected libaom-av1 missing, got %+v", st)
	}
	if st := CheckFFmpegEncoder(context.Background(), "", "libvpx-vp9"); st.Available {
		t.Fatal("expected unconfigured binary to fail")
	}
}

func TestCheckFFmpegEncoderCommandFailure(t *testing.T) {
	stubFFmpeg(t, "fail")
	if st := CheckFFmpegEncoder(context.Background(), "ffmpeg", "libvpx-vp9"); st.Available || st.Detail == "" {
		t.Fatalf("expected failure detail, got %+v", st)
	}
}

func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	if os.Getenv("DEPS_HELPER_MODE") == "fail" {
		os.Exit(1)
	}
	fmt.Fprint(os.Stdout, encoderListing)
	os.Exit(0)
}
