package deps

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

var commandContext = exec.CommandContext

// CheckFFmpegEncoder reports whether ffmpeg was built with the named encoder.
// The check lists encoders with "ffmpeg -hide_banner -encoders" and matches
// the encoder name column.
func CheckFFmpegEncoder(ctx context.Context, ffmpegBinary, encoder string) Status {
	result := Status{
		Name:        "FFmpeg " + encoder,
		Command:     ffmpegBinary,
		Description: "Required for looped WebM output",
	}
	if strings.TrimSpace(ffmpegBinary) == "" {
		result.Detail = "command not configured"
		return result
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	out, err := commandContext(ctx, ffmpegBinary, "-hide_banner", "-encoders").Output() //nolint:gosec
	if err != nil {
		result.Detail = fmt.Sprintf("list encoders: %v", err)
		return result
	}
	if hasEncoder(out, encoder) {
		result.Available = true
		return result
	}
	result.Detail = fmt.Sprintf("encoder %q not compiled into ffmpeg", encoder)
	return result
}

// hasEncoder scans "ffmpeg -encoders" output. Encoder rows look like
// " V....D libvpx-vp9           libvpx VP9 (codec vp9)".
func hasEncoder(listing []byte, encoder string) bool {
	scanner := bufio.NewScanner(bytes.NewReader(listing))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) >= 2 && fields[1] == encoder {
			return true
		}
	}
	return false
}
