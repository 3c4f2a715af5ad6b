package frames

import (
	"context"
	"errors"
	"fmt"

	"slyce/internal/media/ffprobe"
)

// Probe inspects path with ffprobe. When the container does not record a
// frame count and countFrames is set, the stream is decoded to count them.
func Probe(ctx context.Context, ffprobeBinary, path string, countFrames bool) (Info, error) {
	result, err := ffprobe.Inspect(ctx, ffprobeBinary, path, ffprobe.Options{})
	if err != nil {
		return Info{}, err
	}
	if result.FrameCount() == 0 && countFrames {
		if result, err = ffprobe.Inspect(ctx, ffprobeBinary, path, ffprobe.Options{CountFrames: true}); err != nil {
			return Info{}, err
		}
	}
	return infoFromResult(path, result)
}

func infoFromResult(path string, result ffprobe.Result) (Info, error) {
	stream, ok := result.VideoStream()
	if !ok {
		return Info{}, errors.New("no video stream found")
	}
	if stream.Width <= 0 || stream.Height <= 0 {
		return Info{}, fmt.Errorf("video stream reports invalid size %dx%d", stream.Width, stream.Height)
	}
	info := Info{
		Path:       path,
		Width:      stream.Width,
		Height:     stream.Height,
		FrameCount: result.FrameCount(),
		FrameRate:  stream.FrameRate(),
		Codec:      stream.CodecName,
		Duration:   result.DurationSeconds(),
	}
	if info.FrameCount <= 0 {
		return info, fmt.Errorf("%s: %w", path, ErrEmpty)
	}
	return info, nil
}
