package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"time"
)

// runCommand is a test seam around exec.CommandContext.
var runCommand = func(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s failed: %v, stderr: %s", name, err, stderr.String())
	}
	return stdout.Bytes(), nil
}

// videoProbe holds what ffprobe reports about a container.
type videoProbe struct {
	Width     int
	Height    int
	Duration  time.Duration
	CreatedAt time.Time
}

type probeOutput struct {
	Format struct {
		Duration string `json:"duration"`
		Tags     struct {
			CreationTime string `json:"creation_time"`
		} `json:"tags"`
	} `json:"format"`
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width,omitempty"`
		Height    int    `json:"height,omitempty"`
	} `json:"streams"`
}

// probeVideo extracts track dimensions, duration and container creation
// time using ffprobe.
func probeVideo(ctx context.Context, path string) (*videoProbe, error) {
	out, err := runCommand(ctx, "ffprobe",
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	if err != nil {
		return nil, err
	}

	var parsed probeOutput
	if err := json.Unmarshal(out, &parsed); err != nil {
		return nil, fmt.Errorf("parse ffprobe output: %w", err)
	}

	probe := &videoProbe{}
	for _, stream := range parsed.Streams {
		if stream.CodecType == "video" {
			probe.Width = stream.Width
			probe.Height = stream.Height
			break
		}
	}

	if parsed.Format.Duration != "" {
		if secs, err := strconv.ParseFloat(parsed.Format.Duration, 64); err == nil {
			probe.Duration = time.Duration(secs * float64(time.Second))
		}
	}
	if parsed.Format.Tags.CreationTime != "" {
		if t, err := time.Parse(time.RFC3339Nano, parsed.Format.Tags.CreationTime); err == nil {
			probe.CreatedAt = t
		}
	}

	return probe, nil
}

// stillSeekOffset returns where to grab the still frame: early in the clip,
// clamped to min(0.1s, duration/2) so very short videos still yield a frame.
func stillSeekOffset(duration time.Duration) time.Duration {
	offset := 100 * time.Millisecond
	if half := duration / 2; half < offset {
		offset = half
	}
	if offset < 0 {
		offset = 0
	}
	return offset
}

// extractStill captures one frame near the start of the video as a
// compressed image at dst.
func extractStill(ctx context.Context, src, dst string, duration time.Duration) error {
	offset := stillSeekOffset(duration)

	_, err := runCommand(ctx, "ffmpeg",
		"-y",
		"-ss", strconv.FormatFloat(offset.Seconds(), 'f', 3, 64),
		"-i", src,
		"-frames:v", "1",
		"-q:v", "3",
		dst,
	)
	return err
}
