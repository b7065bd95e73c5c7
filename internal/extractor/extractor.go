// Package extractor samples frames from encoded video via ffmpeg, streaming
// JPEG frames over a pipe instead of touching a frames directory.
package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/brandlens/brandlens/internal/models"
)

// ErrVideoDecode marks a video that ffmpeg/ffprobe could not open or decode.
var ErrVideoDecode = errors.New("video decode failed")

// Extractor samples frames from videos at a target rate.
type Extractor struct {
	Logger *slog.Logger

	// FFmpegPath and FFprobePath override the binaries looked up on PATH.
	FFmpegPath  string
	FFprobePath string
}

// New returns an Extractor using the given logger and the ffmpeg binaries
// found on PATH.
func New(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{Logger: logger, FFmpegPath: "ffmpeg", FFprobePath: "ffprobe"}
}

// videoInfo is what we need from ffprobe to plan the sampling.
type videoInfo struct {
	FPS      float64
	Duration float64
	Frames   int
}

// SamplingInterval returns how many source frames to skip between samples so
// the output approximates targetFPS. Never less than 1.
func SamplingInterval(sourceFPS, targetFPS float64) int {
	if sourceFPS <= 0 || targetFPS <= 0 {
		return 1
	}
	interval := int(sourceFPS / targetFPS)
	if interval < 1 {
		return 1
	}
	return interval
}

// Extract decodes the video and samples frames at approximately
// framesPerSecond. Frames that fail to decode are skipped with a warning;
// a video that cannot be opened at all returns ErrVideoDecode.
func (e *Extractor) Extract(ctx context.Context, video []byte, framesPerSecond float64) (*models.FrameExtractionResult, error) {
	if len(video) == 0 {
		return nil, fmt.Errorf("empty video payload: %w", ErrVideoDecode)
	}
	if framesPerSecond <= 0 {
		framesPerSecond = 2.0
	}

	tmp, err := os.CreateTemp("", "brandlens-video-*")
	if err != nil {
		return nil, fmt.Errorf("stage video: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(video); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("stage video: %w", err)
	}
	tmp.Close()

	info, err := e.probe(ctx, tmp.Name())
	if err != nil {
		return nil, err
	}

	interval := SamplingInterval(info.FPS, framesPerSecond)
	e.Logger.Debug("sampling video",
		"sourceFps", info.FPS,
		"duration", info.Duration,
		"interval", interval)

	raw, err := e.streamFrames(ctx, tmp.Name(), interval)
	if err != nil {
		return nil, err
	}

	result := &models.FrameExtractionResult{
		VideoDuration: info.Duration,
		VideoFPS:      info.FPS,
	}
	for i, jpg := range raw {
		frameNumber := i * interval
		if _, derr := decodeCheck(jpg); derr != nil {
			msg := fmt.Sprintf("frame %d undecodable, skipped: %v", frameNumber, derr)
			e.Logger.Warn("skipping frame", "frame", frameNumber, "error", derr)
			result.Warnings = append(result.Warnings, msg)
			continue
		}
		var ts float64
		if info.FPS > 0 {
			ts = float64(frameNumber) / info.FPS
		}
		result.Frames = append(result.Frames, models.Frame{
			FrameNumber: frameNumber,
			Timestamp:   ts,
			Image:       jpg,
		})
	}
	result.TotalFramesExtracted = len(result.Frames)
	result.TotalFramesRead = totalSourceFrames(info, len(raw), interval)
	if info.Duration > 0 {
		result.ExtractionRate = float64(result.TotalFramesExtracted) / info.Duration
	}
	return result, nil
}

// totalSourceFrames reports how many frames the source held. ffprobe's
// nb_frames is authoritative; when it is absent the duration and rate give
// the count, and only as a last resort is it estimated from the sampled
// output.
func totalSourceFrames(info videoInfo, sampled, interval int) int {
	if info.Frames > 0 {
		return info.Frames
	}
	if info.Duration > 0 && info.FPS > 0 {
		return int(math.Round(info.Duration * info.FPS))
	}
	return sampled * interval
}

// probe asks ffprobe for the stream rate, frame count, and duration.
func (e *Extractor) probe(ctx context.Context, path string) (videoInfo, error) {
	cmd := exec.CommandContext(ctx, e.FFprobePath,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=avg_frame_rate,nb_frames,duration",
		"-show_entries", "format=duration",
		"-of", "json",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return videoInfo{}, fmt.Errorf("ffprobe: %v: %w", err, ErrVideoDecode)
	}

	var probe struct {
		Streams []struct {
			AvgFrameRate string `json:"avg_frame_rate"`
			NBFrames     string `json:"nb_frames"`
			Duration     string `json:"duration"`
		} `json:"streams"`
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal(out, &probe); err != nil || len(probe.Streams) == 0 {
		return videoInfo{}, fmt.Errorf("no video stream found: %w", ErrVideoDecode)
	}

	s := probe.Streams[0]
	info := videoInfo{FPS: parseRate(s.AvgFrameRate)}
	if n, err := strconv.Atoi(s.NBFrames); err == nil {
		info.Frames = n
	}
	if d, err := strconv.ParseFloat(s.Duration, 64); err == nil {
		info.Duration = d
	} else if d, err := strconv.ParseFloat(probe.Format.Duration, 64); err == nil {
		info.Duration = d
	}
	return info, nil
}

// streamFrames runs ffmpeg with a frame-select filter and splits the piped
// MJPEG output into individual JPEG buffers.
func (e *Extractor) streamFrames(ctx context.Context, path string, interval int) ([][]byte, error) {
	filter := fmt.Sprintf(`select=not(mod(n\,%d))`, interval)
	cmd := exec.CommandContext(ctx, e.FFmpegPath,
		"-i", path,
		"-vf", filter,
		"-vsync", "vfr",
		"-f", "image2pipe",
		"-vcodec", "mjpeg",
		"-",
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if len(detail) > 300 {
			detail = detail[len(detail)-300:]
		}
		return nil, fmt.Errorf("ffmpeg: %v: %s: %w", err, detail, ErrVideoDecode)
	}
	return splitJPEGStream(stdout.Bytes()), nil
}

// parseRate parses ffprobe's fractional rates like "30000/1001" or "25/1".
func parseRate(s string) float64 {
	num, den, ok := strings.Cut(s, "/")
	if !ok {
		f, _ := strconv.ParseFloat(s, 64)
		return f
	}
	n, err1 := strconv.ParseFloat(num, 64)
	d, err2 := strconv.ParseFloat(den, 64)
	if err1 != nil || err2 != nil || d == 0 {
		return 0
	}
	return n / d
}
