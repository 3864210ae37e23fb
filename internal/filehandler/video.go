package filehandler

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// CheckFFprobeAvailable checks if ffprobe is available in the system PATH.
// Returns nil if ffprobe is available, or an error describing the issue.
func CheckFFprobeAvailable() error {
	path, err := exec.LookPath("ffprobe")
	if err != nil {
		return fmt.Errorf("ffprobe not found in PATH: frame rate detection will be unavailable. Install FFmpeg with: brew install ffmpeg (macOS) or apt install ffmpeg (Linux)")
	}
	log.Debug().Str("path", path).Msg("ffprobe found")
	return nil
}

// ffprobeOutput is the part of ffprobe's JSON report frame rate detection reads.
type ffprobeOutput struct {
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeStream struct {
	CodecType    string `json:"codec_type"`
	RFrameRate   string `json:"r_frame_rate"`
	AvgFrameRate string `json:"avg_frame_rate"`
}

// ProbeFrameRate runs ffprobe against a video and returns the frame rate of
// its first video stream. The call is bounded by ctx.
func ProbeFrameRate(ctx context.Context, filePath string) (float64, error) {
	log.Debug().Str("path", filePath).Msg("Probing frame rate using ffprobe")

	ffprobePath, err := exec.LookPath("ffprobe")
	if err != nil {
		return 0, fmt.Errorf("ffprobe not found in PATH: %w", err)
	}

	cmd := exec.CommandContext(ctx, ffprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_streams",
		"-select_streams", "v",
		filePath,
	)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w", err)
	}

	fps, err := parseProbeOutput(output)
	if err != nil {
		return 0, err
	}
	if fps <= 0 {
		return 0, fmt.Errorf("no frame rate reported for %s", filePath)
	}

	log.Info().
		Str("path", filePath).
		Float64("frame_rate", fps).
		Msg("Frame rate probed via ffprobe")

	return fps, nil
}

// parseProbeOutput returns the frame rate of the first video stream in an
// ffprobe report, or 0 when none is reported.
func parseProbeOutput(output []byte) (float64, error) {
	var probe ffprobeOutput
	if err := json.Unmarshal(output, &probe); err != nil {
		return 0, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	for _, stream := range probe.Streams {
		if stream.CodecType != "video" {
			continue
		}
		if rate := parseFrameRate(stream.AvgFrameRate); rate != 0 {
			return rate, nil
		}
		return parseFrameRate(stream.RFrameRate), nil
	}
	return 0, nil
}

// parseFrameRate parses frame rate from ffprobe format (e.g., "60/1" -> 60.0)
func parseFrameRate(value string) float64 {
	parts := strings.Split(value, "/")
	if len(parts) == 2 {
		num, _ := strconv.ParseFloat(parts[0], 64)
		den, _ := strconv.ParseFloat(parts[1], 64)
		if den != 0 {
			return num / den
		}
		return 0
	}
	rate, _ := strconv.ParseFloat(value, 64)
	return rate
}
