package cli

import (
	"fmt"
	"math"
	"time"
)

// FormatDurationShort formats a duration in a short format (M:SS or H:MM:SS).
func FormatDurationShort(d time.Duration) string {
	totalSeconds := int(d.Seconds())
	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	seconds := totalSeconds % 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}

// FormatFrames renders a frame count together with its playing time at fps,
// e.g. "1500 frames (1:00)".
func FormatFrames(frames int, fps float64) string {
	if fps <= 0 {
		return fmt.Sprintf("%d frames", frames)
	}
	seconds := math.Round(float64(frames) / fps)
	return fmt.Sprintf("%d frames (%s)", frames, FormatDurationShort(time.Duration(seconds)*time.Second))
}
