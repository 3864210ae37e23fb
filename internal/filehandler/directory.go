package filehandler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog/log"
)

// ErrNoVideos is returned when a session directory holds no supported video.
var ErrNoVideos = errors.New("no video files found")

// probeFunc is swapped in tests so frame rate detection can run without ffprobe.
var probeFunc = ProbeFrameRate

// ListVideoFiles returns the supported videos directly inside dirPath.
// Subdirectories are not descended into: a session directory is flat.
// Files are sorted by name, which for timestamp-named recordings is also
// chronological order.
func ListVideoFiles(dirPath string) ([]*VideoFile, error) {
	info, err := os.Stat(dirPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("directory not found: %s", dirPath)
		}
		return nil, fmt.Errorf("failed to stat directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", dirPath)
	}

	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var videos []*VideoFile
	for _, entry := range entries {
		if entry.IsDir() || !IsVideo(filepath.Ext(entry.Name())) {
			continue
		}
		video, err := LoadVideoFile(filepath.Join(dirPath, entry.Name()))
		if err != nil {
			log.Warn().Err(err).Str("file", entry.Name()).Msg("Failed to load video file, skipping")
			continue
		}
		videos = append(videos, video)
	}

	sort.Slice(videos, func(i, j int) bool {
		return videos[i].Name < videos[j].Name
	})

	log.Info().
		Int("videos", len(videos)).
		Str("directory", dirPath).
		Msg("Directory video scan complete")

	return videos, nil
}

// DetectFrameRate picks the frame rate for a session from its first video.
// MP4 files are probed with ffprobe; H.264 elementary streams carry no usable
// rate, so fallback is returned for them.
func DetectFrameRate(ctx context.Context, dirPath string, fallback float64) (float64, error) {
	videos, err := ListVideoFiles(dirPath)
	if err != nil {
		return 0, err
	}
	if len(videos) == 0 {
		return 0, fmt.Errorf("%w in %s", ErrNoVideos, dirPath)
	}

	first := videos[0]
	switch first.Ext() {
	case ".mp4":
		fps, err := probeFunc(ctx, first.Path)
		if err != nil {
			return 0, fmt.Errorf("failed to probe frame rate of %s: %w", first.Name, err)
		}
		log.Info().Str("file", first.Name).Float64("fps", fps).Msg("Frame rate detected")
		return fps, nil
	default:
		log.Info().
			Str("file", first.Name).
			Float64("fps", fallback).
			Msg("Container has no frame rate, using default")
		return fallback, nil
	}
}
