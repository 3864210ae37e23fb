package cli

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/fpang/dataset-creator/internal/classlog"
	"github.com/fpang/dataset-creator/internal/config"
	"github.com/fpang/dataset-creator/internal/counts"
	"github.com/fpang/dataset-creator/internal/filehandler"
	"github.com/fpang/dataset-creator/internal/fsutil"
	"github.com/fpang/dataset-creator/internal/jobs"
	"github.com/fpang/dataset-creator/internal/store"
	"github.com/fpang/dataset-creator/internal/timeline"
	"github.com/rs/zerolog/log"
)

// ValidateAndResolveDirectory checks that the path exists and is a directory,
// then returns the absolute path. Exits fatally on failure.
func ValidateAndResolveDirectory(dirPath string) string {
	info, err := os.Stat(dirPath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Fatal().Str("path", dirPath).Msg("Directory not found")
		}
		log.Fatal().Err(err).Str("path", dirPath).Msg("Failed to access directory")
	}
	if !info.IsDir() {
		log.Fatal().Str("path", dirPath).Msg("Path is not a directory")
	}

	absPath, err := filepath.Abs(dirPath)
	if err == nil {
		dirPath = absPath
	}

	return dirPath
}

// HandleRunError logs a failed run with a message matching its cause and
// exits.
func HandleRunError(err error) {
	var (
		countsTS *counts.TimestampError
		logTS    *classlog.TimestampError
	)
	switch {
	case counts.IsMissingVideo(err):
		log.Fatal().Err(err).Msg("Dataset refers to a video that is not in the count table")
	case errors.As(err, &countsTS):
		log.Fatal().Err(err).Str("filename", countsTS.Filename).Msg("Video filename is not a timestamp")
	case errors.As(err, &logTS):
		log.Fatal().Err(err).Str("source", logTS.Source).Int("line", logTS.Line).Msg("Class log line is not a timestamp")
	case errors.Is(err, filehandler.ErrNoVideos):
		log.Fatal().Err(err).Msg("No videos to detect the frame rate from. Pass --fps explicitly")
	case errors.Is(err, timeline.ErrInvalidOptions):
		log.Fatal().Err(err).Msg("Invalid frame settings")
	case fsutil.IsCrossDevice(err):
		log.Fatal().Err(err).Msg("Temporary file and output are on different filesystems, cannot replace the output atomically")
	case errors.Is(err, jobs.ErrInvalidID):
		log.Fatal().Err(err).Msg("Not a make-dataset run id")
	case errors.Is(err, store.ErrRunNotFound):
		log.Fatal().Err(err).Msg("Run is not in the export database. List the stored runs without --run")
	case errors.Is(err, config.ErrNoStreams):
		log.Fatal().Err(err).Msg("No class logs configured. Pass --files or add [[streams]] to the config file")
	default:
		log.Fatal().Err(err).Msg("Run failed")
	}
	os.Exit(1)
}
