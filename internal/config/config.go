// Package config resolves the settings of a dataset build from command-line
// flags, an optional TOML file, and built-in defaults, in that order of
// precedence.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fpang/dataset-creator/internal/classlog"
	"github.com/fpang/dataset-creator/internal/timeline"
	"github.com/pelletier/go-toml/v2"
)

const (
	DefaultPath            = "."
	DefaultCountsFile      = "counts.csv"
	DefaultFPS             = 25.0
	DefaultStartingFrame   = 1
	DefaultSpacingMultiple = 1
	DefaultOutput          = "dataset.csv"
	RunDescriptionFile     = "RUN_DESCRIPTION.log"
)

// DefaultFiles are the class logs read when none are configured. Their
// position is their class number.
var DefaultFiles = []string{"logNo.txt", "logPos.txt", "logNeg.txt"}

// ErrNoStreams is returned when the configuration names no class logs.
var ErrNoStreams = errors.New("no class log files configured")

// Stream binds one class log file to its class number. Name is the label
// written to the run description; it is derived from the file name when empty.
type Stream struct {
	File  string `toml:"file"`
	Class int    `toml:"class"`
	Name  string `toml:"name"`
}

// FileConfig is the layout of a dataset.toml file. Pointer fields
// distinguish "not set" from the zero value.
type FileConfig struct {
	Path                 string   `toml:"path"`
	CountsFile           string   `toml:"counts_file"`
	Files                []string `toml:"files"`
	Streams              []Stream `toml:"streams"`
	FPS                  *float64 `toml:"fps"`
	StartingFrame        *int     `toml:"starting_frame"`
	FrameInterval        *int     `toml:"frame_interval"`
	EndFrameBuffer       *int     `toml:"end_frame_buffer"`
	SpacingMultiple      *int     `toml:"spacing_multiple"`
	TrimTerminalInterval *bool    `toml:"trim_terminal_interval"`
	Output               string   `toml:"output"`
	CompressBackup       *bool    `toml:"compress_backup"`
	SQLite               string   `toml:"sqlite"`
}

// Flags holds the command-line values. A nil pointer or empty string means
// the flag was not given.
type Flags struct {
	Path                 string
	CountsFile           string
	Files                []string
	FPS                  *float64
	StartingFrame        *int
	FrameInterval        *int
	EndFrameBuffer       *int
	SpacingMultiple      *int
	TrimTerminalInterval *bool
	Output               string
	CompressBackup       *bool
	SQLite               string
	Metrics              bool
}

// Config is the resolved configuration. Paths are absolute.
type Config struct {
	Dir        string
	CountsFile string
	Streams    []Stream

	Timeline timeline.Options
	// DetectFPS is set when no frame rate was configured explicitly and it
	// should be read from the first video in Dir.
	DetectFPS bool

	Output         string
	RunDescription string
	CompressBackup bool
	SQLite         string
	Metrics        bool
}

// Load reads a TOML configuration file. Unknown keys are an error so that a
// misspelled setting does not silently fall back to its default.
func Load(path string) (FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to read config file: %w", err)
	}

	var fc FileConfig
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&fc); err != nil {
		return FileConfig{}, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return fc, nil
}

// Resolve merges flags over the file configuration over defaults.
func Resolve(flags Flags, fc FileConfig) (Config, error) {
	dir := firstNonEmpty(flags.Path, fc.Path, DefaultPath)
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return Config{}, fmt.Errorf("failed to resolve path %q: %w", dir, err)
	}

	cfg := Config{
		Dir:            absDir,
		CountsFile:     within(absDir, firstNonEmpty(flags.CountsFile, fc.CountsFile, DefaultCountsFile)),
		Output:         within(absDir, firstNonEmpty(flags.Output, fc.Output, DefaultOutput)),
		RunDescription: filepath.Join(absDir, RunDescriptionFile),
		CompressBackup: pick(flags.CompressBackup, fc.CompressBackup, false),
		Metrics:        flags.Metrics,
	}
	if sqlite := firstNonEmpty(flags.SQLite, fc.SQLite, ""); sqlite != "" {
		cfg.SQLite = within(absDir, sqlite)
	}

	cfg.Streams, err = resolveStreams(absDir, flags.Files, fc)
	if err != nil {
		return Config{}, err
	}

	cfg.DetectFPS = flags.FPS == nil && fc.FPS == nil
	cfg.Timeline = timeline.Options{
		FPS:            pick(flags.FPS, fc.FPS, DefaultFPS),
		StartingFrame:  pick(flags.StartingFrame, fc.StartingFrame, DefaultStartingFrame),
		FrameInterval:  pick(flags.FrameInterval, fc.FrameInterval, 0),
		EndFrameBuffer: pick(flags.EndFrameBuffer, fc.EndFrameBuffer, 0),
		Policy: timeline.Policy{
			SpacingMultiple:      pick(flags.SpacingMultiple, fc.SpacingMultiple, DefaultSpacingMultiple),
			TrimTerminalInterval: pick(flags.TrimTerminalInterval, fc.TrimTerminalInterval, false),
		},
	}
	if err := cfg.Timeline.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// resolveStreams picks the class log list. Files given on the command line
// win and are numbered by position; otherwise explicit [[streams]] entries,
// then the file's positional list, then the defaults.
func resolveStreams(dir string, cliFiles []string, fc FileConfig) ([]Stream, error) {
	var streams []Stream
	switch {
	case len(cliFiles) > 0:
		streams = positional(cliFiles)
	case len(fc.Streams) > 0:
		streams = append([]Stream(nil), fc.Streams...)
	case len(fc.Files) > 0:
		streams = positional(fc.Files)
	default:
		streams = positional(DefaultFiles)
	}
	if len(streams) == 0 {
		return nil, ErrNoStreams
	}

	seen := make(map[string]bool, len(streams))
	for i := range streams {
		s := &streams[i]
		if strings.TrimSpace(s.File) == "" {
			return nil, fmt.Errorf("stream %d has no file", i)
		}
		if s.Class < 0 {
			return nil, fmt.Errorf("stream %s has negative class %d", s.File, s.Class)
		}
		if s.Name == "" {
			s.Name = classlog.ClassName(s.File)
		}
		s.File = within(dir, s.File)
		if seen[s.File] {
			return nil, fmt.Errorf("class log %s configured twice", s.File)
		}
		seen[s.File] = true
	}
	return streams, nil
}

func positional(files []string) []Stream {
	streams := make([]Stream, 0, len(files))
	for _, f := range files {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		streams = append(streams, Stream{File: f, Class: len(streams)})
	}
	return streams
}

// within resolves p against dir unless it is already absolute.
func within(dir, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(dir, p)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func pick[T any](flag, file *T, def T) T {
	if flag != nil {
		return *flag
	}
	if file != nil {
		return *file
	}
	return def
}
