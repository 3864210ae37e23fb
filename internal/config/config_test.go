package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/fpang/dataset-creator/internal/timeline"
)

func ptr[T any](v T) *T { return &v }

func TestResolve_Defaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Resolve(Flags{Path: dir}, FileConfig{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if cfg.CountsFile != filepath.Join(dir, "counts.csv") {
		t.Errorf("CountsFile = %q", cfg.CountsFile)
	}
	if cfg.Output != filepath.Join(dir, "dataset.csv") {
		t.Errorf("Output = %q", cfg.Output)
	}
	if cfg.RunDescription != filepath.Join(dir, "RUN_DESCRIPTION.log") {
		t.Errorf("RunDescription = %q", cfg.RunDescription)
	}
	if !cfg.DetectFPS || cfg.Timeline.FPS != 25 {
		t.Errorf("fps = %v detect=%v, want 25 with detection", cfg.Timeline.FPS, cfg.DetectFPS)
	}
	want := timeline.Options{FPS: 25, StartingFrame: 1, Policy: timeline.Policy{SpacingMultiple: 1}}
	if cfg.Timeline != want {
		t.Errorf("Timeline = %+v, want %+v", cfg.Timeline, want)
	}
	if cfg.SQLite != "" {
		t.Errorf("SQLite = %q, want disabled", cfg.SQLite)
	}

	names := []string{"NO", "POS", "NEG"}
	if len(cfg.Streams) != len(names) {
		t.Fatalf("got %d streams, want %d", len(cfg.Streams), len(names))
	}
	for i, s := range cfg.Streams {
		if s.Class != i || s.Name != names[i] || s.File != filepath.Join(dir, DefaultFiles[i]) {
			t.Errorf("stream %d = %+v", i, s)
		}
	}
}

func TestResolve_Precedence(t *testing.T) {
	dir := t.TempDir()
	fc := FileConfig{
		Path:            "ignored",
		CountsFile:      "frames.csv",
		FPS:             ptr(30.0),
		StartingFrame:   ptr(5),
		FrameInterval:   ptr(4),
		SpacingMultiple: ptr(2),
		CompressBackup:  ptr(true),
		SQLite:          "run.db",
	}

	tests := []struct {
		name  string
		flags Flags
		check func(t *testing.T, cfg Config)
	}{
		{
			name:  "file over default",
			flags: Flags{Path: dir},
			check: func(t *testing.T, cfg Config) {
				if cfg.Timeline.FPS != 30 || cfg.DetectFPS {
					t.Errorf("fps = %v detect=%v, want 30 without detection", cfg.Timeline.FPS, cfg.DetectFPS)
				}
				if cfg.Timeline.StartingFrame != 5 || cfg.Timeline.FrameInterval != 4 {
					t.Errorf("Timeline = %+v", cfg.Timeline)
				}
				if cfg.Timeline.Policy.SpacingMultiple != 2 {
					t.Errorf("SpacingMultiple = %d, want 2", cfg.Timeline.Policy.SpacingMultiple)
				}
				if cfg.CountsFile != filepath.Join(dir, "frames.csv") {
					t.Errorf("CountsFile = %q", cfg.CountsFile)
				}
				if !cfg.CompressBackup || cfg.SQLite != filepath.Join(dir, "run.db") {
					t.Errorf("CompressBackup=%v SQLite=%q", cfg.CompressBackup, cfg.SQLite)
				}
			},
		},
		{
			name: "flag over file",
			flags: Flags{
				Path:           dir,
				FPS:            ptr(12.5),
				StartingFrame:  ptr(0),
				CompressBackup: ptr(false),
			},
			check: func(t *testing.T, cfg Config) {
				if cfg.Timeline.FPS != 12.5 || cfg.DetectFPS {
					t.Errorf("fps = %v detect=%v", cfg.Timeline.FPS, cfg.DetectFPS)
				}
				if cfg.Timeline.StartingFrame != 0 {
					t.Errorf("StartingFrame = %d, want explicit 0", cfg.Timeline.StartingFrame)
				}
				if cfg.CompressBackup {
					t.Error("explicit --compress-backup=false must win over the file")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Resolve(tt.flags, fc)
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if cfg.Dir != dir {
				t.Errorf("Dir = %q, want %q", cfg.Dir, dir)
			}
			tt.check(t, cfg)
		})
	}
}

func TestResolve_Streams(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		files   []string
		fc      FileConfig
		want    []Stream
		wantErr bool
	}{
		{
			name:  "command line is positional",
			files: []string{"logA.txt", " ", "logB.txt"},
			fc:    FileConfig{Streams: []Stream{{File: "x.txt", Class: 7}}},
			want: []Stream{
				{File: "logA.txt", Class: 0, Name: "A"},
				{File: "logB.txt", Class: 1, Name: "B"},
			},
		},
		{
			name: "explicit streams keep their class",
			fc: FileConfig{
				Files:   []string{"unused.txt"},
				Streams: []Stream{{File: "idle.txt", Class: 3, Name: "IDLE"}, {File: "logRun.txt", Class: 1}},
			},
			want: []Stream{
				{File: "idle.txt", Class: 3, Name: "IDLE"},
				{File: "logRun.txt", Class: 1, Name: "RUN"},
			},
		},
		{
			name: "file list",
			fc:   FileConfig{Files: []string{"logUp.txt"}},
			want: []Stream{{File: "logUp.txt", Class: 0, Name: "UP"}},
		},
		{
			name:    "negative class",
			fc:      FileConfig{Streams: []Stream{{File: "a.txt", Class: -1}}},
			wantErr: true,
		},
		{
			name:    "missing file",
			fc:      FileConfig{Streams: []Stream{{Class: 1}}},
			wantErr: true,
		},
		{
			name:    "duplicate file",
			files:   []string{"a.txt", "a.txt"},
			wantErr: true,
		},
		{
			name:    "only blanks",
			files:   []string{" ", ""},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fc.Path = dir
			cfg, err := Resolve(Flags{Files: tt.files}, tt.fc)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if len(cfg.Streams) != len(tt.want) {
				t.Fatalf("got %d streams, want %d: %+v", len(cfg.Streams), len(tt.want), cfg.Streams)
			}
			for i, want := range tt.want {
				want.File = filepath.Join(dir, want.File)
				if cfg.Streams[i] != want {
					t.Errorf("stream %d = %+v, want %+v", i, cfg.Streams[i], want)
				}
			}
		})
	}
}

func TestResolve_NoStreams(t *testing.T) {
	_, err := Resolve(Flags{Path: t.TempDir(), Files: []string{""}}, FileConfig{})
	if !errors.Is(err, ErrNoStreams) {
		t.Errorf("err = %v, want ErrNoStreams", err)
	}
}

func TestResolve_InvalidTimeline(t *testing.T) {
	_, err := Resolve(Flags{Path: t.TempDir(), FPS: ptr(0.0)}, FileConfig{})
	if !errors.Is(err, timeline.ErrInvalidOptions) {
		t.Errorf("err = %v, want ErrInvalidOptions", err)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	t.Run("valid", func(t *testing.T) {
		path := filepath.Join(dir, "dataset.toml")
		content := `path = "/data/run1"
fps = 29.97
frame_interval = 5
trim_terminal_interval = true

[[streams]]
file = "logNo.txt"
class = 0

[[streams]]
file = "logPos.txt"
class = 1
name = "POSITIVE"
`
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}

		fc, err := Load(path)
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if fc.Path != "/data/run1" || fc.FPS == nil || *fc.FPS != 29.97 {
			t.Errorf("fc = %+v", fc)
		}
		if fc.FrameInterval == nil || *fc.FrameInterval != 5 {
			t.Errorf("FrameInterval = %v", fc.FrameInterval)
		}
		if fc.TrimTerminalInterval == nil || !*fc.TrimTerminalInterval {
			t.Errorf("TrimTerminalInterval = %v", fc.TrimTerminalInterval)
		}
		if fc.StartingFrame != nil {
			t.Errorf("StartingFrame = %v, want unset", *fc.StartingFrame)
		}
		if len(fc.Streams) != 2 || fc.Streams[1].Name != "POSITIVE" {
			t.Errorf("Streams = %+v", fc.Streams)
		}
	})

	t.Run("unknown key", func(t *testing.T) {
		path := filepath.Join(dir, "typo.toml")
		if err := os.WriteFile(path, []byte("frame_intervall = 5\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := Load(path); err == nil {
			t.Error("expected error for unknown key")
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := Load(filepath.Join(dir, "none.toml")); err == nil {
			t.Error("expected error for missing file")
		}
	})
}
