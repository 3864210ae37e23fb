package filehandler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestListVideoFiles(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir,
		"2024-01-01 00:10:00.0.h264",
		"2024-01-01 00:00:00.0.h264",
		"counts.csv",
		"logPos.txt",
	)
	if err := os.Mkdir(filepath.Join(dir, "nested.mp4"), 0o755); err != nil {
		t.Fatal(err)
	}

	videos, err := ListVideoFiles(dir)
	if err != nil {
		t.Fatalf("ListVideoFiles: %v", err)
	}
	if len(videos) != 2 {
		t.Fatalf("got %d videos, want 2", len(videos))
	}
	if videos[0].Name != "2024-01-01 00:00:00.0.h264" {
		t.Errorf("videos not sorted: first = %q", videos[0].Name)
	}
}

func TestListVideoFiles_NotADirectory(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "counts.csv")

	if _, err := ListVideoFiles(filepath.Join(dir, "counts.csv")); err == nil {
		t.Error("expected error for file path")
	}
	if _, err := ListVideoFiles(filepath.Join(dir, "missing")); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestDetectFrameRate(t *testing.T) {
	orig := probeFunc
	t.Cleanup(func() { probeFunc = orig })

	var probed string
	probeFunc = func(_ context.Context, path string) (float64, error) {
		probed = filepath.Base(path)
		return 29.97, nil
	}

	tests := []struct {
		name       string
		files      []string
		wantFPS    float64
		wantProbed string
		wantErr    error
	}{
		{
			name:       "mp4 is probed",
			files:      []string{"2024-01-01 00:00:00.0.mp4", "2024-01-01 00:10:00.0.mp4"},
			wantFPS:    29.97,
			wantProbed: "2024-01-01 00:00:00.0.mp4",
		},
		{
			name:    "h264 uses fallback",
			files:   []string{"2024-01-01 00:00:00.0.h264"},
			wantFPS: 25,
		},
		{
			name:    "no videos",
			files:   []string{"counts.csv"},
			wantErr: ErrNoVideos,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			probed = ""
			dir := t.TempDir()
			writeFiles(t, dir, tt.files...)

			fps, err := DetectFrameRate(context.Background(), dir, 25)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("DetectFrameRate: %v", err)
			}
			if !floatEquals(fps, tt.wantFPS, 0.0001) {
				t.Errorf("fps = %v, want %v", fps, tt.wantFPS)
			}
			if probed != tt.wantProbed {
				t.Errorf("probed %q, want %q", probed, tt.wantProbed)
			}
		})
	}
}

func TestDetectFrameRate_ProbeError(t *testing.T) {
	orig := probeFunc
	t.Cleanup(func() { probeFunc = orig })
	probeFunc = func(context.Context, string) (float64, error) {
		return 0, errors.New("ffprobe failed")
	}

	dir := t.TempDir()
	writeFiles(t, dir, "2024-01-01 00:00:00.0.mp4")

	if _, err := DetectFrameRate(context.Background(), dir, 25); err == nil {
		t.Error("expected probe error to propagate")
	}
}
