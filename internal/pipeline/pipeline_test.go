package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fpang/dataset-creator/internal/config"
	"github.com/fpang/dataset-creator/internal/counts"
	"github.com/fpang/dataset-creator/internal/dataset"
	"github.com/fpang/dataset-creator/internal/filehandler"
	"github.com/fpang/dataset-creator/internal/fsutil"
	"github.com/fpang/dataset-creator/internal/store"
)

const (
	videoA = "2024-01-01 00:00:00.0.h264"
	videoB = "2024-01-01 00:00:40.0.h264"
)

func ptr[T any](v T) *T { return &v }

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func readRows(t *testing.T, path string) []dataset.Row {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	_, records, err := dataset.Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	rows := make([]dataset.Row, len(records))
	for i, rec := range records {
		row, ok := rec.Row()
		if !ok {
			t.Fatalf("row %d incomplete: %+v", i, rec)
		}
		rows[i] = row
	}
	return rows
}

func assertRows(t *testing.T, got, want []dataset.Row) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d rows, want %d\ngot:  %+v\nwant: %+v", len(got), len(want), got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("row %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func newRecording(t *testing.T, pos, neg string) string {
	t.Helper()
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"counts.csv": "filename,framecount\n" + videoA + ",1000\n" + videoB + ",1000\n",
		"logNo.txt":  "",
		"logPos.txt": pos,
		"logNeg.txt": neg,
	})
	return dir
}

func TestBuild_CleanTable(t *testing.T) {
	dir := newRecording(t, "20240101_000010\n\n20240101_000050\n", "20240101_000020\n")
	cfg, err := config.Resolve(config.Flags{Path: dir, FPS: ptr(25.0), StartingFrame: ptr(0)}, config.FileConfig{})
	if err != nil {
		t.Fatal(err)
	}

	report, err := Build(context.Background(), cfg, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	assertRows(t, readRows(t, cfg.Output), []dataset.Row{
		{Filename: videoA, Class: 0, BeginFrame: 0, EndFrame: 250},
		{Filename: videoA, Class: 1, BeginFrame: 250, EndFrame: 500},
		{Filename: videoA, Class: 2, BeginFrame: 500, EndFrame: 1000},
		{Filename: videoB, Class: 2, BeginFrame: 0, EndFrame: 250},
		{Filename: videoB, Class: 1, BeginFrame: 250, EndFrame: 1000},
	})
	if report.Repair.Rewritten {
		t.Error("clean table was rewritten")
	}
	if _, err := os.Stat(cfg.Output + fsutil.BackupSuffix); !os.IsNotExist(err) {
		t.Error("clean table got a backup")
	}

	desc, err := os.ReadFile(filepath.Join(dir, "RUN_DESCRIPTION.log"))
	if err != nil {
		t.Fatalf("run description missing: %v", err)
	}
	for _, line := range []string{
		"Assigning class number 0 to class NO",
		"Assigning class number 1 to class POS",
		"Assigning class number 2 to class NEG",
	} {
		if !strings.Contains(string(desc), line) {
			t.Errorf("run description lacks %q", line)
		}
	}
}

func TestBuild_RepairsAndExports(t *testing.T) {
	dir := newRecording(t, "20240101_000010\n", "20240101_000010\n")
	cfg, err := config.Resolve(config.Flags{
		Path:          dir,
		FPS:           ptr(25.0),
		StartingFrame: ptr(0),
		SQLite:        "runs.db",
		Metrics:       true,
	}, config.FileConfig{})
	if err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	report, err := Build(context.Background(), cfg, &out)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	want := []dataset.Row{
		{Filename: videoA, Class: 0, BeginFrame: 0, EndFrame: 250},
		{Filename: videoA, Class: 2, BeginFrame: 250, EndFrame: 1000},
		{Filename: videoB, Class: 2, BeginFrame: 0, EndFrame: 1000},
	}
	assertRows(t, readRows(t, cfg.Output), want)
	if !report.Repair.Rewritten || len(report.Repair.Faults) != 1 {
		t.Errorf("repair report = %+v", report.Repair)
	}
	if _, err := os.Stat(cfg.Output + fsutil.BackupSuffix); err != nil {
		t.Errorf("backup missing: %v", err)
	}

	db, err := store.Open(filepath.Join(dir, "runs.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	run, err := db.GetRun(context.Background(), report.RunID)
	if err != nil || run == nil {
		t.Fatalf("GetRun = %+v, %v", run, err)
	}
	if run.Rows != 3 || run.Faults != 1 || run.FPS != 25 {
		t.Errorf("run = %+v", run)
	}
	segments, err := db.Segments(context.Background(), report.RunID)
	if err != nil {
		t.Fatal(err)
	}
	assertRows(t, segments, want)
	classes, err := db.Classes(context.Background(), report.RunID)
	if err != nil || len(classes) != 3 {
		t.Errorf("Classes = %+v, %v", classes, err)
	}

	var doc map[string]interface{}
	if err := json.Unmarshal(out.Bytes(), &doc); err != nil {
		t.Fatalf("metrics line is not JSON: %v\n%s", err, out.String())
	}
	if doc["RowsKept"] != float64(3) || doc["RowsRemoved"] != float64(1) {
		t.Errorf("metrics = %v", doc)
	}
}

func TestBuild_DetectsFrameRate(t *testing.T) {
	dir := newRecording(t, "20240101_000010\n", "")
	cfg, err := config.Resolve(config.Flags{Path: dir, StartingFrame: ptr(0)}, config.FileConfig{})
	if err != nil {
		t.Fatal(err)
	}

	old := detectFrameRate
	t.Cleanup(func() { detectFrameRate = old })
	var probedDir string
	detectFrameRate = func(_ context.Context, d string, fallback float64) (float64, error) {
		probedDir = d
		return 50, nil
	}

	report, err := Build(context.Background(), cfg, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if probedDir != dir || report.FPS != 50 {
		t.Errorf("probed %q, fps %v", probedDir, report.FPS)
	}
	rows := readRows(t, cfg.Output)
	if rows[0].EndFrame != 500 {
		t.Errorf("first segment ends at %d, want 10s at 50 fps = 500", rows[0].EndFrame)
	}
}

func TestBuild_NoVideosForDetection(t *testing.T) {
	dir := newRecording(t, "20240101_000010\n", "")
	cfg, err := config.Resolve(config.Flags{Path: dir}, config.FileConfig{})
	if err != nil {
		t.Fatal(err)
	}

	_, err = Build(context.Background(), cfg, &bytes.Buffer{})
	if !errors.Is(err, filehandler.ErrNoVideos) {
		t.Fatalf("err = %v, want ErrNoVideos", err)
	}
	if _, statErr := os.Stat(cfg.Output); !os.IsNotExist(statErr) {
		t.Error("dataset written despite failure")
	}
}

func TestBuild_BadClassLog(t *testing.T) {
	dir := newRecording(t, "not a timestamp\n", "")
	cfg, err := config.Resolve(config.Flags{Path: dir, FPS: ptr(25.0)}, config.FileConfig{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Build(context.Background(), cfg, &bytes.Buffer{}); err == nil {
		t.Fatal("expected error for unparseable class log")
	}
}

func TestCheck(t *testing.T) {
	in := t.TempDir()
	out := filepath.Join(t.TempDir(), "checked")
	header := "filename,class,beginframe,endframe\n"
	writeFiles(t, in, map[string]string{
		"counts.csv":    "filename,framecount\n" + videoA + ",900\n",
		"dataset_0.csv": header + videoA + ",0,0,500\n" + videoA + ",1,500,400\n" + videoA + ",2,500,1000\n",
		"dataset_1.csv": header + videoA + ",0,0,900\n",
		"other.csv":     header + videoA + ",0,10,5\n",
	})

	cfg, err := config.ResolveCheck(in, out, "", "")
	if err != nil {
		t.Fatal(err)
	}
	cfg.Metrics = true

	var metricsOut bytes.Buffer
	report, err := Check(context.Background(), cfg, &metricsOut)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}

	if len(report.Files) != 2 || report.Rewritten() != 1 {
		t.Fatalf("report = %+v", report)
	}
	assertRows(t, readRows(t, filepath.Join(out, "dataset_0.csv")), []dataset.Row{
		{Filename: videoA, Class: 0, BeginFrame: 0, EndFrame: 500},
		{Filename: videoA, Class: 2, BeginFrame: 500, EndFrame: 900},
	})
	if _, err := os.Stat(filepath.Join(out, "dataset_1.csv")); !os.IsNotExist(err) {
		t.Error("clean file was copied to the output directory")
	}
	if _, err := os.Stat(filepath.Join(out, "other.csv")); !os.IsNotExist(err) {
		t.Error("file outside the search string was checked")
	}
	if !strings.Contains(metricsOut.String(), `"FilesRewritten":1`) {
		t.Errorf("metrics = %s", metricsOut.String())
	}
}

func TestCheck_MissingVideoStops(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"counts.csv":    "filename,framecount\n" + videoA + ",900\n",
		"dataset_0.csv": "filename,class,beginframe,endframe\n" + videoB + ",0,0,10\n",
	})
	cfg, err := config.ResolveCheck(dir, "", "", "")
	if err != nil {
		t.Fatal(err)
	}

	_, err = Check(context.Background(), cfg, &bytes.Buffer{})
	if !counts.IsMissingVideo(err) {
		t.Fatalf("err = %v, want MissingVideoError", err)
	}
}

func TestCheck_NoFiles(t *testing.T) {
	cfg, err := config.ResolveCheck(t.TempDir(), "", "", "")
	if err != nil {
		t.Fatal(err)
	}
	report, err := Check(context.Background(), cfg, &bytes.Buffer{})
	if err != nil || len(report.Files) != 0 {
		t.Errorf("Check = %+v, %v", report, err)
	}
}
