package pipeline

import (
	"context"
	"fmt"
	"os"

	"github.com/fpang/dataset-creator/internal/dataset"
	"github.com/fpang/dataset-creator/internal/jobs"
	"github.com/fpang/dataset-creator/internal/store"
)

// RunDetail is one exported run with its class relations and segments.
type RunDetail struct {
	Run      *store.Run
	Classes  []store.Class
	Segments []dataset.Row
}

// LabelledFrames sums the frames covered by the run's segments.
func (d RunDetail) LabelledFrames() int {
	total := 0
	for _, row := range d.Segments {
		total += row.EndFrame - row.BeginFrame
	}
	return total
}

// ListRuns returns the runs exported into the database at path, newest first.
func ListRuns(ctx context.Context, path string) ([]*store.Run, error) {
	db, err := openExport(path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	return db.ListRuns(ctx)
}

// ShowRun reads one make-dataset run back from the database at path.
func ShowRun(ctx context.Context, path, runID string) (RunDetail, error) {
	if _, err := jobs.ParseID(runID, jobs.BuildPrefix); err != nil {
		return RunDetail{}, err
	}

	db, err := openExport(path)
	if err != nil {
		return RunDetail{}, err
	}
	defer db.Close()

	run, err := db.GetRun(ctx, runID)
	if err != nil {
		return RunDetail{}, err
	}
	if run == nil {
		return RunDetail{}, fmt.Errorf("%w: %s in %s", store.ErrRunNotFound, runID, path)
	}

	detail := RunDetail{Run: run}
	if detail.Classes, err = db.Classes(ctx, runID); err != nil {
		return RunDetail{}, err
	}
	if detail.Segments, err = db.Segments(ctx, runID); err != nil {
		return RunDetail{}, err
	}
	return detail, nil
}

// openExport opens an export database that must already exist, so that a
// mistyped path is reported instead of creating an empty database.
func openExport(path string) (*store.SQLiteStore, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("export database %s: %w", path, err)
	}
	return store.Open(path)
}
