// Package store exports dataset runs into a relational database so that the
// labelled segments of many recordings can be queried together.
//
// Every run is one record keyed by its run ID. The segments it produced and
// the class relations it used hang off the run by run_id; exporting the same
// run twice replaces the earlier export.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/fpang/dataset-creator/internal/dataset"
)

// ErrRunNotFound is returned by callers that need a run that was never exported.
var ErrRunNotFound = errors.New("run not found")

// RunStore defines the persistence interface for dataset runs.
//
// All Get methods return (nil, nil) when the requested record does not exist.
type RunStore interface {
	// SaveRun writes a run with its segments and classes in one transaction,
	// replacing any earlier export of the same run ID.
	SaveRun(ctx context.Context, run *Run, segments []dataset.Row, classes []Class) error

	// GetRun retrieves a run by ID. Returns nil, nil if not found.
	GetRun(ctx context.Context, runID string) (*Run, error)

	// ListRuns returns every run, newest first.
	ListRuns(ctx context.Context) ([]*Run, error)

	// Segments returns the rows of a run in their dataset order.
	Segments(ctx context.Context, runID string) ([]dataset.Row, error)

	// Classes returns the class relations of a run ordered by class number.
	Classes(ctx context.Context, runID string) ([]Class, error)

	// Close releases the database.
	Close() error
}

// Run summarises one dataset build or check.
type Run struct {
	ID             string `gorm:"primaryKey"`
	Command        string `gorm:"column:command"`
	Dir            string `gorm:"column:dir"`
	Output         string `gorm:"column:output"`
	FPS            float64
	StartingFrame  int
	FrameInterval  int
	EndFrameBuffer int
	Rows           int
	Dropped        int
	Faults         int
	Clamped        int
	CreatedAt      time.Time
}

func (*Run) TableName() string {
	return "runs"
}

// Segment is one labelled frame interval of a run.
type Segment struct {
	ID         uint   `gorm:"primaryKey"`
	RunID      string `gorm:"column:run_id;index:idx_segments_run_seq,priority:1"`
	Seq        int    `gorm:"column:seq;index:idx_segments_run_seq,priority:2"`
	Filename   string `gorm:"column:filename;index"`
	Class      int    `gorm:"column:class;index"`
	BeginFrame int    `gorm:"column:begin_frame"`
	EndFrame   int    `gorm:"column:end_frame"`
}

func (*Segment) TableName() string {
	return "segments"
}

// Class relates a class number to its name within a run. Several class logs
// may share a number, so the source log is part of the key.
type Class struct {
	RunID  string `gorm:"column:run_id;primaryKey"`
	Number int    `gorm:"column:number;primaryKey;autoIncrement:false"`
	Name   string `gorm:"column:name"`
	Source string `gorm:"column:source;primaryKey"`
}

func (*Class) TableName() string {
	return "classes"
}
