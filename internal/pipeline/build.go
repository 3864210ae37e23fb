// Package pipeline runs the dataset tools end to end: it loads the inputs,
// calls the merge and repair stages, writes every output atomically, and
// records the run for later inspection.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"time"

	"github.com/fpang/dataset-creator/internal/classlog"
	"github.com/fpang/dataset-creator/internal/config"
	"github.com/fpang/dataset-creator/internal/counts"
	"github.com/fpang/dataset-creator/internal/dataset"
	"github.com/fpang/dataset-creator/internal/filehandler"
	"github.com/fpang/dataset-creator/internal/fsutil"
	"github.com/fpang/dataset-creator/internal/jobs"
	"github.com/fpang/dataset-creator/internal/logging"
	"github.com/fpang/dataset-creator/internal/metrics"
	"github.com/fpang/dataset-creator/internal/store"
	"github.com/fpang/dataset-creator/internal/timeline"
	"github.com/rs/zerolog/log"
)

// detectFrameRate is swapped out in tests so they need no ffprobe.
var detectFrameRate = filehandler.DetectFrameRate

// BuildReport summarises a make-dataset run.
type BuildReport struct {
	RunID   string
	FPS     float64
	Output  string
	Merged  int
	Dropped int
	Repair  dataset.RepairReport
	Elapsed time.Duration
}

// Build creates the labelled dataset described by cfg. The merged table is
// written to cfg.Output, then checked and repaired in place. Metrics lines go
// to out when cfg.Metrics is set.
func Build(ctx context.Context, cfg config.Config, out io.Writer) (BuildReport, error) {
	start := time.Now()
	report := BuildReport{RunID: jobs.GenerateID(jobs.BuildPrefix), Output: cfg.Output}

	table, err := counts.Load(cfg.CountsFile)
	if err != nil {
		return report, err
	}

	streams := make([]classlog.Stream, 0, len(cfg.Streams))
	for _, s := range cfg.Streams {
		stream, err := classlog.Load(s.File, s.Class)
		if err != nil {
			return report, err
		}
		streams = append(streams, stream)
	}

	opts := cfg.Timeline
	if cfg.DetectFPS {
		fps, err := detectFrameRate(ctx, cfg.Dir, opts.FPS)
		if err != nil {
			return report, err
		}
		opts.FPS = fps
	}
	report.FPS = opts.FPS

	runLog := describeBuild(report.RunID, cfg, opts)
	runLog.Log()
	if err := runLog.AppendDescription(cfg.RunDescription); err != nil {
		return report, err
	}

	merged, err := timeline.Merge(table, streams, opts)
	if err != nil {
		return report, err
	}
	report.Merged = len(merged.Rows)
	report.Dropped = merged.Dropped

	if err := writeTable(filepath.Dir(cfg.Output), filepath.Base(cfg.Output), dataset.DefaultHeader, merged.Rows); err != nil {
		return report, err
	}

	report.Repair, err = dataset.Repair(cfg.Output, table, dataset.RepairOptions{CompressBackup: cfg.CompressBackup})
	if err != nil {
		return report, err
	}

	if cfg.SQLite != "" {
		run := &store.Run{
			ID:             report.RunID,
			Command:        "make-dataset",
			Dir:            cfg.Dir,
			Output:         cfg.Output,
			FPS:            opts.FPS,
			StartingFrame:  opts.StartingFrame,
			FrameInterval:  opts.FrameInterval,
			EndFrameBuffer: opts.EndFrameBuffer,
			Rows:           report.Repair.Kept,
			Dropped:        merged.Dropped,
			Faults:         len(report.Repair.Faults),
			Clamped:        len(report.Repair.Clamped),
			CreatedAt:      start.UTC(),
		}
		if err := export(ctx, cfg.SQLite, run, report.Repair.Table, classesOf(runLog)); err != nil {
			return report, err
		}
	}

	report.Elapsed = time.Since(start)

	if cfg.Metrics {
		rec := metrics.New(out, "make-dataset").
			Count("Videos", table.Len()).
			Count("ClassEvents", countEvents(streams)).
			Count("RowsMerged", report.Merged).
			Count("RowsKept", report.Repair.Kept).
			Count("EventsDropped", report.Dropped).
			Count("RowsRemoved", len(report.Repair.Faults)).
			Count("RowsClamped", len(report.Repair.Clamped)).
			Metric("FPS", opts.FPS, metrics.UnitNone).
			Duration("ElapsedMs", report.Elapsed).
			Property("runId", report.RunID)
		for rule, n := range merged.Rules {
			rec.Count("Rule_"+rule.String(), n)
		}
		if err := rec.Flush(); err != nil {
			return report, err
		}
	}

	return report, nil
}

func describeBuild(runID string, cfg config.Config, opts timeline.Options) *logging.RunLogger {
	r := logging.NewRunLogger("make-dataset").
		RunID(runID).
		Input("dir", cfg.Dir).
		Input("counts", cfg.CountsFile).
		Output("dataset", cfg.Output).
		Output("runDescription", cfg.RunDescription).
		Feature("detectFps", cfg.DetectFPS).
		Feature("compressBackup", cfg.CompressBackup).
		Feature("sqlite", cfg.SQLite != "").
		Feature("trimTerminalInterval", opts.Policy.TrimTerminalInterval).
		Config("fps", strconv.FormatFloat(opts.FPS, 'f', -1, 64)).
		Config("startingFrame", strconv.Itoa(opts.StartingFrame)).
		Config("frameInterval", strconv.Itoa(opts.FrameInterval)).
		Config("endFrameBuffer", strconv.Itoa(opts.EndFrameBuffer)).
		Config("spacingMultiple", strconv.Itoa(opts.Policy.SpacingMultiple))
	if cfg.SQLite != "" {
		r.Output("sqlite", cfg.SQLite)
	}
	for _, s := range cfg.Streams {
		r.Input("log_"+s.Name, s.File)
		r.Class(s.Class, s.Name, filepath.Base(s.File))
	}
	return r
}

func classesOf(r *logging.RunLogger) []store.Class {
	rels := r.Classes()
	classes := make([]store.Class, len(rels))
	for i, c := range rels {
		classes[i] = store.Class{Number: c.Number, Name: c.Name, Source: c.Source}
	}
	return classes
}

func countEvents(streams []classlog.Stream) int {
	n := 0
	for _, s := range streams {
		n += len(s.Times)
	}
	return n
}

// export writes one run into the SQLite database at path.
func export(ctx context.Context, path string, run *store.Run, rows []dataset.Row, classes []store.Class) error {
	db, err := store.Open(path)
	if err != nil {
		return err
	}
	defer db.Close()

	return db.SaveRun(ctx, run, rows, classes)
}

func writeTable(dir, name string, header []string, rows []dataset.Row) error {
	data, err := dataset.Encode(header, rows)
	if err != nil {
		return err
	}
	if err := fsutil.WriteFileAtomic(dir, name, data); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	log.Info().Str("dir", dir).Str("file", name).Int("rows", len(rows)).Msg("Dataset file written")
	return nil
}
