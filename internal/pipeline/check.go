package pipeline

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"time"

	"github.com/fpang/dataset-creator/internal/config"
	"github.com/fpang/dataset-creator/internal/counts"
	"github.com/fpang/dataset-creator/internal/dataset"
	"github.com/fpang/dataset-creator/internal/jobs"
	"github.com/fpang/dataset-creator/internal/logging"
	"github.com/fpang/dataset-creator/internal/metrics"
	"github.com/rs/zerolog/log"
)

// CheckReport summarises a dataset-checker run.
type CheckReport struct {
	RunID   string
	Files   []dataset.RepairReport
	Elapsed time.Duration
}

// Rewritten counts the files that had to be repaired.
func (r CheckReport) Rewritten() int {
	n := 0
	for _, f := range r.Files {
		if f.Rewritten {
			n++
		}
	}
	return n
}

// Check validates and repairs every dataset file in cfg.InDir matching
// cfg.Pattern, in name order. A file referring to a video missing from the
// count table stops the run; files already repaired stay repaired.
func Check(ctx context.Context, cfg config.CheckConfig, out io.Writer) (CheckReport, error) {
	start := time.Now()
	report := CheckReport{RunID: jobs.GenerateID(jobs.CheckPrefix)}

	files, err := filepath.Glob(filepath.Join(cfg.InDir, cfg.Pattern))
	if err != nil {
		return report, fmt.Errorf("invalid search string %q: %w", cfg.Pattern, err)
	}
	sort.Strings(files)

	names := make([]string, len(files))
	for i, f := range files {
		names[i] = filepath.Base(f)
	}
	log.Info().Strs("files", names).Msg("Found dataset files")

	logging.NewRunLogger("dataset-checker").
		RunID(report.RunID).
		Input("dir", cfg.InDir).
		Input("counts", cfg.CountsFile).
		Output("dir", cfg.OutDir).
		Config("searchString", cfg.Pattern).
		Feature("compressBackup", cfg.CompressBackup).
		Log()

	if len(files) == 0 {
		log.Warn().Str("dir", cfg.InDir).Str("searchString", cfg.Pattern).Msg("No dataset files to check")
		report.Elapsed = time.Since(start)
		return report, nil
	}

	table, err := counts.Load(cfg.CountsFile)
	if err != nil {
		return report, err
	}

	opts := dataset.RepairOptions{CompressBackup: cfg.CompressBackup}
	if cfg.OutDir != cfg.InDir {
		opts.OutDir = cfg.OutDir
	}

	faults, clamped := 0, 0
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		r, err := dataset.Repair(f, table, opts)
		if err != nil {
			return report, err
		}
		report.Files = append(report.Files, r)
		faults += len(r.Faults)
		clamped += len(r.Clamped)
	}
	report.Elapsed = time.Since(start)

	log.Info().
		Int("files", len(report.Files)).
		Int("rewritten", report.Rewritten()).
		Int("removed", faults).
		Int("clamped", clamped).
		Dur("elapsed", report.Elapsed).
		Msg("Dataset check finished")

	if cfg.Metrics {
		err := metrics.New(out, "dataset-checker").
			Count("Files", len(report.Files)).
			Count("FilesRewritten", report.Rewritten()).
			Count("RowsRemoved", faults).
			Count("RowsClamped", clamped).
			Duration("ElapsedMs", report.Elapsed).
			Property("runId", report.RunID).
			Flush()
		if err != nil {
			return report, err
		}
	}

	return report, nil
}
