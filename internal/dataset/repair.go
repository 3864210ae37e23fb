package dataset

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fpang/dataset-creator/internal/counts"
	"github.com/fpang/dataset-creator/internal/fsutil"
	"github.com/rs/zerolog/log"
)

// RepairOptions configures where a repaired table goes.
type RepairOptions struct {
	// OutDir receives the cleaned table and its backup. Empty means the
	// directory of the table itself, i.e. repair in place.
	OutDir string

	// CompressBackup stores the backup zstd-compressed.
	CompressBackup bool
}

// RepairReport describes what a repair pass did to one table.
type RepairReport struct {
	Path       string
	OutPath    string
	BackupPath string
	Rows       int
	Kept       int
	Faults     []Fault
	Clamped    []Clamp
	Rewritten  bool

	// Table holds the rows that survived the check, clamps applied.
	Table []Row
}

// Repair validates the table at path against lookup and fixes it.
//
// A table with no faulty row is certified clean and left untouched: nothing
// is written and no backup is made, even when end frames were clamped. The
// clamped rows are still returned in the report's Table. Otherwise the
// original bytes are saved as a backup first, then the cleaned table
// atomically replaces the output file. Running Repair on its own output
// changes nothing.
func Repair(path string, lookup counts.Lookup, opts RepairOptions) (RepairReport, error) {
	report := RepairReport{Path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		return report, fmt.Errorf("failed to read dataset: %w", err)
	}

	header, records, err := Decode(data)
	if err != nil {
		return report, fmt.Errorf("%s: %w", path, err)
	}

	result, err := Check(records, lookup)
	if err != nil {
		return report, fmt.Errorf("%s: %w", path, err)
	}

	report.Rows = len(records)
	report.Kept = len(result.Rows)
	report.Faults = result.Faults
	report.Clamped = result.Clamped
	report.Table = result.Rows

	if !result.RemovesRows() {
		log.Info().
			Str("path", path).
			Int("clamped", len(result.Clamped)).
			Msg("No faulty rows found, dataset is clean and no backup will be made")
		return report, nil
	}

	outDir := opts.OutDir
	if outDir == "" {
		outDir = filepath.Dir(path)
	}
	name := filepath.Base(path)

	cleaned, err := Encode(header, result.Rows)
	if err != nil {
		return report, err
	}

	log.Info().
		Str("path", path).
		Int("removed", len(result.Faults)).
		Int("clamped", len(result.Clamped)).
		Msg("Dataset cleaned, moving old dataset to backup")

	backup, err := fsutil.WriteBackup(outDir, path, data, opts.CompressBackup)
	if err != nil {
		return report, err
	}
	report.BackupPath = backup

	if err := fsutil.WriteFileAtomic(outDir, name, cleaned); err != nil {
		return report, fmt.Errorf("failed to write cleaned dataset: %w", err)
	}
	report.OutPath = filepath.Join(outDir, name)
	report.Rewritten = true

	log.Info().Str("path", report.OutPath).Int("rows", report.Kept).Msg("Cleaned dataset saved")

	return report, nil
}
