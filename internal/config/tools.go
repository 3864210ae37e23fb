package config

import (
	"fmt"
	"path/filepath"
)

// DefaultSearchString selects the dataset files a checker run repairs.
const DefaultSearchString = "dataset_*.csv"

// CheckConfig is the resolved configuration of a checker run.
type CheckConfig struct {
	InDir          string
	OutDir         string
	Pattern        string
	CountsFile     string
	CompressBackup bool
	Metrics        bool
}

// ResolveCheck fills in checker defaults. The output directory defaults to
// the input directory, which repairs the tables in place. The count table is
// looked up in the input directory unless given as an absolute path.
func ResolveCheck(inPath, outPath, pattern, countsFile string) (CheckConfig, error) {
	inDir, err := filepath.Abs(firstNonEmpty(inPath, DefaultPath))
	if err != nil {
		return CheckConfig{}, fmt.Errorf("failed to resolve input path: %w", err)
	}
	outDir := inDir
	if outPath != "" {
		if outDir, err = filepath.Abs(outPath); err != nil {
			return CheckConfig{}, fmt.Errorf("failed to resolve output path: %w", err)
		}
	}

	pattern = firstNonEmpty(pattern, DefaultSearchString)
	if _, err := filepath.Match(pattern, ""); err != nil {
		return CheckConfig{}, fmt.Errorf("invalid search string %q: %w", pattern, err)
	}

	return CheckConfig{
		InDir:      inDir,
		OutDir:     outDir,
		Pattern:    pattern,
		CountsFile: within(inDir, firstNonEmpty(countsFile, DefaultCountsFile)),
	}, nil
}
