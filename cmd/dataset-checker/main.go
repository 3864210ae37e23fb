package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/fpang/dataset-creator/internal/cli"
	"github.com/fpang/dataset-creator/internal/config"
	"github.com/fpang/dataset-creator/internal/logging"
	"github.com/fpang/dataset-creator/internal/pipeline"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// CLI flags
var (
	inPathFlag         string
	outPathFlag        string
	searchStringFlag   string
	countsFlag         string
	compressBackupFlag bool
	metricsFlag        bool
)

// rootCmd is the main Cobra command for the dataset-checker CLI.
var rootCmd = &cobra.Command{
	Use:   "dataset-checker",
	Short: "Check dataset files for missing values and invalid frame ranges",
	Long: `Dataset Checker validates every dataset file in a directory against the
frame counts of its videos. Rows with missing values, a begin frame at or after
the end frame, or negative frames are removed; end frames past the end of the
video are clamped. A repaired file is backed up before it is replaced. Files
that need no change are left untouched.

Examples:
  dataset-checker --in-path /data/session1
  dataset-checker --in-path . --search-string "dataset*.csv" --out-path ./clean`,
	Run: runMain,
}

func init() {
	rootCmd.Flags().StringVarP(&inPathFlag, "in-path", "i", config.DefaultPath, "Directory containing the dataset files and the counts file")
	rootCmd.Flags().StringVarP(&outPathFlag, "out-path", "o", "", "Directory for repaired files and backups (default: --in-path)")
	rootCmd.Flags().StringVarP(&searchStringFlag, "search-string", "s", config.DefaultSearchString, "Glob selecting the dataset files to check")
	rootCmd.Flags().StringVar(&countsFlag, "counts", config.DefaultCountsFile, "Frame count CSV in --in-path")
	rootCmd.Flags().BoolVar(&compressBackupFlag, "compress-backup", false, "Store backups zstd-compressed")
	rootCmd.Flags().BoolVar(&metricsFlag, "metrics", false, "Print run metrics as an EMF JSON line on stdout")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// runMain is the main execution logic called by Cobra.
func runMain(cmd *cobra.Command, args []string) {
	logging.Init()

	inDir := cli.ValidateAndResolveDirectory(inPathFlag)
	cfg, err := config.ResolveCheck(inDir, outPathFlag, searchStringFlag, countsFlag)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid arguments")
	}
	cfg.CompressBackup = compressBackupFlag
	cfg.Metrics = metricsFlag

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	report, err := pipeline.Check(ctx, cfg, os.Stdout)
	if err != nil {
		cli.HandleRunError(err)
	}

	if metricsFlag {
		return
	}

	fmt.Println()
	fmt.Println("============================================")
	fmt.Println("Dataset Check")
	fmt.Println("============================================")
	fmt.Printf("Directory: %s\n", cfg.InDir)
	fmt.Printf("Files:     %d\n", len(report.Files))
	fmt.Printf("Repaired:  %d\n", report.Rewritten())
	fmt.Println("--------------------------------------------")
	for _, f := range report.Files {
		status := "clean"
		if f.Rewritten {
			status = fmt.Sprintf("%d removed, %d clamped, backup %s",
				len(f.Faults), len(f.Clamped), filepath.Base(f.BackupPath))
		}
		fmt.Printf("  %-24s %4d rows  %s\n", filepath.Base(f.Path), f.Kept, status)
	}
	fmt.Printf("Elapsed: %s\n", report.Elapsed.Round(time.Millisecond))
}
