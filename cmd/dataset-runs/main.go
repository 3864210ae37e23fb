package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/fpang/dataset-creator/internal/cli"
	"github.com/fpang/dataset-creator/internal/logging"
	"github.com/fpang/dataset-creator/internal/pipeline"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// CLI flags
var (
	dbFlag       string
	runFlag      string
	segmentsFlag bool
)

// rootCmd is the main Cobra command for the dataset-runs CLI.
var rootCmd = &cobra.Command{
	Use:   "dataset-runs",
	Short: "Inspect make-dataset runs exported with --sqlite",
	Long: `Dataset Runs reads back the SQLite database written by make-dataset --sqlite.

Without --run it lists every exported run, newest first. With --run it shows
the run's frame settings and class relations, and with --segments also every
labelled interval it produced.

Examples:
  dataset-runs --db runs.db
  dataset-runs --db runs.db --run build-6ba7b810-9dad-11d1-80b4-00c04fd430c8 --segments`,
	Run: runMain,
}

func init() {
	rootCmd.Flags().StringVarP(&dbFlag, "db", "d", "", "SQLite database written by make-dataset --sqlite (required)")
	rootCmd.Flags().StringVarP(&runFlag, "run", "r", "", "Run ID to show in detail")
	rootCmd.Flags().BoolVar(&segmentsFlag, "segments", false, "With --run, also print every segment")
	_ = rootCmd.MarkFlagRequired("db")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// runMain is the main execution logic called by Cobra.
func runMain(cmd *cobra.Command, args []string) {
	logging.Init()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if runFlag == "" {
		listRuns(ctx)
		return
	}
	showRun(ctx)
}

func listRuns(ctx context.Context) {
	runs, err := pipeline.ListRuns(ctx, dbFlag)
	if err != nil {
		cli.HandleRunError(err)
	}
	if len(runs) == 0 {
		log.Warn().Str("db", dbFlag).Msg("No runs exported yet")
		return
	}

	fmt.Printf("%-44s  %-20s  %6s  %6s  %s\n", "RUN", "CREATED", "FPS", "ROWS", "DIRECTORY")
	for _, r := range runs {
		fmt.Printf("%-44s  %-20s  %6g  %6d  %s\n",
			r.ID, r.CreatedAt.Local().Format("2006-01-02 15:04:05"), r.FPS, r.Rows, r.Dir)
	}
}

func showRun(ctx context.Context) {
	detail, err := pipeline.ShowRun(ctx, dbFlag, runFlag)
	if err != nil {
		cli.HandleRunError(err)
	}
	run := detail.Run

	fmt.Println()
	fmt.Println("============================================")
	fmt.Println("Dataset Run")
	fmt.Println("============================================")
	fmt.Printf("Run:          %s\n", run.ID)
	fmt.Printf("Created:      %s\n", run.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Printf("Directory:    %s\n", run.Dir)
	fmt.Printf("Output:       %s\n", run.Output)
	fmt.Printf("FPS:          %g\n", run.FPS)
	fmt.Printf("Frames:       start %d, interval %d, end buffer %d\n",
		run.StartingFrame, run.FrameInterval, run.EndFrameBuffer)
	fmt.Printf("Rows:         %d kept, %d removed, %d clamped, %d events dropped\n",
		run.Rows, run.Faults, run.Clamped, run.Dropped)
	fmt.Printf("Labelled:     %s\n", cli.FormatFrames(detail.LabelledFrames(), run.FPS))
	fmt.Println("--------------------------------------------")
	for _, c := range detail.Classes {
		fmt.Printf("  class %-3d %-12s %s\n", c.Number, c.Name, c.Source)
	}

	if !segmentsFlag {
		return
	}
	fmt.Println("--------------------------------------------")
	for _, s := range detail.Segments {
		fmt.Printf("  %-32s %3d %8d %8d\n", s.Filename, s.Class, s.BeginFrame, s.EndFrame)
	}
}
