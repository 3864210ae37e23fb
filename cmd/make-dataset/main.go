package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/fpang/dataset-creator/internal/cli"
	"github.com/fpang/dataset-creator/internal/config"
	"github.com/fpang/dataset-creator/internal/filehandler"
	"github.com/fpang/dataset-creator/internal/logging"
	"github.com/fpang/dataset-creator/internal/pipeline"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// CLI flags
var (
	pathFlag                 string
	countsFileFlag           string
	filesFlag                string
	fpsFlag                  float64
	startingFrameFlag        int
	frameIntervalFlag        int
	endFrameBufferFlag       int
	spacingMultipleFlag      int
	trimTerminalIntervalFlag bool
	outputFlag               string
	compressBackupFlag       bool
	sqliteFlag               string
	metricsFlag              bool
	configFlag               string
)

// rootCmd is the main Cobra command for the make-dataset CLI.
var rootCmd = &cobra.Command{
	Use:   "make-dataset",
	Short: "Build a labelled frame dataset from video frame counts and class logs",
	Long: `Make Dataset merges the frame counts of a recording session's videos with
the timestamped class logs written while recording, and produces a table of
labelled frame intervals (filename, class, beginframe, endframe).

Each class log holds one YYYYMMDD_HHMMSS timestamp per line marking the moment
its class started. Logs are numbered by their position in --files. The table is
checked after it is written: invalid intervals are removed and the unrepaired
table is kept as a backup. Intervals running past the end of their video are
clamped in the report and the --sqlite export.

When --fps is not given, the frame rate is read from the first .mp4 in the
directory with ffprobe; .h264 recordings use 25.

Examples:
  make-dataset --path /data/session1
  make-dataset --path . --files logNo.txt,logPos.txt --frame-interval 5
  make-dataset --config dataset.toml --sqlite runs.db

Exported runs are read back with dataset-runs.`,
	Run: runMain,
}

func init() {
	rootCmd.Flags().StringVarP(&pathFlag, "path", "p", "", "Directory containing the counts file, class logs, and videos (default \".\")")
	rootCmd.Flags().StringVar(&countsFileFlag, "counts-file", "", "Frame count CSV with filename and framecount columns (default \"counts.csv\")")
	rootCmd.Flags().StringVar(&filesFlag, "files", "", "Comma-separated class logs, numbered 0..N-1 (default \""+strings.Join(config.DefaultFiles, ",")+"\")")
	rootCmd.Flags().Float64Var(&fpsFlag, "fps", config.DefaultFPS, "Frames per second (detected from the first .mp4 when not given)")
	rootCmd.Flags().IntVar(&startingFrameFlag, "starting-frame", config.DefaultStartingFrame, "First frame of every video")
	rootCmd.Flags().IntVar(&frameIntervalFlag, "frame-interval", 0, "Frames left out between segments of different class")
	rootCmd.Flags().IntVar(&endFrameBufferFlag, "end-frame-buffer", 0, "Frames trimmed off the end of every video")
	rootCmd.Flags().IntVar(&spacingMultipleFlag, "spacing-multiple", config.DefaultSpacingMultiple, "Multiple of --frame-interval between a segment's end and the next segment's begin")
	rootCmd.Flags().BoolVar(&trimTerminalIntervalFlag, "trim-terminal-interval", false, "Also trim --frame-interval off the last segment of each video")
	rootCmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Output dataset file (default \"dataset.csv\")")
	rootCmd.Flags().BoolVar(&compressBackupFlag, "compress-backup", false, "Store the pre-repair backup zstd-compressed")
	rootCmd.Flags().StringVar(&sqliteFlag, "sqlite", "", "Also export the run into this SQLite database")
	rootCmd.Flags().BoolVar(&metricsFlag, "metrics", false, "Print run metrics as an EMF JSON line on stdout")
	rootCmd.Flags().StringVarP(&configFlag, "config", "c", "", "TOML config file; flags given explicitly take precedence")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// runMain is the main execution logic called by Cobra.
func runMain(cmd *cobra.Command, args []string) {
	logging.Init()

	var fc config.FileConfig
	if configFlag != "" {
		var err error
		if fc, err = config.Load(configFlag); err != nil {
			log.Fatal().Err(err).Str("path", configFlag).Msg("Failed to load config file")
		}
	}

	cfg, err := config.Resolve(flagsFrom(cmd), fc)
	if err != nil {
		cli.HandleRunError(err)
	}
	cfg.Dir = cli.ValidateAndResolveDirectory(cfg.Dir)

	if cfg.DetectFPS {
		if err := filehandler.CheckFFprobeAvailable(); err != nil {
			log.Warn().Err(err).Msg("Frame rate of .mp4 recordings cannot be detected, pass --fps")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	report, err := pipeline.Build(ctx, cfg, os.Stdout)
	if err != nil {
		cli.HandleRunError(err)
	}

	if metricsFlag {
		return
	}

	fmt.Println()
	fmt.Println("============================================")
	fmt.Println("Dataset Created")
	fmt.Println("============================================")
	fmt.Printf("Run:          %s\n", report.RunID)
	fmt.Printf("Output:       %s\n", report.Output)
	fmt.Printf("FPS:          %g\n", report.FPS)
	fmt.Printf("Rows merged:  %d\n", report.Merged)
	fmt.Printf("Rows kept:    %d\n", report.Repair.Kept)
	if report.Dropped > 0 {
		fmt.Printf("Dropped:      %d class events before the first video\n", report.Dropped)
	}
	if n := len(report.Repair.Clamped); n > 0 {
		fmt.Printf("Clamped:      %d\n", n)
	}
	if report.Repair.Rewritten {
		fmt.Printf("Removed:      %d\n", len(report.Repair.Faults))
		fmt.Printf("Backup:       %s\n", report.Repair.BackupPath)
	}
	fmt.Printf("Labelled:     %s\n", cli.FormatFrames(labelledFrames(report), report.FPS))
	fmt.Printf("Elapsed:      %s\n", report.Elapsed.Round(time.Millisecond))
}

// flagsFrom collects the flags the user set explicitly, so that config file
// values are only overridden on purpose.
func flagsFrom(cmd *cobra.Command) config.Flags {
	f := cmd.Flags()
	flags := config.Flags{
		Path:       pathFlag,
		CountsFile: countsFileFlag,
		Output:     outputFlag,
		SQLite:     sqliteFlag,
		Metrics:    metricsFlag,
	}
	if filesFlag != "" {
		flags.Files = strings.Split(filesFlag, ",")
	}
	if f.Changed("fps") {
		flags.FPS = &fpsFlag
	}
	if f.Changed("starting-frame") {
		flags.StartingFrame = &startingFrameFlag
	}
	if f.Changed("frame-interval") {
		flags.FrameInterval = &frameIntervalFlag
	}
	if f.Changed("end-frame-buffer") {
		flags.EndFrameBuffer = &endFrameBufferFlag
	}
	if f.Changed("spacing-multiple") {
		flags.SpacingMultiple = &spacingMultipleFlag
	}
	if f.Changed("trim-terminal-interval") {
		flags.TrimTerminalInterval = &trimTerminalIntervalFlag
	}
	if f.Changed("compress-backup") {
		flags.CompressBackup = &compressBackupFlag
	}
	return flags
}

func labelledFrames(report pipeline.BuildReport) int {
	total := 0
	for _, row := range report.Repair.Table {
		total += row.EndFrame - row.BeginFrame
	}
	return total
}
