package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"AlertMate/go-backend/internal/capture"
	"AlertMate/go-backend/internal/drowsiness"
	"AlertMate/go-backend/internal/services"
	"AlertMate/go-backend/pkg/log"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

type replayOptions struct {
	Output string
	FPS    float64
	Quiet  bool
}

var replayOpts replayOptions

var replayCmd = &cobra.Command{
	Use:   "replay <video>",
	Short: "Run a recorded video through the detector and print decision records",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		detection, err := detectionConfig(cmd)
		if err != nil {
			return err
		}
		return runReplay(cmd.Context(), args[0], detection, replayOpts)
	},
}

func init() {
	replayCmd.Flags().StringVarP(&replayOpts.Output, "output", "o", "", "Write JSON lines to this file instead of stdout")
	replayCmd.Flags().Float64Var(&replayOpts.FPS, "fps", 0, "Frame rate used for timestamps (default: probed from the file, else 30)")
	replayCmd.Flags().BoolVarP(&replayOpts.Quiet, "quiet", "q", false, "Hide the progress bar")
	detectionFlags(replayCmd)
	rootCmd.AddCommand(replayCmd)
}

func runReplay(ctx context.Context, path string, detection drowsiness.Config, opts replayOptions) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("input video: %w", err)
	}

	var stdout io.Writer = os.Stdout
	if opts.Output != "" {
		f, err := os.Create(opts.Output)
		if err != nil {
			return fmt.Errorf("output: %w", err)
		}
		defer f.Close()
		stdout = f
	}

	info, err := capture.Probe(ctx, path)
	if err != nil {
		log.Warn(log.Fields{"error": err.Error()}, "probe failed, progress and timing are estimated")
	}
	fps := opts.FPS
	if fps <= 0 {
		fps = info.FPS
	}
	if fps <= 0 {
		fps = capture.DefaultFPS
	}

	total := info.Frames
	if total <= 0 {
		total = -1
	}
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetDescription("replaying"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionSetVisibility(!opts.Quiet),
	)

	runner, model, err := newCLIRunner(ctx)
	if err != nil {
		return err
	}
	defer model.Close()
	defer runner.Alerts.Close()

	src, err := capture.Start(ctx, capture.FileArgs(path))
	if err != nil {
		return err
	}

	start := time.Now()
	stream := services.NewStream("replay", detection)
	out := newLineWriter(stdout)
	err = drain(ctx, runner, stream, src, out, replayClock(start, fps, bar))
	bar.Finish()
	fmt.Fprintln(os.Stderr)

	m := runner.Metrics.Snapshot()
	log.Info(log.Fields{
		"frames":  m["total_frames"],
		"errors":  m["total_errors"],
		"emitted": m["emitted_records"],
		"drowsy":  m["drowsy_detections"],
		"fps":     fps,
	}, "replay finished")
	return err
}

// replayClock places frame i at start + i/fps and ticks the progress bar.
func replayClock(start time.Time, fps float64, bar *progressbar.ProgressBar) func(int) time.Time {
	return func(i int) time.Time {
		bar.Add(1)
		return start.Add(time.Duration(float64(i) / fps * float64(time.Second)))
	}
}
