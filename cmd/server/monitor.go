package main

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	"AlertMate/go-backend/internal/capture"
	"AlertMate/go-backend/internal/drowsiness"
	"AlertMate/go-backend/internal/services"
	"AlertMate/go-backend/pkg/log"
	"github.com/spf13/cobra"
)

type monitorOptions struct {
	Device string
	Width  int
	Height int
	FPS    int
}

var monitorOpts monitorOptions

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Watch a camera and print decision records as JSON lines",
	RunE: func(cmd *cobra.Command, args []string) error {
		detection, err := detectionConfig(cmd)
		if err != nil {
			return err
		}
		return runMonitor(cmd.Context(), detection, monitorOpts, os.Stdout)
	},
}

func init() {
	monitorCmd.Flags().StringVarP(&monitorOpts.Device, "device", "d", capture.DefaultDevice, "V4L2 camera device")
	monitorCmd.Flags().IntVar(&monitorOpts.Width, "width", capture.DefaultWidth, "Capture width")
	monitorCmd.Flags().IntVar(&monitorOpts.Height, "height", capture.DefaultHeight, "Capture height")
	monitorCmd.Flags().IntVar(&monitorOpts.FPS, "fps", capture.DefaultFPS, "Capture frame rate")
	detectionFlags(monitorCmd)
	rootCmd.AddCommand(monitorCmd)
}

func newCLIRunner(ctx context.Context) (*services.Runner, *services.LandmarkClient, error) {
	model, err := services.NewLandmarkClient(cfg.LandmarkServiceURL, cfg.MaxMessageSizeMB)
	if err != nil {
		return nil, nil, err
	}

	var alerts services.AlertPublisher = services.NopPublisher{}
	if cfg.RedisAddress != "" {
		alerts = services.NewRedisPublisher(ctx, cfg.RedisAddress, cfg.RedisPassword, cfg.RedisDB, cfg.AlertChannel)
	}
	return services.NewRunner(model, services.NewMetrics(), alerts, nil), model, nil
}

func runMonitor(ctx context.Context, detection drowsiness.Config, opts monitorOptions, stdout io.Writer) error {
	out := newLineWriter(stdout)
	out.status("initializing")
	defer out.status("stopped")

	runner, model, err := newCLIRunner(ctx)
	if err != nil {
		out.error(err)
		return err
	}
	defer model.Close()
	defer runner.Alerts.Close()

	if !model.HealthCheck(ctx) {
		log.Warn(log.Fields{"url": model.URL()}, "landmark model is not reporting SERVING")
	}
	out.status("models_loaded")

	src, err := capture.Start(ctx, capture.CameraArgs(opts.Device, opts.Width, opts.Height, opts.FPS))
	if err != nil {
		out.error(err)
		return err
	}
	out.status("camera_ready")

	stream := services.NewStream("cli", detection)
	err = drain(ctx, runner, stream, src, out, func(int) time.Time { return time.Now() })
	if errors.Is(err, context.Canceled) {
		return nil
	}
	if err != nil {
		log.Error(log.Fields{"error": err.Error()}, "camera stopped")
	}
	return err
}

// frameSource is a running capture process.
type frameSource interface {
	Reader() io.Reader
	Stop()
	Wait() error
}

// drain processes every frame of src and then reaps it. The source is stopped
// first when processing ends early, as nothing reads its output afterwards.
func drain(ctx context.Context, runner *services.Runner, st *services.Stream, src frameSource, out *lineWriter, clock func(int) time.Time) error {
	err := processFrames(ctx, runner, st, src.Reader(), out, clock)
	if err != nil {
		src.Stop()
	}
	if werr := src.Wait(); werr != nil && err == nil && ctx.Err() == nil {
		err = werr
	}
	return err
}

// processFrames feeds every frame of r through the stream and prints emitted
// records. clock maps a frame index to its timestamp.
func processFrames(ctx context.Context, runner *services.Runner, st *services.Stream, r io.Reader, out *lineWriter, clock func(int) time.Time) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	frames, errc := capture.Frames(ctx, r)

	i := 0
	for frame := range frames {
		rec, emitted, err := runner.ProcessFrame(ctx, st, frame, clock(i))
		i++
		if err != nil {
			out.error(err)
			continue
		}
		if emitted {
			if err := out.write(rec); err != nil {
				return err
			}
		}
	}
	return <-errc
}
