package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"AlertMate/go-backend/internal/config"
	"AlertMate/go-backend/internal/drowsiness"
	"AlertMate/go-backend/pkg/log"
	"github.com/spf13/cobra"
)

var (
	cfg         *config.Config
	logLevel    string
	landmarkURL string
)

var rootCmd = &cobra.Command{
	Use:          "alertmate",
	Short:        "Driver drowsiness monitoring backend",
	Version:      "1.0.0",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, notes, err := config.LoadConfig()
		if err != nil {
			return err
		}
		if logLevel != "" {
			loaded.LogLevel = logLevel
		}
		if landmarkURL != "" {
			loaded.LandmarkServiceURL = landmarkURL
		}
		cfg = loaded

		// stdout carries JSON lines for everything but serve
		log.NewLogger(log.Options{
			Level:    cfg.LogLevel,
			File:     cfg.LogFile,
			Writer:   os.Stderr,
			NoColors: cmd.Name() != "serve",
		})
		for _, n := range notes {
			log.Info(nil, n)
		}
		return nil
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (default from LOG_LEVEL)")
	rootCmd.PersistentFlags().StringVar(&landmarkURL, "landmark-url", "", "Landmark model gRPC address (default from LANDMARK_SERVICE_URL)")
}

// detectionFlags registers the per-session override flags; they share their
// names with the /ws/monitor query parameters.
func detectionFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String(config.KeyEARThreshold, "", "Eye aspect ratio below which eyes count as closed")
	f.String(config.KeyEARTime, "", "How long eyes must stay closed (duration or seconds)")
	f.String(config.KeyMARThreshold, "", "Mouth aspect ratio above which the mouth counts as yawning")
	f.String(config.KeyMARTime, "", "How long a yawn must last (duration or seconds)")
	f.String(config.KeyDrowsyFrames, "", "Drowsy counter value that must be exceeded")
	f.String(config.KeyEmitInterval, "", "Output interval: duration or one of "+strings.Join([]string{"fast", "cli", "socket"}, ", "))
}

// flagGetter exposes changed flags as override values.
type flagGetter struct{ cmd *cobra.Command }

func (g flagGetter) Get(key string) string {
	f := g.cmd.Flags().Lookup(key)
	if f == nil || !f.Changed {
		return ""
	}
	return f.Value.String()
}

// detectionConfig is the CLI base config with any override flags applied.
func detectionConfig(cmd *cobra.Command) (drowsiness.Config, error) {
	return config.ApplyOverrides(cfg.DetectionFor("cli"), flagGetter{cmd})
}
